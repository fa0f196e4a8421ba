package types

import "sort"

// Snapshot is the diff state of an entity captured for serialization. It is
// enough to rebuild the change tracker and lifecycle state after a round
// trip through an envelope.
type Snapshot struct {
	ChangedFields  []string       `json:"changedFields"`
	OriginalValues map[string]any `json:"originalValues"`
	LifecycleState LifecycleState `json:"lifecycleState"`
	// AbsentFields are changed fields that held no stored value at the
	// baseline. Their OriginalValues entry is nil.
	AbsentFields []string `json:"absentFields,omitempty"`
}

// NewSnapshot builds a snapshot from an original-values map, deriving the
// sorted changed field list from its keys
func NewSnapshot(originals map[string]any, state LifecycleState) Snapshot {
	fields := make([]string, 0, len(originals))
	values := make(map[string]any, len(originals))
	for name, v := range originals {
		fields = append(fields, name)
		values[name] = v
	}
	sort.Strings(fields)
	return Snapshot{
		ChangedFields:  fields,
		OriginalValues: values,
		LifecycleState: state,
	}
}
