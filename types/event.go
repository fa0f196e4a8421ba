package types

import (
	"fmt"
	"strings"
)

// Action is the kind of a reconciled collection event
type Action int

const (
	ActionAdd Action = iota
	ActionRemove
	ActionReplace
	ActionMove
	ActionChange
	ActionReset
)

var actionNames = [...]string{"add", "remove", "replace", "move", "change", "reset"}

// String returns the lower-case action name
func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// MarshalText implements encoding.TextMarshaler
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Reason records why an event was produced
type Reason string

const (
	// ReasonDirect events were raised synchronously by the operation itself
	ReasonDirect Reason = "direct"
	// ReasonReconciled events were synthesized from a mutation log
	ReasonReconciled Reason = "reconciled"
	// ReasonEscalated resets replace item changes that covered the whole collection
	ReasonEscalated Reason = "escalated"
	// ReasonReset events come from replacing or clearing the whole sequence
	ReasonReset Reason = "reset"
	// ReasonRejected resets come from rejecting structural changes
	ReasonRejected Reason = "rejected"
)

// Event is a reconciled collection change notification.
// Indices are -1 when they do not apply to the action.
type Event struct {
	Action   Action           `json:"action"`
	NewItems []any            `json:"newItems,omitempty"`
	NewIndex int              `json:"newIndex"`
	OldItems []any            `json:"oldItems,omitempty"`
	OldIndex int              `json:"oldIndex"`
	Changes  map[int][]string `json:"changes,omitempty"`
	Reason   Reason           `json:"reason"`
}

// String gives a compact description, mostly for logs and test failures
func (e Event) String() string {
	var b strings.Builder
	b.WriteString(e.Action.String())
	switch e.Action {
	case ActionAdd:
		fmt.Fprintf(&b, " %d@%d", len(e.NewItems), e.NewIndex)
	case ActionRemove:
		fmt.Fprintf(&b, " %d@%d", len(e.OldItems), e.OldIndex)
	case ActionReplace:
		fmt.Fprintf(&b, " @%d", e.NewIndex)
	case ActionMove:
		fmt.Fprintf(&b, " %d->%d", e.OldIndex, e.NewIndex)
	case ActionChange:
		fmt.Fprintf(&b, " %d@%d", len(e.NewItems), e.NewIndex)
	case ActionReset:
		fmt.Fprintf(&b, " %d items", len(e.NewItems))
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, " (%s)", e.Reason)
	}
	return b.String()
}

// FieldChange is published by an entity after one or more fields changed.
// Nested is set when the change came from a relation child.
type FieldChange struct {
	Fields  []string
	Version uint64
	Nested  bool
}

// StateChange is published by an entity when its lifecycle state moves
type StateChange struct {
	From LifecycleState
	To   LifecycleState
}
