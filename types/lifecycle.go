package types

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// LifecycleState is the workflow marker of an entity. It is tracked
// separately from the dirty-field set: an entity can hold changed fields
// while staying Detached.
type LifecycleState int

const (
	// Detached entities have not opted into the persistence workflow
	Detached LifecycleState = iota
	// Unchanged entities match their last accepted state
	Unchanged
	// Changed entities were written to after being Unchanged
	Changed
	// Added entities are new and not yet accepted
	Added
	// Deleted entities are marked for removal
	Deleted
)

var lifecycleNames = map[LifecycleState]string{
	Detached:  "detached",
	Unchanged: "unchanged",
	Changed:   "changed",
	Added:     "added",
	Deleted:   "deleted",
}

// String returns the lower-case name of the state
func (s LifecycleState) String() string {
	if name, ok := lifecycleNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseLifecycleState converts a state name back into a LifecycleState
func ParseLifecycleState(name string) (LifecycleState, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for state, n := range lifecycleNames {
		if n == name {
			return state, nil
		}
	}
	return Detached, errors.Newf("unknown lifecycle state: %q", name)
}

// MarshalText implements encoding.TextMarshaler
func (s LifecycleState) MarshalText() ([]byte, error) {
	if _, ok := lifecycleNames[s]; !ok {
		return nil, errors.Newf("unknown lifecycle state: %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *LifecycleState) UnmarshalText(text []byte) error {
	parsed, err := ParseLifecycleState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// AfterWrite returns the state an entity moves to when one of its fields is
// written. Only Unchanged moves; every other state is sticky.
func (s LifecycleState) AfterWrite() LifecycleState {
	if s == Unchanged {
		return Changed
	}
	return s
}

// AfterAccept returns the state after changes are accepted.
func (s LifecycleState) AfterAccept() LifecycleState {
	switch s {
	case Changed, Added:
		return Unchanged
	case Deleted:
		return Detached
	default:
		return s
	}
}

// AfterReject returns the state after changes are rejected. Rejection drops
// the entity out of the workflow (Changed -> Detached) instead of returning
// it to Unchanged the way AfterAccept does.
func (s LifecycleState) AfterReject() LifecycleState {
	if s == Changed {
		return Detached
	}
	return s
}
