package nanostate

import (
	"github.com/arthur-debert/nanostate/internal/validation"
	"github.com/arthur-debert/nanostate/types"
)

// LifecycleState is an alias for types.LifecycleState
type LifecycleState = types.LifecycleState

const (
	Detached  = types.Detached
	Unchanged = types.Unchanged
	Changed   = types.Changed
	Added     = types.Added
	Deleted   = types.Deleted
)

// Event is an alias for types.Event
type Event = types.Event

// Action is an alias for types.Action
type Action = types.Action

const (
	ActionAdd     = types.ActionAdd
	ActionRemove  = types.ActionRemove
	ActionReplace = types.ActionReplace
	ActionMove    = types.ActionMove
	ActionChange  = types.ActionChange
	ActionReset   = types.ActionReset
)

// FieldChange is an alias for types.FieldChange
type FieldChange = types.FieldChange

// StateChange is an alias for types.StateChange
type StateChange = types.StateChange

// Snapshot is an alias for types.Snapshot
type Snapshot = types.Snapshot

// FormatDescriptor is an alias for types.FormatDescriptor
type FormatDescriptor = types.FormatDescriptor

// ValidateFieldName checks that name can be used as a field name
func ValidateFieldName(name string) error {
	return validation.ValidateFieldName(name)
}
