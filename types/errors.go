package types

import (
	"github.com/cockroachdb/errors"
)

// Sentinel errors for the state core. Check them with errors.Is or the
// IsXxxError helpers; constructors below wrap them with context.
var (
	// ErrReadOnlyProperty is returned when setting a property that only has a getter
	ErrReadOnlyProperty = errors.New("read-only property")

	// ErrUnknownField is returned for fields the raw store does not know and cannot create
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidIndex is returned by collection operations given an out-of-range index
	ErrInvalidIndex = errors.New("invalid index")

	// ErrReentrancy is returned when an entity or collection is mutated from
	// inside one of its own change handlers
	ErrReentrancy = errors.New("reentrant mutation")

	// ErrIncompatibleStorage is returned when values are assigned between
	// structurally incompatible raw stores
	ErrIncompatibleStorage = errors.New("incompatible storage")

	// ErrEventWindow is returned when event raising windows do not alternate
	ErrEventWindow = errors.New("event window out of order")

	// ErrInvalidValue is returned when a value cannot be coerced to its field format
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidSchema is returned for malformed schema definitions
	ErrInvalidSchema = errors.New("invalid schema")
)

// NewReadOnlyPropertyError reports a write to a get-only property
func NewReadOnlyPropertyError(name string) error {
	return errors.WithHintf(
		errors.Wrapf(ErrReadOnlyProperty, "cannot set %q", name),
		"give %q a Set function or drop its Get function", name)
}

// NewUnknownFieldError reports an operation on a field the store does not hold
func NewUnknownFieldError(name string) error {
	return errors.WithHint(
		errors.Wrapf(ErrUnknownField, "field %q", name),
		"declare the field in the schema or use a storage adapter that allows dynamic fields")
}

// NewInvalidIndexError reports an index outside [0, length)
func NewInvalidIndexError(index, length int) error {
	return errors.WithDetailf(
		errors.Wrapf(ErrInvalidIndex, "index %d", index),
		"collection length is %d", length)
}

// NewReentrancyError reports a mutation attempted while handlers are running
func NewReentrancyError(target string) error {
	return errors.WithHint(
		errors.Wrapf(ErrReentrancy, "%s is dispatching change notifications", target),
		"defer the mutation until the handler returns")
}

// NewIncompatibleStorageError reports an assignment between incompatible adapters
func NewIncompatibleStorageError(from, to string) error {
	return errors.Wrapf(ErrIncompatibleStorage, "cannot assign %s storage to %s storage", from, to)
}

// NewInvalidValueError reports a value that violates its field format
func NewInvalidValueError(field string, kind Kind, cause error) error {
	err := errors.Wrapf(ErrInvalidValue, "field %q expects %s", field, kind)
	if cause != nil {
		err = errors.WithSecondaryError(err, cause)
	}
	return err
}

// IsReadOnlyPropertyError checks if an error is or wraps ErrReadOnlyProperty
func IsReadOnlyPropertyError(err error) bool {
	return err != nil && errors.Is(err, ErrReadOnlyProperty)
}

// IsUnknownFieldError checks if an error is or wraps ErrUnknownField
func IsUnknownFieldError(err error) bool {
	return err != nil && errors.Is(err, ErrUnknownField)
}

// IsInvalidIndexError checks if an error is or wraps ErrInvalidIndex
func IsInvalidIndexError(err error) bool {
	return err != nil && errors.Is(err, ErrInvalidIndex)
}

// IsReentrancyError checks if an error is or wraps ErrReentrancy
func IsReentrancyError(err error) bool {
	return err != nil && errors.Is(err, ErrReentrancy)
}

// IsIncompatibleStorageError checks if an error is or wraps ErrIncompatibleStorage
func IsIncompatibleStorageError(err error) bool {
	return err != nil && errors.Is(err, ErrIncompatibleStorage)
}
