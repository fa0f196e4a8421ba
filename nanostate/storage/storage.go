// Package storage provides the raw-store layer for nanostate.
// It defines the Adapter interface entities read and write their stored
// values through, and provides implementations for different physical
// layouts: a flat ordered map and a compact columnar tuple bound to a shared
// schema.
package storage

import (
	"github.com/arthur-debert/nanostate/types"
)

// Adapter maps field names to physical storage.
// Entities never touch the underlying layout directly: they read with Get,
// write with Set and consult Format before coercing a written value.
type Adapter interface {
	// Get returns the stored value for name, or nil when absent
	Get(name string) any

	// Set writes the stored value for name. Adapters that cannot hold the
	// field return an error wrapping types.ErrUnknownField.
	Set(name string, value any) error

	// Delete removes the stored value for name so that Has reports false.
	// Deleting an absent field is a no-op.
	Delete(name string) error

	// Has reports whether name is stored
	Has(name string) bool

	// Knows reports whether name is stored or declared by a schema, even
	// if no value was written yet
	Knows(name string) bool

	// Fields lists stored field names in storage order
	Fields() []string

	// Format returns the field-format metadata for name. Fields without
	// metadata get types.AnyFormat.
	Format(name string) types.FormatDescriptor

	// Dynamic reports whether Set may create fields that are not stored yet
	Dynamic() bool

	// Clone returns an independent copy of the stored values. Schemas are
	// shared, values are copied shallowly.
	Clone() Adapter

	// Kind names the physical layout, used in compatibility errors
	Kind() string
}

// Compatible reports whether values can be assigned from one adapter to the
// other without losing their layout guarantees. Map adapters accept
// anything. Tuple adapters require the same schema shape, or for non-tuple
// sources, only fields the schema declares.
func Compatible(from, to Adapter) bool {
	if from == nil || to == nil {
		return false
	}
	switch dst := to.(type) {
	case *MapAdapter:
		return true
	case *TupleAdapter:
		src, ok := from.(*TupleAdapter)
		if !ok {
			// A tuple can only take fields it already declares
			for _, name := range from.Fields() {
				if _, ok := dst.schema.Index(name); !ok {
					return false
				}
			}
			return true
		}
		return src.schema == dst.schema || src.schema.Signature() == dst.schema.Signature()
	default:
		return from.Kind() == to.Kind()
	}
}

// CheckCompatible returns an IncompatibleStorageError when Compatible fails
func CheckCompatible(from, to Adapter) error {
	if Compatible(from, to) {
		return nil
	}
	fromKind, toKind := "nil", "nil"
	if from != nil {
		fromKind = from.Kind()
	}
	if to != nil {
		toKind = to.Kind()
	}
	return types.NewIncompatibleStorageError(fromKind, toKind)
}
