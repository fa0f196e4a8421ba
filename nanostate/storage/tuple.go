package storage

import (
	"github.com/arthur-debert/nanostate/types"
)

// TupleAdapter stores values in a fixed row laid out by a shared Schema.
// It cannot create fields outside its schema.
type TupleAdapter struct {
	schema  *Schema
	values  []any
	present []bool
}

// NewTupleAdapter creates an empty row for schema. Values are not seeded
// from schema defaults; entities resolve defaults on read.
func NewTupleAdapter(schema *Schema) *TupleAdapter {
	return &TupleAdapter{
		schema:  schema,
		values:  make([]any, schema.Len()),
		present: make([]bool, schema.Len()),
	}
}

// NewTupleAdapterFrom creates a row and fills it from values. Unknown names
// are rejected.
func NewTupleAdapterFrom(schema *Schema, values map[string]any) (*TupleAdapter, error) {
	t := NewTupleAdapter(schema)
	for _, name := range sortedKeys(values) {
		if err := t.Set(name, values[name]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Schema returns the shared schema
func (t *TupleAdapter) Schema() *Schema {
	return t.schema
}

// Get implements Adapter.Get
func (t *TupleAdapter) Get(name string) any {
	i, ok := t.schema.Index(name)
	if !ok {
		return nil
	}
	return t.values[i]
}

// Set implements Adapter.Set
func (t *TupleAdapter) Set(name string, value any) error {
	i, ok := t.schema.Index(name)
	if !ok {
		return types.NewUnknownFieldError(name)
	}
	t.values[i] = value
	t.present[i] = true
	return nil
}

// Delete implements Adapter.Delete. The column stays declared; only its
// value is cleared.
func (t *TupleAdapter) Delete(name string) error {
	i, ok := t.schema.Index(name)
	if !ok {
		return types.NewUnknownFieldError(name)
	}
	t.values[i] = nil
	t.present[i] = false
	return nil
}

// Has implements Adapter.Has
func (t *TupleAdapter) Has(name string) bool {
	i, ok := t.schema.Index(name)
	return ok && t.present[i]
}

// Knows implements Adapter.Knows
func (t *TupleAdapter) Knows(name string) bool {
	_, ok := t.schema.Index(name)
	return ok
}

// Fields implements Adapter.Fields. Only columns that hold a value are
// listed, in schema order.
func (t *TupleAdapter) Fields() []string {
	out := make([]string, 0, len(t.values))
	for i, name := range t.schema.Names() {
		if t.present[i] {
			out = append(out, name)
		}
	}
	return out
}

// Format implements Adapter.Format
func (t *TupleAdapter) Format(name string) types.FormatDescriptor {
	if f, ok := t.schema.Format(name); ok {
		return f
	}
	return types.AnyFormat(name)
}

// Dynamic implements Adapter.Dynamic
func (t *TupleAdapter) Dynamic() bool {
	return false
}

// Clone implements Adapter.Clone
func (t *TupleAdapter) Clone() Adapter {
	c := &TupleAdapter{
		schema:  t.schema,
		values:  make([]any, len(t.values)),
		present: make([]bool, len(t.present)),
	}
	copy(c.values, t.values)
	copy(c.present, t.present)
	return c
}

// Kind implements Adapter.Kind
func (t *TupleAdapter) Kind() string {
	return "tuple(" + t.schema.Name() + ")"
}
