package storage

import (
	"github.com/arthur-debert/nanostate/types"
)

// MapAdapter stores fields in a flat map and remembers insertion order.
// It accepts any field name. An optional schema supplies formats.
type MapAdapter struct {
	values map[string]any
	order  []string
	schema *Schema
}

// MapOption configures a MapAdapter
type MapOption func(*MapAdapter)

// WithMapSchema attaches field formats to a map adapter. Schema fields are
// not pre-populated; they only describe how values are coerced.
func WithMapSchema(schema *Schema) MapOption {
	return func(m *MapAdapter) {
		m.schema = schema
	}
}

// NewMapAdapter creates a map adapter holding a copy of initial. Go maps
// are unordered, so initial fields are stored sorted by name. Use
// NewOrderedMapAdapter to keep a caller-supplied order.
func NewMapAdapter(initial map[string]any, opts ...MapOption) *MapAdapter {
	m := &MapAdapter{
		values: make(map[string]any, len(initial)),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, name := range sortedKeys(initial) {
		m.values[name] = initial[name]
		m.order = append(m.order, name)
	}
	return m
}

// NewOrderedMapAdapter creates a map adapter from fields, keeping their order
func NewOrderedMapAdapter(fields []Field, opts ...MapOption) *MapAdapter {
	m := &MapAdapter{
		values: make(map[string]any, len(fields)),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, f := range fields {
		_ = m.Set(f.Name, f.Value)
	}
	return m
}

// Field is a name/value pair
type Field struct {
	Name  string
	Value any
}

// Get implements Adapter.Get
func (m *MapAdapter) Get(name string) any {
	return m.values[name]
}

// Set implements Adapter.Set
func (m *MapAdapter) Set(name string, value any) error {
	if _, exists := m.values[name]; !exists {
		m.order = append(m.order, name)
	}
	m.values[name] = value
	return nil
}

// Delete implements Adapter.Delete
func (m *MapAdapter) Delete(name string) error {
	if _, exists := m.values[name]; !exists {
		return nil
	}
	delete(m.values, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Has implements Adapter.Has
func (m *MapAdapter) Has(name string) bool {
	_, ok := m.values[name]
	return ok
}

// Knows implements Adapter.Knows
func (m *MapAdapter) Knows(name string) bool {
	if m.Has(name) {
		return true
	}
	if m.schema != nil {
		_, ok := m.schema.Index(name)
		return ok
	}
	return false
}

// Fields implements Adapter.Fields
func (m *MapAdapter) Fields() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Format implements Adapter.Format
func (m *MapAdapter) Format(name string) types.FormatDescriptor {
	if m.schema != nil {
		if f, ok := m.schema.Format(name); ok {
			return f
		}
	}
	return types.AnyFormat(name)
}

// Dynamic implements Adapter.Dynamic
func (m *MapAdapter) Dynamic() bool {
	return true
}

// Clone implements Adapter.Clone
func (m *MapAdapter) Clone() Adapter {
	c := &MapAdapter{
		values: make(map[string]any, len(m.values)),
		order:  make([]string, len(m.order)),
		schema: m.schema,
	}
	copy(c.order, m.order)
	for k, v := range m.values {
		c.values[k] = v
	}
	return c
}

// Kind implements Adapter.Kind
func (m *MapAdapter) Kind() string {
	return "map"
}
