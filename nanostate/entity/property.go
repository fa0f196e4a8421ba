package entity

// Getter computes a property from the entity and the field's current raw
// value (or its default when nothing is stored). It may read and write other
// fields of e.
type Getter func(e *Entity, raw any) (any, error)

// Setter transforms a written value into the raw value that gets stored
type Setter func(e *Entity, value any) (any, error)

// PropertyDef declares how a field is read and written.
//
// A definition with only a default is a plain writable field seeded with
// that default. A definition with Get and no Set is read-only.
//
// DependsOn lists the fields whose writes invalidate the cached result of
// Get. A nil list means the dependencies are not declared and any write to
// the entity invalidates the property. A non-nil empty list means the
// property is constant: it is computed once and kept until ResetCache.
type PropertyDef struct {
	Get         Getter
	Set         Setter
	Default     any
	DefaultFunc func() any
	DependsOn   []string
}

// Computed reports whether the property has a getter
func (d PropertyDef) Computed() bool {
	return d.Get != nil
}

// ReadOnly reports whether the property has a getter but no setter
func (d PropertyDef) ReadOnly() bool {
	return d.Get != nil && d.Set == nil
}

// Constant reports whether the property declared no dependencies at all
func (d PropertyDef) Constant() bool {
	return d.DependsOn != nil && len(d.DependsOn) == 0
}

// Undeclared reports whether a computed property has no dependency list
func (d PropertyDef) Undeclared() bool {
	return d.Get != nil && d.DependsOn == nil
}

// HasDefault reports whether the definition carries a default value or factory
func (d PropertyDef) HasDefault() bool {
	return d.Default != nil || d.DefaultFunc != nil
}
