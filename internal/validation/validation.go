package validation

import (
	"reflect"
	"strings"
	"time"

	"github.com/arthur-debert/nanostate/types"
	"github.com/cockroachdb/errors"
)

// maxFields keeps tuple rows small enough to copy cheaply on clone
const maxFields = 256

// ValidateSchema checks a list of field formats for consistency
func ValidateSchema(name string, fields []types.FormatDescriptor) error {
	if len(fields) > maxFields {
		return errors.Wrapf(types.ErrInvalidSchema, "schema %q: too many fields: %d (maximum %d)", name, len(fields), maxFields)
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if err := ValidateFieldName(f.Name); err != nil {
			return errors.Wrapf(err, "schema %q", name)
		}
		if seen[f.Name] {
			return errors.Wrapf(types.ErrInvalidSchema, "schema %q: duplicate field name: %s", name, f.Name)
		}
		seen[f.Name] = true

		if !f.Kind.IsValid() {
			return errors.Wrapf(types.ErrInvalidSchema, "schema %q: field %s: unknown kind %q", name, f.Name, f.Kind)
		}

		if f.Default != nil {
			if _, err := f.Coerce(f.Default); err != nil {
				return errors.Wrapf(types.ErrInvalidSchema, "schema %q: field %s: default %v does not match kind %s", name, f.Name, f.Default, f.Kind)
			}
		}
	}
	return nil
}

// ValidateFieldName rejects empty, padded and reserved field names
func ValidateFieldName(name string) error {
	if name == "" {
		return errors.Wrap(types.ErrInvalidSchema, "field name cannot be empty")
	}
	if strings.TrimSpace(name) != name {
		return errors.Wrapf(types.ErrInvalidSchema, "field name %q has surrounding whitespace", name)
	}
	if IsReservedFieldName(name) {
		return errors.Wrapf(types.ErrInvalidSchema, "'%s' is a reserved field name", name)
	}
	return nil
}

// IsReservedFieldName checks if a field name is used by the envelope format
func IsReservedFieldName(name string) bool {
	reserved := []string{
		"$id", "$state", "$changed", "$original", "$items",
	}

	name = strings.ToLower(name)
	for _, reservedName := range reserved {
		if name == reservedName {
			return true
		}
	}
	return false
}

// ValidateDependencies checks that every dependsOn entry names a known field
// and that no property lists itself
func ValidateDependencies(property string, dependsOn []string, known func(string) bool) error {
	for _, dep := range dependsOn {
		if dep == property {
			return errors.Newf("property %s cannot depend on itself", property)
		}
		if !known(dep) {
			return errors.Newf("property %s depends on unknown field %s", property, dep)
		}
	}
	return nil
}

// IsSimpleType reports whether value is a scalar (string, number, bool,
// time) that can be written to an envelope as-is
func IsSimpleType(value any) bool {
	if value == nil {
		return true
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Ptr:
		if v.IsNil() {
			return true
		}
		return IsSimpleType(v.Elem().Interface())
	case reflect.Struct:
		_, ok := value.(time.Time)
		return ok
	default:
		return false
	}
}
