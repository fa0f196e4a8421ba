package types

import (
	"reflect"

	"github.com/spf13/cast"
)

// Kind names the value type a field format accepts
type Kind string

const (
	KindAny    Kind = "any"
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindTime   Kind = "time"
	KindObject Kind = "object"
	KindList   Kind = "list"
)

// IsValid reports whether k is one of the known kinds. The empty kind is
// treated as KindAny.
func (k Kind) IsValid() bool {
	switch k {
	case "", KindAny, KindString, KindInt, KindFloat, KindBool, KindTime, KindObject, KindList:
		return true
	}
	return false
}

// FormatDescriptor is the field-format metadata a raw store exposes for one
// field. Entities consult it before coercing a written value.
type FormatDescriptor struct {
	Name     string `yaml:"name" json:"name"`
	Kind     Kind   `yaml:"kind,omitempty" json:"kind,omitempty"`
	Nullable bool   `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	ReadOnly bool   `yaml:"readOnly,omitempty" json:"readOnly,omitempty"`
	Default  any    `yaml:"default,omitempty" json:"default,omitempty"`
}

// AnyFormat returns the permissive format used for fields without metadata
func AnyFormat(name string) FormatDescriptor {
	return FormatDescriptor{Name: name, Kind: KindAny, Nullable: true}
}

// Coerce converts value to the descriptor's kind.
// nil is accepted only for nullable or untyped fields.
func (f FormatDescriptor) Coerce(value any) (any, error) {
	if f.Kind == "" || f.Kind == KindAny {
		return value, nil
	}
	if value == nil {
		if f.Nullable {
			return nil, nil
		}
		return nil, NewInvalidValueError(f.Name, f.Kind, nil)
	}

	var (
		out any
		err error
	)
	switch f.Kind {
	case KindString:
		out, err = cast.ToStringE(value)
	case KindInt:
		out, err = cast.ToIntE(value)
	case KindFloat:
		out, err = cast.ToFloat64E(value)
	case KindBool:
		out, err = cast.ToBoolE(value)
	case KindTime:
		out, err = cast.ToTimeE(value)
	case KindObject:
		if !IsObjectLike(value) {
			return nil, NewInvalidValueError(f.Name, f.Kind, nil)
		}
		out = value
	case KindList:
		kind := reflect.TypeOf(value).Kind()
		if kind != reflect.Slice && kind != reflect.Array {
			return nil, NewInvalidValueError(f.Name, f.Kind, nil)
		}
		out = value
	default:
		out = value
	}
	if err != nil {
		return nil, NewInvalidValueError(f.Name, f.Kind, err)
	}
	return out, nil
}
