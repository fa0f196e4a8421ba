package envelope

import (
	"strings"

	"github.com/arthur-debert/nanostate/types"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// Tags marking nested stateful values inside field and item values
const (
	entityTag     = "$entity"
	collectionTag = "$collection"
)

// Record is the wire form of an entity. Fields hold raw store values;
// computed properties are not serialized. A changed field without an
// OriginalValues entry was not stored at the baseline.
type Record struct {
	ID             uuid.UUID                  `json:"id"`
	Schema         string                     `json:"schema,omitempty"`
	Fields         map[string]json.RawMessage `json:"fields"`
	ChangedFields  []string                   `json:"changedFields"`
	OriginalValues map[string]json.RawMessage `json:"originalValues,omitempty"`
	LifecycleState types.LifecycleState       `json:"lifecycleState"`
}

// CollectionRecord is the wire form of a collection
type CollectionRecord struct {
	ID    uuid.UUID         `json:"id"`
	Items []json.RawMessage `json:"items"`
}

type taggedEntity struct {
	Entity *Record `json:"$entity"`
}

type taggedCollection struct {
	Collection *CollectionRecord `json:"$collection"`
}

// nestingTag inspects a raw value for a nesting tag without decoding the rest
type nestingTag struct {
	Entity     json.RawMessage `json:"$entity"`
	Collection json.RawMessage `json:"$collection"`
}

// decodeScalar decodes a plain JSON value. Integral numbers become int,
// other numbers float64.
func decodeScalar(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := cast.ToIntE(s); err == nil {
				return i
			}
		}
		if f, err := cast.ToFloat64E(s); err == nil {
			return f
		}
		return s
	case map[string]any:
		for k, inner := range t {
			t[k] = normalizeNumbers(inner)
		}
	case []any:
		for i, inner := range t {
			t[i] = normalizeNumbers(inner)
		}
	}
	return v
}
