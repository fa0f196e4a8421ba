package storage

import (
	"testing"

	"github.com/arthur-debert/nanostate/types"
	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func personSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := LoadSchema("testdata/person.yaml")
	require.NoError(t, err)
	return s
}

func TestMapAdapter(t *testing.T) {
	t.Run("initial fields are sorted", func(t *testing.T) {
		m := NewMapAdapter(map[string]any{"b": 2, "a": 1})
		assert.Equal(t, []string{"a", "b"}, m.Fields())
		assert.Equal(t, 1, m.Get("a"))
	})

	t.Run("set appends new fields in order", func(t *testing.T) {
		m := NewOrderedMapAdapter([]Field{{"z", 1}, {"a", 2}})
		require.NoError(t, m.Set("m", 3))
		require.NoError(t, m.Set("z", 4))
		assert.Equal(t, []string{"z", "a", "m"}, m.Fields())
		assert.Equal(t, 4, m.Get("z"))
		assert.True(t, m.Dynamic())
	})

	t.Run("absent fields", func(t *testing.T) {
		m := NewMapAdapter(nil)
		assert.False(t, m.Has("x"))
		assert.Nil(t, m.Get("x"))
		assert.Equal(t, types.AnyFormat("x"), m.Format("x"))
	})

	t.Run("schema supplies formats", func(t *testing.T) {
		m := NewMapAdapter(nil, WithMapSchema(personSchema(t)))
		assert.Equal(t, types.KindInt, m.Format("age").Kind)
		assert.Empty(t, m.Fields())
		assert.True(t, m.Knows("age"))
		assert.False(t, m.Knows("email"))
	})

	t.Run("clone is independent", func(t *testing.T) {
		m := NewMapAdapter(map[string]any{"a": 1})
		c := m.Clone()
		require.NoError(t, c.Set("a", 2))
		require.NoError(t, c.Set("b", 3))
		assert.Equal(t, 1, m.Get("a"))
		assert.False(t, m.Has("b"))
	})
}

func TestTupleAdapter(t *testing.T) {
	schema := personSchema(t)

	t.Run("fixed columns", func(t *testing.T) {
		tu := NewTupleAdapter(schema)
		assert.False(t, tu.Dynamic())
		assert.Empty(t, tu.Fields())

		require.NoError(t, tu.Set("last", "Lovelace"))
		require.NoError(t, tu.Set("first", "Ada"))
		assert.Equal(t, []string{"first", "last"}, tu.Fields())
		assert.True(t, tu.Has("first"))
		assert.False(t, tu.Has("age"))
		assert.True(t, tu.Knows("age"))
		assert.False(t, tu.Knows("email"))
	})

	t.Run("unknown field", func(t *testing.T) {
		tu := NewTupleAdapter(schema)
		err := tu.Set("email", "x")
		require.Error(t, err)
		assert.True(t, types.IsUnknownFieldError(err))
		assert.Nil(t, tu.Get("email"))
	})

	t.Run("from values", func(t *testing.T) {
		tu, err := NewTupleAdapterFrom(schema, map[string]any{"first": "Ada", "age": 36})
		require.NoError(t, err)
		assert.Equal(t, 36, tu.Get("age"))

		_, err = NewTupleAdapterFrom(schema, map[string]any{"nope": 1})
		assert.Error(t, err)
	})

	t.Run("clone shares schema but not values", func(t *testing.T) {
		tu := NewTupleAdapter(schema)
		require.NoError(t, tu.Set("first", "Ada"))
		c := tu.Clone().(*TupleAdapter)
		require.NoError(t, c.Set("first", "Grace"))
		assert.Same(t, schema, c.Schema())
		assert.Equal(t, "Ada", tu.Get("first"))
	})
}

func TestAdapterDelete(t *testing.T) {
	t.Run("map drops the field and its position", func(t *testing.T) {
		m := NewOrderedMapAdapter([]Field{{"a", 1}, {"b", 2}, {"c", 3}})
		require.NoError(t, m.Delete("b"))
		assert.False(t, m.Has("b"))
		assert.Equal(t, []string{"a", "c"}, m.Fields())
		require.NoError(t, m.Delete("missing"))

		require.NoError(t, m.Set("b", 4))
		assert.Equal(t, []string{"a", "c", "b"}, m.Fields())
	})

	t.Run("tuple clears the column", func(t *testing.T) {
		tuple := NewTupleAdapter(personSchema(t))
		require.NoError(t, tuple.Set("first", "Ada"))
		require.NoError(t, tuple.Delete("first"))
		assert.False(t, tuple.Has("first"))
		assert.True(t, tuple.Knows("first"))
		assert.Nil(t, tuple.Get("first"))
		assert.Empty(t, tuple.Fields())

		err := tuple.Delete("shoe_size")
		assert.True(t, types.IsUnknownFieldError(err))
	})
}

func TestSchema(t *testing.T) {
	t.Run("load file", func(t *testing.T) {
		s := personSchema(t)
		assert.Equal(t, "person", s.Name())
		assert.Equal(t, []string{"first", "last", "age", "nickname", "createdAt"}, s.Names())

		f, ok := s.Format("createdAt")
		require.True(t, ok)
		assert.True(t, f.ReadOnly)
		assert.Equal(t, types.KindTime, f.Kind)

		f, ok = s.Format("nickname")
		require.True(t, ok)
		assert.True(t, f.Nullable)
	})

	t.Run("missing kind defaults to any", func(t *testing.T) {
		s := MustSchema("loose", types.FormatDescriptor{Name: "x"})
		f, _ := s.Format("x")
		assert.Equal(t, types.KindAny, f.Kind)
	})

	t.Run("invalid documents", func(t *testing.T) {
		cases := map[string]string{
			"not yaml":       "name: [",
			"no name":        "fields: []",
			"duplicate":      "name: x\nfields:\n  - name: a\n  - name: a\n",
			"bad kind":       "name: x\nfields:\n  - name: a\n    kind: blob\n",
			"reserved field": "name: x\nfields:\n  - name: $id\n",
		}
		for name, doc := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := ParseSchema([]byte(doc))
				require.Error(t, err)
				assert.True(t, errors.Is(err, types.ErrInvalidSchema), "got %v", err)
			})
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSchema("testdata/missing.yaml")
		assert.Error(t, err)
	})

	t.Run("yaml round trip", func(t *testing.T) {
		s := personSchema(t)
		out, err := yaml.Marshal(s)
		require.NoError(t, err)

		back, err := ParseSchema(out)
		require.NoError(t, err)
		if diff := cmp.Diff(s.Fields(), back.Fields()); diff != "" {
			t.Errorf("schema mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestCompatible(t *testing.T) {
	person := personSchema(t)
	same := MustSchema("other", person.Fields()...)
	different := MustSchema("pet", types.FormatDescriptor{Name: "name", Kind: types.KindString})

	tests := []struct {
		name string
		from Adapter
		to   Adapter
		want bool
	}{
		{"map to map", NewMapAdapter(nil), NewMapAdapter(nil), true},
		{"tuple to map", NewTupleAdapter(person), NewMapAdapter(nil), true},
		{"same schema", NewTupleAdapter(person), NewTupleAdapter(person), true},
		{"same signature", NewTupleAdapter(person), NewTupleAdapter(same), true},
		{"different schema", NewTupleAdapter(person), NewTupleAdapter(different), false},
		{"map with declared fields", NewMapAdapter(map[string]any{"first": "a"}), NewTupleAdapter(person), true},
		{"map with extra fields", NewMapAdapter(map[string]any{"email": "a"}), NewTupleAdapter(person), false},
		{"nil", nil, NewMapAdapter(nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compatible(tt.from, tt.to))
			err := CheckCompatible(tt.from, tt.to)
			if tt.want {
				assert.NoError(t, err)
			} else {
				assert.True(t, types.IsIncompatibleStorageError(err))
			}
		})
	}
}
