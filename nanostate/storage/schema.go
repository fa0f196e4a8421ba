package storage

import (
	"os"
	"sort"
	"strings"

	"github.com/arthur-debert/nanostate/internal/validation"
	"github.com/arthur-debert/nanostate/types"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Schema is an ordered, immutable list of field formats shared by every
// tuple built from it
type Schema struct {
	name   string
	fields []types.FormatDescriptor
	index  map[string]int
}

// schemaFile is the on-disk YAML shape
type schemaFile struct {
	Name   string                   `yaml:"name"`
	Fields []types.FormatDescriptor `yaml:"fields"`
}

// NewSchema validates fields and builds a schema
func NewSchema(name string, fields ...types.FormatDescriptor) (*Schema, error) {
	if err := validation.ValidateSchema(name, fields); err != nil {
		return nil, err
	}

	s := &Schema{
		name:   name,
		fields: make([]types.FormatDescriptor, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		if f.Kind == "" {
			f.Kind = types.KindAny
		}
		s.fields[i] = f
		s.index[f.Name] = i
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on error. Intended for package
// level schema declarations and tests.
func MustSchema(name string, fields ...types.FormatDescriptor) *Schema {
	s, err := NewSchema(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseSchema reads a YAML schema document
func ParseSchema(data []byte) (*Schema, error) {
	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(types.ErrInvalidSchema, err.Error())
	}
	if file.Name == "" {
		return nil, errors.Wrap(types.ErrInvalidSchema, "schema name is required")
	}
	return NewSchema(file.Name, file.Fields...)
}

// LoadSchema reads and parses a YAML schema file
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read schema file %s", path)
	}
	s, err := ParseSchema(data)
	if err != nil {
		return nil, errors.Wrapf(err, "schema file %s", path)
	}
	return s, nil
}

// Name returns the schema name
func (s *Schema) Name() string {
	return s.name
}

// Len returns the number of fields
func (s *Schema) Len() int {
	return len(s.fields)
}

// Index returns the column of name
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Format returns the format for name
func (s *Schema) Format(name string) (types.FormatDescriptor, bool) {
	i, ok := s.index[name]
	if !ok {
		return types.FormatDescriptor{}, false
	}
	return s.fields[i], true
}

// Names returns field names in column order
func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Fields returns a copy of the field formats in column order
func (s *Schema) Fields() []types.FormatDescriptor {
	out := make([]types.FormatDescriptor, len(s.fields))
	copy(out, s.fields)
	return out
}

// Signature identifies the schema shape: column names and kinds.
// Two schemas with the same signature lay values out identically.
func (s *Schema) Signature() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f.Name + ":" + string(f.Kind)
	}
	return strings.Join(parts, ",")
}

// MarshalYAML writes the schema in the same shape ParseSchema reads
func (s *Schema) MarshalYAML() (any, error) {
	return schemaFile{Name: s.name, Fields: s.fields}, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
