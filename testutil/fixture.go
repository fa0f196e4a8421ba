package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/arthur-debert/nanostate/nanostate/collection"
	"github.com/arthur-debert/nanostate/nanostate/entity"
	"github.com/arthur-debert/nanostate/nanostate/storage"
	"github.com/arthur-debert/nanostate/types"
	"go.uber.org/zap/zaptest"
	"gopkg.in/yaml.v3"
)

// PeopleData provides typed access to the people fixture
type PeopleData struct {
	Ada     *entity.Entity // index 0
	Grace   *entity.Entity // index 1, has a nickname
	Alan    *entity.Entity // index 2
	Barbara *entity.Entity // index 3

	// Schema shared by every person's tuple store
	Schema *storage.Schema

	// All people by fixture key
	ByKey map[string]*entity.Entity
}

type fixturePerson struct {
	Key    string         `yaml:"key"`
	Values map[string]any `yaml:"values"`
}

type fixtureData struct {
	Schema yaml.Node       `yaml:"schema"`
	People []fixturePerson `yaml:"people"`
}

// FullName is the computed "full" property every fixture person carries
var FullName = entity.PropertyDef{
	DependsOn: []string{"first", "last"},
	Get: func(e *entity.Entity, _ any) (any, error) {
		return e.MustGet("first").(string) + " " + e.MustGet("last").(string), nil
	},
}

// LoadPeople builds a collection of Unchanged person entities from the
// people fixture. Entities use tuple stores over the fixture schema and
// log through zaptest.
func LoadPeople(t *testing.T, opts ...collection.Option) (*collection.Collection, *PeopleData) {
	t.Helper()

	data, err := os.ReadFile(fixturePath("people.yaml"))
	if err != nil {
		t.Fatalf("failed to read fixture file: %v", err)
	}

	var fixture fixtureData
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	rawSchema, err := yaml.Marshal(&fixture.Schema)
	if err != nil {
		t.Fatalf("failed to re-encode fixture schema: %v", err)
	}
	schema, err := storage.ParseSchema(rawSchema)
	if err != nil {
		t.Fatalf("invalid fixture schema: %v", err)
	}

	people := &PeopleData{
		Schema: schema,
		ByKey:  make(map[string]*entity.Entity),
	}
	items := make([]any, 0, len(fixture.People))
	for _, p := range fixture.People {
		e, err := entity.New(
			entity.WithAdapter(storage.NewTupleAdapter(schema)),
			entity.WithValues(p.Values),
			entity.WithState(types.Unchanged),
			entity.WithLogger(zaptest.NewLogger(t)),
			entity.Define("full", FullName),
		)
		if err != nil {
			t.Fatalf("failed to build person %s: %v", p.Key, err)
		}
		people.ByKey[p.Key] = e
		items = append(items, e)
	}

	people.Ada = people.ByKey["ada"]
	people.Grace = people.ByKey["grace"]
	people.Alan = people.ByKey["alan"]
	people.Barbara = people.ByKey["barbara"]

	base := []collection.Option{
		collection.WithItems(items...),
		collection.WithLogger(zaptest.NewLogger(t)),
	}
	return collection.New(append(base, opts...)...), people
}

// fixturePath resolves a file in this package's testdata directory, so
// fixtures load from any package's tests
func fixturePath(name string) string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata", name)
}
