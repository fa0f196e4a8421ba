package main

import (
	"os"

	"github.com/arthur-debert/nanostate/internal/logging"
	"github.com/arthur-debert/nanostate/nanostate/collection"
	"github.com/arthur-debert/nanostate/nanostate/entity"
	"github.com/arthur-debert/nanostate/nanostate/metrics"
	"github.com/arthur-debert/nanostate/nanostate/storage"
	"github.com/arthur-debert/nanostate/types"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of collection operations
type Scenario struct {
	Schema yaml.Node      `yaml:"schema"`
	Items  []scenarioItem `yaml:"items"`
	Steps  []step         `yaml:"steps"`
}

type scenarioItem struct {
	Key    string         `yaml:"key"`
	Values map[string]any `yaml:"values"`
}

// step is one operation. Items are referenced by key; insert and replace
// may create a new item from key and values.
type step struct {
	Op      string         `yaml:"op"`
	Analyze bool           `yaml:"analyze"`
	Index   int            `yaml:"index"`
	To      int            `yaml:"to"`
	Item    string         `yaml:"item"`
	Key     string         `yaml:"key"`
	Values  map[string]any `yaml:"values"`
	Field   string         `yaml:"field"`
	Value   any            `yaml:"value"`
	Cascade bool           `yaml:"cascade"`
}

// runOptions carries the configuration a replay is run with
type runOptions struct {
	CacheAll       bool
	ResetThreshold float64
	Metrics        metrics.Recorder
	Logger         *zap.Logger
}

// LoadScenario reads a scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read scenario %s", path)
	}
	return ParseScenario(data)
}

// ParseScenario decodes a YAML scenario
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "failed to parse scenario")
	}
	if len(s.Steps) == 0 {
		return nil, errors.New("scenario has no steps")
	}
	return &s, nil
}

// replay holds the state of one scenario run
type replay struct {
	opts   runOptions
	schema *storage.Schema
	items  map[string]*entity.Entity
	col    *collection.Collection
	events []types.Event
}

// Run executes the scenario and returns every event the collection raised
// along with the collection in its final state
func (s *Scenario) Run(opts runOptions) ([]types.Event, *collection.Collection, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	r := &replay{opts: opts, items: make(map[string]*entity.Entity)}

	if s.Schema.Kind != 0 {
		raw, err := yaml.Marshal(&s.Schema)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to read scenario schema")
		}
		if r.schema, err = storage.ParseSchema(raw); err != nil {
			return nil, nil, err
		}
	}

	initial := make([]any, 0, len(s.Items))
	for _, it := range s.Items {
		e, err := r.newItem(it.Key, it.Values)
		if err != nil {
			return nil, nil, err
		}
		initial = append(initial, e)
	}

	r.col = collection.New(
		collection.WithItems(initial...),
		collection.WithResetThreshold(opts.ResetThreshold),
		collection.WithLogger(opts.Logger),
		collection.WithMetrics(opts.Metrics),
	)
	r.col.OnCollectionChange(func(ev types.Event) {
		r.events = append(r.events, ev)
	})

	for i, st := range s.Steps {
		if err := r.apply(st); err != nil {
			return r.events, r.col, errors.Wrapf(err, "step %d (%s)", i+1, st.Op)
		}
	}
	return r.events, r.col, nil
}

func (r *replay) newItem(key string, values map[string]any) (*entity.Entity, error) {
	if key == "" {
		return nil, errors.New("item key is required")
	}
	if _, exists := r.items[key]; exists {
		return nil, errors.Newf("duplicate item key %q", key)
	}

	opts := []entity.Option{
		entity.WithValues(values),
		entity.WithState(types.Unchanged),
		entity.WithLogger(r.opts.Logger.With(zap.String("key", key))),
		entity.WithMetrics(r.opts.Metrics),
	}
	if r.schema != nil {
		opts = append(opts, entity.WithAdapter(storage.NewTupleAdapter(r.schema)))
	}
	if r.opts.CacheAll {
		opts = append(opts, entity.WithCacheAll())
	}
	e, err := entity.New(opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build item %q", key)
	}
	r.items[key] = e
	return e, nil
}

// target resolves the item a step refers to, creating it when the step
// carries values
func (r *replay) target(st step) (*entity.Entity, error) {
	if st.Item != "" {
		e, ok := r.items[st.Item]
		if !ok {
			return nil, errors.Newf("unknown item %q", st.Item)
		}
		return e, nil
	}
	return r.newItem(st.Key, st.Values)
}

func (r *replay) apply(st step) error {
	r.opts.Logger.Debug("step", zap.String(logging.FieldAction, st.Op))

	switch st.Op {
	case "suspend":
		return r.col.SetEventRaising(false, st.Analyze)
	case "resume":
		return r.col.SetEventRaising(true, st.Analyze)
	case "insert":
		e, err := r.target(st)
		if err != nil {
			return err
		}
		return r.col.Insert(st.Index, e)
	case "append":
		e, err := r.target(st)
		if err != nil {
			return err
		}
		return r.col.Append(e)
	case "remove":
		_, err := r.col.Remove(st.Index)
		return err
	case "move":
		return r.col.Move(st.Index, st.To)
	case "replace":
		e, err := r.target(st)
		if err != nil {
			return err
		}
		_, err = r.col.Replace(st.Index, e)
		return err
	case "set":
		if st.Item == "" {
			return errors.New("set needs an item")
		}
		e, err := r.target(st)
		if err != nil {
			return err
		}
		return e.Set(st.Field, st.Value)
	case "accept":
		return r.col.AcceptChanges(st.Cascade)
	case "reject":
		return r.col.RejectChanges(st.Cascade)
	case "clear":
		return r.col.Clear()
	}
	return errors.Newf("unknown op %q", st.Op)
}
