// Package envelope serializes entities and collections together with their
// diff state, so that changed fields, original values and the lifecycle
// state survive a round trip.
//
// All configuration lives on a Context that callers create and pass
// around; the package keeps no global state.
package envelope

import (
	"bytes"

	"github.com/arthur-debert/nanostate/internal/logging"
	"github.com/arthur-debert/nanostate/nanostate/collection"
	"github.com/arthur-debert/nanostate/nanostate/entity"
	"github.com/arthur-debert/nanostate/nanostate/storage"
	"github.com/arthur-debert/nanostate/types"
	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrCycle is returned when a value graph refers back to a value that is
// still being encoded
var ErrCycle = errors.New("cyclic value graph")

// Context carries what encoding and decoding need: schemas for columnar
// stores and the options every decoded entity or collection is built with
type Context struct {
	schemas           map[string]*storage.Schema
	entityOptions     []entity.Option
	collectionOptions []collection.Option
	logger            *zap.Logger

	// values currently being encoded, for cycle detection
	active map[uuid.UUID]bool
}

// Option configures a Context
type Option func(*Context)

// WithSchema registers a schema. Records naming it decode into a
// storage.TupleAdapter.
func WithSchema(s *storage.Schema) Option {
	return func(c *Context) {
		c.schemas[s.Name()] = s
	}
}

// WithEntityOptions adds options applied to every decoded entity, such as
// property definitions
func WithEntityOptions(opts ...entity.Option) Option {
	return func(c *Context) {
		c.entityOptions = append(c.entityOptions, opts...)
	}
}

// WithCollectionOptions adds options applied to every decoded collection
func WithCollectionOptions(opts ...collection.Option) Option {
	return func(c *Context) {
		c.collectionOptions = append(c.collectionOptions, opts...)
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Context) {
		c.logger = logger
	}
}

// New creates a serialization context
func New(opts ...Option) *Context {
	c := &Context{
		schemas: make(map[string]*storage.Schema),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String(logging.FieldComponent, "envelope"))
	return c
}

// Capture returns the diff state of e
func (c *Context) Capture(e *entity.Entity) types.Snapshot {
	return e.Snapshot()
}

// Encode serializes e with its diff state
func (c *Context) Encode(e *entity.Entity) ([]byte, error) {
	c.active = make(map[uuid.UUID]bool)
	rec, err := c.record(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

// EncodeCollection serializes a collection and its items
func (c *Context) EncodeCollection(col *collection.Collection) ([]byte, error) {
	c.active = make(map[uuid.UUID]bool)
	rec, err := c.collectionRecord(col)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

// Record converts e to its wire form
func (c *Context) Record(e *entity.Entity) (*Record, error) {
	c.active = make(map[uuid.UUID]bool)
	return c.record(e)
}

func (c *Context) record(e *entity.Entity) (*Record, error) {
	if c.active[e.ID()] {
		return nil, errors.Wrapf(ErrCycle, "entity %s", e.ID())
	}
	c.active[e.ID()] = true
	defer delete(c.active, e.ID())

	store := e.Adapter()
	snap := e.Snapshot()
	rec := &Record{
		ID:             e.ID(),
		Fields:         make(map[string]json.RawMessage),
		ChangedFields:  snap.ChangedFields,
		LifecycleState: snap.LifecycleState,
	}
	if tuple, ok := store.(*storage.TupleAdapter); ok {
		rec.Schema = tuple.Schema().Name()
	}
	for _, name := range store.Fields() {
		raw, err := c.encodeValue(store.Get(name))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode field %q", name)
		}
		rec.Fields[name] = raw
	}
	absent := make(map[string]bool, len(snap.AbsentFields))
	for _, name := range snap.AbsentFields {
		absent[name] = true
	}
	if len(snap.OriginalValues) > len(absent) {
		rec.OriginalValues = make(map[string]json.RawMessage, len(snap.OriginalValues))
		for name, v := range snap.OriginalValues {
			// Absent originals are left out; decoding restores them as absent
			if absent[name] {
				continue
			}
			raw, err := c.encodeValue(v)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to encode original value of %q", name)
			}
			rec.OriginalValues[name] = raw
		}
	}
	return rec, nil
}

func (c *Context) collectionRecord(col *collection.Collection) (*CollectionRecord, error) {
	if c.active[col.ID()] {
		return nil, errors.Wrapf(ErrCycle, "collection %s", col.ID())
	}
	c.active[col.ID()] = true
	defer delete(c.active, col.ID())

	rec := &CollectionRecord{ID: col.ID(), Items: []json.RawMessage{}}
	for i, item := range col.Items() {
		raw, err := c.encodeValue(item)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode item %d", i)
		}
		rec.Items = append(rec.Items, raw)
	}
	return rec, nil
}

func (c *Context) encodeValue(v any) (json.RawMessage, error) {
	switch t := v.(type) {
	case *entity.Entity:
		rec, err := c.record(t)
		if err != nil {
			return nil, err
		}
		return json.Marshal(taggedEntity{Entity: rec})
	case *collection.Collection:
		rec, err := c.collectionRecord(t)
		if err != nil {
			return nil, err
		}
		return json.Marshal(taggedCollection{Collection: rec})
	}
	return json.Marshal(v)
}

// Decode rebuilds an entity, including its change tracker and lifecycle
// state, from data produced by Encode
func (c *Context) Decode(data []byte) (*entity.Entity, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, "failed to parse entity envelope")
	}
	return c.Entity(&rec)
}

// DecodeCollection rebuilds a collection from data produced by
// EncodeCollection. The decoded items form the collection's baseline.
func (c *Context) DecodeCollection(data []byte) (*collection.Collection, error) {
	var rec CollectionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, "failed to parse collection envelope")
	}
	return c.Collection(&rec)
}

// Entity builds an entity from its wire form
func (c *Context) Entity(rec *Record) (*entity.Entity, error) {
	values := make(map[string]any, len(rec.Fields))
	for name, raw := range rec.Fields {
		v, err := c.decodeValue(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode field %q", name)
		}
		values[name] = v
	}

	opts := append([]entity.Option(nil), c.entityOptions...)
	if rec.ID != uuid.Nil {
		opts = append(opts, entity.WithID(rec.ID))
	}
	if rec.Schema != "" {
		schema, ok := c.schemas[rec.Schema]
		if !ok {
			return nil, errors.WithHintf(
				errors.Wrapf(types.ErrInvalidSchema, "schema %q is not registered", rec.Schema),
				"register it with envelope.WithSchema")
		}
		opts = append(opts, entity.WithAdapter(storage.NewTupleAdapter(schema)))
	}
	opts = append(opts, entity.WithValues(values))

	e, err := entity.New(opts...)
	if err != nil {
		return nil, err
	}

	originals := make(map[string]any, len(rec.OriginalValues))
	var absent []string
	for _, name := range rec.ChangedFields {
		raw, ok := rec.OriginalValues[name]
		if !ok {
			originals[name] = nil
			absent = append(absent, name)
			continue
		}
		v, err := c.decodeValue(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode original value of %q", name)
		}
		if coerced, err := e.Adapter().Format(name).Coerce(v); err == nil {
			v = coerced
		}
		originals[name] = v
	}
	snap := types.NewSnapshot(originals, rec.LifecycleState)
	snap.AbsentFields = absent
	e.Restore(snap)

	c.logger.Debug("entity decoded",
		zap.Stringer(logging.FieldEntityID, e.ID()),
		zap.Int(logging.FieldCount, len(values)),
		zap.Strings(logging.FieldFields, rec.ChangedFields))
	return e, nil
}

// Collection builds a collection from its wire form
func (c *Context) Collection(rec *CollectionRecord) (*collection.Collection, error) {
	items := make([]any, 0, len(rec.Items))
	for i, raw := range rec.Items {
		v, err := c.decodeValue(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode item %d", i)
		}
		items = append(items, v)
	}
	opts := append([]collection.Option(nil), c.collectionOptions...)
	if rec.ID != uuid.Nil {
		opts = append(opts, collection.WithID(rec.ID))
	}
	opts = append(opts, collection.WithItems(items...))
	return collection.New(opts...), nil
}

func (c *Context) decodeValue(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var p nestingTag
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return nil, err
		}
		switch {
		case len(p.Entity) > 0:
			var rec Record
			if err := json.Unmarshal(p.Entity, &rec); err != nil {
				return nil, err
			}
			return c.Entity(&rec)
		case len(p.Collection) > 0:
			var rec CollectionRecord
			if err := json.Unmarshal(p.Collection, &rec); err != nil {
				return nil, err
			}
			return c.Collection(&rec)
		}
	}
	return decodeScalar(trimmed)
}
