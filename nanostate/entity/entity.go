// Package entity implements mutable records whose fields are either stored
// in a raw store or computed lazily from other fields.
//
// An Entity combines four pieces of state: a storage.Adapter holding raw
// values, a cache of computed results invalidated through declared
// dependencies, a change tracker remembering the original value of every
// dirty field, and a lifecycle state. Fields that hold other entities or
// collections are linked through the relation package so that nested
// changes mark the owning field dirty and bump every ancestor's version.
//
// Entities are not safe for concurrent use.
package entity

import (
	"fmt"

	"github.com/arthur-debert/nanostate/internal/logging"
	"github.com/arthur-debert/nanostate/internal/validation"
	"github.com/arthur-debert/nanostate/nanostate/bus"
	"github.com/arthur-debert/nanostate/nanostate/metrics"
	"github.com/arthur-debert/nanostate/nanostate/relation"
	"github.com/arthur-debert/nanostate/nanostate/storage"
	"github.com/arthur-debert/nanostate/types"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Bus event names
const (
	EventChange      = "change"
	EventStateChange = "stateChange"
)

// Entity is a record with stored and computed fields, change tracking and
// a lifecycle state
type Entity struct {
	id       uuid.UUID
	store    storage.Adapter
	initial  map[string]any
	defs     map[string]PropertyDef
	order    []string
	graph    *depGraph
	cache    *cache
	defaults map[string]any
	tracker  *tracker
	state    types.LifecycleState
	cacheAll bool

	version  relation.Version
	owners   relation.Owners
	children map[string]relation.Node

	computing   map[string]bool
	dispatching relation.Guard
	propagating relation.Guard
	propagated  map[relation.Node]bool
	pending     []pendingChild
	visiting    relation.Guard
	cascading   bool
	cascaded    []string

	bus     *bus.Bus
	logger  *zap.Logger
	metrics metrics.Recorder
}

// New creates an entity. It fails when a definition uses an invalid or
// reserved name, or when seeded values do not fit the raw store.
func New(opts ...Option) (*Entity, error) {
	e := &Entity{
		defs:      make(map[string]PropertyDef),
		defaults:  make(map[string]any),
		tracker:   newTracker(),
		cache:     newCache(),
		children:  make(map[string]relation.Node),
		computing: make(map[string]bool),
		state:     types.Detached,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.id == uuid.Nil {
		e.id = uuid.New()
	}
	if e.store == nil {
		e.store = storage.NewMapAdapter(nil)
	}
	if e.bus == nil {
		e.bus = bus.New()
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.logger = e.logger.With(zap.Stringer(logging.FieldEntityID, e.id))
	if e.metrics == nil {
		e.metrics = metrics.Nop{}
	}

	for _, name := range e.order {
		if err := validation.ValidateFieldName(name); err != nil {
			return nil, errors.Wrapf(err, "property %q", name)
		}
	}

	var errs error
	for _, name := range sortedNames(e.initial) {
		raw, err := e.store.Format(name).Coerce(e.initial[name])
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		errs = multierr.Append(errs, e.store.Set(name, raw))
	}
	e.initial = nil
	if errs != nil {
		return nil, errors.Wrap(errs, "failed to seed values")
	}

	for _, name := range e.order {
		if deps := e.defs[name].DependsOn; len(deps) > 0 {
			if err := validation.ValidateDependencies(name, deps, e.knows); err != nil {
				// Dependencies may name dynamic fields that are written later
				e.logger.Warn("suspicious dependency declaration", zap.Error(err))
			}
		}
	}
	e.graph = newDepGraph(e.order, e.defs)
	for _, name := range e.store.Fields() {
		e.relink(name)
	}
	return e, nil
}

// MustNew is like New but panics on error
func MustNew(opts ...Option) *Entity {
	e, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// ID returns the entity's identity key
func (e *Entity) ID() uuid.UUID {
	return e.id
}

// Adapter returns the raw store
func (e *Entity) Adapter() storage.Adapter {
	return e.store
}

// Version returns the change counter
func (e *Entity) Version() uint64 {
	return e.version.Value()
}

// Definition returns the property definition for name
func (e *Entity) Definition(name string) (PropertyDef, bool) {
	def, ok := e.defs[name]
	return def, ok
}

// Has reports whether name is stored or defined
func (e *Entity) Has(name string) bool {
	if e.store.Has(name) {
		return true
	}
	_, ok := e.defs[name]
	return ok
}

// knows is Has plus schema-declared fields that hold no value yet
func (e *Entity) knows(name string) bool {
	return e.Has(name) || e.store.Knows(name)
}

// Fields lists field names: raw-store fields in store order, then
// definition-only fields in declaration order
func (e *Entity) Fields() []string {
	out := e.store.Fields()
	for _, name := range e.order {
		if !e.store.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

// Each calls fn with every field and its value in Fields order until fn
// returns false
func (e *Entity) Each(fn func(name string, value any) bool) error {
	for _, name := range e.Fields() {
		v, err := e.Get(name)
		if err != nil {
			return err
		}
		if !fn(name, v) {
			return nil
		}
	}
	return nil
}

// GetDefault returns the default for name: the definition's DefaultFunc
// result (evaluated once and kept), its Default, or the raw store's format
// default.
func (e *Entity) GetDefault(name string) any {
	if v, ok := e.defaults[name]; ok {
		return v
	}
	def, ok := e.defs[name]
	if ok && def.DefaultFunc != nil {
		v := def.DefaultFunc()
		e.defaults[name] = v
		return v
	}
	if ok && def.Default != nil {
		return def.Default
	}
	return e.store.Format(name).Default
}

// raw returns the stored value, falling back to the default
func (e *Entity) raw(name string) any {
	if e.store.Has(name) {
		return e.store.Get(name)
	}
	return e.GetDefault(name)
}

// Get returns the value of name. Computed properties return a valid cache
// entry when one exists and otherwise run their getter.
func (e *Entity) Get(name string) (any, error) {
	def, defined := e.defs[name]
	if !defined && !e.store.Knows(name) && !e.store.Dynamic() {
		return nil, types.NewUnknownFieldError(name)
	}
	if !def.Computed() {
		return e.raw(name), nil
	}

	if v, ok := e.cache.lookup(name); ok {
		e.metrics.CacheHit(name)
		return v, nil
	}
	e.metrics.CacheMiss(name)

	if e.computing[name] {
		return nil, types.NewReentrancyError(fmt.Sprintf("property %q", name))
	}
	gen := e.cache.generation(name)
	e.computing[name] = true
	v, err := e.compute(name, def)
	delete(e.computing, name)
	if err != nil {
		return nil, err
	}

	if e.cache.generation(name) != gen {
		// An input changed while computing; return the value but don't keep it
		return v, nil
	}
	if e.cacheAll || def.Constant() || types.IsObjectLike(v) {
		e.cache.store(name, v)
		e.relink(name)
	}
	return v, nil
}

// MustGet is like Get but panics on error
func (e *Entity) MustGet(name string) any {
	v, err := e.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

func (e *Entity) compute(name string, def PropertyDef) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = errors.Newf("getter for %q panicked: %v", name, r)
		}
	}()
	v, err = def.Get(e, e.raw(name))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to compute %q", name)
	}
	return v, nil
}

// Set writes name. A Set transform runs first; get-only properties and
// read-only formats fail with a read-only error; unknown fields are created
// when the raw store is dynamic. Writing the current value is a no-op.
func (e *Entity) Set(name string, value any) error {
	if e.dispatching.Active() {
		return types.NewReentrancyError(fmt.Sprintf("entity %s field %q", e.id, name))
	}
	def, defined := e.defs[name]
	if def.ReadOnly() || e.store.Format(name).ReadOnly {
		return types.NewReadOnlyPropertyError(name)
	}
	raw := value
	if def.Set != nil {
		var err error
		raw, err = def.Set(e, value)
		if err != nil {
			return errors.Wrapf(err, "failed to set %q", name)
		}
	}
	if !defined && !e.store.Knows(name) && !e.store.Dynamic() {
		return types.NewUnknownFieldError(name)
	}
	return e.write(name, raw)
}

// write coerces raw and stores it, running change tracking, invalidation
// and notification
func (e *Entity) write(name string, raw any) error {
	raw, err := e.store.Format(name).Coerce(raw)
	if err != nil {
		return err
	}

	current := e.raw(name)
	if types.Same(current, raw) {
		return nil
	}

	present := e.store.Has(name)
	if err := e.store.Set(name, raw); err != nil {
		return err
	}

	if orig, tracked := e.tracker.original(name); tracked {
		if !e.tracker.wasAbsent(name) && types.Same(orig, raw) {
			e.tracker.forget(name)
		}
	} else {
		e.tracker.record(name, current, present)
	}
	e.relink(name)
	e.invalidate(name, true)
	e.moveState(e.state.AfterWrite())
	e.changed([]string{name}, false)
	return nil
}

// SetMany writes every field in values, in name order, and returns the
// combined error of the writes that failed
func (e *Entity) SetMany(values map[string]any) error {
	var errs error
	for _, name := range sortedNames(values) {
		errs = multierr.Append(errs, e.Set(name, values[name]))
	}
	return errs
}

// Assign copies every raw value of other into e. The raw stores must be
// compatible. Set transforms and read-only checks are skipped since raw
// values are copied as stored.
func (e *Entity) Assign(other *Entity) error {
	if e.dispatching.Active() {
		return types.NewReentrancyError(fmt.Sprintf("entity %s", e.id))
	}
	if err := storage.CheckCompatible(other.store, e.store); err != nil {
		return err
	}
	var errs error
	for _, name := range other.store.Fields() {
		errs = multierr.Append(errs, e.write(name, other.store.Get(name)))
	}
	return errs
}

// ResetCache drops cached computed values and everything depending on
// them. Without names the whole cache is cleared.
func (e *Entity) ResetCache(names ...string) {
	if len(names) == 0 {
		names = e.cache.names()
	}
	for _, name := range names {
		e.invalidate(name, false)
	}
}

// invalidate drops the cache entries of name and every property depending
// on it. Writes also drop properties with undeclared dependencies.
func (e *Entity) invalidate(name string, write bool) {
	if e.cache.len() == 0 {
		// Bump generations so in-flight getters notice
		for _, n := range e.graph.affected(name, write) {
			e.cache.drop(n)
		}
		return
	}
	dropped := 0
	for _, n := range e.graph.affected(name, write) {
		if e.cache.drop(n) {
			dropped++
			e.relink(n)
		}
	}
	if dropped > 0 {
		e.metrics.Invalidated(dropped)
		e.logger.Debug("cache invalidated",
			zap.String(logging.FieldField, name),
			zap.Int(logging.FieldInvalidate, dropped))
	}
}

// IsChanged reports whether any of fields is dirty, either in the change
// tracker or through a changed relation child. Without fields it reports
// whether anything changed.
func (e *Entity) IsChanged(fields ...string) bool {
	if !e.visiting.Enter() {
		// Cyclic graph; the outer call answers for this node
		return false
	}
	defer e.visiting.Exit()

	if len(fields) == 0 {
		if e.tracker.len() > 0 {
			return true
		}
		for _, child := range e.children {
			if child.IsChanged() {
				return true
			}
		}
		return false
	}
	for _, name := range fields {
		if e.tracker.has(name) {
			return true
		}
		if child, ok := e.children[name]; ok && child.IsChanged() {
			return true
		}
	}
	return false
}

// ChangedFields returns the fields held by the change tracker, sorted.
// Fields dirty only through a relation child are not included.
func (e *Entity) ChangedFields() []string {
	return e.tracker.names()
}

// OriginalValue returns the value name had at the last baseline, if it
// changed since
func (e *Entity) OriginalValue(name string) (any, bool) {
	return e.tracker.original(name)
}

// State returns the lifecycle state
func (e *Entity) State() types.LifecycleState {
	return e.state
}

// SetState moves the lifecycle state
func (e *Entity) SetState(state types.LifecycleState) {
	if e.moveState(state) {
		e.changed(nil, true)
	}
}

// moveState updates the state and publishes the transition. It reports
// whether the state moved.
func (e *Entity) moveState(to types.LifecycleState) bool {
	from := e.state
	if from == to {
		return false
	}
	e.state = to
	e.logger.Debug("state changed",
		zap.Stringer(logging.FieldFromState, from),
		zap.Stringer(logging.FieldState, to))
	e.emit(EventStateChange, types.StateChange{From: from, To: to})
	return true
}

// changed bumps the version, publishes a change event for data changes and
// notifies owners
func (e *Entity) changed(fields []string, stateOnly bool) {
	v := e.version.Bump()
	e.metrics.VersionBumped(metrics.OwnerEntity)
	if !stateOnly {
		e.emit(EventChange, types.FieldChange{Fields: fields, Version: v})
	}
	e.owners.Notify(e, relation.Change{Fields: fields, StateOnly: stateOnly})
}

// emit publishes on the bus with the dispatch guard held, so handlers that
// write back into e fail with a reentrancy error
func (e *Entity) emit(event string, arg any) {
	if !e.bus.HasSubscribers(event) {
		return
	}
	if e.dispatching.Enter() {
		defer e.dispatching.Exit()
	}
	e.bus.Notify(event, arg)
}

// OnChange subscribes to field changes
func (e *Entity) OnChange(fn func(types.FieldChange)) bus.Subscription {
	return e.bus.Subscribe(EventChange, func(args ...any) {
		fn(args[0].(types.FieldChange))
	})
}

// OnStateChange subscribes to lifecycle transitions
func (e *Entity) OnStateChange(fn func(types.StateChange)) bus.Subscription {
	return e.bus.Subscribe(EventStateChange, func(args ...any) {
		fn(args[0].(types.StateChange))
	})
}

// Unsubscribe removes a subscription made with OnChange or OnStateChange
func (e *Entity) Unsubscribe(sub bus.Subscription) bool {
	return e.bus.Unsubscribe(sub)
}

// Snapshot captures the change tracker and lifecycle state
func (e *Entity) Snapshot() types.Snapshot {
	snap := types.NewSnapshot(e.tracker.copy(), e.state)
	snap.AbsentFields = e.tracker.absentNames()
	return snap
}

// Restore replaces the change tracker and lifecycle state with snap.
// Raw values are not touched.
func (e *Entity) Restore(snap types.Snapshot) {
	originals := make(map[string]any, len(snap.ChangedFields))
	for _, name := range snap.ChangedFields {
		originals[name] = snap.OriginalValues[name]
	}
	e.tracker.replace(originals, snap.AbsentFields)
	e.state = snap.LifecycleState
	e.changed(nil, true)
}

// Clone returns a copy of e with an independent change tracker holding the
// same diffs. A shallow clone shares the raw store; a deep clone copies it
// and clones nested entities and collections. Subscriptions, owners and
// cached values are not copied.
func (e *Entity) Clone(shallow bool) *Entity {
	c := &Entity{
		id:        uuid.New(),
		defs:      make(map[string]PropertyDef, len(e.defs)),
		order:     append([]string(nil), e.order...),
		graph:     e.graph,
		cache:     newCache(),
		defaults:  make(map[string]any),
		tracker:   newTracker(),
		state:     e.state,
		cacheAll:  e.cacheAll,
		children:  make(map[string]relation.Node),
		computing: make(map[string]bool),
		bus:       bus.New(),
		metrics:   e.metrics,
	}
	c.logger = e.logger.With(zap.Stringer("clone_id", c.id))
	for k, v := range e.defs {
		c.defs[k] = v
	}
	c.tracker.replace(e.tracker.copy(), e.tracker.absentNames())
	c.version.Set(e.version.Value())

	if shallow {
		c.store = e.store
	} else {
		c.store = e.store.Clone()
		for _, name := range c.store.Fields() {
			if n, ok := c.store.Get(name).(relation.Cloner); ok {
				_ = c.store.Set(name, n.CloneNode(false))
			}
		}
	}
	for _, name := range c.store.Fields() {
		c.relink(name)
	}
	return c
}

// CloneNode implements relation.Cloner
func (e *Entity) CloneNode(shallow bool) relation.Node {
	return e.Clone(shallow)
}

// String identifies the entity in logs
func (e *Entity) String() string {
	return fmt.Sprintf("entity(%s)", e.id)
}
