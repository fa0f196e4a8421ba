// Package collection implements an ordered, observable sequence of items.
//
// Every structural operation (insert, remove, replace, move) and every
// change inside a stateful item is reported as a types.Event. Event raising
// can be suspended: without analysis, operations are applied silently; with
// analysis, they are also recorded in a mutation log which is reduced to
// the minimal event sequence when raising resumes. The backing sequence is
// authoritative at all times; only notification is deferred.
//
// Collections are not safe for concurrent use.
package collection

import (
	"fmt"

	"github.com/arthur-debert/nanostate/internal/logging"
	"github.com/arthur-debert/nanostate/nanostate/bus"
	"github.com/arthur-debert/nanostate/nanostate/metrics"
	"github.com/arthur-debert/nanostate/nanostate/relation"
	"github.com/arthur-debert/nanostate/types"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// EventCollectionChange is the bus event carrying a types.Event
const EventCollectionChange = "collectionChange"

type pendingChange struct {
	item   relation.Node
	change relation.Change
}

// Collection is an ordered sequence of items with change notification
type Collection struct {
	id       uuid.UUID
	items    []any
	baseline []any

	raising        bool
	analyze        bool
	lastAnalyze    bool
	log            []op
	resetThreshold float64

	version relation.Version
	owners  relation.Owners

	dispatching relation.Guard
	propagating relation.Guard
	visiting    relation.Guard
	pending     []pendingChange
	// items handled or queued since the outermost propagation began
	propagated map[relation.Node]bool
	cascading   bool
	cascaded    []pendingChange

	bus     *bus.Bus
	logger  *zap.Logger
	metrics metrics.Recorder
}

// New creates a collection with raising enabled
func New(opts ...Option) *Collection {
	c := &Collection{
		raising:        true,
		resetThreshold: DefaultResetThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.id == uuid.Nil {
		c.id = uuid.New()
	}
	if c.bus == nil {
		c.bus = bus.New()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.With(zap.Stringer(logging.FieldCollectionID, c.id))
	if c.metrics == nil {
		c.metrics = metrics.Nop{}
	}
	for _, item := range c.items {
		c.attach(item)
	}
	c.baseline = append([]any(nil), c.items...)
	return c
}

// ID returns the collection's identity key
func (c *Collection) ID() uuid.UUID {
	return c.id
}

// Len returns the number of items
func (c *Collection) Len() int {
	return len(c.items)
}

// Items returns a copy of the items
func (c *Collection) Items() []any {
	return append([]any(nil), c.items...)
}

// At returns the item at index
func (c *Collection) At(index int) (any, error) {
	if index < 0 || index >= len(c.items) {
		return nil, types.NewInvalidIndexError(index, len(c.items))
	}
	return c.items[index], nil
}

// IndexOf returns the first index holding item, or -1. Items are compared by
// identity for reference types and by equality otherwise.
func (c *Collection) IndexOf(item any) int {
	return indexOf(c.items, item)
}

// Contains reports whether item is in the collection
func (c *Collection) Contains(item any) bool {
	return c.IndexOf(item) >= 0
}

type fieldReader interface {
	Get(name string) (any, error)
}

// IndexByValue returns the first index whose item has field equal to value.
// Items are read through a Get(name) (any, error) method, such as the one
// entities have, or as map[string]any.
func (c *Collection) IndexByValue(field string, value any) int {
	for i, item := range c.items {
		var (
			v  any
			ok bool
		)
		switch it := item.(type) {
		case fieldReader:
			got, err := it.Get(field)
			v, ok = got, err == nil
		case map[string]any:
			v, ok = it[field]
		}
		if ok && types.Same(v, value) {
			return i
		}
	}
	return -1
}

// Each calls fn with every index and item until fn returns false
func (c *Collection) Each(fn func(index int, item any) bool) {
	for i, item := range c.Items() {
		if !fn(i, item) {
			return
		}
	}
}

// Insert adds items at index, shifting later items
func (c *Collection) Insert(index int, items ...any) error {
	if err := c.checkMutable("insert"); err != nil {
		return err
	}
	if index < 0 || index > len(c.items) {
		return types.NewInvalidIndexError(index, len(c.items))
	}
	if len(items) == 0 {
		return nil
	}

	next := make([]any, 0, len(c.items)+len(items))
	next = append(next, c.items[:index]...)
	next = append(next, items...)
	next = append(next, c.items[index:]...)
	c.items = next

	ops := make([]op, len(items))
	for i, item := range items {
		c.attach(item)
		ops[i] = op{kind: opInsert, index: index + i, item: item}
	}
	c.mutated(types.Event{
		Action:   types.ActionAdd,
		NewItems: append([]any(nil), items...),
		NewIndex: index,
		OldIndex: -1,
		Reason:   types.ReasonDirect,
	}, ops...)
	return nil
}

// Append adds items at the end
func (c *Collection) Append(items ...any) error {
	return c.Insert(len(c.items), items...)
}

// Remove deletes the item at index and returns it
func (c *Collection) Remove(index int) (any, error) {
	if err := c.checkMutable("remove"); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(c.items) {
		return nil, types.NewInvalidIndexError(index, len(c.items))
	}

	item := c.items[index]
	c.items = append(c.items[:index:index], c.items[index+1:]...)
	c.detach(item)
	c.mutated(types.Event{
		Action:   types.ActionRemove,
		OldItems: []any{item},
		OldIndex: index,
		NewIndex: -1,
		Reason:   types.ReasonDirect,
	}, op{kind: opRemove, index: index, item: item})
	return item, nil
}

// RemoveItem deletes the first occurrence of item. It reports whether the
// item was found.
func (c *Collection) RemoveItem(item any) (bool, error) {
	if err := c.checkMutable("remove"); err != nil {
		return false, err
	}
	index := c.IndexOf(item)
	if index < 0 {
		return false, nil
	}
	_, err := c.Remove(index)
	return err == nil, err
}

// Replace puts item at index and returns the previous item. Replacing an
// item with itself does nothing.
func (c *Collection) Replace(index int, item any) (any, error) {
	if err := c.checkMutable("replace"); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(c.items) {
		return nil, types.NewInvalidIndexError(index, len(c.items))
	}

	old := c.items[index]
	if types.Same(old, item) {
		return old, nil
	}
	c.items[index] = item
	c.detach(old)
	c.attach(item)
	c.mutated(types.Event{
		Action:   types.ActionReplace,
		NewItems: []any{item},
		OldItems: []any{old},
		NewIndex: index,
		OldIndex: index,
		Reason:   types.ReasonDirect,
	}, op{kind: opReplace, index: index, item: item, old: old})
	return old, nil
}

// Move relocates the item at from so that it ends up at index to. Moving
// an item onto its own position does nothing.
func (c *Collection) Move(from, to int) error {
	if err := c.checkMutable("move"); err != nil {
		return err
	}
	if from < 0 || from >= len(c.items) {
		return types.NewInvalidIndexError(from, len(c.items))
	}
	if to < 0 || to >= len(c.items) {
		return types.NewInvalidIndexError(to, len(c.items))
	}
	if from == to {
		return nil
	}

	item := c.items[from]
	rest := append(c.items[:from:from], c.items[from+1:]...)
	next := make([]any, 0, len(c.items))
	next = append(next, rest[:to]...)
	next = append(next, item)
	next = append(next, rest[to:]...)
	c.items = next

	c.mutated(types.Event{
		Action:   types.ActionMove,
		NewItems: []any{item},
		OldItems: []any{item},
		NewIndex: to,
		OldIndex: from,
		Reason:   types.ReasonDirect,
	}, op{kind: opMove, index: from, to: to, item: item})
	return nil
}

// SetItems replaces the whole sequence and reports a Reset
func (c *Collection) SetItems(items []any) error {
	if err := c.checkMutable("reset"); err != nil {
		return err
	}
	c.replaceAll(items)
	c.mutated(resetEvent(c.items, types.ReasonReset), op{kind: opReset})
	return nil
}

// Clear removes every item
func (c *Collection) Clear() error {
	if len(c.items) == 0 {
		return c.checkMutable("clear")
	}
	return c.SetItems(nil)
}

func (c *Collection) replaceAll(items []any) {
	for _, item := range c.items {
		c.detach(item)
	}
	c.items = append([]any(nil), items...)
	for _, item := range c.items {
		c.attach(item)
	}
}

// SetEventRaising opens and closes notification windows. Disabling raising
// suppresses events; with analyze the operations are also logged and
// reconciled into the minimal event sequence when raising is enabled
// again. Repeating the current raising state with analyze set on both the
// previous and the current call is an error.
func (c *Collection) SetEventRaising(enabled, analyze bool) error {
	if err := c.checkMutable("set event raising"); err != nil {
		return err
	}
	if enabled == c.raising && analyze && c.lastAnalyze {
		return errors.Wrapf(types.ErrEventWindow, "event raising is already %s", raisingName(enabled))
	}
	c.lastAnalyze = analyze

	if !enabled {
		c.raising = false
		c.analyze = analyze
		switch {
		case analyze && c.log == nil:
			c.log = []op{}
		case !analyze && c.log != nil:
			c.logger.Debug("analysis stopped mid-window, dropping log",
				zap.Int(logging.FieldLogSize, len(c.log)))
			c.log = nil
		}
		return nil
	}

	wasSuppressed := !c.raising
	c.raising = true
	c.analyze = false
	log := c.log
	c.log = nil
	if wasSuppressed && log != nil {
		c.flush(log)
	}
	return nil
}

// Raising reports whether events are raised immediately
func (c *Collection) Raising() bool {
	return c.raising
}

func raisingName(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func (c *Collection) flush(log []op) {
	events := reconcile(log, c.items, c.resetThreshold)
	c.metrics.LogFlushed(len(log))
	c.logger.Debug("window flushed",
		zap.Int(logging.FieldLogSize, len(log)),
		zap.Int(logging.FieldCount, len(events)))
	c.dispatch(events)
}

// OnCollectionChange subscribes to collection events
func (c *Collection) OnCollectionChange(fn func(types.Event)) bus.Subscription {
	return c.bus.Subscribe(EventCollectionChange, func(args ...any) {
		fn(args[0].(types.Event))
	})
}

// Unsubscribe removes a subscription made with OnCollectionChange
func (c *Collection) Unsubscribe(sub bus.Subscription) bool {
	return c.bus.Unsubscribe(sub)
}

// Version returns the change counter
func (c *Collection) Version() uint64 {
	return c.version.Value()
}

// Owners implements relation.Node
func (c *Collection) Owners() *relation.Owners {
	return &c.owners
}

func (c *Collection) checkMutable(action string) error {
	if c.dispatching.Active() {
		return types.NewReentrancyError(fmt.Sprintf("collection %s (%s)", c.id, action))
	}
	return nil
}

func (c *Collection) attach(item any) {
	if n, ok := relation.AsNode(item); ok {
		n.Owners().Attach(c, relation.ItemField)
	}
}

func (c *Collection) detach(item any) {
	if n, ok := relation.AsNode(item); ok {
		n.Owners().Detach(c, relation.ItemField)
	}
}

// mutated bumps the version, then raises ev or logs ops depending on the
// raising state, then notifies owners
func (c *Collection) mutated(ev types.Event, ops ...op) {
	c.bump()
	switch {
	case c.raising:
		c.dispatch([]types.Event{ev})
	case c.analyze && c.log != nil:
		c.log = append(c.log, ops...)
	}
	c.owners.Notify(c, relation.Change{})
}

func (c *Collection) bump() {
	c.version.Bump()
	c.metrics.VersionBumped(metrics.OwnerCollection)
}

// dispatch publishes events with the dispatch guard held, then delivers
// item changes that arrived meanwhile
func (c *Collection) dispatch(events []types.Event) {
	if len(events) == 0 {
		return
	}
	for _, ev := range events {
		c.metrics.EventEmitted(ev.Action)
		c.logger.Debug("collection event",
			zap.Stringer(logging.FieldAction, ev.Action),
			zap.Int(logging.FieldIndex, ev.NewIndex),
			zap.Int(logging.FieldOldIndex, ev.OldIndex),
			zap.String(logging.FieldReason, string(ev.Reason)))
	}
	if c.bus.HasSubscribers(EventCollectionChange) {
		func() {
			c.dispatching.Enter()
			defer c.dispatching.Exit()
			for _, ev := range events {
				c.bus.Notify(EventCollectionChange, ev)
			}
		}()
	}
	c.drain()
}

func (c *Collection) drain() {
	if len(c.pending) > 0 && !c.propagating.Active() {
		c.propagate(nil)
	}
}

// propagate handles first, if any, then every queued item change. Changes
// queued while handlers run are left for the dispatch that follows them.
func (c *Collection) propagate(first *pendingChange) {
	if !c.propagating.Enter() {
		return
	}
	c.propagated = make(map[relation.Node]bool)
	defer func() {
		c.propagated = nil
		c.propagating.Exit()
	}()

	if first != nil {
		c.propagated[first.item] = true
		c.itemChanged(first.item, first.change)
	}
	for len(c.pending) > 0 && !c.dispatching.Active() {
		p := c.pending[0]
		c.pending = c.pending[1:]
		c.propagated[p.item] = true
		c.itemChanged(p.item, p.change)
	}
}

// ChildChanged implements relation.Owner. Changes inside items are raised
// as Change events or logged, depending on the raising state. Changes that
// arrive while handlers are running, or while another item change travels
// up to the owners, are queued and handled in arrival order. An item that
// comes back around during the same propagation is an ownership cycle and
// is dropped.
func (c *Collection) ChildChanged(field string, child relation.Node, change relation.Change) {
	if c.cascading {
		if !change.StateOnly {
			c.cascaded = append(c.cascaded, pendingChange{item: child, change: change})
		}
		return
	}
	if !change.StateOnly && c.dispatching.Active() {
		c.pending = append(c.pending, pendingChange{item: child, change: change})
		return
	}
	if c.propagating.Active() {
		if c.propagated[child] {
			c.logger.Debug("dropping cyclic item change", zap.Int(logging.FieldIndex, c.IndexOf(child)))
			return
		}
		c.propagated[child] = true
		c.pending = append(c.pending, pendingChange{item: child, change: change})
		return
	}
	c.propagate(&pendingChange{item: child, change: change})
}

func (c *Collection) itemChanged(item relation.Node, change relation.Change) {
	index := c.IndexOf(item)
	if index < 0 {
		return
	}
	c.bump()
	if !change.StateOnly {
		switch {
		case c.raising:
			c.dispatch([]types.Event{{
				Action:   types.ActionChange,
				NewItems: []any{item},
				NewIndex: index,
				OldIndex: -1,
				Changes:  map[int][]string{0: change.Fields},
				Reason:   types.ReasonDirect,
			}})
		case c.analyze && c.log != nil:
			c.log = append(c.log, op{kind: opItemChanged, index: index, item: item, fields: change.Fields})
		}
	}
	c.owners.Notify(c, relation.Change{Fields: change.Fields, StateOnly: change.StateOnly})
}

// IsChanged reports whether the sequence differs from its baseline or any
// stateful item changed. Field names are not meaningful for collections
// and are ignored.
func (c *Collection) IsChanged(fields ...string) bool {
	if c.structurallyChanged() {
		return true
	}
	if !c.visiting.Enter() {
		return false
	}
	defer c.visiting.Exit()
	for _, item := range c.items {
		if n, ok := relation.AsNode(item); ok && n.IsChanged() {
			return true
		}
	}
	return false
}

func (c *Collection) structurallyChanged() bool {
	if len(c.items) != len(c.baseline) {
		return true
	}
	for i := range c.items {
		if !types.Same(c.items[i], c.baseline[i]) {
			return true
		}
	}
	return false
}

// AcceptChanges makes the current sequence the baseline. With cascade,
// stateful items accept their changes too.
func (c *Collection) AcceptChanges(cascade bool, fields ...string) error {
	if err := c.checkMutable("accept"); err != nil {
		return err
	}
	if c.cascading {
		return nil
	}
	moved := c.structurallyChanged()
	c.baseline = append([]any(nil), c.items...)

	var errs error
	if cascade {
		c.cascading = true
		for _, item := range c.items {
			if n, ok := relation.AsNode(item); ok {
				if n.IsChanged() {
					moved = true
				}
				errs = multierr.Append(errs, n.AcceptChanges(true))
			}
		}
		c.cascading = false
		c.cascaded = nil
	}
	if moved {
		c.bump()
		c.owners.Notify(c, relation.Change{StateOnly: true})
	}
	return errs
}

// RejectChanges restores the baseline sequence, reporting a Reset, and with
// cascade rejects changes inside stateful items
func (c *Collection) RejectChanges(cascade bool, fields ...string) error {
	if err := c.checkMutable("reject"); err != nil {
		return err
	}
	if c.cascading {
		return nil
	}

	var errs error
	var itemChanges []pendingChange
	if cascade {
		c.cascading = true
		for _, item := range c.baseline {
			if n, ok := relation.AsNode(item); ok {
				errs = multierr.Append(errs, n.RejectChanges(true))
			}
		}
		itemChanges = c.cascaded
		c.cascading = false
		c.cascaded = nil
	}

	if c.structurallyChanged() {
		c.replaceAll(c.baseline)
		c.mutated(resetEvent(c.items, types.ReasonRejected), op{kind: opReset})
		return errs
	}
	for _, p := range itemChanges {
		c.itemChanged(p.item, p.change)
	}
	return errs
}

// Clone returns a copy with an independent baseline. A shallow clone holds
// the same items; a deep clone clones stateful items. Subscriptions and
// owners are not copied.
func (c *Collection) Clone(shallow bool) *Collection {
	clones := make(map[relation.Node]relation.Node)
	mapItem := func(item any) any {
		if shallow {
			return item
		}
		cl, ok := item.(relation.Cloner)
		if !ok {
			return item
		}
		if existing, ok := clones[cl]; ok {
			return existing
		}
		copied := cl.CloneNode(false)
		clones[cl] = copied
		return copied
	}

	out := &Collection{
		id:             uuid.New(),
		raising:        true,
		resetThreshold: c.resetThreshold,
		bus:            bus.New(),
		metrics:        c.metrics,
	}
	out.logger = c.logger.With(zap.Stringer("clone_id", out.id))
	for _, item := range c.items {
		out.items = append(out.items, mapItem(item))
	}
	for _, item := range c.baseline {
		out.baseline = append(out.baseline, mapItem(item))
	}
	for _, item := range out.items {
		out.attach(item)
	}
	out.version.Set(c.version.Value())
	return out
}

// CloneNode implements relation.Cloner
func (c *Collection) CloneNode(shallow bool) relation.Node {
	return c.Clone(shallow)
}

// String identifies the collection in logs
func (c *Collection) String() string {
	return fmt.Sprintf("collection(%s, %d items)", c.id, len(c.items))
}
