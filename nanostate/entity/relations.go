package entity

import (
	"sort"

	"github.com/arthur-debert/nanostate/internal/logging"
	"github.com/arthur-debert/nanostate/nanostate/metrics"
	"github.com/arthur-debert/nanostate/nanostate/relation"
	"github.com/arthur-debert/nanostate/types"
	"go.uber.org/zap"
)

// Owners implements relation.Node
func (e *Entity) Owners() *relation.Owners {
	return &e.owners
}

// Collection returns the container holding e as an item, if any
func (e *Entity) Collection() (relation.Container, bool) {
	return e.owners.Container()
}

// Children returns the stateful values linked to fields
func (e *Entity) Children() map[string]relation.Node {
	out := make(map[string]relation.Node, len(e.children))
	for k, v := range e.children {
		out[k] = v
	}
	return out
}

// relink points the relation link for name at the stateful value the field
// currently holds, either stored or cached
func (e *Entity) relink(name string) {
	var next relation.Node
	if n, ok := relation.AsNode(e.store.Get(name)); ok {
		next = n
	} else if v, ok := e.cache.lookup(name); ok {
		if n, ok := relation.AsNode(v); ok {
			next = n
		}
	}

	prev, linked := e.children[name]
	if linked && prev == next {
		return
	}
	if linked {
		prev.Owners().Detach(e, name)
		delete(e.children, name)
	}
	if next != nil {
		next.Owners().Attach(e, name)
		e.children[name] = next
	}
}

type pendingChild struct {
	field  string
	child  relation.Node
	change relation.Change
}

// ChildChanged implements relation.Owner. A data change inside a child
// marks field dirty through the relation, invalidates what depends on
// field, including properties without declared dependencies, and bubbles
// up. State-only changes just bump the version. Changes from other
// children that arrive while one is bubbling up are queued; a child that
// comes back around during the same propagation is a cycle and is dropped.
func (e *Entity) ChildChanged(field string, child relation.Node, change relation.Change) {
	if e.propagating.Active() {
		if e.propagated[child] {
			return
		}
		e.propagated[child] = true
		e.pending = append(e.pending, pendingChild{field: field, child: child, change: change})
		return
	}

	e.propagating.Enter()
	e.propagated = map[relation.Node]bool{child: true}
	defer func() {
		e.propagated = nil
		e.propagating.Exit()
	}()
	e.childChanged(field, change)
	for len(e.pending) > 0 {
		p := e.pending[0]
		e.pending = e.pending[1:]
		// The field may have been rebound while the change was queued
		if e.children[p.field] != p.child {
			continue
		}
		e.childChanged(p.field, p.change)
	}
}

func (e *Entity) childChanged(field string, change relation.Change) {
	if !change.StateOnly {
		e.invalidate(field, true)
	}
	if e.cascading {
		// accept/reject cascades publish once when they finish
		if !change.StateOnly {
			e.cascaded = append(e.cascaded, field)
		}
		return
	}

	e.logger.Debug("child changed",
		zap.String(logging.FieldField, field),
		zap.Strings(logging.FieldFields, change.Fields),
		zap.Bool("state_only", change.StateOnly))

	v := e.version.Bump()
	e.metrics.VersionBumped(metrics.OwnerEntity)
	if !change.StateOnly {
		e.emit(EventChange, types.FieldChange{Fields: []string{field}, Version: v, Nested: true})
	}
	e.owners.Notify(e, relation.Change{Fields: []string{field}, StateOnly: change.StateOnly})
}

// childrenFor returns the linked children of fields (all when empty) in
// field order
func (e *Entity) childrenFor(fields []string) []relation.Node {
	names := fields
	if len(names) == 0 {
		names = make([]string, 0, len(e.children))
		for name := range e.children {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	out := make([]relation.Node, 0, len(names))
	for _, name := range names {
		if child, ok := e.children[name]; ok {
			out = append(out, child)
		}
	}
	return out
}
