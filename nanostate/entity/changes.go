package entity

import (
	"fmt"
	"sort"

	"github.com/arthur-debert/nanostate/types"
	"go.uber.org/multierr"
)

// AcceptChanges makes the current values of fields (all when none are
// given) the new baseline. With cascade, linked children of those fields
// accept too. The lifecycle state follows types.LifecycleState.AfterAccept
// unless a field filter was given and changes remain.
func (e *Entity) AcceptChanges(cascade bool, fields ...string) error {
	if e.dispatching.Active() {
		return types.NewReentrancyError(fmt.Sprintf("entity %s accept", e.id))
	}
	if e.cascading {
		return nil
	}

	targets := fields
	if len(targets) == 0 {
		targets = e.tracker.names()
	}
	moved := false
	for _, name := range targets {
		if e.tracker.forget(name) {
			moved = true
		}
	}

	var errs error
	if cascade {
		e.cascading = true
		for _, child := range e.childrenFor(fields) {
			if child.IsChanged() {
				moved = true
			}
			errs = multierr.Append(errs, child.AcceptChanges(true))
		}
		e.cascading = false
		e.cascaded = nil
	}

	if len(fields) == 0 || !e.IsChanged() {
		if e.moveState(e.state.AfterAccept()) {
			moved = true
		}
	}
	if moved {
		e.changed(fields, true)
	}
	return errs
}

// RejectChanges restores fields (all when none are given) to their
// original values. Fields that were not stored at the baseline are removed. With cascade, linked children reject too. The lifecycle
// state follows types.LifecycleState.AfterReject unless a field filter was
// given and changes remain.
func (e *Entity) RejectChanges(cascade bool, fields ...string) error {
	if e.dispatching.Active() {
		return types.NewReentrancyError(fmt.Sprintf("entity %s reject", e.id))
	}
	if e.cascading {
		return nil
	}

	targets := fields
	if len(targets) == 0 {
		targets = e.tracker.names()
	}

	var (
		errs     error
		restored []string
	)
	for _, name := range targets {
		orig, ok := e.tracker.original(name)
		if !ok {
			continue
		}
		var err error
		if e.tracker.wasAbsent(name) {
			err = e.store.Delete(name)
		} else {
			err = e.store.Set(name, orig)
		}
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		e.tracker.forget(name)
		e.relink(name)
		e.invalidate(name, true)
		restored = append(restored, name)
	}

	stateOnly := false
	if cascade {
		e.cascading = true
		for _, child := range e.childrenFor(fields) {
			if child.IsChanged() {
				stateOnly = true
			}
			errs = multierr.Append(errs, child.RejectChanges(true))
		}
		restored = append(restored, e.cascaded...)
		e.cascading = false
		e.cascaded = nil
	}

	if len(fields) == 0 || !e.IsChanged() {
		if e.moveState(e.state.AfterReject()) {
			stateOnly = true
		}
	}

	switch {
	case len(restored) > 0:
		e.changed(dedupe(restored), false)
	case stateOnly:
		e.changed(fields, true)
	}
	return errs
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func sortedNames(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
