package collection

import (
	"sort"

	"github.com/arthur-debert/nanostate/types"
)

type opKind int

const (
	opInsert opKind = iota
	opRemove
	opReplace
	opMove
	opItemChanged
	opReset
	// opDropped marks entries removed during coalescing
	opDropped
)

// op is one primitive mutation recorded while suppressed with analysis.
// index is the position the op acted on in the sequence as it was when the
// op ran; for moves index is the source and to the destination.
type op struct {
	kind   opKind
	index  int
	to     int
	item   any
	old    any
	fields []string
}

// reconcile reduces a mutation log to the minimal event sequence for a
// collection whose items are now final:
//
//   - Remove X followed by Insert X becomes one Move, Insert X followed
//     by Remove X cancels out, and back-to-back moves of X fold together;
//   - surviving structural ops become Add, Remove, Replace and Move events
//     in call order, minus no-ops;
//   - changed items still present are grouped into runs of adjacent final
//     indices, one Change event per run;
//   - when the changed items reach threshold of the collection the Change
//     events collapse into one Reset.
//
// A window that replaced the whole sequence reconciles to a single Reset.
func reconcile(log []op, final []any, threshold float64) []types.Event {
	var (
		structural []op
		changed    []op
	)
	for _, o := range log {
		switch o.kind {
		case opReset:
			return []types.Event{resetEvent(final, types.ReasonReset)}
		case opItemChanged:
			changed = append(changed, o)
		default:
			structural = append(structural, o)
		}
	}

	structural = coalesce(structural)

	events := make([]types.Event, 0, len(structural)+1)
	for _, o := range structural {
		if ev, ok := structuralEvent(o); ok {
			events = append(events, ev)
		}
	}
	return append(events, changeEvents(changed, final, threshold)...)
}

// coalesce pairs Remove/Insert of the same item until no pair is left
func coalesce(entries []op) []op {
	entries = append([]op(nil), entries...)
	for {
		rewritten := false
		for i := 0; i < len(entries) && !rewritten; i++ {
			switch entries[i].kind {
			case opRemove:
				if j := nextOf(entries, i, opInsert); j >= 0 {
					entries = pairAsMove(entries, i, j)
					rewritten = true
				}
			case opInsert:
				if j := nextOf(entries, i, opRemove); j >= 0 {
					if out, ok := cancelPair(entries, i, j); ok {
						entries = out
						rewritten = true
					}
				}
			}
		}
		if !rewritten {
			break
		}
	}

	out := entries[:0]
	for _, e := range entries {
		if e.kind == opDropped {
			continue
		}
		// Back-to-back moves of one item fold into one; a round trip vanishes
		if n := len(out); n > 0 && e.kind == opMove && out[n-1].kind == opMove &&
			out[n-1].to == e.index && types.Same(out[n-1].item, e.item) {
			out[n-1].to = e.to
			if out[n-1].index == out[n-1].to {
				out = out[:n-1]
			}
			continue
		}
		out = append(out, e)
	}
	return out
}

// nextOf returns the first entry after i of kind that carries the same item
func nextOf(entries []op, i int, kind opKind) int {
	for j := i + 1; j < len(entries); j++ {
		if entries[j].kind == kind && types.Same(entries[j].item, entries[i].item) {
			return j
		}
	}
	return -1
}

// pairAsMove rewrites Remove X at i and Insert X at j into one Move placed
// at j. Ops in between ran on a sequence without X; they are re-indexed as
// if X had stayed at its ghost position.
func pairAsMove(entries []op, i, j int) []op {
	ghost := entries[i].index
	for k := i + 1; k < j; k++ {
		e := &entries[k]
		switch e.kind {
		case opInsert:
			if e.index <= ghost {
				ghost++
			} else {
				e.index++
			}
		case opRemove:
			if e.index < ghost {
				ghost--
			} else {
				e.index++
			}
		case opReplace:
			if e.index >= ghost {
				e.index++
			}
		case opMove:
			if e.index < ghost {
				ghost--
			} else {
				e.index++
			}
			if e.to <= ghost {
				ghost++
			} else {
				e.to++
			}
		}
	}

	entries[j] = op{kind: opMove, index: ghost, to: entries[j].index, item: entries[j].item}
	entries[i].kind = opDropped
	return entries
}

// cancelPair drops Insert X at i and Remove X at j. Ops in between ran on a
// sequence holding X; they are re-indexed as if X had never been there.
// It refuses pairs where an op in between replaced X.
func cancelPair(entries []op, i, j int) ([]op, bool) {
	out := append([]op(nil), entries...)
	pos := out[i].index
	for k := i + 1; k < j; k++ {
		e := &out[k]
		switch e.kind {
		case opInsert:
			if e.index <= pos {
				pos++
			} else {
				e.index--
			}
		case opRemove:
			switch {
			case e.index < pos:
				pos--
			case e.index == pos:
				return nil, false
			default:
				e.index--
			}
		case opReplace:
			switch {
			case e.index == pos:
				return nil, false
			case e.index > pos:
				e.index--
			}
		case opMove:
			if e.index == pos {
				pos = e.to
				e.kind = opDropped
				continue
			}
			if e.index < pos {
				pos--
			} else {
				e.index--
			}
			if e.to <= pos {
				pos++
			} else {
				e.to--
			}
		}
	}
	if out[j].index != pos {
		return nil, false
	}
	out[i].kind = opDropped
	out[j].kind = opDropped
	return out, true
}

func structuralEvent(o op) (types.Event, bool) {
	switch o.kind {
	case opInsert:
		return types.Event{
			Action:   types.ActionAdd,
			NewItems: []any{o.item},
			NewIndex: o.index,
			OldIndex: -1,
			Reason:   types.ReasonReconciled,
		}, true
	case opRemove:
		return types.Event{
			Action:   types.ActionRemove,
			OldItems: []any{o.item},
			OldIndex: o.index,
			NewIndex: -1,
			Reason:   types.ReasonReconciled,
		}, true
	case opReplace:
		if types.Same(o.old, o.item) {
			return types.Event{}, false
		}
		return types.Event{
			Action:   types.ActionReplace,
			NewItems: []any{o.item},
			OldItems: []any{o.old},
			NewIndex: o.index,
			OldIndex: o.index,
			Reason:   types.ReasonReconciled,
		}, true
	case opMove:
		if o.index == o.to {
			return types.Event{}, false
		}
		return types.Event{
			Action:   types.ActionMove,
			NewItems: []any{o.item},
			OldItems: []any{o.item},
			NewIndex: o.to,
			OldIndex: o.index,
			Reason:   types.ReasonReconciled,
		}, true
	}
	return types.Event{}, false
}

type changedItem struct {
	item   any
	index  int
	fields []string
}

// changeEvents groups changed items by their final index
func changeEvents(changed []op, final []any, threshold float64) []types.Event {
	if len(changed) == 0 {
		return nil
	}

	var items []*changedItem
	for _, o := range changed {
		var found *changedItem
		for _, ci := range items {
			if types.Same(ci.item, o.item) {
				found = ci
				break
			}
		}
		if found == nil {
			idx := indexOf(final, o.item)
			if idx < 0 {
				// Removed later in the window
				continue
			}
			found = &changedItem{item: o.item, index: idx}
			items = append(items, found)
		}
		found.fields = mergeFields(found.fields, o.fields)
	}
	if len(items) == 0 {
		return nil
	}

	if threshold > 0 && float64(len(items)) >= threshold*float64(len(final)) {
		return []types.Event{resetEvent(final, types.ReasonEscalated)}
	}

	sort.Slice(items, func(a, b int) bool { return items[a].index < items[b].index })

	var events []types.Event
	for start := 0; start < len(items); {
		end := start + 1
		for end < len(items) && items[end].index == items[end-1].index+1 {
			end++
		}
		ev := types.Event{
			Action:   types.ActionChange,
			NewIndex: items[start].index,
			OldIndex: -1,
			Changes:  make(map[int][]string, end-start),
			Reason:   types.ReasonReconciled,
		}
		for pos, ci := range items[start:end] {
			ev.NewItems = append(ev.NewItems, ci.item)
			ev.Changes[pos] = ci.fields
		}
		events = append(events, ev)
		start = end
	}
	return events
}

func resetEvent(final []any, reason types.Reason) types.Event {
	return types.Event{
		Action:   types.ActionReset,
		NewItems: append([]any{}, final...),
		OldItems: []any{},
		NewIndex: -1,
		OldIndex: -1,
		Reason:   reason,
	}
}

func mergeFields(into, fields []string) []string {
	for _, f := range fields {
		present := false
		for _, existing := range into {
			if existing == f {
				present = true
				break
			}
		}
		if !present {
			into = append(into, f)
		}
	}
	return into
}

func indexOf(items []any, item any) int {
	for i, it := range items {
		if types.Same(it, item) {
			return i
		}
	}
	return -1
}
