package entity

import "sort"

// tracker maps each changed field to its value at the last baseline.
// Fields that were not stored at the baseline are tracked as absent so
// that rejecting them removes the field again.
type tracker struct {
	originals map[string]any
	absent    map[string]bool
}

func newTracker() *tracker {
	return &tracker{
		originals: make(map[string]any),
		absent:    make(map[string]bool),
	}
}

// original returns the baseline value of name. Absent fields report nil.
func (t *tracker) original(name string) (any, bool) {
	v, ok := t.originals[name]
	return v, ok
}

func (t *tracker) wasAbsent(name string) bool {
	return t.absent[name]
}

// record stores the original for name unless one is already on file
func (t *tracker) record(name string, original any, present bool) {
	if _, ok := t.originals[name]; ok {
		return
	}
	t.originals[name] = original
	if !present {
		t.absent[name] = true
	}
}

// forget removes name and reports whether it was tracked
func (t *tracker) forget(name string) bool {
	if _, ok := t.originals[name]; !ok {
		return false
	}
	delete(t.originals, name)
	delete(t.absent, name)
	return true
}

func (t *tracker) has(name string) bool {
	_, ok := t.originals[name]
	return ok
}

func (t *tracker) len() int {
	return len(t.originals)
}

// names returns the tracked fields, sorted
func (t *tracker) names() []string {
	out := make([]string, 0, len(t.originals))
	for name := range t.originals {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// absentNames returns the tracked fields that were not stored, sorted
func (t *tracker) absentNames() []string {
	if len(t.absent) == 0 {
		return nil
	}
	out := make([]string, 0, len(t.absent))
	for name := range t.absent {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (t *tracker) copy() map[string]any {
	out := make(map[string]any, len(t.originals))
	for k, v := range t.originals {
		out[k] = v
	}
	return out
}

func (t *tracker) replace(originals map[string]any, absent []string) {
	t.originals = make(map[string]any, len(originals))
	for k, v := range originals {
		t.originals[k] = v
	}
	t.absent = make(map[string]bool, len(absent))
	for _, name := range absent {
		if _, ok := t.originals[name]; ok {
			t.absent[name] = true
		}
	}
}
