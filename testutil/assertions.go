package testutil

import (
	"strings"
	"testing"

	"github.com/arthur-debert/nanostate/nanostate/entity"
	"github.com/arthur-debert/nanostate/types"
	"github.com/google/go-cmp/cmp"
)

// AssertEvents checks the recorded event summaries, in order
func AssertEvents(t *testing.T, log *EventLog, want ...string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	if diff := cmp.Diff(want, log.Summaries()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

// AssertEventCount checks the number of recorded events
func AssertEventCount(t *testing.T, log *EventLog, expected int, context ...string) {
	t.Helper()
	if log.Len() != expected {
		ctx := ""
		if len(context) > 0 {
			ctx = " " + context[0]
		}
		t.Errorf("expected %d events%s, got %d: %s", expected, ctx, log.Len(), strings.Join(log.Summaries(), "; "))
	}
}

// AssertLastEvent checks the action and reason of the most recent event
func AssertLastEvent(t *testing.T, log *EventLog, action types.Action, reason types.Reason) {
	t.Helper()
	ev, ok := log.Last()
	if !ok {
		t.Errorf("expected a %s event, got none", action)
		return
	}
	if ev.Action != action || ev.Reason != reason {
		t.Errorf("expected last event %s (%s), got %s", action, reason, ev)
	}
}

// AssertChanged verifies that e reports exactly the given changed fields
func AssertChanged(t *testing.T, e *entity.Entity, fields ...string) {
	t.Helper()
	if fields == nil {
		fields = []string{}
	}
	got := e.ChangedFields()
	if got == nil {
		got = []string{}
	}
	if diff := cmp.Diff(fields, got); diff != "" {
		t.Errorf("changed fields mismatch for %s (-want +got):\n%s", e, diff)
	}
}

// AssertUnchanged verifies that neither e nor its children report changes
func AssertUnchanged(t *testing.T, e *entity.Entity) {
	t.Helper()
	if e.IsChanged() {
		t.Errorf("expected %s to be unchanged, changed fields: %v", e, e.ChangedFields())
	}
}

// AssertState checks the lifecycle state of e
func AssertState(t *testing.T, e *entity.Entity, expected types.LifecycleState) {
	t.Helper()
	if e.State() != expected {
		t.Errorf("expected %s to be %s, got %s", e, expected, e.State())
	}
}

// Versioned is anything carrying a change counter
type Versioned interface {
	Version() uint64
}

// AssertVersionBumped runs fn and checks that it moved v's version forward
func AssertVersionBumped(t *testing.T, v Versioned, fn func()) {
	t.Helper()
	before := v.Version()
	fn()
	if after := v.Version(); after <= before {
		t.Errorf("expected version to move past %d, got %d", before, after)
	}
}

// AssertVersionKept runs fn and checks that v's version did not move
func AssertVersionKept(t *testing.T, v Versioned, fn func()) {
	t.Helper()
	before := v.Version()
	fn()
	if after := v.Version(); after != before {
		t.Errorf("expected version to stay at %d, got %d", before, after)
	}
}
