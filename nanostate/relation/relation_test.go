package relation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingOwner struct {
	calls []string
}

func (r *recordingOwner) ChildChanged(field string, child Node, change Change) {
	r.calls = append(r.calls, field)
}

type stubNode struct {
	owners Owners
}

func (s *stubNode) Owners() *Owners                                    { return &s.owners }
func (s *stubNode) IsChanged(fields ...string) bool                    { return false }
func (s *stubNode) AcceptChanges(cascade bool, fields ...string) error { return nil }
func (s *stubNode) RejectChanges(cascade bool, fields ...string) error { return nil }
func (s *stubNode) Version() uint64                                    { return 0 }

type stubContainer struct {
	recordingOwner
}

func (s *stubContainer) IndexOf(item any) int { return 0 }

func TestOwners(t *testing.T) {
	t.Run("attach is reference counted", func(t *testing.T) {
		var o Owners
		owner := &recordingOwner{}

		assert.True(t, o.Attach(owner, "child"))
		assert.False(t, o.Attach(owner, "child"))
		assert.Equal(t, 1, o.Len())

		assert.False(t, o.Detach(owner, "child"))
		assert.True(t, o.Holds(owner))
		assert.True(t, o.Detach(owner, "child"))
		assert.False(t, o.Holds(owner))
		assert.Equal(t, 0, o.Len())
	})

	t.Run("same owner different fields are separate links", func(t *testing.T) {
		var o Owners
		owner := &recordingOwner{}
		o.Attach(owner, "a")
		o.Attach(owner, "b")
		require.Equal(t, 2, o.Len())

		o.Notify(&stubNode{}, Change{Fields: []string{"x"}})
		assert.Equal(t, []string{"a", "b"}, owner.calls)
	})

	t.Run("detach unknown link is a no-op", func(t *testing.T) {
		var o Owners
		assert.False(t, o.Detach(&recordingOwner{}, "missing"))
	})

	t.Run("container lookup only matches item links", func(t *testing.T) {
		var o Owners
		c := &stubContainer{}
		o.Attach(c, "named")
		_, ok := o.Container()
		assert.False(t, ok)

		o.Attach(c, ItemField)
		got, ok := o.Container()
		require.True(t, ok)
		assert.Same(t, c, got)
	})

	t.Run("notify tolerates detach during iteration", func(t *testing.T) {
		var o Owners
		first := &detachingOwner{owners: &o}
		second := &recordingOwner{}
		o.Attach(first, "a")
		o.Attach(second, "b")

		o.Notify(&stubNode{}, Change{})
		assert.Equal(t, []string{"b"}, second.calls)
		assert.Equal(t, 1, o.Len())
	})
}

type detachingOwner struct {
	owners *Owners
}

func (d *detachingOwner) ChildChanged(field string, child Node, change Change) {
	d.owners.Detach(d, field)
}

func TestVersionAndGuard(t *testing.T) {
	var v Version
	assert.Equal(t, uint64(1), v.Bump())
	assert.Equal(t, uint64(2), v.Bump())
	v.Set(1)
	assert.Equal(t, uint64(2), v.Value())
	v.Set(10)
	assert.Equal(t, uint64(10), v.Value())

	var g Guard
	require.True(t, g.Enter())
	assert.True(t, g.Active())
	assert.False(t, g.Enter())
	g.Exit()
	assert.False(t, g.Active())
}
