package testutil

import (
	"testing"

	"github.com/arthur-debert/nanostate/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPeople(t *testing.T) {
	people, data := LoadPeople(t)

	require.Equal(t, 4, people.Len())
	assert.Len(t, data.ByKey, 4)
	assert.Equal(t, "person", data.Schema.Name())

	for i, e := range []any{data.Ada, data.Grace, data.Alan, data.Barbara} {
		assert.Same(t, e, people.Items()[i], "fixture order at %d", i)
	}

	assert.Equal(t, "Ada Lovelace", data.Ada.MustGet("full"))
	assert.Equal(t, 85, data.Grace.MustGet("age"))
	assert.Equal(t, "Amazing Grace", data.Grace.MustGet("nickname"))
	assert.Nil(t, data.Ada.MustGet("nickname"))
	assert.Equal(t, "tuple(person)", data.Alan.Adapter().Kind())

	for key, e := range data.ByKey {
		assert.Equal(t, types.Unchanged, e.State(), key)
		assert.False(t, e.IsChanged(), key)
	}
	assert.False(t, people.IsChanged())
}

func TestEventLog(t *testing.T) {
	people, data := LoadPeople(t)
	log := RecordCollection(people)

	_, ok := log.Last()
	assert.False(t, ok)

	require.NoError(t, data.Ada.Set("age", 37))
	require.NoError(t, people.Move(0, 3))

	assert.Equal(t, 2, log.Len())
	assert.Equal(t, []string{"change 1@0 (direct)", "move 0->3 (direct)"}, log.Summaries())

	log.Reset()
	assert.Zero(t, log.Len())
}

func TestChangeLog(t *testing.T) {
	_, data := LoadPeople(t)
	log := RecordEntity(data.Alan)

	require.NoError(t, data.Alan.Set("first", "Alan M."))
	require.NoError(t, data.Alan.AcceptChanges(false))

	assert.Equal(t, []string{"first"}, log.Fields())
	require.Len(t, log.States, 2)
	assert.Equal(t, types.StateChange{From: types.Unchanged, To: types.Changed}, log.States[0])
	assert.Equal(t, types.StateChange{From: types.Changed, To: types.Unchanged}, log.States[1])
}
