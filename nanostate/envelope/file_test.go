package envelope

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/nanostate/nanostate/collection"
	"github.com/arthur-debert/nanostate/nanostate/entity"
	"github.com/arthur-debert/nanostate/types"
	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestFileEntity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entity.json")
	f := NewFile(path, New(WithLogger(zaptest.NewLogger(t))))

	e := entity.MustNew(
		entity.WithValues(map[string]any{"title": "draft"}),
		entity.WithState(types.Unchanged),
	)
	require.NoError(t, e.Set("title", "final"))
	require.NoError(t, f.SaveEntity(context.Background(), e))

	got, err := f.LoadEntity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, e.ID(), got.ID())
	assert.Equal(t, "final", got.MustGet("title"))
	assert.Equal(t, types.Changed, got.State())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.json")
	f := NewFile(path, nil)
	assert.Equal(t, path, f.Path())

	col := collection.New(collection.WithItems(
		entity.MustNew(entity.WithValues(map[string]any{"n": 1})),
		entity.MustNew(entity.WithValues(map[string]any{"n": 2})),
	))
	require.NoError(t, f.SaveCollection(context.Background(), col))

	got, err := f.LoadCollection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, col.ID(), got.ID())
	require.Equal(t, 2, got.Len())
	second, err := got.At(1)
	require.NoError(t, err)
	assert.Equal(t, 2, second.(*entity.Entity).MustGet("n"))

	require.NoError(t, f.Remove())
	_, err = f.LoadCollection(context.Background())
	require.Error(t, err)
	require.NoError(t, f.Remove())
}

func TestFileLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entity.json")
	f := NewFile(path, nil)

	held := flock.New(path + ".lock")
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = held.Unlock() }()

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	err = f.SaveEntity(ctx, entity.MustNew())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocked)
}
