package envelope

import (
	"context"
	"os"
	"time"

	"github.com/arthur-debert/nanostate/internal/logging"
	"github.com/arthur-debert/nanostate/nanostate/collection"
	"github.com/arthur-debert/nanostate/nanostate/entity"
	"github.com/cockroachdb/errors"
	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const (
	lockTimeout   = 3 * time.Second
	retryInterval = 100 * time.Millisecond
)

// ErrLocked is returned when the lock file stays held past the timeout
var ErrLocked = errors.New("snapshot file is locked")

// File stores one encoded entity or collection on disk. Reads and writes
// take a cross-process lock on path + ".lock"; writes replace the file
// atomically.
type File struct {
	path string
	lock *flock.Flock
	enc  *Context
}

// NewFile returns a snapshot file at path using enc to encode and decode
func NewFile(path string, enc *Context) *File {
	if enc == nil {
		enc = New()
	}
	return &File{
		path: path,
		lock: flock.New(path + ".lock"),
		enc:  enc,
	}
}

// Path returns the snapshot file path
func (f *File) Path() string {
	return f.path
}

// SaveEntity writes e and its change state
func (f *File) SaveEntity(ctx context.Context, e *entity.Entity) error {
	data, err := f.enc.Encode(e)
	if err != nil {
		return err
	}
	return f.write(ctx, data)
}

// LoadEntity reads an entity written by SaveEntity
func (f *File) LoadEntity(ctx context.Context) (*entity.Entity, error) {
	data, err := f.read(ctx)
	if err != nil {
		return nil, err
	}
	return f.enc.Decode(data)
}

// SaveCollection writes col and its items
func (f *File) SaveCollection(ctx context.Context, col *collection.Collection) error {
	data, err := f.enc.EncodeCollection(col)
	if err != nil {
		return err
	}
	return f.write(ctx, data)
}

// LoadCollection reads a collection written by SaveCollection
func (f *File) LoadCollection(ctx context.Context) (*collection.Collection, error) {
	data, err := f.read(ctx)
	if err != nil {
		return nil, err
	}
	return f.enc.DecodeCollection(data)
}

// Remove deletes the snapshot and its lock file
func (f *File) Remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to remove %s", f.path)
	}
	_ = os.Remove(f.path + ".lock")
	return nil
}

func (f *File) withLock(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := f.lock.TryLockContext(ctx, retryInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errors.Wrapf(ErrLocked, "%s", f.path)
		}
		return errors.Wrap(err, "failed to acquire lock")
	}
	if !locked {
		return errors.Wrapf(ErrLocked, "%s", f.path)
	}
	defer func() { _ = f.lock.Unlock() }()

	return fn()
}

func (f *File) read(ctx context.Context) ([]byte, error) {
	var data []byte
	err := f.withLock(ctx, func() error {
		var err error
		data, err = os.ReadFile(f.path)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", f.path)
		}
		return nil
	})
	return data, err
}

func (f *File) write(ctx context.Context, data []byte) error {
	f.enc.logger.Debug("writing snapshot",
		zap.String(logging.FieldFile, f.path),
		zap.Int("bytes", len(data)))
	return f.withLock(ctx, func() error {
		tmp := f.path + ".tmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return errors.Wrap(err, "failed to write temp file")
		}
		if err := os.Rename(tmp, f.path); err != nil {
			_ = os.Remove(tmp)
			return errors.Wrap(err, "failed to rename temp file")
		}
		return nil
	})
}
