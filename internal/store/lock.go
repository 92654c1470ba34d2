package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	eduerrors "github.com/Aman-CERP/edumate/internal/errors"
)

// LockFileName is the advisory lock file inside the database directory.
const LockFileName = ".lock"

// DirLock is a cross-process lock on a database directory. The store is
// not safe for concurrent writers, so every command that mutates it takes
// this lock first.
type DirLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewDirLock creates a lock for the database directory dir.
func NewDirLock(dir string) *DirLock {
	path := filepath.Join(dir, LockFileName)
	return &DirLock{
		path:  path,
		flock: flock.New(path),
	}
}

// TryLock acquires the lock without blocking. It fails with a store-locked
// error when another process holds it.
func (l *DirLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return eduerrors.StorageError("failed to create database directory", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return eduerrors.StorageError("failed to acquire store lock", err)
	}
	if !acquired {
		return eduerrors.New(eduerrors.ErrCodeStoreLocked,
			fmt.Sprintf("store %s is in use by another edumate process", filepath.Dir(l.path)), nil).
			WithSuggestion("stop the running 'edumate watch' or 'edumate serve' first")
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Safe to call when not locked.
func (l *DirLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *DirLock) Path() string {
	return l.path
}
