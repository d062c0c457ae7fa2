package reconcile

import (
	"fmt"

	"github.com/gofrs/flock"
)

// WorkspaceLock is the recommended (not required, per spec.md 9) advisory
// single-process lock guarding concurrent applies against one workspace's
// .rw/state.lock, closing the race spec.md 5 flags as unenforced.
// Grounded on githubnext-gh-aw's use of gofrs/flock for its own
// single-writer file locks — cross-platform, unlike a hand-rolled
// syscall.Flock wrapper with a Windows no-op branch.
type WorkspaceLock struct {
	fl *flock.Flock
}

// NewWorkspaceLock returns a lock over <workspaceDir>/.rw/state.lock.
func NewWorkspaceLock(lockPath string) *WorkspaceLock {
	return &WorkspaceLock{fl: flock.New(lockPath)}
}

// TryLock attempts to acquire the lock without blocking, returning false
// if another process already holds it.
func (l *WorkspaceLock) TryLock() (bool, error) {
	ok, err := l.fl.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquiring workspace lock: %w", err)
	}
	return ok, nil
}

// Unlock releases the lock. Safe to call even if TryLock never succeeded.
func (l *WorkspaceLock) Unlock() error {
	return l.fl.Unlock()
}
