package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"texforge/internal/services"
)

// LibraryLock guards the output library against concurrent runs.
type LibraryLock struct {
	path string
	lock *flock.Flock
}

// AcquireLibraryLock takes the library lock at path without blocking.
func AcquireLibraryLock(path string) (*LibraryLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrSetup, "workflow", "acquire library lock", "create state directory", err)
	}
	l := flock.New(path)
	ok, err := l.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrSetup, "workflow", "acquire library lock", path, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrSetup, "workflow", "acquire library lock", fmt.Sprintf("another texforge run holds %s", path), nil)
	}
	return &LibraryLock{path: path, lock: l}, nil
}

// Path returns the lock file location.
func (l *LibraryLock) Path() string { return l.path }

// Release unlocks the library. It is safe to call more than once.
func (l *LibraryLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
