package reconcile

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"

	"mediasync/internal/layout"
)

// ErrLocked is returned when another run holds the working root lock.
var ErrLocked = errors.New("another mediasync run is using this working directory")

// NewLock returns the advisory lock guarding w.
func NewLock(w layout.Working) *flock.Flock {
	return flock.New(w.LockPath())
}

func acquire(w layout.Working) (*flock.Flock, error) {
	lock := NewLock(w)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, w.LockPath())
	}
	return lock, nil
}
