// Package runguard keeps batch runs from overlapping.
package runguard

import (
	"context"
	"errors"
	"sync"
)

// ErrLockUnavailable is returned when the lock backend cannot be reached.
var ErrLockUnavailable = errors.New("runguard: lock backend unavailable")

// Guard grants at most one holder at a time. TryAcquire never blocks waiting
// for the current holder: ok is false when a run is already in progress.
type Guard interface {
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

// Local is an in-process guard.
type Local struct {
	mu sync.Mutex
}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) TryAcquire(_ context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }, true, nil
}

var _ Guard = (*Local)(nil)
