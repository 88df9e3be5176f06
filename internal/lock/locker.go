// Package lock serializes bay assignment so two callers cannot both pass the
// occupancy check for the same bay.
package lock

import (
	"context"
	"errors"
)

// ErrLockTimeout is returned when a bay lock could not be acquired in time.
var ErrLockTimeout = errors.New("timed out waiting for bay lock")

// BayLocker hands out exclusive per-bay critical sections.
type BayLocker interface {
	// Lock blocks until the bay is held or ctx is done. The returned release
	// func must be called exactly once.
	Lock(ctx context.Context, bay int) (release func(), err error)
}
