package lock

import (
	"context"
	"sync"
)

type memoryLocker struct {
	mu    sync.Mutex
	slots map[int]chan struct{}
}

// NewMemoryLocker returns a process-local BayLocker.
func NewMemoryLocker() BayLocker {
	return &memoryLocker{slots: make(map[int]chan struct{})}
}

func (l *memoryLocker) Lock(ctx context.Context, bay int) (func(), error) {
	slot := l.slot(bay)
	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, ErrLockTimeout
	}
}

func (l *memoryLocker) slot(bay int) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[bay]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[bay] = slot
	}
	return slot
}
