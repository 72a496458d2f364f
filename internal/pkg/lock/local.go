package lock

import (
	"context"
	"sync"
)

// LocalLocker is an in-process keyed mutex for single instance deployments.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker constructs an empty keyed mutex.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

// WithLock runs fn while holding the key. Waiting honours ctx cancellation.
func (l *LocalLocker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	if err := validate(key, fn); err != nil {
		return err
	}

	kl := l.acquireRef(key)
	defer l.releaseRef(key, kl)

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-kl.ch }()

	return fn(ctx)
}

func (l *LocalLocker) acquireRef(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *LocalLocker) releaseRef(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
