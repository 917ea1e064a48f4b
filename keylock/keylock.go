// Package keylock provides a named-resource mutex.
//
// A Locker hands out one lock per string key. Acquisitions for the same key
// queue in FIFO order; acquisitions for different keys never contend. Each
// acquisition takes a context, so callers bound their wait with a deadline
// or cancellation instead of blocking forever.
//
// The task package uses a Locker keyed by task ID to serialize transcript
// mutations against in-flight streaming appends.
package keylock

import (
	"context"
	"errors"
	"sync"
)

// ErrNotLocked indicates a Release for a key that is not currently held.
var ErrNotLocked = errors.New("key is not locked")

// Locker is a set of mutexes keyed by string. The zero value is not usable;
// call New.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock tracks one key's lock state. waiters queue FIFO; each waiter is
// woken through its own channel.
type keyLock struct {
	held    bool
	waiters []chan struct{}
}

// New creates an empty Locker.
func New() *Locker {
	return &Locker{locks: make(map[string]*keyLock)}
}

// Acquire takes the lock for key, waiting behind earlier acquirers. It
// returns the context's error if ctx is cancelled or times out before the
// lock is granted, in which case the caller does not hold the lock.
func (l *Locker) Acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}

	if !kl.held {
		kl.held = true
		l.mu.Unlock()
		return nil
	}

	wait := make(chan struct{})
	kl.waiters = append(kl.waiters, wait)
	l.mu.Unlock()

	select {
	case <-wait:
		return nil
	case <-ctx.Done():
		l.abandon(key, wait)
		return ctx.Err()
	}
}

// abandon removes a cancelled waiter from the queue. If the grant raced the
// cancellation, the lock is passed on instead.
func (l *Locker) abandon(key string, wait chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[key]
	if !ok {
		return
	}
	for i, w := range kl.waiters {
		if w == wait {
			kl.waiters = append(kl.waiters[:i], kl.waiters[i+1:]...)
			return
		}
	}

	// Not in the queue: the lock was granted concurrently with the
	// cancellation. Hand it to the next waiter or release it.
	l.releaseLocked(key, kl)
}

// Release gives up the lock for key, waking the next waiter if any.
// Returns ErrNotLocked if the key is not held.
func (l *Locker) Release(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[key]
	if !ok || !kl.held {
		return ErrNotLocked
	}
	l.releaseLocked(key, kl)
	return nil
}

// releaseLocked passes the lock to the next waiter or clears the entry.
// Caller holds l.mu.
func (l *Locker) releaseLocked(key string, kl *keyLock) {
	if len(kl.waiters) > 0 {
		next := kl.waiters[0]
		kl.waiters = kl.waiters[1:]
		close(next)
		return
	}
	delete(l.locks, key)
}

// WithLock runs fn while holding the lock for key. The lock is released on
// every exit path, including a panic inside fn.
func (l *Locker) WithLock(ctx context.Context, key string, fn func() error) error {
	if err := l.Acquire(ctx, key); err != nil {
		return err
	}
	defer func() { _ = l.Release(key) }() // held by construction

	return fn()
}
