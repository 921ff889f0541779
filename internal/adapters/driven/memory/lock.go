package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/rag-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// Lock implements driven.DistributedLock in process memory. It provides the
// same mutual exclusion semantics within one process; multi-instance
// deployments need the Redis lock.
type Lock struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

// NewLock creates an in-process lock.
func NewLock() *Lock {
	return &Lock{
		locks: make(map[string]time.Time),
	}
}

// Acquire attempts to acquire a named lock with the given TTL.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, held := l.locks[name]; held && time.Now().Before(expiry) {
		return false, nil
	}
	l.locks[name] = time.Now().Add(ttl)
	return true, nil
}

// Release releases a named lock. Safe to call when not held.
func (l *Lock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.locks, name)
	return nil
}

// Extend extends the TTL of a currently held lock.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry, held := l.locks[name]
	if !held || time.Now().After(expiry) {
		return fmt.Errorf("lock %s not held", name)
	}
	l.locks[name] = time.Now().Add(ttl)
	return nil
}

// Ping reports backend health; the in-process lock is always healthy.
func (l *Lock) Ping(ctx context.Context) error {
	return nil
}
