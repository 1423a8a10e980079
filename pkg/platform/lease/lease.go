// Package lease provides per-key mutual exclusion for read-then-transition
// sequences on a single record.
//
// Two implementations exist: Sharded serializes keys inside one process and
// Redis serializes keys across replicas sharing a Redis instance.
package lease

import (
	"context"
	"sync"
	"time"

	dErrors "middleoffice/pkg/domain-errors"
)

// Release gives the lease back. It is safe to call more than once.
type Release func()

// Locker hands out exclusive leases keyed by record identifier.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

const numShards = 128

// defaultAcquireTimeout bounds lease acquisition when the caller set no deadline.
const defaultAcquireTimeout = 5 * time.Second

// Sharded distributes keys over a fixed set of in-process slots. Two keys in
// the same slot serialize with each other, which is acceptable for short
// critical sections.
type Sharded struct {
	shards  [numShards]chan struct{}
	timeout time.Duration
}

// NewSharded creates an in-process locker. A zero timeout uses the default.
func NewSharded(timeout time.Duration) *Sharded {
	if timeout <= 0 {
		timeout = defaultAcquireTimeout
	}
	s := &Sharded{timeout: timeout}
	for i := range s.shards {
		s.shards[i] = make(chan struct{}, 1)
	}
	return s
}

func (s *Sharded) Acquire(ctx context.Context, key string) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "lease aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	slot := s.shards[hashKey(key)%numShards]
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "lease aborted: context cancelled")
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-slot })
	}, nil
}

// hashKey is FNV-1a.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
