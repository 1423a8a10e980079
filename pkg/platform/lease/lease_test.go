package lease

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "middleoffice/pkg/domain-errors"
)

func TestShardedSerializesSameKey(t *testing.T) {
	locker := NewSharded(time.Second)
	ctx := context.Background()

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, "655c7c5b037c912bb7ce3973")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			defer release()

			n := atomic.AddInt32(&inside, 1)
			for {
				old := atomic.LoadInt32(&maxSeen)
				if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen, "critical section must never be shared")
}

func TestShardedTimesOutWhileHeld(t *testing.T) {
	locker := NewSharded(20 * time.Millisecond)

	release, err := locker.Acquire(context.Background(), "key")
	require.NoError(t, err)
	defer release()

	_, err = locker.Acquire(context.Background(), "key")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
}

func TestShardedReleaseIsIdempotent(t *testing.T) {
	locker := NewSharded(time.Second)

	release, err := locker.Acquire(context.Background(), "key")
	require.NoError(t, err)
	release()
	release()

	// A double release must not free a slot someone else holds.
	second, err := locker.Acquire(context.Background(), "key")
	require.NoError(t, err)
	defer second()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "key")
	require.Error(t, err)
}

func TestShardedCancelledContext(t *testing.T) {
	locker := NewSharded(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := locker.Acquire(ctx, "key")
	require.Error(t, err)
	assert.Equal(t, "Timeout exception : lease aborted: context cancelled", err.Error())
}
