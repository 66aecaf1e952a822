package convlock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLockSerializesSameKey(t *testing.T) {
	k := New(0)
	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := k.Lock(context.Background(), "conv-1")
			require.NoError(t, err)
			defer release()

			n := atomic.AddInt32(&active, 1)
			for {
				cur := atomic.LoadInt32(&maxActive)
				if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
}

func TestKeyedLockDifferentKeysRunConcurrently(t *testing.T) {
	k := New(0)
	release1, err := k.Lock(context.Background(), "conv-1")
	require.NoError(t, err)
	defer release1()

	done := make(chan struct{})
	go func() {
		release2, err := k.Lock(context.Background(), "conv-2")
		require.NoError(t, err)
		release2()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key should not block")
	}
}

func TestKeyedLockRespectsContextCancellation(t *testing.T) {
	k := New(0)
	release, err := k.Lock(context.Background(), "conv-1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = k.Lock(ctx, "conv-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKeyedLockQueueFull(t *testing.T) {
	k := New(2) // holder + one waiter fill the queue
	release, err := k.Lock(context.Background(), "conv-1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	go k.Lock(ctx, "conv-1") //nolint:errcheck

	time.Sleep(20 * time.Millisecond) // let the waiter register itself
	_, err = k.Lock(context.Background(), "conv-1")
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestKeyedLockEntryIsGarbageCollectedAfterRelease(t *testing.T) {
	k := New(0)
	release, err := k.Lock(context.Background(), "conv-1")
	require.NoError(t, err)
	release()

	k.mu.Lock()
	_, exists := k.entries["conv-1"]
	k.mu.Unlock()
	assert.False(t, exists)
}
