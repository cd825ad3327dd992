package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockManagerAcquireRelease(t *testing.T) {
	t.Parallel()

	m := newLockManager(time.Second)
	ctx := context.Background()

	release, err := m.acquire(ctx, productKey(1), productKey(2))
	require.NoError(t, err)
	release()

	release, err = m.acquire(ctx, productKey(1))
	require.NoError(t, err)
	release()
}

func TestLockManagerBusy(t *testing.T) {
	t.Parallel()

	m := newLockManager(50 * time.Millisecond)
	ctx := context.Background()

	release, err := m.acquire(ctx, productKey(7))
	require.NoError(t, err)
	defer release()

	_, err = m.acquire(ctx, productKey(7))
	var busy *ResourceBusy
	require.ErrorAs(t, err, &busy)
	assert.Equal(t, "product:7", busy.Resource)
}

func TestLockManagerReleasesPartialOnTimeout(t *testing.T) {
	t.Parallel()

	m := newLockManager(50 * time.Millisecond)
	ctx := context.Background()

	release, err := m.acquire(ctx, productKey(2))
	require.NoError(t, err)
	defer release()

	// Sorted acquisition grabs product:1 first, then times out on product:2
	// and must give product:1 back.
	_, err = m.acquire(ctx, productKey(1), productKey(2))
	var busy *ResourceBusy
	require.ErrorAs(t, err, &busy)

	got, err := m.acquire(ctx, productKey(1))
	require.NoError(t, err)
	got()
}

func TestLockManagerNoDeadlockOnOppositeOrders(t *testing.T) {
	t.Parallel()

	m := newLockManager(2 * time.Second)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				keys := []string{productKey(1), productKey(2)}
				if i == 1 {
					keys[0], keys[1] = keys[1], keys[0]
				}
				release, err := m.acquire(ctx, keys...)
				if assert.NoError(t, err) {
					release()
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("lock manager deadlocked")
	}
}

func TestLockManagerContextCancelled(t *testing.T) {
	t.Parallel()

	m := newLockManager(time.Minute)

	release, err := m.acquire(context.Background(), discountKey(1))
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.acquire(ctx, discountKey(1))
	require.ErrorIs(t, err, context.Canceled)
}

func TestLockManagerDuplicateKeys(t *testing.T) {
	t.Parallel()

	m := newLockManager(time.Second)
	release, err := m.acquire(context.Background(), productKey(3), productKey(3))
	require.NoError(t, err)
	release()
}
