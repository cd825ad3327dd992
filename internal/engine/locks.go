package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// lockManager serializes access to contended resources: product stock,
// discount usage counters and order totals. Keys are acquired in sorted
// order so two multi-key holders can never deadlock against each other,
// and every acquisition is bounded by the configured wait.
type lockManager struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
	wait  time.Duration
}

func newLockManager(wait time.Duration) *lockManager {
	return &lockManager{
		locks: make(map[string]chan struct{}),
		wait:  wait,
	}
}

func (m *lockManager) chanFor(key string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		m.locks[key] = ch
	}
	return ch
}

// acquire takes every key or none. On timeout it releases what it holds and
// surfaces ResourceBusy for the key it was blocked on.
func (m *lockManager) acquire(ctx context.Context, keys ...string) (release func(), err error) {
	sorted := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	held := make([]chan struct{}, 0, len(sorted))
	releaseHeld := func() {
		for _, ch := range held {
			<-ch
		}
	}

	deadline := time.NewTimer(m.wait)
	defer deadline.Stop()

	for _, key := range sorted {
		ch := m.chanFor(key)
		select {
		case ch <- struct{}{}:
			held = append(held, ch)
		case <-ctx.Done():
			releaseHeld()
			return nil, ctx.Err()
		case <-deadline.C:
			releaseHeld()
			return nil, &ResourceBusy{Resource: key}
		}
	}

	var once sync.Once
	return func() { once.Do(releaseHeld) }, nil
}

func productKey(id uint) string  { return fmt.Sprintf("product:%d", id) }
func discountKey(id uint) string { return fmt.Sprintf("discount:%d", id) }
func orderKey(id uint) string    { return fmt.Sprintf("order:%d", id) }
