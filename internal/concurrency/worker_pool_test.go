package concurrency

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForEachVisitsEveryIndex(t *testing.T) {
	seen := make([]int32, 100)
	ForEach(context.Background(), 8, len(seen), func(_ context.Context, i int) {
		atomic.AddInt32(&seen[i], 1)
	})
	for i, n := range seen {
		assert.EqualValues(t, 1, n, "index %d", i)
	}
}

func TestForEachBoundsWorkers(t *testing.T) {
	var running, peak int32
	ForEach(context.Background(), 3, 50, func(_ context.Context, _ int) {
		cur := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		atomic.AddInt32(&running, -1)
	})
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestForEachStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls int32
	ForEach(ctx, 1, 1000, func(_ context.Context, _ int) {
		atomic.AddInt32(&calls, 1)
	})
	assert.Less(t, atomic.LoadInt32(&calls), int32(1000))
}

func TestForEachNoTasks(t *testing.T) {
	ForEach(context.Background(), 4, 0, func(_ context.Context, _ int) {
		t.Fatal("unexpected call")
	})
}
