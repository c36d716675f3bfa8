package workpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEachSequentialKeepsOrder(t *testing.T) {
	var got []int
	err := ForEach(context.Background(), 1, []int{1, 2, 3}, func(_ context.Context, v int) {
		got = append(got, v)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestForEachBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	var mu sync.Mutex
	seen := map[int]bool{}

	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}
	err := ForEach(context.Background(), 3, items, func(_ context.Context, v int) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		mu.Lock()
		seen[v] = true
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Len(t, seen, 20)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestForEachStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := ForEach(ctx, 1, []int{1, 2, 3}, func(_ context.Context, _ int) {
		calls++
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
