package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBucket(t *testing.T) (*miniredis.Miniredis, *TokenBucket) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewTokenBucket(client)
}

func TestTokenBucketSpendsBurstThenBlocks(t *testing.T) {
	mr, bucket := newBucket(t)
	mr.SetTime(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := bucket.Allow(ctx, "k", 1, 3)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "call %d", i)
	}

	res, err := bucket.Allow(ctx, "k", 1, 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, res.RetryAfter, time.Second)

	mr.SetTime(time.Date(2024, 1, 1, 9, 0, 2, 0, time.UTC))
	res, err = bucket.Allow(ctx, "k", 1, 3)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestTokenBucketValidatesInput(t *testing.T) {
	_, bucket := newBucket(t)
	ctx := context.Background()

	_, err := bucket.Allow(ctx, "", 1, 1)
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = bucket.Allow(ctx, "k", 0, 1)
	assert.ErrorIs(t, err, ErrInvalidRate)

	var nilBucket *TokenBucket
	_, err = nilBucket.Allow(ctx, "k", 1, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestRedisLimiterWaitsForRefill(t *testing.T) {
	mr, bucket := newBucket(t)
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	mr.SetTime(base)

	limiter := NewRedisLimiter(bucket, "reminder", 2, time.Minute)
	var slept []time.Duration
	limiter.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		mr.SetTime(base.Add(time.Minute))
		return nil
	}

	ctx := context.Background()
	require.NoError(t, limiter.Wait(ctx))
	require.NoError(t, limiter.Wait(ctx))
	assert.Empty(t, slept)

	require.NoError(t, limiter.Wait(ctx))
	require.Len(t, slept, 1)
	assert.Greater(t, slept[0], time.Duration(0))
}

func TestWindowLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewWindowLimiter(2, time.Minute)
	limiter.now = func() time.Time { return now }
	var slept []time.Duration
	limiter.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		now = now.Add(d)
		return nil
	}

	ctx := context.Background()
	require.NoError(t, limiter.Wait(ctx))
	now = now.Add(10 * time.Second)
	require.NoError(t, limiter.Wait(ctx))
	require.NoError(t, limiter.Wait(ctx))

	assert.Equal(t, []time.Duration{50 * time.Second}, slept)
}

func TestWindowLimiterHonorsContext(t *testing.T) {
	limiter := NewWindowLimiter(1, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, limiter.Wait(ctx))

	cancel()
	assert.ErrorIs(t, limiter.Wait(ctx), context.Canceled)
}

type countingLimiter struct {
	calls  int
	failAt int
}

func (c *countingLimiter) Wait(context.Context) error {
	c.calls++
	if c.failAt > 0 && c.calls == c.failAt {
		return context.DeadlineExceeded
	}
	return nil
}

func TestSendWithRateLimit(t *testing.T) {
	limiter := &countingLimiter{}
	var seen []Progress

	progress, err := SendWithRateLimit(context.Background(), limiter, []int{1, 2, 3, 4},
		func(_ context.Context, n int) error {
			if n == 3 {
				return errors.New("gateway rejected")
			}
			return nil
		},
		Options{OnProgress: func(p Progress) { seen = append(seen, p) }},
	)
	require.NoError(t, err)
	assert.Equal(t, Progress{Total: 4, Done: 4, Sent: 3, Failed: 1}, progress)
	assert.Equal(t, 4, limiter.calls)
	require.Len(t, seen, 4)
	assert.Equal(t, 2, seen[1].Done)
}

func TestSendWithRateLimitStopsWhenLimiterFails(t *testing.T) {
	limiter := &countingLimiter{failAt: 2}
	var sent []string

	progress, err := SendWithRateLimit(context.Background(), limiter, []string{"a", "b", "c"},
		func(_ context.Context, s string) error {
			sent = append(sent, s)
			return nil
		},
		Options{},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"a"}, sent)
	assert.Equal(t, 1, progress.Sent)
}
