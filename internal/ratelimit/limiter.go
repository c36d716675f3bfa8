package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter blocks until the caller may send one more message.
type Limiter interface {
	Wait(ctx context.Context) error
}

const minBackoff = 10 * time.Millisecond

// RedisLimiter spends tokens from a shared redis bucket.
type RedisLimiter struct {
	bucket *TokenBucket
	key    string
	rate   float64
	burst  int
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRedisLimiter allows limit messages per window, bursting up to limit.
func NewRedisLimiter(bucket *TokenBucket, key string, limit int, window time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{
		bucket: bucket,
		key:    key,
		rate:   float64(limit) / window.Seconds(),
		burst:  limit,
		sleep:  sleepCtx,
	}
}

func (l *RedisLimiter) Wait(ctx context.Context) error {
	for {
		res, err := l.bucket.Allow(ctx, l.key, l.rate, l.burst)
		if err != nil {
			return err
		}
		if res.Allowed {
			return nil
		}
		if err := l.sleep(ctx, max(res.RetryAfter, minBackoff)); err != nil {
			return err
		}
	}
}

// WindowLimiter admits at most limit calls per fixed window in this process.
type WindowLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	start  time.Time
	used   int
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &WindowLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

func (l *WindowLimiter) Wait(ctx context.Context) error {
	for {
		wait := l.reserve()
		if wait <= 0 {
			return nil
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// reserve takes a slot in the current window or reports how long until the
// next window opens.
func (l *WindowLimiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.start.IsZero() || now.Sub(l.start) >= l.window {
		l.start = now
		l.used = 0
	}
	if l.used < l.limit {
		l.used++
		return 0
	}
	return l.window - now.Sub(l.start)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
