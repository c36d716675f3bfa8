package ratelimit

import (
	"context"
	"fmt"
)

// Progress is reported after every item.
type Progress struct {
	Total  int
	Done   int
	Sent   int
	Failed int
}

type Options struct {
	OnProgress func(Progress)
}

// SendWithRateLimit calls fn for each item, waiting on the limiter before
// every call. Item errors are counted and do not stop the batch. It stops
// early only when the limiter fails, which includes ctx ending.
func SendWithRateLimit[T any](ctx context.Context, limiter Limiter, items []T, fn func(ctx context.Context, item T) error, opts Options) (Progress, error) {
	progress := Progress{Total: len(items)}
	for _, item := range items {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return progress, fmt.Errorf("rate limiter wait: %w", err)
			}
		}

		if err := fn(ctx, item); err != nil {
			progress.Failed++
		} else {
			progress.Sent++
		}
		progress.Done++

		if opts.OnProgress != nil {
			opts.OnProgress(progress)
		}
	}
	return progress, nil
}
