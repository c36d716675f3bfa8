// Package workpool runs per-item work with bounded concurrency. Item
// failures are the callback's concern; only cancellation stops the loop.
package workpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEach calls fn for every item, at most limit at a time. A limit of one
// or less runs the items sequentially in order. It returns ctx.Err() if the
// context ends before every item was started.
func ForEach[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T)) error {
	if limit <= 1 {
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(ctx, item)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(gctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}
