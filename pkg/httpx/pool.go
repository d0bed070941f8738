package httpx

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunBounded runs fn(i) for i in [0, n) with at most limit goroutines active
// at once, stopping at the first error per errgroup's convention. Used for
// the dedup-query, xorb-upload, and range-fetch fan-outs of §4.8/§4.9/§5.
func RunBounded(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) error {
	if limit <= 0 {
		limit = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return fn(ctx, i)
		})
	}
	return g.Wait()
}
