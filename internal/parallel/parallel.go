// Package parallel runs index-addressed work on a bounded set of goroutines.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Workers normalizes a configured worker count: values <= 0 mean one
// worker per CPU.
func Workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// For calls fn(i) for every i in [0, n) using at most workers goroutines.
// Indices are handed out in contiguous batches; fn must only write state
// owned by index i. The first error cancels the remaining batches and is
// returned. Cancellation of ctx is reported as ctx.Err().
func For(ctx context.Context, workers, n int, fn func(i int) error) error {
	workers = Workers(workers)
	if n <= 0 {
		return ctx.Err()
	}

	if workers == 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	batches := workers * 4
	if batches > n {
		batches = n
	}
	size := (n + batches - 1) / batches

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := fn(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
