package concurrent

import (
	"errors"

	"golang.org/x/sync/errgroup"
)

// ForEach runs action for each element of items on at most workers goroutines and
// waits for all of them. Every element is visited even if some fail; the errors
// are joined in element order. workers < 2 runs sequentially on the caller's
// goroutine.
func ForEach[T any](items []T, workers int, action func(int, T) error) error {
	errs := make([]error, len(items))
	if workers < 2 || len(items) < 2 {
		for i, v := range items {
			errs[i] = action(i, v)
		}
		return errors.Join(errs...)
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, v := range items {
		g.Go(func() error {
			errs[i] = action(i, v)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

