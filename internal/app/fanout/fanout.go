// Package fanout runs a function across a slice of items with bounded
// concurrency, preserving input order in the results. Each item is bounded
// by its own optional timeout, and a panic inside the function fails that
// item only — the helper is used for dashboard-style aggregation where one
// slow or broken source must degrade its own section, never the whole call.
package fanout

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Result holds the outcome of processing a single item. Either Value is
// populated (on success) or Err is non-nil (on failure).
type Result[R any] struct {
	Value R
	Err   error
}

// Run executes fn for each item using at most maxWorkers concurrent
// goroutines. Results are returned in input order. When perItem is
// positive, each invocation of fn runs under its own deadline; a lapsed
// deadline is recorded as that item's error and does not affect siblings.
//
// A goroutine still waiting for a worker slot when ctx ends records
// ctx.Err() without calling fn. A panic inside fn is captured as that
// item's error. Run blocks until every item has an outcome; an empty input
// returns an empty non-nil slice.
//
// maxWorkers must be >= 1.
func Run[T, R any](ctx context.Context, maxWorkers int, perItem time.Duration, items []T, fn func(context.Context, T) (R, error)) []Result[R] {
	if len(items) == 0 {
		return []Result[R]{}
	}

	results := make([]Result[R], len(items))
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(idx int, it T) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = Result[R]{Err: ctx.Err()}
				return
			}

			results[idx] = invoke(ctx, perItem, it, fn)
		}(i, item)
	}

	wg.Wait()
	return results
}

// invoke runs fn for one item under its per-item deadline with a recover
// boundary.
func invoke[T, R any](ctx context.Context, perItem time.Duration, item T, fn func(context.Context, T) (R, error)) (res Result[R]) {
	if perItem > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, perItem)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result[R]{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	val, err := fn(ctx, item)
	return Result[R]{Value: val, Err: err}
}
