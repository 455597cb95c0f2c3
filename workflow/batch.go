package workflow

import (
	"context"
	"sync"

	"github.com/cwbudde/algo-peaks/core"
	"github.com/cwbudde/algo-peaks/curve"
)

// BatchItem pairs one result slot with the error of its run.
type BatchItem struct {
	Result *Result
	Err    error
}

// RunBatch analyzes independent curves on a fixed-size worker pool. No
// two curves share mutable state, so the workers need no locking beyond
// the read-only registry. Results are indexed like the input; a cancelled
// context stops workers at the next stage boundary and marks unprocessed
// curves with the context error.
func (wc *Controller) RunBatch(ctx context.Context, curves []*curve.Curve, workers int) ([]BatchItem, error) {
	if workers <= 0 {
		return nil, core.ConfigErrorf("worker count must be > 0: %d", workers)
	}

	if len(curves) == 0 {
		return nil, nil
	}

	if workers > len(curves) {
		workers = len(curves)
	}

	items := make([]BatchItem, len(curves))
	jobs := make(chan int)

	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobs {
				res, err := wc.Run(ctx, curves[i], nil)
				items[i] = BatchItem{Result: res, Err: err}
			}
		}()
	}

feed:
	for i := range curves {
		select {
		case jobs <- i:
		case <-ctx.Done():
			for j := i; j < len(curves); j++ {
				if items[j].Result == nil && items[j].Err == nil {
					items[j].Err = ctx.Err()
				}
			}

			break feed
		}
	}

	close(jobs)
	wg.Wait()

	return items, nil
}
