package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// PoolMetrics counts document outcomes across one pool run.
type PoolMetrics struct {
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Panics    int64 `json:"panics"`
}

// migrateFunc produces the outcome for a single document path.
type migrateFunc func(ctx context.Context, path string) Item

// workerPool fans document paths out over a bounded set of goroutines and
// collects one Item per path in input order, so batch output is reproducible
// regardless of worker scheduling. A panicking migration becomes a failed
// Item instead of tearing down the batch.
type workerPool struct {
	size    int
	metrics PoolMetrics
}

func newWorkerPool(size int) *workerPool {
	if size <= 0 {
		size = 1
	}
	return &workerPool{size: size}
}

// run migrates every path with at most size concurrent workers. Paths not
// yet started when ctx is cancelled are recorded as failed Items; migrations
// already running are left to finish.
func (p *workerPool) run(ctx context.Context, paths []string, migrate migrateFunc) []Item {
	items := make([]Item, len(paths))
	sem := make(chan struct{}, p.size)
	var wg sync.WaitGroup

	for i, path := range paths {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			items[i] = Item{Path: path, Error: ctx.Err().Error()}
			atomic.AddInt64(&p.metrics.Failed, 1)
			continue
		}

		wg.Add(1)
		go func(i int, path string) {
			// Each worker owns items[i]; the slot assignment needs no lock.
			defer func() {
				if r := recover(); r != nil {
					atomic.AddInt64(&p.metrics.Panics, 1)
					atomic.AddInt64(&p.metrics.Failed, 1)
					items[i] = Item{Path: path, Error: fmt.Sprintf("migration panicked: %v", r)}
				}
				atomic.AddInt64(&p.metrics.Active, -1)
				<-sem
				wg.Done()
			}()

			atomic.AddInt64(&p.metrics.Active, 1)
			item := migrate(ctx, path)
			if item.Error != "" {
				atomic.AddInt64(&p.metrics.Failed, 1)
			} else {
				atomic.AddInt64(&p.metrics.Completed, 1)
			}
			items[i] = item
		}(i, path)
	}

	wg.Wait()
	return items
}

// snapshot returns the current pool counters.
func (p *workerPool) snapshot() PoolMetrics {
	return PoolMetrics{
		Active:    atomic.LoadInt64(&p.metrics.Active),
		Completed: atomic.LoadInt64(&p.metrics.Completed),
		Failed:    atomic.LoadInt64(&p.metrics.Failed),
		Panics:    atomic.LoadInt64(&p.metrics.Panics),
	}
}
