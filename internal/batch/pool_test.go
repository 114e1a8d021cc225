package batch

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okMigrate(_ context.Context, path string) Item {
	return Item{Path: path}
}

func TestPoolKeepsInputOrder(t *testing.T) {
	pool := newWorkerPool(4)

	paths := make([]string, 20)
	for i := range paths {
		paths[i] = fmt.Sprintf("doc_%02d.bpmn", i)
	}

	items := pool.run(context.Background(), paths, func(ctx context.Context, path string) Item {
		time.Sleep(time.Millisecond) // let workers finish out of order
		return Item{Path: path}
	})

	require.Len(t, items, len(paths))
	for i, item := range items {
		assert.Equal(t, paths[i], item.Path)
	}
	m := pool.snapshot()
	assert.EqualValues(t, 20, m.Completed)
	assert.Zero(t, m.Failed)
	assert.Zero(t, m.Active)
}

func TestPoolCountsFailedDocuments(t *testing.T) {
	pool := newWorkerPool(2)

	items := pool.run(context.Background(), []string{"a", "b", "c"}, func(ctx context.Context, path string) Item {
		if path == "b" {
			return Item{Path: path, Error: "unreadable"}
		}
		return Item{Path: path}
	})

	require.Len(t, items, 3)
	assert.Empty(t, items[0].Error)
	assert.Equal(t, "unreadable", items[1].Error)

	m := pool.snapshot()
	assert.EqualValues(t, 2, m.Completed)
	assert.EqualValues(t, 1, m.Failed)
}

func TestPoolRecoversPanickingMigration(t *testing.T) {
	pool := newWorkerPool(2)

	items := pool.run(context.Background(), []string{"fine", "bad", "fine2"}, func(ctx context.Context, path string) Item {
		if path == "bad" {
			panic("corrupt document")
		}
		return Item{Path: path}
	})

	require.Len(t, items, 3)
	assert.Contains(t, items[1].Error, "panicked")
	assert.Contains(t, items[1].Error, "corrupt document")
	assert.Empty(t, items[0].Error)
	assert.Empty(t, items[2].Error)

	m := pool.snapshot()
	assert.EqualValues(t, 1, m.Panics)
	assert.EqualValues(t, 1, m.Failed)
	assert.EqualValues(t, 2, m.Completed)
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := newWorkerPool(2)

	var active, peak int64
	paths := make([]string, 12)
	for i := range paths {
		paths[i] = fmt.Sprintf("p%d", i)
	}

	pool.run(context.Background(), paths, func(ctx context.Context, path string) Item {
		cur := atomic.AddInt64(&active, 1)
		for {
			prev := atomic.LoadInt64(&peak)
			if cur <= prev || atomic.CompareAndSwapInt64(&peak, prev, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&active, -1)
		return Item{Path: path}
	})

	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
}

func TestPoolCancellationFailsUnstartedWork(t *testing.T) {
	pool := newWorkerPool(1)
	ctx, cancel := context.WithCancel(context.Background())

	items := pool.run(ctx, []string{"first", "second", "third"}, func(ctx context.Context, path string) Item {
		cancel()
		// Hold the only slot so the remaining paths see the cancelled
		// context while waiting.
		time.Sleep(30 * time.Millisecond)
		return Item{Path: path}
	})

	require.Len(t, items, 3)
	assert.Empty(t, items[0].Error, "work already running finishes")
	assert.Contains(t, items[1].Error, "context canceled")
	assert.Contains(t, items[2].Error, "context canceled")
	assert.EqualValues(t, 2, pool.snapshot().Failed)
}
