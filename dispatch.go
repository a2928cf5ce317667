package lphash

import (
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Dispatcher runs a kernel over the items of a batch. Each call to kernel
// handles the half-open range [start, end); calls may run concurrently and
// in any order. Dispatch returns only after every range is done.
type Dispatcher interface {
	Dispatch(items int, kernel func(start, end int))
}

// GoDispatcher returns a Dispatcher that starts one goroutine per chunk,
// with as many chunks as GOMAXPROCS allows.
func GoDispatcher() Dispatcher {
	return goDispatcher{}
}

type goDispatcher struct{}

func (goDispatcher) Dispatch(items int, kernel func(start, end int)) {
	chunkSize, chunks := calcParallelism(items, minParallelBatchItems, runtime.GOMAXPROCS(0))
	if chunks > 1 {
		var wg sync.WaitGroup
		wg.Add(chunks)
		for i := 0; i < chunks; i++ {
			go func(start, end int) {
				defer wg.Done()
				kernel(start, end)
			}(i*chunkSize, min((i+1)*chunkSize, items))
		}
		wg.Wait()
		return
	}

	// Serial processing
	kernel(0, items)
}

// SerialDispatcher returns a Dispatcher that runs every batch on the
// calling goroutine.
func SerialDispatcher() Dispatcher {
	return serialDispatcher{}
}

type serialDispatcher struct{}

func (serialDispatcher) Dispatch(items int, kernel func(start, end int)) {
	kernel(0, items)
}

// PoolDispatcher runs chunks on a shared ants worker pool, so that many
// tables or frequent small batches reuse the same goroutines.
type PoolDispatcher struct {
	pool *ants.Pool
}

// NewPoolDispatcher wraps pool. The pool should be blocking (the ants
// default); chunks rejected by the pool run on the caller.
func NewPoolDispatcher(pool *ants.Pool) *PoolDispatcher {
	return &PoolDispatcher{pool: pool}
}

func (d *PoolDispatcher) Dispatch(items int, kernel func(start, end int)) {
	chunkSize, chunks := calcParallelism(items, minParallelBatchItems, max(d.pool.Cap(), 1))
	if chunks <= 1 {
		kernel(0, items)
		return
	}

	var wg sync.WaitGroup
	wg.Add(chunks)
	for i := 0; i < chunks; i++ {
		start, end := i*chunkSize, min((i+1)*chunkSize, items)
		if err := d.pool.Submit(func() {
			defer wg.Done()
			kernel(start, end)
		}); err != nil {
			kernel(start, end)
			wg.Done()
		}
	}
	wg.Wait()
}

// calcParallelism calculates the number of goroutines for parallel processing.
//
// Parameters:
//   - items: Number of items to process.
//   - threshold: Minimum threshold to enable parallel processing.
//   - cpus: number of available CPU cores
//
// Returns:
//   - chunkSize: Number of items processed per goroutine
//   - chunks: Suggested degree of parallelism (number of goroutines).
func calcParallelism(items, threshold, cpus int) (chunkSize, chunks int) {
	// If the items is too small, use single-threaded processing.
	if items <= threshold {
		return items, 1
	}

	chunks = min(items/threshold, cpus)
	chunkSize = (items + chunks - 1) / chunks
	// ceil division can leave trailing chunks empty
	chunks = (items + chunkSize - 1) / chunkSize

	return chunkSize, chunks
}
