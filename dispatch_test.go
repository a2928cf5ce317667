package lphash

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/panjf2000/ants/v2"
)

func TestCalcParallelism(t *testing.T) {
	for _, c := range []struct {
		items, threshold, cpus int
		chunkSize, chunks      int
	}{
		{0, 256, 8, 0, 1},
		{100, 256, 8, 100, 1},
		{256, 256, 8, 256, 1},
		{1024, 256, 8, 256, 4},
		{1 << 20, 256, 8, 1 << 17, 8},
		{1000, 256, 1, 1000, 1},
		{1025, 256, 4, 257, 4},
	} {
		chunkSize, chunks := calcParallelism(c.items, c.threshold, c.cpus)
		if chunkSize != c.chunkSize || chunks != c.chunks {
			t.Fatalf("calcParallelism(%d, %d, %d) = %d, %d; want %d, %d",
				c.items, c.threshold, c.cpus, chunkSize, chunks, c.chunkSize, c.chunks)
		}
	}
}

// checkCoverage dispatches n items and verifies every index is visited
// exactly once.
func checkCoverage(t *testing.T, d Dispatcher, n int) {
	t.Helper()
	visits := make([]int32, n)
	d.Dispatch(n, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&visits[i], 1)
		}
	})
	for i, v := range visits {
		if v != 1 {
			t.Fatalf("item %d visited %d times", i, v)
		}
	}
}

func TestDispatchers_Coverage(t *testing.T) {
	pool, err := ants.NewPool(4)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	defer pool.Release()

	for _, d := range []struct {
		name string
		d    Dispatcher
	}{
		{"go", GoDispatcher()},
		{"serial", SerialDispatcher()},
		{"pool", NewPoolDispatcher(pool)},
	} {
		t.Run(d.name, func(t *testing.T) {
			for _, n := range []int{0, 1, 255, 256, 257, 1000, 100000, 123457} {
				checkCoverage(t, d.d, n)
			}
		})
	}
}

func TestPoolDispatcher_ReleasedPool(t *testing.T) {
	pool, err := ants.NewPool(2)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	pool.Release()
	// submissions fail and run on the caller instead
	checkCoverage(t, NewPoolDispatcher(pool), 10000)
}

func TestPoolDispatcher_SharedByTables(t *testing.T) {
	pool, err := ants.NewPool(8)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	defer pool.Release()
	d := NewPoolDispatcher(pool)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(base uint32) {
			defer wg.Done()
			tbl, err := New(1<<12, 0.75, WithDispatcher(d))
			if err != nil {
				t.Errorf("new: %v", err)
				return
			}
			kvs := make([]KeyValue, 20000)
			for i := range kvs {
				kvs[i] = KeyValue{Key: base<<24 | uint32(i), Value: uint32(i)}
			}
			if _, err := tbl.Insert(kvs); err != nil {
				t.Errorf("insert: %v", err)
				return
			}
			q := keysOf(kvs)
			tbl.Lookup(q)
			for i := range q {
				if q[i].Value != uint32(i) {
					t.Errorf("key %d got %d", q[i].Key, q[i].Value)
					return
				}
			}
		}(uint32(g))
	}
	wg.Wait()
}
