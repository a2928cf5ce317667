// Package workload generates the random key-value batches fed to the
// table by lphtbench.
package workload

import (
	"math/rand/v2"
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"github.com/llxisdsh/lphash"
)

// chunkSize is the number of pairs generated by one goroutine.
const chunkSize = 1 << 16

// Generate returns n pairs with keys drawn uniformly from
// [0, lphash.Tombstone), so that no key is reserved in either delete mode,
// and values from [0, lphash.Empty). Keys may repeat. The output depends only on seed
// and n: every chunk of the output has its own generator seeded from
// seed and the chunk index.
func Generate(seed uint64, n int) []lphash.KeyValue {
	kvs := make([]lphash.KeyValue, n)
	p := pool.New().WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for start := 0; start < n; start += chunkSize {
		chunk := kvs[start:min(start+chunkSize, n)]
		stream := uint64(start / chunkSize)
		p.Go(func() {
			r := rand.New(rand.NewPCG(seed, stream))
			for i := range chunk {
				chunk[i] = lphash.KeyValue{
					Key:   r.Uint32N(lphash.Tombstone),
					Value: r.Uint32N(lphash.Empty),
				}
			}
		})
	}
	p.Wait()
	return kvs
}

// Sample returns n pairs picked from kvs without repetition of positions,
// in random order. kvs is not modified.
func Sample(r *rand.Rand, kvs []lphash.KeyValue, n int) []lphash.KeyValue {
	n = min(n, len(kvs))
	shuffled := make([]lphash.KeyValue, len(kvs))
	copy(shuffled, kvs)
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n:n]
}

// Batches splits kvs into count equal batches. Trailing pairs that do
// not fill a whole batch are dropped.
func Batches(kvs []lphash.KeyValue, count int) [][]lphash.KeyValue {
	if count <= 0 {
		return nil
	}
	size := len(kvs) / count
	batches := make([][]lphash.KeyValue, count)
	for i := range batches {
		batches[i] = kvs[i*size : (i+1)*size : (i+1)*size]
	}
	return batches
}

// RandomSeed returns a non-zero seed for runs that did not ask for a
// fixed one.
func RandomSeed() uint64 {
	for {
		if s := rand.Uint64(); s != 0 {
			return s
		}
	}
}
