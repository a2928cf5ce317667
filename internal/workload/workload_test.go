package workload

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/llxisdsh/lphash"
)

func TestGenerate(t *testing.T) {
	n := chunkSize*3 + 17
	a := Generate(7, n)
	b := Generate(7, n)
	require.Len(t, a, n)
	require.Equal(t, a, b, "same seed must give the same workload")
	require.NotEqual(t, a, Generate(8, n))

	distinctKeys := make(map[uint32]struct{}, n)
	for _, kv := range a {
		require.Less(t, kv.Key, lphash.Tombstone)
		require.NotEqual(t, lphash.Empty, kv.Value)
		distinctKeys[kv.Key] = struct{}{}
	}
	require.Greater(t, len(distinctKeys), n*99/100)

	// chunks are seeded independently
	require.NotEqual(t, a[:16], a[chunkSize:chunkSize+16])
	require.Empty(t, Generate(1, 0))
}

func TestSample(t *testing.T) {
	kvs := Generate(3, 1000)
	orig := append([]lphash.KeyValue(nil), kvs...)
	r := rand.New(rand.NewPCG(1, 1))

	s := Sample(r, kvs, 400)
	require.Len(t, s, 400)
	require.Equal(t, orig, kvs, "input must not be modified")

	pos := make(map[lphash.KeyValue]int)
	for _, kv := range kvs {
		pos[kv]++
	}
	for _, kv := range s {
		require.Positive(t, pos[kv], "sampled pair %v not in input", kv)
		pos[kv]--
	}

	require.Len(t, Sample(r, kvs, 5000), 1000)
}

func TestBatches(t *testing.T) {
	kvs := Generate(5, 103)
	batches := Batches(kvs, 10)
	require.Len(t, batches, 10)
	for i, b := range batches {
		require.Len(t, b, 10)
		require.Equal(t, kvs[i*10], b[0])
	}
	require.Nil(t, Batches(kvs, 0))
}

func TestRandomSeed(t *testing.T) {
	require.NotZero(t, RandomSeed())
}
