package lphash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// HashFunc maps a key to a 32-bit hash. The table reduces it to a slot
// with hash & (capacity-1), so the low bits must be well mixed.
type HashFunc func(key uint32) uint32

// Murmur3Hash is the 32-bit MurmurHash3 finalizer. It is a bijection on
// uint32 with full avalanche, which makes it a good fit for mask
// reduction. It is the default hasher.
//
//go:nosplit
func Murmur3Hash(key uint32) uint32 {
	key ^= key >> 16
	key *= 0x85ebca6b
	key ^= key >> 13
	key *= 0xc2b2ae35
	key ^= key >> 16
	return key
}

// GoldenHash is Fibonacci hashing: multiply by floor(2^32/φ) and
// keep the high bits folded into the low ones.
//
//go:nosplit
func GoldenHash(key uint32) uint32 {
	h := key * hashPrime32
	return h ^ (h >> 16)
}

// XXHash hashes the little-endian bytes of key with xxHash64.
func XXHash(key uint32) uint32 {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], key)
	return uint32(xxhash.Sum64(b[:]))
}

// hashPrime32 is the 32-bit Golden Ratio mixing constant.
// 0x9E3779B9 = floor(2^32 / φ), where φ is the golden ratio.
const hashPrime32 = 0x9E3779B9

// home returns the first slot of key's probe sequence.
//
//go:nosplit
func (st *slotTable) home(hash HashFunc, key uint32) uint32 {
	return hash(key) & st.mask
}
