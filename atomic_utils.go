package lphash

import "sync/atomic"

// Slot key transitions always go through compare-and-swap: it is the only
// synchronization between lanes of the same batch. Values are published
// with a relaxed store after the key is claimed, so two lanes writing the
// same key race on the value and one of them wins.

// claimKey moves an Empty slot to key.
//
//go:nosplit
func (kv *KeyValue) claimKey(key uint32) bool {
	return atomic.CompareAndSwapUint32(&kv.Key, Empty, key)
}

// releaseKey moves a slot holding key to marker (Empty or Tombstone).
//
//go:nosplit
func (kv *KeyValue) releaseKey(key, marker uint32) bool {
	return atomic.CompareAndSwapUint32(&kv.Key, key, marker)
}

// syncKey reads the key while other lanes may be claiming slots.
//
//go:nosplit
func (kv *KeyValue) syncKey() uint32 {
	return atomic.LoadUint32(&kv.Key)
}

// loadKey reads the key when no lane of the current batch changes keys.
//
//go:nosplit
func (kv *KeyValue) loadKey() uint32 {
	return loadUint32(&kv.Key)
}

//go:nosplit
func (kv *KeyValue) loadValue() uint32 {
	return loadUint32(&kv.Value)
}

//go:nosplit
func (kv *KeyValue) storeValue(v uint32) {
	storeUint32(&kv.Value, v)
}
