//go:build !race

package lphash

import (
	"runtime"
	"sync/atomic"
)

// Detect TSO architectures; on TSO, plain reads/writes are safe for
// native word-sized integers
const isTSO = runtime.GOARCH == "amd64" ||
	runtime.GOARCH == "386" ||
	runtime.GOARCH == "s390x"

// Aligned uint32 load; plain on TSO, otherwise atomic
//
//go:nosplit
func loadUint32(addr *uint32) uint32 {
	//goland:noinspection ALL
	if isTSO {
		return *addr
	} else {
		return atomic.LoadUint32(addr)
	}
}

// Aligned uint32 store; plain on TSO, otherwise atomic
//
//go:nosplit
func storeUint32(addr *uint32, val uint32) {
	//goland:noinspection ALL
	if isTSO {
		*addr = val
	} else {
		atomic.StoreUint32(addr, val)
	}
}
