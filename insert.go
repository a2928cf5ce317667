package lphash

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Insert upserts every pair of kvs in one parallel pass and returns the
// time the batch took.
//
// A new key claims the first Empty slot of its probe sequence; a key that
// is already present gets its value overwritten. For duplicate keys inside
// kvs, the value written last by some lane wins.
//
// Errors:
//   - ErrInvalidKey: kvs contains a reserved key. Nothing is written.
//   - ErrTableFull: some pairs found neither their key nor an Empty slot
//     anywhere in the table. The other pairs are stored. Resize and retry
//     the unplaced pairs.
//
// When the resize threshold is below 1 the table grows before the batch if
// the batch could push occupancy past the threshold, and checks again
// after it.
func (t *Table) Insert(kvs []KeyValue) (time.Duration, error) {
	start := t.clock.Now()
	st := t.table.Load()
	if st == nil {
		return 0, ErrDestroyed
	}
	for i := range kvs {
		if t.reserved(kvs[i].Key) {
			return t.since(start), errors.Wrapf(ErrInvalidKey, "pair %d has key %#x", i, kvs[i].Key)
		}
	}
	if len(kvs) == 0 {
		return t.since(start), nil
	}

	if t.autoGrow() {
		var err error
		if st, err = t.preGrow(st, len(kvs)); err != nil {
			return t.since(start), err
		}
	}

	if failed := t.insertBatch(st, kvs); failed != 0 {
		elapsed := t.since(start)
		t.metrics.observeBatch(opInsert, len(kvs), elapsed)
		t.metrics.observeTableFull()
		t.logger.Warn("insert batch overflowed table",
			zap.Int("unplaced", failed),
			zap.Int("batch", len(kvs)),
			zap.Int("capacity", st.capacity()))
		return elapsed, errors.Wrapf(ErrTableFull,
			"%d of %d pairs not placed in %d slots", failed, len(kvs), st.capacity())
	}

	if t.autoGrow() {
		if _, err := t.CheckAndMaybeResize(); err != nil {
			return t.since(start), err
		}
	}

	elapsed := t.since(start)
	t.metrics.observeBatch(opInsert, len(kvs), elapsed)
	t.metrics.observeTable(t.table.Load())
	return elapsed, nil
}

// preGrow grows the table until the batch fits below the threshold,
// assuming every pair of the batch is a new key. When live keys fit but
// tombstones would push the used slots past the threshold, it rehashes
// at the same capacity.
func (t *Table) preGrow(st *slotTable, batch int) (*slotTable, error) {
	need := float64(st.occupied.Load() + int64(batch))
	newCap := st.capacity()
	for need > float64(newCap)*t.threshold && newCap <= maxCapacity/t.growFactor {
		newCap *= t.growFactor
	}
	if newCap != st.capacity() {
		return t.rehash(st, newCap)
	}
	if float64(st.used()+int64(batch)) > float64(newCap)*t.threshold && st.tombstones.Load() != 0 {
		return t.rehash(st, newCap)
	}
	return st, nil
}

// insertBatch dispatches the insert kernel over kvs and returns how many
// pairs could not be placed.
func (t *Table) insertBatch(st *slotTable, kvs []KeyValue) int {
	var failed atomic.Int64
	t.dispatcher.Dispatch(len(kvs), func(start, end int) {
		var lost int64
		for i := start; i < end; i++ {
			if !st.insert(t.hash, kvs[i].Key, kvs[i].Value) {
				lost++
			}
		}
		if lost != 0 {
			failed.Add(lost)
		}
	})
	return int(failed.Load())
}

// insert places one pair. It returns false when the probe sequence wrapped
// around the whole table without finding key or an Empty slot.
func (st *slotTable) insert(hash HashFunc, key, value uint32) bool {
	idx := st.home(hash, key)
	for probes := uint32(0); probes <= st.mask; probes++ {
		kv := &st.slots[idx]
		if kv.claimKey(key) {
			kv.storeValue(value)
			st.occupied.Add(1)
			return true
		}
		if kv.syncKey() == key {
			kv.storeValue(value)
			return true
		}
		idx = (idx + 1) & st.mask
	}
	return false
}

// Put inserts or updates a single pair. It follows the same growth and
// error rules as Insert.
func (t *Table) Put(key, value uint32) error {
	_, err := t.Insert([]KeyValue{{Key: key, Value: value}})
	return err
}
