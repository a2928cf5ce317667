package lphash

import "time"

// notFound marks a key of a delete batch that has no slot. Slot indices
// never reach it because capacity is bounded by maxCapacity.
const notFound = ^uint32(0)

// Delete removes every key of kvs; Value fields are ignored. Keys that are
// absent or reserved are skipped.
//
// The batch runs in two parallel passes: the first locates every key
// against the table as it was before the batch, the second clears the
// located slots. Keys of one batch therefore never hide each other.
//
// Without tombstone mode a cleared slot goes back to Empty, which may hide
// keys placed further along the same probe run from later batches until
// Resize rehashes the table. With WithTombstones the slot becomes a
// Tombstone and lookups keep probing past it.
func (t *Table) Delete(kvs []KeyValue) (time.Duration, error) {
	start := t.clock.Now()
	st := t.table.Load()
	if st == nil {
		return 0, ErrDestroyed
	}

	found := make([]uint32, len(kvs))
	t.dispatcher.Dispatch(len(kvs), func(start, end int) {
		for i := start; i < end; i++ {
			key := kvs[i].Key
			found[i] = notFound
			if t.reserved(key) {
				continue
			}
			if idx, ok := st.find(t.hash, key); ok {
				found[i] = idx
			}
		}
	})

	marker := Empty
	if t.tombstones {
		marker = Tombstone
	}
	t.dispatcher.Dispatch(len(kvs), func(start, end int) {
		var removed int64
		for i := start; i < end; i++ {
			if found[i] == notFound {
				continue
			}
			// duplicate keys share a slot; one compare-and-swap wins
			if st.slots[found[i]].releaseKey(kvs[i].Key, marker) {
				removed++
			}
		}
		if removed != 0 {
			st.occupied.Add(-removed)
			if marker == Tombstone {
				st.tombstones.Add(removed)
			}
		}
	})

	elapsed := t.since(start)
	t.metrics.observeBatch(opDelete, len(kvs), elapsed)
	t.metrics.observeTable(st)
	return elapsed, nil
}

// Remove deletes a single key and reports whether it was present.
func (t *Table) Remove(key uint32) bool {
	st := t.table.Load()
	if st == nil || t.reserved(key) {
		return false
	}
	idx, ok := st.find(t.hash, key)
	if !ok {
		return false
	}
	marker := Empty
	if t.tombstones {
		marker = Tombstone
	}
	if !st.slots[idx].releaseKey(key, marker) {
		return false
	}
	st.occupied.Add(-1)
	if marker == Tombstone {
		st.tombstones.Add(1)
	}
	return true
}
