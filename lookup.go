package lphash

import "time"

// Lookup finds every key of kvs in one parallel pass and overwrites the
// matching Value field in place. Keys that are absent, or reserved, get
// Empty. The table is not modified.
//
// A key inserted before the batch and not deleted since is always found.
// Without tombstone mode, a key placed behind a slot that was later
// deleted may be reported as absent until the next Resize.
func (t *Table) Lookup(kvs []KeyValue) (time.Duration, error) {
	start := t.clock.Now()
	st := t.table.Load()
	if st == nil {
		return 0, ErrDestroyed
	}

	t.dispatcher.Dispatch(len(kvs), func(start, end int) {
		for i := start; i < end; i++ {
			key := kvs[i].Key
			if t.reserved(key) {
				kvs[i].Value = Empty
				continue
			}
			if idx, ok := st.find(t.hash, key); ok {
				kvs[i].Value = st.slots[idx].loadValue()
			} else {
				kvs[i].Value = Empty
			}
		}
	})

	elapsed := t.since(start)
	t.metrics.observeBatch(opLookup, len(kvs), elapsed)
	return elapsed, nil
}

// Get looks up a single key.
func (t *Table) Get(key uint32) (value uint32, ok bool) {
	st := t.table.Load()
	if st == nil || t.reserved(key) {
		return Empty, false
	}
	if idx, found := st.find(t.hash, key); found {
		return st.slots[idx].loadValue(), true
	}
	return Empty, false
}

// find returns the slot holding key. The probe stops at the first Empty
// slot; tombstones are skipped like foreign keys.
func (st *slotTable) find(hash HashFunc, key uint32) (uint32, bool) {
	idx := st.home(hash, key)
	for probes := uint32(0); probes <= st.mask; probes++ {
		switch st.slots[idx].loadKey() {
		case key:
			return idx, true
		case Empty:
			return 0, false
		}
		idx = (idx + 1) & st.mask
	}
	return 0, false
}
