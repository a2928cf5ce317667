package lphash

// Iterate returns a snapshot of every live pair in slot order. It returns
// nil after Destroy.
func (t *Table) Iterate() []KeyValue {
	st := t.table.Load()
	if st == nil {
		return nil
	}
	return st.collect()
}

// Range calls yield sequentially for each key and value present in the
// table, in slot order. If yield returns false, Range stops the iteration.
func (t *Table) Range(yield func(key, value uint32) bool) {
	st := t.table.Load()
	if st == nil {
		return
	}
	hasTombstones := st.tombstones.Load() != 0
	for i := range st.slots {
		kv := &st.slots[i]
		k := kv.loadKey()
		if k == Empty || hasTombstones && k == Tombstone {
			continue
		}
		if !yield(k, kv.loadValue()) {
			return
		}
	}
}

// All returns an iterator function for use with range-over-func.
// It provides the same functionality as Range but in iterator form.
func (t *Table) All() func(yield func(key, value uint32) bool) {
	return t.Range
}

// collect gathers live pairs in one pass over the slots.
func (st *slotTable) collect() []KeyValue {
	kvs := make([]KeyValue, 0, max(st.occupied.Load(), 0))
	hasTombstones := st.tombstones.Load() != 0
	for i := range st.slots {
		kv := &st.slots[i]
		k := kv.loadKey()
		if k == Empty || hasTombstones && k == Tombstone {
			continue
		}
		kvs = append(kvs, KeyValue{Key: k, Value: kv.loadValue()})
	}
	return kvs
}
