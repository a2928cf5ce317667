package lphash

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Resize multiplies the capacity by factor and rehashes every live pair
// into the new slot array. factor must be a power of two; 1 rehashes at
// the same capacity, which drops tombstones and repairs probe chains
// broken by deletions. The table never shrinks.
//
// Resize must not run concurrently with any other operation on t.
func (t *Table) Resize(factor int) error {
	st := t.table.Load()
	if st == nil {
		return ErrDestroyed
	}
	if !isPowOf2(factor) {
		return errors.Wrapf(ErrInvalidFactor, "factor %d", factor)
	}
	if st.capacity() > maxCapacity/factor {
		return errors.Wrapf(ErrInvalidCapacity, "capacity %d * factor %d exceeds %d",
			st.capacity(), factor, maxCapacity)
	}
	_, err := t.rehash(st, st.capacity()*factor)
	return err
}

// CheckAndMaybeResize grows the table by the grow factor when the load
// factor exceeds the threshold. When only tombstones push the used slots
// past the threshold, it rehashes at the same capacity instead, which
// clears them. It reports whether a resize happened; with a threshold
// >= 1 it never resizes.
func (t *Table) CheckAndMaybeResize() (bool, error) {
	st := t.table.Load()
	if st == nil {
		return false, ErrDestroyed
	}
	if !t.autoGrow() {
		return false, nil
	}
	limit := float64(st.capacity()) * t.threshold
	if float64(st.occupied.Load()) <= limit {
		if float64(st.used()) <= limit {
			return false, nil
		}
		if _, err := t.rehash(st, st.capacity()); err != nil {
			return false, err
		}
		return true, nil
	}
	if st.capacity() > maxCapacity/t.growFactor {
		t.logger.Warn("table at maximum capacity, not growing",
			zap.Int("capacity", st.capacity()),
			zap.Int64("occupied", st.occupied.Load()))
		return false, nil
	}
	if err := t.Resize(t.growFactor); err != nil {
		return false, err
	}
	return true, nil
}

// rehash snapshots the live pairs of st, reinserts them into a fresh
// slot array of newCap slots with the regular insert kernel and swaps it
// in.
func (t *Table) rehash(st *slotTable, newCap int) (*slotTable, error) {
	start := t.clock.Now()
	live := st.collect()
	nt := newSlotTable(newCap)
	if failed := t.insertBatch(nt, live); failed != 0 {
		// unreachable while newCap >= live pairs; keep the old table
		return st, errors.Wrapf(ErrTableFull,
			"rehash left %d of %d pairs unplaced in %d slots", failed, len(live), newCap)
	}
	t.table.Store(nt)

	if newCap > st.capacity() {
		t.growths.Add(1)
	} else {
		t.rehashes.Add(1)
	}
	elapsed := t.since(start)
	t.metrics.observeResize(elapsed)
	t.metrics.observeTable(nt)
	t.logger.Debug("table rehashed",
		zap.Int("old_capacity", st.capacity()),
		zap.Int("new_capacity", newCap),
		zap.Int("live", len(live)),
		zap.Int64("dropped_tombstones", st.tombstones.Load()),
		zap.Duration("elapsed", elapsed))
	return nt, nil
}
