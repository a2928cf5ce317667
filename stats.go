package lphash

import (
	"fmt"
	"strings"
)

// Stats returns statistics for the Table. It scans every slot, so it
// is an O(capacity) operation that should be used only for diagnostics
// or debugging purposes, between batches.
func (t *Table) Stats() *TableStats {
	stats := &TableStats{
		TotalGrowths:  t.growths.Load(),
		TotalRehashes: t.rehashes.Load(),
	}
	st := t.table.Load()
	if st == nil {
		return stats
	}
	stats.Capacity = st.capacity()
	stats.Counter = int(st.occupied.Load())
	stats.TombstoneCounter = int(st.tombstones.Load())

	hasTombstones := stats.TombstoneCounter != 0
	var totalProbe uint64
	run := 0
	for i := range st.slots {
		k := st.slots[i].loadKey()
		if k == Empty {
			run = 0
			continue
		}
		run++
		stats.LongestRun = max(stats.LongestRun, run)
		if hasTombstones && k == Tombstone {
			stats.Tombstones++
			continue
		}
		stats.Size++
		dist := int((uint32(i) - st.home(t.hash, k)) & st.mask)
		totalProbe += uint64(dist)
		stats.MaxProbe = max(stats.MaxProbe, dist)
	}
	// a run may wrap from the last slot into the first
	if run > 0 && run < stats.Capacity {
		for i := 0; i < len(st.slots) && st.slots[i].loadKey() != Empty; i++ {
			run++
		}
		stats.LongestRun = max(stats.LongestRun, run)
	}
	stats.LoadFactor = float64(stats.Size) / float64(stats.Capacity)
	if stats.Size > 0 {
		stats.MeanProbe = float64(totalProbe) / float64(stats.Size)
	}
	return stats
}

// TableStats is Table statistics.
//
// Warning: table statistics are intended to be used for diagnostic
// purposes, not for production code. This means that breaking changes
// may be introduced into this struct even between minor releases.
type TableStats struct {
	// Capacity is the number of slots.
	Capacity int
	// Size is the number of live keys found by scanning the slots.
	Size int
	// Counter is the occupancy counter. Between batches it equals Size.
	Counter int
	// Tombstones is the number of tombstone slots found by scanning.
	Tombstones int
	// TombstoneCounter is the tombstone counter.
	TombstoneCounter int
	// LoadFactor is Size / Capacity.
	LoadFactor float64
	// LongestRun is the longest sequence of consecutive non-empty slots,
	// counting wraparound. Probes for absent keys may walk all of it.
	LongestRun int
	// MaxProbe is the largest distance of a live key from its home slot.
	MaxProbe int
	// MeanProbe is the mean distance of live keys from their home slot.
	MeanProbe float64
	// TotalGrowths is the number of times the table grew.
	TotalGrowths uint32
	// TotalRehashes is the number of same-capacity rehashes.
	TotalRehashes uint32
}

// ToString returns string representation of table stats.
func (s *TableStats) ToString() string {
	var sb strings.Builder
	sb.WriteString("TableStats{\n")
	sb.WriteString(fmt.Sprintf("Capacity:         %d\n", s.Capacity))
	sb.WriteString(fmt.Sprintf("Size:             %d\n", s.Size))
	sb.WriteString(fmt.Sprintf("Counter:          %d\n", s.Counter))
	sb.WriteString(fmt.Sprintf("Tombstones:       %d\n", s.Tombstones))
	sb.WriteString(fmt.Sprintf("TombstoneCounter: %d\n", s.TombstoneCounter))
	sb.WriteString(fmt.Sprintf("LoadFactor:       %.4f\n", s.LoadFactor))
	sb.WriteString(fmt.Sprintf("LongestRun:       %d\n", s.LongestRun))
	sb.WriteString(fmt.Sprintf("MaxProbe:         %d\n", s.MaxProbe))
	sb.WriteString(fmt.Sprintf("MeanProbe:        %.4f\n", s.MeanProbe))
	sb.WriteString(fmt.Sprintf("TotalGrowths:     %d\n", s.TotalGrowths))
	sb.WriteString(fmt.Sprintf("TotalRehashes:    %d\n", s.TotalRehashes))
	sb.WriteString("}\n")
	return sb.String()
}
