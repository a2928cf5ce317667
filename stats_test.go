package lphash

import (
	"strings"
	"testing"
)

func TestStats_Probes(t *testing.T) {
	keys := collidingKeys(Murmur3Hash, 16, 3)
	tbl := mustNew(t, 16, 1)
	for i, k := range keys {
		tbl.Put(k, uint32(i))
	}
	s := tbl.Stats()
	if s.Capacity != 16 || s.Size != 3 || s.Counter != 3 {
		t.Fatalf("stats %s", s.ToString())
	}
	if s.MaxProbe != 2 || s.MeanProbe != 1 || s.LongestRun != 3 {
		t.Fatalf("probe stats %s", s.ToString())
	}
	if !strings.Contains(s.ToString(), "MaxProbe:         2") {
		t.Fatalf("ToString: %s", s.ToString())
	}
}

func TestStats_WrappedRun(t *testing.T) {
	tbl := mustNew(t, 8, 1)
	st := tbl.table.Load()
	// occupy slots 6, 7, 0, 1 directly; distances are not checked here
	for _, i := range []int{6, 7, 0, 1} {
		st.slots[i] = KeyValue{Key: uint32(100 + i), Value: 1}
		st.occupied.Add(1)
	}
	if s := tbl.Stats(); s.LongestRun != 4 || s.Size != 4 {
		t.Fatalf("stats %s", s.ToString())
	}

	full := mustNew(t, 4, 1)
	for i := uint32(0); i < 4; i++ {
		full.Put(i, i)
	}
	if s := full.Stats(); s.LongestRun != 4 || s.LoadFactor != 1 {
		t.Fatalf("full stats %s", s.ToString())
	}
}

func TestStats_Destroyed(t *testing.T) {
	tbl := mustNew(t, 4, 1)
	tbl.Destroy()
	if s := tbl.Stats(); s.Capacity != 0 || s.Size != 0 {
		t.Fatalf("stats %s", s.ToString())
	}
}
