package bench

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/llxisdsh/lphash"
)

func kv(k, v uint32) lphash.KeyValue { return lphash.KeyValue{Key: k, Value: v} }

func TestVerify(t *testing.T) {
	inserted := []lphash.KeyValue{kv(1, 10), kv(2, 20), kv(2, 21), kv(3, 30), kv(4, 40)}
	deleted := []lphash.KeyValue{kv(3, 0), kv(4, 0)}

	v, err := Verify(inserted, deleted, []lphash.KeyValue{kv(1, 10), kv(2, 21)}, true)
	require.NoError(t, err)
	require.Equal(t, &Verification{Checked: 2}, v)

	// a surviving deleted key is stale, an error only when strict
	got := []lphash.KeyValue{kv(1, 10), kv(2, 20), kv(4, 40)}
	v, err = Verify(inserted, deleted, got, false)
	require.NoError(t, err)
	require.Equal(t, 1, v.Stale)
	v, err = Verify(inserted, deleted, got, true)
	require.Error(t, err)
	require.Equal(t, 1, v.Stale)
}

func TestVerify_Violations(t *testing.T) {
	inserted := []lphash.KeyValue{kv(1, 10), kv(2, 20), kv(3, 30)}
	got := []lphash.KeyValue{kv(1, 10), kv(1, 10), kv(2, 99), kv(7, 70)}

	v, err := Verify(inserted, nil, got, false)
	require.Error(t, err)
	require.Equal(t, &Verification{Checked: 4, Duplicates: 1, Missing: 1, Unknown: 1, BadValues: 1}, v)
	require.Contains(t, err.Error(), "4 errors occurred")
	require.Contains(t, err.Error(), "key 3 missing")
}

func TestVerify_CapsReportedErrors(t *testing.T) {
	var inserted []lphash.KeyValue
	for i := uint32(0); i < 100; i++ {
		inserted = append(inserted, kv(i, i))
	}
	v, err := Verify(inserted, nil, nil, false)
	require.Error(t, err)
	require.Equal(t, 100, v.Missing)
	require.Contains(t, err.Error(), "8 errors occurred")
}
