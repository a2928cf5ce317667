package bench

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/llxisdsh/lphash"
)

// Verification counts what Verify found in a drained table.
type Verification struct {
	Checked int
	// Stale counts deleted keys that survived, which a delete can miss
	// when an earlier batch broke the probe chain.
	Stale      int
	Duplicates int
	Missing    int
	Unknown    int
	BadValues  int
}

const maxReported = 8

// Verify checks got, the drained contents of a table, against the pairs
// that were inserted and deleted. Every key must have been inserted, hold
// one of the values written for it and appear once; every key never
// deleted must be present. Surviving deleted keys are errors only when
// strict is set.
func Verify(inserted, deleted, got []lphash.KeyValue, strict bool) (*Verification, error) {
	written := make(map[uint32][]uint32, len(inserted))
	for _, kv := range inserted {
		written[kv.Key] = append(written[kv.Key], kv.Value)
	}
	gone := make(map[uint32]struct{}, len(deleted))
	for _, kv := range deleted {
		gone[kv.Key] = struct{}{}
	}

	v := &Verification{Checked: len(got)}
	var result *multierror.Error
	report := func(n *int, format string, args ...any) {
		*n++
		if *n <= maxReported {
			result = multierror.Append(result, fmt.Errorf(format, args...))
		}
	}

	seen := make(map[uint32]struct{}, len(got))
	for _, kv := range got {
		if _, dup := seen[kv.Key]; dup {
			report(&v.Duplicates, "key %d stored twice", kv.Key)
			continue
		}
		seen[kv.Key] = struct{}{}

		values, ok := written[kv.Key]
		if !ok {
			report(&v.Unknown, "key %d was never inserted", kv.Key)
			continue
		}
		if !contains(values, kv.Value) {
			report(&v.BadValues, "key %d holds value %d that was never written", kv.Key, kv.Value)
		}
		if _, ok := gone[kv.Key]; ok {
			if strict {
				report(&v.Stale, "deleted key %d still present", kv.Key)
			} else {
				v.Stale++
			}
		}
	}
	for key := range written {
		if _, ok := gone[key]; ok {
			continue
		}
		if _, ok := seen[key]; !ok {
			report(&v.Missing, "key %d missing", key)
		}
	}
	return v, result.ErrorOrNil()
}

func contains(values []uint32, v uint32) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
