// Package bench times batches of inserts and deletes against an lphash
// table, compares them with a Go map, and checks the table's contents.
package bench

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/llxisdsh/lphash"
	"github.com/llxisdsh/lphash/internal/config"
	"github.com/llxisdsh/lphash/internal/report"
	"github.com/llxisdsh/lphash/internal/workload"
)

// Runner owns the settings shared by every round.
type Runner struct {
	clock   clockwork.Clock
	logger  *zap.Logger
	options []func(*lphash.Config)
	// tombstones makes Verify treat surviving deleted keys as errors.
	tombstones bool
}

// NewRunner creates a runner. options are passed to every lphash.New.
func NewRunner(clock clockwork.Clock, logger *zap.Logger, tombstones bool, options ...func(*lphash.Config)) *Runner {
	if tombstones {
		options = append(options, lphash.WithTombstones())
	}
	return &Runner{
		clock:      clock,
		logger:     logger,
		options:    append(options, lphash.WithClock(clock), lphash.WithLogger(logger)),
		tombstones: tombstones,
	}
}

// RoundResult summarizes one Round.
type RoundResult struct {
	Inserted int
	Deleted  int
	// Live is the number of pairs left in the table after the deletes.
	Live     int
	Elapsed  time.Duration
	Baseline time.Duration
	Stats    *lphash.TableStats
	Verified *Verification
}

// KeysPerSecond is the table throughput over the nominal workload of
// capacity/2 keys.
func (r *RoundResult) KeysPerSecond(capacity int) float64 {
	return throughput(capacity/2, r.Elapsed)
}

// BaselineKeysPerSecond is the Go map throughput on the same figure.
func (r *RoundResult) BaselineKeysPerSecond(capacity int) float64 {
	return throughput(capacity/2, r.Baseline)
}

func throughput(keys int, d time.Duration) float64 {
	if d <= 0 {
		return math.Inf(1)
	}
	return float64(keys) / d.Seconds()
}

// Round generates cfg.KVSize random pairs, picks half of them for deletion,
// inserts them in cfg.InsertBatches batches into a fresh table, deletes in
// cfg.DeleteBatches batches, drains the table and destroys it. The elapsed
// time covers table creation to destruction. Unless cfg.SkipBaseline is
// set, the same workload is replayed on a Go map. The drained pairs are
// always verified.
func (r *Runner) Round(cfg config.RunConfig, seed uint64) (*RoundResult, error) {
	insertKVs := workload.Generate(seed, cfg.KVSize)
	rnd := rand.New(rand.NewPCG(seed, math.MaxUint64))
	deleteKVs := workload.Sample(rnd, insertKVs, cfg.KVSize/2)

	start := r.clock.Now()
	tbl, err := lphash.New(cfg.Capacity, cfg.Threshold, r.options...)
	if err != nil {
		return nil, err
	}
	defer tbl.Destroy()

	inserted := 0
	for i, batch := range workload.Batches(insertKVs, cfg.InsertBatches) {
		if _, err := tbl.Insert(batch); err != nil {
			return nil, errors.Wrapf(err, "insert batch %d", i)
		}
		inserted += len(batch)
	}
	deleted := 0
	for i, batch := range workload.Batches(deleteKVs, cfg.DeleteBatches) {
		if _, err := tbl.Delete(batch); err != nil {
			return nil, errors.Wrapf(err, "delete batch %d", i)
		}
		deleted += len(batch)
	}
	drained := tbl.Iterate()
	stats := tbl.Stats()
	tbl.Destroy()
	elapsed := r.clock.Since(start)

	res := &RoundResult{
		Inserted: inserted,
		Deleted:  deleted,
		Live:     len(drained),
		Elapsed:  elapsed,
		Stats:    stats,
	}
	insertKVs = insertKVs[:inserted]
	deleteKVs = deleteKVs[:deleted]
	if !cfg.SkipBaseline {
		res.Baseline = r.Baseline(insertKVs, deleteKVs)
	}
	res.Verified, err = Verify(insertKVs, deleteKVs, drained, r.tombstones)
	return res, err
}

// Baseline replays the workload on a single-threaded Go map and returns
// the time it took.
func (r *Runner) Baseline(insertKVs, deleteKVs []lphash.KeyValue) time.Duration {
	start := r.clock.Now()
	m := make(map[uint32]uint32)
	for _, kv := range insertKVs {
		m[kv.Key] = kv.Value
	}
	for _, kv := range deleteKVs {
		delete(m, kv.Key)
	}
	return r.clock.Since(start)
}

// Sweep runs cfg.Iterations+1 iterations for every threshold from
// cfg.MinThreshold up to, not including, cfg.MaxThreshold. Each iteration
// alternates insert and delete batches on a fresh table. Batch round
// times are recorded on the first iteration; the total times of the
// others are averaged. One row per threshold is written to w.
func (r *Runner) Sweep(cfg config.CSVConfig, seed uint64, w *report.Writer) ([]report.SweepRow, error) {
	var rows []report.SweepRow
	rnd := rand.New(rand.NewPCG(seed, math.MaxUint64))
	for step := 0; ; step++ {
		threshold := cfg.MinThreshold + float64(step)*cfg.Step
		if threshold >= cfg.MaxThreshold-1e-9 {
			break
		}
		r.logger.Info("testing resize threshold", zap.Float64("threshold", threshold))

		row := report.SweepRow{Threshold: threshold}
		var roundSum, totalSum time.Duration
		for iter := 0; iter <= cfg.Iterations; iter++ {
			insertKVs := workload.Generate(rnd.Uint64(), cfg.KVSize)
			deleteKVs := workload.Sample(rnd, insertKVs, cfg.KVSize/2)
			inserts := workload.Batches(insertKVs, cfg.Batches)
			deletes := workload.Batches(deleteKVs, cfg.Batches)

			start := r.clock.Now()
			tbl, err := lphash.New(cfg.Capacity, threshold, r.options...)
			if err != nil {
				return rows, err
			}
			for i := range inserts {
				ins, err := tbl.Insert(inserts[i])
				if err != nil {
					tbl.Destroy()
					return rows, errors.Wrapf(err, "threshold %v batch %d", threshold, i)
				}
				del, err := tbl.Delete(deletes[i])
				if err != nil {
					tbl.Destroy()
					return rows, errors.Wrapf(err, "threshold %v batch %d", threshold, i)
				}
				if iter == 0 {
					row.RoundTimes = append(row.RoundTimes, ins+del)
					roundSum += ins + del
				}
			}
			tbl.Destroy()
			if iter > 0 {
				totalSum += r.clock.Since(start)
			}
		}
		row.RoundAvg = roundSum / time.Duration(cfg.Batches)
		row.TotalAvg = totalSum / time.Duration(cfg.Iterations)

		r.logger.Info("threshold done",
			zap.Float64("threshold", threshold),
			zap.Duration("round_avg", row.RoundAvg),
			zap.Duration("total_avg", row.TotalAvg))
		if w != nil {
			if err := w.Write(row); err != nil {
				return rows, err
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
