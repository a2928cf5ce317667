// Package report writes the per-threshold timing rows of a sweep as CSV.
package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// SweepRow is the result for one resize threshold: the insert+delete time
// of every batch round of the first iteration, their mean, and the mean
// total time of the remaining iterations.
type SweepRow struct {
	Threshold  float64
	RoundTimes []time.Duration
	RoundAvg   time.Duration
	TotalAvg   time.Duration
}

// Writer emits rows of the form
//
//	threshold,THRES,t1,...,tn,AVG,round_avg,SUM,total_avg
//
// with every duration in milliseconds.
type Writer struct {
	csv    *csv.Writer
	closer io.Closer
}

// NewWriter writes to w. Close flushes but does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// Create truncates or creates the file at path.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "creating report")
	}
	return &Writer{csv: csv.NewWriter(f), closer: f}, nil
}

// Write appends one row and flushes it, so an interrupted sweep keeps
// every finished threshold.
func (w *Writer) Write(row SweepRow) error {
	rec := make([]string, 0, len(row.RoundTimes)+6)
	rec = append(rec, strconv.FormatFloat(row.Threshold, 'f', 6, 64), "THRES")
	for _, d := range row.RoundTimes {
		rec = append(rec, millis(d))
	}
	rec = append(rec, "AVG", millis(row.RoundAvg), "SUM", millis(row.TotalAvg))
	if err := w.csv.Write(rec); err != nil {
		return errors.Wrap(err, "writing report row")
	}
	w.csv.Flush()
	return errors.Wrap(w.csv.Error(), "flushing report")
}

// Close flushes buffered rows and closes the file opened by Create.
func (w *Writer) Close() error {
	w.csv.Flush()
	err := w.csv.Error()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func millis(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 6, 64)
}
