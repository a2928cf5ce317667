package lphash

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	opInsert = "insert"
	opLookup = "lookup"
	opDelete = "delete"
)

// Metrics exports batch and resize activity of one or more tables as
// Prometheus collectors. A nil *Metrics is valid and records nothing.
// Gauges reflect the table that reported last.
type Metrics struct {
	batchDuration *prometheus.HistogramVec
	batchKeys     *prometheus.CounterVec
	resizes       prometheus.Counter
	resizeSeconds prometheus.Histogram
	tableFull     prometheus.Counter
	occupied      prometheus.Gauge
	tombstones    prometheus.Gauge
	capacity      prometheus.Gauge
}

// NewMetrics creates the collectors under namespace and registers them
// with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time to process one batch, by operation.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 14),
		}, []string{"op"}),
		batchKeys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_keys_total",
			Help:      "Keys submitted in batches, by operation.",
		}, []string{"op"}),
		resizes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resizes_total",
			Help:      "Completed resizes and rehashes.",
		}),
		resizeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resize_duration_seconds",
			Help:      "Time to rehash the table.",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 12),
		}),
		tableFull: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_full_total",
			Help:      "Insert batches that failed because the table was full.",
		}),
		occupied: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "occupied_slots",
			Help:      "Slots holding a live key.",
		}),
		tombstones: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tombstone_slots",
			Help:      "Slots holding a tombstone.",
		}),
		capacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capacity_slots",
			Help:      "Total slots of the table.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.batchDuration, m.batchKeys, m.resizes, m.resizeSeconds,
		m.tableFull, m.occupied, m.tombstones, m.capacity,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeBatch(op string, keys int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	m.batchKeys.WithLabelValues(op).Add(float64(keys))
}

func (m *Metrics) observeResize(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.resizes.Inc()
	m.resizeSeconds.Observe(elapsed.Seconds())
}

func (m *Metrics) observeTableFull() {
	if m == nil {
		return
	}
	m.tableFull.Inc()
}

func (m *Metrics) observeTable(st *slotTable) {
	if m == nil || st == nil {
		return
	}
	m.occupied.Set(float64(st.occupied.Load()))
	m.tombstones.Set(float64(st.tombstones.Load()))
	m.capacity.Set(float64(st.capacity()))
}
