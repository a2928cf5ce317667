package lphash

import (
	"math/bits"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sys/cpu"
)

const (
	// Empty marks an unoccupied slot. It is never a legal key.
	Empty uint32 = 0xFFFFFFFF
	// Tombstone marks a deleted slot when tombstone mode is enabled.
	// In that mode it is reserved as well; otherwise it is an ordinary key.
	Tombstone uint32 = 0xFFFFFFFE
)

const (
	// defaultGrowFactor is the capacity multiplier used by automatic growth.
	defaultGrowFactor = 2
	// maxCapacity bounds the slot count so that slot indices fit in uint32
	// and capacity arithmetic never overflows int on 32-bit platforms.
	maxCapacity = 1 << 30
	// minParallelBatchItems defines the minimum number of items required for parallel batch processing.
	// Below this threshold, serial processing is used to avoid the overhead of goroutine creation.
	minParallelBatchItems = 256
)

// CacheLineSize pads the table header and occupancy counters so that
// lanes hammering the counter do not share a line with the slot slice.
const CacheLineSize = unsafe.Sizeof(cpu.CacheLinePad{})

var (
	ErrTableFull        = errors.New("lphash: table is full")
	ErrInvalidKey       = errors.New("lphash: reserved key")
	ErrInvalidCapacity  = errors.New("lphash: capacity must be a power of two")
	ErrInvalidThreshold = errors.New("lphash: resize threshold must be positive")
	ErrInvalidFactor    = errors.New("lphash: resize factor must be a power of two")
	ErrDestroyed        = errors.New("lphash: table destroyed")
)

// KeyValue is a single slot of the table, and the element type of every
// batch passed to Insert, Lookup and Delete.
type KeyValue struct {
	Key   uint32
	Value uint32
}

// Table is a fixed-capacity, open-addressing hash table of uint32 keys and
// values, built for batches of operations processed by many goroutines at
// once.
//
// Every operation follows the same linear probe sequence, starting at
// hash(key) & (capacity-1). Insert claims a slot with a compare-and-swap on
// its key, so lanes of the same batch never block each other.
//
// Concurrency contract:
//   - Lanes inside one batch run concurrently with no ordering among them.
//     For duplicate keys in one insert batch some lane's value wins.
//   - Batches, Resize and Destroy must not overlap. One call completes
//     before the next begins.
//
// Without tombstone mode, Delete resets a slot to Empty. This can cut the
// probe chain of a key placed further along the same run, so Lookup may
// report it missing until the next Resize rehashes the table. Callers that
// need exact answers after deletions either Resize(1) or enable
// WithTombstones.
//
// A Table must not be copied after first use.
type Table struct {
	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(struct {
		table      atomic.Pointer[slotTable]
		threshold  float64
		growFactor int
		tombstones bool
		hash       HashFunc
		dispatcher Dispatcher
		clock      clockwork.Clock
		logger     *zap.Logger
		metrics    *Metrics
		growths    atomic.Uint32
		rehashes   atomic.Uint32
	}{})%CacheLineSize) % CacheLineSize]byte

	_          noCopy
	table      atomic.Pointer[slotTable]
	threshold  float64
	growFactor int
	tombstones bool
	hash       HashFunc
	dispatcher Dispatcher
	clock      clockwork.Clock
	logger     *zap.Logger
	metrics    *Metrics
	growths    atomic.Uint32
	rehashes   atomic.Uint32
}

// Config configures a Table. Use the With* options rather than
// filling it directly.
type Config struct {
	Logger     *zap.Logger
	Clock      clockwork.Clock
	Hasher     HashFunc
	Dispatcher Dispatcher
	Metrics    *Metrics
	GrowFactor int
	Tombstones bool
}

// WithLogger sets the logger used for resize and failure events.
func WithLogger(logger *zap.Logger) func(*Config) {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithClock sets the clock used to measure batch durations.
func WithClock(clock clockwork.Clock) func(*Config) {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithHasher replaces the default Murmur3Hash.
func WithHasher(hash HashFunc) func(*Config) {
	return func(c *Config) {
		c.Hasher = hash
	}
}

// WithDispatcher sets how batches are split across goroutines.
func WithDispatcher(d Dispatcher) func(*Config) {
	return func(c *Config) {
		c.Dispatcher = d
	}
}

// WithMetrics reports batch and resize activity to m.
func WithMetrics(m *Metrics) func(*Config) {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithGrowFactor sets the capacity multiplier used by automatic growth.
// It must be a power of two greater than one and no larger than the
// maximum capacity.
func WithGrowFactor(factor int) func(*Config) {
	return func(c *Config) {
		c.GrowFactor = factor
	}
}

// WithTombstones makes Delete leave a Tombstone marker instead of an
// empty slot, which keeps probe chains intact until the next rehash.
// Tombstone becomes a reserved key.
func WithTombstones() func(*Config) {
	return func(c *Config) {
		c.Tombstones = true
	}
}

// New creates a table with the given number of slots.
//
// Parameters:
//   - capacity: slot count, a power of two.
//   - threshold: load factor above which the table grows automatically.
//     Values >= 1 disable automatic growth.
//   - options: WithLogger, WithClock, WithHasher, WithDispatcher,
//     WithMetrics, WithGrowFactor, WithTombstones.
func New(capacity int, threshold float64, options ...func(*Config)) (*Table, error) {
	if !isPowOf2(capacity) || capacity > maxCapacity {
		return nil, errors.Wrapf(ErrInvalidCapacity, "capacity %d", capacity)
	}
	if !(threshold > 0) {
		return nil, errors.Wrapf(ErrInvalidThreshold, "threshold %v", threshold)
	}

	cfg := Config{GrowFactor: defaultGrowFactor}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.GrowFactor < 2 || cfg.GrowFactor > maxCapacity || !isPowOf2(cfg.GrowFactor) {
		return nil, errors.Wrapf(ErrInvalidFactor, "grow factor %d", cfg.GrowFactor)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Hasher == nil {
		cfg.Hasher = Murmur3Hash
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = GoDispatcher()
	}

	t := &Table{
		threshold:  threshold,
		growFactor: cfg.GrowFactor,
		tombstones: cfg.Tombstones,
		hash:       cfg.Hasher,
		dispatcher: cfg.Dispatcher,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
	st := newSlotTable(capacity)
	t.table.Store(st)
	t.metrics.observeTable(st)
	return t, nil
}

// Destroy releases the slot array. Every later operation reports
// ErrDestroyed.
func (t *Table) Destroy() {
	if st := t.table.Swap(nil); st != nil {
		t.logger.Debug("table destroyed",
			zap.Int("capacity", st.capacity()),
			zap.Int64("occupied", st.occupied.Load()))
	}
}

// Capacity returns the current slot count, or 0 after Destroy.
func (t *Table) Capacity() int {
	st := t.table.Load()
	if st == nil {
		return 0
	}
	return st.capacity()
}

// Size returns the occupancy counter: the number of live keys.
// It is exact between batches.
func (t *Table) Size() int {
	st := t.table.Load()
	if st == nil {
		return 0
	}
	return int(st.occupied.Load())
}

// LoadFactor returns Size()/Capacity().
func (t *Table) LoadFactor() float64 {
	st := t.table.Load()
	if st == nil {
		return 0
	}
	return float64(st.occupied.Load()) / float64(st.capacity())
}

// Threshold returns the resize threshold given to New.
func (t *Table) Threshold() float64 {
	return t.threshold
}

// autoGrow reports whether occupancy triggers resizing at all.
func (t *Table) autoGrow() bool {
	return t.threshold < 1
}

// reserved reports whether key may not be stored in this table.
//
//go:nosplit
func (t *Table) reserved(key uint32) bool {
	return key == Empty || (t.tombstones && key == Tombstone)
}

// since measures elapsed time on the table's clock.
func (t *Table) since(start time.Time) time.Duration {
	return t.clock.Since(start)
}

// slotTable is one generation of the slot array together with its
// occupancy counters. Resize replaces it as a whole.
type slotTable struct {
	slots []KeyValue
	mask  uint32

	//lint:ignore U1000 prevents false sharing
	pad [(CacheLineSize - unsafe.Sizeof(struct {
		slots []KeyValue
		mask  uint32
	}{})%CacheLineSize) % CacheLineSize]byte

	// occupied counts slots holding a live key. It sits on its own cache
	// line because every lane that claims or clears a slot updates it.
	occupied atomic.Int64
	// tombstones counts slots holding Tombstone.
	tombstones atomic.Int64
}

func newSlotTable(capacity int) *slotTable {
	slots := make([]KeyValue, capacity)
	for i := range slots {
		slots[i].Key = Empty
		slots[i].Value = Empty
	}
	return &slotTable{
		slots: slots,
		mask:  uint32(capacity - 1),
	}
}

//go:nosplit
func (st *slotTable) capacity() int {
	return int(st.mask) + 1
}

// used returns the number of slots that are not Empty.
func (st *slotTable) used() int64 {
	return st.occupied.Load() + st.tombstones.Load()
}

// isPowOf2 reports whether n is a positive power of two.
func isPowOf2(n int) bool {
	return n > 0 && bits.OnesCount(uint(n)) == 1
}

// noCopy may be added to structs which must not be copied
// after the first use. See go vet's copylocks check.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
