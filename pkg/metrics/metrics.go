// Package metrics is a process-local registry of counters, gauges and latency
// stats. It trades a full metrics backend for cheap atomics plus a periodic
// structured-log snapshot, which is what the ops tooling scrapes.
package metrics

import (
	"context"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Registry holds named series. Names are dot-joined with their labels, e.g.
// "ticks_received.binance.BTCUSDT". Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*uint64
	gauges   map[string]*uint64 // float64 bits
	timings  map[string]*LatencyStats
	values   map[string]*ValueStats
}

// NewRegistry allocates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]*uint64),
		gauges:   make(map[string]*uint64),
		timings:  make(map[string]*LatencyStats),
		values:   make(map[string]*ValueStats),
	}
}

// Key joins a metric name with its labels.
func Key(name string, labels ...string) string {
	if len(labels) == 0 {
		return name
	}
	return name + "." + strings.Join(labels, ".")
}

// Inc adds one to a counter.
func (r *Registry) Inc(name string) {
	r.Add(name, 1)
}

// Add adds delta to a counter.
func (r *Registry) Add(name string, delta uint64) {
	if r == nil {
		return
	}
	atomic.AddUint64(r.counter(name), delta)
}

// SetGauge overwrites a gauge value.
func (r *Registry) SetGauge(name string, v float64) {
	if r == nil {
		return
	}
	atomic.StoreUint64(r.gauge(name), math.Float64bits(v))
}

// Observe records one duration sample into a latency series.
func (r *Registry) Observe(name string, d time.Duration) {
	if r == nil {
		return
	}
	r.timing(name).Observe(d)
}

// ObserveValue records one float sample into a value distribution, e.g. trade
// notionals.
func (r *Registry) ObserveValue(name string, v float64) {
	if r == nil {
		return
	}
	r.value(name).Observe(v)
}

func (r *Registry) counter(name string) *uint64 {
	r.mu.RLock()
	c := r.counters[name]
	r.mu.RUnlock()
	if c != nil {
		return c
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c = r.counters[name]; c == nil {
		c = new(uint64)
		r.counters[name] = c
	}
	return c
}

func (r *Registry) gauge(name string) *uint64 {
	r.mu.RLock()
	g := r.gauges[name]
	r.mu.RUnlock()
	if g != nil {
		return g
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if g = r.gauges[name]; g == nil {
		g = new(uint64)
		r.gauges[name] = g
	}
	return g
}

func (r *Registry) timing(name string) *LatencyStats {
	r.mu.RLock()
	t := r.timings[name]
	r.mu.RUnlock()
	if t != nil {
		return t
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if t = r.timings[name]; t == nil {
		t = &LatencyStats{}
		r.timings[name] = t
	}
	return t
}

func (r *Registry) value(name string) *ValueStats {
	r.mu.RLock()
	v := r.values[name]
	r.mu.RUnlock()
	if v != nil {
		return v
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if v = r.values[name]; v == nil {
		v = &ValueStats{}
		r.values[name] = v
	}
	return v
}

// Snapshot is a point-in-time copy of every series.
type Snapshot struct {
	Counters map[string]uint64
	Gauges   map[string]float64
	Timings  map[string]LatencySnapshot
	Values   map[string]ValueSnapshot
}

// Snapshot copies the current values.
func (r *Registry) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Counters: make(map[string]uint64, len(r.counters)),
		Gauges:   make(map[string]float64, len(r.gauges)),
		Timings:  make(map[string]LatencySnapshot, len(r.timings)),
		Values:   make(map[string]ValueSnapshot, len(r.values)),
	}
	for name, c := range r.counters {
		snap.Counters[name] = atomic.LoadUint64(c)
	}
	for name, g := range r.gauges {
		snap.Gauges[name] = math.Float64frombits(atomic.LoadUint64(g))
	}
	for name, t := range r.timings {
		snap.Timings[name] = t.Snapshot()
	}
	for name, v := range r.values {
		snap.Values[name] = v.Snapshot()
	}
	return snap
}

// CounterValue reads one counter, mainly for tests.
func (r *Registry) CounterValue(name string) uint64 {
	r.mu.RLock()
	c := r.counters[name]
	r.mu.RUnlock()
	if c == nil {
		return 0
	}
	return atomic.LoadUint64(c)
}

// GaugeValue reads one gauge, mainly for tests.
func (r *Registry) GaugeValue(name string) float64 {
	r.mu.RLock()
	g := r.gauges[name]
	r.mu.RUnlock()
	if g == nil {
		return 0
	}
	return math.Float64frombits(atomic.LoadUint64(g))
}

// LogLoop emits a snapshot through the logger at a fixed cadence until the
// context ends. Runs as its own goroutine in each binary.
func (r *Registry) LogLoop(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := r.Snapshot()
			logger.Info("metrics snapshot",
				zap.Any("counters", snap.Counters),
				zap.Any("gauges", snap.Gauges),
				zap.Any("timings", snap.Timings),
				zap.Any("values", snap.Values),
			)
		}
	}
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated values.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(atomic.LoadUint64(&l.sum) / count),
	}
}

// ValueStats aggregates float64 samples (notionals, sizes). Float min/max
// cannot ride the lock-free path LatencyStats uses, so this one takes a
// mutex; the series it backs are low-rate.
type ValueStats struct {
	mu    sync.Mutex
	count uint64
	sum   float64
	min   float64
	max   float64
}

// ValueSnapshot is a point-in-time view of a value distribution.
type ValueSnapshot struct {
	Count uint64
	Min   float64
	Max   float64
	Avg   float64
}

// Observe records a sample. NaN and infinite samples are dropped.
func (v *ValueStats) Observe(x float64) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.count == 0 || x < v.min {
		v.min = x
	}
	if v.count == 0 || x > v.max {
		v.max = x
	}
	v.count++
	v.sum += x
}

// Snapshot returns the aggregated values.
func (v *ValueStats) Snapshot() ValueSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.count == 0 {
		return ValueSnapshot{}
	}
	return ValueSnapshot{
		Count: v.count,
		Min:   v.min,
		Max:   v.max,
		Avg:   v.sum / float64(v.count),
	}
}
