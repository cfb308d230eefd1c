package features

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/elyx5534/sofia-feed/pkg/metrics"
	"github.com/elyx5534/sofia-feed/pkg/models"
	"github.com/elyx5534/sofia-feed/pkg/stream"
)

// barTolerance is how far a requested timestamp may sit from a bar's open
// time and still resolve to that bar.
const barTolerance = 1.0

// Config tunes one feature engine.
type Config struct {
	BarInterval     time.Duration
	BufferCapacity  int
	ComputeInterval time.Duration
	GapThreshold    time.Duration
	CacheSize       int
	TopicMaxLen     int64
}

func (c *Config) applyDefaults() {
	if c.BarInterval <= 0 {
		c.BarInterval = time.Minute
	}
	if c.BufferCapacity <= 0 {
		c.BufferCapacity = 1440
	}
	if c.ComputeInterval <= 0 {
		c.ComputeInterval = time.Minute
	}
	if c.GapThreshold <= 0 {
		c.GapThreshold = 5 * time.Minute
	}
	if c.CacheSize <= 0 {
		c.CacheSize = 100
	}
	if c.TopicMaxLen <= 0 {
		c.TopicMaxLen = 1000
	}
}

// symbolState holds everything the engine tracks for one symbol. Access is
// guarded by the engine mutex.
type symbolState struct {
	agg    *BarAggregator
	buffer *RingBuffer

	cache         map[int64]models.FeatureVector
	cacheKeys     []int64 // insertion order, oldest first
	lastComputeTs float64
}

// Engine folds ticks into bars, keeps per-symbol bar history and computes
// feature vectors on demand or on a fixed cadence. Ticks for the same symbol
// from different exchanges merge into one bar series.
type Engine struct {
	cfg     Config
	pub     Appender
	logger  *zap.Logger
	metrics *metrics.Registry
	clock   Clock

	mu      sync.Mutex
	symbols map[string]*symbolState
}

// NewEngine builds an engine publishing sealed bars and feature vectors
// through pub.
func NewEngine(cfg Config, pub Appender, logger *zap.Logger, reg *metrics.Registry, clock Clock) *Engine {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &Engine{
		cfg:     cfg,
		pub:     pub,
		logger:  logger,
		metrics: reg,
		clock:   clock,
		symbols: make(map[string]*symbolState),
	}
}

// state returns the symbol's tracking state, creating it on first sight.
// Caller holds e.mu.
func (e *Engine) state(symbol string) *symbolState {
	st, ok := e.symbols[symbol]
	if !ok {
		st = &symbolState{
			agg:    NewBarAggregator(e.cfg.BarInterval),
			buffer: NewRingBuffer(e.cfg.BufferCapacity),
			cache:  make(map[int64]models.FeatureVector),
		}
		e.symbols[symbol] = st
	}
	return st
}

// HandleMessage folds one tick stream entry into its symbol's open bar and
// publishes the bar it seals, if any. A tick that cannot be decoded is a
// processing error and stays unacknowledged.
func (e *Engine) HandleMessage(ctx context.Context, msg stream.Message) error {
	tick, err := models.TickFromFields(msg.Fields)
	if err != nil {
		return fmt.Errorf("decode tick from %s: %w", msg.Topic, err)
	}

	e.mu.Lock()
	st := e.state(tick.Symbol)
	sealed, late := st.agg.Add(tick)
	if late {
		e.metrics.Inc(metrics.Key("features.late_ticks", tick.Symbol))
		e.mu.Unlock()
		return nil
	}
	if sealed != nil {
		e.appendBar(st, tick.Symbol, *sealed)
	}
	e.mu.Unlock()

	if sealed != nil {
		e.publishBar(ctx, tick.Symbol, *sealed)
	}
	return nil
}

// appendBar records a sealed bar, clearing the feature cache when the series
// resumes after a gap. Caller holds e.mu.
func (e *Engine) appendBar(st *symbolState, symbol string, bar models.Bar) {
	gap := e.cfg.GapThreshold.Seconds()
	if len(st.cache) > 0 && bar.Timestamp-st.lastComputeTs > gap {
		st.cache = make(map[int64]models.FeatureVector)
		st.cacheKeys = st.cacheKeys[:0]
		e.metrics.Inc(metrics.Key("features.cache_resets", symbol))
		e.logger.Info("Feature cache cleared after data gap",
			zap.String("symbol", symbol),
			zap.Float64("bar_ts", bar.Timestamp))
	}
	st.buffer.Push(bar)
	e.metrics.Inc(metrics.Key("features.bars", symbol))
}

func (e *Engine) publishBar(ctx context.Context, symbol string, bar models.Bar) {
	topic := stream.BarTopic(symbol)
	if _, err := e.pub.Append(ctx, topic, bar.Fields(), e.cfg.TopicMaxLen); err != nil {
		e.metrics.Inc("features.publish_errors")
		e.logger.Error("Failed to publish bar",
			zap.String("topic", topic),
			zap.Error(err))
	}
}

// ComputeFeatures derives the indicator vector for the bar closest to ts.
// Results are cached per rounded timestamp; a repeat request is served from
// cache. Fewer than MinBars buffered bars yields ErrInsufficientData.
func (e *Engine) ComputeFeatures(symbol string, ts float64) (models.FeatureVector, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.symbols[symbol]
	if !ok {
		return models.FeatureVector{}, ErrInsufficientData
	}

	key := int64(math.Round(ts))
	if vec, ok := st.cache[key]; ok {
		e.metrics.Inc(metrics.Key("features.cache_hits", symbol))
		return vec, nil
	}

	bars := st.buffer.Slice()
	if len(bars) < MinBars {
		return models.FeatureVector{}, ErrInsufficientData
	}

	window := bars[:locateBar(bars, ts)+1]
	vec := buildVector(symbol, ts, window)

	st.cache[key] = vec
	st.cacheKeys = append(st.cacheKeys, key)
	if len(st.cacheKeys) > e.cfg.CacheSize {
		drop := len(st.cacheKeys) / 2
		for _, k := range st.cacheKeys[:drop] {
			delete(st.cache, k)
		}
		st.cacheKeys = append(st.cacheKeys[:0], st.cacheKeys[drop:]...)
	}
	st.lastComputeTs = ts
	return vec, nil
}

// locateBar returns the index of the newest bar whose open time is within
// barTolerance of ts, falling back to the newest bar.
func locateBar(bars []models.Bar, ts float64) int {
	for i := len(bars) - 1; i >= 0; i-- {
		if math.Abs(bars[i].Timestamp-ts) <= barTolerance {
			return i
		}
	}
	return len(bars) - 1
}

// buildVector runs every indicator over the window, keeping only the ones
// whose history requirement is met.
func buildVector(symbol string, ts float64, window []models.Bar) models.FeatureVector {
	vec := models.FeatureVector{Timestamp: ts, Symbol: symbol}

	vec.Return1 = opt(Return(window, 1))
	vec.Return5 = opt(Return(window, 5))
	vec.Return60 = opt(Return(window, 60))
	vec.ZScore20 = opt(ZScore(window, 20))
	vec.ATRPct = opt(ATRPct(window, 14))
	vec.RealizedVol1h = opt(RealizedVol(window, 60))
	vec.VolWeightedVol1h = opt(VolumeWeightedVol(window, 60))
	vec.Momentum14 = opt(Momentum(window, 14))
	vec.RSI14 = opt(RSI(window, 14))
	vec.VolumeRatio = opt(VolumeRatio(window, 20))
	vec.SMA20 = opt(SMA(window, 20))
	vec.EMA20 = opt(EMA(window, 20))

	if upper, lower, ok := Bollinger(window, 20, 2.0); ok {
		vec.BBUpper = &upper
		vec.BBLower = &lower
		if width := upper - lower; width > 0 {
			pos := (window[len(window)-1].Close - lower) / width
			vec.BBPosition = &pos
		}
	}
	return vec
}

// opt boxes an indicator result, or returns nil when its history requirement
// was not met.
func opt(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

// Symbols lists the symbols the engine has seen ticks for.
func (e *Engine) Symbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.symbols))
	for s := range e.symbols {
		out = append(out, s)
	}
	return out
}

// BarCount reports how many sealed bars are buffered for a symbol.
func (e *Engine) BarCount(symbol string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.symbols[symbol]
	if !ok {
		return 0
	}
	return st.buffer.Len()
}

// RunScheduler recomputes and republishes every tracked symbol's features on
// the configured cadence until ctx is cancelled. The cadence is held
// start-to-start: compute time eats into the sleep.
func (e *Engine) RunScheduler(ctx context.Context) {
	e.logger.Info("Feature scheduler started",
		zap.Duration("interval", e.cfg.ComputeInterval))
	for ctx.Err() == nil {
		start := e.clock.Now()
		e.computeAll(ctx, float64(start.UnixNano())/1e9)

		elapsed := e.clock.Now().Sub(start)
		if wait := e.cfg.ComputeInterval - elapsed; wait > 0 {
			e.sleep(ctx, wait)
		}
	}
	e.logger.Info("Feature scheduler stopped")
}

func (e *Engine) computeAll(ctx context.Context, ts float64) {
	start := e.clock.Now()
	for _, symbol := range e.Symbols() {
		vec, err := e.ComputeFeatures(symbol, ts)
		if err != nil {
			if errors.Is(err, ErrInsufficientData) {
				e.metrics.Inc(metrics.Key("features.skipped", symbol))
				continue
			}
			e.logger.Error("Feature computation failed",
				zap.String("symbol", symbol),
				zap.Error(err))
			continue
		}
		e.publishVector(ctx, symbol, vec)
	}
	e.metrics.Observe("features.compute_cycle", e.clock.Now().Sub(start))
}

func (e *Engine) publishVector(ctx context.Context, symbol string, vec models.FeatureVector) {
	fields := vec.Fields()
	for _, topic := range []string{stream.FeatureTopic(symbol), stream.FeatureAllTopic} {
		if _, err := e.pub.Append(ctx, topic, fields, e.cfg.TopicMaxLen); err != nil {
			e.metrics.Inc("features.publish_errors")
			e.logger.Error("Failed to publish features",
				zap.String("topic", topic),
				zap.Error(err))
			continue
		}
	}
	e.metrics.Inc(metrics.Key("features.published", symbol))
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
func (e *Engine) sleep(ctx context.Context, d time.Duration) {
	done := make(chan struct{})
	go func() {
		e.clock.Sleep(d)
		close(done)
	}()
	select {
	case <-ctx.Done():
	case <-done:
	}
}
