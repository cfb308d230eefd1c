// Package feedsim synthesizes a realistic trade-tick flow onto the stream
// substrate so the downstream consumers can run without any exchange
// connectivity. Prices follow a per-symbol random walk; a configurable
// fraction of trades is sized to whale proportions.
package feedsim

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/elyx5534/sofia-feed/pkg/metrics"
	"github.com/elyx5534/sofia-feed/pkg/models"
	"github.com/elyx5534/sofia-feed/pkg/stream"
)

const (
	// walkScale bounds one step of the price walk to +-0.1%.
	walkScale = 0.001
	// maxTradeVolume caps an ordinary trade at 2 units of the base asset.
	maxTradeVolume = 2.0
)

// Config parameterizes the simulator.
type Config struct {
	Exchange      string
	Symbols       []string
	BasePrices    map[string]float64
	Interval      time.Duration
	WhaleOdds     float64 // probability that a trade is whale-sized
	WhaleNotional float64 // target notional in USDT for injected whales
	TopicMaxLen   int64
}

func (c *Config) applyDefaults() {
	if c.Exchange == "" {
		c.Exchange = "sim"
	}
	if c.Interval <= 0 {
		c.Interval = 100 * time.Millisecond
	}
	if c.WhaleNotional <= 0 {
		c.WhaleNotional = 1200000
	}
	if c.TopicMaxLen <= 0 {
		c.TopicMaxLen = 10000
	}
}

// Simulator owns the walk state for every configured symbol. Not safe for
// concurrent use; one Run loop per instance.
type Simulator struct {
	cfg     Config
	pub     Appender
	logger  *zap.Logger
	metrics *metrics.Registry
	clock   Clock
	rand    Rand

	prices map[string]float64
	seq    map[string]int64
}

// New builds a simulator. A nil clock falls back to the wall clock.
func New(cfg Config, pub Appender, logger *zap.Logger, reg *metrics.Registry, rnd Rand, clock Clock) *Simulator {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = RealClock{}
	}

	prices := make(map[string]float64, len(cfg.Symbols))
	for _, symbol := range cfg.Symbols {
		price := cfg.BasePrices[symbol]
		if price <= 0 {
			price = 100
		}
		prices[symbol] = price
	}

	return &Simulator{
		cfg:     cfg,
		pub:     pub,
		logger:  logger,
		metrics: reg,
		clock:   clock,
		rand:    rnd,
		prices:  prices,
		seq:     make(map[string]int64),
	}
}

// Run emits one trade per interval until the context ends. Publish failures
// are logged and counted; the tick is dropped and the loop continues.
func (s *Simulator) Run(ctx context.Context) {
	s.logger.Info("Simulator started",
		zap.String("exchange", s.cfg.Exchange),
		zap.Strings("symbols", s.cfg.Symbols),
		zap.Duration("interval", s.cfg.Interval),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Simulator stopped")
			return
		default:
			if len(s.cfg.Symbols) == 0 {
				s.clock.Sleep(time.Second)
				continue
			}
			s.emit(ctx)
			s.clock.Sleep(s.cfg.Interval)
		}
	}
}

func (s *Simulator) emit(ctx context.Context) {
	symbol := s.cfg.Symbols[s.rand.Intn(len(s.cfg.Symbols))]

	// One multiplicative walk step keeps the price strictly positive.
	pct := (s.rand.Float64()*2 - 1) * walkScale
	price := s.prices[symbol] * (1 + pct)
	s.prices[symbol] = price

	side := "sell"
	if s.rand.Float64() < 0.5 {
		side = "buy"
	}

	volume := s.rand.Float64() * maxTradeVolume
	whale := s.rand.Float64() < s.cfg.WhaleOdds
	if whale {
		volume = s.cfg.WhaleNotional / price
		s.metrics.Inc(metrics.Key("feedsim.whales", symbol))
	}

	s.seq[symbol]++
	tick := models.Tick{
		Exchange:  s.cfg.Exchange,
		Symbol:    symbol,
		Price:     price,
		Volume:    volume,
		Timestamp: float64(s.clock.Now().UnixNano()) / 1e9,
		Side:      side,
		TradeID:   fmt.Sprintf("%s-%s-%d", s.cfg.Exchange, symbol, s.seq[symbol]),
	}

	topic := stream.TickTopic(s.cfg.Exchange, symbol)
	if _, err := s.pub.Append(ctx, topic, tick.Fields(), s.cfg.TopicMaxLen); err != nil {
		s.logger.Error("Publish error", zap.String("topic", topic), zap.Error(err))
		s.metrics.Inc(metrics.Key("feedsim.publish_errors", symbol))
		return
	}
	s.metrics.Inc(metrics.Key("feedsim.published", symbol))
	s.logger.Debug("Sent tick",
		zap.String("symbol", symbol),
		zap.Float64("price", price),
		zap.Float64("volume", volume),
		zap.Bool("whale", whale),
	)
}

// Price exposes the current walk level for one symbol, for tests.
func (s *Simulator) Price(symbol string) float64 {
	return s.prices[symbol]
}
