package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/elyx5534/sofia-feed/pkg/metrics"
	"github.com/elyx5534/sofia-feed/pkg/models"
	"github.com/elyx5534/sofia-feed/pkg/stream"
)

// Config tunes one whale detector.
type Config struct {
	MinTradeUSDT        float64
	LargeTradeUSDT      float64
	MegaTradeUSDT       float64
	AccumWindowSec      float64
	AccumThresholdUSDT  float64
	MinTradesForPattern int
	TopicMaxLen         int64
}

func (c *Config) applyDefaults() {
	if c.MinTradeUSDT <= 0 {
		c.MinTradeUSDT = 100000
	}
	if c.LargeTradeUSDT <= 0 {
		c.LargeTradeUSDT = 500000
	}
	if c.MegaTradeUSDT <= 0 {
		c.MegaTradeUSDT = 1000000
	}
	if c.AccumWindowSec <= 0 {
		c.AccumWindowSec = 300
	}
	if c.AccumThresholdUSDT <= 0 {
		c.AccumThresholdUSDT = 200000
	}
	if c.MinTradesForPattern <= 0 {
		c.MinTradesForPattern = 3
	}
	if c.TopicMaxLen <= 0 {
		c.TopicMaxLen = 5000
	}
}

// Detector watches the tick firehose for whale-sized trades and emits tiered
// alerts. Windows are keyed per symbol and touched only by the handler
// goroutine.
type Detector struct {
	cfg     Config
	rules   Rules
	minD    decimal.Decimal
	pub     Appender
	router  *Router
	logger  *zap.Logger
	metrics *metrics.Registry
	clock   Clock

	windows map[string]*TradeWindow
}

func New(cfg Config, pub Appender, router *Router, logger *zap.Logger, reg *metrics.Registry, clock Clock) *Detector {
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
	if router == nil {
		router = NewRouter(logger, reg, DefaultRoutes(logger)...)
	}
	return &Detector{
		cfg: cfg,
		rules: Rules{
			Thresholds: Thresholds{
				Min:   decimal.NewFromFloat(cfg.MinTradeUSDT),
				Large: decimal.NewFromFloat(cfg.LargeTradeUSDT),
				Mega:  decimal.NewFromFloat(cfg.MegaTradeUSDT),
			},
			AccumThreshold: decimal.NewFromFloat(cfg.AccumThresholdUSDT),
			MinTrades:      cfg.MinTradesForPattern,
		},
		minD:    decimal.NewFromFloat(cfg.MinTradeUSDT),
		pub:     pub,
		router:  router,
		logger:  logger,
		metrics: reg,
		clock:   clock,
		windows: make(map[string]*TradeWindow),
	}
}

// DefaultRoutes is the severity fan-out with log-backed channels: webhook for
// medium and above, email for high and above, a critical-only channel.
func DefaultRoutes(logger *zap.Logger) []Route {
	return []Route{
		{Notifier: NewLogNotifier("webhook", logger), Min: models.SeverityMedium},
		{Notifier: NewLogNotifier("email", logger), Min: models.SeverityHigh},
		{Notifier: NewLogNotifier("critical", logger), Min: models.SeverityCritical, Exact: true},
	}
}

// HandleMessage screens one tick. Ticker events and trades below the min
// threshold are dropped before the window; qualifying trades run the rules
// and the resulting alerts are persisted and fanned out. A persist failure
// leaves the message unacked, so duplicate alerts on redelivery are possible
// and accepted.
func (d *Detector) HandleMessage(ctx context.Context, msg stream.Message) error {
	tick, err := models.TickFromFields(msg.Fields)
	if err != nil {
		return fmt.Errorf("decode tick from %s: %w", msg.Topic, err)
	}

	if tick.Side == "" {
		return nil
	}
	notional := decimal.NewFromFloat(tick.Price).Mul(decimal.NewFromFloat(tick.Volume))
	d.metrics.ObserveValue(metrics.Key("detector.trade_volume", tick.Symbol), tick.Notional())
	if notional.LessThan(d.minD) {
		return nil
	}
	d.metrics.Inc(metrics.Key("detector.qualifying", tick.Symbol))

	snapshot := models.TradeSnapshot{
		Exchange:   tick.Exchange,
		Symbol:     tick.Symbol,
		Price:      tick.Price,
		Volume:     tick.Volume,
		Timestamp:  tick.Timestamp,
		Side:       tick.Side,
		VolumeUSDT: notional,
		TradeID:    tick.TradeID,
	}

	w := d.window(tick.Symbol)
	w.Add(WindowEntry{
		Exchange:  tick.Exchange,
		Side:      tick.Side,
		Timestamp: tick.Timestamp,
		Notional:  notional,
	})

	now := float64(d.clock.Now().UnixNano()) / 1e9
	for _, alert := range d.rules.Evaluate(snapshot, w.Entries()) {
		alert.ID = uuid.NewString()
		alert.CreatedAt = now
		if err := d.persist(ctx, alert); err != nil {
			return err
		}
		d.metrics.Inc(metrics.Key("detector.alerts", alert.AlertType, alert.Severity))
		d.metrics.Observe("detector.alert_latency",
			time.Duration((now-tick.Timestamp)*float64(time.Second)))
		d.logger.Info("Whale alert",
			zap.String("id", alert.ID),
			zap.String("type", alert.AlertType),
			zap.String("severity", alert.Severity),
			zap.String("symbol", alert.Trade.Symbol),
			zap.String("notional", alert.Trade.VolumeUSDT.String()))
		d.router.Dispatch(ctx, alert)
	}
	return nil
}

// persist writes the alert to the aggregate topic and its severity tier.
func (d *Detector) persist(ctx context.Context, alert models.Alert) error {
	fields := alert.Fields()
	aggregate := stream.AlertTopic(stream.AlertCategoryWhales)
	if _, err := d.pub.Append(ctx, aggregate, fields, d.cfg.TopicMaxLen); err != nil {
		return fmt.Errorf("persist alert to %s: %w", aggregate, err)
	}
	tier := stream.AlertSeverityTopic(stream.AlertCategoryWhales, alert.Severity)
	if _, err := d.pub.Append(ctx, tier, fields, d.cfg.TopicMaxLen); err != nil {
		return fmt.Errorf("persist alert to %s: %w", tier, err)
	}
	return nil
}

func (d *Detector) window(symbol string) *TradeWindow {
	w, ok := d.windows[symbol]
	if !ok {
		w = NewTradeWindow(d.cfg.AccumWindowSec)
		d.windows[symbol] = w
	}
	return w
}

// WindowLen reports the current window size for a symbol, mainly for tests.
func (d *Detector) WindowLen(symbol string) int {
	w, ok := d.windows[symbol]
	if !ok {
		return 0
	}
	return w.Len()
}
