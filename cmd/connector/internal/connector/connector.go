package connector

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/elyx5534/sofia-feed/cmd/connector/internal/exchange"
	"github.com/elyx5534/sofia-feed/pkg/metrics"
	"github.com/elyx5534/sofia-feed/pkg/stream"
)

type Config struct {
	Symbols        []string
	PingInterval   time.Duration
	StaleThreshold time.Duration
	StaleCheck     time.Duration
	BackoffBase    time.Duration
	BackoffCap     time.Duration
	JitterFactor   float64
	DedupCapacity  int
	TopicMaxLen    int64
}

func (c *Config) applyDefaults() {
	if c.PingInterval <= 0 {
		c.PingInterval = 20 * time.Second
	}
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = 60 * time.Second
	}
	if c.StaleCheck <= 0 {
		c.StaleCheck = 5 * time.Second
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 60 * time.Second
	}
	if c.JitterFactor <= 0 {
		c.JitterFactor = 0.2
	}
	if c.DedupCapacity <= 0 {
		c.DedupCapacity = 10000
	}
}

// Connector drives one exchange socket through its connect, subscribe and
// stream cycle, publishing canonical ticks. It exclusively owns its socket,
// dedup cache and staleness watermarks; connectors never share state.
type Connector struct {
	adapter exchange.Adapter
	dialer  exchange.Dialer
	pub     Publisher
	logger  *zap.Logger
	metrics *metrics.Registry
	clock   Clock
	cfg     Config

	state   atomic.Int32
	running atomic.Bool

	mu   sync.Mutex
	conn exchange.Conn

	backoff *Backoff
	dedup   *DedupCache
	watch   *StalenessTracker
}

func New(cfg Config, adapter exchange.Adapter, dialer exchange.Dialer, pub Publisher, logger *zap.Logger, reg *metrics.Registry, clock Clock, rnd Rand) *Connector {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = RealClock{}
	}
	if rnd == nil {
		rnd = RealRand{rand.New(rand.NewSource(time.Now().UnixNano()))}
	}

	return &Connector{
		adapter: adapter,
		dialer:  dialer,
		pub:     pub,
		logger:  logger,
		metrics: reg,
		clock:   clock,
		cfg:     cfg,
		backoff: NewBackoff(cfg.BackoffBase, cfg.BackoffCap, cfg.JitterFactor, rnd),
		dedup:   NewDedupCache(cfg.DedupCapacity),
		watch:   NewStalenessTracker(cfg.StaleThreshold),
	}
}

// Run connects and streams until Stop is called or ctx ends, reconnecting
// with backoff after every failure.
func (c *Connector) Run(ctx context.Context) {
	c.running.Store(true)
	c.logger.Info("Connector starting",
		zap.String("exchange", c.adapter.Name()),
		zap.Strings("symbols", c.cfg.Symbols))

	// A blocked socket read only ends when the socket closes, so ctx
	// cancellation must reach Stop.
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			c.Stop()
		case <-finished:
		}
	}()

	for c.running.Load() {
		err := c.connectAndStream(ctx)
		if !c.running.Load() {
			break
		}

		delay := c.backoff.Next()
		c.metrics.Inc(metrics.Key("connector.reconnects", c.adapter.Name()))
		c.logger.Warn("Connection lost, backing off",
			zap.String("exchange", c.adapter.Name()),
			zap.Duration("delay", delay),
			zap.Int("attempts", c.backoff.Attempts()),
			zap.Error(err))
		c.clock.Sleep(delay)
	}

	c.setState(StateStopped)
	c.logger.Info("Connector stopped", zap.String("exchange", c.adapter.Name()))
}

// Stop halts the reconnect loop and closes the socket to unblock a pending
// read. Safe to call more than once.
func (c *Connector) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	c.logger.Info("Connector stopping", zap.String("exchange", c.adapter.Name()))
	c.closeConn()
}

// State reports the connector's current lifecycle state.
func (c *Connector) State() State { return State(c.state.Load()) }

func (c *Connector) connectAndStream(ctx context.Context) error {
	c.setState(StateConnecting)
	url := c.adapter.BuildURL(c.cfg.Symbols)

	conn, err := c.dialer.Dial(url)
	if err != nil {
		c.setState(StateDisconnected)
		c.metrics.Inc(metrics.Key("connector.connect_errors", c.adapter.Name()))
		return fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer c.closeConn()
	defer c.setState(StateDisconnected)

	c.setState(StateSubscribing)
	if err := c.adapter.Subscribe(conn, c.cfg.Symbols); err != nil {
		c.metrics.Inc(metrics.Key("connector.subscribe_errors", c.adapter.Name()))
		return fmt.Errorf("subscribe: %w", err)
	}

	c.setState(StateStreaming)
	c.backoff.Reset()
	c.watch.Seed(c.cfg.Symbols, c.clock.Now())
	c.metrics.SetGauge(metrics.Key("connector.connected", c.adapter.Name()), 1)
	defer c.metrics.SetGauge(metrics.Key("connector.connected", c.adapter.Name()), 0)
	c.logger.Info("Streaming", zap.String("exchange", c.adapter.Name()), zap.String("url", url))

	done := make(chan struct{})
	defer close(done)
	go c.pingLoop(conn, done)
	go c.staleLoop(done)

	// Data frames and pongs both extend the read deadline.
	pongWait := 3 * c.cfg.PingInterval
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for c.running.Load() {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !c.running.Load() {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handleFrame(ctx, raw)
	}
	return nil
}

func (c *Connector) handleFrame(ctx context.Context, raw []byte) {
	ticks, err := c.adapter.Parse(raw)
	if err != nil {
		c.metrics.Inc(metrics.Key("connector.parse_errors", c.adapter.Name()))
		c.logger.Debug("Dropping unparsable frame",
			zap.String("exchange", c.adapter.Name()),
			zap.Error(err))
		return
	}

	now := c.clock.Now()
	for _, tick := range ticks {
		c.watch.Touch(tick.Symbol, now)
		c.metrics.Inc(metrics.Key("connector.ticks", tick.Exchange, tick.Symbol))

		if c.dedup.Seen(tick) {
			c.metrics.Inc(metrics.Key("connector.duplicates", c.adapter.Name()))
			continue
		}

		topic := stream.TickTopic(tick.Exchange, tick.Symbol)
		if _, err := c.pub.Append(ctx, topic, tick.Fields(), c.cfg.TopicMaxLen); err != nil {
			// The tick is dropped; there is no local retry buffer.
			c.metrics.Inc(metrics.Key("connector.publish_errors", c.adapter.Name()))
			c.logger.Error("Publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}
}

func (c *Connector) pingLoop(conn exchange.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (c *Connector) staleLoop(done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.StaleCheck)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.checkStaleness()
		}
	}
}

func (c *Connector) checkStaleness() {
	name := c.adapter.Name()
	ratio, stale := c.watch.StaleRatio(c.clock.Now())
	c.metrics.SetGauge(metrics.Key("connector.stale_ratio", name), ratio)

	flag := 0.0
	if ratio > 0.5 {
		flag = 1.0
		c.logger.Warn("Feed stale",
			zap.String("exchange", name),
			zap.Float64("stale_ratio", ratio),
			zap.Strings("symbols", stale))
	}
	c.metrics.SetGauge(metrics.Key("connector.stale", name), flag)
}

func (c *Connector) setState(s State) { c.state.Store(int32(s)) }

func (c *Connector) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
