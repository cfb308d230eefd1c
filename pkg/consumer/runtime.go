package consumer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elyx5534/sofia-feed/pkg/metrics"
	"github.com/elyx5534/sofia-feed/pkg/stream"
)

// Options configure a Runtime.
type Options struct {
	Group      string // consumer group name, required
	Consumer   string // consumer identity inside the group; generated when empty
	Prefix     string // topic prefix to subscribe to, e.g. "ticks."
	Start      string // group start position for newly joined topics
	BatchSize  int64
	Block      time.Duration
	EmptySleep time.Duration
}

// Runtime drives a consumer group over every topic matching a prefix. Topics
// are re-discovered on every poll so streams created after startup are picked
// up without a restart. Messages are acknowledged only after the handler
// returns nil; on the first encounter of a topic the runtime drains entries
// left pending by a crashed predecessor before reading new ones.
type Runtime struct {
	opts    Options
	client  StreamClient
	handler Handler
	logger  *zap.Logger
	metrics *metrics.Registry

	known map[string]bool // topics already joined to the group
}

// NewRuntime wires a runtime. Zero-valued options get working defaults.
func NewRuntime(opts Options, client StreamClient, handler Handler, logger *zap.Logger, reg *metrics.Registry) *Runtime {
	if opts.Consumer == "" {
		opts.Consumer = defaultConsumerName()
	}
	if opts.Start == "" {
		opts.Start = stream.StartEnd
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Block <= 0 {
		opts.Block = 2 * time.Second
	}
	if opts.EmptySleep <= 0 {
		opts.EmptySleep = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runtime{
		opts:    opts,
		client:  client,
		handler: handler,
		logger:  logger,
		metrics: reg,
		known:   make(map[string]bool),
	}
}

// Run polls until ctx is cancelled. The returned error is ctx.Err().
func (r *Runtime) Run(ctx context.Context) error {
	r.logger.Info("Consumer starting",
		zap.String("group", r.opts.Group),
		zap.String("consumer", r.opts.Consumer),
		zap.String("prefix", r.opts.Prefix))

	for {
		if err := ctx.Err(); err != nil {
			r.logger.Info("Consumer stopping", zap.String("group", r.opts.Group))
			return err
		}

		topics, err := r.refreshTopics(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			r.logger.Error("Topic discovery failed", zap.Error(err))
			r.metrics.Inc(metrics.Key("consumer.discover_errors", r.opts.Group))
			r.sleep(ctx, r.opts.EmptySleep)
			continue
		}
		if len(topics) == 0 {
			r.sleep(ctx, r.opts.EmptySleep)
			continue
		}

		msgs, err := r.client.ReadGroup(ctx, stream.ReadGroupArgs{
			Group:    r.opts.Group,
			Consumer: r.opts.Consumer,
			Topics:   topics,
			Count:    r.opts.BatchSize,
			Block:    r.opts.Block,
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			r.logger.Error("Read failed", zap.Error(err))
			r.metrics.Inc(metrics.Key("consumer.read_errors", r.opts.Group))
			r.sleep(ctx, r.opts.EmptySleep)
			continue
		}
		if len(msgs) == 0 {
			r.sleep(ctx, r.opts.EmptySleep)
			continue
		}
		r.dispatch(ctx, msgs)
	}
}

// refreshTopics re-discovers the prefix and joins the group on any topic not
// seen before. Pending entries of a newly joined topic are drained first so a
// crashed consumer's unacknowledged work is not lost.
func (r *Runtime) refreshTopics(ctx context.Context) ([]string, error) {
	discovered, err := r.client.DiscoverTopics(ctx, r.opts.Prefix)
	if err != nil {
		return nil, err
	}

	topics := make([]string, 0, len(discovered))
	for _, topic := range discovered {
		if !r.known[topic] {
			if err := r.client.EnsureGroup(ctx, topic, r.opts.Group, r.opts.Start); err != nil {
				r.logger.Error("Group create failed", zap.String("topic", topic), zap.Error(err))
				continue
			}
			r.known[topic] = true
			r.drainPending(ctx, topic)
			r.logger.Info("Joined topic", zap.String("topic", topic), zap.String("group", r.opts.Group))
		}
		topics = append(topics, topic)
	}

	r.metrics.SetGauge(metrics.Key("consumer.topics", r.opts.Group), float64(len(topics)))
	return topics, nil
}

// drainPending re-reads this consumer's unacknowledged entries on one topic
// and runs them through the handler again. Entries whose handler fails again
// stay pending; the drain stops once a pass acknowledges nothing, otherwise
// the same entries would come straight back.
func (r *Runtime) drainPending(ctx context.Context, topic string) {
	for {
		msgs, err := r.client.ReadGroup(ctx, stream.ReadGroupArgs{
			Group:    r.opts.Group,
			Consumer: r.opts.Consumer,
			Topics:   []string{topic},
			Count:    r.opts.BatchSize,
			Pending:  true,
		})
		if err != nil {
			if ctx.Err() == nil {
				r.logger.Error("Pending drain failed", zap.String("topic", topic), zap.Error(err))
			}
			return
		}
		if len(msgs) == 0 {
			return
		}
		r.logger.Info("Redelivering pending entries", zap.String("topic", topic), zap.Int("count", len(msgs)))
		r.metrics.Add(metrics.Key("consumer.redelivered", r.opts.Group), uint64(len(msgs)))
		if r.dispatch(ctx, msgs) == 0 {
			return
		}
	}
}

// dispatch runs the handler over a batch and acks successes. Returns the
// number of acknowledged messages.
func (r *Runtime) dispatch(ctx context.Context, msgs []stream.Message) int {
	acked := 0
	for _, msg := range msgs {
		start := time.Now()
		err := r.handler.HandleMessage(ctx, msg)
		r.metrics.Observe(metrics.Key("consumer.handle_latency", r.opts.Group), time.Since(start))

		if err != nil {
			// No ack: the entry stays pending and comes back on redelivery.
			r.logger.Error("Handler failed",
				zap.String("topic", msg.Topic),
				zap.String("id", msg.ID),
				zap.Error(err))
			r.metrics.Inc(metrics.Key("consumer.handler_errors", r.opts.Group))
			continue
		}

		if err := r.client.Ack(ctx, msg.Topic, r.opts.Group, msg.ID); err != nil {
			r.logger.Error("Ack failed",
				zap.String("topic", msg.Topic),
				zap.String("id", msg.ID),
				zap.Error(err))
			r.metrics.Inc(metrics.Key("consumer.ack_errors", r.opts.Group))
			continue
		}
		acked++
		r.metrics.Inc(metrics.Key("consumer.processed", r.opts.Group))
	}
	return acked
}

func (r *Runtime) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func defaultConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "consumer"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
