package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/elyx5534/sofia-feed/pkg/metrics"
	"github.com/elyx5534/sofia-feed/pkg/stream"
)

// Bridge forwards alert entries from the durable log into Kafka, giving
// systems outside the Redis cluster the same at-least-once alert flow. The
// Kafka write happens before the ack, so a write failure leads to
// redelivery, not loss.
type Bridge struct {
	writer  KafkaWriter
	logger  *zap.Logger
	metrics *metrics.Registry
}

func New(writer KafkaWriter, logger *zap.Logger, reg *metrics.Registry) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{writer: writer, logger: logger, metrics: reg}
}

// HandleMessage forwards one aggregate-topic alert. Severity-tier entries
// duplicate the aggregate, so they are acked without forwarding.
func (b *Bridge) HandleMessage(ctx context.Context, msg stream.Message) error {
	if isSeverityTier(msg.Topic) {
		b.metrics.Inc("bridge.tier_skipped")
		return nil
	}

	payload, err := sonic.ConfigFastest.Marshal(msg.Fields)
	if err != nil {
		return fmt.Errorf("encode alert %s: %w", msg.ID, err)
	}

	err = b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Fields["symbol"]), // Key ensures partition ordering
		Value: payload,
	})
	if err != nil {
		b.metrics.Inc("bridge.write_errors")
		return fmt.Errorf("kafka write for %s: %w", msg.ID, err)
	}

	b.metrics.Inc("bridge.forwarded")
	b.logger.Debug("Forwarded alert",
		zap.String("topic", msg.Topic),
		zap.String("id", msg.ID))
	return nil
}

// isSeverityTier reports whether the topic is an alerts severity tier
// (alerts.<category>.<severity>) rather than a category aggregate.
func isSeverityTier(topic string) bool {
	rest := strings.TrimPrefix(topic, stream.AlertTopicPrefix)
	return strings.Contains(rest, ".")
}
