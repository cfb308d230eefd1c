package stream

import (
	"context"
	"time"
)

// Start positions for newly created consumer groups.
const (
	StartBeginning = "0"
	StartEnd       = "$"
)

// Message is one entry delivered from a topic.
type Message struct {
	Topic  string
	ID     string
	Fields map[string]string
}

// ReadGroupArgs parameterizes a blocking group read across topics.
type ReadGroupArgs struct {
	Group    string
	Consumer string
	Topics   []string
	Count    int64
	Block    time.Duration
	// Pending re-reads this consumer's own unacknowledged entries instead of
	// new messages. Used once per topic at startup so work lost between
	// processing and ack is redelivered.
	Pending bool
}

// Client is the substrate contract the pipeline is written against.
//
// Guarantees required from an implementation: at-least-once delivery per
// (topic, group), FIFO ordering within a topic, no ordering across topics,
// and unacknowledged messages staying redeliverable to the group.
// Implementations must be safe for concurrent use by many goroutines.
type Client interface {
	// Append adds an entry to a topic, creating it if needed. A positive
	// maxLen bounds the topic length approximately (oldest entries dropped).
	Append(ctx context.Context, topic string, fields map[string]string, maxLen int64) (string, error)

	// EnsureGroup creates a consumer group at the given start position.
	// Idempotent: a group that already exists is left untouched.
	EnsureGroup(ctx context.Context, topic, group, start string) error

	// ReadGroup blocks up to args.Block and returns whatever is available,
	// possibly nothing.
	ReadGroup(ctx context.Context, args ReadGroupArgs) ([]Message, error)

	// Ack marks one entry processed for the group.
	Ack(ctx context.Context, topic, group, id string) error

	// DiscoverTopics lists existing topics matching a name prefix. Producers
	// create topics dynamically, so consumers rescan periodically.
	DiscoverTopics(ctx context.Context, prefix string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}
