package consumer

import (
	"context"

	"github.com/elyx5534/sofia-feed/pkg/stream"
)

// StreamClient is the subset of the stream client the runtime needs.
// Narrow interface keeps tests simple.
type StreamClient interface {
	DiscoverTopics(ctx context.Context, prefix string) ([]string, error)
	EnsureGroup(ctx context.Context, topic, group, start string) error
	ReadGroup(ctx context.Context, args stream.ReadGroupArgs) ([]stream.Message, error)
	Ack(ctx context.Context, topic, group, id string) error
}

// Handler processes one delivered message. A non-nil error leaves the
// message pending in the group so it is redelivered later; handlers must
// therefore tolerate seeing the same message twice.
type Handler interface {
	HandleMessage(ctx context.Context, msg stream.Message) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg stream.Message) error

func (f HandlerFunc) HandleMessage(ctx context.Context, msg stream.Message) error {
	return f(ctx, msg)
}
