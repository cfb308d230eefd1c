package detector

import (
	"context"
	"time"
)

// Appender publishes alerts to the durable log.
type Appender interface {
	Append(ctx context.Context, topic string, fields map[string]string, maxLen int64) (string, error)
}

// for deterministic testing
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
