package features

import (
	"context"
	"time"
)

// Appender publishes derived records to the durable log.
type Appender interface {
	Append(ctx context.Context, topic string, fields map[string]string, maxLen int64) (string, error)
}

// for deterministic testing
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type RealClock struct{}

func (RealClock) Now() time.Time        { return time.Now() }
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }
