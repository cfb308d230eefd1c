package connector

import (
	"context"
	"math/rand"
	"time"
)

// Publisher appends canonical ticks to the durable log.
type Publisher interface {
	Append(ctx context.Context, topic string, fields map[string]string, maxLen int64) (string, error)
}

// for deterministic testing
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// for deterministic jitter
type Rand interface {
	Float64() float64
}

type RealClock struct{}

func (RealClock) Now() time.Time        { return time.Now() }
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

type RealRand struct{ *rand.Rand }

func (r RealRand) Float64() float64 { return r.Rand.Float64() }
