package connector

import (
	"math"
	"time"
)

const minBackoff = 100 * time.Millisecond

// Backoff produces exponentially growing reconnect delays with symmetric
// jitter. Not safe for concurrent use; each connector owns one.
type Backoff struct {
	base     time.Duration
	cap      time.Duration
	jitter   float64 // fraction of the delay, e.g. 0.2 for +-20%
	rand     Rand
	attempts int
}

func NewBackoff(base, cap time.Duration, jitter float64, rand Rand) *Backoff {
	return &Backoff{base: base, cap: cap, jitter: jitter, rand: rand}
}

// Next returns the delay for the current attempt and advances the counter.
// delay = min(base * 2^attempts, cap), then +- jitter, floored at 100ms.
func (b *Backoff) Next() time.Duration {
	delay := float64(b.base) * math.Pow(2, float64(b.attempts))
	if delay > float64(b.cap) {
		delay = float64(b.cap)
	}

	jitter := delay * b.jitter * (2*b.rand.Float64() - 1)
	final := delay + jitter
	if final < float64(minBackoff) {
		final = float64(minBackoff)
	}

	b.attempts++
	return time.Duration(final)
}

// Reset clears the attempt counter after a successful connection.
func (b *Backoff) Reset() { b.attempts = 0 }

// Attempts reports how many delays have been handed out since the last reset.
func (b *Backoff) Attempts() int { return b.attempts }
