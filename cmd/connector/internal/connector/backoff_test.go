package connector_test

import (
	"testing"
	"time"

	"github.com/elyx5534/sofia-feed/cmd/connector/internal/connector"
	"github.com/elyx5534/sofia-feed/cmd/connector/internal/testutils"
)

func TestBackoff_MonotonicUntilCap(t *testing.T) {
	// ValFloat 0.5 makes the jitter term zero: 2*0.5 - 1 = 0
	b := connector.NewBackoff(time.Second, 60*time.Second, 0.2, &testutils.MockRand{ValFloat: 0.5})

	want := []time.Duration{
		1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 32 * time.Second, 60 * time.Second, 60 * time.Second,
	}
	prev := time.Duration(0)
	for i, expected := range want {
		got := b.Next()
		if got != expected {
			t.Errorf("Attempt %d: expected %v, got %v", i, expected, got)
		}
		if got < prev {
			t.Errorf("Attempt %d: delay decreased from %v to %v", i, prev, got)
		}
		prev = got
	}
}

func TestBackoff_JitterBounds(t *testing.T) {
	// ValFloat 0 pulls the delay down by the full jitter factor, 1 pushes it up.
	low := connector.NewBackoff(time.Second, 60*time.Second, 0.2, &testutils.MockRand{ValFloat: 0})
	high := connector.NewBackoff(time.Second, 60*time.Second, 0.2, &testutils.MockRand{ValFloat: 1})

	// Walk both to the cap.
	for i := 0; i < 10; i++ {
		lo := low.Next()
		hi := high.Next()
		if lo > hi {
			t.Errorf("Attempt %d: low jitter %v above high jitter %v", i, lo, hi)
		}
	}

	lo := low.Next()
	hi := high.Next()
	if lo != 48*time.Second { // 60 * 0.8
		t.Errorf("Expected capped low bound 48s, got %v", lo)
	}
	if hi != 72*time.Second { // 60 * 1.2
		t.Errorf("Expected capped high bound 72s, got %v", hi)
	}
}

func TestBackoff_Floor(t *testing.T) {
	b := connector.NewBackoff(10*time.Millisecond, time.Second, 0.9, &testutils.MockRand{ValFloat: 0})

	if got := b.Next(); got != 100*time.Millisecond {
		t.Errorf("Expected floor of 100ms, got %v", got)
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := connector.NewBackoff(time.Second, 60*time.Second, 0.2, &testutils.MockRand{ValFloat: 0.5})

	b.Next()
	b.Next()
	b.Next()
	if b.Attempts() != 3 {
		t.Fatalf("Expected 3 attempts, got %d", b.Attempts())
	}

	b.Reset()
	if b.Attempts() != 0 {
		t.Errorf("Expected attempts cleared, got %d", b.Attempts())
	}
	if got := b.Next(); got != time.Second {
		t.Errorf("Expected base delay after reset, got %v", got)
	}
}
