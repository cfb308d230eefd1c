package connector

import (
	"sync"
	"time"
)

// StalenessTracker keeps a last-receipt watermark per symbol. Watermarks are
// seeded when streaming starts so a symbol that never delivers still ages.
// Touch runs on the read loop while Snapshot runs on the checker goroutine,
// hence the lock.
type StalenessTracker struct {
	mu        sync.Mutex
	threshold time.Duration
	last      map[string]time.Time
}

func NewStalenessTracker(threshold time.Duration) *StalenessTracker {
	return &StalenessTracker{
		threshold: threshold,
		last:      make(map[string]time.Time),
	}
}

// Seed resets every watermark to now. Called when the connector enters
// streaming.
func (s *StalenessTracker) Seed(symbols []string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = make(map[string]time.Time, len(symbols))
	for _, symbol := range symbols {
		s.last[symbol] = now
	}
}

// Touch records a message receipt for one symbol.
func (s *StalenessTracker) Touch(symbol string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[symbol] = now
}

// StaleRatio returns stale/total, along with the stale symbols. An empty
// tracker reports 0.
func (s *StalenessTracker) StaleRatio(now time.Time) (float64, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.last) == 0 {
		return 0, nil
	}

	var stale []string
	for symbol, seen := range s.last {
		if now.Sub(seen) > s.threshold {
			stale = append(stale, symbol)
		}
	}
	return float64(len(stale)) / float64(len(s.last)), stale
}

// Stale reports whether more than half the tracked symbols have gone quiet.
func (s *StalenessTracker) Stale(now time.Time) bool {
	ratio, _ := s.StaleRatio(now)
	return ratio > 0.5
}
