package connector_test

import (
	"testing"
	"time"

	"github.com/elyx5534/sofia-feed/cmd/connector/internal/connector"
)

func TestStalenessTracker_ExactRatio(t *testing.T) {
	start := time.Unix(1700000000, 0)
	tracker := connector.NewStalenessTracker(60 * time.Second)
	tracker.Seed([]string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "XRPUSDT"}, start)

	// One symbol keeps delivering, three go quiet.
	now := start.Add(70 * time.Second)
	tracker.Touch("BTCUSDT", now)

	ratio, stale := tracker.StaleRatio(now)
	if ratio != 0.75 {
		t.Errorf("Expected ratio 0.75, got %f", ratio)
	}
	if len(stale) != 3 {
		t.Errorf("Expected 3 stale symbols, got %v", stale)
	}
	if !tracker.Stale(now) {
		t.Error("Expected stale flag above 0.5")
	}
}

func TestStalenessTracker_ThresholdIsExclusive(t *testing.T) {
	start := time.Unix(1700000000, 0)
	tracker := connector.NewStalenessTracker(60 * time.Second)
	tracker.Seed([]string{"BTCUSDT", "ETHUSDT"}, start)

	// Exactly at the threshold is not yet stale.
	ratio, _ := tracker.StaleRatio(start.Add(60 * time.Second))
	if ratio != 0 {
		t.Errorf("Expected ratio 0 at exact threshold age, got %f", ratio)
	}

	ratio, _ = tracker.StaleRatio(start.Add(60*time.Second + time.Nanosecond))
	if ratio != 1 {
		t.Errorf("Expected ratio 1 just past threshold, got %f", ratio)
	}
}

func TestStalenessTracker_FlagNeedsMajority(t *testing.T) {
	start := time.Unix(1700000000, 0)
	tracker := connector.NewStalenessTracker(60 * time.Second)
	tracker.Seed([]string{"A", "B", "C", "D"}, start)

	now := start.Add(2 * time.Minute)
	tracker.Touch("A", now)
	tracker.Touch("B", now)

	// Exactly half stale: ratio 0.5 does not trip the flag.
	ratio, _ := tracker.StaleRatio(now)
	if ratio != 0.5 {
		t.Fatalf("Expected ratio 0.5, got %f", ratio)
	}
	if tracker.Stale(now) {
		t.Error("Flag should require a strict majority")
	}

	tracker.Seed([]string{"A", "B", "C", "D"}, start)
	tracker.Touch("A", now)
	if !tracker.Stale(now) {
		t.Error("Expected flag at ratio 0.75")
	}
}

func TestStalenessTracker_EmptyTracker(t *testing.T) {
	tracker := connector.NewStalenessTracker(60 * time.Second)

	ratio, stale := tracker.StaleRatio(time.Now())
	if ratio != 0 || stale != nil {
		t.Errorf("Empty tracker should report 0, got %f %v", ratio, stale)
	}
}

func TestStalenessTracker_SeedResetsWatermarks(t *testing.T) {
	start := time.Unix(1700000000, 0)
	tracker := connector.NewStalenessTracker(60 * time.Second)
	tracker.Seed([]string{"BTCUSDT"}, start)

	// Reconnect an hour later reseeds, so nothing is stale.
	later := start.Add(time.Hour)
	tracker.Seed([]string{"BTCUSDT"}, later)

	if tracker.Stale(later) {
		t.Error("Fresh seed should clear staleness")
	}
}
