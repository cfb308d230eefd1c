package detector_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/elyx5534/sofia-feed/cmd/detector/internal/detector"
)

func wentry(exchange, side string, ts, notional float64) detector.WindowEntry {
	return detector.WindowEntry{
		Exchange:  exchange,
		Side:      side,
		Timestamp: ts,
		Notional:  decimal.NewFromFloat(notional),
	}
}

func TestTradeWindow_KeepsRecentEntries(t *testing.T) {
	w := detector.NewTradeWindow(300)
	w.Add(wentry("binance", "buy", 0, 100000))
	w.Add(wentry("binance", "buy", 100, 100000))
	w.Add(wentry("binance", "buy", 200, 100000))

	if w.Len() != 3 {
		t.Fatalf("window len = %d, want 3", w.Len())
	}
}

func TestTradeWindow_PrunesOnInsert(t *testing.T) {
	w := detector.NewTradeWindow(300)
	w.Add(wentry("binance", "buy", 0, 100000))
	w.Add(wentry("binance", "buy", 50, 100000))

	// New trade at 350: the entry at 0 ages out, the one at exactly the span
	// boundary stays.
	w.Add(wentry("binance", "buy", 350, 100000))

	if w.Len() != 2 {
		t.Fatalf("window len = %d, want 2", w.Len())
	}
	entries := w.Entries()
	if entries[0].Timestamp != 50 || entries[1].Timestamp != 350 {
		t.Errorf("wrong survivors: %v, %v", entries[0].Timestamp, entries[1].Timestamp)
	}
}

func TestTradeWindow_OrderIsOldestFirst(t *testing.T) {
	w := detector.NewTradeWindow(300)
	w.Add(wentry("binance", "buy", 10, 1))
	w.Add(wentry("bybit", "sell", 20, 2))

	entries := w.Entries()
	if len(entries) != 2 || entries[0].Timestamp != 10 || entries[1].Timestamp != 20 {
		t.Errorf("unexpected order: %+v", entries)
	}
}
