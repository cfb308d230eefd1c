package detector

import "github.com/shopspring/decimal"

// WindowEntry is one qualifying trade held in a symbol's sliding window.
type WindowEntry struct {
	Exchange  string
	Side      string
	Timestamp float64 // epoch seconds, exchange event time
	Notional  decimal.Decimal
}

// TradeWindow holds the recent qualifying trades for one symbol, bounded by
// time rather than count. Owned by the detector's handler goroutine, so no
// locking.
type TradeWindow struct {
	span    float64 // seconds
	entries []WindowEntry
}

func NewTradeWindow(span float64) *TradeWindow {
	return &TradeWindow{span: span}
}

// Add prunes entries older than the window span relative to the new trade's
// event time, then appends it. Pruning keys off event time so replays behave
// the same as live traffic.
func (w *TradeWindow) Add(e WindowEntry) {
	cutoff := e.Timestamp - w.span
	kept := w.entries[:0]
	for _, old := range w.entries {
		if old.Timestamp >= cutoff {
			kept = append(kept, old)
		}
	}
	w.entries = append(kept, e)
}

// Entries returns the current window contents, oldest first.
func (w *TradeWindow) Entries() []WindowEntry {
	return w.entries
}

func (w *TradeWindow) Len() int {
	return len(w.entries)
}
