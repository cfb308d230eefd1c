package models_test

import (
	"strings"
	"testing"

	"github.com/elyx5534/sofia-feed/pkg/models"
)

func TestTick_FieldsDistinguishAbsentFromZero(t *testing.T) {
	trade := models.Tick{
		Exchange:  "binance",
		Symbol:    "BTCUSDT",
		Price:     50000,
		Volume:    0.5,
		Timestamp: 1700000000.25,
		Side:      "buy",
		TradeID:   "t-1",
	}
	f := trade.Fields()
	if f["side"] != "buy" || f["trade_id"] != "t-1" {
		t.Errorf("Trade fields incomplete: %v", f)
	}
	if _, ok := f["bid"]; ok {
		t.Error("Unset bid must not be serialized")
	}

	bid, ask := 49999.5, 50000.5
	ticker := models.Tick{
		Exchange:  "bybit",
		Symbol:    "ETHUSDT",
		Price:     3000,
		Volume:    0,
		Timestamp: 1700000001,
		Bid:       &bid,
		Ask:       &ask,
	}
	f = ticker.Fields()
	if _, ok := f["side"]; ok {
		t.Error("Ticker events carry no side")
	}
	if f["bid"] != "49999.5" || f["ask"] != "50000.5" {
		t.Errorf("Quote fields wrong: bid=%s ask=%s", f["bid"], f["ask"])
	}
	if f["volume"] != "0" {
		t.Errorf("Zero volume must serialize as 0, got %q", f["volume"])
	}
}

func TestTickFromFields_RoundTrip(t *testing.T) {
	bid := 49999.5
	in := models.Tick{
		Exchange:  "binance",
		Symbol:    "BTCUSDT",
		Price:     50000.25,
		Volume:    0.125,
		Timestamp: 1700000000.125,
		Side:      "sell",
		TradeID:   "t-42",
		Bid:       &bid,
	}

	out, err := models.TickFromFields(in.Fields())
	if err != nil {
		t.Fatalf("TickFromFields failed: %v", err)
	}
	if out.Exchange != in.Exchange || out.Symbol != in.Symbol {
		t.Errorf("Identity fields changed: %+v", out)
	}
	if out.Price != in.Price || out.Volume != in.Volume || out.Timestamp != in.Timestamp {
		t.Errorf("Numeric fields changed: %+v", out)
	}
	if out.Side != "sell" || out.TradeID != "t-42" {
		t.Errorf("Trade fields changed: side=%s trade_id=%s", out.Side, out.TradeID)
	}
	if out.Bid == nil || *out.Bid != bid {
		t.Errorf("Bid lost in round trip: %v", out.Bid)
	}
	if out.Ask != nil {
		t.Error("Absent ask must stay nil after round trip")
	}
}

func TestTickFromFields_RejectsBadInput(t *testing.T) {
	valid := func() map[string]string {
		return map[string]string{
			"exchange": "binance", "symbol": "BTCUSDT",
			"price": "50000", "volume": "1", "timestamp": "1700000000",
		}
	}

	cases := []struct {
		name   string
		mutate func(map[string]string)
		errHas string
	}{
		{"MissingPrice", func(f map[string]string) { delete(f, "price") }, "price"},
		{"MissingSymbol", func(f map[string]string) { delete(f, "symbol") }, "symbol"},
		{"EmptyExchange", func(f map[string]string) { f["exchange"] = "" }, "exchange"},
		{"NonNumericVolume", func(f map[string]string) { f["volume"] = "much" }, "volume"},
		{"NonNumericBid", func(f map[string]string) { f["bid"] = "?" }, "bid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := valid()
			tc.mutate(f)
			if _, err := models.TickFromFields(f); err == nil {
				t.Fatal("Expected an error")
			} else if !strings.Contains(err.Error(), tc.errHas) {
				t.Errorf("Error should name field %q, got: %v", tc.errHas, err)
			}
		})
	}

	if _, err := models.TickFromFields(valid()); err != nil {
		t.Fatalf("Valid fields rejected: %v", err)
	}
}

func TestTick_Notional(t *testing.T) {
	tick := models.Tick{Price: 60000, Volume: 2.5}
	if got := tick.Notional(); got != 150000 {
		t.Errorf("Notional: got %v want 150000", got)
	}
}
