package detector_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/elyx5534/sofia-feed/cmd/detector/internal/detector"
	"github.com/elyx5534/sofia-feed/pkg/models"
)

func testRules() detector.Rules {
	return detector.Rules{
		Thresholds: detector.Thresholds{
			Min:   decimal.NewFromInt(100000),
			Large: decimal.NewFromInt(500000),
			Mega:  decimal.NewFromInt(1000000),
		},
		AccumThreshold: decimal.NewFromInt(200000),
		MinTrades:      3,
	}
}

func tsnap(exchange, side string, notional float64) models.TradeSnapshot {
	return models.TradeSnapshot{
		Exchange:   exchange,
		Symbol:     "BTCUSDT",
		Price:      50000,
		Volume:     notional / 50000,
		Timestamp:  100,
		Side:       side,
		VolumeUSDT: decimal.NewFromFloat(notional),
	}
}

func byType(alerts []models.Alert, alertType string) []models.Alert {
	var out []models.Alert
	for _, a := range alerts {
		if a.AlertType == alertType {
			out = append(out, a)
		}
	}
	return out
}

func TestThresholds_SeverityTiers(t *testing.T) {
	th := testRules().Thresholds

	cases := []struct {
		notional float64
		want     string
	}{
		{100000, models.SeverityLow},
		{199999.99, models.SeverityLow},
		{200000, models.SeverityMedium}, // exactly 2x min
		{499999.99, models.SeverityMedium},
		{500000, models.SeverityHigh}, // exactly the large threshold
		{999999.99, models.SeverityHigh},
		{1000000, models.SeverityCritical},
		{5000000, models.SeverityCritical},
	}
	for _, c := range cases {
		if got := th.Severity(decimal.NewFromFloat(c.notional)); got != c.want {
			t.Errorf("Severity(%v) = %s, want %s", c.notional, got, c.want)
		}
	}
}

func TestRules_SingleTradeAlwaysFires(t *testing.T) {
	trade := tsnap("binance", "buy", 150000)
	window := []detector.WindowEntry{wentry("binance", "buy", 100, 150000)}

	alerts := testRules().Evaluate(trade, window)
	singles := byType(alerts, models.AlertSingleTrade)
	if len(singles) != 1 {
		t.Fatalf("expected 1 single_trade alert, got %d", len(singles))
	}
	if singles[0].Severity != models.SeverityLow {
		t.Errorf("severity = %s, want low", singles[0].Severity)
	}
	if !strings.Contains(singles[0].Message, "BTCUSDT") {
		t.Errorf("message missing symbol: %q", singles[0].Message)
	}
	if len(alerts) != 1 {
		t.Errorf("lone trade should only fire single_trade, got %d alerts", len(alerts))
	}
}

func TestRules_AccumulationAtThreshold(t *testing.T) {
	// 100k + 120k + 100k = 320k: over the 200k accumulation threshold but
	// under the 500k large tier.
	window := []detector.WindowEntry{
		wentry("binance", "buy", 10, 100000),
		wentry("binance", "buy", 20, 120000),
		wentry("binance", "buy", 30, 100000),
	}
	alerts := testRules().Evaluate(tsnap("binance", "buy", 100000), window)

	accums := byType(alerts, models.AlertAccumulation)
	if len(accums) != 1 {
		t.Fatalf("expected exactly 1 accumulation alert, got %d", len(accums))
	}
	if accums[0].Severity != models.SeverityMedium {
		t.Errorf("severity = %s, want medium", accums[0].Severity)
	}
	if accums[0].Context["window_notional"] != "320000" {
		t.Errorf("window notional = %s, want 320000", accums[0].Context["window_notional"])
	}
	if accums[0].Context["window_trades"] != "3" {
		t.Errorf("window trades = %s, want 3", accums[0].Context["window_trades"])
	}
}

func TestRules_AccumulationNeedsTwoTrades(t *testing.T) {
	window := []detector.WindowEntry{wentry("binance", "buy", 10, 250000)}
	alerts := testRules().Evaluate(tsnap("binance", "buy", 250000), window)

	if got := byType(alerts, models.AlertAccumulation); len(got) != 0 {
		t.Errorf("one trade fired accumulation: %+v", got)
	}
}

func TestRules_AccumulationGoesHighAtLargeSum(t *testing.T) {
	window := []detector.WindowEntry{
		wentry("binance", "buy", 10, 300000),
		wentry("binance", "buy", 20, 300000),
	}
	alerts := testRules().Evaluate(tsnap("binance", "buy", 300000), window)

	accums := byType(alerts, models.AlertAccumulation)
	if len(accums) != 1 {
		t.Fatalf("expected 1 accumulation alert, got %d", len(accums))
	}
	if accums[0].Severity != models.SeverityHigh {
		t.Errorf("severity = %s, want high for a 600k sum", accums[0].Severity)
	}
}

func TestRules_AccumulationFiltersSideAndExchange(t *testing.T) {
	window := []detector.WindowEntry{
		wentry("binance", "buy", 10, 150000),
		wentry("binance", "sell", 20, 150000), // other side
		wentry("bybit", "buy", 30, 150000),    // other exchange
		wentry("binance", "buy", 40, 150000),
	}
	alerts := testRules().Evaluate(tsnap("binance", "buy", 150000), window)

	accums := byType(alerts, models.AlertAccumulation)
	if len(accums) != 1 {
		t.Fatalf("expected 1 accumulation alert, got %d", len(accums))
	}
	if accums[0].Context["window_notional"] != "300000" {
		t.Errorf("sum = %s, want 300000 (same side+exchange only)",
			accums[0].Context["window_notional"])
	}
	if accums[0].Context["window_trades"] != "2" {
		t.Errorf("count = %s, want 2", accums[0].Context["window_trades"])
	}
}

func TestRules_UnusualActivityNeedsFrequency(t *testing.T) {
	two := []detector.WindowEntry{
		wentry("binance", "buy", 10, 100000),
		wentry("bybit", "sell", 20, 100000),
	}
	alerts := testRules().Evaluate(tsnap("bybit", "sell", 100000), two)
	if got := byType(alerts, models.AlertUnusualActivity); len(got) != 0 {
		t.Errorf("2 trades fired unusual_activity: %+v", got)
	}

	three := append(two, wentry("kraken", "buy", 30, 100000))
	alerts = testRules().Evaluate(tsnap("kraken", "buy", 100000), three)
	unusual := byType(alerts, models.AlertUnusualActivity)
	if len(unusual) != 1 {
		t.Fatalf("expected 1 unusual_activity alert, got %d", len(unusual))
	}
	if unusual[0].Severity != models.SeverityMedium {
		t.Errorf("severity = %s, want fixed medium", unusual[0].Severity)
	}
	if unusual[0].Context["window_trades"] != "3" {
		t.Errorf("count = %s, want 3 (sides mixed)", unusual[0].Context["window_trades"])
	}
}

func TestRules_EvaluateIsIdempotent(t *testing.T) {
	trade := tsnap("binance", "buy", 150000)
	window := []detector.WindowEntry{
		wentry("binance", "buy", 10, 150000),
		wentry("binance", "buy", 20, 150000),
		wentry("binance", "buy", 30, 150000),
	}

	first := testRules().Evaluate(trade, window)
	second := testRules().Evaluate(trade, window)

	if len(first) != len(second) {
		t.Fatalf("alert counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].AlertType != second[i].AlertType ||
			first[i].Severity != second[i].Severity ||
			first[i].Message != second[i].Message {
			t.Errorf("alert %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestRules_SingleTradeCanFireEverything(t *testing.T) {
	// Two priors plus a 600k buy: the trade alone is high, the accumulated
	// side is over large, and the window is busy enough for unusual activity.
	window := []detector.WindowEntry{
		wentry("binance", "buy", 10, 150000),
		wentry("binance", "buy", 20, 150000),
		wentry("binance", "buy", 30, 600000),
	}
	alerts := testRules().Evaluate(tsnap("binance", "buy", 600000), window)

	if len(alerts) != 3 {
		t.Fatalf("expected all 3 rules to fire, got %d alerts", len(alerts))
	}
	if a := byType(alerts, models.AlertSingleTrade); len(a) != 1 || a[0].Severity != models.SeverityHigh {
		t.Errorf("single_trade wrong: %+v", a)
	}
	if a := byType(alerts, models.AlertAccumulation); len(a) != 1 || a[0].Severity != models.SeverityHigh {
		t.Errorf("accumulation wrong: %+v", a)
	}
	if a := byType(alerts, models.AlertUnusualActivity); len(a) != 1 || a[0].Severity != models.SeverityMedium {
		t.Errorf("unusual_activity wrong: %+v", a)
	}
}
