package detector

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/elyx5534/sofia-feed/pkg/models"
)

var two = decimal.NewFromInt(2)

// Thresholds holds the three ascending notional tiers that drive severity.
type Thresholds struct {
	Min   decimal.Decimal
	Large decimal.Decimal
	Mega  decimal.Decimal
}

// Severity maps a notional to its tier. Anything below 2x the min threshold
// is low; qualification against the min threshold itself happens upstream.
func (t Thresholds) Severity(notional decimal.Decimal) string {
	switch {
	case notional.GreaterThanOrEqual(t.Mega):
		return models.SeverityCritical
	case notional.GreaterThanOrEqual(t.Large):
		return models.SeverityHigh
	case notional.GreaterThanOrEqual(t.Min.Mul(two)):
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// Rules evaluates the alert rules for one qualifying trade. Evaluation is
// deterministic: the same trade and window contents always produce the same
// alert types, severities and messages.
type Rules struct {
	Thresholds     Thresholds
	AccumThreshold decimal.Decimal
	MinTrades      int // unusual-activity trade count threshold
}

// Evaluate runs the three independent rules against a qualifying trade and
// its symbol window (which already contains the trade). Each rule adds zero
// or one alert; a single trade can trigger several alert types at once.
func (r Rules) Evaluate(trade models.TradeSnapshot, window []WindowEntry) []models.Alert {
	var alerts []models.Alert

	alerts = append(alerts, r.singleTrade(trade))
	if a, ok := r.accumulation(trade, window); ok {
		alerts = append(alerts, a)
	}
	if a, ok := r.unusualActivity(trade, window); ok {
		alerts = append(alerts, a)
	}
	return alerts
}

func (r Rules) singleTrade(trade models.TradeSnapshot) models.Alert {
	return models.Alert{
		Trade:     trade,
		AlertType: models.AlertSingleTrade,
		Severity:  r.Thresholds.Severity(trade.VolumeUSDT),
		Message: fmt.Sprintf("Large %s on %s: %s %s USDT",
			trade.Side, trade.Exchange, trade.Symbol, trade.VolumeUSDT.String()),
	}
}

func (r Rules) accumulation(trade models.TradeSnapshot, window []WindowEntry) (models.Alert, bool) {
	count := 0
	sum := decimal.Zero
	for _, e := range window {
		if e.Side == trade.Side && e.Exchange == trade.Exchange {
			count++
			sum = sum.Add(e.Notional)
		}
	}
	if count < 2 || sum.LessThan(r.AccumThreshold) {
		return models.Alert{}, false
	}

	severity := models.SeverityMedium
	if sum.GreaterThanOrEqual(r.Thresholds.Large) {
		severity = models.SeverityHigh
	}
	return models.Alert{
		Trade:     trade,
		AlertType: models.AlertAccumulation,
		Severity:  severity,
		Message: fmt.Sprintf("Accumulation on %s: %d %s trades of %s totaling %s USDT",
			trade.Exchange, count, trade.Side, trade.Symbol, sum.String()),
		Context: map[string]string{
			"window_trades":   fmt.Sprintf("%d", count),
			"window_notional": sum.String(),
			"side":            trade.Side,
		},
	}, true
}

func (r Rules) unusualActivity(trade models.TradeSnapshot, window []WindowEntry) (models.Alert, bool) {
	if len(window) < r.MinTrades {
		return models.Alert{}, false
	}
	sum := decimal.Zero
	for _, e := range window {
		sum = sum.Add(e.Notional)
	}
	if sum.LessThan(r.Thresholds.Min) {
		return models.Alert{}, false
	}

	return models.Alert{
		Trade:     trade,
		AlertType: models.AlertUnusualActivity,
		Severity:  models.SeverityMedium,
		Message: fmt.Sprintf("Unusual activity on %s: %d trades totaling %s USDT",
			trade.Symbol, len(window), sum.String()),
		Context: map[string]string{
			"window_trades":   fmt.Sprintf("%d", len(window)),
			"window_notional": sum.String(),
		},
	}, true
}
