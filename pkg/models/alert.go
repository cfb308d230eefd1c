package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Alert types emitted by the pattern detector.
const (
	AlertSingleTrade     = "single_trade"
	AlertAccumulation    = "accumulation"
	AlertUnusualActivity = "unusual_activity"
)

// Severity tiers, ascending.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SeverityRank orders severities for routing decisions. Unknown severities
// rank below low.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return -1
	}
}

// TradeSnapshot freezes the trade that triggered an alert. VolumeUSDT is the
// exact notional the detector evaluated, kept as a decimal so threshold
// comparisons survive the round trip.
type TradeSnapshot struct {
	Exchange   string          `json:"exchange"`
	Symbol     string          `json:"symbol"`
	Price      float64         `json:"price"`
	Volume     float64         `json:"volume"`
	Timestamp  float64         `json:"timestamp"`
	Side       string          `json:"side"`
	VolumeUSDT decimal.Decimal `json:"volume_usdt"`
	TradeID    string          `json:"trade_id,omitempty"`
	TraderID   string          `json:"trader_id,omitempty"`
}

// Alert is created by the detector and never mutated afterwards. CreatedAt is
// the emission time in epoch seconds, used for trade-to-alert latency.
type Alert struct {
	ID        string            `json:"id"`
	Trade     TradeSnapshot     `json:"trade"`
	AlertType string            `json:"alert_type"`
	Severity  string            `json:"severity"`
	Message   string            `json:"message"`
	Context   map[string]string `json:"additional_context,omitempty"`
	CreatedAt float64           `json:"created_at"`
}

// Fields flattens the alert into stream entry fields. The context map is
// JSON-encoded into a single additional_context field.
func (a Alert) Fields() map[string]string {
	f := map[string]string{
		"id":          a.ID,
		"exchange":    a.Trade.Exchange,
		"symbol":      a.Trade.Symbol,
		"price":       formatFloat(a.Trade.Price),
		"volume":      formatFloat(a.Trade.Volume),
		"timestamp":   formatFloat(a.Trade.Timestamp),
		"side":        a.Trade.Side,
		"volume_usdt": a.Trade.VolumeUSDT.String(),
		"alert_type":  a.AlertType,
		"severity":    a.Severity,
		"message":     a.Message,
		"created_at":  formatFloat(a.CreatedAt),
	}
	if a.Trade.TradeID != "" {
		f["trade_id"] = a.Trade.TradeID
	}
	if a.Trade.TraderID != "" {
		f["trader_id"] = a.Trade.TraderID
	}
	if len(a.Context) > 0 {
		if ctx, err := json.Marshal(a.Context); err == nil {
			f["additional_context"] = string(ctx)
		}
	}
	return f
}
