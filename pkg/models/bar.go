package models

// Bar is one OHLCV aggregate for a fixed interval. Timestamp is the bar open
// time aligned to the interval boundary, in epoch seconds. A bar is mutated by
// accumulation until its interval ends, then sealed and never touched again.
type Bar struct {
	Timestamp float64 `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int     `json:"trades"`
}

// NewBar opens a bar at the aligned timestamp from the first trade in the
// interval.
func NewBar(timestamp, price, volume float64) Bar {
	return Bar{
		Timestamp: timestamp,
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    volume,
		Trades:    1,
	}
}

// Apply folds one more trade into an open bar.
func (b *Bar) Apply(price, volume float64) {
	if price > b.High {
		b.High = price
	}
	if price < b.Low {
		b.Low = price
	}
	b.Close = price
	b.Volume += volume
	b.Trades++
}

// Fields flattens the bar into stream entry fields.
func (b Bar) Fields() map[string]string {
	return map[string]string{
		"timestamp": formatFloat(b.Timestamp),
		"open":      formatFloat(b.Open),
		"high":      formatFloat(b.High),
		"low":       formatFloat(b.Low),
		"close":     formatFloat(b.Close),
		"volume":    formatFloat(b.Volume),
		"trades":    formatInt(b.Trades),
	}
}
