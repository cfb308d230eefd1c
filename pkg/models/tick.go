package models

// Tick represents a single normalized market observation for one symbol on one
// exchange. Timestamp is the exchange's event time in epoch seconds, never the
// receipt time. Trade events carry the aggressor side; ticker events leave it
// empty.
type Tick struct {
	Exchange  string   `json:"exchange"`
	Symbol    string   `json:"symbol"` // exchange-native-normalized, e.g. BTCUSDT
	Price     float64  `json:"price"`
	Volume    float64  `json:"volume"`
	Timestamp float64  `json:"timestamp"` // epoch seconds, fractional
	Side      string   `json:"side,omitempty"` // "buy" or "sell" (aggressor)
	TradeID   string   `json:"trade_id,omitempty"`
	Bid       *float64 `json:"bid,omitempty"`
	Ask       *float64 `json:"ask,omitempty"`
	High24h   *float64 `json:"high_24h,omitempty"`
	Low24h    *float64 `json:"low_24h,omitempty"`
	Change24h *float64 `json:"change_24h,omitempty"`
}

// Notional returns the trade value in quote currency (price * volume).
func (t Tick) Notional() float64 {
	return t.Price * t.Volume
}

// Fields flattens the tick into stream entry fields. Optional fields are
// omitted entirely when absent so consumers can distinguish "not sent" from
// zero.
func (t Tick) Fields() map[string]string {
	f := map[string]string{
		"exchange":  t.Exchange,
		"symbol":    t.Symbol,
		"price":     formatFloat(t.Price),
		"volume":    formatFloat(t.Volume),
		"timestamp": formatFloat(t.Timestamp),
	}
	if t.Side != "" {
		f["side"] = t.Side
	}
	if t.TradeID != "" {
		f["trade_id"] = t.TradeID
	}
	putOptFloat(f, "bid", t.Bid)
	putOptFloat(f, "ask", t.Ask)
	putOptFloat(f, "high_24h", t.High24h)
	putOptFloat(f, "low_24h", t.Low24h)
	putOptFloat(f, "change_24h", t.Change24h)
	return f
}

// TickFromFields rebuilds a tick from stream entry fields. Required fields
// (exchange, symbol, price, volume, timestamp) must be present and numeric.
func TickFromFields(fields map[string]string) (Tick, error) {
	var t Tick
	var err error

	if t.Exchange, err = requireString(fields, "exchange"); err != nil {
		return Tick{}, err
	}
	if t.Symbol, err = requireString(fields, "symbol"); err != nil {
		return Tick{}, err
	}
	if t.Price, err = requireFloat(fields, "price"); err != nil {
		return Tick{}, err
	}
	if t.Volume, err = requireFloat(fields, "volume"); err != nil {
		return Tick{}, err
	}
	if t.Timestamp, err = requireFloat(fields, "timestamp"); err != nil {
		return Tick{}, err
	}

	t.Side = fields["side"]
	t.TradeID = fields["trade_id"]
	if t.Bid, err = optFloat(fields, "bid"); err != nil {
		return Tick{}, err
	}
	if t.Ask, err = optFloat(fields, "ask"); err != nil {
		return Tick{}, err
	}
	if t.High24h, err = optFloat(fields, "high_24h"); err != nil {
		return Tick{}, err
	}
	if t.Low24h, err = optFloat(fields, "low_24h"); err != nil {
		return Tick{}, err
	}
	if t.Change24h, err = optFloat(fields, "change_24h"); err != nil {
		return Tick{}, err
	}
	return t, nil
}
