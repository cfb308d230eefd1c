package models

// FeatureVector holds the derived indicators for one symbol at one bar
// timestamp. Every indicator is optional: a field stays nil until its own
// history requirement is met, so consumers must handle partial vectors.
type FeatureVector struct {
	Timestamp float64 `json:"timestamp"`
	Symbol    string  `json:"symbol"`

	Return1          *float64 `json:"return_1,omitempty"`  // 1-bar simple return
	Return5          *float64 `json:"return_5,omitempty"`  // 5-bar simple return
	Return60         *float64 `json:"return_60,omitempty"` // 60-bar (1h) simple return
	ZScore20         *float64 `json:"zscore_20,omitempty"`
	ATRPct           *float64 `json:"atr_pct,omitempty"` // 14-bar ATR as % of close
	RealizedVol1h    *float64 `json:"realized_vol_1h,omitempty"`
	VolWeightedVol1h *float64 `json:"vol_weighted_vol_1h,omitempty"`
	Momentum14       *float64 `json:"momentum_14,omitempty"`
	RSI14            *float64 `json:"rsi_14,omitempty"`
	VolumeRatio      *float64 `json:"volume_ratio,omitempty"` // volume vs 20-bar average
	SMA20            *float64 `json:"sma_20,omitempty"`
	EMA20            *float64 `json:"ema_20,omitempty"`
	BBUpper          *float64 `json:"bb_upper,omitempty"`
	BBLower          *float64 `json:"bb_lower,omitempty"`
	BBPosition       *float64 `json:"bb_position,omitempty"` // 0 at lower band, 1 at upper
}

// Fields flattens the vector into stream entry fields, omitting indicators
// that are not populated yet.
func (v FeatureVector) Fields() map[string]string {
	f := map[string]string{
		"timestamp": formatFloat(v.Timestamp),
		"symbol":    v.Symbol,
	}
	putOptFloat(f, "return_1", v.Return1)
	putOptFloat(f, "return_5", v.Return5)
	putOptFloat(f, "return_60", v.Return60)
	putOptFloat(f, "zscore_20", v.ZScore20)
	putOptFloat(f, "atr_pct", v.ATRPct)
	putOptFloat(f, "realized_vol_1h", v.RealizedVol1h)
	putOptFloat(f, "vol_weighted_vol_1h", v.VolWeightedVol1h)
	putOptFloat(f, "momentum_14", v.Momentum14)
	putOptFloat(f, "rsi_14", v.RSI14)
	putOptFloat(f, "volume_ratio", v.VolumeRatio)
	putOptFloat(f, "sma_20", v.SMA20)
	putOptFloat(f, "ema_20", v.EMA20)
	putOptFloat(f, "bb_upper", v.BBUpper)
	putOptFloat(f, "bb_lower", v.BBLower)
	putOptFloat(f, "bb_position", v.BBPosition)
	return f
}
