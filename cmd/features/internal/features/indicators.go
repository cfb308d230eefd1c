package features

import (
	"errors"
	"math"

	"github.com/elyx5534/sofia-feed/pkg/models"
)

// ErrInsufficientData is returned when fewer than MinBars bars are buffered.
var ErrInsufficientData = errors.New("insufficient data")

// MinBars is the history floor below which no features are computed at all.
const MinBars = 20

// Return is the simple return over the last n intervals: c[t]/c[t-n] - 1.
func Return(bars []models.Bar, n int) (float64, bool) {
	if len(bars) < n+1 {
		return 0, false
	}
	prev := bars[len(bars)-1-n].Close
	if prev == 0 {
		return 0, false
	}
	return bars[len(bars)-1].Close/prev - 1, true
}

// SMA is the mean close over the last period bars.
func SMA(bars []models.Bar, period int) (float64, bool) {
	if len(bars) < period || period <= 0 {
		return 0, false
	}
	sum := 0.0
	for _, b := range bars[len(bars)-period:] {
		sum += b.Close
	}
	return sum / float64(period), true
}

// EMA seeds with the SMA of the first period closes, then folds the rest
// with k = 2/(period+1).
func EMA(bars []models.Bar, period int) (float64, bool) {
	if len(bars) < period || period <= 0 {
		return 0, false
	}
	seed := 0.0
	for _, b := range bars[:period] {
		seed += b.Close
	}
	ema := seed / float64(period)

	k := 2.0 / float64(period+1)
	for _, b := range bars[period:] {
		ema = b.Close*k + ema*(1-k)
	}
	return ema, true
}

// ZScore is (c - mean) / stddev over the last period closes.
func ZScore(bars []models.Bar, period int) (float64, bool) {
	mean, ok := SMA(bars, period)
	if !ok {
		return 0, false
	}
	sd := stddev(bars[len(bars)-period:], mean)
	if sd == 0 {
		return 0, false
	}
	return (bars[len(bars)-1].Close - mean) / sd, true
}

// ATRPct is the average true range over the last period bars, as a percent
// of the latest close. Needs one extra bar for the first previous close.
func ATRPct(bars []models.Bar, period int) (float64, bool) {
	if len(bars) < period+1 || period <= 0 {
		return 0, false
	}
	last := bars[len(bars)-1].Close
	if last == 0 {
		return 0, false
	}

	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		tr := bars[i].High - bars[i].Low
		if hc := math.Abs(bars[i].High - prevClose); hc > tr {
			tr = hc
		}
		if lc := math.Abs(bars[i].Low - prevClose); lc > tr {
			tr = lc
		}
		sum += tr
	}
	return sum / float64(period) / last * 100, true
}

// RealizedVol is sqrt(sum r^2) over the last n log returns.
func RealizedVol(bars []models.Bar, n int) (float64, bool) {
	returns, ok := logReturns(bars, n)
	if !ok {
		return 0, false
	}
	sum := 0.0
	for _, r := range returns {
		sum += r * r
	}
	return math.Sqrt(sum), true
}

// VolumeWeightedVol weights each squared log return by its bar's share of
// volume: sqrt(n * sum(w_i * r_i^2)). With uniform volume it equals
// RealizedVol.
func VolumeWeightedVol(bars []models.Bar, n int) (float64, bool) {
	returns, ok := logReturns(bars, n)
	if !ok {
		return 0, false
	}

	tail := bars[len(bars)-n:]
	total := 0.0
	for _, b := range tail {
		total += b.Volume
	}
	if total == 0 {
		return 0, false
	}

	sum := 0.0
	for i, r := range returns {
		sum += tail[i].Volume / total * r * r
	}
	return math.Sqrt(float64(n) * sum), true
}

// Momentum is the percent change over the last period intervals.
func Momentum(bars []models.Bar, period int) (float64, bool) {
	r, ok := Return(bars, period)
	if !ok {
		return 0, false
	}
	return r * 100, true
}

// RSI is the simple-average relative strength index over the last period
// deltas. All-gain history reads 100, flat history 50.
func RSI(bars []models.Bar, period int) (float64, bool) {
	if len(bars) < period+1 || period <= 0 {
		return 0, false
	}

	gains, losses := 0.0, 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		delta := bars[i].Close - bars[i-1].Close
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	if losses == 0 {
		if gains == 0 {
			return 50, true
		}
		return 100, true
	}
	rs := gains / losses
	return 100 - 100/(1+rs), true
}

// VolumeRatio compares the latest bar's volume with the mean over the last
// period bars.
func VolumeRatio(bars []models.Bar, period int) (float64, bool) {
	if len(bars) < period || period <= 0 {
		return 0, false
	}
	sum := 0.0
	for _, b := range bars[len(bars)-period:] {
		sum += b.Volume
	}
	mean := sum / float64(period)
	if mean == 0 {
		return 0, false
	}
	return bars[len(bars)-1].Volume / mean, true
}

// Bollinger returns the period-SMA band at width standard deviations.
func Bollinger(bars []models.Bar, period int, width float64) (upper, lower float64, ok bool) {
	mean, ok := SMA(bars, period)
	if !ok {
		return 0, 0, false
	}
	sd := stddev(bars[len(bars)-period:], mean)
	return mean + width*sd, mean - width*sd, true
}

func logReturns(bars []models.Bar, n int) ([]float64, bool) {
	if len(bars) < n+1 || n <= 0 {
		return nil, false
	}
	out := make([]float64, 0, n)
	for i := len(bars) - n; i < len(bars); i++ {
		prev := bars[i-1].Close
		cur := bars[i].Close
		if prev <= 0 || cur <= 0 {
			return nil, false
		}
		out = append(out, math.Log(cur/prev))
	}
	return out, true
}

func stddev(bars []models.Bar, mean float64) float64 {
	if len(bars) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range bars {
		d := b.Close - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(bars)))
}
