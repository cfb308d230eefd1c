package features

import (
	"time"

	"github.com/elyx5534/sofia-feed/pkg/models"
)

// BarAggregator folds ticks into fixed-interval bars for one symbol. The
// open bar seals when a tick for a later interval arrives; ticks for an
// earlier interval are late and dropped.
type BarAggregator struct {
	interval int64 // seconds
	current  *models.Bar
}

func NewBarAggregator(interval time.Duration) *BarAggregator {
	sec := int64(interval / time.Second)
	if sec <= 0 {
		sec = 60
	}
	return &BarAggregator{interval: sec}
}

// Add folds one tick. It returns the sealed bar when the tick opens a new
// interval, and late=true when the tick belongs to an already sealed one.
func (a *BarAggregator) Add(t models.Tick) (sealed *models.Bar, late bool) {
	bucket := int64(t.Timestamp) / a.interval * a.interval

	if a.current == nil {
		bar := models.NewBar(float64(bucket), t.Price, t.Volume)
		a.current = &bar
		return nil, false
	}

	switch cur := int64(a.current.Timestamp); {
	case bucket == cur:
		a.current.Apply(t.Price, t.Volume)
		return nil, false
	case bucket > cur:
		done := *a.current
		bar := models.NewBar(float64(bucket), t.Price, t.Volume)
		a.current = &bar
		return &done, false
	default:
		return nil, true
	}
}

// Current returns the open bar, if any.
func (a *BarAggregator) Current() (models.Bar, bool) {
	if a.current == nil {
		return models.Bar{}, false
	}
	return *a.current, true
}
