package features

import "github.com/elyx5534/sofia-feed/pkg/models"

// RingBuffer holds the most recent bars in arrival order. Oldest entries are
// overwritten once capacity is reached.
type RingBuffer struct {
	data  []models.Bar
	start int
	count int
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1440
	}
	return &RingBuffer{data: make([]models.Bar, capacity)}
}

func (r *RingBuffer) Push(bar models.Bar) {
	if r.count < len(r.data) {
		r.data[(r.start+r.count)%len(r.data)] = bar
		r.count++
		return
	}
	r.data[r.start] = bar
	r.start = (r.start + 1) % len(r.data)
}

func (r *RingBuffer) Len() int { return r.count }

// At returns the i-th bar, index 0 being the oldest.
func (r *RingBuffer) At(i int) models.Bar { return r.data[(r.start+i)%len(r.data)] }

// Last returns the newest bar.
func (r *RingBuffer) Last() (models.Bar, bool) {
	if r.count == 0 {
		return models.Bar{}, false
	}
	return r.At(r.count - 1), true
}

// Slice copies the contents oldest first.
func (r *RingBuffer) Slice() []models.Bar {
	out := make([]models.Bar, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.At(i)
	}
	return out
}
