package features_test

import (
	"testing"

	"github.com/elyx5534/sofia-feed/cmd/features/internal/features"
	"github.com/elyx5534/sofia-feed/pkg/models"
)

func barAt(ts, close float64) models.Bar {
	return models.Bar{Timestamp: ts, Open: close, High: close, Low: close, Close: close, Volume: 1, Trades: 1}
}

func TestRingBuffer_Empty(t *testing.T) {
	buf := features.NewRingBuffer(3)

	if buf.Len() != 0 {
		t.Fatalf("expected empty buffer, got len %d", buf.Len())
	}
	if _, ok := buf.Last(); ok {
		t.Error("Last should report no bar on an empty buffer")
	}
	if s := buf.Slice(); len(s) != 0 {
		t.Errorf("expected empty slice, got %d bars", len(s))
	}
}

func TestRingBuffer_FillAndWrap(t *testing.T) {
	buf := features.NewRingBuffer(3)
	for i := 1; i <= 4; i++ {
		buf.Push(barAt(float64(i*60), float64(i)))
	}

	if buf.Len() != 3 {
		t.Fatalf("expected len 3 after wrap, got %d", buf.Len())
	}
	if got := buf.At(0).Close; got != 2 {
		t.Errorf("oldest bar close = %v, want 2", got)
	}
	if got := buf.At(2).Close; got != 4 {
		t.Errorf("newest bar close = %v, want 4", got)
	}
	last, ok := buf.Last()
	if !ok || last.Close != 4 {
		t.Errorf("Last = %v ok=%v, want close 4", last.Close, ok)
	}

	s := buf.Slice()
	if len(s) != 3 || s[0].Close != 2 || s[1].Close != 3 || s[2].Close != 4 {
		t.Errorf("Slice order wrong: %+v", s)
	}
}

func TestRingBuffer_SliceIsACopy(t *testing.T) {
	buf := features.NewRingBuffer(2)
	buf.Push(barAt(60, 10))
	buf.Push(barAt(120, 20))

	s := buf.Slice()
	s[0].Close = 999

	if got := buf.At(0).Close; got != 10 {
		t.Errorf("mutating the slice leaked into the buffer: close = %v", got)
	}
}
