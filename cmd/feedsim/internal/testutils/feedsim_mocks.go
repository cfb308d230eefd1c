package testutils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// AppendedEntry records one Append call.
type AppendedEntry struct {
	Topic  string
	Fields map[string]string
	MaxLen int64
}

type MockAppender struct {
	Mu         sync.Mutex
	Appends    []AppendedEntry
	ShouldFail bool
}

func (m *MockAppender) Append(ctx context.Context, topic string, fields map[string]string, maxLen int64) (string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return "", errors.New("substrate unavailable")
	}
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	m.Appends = append(m.Appends, AppendedEntry{Topic: topic, Fields: copied, MaxLen: maxLen})
	return fmt.Sprintf("%d-0", len(m.Appends)), nil
}

func (m *MockAppender) Count() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Appends)
}

type MockClock struct {
	Mu          sync.Mutex
	CurrentTime time.Time
}

func (m *MockClock) Now() time.Time {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.CurrentTime
}

func (m *MockClock) Sleep(d time.Duration) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.CurrentTime = m.CurrentTime.Add(d)
}

// MockRand replays FloatSeq cyclically when it is set, else returns ValFloat.
type MockRand struct {
	Mu       sync.Mutex
	ValInt   int
	ValFloat float64
	FloatSeq []float64
	pos      int
}

func (m *MockRand) Intn(n int) int { return m.ValInt }

func (m *MockRand) Float64() float64 {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.FloatSeq) == 0 {
		return m.ValFloat
	}
	v := m.FloatSeq[m.pos%len(m.FloatSeq)]
	m.pos++
	return v
}
