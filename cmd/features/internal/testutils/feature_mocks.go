package testutils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// AppendedEntry records one publish call made through the mock.
type AppendedEntry struct {
	Topic  string
	Fields map[string]string
	MaxLen int64
}

// MockAppender is a mock stream publisher for testing.
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

// Count returns how many entries were appended.
func (m *MockAppender) Count() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Appends)
}

// ByTopic returns the entries appended to one topic.
func (m *MockAppender) ByTopic(topic string) []AppendedEntry {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	var out []AppendedEntry
	for _, e := range m.Appends {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

// MockClock is a mock clock for deterministic testing. Sleep advances the
// clock instead of blocking.
type MockClock struct {
	Mu          sync.Mutex
	CurrentTime time.Time
	Slept       []time.Duration
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
	m.Slept = append(m.Slept, d)
}
