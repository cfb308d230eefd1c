package testutils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/elyx5534/sofia-feed/pkg/models"
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

// MockNotifier is a mock notification channel for testing.
type MockNotifier struct {
	Mu          sync.Mutex
	ChannelName string
	Sent        []models.Alert
	Err         error
}

func (m *MockNotifier) Name() string { return m.ChannelName }

func (m *MockNotifier) Notify(_ context.Context, alert models.Alert) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, alert)
	return nil
}

// Count returns how many alerts the channel accepted.
func (m *MockNotifier) Count() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Sent)
}

// MockClock is a mock clock for deterministic testing.
type MockClock struct {
	CurrentTime time.Time
}

func (m *MockClock) Now() time.Time { return m.CurrentTime }
