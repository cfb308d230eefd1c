package testutils

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/elyx5534/sofia-feed/pkg/stream"
)

// MockStreamClient is an in-memory substrate for consumer tests. Unread
// entries live in Topics; a group read moves them to Pending, and Ack removes
// them from Pending.
type MockStreamClient struct {
	Mu      sync.Mutex
	Topics  map[string][]stream.Message
	Pending map[string][]stream.Message
	Groups  map[string]string // topic -> start position used at group create
	Acked   []string          // "topic/id" in ack order

	DiscoverErr error
	ReadErr     error
	AckErr      error
}

func NewMockStreamClient() *MockStreamClient {
	return &MockStreamClient{
		Topics:  make(map[string][]stream.Message),
		Pending: make(map[string][]stream.Message),
		Groups:  make(map[string]string),
	}
}

// Seed appends an unread entry to a topic.
func (m *MockStreamClient) Seed(topic, id string, fields map[string]string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Topics[topic] = append(m.Topics[topic], stream.Message{Topic: topic, ID: id, Fields: fields})
}

// SeedPending places an entry directly on the pending list, as if a previous
// run read it and crashed before acking.
func (m *MockStreamClient) SeedPending(topic, id string, fields map[string]string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Pending[topic] = append(m.Pending[topic], stream.Message{Topic: topic, ID: id, Fields: fields})
}

func (m *MockStreamClient) DiscoverTopics(ctx context.Context, prefix string) ([]string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.DiscoverErr != nil {
		return nil, m.DiscoverErr
	}

	seen := make(map[string]bool)
	var topics []string
	for t := range m.Topics {
		if strings.HasPrefix(t, prefix) && !seen[t] {
			seen[t] = true
			topics = append(topics, t)
		}
	}
	for t := range m.Pending {
		if strings.HasPrefix(t, prefix) && !seen[t] {
			seen[t] = true
			topics = append(topics, t)
		}
	}
	sort.Strings(topics)
	return topics, nil
}

func (m *MockStreamClient) EnsureGroup(ctx context.Context, topic, group, start string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Groups[topic] = start
	return nil
}

func (m *MockStreamClient) ReadGroup(ctx context.Context, args stream.ReadGroupArgs) ([]stream.Message, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}

	var out []stream.Message
	for _, topic := range args.Topics {
		if args.Pending {
			out = append(out, m.Pending[topic]...)
			continue
		}

		entries := m.Topics[topic]
		n := len(entries)
		if args.Count > 0 && int64(n) > args.Count {
			n = int(args.Count)
		}
		for _, msg := range entries[:n] {
			m.Pending[topic] = append(m.Pending[topic], msg)
			out = append(out, msg)
		}
		m.Topics[topic] = entries[n:]
	}
	return out, nil
}

func (m *MockStreamClient) Ack(ctx context.Context, topic, group, id string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.AckErr != nil {
		return m.AckErr
	}

	m.Acked = append(m.Acked, topic+"/"+id)
	entries := m.Pending[topic]
	for i, msg := range entries {
		if msg.ID == id {
			m.Pending[topic] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	return nil
}

// AckedCount reports how many entries have been acknowledged so far.
func (m *MockStreamClient) AckedCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Acked)
}

// PendingCount reports entries still awaiting ack on one topic.
func (m *MockStreamClient) PendingCount(topic string) int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Pending[topic])
}
