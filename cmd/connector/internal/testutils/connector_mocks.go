package testutils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/elyx5534/sofia-feed/cmd/connector/internal/exchange"
)

// MockConn feeds queued frames to the read loop. Close unblocks a pending
// read, mirroring a real socket.
type MockConn struct {
	Frames  chan []byte
	Mu      sync.Mutex
	Written [][]byte // subscribe payloads
	Pings   int
	Closed  bool
}

func NewMockConn(frames ...[]byte) *MockConn {
	c := &MockConn{Frames: make(chan []byte, len(frames)+16)}
	for _, f := range frames {
		c.Frames <- f
	}
	return c
}

// Push queues another inbound frame.
func (m *MockConn) Push(frame []byte) { m.Frames <- frame }

func (m *MockConn) ReadMessage() (int, []byte, error) {
	f, ok := <-m.Frames
	if !ok {
		return 0, nil, errors.New("use of closed network connection")
	}
	return websocket.TextMessage, f, nil
}

func (m *MockConn) WriteMessage(messageType int, data []byte) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Written = append(m.Written, data)
	return nil
}

func (m *MockConn) WriteControl(messageType int, data []byte, deadline time.Time) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Pings++
	return nil
}

func (m *MockConn) SetReadDeadline(t time.Time) error   { return nil }
func (m *MockConn) SetPongHandler(h func(string) error) {}

func (m *MockConn) Close() error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if !m.Closed {
		m.Closed = true
		close(m.Frames)
	}
	return nil
}

// MockDialer hands out queued connections in order, recording dialed URLs.
type MockDialer struct {
	Mu    sync.Mutex
	Conns []*MockConn
	URLs  []string
	Err   error // when set, every Dial fails
}

func (m *MockDialer) Dial(url string) (exchange.Conn, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.URLs = append(m.URLs, url)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Conns) == 0 {
		return nil, errors.New("no more mock connections")
	}
	conn := m.Conns[0]
	m.Conns = m.Conns[1:]
	return conn, nil
}

func (m *MockDialer) DialCount() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.URLs)
}

// PublishedEntry captures one Append call.
type PublishedEntry struct {
	Topic  string
	Fields map[string]string
	MaxLen int64
}

type MockPublisher struct {
	Mu         sync.Mutex
	Appends    []PublishedEntry
	ShouldFail bool
}

func (m *MockPublisher) Append(ctx context.Context, topic string, fields map[string]string, maxLen int64) (string, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if m.ShouldFail {
		return "", errors.New("substrate unavailable")
	}
	m.Appends = append(m.Appends, PublishedEntry{Topic: topic, Fields: fields, MaxLen: maxLen})
	return fmt.Sprintf("%d-0", len(m.Appends)), nil
}

func (m *MockPublisher) Count() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return len(m.Appends)
}

type MockClock struct {
	CurrentTime time.Time
}

func (m *MockClock) Now() time.Time        { return m.CurrentTime }
func (m *MockClock) Sleep(d time.Duration) { m.CurrentTime = m.CurrentTime.Add(d) }

type MockRand struct {
	ValFloat float64
}

func (m *MockRand) Float64() float64 { return m.ValFloat }
