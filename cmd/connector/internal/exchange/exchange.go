package exchange

import (
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/elyx5534/sofia-feed/pkg/models"
)

// Conn is the subset of a websocket connection the connector drives.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Dialer opens websocket connections.
type Dialer interface {
	Dial(url string) (Conn, error)
}

// GorillaDialer adapts gorilla/websocket's default dialer.
type GorillaDialer struct{}

func (GorillaDialer) Dial(url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Adapter describes one exchange's wire protocol: which URL to open for a
// symbol set, what to send after connecting, and how to turn a raw frame into
// canonical ticks.
type Adapter interface {
	Name() string
	// BuildURL returns the websocket endpoint for the configured symbols.
	BuildURL(symbols []string) string
	// Subscribe performs the post-connect handshake. Exchanges that encode
	// the subscription in the URL do nothing here.
	Subscribe(conn Conn, symbols []string) error
	// Parse converts one raw frame into zero or more ticks. Control frames
	// (subscription acks, heartbeats) yield an empty slice and no error;
	// a malformed frame yields an error.
	Parse(raw []byte) ([]models.Tick, error)
}

// New returns the adapter registered under name.
func New(name string) (Adapter, error) {
	switch strings.ToLower(name) {
	case "binance":
		return NewBinance(), nil
	case "bybit":
		return NewBybit(), nil
	case "kraken":
		return NewKraken(), nil
	default:
		return nil, fmt.Errorf("unknown exchange %q", name)
	}
}
