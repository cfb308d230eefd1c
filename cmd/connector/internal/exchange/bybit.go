package exchange

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/elyx5534/sofia-feed/pkg/models"
)

type bybitTradeMessage struct {
	Topic string `json:"topic"`
	Type  string `json:"type"`
	Data  []struct {
		Symbol    string `json:"s"`
		Price     string `json:"p"`
		Size      string `json:"v"`
		Side      string `json:"S"`
		Timestamp int64  `json:"T"`
		TradeID   string `json:"i"`
	} `json:"data"`
}

type bybitSubscribe struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

// Bybit streams public trades over the v5 endpoint after an explicit
// subscribe message.
type Bybit struct{}

func NewBybit() *Bybit { return &Bybit{} }

func (b *Bybit) Name() string { return "bybit" }

func (b *Bybit) BuildURL(symbols []string) string {
	return "wss://stream.bybit.com/v5/public/spot"
}

func (b *Bybit) Subscribe(conn Conn, symbols []string) error {
	args := make([]string, len(symbols))
	for i, symbol := range symbols {
		args[i] = fmt.Sprintf("publicTrade.%s", symbol)
	}

	payload, err := sonic.ConfigFastest.Marshal(bybitSubscribe{Op: "subscribe", Args: args})
	if err != nil {
		return fmt.Errorf("bybit subscribe payload: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (b *Bybit) Parse(raw []byte) ([]models.Tick, error) {
	var msg bybitTradeMessage
	if err := sonic.ConfigFastest.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("bybit frame: %w", err)
	}

	// Subscription acks and pong replies carry no topic.
	if !strings.HasPrefix(msg.Topic, "publicTrade.") {
		return nil, nil
	}
	if msg.Type != "snapshot" && msg.Type != "delta" {
		return nil, nil
	}

	ticks := make([]models.Tick, 0, len(msg.Data))
	for _, trade := range msg.Data {
		price, err := strconv.ParseFloat(trade.Price, 64)
		if err != nil {
			continue
		}
		volume, err := strconv.ParseFloat(trade.Size, 64)
		if err != nil {
			continue
		}

		ticks = append(ticks, models.Tick{
			Exchange:  "bybit",
			Symbol:    trade.Symbol,
			Price:     price,
			Volume:    volume,
			Timestamp: float64(trade.Timestamp) / 1000.0,
			Side:      strings.ToLower(trade.Side),
			TradeID:   trade.TradeID,
		})
	}
	return ticks, nil
}
