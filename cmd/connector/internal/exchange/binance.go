package exchange

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/elyx5534/sofia-feed/pkg/models"
)

// binanceTrade is the aggTrade payload inside the combined-stream envelope.
type binanceTrade struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	TradeID   int64  `json:"a"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
	IsMaker   bool   `json:"m"`
}

type binanceEnvelope struct {
	Stream string       `json:"stream"`
	Data   binanceTrade `json:"data"`
}

// Binance subscribes implicitly through the combined-stream URL, so its
// Subscribe step is a no-op.
type Binance struct{}

func NewBinance() *Binance { return &Binance{} }

func (b *Binance) Name() string { return "binance" }

func (b *Binance) BuildURL(symbols []string) string {
	streams := make([]string, len(symbols))
	for i, symbol := range symbols {
		streams[i] = strings.ToLower(symbol) + "@aggTrade"
	}
	return fmt.Sprintf("wss://stream.binance.com:9443/stream?streams=%s", strings.Join(streams, "/"))
}

func (b *Binance) Subscribe(conn Conn, symbols []string) error { return nil }

func (b *Binance) Parse(raw []byte) ([]models.Tick, error) {
	var msg binanceEnvelope
	if err := sonic.ConfigFastest.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("binance frame: %w", err)
	}
	if msg.Data.EventType != "aggTrade" {
		return nil, nil
	}

	price, err := strconv.ParseFloat(msg.Data.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("binance price %q: %w", msg.Data.Price, err)
	}
	volume, err := strconv.ParseFloat(msg.Data.Quantity, 64)
	if err != nil {
		return nil, fmt.Errorf("binance quantity %q: %w", msg.Data.Quantity, err)
	}

	// IsMaker true means the buyer was the maker, so the aggressor sold.
	side := "buy"
	if msg.Data.IsMaker {
		side = "sell"
	}

	tick := models.Tick{
		Exchange:  "binance",
		Symbol:    msg.Data.Symbol,
		Price:     price,
		Volume:    volume,
		Timestamp: float64(msg.Data.TradeTime) / 1000.0,
		Side:      side,
		TradeID:   strconv.FormatInt(msg.Data.TradeID, 10),
	}
	return []models.Tick{tick}, nil
}
