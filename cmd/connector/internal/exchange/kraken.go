package exchange

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/elyx5534/sofia-feed/pkg/models"
)

type krakenProbe struct {
	Event string `json:"event"`
	Feed  string `json:"feed"`
}

type krakenTrade struct {
	Feed      string  `json:"feed"`
	ProductID string  `json:"product_id"`
	Price     float64 `json:"price"`
	Quantity  float64 `json:"qty"`
	Side      string  `json:"side"`
	Timestamp int64   `json:"time"` // milliseconds
	UID       string  `json:"uid"`
}

type krakenSnapshot struct {
	Feed   string        `json:"feed"`
	Trades []krakenTrade `json:"trades"`
}

type krakenSubscribe struct {
	Event      string   `json:"event"`
	Feed       string   `json:"feed"`
	ProductIDs []string `json:"product_ids"`
}

// Kraken serves futures trades under its own product codes, so symbols are
// mapped both ways at the boundary.
type Kraken struct{}

func NewKraken() *Kraken { return &Kraken{} }

func (k *Kraken) Name() string { return "kraken" }

func (k *Kraken) BuildURL(symbols []string) string {
	return "wss://futures.kraken.com/ws/v1"
}

func (k *Kraken) Subscribe(conn Conn, symbols []string) error {
	products := make([]string, len(symbols))
	for i, symbol := range symbols {
		products[i] = toKrakenSymbol(symbol)
	}

	payload, err := sonic.ConfigFastest.Marshal(krakenSubscribe{
		Event:      "subscribe",
		Feed:       "trade",
		ProductIDs: products,
	})
	if err != nil {
		return fmt.Errorf("kraken subscribe payload: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (k *Kraken) Parse(raw []byte) ([]models.Tick, error) {
	var probe krakenProbe
	if err := sonic.ConfigFastest.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("kraken frame: %w", err)
	}

	switch {
	case probe.Event != "":
		// subscribed / info / heartbeat events carry no trades.
		return nil, nil
	case probe.Feed == "trade":
		var trade krakenTrade
		if err := sonic.ConfigFastest.Unmarshal(raw, &trade); err != nil {
			return nil, fmt.Errorf("kraken trade: %w", err)
		}
		return []models.Tick{krakenTick(trade)}, nil
	case probe.Feed == "trade_snapshot":
		var snapshot krakenSnapshot
		if err := sonic.ConfigFastest.Unmarshal(raw, &snapshot); err != nil {
			return nil, fmt.Errorf("kraken snapshot: %w", err)
		}
		ticks := make([]models.Tick, 0, len(snapshot.Trades))
		for _, trade := range snapshot.Trades {
			ticks = append(ticks, krakenTick(trade))
		}
		return ticks, nil
	default:
		return nil, nil
	}
}

func krakenTick(trade krakenTrade) models.Tick {
	return models.Tick{
		Exchange:  "kraken",
		Symbol:    fromKrakenSymbol(trade.ProductID),
		Price:     trade.Price,
		Volume:    trade.Quantity,
		Timestamp: float64(trade.Timestamp) / 1000.0,
		Side:      trade.Side,
		TradeID:   trade.UID,
	}
}

func toKrakenSymbol(symbol string) string {
	switch symbol {
	case "BTCUSDT":
		return "PI_XBTUSD"
	case "ETHUSDT":
		return "PI_ETHUSD"
	default:
		return symbol
	}
}

func fromKrakenSymbol(product string) string {
	switch product {
	case "PI_XBTUSD":
		return "BTCUSDT"
	case "PI_ETHUSD":
		return "ETHUSDT"
	default:
		return product
	}
}
