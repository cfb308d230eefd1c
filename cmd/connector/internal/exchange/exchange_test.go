package exchange_test

import (
	"testing"

	"github.com/elyx5534/sofia-feed/cmd/connector/internal/exchange"
)

func TestNew_KnownExchanges(t *testing.T) {
	for _, name := range []string{"binance", "Bybit", "KRAKEN"} {
		adapter, err := exchange.New(name)
		if err != nil {
			t.Errorf("New(%q) returned error: %v", name, err)
			continue
		}
		if adapter == nil {
			t.Errorf("New(%q) returned nil adapter", name)
		}
	}
}

func TestNew_UnknownExchange(t *testing.T) {
	if _, err := exchange.New("coinbase"); err == nil {
		t.Fatal("Expected error for unregistered exchange")
	}
}

func TestBinance_BuildURL(t *testing.T) {
	b := exchange.NewBinance()
	url := b.BuildURL([]string{"BTCUSDT", "ETHUSDT"})

	want := "wss://stream.binance.com:9443/stream?streams=btcusdt@aggTrade/ethusdt@aggTrade"
	if url != want {
		t.Errorf("URL mismatch.\nGot:  %s\nWant: %s", url, want)
	}
}

func TestBinance_ParseAggTrade(t *testing.T) {
	b := exchange.NewBinance()
	raw := []byte(`{"stream":"btcusdt@aggTrade","data":{"e":"aggTrade","E":1700000000123,"s":"BTCUSDT","a":26129,"p":"50000.5","q":"0.25","T":1700000000100,"m":false}}`)

	ticks, err := b.Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(ticks) != 1 {
		t.Fatalf("Expected 1 tick, got %d", len(ticks))
	}

	tick := ticks[0]
	if tick.Exchange != "binance" || tick.Symbol != "BTCUSDT" {
		t.Errorf("Wrong identity: %s %s", tick.Exchange, tick.Symbol)
	}
	if tick.Price != 50000.5 || tick.Volume != 0.25 {
		t.Errorf("Wrong price/volume: %f %f", tick.Price, tick.Volume)
	}
	if tick.Timestamp != 1700000000.1 {
		t.Errorf("Expected timestamp in seconds, got %f", tick.Timestamp)
	}
	// m=false means the buyer was the aggressor
	if tick.Side != "buy" {
		t.Errorf("Expected side buy, got %s", tick.Side)
	}
	if tick.TradeID != "26129" {
		t.Errorf("Expected trade id 26129, got %s", tick.TradeID)
	}
}

func TestBinance_ParseSellAggressor(t *testing.T) {
	b := exchange.NewBinance()
	raw := []byte(`{"stream":"btcusdt@aggTrade","data":{"e":"aggTrade","s":"BTCUSDT","a":1,"p":"100","q":"1","T":1700000000000,"m":true}}`)

	ticks, err := b.Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ticks[0].Side != "sell" {
		t.Errorf("Expected side sell when buyer is maker, got %s", ticks[0].Side)
	}
}

func TestBinance_ParseSubscribeAck(t *testing.T) {
	b := exchange.NewBinance()
	ticks, err := b.Parse([]byte(`{"result":null,"id":1}`))
	if err != nil {
		t.Fatalf("Ack frame should not error: %v", err)
	}
	if len(ticks) != 0 {
		t.Errorf("Ack frame should yield no ticks, got %d", len(ticks))
	}
}

func TestBinance_ParseBadPrice(t *testing.T) {
	b := exchange.NewBinance()
	raw := []byte(`{"stream":"btcusdt@aggTrade","data":{"e":"aggTrade","s":"BTCUSDT","p":"not-a-number","q":"1","T":1700000000000}}`)

	if _, err := b.Parse(raw); err == nil {
		t.Fatal("Expected parse error for unparsable price")
	}
}

func TestBybit_ParseSnapshot(t *testing.T) {
	b := exchange.NewBybit()
	raw := []byte(`{"topic":"publicTrade.BTCUSDT","type":"snapshot","ts":1700000001000,"data":[{"i":"t1","T":1700000000500,"p":"50100","v":"0.1","S":"Buy","s":"BTCUSDT"},{"i":"t2","T":1700000000600,"p":"50101","v":"0.2","S":"Sell","s":"BTCUSDT"}]}`)

	ticks, err := b.Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(ticks) != 2 {
		t.Fatalf("Expected 2 ticks, got %d", len(ticks))
	}
	if ticks[0].Side != "buy" || ticks[1].Side != "sell" {
		t.Errorf("Side not normalized: %s %s", ticks[0].Side, ticks[1].Side)
	}
	if ticks[0].Timestamp != 1700000000.5 {
		t.Errorf("Expected timestamp 1700000000.5, got %f", ticks[0].Timestamp)
	}
	if ticks[1].TradeID != "t2" {
		t.Errorf("Expected trade id t2, got %s", ticks[1].TradeID)
	}
}

func TestBybit_ParseSubscribeAck(t *testing.T) {
	b := exchange.NewBybit()
	ticks, err := b.Parse([]byte(`{"success":true,"ret_msg":"","op":"subscribe","conn_id":"abc"}`))
	if err != nil {
		t.Fatalf("Ack frame should not error: %v", err)
	}
	if len(ticks) != 0 {
		t.Errorf("Ack frame should yield no ticks, got %d", len(ticks))
	}
}

func TestBybit_ParseSkipsBadEntries(t *testing.T) {
	b := exchange.NewBybit()
	raw := []byte(`{"topic":"publicTrade.BTCUSDT","type":"delta","data":[{"i":"bad","T":1,"p":"x","v":"1","S":"Buy","s":"BTCUSDT"},{"i":"good","T":1700000000000,"p":"50000","v":"1","S":"Buy","s":"BTCUSDT"}]}`)

	ticks, err := b.Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(ticks) != 1 || ticks[0].TradeID != "good" {
		t.Errorf("Expected only the valid entry, got %v", ticks)
	}
}

func TestKraken_ParseTrade(t *testing.T) {
	k := exchange.NewKraken()
	raw := []byte(`{"feed":"trade","product_id":"PI_XBTUSD","uid":"u-1","side":"sell","type":"fill","seq":100,"time":1700000000250,"qty":0.5,"price":50200}`)

	ticks, err := k.Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(ticks) != 1 {
		t.Fatalf("Expected 1 tick, got %d", len(ticks))
	}

	tick := ticks[0]
	if tick.Symbol != "BTCUSDT" {
		t.Errorf("Expected product mapped to BTCUSDT, got %s", tick.Symbol)
	}
	if tick.Timestamp != 1700000000.25 {
		t.Errorf("Expected timestamp 1700000000.25, got %f", tick.Timestamp)
	}
	if tick.Side != "sell" || tick.TradeID != "u-1" {
		t.Errorf("Wrong side/id: %s %s", tick.Side, tick.TradeID)
	}
}

func TestKraken_ParseSnapshot(t *testing.T) {
	k := exchange.NewKraken()
	raw := []byte(`{"feed":"trade_snapshot","product_id":"PI_ETHUSD","trades":[{"feed":"trade","product_id":"PI_ETHUSD","uid":"a","side":"buy","time":1700000000000,"qty":1,"price":3000},{"feed":"trade","product_id":"PI_ETHUSD","uid":"b","side":"sell","time":1700000001000,"qty":2,"price":3001}]}`)

	ticks, err := k.Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(ticks) != 2 {
		t.Fatalf("Expected 2 ticks, got %d", len(ticks))
	}
	if ticks[0].Symbol != "ETHUSDT" || ticks[1].Symbol != "ETHUSDT" {
		t.Errorf("Product mapping failed: %s %s", ticks[0].Symbol, ticks[1].Symbol)
	}
}

func TestKraken_ParseEvents(t *testing.T) {
	k := exchange.NewKraken()
	for _, raw := range []string{
		`{"event":"info","version":1}`,
		`{"event":"subscribed","feed":"trade","product_ids":["PI_XBTUSD"]}`,
	} {
		ticks, err := k.Parse([]byte(raw))
		if err != nil {
			t.Errorf("Event frame errored: %v", err)
		}
		if len(ticks) != 0 {
			t.Errorf("Event frame should yield no ticks, got %d", len(ticks))
		}
	}
}
