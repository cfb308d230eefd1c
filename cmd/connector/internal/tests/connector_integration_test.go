package tests

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/elyx5534/sofia-feed/cmd/connector/internal/connector"
	"github.com/elyx5534/sofia-feed/cmd/connector/internal/exchange"
	"github.com/elyx5534/sofia-feed/cmd/connector/internal/testutils"
	"github.com/elyx5534/sofia-feed/pkg/metrics"
	"github.com/elyx5534/sofia-feed/pkg/models"
	"github.com/elyx5534/sofia-feed/pkg/stream"
)

func TestConnector_EndToEnd_Flow(t *testing.T) {
	mr := miniredis.RunT(t)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	client := stream.NewRedisClientFrom(rdb)

	// Use Mock socket because a live exchange feed is not available in tests
	conn := testutils.NewMockConn(
		[]byte(`{"stream":"btcusdt@aggTrade","data":{"e":"aggTrade","s":"BTCUSDT","a":7,"p":"50000.5","q":"0.25","T":1700000000100,"m":false}}`),
		[]byte(`{"stream":"btcusdt@aggTrade","data":{"e":"aggTrade","s":"BTCUSDT","a":8,"p":"50001.5","q":"0.5","T":1700000001100,"m":true}}`),
	)
	dialer := &testutils.MockDialer{Conns: []*testutils.MockConn{conn}}

	cfg := connector.Config{Symbols: []string{"BTCUSDT"}, TopicMaxLen: 100}
	c := connector.New(cfg, exchange.NewBinance(), dialer, client, zap.NewNop(), metrics.NewRegistry(), nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	// Poll until both entries land in the stream (connector is async)
	var entries []redis.XMessage
	for i := 0; i < 20; i++ {
		entries, _ = rdb.XRange(context.Background(), "ticks.binance.BTCUSDT", "-", "+").Result()
		if len(entries) == 2 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	<-done

	if len(entries) != 2 {
		t.Fatalf("Expected 2 stream entries, got %d", len(entries))
	}

	fields := make(map[string]string, len(entries[0].Values))
	for k, v := range entries[0].Values {
		if s, ok := v.(string); ok {
			fields[k] = s
		}
	}
	tick, err := models.TickFromFields(fields)
	if err != nil {
		t.Fatalf("Stored entry does not decode to a tick: %v", err)
	}
	if tick.Exchange != "binance" || tick.Symbol != "BTCUSDT" {
		t.Errorf("Wrong identity: %s %s", tick.Exchange, tick.Symbol)
	}
	if tick.Price != 50000.5 {
		t.Errorf("Wrong price: %f", tick.Price)
	}
	if tick.Side != "buy" {
		t.Errorf("Wrong side: %s", tick.Side)
	}
}
