package bridge_test

import (
	"context"
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/elyx5534/sofia-feed/cmd/bridge/internal/bridge"
	"github.com/elyx5534/sofia-feed/cmd/bridge/internal/testutils"
	"github.com/elyx5534/sofia-feed/pkg/metrics"
	"github.com/elyx5534/sofia-feed/pkg/stream"
)

func alertMsg(topic string) stream.Message {
	return stream.Message{
		Topic: topic,
		ID:    "1-0",
		Fields: map[string]string{
			"id":         "abc-123",
			"symbol":     "BTCUSDT",
			"alert_type": "single_trade",
			"severity":   "high",
			"message":    "Large buy on binance: BTCUSDT 600000 USDT",
		},
	}
}

func TestBridge_ForwardsAggregateAlerts(t *testing.T) {
	writer := &testutils.MockKafkaWriter{}
	reg := metrics.NewRegistry()
	b := bridge.New(writer, nil, reg)

	if err := b.HandleMessage(context.Background(), alertMsg("alerts.whales")); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if writer.Count() != 1 {
		t.Fatalf("expected 1 kafka message, got %d", writer.Count())
	}
	msg := writer.Messages[0]
	if string(msg.Key) != "BTCUSDT" {
		t.Errorf("key = %q, want the symbol", msg.Key)
	}

	var decoded map[string]string
	if err := sonic.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded["severity"] != "high" || decoded["id"] != "abc-123" {
		t.Errorf("payload round trip wrong: %v", decoded)
	}
	if reg.CounterValue("bridge.forwarded") != 1 {
		t.Error("forwarded counter not incremented")
	}
}

func TestBridge_SkipsSeverityTiers(t *testing.T) {
	writer := &testutils.MockKafkaWriter{}
	reg := metrics.NewRegistry()
	b := bridge.New(writer, nil, reg)

	for _, topic := range []string{"alerts.whales.critical", "alerts.whales.low"} {
		if err := b.HandleMessage(context.Background(), alertMsg(topic)); err != nil {
			t.Fatalf("HandleMessage(%s): %v", topic, err)
		}
	}

	if writer.Count() != 0 {
		t.Errorf("tier entries reached kafka: %d messages", writer.Count())
	}
	if reg.CounterValue("bridge.tier_skipped") != 2 {
		t.Errorf("tier_skipped = %d, want 2", reg.CounterValue("bridge.tier_skipped"))
	}
}

func TestBridge_WriteFailureReturnsError(t *testing.T) {
	writer := &testutils.MockKafkaWriter{ShouldFail: true}
	reg := metrics.NewRegistry()
	b := bridge.New(writer, nil, reg)

	err := b.HandleMessage(context.Background(), alertMsg("alerts.whales"))
	if err == nil {
		t.Fatal("expected an error when kafka is down")
	}
	if !strings.Contains(err.Error(), "kafka write") {
		t.Errorf("unexpected error: %v", err)
	}
	if reg.CounterValue("bridge.write_errors") != 1 {
		t.Error("write error not counted")
	}
}

func TestTopicCreator_CreatesAndWaits(t *testing.T) {
	dialer := &testutils.MockKafkaDialer{}
	clock := &testutils.MockClock{}
	tc := bridge.NewTopicCreator(nil, dialer, clock)

	tc.Create([]string{"localhost:9092"}, "feed_alerts")

	if dialer.ConnSpy == nil {
		t.Fatal("no broker connection attempted")
	}
	found := false
	for _, topic := range dialer.ConnSpy.CreatedTopics {
		if topic == "feed_alerts" {
			found = true
		}
	}
	if !found {
		t.Errorf("topic not created, got %v", dialer.ConnSpy.CreatedTopics)
	}
	if len(clock.Slept) == 0 {
		t.Error("readiness wait never slept")
	}
}
