package detector_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	"github.com/elyx5534/sofia-feed/cmd/detector/internal/detector"
	"github.com/elyx5534/sofia-feed/pkg/models"
)

func TestWebhookNotifier_PostsAlertJSON(t *testing.T) {
	var got models.Alert
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		if err := sonic.Unmarshal(body, &got); err != nil {
			t.Errorf("Bad webhook payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	alert := models.Alert{
		ID:        "a1",
		AlertType: models.AlertSingleTrade,
		Severity:  models.SeverityHigh,
		Message:   "Large buy on binance: BTCUSDT 600000 USDT",
		Trade: models.TradeSnapshot{
			Symbol:     "BTCUSDT",
			VolumeUSDT: decimal.NewFromInt(600000),
		},
	}

	n := detector.NewWebhookNotifier(srv.URL)
	if err := n.Notify(context.Background(), alert); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q", contentType)
	}
	if got.ID != "a1" || got.Severity != models.SeverityHigh {
		t.Errorf("payload round trip wrong: %+v", got)
	}
	if !got.Trade.VolumeUSDT.Equal(decimal.NewFromInt(600000)) {
		t.Errorf("notional round trip wrong: %s", got.Trade.VolumeUSDT)
	}
}

func TestWebhookNotifier_RejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := detector.NewWebhookNotifier(srv.URL)
	if err := n.Notify(context.Background(), models.Alert{ID: "a2"}); err == nil {
		t.Fatal("expected an error on a 500 response")
	}
}

func TestWebhookNotifier_UnreachableHost(t *testing.T) {
	n := detector.NewWebhookNotifier("http://127.0.0.1:1")
	if err := n.Notify(context.Background(), models.Alert{ID: "a3"}); err == nil {
		t.Fatal("expected an error when the endpoint is unreachable")
	}
}
