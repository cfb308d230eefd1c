package detector

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/elyx5534/sofia-feed/pkg/metrics"
	"github.com/elyx5534/sofia-feed/pkg/models"
)

// Notifier delivers one alert to an external channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert models.Alert) error
}

// Route binds a notifier to the severities it receives: everything at Min or
// above, or exactly Min when Exact is set.
type Route struct {
	Notifier Notifier
	Min      string
	Exact    bool
}

// Router fans alerts out to notification channels by severity. Send failures
// are logged and counted, never retried and never returned to the caller.
type Router struct {
	routes  []Route
	logger  *zap.Logger
	metrics *metrics.Registry
}

func NewRouter(logger *zap.Logger, reg *metrics.Registry, routes ...Route) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{routes: routes, logger: logger, metrics: reg}
}

// Dispatch sends the alert to every route whose severity filter matches.
func (r *Router) Dispatch(ctx context.Context, alert models.Alert) {
	rank := models.SeverityRank(alert.Severity)
	for _, route := range r.routes {
		if route.Exact {
			if alert.Severity != route.Min {
				continue
			}
		} else if rank < models.SeverityRank(route.Min) {
			continue
		}

		if err := route.Notifier.Notify(ctx, alert); err != nil {
			r.metrics.Inc(metrics.Key("detector.notify_errors", route.Notifier.Name()))
			r.logger.Warn("Notification failed",
				zap.String("channel", route.Notifier.Name()),
				zap.String("alert_id", alert.ID),
				zap.Error(err))
			continue
		}
		r.metrics.Inc(metrics.Key("detector.notified", route.Notifier.Name()))
	}
}

// LogNotifier writes alerts to the structured log. It is the default channel
// wiring, so the fan-out path works without any external transport.
type LogNotifier struct {
	name   string
	logger *zap.Logger
}

func NewLogNotifier(name string, logger *zap.Logger) *LogNotifier {
	return &LogNotifier{name: name, logger: logger}
}

func (n *LogNotifier) Name() string { return n.name }

func (n *LogNotifier) Notify(_ context.Context, alert models.Alert) error {
	n.logger.Info("ALERT",
		zap.String("channel", n.name),
		zap.String("severity", alert.Severity),
		zap.String("type", alert.AlertType),
		zap.String("symbol", alert.Trade.Symbol),
		zap.String("message", alert.Message))
	return nil
}

// WebhookNotifier POSTs the alert as JSON to a fixed URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (n *WebhookNotifier) Name() string { return "webhook" }

func (n *WebhookNotifier) Notify(ctx context.Context, alert models.Alert) error {
	body, err := sonic.ConfigFastest.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
