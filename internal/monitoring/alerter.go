package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aadhaar-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailureRate AlertType = "pipeline_failure_rate"
	AlertDataLoss    AlertType = "cleaning_data_loss"
)

// minFinishedRuns is the number of finished runs a category needs before
// its failure rate is judged.
const minFinishedRuns = 3

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Category  string         `json:"category,omitempty"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
// A zero threshold disables its check.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	for _, m := range snap.Categories {
		finished := m.Complete + m.Failed
		if a.cfg.FailureRateThreshold > 0 && finished >= minFinishedRuns && m.FailRate > a.cfg.FailureRateThreshold {
			alerts = append(alerts, Alert{
				Type:     AlertFailureRate,
				Severity: "high",
				Category: m.Category.String(),
				Message: fmt.Sprintf(
					"%s failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
					m.Category, m.FailRate*100, a.cfg.FailureRateThreshold*100,
					m.Failed, finished, snap.LookbackHours,
				),
				Details: map[string]any{
					"failure_rate": m.FailRate,
					"threshold":    a.cfg.FailureRateThreshold,
					"failed":       m.Failed,
					"finished":     finished,
				},
				Timestamp: now,
			})
		}

		if a.cfg.RemovedPctThreshold > 0 && m.Complete > 0 && m.AvgRemovedPct > a.cfg.RemovedPctThreshold {
			alerts = append(alerts, Alert{
				Type:     AlertDataLoss,
				Severity: "medium",
				Category: m.Category.String(),
				Message: fmt.Sprintf(
					"%s cleaning removed %.1f%% of rows on average, above threshold %.1f%%",
					m.Category, m.AvgRemovedPct, a.cfg.RemovedPctThreshold,
				),
				Details: map[string]any{
					"avg_removed_pct": m.AvgRemovedPct,
					"threshold":       a.cfg.RemovedPctThreshold,
					"complete":        m.Complete,
				},
				Timestamp: now,
			})
		}
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("category", alert.Category),
		)
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
