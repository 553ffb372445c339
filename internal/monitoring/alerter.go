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

	"github.com/sells-group/matjip/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertRunFailed      AlertType = "run_failed"
	AlertRegionFailures AlertType = "region_failures"
	AlertNoResults      AlertType = "no_results"
	AlertRejectRate     AlertType = "reject_rate"
	AlertFailureRate    AlertType = "failure_rate"
)

// Minimum sample sizes before the rate checks fire.
const (
	minJudged   = 10
	minFinished = 5
)

// Config configures run alerting. An empty WebhookURL disables delivery;
// a zero threshold disables that check.
type Config struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	RejectRateThreshold  float64 `yaml:"reject_rate_threshold" mapstructure:"reject_rate_threshold"`
	LookbackRuns         int     `yaml:"lookback_runs" mapstructure:"lookback_runs"`
}

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	RunID     string         `json:"run_id"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds and sends
// alerts via webhook.
type Alerter struct {
	cfg    Config
	client *http.Client
}

// NewAlerter creates a new Alerter.
func NewAlerter(cfg Config) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap Snapshot) []Alert {
	var alerts []Alert
	add := func(t AlertType, severity, msg string, details map[string]any) {
		alerts = append(alerts, Alert{
			Type:      t,
			Severity:  severity,
			RunID:     snap.RunID,
			Message:   msg,
			Details:   details,
			Timestamp: snap.CollectedAt,
		})
	}

	switch {
	case snap.Status == model.RunStatusFailed:
		add(AlertRunFailed, "high",
			fmt.Sprintf("Crawl run %s failed: %s", snap.RunID, snap.Error),
			map[string]any{"regions": snap.Regions},
		)
	case snap.Error != "":
		add(AlertRegionFailures, "medium",
			fmt.Sprintf("Crawl run %s finished with failed regions: %s", snap.RunID, snap.Error),
			map[string]any{"regions": snap.Regions},
		)
	}

	if snap.Status == model.RunStatusComplete && snap.Stored == 0 {
		add(AlertNoResults, "medium",
			fmt.Sprintf("Crawl run %s stored no restaurants across %d region(s)", snap.RunID, snap.Regions),
			map[string]any{"matched": snap.Matched, "rejected": snap.Rejected},
		)
	}

	judged := snap.Matched + snap.Rejected
	if a.cfg.RejectRateThreshold > 0 && judged >= minJudged && snap.RejectPct > a.cfg.RejectRateThreshold {
		add(AlertRejectRate, "medium",
			fmt.Sprintf("Reject rate %.1f%% exceeds threshold %.1f%% (%d rejected / %d judged)",
				snap.RejectPct*100, a.cfg.RejectRateThreshold*100, snap.Rejected, judged),
			map[string]any{
				"reject_rate": snap.RejectPct,
				"threshold":   a.cfg.RejectRateThreshold,
			},
		)
	}

	if a.cfg.FailureRateThreshold > 0 && snap.HistoryTotal >= minFinished && snap.FailRate > a.cfg.FailureRateThreshold {
		add(AlertFailureRate, "high",
			fmt.Sprintf("Run failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100, snap.HistoryFailed, snap.HistoryTotal),
			map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.HistoryFailed,
				"finished":     snap.HistoryTotal,
			},
		)
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
				zap.String("run_id", alert.RunID),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
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
