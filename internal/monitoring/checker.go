package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/matjip/internal/model"
)

// DefaultLookbackRuns is how many recent runs feed the failure rate.
const DefaultLookbackRuns = 10

// RunLister is the slice of the record store the checker reads.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
}

// Checker evaluates each finished run and sends the resulting alerts.
type Checker struct {
	runs    RunLister
	alerter *Alerter
	cfg     Config
	now     func() time.Time
}

// NewChecker creates a checker reading run history from runs.
func NewChecker(runs RunLister, cfg Config) *Checker {
	if cfg.LookbackRuns <= 0 {
		cfg.LookbackRuns = DefaultLookbackRuns
	}
	return &Checker{
		runs:    runs,
		alerter: NewAlerter(cfg),
		cfg:     cfg,
		now:     time.Now,
	}
}

// Check evaluates run and returns the alerts raised and the number
// delivered. A history lookup failure only drops the failure-rate check.
func (c *Checker) Check(ctx context.Context, run *model.Run) ([]Alert, int) {
	if run == nil {
		return nil, 0
	}
	log := zap.L().With(zap.String("component", "monitoring.checker"), zap.String("run_id", run.ID))

	history, err := c.runs.ListRuns(ctx, c.cfg.LookbackRuns)
	if err != nil {
		log.Warn("monitoring: list runs failed", zap.Error(err))
		history = nil
	}

	snap := Summarize(run, history, c.now())
	alerts := c.alerter.Evaluate(snap)
	if len(alerts) == 0 {
		log.Debug("monitoring: run healthy")
		return nil, 0
	}
	for _, a := range alerts {
		log.Warn("monitoring: alert",
			zap.String("type", string(a.Type)),
			zap.String("severity", a.Severity),
			zap.String("message", a.Message),
		)
	}
	return alerts, c.alerter.SendAlerts(ctx, alerts)
}
