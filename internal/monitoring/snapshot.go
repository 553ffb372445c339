// Package monitoring evaluates finished crawl runs and posts alerts to a
// webhook.
package monitoring

import (
	"time"

	"github.com/sells-group/matjip/internal/model"
)

// Snapshot summarizes one finished run and the runs before it.
type Snapshot struct {
	RunID     string          `json:"run_id"`
	Status    model.RunStatus `json:"status"`
	Regions   int             `json:"regions"`
	Error     string          `json:"error,omitempty"`
	Stored    int             `json:"stored"`
	Matched   int             `json:"matched"`
	Rejected  int             `json:"rejected"`
	Failed    int             `json:"failed"`
	RejectPct float64         `json:"reject_rate"`

	// History covers finished runs in the lookback, the current one included.
	HistoryTotal  int     `json:"history_total"`
	HistoryFailed int     `json:"history_failed"`
	FailRate      float64 `json:"fail_rate"`

	CollectedAt time.Time `json:"collected_at"`
}

// Summarize builds a Snapshot of run against history. Runs still in
// progress are ignored; run is counted once even if history holds it.
func Summarize(run *model.Run, history []model.Run, now time.Time) Snapshot {
	snap := Snapshot{
		RunID:       run.ID,
		Status:      run.Status,
		Regions:     len(run.Regions),
		Error:       run.Error,
		CollectedAt: now.UTC(),
	}
	for _, s := range run.Stats {
		snap.Stored += s.Stored
		snap.Matched += s.Matched
		snap.Rejected += s.Rejected
		snap.Failed += s.Failed
	}
	if judged := snap.Matched + snap.Rejected; judged > 0 {
		snap.RejectPct = float64(snap.Rejected) / float64(judged)
	}

	count := func(status model.RunStatus) {
		switch status {
		case model.RunStatusComplete:
			snap.HistoryTotal++
		case model.RunStatusFailed:
			snap.HistoryTotal++
			snap.HistoryFailed++
		}
	}
	count(run.Status)
	for _, h := range history {
		if h.ID == run.ID {
			continue
		}
		count(h.Status)
	}
	if snap.HistoryTotal > 0 {
		snap.FailRate = float64(snap.HistoryFailed) / float64(snap.HistoryTotal)
	}
	return snap
}
