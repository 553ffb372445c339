package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/matjip/internal/model"
)

type fakeRuns struct {
	runs  []model.Run
	err   error
	limit int
}

func (f *fakeRuns) ListRuns(_ context.Context, limit int) ([]model.Run, error) {
	f.limit = limit
	return f.runs, f.err
}

func TestChecker_SendsAlerts(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	runs := &fakeRuns{}
	c := NewChecker(runs, Config{WebhookURL: ts.URL})
	c.now = func() time.Time { return testNow }

	run := &model.Run{ID: "r1", Regions: []string{"제주도"}, Status: model.RunStatusFailed, Error: "boom"}
	alerts, sent := c.Check(context.Background(), run)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertRunFailed, alerts[0].Type)
	assert.Equal(t, testNow, alerts[0].Timestamp)
	assert.Equal(t, 1, sent)
	assert.Equal(t, int32(1), received.Load())
	assert.Equal(t, DefaultLookbackRuns, runs.limit)
}

func TestChecker_HealthyRun(t *testing.T) {
	c := NewChecker(&fakeRuns{}, Config{WebhookURL: "http://127.0.0.1:0"})
	alerts, sent := c.Check(context.Background(), completeRun("r1", 3, 3, 1))
	assert.Empty(t, alerts)
	assert.Zero(t, sent)
}

func TestChecker_HistoryErrorStillEvaluatesRun(t *testing.T) {
	runs := &fakeRuns{err: errors.New("db down")}
	c := NewChecker(runs, Config{FailureRateThreshold: 0.1, LookbackRuns: 3})

	alerts, sent := c.Check(context.Background(), completeRun("r1", 0, 0, 0))
	assert.Equal(t, []AlertType{AlertNoResults}, types(alerts))
	assert.Zero(t, sent, "no webhook configured")
	assert.Equal(t, 3, runs.limit)
}

func TestChecker_NilRun(t *testing.T) {
	alerts, sent := NewChecker(&fakeRuns{}, Config{}).Check(context.Background(), nil)
	assert.Nil(t, alerts)
	assert.Zero(t, sent)
}
