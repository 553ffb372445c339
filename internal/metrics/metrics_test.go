package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/matjip/internal/resilience"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "quota", Outcome(resilience.NewQuotaError("youtube", "")))
	assert.Equal(t, "error", Outcome(errors.New("boom")))
}

func TestObserveCall(t *testing.T) {
	before := testutil.ToFloat64(ProviderCalls.WithLabelValues("kakao", "keyword_search", "ok"))
	ObserveCall("kakao", "keyword_search", time.Now(), nil)
	after := testutil.ToFloat64(ProviderCalls.WithLabelValues("kakao", "keyword_search", "ok"))
	assert.InDelta(t, 1.0, after-before, 1e-9)
}

func TestHandler(t *testing.T) {
	ObserveCall("google", "details", time.Now(), errors.New("x"))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "matjip_provider_calls_total")
}
