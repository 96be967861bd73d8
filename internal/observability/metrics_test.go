package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsNilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAPI("GET", "/x", "200", time.Millisecond)
		m.ApiInflightInc()
		m.ApiInflightDec()
		m.ObserveAggregateOperation("op", "success", time.Millisecond)
		m.IncAggregateConflict("op")
		m.IncAggregateRetry("op")
		m.IncResearchTransition("start", "researching")
		m.ObserveResearchAccepted("6", "rare", 61)
		m.IncChainCompleted()
		m.IncReconcileDeck("unchanged")
		m.IncBusPublished("research.accepted", "ok")
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsCountersAndExposition(t *testing.T) {
	m := NewMetrics()

	m.ObserveAPI("POST", "/api/research-orchestrator", "200", 20*time.Millisecond)
	m.ObserveAPI("POST", "/api/research-orchestrator", "200", 30*time.Millisecond)
	m.IncAggregateConflict("research.accept")
	m.ObserveResearchAccepted("7", "epic", 80)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.apiRequests.WithLabelValues("POST", "/api/research-orchestrator", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.aggregateConflicts.WithLabelValues("research.accept")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.researchAccepted.WithLabelValues("7", "epic")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "mycelium_research_accepted_total"))
}

func TestNewMetricsUsesIsolatedRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = NewMetrics()
		_ = NewMetrics()
	})
}
