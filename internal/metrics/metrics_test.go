package metrics

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

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.ObserveHTTP(http.MethodGet, "/v1/snippets/{id}", http.StatusOK, 10*time.Millisecond)
	m.ObserveHTTP(http.MethodGet, "/v1/snippets/{id}", http.StatusOK, 20*time.Millisecond)
	m.EventDispatched("user.created", OutcomeOK)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/v1/snippets/{id}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsDispatched.WithLabelValues("user.created", OutcomeOK)))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
		m.EventDispatched("x", OutcomeError)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.EventDispatched("user.verified", OutcomePanic)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `sharecode_domain_events_dispatched_total{event="user.verified",outcome="panic"} 1`))
}
