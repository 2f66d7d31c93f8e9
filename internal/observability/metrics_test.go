package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/audits", http.MethodGet, 200, 15*time.Millisecond)
	m.RecordError("/audits", http.MethodPost, "FORBIDDEN")
	m.RecordTransition("audit", "completed")
	m.RecordNotification("audit.created", nil)
	m.RecordNotification("audit.created", io.ErrUnexpectedEOF)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	require.True(t, strings.Contains(text, `http_requests_total{method="GET",path="/audits",status="200"} 1`))
	require.True(t, strings.Contains(text, `http_errors_total{code="FORBIDDEN",method="POST",path="/audits"} 1`))
	require.True(t, strings.Contains(text, `workflow_transitions_total{entity="audit",transition="completed"} 1`))
	require.True(t, strings.Contains(text, `notifications_total{event="audit.created",outcome="sent"} 1`))
	require.True(t, strings.Contains(text, `notifications_total{event="audit.created",outcome="failed"} 1`))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", http.MethodGet, 200, time.Millisecond)
	m.RecordTransition("audit", "completed")
	m.InFlight(1)
	m.RecordNotification("audit.created", nil)
}
