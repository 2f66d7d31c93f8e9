package worker

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/events"
	"github.com/spec-kit/certification-service/internal/observability"
)

type handlerMap map[events.EventType]events.EventHandler

func (h handlerMap) Handlers() map[events.EventType]events.EventHandler { return h }

func TestNotificationWorkerSubscribesHandlers(t *testing.T) {
	ctx := context.Background()
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	var delivered []string
	source := handlerMap{
		events.EventAuditCreated: func(_ context.Context, e events.Event) error {
			delivered = append(delivered, e.SubjectID)
			return nil
		},
		events.EventCertificationIssued: func(context.Context, events.Event) error {
			return errors.New("smtp down")
		},
	}

	types := StartNotificationWorker(dispatcher, source, metrics, zap.NewNop())
	require.Equal(t, []events.EventType{events.EventAuditCreated, events.EventCertificationIssued}, types)

	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventAuditCreated, SubjectID: "a1"}))
	require.Equal(t, []string{"a1"}, delivered)

	err := dispatcher.Publish(ctx, events.Event{Type: events.EventCertificationIssued, SubjectID: "c1"})
	require.ErrorContains(t, err, "smtp down")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `notifications_total{event="audit_created",outcome="sent"} 1`)
	require.Contains(t, string(body), `notifications_total{event="certification_issued",outcome="failed"} 1`)
}

func TestNotificationWorkerWithoutDispatcher(t *testing.T) {
	require.Nil(t, StartNotificationWorker(nil, handlerMap{}, nil, nil))
}
