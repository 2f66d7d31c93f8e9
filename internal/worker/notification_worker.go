package worker

import (
	"context"
	"maps"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/events"
	"github.com/spec-kit/certification-service/internal/observability"
)

// NotificationSource provides the handlers that turn events into mail.
type NotificationSource interface {
	Handlers() map[events.EventType]events.EventHandler
}

// StartNotificationWorker subscribes every handler of source to the
// dispatcher and returns the subscribed event types. Each run is counted
// and timed; failures still propagate so publishers can flag them.
func StartNotificationWorker(dispatcher events.Dispatcher, source NotificationSource, metrics *observability.Metrics, logger *zap.Logger) []events.EventType {
	if dispatcher == nil || source == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	handlers := source.Handlers()
	types := slices.Sorted(maps.Keys(handlers))
	for _, eventType := range types {
		dispatcher.Subscribe(eventType, instrument(eventType, handlers[eventType], metrics, logger))
	}
	logger.Info("notification worker subscribed", zap.Int("event_types", len(types)))
	return types
}

func instrument(eventType events.EventType, handler events.EventHandler, metrics *observability.Metrics, logger *zap.Logger) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		start := time.Now()
		err := handler(ctx, event)
		metrics.RecordNotification(string(eventType), err)
		logger.Debug("notification handled",
			zap.String("event_type", string(eventType)),
			zap.String("event_id", event.ID),
			zap.Duration("took", time.Since(start)),
			zap.Bool("failed", err != nil))
		return err
	}
}
