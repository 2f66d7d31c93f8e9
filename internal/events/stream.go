package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStreamPublisher appends every event to a Redis stream so other
// processes can follow workflow activity.
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *zap.Logger
}

func NewRedisStreamPublisher(client *redis.Client, stream string, logger *zap.Logger) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: 10000, logger: logger}
}

// Append writes event to the stream and returns the entry id.
func (p *RedisStreamPublisher) Append(ctx context.Context, event Event) (string, error) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return "", err
	}

	fields := map[string]any{
		"event_id":   event.ID,
		"event_type": string(event.Type),
		"subject_id": event.SubjectID,
		"timestamp":  event.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"payload":    string(payload),
	}
	if event.ActorID != "" {
		fields["actor_id"] = event.ActorID
	}

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: fields,
	}).Result()
}

func (p *RedisStreamPublisher) Mirror(ctx context.Context, event Event) {
	id, err := p.Append(ctx, event)
	if err != nil {
		p.logger.Warn("failed to append event to stream",
			zap.String("stream", p.stream),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return
	}
	p.logger.Debug("event appended to stream", zap.String("stream_id", id), zap.String("event_type", string(event.Type)))
}
