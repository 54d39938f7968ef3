package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const EventTypeBatchCompleted = "BSR_BATCH_COMPLETED"

// RedisClient is the subset of the go-redis client used here.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// RedisNotifier appends one entry per completed run to a Redis stream.
type RedisNotifier struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
}

func NewRedisNotifier(client RedisClient, stream string, logger *slog.Logger) *RedisNotifier {
	if stream == "" {
		stream = "stream:bsr_runs"
	}
	return &RedisNotifier{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "redis_notifier"),
	}
}

type batchCompletedPayload struct {
	EventID           string    `json:"event_id"`
	EventType         string    `json:"event_type"`
	RunID             string    `json:"run_id"`
	Variant           string    `json:"variant"`
	Total             int       `json:"total"`
	Failed            int       `json:"failed"`
	FailedIdentifiers []string  `json:"failed_identifiers"`
	Artifacts         []string  `json:"artifacts"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}

func (n *RedisNotifier) Notify(ctx context.Context, report Report) error {
	payload := batchCompletedPayload{
		EventID:           uuid.New().String(),
		EventType:         EventTypeBatchCompleted,
		RunID:             report.RunID,
		Variant:           report.Variant,
		Total:             report.Total,
		Failed:            len(report.FailedIdentifiers),
		FailedIdentifiers: report.FailedIdentifiers,
		StartedAt:         report.StartedAt,
		FinishedAt:        report.FinishedAt,
	}
	if payload.FailedIdentifiers == nil {
		payload.FailedIdentifiers = []string{}
	}
	for _, a := range report.Attachments {
		payload.Artifacts = append(payload.Artifacts, a.Name)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: n.stream,
		Values: map[string]interface{}{
			"data":      string(data),
			"type":      EventTypeBatchCompleted,
			"run_id":    report.RunID,
			"event_id":  payload.EventID,
			"timestamp": fmt.Sprintf("%d", report.FinishedAt.UnixNano()),
			"failed":    payload.Failed,
			"total":     payload.Total,
		},
	}

	id, err := n.redis.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	n.logger.Info("run event published",
		"stream", n.stream,
		"stream_id", id,
		"run_id", report.RunID,
		"failed", payload.Failed)

	return nil
}
