package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/amazon-review-analyzer/internal/models"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event
type EventType string

const (
	EventTypeAnalysisCompleted EventType = "ANALYSIS_COMPLETED"
	EventTypeAnalysisRequested EventType = "ANALYSIS_REQUESTED"

	DefaultStream        = "review-analyzer:events"
	DefaultRequestStream = "review-analyzer:requests"
)

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// AnalysisCompletedPayload summarizes one finished analysis.
type AnalysisCompletedPayload struct {
	EventID      string                   `json:"event_id"`
	EventType    string                   `json:"event_type"`
	Timestamp    time.Time                `json:"timestamp"`
	AnalysisID   string                   `json:"analysis_id"`
	URL          string                   `json:"url"`
	Product      *models.ProductRecord    `json:"product"`
	TotalReviews int                      `json:"total_reviews"`
	Results      []models.SentimentResult `json:"results,omitempty"`
	Failed       int                      `json:"failed"`
}

// Publisher writes analysis events to a Redis stream.
type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishAnalysisCompleted adds the report to the stream and returns the
// stream entry id.
func (p *Publisher) PublishAnalysisCompleted(ctx context.Context, report *models.Report) (string, error) {
	payload := NewAnalysisCompletedPayload(report)

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"event_id":    payload.EventID,
			"event_type":  payload.EventType,
			"analysis_id": payload.AnalysisID,
			"payload":     string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Info("published event",
		"event_id", payload.EventID,
		"event_type", payload.EventType,
		"stream_id", id)

	return id, nil
}

func (p *Publisher) Close() error {
	return p.redis.Close()
}

func NewAnalysisCompletedPayload(report *models.Report) *AnalysisCompletedPayload {
	failed := 0
	for _, r := range report.Results {
		if r.Failed {
			failed++
		}
	}

	return &AnalysisCompletedPayload{
		EventID:      uuid.New().String(),
		EventType:    string(EventTypeAnalysisCompleted),
		Timestamp:    time.Now().UTC(),
		AnalysisID:   report.ID,
		URL:          report.URL,
		Product:      report.Product,
		TotalReviews: report.TotalReviews,
		Results:      report.Results,
		Failed:       failed,
	}
}
