package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StreamClient is the subset of the Redis client used by the consumer.
type StreamClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// AnalysisRequestedPayload asks a worker to analyze one product URL.
type AnalysisRequestedPayload struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
}

// RequestHandler processes one analysis request. Returning an error leaves
// the message pending; the consumer that owns it retries it on its next pass
// over its pending entries, including after a restart.
type RequestHandler func(ctx context.Context, req *AnalysisRequestedPayload) error

// ErrMalformedEvent marks messages that can never be processed. They are
// acknowledged and dropped.
var ErrMalformedEvent = errors.New("malformed event")

// EnqueueAnalysis adds an analysis request for url to stream.
func EnqueueAnalysis(ctx context.Context, client StreamClient, stream, url string) (string, error) {
	if stream == "" {
		stream = DefaultRequestStream
	}

	payload := &AnalysisRequestedPayload{
		EventID:   uuid.New().String(),
		EventType: string(EventTypeAnalysisRequested),
		Timestamp: time.Now().UTC(),
		URL:       url,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"event_id":   payload.EventID,
			"event_type": payload.EventType,
			"payload":    string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish to redis: %w", err)
	}
	return id, nil
}

type ConsumerConfig struct {
	Stream   string
	Group    string
	Name     string
	Block    time.Duration
	ErrorGap time.Duration
}

// Consumer reads analysis requests from a stream one message at a time.
// Entries left pending by a failed handler are walked again, oldest first,
// before the next new message is read.
type Consumer struct {
	redis  StreamClient
	cfg    ConsumerConfig
	handle RequestHandler
	logger *slog.Logger

	backlog      bool
	cursor       string
	failedInPass bool
}

func NewConsumer(client StreamClient, cfg ConsumerConfig, handle RequestHandler, logger *slog.Logger) *Consumer {
	if cfg.Stream == "" {
		cfg.Stream = DefaultRequestStream
	}
	if cfg.Group == "" {
		cfg.Group = "review-analyzer-workers"
	}
	if cfg.Name == "" {
		cfg.Name = "worker-1"
	}
	if cfg.Block == 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.ErrorGap <= 0 {
		cfg.ErrorGap = time.Second
	}

	return &Consumer{
		redis:   client,
		cfg:     cfg,
		handle:  handle,
		logger:  logger.With("component", "event_consumer", "stream", cfg.Stream),
		backlog: true,
		cursor:  "0",
	}
}

// EnsureGroup creates the consumer group and the stream if needed.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.redis.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	c.logger.Info("starting consumer", "group", c.cfg.Group, "consumer", c.cfg.Name)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("poll failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.ErrorGap):
			}
		}
	}
}

// Poll handles at most one message and returns the number acknowledged.
// While this consumer owns pending entries it retries those first; a
// handler failure is returned after the message is left pending.
func (c *Consumer) Poll(ctx context.Context) (int, error) {
	if c.backlog {
		messages, err := c.read(ctx, c.cursor, -1)
		if err != nil {
			return 0, err
		}
		if len(messages) > 0 {
			c.cursor = messages[len(messages)-1].ID
			return c.handleAll(ctx, messages, true)
		}

		c.backlog = c.failedInPass
		c.failedInPass = false
		c.cursor = "0"
	}

	messages, err := c.read(ctx, ">", c.cfg.Block)
	if err != nil {
		return 0, err
	}
	return c.handleAll(ctx, messages, false)
}

// read fetches one entry after id. ">" asks for a new message; any other id
// walks this consumer's pending entries.
func (c *Consumer) read(ctx context.Context, id string, block time.Duration) ([]redis.XMessage, error) {
	streams, err := c.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Name,
		Streams:  []string{c.cfg.Stream, id},
		Count:    1,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var messages []redis.XMessage
	for _, stream := range streams {
		messages = append(messages, stream.Messages...)
	}
	return messages, nil
}

func (c *Consumer) handleAll(ctx context.Context, messages []redis.XMessage, retry bool) (int, error) {
	handled := 0
	var failed error

	for _, message := range messages {
		if err := c.process(ctx, message); err != nil {
			if !errors.Is(err, ErrMalformedEvent) {
				c.logger.Error("failed to process message", "id", message.ID, "retry", retry, "error", err)
				c.backlog = true
				if retry {
					c.failedInPass = true
				}
				failed = fmt.Errorf("message %s left pending: %w", message.ID, err)
				continue
			}
			c.logger.Warn("dropping malformed message", "id", message.ID, "error", err)
		}

		if err := c.redis.XAck(ctx, c.cfg.Stream, c.cfg.Group, message.ID).Err(); err != nil {
			c.logger.Error("failed to acknowledge message", "id", message.ID, "error", err)
			continue
		}
		handled++
	}

	return handled, failed
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage) error {
	eventType, _ := msg.Values["event_type"].(string)
	if eventType != string(EventTypeAnalysisRequested) {
		return fmt.Errorf("%w: unexpected event type %q", ErrMalformedEvent, eventType)
	}

	raw, ok := msg.Values["payload"].(string)
	if !ok {
		return fmt.Errorf("%w: missing payload", ErrMalformedEvent)
	}

	var req AnalysisRequestedPayload
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if req.URL == "" {
		return fmt.Errorf("%w: missing url", ErrMalformedEvent)
	}

	c.logger.Info("processing analysis request", "message_id", msg.ID, "url", req.URL)
	return c.handle(ctx, &req)
}
