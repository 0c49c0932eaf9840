package sentiment

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/maltedev/amazon-review-analyzer/internal/metrics"
	"github.com/maltedev/amazon-review-analyzer/internal/models"
	"github.com/maltedev/amazon-review-analyzer/internal/ratelimit"
)

const (
	SentimentError       = "Error"
	SentimentEmpty       = "Could not parse sentiment (empty response text)"
	SentimentRateLimited = "Error: rate limit exceeded (RESOURCE_EXHAUSTED), wait a while and retry or check your quota"
)

var (
	ErrMissingAPIKey = errors.New("API key not configured")
	// ErrRateLimited is wrapped by Generators when the provider rejects a call
	// for quota reasons.
	ErrRateLimited = errors.New("rate limited")
)

// Generator sends a prompt to a hosted model and returns its raw text.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// ProgressFunc is called after each review is classified.
type ProgressFunc func(done, total int, result models.SentimentResult)

type Classifier struct {
	gen    Generator
	model  string
	pause  ratelimit.RateLimiter
	quota  ratelimit.RateLimiter
	logger *slog.Logger
}

// NewClassifier builds a classifier that waits pause after every model call
// except the last one of a batch. A nil pause means one second.
func NewClassifier(gen Generator, model string, pause ratelimit.RateLimiter, logger *slog.Logger) *Classifier {
	if model == "" {
		model = DefaultModel
	}
	if pause == nil {
		pause = ratelimit.NewRandomDelay(time.Second, time.Second)
	}
	return &Classifier{
		gen:    gen,
		model:  model,
		pause:  pause,
		quota:  ratelimit.Immediate{},
		logger: logger.With("component", "sentiment"),
	}
}

// WithQuota caps how often calls may start, on top of the pause between them.
func (c *Classifier) WithQuota(quota ratelimit.RateLimiter) *Classifier {
	if quota != nil {
		c.quota = quota
	}
	return c
}

// Classify asks the model for one verdict. Failures never escape: they are
// reported as sentinel sentiment strings so a batch can keep going.
func (c *Classifier) Classify(ctx context.Context, review string) models.SentimentResult {
	result := models.SentimentResult{Review: review}

	start := time.Now()
	text, err := c.gen.Generate(ctx, c.model, BuildPrompt(review))
	dur := time.Since(start)

	switch {
	case err != nil && IsRateLimited(err):
		metrics.ObserveSentiment("rate_limited", dur)
		c.logger.Error("sentiment rate limited", "error", err)
		result.Sentiment = SentimentRateLimited
		result.Failed = true
		result.RateLimited = true

	case err != nil:
		metrics.ObserveSentiment("error", dur)
		c.logger.Error("error during sentiment analysis", "error", err)
		result.Sentiment = SentimentError
		result.Failed = true

	case strings.TrimSpace(text) == "":
		metrics.ObserveSentiment("empty", dur)
		c.logger.Warn("empty model response")
		result.Sentiment = SentimentEmpty
		result.Failed = true

	default:
		metrics.ObserveSentiment("ok", dur)
		result.Sentiment = strings.TrimSpace(text)
	}

	return result
}

// ClassifyAll classifies reviews one at a time with a pause after each call.
// It stops early only when ctx is cancelled.
func (c *Classifier) ClassifyAll(ctx context.Context, reviews []string, progress ProgressFunc) ([]models.SentimentResult, error) {
	results := make([]models.SentimentResult, 0, len(reviews))

	for i, review := range reviews {
		if err := c.quota.Wait(ctx); err != nil {
			return results, err
		}

		c.logger.Info("analyzing review", "index", i+1, "total", len(reviews))
		result := c.Classify(ctx, review)
		results = append(results, result)

		if progress != nil {
			progress(i+1, len(reviews), result)
		}

		if i < len(reviews)-1 {
			if err := c.pause.Wait(ctx); err != nil {
				return results, err
			}
		}
	}

	return results, nil
}

// IsRateLimited reports whether err is a quota or rate-limit failure.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
