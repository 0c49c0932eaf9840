// Package app wires configuration into the analysis flow shared by the CLI
// and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/amazon-review-analyzer/internal/analyzer"
	"github.com/maltedev/amazon-review-analyzer/internal/browser"
	"github.com/maltedev/amazon-review-analyzer/internal/config"
	"github.com/maltedev/amazon-review-analyzer/internal/events"
	"github.com/maltedev/amazon-review-analyzer/internal/parser"
	"github.com/maltedev/amazon-review-analyzer/internal/ratelimit"
	"github.com/maltedev/amazon-review-analyzer/internal/scraper"
	"github.com/maltedev/amazon-review-analyzer/internal/sentiment"
	"github.com/maltedev/amazon-review-analyzer/internal/storage"
	"github.com/redis/go-redis/v9"
)

func BrowserOptions(cfg config.BrowserConfig) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Headless
	opts.Timeout = cfg.Timeout
	opts.ViewportWidth = cfg.ViewportWidth
	opts.ViewportHeight = cfg.ViewportHeight
	if cfg.UserAgent != "" {
		opts.UserAgent = cfg.UserAgent
	}
	if cfg.AcceptLanguage != "" {
		opts.AcceptLanguage = cfg.AcceptLanguage
	}
	if cfg.Locale != "" {
		opts.Locale = cfg.Locale
	}
	return opts
}

func ScraperOptions(cfg config.ScraperConfig) scraper.Options {
	return scraper.Options{
		MaxRetries:   cfg.MaxRetries,
		Settle:       delay(cfg.SettleMin, cfg.SettleMax),
		RetryDelay:   delay(cfg.RetryDelayMin, cfg.RetryDelayMax),
		ReviewSettle: delay(cfg.ReviewSettle, cfg.ReviewSettle),
	}
}

func delay(lo, hi time.Duration) ratelimit.RateLimiter {
	if hi <= 0 {
		return ratelimit.Immediate{}
	}
	return ratelimit.NewRandomDelay(lo, hi)
}

// BrowserOpener starts a fresh headless browser for every analysis.
func BrowserOpener(cfg config.BrowserConfig, logger *slog.Logger) analyzer.Opener {
	return func(ctx context.Context) (analyzer.Session, error) {
		b, err := browser.New(BrowserOptions(cfg), logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// NewRedisPublisher connects to cfg.Addr. It returns nil without error when
// no address is configured.
func NewRedisPublisher(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*events.Publisher, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return events.NewPublisher(client, cfg.Stream, logger), nil
}

// NewClassifier pauses Interval after each model call and, when
// RequestsPerMinute is set, also caps how often calls start.
func NewClassifier(cfg config.SentimentConfig, gen sentiment.Generator, logger *slog.Logger) *sentiment.Classifier {
	classifier := sentiment.NewClassifier(gen, cfg.Model, delay(cfg.Interval, cfg.Interval), logger)
	if cfg.RequestsPerMinute > 0 {
		classifier.WithQuota(ratelimit.NewPacer(time.Minute / time.Duration(cfg.RequestsPerMinute)))
	}
	return classifier
}

// NewAnalyzer builds the analysis flow. gen may be a fake in tests; the
// publisher is optional.
func NewAnalyzer(cfg *config.Config, open analyzer.Opener, gen sentiment.Generator, pub *events.Publisher, logger *slog.Logger) *analyzer.Analyzer {
	classifier := NewClassifier(cfg.Sentiment, gen, logger)

	opts := analyzer.Options{
		Scraper:    ScraperOptions(cfg.Scraper),
		SampleSize: cfg.Sentiment.SampleSize,
	}
	if pub != nil {
		opts.Publisher = pub
	}

	return analyzer.New(open, parser.NewAmazonParser(), storage.NewDebugStore(cfg.Scraper.DebugDir), classifier, opts, logger)
}
