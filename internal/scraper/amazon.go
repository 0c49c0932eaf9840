package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/amazon-review-analyzer/internal/browser"
	"github.com/maltedev/amazon-review-analyzer/internal/metrics"
	"github.com/maltedev/amazon-review-analyzer/internal/models"
	"github.com/maltedev/amazon-review-analyzer/internal/parser"
	"github.com/maltedev/amazon-review-analyzer/internal/ratelimit"
)

const (
	reasonTitleNotFound = "title_not_found"
	reasonPriceNotFound = "price_not_found"
	reasonException     = "exception"
)

type Options struct {
	MaxRetries   int
	Settle       ratelimit.RateLimiter
	RetryDelay   ratelimit.RateLimiter
	ReviewSettle ratelimit.RateLimiter
}

func DefaultOptions() Options {
	return Options{
		MaxRetries:   3,
		Settle:       ratelimit.NewRandomDelay(2*time.Second, 5*time.Second),
		RetryDelay:   ratelimit.NewRandomDelay(3*time.Second, 7*time.Second),
		ReviewSettle: ratelimit.NewRandomDelay(3*time.Second, 3*time.Second),
	}
}

type AmazonScraper struct {
	session      Session
	parser       parser.Parser
	store        Snapshotter
	settle       ratelimit.RateLimiter
	retryDelay   ratelimit.RateLimiter
	reviewSettle ratelimit.RateLimiter
	maxRetries   int
	logger       *slog.Logger
}

func NewAmazonScraper(session Session, p parser.Parser, store Snapshotter, opts Options, logger *slog.Logger) *AmazonScraper {
	defaults := DefaultOptions()
	if opts.MaxRetries < 1 {
		opts.MaxRetries = defaults.MaxRetries
	}
	if opts.Settle == nil {
		opts.Settle = defaults.Settle
	}
	if opts.RetryDelay == nil {
		opts.RetryDelay = defaults.RetryDelay
	}
	if opts.ReviewSettle == nil {
		opts.ReviewSettle = defaults.ReviewSettle
	}

	return &AmazonScraper{
		session:      session,
		parser:       p,
		store:        store,
		settle:       opts.Settle,
		retryDelay:   opts.RetryDelay,
		reviewSettle: opts.ReviewSettle,
		maxRetries:   opts.MaxRetries,
		logger:       logger.With("component", "scraper"),
	}
}

// ScrapeProduct fetches and extracts url until title and price are both
// found or the attempts run out. It never returns nil; failures are encoded
// in the record's Error and Failure fields.
func (s *AmazonScraper) ScrapeProduct(ctx context.Context, url string) *models.ProductRecord {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		last := attempt == s.maxRetries
		s.logger.Info("fetching product info", "attempt", attempt, "max_attempts", s.maxRetries, "url", url)

		record, html, err := s.attempt(ctx, url)
		switch {
		case err != nil && isNetworkError(ctx, err):
			metrics.ObserveAttempt("network")
			s.logger.Error("network error", "attempt", attempt, "error", err)
			if last || ctx.Err() != nil {
				return models.NewErrorRecord(models.FailureNetwork, err.Error())
			}

		case err != nil:
			metrics.ObserveAttempt("exception")
			s.logger.Error("unexpected error", "attempt", attempt, "error", err)
			s.snapshot(reasonException, html)
			if last {
				return models.NewErrorRecord(models.FailureException, err.Error())
			}

		case record.IsComplete():
			metrics.ObserveAttempt("success")
			s.logger.Info("fetched product details", "attempt", attempt, "title", record.Title, "price", record.Price)
			return record

		default:
			metrics.ObserveAttempt("incomplete")
			if !record.HasTitle() {
				s.logger.Warn("title could not be found", "attempt", attempt)
				s.snapshot(reasonTitleNotFound, html)
			}
			if !record.HasPrice() {
				s.logger.Warn("price could not be found", "attempt", attempt)
				s.snapshot(reasonPriceNotFound, html)
			}
		}

		if !last {
			s.logger.Info("retrying after a short delay", "next_attempt", attempt+1)
			if err := s.retryDelay.Wait(ctx); err != nil {
				return models.NewErrorRecord(models.FailureNetwork, err.Error())
			}
		}
	}

	s.logger.Error("failed to fetch product info after all retries", "attempts", s.maxRetries, "url", url)
	return models.NewExhaustedRecord()
}

func (s *AmazonScraper) attempt(ctx context.Context, url string) (*models.ProductRecord, string, error) {
	if err := s.session.Navigate(ctx, url); err != nil {
		return nil, "", err
	}

	if err := s.settle.Wait(ctx); err != nil {
		return nil, "", err
	}

	html, err := s.session.Content()
	if err != nil {
		return nil, "", err
	}

	record, err := s.parser.ParseProductPage(html, url)
	if err != nil {
		return nil, html, err
	}

	return record, html, nil
}

// CollectReviews loads url and returns every distinct review text on it.
// An empty set is a valid result.
func (s *AmazonScraper) CollectReviews(ctx context.Context, url string) (models.ReviewSet, error) {
	if err := s.session.Navigate(ctx, url); err != nil {
		return nil, fmt.Errorf("failed to load reviews page: %w", err)
	}

	if err := s.reviewSettle.Wait(ctx); err != nil {
		return nil, err
	}

	html, err := s.session.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read reviews page: %w", err)
	}

	reviews, err := s.parser.ParseReviews(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reviews: %w", err)
	}

	metrics.ObserveReviews(reviews.Len())
	if reviews.IsEmpty() {
		s.logger.Warn("no reviews found, page structure may differ or reviews need interaction", "url", url)
	} else {
		s.logger.Info("collected reviews", "count", reviews.Len())
	}

	return reviews, nil
}

// snapshot stores html for debugging. Failures are logged and swallowed.
func (s *AmazonScraper) snapshot(reason, html string) {
	if s.store == nil {
		return
	}

	if html == "" {
		content, err := s.session.Content()
		if err != nil {
			s.logger.Warn("no page content to save", "reason", reason, "error", err)
			return
		}
		html = content
	}

	path, err := s.store.Save(reason, html)
	metrics.ObserveArtifact(reason, err)
	if err != nil {
		s.logger.Error("error saving debug HTML", "reason", reason, "error", err)
		return
	}
	s.logger.Warn("saved page HTML for debugging", "reason", reason, "path", path)
}

func isNetworkError(ctx context.Context, err error) bool {
	return errors.Is(err, browser.ErrNavigation) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		ctx.Err() != nil
}
