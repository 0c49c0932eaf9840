package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/amazon-review-analyzer/internal/models"
	"github.com/maltedev/amazon-review-analyzer/internal/parser"
	"github.com/maltedev/amazon-review-analyzer/internal/scraper"
	"github.com/maltedev/amazon-review-analyzer/internal/sentiment"
)

var (
	ErrBrowserInit = errors.New("failed to initialize browser")
	// ErrProductUnavailable means the product page could not be scraped;
	// the returned report still carries the failed record.
	ErrProductUnavailable = errors.New("could not retrieve product details")
)

const DefaultSampleSize = 10

// Session is a browser session the flow owns until it returns.
type Session interface {
	scraper.Session
	Close() error
}

// Opener starts a new browser session.
type Opener func(ctx context.Context) (Session, error)

type Publisher interface {
	PublishAnalysisCompleted(ctx context.Context, report *models.Report) (string, error)
}

// Observer receives progress while an analysis runs. All methods are called
// from the analysing goroutine.
type Observer interface {
	Stage(msg string)
	Product(record *models.ProductRecord)
	Reviews(total, sampled int)
	Classified(done, total int, result models.SentimentResult)
}

type NopObserver struct{}

func (NopObserver) Stage(string) {}
func (NopObserver) Product(*models.ProductRecord) {}
func (NopObserver) Reviews(int, int) {}
func (NopObserver) Classified(int, int, models.SentimentResult) {}

type Options struct {
	Scraper    scraper.Options
	SampleSize int
	Publisher  Publisher
	Rand       *rand.Rand
}

type Analyzer struct {
	open       Opener
	parser     parser.Parser
	store      scraper.Snapshotter
	classifier *sentiment.Classifier
	opts       Options
	logger     *slog.Logger
}

func New(open Opener, p parser.Parser, store scraper.Snapshotter, classifier *sentiment.Classifier, opts Options, logger *slog.Logger) *Analyzer {
	if opts.SampleSize < 1 {
		opts.SampleSize = DefaultSampleSize
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Analyzer{
		open:       open,
		parser:     p,
		store:      store,
		classifier: classifier,
		opts:       opts,
		logger:     logger.With("component", "analyzer"),
	}
}

// Analyze runs the whole flow for one product URL. The browser session is
// opened here and always closed before returning. A non-nil report is
// returned whenever the session could be opened, even alongside an error.
func (a *Analyzer) Analyze(ctx context.Context, url string, obs Observer) (*models.Report, error) {
	if obs == nil {
		obs = NopObserver{}
	}

	if err := scraper.ValidateProductURL(url); err != nil {
		return nil, err
	}

	obs.Stage("Initializing browser...")
	session, err := a.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserInit, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			a.logger.Error("failed to close browser session", "error", cerr)
		}
	}()

	report := &models.Report{
		ID:        uuid.New().String(),
		URL:       url,
		StartedAt: time.Now(),
	}
	defer func() {
		report.FinishedAt = time.Now()
	}()

	s := scraper.NewAmazonScraper(session, a.parser, a.store, a.opts.Scraper, a.logger)

	obs.Stage("Fetching product information...")
	report.Product = s.ScrapeProduct(ctx, url)
	obs.Product(report.Product)

	if report.Product.Failed() || !report.Product.HasTitle() {
		return report, unavailable(ctx, report.Product)
	}

	obs.Stage("Fetching reviews...")
	reviews, err := s.CollectReviews(ctx, url)
	if err != nil {
		a.logger.Error("error fetching reviews", "error", err)
		report.ReviewsError = err.Error()
	}
	report.TotalReviews = reviews.Len()

	sample := Sample(reviews, a.opts.SampleSize, a.opts.Rand)
	obs.Reviews(reviews.Len(), len(sample))

	if len(sample) > 0 {
		obs.Stage(fmt.Sprintf("Analyzing %d reviews...", len(sample)))
		results, err := a.classifier.ClassifyAll(ctx, sample, obs.Classified)
		report.Results = results
		if err != nil {
			return report, fmt.Errorf("sentiment analysis interrupted: %w", err)
		}
	}

	a.publish(ctx, report)

	return report, nil
}

// unavailable keeps a cancelled or expired ctx in the error chain so callers
// can tell a timeout from a page that never rendered.
func unavailable(ctx context.Context, p *models.ProductRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrProductUnavailable, err)
	}
	if p.Failed() {
		return fmt.Errorf("%w: %s", ErrProductUnavailable, p.Error)
	}
	return ErrProductUnavailable
}

func (a *Analyzer) publish(ctx context.Context, report *models.Report) {
	if a.opts.Publisher == nil {
		return
	}
	report.FinishedAt = time.Now()
	if _, err := a.opts.Publisher.PublishAnalysisCompleted(ctx, report); err != nil {
		a.logger.Warn("failed to publish analysis event", "id", report.ID, "error", err)
	}
}

// Sample returns up to n reviews picked at random without replacement. When
// there are n or fewer reviews all of them are returned in input order.
func Sample(reviews models.ReviewSet, n int, rng *rand.Rand) []string {
	if len(reviews) <= n {
		return append([]string(nil), reviews...)
	}

	shuffled := append([]string(nil), reviews...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}
