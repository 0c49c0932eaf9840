package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/maltedev/amazon-review-analyzer/internal/analyzer"
	"github.com/maltedev/amazon-review-analyzer/internal/app"
	"github.com/maltedev/amazon-review-analyzer/internal/config"
	"github.com/maltedev/amazon-review-analyzer/internal/events"
	"github.com/maltedev/amazon-review-analyzer/internal/models"
	"github.com/maltedev/amazon-review-analyzer/internal/scraper"
	"github.com/maltedev/amazon-review-analyzer/internal/sentiment"
	"github.com/maltedev/amazon-review-analyzer/pkg/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	enqueue := flag.String("enqueue", "", "Add an analysis request for this URL and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.Redis.Addr == "" {
		fmt.Fprintln(os.Stderr, "REDIS_ADDR is required for the worker")
		os.Exit(1)
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	if *enqueue != "" {
		if err := scraper.ValidateProductURL(*enqueue); err != nil {
			fmt.Fprintln(os.Stderr, "Please enter a valid Amazon product link.")
			os.Exit(1)
		}
		id, err := events.EnqueueAnalysis(ctx, rdb, cfg.Redis.RequestStream, *enqueue)
		if err != nil {
			logger.Error("failed to enqueue analysis", "error", err)
			os.Exit(1)
		}
		fmt.Println(id)
		return
	}

	gen, err := sentiment.NewGeminiGenerator(ctx, cfg.Sentiment.APIKey)
	if err != nil {
		logger.Error("failed to initialize Gemini client", "error", err)
		os.Exit(1)
	}

	pub := events.NewPublisher(rdb, cfg.Redis.Stream, logger)
	a := app.NewAnalyzer(cfg, app.BrowserOpener(cfg.Browser, logger), gen, pub, logger)

	consumer := events.NewConsumer(rdb, events.ConsumerConfig{
		Stream: cfg.Redis.RequestStream,
		Name:   cfg.Redis.ConsumerName,
	}, handler(a, logger), logger)

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

type analysisRunner interface {
	Analyze(ctx context.Context, url string, obs analyzer.Observer) (*models.Report, error)
}

// handler runs one analysis per request. Only browser start-up failures are
// returned so the request stays pending; every other outcome is final.
func handler(a analysisRunner, log *slog.Logger) events.RequestHandler {
	return func(ctx context.Context, req *events.AnalysisRequestedPayload) error {
		report, err := a.Analyze(ctx, req.URL, nil)
		switch {
		case errors.Is(err, analyzer.ErrBrowserInit):
			return err
		case err != nil:
			log.Warn("analysis finished with error", "url", req.URL, "error", err)
		default:
			log.Info("analysis finished", "url", req.URL, "id", report.ID, "reviews", report.TotalReviews, "classified", len(report.Results))
		}
		return nil
	}
}
