package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/maltedev/amazon-review-analyzer/internal/api"
	"github.com/maltedev/amazon-review-analyzer/internal/app"
	"github.com/maltedev/amazon-review-analyzer/internal/config"
	"github.com/maltedev/amazon-review-analyzer/internal/metrics"
	"github.com/maltedev/amazon-review-analyzer/internal/sentiment"
	"github.com/maltedev/amazon-review-analyzer/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "json").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.New(cfg.Logging.Level, "json")
	log = log.With("service", "review-analyzer")

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen, err := sentiment.NewGeminiGenerator(ctx, cfg.Sentiment.APIKey)
	if err != nil {
		log.Error("failed to initialize Gemini client", "error", err)
		os.Exit(1)
	}

	pub, err := app.NewRedisPublisher(ctx, cfg.Redis, log)
	if err != nil {
		log.Error("failed to initialize event publisher", "error", err)
		os.Exit(1)
	}
	if pub != nil {
		defer pub.Close()
		log.Info("publishing analysis events", "stream", cfg.Redis.Stream)
	}

	a := app.NewAnalyzer(cfg, app.BrowserOpener(cfg.Browser, log), gen, pub, log)
	handlers := api.NewHandlers(a, log)

	router := api.NewRouter(handlers, api.RouterOptions{
		Timeout:  cfg.Server.WriteTimeout,
		Registry: metrics.InitRegistry(),
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout * 4,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
