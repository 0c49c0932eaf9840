package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/maltedev/amazon-review-analyzer/internal/analyzer"
	"github.com/maltedev/amazon-review-analyzer/internal/app"
	"github.com/maltedev/amazon-review-analyzer/internal/config"
	"github.com/maltedev/amazon-review-analyzer/internal/scraper"
	"github.com/maltedev/amazon-review-analyzer/internal/sentiment"
	"github.com/maltedev/amazon-review-analyzer/pkg/logger"
)

func main() {
	var (
		url      = flag.String("url", "", "Amazon product URL to analyze (prompted when empty)")
		headless = flag.Bool("headless", true, "Run browser in headless mode (overrides BROWSER_HEADLESS)")
	)
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
	applyFlags(flag.CommandLine, cfg, *headless)

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out := &terminal{w: os.Stdout}
	fmt.Fprintln(os.Stdout, "📦 Amazon Product Analyzer")

	gen, err := sentiment.NewGeminiGenerator(ctx, cfg.Sentiment.APIKey)
	if errors.Is(err, sentiment.ErrMissingAPIKey) {
		fmt.Fprintln(os.Stderr, "GEMINI_API_KEY not set. Please add it to proceed.")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Gemini client: %v\n", err)
		os.Exit(1)
	}

	productURL := strings.TrimSpace(*url)
	if productURL == "" {
		productURL = prompt("Enter Amazon Product Link: ")
	}
	if err := scraper.ValidateProductURL(productURL); err != nil {
		fmt.Fprintln(os.Stderr, "Please enter a valid Amazon product link.")
		os.Exit(1)
	}

	pub, err := app.NewRedisPublisher(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Warn("event publishing disabled", "error", err)
	}
	if pub != nil {
		defer pub.Close()
	}

	a := app.NewAnalyzer(cfg, app.BrowserOpener(cfg.Browser, logger), gen, pub, logger)

	report, err := a.Analyze(ctx, productURL, out)
	if err != nil {
		if errors.Is(err, analyzer.ErrBrowserInit) {
			fmt.Fprintf(os.Stderr, "Error initializing browser: %v. Ensure Playwright browsers are installed.\n", err)
			os.Exit(1)
		}
		out.Failure(report, err)
		out.Report(report)
		os.Exit(1)
	}

	out.Report(report)
}

// applyFlags lets flags given on the command line win over the environment.
func applyFlags(fs *flag.FlagSet, cfg *config.Config, headless bool) {
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "headless" {
			cfg.Browser.Headless = headless
		}
	})
}

func prompt(label string) string {
	fmt.Fprint(os.Stdout, label)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}
