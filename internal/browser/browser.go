package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

var (
	// ErrNavigation marks network-class failures: the page could not be loaded.
	ErrNavigation = errors.New("navigation failed")
	ErrClosed     = errors.New("browser session closed")
)

// Browser is a single headless browser session with one reusable page. It
// is owned by one analysis flow and must be closed when the flow ends.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	timeout time.Duration
	logger  *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	Locale         string
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "tr-TR,tr;q=0.9,en-US;q=0.8,en;q=0.7",
		Locale:         "tr-TR",
	}
}

func launchArgs(opts *Options) []string {
	return []string{
		"--disable-gpu",
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-blink-features=AutomationControlled",
		"--user-agent=" + opts.UserAgent,
		"--lang=" + opts.Locale,
	}
}

func headers(opts *Options) map[string]string {
	h := make(map[string]string, len(opts.ExtraHeaders)+1)
	for k, v := range opts.ExtraHeaders {
		h[k] = v
	}
	if opts.AcceptLanguage != "" {
		h["Accept-Language"] = opts.AcceptLanguage
	}
	return h
}

func New(opts *Options, logger *slog.Logger) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args:     launchArgs(opts),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         &opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &opts.Locale,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: headers(opts),
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	return &Browser{
		pw:      pw,
		browser: browser,
		context: context,
		page:    page,
		timeout: opts.Timeout,
		logger:  logger.With("component", "browser"),
	}, nil
}

// Navigate loads url in the session page. Any failure is wrapped with
// ErrNavigation.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	if b.page == nil {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}

	_, err := b.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(b.timeout.Milliseconds())),
	})
	if err != nil {
		b.logger.Error("navigation failed", "url", url, "error", err)
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}

	if title, err := b.page.Title(); err == nil && looksBlocked(title) {
		b.logger.Warn("detected robot check in title", "title", title)
	}

	return nil
}

// Content returns the rendered HTML of the current page.
func (b *Browser) Content() (string, error) {
	if b.page == nil {
		return "", ErrClosed
	}

	html, err := b.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get page content: %w", err)
	}
	return html, nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.page != nil {
		if err := b.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close page: %w", err))
		}
		b.page = nil
	}

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
		b.context = nil
	}

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
		b.browser = nil
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		b.pw = nil
	}

	return errors.Join(errs...)
}

func looksBlocked(title string) bool {
	title = strings.ToLower(title)
	return strings.Contains(title, "robot") || strings.Contains(title, "captcha")
}
