package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Scraper   ScraperConfig
	Browser   BrowserConfig
	Sentiment SentimentConfig
	Redis     RedisConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	MaxRetries    int
	SettleMin     time.Duration
	SettleMax     time.Duration
	RetryDelayMin time.Duration
	RetryDelayMax time.Duration
	ReviewSettle  time.Duration
	DebugDir      string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
	AcceptLanguage string
	Locale         string
}

type SentimentConfig struct {
	APIKey     string
	Model      string
	SampleSize int

	// Interval is the pause after each model call.
	Interval time.Duration

	// RequestsPerMinute caps call starts; 0 disables the cap.
	RequestsPerMinute int
}

// RedisConfig is optional; an empty Addr disables event publishing.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	// RequestStream feeds cmd/worker.
	RequestStream string
	ConsumerName  string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Scraper: ScraperConfig{
			MaxRetries:    getIntOrDefault("SCRAPER_MAX_RETRIES", 3),
			SettleMin:     getDurationOrDefault("SCRAPER_SETTLE_MIN", 2*time.Second),
			SettleMax:     getDurationOrDefault("SCRAPER_SETTLE_MAX", 5*time.Second),
			RetryDelayMin: getDurationOrDefault("SCRAPER_RETRY_DELAY_MIN", 3*time.Second),
			RetryDelayMax: getDurationOrDefault("SCRAPER_RETRY_DELAY_MAX", 7*time.Second),
			ReviewSettle:  getDurationOrDefault("SCRAPER_REVIEW_SETTLE", 3*time.Second),
			DebugDir:      getEnvOrDefault("SCRAPER_DEBUG_DIR", "debug_html"),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			UserAgent:      getEnvOrDefault("BROWSER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "tr-TR,tr;q=0.9,en-US;q=0.8,en;q=0.7"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "tr-TR"),
		},
		Sentiment: SentimentConfig{
			APIKey:     getEnvOrDefault("GEMINI_API_KEY", ""),
			Model:      getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
			SampleSize: getIntOrDefault("SENTIMENT_SAMPLE_SIZE", 10),
			Interval:   getDurationOrDefault("SENTIMENT_INTERVAL", time.Second),

			RequestsPerMinute: getIntOrDefault("SENTIMENT_RPM", 0),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", ""),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "review-analyzer:events"),

			RequestStream: getEnvOrDefault("REDIS_REQUEST_STREAM", "review-analyzer:requests"),
			ConsumerName:  getEnvOrDefault("REDIS_CONSUMER_NAME", "worker-1"),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.MaxRetries < 1 {
		return fmt.Errorf("SCRAPER_MAX_RETRIES must be at least 1")
	}

	if c.Scraper.SettleMin > c.Scraper.SettleMax {
		return fmt.Errorf("SCRAPER_SETTLE_MIN cannot be greater than SCRAPER_SETTLE_MAX")
	}

	if c.Scraper.RetryDelayMin > c.Scraper.RetryDelayMax {
		return fmt.Errorf("SCRAPER_RETRY_DELAY_MIN cannot be greater than SCRAPER_RETRY_DELAY_MAX")
	}

	if c.Sentiment.SampleSize < 1 {
		return fmt.Errorf("SENTIMENT_SAMPLE_SIZE must be at least 1")
	}

	if c.Sentiment.RequestsPerMinute < 0 {
		return fmt.Errorf("SENTIMENT_RPM cannot be negative")
	}

	if c.Browser.Timeout <= 0 {
		return fmt.Errorf("BROWSER_TIMEOUT must be positive")
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
