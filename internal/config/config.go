package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Scraper ScraperConfig
	Batch   BatchConfig
	Browser BrowserConfig
	Notify  NotifyConfig
	Redis   RedisConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScraperConfig struct {
	BaseURL     string
	SearchPath  string
	SearchParam string
	Timeout     time.Duration
	UserAgent   string
	Fetcher     string
}

type BatchConfig struct {
	Variant     string
	Delay       time.Duration
	Pacing      string
	MaxUploadMB int
	JobTTL      time.Duration
}

type BrowserConfig struct {
	Headless bool
	Timeout  time.Duration
	Locale   string
}

type NotifyConfig struct {
	Type      string
	SESRegion string
	From      string
	FromName  string
	To        []string
	Stream    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LoggingConfig struct {
	Level  string
	Format string
}

const (
	FetcherHTTP    = "http"
	FetcherBrowser = "browser"

	PacingFixed    = "fixed"
	PacingInterval = "interval"

	NotifyNone  = "none"
	NotifySES   = "ses"
	NotifyRedis = "redis"
)

// DefaultUserAgent is sent on every outbound request unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Load reads the configuration from the environment, after merging a local
// .env file when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	scraperTimeout := getDurationOrDefault("SCRAPER_TIMEOUT", 10*time.Second)

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scraper: ScraperConfig{
			BaseURL:     strings.TrimRight(getEnvOrDefault("SCRAPER_BASE_URL", "https://www.amazon.com"), "/"),
			SearchPath:  getEnvOrDefault("SCRAPER_SEARCH_PATH", "/s"),
			SearchParam: getEnvOrDefault("SCRAPER_SEARCH_PARAM", "k"),
			Timeout:     scraperTimeout,
			UserAgent:   getEnvOrDefault("SCRAPER_USER_AGENT", DefaultUserAgent),
			Fetcher:     strings.ToLower(getEnvOrDefault("SCRAPER_FETCHER", FetcherHTTP)),
		},
		Batch: BatchConfig{
			Variant:     strings.ToLower(getEnvOrDefault("BATCH_VARIANT", "lenient")),
			Delay:       getDurationOrDefault("BATCH_DELAY", 1500*time.Millisecond),
			Pacing:      strings.ToLower(getEnvOrDefault("BATCH_PACING", PacingFixed)),
			MaxUploadMB: getIntOrDefault("BATCH_MAX_UPLOAD_MB", 20),
			JobTTL:      getDurationOrDefault("JOB_TTL", time.Hour),
		},
		Browser: BrowserConfig{
			Headless: getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:  getDurationOrDefault("BROWSER_TIMEOUT", scraperTimeout),
			Locale:   getEnvOrDefault("BROWSER_LOCALE", "en-US"),
		},
		Notify: NotifyConfig{
			Type:      strings.ToLower(getEnvOrDefault("NOTIFY_TYPE", NotifyNone)),
			SESRegion: getEnvOrDefault("NOTIFY_SES_REGION", "us-east-1"),
			From:      getEnvOrDefault("NOTIFY_FROM", ""),
			FromName:  getEnvOrDefault("NOTIFY_FROM_NAME", "Amazon BSR Checker"),
			To:        getStringSliceOrDefault("NOTIFY_TO", []string{}),
			Stream:    getEnvOrDefault("NOTIFY_STREAM", "stream:bsr_runs"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scraper.BaseURL == "" {
		return fmt.Errorf("SCRAPER_BASE_URL is required")
	}

	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("SCRAPER_TIMEOUT must be positive")
	}

	switch c.Scraper.Fetcher {
	case FetcherHTTP, FetcherBrowser:
	default:
		return fmt.Errorf("SCRAPER_FETCHER must be %q or %q, got %q", FetcherHTTP, FetcherBrowser, c.Scraper.Fetcher)
	}

	switch c.Batch.Variant {
	case "strict", "lenient":
	default:
		return fmt.Errorf("BATCH_VARIANT must be \"strict\" or \"lenient\", got %q", c.Batch.Variant)
	}

	if c.Batch.Delay < 0 {
		return fmt.Errorf("BATCH_DELAY cannot be negative")
	}

	switch c.Batch.Pacing {
	case PacingFixed, PacingInterval:
	default:
		return fmt.Errorf("BATCH_PACING must be %q or %q, got %q", PacingFixed, PacingInterval, c.Batch.Pacing)
	}

	if c.Batch.MaxUploadMB < 1 {
		return fmt.Errorf("BATCH_MAX_UPLOAD_MB must be at least 1")
	}

	switch c.Notify.Type {
	case NotifyNone:
	case NotifySES:
		if c.Notify.From == "" || len(c.Notify.To) == 0 {
			return fmt.Errorf("NOTIFY_FROM and NOTIFY_TO are required when NOTIFY_TYPE=ses")
		}
	case NotifyRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when NOTIFY_TYPE=redis")
		}
	default:
		return fmt.Errorf("NOTIFY_TYPE must be one of none, ses, redis, got %q", c.Notify.Type)
	}

	return nil
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
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

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
