package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://www.amazon.com", cfg.Scraper.BaseURL)
	assert.Equal(t, "/s", cfg.Scraper.SearchPath)
	assert.Equal(t, "k", cfg.Scraper.SearchParam)
	assert.Equal(t, 10*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, FetcherHTTP, cfg.Scraper.Fetcher)
	assert.Equal(t, 1500*time.Millisecond, cfg.Batch.Delay)
	assert.Equal(t, PacingFixed, cfg.Batch.Pacing)
	assert.Equal(t, "lenient", cfg.Batch.Variant)
	assert.Equal(t, NotifyNone, cfg.Notify.Type)
	assert.Equal(t, 10*time.Second, cfg.Browser.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestBrowserTimeoutFollowsScraperTimeout(t *testing.T) {
	t.Setenv("SCRAPER_TIMEOUT", "4s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, cfg.Browser.Timeout)

	t.Setenv("BROWSER_TIMEOUT", "45s")

	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, 4*time.Second, cfg.Scraper.Timeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCRAPER_BASE_URL", "http://localhost:9999/")
	t.Setenv("SCRAPER_TIMEOUT", "3s")
	t.Setenv("BATCH_VARIANT", "STRICT")
	t.Setenv("BATCH_DELAY", "0s")
	t.Setenv("NOTIFY_TO", "a@example.com, b@example.com,")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999", cfg.Scraper.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, "strict", cfg.Batch.Variant)
	assert.Equal(t, time.Duration(0), cfg.Batch.Delay)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Notify.To)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"unknown fetcher", func(c *Config) { c.Scraper.Fetcher = "curl" }, "SCRAPER_FETCHER"},
		{"unknown variant", func(c *Config) { c.Batch.Variant = "loose" }, "BATCH_VARIANT"},
		{"negative delay", func(c *Config) { c.Batch.Delay = -time.Second }, "BATCH_DELAY"},
		{"unknown pacing", func(c *Config) { c.Batch.Pacing = "random" }, "BATCH_PACING"},
		{"zero timeout", func(c *Config) { c.Scraper.Timeout = 0 }, "SCRAPER_TIMEOUT"},
		{"ses without recipients", func(c *Config) { c.Notify.Type = NotifySES; c.Notify.From = "x@example.com" }, "NOTIFY_TO"},
		{"unknown notifier", func(c *Config) { c.Notify.Type = "slack" }, "NOTIFY_TYPE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: "8081"}
	assert.Equal(t, "127.0.0.1:8081", s.Addr())
}
