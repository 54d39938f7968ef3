// Package app wires configuration into the lookup pipeline shared by the
// server and the batch command.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/amazon-bsr-checker/internal/batch"
	"github.com/maltedev/amazon-bsr-checker/internal/browser"
	"github.com/maltedev/amazon-bsr-checker/internal/config"
	"github.com/maltedev/amazon-bsr-checker/internal/fetch"
	"github.com/maltedev/amazon-bsr-checker/internal/notify"
	"github.com/maltedev/amazon-bsr-checker/internal/parser"
	"github.com/maltedev/amazon-bsr-checker/internal/scraper"
)

type Components struct {
	Driver   *batch.Driver
	Variant  batch.Variant
	Notifier notify.Notifier

	closers []func() error
}

// Build creates the fetcher, scraper, pacer and notifier described by cfg.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	c := &Components{}

	variant, err := batch.VariantByName(cfg.Batch.Variant)
	if err != nil {
		return nil, err
	}
	c.Variant = variant

	fetcher, err := c.fetcher(cfg, logger)
	if err != nil {
		return nil, err
	}

	s, err := scraper.NewAmazonScraper(fetcher, parser.NewAmazonParser(), scraper.Options{
		BaseURL:     cfg.Scraper.BaseURL,
		SearchPath:  cfg.Scraper.SearchPath,
		SearchParam: cfg.Scraper.SearchParam,
	}, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	pacer, err := batch.NewPacer(cfg.Batch.Pacing, cfg.Batch.Delay)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Notifier, err = c.notifier(ctx, cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Driver = batch.NewDriver(s, pacer, c.Notifier, logger)
	return c, nil
}

func (c *Components) fetcher(cfg *config.Config, logger *slog.Logger) (fetch.Fetcher, error) {
	switch cfg.Scraper.Fetcher {
	case config.FetcherBrowser:
		b, err := browser.New(&browser.Options{
			Headless:  cfg.Browser.Headless,
			Timeout:   cfg.Browser.Timeout,
			UserAgent: cfg.Scraper.UserAgent,
			Locale:    cfg.Browser.Locale,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize browser: %w", err)
		}
		c.closers = append(c.closers, b.Close)
		return b, nil
	case config.FetcherHTTP, "":
		return fetch.NewHTTPFetcher(fetch.Options{
			Timeout:   cfg.Scraper.Timeout,
			UserAgent: cfg.Scraper.UserAgent,
		}), nil
	}
	return nil, fmt.Errorf("unknown fetcher %q", cfg.Scraper.Fetcher)
}

func (c *Components) notifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (notify.Notifier, error) {
	switch cfg.Notify.Type {
	case config.NotifySES:
		n, err := notify.NewSESNotifier(ctx, cfg.Notify.SESRegion, cfg.Notify.From, cfg.Notify.FromName, cfg.Notify.To, logger)
		if err != nil {
			return nil, err
		}
		return n, nil
	case config.NotifyRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		c.closers = append(c.closers, client.Close)
		return notify.NewRedisNotifier(client, cfg.Notify.Stream, logger), nil
	case config.NotifyNone, "":
		return notify.Noop{}, nil
	}
	return nil, fmt.Errorf("unknown notifier %q", cfg.Notify.Type)
}

// Close releases the browser and Redis client when they were created.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
