package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/maltedev/amazon-bsr-checker/internal/fetch"
	"github.com/maltedev/amazon-bsr-checker/internal/models"
	"github.com/maltedev/amazon-bsr-checker/internal/observability"
	"github.com/maltedev/amazon-bsr-checker/internal/parser"
)

type AmazonScraper struct {
	fetcher     fetch.Fetcher
	parser      parser.Parser
	baseURL     *url.URL
	searchPath  string
	searchParam string
	logger      *slog.Logger
}

func NewAmazonScraper(f fetch.Fetcher, p parser.Parser, opts Options, logger *slog.Logger) (*AmazonScraper, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, opts.BaseURL)
	}

	if opts.SearchPath == "" {
		opts.SearchPath = "/s"
	}
	if opts.SearchParam == "" {
		opts.SearchParam = "k"
	}

	return &AmazonScraper{
		fetcher:     f,
		parser:      p,
		baseURL:     base,
		searchPath:  opts.SearchPath,
		searchParam: opts.SearchParam,
		logger:      logger.With("component", "scraper"),
	}, nil
}

func (s *AmazonScraper) Lookup(ctx context.Context, identifier string) models.LookupResult {
	start := time.Now()
	result := s.lookup(ctx, strings.TrimSpace(identifier))

	observability.LookupsTotal.WithLabelValues(string(result.Outcome)).Inc()
	observability.LookupDuration.Observe(time.Since(start).Seconds())

	if result.Outcome == models.OutcomeTransportFault {
		s.logger.Warn("lookup failed", "isbn", identifier, "error", result.Err)
	} else {
		s.logger.Debug("lookup done", "isbn", identifier, "outcome", result.Outcome, "duration", time.Since(start))
	}

	return result
}

func (s *AmazonScraper) lookup(ctx context.Context, identifier string) models.LookupResult {
	if identifier == "" {
		return models.TransportFault(identifier, ErrEmptyIdentifier)
	}

	searchURL := s.SearchURL(identifier)
	searchHTML, err := s.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return models.TransportFault(identifier, fmt.Errorf("search page: %w", err))
	}

	href, err := s.parser.ExtractProductLink(searchHTML)
	if errors.Is(err, parser.ErrNoProductLink) {
		return models.NoCandidate(identifier)
	}
	if err != nil {
		return models.TransportFault(identifier, fmt.Errorf("search page: %w", err))
	}

	productURL, err := s.resolve(href)
	if err != nil {
		return models.TransportFault(identifier, err)
	}

	productHTML, err := s.fetcher.Fetch(ctx, productURL)
	if err != nil {
		return models.TransportFault(identifier, fmt.Errorf("product page: %w", err))
	}

	details, err := s.parser.ParseProductPage(productHTML)
	if err != nil {
		return models.TransportFault(identifier, fmt.Errorf("product page: %w", err))
	}

	return buildResult(identifier, details)
}

// SearchURL renders the search endpoint for identifier.
func (s *AmazonScraper) SearchURL(identifier string) string {
	u := *s.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + s.searchPath
	u.RawQuery = url.Values{s.searchParam: []string{identifier}}.Encode()
	return u.String()
}

func (s *AmazonScraper) resolve(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid product link %q: %w", href, err)
	}
	return s.baseURL.ResolveReference(ref).String(), nil
}

func buildResult(identifier string, d *parser.ProductDetails) models.LookupResult {
	r := models.LookupResult{
		Identifier: identifier,
		Rank:       orNotFound(d.Rank),
		Price:      orNotFound(d.Price),
		Metadata:   orNotFound(d.Metadata),
		Outcome:    models.OutcomeFound,
	}

	if d.Rank == "" || d.Price == "" || d.Metadata == "" {
		r.Outcome = models.OutcomeExtractionMiss
	}

	return r
}

func orNotFound(v string) string {
	if v == "" {
		return models.NotFound
	}
	return v
}
