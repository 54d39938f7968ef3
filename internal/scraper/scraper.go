package scraper

import (
	"context"
	"errors"

	"github.com/maltedev/amazon-bsr-checker/internal/models"
)

var (
	ErrEmptyIdentifier = errors.New("empty identifier")
	ErrInvalidBaseURL  = errors.New("invalid base URL")
)

// Scraper resolves one identifier into a LookupResult. Implementations never
// return an error: every failure is folded into the result's sentinels.
type Scraper interface {
	Lookup(ctx context.Context, identifier string) models.LookupResult
}

type Options struct {
	BaseURL     string
	SearchPath  string
	SearchParam string
}
