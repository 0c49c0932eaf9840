package scraper

import (
	"context"
	"errors"
	"strings"

	"github.com/maltedev/amazon-review-analyzer/internal/models"
)

var (
	ErrInvalidURL = errors.New("invalid Amazon URL")
)

var productURLPrefixes = []string{
	"https://www.amazon.",
	"https://amazon.",
}

// Session is an open browser page. Navigate failures are network-class and
// wrap browser.ErrNavigation.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Content() (string, error)
}

// Snapshotter persists raw HTML for post-mortem inspection.
type Snapshotter interface {
	Save(reason, html string) (string, error)
}

type Scraper interface {
	ScrapeProduct(ctx context.Context, url string) *models.ProductRecord
	CollectReviews(ctx context.Context, url string) (models.ReviewSet, error)
}

// ValidateProductURL accepts only Amazon storefront links. No parsing or
// canonicalization is done beyond the prefix check.
func ValidateProductURL(url string) error {
	for _, prefix := range productURLPrefixes {
		if strings.HasPrefix(url, prefix) {
			return nil
		}
	}
	return ErrInvalidURL
}
