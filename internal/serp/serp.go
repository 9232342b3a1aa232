// Package serp queries a search engine results page for public profile
// links and the snippet shown next to each.
package serp

import (
	"context"

	"github.com/FranksOps/scout/internal/page"
)

// SearchResult is one profile link discovered on a results page. Results
// keep page order and are not deduplicated.
type SearchResult struct {
	ProfileURL string `json:"profile_url"`
	BioSnippet string `json:"bio_snippet"`
}

// Provider abstracts a search engine that can return profile results for a
// query. The limit parameter caps the number of results returned.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// PageFetcher performs the outbound GET. *scraper.Fetcher satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*page.Page, error)
}

// RobotsPolicy answers whether a URL may be fetched.
// *scraper.RobotsTxtAuditor satisfies it.
type RobotsPolicy interface {
	IsAllowed(ctx context.Context, targetURL, userAgent string) (bool, error)
}
