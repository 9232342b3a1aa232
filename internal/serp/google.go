package serp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/FranksOps/scout/internal/apperr"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

const (
	DefaultBaseURL           = "https://www.google.com/search"
	DefaultContainerSelector = "div.tF2Cxc"
	DefaultLinkSelector      = "a"
	DefaultSnippetSelector   = "span.aCOpRe"
	DefaultProfileMarker     = "linkedin.com/in/"

	opSearch = "serp.search"
)

// noResultPhrases mark a results page that is empty on purpose.
var noResultPhrases = []string{
	"did not match any documents",
	"no results found for",
	"your search did not match",
}

// GoogleOptions configures the Google provider. Zero values select the
// defaults above.
type GoogleOptions struct {
	BaseURL           string
	ContainerSelector string
	LinkSelector      string
	SnippetSelector   string
	ProfileMarker     string
	// StrictLayout reports a 2xx page without any result container as a
	// parse failure instead of an empty result.
	StrictLayout bool
	// Robots, when set, is consulted before the search request.
	Robots      RobotsPolicy
	RobotsAgent string
}

// Google scrapes the Google results page.
type Google struct {
	fetcher PageFetcher
	opts    GoogleOptions
	logger  *slog.Logger

	container cascadia.Selector
	link      cascadia.Selector
	snippet   cascadia.Selector
}

var _ Provider = (*Google)(nil)

// NewGoogle validates the options and compiles the selectors. Invalid
// selectors or base URL are a Config error.
func NewGoogle(fetcher PageFetcher, opts GoogleOptions, logger *slog.Logger) (*Google, error) {
	if fetcher == nil {
		return nil, apperr.Newf(apperr.KindConfig, opSearch, "fetcher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.ContainerSelector == "" {
		opts.ContainerSelector = DefaultContainerSelector
	}
	if opts.LinkSelector == "" {
		opts.LinkSelector = DefaultLinkSelector
	}
	if opts.SnippetSelector == "" {
		opts.SnippetSelector = DefaultSnippetSelector
	}
	if opts.ProfileMarker == "" {
		opts.ProfileMarker = DefaultProfileMarker
	}
	if opts.RobotsAgent == "" {
		opts.RobotsAgent = "scout"
	}

	if u, err := url.Parse(opts.BaseURL); err != nil || u.Host == "" {
		return nil, apperr.Newf(apperr.KindConfig, opSearch, "invalid base url %q", opts.BaseURL)
	}

	g := &Google{fetcher: fetcher, opts: opts, logger: logger}
	var err error
	if g.container, err = compile("container", opts.ContainerSelector); err != nil {
		return nil, err
	}
	if g.link, err = compile("link", opts.LinkSelector); err != nil {
		return nil, err
	}
	if g.snippet, err = compile("snippet", opts.SnippetSelector); err != nil {
		return nil, err
	}
	return g, nil
}

func compile(name, sel string) (cascadia.Selector, error) {
	s, err := cascadia.Compile(sel)
	if err != nil {
		return nil, apperr.New(apperr.KindConfig, opSearch, fmt.Errorf("%s selector %q: %w", name, sel, err))
	}
	return s, nil
}

// SearchURL returns the results page URL for query.
func (g *Google) SearchURL(query string) string {
	u, _ := url.Parse(g.opts.BaseURL)
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()
	return u.String()
}

// Search issues one GET for query and returns at most limit results in page
// order.
func (g *Google) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit < 0 {
		return nil, apperr.Newf(apperr.KindConfig, opSearch, "limit cannot be negative: %d", limit)
	}
	if limit == 0 {
		return []SearchResult{}, nil
	}

	target := g.SearchURL(query)

	if g.opts.Robots != nil {
		allowed, err := g.opts.Robots.IsAllowed(ctx, target, g.opts.RobotsAgent)
		if err != nil {
			return nil, apperr.New(apperr.KindTransport, opSearch, err)
		}
		if !allowed {
			return nil, apperr.Newf(apperr.KindBlocked, opSearch, "robots.txt disallows %s", target)
		}
	}

	g.logger.Debug("fetching results page", "url", target, "limit", limit)
	p, err := g.fetcher.Fetch(ctx, target)
	if err != nil {
		return nil, apperr.New(apperr.KindTransport, opSearch, err)
	}

	if p.DetectedBot {
		return nil, apperr.Newf(apperr.KindBlocked, opSearch, "bot wall detected by %s", p.DetectionSrc).
			WithStatus(p.StatusCode)
	}
	if !p.OK() {
		return nil, apperr.Newf(apperr.KindTransport, opSearch, "unexpected status from %s", p.FinalURL).
			WithStatus(p.StatusCode)
	}
	if !p.IsHTML() {
		return nil, apperr.Newf(apperr.KindParse, opSearch, "unexpected content type %q", p.Header("Content-Type"))
	}

	results, err := g.Parse(p.Body, limit)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("parsed results page", "results", len(results))
	return results, nil
}

// Parse extracts results from a results page body. It performs no I/O.
// A limit of zero or less yields an empty slice.
func (g *Google) Parse(body []byte, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		return []SearchResult{}, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, apperr.New(apperr.KindParse, opSearch, err)
	}

	containers := doc.FindMatcher(g.container)
	if containers.Length() == 0 && g.opts.StrictLayout && !isNoResultsPage(doc) {
		return nil, apperr.Newf(apperr.KindParse, opSearch,
			"no %q containers on results page; layout may have changed", g.opts.ContainerSelector)
	}

	results := make([]SearchResult, 0, min(limit, containers.Length()))
	containers.EachWithBreak(func(_ int, c *goquery.Selection) bool {
		link := c.FindMatcher(g.link).FilterFunction(func(_ int, a *goquery.Selection) bool {
			_, ok := a.Attr("href")
			return ok
		}).First()
		href, ok := link.Attr("href")
		if !ok || !strings.Contains(href, g.opts.ProfileMarker) {
			return true
		}
		snippet := c.FindMatcher(g.snippet).First()
		if snippet.Length() == 0 {
			return true
		}
		results = append(results, SearchResult{
			ProfileURL: href,
			BioSnippet: strings.TrimSpace(snippet.Text()),
		})
		return len(results) < limit
	})
	return results, nil
}

func isNoResultsPage(doc *goquery.Document) bool {
	text := strings.ToLower(doc.Find("body").Text())
	for _, phrase := range noResultPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
