package serp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/scout/internal/apperr"
	"github.com/FranksOps/scout/internal/fingerprint"
	"github.com/FranksOps/scout/internal/page"
	"github.com/FranksOps/scout/internal/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	page  *page.Page
	err   error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, u string) (*page.Page, error) {
	f.calls = append(f.calls, u)
	if f.err != nil {
		return nil, f.err
	}
	p := *f.page
	p.URL, p.FinalURL = u, u
	return &p, nil
}

type denyAll struct{}

func (denyAll) IsAllowed(context.Context, string, string) (bool, error) { return false, nil }

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return b
}

func htmlPage(body []byte) *page.Page {
	return &page.Page{
		StatusCode: http.StatusOK,
		Headers:    map[string][]string{"Content-Type": {"text/html; charset=UTF-8"}},
		Body:       body,
	}
}

func newGoogle(t *testing.T, f PageFetcher, opts GoogleOptions) *Google {
	t.Helper()
	g, err := NewGoogle(f, opts, nil)
	require.NoError(t, err)
	return g
}

func TestGoogle_Search_MatchingContainersInOrder(t *testing.T) {
	f := &fakeFetcher{page: htmlPage(fixture(t, "results.html"))}
	g := newGoogle(t, f, GoogleOptions{StrictLayout: true})

	got, err := g.Search(context.Background(), "marketing", 10)
	require.NoError(t, err)
	assert.Equal(t, []SearchResult{
		{ProfileURL: "https://www.linkedin.com/in/alice-zhang", BioSnippet: "Alice Zhang. Marketing Director at Globex, Shanghai. Brand strategy."},
		{ProfileURL: "https://cn.linkedin.com/in/carol-wu", BioSnippet: "Carol Wu. CMO at Initech."},
		{ProfileURL: "https://www.linkedin.com/in/dave-chen", BioSnippet: "Dave Chen. Growth marketing at Umbrella."},
	}, got)
}

func TestGoogle_Search_Limit(t *testing.T) {
	f := &fakeFetcher{page: htmlPage(fixture(t, "results.html"))}
	g := newGoogle(t, f, GoogleOptions{})

	got, err := g.Search(context.Background(), "marketing", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://www.linkedin.com/in/alice-zhang", got[0].ProfileURL)
	assert.Equal(t, "https://cn.linkedin.com/in/carol-wu", got[1].ProfileURL)
}

func TestGoogle_Search_ZeroLimitMakesNoRequest(t *testing.T) {
	f := &fakeFetcher{page: htmlPage(fixture(t, "results.html"))}
	g := newGoogle(t, f, GoogleOptions{})

	got, err := g.Search(context.Background(), "marketing", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
	assert.Empty(t, f.calls)
}

func TestGoogle_Search_NegativeLimit(t *testing.T) {
	f := &fakeFetcher{page: htmlPage(nil)}
	g := newGoogle(t, f, GoogleOptions{})

	_, err := g.Search(context.Background(), "marketing", -1)
	assert.True(t, apperr.Is(err, apperr.KindConfig), "got %v", err)
	assert.Empty(t, f.calls)
}

func TestGoogle_Parse_NonPositiveLimit(t *testing.T) {
	g := newGoogle(t, &fakeFetcher{}, GoogleOptions{StrictLayout: true})
	body := fixture(t, "results.html")

	for _, limit := range []int{0, -1} {
		got, err := g.Parse(body, limit)
		require.NoError(t, err, "limit %d", limit)
		assert.Empty(t, got, "limit %d", limit)
		assert.NotNil(t, got, "limit %d", limit)
	}
}

func TestGoogle_Search_QueryEncoding(t *testing.T) {
	f := &fakeFetcher{page: htmlPage(fixture(t, "results.html"))}
	g := newGoogle(t, f, GoogleOptions{BaseURL: "https://search.test/search?hl=en"})

	query := `site:linkedin.com/in/ "Marketing" AND "Shanghai" AND "Fortune 500"`
	_, err := g.Search(context.Background(), query, 1)
	require.NoError(t, err)
	require.Len(t, f.calls, 1)

	u, err := url.Parse(f.calls[0])
	require.NoError(t, err)
	assert.Equal(t, "search.test", u.Host)
	assert.Equal(t, query, u.Query().Get("q"))
	assert.Equal(t, "en", u.Query().Get("hl"))
}

func TestGoogle_Search_NoMatchingContainers(t *testing.T) {
	body := []byte(`<html><body>
		<div class="tF2Cxc"><a href="https://example.com/x">x</a><span class="aCOpRe">x</span></div>
	</body></html>`)
	g := newGoogle(t, &fakeFetcher{page: htmlPage(body)}, GoogleOptions{StrictLayout: true})

	got, err := g.Search(context.Background(), "marketing", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGoogle_Search_LayoutDrift(t *testing.T) {
	body := fixture(t, "redesigned.html")

	strict := newGoogle(t, &fakeFetcher{page: htmlPage(body)}, GoogleOptions{StrictLayout: true})
	_, err := strict.Search(context.Background(), "marketing", 10)
	assert.True(t, apperr.Is(err, apperr.KindParse), "got %v", err)

	lenient := newGoogle(t, &fakeFetcher{page: htmlPage(body)}, GoogleOptions{StrictLayout: false})
	got, err := lenient.Search(context.Background(), "marketing", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGoogle_Search_NoResultsPageIsNotDrift(t *testing.T) {
	g := newGoogle(t, &fakeFetcher{page: htmlPage(fixture(t, "no_results.html"))}, GoogleOptions{StrictLayout: true})

	got, err := g.Search(context.Background(), "marketing", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGoogle_Search_Errors(t *testing.T) {
	tests := []struct {
		name   string
		f      *fakeFetcher
		opts   GoogleOptions
		kind   apperr.Kind
		status int
	}{
		{
			name: "transport failure",
			f:    &fakeFetcher{err: errors.New("connection refused")},
			kind: apperr.KindTransport,
		},
		{
			name:   "server error",
			f:      &fakeFetcher{page: &page.Page{StatusCode: http.StatusServiceUnavailable}},
			kind:   apperr.KindTransport,
			status: http.StatusServiceUnavailable,
		},
		{
			name: "bot wall",
			f: &fakeFetcher{page: &page.Page{
				StatusCode:   http.StatusTooManyRequests,
				DetectedBot:  true,
				DetectionSrc: "search_interstitial",
			}},
			kind:   apperr.KindBlocked,
			status: http.StatusTooManyRequests,
		},
		{
			name: "not html",
			f: &fakeFetcher{page: &page.Page{
				StatusCode: http.StatusOK,
				Headers:    map[string][]string{"Content-Type": {"application/json"}},
				Body:       []byte(`{}`),
			}},
			kind: apperr.KindParse,
		},
		{
			name: "robots refusal",
			f:    &fakeFetcher{page: htmlPage(nil)},
			opts: GoogleOptions{Robots: denyAll{}},
			kind: apperr.KindBlocked,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGoogle(t, tt.f, tt.opts)
			got, err := g.Search(context.Background(), "marketing", 10)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.Equal(t, tt.kind, apperr.KindOf(err), "got %v", err)

			var ae *apperr.Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, "serp.search", ae.Op)
			assert.Equal(t, tt.status, ae.StatusCode)
		})
	}
}

func TestNewGoogle_InvalidConfig(t *testing.T) {
	f := &fakeFetcher{page: htmlPage(nil)}

	_, err := NewGoogle(f, GoogleOptions{ContainerSelector: "div[[["}, nil)
	assert.True(t, apperr.Is(err, apperr.KindConfig), "got %v", err)

	_, err = NewGoogle(f, GoogleOptions{BaseURL: "not a url"}, nil)
	assert.True(t, apperr.Is(err, apperr.KindConfig), "got %v", err)

	_, err = NewGoogle(nil, GoogleOptions{}, nil)
	assert.True(t, apperr.Is(err, apperr.KindConfig), "got %v", err)
}

func TestGoogle_Search_OverHTTP(t *testing.T) {
	body := fixture(t, "results.html")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.URL.Query().Get("q") == "" {
			http.NotFound(w, r)
			return
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "Mozilla/5.0") {
			t.Errorf("expected browser User-Agent, got %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html; charset=UTF-8")
		_, _ = w.Write(body)
	}))
	defer ts.Close()

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
	})
	require.NoError(t, err)

	g := newGoogle(t, fetcher, GoogleOptions{BaseURL: ts.URL + "/search", StrictLayout: true})
	got, err := g.Search(context.Background(), "marketing shanghai", 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestGoogle_Search_InterstitialOverHTTP(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`<html><body>Our systems have detected unusual traffic from your computer network.</body></html>`))
	}))
	defer ts.Close()

	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
	})
	require.NoError(t, err)

	g := newGoogle(t, fetcher, GoogleOptions{BaseURL: ts.URL + "/search"})
	_, err = g.Search(context.Background(), "marketing", 10)
	assert.True(t, apperr.Is(err, apperr.KindBlocked), "got %v", err)
}
