//go:build integration

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/FranksOps/scout/internal/app"
	"github.com/FranksOps/scout/internal/config"
	"github.com/FranksOps/scout/internal/llm/llmtest"
	"github.com/FranksOps/scout/internal/outreach"
	"github.com/FranksOps/scout/internal/storage"
	"github.com/FranksOps/scout/internal/web"
)

const resultsPage = `<html><body><div id="search">
<div class="g"><div class="tF2Cxc"><div class="yuRUbf"><a href="https://www.linkedin.com/in/jane-doe"><h3>Jane Doe - Marketing Lead</h3></a></div>
<div class="IsZvec"><span class="aCOpRe">Jane Doe, Marketing Lead at Acme. Loves brand storytelling.</span></div></div></div>
<div class="g"><div class="tF2Cxc"><div class="yuRUbf"><a href="https://www.example.com/blog"><h3>Marketing blog</h3></a></div>
<div class="IsZvec"><span class="aCOpRe">Not a profile.</span></div></div></div>
<div class="g"><div class="tF2Cxc"><div class="yuRUbf"><a href="https://www.linkedin.com/in/wei-zhang"><h3>Wei Zhang</h3></a></div>
<div class="IsZvec"><span class="aCOpRe">Wei Zhang, Head of Growth at Globex, Shanghai.</span></div></div></div>
</div></body></html>`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// modelStub answers draft prompts by recipient and extraction prompts by bio.
func modelStub(prompt string) (string, int) {
	switch {
	case strings.Contains(prompt, "Recipient: Jane Doe"):
		return "Hi Jane, ...", 0
	case strings.Contains(prompt, "Recipient: Wei Zhang"):
		return "Hi Wei, ...", 0
	case strings.Contains(prompt, "Jane Doe, Marketing Lead"):
		return "```json\n{\"Full Name\": \"Jane Doe\", \"Current Job Title\": \"Marketing Lead\", \"Company Name\": \"Acme\", \"Key Skills and Interests\": [\"brand storytelling\"]}\n```", 0
	case strings.Contains(prompt, "Wei Zhang, Head of Growth"):
		return `{"full_name": "Wei Zhang", "job title": "Head of Growth", "company": "Globex",}`, 0
	}
	return "unexpected prompt", http.StatusBadRequest
}

func loadConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SCOUT_MODEL_API_KEY", "")
	path := filepath.Join(t.TempDir(), "scout.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.Load(config.New(), path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func post(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Post(url, "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestIntegration_WebRunWithArchive(t *testing.T) {
	var searchHits int32
	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&searchHits, 1)
		if !strings.Contains(r.URL.Query().Get("q"), "site:linkedin.com/in/") {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "text/html; charset=UTF-8")
		fmt.Fprint(w, resultsPage)
	}))
	defer search.Close()
	model := llmtest.NewServer(t, modelStub)

	cfg := loadConfig(t, fmt.Sprintf(`
search:
  base_url: %s/search
  fingerprint: go
model:
  api_key: test-key
  base_url: %s
pipeline:
  concurrency: 2
archive:
  backend: sqlite
  dsn: %s
`, search.URL, model.URL, filepath.Join(t.TempDir(), "scout.db")))

	a, err := app.New(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	defer a.Close()

	srv := httptest.NewServer(web.New(a, web.Options{Archive: a.Archive()}, quietLogger()))
	defer srv.Close()

	status, body := post(t, srv.URL+"/run")
	if status != http.StatusOK {
		t.Fatalf("POST /run: status %d\n%s", status, body)
	}
	for _, want := range []string{
		"Jane Doe - Marketing Lead at Acme",
		"Wei Zhang - Head of Growth at Globex",
		`href="https://www.linkedin.com/in/jane-doe"`,
		"brand storytelling",
		"Hi Wei, ...",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}

	status, body = post(t, srv.URL+"/api/run")
	if status != http.StatusOK {
		t.Fatalf("POST /api/run: status %d\n%s", status, body)
	}
	var records []outreach.Record
	if err := json.Unmarshal([]byte(body), &records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1][outreach.FieldMessage] != "Hi Wei, ..." || records[1][outreach.FieldProfileURL] != "https://www.linkedin.com/in/wei-zhang" {
		t.Errorf("unexpected second record: %v", records[1])
	}

	resp, err := http.Get(srv.URL + "/api/runs?limit=5")
	if err != nil {
		t.Fatalf("GET /api/runs: %v", err)
	}
	defer resp.Body.Close()
	var runs []*storage.Run
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 archived runs, got %d", len(runs))
	}
	if len(runs[0].Records) != 2 {
		t.Errorf("expected archived run to keep its records, got %d", len(runs[0].Records))
	}

	if n := atomic.LoadInt32(&searchHits); n != 2 {
		t.Errorf("expected 2 search requests, got %d", n)
	}
	if n := model.Calls(); n != 8 {
		t.Errorf("expected 8 model requests, got %d", n)
	}
}

func TestIntegration_BlockedSearch(t *testing.T) {
	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "cloudflare")
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `<html><body>cf-browser-verification</body></html>`)
	}))
	defer search.Close()
	model := llmtest.NewServer(t, modelStub)

	cfg := loadConfig(t, fmt.Sprintf(`
search:
  base_url: %s/search
  fingerprint: go
model:
  api_key: test-key
  base_url: %s
`, search.URL, model.URL))

	a, err := app.New(context.Background(), cfg, quietLogger())
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	defer a.Close()

	srv := httptest.NewServer(web.New(a, web.Options{}, quietLogger()))
	defer srv.Close()

	status, body := post(t, srv.URL+"/run")
	if status != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", status)
	}
	if !strings.Contains(body, "Run failed (blocked):") {
		t.Errorf("expected blocked banner, got:\n%s", body)
	}
	if model.Calls() != 0 {
		t.Errorf("expected no model calls after a blocked search, got %d", model.Calls())
	}
}

func TestIntegration_ProxyRotation(t *testing.T) {
	var proxyHits int32
	proxySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&proxyHits, 1)
		if r.URL.Host != "search.invalid" {
			t.Errorf("expected an absolute request for search.invalid, got %q", r.URL.String())
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, resultsPage)
	}))
	defer proxySrv.Close()

	cfg := loadConfig(t, fmt.Sprintf(`
search:
  base_url: http://search.invalid/search
  fingerprint: go
  user_agents: ["IntegrationTest-UA"]
  proxies: [%q]
`, proxySrv.URL))

	provider, err := app.NewSearch(cfg.Search, quietLogger())
	if err != nil {
		t.Fatalf("NewSearch: %v", err)
	}

	results, err := provider.Search(context.Background(), cfg.Search.Query, 1)
	if err != nil {
		t.Fatalf("search through proxy: %v", err)
	}
	if len(results) != 1 || results[0].ProfileURL != "https://www.linkedin.com/in/jane-doe" {
		t.Errorf("unexpected results %+v", results)
	}
	if atomic.LoadInt32(&proxyHits) != 1 {
		t.Errorf("expected the proxy to serve the search, got %d hits", atomic.LoadInt32(&proxyHits))
	}
}
