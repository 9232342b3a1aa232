// Package app assembles the fetcher, search provider, model client, archive
// and orchestrator described by a config.Config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/FranksOps/scout/internal/apperr"
	"github.com/FranksOps/scout/internal/config"
	"github.com/FranksOps/scout/internal/fingerprint"
	"github.com/FranksOps/scout/internal/llm"
	"github.com/FranksOps/scout/internal/outreach"
	"github.com/FranksOps/scout/internal/pipeline"
	"github.com/FranksOps/scout/internal/scraper"
	"github.com/FranksOps/scout/internal/serp"
	"github.com/FranksOps/scout/internal/storage"
	"github.com/FranksOps/scout/internal/storage/backends"
	"github.com/FranksOps/scout/pkg/httpclient"
	"github.com/FranksOps/scout/pkg/proxy"
	"github.com/FranksOps/scout/pkg/useragent"
)

const opBuild = "app.new"

// ModelUserAgent is sent on every model API request.
const ModelUserAgent = "scout"

// App is a ready-to-run pipeline plus the resources it owns.
type App struct {
	cfg      *config.Config
	pipeline *pipeline.Orchestrator
	archive  storage.Backend
	logger   *slog.Logger
}

// New builds every component from cfg. The model credential must be set.
// Callers must Close the App to release the archive.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.RequireModel(); err != nil {
		return nil, err
	}

	search, err := NewSearch(cfg.Search, logger)
	if err != nil {
		return nil, err
	}

	modelHTTP, err := newModelHTTP(cfg.Model)
	if err != nil {
		return nil, err
	}
	model, err := llm.New(llm.Config{
		APIKey:     cfg.Model.APIKey,
		Model:      cfg.Model.Name,
		BaseURL:    cfg.Model.BaseURL,
		Timeout:    cfg.Model.Timeout,
		HTTPClient: modelHTTP.Doer(),
	}, logger)
	if err != nil {
		return nil, err
	}
	structurer := outreach.NewStructurer(model, outreach.StructurerConfig{
		MaxTokens: cfg.Model.ExtractMaxTokens,
		JSONMode:  cfg.Model.JSONMode,
	}, logger)
	drafter := outreach.NewDrafter(model, outreach.DrafterConfig{
		MaxTokens: cfg.Model.DraftMaxTokens,
	}, logger)

	archive, err := backends.Open(ctx, cfg.Archive.Backend, cfg.Archive.DSN)
	if err != nil {
		return nil, err
	}

	orch, err := pipeline.New(search, structurer, drafter, pipeline.Config{
		Concurrency: cfg.Pipeline.Concurrency,
		Archive:     archive,
	}, logger)
	if err != nil {
		if archive != nil {
			_ = archive.Close()
		}
		return nil, err
	}

	logger.Debug("app ready",
		"model", model.Model(),
		"fingerprint", cfg.Search.Fingerprint,
		"concurrency", cfg.Pipeline.Concurrency,
		"archive", cfg.Archive.Backend,
	)
	return &App{cfg: cfg, pipeline: orch, archive: archive, logger: logger}, nil
}

// NewSearch builds the results page provider over a fingerprinted fetcher
// with the configured UA and proxy pools.
func NewSearch(cfg config.Search, logger *slog.Logger) (*serp.Google, error) {
	if logger == nil {
		logger = slog.Default()
	}

	profile, err := fingerprint.ParseProfile(cfg.Fingerprint)
	if err != nil {
		return nil, apperr.New(apperr.KindConfig, opBuild, err)
	}
	rotation, err := useragent.ParseRotation(cfg.UARotation)
	if err != nil {
		return nil, apperr.New(apperr.KindConfig, opBuild, err)
	}

	fetchCfg := scraper.FetchConfig{
		Timeout:     cfg.Timeout,
		UAPool:      useragent.NewPool(cfg.UserAgents, rotation),
		Fingerprint: profile,
	}
	if len(cfg.Proxies) > 0 || cfg.ProxyFile != "" {
		pool := proxy.NewPool(proxy.Config{})
		if err := pool.Add(cfg.Proxies...); err != nil {
			return nil, apperr.New(apperr.KindConfig, opBuild, err)
		}
		if cfg.ProxyFile != "" {
			if err := pool.LoadFile(cfg.ProxyFile); err != nil {
				return nil, apperr.New(apperr.KindConfig, opBuild, err)
			}
		}
		logger.Info("proxy rotation enabled", "proxies", pool.Len())
		fetchCfg.ProxyPool = pool
	}

	fetcher, err := scraper.NewFetcher(fetchCfg)
	if err != nil {
		return nil, apperr.New(apperr.KindConfig, opBuild, err)
	}

	opts := serp.GoogleOptions{
		BaseURL:           cfg.BaseURL,
		ContainerSelector: cfg.ContainerSelector,
		LinkSelector:      cfg.LinkSelector,
		SnippetSelector:   cfg.SnippetSelector,
		ProfileMarker:     cfg.ProfileMarker,
		StrictLayout:      cfg.StrictLayout,
	}
	if cfg.RespectRobots {
		opts.Robots = scraper.NewRobotsTxtAuditor(fetcher, logger)
	}
	return serp.NewGoogle(fetcher, opts, logger)
}

// Run executes one pipeline run with the configured query and limit.
func (a *App) Run(ctx context.Context) (*storage.Run, error) {
	return a.pipeline.Execute(ctx, a.cfg.Search.Query, a.cfg.Search.Limit)
}

// Archive returns the run archive, or nil when archiving is off.
func (a *App) Archive() storage.Backend { return a.archive }

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Close releases the archive.
func (a *App) Close() error {
	if a == nil || a.archive == nil {
		return nil
	}
	if err := a.archive.Close(); err != nil {
		return fmt.Errorf("app: close archive: %w", err)
	}
	return nil
}

// newModelHTTP builds the client for the model API. Redirects are not
// followed and the client timeout matches the per-completion timeout.
func newModelHTTP(cfg config.Model) (*httpclient.Client, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = llm.DefaultTimeout
	}
	c, err := httpclient.New(httpclient.Config{
		Timeout:      timeout,
		MaxRedirects: -1,
		Headers:      http.Header{"User-Agent": {ModelUserAgent}},
	})
	if err != nil {
		return nil, apperr.New(apperr.KindConfig, opBuild, err)
	}
	return c, nil
}
