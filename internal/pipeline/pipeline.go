// Package pipeline drives one run of search, structuring and drafting.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/FranksOps/scout/internal/apperr"
	"github.com/FranksOps/scout/internal/metrics"
	"github.com/FranksOps/scout/internal/outreach"
	"github.com/FranksOps/scout/internal/serp"
	"github.com/FranksOps/scout/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Extractor returns the model's raw structured text for one search result.
type Extractor interface {
	Extract(ctx context.Context, profileURL, bio string) (string, error)
}

// Drafter returns an outreach message for one record.
type Drafter interface {
	Draft(ctx context.Context, rec outreach.Record) (string, error)
}

// Config configures an Orchestrator.
type Config struct {
	// Concurrency bounds how many profiles are processed at once. Values
	// below 2 process profiles strictly one after another.
	Concurrency int
	// Archive, when set, receives every successful run.
	Archive storage.Backend
	// ArchiveTimeout bounds the archive write; 0 selects 10s.
	ArchiveTimeout time.Duration
}

// Orchestrator runs the Fetcher, Structurer and Drafter over one query.
type Orchestrator struct {
	search    serp.Provider
	extractor Extractor
	drafter   Drafter
	cfg       Config
	logger    *slog.Logger
}

// New returns an Orchestrator. search, extractor and drafter are required.
func New(search serp.Provider, extractor Extractor, drafter Drafter, cfg Config, logger *slog.Logger) (*Orchestrator, error) {
	if search == nil {
		return nil, apperr.Newf(apperr.KindConfig, "pipeline.new", "search provider is nil")
	}
	if extractor == nil {
		return nil, apperr.Newf(apperr.KindConfig, "pipeline.new", "extractor is nil")
	}
	if drafter == nil {
		return nil, apperr.Newf(apperr.KindConfig, "pipeline.new", "drafter is nil")
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.ArchiveTimeout == 0 {
		cfg.ArchiveTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		search:    search,
		extractor: extractor,
		drafter:   drafter,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Run executes the pipeline and returns the records in search order. Any
// failure aborts the run and no records are returned.
func (o *Orchestrator) Run(ctx context.Context, query string, limit int) ([]outreach.Record, error) {
	run, err := o.Execute(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return run.Records, nil
}

// Execute is Run returning the whole run, including its id and timing.
func (o *Orchestrator) Execute(ctx context.Context, query string, limit int) (*storage.Run, error) {
	run := &storage.Run{
		ID:        uuid.New().String(),
		Query:     query,
		StartedAt: time.Now().UTC(),
	}
	logger := o.logger.With("run_id", run.ID)

	records, err := o.process(ctx, logger, query, limit)
	run.Duration = time.Since(run.StartedAt)
	if err != nil {
		metrics.RecordRun(kindLabel(err), run.Duration, 0)
		return nil, err
	}
	run.Records = records

	metrics.RecordRun("ok", run.Duration, len(records))
	logger.Info("run complete", "query", query, "profiles", len(records), "duration", run.Duration)

	o.archive(ctx, logger, run)
	return run, nil
}

func (o *Orchestrator) process(ctx context.Context, logger *slog.Logger, query string, limit int) ([]outreach.Record, error) {
	logger.Debug("stage started", "stage", "search", "limit", limit)
	results, err := o.search.Search(ctx, query, limit)
	if err != nil {
		logFailure(logger, "search", -1, err)
		return nil, err
	}
	logger.Debug("stage finished", "stage", "search", "results", len(results))

	records := make([]outreach.Record, len(results))

	if o.cfg.Concurrency <= 1 {
		for i, res := range results {
			rec, err := o.profile(ctx, logger, i, res)
			if err != nil {
				return nil, err
			}
			records[i] = rec
		}
		return records, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)
	for i, res := range results {
		g.Go(func() error {
			rec, err := o.profile(gctx, logger, i, res)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// profile structures and drafts one search result.
func (o *Orchestrator) profile(ctx context.Context, logger *slog.Logger, index int, res serp.SearchResult) (outreach.Record, error) {
	raw, err := o.extractor.Extract(ctx, res.ProfileURL, res.BioSnippet)
	if err != nil {
		logFailure(logger, "extract", index, err)
		return nil, err
	}

	rec, err := outreach.ParseRecord(raw)
	if err != nil {
		logFailure(logger, "parse", index, err)
		return nil, err
	}
	rec.SetDefault(outreach.FieldProfileURL, res.ProfileURL)
	logger.Debug("stage finished", "stage", "extract", "index", index, "fields", len(rec))

	msg, err := o.drafter.Draft(ctx, rec)
	if err != nil {
		logFailure(logger, "draft", index, err)
		return nil, err
	}
	rec[outreach.FieldMessage] = msg
	logger.Debug("stage finished", "stage", "draft", "index", index)

	return rec, nil
}

// archive saves a completed run. The records are already complete so a
// failure here is logged and otherwise ignored.
func (o *Orchestrator) archive(ctx context.Context, logger *slog.Logger, run *storage.Run) {
	if o.cfg.Archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.ArchiveTimeout)
	defer cancel()

	if err := o.cfg.Archive.Save(ctx, run); err != nil {
		logger.Error("archive run failed", "stage", "archive", "err", apperr.Redact(err.Error()))
		return
	}
	logger.Debug("run archived")
}

func logFailure(logger *slog.Logger, stage string, index int, err error) {
	// A sibling's failure cancels the rest; only the first cause is worth
	// an error line.
	if errors.Is(err, context.Canceled) && index >= 0 {
		logger.Debug("stage canceled", "stage", stage, "index", index)
		return
	}
	attrs := []any{"stage", stage, "kind", kindLabel(err), "err", apperr.Redact(err.Error())}
	if index >= 0 {
		attrs = append(attrs, "index", index)
	}
	logger.Error("stage failed", attrs...)
}

func kindLabel(err error) string {
	if k := apperr.KindOf(err); k != "" {
		return string(k)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "unknown"
}
