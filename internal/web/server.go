// Package web serves the one-button page and a small JSON API over the
// pipeline.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/FranksOps/scout/internal/apperr"
	"github.com/FranksOps/scout/internal/metrics"
	"github.com/FranksOps/scout/internal/outreach"
	"github.com/FranksOps/scout/internal/report"
	"github.com/FranksOps/scout/internal/storage"
)

const (
	defaultPage = 20
	maxPage     = 200
)

// Runner executes one pipeline run. *app.App satisfies it.
type Runner interface {
	Run(ctx context.Context) (*storage.Run, error)
}

// Options configures the Server.
type Options struct {
	Title  string
	Button string
	// Archive backs GET /api/runs; nil answers 404.
	Archive storage.Backend
}

// Server is an http.Handler for the presentation surface.
type Server struct {
	runner  Runner
	archive storage.Backend
	page    report.Page
	logger  *slog.Logger
	router  chi.Router
}

// New returns a Server with its routes mounted.
func New(runner Runner, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		runner:  runner,
		archive: opts.Archive,
		page:    report.NewPage(opts.Title, opts.Button),
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Post("/run", s.handleRun)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/run", s.handleAPIRun)
		r.Get("/runs", s.handleRuns)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.writeHTML(w, http.StatusOK, s.page)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.execute(r)
	if err != nil {
		s.writeHTML(w, statusFor(err), s.page.WithError(kindOf(err), apperr.Redact(err.Error())))
		return
	}
	s.writeHTML(w, http.StatusOK, s.page.WithRecords(run.Records))
}

func (s *Server) handleAPIRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.execute(r)
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: apperr.Redact(err.Error()), Kind: kindOf(err)})
		return
	}
	records := run.Records
	if records == nil {
		records = []outreach.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no archive configured"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	filter := storage.Filter{
		Query:  strings.TrimSpace(q.Get("query")),
		Limit:  clampInt(q.Get("limit"), defaultPage, maxPage),
		Offset: clampInt(q.Get("offset"), 0, 1_000_000),
	}
	runs, err := s.archive.Query(ctx, filter)
	if err != nil {
		s.logger.Error("query archive", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: apperr.Redact(err.Error())})
		return
	}
	if runs == nil {
		runs = []*storage.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// execute runs the pipeline on the request context, so a client that goes
// away cancels the run.
func (s *Server) execute(r *http.Request) (*storage.Run, error) {
	logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
	logger.Debug("run requested", "remote", r.RemoteAddr)

	run, err := s.runner.Run(r.Context())
	if err != nil {
		logger.Error("run failed", "kind", kindOf(err), "err", apperr.Redact(err.Error()))
		return nil, err
	}
	return run, nil
}

// statusFor maps a failed run to a response status: setup problems are the
// server's fault, everything else is an upstream failure.
func statusFor(err error) int {
	if apperr.Is(err, apperr.KindConfig) {
		return http.StatusInternalServerError
	}
	return http.StatusBadGateway
}

func kindOf(err error) string {
	if k := apperr.KindOf(err); k != "" {
		return string(k)
	}
	return "internal"
}

func (s *Server) writeHTML(w http.ResponseWriter, status int, page report.Page) {
	var buf bytes.Buffer
	if err := report.WriteHTML(&buf, page); err != nil {
		s.logger.Error("render page", "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	if v > max {
		return max
	}
	return v
}
