package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/FranksOps/scout/internal/page"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_fetch_requests_total",
			Help: "Total number of outbound page fetches",
		},
		[]string{"host", "status", "detected", "detection_src"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scout_fetch_duration_seconds",
			Help:    "Duration of outbound page fetches in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"host"},
	)

	FetchBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_fetch_bytes_total",
			Help: "Total bytes downloaded across all fetches",
		},
		[]string{"host"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_proxy_failures_total",
			Help: "Total number of proxy failures during fetches",
		},
		[]string{"proxy_url"},
	)

	ModelRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_model_requests_total",
			Help: "Total number of language model completions by stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	ModelDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scout_model_duration_seconds",
			Help:    "Latency of language model completions in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	ModelTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_model_tokens_total",
			Help: "Tokens reported by the model provider",
		},
		[]string{"stage", "kind"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scout_runs_total",
			Help: "Pipeline runs by outcome (ok or the failing error kind)",
		},
		[]string{"outcome"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scout_run_duration_seconds",
			Help:    "End-to-end duration of pipeline runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
	)

	ProfilesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scout_profiles_total",
			Help: "Profiles that completed structuring and drafting",
		},
	)
)

// RecordFetch updates the fetch metrics. A nil page counts as a transport error.
func RecordFetch(host string, p *page.Page, d time.Duration) {
	status, detected, src := "error", "false", ""
	var size int
	if p != nil {
		status = strconv.Itoa(p.StatusCode)
		if p.DetectedBot {
			detected = "true"
		}
		src = p.DetectionSrc
		size = len(p.Body)
	}

	FetchRequestsTotal.WithLabelValues(host, status, detected, src).Inc()
	FetchDuration.WithLabelValues(host).Observe(d.Seconds())
	FetchBytesTotal.WithLabelValues(host).Add(float64(size))
}

// RecordModel updates the model metrics for one completion.
func RecordModel(stage, outcome string, d time.Duration, promptTokens, completionTokens int) {
	ModelRequestsTotal.WithLabelValues(stage, outcome).Inc()
	ModelDuration.WithLabelValues(stage).Observe(d.Seconds())
	if promptTokens > 0 {
		ModelTokensTotal.WithLabelValues(stage, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		ModelTokensTotal.WithLabelValues(stage, "completion").Add(float64(completionTokens))
	}
}

// RecordRun updates the run metrics.
func RecordRun(outcome string, d time.Duration, profiles int) {
	RunsTotal.WithLabelValues(outcome).Inc()
	RunDuration.Observe(d.Seconds())
	ProfilesTotal.Add(float64(profiles))
}

// Handler exposes the default registry, for mounting on another router.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", srv.Addr, "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
