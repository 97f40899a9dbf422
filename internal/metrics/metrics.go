// Package metrics registers the Prometheus collectors exported on /metrics.
// Pipeline, scheduler, and broadcaster code update the exported vars
// directly; HTTP request metrics are recorded by Middleware.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaflow_http_requests_total",
			Help: "HTTP requests served, by route pattern and status.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediaflow_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

var (
	// PipelineRuns counts finished pipeline runs by result (completed, failed).
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaflow_pipeline_runs_total",
			Help: "Pipeline runs that reached a terminal stage.",
		},
		[]string{"result"},
	)

	// StageDuration observes time spent inside each stage handler.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediaflow_stage_duration_seconds",
			Help:    "Stage handler execution time in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	// Fallbacks counts collaborator failures absorbed with a fallback value.
	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaflow_fallbacks_total",
			Help: "Collaborator failures absorbed by fallback values.",
		},
		[]string{"stage"},
	)

	SchedulerActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediaflow_scheduler_active",
		Help: "Pipeline runs currently executing.",
	})

	SchedulerQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mediaflow_scheduler_queued",
		Help: "Item ids waiting for a worker slot.",
	})

	// BroadcastEvents counts events published by type.
	BroadcastEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediaflow_broadcast_events_total",
			Help: "Progress events published, by type.",
		},
		[]string{"type"},
	)

	BroadcastDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediaflow_broadcast_dropped_subscribers_total",
		Help: "Subscribers dropped because they could not keep up.",
	})

	MediaViews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediaflow_media_views_total",
		Help: "Playback sessions started.",
	})
)

// Middleware records request counts and latency labelled by the matched chi
// route pattern, so item ids never become label values.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack is forwarded for the websocket upgrade.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.status = http.StatusSwitchingProtocols
	rw.wroteHeader = true
	return hijacker.Hijack()
}

func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
