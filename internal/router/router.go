package router

import (
	"net/http"
	"strconv"
	"time"

	"Mansoor88-6/pondok-tracker/internal/handler"
	"Mansoor88-6/pondok-tracker/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options selects the optional routes
type Options struct {
	Metrics bool
	// URLs is nil when the browser extension endpoint is disabled
	URLs *handler.URLHandler
}

func New(tracking *handler.TrackingHandler, opts Options, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, instrument(pattern, h))
	}

	handle("GET /health", tracking.Health)
	if opts.Metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	handle("GET /api/v1/activation", tracking.CheckActivation)
	handle("POST /api/v1/activation", tracking.Activate)

	handle("GET /api/v1/tracking", tracking.GetState)
	handle("GET /api/v1/tracking/apps", tracking.GetAppUsage)
	handle("POST /api/v1/tracking/start", tracking.Start)
	handle("POST /api/v1/tracking/pause", tracking.Pause)
	handle("POST /api/v1/tracking/resume", tracking.Resume)
	handle("POST /api/v1/tracking/end", tracking.End)
	handle("POST /api/v1/tracking/report", tracking.Report)

	if opts.URLs != nil {
		update := opts.URLs.CORS(opts.URLs.Update)
		handle("POST /api/v1/url-update", update)
		handle("OPTIONS /api/v1/url-update", update)
	}

	// Logging middleware
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)

		logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// instrument counts requests per route pattern and status code
func instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		metrics.AgentRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
