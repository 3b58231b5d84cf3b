// Package server exposes the prediction pipeline over HTTP.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ruslanbaba/battery-health-service/internal/features"
	"github.com/ruslanbaba/battery-health-service/internal/health"
	"github.com/ruslanbaba/battery-health-service/internal/insight"
	"github.com/ruslanbaba/battery-health-service/internal/metrics"
	"github.com/ruslanbaba/battery-health-service/internal/model"
	"github.com/ruslanbaba/battery-health-service/internal/recommend"
	"github.com/ruslanbaba/battery-health-service/internal/validation"
)

// Server wires the prediction pipeline components behind the HTTP surface
type Server struct {
	router *mux.Router

	validator   *validation.InputValidator
	preparer    *features.Preparer
	runtime     *model.Runtime
	converter   *health.Converter
	insights    *insight.Service
	recommender *recommend.Engine

	logger  *zap.Logger
	metrics *metrics.Collector
	version string
}

// New creates the server and registers its routes
func New(
	runtime *model.Runtime,
	preparer *features.Preparer,
	converter *health.Converter,
	insights *insight.Service,
	recommender *recommend.Engine,
	registry *prometheus.Registry,
	logger *zap.Logger,
	collector *metrics.Collector,
	version string,
) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		validator:   validation.NewInputValidator(),
		preparer:    preparer,
		runtime:     runtime,
		converter:   converter,
		insights:    insights,
		recommender: recommender,
		logger:      logger,
		metrics:     collector,
		version:     version,
	}

	s.router.Use(s.instrument)
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/predict", s.handlePredict).Methods(http.MethodPost)
	s.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// statusRecorder captures the response status for logging and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument records request metrics and structured logs for every route
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		s.metrics.RequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		s.metrics.RequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration.Seconds())

		if rec.status >= http.StatusInternalServerError {
			s.logger.Error("Request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", duration),
			)
		} else {
			s.logger.Debug("Request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", duration),
			)
		}
	})
}
