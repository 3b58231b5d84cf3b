package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds all Prometheus metrics
type Collector struct {
	// Prediction pipeline metrics
	PredictionsTotal    *prometheus.CounterVec
	PredictionDuration  prometheus.Histogram
	ValidationFailures  prometheus.Counter
	PredictedRUL        prometheus.Histogram
	HealthPercentage    prometheus.Histogram

	// Insight provider metrics
	ProviderCalls    *prometheus.CounterVec
	ProviderFailures *prometheus.CounterVec
	ProviderDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHits      *prometheus.CounterVec
	CacheEvictions prometheus.Counter
	CacheErrors    *prometheus.CounterVec
	CacheEntries   prometheus.Gauge

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		PredictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "battery_predictions_total",
				Help: "Total number of prediction requests by outcome",
			},
			[]string{"outcome"}, // success, validation_error, internal_error
		),
		PredictionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "battery_prediction_duration_seconds",
				Help:    "End-to-end duration of prediction requests",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
			},
		),
		ValidationFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "battery_validation_failures_total",
				Help: "Total number of rejected prediction requests",
			},
		),
		PredictedRUL: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "battery_predicted_rul_cycles",
				Help:    "Distribution of predicted remaining useful life",
				Buckets: prometheus.LinearBuckets(0, 150, 10),
			},
		),
		HealthPercentage: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "battery_health_percentage",
				Help:    "Distribution of computed health percentages",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),

		ProviderCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insight_provider_calls_total",
				Help: "Total number of insight provider invocations",
			},
			[]string{"provider"},
		),
		ProviderFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insight_provider_failures_total",
				Help: "Total number of failed insight provider calls",
			},
			[]string{"provider", "reason"}, // timeout, auth, quota, transport
		),
		ProviderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "insight_provider_duration_seconds",
				Help:    "Duration of insight provider calls",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"provider"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insight_cache_hits_total",
				Help: "Total number of cache hits and misses",
			},
			[]string{"result"}, // hit, miss, expired
		),
		CacheEvictions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "insight_cache_evictions_total",
				Help: "Total number of expired cache entries evicted",
			},
		),
		CacheErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insight_cache_errors_total",
				Help: "Total number of cache tier errors",
			},
			[]string{"tier"}, // redis
		),
		CacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "insight_cache_entries",
				Help: "Current number of live in-memory cache entries",
			},
		),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.PredictionsTotal.Describe(ch)
	c.PredictionDuration.Describe(ch)
	c.ValidationFailures.Describe(ch)
	c.PredictedRUL.Describe(ch)
	c.HealthPercentage.Describe(ch)
	c.ProviderCalls.Describe(ch)
	c.ProviderFailures.Describe(ch)
	c.ProviderDuration.Describe(ch)
	c.CacheHits.Describe(ch)
	c.CacheEvictions.Describe(ch)
	c.CacheErrors.Describe(ch)
	c.CacheEntries.Describe(ch)
	c.RequestsTotal.Describe(ch)
	c.RequestDuration.Describe(ch)
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.PredictionsTotal.Collect(ch)
	c.PredictionDuration.Collect(ch)
	c.ValidationFailures.Collect(ch)
	c.PredictedRUL.Collect(ch)
	c.HealthPercentage.Collect(ch)
	c.ProviderCalls.Collect(ch)
	c.ProviderFailures.Collect(ch)
	c.ProviderDuration.Collect(ch)
	c.CacheHits.Collect(ch)
	c.CacheEvictions.Collect(ch)
	c.CacheErrors.Collect(ch)
	c.CacheEntries.Collect(ch)
	c.RequestsTotal.Collect(ch)
	c.RequestDuration.Collect(ch)
}
