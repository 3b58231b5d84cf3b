package insight

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ruslanbaba/battery-health-service/internal/cache"
	"github.com/ruslanbaba/battery-health-service/internal/metrics"
)

// Result is a generated insight and the provider that produced it
type Result struct {
	Text     string
	Provider string
}

// Service produces best-effort insight text through the configured
// provider, deduplicated by fingerprint and cached with a TTL. Provider
// failures are logged and counted but never propagate: the prediction
// response simply carries no insight.
type Service struct {
	provider Provider
	cache    *cache.Service
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// NewService creates an insight service bound to one provider. The
// provider is fixed per service instance: there is no process-global
// mutable selection.
func NewService(provider Provider, cache *cache.Service, logger *zap.Logger, metrics *metrics.Collector) *Service {
	return &Service{
		provider: provider,
		cache:    cache,
		logger:   logger,
		metrics:  metrics,
	}
}

// Analyze returns the insight for a prediction, or nil when the provider
// is disabled or fails. A live cache entry is served without invoking the
// provider; otherwise at most one provider call runs per fingerprint, even
// under concurrent identical requests.
func (s *Service) Analyze(ctx context.Context, in Input) *Result {
	if s.provider == nil || s.provider.Name() == ProviderDisabled {
		return nil
	}

	key := "insight:" + Fingerprint(s.provider.Name(), in.Request)

	text, err := s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (string, error) {
		return s.invoke(ctx, in)
	})
	if err != nil {
		var provErr *ProviderError
		if errors.As(err, &provErr) {
			s.metrics.ProviderFailures.WithLabelValues(provErr.Provider, provErr.Reason).Inc()
		} else {
			s.metrics.ProviderFailures.WithLabelValues(s.provider.Name(), ReasonTransport).Inc()
		}
		s.logger.Warn("Insight generation failed, continuing without insight",
			zap.String("provider", s.provider.Name()),
			zap.Error(err),
		)
		return nil
	}

	return &Result{Text: text, Provider: s.provider.Name()}
}

func (s *Service) invoke(ctx context.Context, in Input) (string, error) {
	start := time.Now()
	s.metrics.ProviderCalls.WithLabelValues(s.provider.Name()).Inc()

	text, err := s.provider.Generate(ctx, in)

	s.metrics.ProviderDuration.WithLabelValues(s.provider.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}

	s.logger.Debug("Insight generated",
		zap.String("provider", s.provider.Name()),
		zap.Duration("duration", time.Since(start)),
		zap.Int("length", len(text)),
	)

	return text, nil
}
