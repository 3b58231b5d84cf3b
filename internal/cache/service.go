// Package cache provides a TTL'd get-or-compute cache with an
// at-most-one-in-flight guarantee per key.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ruslanbaba/battery-health-service/internal/metrics"
)

// Entry represents a cached value with its creation time
type Entry struct {
	Value     string
	CreatedAt time.Time
}

// Config contains cache configuration
type Config struct {
	TTL             time.Duration // entry lifetime measured from creation
	CleanupInterval time.Duration // how often expired entries are evicted
}

// Service is the process-wide insight/recommendation cache. The in-memory
// tier is authoritative for the single-flight contract; an optional Redis
// tier shares entries across replicas. Any Redis failure is treated as a
// cache miss, never as a request failure.
type Service struct {
	config  Config
	logger  *zap.Logger
	metrics *metrics.Collector

	mu      sync.RWMutex
	entries map[string]Entry

	group singleflight.Group

	redisClient *redis.Client
}

// NewService creates a new cache service. redisClient may be nil.
func NewService(config Config, redisClient *redis.Client, logger *zap.Logger, metrics *metrics.Collector) *Service {
	return &Service{
		config:      config,
		logger:      logger,
		metrics:     metrics,
		entries:     make(map[string]Entry),
		redisClient: redisClient,
	}
}

// GetOrCompute returns the live cached value for key, or runs compute to
// produce it. Under concurrent identical keys, at most one compute runs:
// competing callers join the in-flight call and share its result. The
// compute context is detached from the caller so an abandoned request does
// not abort a call later callers would benefit from; compute is expected to
// enforce its own timeout.
func (s *Service) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (string, error)) (string, error) {
	if value, ok := s.lookup(key); ok {
		s.metrics.CacheHits.WithLabelValues("hit").Inc()
		return value, nil
	}

	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		// A concurrent caller may have populated the entry between the
		// first lookup and acquiring the flight.
		if value, ok := s.lookup(key); ok {
			s.metrics.CacheHits.WithLabelValues("hit").Inc()
			return value, nil
		}

		if value, ok := s.lookupRedis(ctx, key); ok {
			s.metrics.CacheHits.WithLabelValues("hit").Inc()
			s.store(key, value)
			return value, nil
		}

		s.metrics.CacheHits.WithLabelValues("miss").Inc()

		result, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}

		s.store(key, result)
		s.storeRedis(key, result)

		return result, nil
	})
	if err != nil {
		return "", err
	}

	return value.(string), nil
}

// Start runs the periodic expired-entry eviction loop until ctx is done
func (s *Service) Start(ctx context.Context) {
	interval := s.config.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Starting cache eviction loop",
		zap.Duration("interval", interval),
		zap.Duration("ttl", s.config.TTL),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping cache eviction loop")
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

// Len returns the number of entries currently held, live or expired
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Service) lookup(key string) (string, bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return "", false
	}
	if time.Since(entry.CreatedAt) >= s.config.TTL {
		s.metrics.CacheHits.WithLabelValues("expired").Inc()
		return "", false
	}
	return entry.Value, true
}

func (s *Service) store(key, value string) {
	s.mu.Lock()
	s.entries[key] = Entry{Value: value, CreatedAt: time.Now()}
	s.metrics.CacheEntries.Set(float64(len(s.entries)))
	s.mu.Unlock()
}

func (s *Service) lookupRedis(ctx context.Context, key string) (string, bool) {
	if s.redisClient == nil {
		return "", false
	}

	value, err := s.redisClient.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.metrics.CacheErrors.WithLabelValues("redis").Inc()
			s.logger.Warn("Redis lookup failed, treating as miss",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		return "", false
	}

	return value, true
}

func (s *Service) storeRedis(key, value string) {
	if s.redisClient == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.redisClient.Set(ctx, key, value, s.config.TTL).Err(); err != nil {
		s.metrics.CacheErrors.WithLabelValues("redis").Inc()
		s.logger.Warn("Redis write failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func (s *Service) evictExpired() {
	now := time.Now()

	s.mu.Lock()
	var evicted int
	for key, entry := range s.entries {
		if now.Sub(entry.CreatedAt) >= s.config.TTL {
			delete(s.entries, key)
			evicted++
		}
	}
	remaining := len(s.entries)
	s.metrics.CacheEntries.Set(float64(remaining))
	s.mu.Unlock()

	if evicted > 0 {
		s.metrics.CacheEvictions.Add(float64(evicted))
		s.logger.Debug("Evicted expired cache entries",
			zap.Int("evicted", evicted),
			zap.Int("remaining", remaining),
		)
	}
}
