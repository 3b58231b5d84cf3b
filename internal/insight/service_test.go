package insight

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ruslanbaba/battery-health-service/internal/cache"
	"github.com/ruslanbaba/battery-health-service/internal/metrics"
	"github.com/ruslanbaba/battery-health-service/internal/validation"
)

// countingProvider is a test double instrumenting provider invocations
type countingProvider struct {
	name  string
	calls int32
	delay time.Duration
	err   error
}

func (p *countingProvider) Name() string { return p.name }

func (p *countingProvider) Generate(context.Context, Input) (string, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.err != nil {
		return "", p.err
	}
	return "analysis text", nil
}

func testInput() Input {
	return Input{
		Request: validation.Request{
			BatteryTemperature: 32.5,
			Voltage:            3.9,
			Current:            1.2,
			ChargingCycles:     540,
			StateOfCharge:      76,
		},
		RawRUL:           850.5,
		HealthPercentage: 70.875,
	}
}

func newTestService(p Provider, ttl time.Duration) *Service {
	cacheService := cache.NewService(
		cache.Config{TTL: ttl, CleanupInterval: time.Minute},
		nil,
		zap.NewNop(),
		metrics.NewCollector(),
	)
	return NewService(p, cacheService, zap.NewNop(), metrics.NewCollector())
}

func TestAnalyzeCachesByFingerprint(t *testing.T) {
	provider := &countingProvider{name: "test-provider"}
	s := newTestService(provider, time.Minute)

	for i := 0; i < 4; i++ {
		result := s.Analyze(context.Background(), testInput())
		if result == nil {
			t.Fatal("Expected an insight result")
		}
		if result.Text != "analysis text" {
			t.Errorf("Expected analysis text, got %q", result.Text)
		}
		if result.Provider != "test-provider" {
			t.Errorf("Expected provider test-provider, got %q", result.Provider)
		}
	}

	if n := atomic.LoadInt32(&provider.calls); n != 1 {
		t.Errorf("Expected 1 provider call for identical inputs, got %d", n)
	}
}

func TestAnalyzeConcurrentIdenticalRequests(t *testing.T) {
	provider := &countingProvider{name: "test-provider", delay: 50 * time.Millisecond}
	s := newTestService(provider, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if result := s.Analyze(context.Background(), testInput()); result == nil {
				t.Error("Expected an insight result")
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&provider.calls); n != 1 {
		t.Errorf("Expected exactly 1 provider call under concurrency, got %d", n)
	}
}

func TestAnalyzeRefreshesAfterTTL(t *testing.T) {
	provider := &countingProvider{name: "test-provider"}
	s := newTestService(provider, 30*time.Millisecond)

	s.Analyze(context.Background(), testInput())
	time.Sleep(50 * time.Millisecond)
	s.Analyze(context.Background(), testInput())

	if n := atomic.LoadInt32(&provider.calls); n != 2 {
		t.Errorf("Expected a fresh provider call after TTL expiry, got %d", n)
	}
}

func TestAnalyzeDistinctInputsInvokeProvider(t *testing.T) {
	provider := &countingProvider{name: "test-provider"}
	s := newTestService(provider, time.Minute)

	first := testInput()
	second := testInput()
	second.Request.ChargingCycles = 900

	s.Analyze(context.Background(), first)
	s.Analyze(context.Background(), second)

	if n := atomic.LoadInt32(&provider.calls); n != 2 {
		t.Errorf("Expected 2 provider calls for distinct inputs, got %d", n)
	}
}

func TestAnalyzeAbsorbsProviderFailure(t *testing.T) {
	provider := &countingProvider{
		name: "test-provider",
		err:  &ProviderError{Provider: "test-provider", Reason: ReasonTimeout},
	}
	s := newTestService(provider, time.Minute)

	if result := s.Analyze(context.Background(), testInput()); result != nil {
		t.Errorf("Expected absent insight on provider failure, got %+v", result)
	}

	// Failures are not cached: the next request tries again.
	s.Analyze(context.Background(), testInput())
	if n := atomic.LoadInt32(&provider.calls); n != 2 {
		t.Errorf("Expected failed calls to bypass the cache, got %d", n)
	}
}

func TestAnalyzeDisabledProvider(t *testing.T) {
	s := newTestService(Disabled{}, time.Minute)

	if result := s.Analyze(context.Background(), testInput()); result != nil {
		t.Errorf("Expected absent insight with disabled provider, got %+v", result)
	}
}

func TestFingerprint(t *testing.T) {
	base := testInput().Request

	t.Run("Deterministic", func(t *testing.T) {
		if Fingerprint("p", base) != Fingerprint("p", base) {
			t.Error("Expected identical inputs to share a fingerprint")
		}
	})

	t.Run("ProviderIdentity", func(t *testing.T) {
		if Fingerprint("a", base) == Fingerprint("b", base) {
			t.Error("Expected different providers to produce different fingerprints")
		}
	})

	t.Run("RoundingWindow", func(t *testing.T) {
		near := base
		near.Voltage = base.Voltage + 0.001
		if Fingerprint("p", base) != Fingerprint("p", near) {
			t.Error("Expected inputs inside the rounding window to share a fingerprint")
		}

		far := base
		far.Voltage = base.Voltage + 0.1
		if Fingerprint("p", base) == Fingerprint("p", far) {
			t.Error("Expected materially different inputs to produce different fingerprints")
		}
	})
}

func TestLocalRuleProvider(t *testing.T) {
	p := NewLocalRuleProvider()

	t.Run("Deterministic", func(t *testing.T) {
		first, err := p.Generate(context.Background(), testInput())
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		second, err := p.Generate(context.Background(), testInput())
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if first != second {
			t.Errorf("Expected deterministic output, got %q and %q", first, second)
		}
	})

	t.Run("ReflectsFactors", func(t *testing.T) {
		in := testInput()
		in.Request.BatteryTemperature = 50
		in.Request.ChargingCycles = 900
		in.HealthPercentage = 45

		text, err := p.Generate(context.Background(), in)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		lowered := strings.ToLower(text)
		for _, fragment := range []string{"declining", "temperature", "cycle"} {
			if !strings.Contains(lowered, fragment) {
				t.Errorf("Expected text to mention %q, got %q", fragment, text)
			}
		}
	})
}
