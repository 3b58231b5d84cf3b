package recommend

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ruslanbaba/battery-health-service/internal/cache"
	"github.com/ruslanbaba/battery-health-service/internal/metrics"
	"github.com/ruslanbaba/battery-health-service/internal/validation"
)

func nominalRequest() validation.Request {
	return validation.Request{
		BatteryTemperature: 25,
		Voltage:            3.9,
		Current:            1.2,
		ChargingCycles:     540,
		StateOfCharge:      76,
	}
}

func TestRecommendRuleOrder(t *testing.T) {
	// Elevated temperature plus heavy cycling fires the thermal rule
	// before the replacement rule, per declaration order.
	req := nominalRequest()
	req.BatteryTemperature = 48
	req.ChargingCycles = 850

	engine := NewEngine(nil, zap.NewNop())
	recs := engine.Recommend(context.Background(), req, 70)

	expected := []string{
		"Reduce thermal exposure: keep the battery cool to extend its lifespan.",
		"Plan for replacement: the pack has exceeded 800 charging cycles.",
	}
	if !reflect.DeepEqual(recs, expected) {
		t.Errorf("Expected %v, got %v", expected, recs)
	}
}

func TestRecommendSingleRules(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*validation.Request)
		healthPct float64
		fragment  string
	}{
		{"HighTemperature", func(r *validation.Request) { r.BatteryTemperature = 46 }, 70, "thermal exposure"},
		{"LowTemperature", func(r *validation.Request) { r.BatteryTemperature = -5 }, 70, "Low temperature"},
		{"LowVoltage", func(r *validation.Request) { r.Voltage = 3.0 }, 70, "Low voltage"},
		{"HighVoltage", func(r *validation.Request) { r.Voltage = 4.5 }, 70, "High voltage"},
		{"HighCurrent", func(r *validation.Request) { r.Current = 6 }, 70, "High current"},
		{"HighCycles", func(r *validation.Request) { r.ChargingCycles = 801 }, 70, "replacement"},
		{"FullChargeDwell", func(r *validation.Request) { r.StateOfCharge = 95 }, 70, "full-charge dwell"},
		{"CriticalHealth", func(r *validation.Request) {}, 35, "critically low"},
		{"DecliningHealth", func(r *validation.Request) {}, 50, "declining"},
		{"ExcellentHealth", func(r *validation.Request) {}, 85, "excellent"},
	}

	engine := NewEngine(nil, zap.NewNop())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := nominalRequest()
			tt.mutate(&req)

			recs := engine.Recommend(context.Background(), req, tt.healthPct)
			if len(recs) != 1 {
				t.Fatalf("Expected exactly 1 recommendation, got %d: %v", len(recs), recs)
			}
			if !strings.Contains(recs[0], tt.fragment) {
				t.Errorf("Expected recommendation mentioning %q, got %q", tt.fragment, recs[0])
			}
		})
	}
}

func TestRecommendBoundaries(t *testing.T) {
	engine := NewEngine(nil, zap.NewNop())

	t.Run("ThresholdsExclusive", func(t *testing.T) {
		// Values exactly at the exclusive thresholds fire nothing.
		req := nominalRequest()
		req.BatteryTemperature = 45
		req.Voltage = 3.2
		req.Current = 5
		req.ChargingCycles = 800

		if recs := engine.Recommend(context.Background(), req, 70); len(recs) != 0 {
			t.Errorf("Expected no recommendations at thresholds, got %v", recs)
		}
	})

	t.Run("HealthTiersPartition", func(t *testing.T) {
		// 40 falls in the declining tier, not the critical one.
		recs := engine.Recommend(context.Background(), nominalRequest(), 40)
		if len(recs) != 1 || !strings.Contains(recs[0], "declining") {
			t.Errorf("Expected declining advice at 40%%, got %v", recs)
		}

		// The fair band between 60 and 80 yields no health advice.
		if recs := engine.Recommend(context.Background(), nominalRequest(), 70); len(recs) != 0 {
			t.Errorf("Expected no health advice at 70%%, got %v", recs)
		}
	})
}

func TestRecommendNominalInputEmpty(t *testing.T) {
	engine := NewEngine(nil, zap.NewNop())
	if recs := engine.Recommend(context.Background(), nominalRequest(), 70); len(recs) != 0 {
		t.Errorf("Expected no recommendations for nominal input, got %v", recs)
	}
}

func TestRecommendThroughCache(t *testing.T) {
	cacheService := cache.NewService(
		cache.Config{TTL: time.Minute, CleanupInterval: time.Minute},
		nil,
		zap.NewNop(),
		metrics.NewCollector(),
	)
	engine := NewEngine(cacheService, zap.NewNop())

	req := nominalRequest()
	req.BatteryTemperature = 48
	req.ChargingCycles = 850

	expected := []string{
		"Reduce thermal exposure: keep the battery cool to extend its lifespan.",
		"Plan for replacement: the pack has exceeded 800 charging cycles.",
	}
	for i := 0; i < 3; i++ {
		recs := engine.Recommend(context.Background(), req, 70)
		if !reflect.DeepEqual(recs, expected) {
			t.Errorf("Call %d: expected %v, got %v", i, expected, recs)
		}
	}
	if cacheService.Len() != 1 {
		t.Errorf("Expected 1 cached entry, got %d", cacheService.Len())
	}
}
