// Package recommend produces deterministic rule-based maintenance advice
// from the prediction inputs.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/ruslanbaba/battery-health-service/internal/cache"
	"github.com/ruslanbaba/battery-health-service/internal/insight"
	"github.com/ruslanbaba/battery-health-service/internal/validation"
)

type rule struct {
	applies func(req validation.Request, healthPct float64) bool
	text    string
}

// Rules fire independently; output order is declaration order, not
// severity order, so identical input always yields an identical list.
var rules = []rule{
	{
		applies: func(r validation.Request, _ float64) bool { return r.BatteryTemperature > 45 },
		text:    "Reduce thermal exposure: keep the battery cool to extend its lifespan.",
	},
	{
		applies: func(r validation.Request, _ float64) bool { return r.BatteryTemperature < 0 },
		text:    "Low temperature detected: expect reduced performance until the pack warms up.",
	},
	{
		applies: func(r validation.Request, _ float64) bool { return r.Voltage < 3.2 },
		text:    "Low voltage detected: charge the battery soon to maintain optimal levels.",
	},
	{
		applies: func(r validation.Request, _ float64) bool { return r.Voltage > 4.3 },
		text:    "High voltage detected: monitor the battery carefully.",
	},
	{
		applies: func(r validation.Request, _ float64) bool { return r.Current > 5 },
		text:    "High current draw detected: sustained high discharge accelerates degradation.",
	},
	{
		applies: func(r validation.Request, _ float64) bool { return r.ChargingCycles > 800 },
		text:    "Plan for replacement: the pack has exceeded 800 charging cycles.",
	},
	{
		applies: func(r validation.Request, _ float64) bool { return r.StateOfCharge >= 95 },
		text:    "Avoid full-charge dwell: keeping the charge persistently near 100% stresses the cells.",
	},
	{
		applies: func(_ validation.Request, pct float64) bool { return pct < 40 },
		text:    "Battery health is critically low: consider replacement.",
	},
	{
		applies: func(_ validation.Request, pct float64) bool { return pct >= 40 && pct < 60 },
		text:    "Battery health is declining: monitor closely and adjust usage patterns.",
	},
	{
		applies: func(_ validation.Request, pct float64) bool { return pct >= 80 },
		text:    "Battery health is excellent: continue current maintenance habits.",
	},
}

// Engine evaluates the recommendation rules. Evaluation is pure and
// input-deterministic; results are cached by the same fingerprint/TTL
// mechanism as insights for interface parity.
type Engine struct {
	cache  *cache.Service
	logger *zap.Logger
}

// NewEngine creates a recommendation engine. cache may be nil, in which
// case every call evaluates the rules directly.
func NewEngine(cache *cache.Service, logger *zap.Logger) *Engine {
	return &Engine{
		cache:  cache,
		logger: logger,
	}
}

// Recommend returns the advice list for a request and its computed health
// percentage, in rule-declaration order.
func (e *Engine) Recommend(ctx context.Context, req validation.Request, healthPct float64) []string {
	if e.cache == nil {
		return evaluate(req, healthPct)
	}

	key := "recs:" + insight.Fingerprint("rule-engine", req)

	encoded, err := e.cache.GetOrCompute(ctx, key, func(context.Context) (string, error) {
		data, err := json.Marshal(evaluate(req, healthPct))
		if err != nil {
			return "", fmt.Errorf("failed to encode recommendations: %w", err)
		}
		return string(data), nil
	})
	if err != nil {
		// Cache trouble never blocks advice, fall back to direct evaluation.
		e.logger.Warn("Recommendation cache unavailable", zap.Error(err))
		return evaluate(req, healthPct)
	}

	var recs []string
	if err := json.Unmarshal([]byte(encoded), &recs); err != nil {
		e.logger.Warn("Corrupt cached recommendations, recomputing", zap.Error(err))
		return evaluate(req, healthPct)
	}

	return recs
}

func evaluate(req validation.Request, healthPct float64) []string {
	var recs []string
	for _, r := range rules {
		if r.applies(req, healthPct) {
			recs = append(recs, r.text)
		}
	}
	return recs
}
