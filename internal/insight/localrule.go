package insight

import (
	"context"
	"fmt"
	"strings"
)

// LocalRuleProvider generates deterministic, template-based insight text
// without any external calls. It always succeeds, which makes it the safe
// default when no credential is configured.
type LocalRuleProvider struct{}

// NewLocalRuleProvider creates the local provider
func NewLocalRuleProvider() *LocalRuleProvider {
	return &LocalRuleProvider{}
}

// Name implements Provider
func (p *LocalRuleProvider) Name() string { return ProviderLocalRule }

// Generate implements Provider. Identical input always yields identical
// text: a health tier sentence, the main contributing factors, and the
// matching recommendations.
func (p *LocalRuleProvider) Generate(_ context.Context, in Input) (string, error) {
	r := in.Request
	pct := in.HealthPercentage

	var parts []string

	switch {
	case pct < 40:
		parts = append(parts, fmt.Sprintf("Your battery health is critically low at %.1f%%.", pct))
	case pct < 60:
		parts = append(parts, fmt.Sprintf("Your battery health is declining at %.1f%%.", pct))
	case pct >= 80:
		parts = append(parts, fmt.Sprintf("Your battery health is excellent at %.1f%%.", pct))
	default:
		parts = append(parts, fmt.Sprintf("Your battery health is fair at %.1f%%.", pct))
	}

	var factors []string
	if r.BatteryTemperature > 45 {
		factors = append(factors, "high temperature")
	} else if r.BatteryTemperature < 0 {
		factors = append(factors, "low temperature")
	}
	if r.ChargingCycles > 800 {
		factors = append(factors, "high cycle count")
	}
	if r.Voltage < 3.2 {
		factors = append(factors, "low voltage")
	} else if r.Voltage > 4.3 {
		factors = append(factors, "high voltage")
	}

	if len(factors) > 0 {
		parts = append(parts, fmt.Sprintf("Main contributing factors: %s.", strings.Join(factors, ", ")))
	}

	var recs []string
	if r.BatteryTemperature > 45 {
		recs = append(recs, "Keep the battery cool (below 35°C) to extend lifespan.")
	}
	if r.ChargingCycles > 800 {
		recs = append(recs, fmt.Sprintf("With %.0f cycles, consider planning for battery replacement soon.", r.ChargingCycles))
	}
	if r.Voltage < 3.2 {
		recs = append(recs, "Charge the battery to maintain optimal voltage levels.")
	}
	if pct < 60 {
		recs = append(recs, "Monitor battery health regularly and adjust usage patterns.")
	}

	if len(recs) > 0 {
		parts = append(parts, "Recommendations: "+strings.Join(recs, " "))
	}

	return strings.Join(parts, " "), nil
}
