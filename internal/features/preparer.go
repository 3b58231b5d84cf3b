// Package features maps validated request inputs onto the model's full
// feature schema.
package features

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/ruslanbaba/battery-health-service/internal/model"
	"github.com/ruslanbaba/battery-health-service/internal/validation"
)

// Engineering constants carried over from the training pipeline.
const (
	datasetMeanTemp     = 26.0   // approximate dataset mean temperature
	secondsPerCycle     = 10000  // rough experiment duration per cycle
	defaultTimeConstant = 6000.0 // fallback for "Time constant current (s)"
	minChargeFloor      = 3.0    // lower bound for estimated min charge voltage
	highVoltageTimeBase = 5000.0 // base seconds at 4.15V
)

// SchemaResolutionError indicates the model's declared feature schema
// cannot be satisfied: some expected features are neither derivable from
// the request nor covered by training statistics. Filling them with zeros
// would corrupt predictions invisibly, so the request fails instead.
type SchemaResolutionError struct {
	Missing []string
}

func (e *SchemaResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %d model features: %s",
		len(e.Missing), strings.Join(e.Missing, ", "))
}

// Preparer reconstructs the model's feature vector from a validated request
type Preparer struct {
	featureList []string
	stats       *model.Statistics
	logger      *zap.Logger
}

// NewPreparer creates a preparer bound to the model's feature schema
func NewPreparer(featureList []string, stats *model.Statistics, logger *zap.Logger) *Preparer {
	return &Preparer{
		featureList: featureList,
		stats:       stats,
		logger:      logger,
	}
}

// Prepare produces the ordered feature vector. Features derivable from the
// request are computed; everything else is filled from training medians by
// exact name match. The output order strictly follows the model's feature
// list, and identical input always yields an identical vector.
func (p *Preparer) Prepare(req *validation.Request) ([]float64, error) {
	derived := p.derive(req)

	vector := make([]float64, len(p.featureList))
	var missing []string

	for i, name := range p.featureList {
		if v, ok := derived[name]; ok {
			vector[i] = v
			continue
		}
		if v, ok := p.stats.Median(name); ok {
			vector[i] = v
			continue
		}
		missing = append(missing, name)
	}

	if len(missing) > 0 {
		p.logger.Error("Feature schema unresolved",
			zap.Strings("missing", missing),
			zap.Int("expected", len(p.featureList)),
		)
		return nil, &SchemaResolutionError{Missing: missing}
	}

	return vector, nil
}

// derive computes every feature obtainable from the raw inputs, mirroring
// the engineered features of the training pipeline.
func (p *Preparer) derive(req *validation.Request) map[string]float64 {
	maxVoltage := req.Voltage
	minVoltage := math.Max(req.Voltage-0.5, minChargeFloor)

	timeConstant := defaultTimeConstant
	if v, ok := p.stats.Median("Time constant current (s)"); ok {
		timeConstant = v
	}

	return map[string]float64{
		"Exp_Temperature":           req.BatteryTemperature,
		"Exp_Voltage":               req.Voltage,
		"Exp_Current":               req.Current,
		"Max. Voltage Dischar. (V)": maxVoltage,
		"Min. Voltage Charg. (V)":   minVoltage,
		"Cycle_Index":               req.ChargingCycles,
		"cycle_squared":             req.ChargingCycles * req.ChargingCycles,
		"Exp_Time":                  req.ChargingCycles * secondsPerCycle,
		"voltage_drop":              maxVoltage - minVoltage,
		"temp_deviation":            req.BatteryTemperature - datasetMeanTemp,
		"energy_density":            req.Voltage * timeConstant,
		"Time at 4.15V (s)":         highVoltageTimeBase + req.StateOfCharge/100.0*1000.0,
	}
}
