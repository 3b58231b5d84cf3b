package features

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ruslanbaba/battery-health-service/internal/model"
	"github.com/ruslanbaba/battery-health-service/internal/validation"
)

func testRequest() *validation.Request {
	return &validation.Request{
		BatteryTemperature: 32.5,
		Voltage:            3.9,
		Current:            1.2,
		ChargingCycles:     540,
		StateOfCharge:      76,
	}
}

func TestPrepareDirectMappings(t *testing.T) {
	featureList := []string{
		"Exp_Temperature",
		"Exp_Voltage",
		"Exp_Current",
		"Cycle_Index",
		"cycle_squared",
		"Exp_Time",
		"temp_deviation",
		"Time at 4.15V (s)",
	}

	p := NewPreparer(featureList, nil, zap.NewNop())

	vector, err := p.Prepare(testRequest())
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if len(vector) != len(featureList) {
		t.Fatalf("Expected %d values, got %d", len(featureList), len(vector))
	}

	expected := []float64{
		32.5,
		3.9,
		1.2,
		540,
		540 * 540,
		540 * 10000,
		32.5 - 26.0,
		5000 + 0.76*1000,
	}
	for i, want := range expected {
		if math.Abs(vector[i]-want) > 1e-9 {
			t.Errorf("Feature %s: expected %v, got %v", featureList[i], want, vector[i])
		}
	}
}

func TestPrepareVoltageDerivations(t *testing.T) {
	featureList := []string{
		"Max. Voltage Dischar. (V)",
		"Min. Voltage Charg. (V)",
		"voltage_drop",
	}

	p := NewPreparer(featureList, nil, zap.NewNop())

	vector, err := p.Prepare(testRequest())
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if vector[0] != 3.9 {
		t.Errorf("Expected max voltage 3.9, got %v", vector[0])
	}
	if vector[1] != 3.4 {
		t.Errorf("Expected min voltage 3.4, got %v", vector[1])
	}
	if math.Abs(vector[2]-0.5) > 1e-9 {
		t.Errorf("Expected voltage drop 0.5, got %v", vector[2])
	}

	// The floor keeps the estimated min charging voltage realistic.
	low := testRequest()
	low.Voltage = 3.2
	vector, err = p.Prepare(low)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if vector[1] != 3.0 {
		t.Errorf("Expected floored min voltage 3.0, got %v", vector[1])
	}
}

func TestPrepareFillsFromStatistics(t *testing.T) {
	featureList := []string{"Cycle_Index", "Charge Capacity (Ah)", "energy_density"}
	stats := model.NewStatistics(map[string]float64{
		"Charge Capacity (Ah)":      2.4,
		"Time constant current (s)": 8000,
	})

	p := NewPreparer(featureList, stats, zap.NewNop())

	vector, err := p.Prepare(testRequest())
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if vector[1] != 2.4 {
		t.Errorf("Expected median fill 2.4, got %v", vector[1])
	}
	if math.Abs(vector[2]-3.9*8000) > 1e-9 {
		t.Errorf("Expected energy density %v, got %v", 3.9*8000, vector[2])
	}
}

func TestPrepareFailsOnUnresolvableFeatures(t *testing.T) {
	featureList := []string{"Cycle_Index", "Discharge Capacity (Ah)", "Internal Resistance (Ohm)"}

	p := NewPreparer(featureList, nil, zap.NewNop())

	_, err := p.Prepare(testRequest())
	if err == nil {
		t.Fatal("Expected schema resolution to fail without statistics")
	}

	var schemaErr *SchemaResolutionError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Expected *SchemaResolutionError, got %T", err)
	}
	if len(schemaErr.Missing) != 2 {
		t.Fatalf("Expected 2 missing features, got %d: %v", len(schemaErr.Missing), schemaErr.Missing)
	}
	for _, name := range []string{"Discharge Capacity (Ah)", "Internal Resistance (Ohm)"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("Expected error to name %s, got %q", name, err.Error())
		}
	}
}

func TestPrepareDeterministic(t *testing.T) {
	featureList := []string{"Exp_Temperature", "Cycle_Index", "Charge Capacity (Ah)"}
	stats := model.NewStatistics(map[string]float64{"Charge Capacity (Ah)": 2.4})

	p := NewPreparer(featureList, stats, zap.NewNop())

	first, err := p.Prepare(testRequest())
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	second, err := p.Prepare(testRequest())
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical vectors, got %v and %v", first, second)
	}
}
