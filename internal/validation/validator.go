package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Request is a fully validated prediction request
type Request struct {
	BatteryTemperature float64 `json:"battery_temperature"`
	Voltage            float64 `json:"voltage"`
	Current            float64 `json:"current"`
	ChargingCycles     float64 `json:"charging_cycles"`
	StateOfCharge      float64 `json:"state_of_charge"`
}

// ValidationError reports every violation found in one pass so the caller
// can fix all of them in a single round trip.
type ValidationError struct {
	Violations []string
}

// Error returns the combined violation message
func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, "; ")
}

type fieldSpec struct {
	name    string
	min     float64
	max     float64
	unit    string
	integer bool
	assign  func(*Request, float64)
}

// InputValidator validates raw decoded JSON into a typed Request
type InputValidator struct {
	fields []fieldSpec
}

// NewInputValidator creates a validator with the documented field ranges
func NewInputValidator() *InputValidator {
	return &InputValidator{
		fields: []fieldSpec{
			{
				name: "battery_temperature", min: -20, max: 60, unit: "°C",
				assign: func(r *Request, v float64) { r.BatteryTemperature = v },
			},
			{
				name: "voltage", min: 2.5, max: 4.5, unit: "V",
				assign: func(r *Request, v float64) { r.Voltage = v },
			},
			{
				name: "current", min: 0, max: 10, unit: "A",
				assign: func(r *Request, v float64) { r.Current = v },
			},
			{
				name: "charging_cycles", min: 0, max: 10000, integer: true,
				assign: func(r *Request, v float64) { r.ChargingCycles = v },
			},
			{
				name: "state_of_charge", min: 0, max: 100, unit: "%",
				assign: func(r *Request, v float64) { r.StateOfCharge = v },
			},
		},
	}
}

// Validate checks every field of the raw input and returns either a typed
// Request or a ValidationError enumerating all violations. It never stops
// at the first problem.
func (v *InputValidator) Validate(raw map[string]interface{}) (*Request, error) {
	var req Request
	var violations []string

	for _, f := range v.fields {
		value, ok := raw[f.name]
		if !ok {
			violations = append(violations, fmt.Sprintf("%s is required", f.name))
			continue
		}

		num, ok := coerce(value)
		if !ok {
			violations = append(violations, fmt.Sprintf("%s must be a number", f.name))
			continue
		}

		if f.integer && num != math.Trunc(num) {
			violations = append(violations, fmt.Sprintf("%s must be a whole number", f.name))
			continue
		}

		if num < f.min || num > f.max {
			violations = append(violations, fmt.Sprintf("%s must be between %g and %g%s",
				f.name, f.min, f.max, f.unit))
			continue
		}

		f.assign(&req, num)
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	return &req, nil
}

// coerce attempts numeric conversion before any range check. Numeric
// strings are accepted; anything else is a type violation.
func coerce(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
