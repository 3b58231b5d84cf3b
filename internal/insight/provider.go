// Package insight produces optional natural-language analysis of battery
// health predictions through a pluggable provider chain.
package insight

import (
	"context"
	"fmt"

	"github.com/ruslanbaba/battery-health-service/internal/validation"
)

// Provider names used for configuration, fingerprints and metrics.
const (
	ProviderExternalLLM = "external-llm"
	ProviderLocalRule   = "local-rule"
	ProviderDisabled    = "disabled"
)

// Input carries everything a provider may reference when generating text
type Input struct {
	Request          validation.Request
	RawRUL           float64
	HealthPercentage float64
}

// Provider generates insight text for a prediction. Implementations may
// fail; failures are absorbed by the Service and never affect the
// prediction response.
type Provider interface {
	// Name returns the provider identity used in fingerprints.
	Name() string

	// Generate produces insight text or fails with a *ProviderError.
	Generate(ctx context.Context, in Input) (string, error)
}

// Failure reasons attached to ProviderError for metrics and logging.
const (
	ReasonTimeout   = "timeout"
	ReasonAuth      = "auth"
	ReasonQuota     = "quota"
	ReasonTransport = "transport"
	ReasonResponse  = "response"
)

// ProviderError describes a failed provider call. Always non-fatal: the
// caller degrades to an absent insight.
type ProviderError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("insight provider %s failed (%s): %v", e.Provider, e.Reason, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Disabled is the no-op provider variant: insight generation is off and
// the Service returns an absent result without any call or cache traffic.
type Disabled struct{}

// Name implements Provider
func (Disabled) Name() string { return ProviderDisabled }

// Generate implements Provider. It is never reached through the Service
// but keeps the variant substitutable.
func (Disabled) Generate(context.Context, Input) (string, error) {
	return "", &ProviderError{Provider: ProviderDisabled, Reason: ReasonResponse,
		Err: fmt.Errorf("insight generation is disabled")}
}
