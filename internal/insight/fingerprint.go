package insight

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ruslanbaba/battery-health-service/internal/validation"
)

// Fingerprint derives the deterministic cache key for a request: a hash
// over the provider identity and the input values rounded to two decimals.
// Near-identical inputs inside the rounding window share one key, which is
// what makes deduplication of provider calls effective.
func Fingerprint(provider string, req validation.Request) string {
	payload := fmt.Sprintf("%s|%.2f|%.2f|%.2f|%.2f|%.2f",
		provider,
		req.BatteryTemperature,
		req.Voltage,
		req.Current,
		req.ChargingCycles,
		req.StateOfCharge,
	)

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
