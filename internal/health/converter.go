// Package health maps predicted remaining useful life onto a bounded
// health percentage.
package health

// Converter derives a health percentage from a raw RUL prediction
type Converter struct {
	maxRUL float64
}

// NewConverter creates a converter with the artifact's max RUL normalizer
func NewConverter(maxRUL float64) *Converter {
	return &Converter{maxRUL: maxRUL}
}

// Percentage returns clamp(rawRUL / maxRUL * 100, 0, 100). Negative raw
// predictions are treated as zero before the ratio, so the result is never
// negative and is exactly 100 once rawRUL reaches maxRUL.
func (c *Converter) Percentage(rawRUL float64) float64 {
	if rawRUL < 0 {
		rawRUL = 0
	}

	pct := rawRUL / c.maxRUL * 100

	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}
