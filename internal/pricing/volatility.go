package pricing

import "github.com/rewired-gh/silveragent/internal/models"

const (
	minVolatilityPoints = 5
	volatilityWindow    = 10

	highVolatilityPct   = 0.5
	mediumVolatilityPct = 0.2
)

// ClassifyVolatility buckets the relative standard deviation of the last ten
// prices (oldest first). Fewer than five prices always yields low.
func ClassifyVolatility(prices []float64) models.Volatility {
	if len(prices) < minVolatilityPoints {
		return models.VolatilityLow
	}
	recent := prices
	if len(recent) > volatilityWindow {
		recent = recent[len(recent)-volatilityWindow:]
	}

	var w windowStats
	for _, p := range recent {
		w.update(p)
	}
	if w.mean == 0 {
		return models.VolatilityLow
	}
	pct := w.populationStdDev() / w.mean * 100

	switch {
	case pct > highVolatilityPct:
		return models.VolatilityHigh
	case pct > mediumVolatilityPct:
		return models.VolatilityMedium
	default:
		return models.VolatilityLow
	}
}
