package pricing

import "math"

const (
	// StartPrice is the price every session opens at.
	StartPrice = 30.45

	anchor       = 30.5
	reversion    = 0.02
	maxStep      = 0.15
	floorPrice   = 28.0
	ceilingPrice = 33.0
)

// NextPrice advances the mean-reverting random walk by one step.
// The result is always within [28, 33].
func NextPrice(last float64, r Rand) float64 {
	change := Uniform(r, -maxStep, maxStep)
	pull := reversion * (anchor - last)
	return math.Max(floorPrice, math.Min(ceilingPrice, last+change+pull))
}

// Prediction is a one-step-ahead forecast with a confidence band.
type Prediction struct {
	Predicted float64
	Low       float64
	High      float64
}

// Predict forecasts the next price from current. The trend draw is skewed
// upwards: U(-0.2, 0.3).
func Predict(current float64, r Rand) Prediction {
	trend := Uniform(r, -0.2, 0.3)
	predicted := current + trend
	confidence := Uniform(r, 0.3, 0.7)
	return Prediction{
		Predicted: round2(predicted),
		Low:       round2(predicted - confidence),
		High:      round2(predicted + confidence),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
