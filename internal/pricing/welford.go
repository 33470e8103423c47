package pricing

import "math"

// windowStats accumulates mean and variance in one pass.
type windowStats struct {
	count int
	mean  float64
	m2    float64
}

func (w *windowStats) update(x float64) {
	w.count++
	delta := x - w.mean
	w.mean += delta / float64(w.count)
	delta2 := x - w.mean
	w.m2 += delta * delta2
}

// populationStdDev returns the standard deviation with divisor n.
func (w *windowStats) populationStdDev() float64 {
	if w.count == 0 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.count))
}
