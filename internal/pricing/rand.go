// Package pricing generates the simulated silver price series and classifies its volatility.
package pricing

import (
	"math/rand/v2"
)

// Rand is a uniform random source on [0, 1).
type Rand interface {
	Float64() float64
}

// NewRand returns a PCG-backed Rand seeded with seed.
func NewRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Uniform draws from U(lo, hi) using r.
func Uniform(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// Sequence replays a fixed list of draws, cycling when exhausted.
// It is meant for deterministic tests and simulations.
type Sequence struct {
	values []float64
	next   int
}

// NewSequence returns a Sequence over values. An empty Sequence yields 0.5.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{values: values}
}

// Float64 returns the next scripted value.
func (s *Sequence) Float64() float64 {
	if len(s.values) == 0 {
		return 0.5
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}
