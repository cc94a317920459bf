// Package dist implements the distribution engine: closed-form symbolic
// distributions, sample sets and point sets, and the algebra that combines
// them analytically, by convolution, or by Monte Carlo sampling.
package dist

import (
	"hash/fnv"
	"math/rand/v2"
)

// Env holds the evaluation knobs that control distribution precision.
type Env struct {
	SampleCount   int
	XYPointLength int
	Seed          string
}

var DefaultEnv = Env{
	SampleCount:   10000,
	XYPointLength: 1000,
	Seed:          "default-seed",
}

// Validate rejects environments that cannot drive sampling or
// discretization.
func (e Env) Validate() error {
	if e.SampleCount <= 0 {
		return argumentError("Sample count must be positive, got %d", e.SampleCount)
	}
	if e.XYPointLength <= 0 {
		return argumentError("Point length must be positive, got %d", e.XYPointLength)
	}
	return nil
}

// NewRNG returns a generator whose stream depends only on seed.
func NewRNG(seed string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	s := h.Sum64()
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}
