package dist

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat"

	"squiggle/interpreter-go/pkg/dist/pointset"
)

// minSampleSetLength is the smallest number of samples a sample set may
// hold.
const minSampleSetLength = 6

// SampleSet is a distribution represented by draws from it. Lineage
// records the operations that produced the samples.
type SampleSet struct {
	samples []float64
	sorted  []float64
	Lineage string
}

// NewSampleSet copies samples into a new sample set.
func NewSampleSet(samples []float64) (*SampleSet, error) {
	return newSampleSet(append([]float64(nil), samples...), "")
}

func newSampleSet(samples []float64, lineage string) (*SampleSet, error) {
	if len(samples) < minSampleSetLength {
		return nil, &Error{Kind: TooFewSamples}
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	return &SampleSet{samples: samples, sorted: sorted, Lineage: lineage}, nil
}

// SampleSetFromDist draws env.SampleCount samples from d. Sample sets are
// returned unchanged.
func SampleSetFromDist(d Dist, env Env, r *rand.Rand) (*SampleSet, error) {
	if s, ok := d.(*SampleSet); ok {
		return s, nil
	}
	if env.SampleCount <= 0 {
		return nil, argumentError("Sample count must be positive, got %d", env.SampleCount)
	}
	out := make([]float64, env.SampleCount)
	for i := range out {
		out[i] = d.Sample(r)
	}
	return newSampleSet(out, d.String())
}

// Samples returns a copy of the samples in draw order.
func (s *SampleSet) Samples() []float64 { return slices.Clone(s.samples) }

func (s *SampleSet) Len() int { return len(s.samples) }

func (s *SampleSet) Mean() (float64, error) { return stat.Mean(s.samples, nil), nil }

func (s *SampleSet) Variance() (float64, error) {
	return stat.PopVariance(s.samples, nil), nil
}

// Cdf is the fraction of samples at or below x.
func (s *SampleSet) Cdf(x float64) float64 {
	n, _ := slices.BinarySearchFunc(s.sorted, x, func(v, t float64) int {
		if v <= t {
			return -1
		}
		return 1
	})
	return float64(n) / float64(len(s.sorted))
}

func (s *SampleSet) Inv(p float64) float64 {
	switch {
	case p <= 0:
		return s.sorted[0]
	case p >= 1:
		return s.sorted[len(s.sorted)-1]
	}
	return stat.Quantile(p, stat.LinInterp, s.sorted, nil)
}

// Pdf estimates the density through the smoothed point set.
func (s *SampleSet) Pdf(x float64, env Env) (float64, error) {
	p, err := s.ToPointSet(env)
	if err != nil {
		return 0, err
	}
	return p.Pdf(x, env)
}

func (s *SampleSet) Sample(r *rand.Rand) float64 {
	return s.samples[r.IntN(len(s.samples))]
}

func (s *SampleSet) Min() float64         { return s.sorted[0] }
func (s *SampleSet) Max() float64         { return s.sorted[len(s.sorted)-1] }
func (s *SampleSet) IntegralSum() float64 { return 1 }

func (s *SampleSet) ToPointSet(env Env) (*PointSet, error) {
	shape, err := pointset.FromSamples(s.samples, env.XYPointLength)
	if err != nil {
		return nil, &Error{Kind: TooFewSamplesForConversionToPointSet}
	}
	return &PointSet{Shape: shape}, nil
}

func (s *SampleSet) String() string {
	if s.Lineage != "" {
		return fmt.Sprintf("SampleSet(%s)", s.Lineage)
	}
	return fmt.Sprintf("SampleSet(%d samples)", len(s.samples))
}

// Map applies fn to every sample.
func (s *SampleSet) Map(fn func(float64) (float64, error)) (*SampleSet, error) {
	out := make([]float64, len(s.samples))
	for i, v := range s.samples {
		y, err := fn(v)
		if err != nil {
			return nil, err
		}
		out[i] = y
	}
	return newSampleSet(out, "")
}

// Map2 applies fn pairwise; the result is as long as the shorter input.
func Map2(a, b *SampleSet, fn func(float64, float64) (float64, error)) (*SampleSet, error) {
	n := min(len(a.samples), len(b.samples))
	out := make([]float64, n)
	for i := range n {
		y, err := fn(a.samples[i], b.samples[i])
		if err != nil {
			return nil, err
		}
		out[i] = y
	}
	return newSampleSet(out, "")
}

// MapN applies fn across the sets index by index; the result is as long
// as the shortest input.
func MapN(sets []*SampleSet, fn func([]float64) (float64, error)) (*SampleSet, error) {
	if len(sets) == 0 {
		return nil, &Error{Kind: TooFewSamples}
	}
	n := len(sets[0].samples)
	for _, s := range sets[1:] {
		n = min(n, len(s.samples))
	}
	out := make([]float64, n)
	row := make([]float64, len(sets))
	for i := range n {
		for j, s := range sets {
			row[j] = s.samples[i]
		}
		y, err := fn(row)
		if err != nil {
			return nil, err
		}
		out[i] = y
	}
	return newSampleSet(out, "")
}

// Truncate keeps the samples inside [left, right].
func (s *SampleSet) Truncate(left, right *float64) (*SampleSet, error) {
	out := make([]float64, 0, len(s.samples))
	for _, v := range s.samples {
		if left != nil && v < *left {
			continue
		}
		if right != nil && v > *right {
			continue
		}
		out = append(out, v)
	}
	return newSampleSet(out, s.Lineage)
}

// sampleSetMixture picks, for each output sample, a component by weight
// and takes that component's sample at the same index.
func sampleSetMixture(sets []*SampleSet, weights []float64, r *rand.Rand) (*SampleSet, error) {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return nil, argumentError("Mixture weights must sum to a positive number")
	}
	n := len(sets[0].samples)
	for _, s := range sets[1:] {
		n = min(n, len(s.samples))
	}
	out := make([]float64, n)
	for i := range out {
		target := r.Float64() * total
		k := len(sets) - 1
		for j, w := range weights {
			if target < w {
				k = j
				break
			}
			target -= w
		}
		out[i] = sets[k].samples[i]
	}
	return newSampleSet(out, "mixture")
}
