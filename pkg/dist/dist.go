package dist

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// Dist is implemented by the three representations: symbolic
// distributions, *SampleSet and *PointSet.
type Dist interface {
	Mean() (float64, error)
	Variance() (float64, error)
	Cdf(x float64) float64
	Pdf(x float64, env Env) (float64, error)
	Inv(p float64) float64
	Sample(r *rand.Rand) float64
	Min() float64
	Max() float64
	IntegralSum() float64
	ToPointSet(env Env) (*PointSet, error)
	String() string
}

// Stdev is the square root of the variance.
func Stdev(d Dist) (float64, error) {
	v, err := d.Variance()
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

// SampleN draws n values. Sample sets return their first n samples when
// they have enough of them.
func SampleN(d Dist, n int, r *rand.Rand) []float64 {
	if s, ok := d.(*SampleSet); ok && n <= len(s.samples) {
		return append([]float64(nil), s.samples[:n]...)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = d.Sample(r)
	}
	return out
}

// IsNormalized reports whether the distribution integrates to 1.
func IsNormalized(d Dist) bool {
	return math.Abs(d.IntegralSum()-1) < 1e-7
}

// Normalize rescales point sets to integrate to 1. The other
// representations are always normalized.
func Normalize(d Dist) Dist {
	if p, ok := d.(*PointSet); ok {
		return p.Normalize()
	}
	return d
}

// Truncate restricts d to [left, right]. Sample sets drop samples outside
// the range; other representations go through a point set.
func Truncate(d Dist, left, right *float64, env Env) (Dist, error) {
	if left == nil && right == nil {
		return d, nil
	}
	if left != nil && right != nil && *left >= *right {
		return nil, argumentError("Left truncation bound must be smaller than right truncation bound.")
	}
	switch t := d.(type) {
	case *SampleSet:
		return t.Truncate(left, right)
	case Uniform:
		lo, hi := t.Low, t.High
		if left != nil {
			lo = math.Max(lo, *left)
		}
		if right != nil {
			hi = math.Min(hi, *right)
		}
		if lo < hi {
			return Uniform{Low: lo, High: hi}, nil
		}
	}
	p, err := d.ToPointSet(env)
	if err != nil {
		return nil, err
	}
	return p.Truncate(left, right), nil
}

// Mode returns the most likely value. Closed forms cover the symbolic
// distributions; point sets use their highest density or heaviest mass.
func Mode(d Dist) (float64, error) {
	switch t := d.(type) {
	case Normal:
		return t.gonum(nil).Mode(), nil
	case Lognormal:
		return t.gonum(nil).Mode(), nil
	case Beta:
		m := t.gonum(nil).Mode()
		if math.IsNaN(m) {
			return 0, otherError("Beta distribution with both parameters at most 1 has no unique mode")
		}
		return m, nil
	case Exponential:
		return t.gonum(nil).Mode(), nil
	case Gamma:
		return t.gonum(nil).Mode(), nil
	case Logistic:
		return t.gonum().Mode(), nil
	case Triangular:
		return t.Medium, nil
	case Cauchy:
		return t.Local, nil
	case Bernoulli:
		if t.P > 0.5 {
			return 1, nil
		}
		return 0, nil
	case PointMass:
		return t.Value, nil
	case *PointSet:
		return t.mode()
	}
	return 0, &Error{Kind: NotYetImplemented}
}

func (p *PointSet) mode() (float64, error) {
	c, disc := p.Shape.Continuous, p.Shape.Discrete
	switch {
	case !c.IsEmpty() && !disc.IsEmpty():
		return 0, otherError("Mode of a mixed point set is undefined")
	case !c.IsEmpty():
		return c.Shape.Xs[floats.MaxIdx(c.Shape.Ys)], nil
	case !disc.IsEmpty():
		return disc.Shape.Xs[floats.MaxIdx(disc.Shape.Ys)], nil
	}
	return 0, errEmptyPointSet
}
