package pointset

import (
	"errors"
	"math"
)

// Mixed is a continuous density plus discrete masses. Either part may be
// empty; both empty is the empty distribution.
type Mixed struct {
	Continuous Continuous
	Discrete   Discrete
}

func (m Mixed) IsEmpty() bool {
	return m.Continuous.IsEmpty() && m.Discrete.IsEmpty()
}

func (m Mixed) IntegralSum() float64 {
	return m.Continuous.IntegralSum() + m.Discrete.IntegralSum()
}

func (m Mixed) MinX() float64 {
	switch {
	case m.Continuous.IsEmpty():
		return m.Discrete.Shape.MinX()
	case m.Discrete.IsEmpty():
		return m.Continuous.Shape.MinX()
	}
	return math.Min(m.Continuous.Shape.MinX(), m.Discrete.Shape.MinX())
}

func (m Mixed) MaxX() float64 {
	switch {
	case m.Continuous.IsEmpty():
		return m.Discrete.Shape.MaxX()
	case m.Discrete.IsEmpty():
		return m.Continuous.Shape.MaxX()
	}
	return math.Max(m.Continuous.Shape.MaxX(), m.Discrete.Shape.MaxX())
}

// Pdf is the continuous density plus any mass sitting exactly at x.
func (m Mixed) Pdf(x float64) float64 {
	return m.Continuous.Pdf(x) + m.Discrete.MassAt(x)
}

func (m Mixed) Cdf(x float64) float64 {
	return m.Continuous.Cdf(x) + m.Discrete.Cdf(x)
}

// Inv returns the smallest x whose cdf reaches p, scaled to the integral
// sum of the shape.
func (m Mixed) Inv(p float64) float64 {
	if m.IsEmpty() {
		return math.NaN()
	}
	target := p * m.IntegralSum()
	if m.Continuous.IsEmpty() {
		cum := m.Discrete.Integral()
		for i, y := range cum.Ys {
			if y >= target-1e-12 {
				return cum.Xs[i]
			}
		}
		return m.Discrete.Shape.MaxX()
	}
	if m.Discrete.IsEmpty() {
		return m.Continuous.Integral().YToXLinear(target)
	}
	lo, hi := m.MinX(), m.MaxX()
	if target <= 0 {
		return lo
	}
	for range 64 {
		mid := lo + (hi-lo)/2
		if m.Cdf(mid) >= target {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi
}

// Mean is undefined for an empty shape.
func (m Mixed) Mean() float64 {
	total := m.IntegralSum()
	if total == 0 {
		return math.NaN()
	}
	return (m.Continuous.firstMoment() + m.Discrete.firstMoment()) / total
}

func (m Mixed) Variance() float64 {
	total := m.IntegralSum()
	if total == 0 {
		return math.NaN()
	}
	mean := m.Mean()
	v := (m.Continuous.secondMoment()+m.Discrete.secondMoment())/total - mean*mean
	if v < 0 {
		// rounding on near point-mass shapes
		return 0
	}
	return v
}

// Normalize scales both parts so the total integral is 1.
func (m Mixed) Normalize() Mixed {
	total := m.IntegralSum()
	if total == 0 || total == 1 {
		return m
	}
	return m.Scale(1 / total)
}

func (m Mixed) Scale(k float64) Mixed {
	return Mixed{Continuous: m.Continuous.Scale(k), Discrete: m.Discrete.Scale(k)}
}

func (m Mixed) Truncate(left, right *float64) Mixed {
	out := Mixed{Discrete: m.Discrete.Truncate(left, right)}
	if !m.Continuous.IsEmpty() {
		out.Continuous = m.Continuous.Truncate(left, right)
	}
	return out
}

// MapY applies fn to the ys of both parts.
func (m Mixed) MapY(fn func(float64) (float64, error)) (Mixed, error) {
	c, err := m.Continuous.Shape.MapYErr(fn)
	if err != nil {
		return Mixed{}, err
	}
	d, err := m.Discrete.Shape.MapYErr(fn)
	if err != nil {
		return Mixed{}, err
	}
	return Mixed{Continuous: Continuous{Shape: c}, Discrete: Discrete{Shape: d}}, nil
}

// PointwiseCombine combines the continuous parts and the discrete parts of
// two shapes separately with fn.
func PointwiseCombine(a, b Mixed, fn func(float64, float64) (float64, error)) (Mixed, error) {
	c, err := CombinePointwise(a.Continuous.Shape, b.Continuous.Shape, UseZero, fn)
	if err != nil {
		return Mixed{}, err
	}
	d, err := combineDiscretePointwise(a.Discrete.Shape, b.Discrete.Shape, fn)
	if err != nil {
		return Mixed{}, err
	}
	return Mixed{Continuous: Continuous{Shape: c}, Discrete: Discrete{Shape: d}}, nil
}

// Discrete masses only exist at their own xs, so missing points count as 0.
func combineDiscretePointwise(a, b XYShape, fn func(float64, float64) (float64, error)) (XYShape, error) {
	xs := unionXs(a.Xs, b.Xs)
	ys := make([]float64, len(xs))
	da, db := Discrete{Shape: a}, Discrete{Shape: b}
	for i, x := range xs {
		v, err := fn(da.MassAt(x), db.MassAt(x))
		if err != nil {
			return XYShape{}, err
		}
		ys[i] = v
	}
	return XYShape{Xs: xs, Ys: ys}, nil
}

var errNoMixtureComponents = errors.New("mixture needs at least one component")

// Mixture adds normalized shapes scaled by their weights. Weights are
// normalized to sum to 1.
func Mixture(shapes []Mixed, weights []float64) (Mixed, error) {
	if len(shapes) == 0 || len(shapes) != len(weights) {
		return Mixed{}, errNoMixtureComponents
	}
	totalWeight := 0.0
	for _, w := range weights {
		totalWeight += w
	}
	if totalWeight <= 0 {
		return Mixed{}, errors.New("mixture weights must sum to a positive number")
	}
	var out Mixed
	for i, s := range shapes {
		scaled := s.Normalize().Scale(weights[i] / totalWeight)
		out = Mixed{
			Continuous: Continuous{Shape: addShapes(out.Continuous.Shape, scaled.Continuous.Shape)},
			Discrete:   addDiscrete(out.Discrete, scaled.Discrete),
		}
	}
	return out, nil
}

func addDiscrete(a, b Discrete) Discrete {
	xs := append(append([]float64{}, a.Shape.Xs...), b.Shape.Xs...)
	ys := append(append([]float64{}, a.Shape.Ys...), b.Shape.Ys...)
	return NewDiscrete(xs, ys)
}
