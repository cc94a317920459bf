package pointset

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Discrete is a set of point masses at distinct, sorted xs.
type Discrete struct {
	Shape XYShape
}

// NewDiscrete sorts the points and merges equal xs.
func NewDiscrete(xs, ys []float64) Discrete {
	return Discrete{Shape: fromPairs(xs, ys)}
}

func (d Discrete) IsEmpty() bool { return d.Shape.IsEmpty() }

func (d Discrete) IntegralSum() float64 { return floats.Sum(d.Shape.Ys) }

// MassAt returns the mass sitting exactly at x.
func (d Discrete) MassAt(x float64) float64 {
	i := sort.SearchFloat64s(d.Shape.Xs, x)
	if i < d.Shape.Len() && d.Shape.Xs[i] == x {
		return d.Shape.Ys[i]
	}
	return 0
}

// Integral returns the cumulative mass as a step shape.
func (d Discrete) Integral() XYShape {
	ys := make([]float64, d.Shape.Len())
	floats.CumSum(ys, d.Shape.Ys)
	return XYShape{Xs: d.Shape.Xs, Ys: ys}
}

func (d Discrete) Cdf(x float64) float64 {
	return d.Integral().StepAt(x)
}

func (d Discrete) firstMoment() float64 {
	if d.IsEmpty() {
		return 0
	}
	return floats.Dot(d.Shape.Xs, d.Shape.Ys)
}

func (d Discrete) secondMoment() float64 {
	total := 0.0
	for i, x := range d.Shape.Xs {
		total += x * x * d.Shape.Ys[i]
	}
	return total
}

func (d Discrete) Scale(k float64) Discrete {
	return Discrete{Shape: d.Shape.MapY(func(y float64) float64 { return y * k })}
}

func (d Discrete) Truncate(left, right *float64) Discrete {
	var xs, ys []float64
	for i, x := range d.Shape.Xs {
		if (left == nil || x >= *left) && (right == nil || x <= *right) {
			xs = append(xs, x)
			ys = append(ys, d.Shape.Ys[i])
		}
	}
	return Discrete{Shape: XYShape{Xs: xs, Ys: ys}}
}
