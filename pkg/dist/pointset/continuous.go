package pointset

import "math"

// epsilonFloat separates a truncation cutoff from the zero point added
// next to it.
const epsilonFloat = 1e-7

// Continuous is a linearly interpolated density. Its integral need not be 1.
type Continuous struct {
	Shape XYShape
}

func (c Continuous) IsEmpty() bool { return c.Shape.Len() < 2 }

// Integral returns the cumulative integral shape.
func (c Continuous) Integral() XYShape {
	return c.Shape.IntegrateWithTriangles()
}

func (c Continuous) IntegralSum() float64 {
	if c.IsEmpty() {
		return 0
	}
	return c.Integral().LastY()
}

func (c Continuous) Pdf(x float64) float64 {
	return c.Shape.LinearAt(x, UseZero)
}

func (c Continuous) Cdf(x float64) float64 {
	if c.IsEmpty() {
		return 0
	}
	return c.Integral().LinearAt(x, UseOutermostPoints)
}

// integrate sums the exact integral of p(x)·f(x) over every linear piece,
// where f(x) = a + b·x and antiderivative(x, a, b) integrates p·f.
func (c Continuous) integrate(antiderivative func(x, a, b float64) float64) float64 {
	xs, ys := c.Shape.Xs, c.Shape.Ys
	total := 0.0
	for i := 1; i < len(xs); i++ {
		x1, x2 := xs[i-1], xs[i]
		if x1 == x2 {
			continue
		}
		h1, h2 := ys[i-1], ys[i]
		b := (h1 - h2) / (x1 - x2)
		a := h1 - b*x1
		total += antiderivative(x2, a, b) - antiderivative(x1, a, b)
	}
	return total
}

// firstMoment is ∫ x·f(x) dx, not divided by the integral sum.
func (c Continuous) firstMoment() float64 {
	return c.integrate(func(p, a, b float64) float64 {
		return a*p*p/2 + b*p*p*p/3
	})
}

// secondMoment is ∫ x²·f(x) dx.
func (c Continuous) secondMoment() float64 {
	return c.integrate(func(p, a, b float64) float64 {
		return a*p*p*p/3 + b*p*p*p*p/4
	})
}

func (c Continuous) Scale(k float64) Continuous {
	return Continuous{Shape: c.Shape.MapY(func(y float64) float64 { return y * k })}
}

// Truncate keeps the points inside [left, right] and closes the shape with
// zero points just outside the cutoffs.
func (c Continuous) Truncate(left, right *float64) Continuous {
	lc, rc := math.Inf(-1), math.Inf(1)
	if left != nil {
		lc = *left
	}
	if right != nil {
		rc = *right
	}
	var xs, ys []float64
	if left != nil {
		xs = append(xs, lc-epsilonFloat)
		ys = append(ys, 0)
	}
	for i, x := range c.Shape.Xs {
		if x >= lc && x <= rc {
			xs = append(xs, x)
			ys = append(ys, c.Shape.Ys[i])
		}
	}
	if right != nil {
		xs = append(xs, rc+epsilonFloat)
		ys = append(ys, 0)
	}
	return Continuous{Shape: XYShape{Xs: xs, Ys: ys}}
}
