package pointset

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ConvolutionOp is an algebraic operation that convolution supports.
type ConvolutionOp int

const (
	ConvAdd ConvolutionOp = iota
	ConvSubtract
	ConvMultiply
)

func (op ConvolutionOp) apply(a, b float64) float64 {
	switch op {
	case ConvAdd:
		return a + b
	case ConvSubtract:
		return a - b
	default:
		return a * b
	}
}

func (op ConvolutionOp) String() string {
	switch op {
	case ConvAdd:
		return "Add"
	case ConvSubtract:
		return "Subtract"
	default:
		return "Multiply"
	}
}

const (
	convolutionOutputPoints = 300
	// 90% two-sided score, used to bound each Gaussian contribution
	boundScore = 1.644854
)

type pointMoments struct {
	masses    []float64
	means     []float64
	variances []float64
}

// triangularMoments approximates a linear density as overlapping triangles,
// one per point, each summarized by its mass, mean and variance.
func triangularMoments(s XYShape) pointMoments {
	n := s.Len()
	xs := make([]float64, 0, n+2)
	ys := make([]float64, 0, n+2)
	xs = append(append(append(xs, s.Xs[0]), s.Xs...), s.Xs[n-1])
	ys = append(append(append(ys, s.Ys[0]), s.Ys...), s.Ys[n-1])
	out := pointMoments{
		masses:    make([]float64, n),
		means:     make([]float64, n),
		variances: make([]float64, n),
	}
	for i := 1; i <= n; i++ {
		a, c, b := xs[i-1], xs[i], xs[i+1]
		out.masses[i-1] = (b - a) * ys[i] / 2
		out.means[i-1] = (a + b + c) / 3
		out.variances[i-1] = (a*a + b*b + c*c - a*c - c*b - a*b) / 18
	}
	return out
}

// convolveContinuous combines two densities by convolving their triangle
// moments and re-spreading every pair as a Gaussian on an even grid.
func convolveContinuous(op ConvolutionOp, s1, s2 XYShape) XYShape {
	if s1.Len() < 2 || s2.Len() < 2 {
		return XYShape{}
	}
	t1 := triangularMoments(s1)
	t2 := triangularMoments(s2)
	size := len(t1.masses) * len(t2.masses)
	masses := make([]float64, size)
	means := make([]float64, size)
	variances := make([]float64, size)
	minX, maxX := math.Inf(1), math.Inf(-1)
	for i := range t1.masses {
		for j := range t2.masses {
			k := i*len(t2.masses) + j
			m1, m2 := t1.means[i], t2.means[j]
			v1, v2 := t1.variances[i], t2.variances[j]
			masses[k] = t1.masses[i] * t2.masses[j]
			means[k] = op.apply(m1, m2)
			if op == ConvMultiply {
				variances[k] = v1*v2 + v1*m2*m2 + v2*m1*m1
			} else {
				variances[k] = v1 + v2
			}
			spread := 2 * math.Sqrt(variances[k]) * boundScore
			minX = math.Min(minX, means[k]-spread)
			maxX = math.Max(maxX, means[k]+spread)
		}
	}
	if !(minX < maxX) {
		return XYShape{}
	}
	xs := floats.Span(make([]float64, convolutionOutputPoints), minX, maxX)
	ys := make([]float64, convolutionOutputPoints)
	for j, mass := range masses {
		if variances[j] <= 0 || mass <= 0 {
			continue
		}
		norm := mass / math.Sqrt(2*math.Pi*variances[j])
		for i, x := range xs {
			dx := x - means[j]
			ys[i] += norm * math.Exp(-dx*dx/(2*variances[j]))
		}
	}
	return XYShape{Xs: xs, Ys: ys}
}

// convolveWithDiscrete shifts or scales a copy of the density for every
// discrete point and adds the copies together. discreteFirst says the
// discrete operand is on the left of op.
func convolveWithDiscrete(op ConvolutionOp, c XYShape, d XYShape, discreteFirst bool) XYShape {
	n := c.Len()
	var acc XYShape
	for j, dx := range d.Xs {
		dy := d.Ys[j]
		if op == ConvMultiply && dx == 0 {
			continue
		}
		xs := make([]float64, n)
		ys := make([]float64, n)
		reverse := (op == ConvSubtract && discreteFirst) || (op == ConvMultiply && dx < 0)
		for i := 0; i < n; i++ {
			idx := i
			if reverse {
				idx = n - 1 - i
			}
			if discreteFirst {
				xs[idx] = op.apply(dx, c.Xs[i])
			} else {
				xs[idx] = op.apply(c.Xs[i], dx)
			}
			ys[idx] = c.Ys[i] * dy
			if op == ConvMultiply {
				ys[idx] /= math.Abs(dx)
			}
		}
		acc = addShapes(acc, XYShape{Xs: xs, Ys: ys})
	}
	return acc
}

func convolveDiscrete(op ConvolutionOp, a, b XYShape) XYShape {
	xs := make([]float64, 0, a.Len()*b.Len())
	ys := make([]float64, 0, a.Len()*b.Len())
	for i, x1 := range a.Xs {
		for j, x2 := range b.Xs {
			xs = append(xs, op.apply(x1, x2))
			ys = append(ys, a.Ys[i]*b.Ys[j])
		}
	}
	return fromPairs(xs, ys)
}

// CombineAlgebraically returns the distribution of `a op b` for independent
// a and b.
func CombineAlgebraically(op ConvolutionOp, a, b Mixed) Mixed {
	cont := convolveContinuous(op, a.Continuous.Shape, b.Continuous.Shape)
	if !a.Discrete.IsEmpty() && !b.Continuous.IsEmpty() {
		cont = addShapes(cont, convolveWithDiscrete(op, b.Continuous.Shape, a.Discrete.Shape, true))
	}
	if !b.Discrete.IsEmpty() && !a.Continuous.IsEmpty() {
		cont = addShapes(cont, convolveWithDiscrete(op, a.Continuous.Shape, b.Discrete.Shape, false))
	}
	disc := Discrete{Shape: convolveDiscrete(op, a.Discrete.Shape, b.Discrete.Shape)}
	if op == ConvMultiply {
		// A continuous part times a point mass at zero collapses onto zero.
		zeroMass := a.Discrete.MassAt(0)*b.Continuous.IntegralSum() + b.Discrete.MassAt(0)*a.Continuous.IntegralSum()
		if zeroMass > 0 {
			disc = addDiscrete(disc, Discrete{Shape: XYShape{Xs: []float64{0}, Ys: []float64{zeroMass}}})
		}
	}
	return Mixed{Continuous: Continuous{Shape: cont}, Discrete: disc}
}
