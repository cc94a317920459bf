package dist

import (
	"fmt"
	"math/rand/v2"

	"squiggle/interpreter-go/pkg/dist/pointset"
)

// PointSet is a distribution given by a piecewise-linear continuous density
// plus discrete point masses.
type PointSet struct {
	Shape pointset.Mixed
}

// NewContinuousPointSet builds a point set from a density curve.
func NewContinuousPointSet(xs, ys []float64) (*PointSet, error) {
	return newContinuousPointSet(xs, ys)
}

// NewDiscretePointSet builds a point set from point masses.
func NewDiscretePointSet(xs, ys []float64) (*PointSet, error) {
	if len(xs) != len(ys) {
		return nil, &Error{Kind: XYShapeError, Message: fmt.Sprintf("xs has length %d and ys has length %d", len(xs), len(ys))}
	}
	d := pointset.NewDiscrete(xs, ys)
	if _, err := pointset.MakeShape(d.Shape.Xs, d.Shape.Ys); err != nil {
		return nil, &Error{Kind: XYShapeError, Message: err.Error()}
	}
	return &PointSet{Shape: pointset.Mixed{Discrete: d}}, nil
}

var errEmptyPointSet = otherError("Point set is empty")

func (p *PointSet) Mean() (float64, error) {
	if p.Shape.IsEmpty() {
		return 0, errEmptyPointSet
	}
	return p.Shape.Mean(), nil
}

func (p *PointSet) Variance() (float64, error) {
	if p.Shape.IsEmpty() {
		return 0, errEmptyPointSet
	}
	return p.Shape.Variance(), nil
}

func (p *PointSet) Cdf(x float64) float64 { return p.Shape.Cdf(x) }
func (p *PointSet) Inv(q float64) float64 { return p.Shape.Inv(q) }

func (p *PointSet) Pdf(x float64, _ Env) (float64, error) { return p.Shape.Pdf(x), nil }

func (p *PointSet) Sample(r *rand.Rand) float64 { return p.Shape.Inv(r.Float64()) }

func (p *PointSet) Min() float64                      { return p.Shape.MinX() }
func (p *PointSet) Max() float64                      { return p.Shape.MaxX() }
func (p *PointSet) IntegralSum() float64              { return p.Shape.IntegralSum() }
func (p *PointSet) ToPointSet(Env) (*PointSet, error) { return p, nil }

func (p *PointSet) String() string {
	return fmt.Sprintf("PointSet(%d continuous points, %d discrete points)",
		p.Shape.Continuous.Shape.Len(), p.Shape.Discrete.Shape.Len())
}

func (p *PointSet) Normalize() *PointSet {
	return &PointSet{Shape: p.Shape.Normalize()}
}

// Truncate cuts the shape at the bounds and renormalizes what remains.
func (p *PointSet) Truncate(left, right *float64) *PointSet {
	return &PointSet{Shape: p.Shape.Truncate(left, right).Normalize()}
}

// MapY applies fn to every density and mass value.
func (p *PointSet) MapY(fn func(float64) (float64, error)) (*PointSet, error) {
	m, err := p.Shape.MapY(fn)
	if err != nil {
		return nil, wrapOperation(err)
	}
	return &PointSet{Shape: m}, nil
}

// Downsample reduces the shape to about n points.
func (p *PointSet) Downsample(n int) *PointSet {
	return &PointSet{Shape: p.Shape.Downsample(n)}
}
