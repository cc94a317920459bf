// Package pointset holds the numeric shapes behind point-set distributions:
// sorted (x, y) arrays for continuous densities and discrete masses, their
// integrals, pointwise and algebraic combination, and kernel density
// estimation from samples.
package pointset

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// XYShape is a pair of equally long arrays with non-decreasing xs.
type XYShape struct {
	Xs []float64
	Ys []float64
}

// ShapeError reports an invalid XYShape.
type ShapeError struct {
	Message string
}

func (e *ShapeError) Error() string { return e.Message }

var errEmptyShape = errors.New("pointset: empty shape")

// MakeShape validates xs and ys and returns the shape.
func MakeShape(xs, ys []float64) (XYShape, error) {
	if len(xs) != len(ys) {
		return XYShape{}, &ShapeError{Message: fmt.Sprintf("XYShape has different lengths: %d xs, %d ys", len(xs), len(ys))}
	}
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return XYShape{}, &ShapeError{Message: "XYShape xs contain non-finite values"}
		}
		if math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			return XYShape{}, &ShapeError{Message: "XYShape ys contain non-finite values"}
		}
		if i > 0 && xs[i-1] > x {
			return XYShape{}, &ShapeError{Message: "XYShape xs are not sorted"}
		}
	}
	return XYShape{Xs: xs, Ys: ys}, nil
}

func (s XYShape) Len() int { return len(s.Xs) }

func (s XYShape) IsEmpty() bool { return len(s.Xs) == 0 }

func (s XYShape) MinX() float64 {
	if s.IsEmpty() {
		return math.NaN()
	}
	return s.Xs[0]
}

func (s XYShape) MaxX() float64 {
	if s.IsEmpty() {
		return math.NaN()
	}
	return s.Xs[len(s.Xs)-1]
}

func (s XYShape) LastY() float64 {
	if s.IsEmpty() {
		return 0
	}
	return s.Ys[len(s.Ys)-1]
}

// MapY applies fn to every y.
func (s XYShape) MapY(fn func(float64) float64) XYShape {
	ys := make([]float64, len(s.Ys))
	for i, y := range s.Ys {
		ys[i] = fn(y)
	}
	return XYShape{Xs: s.Xs, Ys: ys}
}

// MapYErr is MapY for a fallible fn.
func (s XYShape) MapYErr(fn func(float64) (float64, error)) (XYShape, error) {
	ys := make([]float64, len(s.Ys))
	for i, y := range s.Ys {
		v, err := fn(y)
		if err != nil {
			return XYShape{}, err
		}
		ys[i] = v
	}
	return XYShape{Xs: s.Xs, Ys: ys}, nil
}

// Extrapolation controls the value of a linear interpolation outside the
// x range.
type Extrapolation int

const (
	UseZero Extrapolation = iota
	UseOutermostPoints
)

// LinearAt interpolates y at x.
func (s XYShape) LinearAt(x float64, ext Extrapolation) float64 {
	n := len(s.Xs)
	if n == 0 {
		return 0
	}
	if x < s.Xs[0] {
		if ext == UseZero {
			return 0
		}
		return s.Ys[0]
	}
	if x > s.Xs[n-1] {
		if ext == UseZero {
			return 0
		}
		return s.Ys[n-1]
	}
	// first index with Xs[i] >= x
	i := sort.SearchFloat64s(s.Xs, x)
	if s.Xs[i] == x {
		// with repeated xs take the last one, so a jump is right-continuous
		for i+1 < n && s.Xs[i+1] == x {
			i++
		}
		return s.Ys[i]
	}
	x0, x1 := s.Xs[i-1], s.Xs[i]
	y0, y1 := s.Ys[i-1], s.Ys[i]
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

// StepAt returns the y of the last point with Xs <= x, or 0 before the
// first point.
func (s XYShape) StepAt(x float64) float64 {
	i := sort.Search(len(s.Xs), func(i int) bool { return s.Xs[i] > x })
	if i == 0 {
		return 0
	}
	return s.Ys[i-1]
}

// YToXLinear inverts a non-decreasing shape such as a cumulative integral.
func (s XYShape) YToXLinear(y float64) float64 {
	n := len(s.Ys)
	if n == 0 {
		return math.NaN()
	}
	if y <= s.Ys[0] {
		return s.Xs[0]
	}
	if y >= s.Ys[n-1] {
		return s.Xs[n-1]
	}
	i := sort.SearchFloat64s(s.Ys, y)
	if s.Ys[i] == y {
		return s.Xs[i]
	}
	x0, x1 := s.Xs[i-1], s.Xs[i]
	y0, y1 := s.Ys[i-1], s.Ys[i]
	if y1 == y0 {
		return x0
	}
	return x0 + (x1-x0)*(y-y0)/(y1-y0)
}

// IntegrateWithTriangles returns the running integral of a linearly
// interpolated density.
func (s XYShape) IntegrateWithTriangles() XYShape {
	n := len(s.Xs)
	if n == 0 {
		return XYShape{}
	}
	ys := make([]float64, n)
	for i := 1; i < n; i++ {
		ys[i] = ys[i-1] + (s.Xs[i]-s.Xs[i-1])*(s.Ys[i]+s.Ys[i-1])/2
	}
	return XYShape{Xs: s.Xs, Ys: ys}
}

// unionXs merges two sorted x arrays, dropping duplicates.
func unionXs(a, b []float64) []float64 {
	out := make([]float64, 0, len(a)+len(b))
	i, j := 0, 0
	push := func(x float64) {
		if len(out) == 0 || out[len(out)-1] != x {
			out = append(out, x)
		}
	}
	for i < len(a) || j < len(b) {
		switch {
		case j >= len(b) || (i < len(a) && a[i] <= b[j]):
			push(a[i])
			i++
		default:
			push(b[j])
			j++
		}
	}
	return out
}

// CombinePointwise evaluates fn at every x of either shape, interpolating
// each shape linearly.
func CombinePointwise(a, b XYShape, ext Extrapolation, fn func(float64, float64) (float64, error)) (XYShape, error) {
	if a.IsEmpty() && b.IsEmpty() {
		return XYShape{}, nil
	}
	xs := unionXs(a.Xs, b.Xs)
	ys := make([]float64, len(xs))
	for i, x := range xs {
		v, err := fn(a.LinearAt(x, ext), b.LinearAt(x, ext))
		if err != nil {
			return XYShape{}, err
		}
		ys[i] = v
	}
	return XYShape{Xs: xs, Ys: ys}, nil
}

func addShapes(a, b XYShape) XYShape {
	out, _ := CombinePointwise(a, b, UseZero, func(x, y float64) (float64, error) { return x + y, nil })
	return out
}

// fromPairs sorts (x, y) pairs by x and sums the ys of equal xs.
func fromPairs(xs, ys []float64) XYShape {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })
	outX := make([]float64, 0, len(xs))
	outY := make([]float64, 0, len(xs))
	for _, i := range idx {
		if n := len(outX); n > 0 && outX[n-1] == xs[i] {
			outY[n-1] += ys[i]
			continue
		}
		outX = append(outX, xs[i])
		outY = append(outY, ys[i])
	}
	return XYShape{Xs: outX, Ys: outY}
}
