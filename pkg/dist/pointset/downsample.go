package pointset

import (
	"math"
	"sort"
)

// Downsample keeps at most n points, placed at evenly spaced quantiles of
// the density. Shapes already at or below n points are returned as is.
func (c Continuous) Downsample(n int) Continuous {
	if c.IsEmpty() || n < 2 || n >= c.Shape.Len() {
		return c
	}
	integral := c.Integral()
	total := integral.LastY()
	if total <= 0 {
		return c
	}
	xs := make([]float64, 0, n)
	for i := range n {
		x := integral.YToXLinear(total * float64(i) / float64(n-1))
		if len(xs) > 0 && x <= xs[len(xs)-1] {
			continue
		}
		xs = append(xs, x)
	}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = c.Shape.LinearAt(x, UseZero)
	}
	return Continuous{Shape: XYShape{Xs: xs, Ys: ys}}
}

// Downsample keeps the n heaviest masses.
func (d Discrete) Downsample(n int) Discrete {
	size := d.Shape.Len()
	if n < 1 || n >= size || size <= 1 {
		return d
	}
	idx := make([]int, size)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return d.Shape.Ys[idx[a]] > d.Shape.Ys[idx[b]] })
	kept := idx[:n]
	sort.Ints(kept)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, k := range kept {
		xs[i], ys[i] = d.Shape.Xs[k], d.Shape.Ys[k]
	}
	return Discrete{Shape: XYShape{Xs: xs, Ys: ys}}
}

// Downsample splits count between the two parts by their share of the
// total mass.
func (m Mixed) Downsample(count int) Mixed {
	dSum := m.Discrete.IntegralSum()
	cSum := m.Continuous.IntegralSum()
	total := dSum + cSum
	if total <= 0 {
		return m
	}
	return Mixed{
		Continuous: m.Continuous.Downsample(int(math.Floor(float64(count) * cSum / total))),
		Discrete:   m.Discrete.Downsample(int(math.Floor(float64(count) * dSum / total))),
	}
}
