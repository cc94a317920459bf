package pointset

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

const (
	minContinuousSamples = 5
	minDiscreteWeight    = 20
)

// FromSamples builds a mixed shape from samples. Values repeated often
// enough become point masses; the rest are smoothed with a triangular kernel
// onto outputLength points. The result integrates to 1.
func FromSamples(samples []float64, outputLength int) (Mixed, error) {
	sorted := make([]float64, 0, len(samples))
	for _, s := range samples {
		if !math.IsNaN(s) && !math.IsInf(s, 0) {
			sorted = append(sorted, s)
		}
	}
	if len(sorted) == 0 {
		return Mixed{}, errEmptyShape
	}
	slices.Sort(sorted)
	n := float64(len(sorted))

	threshold := max(minDiscreteWeight, len(sorted)/50)
	var discXs, discYs, continuous []float64
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if j-i >= threshold {
			discXs = append(discXs, sorted[i])
			discYs = append(discYs, float64(j-i)/n)
		} else {
			continuous = append(continuous, sorted[i:j]...)
		}
		i = j
	}

	out := Mixed{}
	if len(continuous) <= minContinuousSamples || continuous[0] == continuous[len(continuous)-1] {
		// Too few distinct values to smooth; keep them as masses.
		for _, v := range continuous {
			discXs = append(discXs, v)
			discYs = append(discYs, 1/n)
		}
	} else {
		weight := float64(len(continuous)) / n
		out.Continuous = Continuous{Shape: kde(continuous, outputLength, nrd0(continuous), weight)}
	}
	out.Discrete = NewDiscrete(discXs, discYs)
	if out.IsEmpty() {
		return Mixed{}, errEmptyShape
	}
	return out, nil
}

// nrd0 is the rule-of-thumb bandwidth 0.9·min(sd, iqr/1.34)·n^-1/5 for
// sorted samples.
func nrd0(sorted []float64) float64 {
	hi := stat.StdDev(sorted, nil)
	iqr := stat.Quantile(0.75, stat.LinInterp, sorted, nil) - stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	lo := math.Min(hi, iqr/1.34)
	if !(lo > 0) {
		lo = hi
	}
	if !(lo > 0) {
		lo = math.Abs(sorted[0])
	}
	if !(lo > 0) {
		lo = 1
	}
	return 0.9 * lo * math.Pow(float64(len(sorted)), -0.2)
}

// kde bins sorted samples linearly onto an even grid and convolves the bins
// with a triangular kernel of half-width h. The first and last returned
// points are zero and the shape integrates to weight.
func kde(sorted []float64, outputLength int, h float64, weight float64) XYShape {
	inner := max(outputLength-2, 3)
	lo := sorted[0] - h
	hi := sorted[len(sorted)-1] + h
	dx := (hi - lo) / float64(inner-1)

	bins := make([]float64, inner)
	for _, s := range sorted {
		pos := (s - lo) / dx
		i := int(math.Floor(pos))
		if i >= inner-1 {
			bins[inner-1]++
			continue
		}
		frac := pos - float64(i)
		bins[i] += 1 - frac
		bins[i+1] += frac
	}

	width := math.Max(h/dx, 1)
	reach := int(math.Floor(width))
	kernel := make([]float64, 2*reach+1)
	for d := -reach; d <= reach; d++ {
		kernel[d+reach] = math.Max(0, 1-math.Abs(float64(d))/width)
	}

	xs := make([]float64, inner+2)
	ys := make([]float64, inner+2)
	xs[0] = lo - dx
	xs[inner+1] = hi + dx
	for i := 0; i < inner; i++ {
		xs[i+1] = lo + float64(i)*dx
		sum := 0.0
		for d := -reach; d <= reach; d++ {
			if j := i + d; j >= 0 && j < inner {
				sum += bins[j] * kernel[d+reach]
			}
		}
		ys[i+1] = sum
	}

	shape := XYShape{Xs: xs, Ys: ys}
	area := shape.IntegrateWithTriangles().LastY()
	if area > 0 {
		shape = shape.MapY(func(y float64) float64 { return y * weight / area })
	}
	return shape
}
