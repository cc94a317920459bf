package dist

import (
	"math/rand/v2"

	"squiggle/interpreter-go/pkg/dist/pointset"
)

// Scale applies op with k to the density of d, as in `d .* 2`. Shifting a
// density vertically is rejected.
func Scale(d Dist, op AlgebraicOp, k float64, env Env) (Dist, error) {
	if op == OpAdd || op == OpSubtract {
		return nil, &Error{Kind: DistributionVerticalShiftIsInvalid}
	}
	p, err := d.ToPointSet(env)
	if err != nil {
		return nil, err
	}
	return p.MapY(func(y float64) (float64, error) { return op.Apply(y, k) })
}

// Pointwise combines the densities of a and b with op at every x. A result
// with negative density is invalid.
func Pointwise(a, b Dist, op AlgebraicOp, env Env) (Dist, error) {
	pa, err := a.ToPointSet(env)
	if err != nil {
		return nil, err
	}
	pb, err := b.ToPointSet(env)
	if err != nil {
		return nil, err
	}
	m, err := pointset.PointwiseCombine(pa.Shape, pb.Shape, func(x, y float64) (float64, error) {
		v, err := op.Apply(x, y)
		if err != nil {
			return 0, err
		}
		if v < 0 {
			return 0, &OperationError{Kind: PdfInvalid}
		}
		return v, nil
	})
	if err != nil {
		return nil, wrapOperation(err)
	}
	return &PointSet{Shape: m}, nil
}

// Mixture weights the components and adds them. When any component is a
// sample set the result is a sample set; otherwise it is a point set.
func Mixture(dists []Dist, weights []float64, env Env, r *rand.Rand) (Dist, error) {
	if len(dists) == 0 {
		return nil, argumentError("Mixture must have at least one distribution")
	}
	if weights == nil {
		weights = make([]float64, len(dists))
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != len(dists) {
		return nil, argumentError("Mixture has %d distributions but %d weights", len(dists), len(weights))
	}
	for _, w := range weights {
		if w < 0 {
			return nil, argumentError("Mixture weights must be non-negative")
		}
	}
	if len(dists) == 1 {
		return dists[0], nil
	}
	anySampleSet := false
	for _, d := range dists {
		anySampleSet = anySampleSet || isSampleSet(d)
	}
	if anySampleSet {
		sets := make([]*SampleSet, len(dists))
		for i, d := range dists {
			s, err := SampleSetFromDist(d, env, r)
			if err != nil {
				return nil, err
			}
			sets[i] = s
		}
		return sampleSetMixture(sets, weights, r)
	}
	shapes := make([]pointset.Mixed, len(dists))
	for i, d := range dists {
		p, err := d.ToPointSet(env)
		if err != nil {
			return nil, err
		}
		shapes[i] = p.Shape
	}
	m, err := pointset.Mixture(shapes, weights)
	if err != nil {
		return nil, argumentError("%s", err.Error())
	}
	return &PointSet{Shape: m}, nil
}
