package dist

import (
	"fmt"
	"math"
	"math/rand/v2"

	"squiggle/interpreter-go/pkg/dist/pointset"
)

// Strategy forces how Combine evaluates an operation.
type Strategy int

const (
	AsDefault Strategy = iota
	AsSymbolic
	AsConvolution
	AsMonteCarlo
)

func (s Strategy) String() string {
	switch s {
	case AsSymbolic:
		return "symbolic"
	case AsConvolution:
		return "convolution"
	case AsMonteCarlo:
		return "monte-carlo"
	default:
		return "default"
	}
}

// convolutionCost estimates how many points a representation contributes
// to a convolution.
func convolutionCost(d Dist) int {
	switch t := d.(type) {
	case PointMass:
		return 1
	case Symbolic:
		return 1000
	case *PointSet:
		switch {
		case t.Shape.Continuous.IsEmpty():
			return t.Shape.Discrete.Shape.Len()
		default:
			return 1000
		}
	}
	return 1000
}

func isSampleSet(d Dist) bool {
	_, ok := d.(*SampleSet)
	return ok
}

// chooseStrategy picks convolution or Monte Carlo once no symbolic rule
// applied.
func chooseStrategy(a, b Dist, op AlgebraicOp, env Env) Strategy {
	if isSampleSet(a) || isSampleSet(b) {
		return AsMonteCarlo
	}
	if _, ok := op.convolution(); ok && convolutionCost(a)*convolutionCost(b) < env.SampleCount {
		return AsConvolution
	}
	return AsMonteCarlo
}

// Combine evaluates `a op b` for independent a and b.
func Combine(a, b Dist, op AlgebraicOp, env Env, r *rand.Rand, strategy Strategy) (Dist, error) {
	if err := validateInputs(a, b, op); err != nil {
		return nil, err
	}
	switch strategy {
	case AsSymbolic:
		d, ok, err := trySymbolic(a, b, op)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &Error{Kind: RequestedStrategyInvalid, Message: "No analytic solution for inputs"}
		}
		return d, nil
	case AsConvolution:
		if _, ok := op.convolution(); !ok {
			return nil, &Error{Kind: RequestedStrategyInvalid, Message: "Convolution not supported for " + op.String()}
		}
		return convolve(a, b, op, env)
	case AsMonteCarlo:
		return monteCarlo(a, b, op, env, r)
	case AsDefault:
		d, ok, err := trySymbolic(a, b, op)
		if err != nil {
			return nil, err
		}
		if ok {
			return d, nil
		}
		switch chooseStrategy(a, b, op, env) {
		case AsConvolution:
			return convolve(a, b, op, env)
		case AsMonteCarlo:
			return monteCarlo(a, b, op, env, r)
		}
	}
	return nil, ErrUnreachable
}

// The logarithm of a distribution is only defined when all of its mass is
// positive.
func validateInputs(a, b Dist, op AlgebraicOp) error {
	if op != OpLogarithm {
		return nil
	}
	if a.Cdf(1e-10) > 0 {
		return &Error{Kind: LogarithmOfDistribution, Message: "First input must be completely greater than 0"}
	}
	if b.Cdf(1e-10) > 0 {
		return &Error{Kind: LogarithmOfDistribution, Message: "Second input must be completely greater than 0"}
	}
	return nil
}

func convolve(a, b Dist, op AlgebraicOp, env Env) (Dist, error) {
	cop, _ := op.convolution()
	pa, err := a.ToPointSet(env)
	if err != nil {
		return nil, err
	}
	pb, err := b.ToPointSet(env)
	if err != nil {
		return nil, err
	}
	return &PointSet{Shape: pointset.CombineAlgebraically(cop, pa.Shape, pb.Shape)}, nil
}

func monteCarlo(a, b Dist, op AlgebraicOp, env Env, r *rand.Rand) (Dist, error) {
	sa, err := SampleSetFromDist(a, env, r)
	if err != nil {
		return nil, err
	}
	sb, err := SampleSetFromDist(b, env, r)
	if err != nil {
		return nil, err
	}
	out, err := Map2(sa, sb, op.Apply)
	if err != nil {
		return nil, wrapOperation(err)
	}
	out.Lineage = fmt.Sprintf("%s %s %s", lineage(a), op.Symbol(), lineage(b))
	return out, nil
}

func lineage(d Dist) string {
	if s, ok := d.(*SampleSet); ok && s.Lineage != "" {
		return "(" + s.Lineage + ")"
	}
	return d.String()
}

// trySymbolic applies the closed-form rules. ok is false when no rule
// matches the pair.
func trySymbolic(a, b Dist, op AlgebraicOp) (Dist, bool, error) {
	switch x := a.(type) {
	case PointMass:
		switch y := b.(type) {
		case PointMass:
			v, err := op.Apply(x.Value, y.Value)
			if err != nil {
				return nil, false, wrapOperation(err)
			}
			return PointMass{Value: v}, true, nil
		case Normal:
			return floatNormal(x.Value, y, op)
		case Lognormal:
			return floatLognormal(x.Value, y, op)
		case Uniform:
			return floatUniform(x.Value, y, op)
		}
	case Normal:
		switch y := b.(type) {
		case Normal:
			sigma := math.Hypot(x.Sigma, y.Sigma)
			switch op {
			case OpAdd:
				return Normal{Mu: x.Mu + y.Mu, Sigma: sigma}, true, nil
			case OpSubtract:
				return Normal{Mu: x.Mu - y.Mu, Sigma: sigma}, true, nil
			}
		case PointMass:
			return normalFloat(x, y.Value, op)
		}
	case Lognormal:
		switch y := b.(type) {
		case Lognormal:
			sigma := math.Hypot(x.Sigma, y.Sigma)
			switch op {
			case OpMultiply:
				return Lognormal{Mu: x.Mu + y.Mu, Sigma: sigma}, true, nil
			case OpDivide:
				return Lognormal{Mu: x.Mu - y.Mu, Sigma: sigma}, true, nil
			}
		case PointMass:
			if y.Value > 0 {
				switch op {
				case OpMultiply:
					return Lognormal{Mu: x.Mu + math.Log(y.Value), Sigma: x.Sigma}, true, nil
				case OpDivide:
					return Lognormal{Mu: x.Mu - math.Log(y.Value), Sigma: x.Sigma}, true, nil
				}
			}
		}
	case Uniform:
		if y, ok := b.(PointMass); ok {
			return uniformFloat(x, y.Value, op)
		}
	}
	return nil, false, nil
}

func normalFloat(n Normal, f float64, op AlgebraicOp) (Dist, bool, error) {
	switch op {
	case OpAdd:
		return Normal{Mu: n.Mu + f, Sigma: n.Sigma}, true, nil
	case OpSubtract:
		return Normal{Mu: n.Mu - f, Sigma: n.Sigma}, true, nil
	case OpMultiply:
		if f != 0 {
			return Normal{Mu: n.Mu * f, Sigma: n.Sigma * math.Abs(f)}, true, nil
		}
	case OpDivide:
		if f != 0 {
			return Normal{Mu: n.Mu / f, Sigma: n.Sigma / math.Abs(f)}, true, nil
		}
	}
	return nil, false, nil
}

func floatNormal(f float64, n Normal, op AlgebraicOp) (Dist, bool, error) {
	switch op {
	case OpAdd:
		return Normal{Mu: f + n.Mu, Sigma: n.Sigma}, true, nil
	case OpSubtract:
		return Normal{Mu: f - n.Mu, Sigma: n.Sigma}, true, nil
	case OpMultiply:
		if f != 0 {
			return Normal{Mu: f * n.Mu, Sigma: n.Sigma * math.Abs(f)}, true, nil
		}
	}
	return nil, false, nil
}

func floatLognormal(f float64, l Lognormal, op AlgebraicOp) (Dist, bool, error) {
	if f <= 0 {
		return nil, false, nil
	}
	switch op {
	case OpMultiply:
		return Lognormal{Mu: math.Log(f) + l.Mu, Sigma: l.Sigma}, true, nil
	case OpDivide:
		return Lognormal{Mu: math.Log(f) - l.Mu, Sigma: l.Sigma}, true, nil
	}
	return nil, false, nil
}

func uniformFloat(u Uniform, f float64, op AlgebraicOp) (Dist, bool, error) {
	switch op {
	case OpAdd:
		return Uniform{Low: u.Low + f, High: u.High + f}, true, nil
	case OpSubtract:
		return Uniform{Low: u.Low - f, High: u.High - f}, true, nil
	case OpMultiply:
		return scaledUniform(u, f)
	case OpDivide:
		if f != 0 {
			return scaledUniform(u, 1/f)
		}
	}
	return nil, false, nil
}

func floatUniform(f float64, u Uniform, op AlgebraicOp) (Dist, bool, error) {
	switch op {
	case OpAdd:
		return Uniform{Low: f + u.Low, High: f + u.High}, true, nil
	case OpSubtract:
		return Uniform{Low: f - u.High, High: f - u.Low}, true, nil
	case OpMultiply:
		return scaledUniform(u, f)
	}
	return nil, false, nil
}

func scaledUniform(u Uniform, k float64) (Dist, bool, error) {
	switch {
	case k > 0:
		return Uniform{Low: u.Low * k, High: u.High * k}, true, nil
	case k < 0:
		return Uniform{Low: u.High * k, High: u.Low * k}, true, nil
	}
	return nil, false, nil
}
