package library

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/combin"
	"gonum.org/v1/gonum/stat/distuv"

	"squiggle/interpreter-go/pkg/dist"
	"squiggle/interpreter-go/pkg/runtime"
)

func choose(n, k float64) (float64, error) {
	if n < 0 || k < 0 || k > n {
		return 0, argumentError("choose requires 0 <= k <= n, got n=%s, k=%s", runtime.FormatNumber(n), runtime.FormatNumber(k))
	}
	return combin.GeneralizedBinomial(n, k), nil
}

// combinationsOf returns the k-element subsets of elems in lexicographic
// order of their indices.
func combinationsOf(elems []runtime.Value, k int) ([]runtime.Value, error) {
	if k > len(elems) {
		return nil, argumentError("Combinations of length %d were requested, but full list is only %d long.", k, len(elems))
	}
	if combin.GeneralizedBinomial(float64(len(elems)), float64(k)) > maxListLength {
		return nil, argumentError("Too many combinations of length %d from %d elements", k, len(elems))
	}
	var out []runtime.Value
	gen := combin.NewCombinationGenerator(len(elems), k)
	idx := make([]int, k)
	for gen.Next() {
		gen.Combination(idx)
		comb := make([]runtime.Value, k)
		for i, j := range idx {
			comb[i] = elems[j]
		}
		out = append(out, runtime.NewArray(comb))
	}
	return out, nil
}

// integrate applies the trapezoidal rule to fn over points evenly spaced
// from lo to hi, endpoints included.
func integrate(ctx *runtime.CallContext, fn runtime.LambdaValue, lo, hi float64, points int) (float64, error) {
	if points < 2 {
		return 0, otherError("Integration requires at least 2 points, got %d", points)
	}
	at := func(x float64) (float64, error) {
		y, err := callNumber(ctx, fn, runtime.Number(x))
		if err != nil && runtime.KindOf(err) == runtime.ErrExpectedType {
			return 0, otherError("Integrated function must return a number; integrate {|x| mean(f(x))} for a function returning distributions")
		}
		return y, err
	}
	step := (hi - lo) / float64(points-1)
	yLo, err := at(lo)
	if err != nil {
		return 0, err
	}
	yHi, err := at(hi)
	if err != nil {
		return 0, err
	}
	inner := 0.0
	for i := 1; i < points-1; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		y, err := at(lo + float64(i)*step)
		if err != nil {
			return 0, err
		}
		inner += y
	}
	return (yLo+yHi)*step/2 + inner*step, nil
}

// optimalAllocation hands out funds one increment at a time to whichever
// function currently has the highest marginal return. It is only optimal
// when every function is decreasing.
func optimalAllocation(ctx *runtime.CallContext, fns []runtime.Value, funds, approxIncrement float64) ([]float64, error) {
	switch {
	case len(fns) <= 1:
		return nil, otherError("Number of functions should be greater than 1")
	case funds <= 0:
		return nil, otherError("Funds should be greater than 0")
	case approxIncrement <= 0:
		return nil, otherError("Increment should be greater than 0")
	case approxIncrement >= funds:
		return nil, otherError("Increment should be smaller than funds amount")
	}
	steps, err := checkLength(math.Round(funds / approxIncrement))
	if err != nil {
		return nil, err
	}
	increment := funds / float64(steps)
	allocations := make([]float64, len(fns))
	returns := make([]float64, len(fns))
	for i, f := range fns {
		if returns[i], err = callNumber(ctx, lambda(f), runtime.Number(0)); err != nil {
			return nil, err
		}
	}
	for range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best := floats.MaxIdx(returns)
		allocations[best] += increment
		if returns[best], err = callNumber(ctx, lambda(fns[best]), runtime.Number(allocations[best])); err != nil {
			return nil, err
		}
	}
	return allocations, nil
}

// discreteSampler draws one sample from a discrete distribution given its
// parameters.
type discreteSampler struct {
	name   string
	params []string
	draw   func(p []float64, r *rand.Rand) (float64, error)
}

var (
	poissonSampler = discreteSampler{
		name:   "poissonDist",
		params: []string{"rate"},
		draw: func(p []float64, r *rand.Rand) (float64, error) {
			if !(p[0] > 0) || math.IsInf(p[0], 0) {
				return 0, &dist.Error{Kind: dist.ArgumentError, Message: "Poisson rate must be positive and finite"}
			}
			return distuv.Poisson{Lambda: p[0], Src: r}.Rand(), nil
		},
	}
	binomialSampler = discreteSampler{
		name:   "binomialDist",
		params: []string{"numberOfTrials", "probabilityOfSuccess"},
		draw: func(p []float64, r *rand.Rand) (float64, error) {
			n, prob := p[0], p[1]
			if n < 0 || n != math.Trunc(n) || math.IsInf(n, 0) {
				return 0, &dist.Error{Kind: dist.ArgumentError, Message: "Binomial number of trials must be a non-negative integer"}
			}
			if !(prob >= 0 && prob <= 1) {
				return 0, &dist.Error{Kind: dist.ArgumentError, Message: "Binomial probability of success must be between 0 and 1"}
			}
			return distuv.Binomial{N: n, P: prob, Src: r}.Rand(), nil
		},
	}
)

// definition accepts numbers or distributions as parameters; distribution
// parameters are drawn once per sample.
func (s discreteSampler) definition() runtime.FnDefinition {
	return def(repeatType(runtime.FRDistOrNumber, len(s.params)), runtime.FRSampleSet,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			n, err := sampleCount(ctx)
			if err != nil {
				return nil, err
			}
			draws := make([][]float64, len(args))
			names := make([]string, len(args))
			for i, a := range args {
				draws[i] = dist.SampleN(distOf(a), n, ctx.RNG)
				names[i] = runtime.ToString(a)
			}
			samples := make([]float64, n)
			ps := make([]float64, len(args))
			for j := range samples {
				if j%1000 == 0 {
					if err := ctx.Err(); err != nil {
						return nil, err
					}
				}
				for i := range ps {
					ps[i] = draws[i][j]
				}
				if samples[j], err = s.draw(ps, ctx.RNG); err != nil {
					return nil, runtime.DistError(err)
				}
			}
			set, err := dist.NewSampleSet(samples)
			if err != nil {
				return nil, runtime.DistError(err)
			}
			set.Lineage = fmt.Sprintf("%s(%s)", s.name, strings.Join(names, ", "))
			return runtime.NewDist(set), nil
		})
}

// registerDanger adds functions that are numerically fragile or expensive.
// They are only reachable through the Danger namespace.
func registerDanger(r *runtime.Registry) {
	d := namespace{r: r, ns: "Danger"}
	anyList := runtime.FRArray(runtime.FRAny)

	d.add("laplace", nn2n(func(successes, trials float64) float64 { return (successes + 1) / (trials + 2) }))
	d.add("factorial", def(in(runtime.FRNumber), runtime.FRNumber,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			x := num(args[0])
			if x < 0 {
				return nil, argumentError("factorial requires a non-negative number, got %s", runtime.FormatNumber(x))
			}
			return runtime.Number(math.Gamma(x + 1)), nil
		}))
	d.add("choose", def(in(runtime.FRNumber, runtime.FRNumber), runtime.FRNumber,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			c, err := choose(num(args[0]), num(args[1]))
			if err != nil {
				return nil, err
			}
			return runtime.Number(c), nil
		}))
	d.add("binomial", def(in(runtime.FRNumber, runtime.FRNumber, runtime.FRNumber), runtime.FRNumber,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			n, k, p := num(args[0]), num(args[1]), num(args[2])
			c, err := choose(n, k)
			if err != nil {
				return nil, err
			}
			return runtime.Number(c * math.Pow(p, k) * math.Pow(1-p, n-k)), nil
		}))
	d.add("combinations", def(in(anyList, runtime.FRNumber), runtime.FRArray(anyList),
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			k, err := checkLength(num(args[1]))
			if err != nil {
				return nil, err
			}
			out, err := combinationsOf(list(args[0]), k)
			if err != nil {
				return nil, err
			}
			return runtime.NewArray(out), nil
		}))
	d.add("allCombinations", def(in(anyList), runtime.FRArray(anyList),
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			elems := list(args[0])
			if math.Exp2(float64(len(elems))) > maxListLength {
				return nil, argumentError("Too many combinations of %d elements", len(elems))
			}
			var out []runtime.Value
			for k := 1; k <= len(elems); k++ {
				combs, err := combinationsOf(elems, k)
				if err != nil {
					return nil, err
				}
				out = append(out, combs...)
			}
			return runtime.NewArray(out), nil
		}))

	d.add("integrateFunctionBetweenWithNumIntegrationPoints", def(in(runtime.FRLambda, runtime.FRNumber, runtime.FRNumber, runtime.FRNumber), runtime.FRNumber,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			points := num(args[3])
			if points == 0 {
				return nil, otherError("Integration error in Danger.integrate: Increment can't be 0.")
			}
			n, err := checkLength(math.Trunc(points))
			if err != nil {
				return nil, err
			}
			return numberOrError(integrate(ctx, lambda(args[0]), num(args[1]), num(args[2]), n))
		}))
	d.add("integrateFunctionBetweenWithEpsilon", def(in(runtime.FRLambda, runtime.FRNumber, runtime.FRNumber, runtime.FRNumber), runtime.FRNumber,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			lo, hi, epsilon := num(args[1]), num(args[2]), num(args[3])
			if epsilon == 0 {
				return nil, otherError("Integration error in Danger.integrate: Increment can't be 0.")
			}
			n, err := checkLength(math.Trunc((hi - lo) / epsilon))
			if err != nil {
				return nil, err
			}
			return numberOrError(integrate(ctx, lambda(args[0]), lo, hi, n))
		}))
	d.add("optimalAllocationGivenDiminishingMarginalReturnsForManyFunctions",
		def(in(runtime.FRArray(runtime.FRLambda), runtime.FRNumber, runtime.FRNumber), runtime.FRArray(runtime.FRNumber),
			func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
				out, err := optimalAllocation(ctx, list(args[0]), num(args[1]), num(args[2]))
				if err != nil {
					return nil, err
				}
				return numberArray(out), nil
			}))

	d.add(poissonSampler.name, poissonSampler.definition())
	d.add(binomialSampler.name, binomialSampler.definition())
}

func numberOrError(f float64, err error) (runtime.Value, error) {
	if err != nil {
		return nil, err
	}
	return runtime.Number(f), nil
}
