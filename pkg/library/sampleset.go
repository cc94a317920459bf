package library

import (
	"squiggle/interpreter-go/pkg/dist"
	"squiggle/interpreter-go/pkg/runtime"
)

func sampleSet(v runtime.Value) *dist.SampleSet {
	return v.(*runtime.DistValue).Dist.(*dist.SampleSet)
}

// mapNumbers wraps a lambda as a scalar function on samples. Cancellation
// is checked every thousand calls.
func mapNumbers(ctx *runtime.CallContext, fn runtime.LambdaValue) func(args ...float64) (float64, error) {
	calls := 0
	return func(args ...float64) (float64, error) {
		calls++
		if calls%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		vals := make([]runtime.Value, len(args))
		for i, a := range args {
			vals[i] = runtime.Number(a)
		}
		return callNumber(ctx, fn, vals...)
	}
}

// sampleCount is the environment's sample count, checked before it sizes
// an allocation.
func sampleCount(ctx *runtime.CallContext) (int, error) {
	if err := ctx.Env.Validate(); err != nil {
		return 0, runtime.DistError(err)
	}
	return ctx.Env.SampleCount, nil
}

func registerSampleSet(r *runtime.Registry) {
	s := namespace{r: r, ns: "SampleSet"}
	fromDist := def(in(runtime.FRDist), runtime.FRSampleSet,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return distResult(dist.SampleSetFromDist(distOf(args[0]), ctx.Env, ctx.RNG))
		})
	fromNumber := def(in(runtime.FRNumber), runtime.FRSampleSet,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			n, err := sampleCount(ctx)
			if err != nil {
				return nil, err
			}
			samples := make([]float64, n)
			for i := range samples {
				samples[i] = num(args[0])
			}
			return distResult(dist.NewSampleSet(samples))
		})
	fromList := def(in(runtime.FRArray(runtime.FRNumber)), runtime.FRSampleSet,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return distResult(dist.NewSampleSet(numbers(args[0])))
		})
	fromFn := def(in(runtime.FRLambda), runtime.FRSampleSet,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			fn := lambda(args[0])
			call := mapNumbers(ctx, fn)
			n, err := sampleCount(ctx)
			if err != nil {
				return nil, err
			}
			samples := make([]float64, n)
			for i := range samples {
				var v float64
				switch {
				case acceptsArity(fn, 0):
					v, err = call()
				case acceptsArity(fn, 1):
					v, err = call(float64(i))
				default:
					return nil, otherError("Expected lambda with 0 or 1 parameters")
				}
				if err != nil {
					return nil, err
				}
				samples[i] = v
			}
			return distResult(dist.NewSampleSet(samples))
		})
	s.add("fromDist", fromDist)
	s.add("fromNumber", fromNumber)
	s.add("fromList", fromList)
	fnGuard := ambiguousArity("SampleSet.fromFn", in(runtime.FRLambda), 0, 0, 1)
	s.add("fromFn", fnGuard, fromFn)
	s.add("make", fromDist, fromNumber, fromList, fnGuard, fromFn)

	s.add("toList", def(in(runtime.FRSampleSet), runtime.FRArray(runtime.FRNumber),
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return numberArray(sampleSet(args[0]).Samples()), nil
		}))
	s.add("map", def(in(runtime.FRSampleSet, runtime.FRLambda), runtime.FRSampleSet,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			call := mapNumbers(ctx, lambda(args[1]))
			return distResult(sampleSet(args[0]).Map(func(x float64) (float64, error) { return call(x) }))
		}))
	s.add("map2", def(in(runtime.FRSampleSet, runtime.FRSampleSet, runtime.FRLambda), runtime.FRSampleSet,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			call := mapNumbers(ctx, lambda(args[2]))
			return distResult(dist.Map2(sampleSet(args[0]), sampleSet(args[1]), func(a, b float64) (float64, error) { return call(a, b) }))
		}))
	s.add("map3", def(in(runtime.FRSampleSet, runtime.FRSampleSet, runtime.FRSampleSet, runtime.FRLambda), runtime.FRSampleSet,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			call := mapNumbers(ctx, lambda(args[3]))
			sets := []*dist.SampleSet{sampleSet(args[0]), sampleSet(args[1]), sampleSet(args[2])}
			return distResult(dist.MapN(sets, func(row []float64) (float64, error) { return call(row...) }))
		}))
	s.add("mapN", def(in(runtime.FRArray(runtime.FRSampleSet), runtime.FRLambda), runtime.FRSampleSet,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			elems := list(args[0])
			sets := make([]*dist.SampleSet, len(elems))
			for i, e := range elems {
				sets[i] = sampleSet(e)
			}
			fn := lambda(args[1])
			calls := 0
			return distResult(dist.MapN(sets, func(row []float64) (float64, error) {
				calls++
				if calls%1000 == 0 {
					if err := ctx.Err(); err != nil {
						return 0, err
					}
				}
				return callNumber(ctx, fn, numberArray(row))
			}))
		}))
}
