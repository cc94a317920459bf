package library

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"squiggle/interpreter-go/pkg/runtime"
)

type binaryFloat func(a, b float64) float64

var numberOps = []struct {
	names []string
	fn    binaryFloat
}{
	{[]string{"add", "dotAdd"}, func(a, b float64) float64 { return a + b }},
	{[]string{"subtract", "dotSubtract"}, func(a, b float64) float64 { return a - b }},
	{[]string{"multiply", "dotMultiply"}, func(a, b float64) float64 { return a * b }},
	{[]string{"divide", "dotDivide"}, func(a, b float64) float64 { return a / b }},
	{[]string{"pow", "dotPow"}, math.Pow},
}

func nn2n(fn binaryFloat) runtime.FnDefinition {
	return def(in(runtime.FRNumber, runtime.FRNumber), runtime.FRNumber,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Number(fn(num(args[0]), num(args[1]))), nil
		})
}

func n2n(fn func(float64) float64) runtime.FnDefinition {
	return def(in(runtime.FRNumber), runtime.FRNumber,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Number(fn(num(args[0]))), nil
		})
}

// l2n reduces a non-empty list of numbers.
func l2n(fn func([]float64) float64) runtime.FnDefinition {
	return def(in(runtime.FRArray(runtime.FRNumber)), runtime.FRNumber,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			xs := numbers(args[0])
			if len(xs) == 0 {
				return nil, argumentError("List is empty")
			}
			return runtime.Number(fn(xs)), nil
		})
}

func l2l(fn func([]float64) []float64) runtime.FnDefinition {
	return def(in(runtime.FRArray(runtime.FRNumber)), runtime.FRArray(runtime.FRNumber),
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return numberArray(fn(numbers(args[0]))), nil
		})
}

func compare(numFn func(a, b float64) bool, strFn func(a, b string) bool) []runtime.FnDefinition {
	return []runtime.FnDefinition{
		def(in(runtime.FRNumber, runtime.FRNumber), runtime.FRBool,
			func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
				return runtime.Bool(numFn(num(args[0]), num(args[1]))), nil
			}),
		def(in(runtime.FRString, runtime.FRString), runtime.FRBool,
			func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
				return runtime.Bool(strFn(str(args[0]), str(args[1]))), nil
			}),
	}
}

func registerNumber(r *runtime.Registry) {
	number := namespace{r: r, ns: "Number", bare: true}
	for _, op := range numberOps {
		for _, name := range op.names {
			number.add(name, nn2n(op.fn))
		}
	}
	number.add("unaryMinus", n2n(func(x float64) float64 { return -x }))
	number.add("unaryDotMinus", n2n(func(x float64) float64 { return -x }))

	number.add("smaller", compare(func(a, b float64) bool { return a < b }, func(a, b string) bool { return a < b })...)
	number.add("smallerEq", compare(func(a, b float64) bool { return a <= b }, func(a, b string) bool { return a <= b })...)
	number.add("larger", compare(func(a, b float64) bool { return a > b }, func(a, b string) bool { return a > b })...)
	number.add("largerEq", compare(func(a, b float64) bool { return a >= b }, func(a, b string) bool { return a >= b })...)

	r.Register("equal", def(in(runtime.FRAny, runtime.FRAny), runtime.FRBool,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Bool(runtime.Equal(args[0], args[1])), nil
		}))
	r.Register("unequal", def(in(runtime.FRAny, runtime.FRAny), runtime.FRBool,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Bool(!runtime.Equal(args[0], args[1])), nil
		}))

	boolOp := func(fn func(a, b bool) bool) runtime.FnDefinition {
		return def(in(runtime.FRBool, runtime.FRBool), runtime.FRBool,
			func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
				return runtime.Bool(fn(boolean(args[0]), boolean(args[1]))), nil
			})
	}
	r.Register("and", boolOp(func(a, b bool) bool { return a && b }))
	r.Register("or", boolOp(func(a, b bool) bool { return a || b }))
	number.add("not",
		def(in(runtime.FRBool), runtime.FRBool, func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Bool(!boolean(args[0])), nil
		}),
		def(in(runtime.FRNumber), runtime.FRBool, func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Bool(num(args[0]) == 0), nil
		}),
	)

	registerMath(r)

	number.add("sum", l2n(func(xs []float64) float64 { return floats.Sum(xs) }))
	number.add("product", l2n(func(xs []float64) float64 { return floats.Prod(xs) }))
	number.add("mean", l2n(func(xs []float64) float64 { return stat.Mean(xs, nil) }))
	number.add("variance", l2n(func(xs []float64) float64 { return stat.PopVariance(xs, nil) }))
	number.add("stdev", l2n(func(xs []float64) float64 { return math.Sqrt(stat.PopVariance(xs, nil)) }))
	number.add("geomean", l2n(func(xs []float64) float64 {
		logs := make([]float64, len(xs))
		for i, x := range xs {
			logs[i] = math.Log(x)
		}
		return math.Exp(stat.Mean(logs, nil))
	}))
	number.add("median", l2n(func(xs []float64) float64 { return quantileOf(xs, 0.5) }))
	number.add("quantile", def(in(runtime.FRArray(runtime.FRNumber), runtime.FRNumber), runtime.FRNumber,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			xs := numbers(args[0])
			if len(xs) == 0 {
				return nil, argumentError("List is empty")
			}
			return runtime.Number(quantileOf(xs, num(args[1]))), nil
		}))
	number.add("sort", l2l(func(xs []float64) []float64 {
		slices.Sort(xs)
		return xs
	}))
	number.add("cumsum", l2l(func(xs []float64) []float64 { return floats.CumSum(make([]float64, len(xs)), xs) }))
	number.add("cumprod", l2l(func(xs []float64) []float64 { return floats.CumProd(make([]float64, len(xs)), xs) }))
	number.add("diff", l2l(func(xs []float64) []float64 {
		if len(xs) < 2 {
			return nil
		}
		out := make([]float64, len(xs)-1)
		for i := range out {
			out[i] = xs[i+1] - xs[i]
		}
		return out
	}))
	number.add("rangeDomain", def(in(runtime.FRNumber, runtime.FRNumber), runtime.FRDomain,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			lo, hi := num(args[0]), num(args[1])
			if lo > hi {
				return nil, argumentError("The range minimum (%s) must be lower than the range maximum (%s)",
					runtime.FormatNumber(lo), runtime.FormatNumber(hi))
			}
			return runtime.DomainValue{Min: lo, Max: hi}, nil
		}))
}

// quantileOf interpolates linearly between order statistics at rank
// (n-1)*p.
func quantileOf(xs []float64, p float64) float64 {
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	rank := math.Max(0, math.Min(1, p)) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func registerMath(r *runtime.Registry) {
	m := namespace{r: r, ns: "Math", bare: true}
	m.add("exp", n2n(math.Exp))
	m.add("log", n2n(math.Log))
	m.add("log10", n2n(math.Log10))
	m.add("log2", n2n(math.Log2))
	m.add("sqrt", n2n(math.Sqrt))
	m.add("abs", n2n(math.Abs))
	m.add("floor", n2n(math.Floor))
	m.add("ceil", n2n(math.Ceil))
	// Halves round up, as in JavaScript.
	m.add("round", n2n(func(x float64) float64 { return math.Floor(x + 0.5) }))
	m.add("min", l2n(floats.Min), nn2n(math.Min))
	m.add("max", l2n(floats.Max), nn2n(math.Max))
}
