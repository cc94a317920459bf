package library

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"squiggle/interpreter-go/pkg/dist"
	"squiggle/interpreter-go/pkg/runtime"
)

// maxListLength bounds lists built from a numeric length.
const maxListLength = 1 << 24

func checkLength(n float64) (int, error) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, argumentError("Expected a finite number, got %s", runtime.FormatNumber(n))
	}
	if n < 0 {
		return 0, otherError("Expected non-negative number")
	}
	if n != math.Trunc(n) {
		return 0, otherError("Number must be an integer")
	}
	if n > maxListLength {
		return 0, argumentError("Length %s exceeds the maximum of %d", runtime.FormatNumber(n), maxListLength)
	}
	return int(n), nil
}

// ambiguousArity guards a builtin whose calling convention depends on the
// arity of the lambda at inputs[at]: a lambda accepting every one of counts
// could be called either way.
func ambiguousArity(name string, inputs []runtime.FRType, at int, counts ...int) runtime.FnDefinition {
	guarded := slices.Clone(inputs)
	guarded[at] = runtime.FRLambdaNand(counts...)
	shown := make([]string, len(counts))
	for i, c := range counts {
		shown[i] = strconv.Itoa(c)
	}
	return runtime.MakeAssertDefinition(guarded,
		fmt.Sprintf("%s: function accepts %s arguments, so the call is ambiguous", name, strings.Join(shown, " and ")))
}

// withIndex calls fn with the element alone or with its index, whichever
// arity fn takes.
func withIndex(ctx *runtime.CallContext, fn runtime.LambdaValue, elem runtime.Value, i int) (runtime.Value, error) {
	switch {
	case acceptsArity(fn, 1):
		return ctx.Call(fn, []runtime.Value{elem})
	case acceptsArity(fn, 2):
		return ctx.Call(fn, []runtime.Value{elem, runtime.Number(float64(i))})
	}
	return nil, otherError("Expected lambda with 1 or 2 parameters")
}

func callBool(ctx *runtime.CallContext, fn runtime.LambdaValue, args ...runtime.Value) (bool, error) {
	v, err := ctx.Call(fn, args)
	if err != nil {
		return false, err
	}
	b, ok := v.(runtime.BoolValue)
	if !ok {
		return false, runtime.ExpectedTypeError("Bool", v)
	}
	return b.Val, nil
}

func registerList(r *runtime.Registry) {
	l := namespace{r: r, ns: "List"}
	anyList := runtime.FRArray(runtime.FRAny)

	l.add("length", def(in(anyList), runtime.FRNumber,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Number(float64(len(list(args[0])))), nil
		}))

	l.add("make",
		ambiguousArity("List.make", in(runtime.FRNumber, runtime.FRLambda), 1, 0, 1),
		def(in(runtime.FRNumber, runtime.FRLambda), anyList,
			func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
				n, err := checkLength(num(args[0]))
				if err != nil {
					return nil, err
				}
				fn := lambda(args[1])
				out := make([]runtime.Value, n)
				for i := range out {
					if err := ctx.Err(); err != nil {
						return nil, err
					}
					var v runtime.Value
					switch {
					case acceptsArity(fn, 0):
						v, err = ctx.Call(fn, nil)
					case acceptsArity(fn, 1):
						v, err = ctx.Call(fn, []runtime.Value{runtime.Number(float64(i))})
					default:
						return nil, otherError("Expected lambda with 0 or 1 parameters")
					}
					if err != nil {
						return nil, err
					}
					out[i] = v
				}
				return runtime.NewArray(out), nil
			}),
		def(in(runtime.FRNumber, runtime.FRAny), anyList,
			func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
				n, err := checkLength(num(args[0]))
				if err != nil {
					return nil, err
				}
				out := make([]runtime.Value, n)
				for i := range out {
					out[i] = args[1]
				}
				return runtime.NewArray(out), nil
			}),
		def(in(runtime.FRSampleSet), runtime.FRArray(runtime.FRNumber),
			func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
				return numberArray(distOf(args[0]).(*dist.SampleSet).Samples()), nil
			}),
	)

	l.add("upTo", def(in(runtime.FRNumber, runtime.FRNumber), runtime.FRArray(runtime.FRNumber),
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			lo, hi := num(args[0]), num(args[1])
			if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
				return nil, argumentError("Low and high values must be finite")
			}
			if lo != math.Trunc(lo) || hi != math.Trunc(hi) {
				return nil, otherError("Low and high values must both be integers")
			}
			if hi < lo {
				return numberArray(nil), nil
			}
			n, err := checkLength(hi - lo + 1)
			if err != nil {
				return nil, err
			}
			xs := make([]float64, n)
			for i := range xs {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				xs[i] = lo + float64(i)
			}
			return numberArray(xs), nil
		}))

	l.add("get", def(in(anyList, runtime.FRNumber), runtime.FRAny,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return arrayIndex(list(args[0]), num(args[1]))
		}))

	l.add("first", def(in(anyList), runtime.FRAny,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			elems := list(args[0])
			if len(elems) == 0 {
				return nil, otherError("No first element")
			}
			return elems[0], nil
		}))
	l.add("last", def(in(anyList), runtime.FRAny,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			elems := list(args[0])
			if len(elems) == 0 {
				return nil, otherError("No last element")
			}
			return elems[len(elems)-1], nil
		}))

	l.add("reverse", def(in(anyList), anyList,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			elems := list(args[0])
			out := make([]runtime.Value, len(elems))
			for i, e := range elems {
				out[len(elems)-1-i] = e
			}
			return runtime.NewArray(out), nil
		}))

	l.add("concat", def(in(anyList, anyList), anyList,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			a, b := list(args[0]), list(args[1])
			out := make([]runtime.Value, 0, len(a)+len(b))
			return runtime.NewArray(append(append(out, a...), b...)), nil
		}))

	l.add("append", def(in(anyList, runtime.FRAny), anyList,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			a := list(args[0])
			out := make([]runtime.Value, 0, len(a)+1)
			return runtime.NewArray(append(append(out, a...), args[1])), nil
		}))

	l.add("map", ambiguousArity("List.map", in(anyList, runtime.FRLambda), 1, 1, 2), def(in(anyList, runtime.FRLambda), anyList,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			elems, fn := list(args[0]), lambda(args[1])
			out := make([]runtime.Value, len(elems))
			for i, e := range elems {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				v, err := withIndex(ctx, fn, e, i)
				if err != nil {
					return nil, err
				}
				out[i] = v
			}
			return runtime.NewArray(out), nil
		}))

	l.add("filter", def(in(anyList, runtime.FRLambda), anyList,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			var out []runtime.Value
			for _, e := range list(args[0]) {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				keep, err := callBool(ctx, lambda(args[1]), e)
				if err != nil {
					return nil, err
				}
				if keep {
					out = append(out, e)
				}
			}
			return runtime.NewArray(out), nil
		}))

	l.add("reduce", ambiguousArity("List.reduce", in(anyList, runtime.FRAny, runtime.FRLambda), 2, 2, 3), def(in(anyList, runtime.FRAny, runtime.FRLambda), runtime.FRAny,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			acc, fn := args[1], lambda(args[2])
			withIdx := !acceptsArity(fn, 2)
			if withIdx && !acceptsArity(fn, 3) {
				return nil, otherError("Expected lambda with 2 or 3 parameters")
			}
			for i, e := range list(args[0]) {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				callArgs := []runtime.Value{acc, e}
				if withIdx {
					callArgs = append(callArgs, runtime.Number(float64(i)))
				}
				v, err := ctx.Call(fn, callArgs)
				if err != nil {
					return nil, err
				}
				acc = v
			}
			return acc, nil
		}))

	quantifier := func(want bool) runtime.FnDefinition {
		return def(in(anyList, runtime.FRLambda), runtime.FRBool,
			func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
				for _, e := range list(args[0]) {
					ok, err := callBool(ctx, lambda(args[1]), e)
					if err != nil {
						return nil, err
					}
					if ok == want {
						return runtime.Bool(want), nil
					}
				}
				return runtime.Bool(!want), nil
			})
	}
	l.add("some", quantifier(true))
	l.add("every", quantifier(false))

	l.add("flatten", def(in(anyList), anyList,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			var out []runtime.Value
			for _, e := range list(args[0]) {
				if inner, ok := e.(*runtime.ArrayValue); ok {
					out = append(out, inner.Elements...)
					continue
				}
				out = append(out, e)
			}
			return runtime.NewArray(out), nil
		}))

	l.add("join", def(in(runtime.FRArray(runtime.FRString), runtime.Optional(runtime.FRString)), runtime.FRString,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			sep := ","
			if args[1] != nil {
				sep = str(args[1])
			}
			elems := list(args[0])
			parts := make([]string, len(elems))
			for i, e := range elems {
				parts[i] = str(e)
			}
			return runtime.String(strings.Join(parts, sep)), nil
		}))

	l.add("reduceReverse", def(in(anyList, runtime.FRAny, runtime.FRLambda), runtime.FRAny,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			elems, acc, fn := list(args[0]), args[1], lambda(args[2])
			for i := len(elems) - 1; i >= 0; i-- {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				v, err := ctx.Call(fn, []runtime.Value{acc, elems[i]})
				if err != nil {
					return nil, err
				}
				acc = v
			}
			return acc, nil
		}))

	// reduceWhile returns the last accumulator that satisfied the
	// condition, or the initial value when the first step already fails.
	l.add("reduceWhile", def(in(anyList, runtime.FRAny, runtime.FRLambda, runtime.FRLambda), runtime.FRAny,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			acc, step, cond := args[1], lambda(args[2]), lambda(args[3])
			for _, e := range list(args[0]) {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				next, err := ctx.Call(step, []runtime.Value{acc, e})
				if err != nil {
					return nil, err
				}
				check, err := ctx.Call(cond, []runtime.Value{next})
				if err != nil {
					return nil, err
				}
				ok, isBool := check.(runtime.BoolValue)
				if !isBool {
					return nil, otherError("Condition should return a boolean value, got: %s", check.Kind())
				}
				if !ok.Val {
					return acc, nil
				}
				acc = next
			}
			return acc, nil
		}))

	l.add("find", ambiguousArity("List.find", in(anyList, runtime.FRLambda), 1, 1, 2), def(in(anyList, runtime.FRLambda), runtime.FRAny,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			elems := list(args[0])
			i, err := findIndex(ctx, elems, lambda(args[1]))
			if err != nil {
				return nil, err
			}
			return elems[i], nil
		}))
	l.add("findIndex", ambiguousArity("List.findIndex", in(anyList, runtime.FRLambda), 1, 1, 2), def(in(anyList, runtime.FRLambda), runtime.FRNumber,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			i, err := findIndex(ctx, list(args[0]), lambda(args[1]))
			if err != nil {
				return nil, err
			}
			return runtime.Number(float64(i)), nil
		}))

	l.add("uniq", def(in(anyList), anyList,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			elems := list(args[0])
			return uniqBy(elems, elems)
		}))
	l.add("uniqBy", def(in(anyList, runtime.FRLambda), anyList,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			elems, fn := list(args[0]), lambda(args[1])
			keys := make([]runtime.Value, len(elems))
			for i, e := range elems {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				k, err := ctx.Call(fn, []runtime.Value{e})
				if err != nil {
					return nil, err
				}
				keys[i] = k
			}
			return uniqBy(elems, keys)
		}))

	l.add("shuffle", def(in(anyList), anyList,
		func(ctx *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			out := slices.Clone(list(args[0]))
			ctx.RNG.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
			return runtime.NewArray(out), nil
		}))

	l.add("zip", def(in(anyList, anyList), anyList,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			a, b := list(args[0]), list(args[1])
			if len(a) != len(b) {
				return nil, otherError("Array lengths must be equal")
			}
			out := make([]runtime.Value, len(a))
			for i := range a {
				out[i] = runtime.NewArray([]runtime.Value{a[i], b[i]})
			}
			return runtime.NewArray(out), nil
		}))
	l.add("unzip", def(in(runtime.FRArray(anyList)), anyList,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			pairs := list(args[0])
			firsts := make([]runtime.Value, len(pairs))
			seconds := make([]runtime.Value, len(pairs))
			for i, p := range pairs {
				pair := list(p)
				if len(pair) != 2 {
					return nil, otherError("Array must be an array of pairs")
				}
				firsts[i], seconds[i] = pair[0], pair[1]
			}
			return runtime.NewArray([]runtime.Value{runtime.NewArray(firsts), runtime.NewArray(seconds)}), nil
		}))

	l.add("sum", l2n(floats.Sum))
}

// findIndex returns the index of the first element for which fn returns
// true. Non-boolean results count as false.
func findIndex(ctx *runtime.CallContext, elems []runtime.Value, fn runtime.LambdaValue) (int, error) {
	for i, e := range elems {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		v, err := withIndex(ctx, fn, e, i)
		if err != nil {
			return 0, err
		}
		if b, ok := v.(runtime.BoolValue); ok && b.Val {
			return i, nil
		}
	}
	return 0, otherError("No element found")
}

// uniqBy keeps the first element for each distinct key. Keys must be
// numbers, strings or bools.
func uniqBy(elems, keys []runtime.Value) (runtime.Value, error) {
	seen := make(map[string]bool, len(keys))
	var out []runtime.Value
	for i, k := range keys {
		switch k.Kind() {
		case runtime.KindNumber, runtime.KindString, runtime.KindBool:
		default:
			return nil, otherError("Can only apply uniq() to Strings, Numbers, or Bools")
		}
		key := k.Kind().String() + ":" + runtime.ToString(k)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, elems[i])
	}
	return runtime.NewArray(out), nil
}

// arrayIndex implements list[i].
func arrayIndex(elems []runtime.Value, key float64) (runtime.Value, error) {
	if math.IsInf(key, 0) || key != math.Trunc(key) {
		return nil, runtime.NewError(runtime.ErrArrayIndexNotFound, "Array index must be an integer: %s", runtime.FormatNumber(key))
	}
	i := int(key)
	if i < 0 || i >= len(elems) {
		return nil, runtime.NewError(runtime.ErrArrayIndexNotFound, "Array index not found: %d", i)
	}
	return elems[i], nil
}
