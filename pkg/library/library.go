// Package library builds the builtin function table available to every
// program: arithmetic and comparison operators, Math, units, List, Dict,
// String, Tag decorators, the distribution functions and Danger.
package library

import (
	"math"

	"squiggle/interpreter-go/pkg/dist"
	"squiggle/interpreter-go/pkg/runtime"
)

// NewRegistry returns a fresh table with every builtin registered.
func NewRegistry() *runtime.Registry {
	r := runtime.NewRegistry()
	registerNumber(r)
	registerString(r)
	registerList(r)
	registerDict(r)
	registerTags(r)
	registerDist(r)
	registerSampleSet(r)
	registerPointSet(r)
	registerSym(r)
	registerUnits(r)
	registerDanger(r)
	return r
}

// Externals returns the builtins of r plus the constant bindings, ready to
// hand to the compiler.
func Externals(r *runtime.Registry) map[string]runtime.Value {
	out := r.Values()
	out["Math.pi"] = runtime.Number(math.Pi)
	out["Math.e"] = runtime.Number(math.E)
	out["Math.phi"] = runtime.Number(math.Phi)
	out["Math.ln2"] = runtime.Number(math.Ln2)
	out["Math.ln10"] = runtime.Number(math.Ln10)
	out["Math.log2e"] = runtime.Number(math.Log2E)
	out["Math.log10e"] = runtime.Number(math.Log10E)
	out["Math.sqrt2"] = runtime.Number(math.Sqrt2)
	out["Math.sqrt1_2"] = runtime.Number(1 / math.Sqrt2)
	out["Number.maxValue"] = runtime.Number(math.MaxFloat64)
	out["Number.minValue"] = runtime.Number(math.SmallestNonzeroFloat64)
	return out
}

// namespace registers functions under "<ns>.<name>" and, when bare is set,
// under the unqualified name too.
type namespace struct {
	r    *runtime.Registry
	ns   string
	bare bool
}

func (n namespace) add(name string, defs ...runtime.FnDefinition) {
	n.r.Register(n.ns+"."+name, defs...)
	if n.bare {
		n.r.Register(name, defs...)
	}
}

// Shorthands for definitions.
var (
	def      = runtime.MakeDefinition
	decorate = runtime.MakeDecorator
)

func in(types ...runtime.FRType) []runtime.FRType { return types }

//-----------------------------------------------------------------------------
// Argument accessors. Definitions only run after their inputs matched, so
// the assertions below hold.
//-----------------------------------------------------------------------------

func num(v runtime.Value) float64 { return v.(runtime.NumberValue).Val }

func str(v runtime.Value) string { return v.(runtime.StringValue).Val }

func boolean(v runtime.Value) bool { return v.(runtime.BoolValue).Val }

func list(v runtime.Value) []runtime.Value { return v.(*runtime.ArrayValue).Elements }

func dict(v runtime.Value) *runtime.DictValue { return v.(*runtime.DictValue) }

func lambda(v runtime.Value) runtime.LambdaValue { return v.(runtime.LambdaValue) }

func numbers(v runtime.Value) []float64 {
	elems := list(v)
	out := make([]float64, len(elems))
	for i, e := range elems {
		out[i] = num(e)
	}
	return out
}

// distOf reads a Dist or lifts a Number to a point mass.
func distOf(v runtime.Value) dist.Dist {
	if n, ok := v.(runtime.NumberValue); ok {
		return dist.PointMass{Value: n.Val}
	}
	return v.(*runtime.DistValue).Dist
}

func optNum(v runtime.Value) *float64 {
	if v == nil {
		return nil
	}
	f := num(v)
	return &f
}

func numberArray(xs []float64) *runtime.ArrayValue {
	out := make([]runtime.Value, len(xs))
	for i, x := range xs {
		out[i] = runtime.Number(x)
	}
	return runtime.NewArray(out)
}

func distResult(d dist.Dist, err error) (runtime.Value, error) {
	if err != nil {
		return nil, runtime.DistError(err)
	}
	return runtime.NewDist(d), nil
}

func numberResult(f float64, err error) (runtime.Value, error) {
	if err != nil {
		return nil, runtime.DistError(err)
	}
	return runtime.Number(f), nil
}

func otherError(format string, args ...any) error {
	return runtime.NewError(runtime.ErrOther, format, args...)
}

func argumentError(format string, args ...any) error {
	return runtime.NewError(runtime.ErrArgument, format, args...)
}

// callNumber calls fn and requires a Number result.
func callNumber(ctx *runtime.CallContext, fn runtime.LambdaValue, args ...runtime.Value) (float64, error) {
	v, err := ctx.Call(fn, args)
	if err != nil {
		return 0, err
	}
	n, ok := v.(runtime.NumberValue)
	if !ok {
		return 0, runtime.ExpectedTypeError("Number", v)
	}
	return n.Val, nil
}

// acceptsArity reports whether fn can be called with n arguments.
func acceptsArity(fn runtime.LambdaValue, n int) bool {
	for _, c := range fn.ParameterCounts() {
		if c == n {
			return true
		}
	}
	return false
}
