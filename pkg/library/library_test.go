package library

import (
	"context"
	"fmt"
	"math"
	"testing"

	"squiggle/interpreter-go/pkg/dist"
	"squiggle/interpreter-go/pkg/runtime"
)

var testRegistry = NewRegistry()

func testContext(parent context.Context) *runtime.CallContext {
	ctx := &runtime.CallContext{
		Context: parent,
		Env:     dist.Env{SampleCount: 1000, XYPointLength: 200, Seed: "library"},
		RNG:     dist.NewRNG("library"),
	}
	ctx.Call = func(fn runtime.LambdaValue, args []runtime.Value) (runtime.Value, error) {
		b, ok := fn.(*runtime.BuiltinLambda)
		if !ok {
			return nil, fmt.Errorf("unexpected lambda %T", fn)
		}
		return b.Call(ctx, args)
	}
	return ctx
}

func call(t *testing.T, name string, args ...runtime.Value) runtime.Value {
	t.Helper()
	v, err := testRegistry.Call(testContext(context.Background()), name, args)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return v
}

func callErr(t *testing.T, name string, args ...runtime.Value) error {
	t.Helper()
	_, err := testRegistry.Call(testContext(context.Background()), name, args)
	if err == nil {
		t.Fatalf("%s: expected error", name)
	}
	return err
}

func fn(t *testing.T, name string) *runtime.BuiltinLambda {
	t.Helper()
	b, ok := testRegistry.Lookup(name)
	if !ok {
		t.Fatalf("builtin %s not registered", name)
	}
	return b
}

func n(x float64) runtime.Value { return runtime.Number(x) }

func s(x string) runtime.Value { return runtime.String(x) }

func nums(xs ...float64) runtime.Value { return numberArray(xs) }

func wantNumber(t *testing.T, v runtime.Value, want, tol float64) {
	t.Helper()
	got, ok := v.(runtime.NumberValue)
	if !ok {
		t.Fatalf("got %s, want a number", runtime.ToString(v))
	}
	if math.Abs(got.Val-want) > tol {
		t.Fatalf("got %v, want %v (tolerance %v)", got.Val, want, tol)
	}
}

func wantString(t *testing.T, v runtime.Value, want string) {
	t.Helper()
	if got := runtime.ToString(v); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func distIn(t *testing.T, v runtime.Value) dist.Dist {
	t.Helper()
	d, ok := v.(*runtime.DistValue)
	if !ok {
		t.Fatalf("got %s, want a distribution", runtime.ToString(v))
	}
	return d.Dist
}

func TestNumberOperators(t *testing.T) {
	cases := []struct {
		name string
		args []runtime.Value
		want string
	}{
		{"add", []runtime.Value{n(1), n(2)}, "3"},
		{"subtract", []runtime.Value{n(1), n(2)}, "-1"},
		{"multiply", []runtime.Value{n(3), n(2)}, "6"},
		{"divide", []runtime.Value{n(1), n(4)}, "0.25"},
		{"pow", []runtime.Value{n(2), n(10)}, "1024"},
		{"dotMultiply", []runtime.Value{n(3), n(2)}, "6"},
		{"unaryMinus", []runtime.Value{n(4)}, "-4"},
		{"smaller", []runtime.Value{n(1), n(2)}, "true"},
		{"largerEq", []runtime.Value{n(1), n(2)}, "false"},
		{"smaller", []runtime.Value{s("a"), s("b")}, "true"},
		{"equal", []runtime.Value{nums(1, 2), nums(1, 2)}, "true"},
		{"unequal", []runtime.Value{s("a"), n(1)}, "true"},
		{"and", []runtime.Value{runtime.Bool(true), runtime.Bool(false)}, "false"},
		{"or", []runtime.Value{runtime.Bool(true), runtime.Bool(false)}, "true"},
		{"not", []runtime.Value{runtime.Bool(true)}, "false"},
		{"add", []runtime.Value{s("a"), s("b")}, `"ab"`},
		{"Number.add", []runtime.Value{n(1), n(1)}, "2"},
		{"Math.round", []runtime.Value{n(2.5)}, "3"},
		{"Math.min", []runtime.Value{nums(3, 1, 2)}, "1"},
		{"max", []runtime.Value{n(3), n(4)}, "4"},
		{"sum", []runtime.Value{nums(1, 2, 3)}, "6"},
		{"product", []runtime.Value{nums(2, 3, 4)}, "24"},
		{"mean", []runtime.Value{nums(1, 2, 3)}, "2"},
		{"median", []runtime.Value{nums(5, 1, 3)}, "3"},
		{"Number.quantile", []runtime.Value{nums(1, 2, 3, 4, 5), n(0.25)}, "2"},
		{"cumsum", []runtime.Value{nums(1, 2, 3)}, "[1, 3, 6]"},
		{"diff", []runtime.Value{nums(1, 4, 9)}, "[3, 5]"},
		{"sort", []runtime.Value{nums(3, 1, 2)}, "[1, 2, 3]"},
		{"fromUnit_k", []runtime.Value{n(5)}, "5000"},
		{"fromUnit_M", []runtime.Value{n(2)}, "2000000"},
		{"Number.rangeDomain", []runtime.Value{n(0), n(10)}, "Number.rangeDomain(0, 10)"},
	}
	for _, tc := range cases {
		wantString(t, call(t, tc.name, tc.args...), tc.want)
	}
	wantNumber(t, call(t, "fromUnit_%", n(3)), 0.03, 1e-12)
}

func TestNoMatchingSignature(t *testing.T) {
	err := callErr(t, "add", s("a"), n(1))
	if runtime.KindOf(err) != runtime.ErrNoMatchingSignature {
		t.Fatalf("kind = %v, err = %v", runtime.KindOf(err), err)
	}
	err = callErr(t, "Math.min", nums())
	if got := err.Error(); got != "Argument Error: List is empty" {
		t.Fatalf("error = %q", got)
	}
}

func TestIndexLookup(t *testing.T) {
	l := nums(10, 20, 30)
	wantString(t, call(t, IndexLookup, l, n(1)), "20")

	cases := []struct {
		args []runtime.Value
		kind runtime.ErrorKind
		msg  string
	}{
		{[]runtime.Value{l, n(5)}, runtime.ErrArrayIndexNotFound, "Array index not found: 5"},
		{[]runtime.Value{l, n(1.5)}, runtime.ErrArrayIndexNotFound, "Array index must be an integer: 1.5"},
		{[]runtime.Value{l, s("a")}, runtime.ErrOther, "Error: Can't access non-numerical key on an array"},
		{
			[]runtime.Value{runtime.NewDict(runtime.DictEntry{Key: "a", Value: n(1)}), s("z")},
			runtime.ErrDictPropertyNotFound, "Dict property not found: z",
		},
	}
	for _, tc := range cases {
		err := callErr(t, IndexLookup, tc.args...)
		if runtime.KindOf(err) != tc.kind || err.Error() != tc.msg {
			t.Fatalf("got %v (%v), want %v (%s)", runtime.KindOf(err), err, tc.kind, tc.msg)
		}
	}

	d := runtime.NewDict(runtime.DictEntry{Key: "1", Value: s("one")})
	wantString(t, call(t, IndexLookup, d, n(1)), `"one"`)
}

func TestListFunctions(t *testing.T) {
	l := nums(1, 2, 3)
	wantString(t, call(t, "List.length", l), "3")
	wantString(t, call(t, "List.map", l, fn(t, "unaryMinus")), "[-1, -2, -3]")
	wantString(t, call(t, "List.reduce", l, n(0), fn(t, "add")), "6")
	wantString(t, call(t, "List.make", n(3), n(7)), "[7, 7, 7]")
	wantString(t, call(t, "List.upTo", n(1), n(4)), "[1, 2, 3, 4]")
	wantString(t, call(t, "List.reverse", l), "[3, 2, 1]")
	wantString(t, call(t, "List.concat", l, nums(4)), "[1, 2, 3, 4]")
	wantString(t, call(t, "List.append", l, n(4)), "[1, 2, 3, 4]")
	wantString(t, call(t, "List.first", l), "1")
	wantString(t, call(t, "List.last", l), "3")
	wantString(t, call(t, "List.flatten", runtime.NewArray([]runtime.Value{l, nums(4)})), "[1, 2, 3, 4]")

	bools := runtime.NewArray([]runtime.Value{runtime.Bool(true), runtime.Bool(false)})
	wantString(t, call(t, "List.filter", bools, fn(t, "not")), "[false]")
	wantString(t, call(t, "List.some", bools, fn(t, "not")), "true")
	wantString(t, call(t, "List.every", bools, fn(t, "not")), "false")

	strs := runtime.NewArray([]runtime.Value{s("a"), s("b")})
	wantString(t, call(t, "List.join", strs), `"a,b"`)
	wantString(t, call(t, "List.join", strs, s("-")), `"a-b"`)

	if got := callErr(t, "List.make", n(-1), n(0)).Error(); got != "Error: Expected non-negative number" {
		t.Fatalf("error = %q", got)
	}
	if got := callErr(t, "List.first", nums()).Error(); got != "Error: No first element" {
		t.Fatalf("error = %q", got)
	}
}

func TestListMapStopsWhenCancelled(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testRegistry.Call(testContext(parent), "List.map", []runtime.Value{nums(1, 2), fn(t, "unaryMinus")})
	if runtime.KindOf(err) != runtime.ErrCancelled {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestListLengthsAreBounded(t *testing.T) {
	cases := []struct {
		name string
		args []runtime.Value
		kind runtime.ErrorKind
	}{
		{"List.make", []runtime.Value{n(math.Inf(1)), n(1)}, runtime.ErrArgument},
		{"List.make", []runtime.Value{n(math.NaN()), n(1)}, runtime.ErrArgument},
		{"List.make", []runtime.Value{n(1e300), n(0)}, runtime.ErrArgument},
		{"List.make", []runtime.Value{n(1e300), fn(t, "unaryMinus")}, runtime.ErrArgument},
		{"List.upTo", []runtime.Value{n(0), n(math.Inf(1))}, runtime.ErrArgument},
		{"List.upTo", []runtime.Value{n(-1e300), n(1e300)}, runtime.ErrArgument},
		{"sampleN", []runtime.Value{call(t, "normal", n(0), n(1)), n(1e300)}, runtime.ErrArgument},
		{IndexLookup, []runtime.Value{nums(1), n(math.Inf(1))}, runtime.ErrArrayIndexNotFound},
	}
	for _, tc := range cases {
		err := callErr(t, tc.name, tc.args...)
		if runtime.KindOf(err) != tc.kind {
			t.Fatalf("%s(%v): kind = %v, err = %v", tc.name, tc.args, runtime.KindOf(err), err)
		}
	}
	wantString(t, call(t, "List.upTo", n(3), n(1)), "[]")
	wantString(t, call(t, "List.upTo", n(-1), n(1)), "[-1, 0, 1]")
}

func TestListUpToStopsWhenCancelled(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testRegistry.Call(testContext(parent), "List.upTo", []runtime.Value{n(1), n(1e6)})
	if runtime.KindOf(err) != runtime.ErrCancelled {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestListSearchAndReshape(t *testing.T) {
	l := nums(1, 4, 5)
	lessThan5 := runtime.NewBuiltin("lessThan5", def(in(runtime.FRNumber), runtime.FRBool,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Bool(num(args[0]) < 5), nil
		}))
	wantString(t, call(t, "List.zip", l, nums(7, 8, 9)), "[[1, 7], [4, 8], [5, 9]]")
	wantString(t, call(t, "List.unzip", call(t, "List.zip", l, nums(7, 8, 9))), "[[1, 4, 5], [7, 8, 9]]")
	wantString(t, call(t, "List.reduceReverse", l, n(2), fn(t, "subtract")), "-8")
	wantString(t, call(t, "List.reduceWhile", l, n(0), fn(t, "add"), lessThan5), "1")

	mixed := runtime.NewArray([]runtime.Value{n(1), n(2), s("hi"), runtime.Bool(false), s("hi"), n(1), s("1")})
	wantString(t, call(t, "List.uniq", mixed), `[1, 2, "hi", false, "1"]`)
	pairs := runtime.NewArray([]runtime.Value{nums(1, 5), nums(3, 5), nums(5, 7)})
	wantString(t, call(t, "List.uniqBy", pairs, fn(t, "List.last")), "[[1, 5], [5, 7]]")

	bools := runtime.NewArray([]runtime.Value{runtime.Bool(true), runtime.Bool(false), runtime.Bool(false)})
	wantString(t, call(t, "List.find", bools, fn(t, "not")), "false")
	wantString(t, call(t, "List.findIndex", bools, fn(t, "not")), "1")

	shuffled := call(t, "List.shuffle", nums(1, 2, 3, 4, 5, 6))
	wantString(t, call(t, "sort", shuffled), "[1, 2, 3, 4, 5, 6]")

	set := call(t, "SampleSet.fromList", nums(1, 2, 3, 4, 5, 6))
	wantString(t, call(t, "List.make", set), "[1, 2, 3, 4, 5, 6]")

	errs := []struct {
		name string
		args []runtime.Value
		msg  string
	}{
		{"List.zip", []runtime.Value{l, nums(1)}, "Error: Array lengths must be equal"},
		{"List.unzip", []runtime.Value{runtime.NewArray([]runtime.Value{nums(1, 2, 3)})}, "Error: Array must be an array of pairs"},
		{"List.uniq", []runtime.Value{runtime.NewArray([]runtime.Value{l})}, "Error: Can only apply uniq() to Strings, Numbers, or Bools"},
		{"List.find", []runtime.Value{runtime.NewArray([]runtime.Value{runtime.Bool(true)}), fn(t, "not")}, "Error: No element found"},
		{"List.reduceWhile", []runtime.Value{l, n(0), fn(t, "add"), fn(t, "unaryMinus")}, "Error: Condition should return a boolean value, got: Number"},
	}
	for _, tc := range errs {
		if got := callErr(t, tc.name, tc.args...).Error(); got != tc.msg {
			t.Fatalf("%s: error = %q, want %q", tc.name, got, tc.msg)
		}
	}
}

func TestDictFunctions(t *testing.T) {
	d := runtime.NewDict(
		runtime.DictEntry{Key: "b", Value: n(1)},
		runtime.DictEntry{Key: "a", Value: n(2)},
	)
	wantString(t, call(t, "Dict.keys", d), `["b", "a"]`)
	wantString(t, call(t, "Dict.values", d), "[1, 2]")
	wantString(t, call(t, "Dict.toList", d), `[["b", 1], ["a", 2]]`)
	wantString(t, call(t, "Dict.set", d, s("c"), n(3)), "{b: 1, a: 2, c: 3}")
	wantString(t, d, "{b: 1, a: 2}")
	wantString(t, call(t, "Dict.has", d, s("a")), "true")
	wantString(t, call(t, "Dict.delete", d, s("b")), "{a: 2}")
	other := runtime.NewDict(runtime.DictEntry{Key: "a", Value: n(9)}, runtime.DictEntry{Key: "z", Value: n(0)})
	wantString(t, call(t, "Dict.merge", d, other), "{b: 1, a: 9, z: 0}")
	wantString(t, call(t, "Dict.map", d, fn(t, "unaryMinus")), "{b: -1, a: -2}")
	pairs := runtime.NewArray([]runtime.Value{runtime.NewArray([]runtime.Value{s("k"), n(1)})})
	wantString(t, call(t, "Dict.fromList", pairs), "{k: 1}")
	wantString(t, call(t, "Dict.size", d), "2")

	wantString(t, call(t, "Dict.mergeMany", runtime.NewArray([]runtime.Value{d, other})), "{b: 1, a: 9, z: 0}")
	wantString(t, call(t, "Dict.pick", d, runtime.NewArray([]runtime.Value{s("a"), s("nope")})), "{a: 2}")
	wantString(t, call(t, "Dict.omit", d, runtime.NewArray([]runtime.Value{s("a")})), "{b: 1}")

	suffix := runtime.NewBuiltin("suffix", def(in(runtime.FRString), runtime.FRString,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.String(str(args[0]) + "-x"), nil
		}))
	wantString(t, call(t, "Dict.mapKeys", d, suffix), "{b-x: 1, a-x: 2}")
	keyLength := runtime.NewBuiltin("keyLength", def(in(runtime.FRString), runtime.FRNumber,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Number(float64(len(str(args[0])))), nil
		}))
	err := callErr(t, "Dict.mapKeys", d, keyLength)
	if runtime.KindOf(err) != runtime.ErrArgument {
		t.Fatalf("mapKeys with a non-string result: %v", err)
	}
}

func TestTags(t *testing.T) {
	if !runtime.IsDecorator(fn(t, "Tag.name")) {
		t.Fatalf("Tag.name should be a decorator")
	}
	if runtime.IsDecorator(fn(t, "Tag.getName")) {
		t.Fatalf("Tag.getName should not be a decorator")
	}
	named := call(t, "Tag.name", n(1), s("x"))
	wantString(t, named, "1")
	wantString(t, call(t, "Tag.getName", named), `"x"`)
	wantString(t, call(t, "Tag.getName", n(1)), "()")

	doc := call(t, "Tag.doc", named, s("about x"))
	wantString(t, call(t, "Tag.getAll", doc), `{name: "x", doc: "about x"}`)
	hidden := call(t, "Tag.hide", doc)
	wantString(t, call(t, "Tag.getHide", hidden), "true")
	wantString(t, call(t, "Tag.getAll", call(t, "Tag.clear", hidden)), "{}")
}

func TestDistConstructors(t *testing.T) {
	wantString(t, call(t, "normal", n(0), n(1)), "Normal(0,1)")
	wantString(t, call(t, "Dist.uniform", n(0), n(1)), "Uniform(0,1)")
	wantString(t, call(t, "triangular", n(0), n(1), n(2)), "Triangular(0,1,2)")
	if _, ok := distIn(t, call(t, "to", n(1), n(10))).(dist.Lognormal); !ok {
		t.Fatalf("1 to 10 should be lognormal")
	}
	if _, ok := distIn(t, call(t, "credibleIntervalToDistribution", n(-1), n(1))).(dist.Normal); !ok {
		t.Fatalf("-1 to 1 should be normal")
	}

	err := callErr(t, "normal", n(0), n(-1))
	if runtime.KindOf(err) != runtime.ErrArgument {
		t.Fatalf("kind = %v", runtime.KindOf(err))
	}
	if got := err.Error(); got != "Argument Error: Standard deviation of normal distribution must be larger than 0" {
		t.Fatalf("error = %q", got)
	}

	fromDict := call(t, "normal", runtime.NewDict(
		runtime.DictEntry{Key: "mean", Value: n(5)},
		runtime.DictEntry{Key: "stdev", Value: n(2)},
	))
	wantString(t, fromDict, "Normal(5,2)")

	sampled := distIn(t, call(t, "normal", call(t, "normal", n(0), n(1)), n(1)))
	set, ok := sampled.(*dist.SampleSet)
	if !ok || set.Len() != 1000 {
		t.Fatalf("distribution parameters should give a sample set of the environment size, got %s", sampled)
	}
	if set.Lineage != "normal(Normal(0,1), 1)" {
		t.Fatalf("lineage = %q", set.Lineage)
	}
}

func TestDistAlgebraAndFunctions(t *testing.T) {
	a := call(t, "normal", n(0), n(1))
	sum := distIn(t, call(t, "add", a, a))
	normal, ok := sum.(dist.Normal)
	if !ok || math.Abs(normal.Sigma-math.Sqrt2) > 1e-12 {
		t.Fatalf("normal + normal = %s", sum)
	}
	wantString(t, call(t, "multiply", n(2), a), "Normal(0,2)")
	wantNumber(t, call(t, "mean", call(t, "add", a, n(3))), 3, 1e-12)
	wantNumber(t, call(t, "cdf", a, n(0)), 0.5, 1e-9)
	wantNumber(t, call(t, "Dist.inv", a, n(0.5)), 0, 1e-6)
	wantNumber(t, call(t, "stdev", call(t, "uniform", n(0), n(12))), math.Sqrt(12), 1e-9)

	truncated := distIn(t, call(t, "truncate", call(t, "uniform", n(0), n(10)), n(2), n(4)))
	wantString(t, runtime.NewDist(truncated), "Uniform(2,4)")

	mixture := call(t, "mx", a, call(t, "normal", n(10), n(1)))
	wantNumber(t, call(t, "mean", mixture), 5, 0.2)

	weighted := call(t, "mx", runtime.NewArray([]runtime.Value{n(0), n(10)}), nums(3, 1))
	wantNumber(t, call(t, "mean", weighted), 2.5, 1e-9)

}

func TestDistSumOfDists(t *testing.T) {
	a := call(t, "normal", n(0), n(1))
	total := call(t, "Dist.sum", runtime.NewArray([]runtime.Value{a, a, n(1)}))
	wantNumber(t, call(t, "mean", total), 1, 1e-9)
}

func TestSampleSetFunctions(t *testing.T) {
	set := call(t, "SampleSet.fromList", nums(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))
	wantNumber(t, call(t, "mean", set), 5.5, 1e-12)
	negated := call(t, "SampleSet.map", set, fn(t, "unaryMinus"))
	wantNumber(t, call(t, "mean", negated), -5.5, 1e-12)
	wantString(t, call(t, "SampleSet.toList", negated), "[-1, -2, -3, -4, -5, -6, -7, -8, -9, -10]")
	doubled := call(t, "SampleSet.map2", set, set, fn(t, "add"))
	wantNumber(t, call(t, "mean", doubled), 11, 1e-12)

	fromDist := distIn(t, call(t, "SampleSet.fromDist", call(t, "normal", n(0), n(1))))
	if s, ok := fromDist.(*dist.SampleSet); !ok || s.Len() != 1000 {
		t.Fatalf("SampleSet.fromDist = %s", fromDist)
	}

	err := callErr(t, "SampleSet.fromList", nums(1, 2))
	if runtime.KindOf(err) != runtime.ErrDistribution {
		t.Fatalf("kind = %v, err = %v", runtime.KindOf(err), err)
	}
}

func TestPointSetFunctions(t *testing.T) {
	point := func(x, y float64) runtime.Value {
		return runtime.NewDict(runtime.DictEntry{Key: "x", Value: n(x)}, runtime.DictEntry{Key: "y", Value: n(y)})
	}
	discrete := call(t, "PointSet.makeDiscrete", runtime.NewArray([]runtime.Value{point(1, 0.5), point(2, 0.5)}))
	wantNumber(t, call(t, "mean", discrete), 1.5, 1e-12)
	if _, ok := distIn(t, call(t, "PointSet.fromDist", call(t, "normal", n(0), n(1)))).(*dist.PointSet); !ok {
		t.Fatalf("PointSet.fromDist should return a point set")
	}
	continuous := call(t, "PointSet.makeContinuous", runtime.NewArray([]runtime.Value{point(0, 0), point(1, 2), point(2, 0)}))
	wantNumber(t, call(t, "integralSum", continuous), 2, 1e-9)
	scaled := call(t, "dotMultiply", continuous, n(0.5))
	wantNumber(t, call(t, "integralSum", scaled), 1, 1e-9)
	if err := callErr(t, "dotAdd", continuous, n(1)); runtime.KindOf(err) != runtime.ErrDistribution {
		t.Fatalf("vertical shift: %v", err)
	}
}

func TestSymNamespaceIsSymbolicOnly(t *testing.T) {
	wantString(t, call(t, "Sym.normal", n(1), n(2)), "Normal(1,2)")
	err := callErr(t, "Sym.normal", call(t, "normal", n(0), n(1)), n(1))
	if runtime.KindOf(err) != runtime.ErrNoMatchingSignature {
		t.Fatalf("kind = %v", runtime.KindOf(err))
	}
}

func TestLogScore(t *testing.T) {
	params := runtime.NewDict(
		runtime.DictEntry{Key: "estimate", Value: call(t, "normal", n(0), n(1))},
		runtime.DictEntry{Key: "answer", Value: n(0)},
	)
	wantNumber(t, call(t, "Dist.logScore", params), 0.5*math.Log(2*math.Pi), 1e-9)
}

func TestExternals(t *testing.T) {
	ext := Externals(testRegistry)
	wantNumber(t, ext["Math.pi"], math.Pi, 0)
	for _, name := range []string{"add", IndexLookup, "Tag.doc", "List.map", "normal", "credibleIntervalToDistribution", "fromUnit_k"} {
		if _, ok := ext[name]; !ok {
			t.Fatalf("missing external %s", name)
		}
	}
}

func TestAmbiguousLambdaArity(t *testing.T) {
	strs := runtime.NewArray([]runtime.Value{runtime.NewArray([]runtime.Value{s("a"), s("b")})})
	err := callErr(t, "List.map", strs, fn(t, "List.join"))
	if runtime.KindOf(err) != runtime.ErrAmbiguous {
		t.Fatalf("kind = %v, err = %v", runtime.KindOf(err), err)
	}
	if want := "Ambiguous Error: List.map: function accepts 1 and 2 arguments, so the call is ambiguous"; err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
	if err := callErr(t, "List.make", n(3), fn(t, "List.join")); runtime.KindOf(err) == runtime.ErrAmbiguous {
		t.Fatalf("List.join takes no zero-argument call, got %v", err)
	}
	wantString(t, call(t, "List.map", nums(1, 2), fn(t, "unaryMinus")), "[-1, -2]")

	optional := runtime.NewBuiltin("optional", def(in(runtime.Optional(runtime.FRNumber)), runtime.FRNumber,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return n(1), nil
		}))
	if err := callErr(t, "SampleSet.fromFn", optional); runtime.KindOf(err) != runtime.ErrAmbiguous {
		t.Fatalf("SampleSet.fromFn: %v", err)
	}
}

func TestSampleSetConstructorsAndMaps(t *testing.T) {
	constant := sampleSet(call(t, "SampleSet.fromNumber", n(3)))
	if constant.Len() != 1000 {
		t.Fatalf("fromNumber gave %d samples", constant.Len())
	}
	wantNumber(t, call(t, "mean", runtime.NewDist(constant)), 3, 0)
	wantString(t, call(t, "SampleSet.toList", call(t, "SampleSet.make", nums(1, 2, 3, 4, 5, 6))), "[1, 2, 3, 4, 5, 6]")
	if made := sampleSet(call(t, "SampleSet.make", call(t, "normal", n(0), n(1)))); made.Len() != 1000 {
		t.Fatalf("make(dist) gave %d samples", made.Len())
	}

	a := call(t, "SampleSet.fromList", nums(1, 2, 3, 4, 5, 6))
	b := call(t, "SampleSet.fromList", nums(10, 20, 30, 40, 50, 60))
	c := call(t, "SampleSet.fromList", nums(100, 200, 300, 400, 500, 600, 700))
	addThree := runtime.NewBuiltin("addThree", def(in(runtime.FRNumber, runtime.FRNumber, runtime.FRNumber), runtime.FRNumber,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Number(num(args[0]) + num(args[1]) + num(args[2])), nil
		}))
	wantString(t, call(t, "SampleSet.toList", call(t, "SampleSet.map3", a, b, c, addThree)), "[111, 222, 333, 444, 555, 666]")
	all := runtime.NewArray([]runtime.Value{a, b, c})
	wantString(t, call(t, "SampleSet.toList", call(t, "SampleSet.mapN", all, fn(t, "Math.max"))), "[100, 200, 300, 400, 500, 600]")

	err := callErr(t, "SampleSet.mapN", runtime.NewArray(nil), fn(t, "Math.max"))
	if runtime.KindOf(err) != runtime.ErrDistribution {
		t.Fatalf("mapN of nothing: %v", err)
	}
}

func TestPointSetConstructorsAndDownsample(t *testing.T) {
	wantNumber(t, call(t, "mean", call(t, "PointSet.fromNumber", n(4))), 4, 0)
	wantNumber(t, call(t, "mean", call(t, "PointSet.make", n(4))), 4, 0)

	full := distIn(t, call(t, "PointSet.make", call(t, "normal", n(0), n(1)))).(*dist.PointSet)
	small := distIn(t, call(t, "PointSet.downsample", runtime.NewDist(full), n(20))).(*dist.PointSet)
	if got := small.Shape.Continuous.Shape.Len(); got == 0 || got > 20 {
		t.Fatalf("downsampled to %d points", got)
	}
	wantNumber(t, call(t, "mean", runtime.NewDist(small)), 0, 0.1)

	if err := callErr(t, "PointSet.downsample", runtime.NewDist(full), n(-1)); err.Error() != "Error: Expected non-negative number" {
		t.Fatalf("negative count: %v", err)
	}
}

func TestDistModeAndTransforms(t *testing.T) {
	normal := call(t, "normal", n(2), n(1))
	wantNumber(t, call(t, "mode", normal), 2, 1e-12)
	wantNumber(t, call(t, "Dist.mode", call(t, "triangular", n(0), n(1), n(5))), 1, 1e-12)
	if _, ok := distIn(t, call(t, "Dist.toPointSet", normal)).(*dist.PointSet); !ok {
		t.Fatalf("toPointSet should return a point set")
	}
	if err := callErr(t, "mode", call(t, "mx", normal, call(t, "normal", n(5), n(1)))); runtime.KindOf(err) != runtime.ErrDistribution {
		t.Fatalf("mode of a mixture: %v", err)
	}

	standard := call(t, "normal", n(0), n(1))
	wantNumber(t, call(t, "mean", call(t, "Dist.exp", standard)), math.Exp(0.5), 0.3)
	wantNumber(t, call(t, "mean", call(t, "Dist.log", call(t, "lognormal", n(1), n(0.5)))), 1, 0.1)
	wantNumber(t, call(t, "mean", call(t, "Dist.log10", call(t, "uniform", n(10), n(100)))), 1.68, 0.1)
	if err := callErr(t, "Dist.log", standard); runtime.KindOf(err) != runtime.ErrDistribution {
		t.Fatalf("log of a normal: %v", err)
	}

	// exp(density) of a uniform on [0, 1] is e everywhere.
	bumped := distIn(t, call(t, "Dist.dotExp", call(t, "uniform", n(0), n(1)))).(*dist.PointSet)
	if got, _ := bumped.Pdf(0.5, dist.Env{}); math.Abs(got-math.E) > 1e-6 {
		t.Fatalf("dotExp pdf(0.5) = %v", got)
	}
}

func TestDanger(t *testing.T) {
	wantNumber(t, call(t, "Danger.laplace", n(1), n(10)), 2.0/12, 1e-12)
	wantNumber(t, call(t, "Danger.factorial", n(5)), 120, 1e-9)
	wantNumber(t, call(t, "Danger.choose", n(5), n(2)), 10, 1e-9)
	wantNumber(t, call(t, "Danger.binomial", n(4), n(2), n(0.5)), 0.375, 1e-9)
	wantString(t, call(t, "Danger.combinations", nums(1, 2, 3), n(2)), "[[1, 2], [1, 3], [2, 3]]")
	wantString(t, call(t, "Danger.allCombinations", nums(1, 2, 3)), "[[1], [2], [3], [1, 2], [1, 3], [2, 3], [1, 2, 3]]")

	plusOne := runtime.NewBuiltin("plusOne", def(in(runtime.FRNumber), runtime.FRNumber,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Number(num(args[0]) + 1), nil
		}))
	wantNumber(t, call(t, "Danger.integrateFunctionBetweenWithNumIntegrationPoints", plusOne, n(1), n(10), n(10)), 58.5, 1e-9)
	wantNumber(t, call(t, "Danger.integrateFunctionBetweenWithEpsilon", plusOne, n(1), n(10), n(0.1)), 58.5, 1e-9)

	tenMinus := runtime.NewBuiltin("tenMinus", def(in(runtime.FRNumber), runtime.FRNumber,
		func(_ *runtime.CallContext, args []runtime.Value) (runtime.Value, error) {
			return runtime.Number(10 - num(args[0])), nil
		}))
	five := runtime.NewBuiltin("five", def(in(runtime.FRNumber), runtime.FRNumber,
		func(_ *runtime.CallContext, _ []runtime.Value) (runtime.Value, error) {
			return runtime.Number(5), nil
		}))
	fns := runtime.NewArray([]runtime.Value{tenMinus, five})
	wantString(t, call(t, "Danger.optimalAllocationGivenDiminishingMarginalReturnsForManyFunctions", fns, n(10), n(1)), "[6, 4]")

	errs := []struct {
		name string
		args []runtime.Value
		msg  string
	}{
		{"Danger.combinations", []runtime.Value{nums(1, 2), n(3)}, "Argument Error: Combinations of length 3 were requested, but full list is only 2 long."},
		{"Danger.integrateFunctionBetweenWithEpsilon", []runtime.Value{plusOne, n(1), n(10), n(0)}, "Error: Integration error in Danger.integrate: Increment can't be 0."},
		{"Danger.optimalAllocationGivenDiminishingMarginalReturnsForManyFunctions", []runtime.Value{runtime.NewArray([]runtime.Value{five}), n(10), n(1)}, "Error: Number of functions should be greater than 1"},
		{"Danger.choose", []runtime.Value{n(2), n(5)}, "Argument Error: choose requires 0 <= k <= n, got n=2, k=5"},
	}
	for _, tc := range errs {
		if got := callErr(t, tc.name, tc.args...).Error(); got != tc.msg {
			t.Fatalf("%s: error = %q, want %q", tc.name, got, tc.msg)
		}
	}
	if err := callErr(t, "Danger.allCombinations", call(t, "List.upTo", n(1), n(30))); runtime.KindOf(err) != runtime.ErrArgument {
		t.Fatalf("allCombinations of 30 elements: %v", err)
	}
}

func TestDangerDiscreteDists(t *testing.T) {
	poisson := sampleSet(call(t, "Danger.poissonDist", n(10)))
	if poisson.Len() != 1000 {
		t.Fatalf("poissonDist gave %d samples", poisson.Len())
	}
	wantNumber(t, call(t, "mean", runtime.NewDist(poisson)), 10, 0.5)

	binomial := sampleSet(call(t, "Danger.binomialDist", n(8), n(0.5)))
	for _, x := range binomial.Samples() {
		if x != math.Trunc(x) || x < 0 || x > 8 {
			t.Fatalf("binomial sample %v", x)
		}
	}
	wantNumber(t, call(t, "mean", runtime.NewDist(binomial)), 4, 0.3)

	mixed := sampleSet(call(t, "Danger.poissonDist", call(t, "uniform", n(5), n(15))))
	wantNumber(t, call(t, "mean", runtime.NewDist(mixed)), 10, 0.6)
	if mixed.Lineage != "poissonDist(Uniform(5,15))" {
		t.Fatalf("lineage = %q", mixed.Lineage)
	}

	for _, args := range [][]runtime.Value{{n(8), n(1.5)}, {n(-1), n(0.5)}, {n(2.5), n(0.5)}} {
		if err := callErr(t, "Danger.binomialDist", args...); runtime.KindOf(err) != runtime.ErrArgument {
			t.Fatalf("binomialDist%v: %v", args, err)
		}
	}
	if err := callErr(t, "Danger.poissonDist", n(0)); runtime.KindOf(err) != runtime.ErrArgument {
		t.Fatalf("poissonDist(0): %v", err)
	}
}
