package compiler

import (
	"errors"
	"strings"
	"testing"

	"squiggle/interpreter-go/pkg/ir"
	"squiggle/interpreter-go/pkg/parser"
	"squiggle/interpreter-go/pkg/runtime"
)

func testExternals() map[string]runtime.Value {
	names := []string{
		"add", "multiply", "unaryMinus", "smaller", "credibleIntervalToDistribution",
		IndexLookupFunction, "fromUnit_k", "Tag.name", "Tag.doc", "List.map", "normal",
	}
	out := map[string]runtime.Value{}
	for _, name := range names {
		out[name] = runtime.NewBuiltin(name)
	}
	out["ten"] = runtime.Number(10)
	return out
}

func compileSource(t *testing.T, source string) *ir.Program {
	t.Helper()
	prog, err := parser.Parse(source, "main")
	if err != nil {
		t.Fatalf("parse %q: %v", source, err)
	}
	out, err := Compile(prog, Options{Externals: testExternals()})
	if err != nil {
		t.Fatalf("compile %q: %v", source, err)
	}
	return out
}

func compileError(t *testing.T, source string) *CompileError {
	t.Helper()
	prog, err := parser.Parse(source, "main")
	if err != nil {
		t.Fatalf("parse %q: %v", source, err)
	}
	_, err = Compile(prog, Options{Externals: testExternals()})
	if err == nil {
		t.Fatalf("compile %q: expected error", source)
	}
	var ce *CompileError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CompileError, got %T", err)
	}
	return ce
}

func TestCompileOutput(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   string
	}{
		{"literal", "1", "1"},
		{"external value", "ten", "10"},
		{"stack offsets", "x = 1\ny = 2\nx", "(Assign x 1)\n(Assign y 2)\nx@1"},
		{"shadowing keeps the newest slot", "x = 1\nx = 2\nx", "(Assign x 1)\n(Assign x 2)\nx@0"},
		{"infix", "1 + 2", "(add 1 2)"},
		{"to", "1 to 2", "(credibleIntervalToDistribution 1 2)"},
		{"unary", "-ten", "(unaryMinus 10)"},
		{"ternary", "1 < 2 ? 3 : 4", "(Ternary (smaller 1 2) 3 4)"},
		{"dot lookup", "d = {a: 1}\nd.a", `(Assign d {"a": 1})` + "\n" + `($_atIndex_$ d@0 "a")`},
		{"bracket lookup", "l = [1, 2]\nl[0]", "(Assign l [1 2])\n($_atIndex_$ l@0 0)"},
		{"dict shorthand", "a = 1\nb = 2\n{a, b}", "(Assign a 1)\n(Assign b 2)\n{\"a\": a@1, \"b\": b@0}"},
		{"pipe", "f(x, y) = x * y\n2 -> f(3)", "(Assign f (Lambda f [x y] [] (multiply x@1 y@0)))\n(f@0 2 3)"},
		{"unit value", "5k", "(fromUnit_k 5)"},
		{"empty block is unwrapped", "{ 1 }", "1"},
		{"block offsets", "a = 1\nb = { c = 2; a }", "(Assign a 1)\n(Assign b (Block (Assign c 2) a@1))"},
		{"qualified builtin", "List.map([1], {|x| x})", "(List.map [1] (Lambda [x] [] x@0))"},
		{"captures", "a = 1\nf(x) = x + a", "(Assign a 1)\n(Assign f (Lambda f [x] [a@0] (add x@0 a^0)))"},
		{"captures are deduplicated", "a = 1\nf(x) = a * a", "(Assign a 1)\n(Assign f (Lambda f [x] [a@0] (multiply a^0 a^0)))"},
		{"externals are not captured", "f(x) = x + ten", "(Assign f (Lambda f [x] [] (add x@0 10)))"},
		{
			"nested captures go through the enclosing function",
			"a = 1\nf = {|x| {|y| a}}",
			"(Assign a 1)\n(Assign f (Lambda [x] [a@0] (Lambda [y] [a^0] a^0)))",
		},
		{"annotations compile outside the function", "lo = 0\nf(x: [lo, 1]) = x", "(Assign lo 0)\n(Assign f (Lambda f [x:[lo@0 1]] [] x@0))"},
		{
			"decorators apply innermost first",
			"@name(\"N\")\n@doc(\"D\")\nx = 1",
			"(Assign x (decorate Tag.name (decorate Tag.doc 1 \"D\") \"N\"))",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ir.Format(compileSource(t, tc.source))
			if got != tc.want {
				t.Fatalf("compile %q:\n got %s\nwant %s", tc.source, got, tc.want)
			}
		})
	}
}

func TestCompileBindingsAndExports(t *testing.T) {
	prog := compileSource(t, "export a = 1\nb = 2\nexport a = 3\n@doc(\"x\")\nexport f(x) = x")
	if got := strings.Join(prog.Exports, ","); got != "a,a,f" {
		t.Fatalf("exports = %s", got)
	}
	want := map[string]int{"b": 2, "a": 1, "f": 0}
	if len(prog.Bindings) != len(want) {
		t.Fatalf("bindings = %+v", prog.Bindings)
	}
	for _, b := range prog.Bindings {
		if want[b.Name] != b.Offset {
			t.Fatalf("binding %s offset = %d, want %d", b.Name, b.Offset, want[b.Name])
		}
	}
	if prog.Result != nil {
		t.Fatalf("expected no result, got %s", ir.Format(prog.Result))
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		source string
		want   string
	}{
		{"z", "z is not defined"},
		{"x = y", "y is not defined"},
		{"f(x) = f(x)", "f is not defined"},
		{"x = { export y = 1; y }", "Exports aren't allowed in blocks"},
		{"x = 1 / 2", "divide is not defined"},
		{"@hidden\nx = 1", "Tag.hidden is not defined"},
		{"f = {|x| y}", "y is not defined"},
	}
	for _, tc := range cases {
		ce := compileError(t, tc.source)
		if ce.Message != tc.want {
			t.Fatalf("compile %q: message = %q, want %q", tc.source, ce.Message, tc.want)
		}
		if ce.Location.Source != "main" {
			t.Fatalf("compile %q: location %v has no source", tc.source, ce.Location)
		}
	}
}

func TestCompileProducesEveryIRKind(t *testing.T) {
	source := strings.Join([]string{
		"a = 1",
		"f(x) = { y = x; a + y }",
		"d = {k: [1, 2]}",
		"d.k[0] < 1 ? f(a) : 2",
	}, "\n")
	prog := compileSource(t, source)
	seen := map[ir.Kind]bool{}
	ir.Walk(prog, func(n ir.Node) { seen[n.Kind()] = true })
	for _, kind := range ir.AllKinds() {
		if !seen[kind] {
			t.Fatalf("compiled program has no %s node:\n%s", kind, ir.Format(prog))
		}
	}
}

func TestOperatorTables(t *testing.T) {
	for _, op := range []string{"+", "-", "*", "/", "^", ".+", ".-", ".*", "./", ".^", "==", "!=", "<", "<=", ">", ">=", "&&", "||", "to"} {
		if _, ok := InfixFunction(op); !ok {
			t.Fatalf("missing infix operator %s", op)
		}
	}
	for _, op := range []string{"-", "!", ".-"} {
		if _, ok := UnaryFunction(op); !ok {
			t.Fatalf("missing unary operator %s", op)
		}
	}
	if got := UnitFunction("M"); got != "fromUnit_M" {
		t.Fatalf("UnitFunction = %s", got)
	}
}
