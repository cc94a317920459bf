package ast_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"squiggle/interpreter-go/pkg/ast"
	"squiggle/interpreter-go/pkg/parser"
)

func TestKindNames(t *testing.T) {
	for _, k := range ast.AllKinds() {
		if k.String() == "Unknown" {
			t.Fatalf("kind %d has no name", int(k))
		}
	}
	if got := ast.Kind(-1).String(); got != "Unknown" {
		t.Fatalf("Kind(-1) = %q", got)
	}
}

func TestWalkPreOrder(t *testing.T) {
	prog, err := parser.Parse("x = 1 + y\nf(x)", "main")
	if err != nil {
		t.Fatal(err)
	}
	var kinds []string
	var paths []string
	for path, n := range ast.Walk(prog) {
		kinds = append(kinds, n.Kind().String())
		paths = append(paths, pathString(path))
	}
	wantKinds := []string{
		"Program",
		"LetStatement", "Identifier", "InfixCall", "Float", "Identifier",
		"Call", "Identifier", "Identifier",
	}
	if diff := cmp.Diff(wantKinds, kinds); diff != "" {
		t.Fatalf("kinds (-want +got):\n%s", diff)
	}
	wantPaths := []string{"", "0", "0.0", "0.1", "0.1.0", "0.1.1", "1", "1.0", "1.1"}
	if diff := cmp.Diff(wantPaths, paths); diff != "" {
		t.Fatalf("paths (-want +got):\n%s", diff)
	}

	n, ok := ast.NodeAt(prog, ast.Path{0, 1, 1})
	if !ok {
		t.Fatalf("NodeAt failed")
	}
	if id, isID := n.(*ast.Identifier); !isID || id.Value != "y" {
		t.Fatalf("NodeAt = %#v", n)
	}
	if _, ok := ast.NodeAt(prog, ast.Path{5}); ok {
		t.Fatalf("NodeAt accepted an out of range path")
	}
}

func TestWalkStopsEarly(t *testing.T) {
	prog, err := parser.Parse("[1, 2, 3, 4]", "main")
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for range ast.Walk(prog) {
		count++
		if count == 3 {
			break
		}
	}
	if count != 3 {
		t.Fatalf("count = %d", count)
	}
}

func TestFindByOffset(t *testing.T) {
	source := "rate = 0.5\ntotal = rate * 200"
	prog, err := parser.Parse(source, "main")
	if err != nil {
		t.Fatal(err)
	}
	// offset of "200"
	offset := len(source) - 2
	n, path, ok := ast.FindByOffset(prog, offset)
	if !ok {
		t.Fatalf("nothing found at %d", offset)
	}
	f, isFloat := n.(*ast.Float)
	if !isFloat || f.Value != 200 {
		t.Fatalf("found %#v", n)
	}
	if diff := cmp.Diff(ast.Path{1, 1, 1}, path); diff != "" {
		t.Fatalf("path (-want +got):\n%s", diff)
	}
}

func TestSpan(t *testing.T) {
	a := ast.LocationRange{Source: "m", Start: ast.Position{Line: 1, Column: 1}, End: ast.Position{Line: 1, Column: 4, Offset: 3}}
	b := ast.LocationRange{Source: "m", Start: ast.Position{Line: 2, Column: 1, Offset: 5}, End: ast.Position{Line: 2, Column: 3, Offset: 7}}
	got := ast.Span(a, b)
	if got.Start != a.Start || got.End != b.End || got.Source != "m" {
		t.Fatalf("Span = %+v", got)
	}
	if !got.Contains(6) || got.Contains(8) {
		t.Fatalf("Contains wrong for %+v", got)
	}
	if !(ast.LocationRange{}).IsZero() || got.IsZero() {
		t.Fatalf("IsZero wrong")
	}
	if s := (ast.LocationRange{Start: ast.Position{Line: 3, Column: 2}}).String(); s != "line 3, column 2" {
		t.Fatalf("String = %q", s)
	}
}

func pathString(p ast.Path) string {
	out := ""
	for i, idx := range p {
		if i > 0 {
			out += "."
		}
		out += string(rune('0' + idx))
	}
	return out
}
