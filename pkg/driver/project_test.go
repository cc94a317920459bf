package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"squiggle/interpreter-go/pkg/dist"
	"squiggle/interpreter-go/pkg/interpreter"
	"squiggle/interpreter-go/pkg/runtime"
)

var testEnv = dist.Env{SampleCount: 1000, XYPointLength: 200, Seed: "driver"}

type mapLinker struct {
	mu      sync.Mutex
	sources map[string]string
	fetches map[string]int
}

func newMapLinker(sources map[string]string) *mapLinker {
	return &mapLinker{sources: sources, fetches: map[string]int{}}
}

func (l *mapLinker) Resolve(name, fromID string) (string, error) { return name, nil }

func (l *mapLinker) LoadSource(ctx context.Context, id string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fetches[id]++
	src, ok := l.sources[id]
	if !ok {
		return "", fmt.Errorf("no source %s", id)
	}
	return src, nil
}

type countingRunner struct {
	inner Runner
	mu    sync.Mutex
	runs  []string
}

func (r *countingRunner) Run(ctx context.Context, req RunRequest) (*interpreter.Output, error) {
	r.mu.Lock()
	r.runs = append(r.runs, req.SourceID)
	r.mu.Unlock()
	return r.inner.Run(ctx, req)
}

func numberResult(t *testing.T, p *Project, id string) float64 {
	t.Helper()
	out, err := p.Output(id)
	if err != nil {
		t.Fatalf("output %s: %v", id, err)
	}
	n, ok := out.Result.(runtime.NumberValue)
	if !ok {
		t.Fatalf("result of %s is %s, want a number", id, runtime.ToString(out.Result))
	}
	return n.Val
}

var diamond = map[string]string{
	"b": "import \"d\" as d\nexport x = d.v * 2",
	"c": "import \"d\" as d\nexport y = d.v * 3",
	"d": "export v = 10",
}

const diamondMain = "import \"b\" as b\nimport \"c\" as c\nb.x + c.y"

func TestDiamondImports(t *testing.T) {
	linker := newMapLinker(diamond)
	p := NewProject(WithLinker(linker), WithEnv(testEnv))
	p.SetSource("main", diamondMain)
	if err := p.RunWithImports(context.Background(), "main"); err != nil {
		t.Fatalf("run: %v", DescribeError(err))
	}
	if got := numberResult(t, p, "main"); got != 50 {
		t.Fatalf("result=%v want=50", got)
	}
	for id, n := range linker.fetches {
		if n != 1 {
			t.Fatalf("%s fetched %d times", id, n)
		}
	}
	order := p.RunOrderFor("main")
	if order[len(order)-1] != "main" || order[0] != "d" {
		t.Fatalf("run order=%v", order)
	}
	if got := p.Dependencies("main"); !slices.Equal(got, []string{"b", "c"}) {
		t.Fatalf("dependencies=%v", got)
	}
	dependents := p.Dependents("d")
	slices.Sort(dependents)
	if got := dependents; !slices.Equal(got, []string{"b", "c"}) {
		t.Fatalf("dependents=%v", got)
	}
}

func TestCyclicImport(t *testing.T) {
	linker := newMapLinker(map[string]string{"b": "import \"a\" as a\nexport y = 1"})
	p := NewProject(WithLinker(linker), WithEnv(testEnv))
	p.SetSource("a", "import \"b\" as b\nb.y")
	err := p.LoadImports(context.Background(), "a")
	var ie *ImportError
	if !errors.As(err, &ie) || ie.Kind != ImportCyclic {
		t.Fatalf("err=%v", err)
	}
	if err.Error() != "Cyclic import a" {
		t.Fatalf("message=%q", err.Error())
	}
	want := "Cyclic import a\nImport chain:\n  a -> b -> a"
	if got := DescribeError(err); got != want {
		t.Fatalf("described=%q want=%q", got, want)
	}
	if err := p.Run(context.Background(), "a"); err == nil || !strings.Contains(err.Error(), "Cyclic import") {
		t.Fatalf("run err=%v", err)
	}
	for _, id := range []string{"a", "b"} {
		if _, err := p.Output(id); !errors.As(err, &ie) || ie.Kind != ImportCyclic {
			t.Fatalf("output %s err=%v", id, err)
		}
	}

	p.SetSource("b", "export y = 7")
	if _, err := p.Output("a"); !errors.Is(err, ErrNeedToRun) {
		t.Fatalf("output after edit err=%v", err)
	}
	if err := p.Run(context.Background(), "a"); err != nil {
		t.Fatalf("run after edit: %v", DescribeError(err))
	}
	if got := numberResult(t, p, "a"); got != 7 {
		t.Fatalf("result=%v want=7", got)
	}
}

func TestMissingImport(t *testing.T) {
	p := NewProject(WithLinker(newMapLinker(map[string]string{})), WithEnv(testEnv))
	p.SetSource("main", "import \"nope\" as n\nn")
	err := p.LoadImports(context.Background(), "main")
	if err == nil || err.Error() != "Can't find source with id nope" {
		t.Fatalf("err=%v", err)
	}
	var ie *ImportError
	if !errors.As(err, &ie) || !slices.Equal(ie.Chain, []string{"main", "nope"}) {
		t.Fatalf("import error=%+v", ie)
	}

	err = p.Run(context.Background(), "main")
	if err == nil || err.Error() != "Can't find source with id nope" {
		t.Fatalf("run err=%v", err)
	}
}

func TestImportsWithoutLinker(t *testing.T) {
	p := NewProject(WithEnv(testEnv))
	p.SetSource("main", "import \"x\" as x\n1")
	_, err := p.Imports("main")
	var ie *ImportError
	if !errors.As(err, &ie) || ie.Kind != ImportResolve {
		t.Fatalf("err=%v", err)
	}
}

func TestInvalidationRecomputesOnlyDependents(t *testing.T) {
	runner := &countingRunner{inner: &InProcessRunner{}}
	p := NewProject(WithLinker(newMapLinker(nil)), WithRunner(runner), WithEnv(testEnv))
	p.SetSource("a", "export x = 1")
	p.SetSource("b", "import \"a\" as a\nexport y = a.x + 1\ny")
	p.SetSource("c", "export z = 5\nz")
	if err := p.RunAll(context.Background()); err != nil {
		t.Fatalf("run all: %v", err)
	}
	if len(runner.runs) != 3 {
		t.Fatalf("runs=%v", runner.runs)
	}

	runner.runs = nil
	p.SetSource("a", "export x = 1")
	if err := p.RunAll(context.Background()); err != nil {
		t.Fatalf("run all: %v", err)
	}
	if len(runner.runs) != 0 {
		t.Fatalf("unchanged source reran %v", runner.runs)
	}

	p.SetSource("a", "export x = 2")
	if _, err := p.Output("b"); !errors.Is(err, ErrNeedToRun) {
		t.Fatalf("b output err=%v", err)
	}
	if err := p.RunAll(context.Background()); err != nil {
		t.Fatalf("run all: %v", err)
	}
	if !slices.Equal(runner.runs, []string{"a", "b"}) {
		t.Fatalf("runs=%v want=[a b]", runner.runs)
	}
	if got := numberResult(t, p, "b"); got != 3 {
		t.Fatalf("b=%v want=3", got)
	}
	if got := numberResult(t, p, "c"); got != 5 {
		t.Fatalf("c=%v want=5", got)
	}
}

func TestContinues(t *testing.T) {
	p := NewProject(WithEnv(testEnv))
	p.SetSource("prelude", "x = 5\ndouble(n) = n * 2")
	p.SetSource("main", "double(x) + 1")
	if err := p.SetContinues("main", []string{"prelude"}); err != nil {
		t.Fatal(err)
	}
	if err := p.Run(context.Background(), "main"); err != nil {
		t.Fatalf("run: %v", DescribeError(err))
	}
	if got := numberResult(t, p, "main"); got != 11 {
		t.Fatalf("result=%v want=11", got)
	}

	p.SetSource("prelude", "x = 7\ndouble(n) = n * 2")
	if err := p.Run(context.Background(), "main"); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if got := numberResult(t, p, "main"); got != 15 {
		t.Fatalf("result=%v want=15", got)
	}
}

func TestFailedDependencyKeepsSiblings(t *testing.T) {
	p := NewProject(WithLinker(newMapLinker(nil)), WithEnv(testEnv))
	p.SetSource("bad", "export x = missing + 1")
	p.SetSource("user", "import \"bad\" as bad\nbad.x")
	p.SetSource("sibling", "40 + 2")
	err := p.RunAll(context.Background())
	if err == nil {
		t.Fatalf("expected failure")
	}
	_, err = p.Output("user")
	var dep *DependencyError
	if !errors.As(err, &dep) || dep.ID != "bad" {
		t.Fatalf("user err=%v", err)
	}
	if !strings.Contains(DescribeError(err), "Dependency bad failed:") {
		t.Fatalf("described=%q", DescribeError(err))
	}
	if got := numberResult(t, p, "sibling"); got != 42 {
		t.Fatalf("sibling=%v", got)
	}
}

type gatedLinker struct {
	*mapLinker
	entered chan struct{}
	release chan struct{}
}

func (l *gatedLinker) LoadSource(ctx context.Context, id string) (string, error) {
	if id == "shared" {
		l.entered <- struct{}{}
		<-l.release
	}
	return l.mapLinker.LoadSource(ctx, id)
}

func TestConcurrentLoadsShareFetches(t *testing.T) {
	base := newMapLinker(map[string]string{"shared": "export v = 1"})
	linker := &gatedLinker{mapLinker: base, entered: make(chan struct{}, 2), release: make(chan struct{})}
	p := NewProject(WithLinker(linker), WithEnv(testEnv))
	p.SetSource("m1", "import \"shared\" as s\ns.v")
	p.SetSource("m2", "import \"shared\" as s\ns.v + 1")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"m1", "m2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = p.LoadImports(context.Background(), id)
		}()
	}
	<-linker.entered
	close(linker.release)
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if n := base.fetches["shared"]; n != 1 {
		t.Fatalf("shared fetched %d times", n)
	}
	if err := p.Run(context.Background(), "m2"); err != nil {
		t.Fatal(err)
	}
	if got := numberResult(t, p, "m2"); got != 2 {
		t.Fatalf("m2=%v", got)
	}
}

func TestSerializingRunner(t *testing.T) {
	linker := newMapLinker(map[string]string{
		"lib": "export triple(x) = x * 3\nexport d = normal(0, 1)",
	})
	p := NewProject(WithLinker(linker), WithRunner(&SerializingRunner{}), WithEnv(testEnv))
	p.SetSource("main", "import \"lib\" as lib\nlib.triple(4)")
	if err := p.RunWithImports(context.Background(), "main"); err != nil {
		t.Fatalf("run: %v", DescribeError(err))
	}
	if got := numberResult(t, p, "main"); got != 12 {
		t.Fatalf("result=%v want=12", got)
	}
	out, err := p.Output("lib")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out.Exports.Get("d"); !ok {
		t.Fatalf("exports=%s", runtime.ToString(out.Exports))
	}
}

func TestCancelledRunIsNotCached(t *testing.T) {
	p := NewProject(WithEnv(testEnv))
	p.SetSource("main", "1 + 1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Run(ctx, "main"); !errors.Is(err, runtime.ErrCancelledEvaluation) {
		t.Fatalf("err=%v", err)
	}
	if _, err := p.Output("main"); !errors.Is(err, ErrNeedToRun) {
		t.Fatalf("output err=%v", err)
	}
	if err := p.Run(context.Background(), "main"); err != nil {
		t.Fatal(err)
	}
	if got := numberResult(t, p, "main"); got != 2 {
		t.Fatalf("result=%v", got)
	}
}

func TestRemoveSourceInvalidatesDependents(t *testing.T) {
	p := NewProject(WithLinker(newMapLinker(nil)), WithEnv(testEnv))
	p.SetSource("a", "export x = 1")
	p.SetSource("b", "import \"a\" as a\na.x")
	if err := p.Run(context.Background(), "b"); err != nil {
		t.Fatal(err)
	}
	p.RemoveSource("a")
	if _, ok := p.Source("a"); ok {
		t.Fatalf("a still present")
	}
	if err := p.Run(context.Background(), "b"); err == nil || err.Error() != "Can't find source with id a" {
		t.Fatalf("err=%v", err)
	}
}

func TestWriteGraph(t *testing.T) {
	p := NewProject(WithLinker(newMapLinker(diamond)), WithEnv(testEnv))
	p.SetSource("main", diamondMain)
	if err := p.RunWithImports(context.Background(), "main"); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := p.WriteGraph(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"- id: main", "as: b", "status: ok", "runOrder:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("graph missing %q:\n%s", want, out)
		}
	}
}

func TestEvaluate(t *testing.T) {
	out, err := Evaluate(context.Background(), "x = 2\nx * 3", "main", testEnv)
	if err != nil {
		t.Fatal(err)
	}
	if got := runtime.ToString(out.Result); got != "6" {
		t.Fatalf("result=%s", got)
	}
	if _, ok := out.Bindings.Get("x"); !ok {
		t.Fatalf("bindings=%s", runtime.ToString(out.Bindings))
	}

	_, err = Evaluate(context.Background(), "f(1)", "main", testEnv)
	if err == nil {
		t.Fatalf("expected error")
	}

	bad := testEnv
	bad.SampleCount = -5
	_, err = Evaluate(context.Background(), "SampleSet.fromDist(normal(0, 1))", "main", bad)
	if runtime.KindOf(err) != runtime.ErrArgument || !strings.Contains(err.Error(), "Sample count must be positive") {
		t.Fatalf("negative sample count err=%v", err)
	}
}
