// Package driver maintains a graph of modules linked by imports and
// continues edges, loads missing sources through a Linker, and runs each
// module at most once per source version.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"squiggle/interpreter-go/pkg/ast"
	"squiggle/interpreter-go/pkg/dist"
	"squiggle/interpreter-go/pkg/interpreter"
	"squiggle/interpreter-go/pkg/library"
	"squiggle/interpreter-go/pkg/parser"
	"squiggle/interpreter-go/pkg/runtime"
)

// Linker maps import strings to source ids and fetches sources. The
// project never reads files itself.
type Linker interface {
	Resolve(name, fromID string) (string, error)
	LoadSource(ctx context.Context, id string) (string, error)
}

// ImportBinding is one resolved `import "..." as name` of a module.
type ImportBinding struct {
	ID       string
	Variable string
	Location ast.LocationRange
}

type Option func(*Project)

func WithLinker(l Linker) Option { return func(p *Project) { p.linker = l } }

func WithLogger(l *slog.Logger) Option {
	return func(p *Project) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithEnv(env dist.Env) Option { return func(p *Project) { p.env = env } }

func WithRegistry(r *runtime.Registry) Option { return func(p *Project) { p.registry = r } }

func WithRunner(r Runner) Option { return func(p *Project) { p.runner = r } }

type module struct {
	id        string
	source    string
	continues []string

	parsed    bool
	program   *ast.Program
	imports   []ImportBinding
	importErr error

	ran    bool
	output *interpreter.Output
	err    error
}

func (m *module) clean() {
	m.ran = false
	m.output = nil
	m.err = nil
}

// Project is safe for concurrent use. Runs are serialized.
type Project struct {
	mu       sync.Mutex
	modules  map[string]*module
	order    []string
	linker   Linker
	logger   *slog.Logger
	env      dist.Env
	registry *runtime.Registry
	runner   Runner
	loads    singleflight.Group
}

func NewProject(opts ...Option) *Project {
	p := &Project{
		modules: map[string]*module{},
		logger:  slog.New(slog.DiscardHandler),
		env:     dist.DefaultEnv,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = defaultRegistry()
	}
	if p.runner == nil {
		p.runner = &InProcessRunner{Registry: p.registry}
	}
	return p
}

func defaultRegistry() *runtime.Registry { return library.NewRegistry() }

func (p *Project) Env() dist.Env { return p.env }

func (p *Project) SetEnv(env dist.Env) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.env = env
	for _, m := range p.modules {
		m.clean()
	}
}

// SourceIDs lists modules in the order they were added.
func (p *Project) SourceIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.order)
}

// SetSource adds or replaces a module. Replacing it with different text
// invalidates the module and everything that depends on it.
func (p *Project) SetSource(id, source string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.modules[id]; ok {
		if m.source == source {
			return
		}
		p.invalidate(id)
		m.source = source
		m.parsed = false
		m.program = nil
		m.imports = nil
		m.importErr = nil
		return
	}
	p.modules[id] = &module{id: id, source: source}
	p.order = append(p.order, id)
	p.invalidate(id)
}

func (p *Project) RemoveSource(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.modules[id]; !ok {
		return
	}
	p.invalidate(id)
	delete(p.modules, id)
	p.order = slices.DeleteFunc(p.order, func(s string) bool { return s == id })
}

func (p *Project) Source(id string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.modules[id]
	if !ok {
		return "", false
	}
	return m.source, true
}

// SetContinues makes the bindings of each continued module visible in id
// as top-level names.
func (p *Project) SetContinues(id string, continues []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, err := p.lookup(id)
	if err != nil {
		return err
	}
	p.invalidate(id)
	m.continues = slices.Clone(continues)
	return nil
}

func (p *Project) Continues(id string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.modules[id]; ok {
		return slices.Clone(m.continues)
	}
	return nil
}

// Imports parses id if needed and resolves its import strings.
func (p *Project) Imports(id string) ([]ImportBinding, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, err := p.lookup(id)
	if err != nil {
		return nil, err
	}
	p.resolve(m)
	if m.importErr != nil {
		return nil, m.importErr
	}
	return slices.Clone(m.imports), nil
}

// Dependencies returns the continues of id followed by its import ids.
func (p *Project) Dependencies(id string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.modules[id]
	if !ok {
		return nil
	}
	return p.dependencies(m)
}

// Dependents returns the modules that directly continue or import id.
func (p *Project) Dependents(id string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dependents(id)
}

// RunOrder lists every module after its dependencies.
func (p *Project) RunOrder() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	visited := map[string]bool{}
	var out []string
	for _, id := range p.order {
		out = p.topo(id, visited, out)
	}
	return out
}

// RunOrderFor lists id and its transitive dependencies, dependencies first.
func (p *Project) RunOrderFor(id string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.topo(id, map[string]bool{}, nil)
}

func (p *Project) Clean(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m, ok := p.modules[id]; ok {
		m.clean()
	}
}

func (p *Project) CleanAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.modules {
		m.clean()
	}
}

// Output returns the cached result of the last run of id.
func (p *Project) Output(id string) (*interpreter.Output, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, err := p.lookup(id)
	if err != nil {
		return nil, err
	}
	if !m.ran {
		return nil, ErrNeedToRun
	}
	return m.output, m.err
}

// Run evaluates id and any dependency without a cached result. A failed
// dependency fails its dependents; unrelated modules keep their results.
func (p *Project) Run(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.lookup(id); err != nil {
		return err
	}
	if err := p.checkCycles(id); err != nil {
		p.recordCycle(id, err)
		return err
	}
	for _, mid := range p.topo(id, map[string]bool{}, nil) {
		if err := p.runModule(ctx, mid); err != nil && errors.Is(err, runtime.ErrCancelledEvaluation) {
			return err
		}
	}
	return p.modules[id].err
}

// RunAll runs every module and joins the errors of those that failed.
func (p *Project) RunAll(ctx context.Context) error {
	var errs []error
	for _, id := range p.RunOrder() {
		if err := p.Run(ctx, id); err != nil {
			if errors.Is(err, runtime.ErrCancelledEvaluation) {
				return err
			}
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// LoadImports fetches every module reachable from id through imports that
// is not in the project yet. Each id is fetched once; siblings load
// concurrently and concurrent callers share in-flight fetches.
func (p *Project) LoadImports(ctx context.Context, id string) error {
	if _, ok := p.Source(id); !ok {
		return fmt.Errorf("driver: source %s not found", id)
	}
	l := &loadState{project: p, claimed: map[string]bool{id: true}}
	if err := l.load(ctx, id, []string{id}); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkCycles(id)
}

// RunWithImports loads the imports of id and runs it.
func (p *Project) RunWithImports(ctx context.Context, id string) error {
	if err := p.LoadImports(ctx, id); err != nil {
		return err
	}
	return p.Run(ctx, id)
}

type loadState struct {
	project *Project
	mu      sync.Mutex
	claimed map[string]bool
}

func (l *loadState) claim(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.claimed[id] {
		return false
	}
	l.claimed[id] = true
	return true
}

func (l *loadState) load(ctx context.Context, id string, chain []string) error {
	imports, err := l.project.Imports(id)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, imp := range imports {
		if !l.claim(imp.ID) {
			continue
		}
		next := append(slices.Clone(chain), imp.ID)
		g.Go(func() error {
			if err := l.project.fetch(gctx, imp.ID, next); err != nil {
				return err
			}
			return l.load(gctx, imp.ID, next)
		})
	}
	return g.Wait()
}

func (p *Project) fetch(ctx context.Context, id string, chain []string) error {
	if _, ok := p.Source(id); ok {
		return nil
	}
	_, err, _ := p.loads.Do(id, func() (any, error) {
		if _, ok := p.Source(id); ok {
			return nil, nil
		}
		p.logger.Debug("load-source", "id", id)
		source, err := p.linker.LoadSource(ctx, id)
		if err != nil {
			return nil, &ImportError{Kind: ImportNotFound, ID: id, Chain: slices.Clone(chain), Err: err}
		}
		p.SetSource(id, source)
		return nil, nil
	})
	return err
}

func (p *Project) lookup(id string) (*module, error) {
	m, ok := p.modules[id]
	if !ok {
		return nil, fmt.Errorf("driver: source %s not found", id)
	}
	return m, nil
}

func (p *Project) resolve(m *module) {
	if m.parsed {
		return
	}
	m.parsed = true
	prog, err := parser.Parse(m.source, m.id)
	if err != nil {
		m.importErr = err
		return
	}
	m.program = prog
	for _, imp := range prog.Imports {
		name := imp.Path.Value
		if p.linker == nil {
			m.importErr = &ImportError{Kind: ImportResolve, ID: name, Chain: []string{m.id}, Err: errors.New("no linker configured")}
			return
		}
		resolved, err := p.linker.Resolve(name, m.id)
		if err != nil {
			m.importErr = &ImportError{Kind: ImportResolve, ID: name, Chain: []string{m.id}, Err: err}
			return
		}
		m.imports = append(m.imports, ImportBinding{ID: resolved, Variable: imp.Variable.Value, Location: imp.Location()})
	}
}

func (p *Project) dependencies(m *module) []string {
	p.resolve(m)
	out := slices.Clone(m.continues)
	for _, imp := range m.imports {
		out = append(out, imp.ID)
	}
	return out
}

func (p *Project) dependents(id string) []string {
	var out []string
	for _, mid := range p.order {
		if mid == id {
			continue
		}
		m := p.modules[mid]
		deps := slices.Clone(m.continues)
		for _, imp := range m.imports {
			deps = append(deps, imp.ID)
		}
		if slices.Contains(deps, id) {
			out = append(out, mid)
		}
	}
	return out
}

// invalidate drops the cached results of id and its transitive dependents.
func (p *Project) invalidate(id string) {
	queue := []string{id}
	seen := map[string]bool{id: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if m, ok := p.modules[cur]; ok && m.ran {
			p.logger.Debug("invalidate", "id", cur)
			m.clean()
		}
		for _, dep := range p.dependents(cur) {
			if !seen[dep] {
				seen[dep] = true
				queue = append(queue, dep)
			}
		}
	}
}

func (p *Project) topo(id string, visited map[string]bool, out []string) []string {
	if visited[id] {
		return out
	}
	visited[id] = true
	m, ok := p.modules[id]
	if !ok {
		return out
	}
	for _, dep := range p.dependencies(m) {
		out = p.topo(dep, visited, out)
	}
	return append(out, id)
}

func (p *Project) checkCycles(root string) error {
	const (
		active = 1
		done   = 2
	)
	state := map[string]int{}
	var stack []string
	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case active:
			return &ImportError{Kind: ImportCyclic, ID: id, Chain: append(slices.Clone(stack), id)}
		case done:
			return nil
		}
		m, ok := p.modules[id]
		if !ok {
			return nil
		}
		state[id] = active
		stack = append(stack, id)
		for _, dep := range p.dependencies(m) {
			if err := visit(dep); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}
	return visit(root)
}

// recordCycle stores a cycle error as the result of root and of every
// module on the import chain, so Output reports it until a source changes.
func (p *Project) recordCycle(root string, err error) {
	ids := []string{root}
	var ie *ImportError
	if errors.As(err, &ie) {
		ids = append(ids, ie.Chain...)
	}
	for _, id := range ids {
		if m, ok := p.modules[id]; ok {
			m.ran, m.output, m.err = true, nil, err
		}
	}
}

func (p *Project) runModule(ctx context.Context, id string) error {
	m := p.modules[id]
	if m.ran {
		return m.err
	}
	externals, err := p.link(m)
	if err != nil {
		m.ran, m.err = true, err
		return err
	}
	p.logger.Debug("start-run", "id", id)
	start := time.Now()
	out, err := p.runner.Run(ctx, RunRequest{SourceID: id, Source: m.source, Externals: externals, Env: p.env})
	p.logger.Debug("end-run", "id", id, "ok", err == nil, "elapsed", time.Since(start))
	if err != nil && errors.Is(err, runtime.ErrCancelledEvaluation) {
		return err
	}
	m.ran, m.output, m.err = true, out, err
	return err
}

// link builds the externals of m: continued bindings merged flat, then each
// import bound to the exports of its module.
func (p *Project) link(m *module) (map[string]runtime.Value, error) {
	p.resolve(m)
	if m.importErr != nil {
		return nil, m.importErr
	}
	externals := map[string]runtime.Value{}
	dep := func(id string) (*module, error) {
		d, ok := p.modules[id]
		if !ok {
			return nil, &ImportError{Kind: ImportNotFound, ID: id, Chain: []string{m.id, id}}
		}
		if !d.ran {
			return nil, ErrNeedToRun
		}
		if d.err != nil {
			return nil, &DependencyError{ID: id, Err: d.err}
		}
		return d, nil
	}
	for _, id := range m.continues {
		d, err := dep(id)
		if err != nil {
			return nil, err
		}
		for _, entry := range d.output.Bindings.Entries() {
			externals[entry.Key] = entry.Value
		}
	}
	for _, imp := range m.imports {
		d, err := dep(imp.ID)
		if err != nil {
			return nil, err
		}
		externals[imp.Variable] = d.output.Exports
	}
	return externals, nil
}

type graphDisk struct {
	Modules  []graphModule `yaml:"modules"`
	RunOrder []string      `yaml:"runOrder,omitempty"`
}

type graphModule struct {
	ID         string        `yaml:"id"`
	Continues  []string      `yaml:"continues,omitempty"`
	Imports    []graphImport `yaml:"imports,omitempty"`
	Dependents []string      `yaml:"dependents,omitempty"`
	Status     string        `yaml:"status"`
	Error      string        `yaml:"error,omitempty"`
}

type graphImport struct {
	ID       string `yaml:"id"`
	Variable string `yaml:"as"`
}

// WriteGraph dumps the module graph with run status as YAML.
func (p *Project) WriteGraph(w io.Writer) error {
	order := p.RunOrder()
	p.mu.Lock()
	var graph graphDisk
	graph.RunOrder = order
	for _, id := range p.order {
		m := p.modules[id]
		p.resolve(m)
		entry := graphModule{ID: id, Continues: slices.Clone(m.continues), Dependents: p.dependents(id), Status: "pending"}
		for _, imp := range m.imports {
			entry.Imports = append(entry.Imports, graphImport{ID: imp.ID, Variable: imp.Variable})
		}
		switch {
		case m.ran && m.err == nil:
			entry.Status = "ok"
		case m.ran:
			entry.Status = "failed"
			entry.Error = m.err.Error()
		case m.importErr != nil:
			entry.Status = "failed"
			entry.Error = m.importErr.Error()
		}
		graph.Modules = append(graph.Modules, entry)
	}
	p.mu.Unlock()

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(graph); err != nil {
		return fmt.Errorf("graph: marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("graph: encoder close: %w", err)
	}
	return nil
}

// Evaluate runs a single self-contained source.
func Evaluate(ctx context.Context, source, sourceID string, env dist.Env) (*interpreter.Output, error) {
	p := NewProject(WithEnv(env))
	p.SetSource(sourceID, source)
	if err := p.Run(ctx, sourceID); err != nil {
		return nil, err
	}
	return p.Output(sourceID)
}
