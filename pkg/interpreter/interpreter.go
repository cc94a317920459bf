package interpreter

import (
	"context"
	"errors"

	"squiggle/interpreter-go/pkg/ast"
	"squiggle/interpreter-go/pkg/compiler"
	"squiggle/interpreter-go/pkg/dist"
	"squiggle/interpreter-go/pkg/ir"
	"squiggle/interpreter-go/pkg/library"
	"squiggle/interpreter-go/pkg/parser"
	"squiggle/interpreter-go/pkg/runtime"
	"squiggle/interpreter-go/pkg/typechecker"
)

// Config controls an Interpreter. A nil Registry selects the standard
// library; a zero Env selects dist.DefaultEnv.
type Config struct {
	Registry *runtime.Registry
	Env      dist.Env
}

// Output is the result of running one program.
type Output struct {
	Result   runtime.Value
	Bindings *runtime.DictValue
	Exports  *runtime.DictValue
}

// Interpreter runs compiled programs. It holds no per-run state, so one
// Interpreter may run several programs, each with a fresh stack and RNG.
type Interpreter struct {
	registry  *runtime.Registry
	env       dist.Env
	externals map[string]runtime.Value
}

func New(cfg Config) *Interpreter {
	if cfg.Registry == nil {
		cfg.Registry = library.NewRegistry()
	}
	if cfg.Env == (dist.Env{}) {
		cfg.Env = dist.DefaultEnv
	}
	return &Interpreter{
		registry:  cfg.Registry,
		env:       cfg.Env,
		externals: library.Externals(cfg.Registry),
	}
}

func (i *Interpreter) Env() dist.Env { return i.env }

func (i *Interpreter) Registry() *runtime.Registry { return i.registry }

// Externals returns the builtin names visible to compiled programs.
func (i *Interpreter) Externals() map[string]runtime.Value {
	out := make(map[string]runtime.Value, len(i.externals))
	for k, v := range i.externals {
		out[k] = v
	}
	return out
}

// Run evaluates prog. Cancelling ctx stops evaluation at the next lambda
// call or builtin loop iteration.
func (i *Interpreter) Run(ctx context.Context, prog *ir.Program) (*Output, error) {
	if prog == nil {
		return nil, errors.New("interpreter: missing program")
	}
	if err := i.env.Validate(); err != nil {
		return nil, runtime.DistError(err)
	}
	state := i.newEvalState(ctx)
	if state.ctx.Err() != nil {
		return nil, runtime.ErrCancelledEvaluation
	}
	for _, stmt := range prog.Statements {
		if err := state.statement(stmt); err != nil {
			return nil, err
		}
	}
	result := runtime.Value(runtime.VoidValue{})
	if prog.Result != nil {
		v, err := state.evaluate(prog.Result)
		if err != nil {
			return nil, err
		}
		result = v
	}
	entries := make([]runtime.DictEntry, 0, len(prog.Bindings))
	for _, b := range prog.Bindings {
		v, err := state.stackAt(b.Name, b.Offset)
		if err != nil {
			return nil, err
		}
		entries = append(entries, runtime.DictEntry{Key: b.Name, Value: v})
	}
	bindings := runtime.NewDict(entries...)
	exported := make([]runtime.DictEntry, 0, len(prog.Exports))
	for _, name := range prog.Exports {
		if v, ok := bindings.Get(name); ok {
			exported = append(exported, runtime.DictEntry{Key: name, Value: v})
		}
	}
	return &Output{Result: result, Bindings: bindings, Exports: runtime.NewDict(exported...)}, nil
}

// Call invokes fn outside of a program, for hosts that hold on to lambdas
// from an earlier Output.
func (i *Interpreter) Call(ctx context.Context, fn runtime.LambdaValue, args []runtime.Value) (runtime.Value, error) {
	state := i.newEvalState(ctx)
	return state.call(fn, args)
}

// Compile parses, unit-checks and compiles source against externals. Names
// in externals shadow builtins.
func (i *Interpreter) Compile(source, sourceID string, externals map[string]runtime.Value) (*ast.Program, *ir.Program, error) {
	prog, err := parser.Parse(source, sourceID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := typechecker.CheckUnits(prog); err != nil {
		return prog, nil, err
	}
	names := i.Externals()
	for k, v := range externals {
		names[k] = v
	}
	compiled, err := compiler.Compile(prog, compiler.Options{Externals: names})
	if err != nil {
		return prog, nil, err
	}
	return prog, compiled, nil
}

// EvaluateSource compiles and runs a self-contained source.
func (i *Interpreter) EvaluateSource(ctx context.Context, source, sourceID string) (*Output, error) {
	_, compiled, err := i.Compile(source, sourceID, nil)
	if err != nil {
		return nil, err
	}
	return i.Run(ctx, compiled)
}
