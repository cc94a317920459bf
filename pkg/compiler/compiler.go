// Package compiler lowers a parsed program into the scope-resolved IR. Local
// names become stack or capture references, operators and lookups become
// calls to builtins, and every external name is inlined as a value.
package compiler

import (
	"fmt"

	"squiggle/interpreter-go/pkg/ast"
	"squiggle/interpreter-go/pkg/ir"
	"squiggle/interpreter-go/pkg/runtime"
)

type Options struct {
	// Externals are the names visible to the program that it does not
	// define: builtins, import variables and continued bindings.
	Externals map[string]runtime.Value
}

// CompileError reports a scope violation at a source location.
type CompileError struct {
	Message  string
	Location ast.LocationRange
}

func (e *CompileError) Error() string {
	if e.Location.IsZero() {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Location)
}

type Compiler struct {
	opts Options
}

func New(opts Options) *Compiler {
	if opts.Externals == nil {
		opts.Externals = map[string]runtime.Value{}
	}
	return &Compiler{opts: opts}
}

// Compile lowers prog. A returned error is always a *CompileError.
func (c *Compiler) Compile(prog *ast.Program) (*ir.Program, error) {
	if prog == nil {
		return nil, &CompileError{Message: "compiler: missing program"}
	}
	ctx := newCompileContext(c.opts.Externals)
	out, err := ctx.program(prog)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Compile is a shorthand for New(opts).Compile(prog).
func Compile(prog *ast.Program, opts Options) (*ir.Program, error) {
	return New(opts).Compile(prog)
}
