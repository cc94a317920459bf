package compiler

import (
	"squiggle/interpreter-go/pkg/ast"
	"squiggle/interpreter-go/pkg/ir"
	"squiggle/interpreter-go/pkg/runtime"
)

type scopeKind int

const (
	blockScope scopeKind = iota
	functionScope
)

// scope positions are counted from the bottom of the scope; StackRef
// offsets count from the top of the whole stack.
type scope struct {
	kind         scopeKind
	stack        map[string]int
	size         int
	captures     []ir.Node
	captureIndex map[string]int
}

type compileContext struct {
	scopes    []*scope
	externals map[string]runtime.Value
}

func newCompileContext(externals map[string]runtime.Value) *compileContext {
	c := &compileContext{externals: externals}
	c.startScope()
	return c
}

func (c *compileContext) startScope() {
	c.scopes = append(c.scopes, &scope{kind: blockScope, stack: map[string]int{}})
}

func (c *compileContext) startFunctionScope() {
	c.scopes = append(c.scopes, &scope{kind: functionScope, stack: map[string]int{}, captureIndex: map[string]int{}})
}

func (c *compileContext) finishScope() *scope {
	s := c.scopes[len(c.scopes)-1]
	c.scopes = c.scopes[:len(c.scopes)-1]
	return s
}

func (c *compileContext) current() *scope { return c.scopes[len(c.scopes)-1] }

// defineLocal binds name to the next slot. Redefinition shadows the old
// slot, which stays on the stack.
func (c *compileContext) defineLocal(name string) {
	s := c.current()
	s.stack[name] = s.size
	s.size++
}

func (c *compileContext) resolveName(loc ast.LocationRange, name string) (ir.Node, error) {
	return c.resolveFromDepth(loc, name, len(c.scopes)-1)
}

func (c *compileContext) resolveFromDepth(loc ast.LocationRange, name string, depth int) (ir.Node, error) {
	offset := 0
	for i := depth; i >= 0; i-- {
		s := c.scopes[i]
		if pos, ok := s.stack[name]; ok {
			return &ir.StackRef{Base: ir.At(loc), Name: name, Offset: offset + s.size - 1 - pos}, nil
		}
		offset += s.size
		if s.kind != functionScope {
			continue
		}
		if idx, ok := s.captureIndex[name]; ok {
			return &ir.CaptureRef{Base: ir.At(loc), Name: name, Index: idx}, nil
		}
		// Resolve in the enclosing scopes, then turn a reference into a
		// capture of this function.
		resolved, err := c.resolveFromDepth(loc, name, i-1)
		if err != nil {
			return nil, err
		}
		if resolved.Kind() == ir.KindValue {
			return resolved, nil
		}
		idx := len(s.captures)
		s.captures = append(s.captures, resolved)
		s.captureIndex[name] = idx
		return &ir.CaptureRef{Base: ir.At(loc), Name: name, Index: idx}, nil
	}
	if v, ok := c.externals[name]; ok {
		return &ir.Value{Base: ir.At(loc), Value: v}, nil
	}
	return nil, &CompileError{Message: name + " is not defined", Location: loc}
}

// localsOffsets maps the names of the current scope to their offsets from
// the top of the stack, in definition order. Shadowed names keep their
// last slot.
func (c *compileContext) localsOffsets() []ir.Binding {
	s := c.current()
	byPos := make([]string, s.size)
	for name, pos := range s.stack {
		byPos[pos] = name
	}
	var out []ir.Binding
	for pos, name := range byPos {
		if name == "" {
			continue
		}
		out = append(out, ir.Binding{Name: name, Offset: s.size - 1 - pos})
	}
	return out
}
