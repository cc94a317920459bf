package compiler

import (
	"fmt"

	"squiggle/interpreter-go/pkg/ast"
	"squiggle/interpreter-go/pkg/ir"
	"squiggle/interpreter-go/pkg/runtime"
)

func (c *compileContext) program(prog *ast.Program) (*ir.Program, error) {
	out := &ir.Program{Base: ir.At(prog.Location())}
	for _, stmt := range prog.Statements {
		node, name, exported, err := c.statement(stmt)
		if err != nil {
			return nil, err
		}
		out.Statements = append(out.Statements, node)
		if exported {
			out.Exports = append(out.Exports, name)
		}
	}
	if prog.Result != nil {
		res, err := c.expression(prog.Result)
		if err != nil {
			return nil, err
		}
		out.Result = res
	}
	out.Bindings = c.localsOffsets()
	return out, nil
}

// statement compiles a let, defun or decorated statement and defines its
// variable after the value, so a statement can't refer to itself.
func (c *compileContext) statement(node ast.Node) (ir.Node, string, bool, error) {
	var decorators []*ast.Decorator
	for {
		d, ok := node.(*ast.DecoratedStatement)
		if !ok {
			break
		}
		decorators = append(decorators, d.Decorator)
		node = d.Statement
	}

	var (
		variable *ast.Identifier
		exported bool
		valueAST ast.Node
	)
	switch s := node.(type) {
	case *ast.LetStatement:
		variable, exported, valueAST = s.Variable, s.Exported, s.Value
	case *ast.DefunStatement:
		variable, exported, valueAST = s.Variable, s.Exported, s.Value
	default:
		return nil, "", false, &CompileError{
			Message:  fmt.Sprintf("Can't compile %s as a statement", node.Kind()),
			Location: node.Location(),
		}
	}

	value, err := c.expression(valueAST)
	if err != nil {
		return nil, "", false, err
	}
	// The decorator closest to the statement applies first.
	for i := len(decorators) - 1; i >= 0; i-- {
		d := decorators[i]
		fn, err := c.resolveName(d.Location(), DecoratorFunction(d.Name.Value))
		if err != nil {
			return nil, "", false, err
		}
		args := []ir.Node{value}
		for _, a := range d.Args {
			arg, err := c.expression(a)
			if err != nil {
				return nil, "", false, err
			}
			args = append(args, arg)
		}
		value = &ir.Call{Base: ir.At(d.Location()), Fn: fn, Args: args, As: ir.AsDecorate}
	}

	c.defineLocal(variable.Value)
	return &ir.Assign{Base: ir.At(node.Location()), Name: variable.Value, Value: value}, variable.Value, exported, nil
}

func (c *compileContext) expression(node ast.Node) (ir.Node, error) {
	loc := node.Location()
	switch n := node.(type) {
	case *ast.Block:
		if len(n.Statements) == 0 {
			return c.expression(n.Result)
		}
		c.startScope()
		defer c.finishScope()
		out := &ir.Block{Base: ir.At(loc)}
		for _, stmt := range n.Statements {
			if isExported(stmt) {
				return nil, &CompileError{Message: "Exports aren't allowed in blocks", Location: stmt.Location()}
			}
			compiled, _, _, err := c.statement(stmt)
			if err != nil {
				return nil, err
			}
			out.Statements = append(out.Statements, compiled)
		}
		res, err := c.expression(n.Result)
		if err != nil {
			return nil, err
		}
		out.Result = res
		return out, nil

	case *ast.Call:
		fn, err := c.expression(n.Fn)
		if err != nil {
			return nil, err
		}
		args, err := c.expressions(n.Args)
		if err != nil {
			return nil, err
		}
		return &ir.Call{Base: ir.At(loc), Fn: fn, Args: args}, nil

	case *ast.InfixCall:
		name, ok := InfixFunction(n.Op)
		if !ok {
			return nil, &CompileError{Message: fmt.Sprintf("Unknown infix operator %s", n.Op), Location: loc}
		}
		return c.callByName(loc, name, n.Args[0], n.Args[1])

	case *ast.UnaryCall:
		name, ok := UnaryFunction(n.Op)
		if !ok {
			return nil, &CompileError{Message: fmt.Sprintf("Unknown unary operator %s", n.Op), Location: loc}
		}
		return c.callByName(loc, name, n.Arg)

	case *ast.Pipe:
		fn, err := c.expression(n.Fn)
		if err != nil {
			return nil, err
		}
		args, err := c.expressions(append([]ast.Node{n.Left}, n.RightArgs...))
		if err != nil {
			return nil, err
		}
		return &ir.Call{Base: ir.At(loc), Fn: fn, Args: args}, nil

	case *ast.DotLookup:
		fn, err := c.resolveName(loc, IndexLookupFunction)
		if err != nil {
			return nil, err
		}
		arg, err := c.expression(n.Arg)
		if err != nil {
			return nil, err
		}
		key := &ir.Value{Base: ir.At(loc), Value: runtime.String(n.Key)}
		return &ir.Call{Base: ir.At(loc), Fn: fn, Args: []ir.Node{arg, key}}, nil

	case *ast.BracketLookup:
		return c.callByName(loc, IndexLookupFunction, n.Arg, n.Key)

	case *ast.Lambda:
		return c.lambda(n)

	case *ast.Ternary:
		cond, err := c.expression(n.Condition)
		if err != nil {
			return nil, err
		}
		ifTrue, err := c.expression(n.TrueExpr)
		if err != nil {
			return nil, err
		}
		ifFalse, err := c.expression(n.FalseExpr)
		if err != nil {
			return nil, err
		}
		return &ir.Ternary{Base: ir.At(loc), Condition: cond, IfTrue: ifTrue, IfFalse: ifFalse}, nil

	case *ast.Array:
		elems, err := c.expressions(n.Elements)
		if err != nil {
			return nil, err
		}
		return &ir.Array{Base: ir.At(loc), Elements: elems}, nil

	case *ast.Dict:
		out := &ir.Dict{Base: ir.At(loc)}
		for _, elem := range n.Elements {
			switch e := elem.(type) {
			case *ast.KeyValue:
				key, err := c.expression(e.Key)
				if err != nil {
					return nil, err
				}
				value, err := c.expression(e.Value)
				if err != nil {
					return nil, err
				}
				out.Pairs = append(out.Pairs, ir.DictPair{Key: key, Value: value})
			case *ast.Identifier:
				value, err := c.resolveName(e.Location(), e.Value)
				if err != nil {
					return nil, err
				}
				key := &ir.Value{Base: ir.At(e.Location()), Value: runtime.String(e.Value)}
				out.Pairs = append(out.Pairs, ir.DictPair{Key: key, Value: value})
			default:
				return nil, &CompileError{Message: fmt.Sprintf("Can't compile %s as a dict element", elem.Kind()), Location: elem.Location()}
			}
		}
		return out, nil

	case *ast.Identifier:
		return c.resolveName(loc, n.Value)

	case *ast.UnitValue:
		fn, err := c.resolveName(loc, UnitFunction(n.Unit))
		if err != nil {
			return nil, err
		}
		value, err := c.expression(n.Value)
		if err != nil {
			return nil, err
		}
		return &ir.Call{Base: ir.At(loc), Fn: fn, Args: []ir.Node{value}}, nil

	case *ast.Float:
		return &ir.Value{Base: ir.At(loc), Value: runtime.Number(n.Value)}, nil
	case *ast.Boolean:
		return &ir.Value{Base: ir.At(loc), Value: runtime.Bool(n.Value)}, nil
	case *ast.String:
		return &ir.Value{Base: ir.At(loc), Value: runtime.String(n.Value)}, nil
	}
	return nil, &CompileError{Message: fmt.Sprintf("Can't compile %s as an expression", node.Kind()), Location: loc}
}

func (c *compileContext) expressions(nodes []ast.Node) ([]ir.Node, error) {
	out := make([]ir.Node, 0, len(nodes))
	for _, n := range nodes {
		compiled, err := c.expression(n)
		if err != nil {
			return nil, err
		}
		out = append(out, compiled)
	}
	return out, nil
}

func (c *compileContext) callByName(loc ast.LocationRange, name string, args ...ast.Node) (ir.Node, error) {
	fn, err := c.resolveName(loc, name)
	if err != nil {
		return nil, err
	}
	compiled, err := c.expressions(args)
	if err != nil {
		return nil, err
	}
	return &ir.Call{Base: ir.At(loc), Fn: fn, Args: compiled}, nil
}

func (c *compileContext) lambda(n *ast.Lambda) (ir.Node, error) {
	// Annotations are evaluated where the lambda is created, outside its
	// own scope.
	params := make([]ir.LambdaParameter, 0, len(n.Parameters))
	for _, p := range n.Parameters {
		param := ir.LambdaParameter{Name: p.Variable}
		if p.Annotation != nil {
			ann, err := c.expression(p.Annotation)
			if err != nil {
				return nil, err
			}
			param.Annotation = ann
		}
		params = append(params, param)
	}

	c.startFunctionScope()
	for _, p := range n.Parameters {
		c.defineLocal(p.Variable)
	}
	body, err := c.expression(n.Body)
	s := c.finishScope()
	if err != nil {
		return nil, err
	}
	return &ir.Lambda{
		Base:       ir.At(n.Location()),
		Name:       n.Name,
		Captures:   s.captures,
		Parameters: params,
		Body:       body,
	}, nil
}

func isExported(node ast.Node) bool {
	for {
		switch s := node.(type) {
		case *ast.DecoratedStatement:
			node = s.Statement
		case *ast.LetStatement:
			return s.Exported
		case *ast.DefunStatement:
			return s.Exported
		default:
			return false
		}
	}
}
