package interpreter

import (
	"context"

	"squiggle/interpreter-go/pkg/ast"
	"squiggle/interpreter-go/pkg/dist"
	"squiggle/interpreter-go/pkg/ir"
	"squiggle/interpreter-go/pkg/runtime"
)

const maxCallDepth = 10000

// evalState is the mutable state of one run: the value stack, the captures
// of the lambda currently executing and the user call stack.
type evalState struct {
	ctx       context.Context
	callCtx   *runtime.CallContext
	stack     []runtime.Value
	captures  []runtime.Value
	callStack []callFrame
	site      ast.LocationRange
}

func (i *Interpreter) newEvalState(ctx context.Context) *evalState {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &evalState{ctx: ctx}
	s.callCtx = &runtime.CallContext{
		Context: ctx,
		Env:     i.env,
		RNG:     dist.NewRNG(i.env.Seed),
		Call:    s.call,
	}
	return s
}

func (s *evalState) statement(node ir.Node) error {
	assign, ok := node.(*ir.Assign)
	if !ok {
		return s.attachRuntimeContext(runtime.NewError(runtime.ErrOther, "Can't evaluate %s as a statement", node.Kind()), node)
	}
	v, err := s.evaluate(assign.Value)
	if err != nil {
		return err
	}
	s.stack = append(s.stack, v)
	return nil
}

func (s *evalState) stackAt(name string, offset int) (runtime.Value, error) {
	idx := len(s.stack) - 1 - offset
	if offset < 0 || idx < 0 {
		return nil, runtime.NewError(runtime.ErrOther, "Stack slot for %s is out of range", name)
	}
	return s.stack[idx], nil
}

func (s *evalState) evaluate(node ir.Node) (result runtime.Value, err error) {
	defer func() {
		err = s.attachRuntimeContext(err, node)
	}()
	switch n := node.(type) {
	case *ir.Value:
		return n.Value, nil
	case *ir.StackRef:
		return s.stackAt(n.Name, n.Offset)
	case *ir.CaptureRef:
		if n.Index < 0 || n.Index >= len(s.captures) {
			return nil, runtime.NewError(runtime.ErrOther, "Capture for %s is out of range", n.Name)
		}
		return s.captures[n.Index], nil
	case *ir.Block:
		return s.block(n)
	case *ir.Ternary:
		cond, err := s.evaluate(n.Condition)
		if err != nil {
			return nil, err
		}
		b, ok := cond.(runtime.BoolValue)
		if !ok {
			return nil, runtime.ExpectedTypeError("Boolean", cond)
		}
		if b.Val {
			return s.evaluate(n.IfTrue)
		}
		return s.evaluate(n.IfFalse)
	case *ir.Call:
		return s.callNode(n)
	case *ir.Lambda:
		return s.lambda(n)
	case *ir.Array:
		elems := make([]runtime.Value, len(n.Elements))
		for idx, e := range n.Elements {
			v, err := s.evaluate(e)
			if err != nil {
				return nil, err
			}
			elems[idx] = v
		}
		return runtime.NewArray(elems), nil
	case *ir.Dict:
		return s.dict(n)
	case nil:
		return runtime.VoidValue{}, nil
	default:
		return nil, runtime.NewError(runtime.ErrOther, "Can't evaluate %s as an expression", node.Kind())
	}
}

func (s *evalState) block(n *ir.Block) (runtime.Value, error) {
	mark := len(s.stack)
	defer func() {
		clear(s.stack[mark:])
		s.stack = s.stack[:mark]
	}()
	for _, stmt := range n.Statements {
		if err := s.statement(stmt); err != nil {
			return nil, err
		}
	}
	return s.evaluate(n.Result)
}

func (s *evalState) dict(n *ir.Dict) (runtime.Value, error) {
	entries := make([]runtime.DictEntry, 0, len(n.Pairs))
	for _, pair := range n.Pairs {
		k, err := s.evaluate(pair.Key)
		if err != nil {
			return nil, err
		}
		var key string
		switch kv := k.(type) {
		case runtime.StringValue:
			key = kv.Val
		case runtime.NumberValue:
			key = runtime.FormatNumber(kv.Val)
		default:
			return nil, runtime.ExpectedTypeError("String", k)
		}
		v, err := s.evaluate(pair.Value)
		if err != nil {
			return nil, err
		}
		entries = append(entries, runtime.DictEntry{Key: key, Value: v})
	}
	return runtime.NewDict(entries...), nil
}

func (s *evalState) lambda(n *ir.Lambda) (runtime.Value, error) {
	captures := make([]runtime.Value, len(n.Captures))
	for idx, c := range n.Captures {
		v, err := s.evaluate(c)
		if err != nil {
			return nil, err
		}
		captures[idx] = v
	}
	params := make([]Parameter, len(n.Parameters))
	for idx, p := range n.Parameters {
		params[idx] = Parameter{Name: p.Name}
		if p.Annotation == nil {
			continue
		}
		v, err := s.evaluate(p.Annotation)
		if err != nil {
			return nil, err
		}
		domain, err := domainFromAnnotation(v)
		if err != nil {
			return nil, err
		}
		params[idx].Domain = domain
	}
	return NewUserLambda(n.Name, params, n.Body, captures, n.Location()), nil
}

func (s *evalState) callNode(n *ir.Call) (runtime.Value, error) {
	fnValue, err := s.evaluate(n.Fn)
	if err != nil {
		return nil, err
	}
	args := make([]runtime.Value, len(n.Args))
	for idx, a := range n.Args {
		v, err := s.evaluate(a)
		if err != nil {
			return nil, err
		}
		args[idx] = v
	}
	if n.As == ir.AsDecorate && !runtime.IsDecorator(fnValue) {
		return nil, runtime.NewError(runtime.ErrNotADecorator, "%s", runtime.ToString(fnValue))
	}
	fn, ok := fnValue.(runtime.LambdaValue)
	if !ok {
		return nil, runtime.NewError(runtime.ErrNotAFunction, "%s", runtime.ToString(fnValue))
	}
	saved := s.site
	s.site = n.Location()
	defer func() { s.site = saved }()
	return s.call(fn, args)
}

// call is also the callback builtins use to run lambdas, so frames entered
// from a builtin are attributed to the builtin's call site.
func (s *evalState) call(fn runtime.LambdaValue, args []runtime.Value) (runtime.Value, error) {
	switch f := fn.(type) {
	case *runtime.BuiltinLambda:
		return f.Call(s.callCtx, args)
	case *UserLambda:
		return s.callUser(f, args)
	default:
		return nil, runtime.NewError(runtime.ErrNotAFunction, "%s", runtime.ToString(fn))
	}
}

func (s *evalState) callUser(f *UserLambda, args []runtime.Value) (runtime.Value, error) {
	if s.ctx.Err() != nil {
		return nil, runtime.ErrCancelledEvaluation
	}
	if err := f.checkArguments(args); err != nil {
		return nil, err
	}
	if len(s.callStack) >= maxCallDepth {
		return nil, runtime.NewError(runtime.ErrOther, "Maximum call stack size exceeded")
	}
	s.pushCallFrame(f.name, s.site)
	mark := len(s.stack)
	savedCaptures := s.captures
	savedSite := s.site
	s.stack = append(s.stack, args...)
	s.captures = f.captures
	defer func() {
		clear(s.stack[mark:])
		s.stack = s.stack[:mark]
		s.captures = savedCaptures
		s.site = savedSite
		s.popCallFrame()
	}()
	return s.evaluate(f.body)
}
