package interpreter

import (
	"strings"

	"squiggle/interpreter-go/pkg/ast"
	"squiggle/interpreter-go/pkg/ir"
	"squiggle/interpreter-go/pkg/runtime"
)

// Parameter is a user lambda parameter with its optional domain.
type Parameter struct {
	Name   string
	Domain *runtime.DomainValue
}

// UserLambda is a closure created by evaluating an ir.Lambda. Captured values
// are fixed at creation.
type UserLambda struct {
	runtime.Tagged
	name       string
	parameters []Parameter
	body       ir.Node
	captures   []runtime.Value
	location   ast.LocationRange
}

func NewUserLambda(name string, params []Parameter, body ir.Node, captures []runtime.Value, loc ast.LocationRange) *UserLambda {
	return &UserLambda{name: name, parameters: params, body: body, captures: captures, location: loc}
}

func (l *UserLambda) Kind() runtime.Kind { return runtime.KindLambda }

func (l *UserLambda) WithTags(t *runtime.Tags) runtime.Value {
	c := *l
	c.Tagged = runtime.WithTagsOf(t)
	return &c
}

func (l *UserLambda) Name() string { return l.name }

func (l *UserLambda) ParameterCounts() []int { return []int{len(l.parameters)} }

func (l *UserLambda) ParameterString() string {
	names := make([]string, len(l.parameters))
	for i, p := range l.parameters {
		names[i] = p.Name
	}
	return strings.Join(names, ",")
}

func (l *UserLambda) Parameters() []Parameter {
	out := make([]Parameter, len(l.parameters))
	copy(out, l.parameters)
	return out
}

func (l *UserLambda) Body() ir.Node { return l.body }

func (l *UserLambda) Captures() []runtime.Value {
	out := make([]runtime.Value, len(l.captures))
	copy(out, l.captures)
	return out
}

func (l *UserLambda) Location() ast.LocationRange { return l.location }

func (l *UserLambda) checkArguments(args []runtime.Value) error {
	if len(args) != len(l.parameters) {
		return runtime.ArityError(len(l.parameters), len(args))
	}
	for i, p := range l.parameters {
		if p.Domain == nil {
			continue
		}
		n, ok := args[i].(runtime.NumberValue)
		if !ok || !p.Domain.Contains(n.Val) {
			return runtime.NewError(runtime.ErrDomain, "Parameter %s must be in domain %s",
				runtime.ToString(args[i]), formatDomain(*p.Domain))
		}
	}
	return nil
}

func formatDomain(d runtime.DomainValue) string {
	return "[" + runtime.FormatNumber(d.Min) + ", " + runtime.FormatNumber(d.Max) + "]"
}

// domainFromAnnotation accepts a domain value or a two-element numeric
// array.
func domainFromAnnotation(v runtime.Value) (*runtime.DomainValue, error) {
	switch a := v.(type) {
	case runtime.DomainValue:
		return &a, nil
	case *runtime.ArrayValue:
		if len(a.Elements) == 2 {
			lo, okLo := a.Elements[0].(runtime.NumberValue)
			hi, okHi := a.Elements[1].(runtime.NumberValue)
			if okLo && okHi {
				if lo.Val > hi.Val {
					return nil, runtime.NewError(runtime.ErrArgument,
						"The range minimum (%s) must be lower than the range maximum (%s)",
						runtime.FormatNumber(lo.Val), runtime.FormatNumber(hi.Val))
				}
				return &runtime.DomainValue{Min: lo.Val, Max: hi.Val}, nil
			}
		}
	}
	return nil, runtime.ExpectedTypeError("Domain", v)
}
