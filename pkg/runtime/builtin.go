package runtime

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"strconv"
	"strings"

	"squiggle/interpreter-go/pkg/dist"
)

// CallContext is handed to builtin implementations. Call invokes a lambda
// value through the reducer, so builtins such as List.map can call back into
// user code.
type CallContext struct {
	Context context.Context
	Env     dist.Env
	RNG     *rand.Rand
	Call    func(fn LambdaValue, args []Value) (Value, error)
}

// Err reports cancellation of the evaluation.
func (c *CallContext) Err() error {
	if c == nil || c.Context == nil {
		return nil
	}
	if c.Context.Err() != nil {
		return ErrCancelledEvaluation
	}
	return nil
}

//-----------------------------------------------------------------------------
// Function registry types
//-----------------------------------------------------------------------------

// FRType is a structural check on an argument.
type FRType struct {
	name     string
	check    func(Value) bool
	optional bool
}

func (t FRType) Name() string { return t.name }

func (t FRType) Check(v Value) bool { return t.check == nil || t.check(v) }

func (t FRType) IsOptional() bool { return t.optional }

func (t FRType) display() string {
	if t.optional {
		return t.name + "?"
	}
	return t.name
}

// NewFRType builds a custom argument type.
func NewFRType(name string, check func(Value) bool) FRType {
	return FRType{name: name, check: check}
}

// Optional marks t as an optional trailing input.
func Optional(t FRType) FRType {
	t.optional = true
	return t
}

var (
	FRAny    = FRType{name: "any"}
	FRNumber = NewFRType("Number", func(v Value) bool { return v.Kind() == KindNumber })
	FRString = NewFRType("String", func(v Value) bool { return v.Kind() == KindString })
	FRBool   = NewFRType("Bool", func(v Value) bool { return v.Kind() == KindBool })
	FRDict   = NewFRType("Dict", func(v Value) bool { return v.Kind() == KindDict })
	FRLambda = NewFRType("Function", func(v Value) bool { return v.Kind() == KindLambda })
	FRDist   = NewFRType("Dist", func(v Value) bool { return v.Kind() == KindDist })
	FRDomain = NewFRType("Domain", func(v Value) bool { return v.Kind() == KindDomain })
	FRVoid   = NewFRType("Void", func(v Value) bool { return v.Kind() == KindVoid })

	FRDistOrNumber = NewFRType("Dist|Number", func(v Value) bool {
		return v.Kind() == KindDist || v.Kind() == KindNumber
	})
	FRSampleSet = NewFRType("SampleSetDist", func(v Value) bool {
		d, ok := v.(*DistValue)
		if !ok {
			return false
		}
		_, ok = d.Dist.(*dist.SampleSet)
		return ok
	})
	FRPointSet = NewFRType("PointSetDist", func(v Value) bool {
		d, ok := v.(*DistValue)
		if !ok {
			return false
		}
		_, ok = d.Dist.(*dist.PointSet)
		return ok
	})
	FRSymbolic = NewFRType("SymbolicDist", func(v Value) bool {
		d, ok := v.(*DistValue)
		if !ok {
			return false
		}
		_, ok = d.Dist.(dist.Symbolic)
		return ok
	})
)

// FRArray matches lists whose elements all match elem.
func FRArray(elem FRType) FRType {
	return NewFRType("List("+elem.name+")", func(v Value) bool {
		a, ok := v.(*ArrayValue)
		if !ok {
			return false
		}
		for _, e := range a.Elements {
			if !elem.Check(e) {
				return false
			}
		}
		return true
	})
}

// FRTuple matches lists with exactly the given element types.
func FRTuple(elems ...FRType) FRType {
	names := make([]string, len(elems))
	for i, e := range elems {
		names[i] = e.name
	}
	return NewFRType("["+strings.Join(names, ", ")+"]", func(v Value) bool {
		a, ok := v.(*ArrayValue)
		if !ok || len(a.Elements) != len(elems) {
			return false
		}
		for i, e := range a.Elements {
			if !elems[i].Check(e) {
				return false
			}
		}
		return true
	})
}

// FRLambdaNand matches lambdas that accept every one of the given argument
// counts. Builtins that pick a calling convention by arity guard against
// such lambdas with an assert definition.
func FRLambdaNand(counts ...int) FRType {
	return NewFRType("Function", func(v Value) bool {
		fn, ok := v.(LambdaValue)
		if !ok {
			return false
		}
		accepted := fn.ParameterCounts()
		for _, c := range counts {
			if !slices.Contains(accepted, c) {
				return false
			}
		}
		return true
	})
}

// RunFunc implements one definition. Missing optional arguments are nil.
type RunFunc func(ctx *CallContext, args []Value) (Value, error)

// FnDefinition is one signature of a builtin.
type FnDefinition struct {
	Inputs    []FRType
	Output    FRType
	Run       RunFunc
	Decorator bool
	// AssertMessage marks a definition that only guards against an
	// ambiguous call; matching it is an error.
	AssertMessage string
}

func MakeDefinition(inputs []FRType, output FRType, run RunFunc) FnDefinition {
	return FnDefinition{Inputs: inputs, Output: output, Run: run}
}

func MakeDecorator(inputs []FRType, output FRType, run RunFunc) FnDefinition {
	return FnDefinition{Inputs: inputs, Output: output, Run: run, Decorator: true}
}

func MakeAssertDefinition(inputs []FRType, message string) FnDefinition {
	return FnDefinition{Inputs: inputs, Output: FRAny, AssertMessage: message}
}

func (d FnDefinition) minInputs() int {
	n := 0
	for _, t := range d.Inputs {
		if !t.optional {
			n++
		}
	}
	return n
}

func (d FnDefinition) matches(args []Value) bool {
	if len(args) < d.minInputs() || len(args) > len(d.Inputs) {
		return false
	}
	for i, a := range args {
		if !d.Inputs[i].Check(a) {
			return false
		}
	}
	return true
}

func (d FnDefinition) String() string {
	parts := make([]string, len(d.Inputs))
	for i, t := range d.Inputs {
		parts[i] = t.display()
	}
	out := "(" + strings.Join(parts, ", ") + ")"
	if d.Output.name != "" {
		out += " => " + d.Output.name
	}
	return out
}

//-----------------------------------------------------------------------------
// Builtin lambdas
//-----------------------------------------------------------------------------

// BuiltinLambda dispatches a call to the first definition whose inputs
// structurally match the arguments.
type BuiltinLambda struct {
	Tagged
	name        string
	definitions []FnDefinition
}

func NewBuiltin(name string, defs ...FnDefinition) *BuiltinLambda {
	return &BuiltinLambda{name: name, definitions: defs}
}

func (b *BuiltinLambda) Kind() Kind { return KindLambda }
func (b *BuiltinLambda) WithTags(t *Tags) Value {
	c := *b
	c.tags = t
	return &c
}

func (b *BuiltinLambda) Name() string { return b.name }

func (b *BuiltinLambda) Definitions() []FnDefinition { return slices.Clone(b.definitions) }

func (b *BuiltinLambda) ParameterCounts() []int {
	var out []int
	for _, d := range b.definitions {
		for n := d.minInputs(); n <= len(d.Inputs); n++ {
			if !slices.Contains(out, n) {
				out = append(out, n)
			}
		}
	}
	sort.Ints(out)
	return out
}

func (b *BuiltinLambda) ParameterString() string {
	var parts []string
	for _, d := range b.definitions {
		if d.AssertMessage == "" {
			parts = append(parts, d.String())
		}
	}
	return strings.Join(parts, " | ")
}

// IsDecorator reports whether any definition may be used with `@`.
func (b *BuiltinLambda) IsDecorator() bool {
	for _, d := range b.definitions {
		if d.Decorator {
			return true
		}
	}
	return false
}

// Call runs the first matching definition.
func (b *BuiltinLambda) Call(ctx *CallContext, args []Value) (Value, error) {
	for _, def := range b.definitions {
		if !def.matches(args) {
			continue
		}
		if def.AssertMessage != "" {
			return nil, NewError(ErrAmbiguous, "%s", def.AssertMessage)
		}
		padded := args
		if len(args) < len(def.Inputs) {
			padded = make([]Value, len(def.Inputs))
			copy(padded, args)
		}
		return def.Run(ctx, padded)
	}
	return nil, b.noMatch(args)
}

func (b *BuiltinLambda) noMatch(args []Value) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "There are function matches for %s(), but with different arguments:\n", b.name)
	for _, d := range b.definitions {
		if d.AssertMessage == "" {
			fmt.Fprintf(&sb, "  %s%s\n", b.name, d)
		}
	}
	shown := make([]string, len(args))
	for i, a := range args {
		shown[i] = ToString(a)
	}
	fmt.Fprintf(&sb, "Was given arguments: (%s)", strings.Join(shown, ","))
	return &Error{Kind: ErrNoMatchingSignature, Message: sb.String()}
}

//-----------------------------------------------------------------------------
// Registry
//-----------------------------------------------------------------------------

// Registry is the table of builtins available to programs.
type Registry struct {
	fns map[string]*BuiltinLambda
}

func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]*BuiltinLambda)}
}

// Register adds definitions under name, after any already registered.
func (r *Registry) Register(name string, defs ...FnDefinition) {
	if existing, ok := r.fns[name]; ok {
		existing.definitions = append(existing.definitions, defs...)
		return
	}
	r.fns[name] = NewBuiltin(name, defs...)
}

func (r *Registry) Lookup(name string) (*BuiltinLambda, bool) {
	b, ok := r.fns[name]
	return b, ok
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.fns))
	for name := range r.fns {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Values returns the registered builtins as externals for the compiler.
func (r *Registry) Values() map[string]Value {
	out := make(map[string]Value, len(r.fns))
	for name, fn := range r.fns {
		out[name] = fn
	}
	return out
}

// Call looks up name and calls it with args.
func (r *Registry) Call(ctx *CallContext, name string, args []Value) (Value, error) {
	b, ok := r.fns[name]
	if !ok {
		return nil, NewError(ErrOther, "%s is not defined", name)
	}
	return b.Call(ctx, args)
}

//-----------------------------------------------------------------------------
// Formatting and equality
//-----------------------------------------------------------------------------

// FormatNumber prints the shortest round-tripping form, in plain decimal
// notation for magnitudes between 1e-6 and 1e21.
func FormatNumber(f float64) string {
	if abs := math.Abs(f); f == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// ToString renders a value the way the REPL prints it.
func ToString(v Value) string {
	switch t := v.(type) {
	case nil:
		return "<nil>"
	case NumberValue:
		return FormatNumber(t.Val)
	case StringValue:
		return strconv.Quote(t.Val)
	case BoolValue:
		return strconv.FormatBool(t.Val)
	case VoidValue:
		return "()"
	case *ArrayValue:
		parts := make([]string, len(t.Elements))
		for i, e := range t.Elements {
			parts[i] = ToString(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *DictValue:
		parts := make([]string, 0, t.Len())
		for _, e := range t.Entries() {
			parts = append(parts, e.Key+": "+ToString(e.Value))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *DistValue:
		return t.Dist.String()
	case DomainValue:
		return fmt.Sprintf("Number.rangeDomain(%s, %s)", FormatNumber(t.Min), FormatNumber(t.Max))
	case *BuiltinLambda:
		return t.name
	case LambdaValue:
		return "(" + t.ParameterString() + ") => internal code"
	}
	return fmt.Sprintf("%v", v)
}

// Equal compares values structurally. Functions and distributions compare
// by identity.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case NumberValue:
		y, ok := b.(NumberValue)
		return ok && x.Val == y.Val
	case StringValue:
		y, ok := b.(StringValue)
		return ok && x.Val == y.Val
	case BoolValue:
		y, ok := b.(BoolValue)
		return ok && x.Val == y.Val
	case VoidValue:
		_, ok := b.(VoidValue)
		return ok
	case DomainValue:
		y, ok := b.(DomainValue)
		return ok && x.Min == y.Min && x.Max == y.Max
	case *ArrayValue:
		y, ok := b.(*ArrayValue)
		if !ok || len(x.Elements) != len(y.Elements) {
			return false
		}
		for i := range x.Elements {
			if !Equal(x.Elements[i], y.Elements[i]) {
				return false
			}
		}
		return true
	case *DictValue:
		y, ok := b.(*DictValue)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.keys {
			yv, ok := y.values[k]
			if !ok || !Equal(x.values[k], yv) {
				return false
			}
		}
		return true
	}
	return a == b
}
