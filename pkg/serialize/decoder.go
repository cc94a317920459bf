package serialize

import (
	"errors"
	"fmt"

	"squiggle/interpreter-go/pkg/dist"
	"squiggle/interpreter-go/pkg/dist/pointset"
	"squiggle/interpreter-go/pkg/interpreter"
	"squiggle/interpreter-go/pkg/ir"
	"squiggle/interpreter-go/pkg/runtime"
)

var errCycle = errors.New("serialize: bundle contains a reference cycle")

// Decoder rebuilds values and IR from a bundle. Each slot is decoded at most
// once, so slots referenced from several places decode to one shared object.
type Decoder struct {
	bundle   *Bundle
	registry *runtime.Registry
	values   []runtime.Value
	irs      []ir.Node
	pending  map[Entrypoint]bool
}

// NewDecoder returns a decoder for bundle. Builtin lambdas are looked up by
// name in registry.
func NewDecoder(bundle *Bundle, registry *runtime.Registry) *Decoder {
	return &Decoder{
		bundle:   bundle,
		registry: registry,
		values:   make([]runtime.Value, len(bundle.Values)),
		irs:      make([]ir.Node, len(bundle.IR)),
		pending:  map[Entrypoint]bool{},
	}
}

// Deserialize decodes a value entrypoint.
func (d *Decoder) Deserialize(entry Entrypoint) (runtime.Value, error) {
	if entry.Entity != EntityValue {
		return nil, fmt.Errorf("serialize: entrypoint is %q, not %q", entry.Entity, EntityValue)
	}
	return d.value(entry.Pos)
}

// DeserializeIR decodes an IR entrypoint.
func (d *Decoder) DeserializeIR(entry Entrypoint) (ir.Node, error) {
	if entry.Entity != EntityIR {
		return nil, fmt.Errorf("serialize: entrypoint is %q, not %q", entry.Entity, EntityIR)
	}
	return d.ir(entry.Pos)
}

// DeserializeProgram decodes an IR entrypoint that must be a program.
func (d *Decoder) DeserializeProgram(entry Entrypoint) (*ir.Program, error) {
	n, err := d.DeserializeIR(entry)
	if err != nil {
		return nil, err
	}
	prog, ok := n.(*ir.Program)
	if !ok {
		return nil, fmt.Errorf("serialize: expected Program, got %s", n.Kind())
	}
	return prog, nil
}

func (d *Decoder) enter(entry Entrypoint) error {
	if d.pending[entry] {
		return errCycle
	}
	d.pending[entry] = true
	return nil
}

func (d *Decoder) value(pos int) (runtime.Value, error) {
	if pos < 0 || pos >= len(d.bundle.Values) {
		return nil, fmt.Errorf("serialize: out of bounds index %d, bundle contains only %d entries of type %q", pos, len(d.bundle.Values), EntityValue)
	}
	if v := d.values[pos]; v != nil {
		return v, nil
	}
	entry := Entrypoint{Entity: EntityValue, Pos: pos}
	if err := d.enter(entry); err != nil {
		return nil, err
	}
	defer delete(d.pending, entry)
	node := d.bundle.Values[pos]
	v, err := d.decodeValue(node)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", node.Type, err)
	}
	if t := node.Tags; t != nil {
		v = v.WithTags(&runtime.Tags{Name: t.Name, Doc: t.Doc, Hidden: t.Hidden, Format: t.Format})
	}
	d.values[pos] = v
	return v, nil
}

func (d *Decoder) valueList(ids []int) ([]runtime.Value, error) {
	out := make([]runtime.Value, len(ids))
	for i, id := range ids {
		v, err := d.value(id)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (d *Decoder) decodeValue(node ValueNode) (runtime.Value, error) {
	switch node.Type {
	case runtime.KindNumber.String():
		if node.Number == nil {
			return nil, errors.New("missing number")
		}
		return runtime.Number(float64(*node.Number)), nil
	case runtime.KindString.String():
		if node.String == nil {
			return nil, errors.New("missing string")
		}
		return runtime.String(*node.String), nil
	case runtime.KindBool.String():
		if node.Bool == nil {
			return nil, errors.New("missing bool")
		}
		return runtime.Bool(*node.Bool), nil
	case runtime.KindVoid.String():
		return runtime.VoidValue{}, nil
	case runtime.KindDomain.String():
		if node.Domain == nil {
			return nil, errors.New("missing domain")
		}
		return runtime.DomainValue{Min: float64(node.Domain.Min), Max: float64(node.Domain.Max)}, nil
	case runtime.KindArray.String():
		elems, err := d.valueList(node.Elements)
		if err != nil {
			return nil, err
		}
		return runtime.NewArray(elems), nil
	case runtime.KindDict.String():
		if len(node.Keys) != len(node.Entries) {
			return nil, fmt.Errorf("%d keys for %d entries", len(node.Keys), len(node.Entries))
		}
		vals, err := d.valueList(node.Entries)
		if err != nil {
			return nil, err
		}
		entries := make([]runtime.DictEntry, len(vals))
		for i, v := range vals {
			entries[i] = runtime.DictEntry{Key: node.Keys[i], Value: v}
		}
		return runtime.NewDict(entries...), nil
	case runtime.KindDist.String():
		if node.Dist == nil {
			return nil, errors.New("missing dist")
		}
		dv, err := decodeDist(node.Dist)
		if err != nil {
			return nil, err
		}
		return runtime.NewDist(dv), nil
	case runtime.KindLambda.String():
		if node.Lambda == nil {
			return nil, errors.New("missing lambda")
		}
		return d.lambda(node.Lambda)
	}
	return nil, fmt.Errorf("unknown value type %q", node.Type)
}

func (d *Decoder) lambda(node *LambdaNode) (runtime.Value, error) {
	if node.Builtin != "" {
		if d.registry == nil {
			return nil, fmt.Errorf("no registry to resolve builtin %s", node.Builtin)
		}
		b, ok := d.registry.Lookup(node.Builtin)
		if !ok {
			return nil, fmt.Errorf("unknown builtin %s", node.Builtin)
		}
		return b, nil
	}
	if node.Body == nil {
		return nil, errors.New("lambda without body")
	}
	body, err := d.ir(*node.Body)
	if err != nil {
		return nil, err
	}
	captures, err := d.valueList(node.Captures)
	if err != nil {
		return nil, err
	}
	params := make([]interpreter.Parameter, len(node.Parameters))
	for i, p := range node.Parameters {
		params[i] = interpreter.Parameter{Name: p.Name}
		if p.Domain != nil {
			params[i].Domain = &runtime.DomainValue{Min: float64(p.Domain.Min), Max: float64(p.Domain.Max)}
		}
	}
	return interpreter.NewUserLambda(node.Name, params, body, captures, node.Location.toRange()), nil
}

func decodeDist(node *DistNode) (dist.Dist, error) {
	switch node.Kind {
	case "SampleSet":
		s, err := dist.NewSampleSet(float64s(node.Samples))
		if err != nil {
			return nil, err
		}
		s.Lineage = node.Lineage
		return s, nil
	case "PointSet":
		var shape pointset.Mixed
		if c := node.Continuous; c != nil {
			xy, err := pointset.MakeShape(float64s(c.Xs), float64s(c.Ys))
			if err != nil {
				return nil, err
			}
			shape.Continuous = pointset.Continuous{Shape: xy}
		}
		if c := node.Discrete; c != nil {
			xy, err := pointset.MakeShape(float64s(c.Xs), float64s(c.Ys))
			if err != nil {
				return nil, err
			}
			shape.Discrete = pointset.Discrete{Shape: xy}
		}
		return &dist.PointSet{Shape: shape}, nil
	case "Symbolic":
		return decodeSymbolic(node.Family, float64s(node.Params))
	}
	return nil, fmt.Errorf("unknown distribution kind %q", node.Kind)
}

func decodeSymbolic(family string, p []float64) (dist.Dist, error) {
	arity := map[string]int{
		"normal": 2, "lognormal": 2, "uniform": 2, "beta": 2, "exponential": 1,
		"cauchy": 2, "triangular": 3, "gamma": 2, "logistic": 2, "bernoulli": 1, "pointMass": 1,
	}
	want, ok := arity[family]
	if !ok {
		return nil, fmt.Errorf("unknown distribution family %q", family)
	}
	if len(p) != want {
		return nil, fmt.Errorf("%s expects %d parameters, got %d", family, want, len(p))
	}
	switch family {
	case "normal":
		return dist.NewNormal(p[0], p[1])
	case "lognormal":
		return dist.NewLognormal(p[0], p[1])
	case "uniform":
		return dist.NewUniform(p[0], p[1])
	case "beta":
		return dist.NewBeta(p[0], p[1])
	case "exponential":
		return dist.NewExponential(p[0])
	case "cauchy":
		return dist.NewCauchy(p[0], p[1])
	case "triangular":
		return dist.NewTriangular(p[0], p[1], p[2])
	case "gamma":
		return dist.NewGamma(p[0], p[1])
	case "logistic":
		return dist.NewLogistic(p[0], p[1])
	case "bernoulli":
		return dist.NewBernoulli(p[0])
	default:
		return dist.NewPointMass(p[0])
	}
}

func (d *Decoder) ir(pos int) (ir.Node, error) {
	if pos < 0 || pos >= len(d.bundle.IR) {
		return nil, fmt.Errorf("serialize: out of bounds index %d, bundle contains only %d entries of type %q", pos, len(d.bundle.IR), EntityIR)
	}
	if n := d.irs[pos]; n != nil {
		return n, nil
	}
	entry := Entrypoint{Entity: EntityIR, Pos: pos}
	if err := d.enter(entry); err != nil {
		return nil, err
	}
	defer delete(d.pending, entry)
	node := d.bundle.IR[pos]
	n, err := d.decodeIR(node)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", node.Type, err)
	}
	d.irs[pos] = n
	return n, nil
}

func (d *Decoder) irList(ids []int) ([]ir.Node, error) {
	out := make([]ir.Node, len(ids))
	for i, id := range ids {
		n, err := d.ir(id)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (d *Decoder) optionalIR(id *int) (ir.Node, error) {
	if id == nil {
		return nil, nil
	}
	return d.ir(*id)
}

func (d *Decoder) requiredIR(id *int, field string) (ir.Node, error) {
	if id == nil {
		return nil, fmt.Errorf("missing %s", field)
	}
	return d.ir(*id)
}

func (d *Decoder) decodeIR(node IRNode) (ir.Node, error) {
	base := ir.At(node.Location.toRange())
	switch node.Type {
	case ir.KindProgram.String():
		stmts, err := d.irList(node.Statements)
		if err != nil {
			return nil, err
		}
		result, err := d.optionalIR(node.Result)
		if err != nil {
			return nil, err
		}
		prog := &ir.Program{Base: base, Statements: stmts, Result: result, Exports: node.Exports}
		for _, b := range node.Bindings {
			prog.Bindings = append(prog.Bindings, ir.Binding{Name: b.Name, Offset: b.Offset})
		}
		return prog, nil
	case ir.KindBlock.String():
		stmts, err := d.irList(node.Statements)
		if err != nil {
			return nil, err
		}
		result, err := d.requiredIR(node.Result, "result")
		if err != nil {
			return nil, err
		}
		return &ir.Block{Base: base, Statements: stmts, Result: result}, nil
	case ir.KindAssign.String():
		right, err := d.requiredIR(node.Right, "right")
		if err != nil {
			return nil, err
		}
		return &ir.Assign{Base: base, Name: node.Name, Value: right}, nil
	case ir.KindStackRef.String():
		return &ir.StackRef{Base: base, Name: node.Name, Offset: node.Offset}, nil
	case ir.KindCaptureRef.String():
		return &ir.CaptureRef{Base: base, Name: node.Name, Index: node.Offset}, nil
	case ir.KindTernary.String():
		cond, err := d.requiredIR(node.Condition, "condition")
		if err != nil {
			return nil, err
		}
		ifTrue, err := d.requiredIR(node.IfTrue, "ifTrue")
		if err != nil {
			return nil, err
		}
		ifFalse, err := d.requiredIR(node.IfFalse, "ifFalse")
		if err != nil {
			return nil, err
		}
		return &ir.Ternary{Base: base, Condition: cond, IfTrue: ifTrue, IfFalse: ifFalse}, nil
	case ir.KindCall.String():
		fn, err := d.requiredIR(node.Fn, "fn")
		if err != nil {
			return nil, err
		}
		args, err := d.irList(node.Args)
		if err != nil {
			return nil, err
		}
		call := &ir.Call{Base: base, Fn: fn, Args: args}
		if node.Decorate {
			call.As = ir.AsDecorate
		}
		return call, nil
	case ir.KindLambda.String():
		captures, err := d.irList(node.Captures)
		if err != nil {
			return nil, err
		}
		params := make([]ir.LambdaParameter, len(node.Parameters))
		for i, p := range node.Parameters {
			ann, err := d.optionalIR(p.Annotation)
			if err != nil {
				return nil, err
			}
			params[i] = ir.LambdaParameter{Name: p.Name, Annotation: ann}
		}
		body, err := d.requiredIR(node.Body, "body")
		if err != nil {
			return nil, err
		}
		return &ir.Lambda{Base: base, Name: node.Name, Captures: captures, Parameters: params, Body: body}, nil
	case ir.KindArray.String():
		elems, err := d.irList(node.Elements)
		if err != nil {
			return nil, err
		}
		return &ir.Array{Base: base, Elements: elems}, nil
	case ir.KindDict.String():
		pairs := make([]ir.DictPair, len(node.Pairs))
		for i, p := range node.Pairs {
			k, err := d.ir(p[0])
			if err != nil {
				return nil, err
			}
			v, err := d.ir(p[1])
			if err != nil {
				return nil, err
			}
			pairs[i] = ir.DictPair{Key: k, Value: v}
		}
		return &ir.Dict{Base: base, Pairs: pairs}, nil
	case ir.KindValue.String():
		if node.Value == nil {
			return nil, errors.New("missing value")
		}
		v, err := d.value(*node.Value)
		if err != nil {
			return nil, err
		}
		return &ir.Value{Base: base, Value: v}, nil
	}
	return nil, fmt.Errorf("unknown IR type %q", node.Type)
}
