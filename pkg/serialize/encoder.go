package serialize

import (
	"fmt"

	"squiggle/interpreter-go/pkg/dist"
	"squiggle/interpreter-go/pkg/interpreter"
	"squiggle/interpreter-go/pkg/ir"
	"squiggle/interpreter-go/pkg/runtime"
)

// Encoder accumulates values and IR nodes into one bundle. Containers,
// distributions and lambdas are deduplicated by pointer identity, so
// anything reachable twice is stored once.
type Encoder struct {
	bundle     Bundle
	valueIndex map[runtime.Value]int
	irIndex    map[ir.Node]int
}

func NewEncoder() *Encoder {
	return &Encoder{
		valueIndex: map[runtime.Value]int{},
		irIndex:    map[ir.Node]int{},
	}
}

// Serialize adds v to the bundle and returns its entrypoint.
func (e *Encoder) Serialize(v runtime.Value) (Entrypoint, error) {
	pos, err := e.value(v)
	if err != nil {
		return Entrypoint{}, err
	}
	return Entrypoint{Entity: EntityValue, Pos: pos}, nil
}

// SerializeIR adds an IR tree to the bundle and returns its entrypoint.
func (e *Encoder) SerializeIR(n ir.Node) (Entrypoint, error) {
	pos, err := e.ir(n)
	if err != nil {
		return Entrypoint{}, err
	}
	return Entrypoint{Entity: EntityIR, Pos: pos}, nil
}

// Bundle returns everything serialized so far.
func (e *Encoder) Bundle() *Bundle {
	out := Bundle{
		Values: append([]ValueNode(nil), e.bundle.Values...),
		IR:     append([]IRNode(nil), e.bundle.IR...),
	}
	return &out
}

// hasIdentity reports whether v is a reference type whose identity is worth
// preserving. Scalars are stored once per occurrence.
func hasIdentity(v runtime.Value) bool {
	switch v.(type) {
	case *runtime.ArrayValue, *runtime.DictValue, *runtime.DistValue,
		*runtime.BuiltinLambda, *interpreter.UserLambda:
		return true
	}
	return false
}

func (e *Encoder) value(v runtime.Value) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("serialize: nil value")
	}
	identity := hasIdentity(v)
	if identity {
		if pos, ok := e.valueIndex[v]; ok {
			return pos, nil
		}
	}
	node, err := e.encodeValue(v)
	if err != nil {
		return 0, err
	}
	if t := v.Tags(); t != nil {
		node.Tags = &TagsNode{Name: t.Name, Doc: t.Doc, Hidden: t.Hidden, Format: t.Format}
	}
	pos := len(e.bundle.Values)
	e.bundle.Values = append(e.bundle.Values, node)
	if identity {
		e.valueIndex[v] = pos
	}
	return pos, nil
}

func (e *Encoder) values(vs []runtime.Value) ([]int, error) {
	out := make([]int, len(vs))
	for i, v := range vs {
		pos, err := e.value(v)
		if err != nil {
			return nil, err
		}
		out[i] = pos
	}
	return out, nil
}

func (e *Encoder) encodeValue(v runtime.Value) (ValueNode, error) {
	node := ValueNode{Type: v.Kind().String()}
	switch t := v.(type) {
	case runtime.NumberValue:
		f := Float(t.Val)
		node.Number = &f
	case runtime.StringValue:
		s := t.Val
		node.String = &s
	case runtime.BoolValue:
		b := t.Val
		node.Bool = &b
	case runtime.VoidValue:
	case runtime.DomainValue:
		node.Domain = &DomainNode{Min: Float(t.Min), Max: Float(t.Max)}
	case *runtime.ArrayValue:
		elems, err := e.values(t.Elements)
		if err != nil {
			return node, err
		}
		node.Elements = elems
	case *runtime.DictValue:
		entries := t.Entries()
		node.Keys = make([]string, len(entries))
		node.Entries = make([]int, len(entries))
		for i, entry := range entries {
			pos, err := e.value(entry.Value)
			if err != nil {
				return node, err
			}
			node.Keys[i] = entry.Key
			node.Entries[i] = pos
		}
	case *runtime.DistValue:
		d, err := encodeDist(t.Dist)
		if err != nil {
			return node, err
		}
		node.Dist = d
	case *runtime.BuiltinLambda:
		node.Lambda = &LambdaNode{Builtin: t.Name()}
	case *interpreter.UserLambda:
		l, err := e.userLambda(t)
		if err != nil {
			return node, err
		}
		node.Lambda = l
	default:
		return node, fmt.Errorf("serialize: unsupported value %T", v)
	}
	return node, nil
}

func (e *Encoder) userLambda(l *interpreter.UserLambda) (*LambdaNode, error) {
	body, err := e.ir(l.Body())
	if err != nil {
		return nil, err
	}
	captures, err := e.values(l.Captures())
	if err != nil {
		return nil, err
	}
	out := &LambdaNode{
		Name:     l.Name(),
		Body:     intPtr(body),
		Captures: captures,
		Location: locationOf(l.Location()),
	}
	for _, p := range l.Parameters() {
		param := ParameterNode{Name: p.Name}
		if p.Domain != nil {
			param.Domain = &DomainNode{Min: Float(p.Domain.Min), Max: Float(p.Domain.Max)}
		}
		out.Parameters = append(out.Parameters, param)
	}
	return out, nil
}

func encodeDist(d dist.Dist) (*DistNode, error) {
	switch t := d.(type) {
	case *dist.SampleSet:
		return &DistNode{Kind: "SampleSet", Samples: floatsOf(t.Samples()), Lineage: t.Lineage}, nil
	case *dist.PointSet:
		out := &DistNode{Kind: "PointSet"}
		if c := t.Shape.Continuous.Shape; c.Len() > 0 {
			out.Continuous = &ShapeNode{Xs: floatsOf(c.Xs), Ys: floatsOf(c.Ys)}
		}
		if s := t.Shape.Discrete.Shape; s.Len() > 0 {
			out.Discrete = &ShapeNode{Xs: floatsOf(s.Xs), Ys: floatsOf(s.Ys)}
		}
		return out, nil
	case dist.Symbolic:
		family, params, err := symbolicParams(t)
		if err != nil {
			return nil, err
		}
		return &DistNode{Kind: "Symbolic", Family: family, Params: floatsOf(params)}, nil
	}
	return nil, fmt.Errorf("serialize: unsupported distribution %T", d)
}

func symbolicParams(d dist.Symbolic) (string, []float64, error) {
	switch t := d.(type) {
	case dist.Normal:
		return "normal", []float64{t.Mu, t.Sigma}, nil
	case dist.Lognormal:
		return "lognormal", []float64{t.Mu, t.Sigma}, nil
	case dist.Uniform:
		return "uniform", []float64{t.Low, t.High}, nil
	case dist.Beta:
		return "beta", []float64{t.Alpha, t.Beta}, nil
	case dist.Exponential:
		return "exponential", []float64{t.Rate}, nil
	case dist.Cauchy:
		return "cauchy", []float64{t.Local, t.Scale}, nil
	case dist.Triangular:
		return "triangular", []float64{t.Low, t.Medium, t.High}, nil
	case dist.Gamma:
		return "gamma", []float64{t.Shape, t.Scale}, nil
	case dist.Logistic:
		return "logistic", []float64{t.Location, t.Scale}, nil
	case dist.Bernoulli:
		return "bernoulli", []float64{t.P}, nil
	case dist.PointMass:
		return "pointMass", []float64{t.Value}, nil
	}
	return "", nil, fmt.Errorf("serialize: unsupported symbolic distribution %T", d)
}

func (e *Encoder) ir(n ir.Node) (int, error) {
	if n == nil {
		return 0, fmt.Errorf("serialize: nil IR node")
	}
	if pos, ok := e.irIndex[n]; ok {
		return pos, nil
	}
	node, err := e.encodeIR(n)
	if err != nil {
		return 0, err
	}
	pos := len(e.bundle.IR)
	e.bundle.IR = append(e.bundle.IR, node)
	e.irIndex[n] = pos
	return pos, nil
}

func (e *Encoder) irs(ns []ir.Node) ([]int, error) {
	out := make([]int, len(ns))
	for i, n := range ns {
		pos, err := e.ir(n)
		if err != nil {
			return nil, err
		}
		out[i] = pos
	}
	return out, nil
}

func (e *Encoder) optionalIR(n ir.Node) (*int, error) {
	if n == nil {
		return nil, nil
	}
	pos, err := e.ir(n)
	if err != nil {
		return nil, err
	}
	return &pos, nil
}

func (e *Encoder) encodeIR(n ir.Node) (IRNode, error) {
	node := IRNode{Type: n.Kind().String(), Location: locationOf(n.Location())}
	var err error
	switch t := n.(type) {
	case *ir.Program:
		if node.Statements, err = e.irs(t.Statements); err != nil {
			return node, err
		}
		if node.Result, err = e.optionalIR(t.Result); err != nil {
			return node, err
		}
		for _, b := range t.Bindings {
			node.Bindings = append(node.Bindings, IRBinding{Name: b.Name, Offset: b.Offset})
		}
		node.Exports = append(node.Exports, t.Exports...)
	case *ir.Block:
		if node.Statements, err = e.irs(t.Statements); err != nil {
			return node, err
		}
		if node.Result, err = e.optionalIR(t.Result); err != nil {
			return node, err
		}
	case *ir.Assign:
		node.Name = t.Name
		if node.Right, err = e.optionalIR(t.Value); err != nil {
			return node, err
		}
	case *ir.StackRef:
		node.Name = t.Name
		node.Offset = t.Offset
	case *ir.CaptureRef:
		node.Name = t.Name
		node.Offset = t.Index
	case *ir.Ternary:
		if node.Condition, err = e.optionalIR(t.Condition); err != nil {
			return node, err
		}
		if node.IfTrue, err = e.optionalIR(t.IfTrue); err != nil {
			return node, err
		}
		if node.IfFalse, err = e.optionalIR(t.IfFalse); err != nil {
			return node, err
		}
	case *ir.Call:
		if node.Fn, err = e.optionalIR(t.Fn); err != nil {
			return node, err
		}
		if node.Args, err = e.irs(t.Args); err != nil {
			return node, err
		}
		node.Decorate = t.As == ir.AsDecorate
	case *ir.Lambda:
		node.Name = t.Name
		if node.Captures, err = e.irs(t.Captures); err != nil {
			return node, err
		}
		for _, p := range t.Parameters {
			param := IRParameter{Name: p.Name}
			if param.Annotation, err = e.optionalIR(p.Annotation); err != nil {
				return node, err
			}
			node.Parameters = append(node.Parameters, param)
		}
		if node.Body, err = e.optionalIR(t.Body); err != nil {
			return node, err
		}
	case *ir.Array:
		if node.Elements, err = e.irs(t.Elements); err != nil {
			return node, err
		}
	case *ir.Dict:
		for _, p := range t.Pairs {
			k, err := e.ir(p.Key)
			if err != nil {
				return node, err
			}
			v, err := e.ir(p.Value)
			if err != nil {
				return node, err
			}
			node.Pairs = append(node.Pairs, [2]int{k, v})
		}
	case *ir.Value:
		pos, err := e.value(t.Value)
		if err != nil {
			return node, err
		}
		node.Value = intPtr(pos)
	default:
		return node, fmt.Errorf("serialize: unsupported IR node %T", n)
	}
	return node, nil
}
