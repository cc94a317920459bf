// Package serialize flattens values and IR into a JSON-compatible bundle.
//
// A bundle holds one arena per entity type. Nodes refer to each other by
// arena index, so a structure reachable from several entrypoints is stored
// once and decodes to a single shared object.
package serialize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"squiggle/interpreter-go/pkg/ast"
)

// EntityType names one arena of a bundle.
type EntityType string

const (
	EntityValue EntityType = "value"
	EntityIR    EntityType = "ir"
)

// Entrypoint addresses one node of a bundle.
type Entrypoint struct {
	Entity EntityType `json:"entityType"`
	Pos    int        `json:"pos"`
}

// Bundle is the serialized form of everything an Encoder has seen.
type Bundle struct {
	Values []ValueNode `json:"value"`
	IR     []IRNode    `json:"ir"`
}

// Float encodes non-finite numbers as strings, since JSON has no literal for
// them.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "NaN":
			*f = Float(math.NaN())
		case "Infinity":
			*f = Float(math.Inf(1))
		case "-Infinity":
			*f = Float(math.Inf(-1))
		default:
			return fmt.Errorf("serialize: invalid float %q", s)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

func floatsOf(xs []float64) []Float {
	out := make([]Float, len(xs))
	for i, x := range xs {
		out[i] = Float(x)
	}
	return out
}

func float64s(xs []Float) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}

// ValueNode is one slot of the value arena. Type selects which fields are
// meaningful; child references are value arena indices.
type ValueNode struct {
	Type     string      `json:"type"`
	Number   *Float      `json:"number,omitempty"`
	String   *string     `json:"string,omitempty"`
	Bool     *bool       `json:"bool,omitempty"`
	Elements []int       `json:"elements,omitempty"`
	Keys     []string    `json:"keys,omitempty"`
	Entries  []int       `json:"entries,omitempty"`
	Dist     *DistNode   `json:"dist,omitempty"`
	Domain   *DomainNode `json:"domain,omitempty"`
	Lambda   *LambdaNode `json:"lambda,omitempty"`
	Tags     *TagsNode   `json:"tags,omitempty"`
}

type TagsNode struct {
	Name   string `json:"name,omitempty"`
	Doc    string `json:"doc,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
	Format string `json:"format,omitempty"`
}

type DomainNode struct {
	Min Float `json:"min"`
	Max Float `json:"max"`
}

// DistNode holds the representation-specific fields of a distribution.
type DistNode struct {
	Kind       string     `json:"kind"`
	Family     string     `json:"family,omitempty"`
	Params     []Float    `json:"params,omitempty"`
	Samples    []Float    `json:"samples,omitempty"`
	Lineage    string     `json:"lineage,omitempty"`
	Continuous *ShapeNode `json:"continuous,omitempty"`
	Discrete   *ShapeNode `json:"discrete,omitempty"`
}

type ShapeNode struct {
	Xs []Float `json:"xs"`
	Ys []Float `json:"ys"`
}

// LambdaNode is either a builtin, stored by name, or a user lambda with its
// body in the IR arena and its captures in the value arena.
type LambdaNode struct {
	Builtin    string          `json:"builtin,omitempty"`
	Name       string          `json:"name,omitempty"`
	Parameters []ParameterNode `json:"parameters,omitempty"`
	Body       *int            `json:"body,omitempty"`
	Captures   []int           `json:"captures,omitempty"`
	Location   *Location       `json:"location,omitempty"`
}

type ParameterNode struct {
	Name   string      `json:"name"`
	Domain *DomainNode `json:"domain,omitempty"`
}

// IRNode is one slot of the IR arena. Child references are IR arena
// indices except Value, which points into the value arena.
type IRNode struct {
	Type       string        `json:"type"`
	Location   *Location     `json:"location,omitempty"`
	Name       string        `json:"name,omitempty"`
	Offset     int           `json:"offset,omitempty"`
	Value      *int          `json:"value,omitempty"`
	Right      *int          `json:"right,omitempty"`
	Statements []int         `json:"statements,omitempty"`
	Result     *int          `json:"result,omitempty"`
	Condition  *int          `json:"condition,omitempty"`
	IfTrue     *int          `json:"ifTrue,omitempty"`
	IfFalse    *int          `json:"ifFalse,omitempty"`
	Fn         *int          `json:"fn,omitempty"`
	Args       []int         `json:"args,omitempty"`
	Decorate   bool          `json:"decorate,omitempty"`
	Captures   []int         `json:"captures,omitempty"`
	Parameters []IRParameter `json:"parameters,omitempty"`
	Body       *int          `json:"body,omitempty"`
	Elements   []int         `json:"elements,omitempty"`
	Pairs      [][2]int      `json:"pairs,omitempty"`
	Bindings   []IRBinding   `json:"bindings,omitempty"`
	Exports    []string      `json:"exports,omitempty"`
}

type IRParameter struct {
	Name       string `json:"name"`
	Annotation *int   `json:"annotation,omitempty"`
}

type IRBinding struct {
	Name   string `json:"name"`
	Offset int    `json:"offset"`
}

type Location struct {
	Source string   `json:"source,omitempty"`
	Start  Position `json:"start"`
	End    Position `json:"end"`
}

type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

func locationOf(l ast.LocationRange) *Location {
	if l.IsZero() {
		return nil
	}
	return &Location{
		Source: l.Source,
		Start:  Position(l.Start),
		End:    Position(l.End),
	}
}

func (l *Location) toRange() ast.LocationRange {
	if l == nil {
		return ast.LocationRange{}
	}
	return ast.LocationRange{Source: l.Source, Start: ast.Position(l.Start), End: ast.Position(l.End)}
}

func intPtr(i int) *int { return &i }
