// Package ir defines the scope-resolved intermediate representation the
// compiler produces and the reducer executes. Variables are resolved to
// StackRef offsets or CaptureRef indices; every name the program uses from
// outside is inlined as a Value.
package ir

import (
	"squiggle/interpreter-go/pkg/ast"
	"squiggle/interpreter-go/pkg/runtime"
)

// Kind identifies the concrete IR node type.
type Kind int

const (
	KindProgram Kind = iota
	KindBlock
	KindAssign
	KindStackRef
	KindCaptureRef
	KindTernary
	KindCall
	KindLambda
	KindArray
	KindDict
	KindValue

	kindCount
)

var kindNames = [...]string{
	KindProgram:    "Program",
	KindBlock:      "Block",
	KindAssign:     "Assign",
	KindStackRef:   "StackRef",
	KindCaptureRef: "CaptureRef",
	KindTernary:    "Ternary",
	KindCall:       "Call",
	KindLambda:     "Lambda",
	KindArray:      "Array",
	KindDict:       "Dict",
	KindValue:      "Value",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// AllKinds lists every node kind, in declaration order.
func AllKinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// Node is implemented by every IR node.
type Node interface {
	Kind() Kind
	Location() ast.LocationRange
}

// Base carries the source location of a node.
type Base struct {
	Loc ast.LocationRange
}

func (b Base) Location() ast.LocationRange { return b.Loc }

// Binding names a top-level stack slot.
type Binding struct {
	Name   string
	Offset int
}

// Program runs its statements on a fresh stack. Bindings and Exports are
// read from the final stack by offset from the top.
type Program struct {
	Base
	Statements []Node
	Result     Node
	Bindings   []Binding
	Exports    []string
}

// Block pushes its statements' values and pops them on exit.
type Block struct {
	Base
	Statements []Node
	Result     Node
}

// Assign evaluates Value and pushes it onto the stack.
type Assign struct {
	Base
	Name  string
	Value Node
}

// StackRef reads the slot Offset positions below the top of the stack.
type StackRef struct {
	Base
	Name   string
	Offset int
}

// CaptureRef reads the enclosing lambda's Index-th captured value.
type CaptureRef struct {
	Base
	Name  string
	Index int
}

type Ternary struct {
	Base
	Condition Node
	IfTrue    Node
	IfFalse   Node
}

// CallMode distinguishes ordinary calls from decorator application.
type CallMode int

const (
	AsCall CallMode = iota
	AsDecorate
)

type Call struct {
	Base
	Fn   Node
	Args []Node
	As   CallMode
}

type LambdaParameter struct {
	Name       string
	Annotation Node
}

// Lambda creates a closure. Captures are evaluated in the enclosing scope
// when the closure is created.
type Lambda struct {
	Base
	Name       string
	Captures   []Node
	Parameters []LambdaParameter
	Body       Node
}

type Array struct {
	Base
	Elements []Node
}

type DictPair struct {
	Key   Node
	Value Node
}

type Dict struct {
	Base
	Pairs []DictPair
}

// Value is a constant, including inlined externals.
type Value struct {
	Base
	Value runtime.Value
}

func (*Program) Kind() Kind    { return KindProgram }
func (*Block) Kind() Kind      { return KindBlock }
func (*Assign) Kind() Kind     { return KindAssign }
func (*StackRef) Kind() Kind   { return KindStackRef }
func (*CaptureRef) Kind() Kind { return KindCaptureRef }
func (*Ternary) Kind() Kind    { return KindTernary }
func (*Call) Kind() Kind       { return KindCall }
func (*Lambda) Kind() Kind     { return KindLambda }
func (*Array) Kind() Kind      { return KindArray }
func (*Dict) Kind() Kind       { return KindDict }
func (*Value) Kind() Kind      { return KindValue }

func At(loc ast.LocationRange) Base { return Base{Loc: loc} }
