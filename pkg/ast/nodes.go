package ast

// Kind identifies the concrete AST node type.
type Kind int

const (
	KindProgram Kind = iota
	KindBlock
	KindImport
	KindLetStatement
	KindDefunStatement
	KindDecoratedStatement
	KindDecorator
	KindLambda
	KindLambdaParameter
	KindCall
	KindInfixCall
	KindUnaryCall
	KindPipe
	KindTernary
	KindArray
	KindDict
	KindKeyValue
	KindDotLookup
	KindBracketLookup
	KindIdentifier
	KindFloat
	KindBoolean
	KindString
	KindUnitValue
	KindUnitTypeSignature
	KindInfixUnitType

	kindCount
)

var kindNames = [...]string{
	KindProgram:            "Program",
	KindBlock:              "Block",
	KindImport:             "Import",
	KindLetStatement:       "LetStatement",
	KindDefunStatement:     "DefunStatement",
	KindDecoratedStatement: "DecoratedStatement",
	KindDecorator:          "Decorator",
	KindLambda:             "Lambda",
	KindLambdaParameter:    "LambdaParameter",
	KindCall:               "Call",
	KindInfixCall:          "InfixCall",
	KindUnaryCall:          "UnaryCall",
	KindPipe:               "Pipe",
	KindTernary:            "Ternary",
	KindArray:              "Array",
	KindDict:               "Dict",
	KindKeyValue:           "KeyValue",
	KindDotLookup:          "DotLookup",
	KindBracketLookup:      "BracketLookup",
	KindIdentifier:         "Identifier",
	KindFloat:              "Float",
	KindBoolean:            "Boolean",
	KindString:             "String",
	KindUnitValue:          "UnitValue",
	KindUnitTypeSignature:  "UnitTypeSignature",
	KindInfixUnitType:      "InfixUnitType",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
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

// Node is implemented by every AST node. The set of implementations is closed:
// only types in this package satisfy it.
type Node interface {
	Kind() Kind
	Location() LocationRange
	node()
}

type base struct {
	Loc LocationRange
}

func (b *base) Location() LocationRange { return b.Loc }
func (b *base) node()                   {}

// CommentKind distinguishes line comments from block comments.
type CommentKind int

const (
	LineComment CommentKind = iota
	BlockComment
)

// Comment is retained outside the tree and associated with nodes by position.
type Comment struct {
	Kind     CommentKind
	Value    string
	Location LocationRange
}

type Program struct {
	base
	Imports    []*Import
	Statements []Node
	Result     Node
	Comments   []Comment
	// Symbols maps top-level names to their defining statement; the last
	// definition wins. Used by tooling only.
	Symbols map[string]Node
}

type Block struct {
	base
	Statements []Node
	Result     Node
}

type Import struct {
	base
	Path     *String
	Variable *Identifier
}

type LetStatement struct {
	base
	Exported bool
	Variable *Identifier
	UnitType *UnitTypeSignature
	Value    Node
}

type DefunStatement struct {
	base
	Exported bool
	Variable *Identifier
	Value    *Lambda
}

// DecoratedStatement wraps a let or defun statement (possibly already
// decorated) with one more decorator.
type DecoratedStatement struct {
	base
	Decorator *Decorator
	Statement Node
}

type Decorator struct {
	base
	Name *Identifier
	Args []Node
}

type Lambda struct {
	base
	Parameters []*LambdaParameter
	Body       Node
	// Name is set for lambdas introduced by a defun statement.
	Name string
}

type LambdaParameter struct {
	base
	Variable   string
	Annotation Node
	UnitType   *UnitTypeSignature
}

type Call struct {
	base
	Fn   Node
	Args []Node
}

type InfixCall struct {
	base
	Op   string
	Args [2]Node
}

type UnaryCall struct {
	base
	Op  string
	Arg Node
}

type Pipe struct {
	base
	Left      Node
	Fn        Node
	RightArgs []Node
}

// TernarySyntax records which surface form produced a Ternary.
type TernarySyntax int

const (
	TernaryC TernarySyntax = iota
	TernaryIfThenElse
)

type Ternary struct {
	base
	Condition Node
	TrueExpr  Node
	FalseExpr Node
	Syntax    TernarySyntax
}

type Array struct {
	base
	Elements []Node
}

// Dict elements are either *KeyValue or *Identifier (shorthand `{a}`).
type Dict struct {
	base
	Elements []Node
}

type KeyValue struct {
	base
	Key   Node
	Value Node
}

type DotLookup struct {
	base
	Arg Node
	Key string
}

type BracketLookup struct {
	base
	Arg Node
	Key Node
}

type Identifier struct {
	base
	Value string
}

type Float struct {
	base
	Value float64
}

type Boolean struct {
	base
	Value bool
}

type String struct {
	base
	Value string
}

// UnitValue is a number with a unit suffix, such as `5k` or `3%`.
type UnitValue struct {
	base
	Value *Float
	Unit  string
}

// UnitTypeSignature is the `:: m/s` annotation on a let or parameter.
type UnitTypeSignature struct {
	base
	Body Node
}

// InfixUnitType is `*` or `/` inside a unit type signature.
type InfixUnitType struct {
	base
	Op   string
	Args [2]Node
}

func (*Program) Kind() Kind            { return KindProgram }
func (*Block) Kind() Kind              { return KindBlock }
func (*Import) Kind() Kind             { return KindImport }
func (*LetStatement) Kind() Kind       { return KindLetStatement }
func (*DefunStatement) Kind() Kind     { return KindDefunStatement }
func (*DecoratedStatement) Kind() Kind { return KindDecoratedStatement }
func (*Decorator) Kind() Kind          { return KindDecorator }
func (*Lambda) Kind() Kind             { return KindLambda }
func (*LambdaParameter) Kind() Kind    { return KindLambdaParameter }
func (*Call) Kind() Kind               { return KindCall }
func (*InfixCall) Kind() Kind          { return KindInfixCall }
func (*UnaryCall) Kind() Kind          { return KindUnaryCall }
func (*Pipe) Kind() Kind               { return KindPipe }
func (*Ternary) Kind() Kind            { return KindTernary }
func (*Array) Kind() Kind              { return KindArray }
func (*Dict) Kind() Kind               { return KindDict }
func (*KeyValue) Kind() Kind           { return KindKeyValue }
func (*DotLookup) Kind() Kind          { return KindDotLookup }
func (*BracketLookup) Kind() Kind      { return KindBracketLookup }
func (*Identifier) Kind() Kind         { return KindIdentifier }
func (*Float) Kind() Kind              { return KindFloat }
func (*Boolean) Kind() Kind            { return KindBoolean }
func (*String) Kind() Kind             { return KindString }
func (*UnitValue) Kind() Kind          { return KindUnitValue }
func (*UnitTypeSignature) Kind() Kind  { return KindUnitTypeSignature }
func (*InfixUnitType) Kind() Kind      { return KindInfixUnitType }

// At sets the node location and returns the node, for use in constructors.
func At[T interface {
	Node
	setLocation(LocationRange)
}](n T, loc LocationRange) T {
	n.setLocation(loc)
	return n
}

func (b *base) setLocation(loc LocationRange) { b.Loc = loc }
