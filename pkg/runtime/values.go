package runtime

import (
	"fmt"
	"maps"
	"slices"

	"squiggle/interpreter-go/pkg/dist"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindNumber Kind = iota
	KindString
	KindBool
	KindArray
	KindDict
	KindLambda
	KindDist
	KindDomain
	KindVoid
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindBool:
		return "Bool"
	case KindArray:
		return "List"
	case KindDict:
		return "Dict"
	case KindLambda:
		return "Lambda"
	case KindDist:
		return "Dist"
	case KindDomain:
		return "Domain"
	case KindVoid:
		return "Void"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// AllKinds lists every value kind, in declaration order.
func AllKinds() []Kind {
	return []Kind{KindNumber, KindString, KindBool, KindArray, KindDict, KindLambda, KindDist, KindDomain, KindVoid}
}

// Value is the shared behaviour for all runtime values. Values are
// immutable; WithTags returns a copy.
type Value interface {
	Kind() Kind
	Tags() *Tags
	WithTags(*Tags) Value
}

// Tags hold the metadata that decorators attach to a value.
type Tags struct {
	Name   string
	Doc    string
	Hidden bool
	Format string
}

// Merge returns a copy of t with the set fields of other applied.
func (t *Tags) Merge(other Tags) *Tags {
	out := Tags{}
	if t != nil {
		out = *t
	}
	if other.Name != "" {
		out.Name = other.Name
	}
	if other.Doc != "" {
		out.Doc = other.Doc
	}
	if other.Hidden {
		out.Hidden = true
	}
	if other.Format != "" {
		out.Format = other.Format
	}
	return &out
}

// Tagged is embedded by every value type to carry its tags.
type Tagged struct {
	tags *Tags
}

func WithTagsOf(t *Tags) Tagged { return Tagged{tags: t} }

func (t Tagged) Tags() *Tags { return t.tags }

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type NumberValue struct {
	Tagged
	Val float64
}

func (v NumberValue) Kind() Kind { return KindNumber }
func (v NumberValue) WithTags(t *Tags) Value {
	v.tags = t
	return v
}

type StringValue struct {
	Tagged
	Val string
}

func (v StringValue) Kind() Kind { return KindString }
func (v StringValue) WithTags(t *Tags) Value {
	v.tags = t
	return v
}

type BoolValue struct {
	Tagged
	Val bool
}

func (v BoolValue) Kind() Kind { return KindBool }
func (v BoolValue) WithTags(t *Tags) Value {
	v.tags = t
	return v
}

type VoidValue struct {
	Tagged
}

func (VoidValue) Kind() Kind { return KindVoid }
func (v VoidValue) WithTags(t *Tags) Value {
	v.tags = t
	return v
}

func Number(f float64) NumberValue { return NumberValue{Val: f} }
func String(s string) StringValue  { return StringValue{Val: s} }
func Bool(b bool) BoolValue        { return BoolValue{Val: b} }

//-----------------------------------------------------------------------------
// Collections
//-----------------------------------------------------------------------------

type ArrayValue struct {
	Tagged
	Elements []Value
}

func NewArray(elems []Value) *ArrayValue { return &ArrayValue{Elements: elems} }

func (v *ArrayValue) Kind() Kind { return KindArray }
func (v *ArrayValue) WithTags(t *Tags) Value {
	c := *v
	c.tags = t
	return &c
}

// DictEntry is one key/value pair of a dict.
type DictEntry struct {
	Key   string
	Value Value
}

// DictValue is an insertion-ordered map with string keys.
type DictValue struct {
	Tagged
	keys   []string
	values map[string]Value
}

// NewDict builds a dict from entries. A repeated key keeps its first
// position and its last value.
func NewDict(entries ...DictEntry) *DictValue {
	d := &DictValue{values: make(map[string]Value, len(entries))}
	for _, e := range entries {
		if _, ok := d.values[e.Key]; !ok {
			d.keys = append(d.keys, e.Key)
		}
		d.values[e.Key] = e.Value
	}
	return d
}

func (v *DictValue) Kind() Kind { return KindDict }
func (v *DictValue) WithTags(t *Tags) Value {
	c := *v
	c.tags = t
	return &c
}

func (v *DictValue) Len() int { return len(v.keys) }

func (v *DictValue) Get(key string) (Value, bool) {
	val, ok := v.values[key]
	return val, ok
}

// Keys returns the keys in insertion order.
func (v *DictValue) Keys() []string { return slices.Clone(v.keys) }

func (v *DictValue) Entries() []DictEntry {
	out := make([]DictEntry, len(v.keys))
	for i, k := range v.keys {
		out[i] = DictEntry{Key: k, Value: v.values[k]}
	}
	return out
}

// Set returns a new dict with key bound to val.
func (v *DictValue) Set(key string, val Value) *DictValue {
	out := &DictValue{keys: slices.Clone(v.keys), values: maps.Clone(v.values)}
	if out.values == nil {
		out.values = map[string]Value{}
	}
	if _, ok := out.values[key]; !ok {
		out.keys = append(out.keys, key)
	}
	out.values[key] = val
	return out
}

// Merge returns a new dict with the entries of other layered over v.
func (v *DictValue) Merge(other *DictValue) *DictValue {
	return NewDict(append(v.Entries(), other.Entries()...)...)
}

//-----------------------------------------------------------------------------
// Distributions and domains
//-----------------------------------------------------------------------------

type DistValue struct {
	Tagged
	Dist dist.Dist
}

func NewDist(d dist.Dist) *DistValue { return &DistValue{Dist: d} }

func (v *DistValue) Kind() Kind { return KindDist }
func (v *DistValue) WithTags(t *Tags) Value {
	c := *v
	c.tags = t
	return &c
}

// DomainValue is a closed numeric range used to restrict lambda
// parameters.
type DomainValue struct {
	Tagged
	Min, Max float64
}

func (v DomainValue) Kind() Kind { return KindDomain }
func (v DomainValue) WithTags(t *Tags) Value {
	v.tags = t
	return v
}

func (v DomainValue) Contains(x float64) bool { return x >= v.Min && x <= v.Max }

//-----------------------------------------------------------------------------
// Functions
//-----------------------------------------------------------------------------

// LambdaValue is implemented by builtin and user-defined functions.
type LambdaValue interface {
	Value
	Name() string
	ParameterCounts() []int
	ParameterString() string
}

// IsDecorator reports whether fn may be applied with `@` syntax.
func IsDecorator(fn Value) bool {
	b, ok := fn.(*BuiltinLambda)
	return ok && b.IsDecorator()
}
