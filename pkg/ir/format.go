package ir

import (
	"fmt"
	"strings"

	"squiggle/interpreter-go/pkg/runtime"
)

// Format renders n as an s-expression. Stack references print as
// name@offset and capture references as name^index.
func Format(n Node) string {
	var b strings.Builder
	format(&b, n)
	return b.String()
}

func format(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case nil:
		b.WriteString("()")
	case *Program:
		for i, stmt := range n.Statements {
			if i > 0 {
				b.WriteByte('\n')
			}
			format(b, stmt)
		}
		if n.Result != nil {
			if len(n.Statements) > 0 {
				b.WriteByte('\n')
			}
			format(b, n.Result)
		}
	case *Block:
		b.WriteString("(Block")
		for _, stmt := range n.Statements {
			b.WriteByte(' ')
			format(b, stmt)
		}
		b.WriteByte(' ')
		format(b, n.Result)
		b.WriteByte(')')
	case *Assign:
		fmt.Fprintf(b, "(Assign %s ", n.Name)
		format(b, n.Value)
		b.WriteByte(')')
	case *StackRef:
		fmt.Fprintf(b, "%s@%d", n.Name, n.Offset)
	case *CaptureRef:
		fmt.Fprintf(b, "%s^%d", n.Name, n.Index)
	case *Ternary:
		b.WriteString("(Ternary ")
		format(b, n.Condition)
		b.WriteByte(' ')
		format(b, n.IfTrue)
		b.WriteByte(' ')
		format(b, n.IfFalse)
		b.WriteByte(')')
	case *Call:
		b.WriteByte('(')
		if n.As == AsDecorate {
			b.WriteString("decorate ")
		}
		format(b, n.Fn)
		for _, arg := range n.Args {
			b.WriteByte(' ')
			format(b, arg)
		}
		b.WriteByte(')')
	case *Lambda:
		b.WriteString("(Lambda")
		if n.Name != "" {
			b.WriteByte(' ')
			b.WriteString(n.Name)
		}
		b.WriteString(" [")
		for i, p := range n.Parameters {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(p.Name)
			if p.Annotation != nil {
				b.WriteByte(':')
				format(b, p.Annotation)
			}
		}
		b.WriteString("] [")
		for i, c := range n.Captures {
			if i > 0 {
				b.WriteByte(' ')
			}
			format(b, c)
		}
		b.WriteString("] ")
		format(b, n.Body)
		b.WriteByte(')')
	case *Array:
		b.WriteByte('[')
		for i, e := range n.Elements {
			if i > 0 {
				b.WriteByte(' ')
			}
			format(b, e)
		}
		b.WriteByte(']')
	case *Dict:
		b.WriteByte('{')
		for i, p := range n.Pairs {
			if i > 0 {
				b.WriteString(", ")
			}
			format(b, p.Key)
			b.WriteString(": ")
			format(b, p.Value)
		}
		b.WriteByte('}')
	case *Value:
		b.WriteString(runtime.ToString(n.Value))
	default:
		fmt.Fprintf(b, "<%T>", n)
	}
}

// Walk calls fn for n and every node below it, parents first.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch n := n.(type) {
	case *Program:
		for _, s := range n.Statements {
			Walk(s, fn)
		}
		Walk(n.Result, fn)
	case *Block:
		for _, s := range n.Statements {
			Walk(s, fn)
		}
		Walk(n.Result, fn)
	case *Assign:
		Walk(n.Value, fn)
	case *Ternary:
		Walk(n.Condition, fn)
		Walk(n.IfTrue, fn)
		Walk(n.IfFalse, fn)
	case *Call:
		Walk(n.Fn, fn)
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *Lambda:
		for _, c := range n.Captures {
			Walk(c, fn)
		}
		for _, p := range n.Parameters {
			Walk(p.Annotation, fn)
		}
		Walk(n.Body, fn)
	case *Array:
		for _, e := range n.Elements {
			Walk(e, fn)
		}
	case *Dict:
		for _, p := range n.Pairs {
			Walk(p.Key, fn)
			Walk(p.Value, fn)
		}
	}
}
