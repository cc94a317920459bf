package ast

import "iter"

// Path addresses a node by the child indices taken from the root.
type Path []int

// Children returns the direct child nodes of n in source order.
func Children(n Node) []Node {
	var out []Node
	add := func(children ...Node) {
		for _, c := range children {
			if c != nil && !isNilNode(c) {
				out = append(out, c)
			}
		}
	}
	switch n := n.(type) {
	case *Program:
		for _, imp := range n.Imports {
			add(imp)
		}
		add(n.Statements...)
		add(n.Result)
	case *Block:
		add(n.Statements...)
		add(n.Result)
	case *Import:
		add(n.Path, n.Variable)
	case *LetStatement:
		add(n.Variable)
		if n.UnitType != nil {
			add(n.UnitType)
		}
		add(n.Value)
	case *DefunStatement:
		add(n.Variable, n.Value)
	case *DecoratedStatement:
		add(n.Decorator, n.Statement)
	case *Decorator:
		add(n.Name)
		add(n.Args...)
	case *Lambda:
		for _, p := range n.Parameters {
			add(p)
		}
		add(n.Body)
	case *LambdaParameter:
		add(n.Annotation)
		if n.UnitType != nil {
			add(n.UnitType)
		}
	case *Call:
		add(n.Fn)
		add(n.Args...)
	case *InfixCall:
		add(n.Args[0], n.Args[1])
	case *UnaryCall:
		add(n.Arg)
	case *Pipe:
		add(n.Left, n.Fn)
		add(n.RightArgs...)
	case *Ternary:
		add(n.Condition, n.TrueExpr, n.FalseExpr)
	case *Array:
		add(n.Elements...)
	case *Dict:
		add(n.Elements...)
	case *KeyValue:
		add(n.Key, n.Value)
	case *DotLookup:
		add(n.Arg)
	case *BracketLookup:
		add(n.Arg, n.Key)
	case *UnitValue:
		add(n.Value)
	case *UnitTypeSignature:
		add(n.Body)
	case *InfixUnitType:
		add(n.Args[0], n.Args[1])
	case *Identifier, *Float, *Boolean, *String:
	}
	return out
}

func isNilNode(n Node) bool {
	switch v := n.(type) {
	case *String:
		return v == nil
	case *Identifier:
		return v == nil
	case *Float:
		return v == nil
	case *Lambda:
		return v == nil
	case *Decorator:
		return v == nil
	}
	return false
}

type walkItem struct {
	path Path
	node Node
}

// Walk yields every node under root in pre-order together with its path.
// It keeps an explicit stack, so arbitrarily deep trees do not grow the Go
// call stack.
func Walk(root Node) iter.Seq2[Path, Node] {
	return func(yield func(Path, Node) bool) {
		if root == nil {
			return
		}
		stack := []walkItem{{path: Path{}, node: root}}
		for len(stack) > 0 {
			item := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(item.path, item.node) {
				return
			}
			children := Children(item.node)
			for i := len(children) - 1; i >= 0; i-- {
				p := make(Path, len(item.path)+1)
				copy(p, item.path)
				p[len(item.path)] = i
				stack = append(stack, walkItem{path: p, node: children[i]})
			}
		}
	}
}

// FindByOffset returns the innermost node whose location contains offset.
func FindByOffset(root Node, offset int) (Node, Path, bool) {
	var found Node
	var foundPath Path
	for path, n := range Walk(root) {
		loc := n.Location()
		if loc.IsZero() || !loc.Contains(offset) {
			continue
		}
		if found == nil || len(path) > len(foundPath) {
			found = n
			foundPath = path
		}
	}
	return found, foundPath, found != nil
}

// NodeAt follows path from root.
func NodeAt(root Node, path Path) (Node, bool) {
	cur := root
	for _, idx := range path {
		children := Children(cur)
		if idx < 0 || idx >= len(children) {
			return nil, false
		}
		cur = children[idx]
	}
	return cur, true
}
