package syntax

// Inspect traverses node depth-first in source order. fn is called for each
// node; when it returns false the node's children are skipped.
func Inspect(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	for _, child := range Children(node) {
		Inspect(child, fn)
	}
}

// InspectModule runs Inspect over every top-level statement of mod.
func InspectModule(mod *Module, fn func(Node) bool) {
	if mod == nil {
		return
	}
	for _, stmt := range mod.Body {
		Inspect(stmt, fn)
	}
}

// Children returns the direct child nodes of node in source order.
func Children(node Node) []Node {
	var out []Node
	add := func(exprs ...Expr) {
		for _, e := range exprs {
			if e != nil {
				out = append(out, e)
			}
		}
	}

	switch n := node.(type) {
	case *AssignStmt:
		add(n.Targets...)
		add(n.Value)
	case *ExprStmt:
		add(n.X)
	case *ImportStmt, *ImportFromStmt:
	case *BlockStmt:
		add(n.Header...)
		for _, s := range n.Body {
			out = append(out, s)
		}
	case *UnhandledStmt:
		add(n.Exprs...)
	case *Literal, *Name:
	case *Attribute:
		add(n.Value)
	case *Call:
		add(n.Func)
		add(n.Args...)
		for _, kw := range n.Keywords {
			add(kw.Value)
		}
	case *JoinedStr:
		add(n.Parts...)
	case *FormattedValue:
		add(n.Value)
	case *BinaryOp:
		add(n.Left, n.Right)
	case *Unhandled:
		add(n.Children...)
	}
	return out
}
