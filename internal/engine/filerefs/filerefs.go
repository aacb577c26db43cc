// Package filerefs finds the file paths a Python module opens.
package filerefs

import (
	"github.com/bigrogerio/daedalus/internal/engine/syntax"
)

// DefaultAccessor is the builtin used to open files.
const DefaultAccessor = "open"

// Reference is the first positional argument of one accessor call. The
// argument is kept unevaluated; Literal classifies it.
type Reference struct {
	Arg  syntax.Expr
	Line int
}

// Literal returns the argument's text when it is a plain string constant.
func (r Reference) Literal() (string, bool) {
	lit, ok := r.Arg.(*syntax.Literal)
	if !ok || lit.Kind != syntax.LiteralString {
		return "", false
	}
	return lit.Str, true
}

// Expr returns the argument's source text.
func (r Reference) Expr() string {
	if r.Arg == nil {
		return ""
	}
	return r.Arg.Text()
}

func (r Reference) String() string {
	if s, ok := r.Literal(); ok {
		return s
	}
	return "<unresolved: " + r.Expr() + ">"
}

// Collect returns, in source order, the first argument of every call to the
// bare name accessor. An empty accessor means DefaultAccessor. Calls without
// positional arguments are skipped.
func Collect(mod *syntax.Module, accessor string) []Reference {
	if accessor == "" {
		accessor = DefaultAccessor
	}
	var out []Reference
	syntax.InspectModule(mod, func(n syntax.Node) bool {
		call, ok := n.(*syntax.Call)
		if !ok {
			return true
		}
		if fn, ok := call.Func.(*syntax.Name); ok && fn.ID == accessor && len(call.Args) > 0 {
			out = append(out, Reference{Arg: call.Args[0], Line: call.Pos().Line})
		}
		return true
	})
	return out
}
