package resolver

import (
	"strings"

	"github.com/bigrogerio/daedalus/internal/engine/syntax"
)

// interpolate joins the segments of an f-string. Embedded names contribute
// their current binding; anything else embedded contributes nothing.
func interpolate(js *syntax.JoinedStr, state *State) (string, bool) {
	var b strings.Builder
	for _, part := range js.Parts {
		switch p := part.(type) {
		case *syntax.Literal:
			if p.Kind != syntax.LiteralString {
				return "", false
			}
			b.WriteString(p.Str)
		case *syntax.FormattedValue:
			if name, ok := p.Value.(*syntax.Name); ok {
				b.WriteString(bindingText(name, state))
			}
		default:
			return "", false
		}
	}
	return b.String(), true
}

// concatenate folds a chain of `+` operators. Operands may be string
// literals, f-strings or names, and at least one operand must be a string so
// numeric additions are left alone.
func concatenate(op *syntax.BinaryOp, state *State) (string, bool) {
	var operands []syntax.Expr
	if !flattenPlus(op, &operands) {
		return "", false
	}

	var b strings.Builder
	sawString := false
	for _, operand := range operands {
		switch o := operand.(type) {
		case *syntax.Literal:
			if o.Kind != syntax.LiteralString {
				return "", false
			}
			sawString = true
			b.WriteString(o.Str)
		case *syntax.JoinedStr:
			s, ok := interpolate(o, state)
			if !ok {
				return "", false
			}
			sawString = true
			b.WriteString(s)
		case *syntax.Name:
			b.WriteString(bindingText(o, state))
		default:
			return "", false
		}
	}
	return b.String(), sawString
}

func flattenPlus(expr syntax.Expr, out *[]syntax.Expr) bool {
	op, ok := expr.(*syntax.BinaryOp)
	if !ok {
		*out = append(*out, expr)
		return true
	}
	if op.Op != "+" {
		return false
	}
	return flattenPlus(op.Left, out) && flattenPlus(op.Right, out)
}

func bindingText(name *syntax.Name, state *State) string {
	v, ok := state.Get(name.ID)
	if !ok {
		return ""
	}
	return v.Interpolated()
}
