// Package resolver evaluates simple top-level assignments of a DAG file into
// constant values without executing it.
//
// Assignments are visited once in source order. Each one is resolved by the
// first matching rule:
//
//   - a string, number or bool literal resolves to itself;
//   - a bare name already bound in the state copies that binding, while a
//     name bound later in the file is left out;
//   - a Variable.get("key") call resolves through the variable store, and a
//     miss resolves to the Unresolved marker;
//   - an f-string or `+` concatenation of strings and names joins its parts,
//     with unbound names and names bound to the Unresolved marker
//     contributing "".
//
// Every other value shape leaves the target out of the state.
package resolver

import "github.com/bigrogerio/daedalus/internal/engine/syntax"

const (
	DefaultStoreBase   = "Variable"
	DefaultStoreMethod = "get"
	defaultKeyword     = "default_var"
	keyKeyword         = "key"
)

// Store is the read-only variable table consulted by store calls.
type Store interface {
	Lookup(key string) (string, bool)
}

// Rule names the resolution rule applied to one assignment.
type Rule string

const (
	RuleLiteral       Rule = "literal"
	RuleAlias         Rule = "alias"
	RuleStore         Rule = "store"
	RuleInterpolation Rule = "interpolation"
	RuleForwardRef    Rule = "forward_reference"
	RuleUnhandled     Rule = "unhandled"
)

// Outcome records how one assignment was handled.
type Outcome struct {
	Name string
	Line int
	Rule Rule
}

// Resolved reports whether the outcome produced a state entry.
func (o Outcome) Resolved() bool {
	return o.Rule != RuleForwardRef && o.Rule != RuleUnhandled
}

type Option func(*Resolver)

// WithStoreAccessor changes the `base.method(...)` shape recognized as a
// variable store call.
func WithStoreAccessor(base, method string) Option {
	return func(r *Resolver) {
		if base != "" {
			r.base = base
		}
		if method != "" {
			r.method = method
		}
	}
}

// Resolver is stateless between calls and safe for concurrent use.
type Resolver struct {
	store  Store
	base   string
	method string
}

// New returns a resolver reading store misses and hits from store. A nil
// store behaves as an empty one.
func New(store Store, opts ...Option) *Resolver {
	r := &Resolver{store: store, base: DefaultStoreBase, method: DefaultStoreMethod}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs a single pass over the module's top-level assignments.
func (r *Resolver) Resolve(mod *syntax.Module) (*State, []Outcome) {
	state := NewState()
	assignments := CollectAssignments(mod)
	outcomes := make([]Outcome, 0, len(assignments))
	for _, a := range assignments {
		v, rule := r.evaluate(a.Value, state)
		if rule != RuleForwardRef && rule != RuleUnhandled {
			state.set(a.Target.ID, v)
		}
		outcomes = append(outcomes, Outcome{Name: a.Target.ID, Line: a.Target.Pos().Line, Rule: rule})
	}
	return state, outcomes
}

// State is Resolve without the outcomes.
func (r *Resolver) State(mod *syntax.Module) *State {
	state, _ := r.Resolve(mod)
	return state
}

func (r *Resolver) evaluate(expr syntax.Expr, state *State) (Value, Rule) {
	switch e := expr.(type) {
	case *syntax.Literal:
		if v, ok := literalValue(e); ok {
			return v, RuleLiteral
		}
	case *syntax.Name:
		if v, ok := state.Get(e.ID); ok {
			return v, RuleAlias
		}
		return Value{}, RuleForwardRef
	case *syntax.Call:
		if r.isStoreCall(e) {
			return r.lookup(e), RuleStore
		}
	case *syntax.JoinedStr:
		if s, ok := interpolate(e, state); ok {
			return String(s), RuleInterpolation
		}
	case *syntax.BinaryOp:
		if s, ok := concatenate(e, state); ok {
			return String(s), RuleInterpolation
		}
	}
	return Value{}, RuleUnhandled
}

func literalValue(lit *syntax.Literal) (Value, bool) {
	switch lit.Kind {
	case syntax.LiteralString:
		return String(lit.Str), true
	case syntax.LiteralInt:
		return Int(lit.Int), true
	case syntax.LiteralFloat:
		return Float(lit.Float), true
	case syntax.LiteralBool:
		return Bool(lit.Bool), true
	}
	return Value{}, false
}

func (r *Resolver) isStoreCall(call *syntax.Call) bool {
	attr, ok := call.Func.(*syntax.Attribute)
	if !ok || attr.Attr != r.method {
		return false
	}
	base, ok := attr.Value.(*syntax.Name)
	return ok && base.ID == r.base
}

// lookup evaluates a store call. The key is the first positional argument or
// the key= keyword; the default is the second positional argument or
// default_var=.
func (r *Resolver) lookup(call *syntax.Call) Value {
	var keyExpr, defaultExpr syntax.Expr
	if len(call.Args) > 0 {
		keyExpr = call.Args[0]
	}
	if len(call.Args) > 1 {
		defaultExpr = call.Args[1]
	}
	for _, kw := range call.Keywords {
		switch kw.Name {
		case keyKeyword:
			if keyExpr == nil {
				keyExpr = kw.Value
			}
		case defaultKeyword:
			defaultExpr = kw.Value
		}
	}

	key, ok := stringLiteral(keyExpr)
	if !ok {
		return Unresolved()
	}
	if r.store != nil {
		if v, ok := r.store.Lookup(key); ok {
			return String(v)
		}
	}
	if lit, ok := defaultExpr.(*syntax.Literal); ok {
		if v, ok := literalValue(lit); ok {
			return v
		}
	}
	return Unresolved()
}

func stringLiteral(expr syntax.Expr) (string, bool) {
	lit, ok := expr.(*syntax.Literal)
	if !ok || lit.Kind != syntax.LiteralString {
		return "", false
	}
	return lit.Str, true
}
