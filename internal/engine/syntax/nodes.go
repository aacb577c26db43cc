// Package syntax holds the read-only Python syntax tree the analyzers work on.
//
// The tree is a closed set of node types. Every statement implements Stmt and
// every expression implements Expr; both interfaces are sealed with unexported
// marker methods so that a type switch over them is exhaustive within this
// module. Shapes the analyzers do not care about become Unhandled (expressions)
// or UnhandledStmt (statements) and keep their children so walks still reach
// nested calls and imports.
package syntax

// Position is a 1-based source location.
type Position struct {
	Line   int
	Column int
}

// Span carries the location and raw source text shared by every node.
type Span struct {
	Start  Position
	Source string
}

func (s Span) Pos() Position { return s.Start }
func (s Span) Text() string  { return s.Source }

// Node is implemented by every statement and expression.
type Node interface {
	Pos() Position
	Text() string
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Module is the root of one parsed file.
type Module struct {
	Path string
	Body []Stmt
}

// ---- statements ----

// AssignStmt is `t1 = t2 = ... = value`. Targets keep their source order.
type AssignStmt struct {
	Span
	Targets []Expr
	Value   Expr
}

// ExprStmt is a bare expression used as a statement, e.g. a call.
type ExprStmt struct {
	Span
	X Expr
}

// ImportName is one `name [as alias]` entry of an import statement.
type ImportName struct {
	Name  string
	Alias string
}

// ImportStmt is `import a.b, c as d`.
type ImportStmt struct {
	Span
	Names []ImportName
}

// ImportFromStmt is `from [.]*module import names`. Module excludes the
// leading dots, which are counted by Level. Module is empty for `from . import x`.
type ImportFromStmt struct {
	Span
	Module   string
	Level    int
	Names    []ImportName
	Wildcard bool
}

// BlockStmt is any compound statement (if, for, while, with, try, def, class,
// match). Header holds the expressions outside the bodies (conditions,
// iterables, decorators, default values) and Body holds every nested clause
// body flattened in source order.
type BlockStmt struct {
	Span
	Kind   string
	Name   string
	Header []Expr
	Body   []Stmt
}

// UnhandledStmt is any other simple statement, such as return, augmented or
// annotated assignment, raise, del, assert.
type UnhandledStmt struct {
	Span
	Kind  string
	Exprs []Expr
}

func (*AssignStmt) stmtNode()     {}
func (*ExprStmt) stmtNode()       {}
func (*ImportStmt) stmtNode()     {}
func (*ImportFromStmt) stmtNode() {}
func (*BlockStmt) stmtNode()      {}
func (*UnhandledStmt) stmtNode()  {}

// ---- expressions ----

// LiteralKind tells which constant a Literal holds.
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralBytes
	LiteralInt
	LiteralFloat
	LiteralBool
	LiteralNone
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralString:
		return "string"
	case LiteralBytes:
		return "bytes"
	case LiteralInt:
		return "int"
	case LiteralFloat:
		return "float"
	case LiteralBool:
		return "bool"
	case LiteralNone:
		return "none"
	default:
		return "unknown"
	}
}

// Literal is a constant. Str is set for strings and bytes (escapes decoded,
// adjacent literals joined), Int, Float and Bool for the matching kinds.
type Literal struct {
	Span
	Kind  LiteralKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
}

// Name is a bare identifier reference.
type Name struct {
	Span
	ID string
}

// Attribute is `value.attr`.
type Attribute struct {
	Span
	Value Expr
	Attr  string
}

// Keyword is a `name=value` call argument.
type Keyword struct {
	Name  string
	Value Expr
}

// Call is `func(args, keywords)`. Starred arguments appear in Args as
// Unhandled nodes.
type Call struct {
	Span
	Func     Expr
	Args     []Expr
	Keywords []Keyword
}

// JoinedStr is an f-string (possibly implicitly concatenated with plain
// strings). Parts alternate freely between *Literal string segments and
// *FormattedValue embeds.
type JoinedStr struct {
	Span
	Parts []Expr
}

// FormattedValue is one `{expr[!conv][:spec]}` embed of an f-string.
type FormattedValue struct {
	Span
	Value      Expr
	Conversion string
	FormatSpec string
}

// BinaryOp is `left op right` for arithmetic operators.
type BinaryOp struct {
	Span
	Op    string
	Left  Expr
	Right Expr
}

// Unhandled is any other expression. Children keeps the nested expressions
// that could be recovered so walks are not cut short.
type Unhandled struct {
	Span
	Kind     string
	Children []Expr
}

func (*Literal) exprNode()        {}
func (*Name) exprNode()           {}
func (*Attribute) exprNode()      {}
func (*Call) exprNode()           {}
func (*JoinedStr) exprNode()      {}
func (*FormattedValue) exprNode() {}
func (*BinaryOp) exprNode()       {}
func (*Unhandled) exprNode()      {}
