package syntax

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type stmtHandler func(c *converter, node *sitter.Node) Stmt
type exprHandler func(c *converter, node *sitter.Node) Expr

// converter turns a tree-sitter Python tree into Module nodes, dispatching
// handlers by node kind. Kinds without a handler fall back to the Unhandled
// variants.
type converter struct {
	source []byte
	stmts  map[string]stmtHandler
	exprs  map[string]exprHandler
}

var blockKinds = []string{
	"if_statement",
	"for_statement",
	"while_statement",
	"with_statement",
	"try_statement",
	"function_definition",
	"class_definition",
	"decorated_definition",
	"match_statement",
	"case_clause",
}

// clauseKinds are children of a compound statement that carry their own body.
var clauseKinds = map[string]bool{
	"elif_clause":         true,
	"else_clause":         true,
	"except_clause":       true,
	"except_group_clause": true,
	"finally_clause":      true,
	"case_clause":         true,
}

func newConverter(source []byte) *converter {
	c := &converter{
		source: source,
		stmts: map[string]stmtHandler{
			"expression_statement":    convertExpressionStatement,
			"import_statement":        convertImport,
			"import_from_statement":   convertImportFrom,
			"future_import_statement": convertFutureImport,
		},
		exprs: map[string]exprHandler{
			"identifier":               convertName,
			"attribute":                convertAttribute,
			"call":                     convertCall,
			"string":                   convertString,
			"concatenated_string":      convertConcatenatedString,
			"integer":                  convertInteger,
			"float":                    convertFloat,
			"true":                     convertBool,
			"false":                    convertBool,
			"none":                     convertNone,
			"binary_operator":          convertBinaryOperator,
			"parenthesized_expression": convertParenthesized,
		},
	}
	for _, kind := range blockKinds {
		c.stmts[kind] = convertBlock
	}
	return c
}

func (c *converter) module(path string, root *sitter.Node) *Module {
	return &Module{Path: path, Body: c.stmtList(root)}
}

func (c *converter) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(c.source[node.StartByte():node.EndByte()])
}

func (c *converter) span(node *sitter.Node) Span {
	return Span{Start: position(node), Source: c.text(node)}
}

func position(node *sitter.Node) Position {
	p := node.StartPosition()
	return Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// stmtList converts the statement children of a module or block node.
func (c *converter) stmtList(node *sitter.Node) []Stmt {
	if node == nil {
		return nil
	}
	out := make([]Stmt, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if s := c.stmt(node.NamedChild(i)); s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (c *converter) stmt(node *sitter.Node) Stmt {
	if node == nil || node.Kind() == "comment" {
		return nil
	}
	if handler, ok := c.stmts[node.Kind()]; ok {
		return handler(c, node)
	}
	return &UnhandledStmt{Span: c.span(node), Kind: node.Kind(), Exprs: c.namedExprs(node)}
}

func (c *converter) expr(node *sitter.Node) Expr {
	if node == nil {
		return nil
	}
	if handler, ok := c.exprs[node.Kind()]; ok {
		return handler(c, node)
	}
	return c.unhandled(node)
}

func (c *converter) unhandled(node *sitter.Node) *Unhandled {
	return &Unhandled{Span: c.span(node), Kind: node.Kind(), Children: c.namedExprs(node)}
}

// namedExprs converts every named, non-comment child as an expression.
func (c *converter) namedExprs(node *sitter.Node) []Expr {
	var out []Expr
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		if e := c.expr(child); e != nil {
			out = append(out, e)
		}
	}
	return out
}

// ---- statements ----

func convertExpressionStatement(c *converter, node *sitter.Node) Stmt {
	if node.NamedChildCount() == 1 {
		child := node.NamedChild(0)
		switch child.Kind() {
		case "assignment":
			return convertAssignment(c, node, child)
		case "augmented_assignment":
			return &UnhandledStmt{Span: c.span(node), Kind: child.Kind(), Exprs: c.namedExprs(child)}
		}
		return &ExprStmt{Span: c.span(node), X: c.expr(child)}
	}
	// `a, b` as a statement is a bare tuple.
	return &ExprStmt{Span: c.span(node), X: &Unhandled{
		Span:     c.span(node),
		Kind:     "expression_list",
		Children: c.namedExprs(node),
	}}
}

func convertAssignment(c *converter, stmt, node *sitter.Node) Stmt {
	if node.ChildByFieldName("type") != nil || node.ChildByFieldName("right") == nil {
		return &UnhandledStmt{Span: c.span(stmt), Kind: "annotated_assignment", Exprs: c.namedExprs(node)}
	}

	var targets []Expr
	cur := node
	for {
		targets = append(targets, c.expr(cur.ChildByFieldName("left")))
		right := cur.ChildByFieldName("right")
		if right.Kind() != "assignment" {
			return &AssignStmt{Span: c.span(stmt), Targets: targets, Value: c.expr(right)}
		}
		if right.ChildByFieldName("type") != nil || right.ChildByFieldName("right") == nil {
			return &UnhandledStmt{Span: c.span(stmt), Kind: "annotated_assignment", Exprs: c.namedExprs(node)}
		}
		cur = right
	}
}

func convertImport(c *converter, node *sitter.Node) Stmt {
	s := &ImportStmt{Span: c.span(node)}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if name, ok := c.importName(node.NamedChild(i)); ok {
			s.Names = append(s.Names, name)
		}
	}
	return s
}

func convertImportFrom(c *converter, node *sitter.Node) Stmt {
	s := &ImportFromStmt{Span: c.span(node)}
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode != nil {
		s.Module, s.Level = c.relativeModule(moduleNode)
	}

	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if moduleNode != nil && child.StartByte() == moduleNode.StartByte() && child.EndByte() == moduleNode.EndByte() {
			continue
		}
		if child.Kind() == "wildcard_import" {
			s.Wildcard = true
			s.Names = append(s.Names, ImportName{Name: "*"})
			continue
		}
		if name, ok := c.importName(child); ok {
			s.Names = append(s.Names, name)
		}
	}
	return s
}

func convertFutureImport(c *converter, node *sitter.Node) Stmt {
	s := &ImportFromStmt{Span: c.span(node), Module: "__future__"}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if name, ok := c.importName(node.NamedChild(i)); ok {
			s.Names = append(s.Names, name)
		}
	}
	return s
}

func (c *converter) importName(node *sitter.Node) (ImportName, bool) {
	switch node.Kind() {
	case "dotted_name", "identifier":
		return ImportName{Name: compactDotted(c.text(node))}, true
	case "aliased_import":
		name := node.ChildByFieldName("name")
		alias := node.ChildByFieldName("alias")
		if name == nil {
			return ImportName{}, false
		}
		return ImportName{Name: compactDotted(c.text(name)), Alias: c.text(alias)}, true
	}
	return ImportName{}, false
}

// relativeModule splits `..pkg.mod` into ("pkg.mod", 2).
func (c *converter) relativeModule(node *sitter.Node) (string, int) {
	text := compactDotted(c.text(node))
	if node.Kind() != "relative_import" {
		return text, 0
	}
	trimmed := strings.TrimLeft(text, ".")
	return trimmed, len(text) - len(trimmed)
}

// compactDotted drops whitespace the grammar allows inside dotted names.
func compactDotted(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func convertBlock(c *converter, node *sitter.Node) Stmt {
	b := &BlockStmt{Span: c.span(node), Kind: node.Kind()}
	if name := node.ChildByFieldName("name"); name != nil {
		b.Name = c.text(name)
	}
	c.fillBlock(b, node)
	return b
}

func (c *converter) fillBlock(b *BlockStmt, node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch kind := child.Kind(); {
		case kind == "comment":
		case kind == "block":
			b.Body = append(b.Body, c.stmtList(child)...)
		case clauseKinds[kind]:
			c.fillBlock(b, child)
		case kind == "function_definition" || kind == "class_definition":
			b.Body = append(b.Body, c.stmt(child))
		case kind == "decorator":
			b.Header = append(b.Header, c.namedExprs(child)...)
		case nameNode != nil && child.StartByte() == nameNode.StartByte() && child.EndByte() == nameNode.EndByte():
		default:
			if e := c.expr(child); e != nil {
				b.Header = append(b.Header, e)
			}
		}
	}
}

// ---- expressions ----

func convertName(c *converter, node *sitter.Node) Expr {
	return &Name{Span: c.span(node), ID: c.text(node)}
}

func convertAttribute(c *converter, node *sitter.Node) Expr {
	object := node.ChildByFieldName("object")
	attr := node.ChildByFieldName("attribute")
	if object == nil || attr == nil {
		return c.unhandled(node)
	}
	return &Attribute{Span: c.span(node), Value: c.expr(object), Attr: c.text(attr)}
}

func convertCall(c *converter, node *sitter.Node) Expr {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return c.unhandled(node)
	}
	call := &Call{Span: c.span(node), Func: c.expr(fn)}
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return call
	}
	if args.Kind() == "generator_expression" {
		call.Args = append(call.Args, c.expr(args))
		return call
	}
	for i := uint(0); i < args.NamedChildCount(); i++ {
		arg := args.NamedChild(i)
		switch arg.Kind() {
		case "comment":
		case "keyword_argument":
			name := arg.ChildByFieldName("name")
			value := arg.ChildByFieldName("value")
			if name == nil || value == nil {
				continue
			}
			call.Keywords = append(call.Keywords, Keyword{Name: c.text(name), Value: c.expr(value)})
		default:
			call.Args = append(call.Args, c.expr(arg))
		}
	}
	return call
}

func convertString(c *converter, node *sitter.Node) Expr {
	var start, end *sitter.Node
	var embeds []*sitter.Node
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "string_start":
			start = child
		case "string_end":
			end = child
		case "interpolation":
			embeds = append(embeds, child)
		}
	}
	if start == nil || end == nil {
		return c.unhandled(node)
	}

	prefix := parseStringPrefix(strings.TrimRight(c.text(start), `'"`))
	lo, hi := start.EndByte(), end.StartByte()
	if !prefix.formatted {
		lit := &Literal{Span: c.span(node), Kind: LiteralString}
		if prefix.bytes {
			lit.Kind = LiteralBytes
		}
		lit.Str = decodeStringContent(string(c.source[lo:hi]), prefix)
		return lit
	}

	js := &JoinedStr{Span: c.span(node)}
	cursor := lo
	for _, embed := range embeds {
		if embed.StartByte() > cursor {
			js.Parts = append(js.Parts, c.segment(cursor, embed.StartByte(), prefix))
		}
		js.Parts = append(js.Parts, c.formattedValue(embed))
		cursor = embed.EndByte()
	}
	if hi > cursor {
		js.Parts = append(js.Parts, c.segment(cursor, hi, prefix))
	}
	return js
}

func (c *converter) segment(lo, hi uint, prefix stringPrefix) *Literal {
	raw := string(c.source[lo:hi])
	return &Literal{
		Span: Span{Source: raw},
		Kind: LiteralString,
		Str:  decodeStringContent(raw, prefix),
	}
}

func (c *converter) formattedValue(node *sitter.Node) *FormattedValue {
	fv := &FormattedValue{Span: c.span(node)}
	if e := node.ChildByFieldName("expression"); e != nil {
		fv.Value = c.expr(e)
	} else {
		for i := uint(0); i < node.NamedChildCount(); i++ {
			child := node.NamedChild(i)
			if child.Kind() != "type_conversion" && child.Kind() != "format_specifier" {
				fv.Value = c.expr(child)
				break
			}
		}
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		switch child.Kind() {
		case "type_conversion":
			fv.Conversion = strings.TrimPrefix(c.text(child), "!")
		case "format_specifier":
			fv.FormatSpec = strings.TrimPrefix(c.text(child), ":")
		}
	}
	if fv.Value == nil {
		fv.Value = &Unhandled{Span: c.span(node), Kind: "interpolation"}
	}
	return fv
}

// convertConcatenatedString joins implicitly concatenated literals. Plain
// strings fold into one Literal; any f-string part turns the whole thing
// into a JoinedStr.
func convertConcatenatedString(c *converter, node *sitter.Node) Expr {
	var parts []Expr
	formatted := false
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.Kind() != "string" {
			continue
		}
		e := convertString(c, child)
		switch v := e.(type) {
		case *JoinedStr:
			formatted = true
			parts = append(parts, v.Parts...)
		case *Literal:
			parts = append(parts, v)
		default:
			return c.unhandled(node)
		}
	}

	if formatted {
		return &JoinedStr{Span: c.span(node), Parts: parts}
	}
	lit := &Literal{Span: c.span(node), Kind: LiteralString}
	var b strings.Builder
	for _, p := range parts {
		l := p.(*Literal)
		if l.Kind == LiteralBytes {
			lit.Kind = LiteralBytes
		}
		b.WriteString(l.Str)
	}
	lit.Str = b.String()
	return lit
}

func convertInteger(c *converter, node *sitter.Node) Expr {
	v, ok := parseIntLiteral(c.text(node))
	if !ok {
		return c.unhandled(node)
	}
	return &Literal{Span: c.span(node), Kind: LiteralInt, Int: v}
}

func convertFloat(c *converter, node *sitter.Node) Expr {
	v, ok := parseFloatLiteral(c.text(node))
	if !ok {
		return c.unhandled(node)
	}
	return &Literal{Span: c.span(node), Kind: LiteralFloat, Float: v}
}

func convertBool(c *converter, node *sitter.Node) Expr {
	return &Literal{Span: c.span(node), Kind: LiteralBool, Bool: node.Kind() == "true"}
}

func convertNone(c *converter, node *sitter.Node) Expr {
	return &Literal{Span: c.span(node), Kind: LiteralNone}
}

func convertBinaryOperator(c *converter, node *sitter.Node) Expr {
	left := node.ChildByFieldName("left")
	op := node.ChildByFieldName("operator")
	right := node.ChildByFieldName("right")
	if left == nil || op == nil || right == nil {
		return c.unhandled(node)
	}
	return &BinaryOp{Span: c.span(node), Op: c.text(op), Left: c.expr(left), Right: c.expr(right)}
}

func convertParenthesized(c *converter, node *sitter.Node) Expr {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child.Kind() != "comment" {
			return c.expr(child)
		}
	}
	return c.unhandled(node)
}
