// Package cfront parses a subset of Checked C into the ast package.
//
// Checked C annotations are removed by a textual pass that keeps byte
// offsets intact and the remaining plain C is parsed with tree-sitter. The
// annotations are then reattached to the declarations they follow.
package cfront

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/benbjohnson/ntbounds/ast"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
)

var (
	// ErrUnsupported is returned for C constructs outside of the supported subset.
	ErrUnsupported = errors.New("cfront: unsupported construct")

	// ErrSyntax is returned when the source cannot be parsed.
	ErrSyntax = errors.New("cfront: syntax error")
)

// Parse returns every function definition in src.
func Parse(ctx *ast.Context, src []byte) ([]*ast.Function, error) {
	text, ann, err := preprocess(src)
	if err != nil {
		return nil, err
	}

	tree, err := parse(text)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var fns []*ast.Function
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		if n.Type() != "function_definition" {
			continue
		}

		t := newTranslator(ctx, text, ann)
		fn, err := t.function(n)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return fns, nil
}

// ParseExpr parses a single C expression in which the given variables are in
// scope. The result is converted to an rvalue.
func ParseExpr(ctx *ast.Context, src string, vars ...*ast.VarDecl) (ast.Expr, error) {
	t := newTranslator(ctx, nil, &annotations{})
	for _, v := range vars {
		t.declare(v)
	}

	e, err := t.parseExpr(src)
	if err != nil {
		return nil, err
	}
	return ast.EnsureRValue(e), nil
}

// parse runs the tree-sitter C parser over src.
func parse(src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(c.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, err
	}

	if root := tree.RootNode(); root.HasError() {
		defer tree.Close()
		if n := firstError(root); n != nil {
			pt := n.StartPoint()
			return nil, fmt.Errorf("%w: %d:%d: unexpected %q", ErrSyntax, pt.Row+1, pt.Column+1, n.Content(src))
		}
		return nil, ErrSyntax
	}
	return tree, nil
}

// firstError returns the first error or missing node under n.
func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if e := firstError(n.Child(i)); e != nil {
			return e
		}
	}
	return nil
}

// translator converts tree-sitter nodes of a single function to ast nodes.
type translator struct {
	ctx *ast.Context
	src []byte
	ann *annotations

	scopes []map[string]*ast.VarDecl
	funcs  map[string]*ast.VarDecl
	nextID int
}

func newTranslator(ctx *ast.Context, src []byte, ann *annotations) *translator {
	return &translator{
		ctx:    ctx,
		src:    src,
		ann:    ann,
		scopes: []map[string]*ast.VarDecl{{}},
		funcs:  make(map[string]*ast.VarDecl),
		nextID: 1,
	}
}

func (t *translator) pushScope() { t.scopes = append(t.scopes, make(map[string]*ast.VarDecl)) }
func (t *translator) popScope()  { t.scopes = t.scopes[:len(t.scopes)-1] }

// declare adds v to the innermost scope.
func (t *translator) declare(v *ast.VarDecl) {
	t.scopes[len(t.scopes)-1][v.Name] = v
}

// lookup returns the innermost variable named name.
func (t *translator) lookup(name string) *ast.VarDecl {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if v := t.scopes[i][name]; v != nil {
			return v
		}
	}
	return nil
}

// newVar declares a new variable with a function-unique ID.
func (t *translator) newVar(name string, typ *ast.Type, isParam bool) *ast.VarDecl {
	v := &ast.VarDecl{ID: t.nextID, Name: name, Type: typ, IsParam: isParam}
	t.nextID++
	t.declare(v)
	return v
}

func (t *translator) content(n *sitter.Node) string {
	return n.Content(t.src)
}

func (t *translator) unsupported(n *sitter.Node) error {
	pt := n.StartPoint()
	return fmt.Errorf("%w: %d:%d: %s", ErrUnsupported, pt.Row+1, pt.Column+1, n.Type())
}

func (t *translator) function(n *sitter.Node) (*ast.Function, error) {
	ret, err := t.typ(n.ChildByFieldName("type"))
	if err != nil {
		return nil, err
	}

	decl := n.ChildByFieldName("declarator")
	for decl.Type() == "pointer_declarator" {
		ret = ast.PointerTo(ret)
		decl = decl.ChildByFieldName("declarator")
	}
	if decl.Type() != "function_declarator" {
		return nil, t.unsupported(decl)
	}

	fn := &ast.Function{
		Name:       t.content(decl.ChildByFieldName("declarator")),
		ReturnType: ret,
	}

	t.pushScope()
	defer t.popScope()

	// Parameter bounds may refer to any parameter so they are resolved once
	// every parameter is declared.
	var names []*sitter.Node
	params := decl.ChildByFieldName("parameters")
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "comment":
			continue
		case "parameter_declaration":
		default:
			return nil, t.unsupported(p)
		}

		base, err := t.typ(p.ChildByFieldName("type"))
		if err != nil {
			return nil, err
		}
		d := p.ChildByFieldName("declarator")
		if d == nil {
			continue // f(void)
		}

		name, typ, err := t.declarator(base, d)
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, t.newVar(t.content(name), typ, true))
		names = append(names, name)
	}
	for i, v := range fn.Params {
		if err := t.resolveBounds(v, names[i]); err != nil {
			return nil, err
		}
	}

	body, err := t.compound(n.ChildByFieldName("body"))
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

// typ returns the type named by a type specifier node.
func (t *translator) typ(n *sitter.Node) (*ast.Type, error) {
	if n == nil {
		return ast.IntType, nil
	}

	switch n.Type() {
	case "primitive_type", "sized_type_specifier":
	default:
		return nil, t.unsupported(n)
	}

	var unsigned bool
	var longs int
	kind := ""
	for _, word := range strings.Fields(t.content(n)) {
		switch word {
		case "unsigned":
			unsigned = true
		case "signed":
		case "long":
			longs++
		case "void", "char", "short", "int":
			kind = word
		default:
			return nil, t.unsupported(n)
		}
	}

	switch {
	case kind == "void":
		return ast.VoidType, nil
	case kind == "char" && !unsigned:
		return ast.CharType, nil
	case kind == "char":
		return &ast.Type{Kind: ast.Char, Unsigned: true}, nil
	case kind == "short":
		return &ast.Type{Kind: ast.Short, Unsigned: unsigned}, nil
	case longs == 1:
		return &ast.Type{Kind: ast.Long, Unsigned: unsigned}, nil
	case longs > 1:
		return &ast.Type{Kind: ast.LongLong, Unsigned: unsigned}, nil
	case unsigned:
		return ast.UnsignedIntType, nil
	default:
		return ast.IntType, nil
	}
}

// declarator returns the name node and full type of a declarator.
func (t *translator) declarator(base *ast.Type, n *sitter.Node) (*sitter.Node, *ast.Type, error) {
	switch n.Type() {
	case "identifier":
		return n, base, nil

	case "pointer_declarator":
		name, typ, err := t.declarator(ast.PointerTo(base), n.ChildByFieldName("declarator"))
		if err != nil {
			return nil, nil, err
		}
		if _, ok := t.ann.ntPtrs[name.EndByte()]; ok && typ.Kind == ast.Pointer {
			typ = ast.NtArrayPtrTo(typ.Elem)
		}
		return name, typ, nil

	case "array_declarator":
		var length int
		if size := n.ChildByFieldName("size"); size != nil {
			e, err := t.expr(size)
			if err != nil {
				return nil, nil, err
			}
			v, ok := t.ctx.EvaluateInt(e)
			if !ok {
				return nil, nil, t.unsupported(size)
			}
			length = int(v.Int64())
		}
		return t.declarator(ast.ArrayOf(base, length), n.ChildByFieldName("declarator"))

	default:
		return nil, nil, t.unsupported(n)
	}
}

// resolveBounds parses the bounds annotation of v, if any.
func (t *translator) resolveBounds(v *ast.VarDecl, name *sitter.Node) error {
	text := t.ann.ntPtrs[name.EndByte()]
	if text == "" {
		return nil
	}

	b, err := t.bounds(text)
	if err != nil {
		return fmt.Errorf("bounds of %s: %w", v.Name, err)
	}
	v.Bounds = b
	return nil
}

// bounds parses "bounds(lo, hi)" or "count(n)".
func (t *translator) bounds(text string) (ast.BoundsExpr, error) {
	e, err := t.parseExpr(text)
	if err != nil {
		return nil, err
	}

	call, ok := e.(*ast.CallExpr)
	if !ok {
		return nil, fmt.Errorf("%w: invalid bounds expression: %s", ErrSyntax, text)
	}
	args := call.Args

	switch name := ast.String(call.Fn); {
	case name == "bounds" && len(args) == 2:
		return &ast.RangeBoundsExpr{Lower: args[0], Upper: args[1]}, nil
	case name == "count" && len(args) == 1:
		return &ast.CountBoundsExpr{Count: args[0]}, nil
	default:
		return nil, fmt.Errorf("%w: invalid bounds expression: %s", ErrSyntax, text)
	}
}

// where resolves the where clause ending at offset end, if any.
func (t *translator) where(end uint32) (*ast.WhereClause, error) {
	facts, ok := t.ann.wheres[end]
	if !ok {
		return nil, nil
	}

	w := &ast.WhereClause{}
	for _, f := range facts {
		v := t.lookup(f.name)
		if v == nil {
			return nil, fmt.Errorf("%w: undeclared identifier in _Where: %s", ErrSyntax, f.name)
		}
		b, err := t.bounds(f.bounds)
		if err != nil {
			return nil, err
		}
		w.Facts = append(w.Facts, &ast.BoundsFact{Var: v, Bounds: b})
	}
	return w, nil
}

// parseExpr parses src as an expression in the current scope.
func (t *translator) parseExpr(src string) (ast.Expr, error) {
	text := []byte("void __expr(void) { (" + src + "); }")
	tree, err := parse(text)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	fn := tree.RootNode().NamedChild(0)
	body := fn.ChildByFieldName("body")
	stmt := body.NamedChild(0)
	if stmt == nil || stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
		return nil, fmt.Errorf("%w: not an expression: %s", ErrSyntax, src)
	}

	prev := t.src
	t.src = text
	defer func() { t.src = prev }()

	paren := stmt.NamedChild(0)
	return t.expr(paren.NamedChild(0))
}
