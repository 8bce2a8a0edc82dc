package cfront

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/benbjohnson/ntbounds/ast"
	sitter "github.com/smacker/go-tree-sitter"
)

var binaryOps = map[string]ast.BinaryOp{
	"*":  ast.MUL,
	"/":  ast.DIV,
	"%":  ast.REM,
	"+":  ast.ADD,
	"-":  ast.SUB,
	"<<": ast.SHL,
	">>": ast.SHR,
	"<":  ast.LT,
	">":  ast.GT,
	"<=": ast.LE,
	">=": ast.GE,
	"==": ast.EQ,
	"!=": ast.NE,
	"&":  ast.AND,
	"^":  ast.XOR,
	"|":  ast.OR,
	"&&": ast.LAND,
	"||": ast.LOR,
}

var assignOps = map[string]ast.BinaryOp{
	"=":   ast.ASSIGN,
	"*=":  ast.MUL_ASSIGN,
	"/=":  ast.DIV_ASSIGN,
	"%=":  ast.REM_ASSIGN,
	"+=":  ast.ADD_ASSIGN,
	"-=":  ast.SUB_ASSIGN,
	"<<=": ast.SHL_ASSIGN,
	">>=": ast.SHR_ASSIGN,
	"&=":  ast.AND_ASSIGN,
	"^=":  ast.XOR_ASSIGN,
	"|=":  ast.OR_ASSIGN,
}

var unaryOps = map[string]ast.UnaryOp{
	"+": ast.PLUS,
	"-": ast.MINUS,
	"!": ast.LNOT,
	"~": ast.NOT,
}

// rvalue translates n and converts the result to an rvalue.
func (t *translator) rvalue(n *sitter.Node) (ast.Expr, error) {
	e, err := t.expr(n)
	if err != nil {
		return nil, err
	}
	return ast.EnsureRValue(e), nil
}

func (t *translator) operator(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return op.Type()
	}
	return ""
}

func (t *translator) expr(n *sitter.Node) (ast.Expr, error) {
	switch n.Type() {
	case "identifier":
		name := t.content(n)
		v := t.lookup(name)
		if v == nil {
			return nil, fmt.Errorf("%w: undeclared identifier: %s", ErrSyntax, name)
		}
		return ast.CreateVarUse(v), nil

	case "number_literal":
		return t.numberLiteral(n)

	case "char_literal":
		return t.charLiteral(n)

	case "string_literal":
		text := t.content(n)
		s, err := strconv.Unquote(text)
		if err != nil {
			s = strings.Trim(text, `"`)
		}
		return &ast.StringLiteral{Value: s}, nil

	case "parenthesized_expression":
		x, err := t.expr(n.NamedChild(0))
		if err != nil {
			return nil, err
		}
		return &ast.ParenExpr{X: x}, nil

	case "unary_expression":
		op, ok := unaryOps[t.operator(n)]
		if !ok {
			return nil, t.unsupported(n)
		}
		x, err := t.rvalue(n.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOperator{Op: op, X: x}, nil

	case "pointer_expression":
		arg := n.ChildByFieldName("argument")
		if t.operator(n) == "&" {
			x, err := t.expr(arg)
			if err != nil {
				return nil, err
			}
			return &ast.UnaryOperator{Op: ast.ADDROF, X: x}, nil
		}
		x, err := t.rvalue(arg)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOperator{Op: ast.DEREF, X: x}, nil

	case "update_expression":
		return t.updateExpression(n)

	case "binary_expression":
		op, ok := binaryOps[t.operator(n)]
		if !ok {
			return nil, t.unsupported(n)
		}
		lhs, err := t.rvalue(n.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		rhs, err := t.rvalue(n.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		return &ast.BinaryOperator{Op: op, LHS: lhs, RHS: rhs}, nil

	case "assignment_expression":
		op, ok := assignOps[t.operator(n)]
		if !ok {
			return nil, t.unsupported(n)
		}
		lhs, err := t.expr(n.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		rhs, err := t.rvalue(n.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		return &ast.BinaryOperator{Op: op, LHS: lhs, RHS: rhs}, nil

	case "comma_expression":
		lhs, err := t.expr(n.ChildByFieldName("left"))
		if err != nil {
			return nil, err
		}
		rhs, err := t.expr(n.ChildByFieldName("right"))
		if err != nil {
			return nil, err
		}
		return &ast.BinaryOperator{Op: ast.COMMA, LHS: lhs, RHS: rhs}, nil

	case "subscript_expression":
		base, err := t.rvalue(n.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		index, err := t.rvalue(n.ChildByFieldName("index"))
		if err != nil {
			return nil, err
		}
		return &ast.ArraySubscriptExpr{Base: base, Index: index}, nil

	case "field_expression":
		base, err := t.expr(n.ChildByFieldName("argument"))
		if err != nil {
			return nil, err
		}
		field := &ast.FieldDecl{Name: t.content(n.ChildByFieldName("field"))}
		return ast.CreateMemberExpr(base, field, t.operator(n) == "->"), nil

	case "cast_expression":
		return t.castExpression(n)

	case "call_expression":
		return t.callExpression(n)

	default:
		return nil, t.unsupported(n)
	}
}

func (t *translator) updateExpression(n *sitter.Node) (ast.Expr, error) {
	x, err := t.expr(n.ChildByFieldName("argument"))
	if err != nil {
		return nil, err
	}

	// The operator precedes the argument for the prefix forms.
	prefix := n.Child(0).Type() == "++" || n.Child(0).Type() == "--"

	var op ast.UnaryOp
	switch inc := t.operator(n) == "++"; {
	case inc && prefix:
		op = ast.PREINC
	case inc:
		op = ast.POSTINC
	case prefix:
		op = ast.PREDEC
	default:
		op = ast.POSTDEC
	}
	return &ast.UnaryOperator{Op: op, X: x}, nil
}

func (t *translator) castExpression(n *sitter.Node) (ast.Expr, error) {
	desc := n.ChildByFieldName("type")
	typ, err := t.typ(desc.ChildByFieldName("type"))
	if err != nil {
		return nil, err
	}
	if d := desc.ChildByFieldName("declarator"); d != nil {
		if d.Type() != "abstract_pointer_declarator" {
			return nil, t.unsupported(d)
		}
		typ = ast.PointerTo(typ)
	}

	x, err := t.rvalue(n.ChildByFieldName("value"))
	if err != nil {
		return nil, err
	}

	kind := ast.NoOp
	switch {
	case typ.IsInteger():
		kind = ast.IntegralCast
	case typ.IsPointer():
		kind = ast.BitCast
	}
	return &ast.CStyleCastExpr{Kind: kind, X: x, Type: typ}, nil
}

func (t *translator) callExpression(n *sitter.Node) (ast.Expr, error) {
	fnNode := n.ChildByFieldName("function")
	if fnNode.Type() != "identifier" {
		return nil, t.unsupported(fnNode)
	}

	// Callees are not declared in the function so each name maps to a
	// single synthetic declaration.
	name := t.content(fnNode)
	decl := t.funcs[name]
	if decl == nil {
		decl = &ast.VarDecl{Name: name}
		t.funcs[name] = decl
	}

	call := &ast.CallExpr{Fn: ast.CreateVarUse(decl)}
	args := n.ChildByFieldName("arguments")
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() == "comment" {
			continue
		}
		e, err := t.rvalue(arg)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, e)
	}
	return call, nil
}

// numberLiteral translates an integer constant. The type is the first of
// int, long and unsigned long that holds the value, honoring u and l suffixes.
func (t *translator) numberLiteral(n *sitter.Node) (ast.Expr, error) {
	text := strings.ToLower(t.content(n))
	digits := strings.TrimRight(text, "ul")
	suffix := text[len(digits):]

	value, err := strconv.ParseUint(digits, 0, 64)
	if err != nil {
		return nil, t.unsupported(n)
	}

	var candidates []*ast.Type
	switch {
	case strings.Contains(suffix, "u"):
		candidates = []*ast.Type{ast.UnsignedIntType, ast.UnsignedLongType}
	case strings.Contains(suffix, "l"):
		candidates = []*ast.Type{ast.LongType, ast.UnsignedLongType}
	default:
		candidates = []*ast.Type{ast.IntType, ast.LongType, ast.UnsignedLongType}
	}

	v := ast.NewUnsignedInt(value, ast.Width64)
	for _, typ := range candidates {
		if lit := ast.CreateIntegerLiteral(t.ctx, v, typ); lit != nil {
			return lit, nil
		}
	}
	return nil, fmt.Errorf("%w: integer constant too large: %s", ErrSyntax, text)
}

// charLiteral translates a character constant such as 'a', '\n' or '\0'.
func (t *translator) charLiteral(n *sitter.Node) (ast.Expr, error) {
	text := t.content(n)
	if len(text) < 3 || text[0] != '\'' || text[len(text)-1] != '\'' {
		return nil, t.unsupported(n)
	}
	inner := text[1 : len(text)-1]

	if len(inner) > 1 && inner[0] == '\\' && inner[1] >= '0' && inner[1] <= '7' {
		v, err := strconv.ParseUint(inner[1:], 8, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid octal escape: %s", ErrSyntax, text)
		}
		return &ast.CharacterLiteral{Value: rune(v)}, nil
	}

	r, _, tail, err := strconv.UnquoteChar(inner, '\'')
	if err != nil || tail != "" {
		return nil, fmt.Errorf("%w: invalid character constant: %s", ErrSyntax, text)
	}
	return &ast.CharacterLiteral{Value: r}, nil
}
