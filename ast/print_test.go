package ast_test

import (
	"testing"

	"github.com/benbjohnson/ntbounds/ast"
)

func TestString(t *testing.T) {
	p := NewVar(1, "p", ast.NtArrayPtrTo(ast.CharType))
	i := NewVar(2, "i", ast.IntType)
	s := NewVar(3, "s", ast.PointerTo(&ast.Type{Kind: ast.Struct, Name: "S"}))
	f := &ast.FieldDecl{Name: "f", Type: ast.IntType}

	for _, tt := range []struct {
		name string
		node ast.Node
		want string
	}{
		{"Deref", &ast.UnaryOperator{Op: ast.DEREF, X: &ast.ParenExpr{X: Bin(ast.ADD, Use(i), Use(p))}}, "*(i + p)"},
		{"Subscript", &ast.ArraySubscriptExpr{Base: Use(p), Index: Use(i)}, "p[i]"},
		{"Arrow", ast.CreateMemberExpr(ast.CreateVarUse(s), f, true), "s->f"},
		{"PostInc", &ast.UnaryOperator{Op: ast.POSTINC, X: ast.CreateVarUse(i)}, "i++"},
		{"Char", &ast.CharacterLiteral{Value: 0}, `'\0'`},
		{"Negative", &ast.IntegerLiteral{Value: 0xffffffff, Type: ast.IntType}, "-1"},
		{"Cast", &ast.CStyleCastExpr{Kind: ast.IntegralCast, Type: ast.CharType, X: Use(i)}, "(char)i"},
		{"Call", &ast.CallExpr{Fn: ast.CreateVarUse(NewVar(4, "g", ast.IntType)), Args: []ast.Expr{Use(i), Lit(1)}}, "g(i, 1)"},
		{"Bounds", &ast.RangeBoundsExpr{Lower: Use(p), Upper: Bin(ast.ADD, Use(p), Use(i))}, "bounds(p, p + i)"},
		{"Decl", &ast.DeclStmt{Decls: []*ast.VarDecl{{
			ID: 1, Name: "p", Type: p.Type,
			Bounds: &ast.RangeBoundsExpr{Lower: Use(p), Upper: Bin(ast.ADD, Use(p), Use(i))},
			Init:   &ast.StringLiteral{Value: "a"},
		}}}, `_Nt_array_ptr<char> p : bounds(p, p + i) = "a";`},
		{"PointerDecl", &ast.DeclStmt{Decls: []*ast.VarDecl{{ID: 5, Name: "q", Type: ast.PointerTo(ast.CharType)}}}, "char *q;"},
		{"Where", &ast.NullStmt{Where: &ast.WhereClause{Facts: []*ast.BoundsFact{{Var: p, Bounds: &ast.CountBoundsExpr{Count: Lit(2)}}}}}, "_Where p : count(2);"},
		{"If", &ast.IfStmt{Cond: &ast.UnaryOperator{Op: ast.DEREF, X: Use(p)}}, "if (*p)"},
		{"Case", &ast.CaseStmt{LHS: Lit(1), RHS: Lit(3)}, "case 1 ... 3:"},
		{"Return", &ast.ReturnStmt{Result: Use(i)}, "return i;"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := ast.String(tt.node); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
