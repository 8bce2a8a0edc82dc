package ast_test

import (
	"testing"

	"github.com/benbjohnson/ntbounds/ast"
)

// NewVar returns a variable declaration with the given ID, name and type.
func NewVar(id int, name string, typ *ast.Type) *ast.VarDecl {
	return &ast.VarDecl{ID: id, Name: name, Type: typ}
}

// Use returns an rvalue use of v.
func Use(v *ast.VarDecl) ast.Expr {
	return ast.EnsureRValue(ast.CreateVarUse(v))
}

// Lit returns an int literal.
func Lit(v int64) *ast.IntegerLiteral {
	return &ast.IntegerLiteral{Value: uint64(v) & 0xffffffff, Type: ast.IntType}
}

// Bin returns lhs op rhs.
func Bin(op ast.BinaryOp, lhs, rhs ast.Expr) *ast.BinaryOperator {
	return &ast.BinaryOperator{Op: op, LHS: lhs, RHS: rhs}
}

func TestBinaryOp_String(t *testing.T) {
	t.Run("Known", func(t *testing.T) {
		if s := ast.ADD.String(); s != "+" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
	t.Run("Unknown", func(t *testing.T) {
		if s := ast.BinaryOp(1000).String(); s != "BinaryOp<1000>" {
			t.Fatalf("unexpected string: %s", s)
		}
	})
}

func TestBinaryOp_Underlying(t *testing.T) {
	for _, tt := range []struct {
		op, want ast.BinaryOp
	}{
		{ast.ADD_ASSIGN, ast.ADD},
		{ast.SUB_ASSIGN, ast.SUB},
		{ast.SHL_ASSIGN, ast.SHL},
		{ast.OR_ASSIGN, ast.OR},
		{ast.MUL, ast.MUL},
	} {
		if got := tt.op.Underlying(); got != tt.want {
			t.Fatalf("%s: got %s, want %s", tt.op, got, tt.want)
		}
	}
}

func TestBinaryOp_Classes(t *testing.T) {
	if !ast.ADD.IsArithmetic() || ast.EQ.IsArithmetic() {
		t.Fatal("unexpected arithmetic classification")
	}
	if !ast.NE.IsCompare() || ast.LAND.IsCompare() {
		t.Fatal("unexpected compare classification")
	}
	if !ast.ASSIGN.IsAssign() || ast.ASSIGN.IsCompoundAssign() || !ast.MUL_ASSIGN.IsCompoundAssign() {
		t.Fatal("unexpected assign classification")
	}
	if !ast.ADD.IsCommutativeAndAssociative() || ast.SUB.IsCommutativeAndAssociative() {
		t.Fatal("unexpected commutativity classification")
	}
}

func TestFunction_Vars(t *testing.T) {
	i := NewVar(1, "i", ast.IntType)
	p := NewVar(2, "p", ast.NtArrayPtrTo(ast.CharType))
	q := NewVar(3, "q", ast.NtArrayPtrTo(ast.CharType))
	fn := &ast.Function{
		Name:   "f",
		Params: []*ast.VarDecl{i},
		Body: &ast.CompoundStmt{List: []ast.Stmt{
			&ast.DeclStmt{Decls: []*ast.VarDecl{p}},
			&ast.IfStmt{
				Cond: Use(i),
				Then: &ast.CompoundStmt{List: []ast.Stmt{&ast.DeclStmt{Decls: []*ast.VarDecl{q}}}},
			},
		}},
	}

	vars := fn.Vars()
	if len(vars) != 3 || vars[0] != i || vars[1] != p || vars[2] != q {
		t.Fatalf("unexpected vars: %v", vars)
	}
}

func TestType_String(t *testing.T) {
	for _, tt := range []struct {
		typ  *ast.Type
		want string
	}{
		{ast.IntType, "int"},
		{ast.UnsignedIntType, "unsigned int"},
		{ast.NtArrayPtrTo(ast.CharType), "_Nt_array_ptr<char>"},
		{ast.ArrayPtrTo(ast.IntType), "_Array_ptr<int>"},
		{ast.PointerTo(ast.CharType), "char *"},
		{ast.ArrayOf(ast.CharType, 4), "char[4]"},
		{&ast.Type{Kind: ast.Struct, Name: "S"}, "struct S"},
	} {
		if got := tt.typ.String(); got != tt.want {
			t.Fatalf("got %q, want %q", got, tt.want)
		}
	}
}

func TestType_IsInteger(t *testing.T) {
	for _, tt := range []struct {
		typ  *ast.Type
		want bool
	}{
		{&ast.Type{Kind: ast.IntKind}, true},
		{&ast.Type{Kind: ast.IntKind, Unsigned: true}, true},
		{ast.CharType, true},
		{ast.LongLongType, true},
		{ast.VoidType, false},
		{ast.NtArrayPtrTo(ast.CharType), false},
		{nil, false},
	} {
		if got := tt.typ.IsInteger(); got != tt.want {
			t.Fatalf("%s: got %v, want %v", tt.typ, got, tt.want)
		}
	}
}
