package ast_test

import (
	"testing"

	"github.com/benbjohnson/ntbounds/ast"
)

func TestCompare(t *testing.T) {
	p := NewVar(1, "p", ast.NtArrayPtrTo(ast.CharType))
	q := NewVar(2, "q", ast.NtArrayPtrTo(ast.CharType))
	i := NewVar(3, "i", ast.IntType)

	t.Run("Nil", func(t *testing.T) {
		if r := ast.Compare(nil, nil); r != ast.Equal {
			t.Fatalf("unexpected result: %s", r)
		} else if r := ast.Compare(nil, Use(p)); r != ast.LessThan {
			t.Fatalf("unexpected result: %s", r)
		} else if r := ast.Compare(Use(p), nil); r != ast.GreaterThan {
			t.Fatalf("unexpected result: %s", r)
		}
	})

	t.Run("SameStructure", func(t *testing.T) {
		a := Bin(ast.ADD, Use(p), Use(i))
		b := Bin(ast.ADD, Use(p), Use(i))
		if r := ast.Compare(a, b); r != ast.Equal {
			t.Fatalf("unexpected result: %s", r)
		}
	})

	t.Run("OperandOrderMatters", func(t *testing.T) {
		a := Bin(ast.ADD, Use(p), Use(i))
		b := Bin(ast.ADD, Use(i), Use(p))
		if r := ast.Compare(a, b); r == ast.Equal {
			t.Fatal("expected syntactic inequality")
		} else if r2 := ast.Compare(b, a); r2 != -r {
			t.Fatalf("comparison not antisymmetric: %s, %s", r, r2)
		}
	})

	t.Run("DeclName", func(t *testing.T) {
		if r := ast.Compare(ast.CreateVarUse(p), ast.CreateVarUse(q)); r != ast.LessThan {
			t.Fatalf("unexpected result: %s", r)
		}
	})

	t.Run("Literal", func(t *testing.T) {
		if r := ast.Compare(Lit(1), Lit(2)); r != ast.LessThan {
			t.Fatalf("unexpected result: %s", r)
		} else if r := ast.Compare(Lit(2), &ast.IntegerLiteral{Value: 2}); r != ast.Equal {
			t.Fatalf("untyped literal should default to int: %s", r)
		}
	})

	t.Run("KindRank", func(t *testing.T) {
		if r := ast.Compare(ast.CreateVarUse(p), Lit(0)); r != ast.LessThan {
			t.Fatalf("unexpected result: %s", r)
		}
	})

	t.Run("Parens", func(t *testing.T) {
		a := &ast.ParenExpr{X: Use(p)}
		if r := ast.Compare(a, Use(p)); r == ast.Equal {
			t.Fatal("parens are syntactically significant")
		}
	})

	t.Run("Member", func(t *testing.T) {
		f := &ast.FieldDecl{Name: "f", Type: ast.IntType}
		g := &ast.FieldDecl{Name: "g", Type: ast.IntType}
		a := ast.CreateMemberExpr(ast.CreateVarUse(p), f, true)
		b := ast.CreateMemberExpr(ast.CreateVarUse(p), g, true)
		c := ast.CreateMemberExpr(ast.CreateVarUse(p), f, false)
		if r := ast.Compare(a, b); r != ast.LessThan {
			t.Fatalf("unexpected result: %s", r)
		} else if r := ast.Compare(c, a); r != ast.LessThan {
			t.Fatalf("unexpected result: %s", r)
		}
	})
}
