package preorder_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/benbjohnson/ntbounds/ast"
	"github.com/benbjohnson/ntbounds/preorder"
	"github.com/google/go-cmp/cmp"
)

var (
	i = &ast.VarDecl{ID: 1, Name: "i", Type: ast.IntType}
	j = &ast.VarDecl{ID: 2, Name: "j", Type: ast.IntType}
	p = &ast.VarDecl{ID: 3, Name: "p", Type: ast.NtArrayPtrTo(ast.CharType)}

	f = &ast.FieldDecl{Name: "f", Type: ast.IntType}
	s = &ast.Type{Kind: ast.Struct, Name: "S", Fields: []*ast.FieldDecl{f}}
	a = &ast.VarDecl{ID: 4, Name: "a", Type: ast.PointerTo(s)}
)

func Use(v *ast.VarDecl) ast.Expr { return ast.EnsureRValue(ast.CreateVarUse(v)) }

func Lit(v int64) *ast.IntegerLiteral {
	return &ast.IntegerLiteral{Value: uint64(v) & 0xffffffff, Type: ast.IntType}
}

func Bin(op ast.BinaryOp, lhs, rhs ast.Expr) *ast.BinaryOperator {
	return &ast.BinaryOperator{Op: op, LHS: lhs, RHS: rhs}
}

func Neg(x ast.Expr) *ast.UnaryOperator { return &ast.UnaryOperator{Op: ast.MINUS, X: x} }

// MustCanonicalize returns the normalized tree for e or fails the test.
func MustCanonicalize(tb testing.TB, e ast.Expr) *preorder.AST {
	tb.Helper()
	a, err := preorder.Canonicalize(ast.NewContext(), e)
	if err != nil {
		tb.Fatal(err)
	}
	return a
}

func TestCanonicalize_Equal(t *testing.T) {
	for _, tt := range []struct {
		name string
		x, y ast.Expr
	}{
		{"Commutative", Bin(ast.ADD, Use(p), Use(i)), Bin(ast.ADD, Use(i), Use(p))},
		{"Associative", Bin(ast.ADD, Bin(ast.ADD, Use(p), Use(i)), Use(j)), Bin(ast.ADD, Use(p), Bin(ast.ADD, Use(j), Use(i)))},
		{"Parens", &ast.ParenExpr{X: Bin(ast.ADD, Use(p), Use(i))}, Bin(ast.ADD, Use(i), Use(p))},
		{"Zero", Use(p), Bin(ast.ADD, Use(p), Lit(0))},
		{"Multiply", Bin(ast.MUL, Use(i), Use(j)), Bin(ast.MUL, Use(j), Use(i))},
		{"NestedMultiply", Bin(ast.ADD, Use(p), Bin(ast.MUL, Use(i), Use(j))), Bin(ast.ADD, Bin(ast.MUL, Use(j), Use(i)), Use(p))},
		{"FoldConstants", Bin(ast.ADD, Use(i), Neg(&ast.ParenExpr{X: Bin(ast.ADD, Lit(1), Lit(2))})), Bin(ast.ADD, Use(i), Neg(Lit(3)))},
		{"SubtractConstant", Bin(ast.SUB, Use(i), Lit(3)), Bin(ast.ADD, Use(i), Neg(Lit(3)))},
		{"SplitConstants", Bin(ast.ADD, Bin(ast.ADD, Lit(1), Use(p)), Lit(2)), Bin(ast.ADD, Use(p), Lit(3))},
		{"FoldMultiply", Bin(ast.MUL, Bin(ast.MUL, Lit(2), Use(i)), Lit(3)), Bin(ast.MUL, Use(i), Lit(6))},
		{"Subscript", &ast.ArraySubscriptExpr{Base: Use(p), Index: Use(i)}, &ast.UnaryOperator{Op: ast.DEREF, X: Bin(ast.ADD, Use(i), Use(p))}},
		{"CharacterLiteral", Bin(ast.ADD, Use(p), &ast.CharacterLiteral{Value: 1}), Bin(ast.ADD, Use(p), Lit(1))},
	} {
		t.Run(tt.name, func(t *testing.T) {
			x, y := MustCanonicalize(t, tt.x), MustCanonicalize(t, tt.y)
			if cmp := x.Compare(y); cmp != ast.Equal {
				var buf bytes.Buffer
				x.PrettyPrint(&buf)
				buf.WriteString("---\n")
				y.PrettyPrint(&buf)
				t.Fatalf("unexpected comparison: %s\n%s", cmp, buf.String())
			}
		})
	}
}

func TestCanonicalize_NotEqual(t *testing.T) {
	for _, tt := range []struct {
		name string
		x, y ast.Expr
	}{
		{"DifferentVars", Bin(ast.ADD, Use(p), Use(i)), Bin(ast.ADD, Use(p), Use(j))},
		{"DifferentConstants", Bin(ast.ADD, Use(p), Lit(1)), Bin(ast.ADD, Use(p), Lit(2))},
		{"Subtraction", Bin(ast.SUB, Use(p), Use(i)), Bin(ast.SUB, Use(i), Use(p))},
		{"MultiplyVsAdd", Bin(ast.MUL, Use(i), Use(j)), Bin(ast.ADD, Use(i), Use(j))},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if MustCanonicalize(t, tt.x).Equal(MustCanonicalize(t, tt.y)) {
				t.Fatal("expected trees to differ")
			}
		})
	}
}

func TestCanonicalize_Member(t *testing.T) {
	arrow := ast.CreateMemberExpr(ast.CreateVarUse(a), f, true)
	deref := &ast.MemberExpr{
		Base:  &ast.ParenExpr{X: &ast.UnaryOperator{Op: ast.DEREF, X: Use(a)}},
		Field: f,
	}
	subscript := &ast.MemberExpr{
		Base:  &ast.ArraySubscriptExpr{Base: Use(a), Index: Lit(0)},
		Field: f,
	}

	x := MustCanonicalize(t, arrow)
	if y := MustCanonicalize(t, deref); !x.Equal(y) {
		t.Fatal("expected a->f to equal (*a).f")
	}
	if y := MustCanonicalize(t, subscript); !x.Equal(y) {
		t.Fatal("expected a->f to equal a[0].f")
	}

	t.Run("Offset", func(t *testing.T) {
		other := &ast.MemberExpr{
			Base:  &ast.ArraySubscriptExpr{Base: Use(a), Index: Lit(1)},
			Field: f,
		}
		if x.Equal(MustCanonicalize(t, other)) {
			t.Fatal("expected a->f to differ from a[1].f")
		}
	})
}

func TestCanonicalize_Structure(t *testing.T) {
	a := MustCanonicalize(t, Bin(ast.ADD, Lit(2), Bin(ast.ADD, Use(p), Bin(ast.MUL, Use(i), Use(j)))))

	var buf bytes.Buffer
	if err := a.PrettyPrint(&buf); err != nil {
		t.Fatal(err)
	}
	want := "" +
		"BinaryOperator +\n" +
		"  BinaryOperator *\n" +
		"    ImplicitCast LValueToRValue\n" +
		"      Leaf i\n" +
		"    ImplicitCast LValueToRValue\n" +
		"      Leaf j\n" +
		"  ImplicitCast LValueToRValue\n" +
		"    Leaf p\n" +
		"  Leaf 2\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatal(diff)
	}
}

func TestCanonicalize_SubtractionRewrite(t *testing.T) {
	t.Run("Rewritten", func(t *testing.T) {
		a := preorder.New(ast.NewContext(), Bin(ast.SUB, Use(p), Lit(1)))
		root := a.Root().(*preorder.BinaryOperatorNode)
		if child, ok := root.Children[0].(*preorder.BinaryOperatorNode); !ok || child.Op != ast.ADD {
			t.Fatalf("unexpected child: %#v", root.Children[0])
		}
	})

	// Negating INT_MIN overflows so the subtraction is kept.
	t.Run("NegationOverflows", func(t *testing.T) {
		min := Bin(ast.SUB, Neg(Lit(2147483647)), Lit(1))
		a := preorder.New(ast.NewContext(), Bin(ast.SUB, Use(i), &ast.ParenExpr{X: min}))
		root := a.Root().(*preorder.BinaryOperatorNode)
		if child, ok := root.Children[0].(*preorder.BinaryOperatorNode); !ok || child.Op != ast.SUB {
			t.Fatalf("unexpected child: %#v", root.Children[0])
		}

		a.Normalize()
		if err := a.Err(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("Variable", func(t *testing.T) {
		a := preorder.New(ast.NewContext(), Bin(ast.SUB, Use(p), Use(i)))
		root := a.Root().(*preorder.BinaryOperatorNode)
		if child, ok := root.Children[0].(*preorder.BinaryOperatorNode); !ok || child.Op != ast.SUB {
			t.Fatalf("unexpected child: %#v", root.Children[0])
		}
	})
}

func TestCanonicalize_Overflow(t *testing.T) {
	t.Run("Add", func(t *testing.T) {
		e := Bin(ast.ADD, Bin(ast.ADD, Use(p), Lit(2147483647)), Lit(1))
		if _, err := preorder.Canonicalize(ast.NewContext(), e); !errors.Is(err, preorder.ErrOverflow) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	t.Run("Multiply", func(t *testing.T) {
		e := Bin(ast.MUL, Bin(ast.MUL, Use(i), Lit(65536)), Lit(65536))
		if _, err := preorder.Canonicalize(ast.NewContext(), e); !errors.Is(err, preorder.ErrOverflow) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	t.Run("NarrowInt", func(t *testing.T) {
		ctx := &ast.Context{IntWidth: ast.Width16, LongWidth: ast.Width32, PointerWidth: ast.Width32}
		e := Bin(ast.ADD, Bin(ast.ADD, Use(p), Lit(30000)), Lit(30000))
		if _, err := preorder.Canonicalize(ctx, e); !errors.Is(err, preorder.ErrOverflow) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestCanonicalize_Malformed(t *testing.T) {
	a := preorder.New(ast.NewContext(), nil)
	a.Normalize()
	if err := a.Err(); !errors.Is(err, preorder.ErrMalformed) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetDerefOffset(t *testing.T) {
	for _, tt := range []struct {
		name   string
		upper  ast.Expr
		deref  ast.Expr
		offset int64
		ok     bool
	}{
		{"Same", Bin(ast.ADD, Use(p), Use(i)), Bin(ast.ADD, Use(i), Use(p)), 0, true},
		{"PlusOne", Bin(ast.ADD, Use(p), Use(i)), Bin(ast.ADD, Bin(ast.ADD, Use(p), Use(i)), Lit(1)), 1, true},
		{"Reordered", Bin(ast.ADD, Use(p), Use(i)), Bin(ast.ADD, Bin(ast.ADD, Lit(1), Use(i)), Use(p)), 1, true},
		{"Pointer", Use(p), Bin(ast.ADD, Use(p), Lit(3)), 3, true},
		{"Behind", Bin(ast.ADD, Use(p), Lit(5)), Bin(ast.ADD, Use(p), Lit(2)), -3, true},
		{"Subtract", Bin(ast.ADD, Use(p), Use(i)), Bin(ast.SUB, Bin(ast.ADD, Use(p), Use(i)), Lit(1)), -1, true},
		{"DifferentVar", Bin(ast.ADD, Use(p), Use(i)), Bin(ast.ADD, Use(p), Use(j)), 0, false},
		{"DifferentShape", Bin(ast.ADD, Use(p), Bin(ast.MUL, Use(i), Use(j))), Bin(ast.ADD, Bin(ast.ADD, Use(p), Use(i)), Use(j)), 0, false},
		{"Variable", Use(p), Bin(ast.ADD, Use(p), Use(i)), 0, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			offset, ok := preorder.GetDerefOffset(MustCanonicalize(t, tt.upper), MustCanonicalize(t, tt.deref))
			if ok != tt.ok {
				t.Fatalf("ok=%v, want %v", ok, tt.ok)
			} else if ok && offset != tt.offset {
				t.Fatalf("offset=%d, want %d", offset, tt.offset)
			}
		})
	}

	t.Run("Error", func(t *testing.T) {
		bad := preorder.New(ast.NewContext(), nil)
		if _, ok := preorder.GetDerefOffset(MustCanonicalize(t, Use(p)), bad); ok {
			t.Fatal("expected no offset")
		}
	})
}

func TestCompare(t *testing.T) {
	bin := &preorder.BinaryOperatorNode{Op: ast.ADD, Children: []preorder.Node{&preorder.LeafExprNode{Expr: Lit(1)}}}
	unary := &preorder.UnaryOperatorNode{Op: ast.DEREF, Child: bin}
	member := &preorder.MemberNode{Field: f, IsArrow: true, Base: bin}
	cast := &preorder.ImplicitCastNode{Kind: ast.LValueToRValue, Child: bin}
	leaf := &preorder.LeafExprNode{Expr: Lit(1)}

	nodes := []preorder.Node{bin, unary, member, cast, leaf}
	for x := range nodes {
		for y := range nodes {
			want := ast.Equal
			if x < y {
				want = ast.LessThan
			} else if x > y {
				want = ast.GreaterThan
			}
			if got := preorder.Compare(nodes[x], nodes[y]); got != want {
				t.Fatalf("Compare(%T, %T)=%s, want %s", nodes[x], nodes[y], got, want)
			}
		}
	}

	t.Run("ChildCount", func(t *testing.T) {
		other := &preorder.BinaryOperatorNode{Op: ast.ADD, Children: []preorder.Node{leaf, leaf}}
		if got := preorder.Compare(bin, other); got != ast.LessThan {
			t.Fatalf("unexpected result: %s", got)
		}
	})
	t.Run("Arrow", func(t *testing.T) {
		dot := &preorder.MemberNode{Field: f, IsArrow: false, Base: bin}
		if got := preorder.Compare(dot, member); got != ast.LessThan {
			t.Fatalf("unexpected result: %s", got)
		}
	})
}

func TestAST_PrettyPrint(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		var buf bytes.Buffer
		preorder.New(ast.NewContext(), nil).PrettyPrint(&buf)
		if got, want := buf.String(), "<error: preorder: malformed tree>\n"; got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	})
	t.Run("Deref", func(t *testing.T) {
		a := MustCanonicalize(t, &ast.ArraySubscriptExpr{Base: Use(p), Index: Lit(1)})

		var buf bytes.Buffer
		a.PrettyPrint(&buf)
		want := "" +
			"BinaryOperator +\n" +
			"  UnaryOperator *\n" +
			"    BinaryOperator +\n" +
			"      ImplicitCast LValueToRValue\n" +
			"        Leaf p\n" +
			"      Leaf 1\n" +
			"  Leaf 0\n"
		if diff := cmp.Diff(want, buf.String()); diff != "" {
			t.Fatal(diff)
		}
	})
}
