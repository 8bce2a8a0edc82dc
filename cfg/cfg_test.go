package cfg_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/benbjohnson/ntbounds/ast"
	"github.com/benbjohnson/ntbounds/cfg"
	"github.com/google/go-cmp/cmp"
)

var (
	i = &ast.VarDecl{ID: 1, Name: "i", Type: ast.IntType}
	p = &ast.VarDecl{ID: 2, Name: "p", Type: ast.NtArrayPtrTo(ast.CharType), IsParam: true}
)

func Use(v *ast.VarDecl) ast.Expr { return ast.EnsureRValue(ast.CreateVarUse(v)) }

func Lit(v int64) *ast.IntegerLiteral {
	return &ast.IntegerLiteral{Value: uint64(v) & 0xffffffff, Type: ast.IntType}
}

func Assign(v *ast.VarDecl, x ast.Expr) ast.Expr {
	return &ast.BinaryOperator{Op: ast.ASSIGN, LHS: ast.CreateVarUse(v), RHS: x}
}

func Deref(x ast.Expr) ast.Expr { return &ast.UnaryOperator{Op: ast.DEREF, X: x} }

func Body(stmts ...ast.Stmt) *ast.CompoundStmt { return &ast.CompoundStmt{List: stmts} }

// MustBuild returns the graph for a function with the given body.
func MustBuild(tb testing.TB, body *ast.CompoundStmt) *cfg.CFG {
	tb.Helper()
	g, err := cfg.Build(&ast.Function{Name: "f", Params: []*ast.VarDecl{p}, Body: body})
	if err != nil {
		tb.Fatal(err)
	}
	return g
}

func TestBuild_Straight(t *testing.T) {
	g := MustBuild(t, Body(Assign(i, Lit(1)), &ast.ReturnStmt{Result: Use(i)}))
	if len(g.Blocks) != 3 {
		t.Fatalf("unexpected block count: %d", len(g.Blocks))
	} else if g.Exit.ID != 0 || g.Entry.ID != 2 {
		t.Fatalf("unexpected ids: entry=%d exit=%d", g.Entry.ID, g.Exit.ID)
	} else if len(g.Entry.Stmts) != 0 {
		t.Fatal("expected empty entry block")
	}

	body := g.Entry.Succs[0]
	if len(body.Stmts) != 2 {
		t.Fatalf("unexpected stmts: %d", len(body.Stmts))
	} else if len(body.Succs) != 1 || body.Succs[0] != g.Exit {
		t.Fatal("expected body to flow to exit")
	}
}

func TestBuild_If(t *testing.T) {
	cond := Deref(Use(p))
	g := MustBuild(t, Body(
		Assign(i, Lit(0)),
		&ast.IfStmt{Cond: cond, Then: Body(Assign(i, Lit(1)))},
		&ast.ReturnStmt{Result: Use(i)},
	))

	var buf bytes.Buffer
	if err := g.Dump(&buf); err != nil {
		t.Fatal(err)
	}
	want := "" +
		"B4 (ENTRY)\n" +
		"  Succs: B3\n" +
		"B3\n" +
		"  1: i = 0\n" +
		"  2: *p\n" +
		"  T: if (*p)\n" +
		"  Preds: B4\n" +
		"  Succs: B2 B1\n" +
		"B2\n" +
		"  1: i = 1\n" +
		"  Preds: B3\n" +
		"  Succs: B1\n" +
		"B1\n" +
		"  1: return i;\n" +
		"  Preds: B3 B2\n" +
		"  Succs: B0\n" +
		"B0 (EXIT)\n" +
		"  Preds: B1\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatal(diff)
	}

	if got := g.Blocks[3].TerminatorCondition(); got != cond {
		t.Fatalf("unexpected condition: %s", ast.String(got))
	} else if g.Blocks[3].LastStmt() != cond {
		t.Fatal("expected condition to be the last statement")
	}
}

func TestBuild_LogicalAnd(t *testing.T) {
	lhs := Deref(Use(p))
	rhs := Deref(&ast.BinaryOperator{Op: ast.ADD, LHS: Use(p), RHS: Lit(1)})
	and := &ast.BinaryOperator{Op: ast.LAND, LHS: lhs, RHS: rhs}
	ifStmt := &ast.IfStmt{Cond: and, Then: Body(Assign(i, Lit(1)))}
	g := MustBuild(t, Body(ifStmt))

	first := g.Entry.Succs[0]
	if first.Terminator != and {
		t.Fatalf("unexpected terminator: %T", first.Terminator)
	} else if first.TerminatorCondition() != lhs {
		t.Fatal("expected left operand as condition")
	} else if len(first.Succs) != 2 {
		t.Fatalf("unexpected succs: %d", len(first.Succs))
	}

	second, after := first.Succs[0], first.Succs[1]
	if second.LastStmt() != rhs {
		t.Fatal("expected right operand in second block")
	} else if second.Terminator != ifStmt {
		t.Fatalf("unexpected terminator: %T", second.Terminator)
	} else if second.Succs[1] != after {
		t.Fatal("expected both false edges to share a target")
	}
}

func TestBuild_LogicalOr(t *testing.T) {
	lhs, rhs := Deref(Use(p)), Use(i)
	or := &ast.BinaryOperator{Op: ast.LOR, LHS: lhs, RHS: rhs}
	g := MustBuild(t, Body(&ast.IfStmt{Cond: or, Then: Body(Assign(i, Lit(1)))}))

	first := g.Entry.Succs[0]
	then, second := first.Succs[0], first.Succs[1]
	if second.LastStmt() != rhs {
		t.Fatal("expected right operand on false edge")
	} else if second.Succs[0] != then {
		t.Fatal("expected both true edges to share a target")
	}
}

func TestBuild_While(t *testing.T) {
	cond := Deref(Use(p))
	g := MustBuild(t, Body(&ast.WhileStmt{Cond: cond, Body: Body(Assign(i, Lit(1)))}))

	head := g.Entry.Succs[0].Succs[0]
	if head.TerminatorCondition() != cond {
		t.Fatalf("unexpected head: %s", head)
	}
	body := head.Succs[0]
	if len(body.Succs) != 1 || body.Succs[0] != head {
		t.Fatal("expected back edge to loop head")
	}

	rpo := g.ReversePostOrder()
	if rpo[0] != g.Entry {
		t.Fatal("expected entry first")
	} else if len(rpo) != len(g.Blocks) {
		t.Fatalf("unexpected rpo length: %d", len(rpo))
	}
	for idx, b := range rpo {
		if b == head {
			for _, other := range rpo[:idx] {
				if other == body {
					t.Fatal("expected loop head before body")
				}
			}
		}
	}
}

func TestBuild_For(t *testing.T) {
	cond := Deref(Use(p))
	inc := &ast.UnaryOperator{Op: ast.POSTINC, X: ast.CreateVarUse(i)}
	g := MustBuild(t, Body(&ast.ForStmt{
		Init: Assign(i, Lit(0)),
		Cond: cond,
		Inc:  inc,
		Body: Body(&ast.ContinueStmt{}),
	}))

	init := g.Entry.Succs[0]
	if len(init.Stmts) != 1 {
		t.Fatalf("unexpected init stmts: %d", len(init.Stmts))
	}
	head := init.Succs[0]
	if head.TerminatorCondition() != cond {
		t.Fatal("expected condition in loop head")
	}

	// continue jumps to the increment which loops back to the head.
	body := head.Succs[0]
	incBlock := body.Succs[0]
	if incBlock.LastStmt() != inc {
		t.Fatal("expected continue to target increment")
	} else if incBlock.Succs[0] != head {
		t.Fatal("expected increment to loop back")
	}
}

func TestBuild_Do(t *testing.T) {
	cond := Deref(Use(p))
	g := MustBuild(t, Body(&ast.DoStmt{Cond: cond, Body: Body(Assign(i, Lit(1)))}))

	body := g.Entry.Succs[0].Succs[0]
	condBlock := body.Succs[0]
	if condBlock.TerminatorCondition() != cond {
		t.Fatal("expected condition after body")
	} else if condBlock.Succs[0] != body {
		t.Fatal("expected true edge back to body")
	}
}

func TestBuild_Switch(t *testing.T) {
	t.Run("NoDefault", func(t *testing.T) {
		case1 := &ast.CaseStmt{LHS: Lit(1), Sub: Assign(i, Lit(1))}
		case2 := &ast.CaseStmt{LHS: Lit(2), Sub: &ast.BreakStmt{}}
		sw := &ast.SwitchStmt{Cond: Deref(Use(p)), Body: Body(case1, case2)}
		g := MustBuild(t, Body(sw, &ast.ReturnStmt{}))

		block := g.Entry.Succs[0]
		if block.Terminator != sw {
			t.Fatalf("unexpected terminator: %T", block.Terminator)
		} else if len(block.Succs) != 3 {
			t.Fatalf("unexpected succs: %d", len(block.Succs))
		}

		b1, b2, after := block.Succs[0], block.Succs[1], block.Succs[2]
		if b1.Label != case1 || b2.Label != case2 {
			t.Fatal("unexpected labels")
		} else if len(b2.Preds) != 2 || b2.Preds[0] != b1 {
			t.Fatal("expected fallthrough from first case")
		} else if b2.Succs[0] != after {
			t.Fatal("expected break to exit switch")
		} else if after.Label != nil {
			t.Fatal("unexpected label on exit block")
		}
	})

	t.Run("Default", func(t *testing.T) {
		def := &ast.DefaultStmt{Sub: &ast.BreakStmt{}}
		sw := &ast.SwitchStmt{Cond: Use(i), Body: Body(&ast.CaseStmt{LHS: Lit(0), Sub: &ast.BreakStmt{}}, def)}
		g := MustBuild(t, Body(sw))

		block := g.Entry.Succs[0]
		if len(block.Succs) != 2 {
			t.Fatalf("unexpected succs: %d", len(block.Succs))
		} else if block.Succs[1].Label != def {
			t.Fatal("expected default block")
		}
	})

	t.Run("ErrNotInSwitch", func(t *testing.T) {
		_, err := cfg.Build(&ast.Function{Name: "f", Body: Body(&ast.CaseStmt{LHS: Lit(0)})})
		if !errors.Is(err, cfg.ErrNotInSwitch) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestBuild_ErrNotInLoop(t *testing.T) {
	for _, s := range []ast.Stmt{&ast.BreakStmt{}, &ast.ContinueStmt{}} {
		if _, err := cfg.Build(&ast.Function{Name: "f", Body: Body(s)}); !errors.Is(err, cfg.ErrNotInLoop) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestCFG_Reachable(t *testing.T) {
	g := MustBuild(t, Body(&ast.ReturnStmt{}, Assign(i, Lit(1))))

	reachable := g.Reachable()
	var dead *cfg.Block
	for _, b := range g.Blocks {
		if len(b.Preds) == 0 && b != g.Entry {
			dead = b
		}
	}
	if dead == nil {
		t.Fatal("expected unreachable block")
	} else if reachable.Test(uint(dead.ID)) {
		t.Fatal("expected block to be unreachable")
	} else if !reachable.Test(uint(g.Exit.ID)) {
		t.Fatal("expected exit to be reachable")
	} else if got, want := reachable.Count(), uint(len(g.Blocks)-1); got != want {
		t.Fatalf("reachable=%d, want %d", got, want)
	}
}
