package ast

// ExprVisitor represents a visitor that can be passed to WalkExpr().
type ExprVisitor interface {
	// Executed for every visited node. Return a different expression to replace it.
	Visit(expr Expr) (Expr, ExprVisitor)
}

// WalkExpr traverses expr in depth-first order. Children are only visited
// if the visitor returned for expr is non-nil.
func WalkExpr(v ExprVisitor, expr Expr) Expr {
	if expr == nil {
		return nil
	}

	other, v := v.Visit(expr)
	if v == nil {
		return other
	}

	switch expr := expr.(type) {
	case *DeclRefExpr, *IntegerLiteral, *CharacterLiteral, *StringLiteral:
		// nop
	case *ParenExpr:
		if other := WalkExpr(v, expr.X); other != expr.X {
			expr.X = other
		}
	case *UnaryOperator:
		if other := WalkExpr(v, expr.X); other != expr.X {
			expr.X = other
		}
	case *BinaryOperator:
		if other := WalkExpr(v, expr.LHS); other != expr.LHS {
			expr.LHS = other
		}
		if other := WalkExpr(v, expr.RHS); other != expr.RHS {
			expr.RHS = other
		}
	case *ArraySubscriptExpr:
		if other := WalkExpr(v, expr.Base); other != expr.Base {
			expr.Base = other
		}
		if other := WalkExpr(v, expr.Index); other != expr.Index {
			expr.Index = other
		}
	case *MemberExpr:
		if other := WalkExpr(v, expr.Base); other != expr.Base {
			expr.Base = other
		}
	case *ImplicitCastExpr:
		if other := WalkExpr(v, expr.X); other != expr.X {
			expr.X = other
		}
	case *CStyleCastExpr:
		if other := WalkExpr(v, expr.X); other != expr.X {
			expr.X = other
		}
	case *CallExpr:
		if other := WalkExpr(v, expr.Fn); other != expr.Fn {
			expr.Fn = other
		}
		for i := range expr.Args {
			if other := WalkExpr(v, expr.Args[i]); other != expr.Args[i] {
				expr.Args[i] = other
			}
		}
	default:
		panic("unreachable")
	}

	return other
}

// Inspect calls fn for expr and each nested expression in depth-first order.
// Children are skipped when fn returns false.
func Inspect(expr Expr, fn func(Expr) bool) {
	WalkExpr(inspector(fn), expr)
}

type inspector func(Expr) bool

func (fn inspector) Visit(expr Expr) (Expr, ExprVisitor) {
	if !fn(expr) {
		return expr, nil
	}
	return expr, fn
}

// Vars returns the distinct variables referenced by the expressions in the
// order they are first encountered.
func Vars(exprs ...Expr) []*VarDecl {
	v := newVarExprVisitor()
	for _, expr := range exprs {
		WalkExpr(v, expr)
	}
	return v.vars
}

type varExprVisitor struct {
	seen map[*VarDecl]struct{}
	vars []*VarDecl
}

func newVarExprVisitor() *varExprVisitor {
	return &varExprVisitor{seen: make(map[*VarDecl]struct{})}
}

func (v *varExprVisitor) Visit(expr Expr) (Expr, ExprVisitor) {
	if ref, ok := expr.(*DeclRefExpr); ok && ref.Decl != nil {
		if _, ok := v.seen[ref.Decl]; !ok {
			v.seen[ref.Decl] = struct{}{}
			v.vars = append(v.vars, ref.Decl)
		}
	}
	return expr, v
}

// BoundsExprs returns the expressions that make up a bounds annotation.
func BoundsExprs(b BoundsExpr) []Expr {
	switch b := b.(type) {
	case *RangeBoundsExpr:
		return []Expr{b.Lower, b.Upper}
	case *CountBoundsExpr:
		return []Expr{b.Count}
	default:
		return nil
	}
}
