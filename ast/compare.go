package ast

// Result represents the outcome of a three-way comparison.
type Result int

// Comparison results.
const (
	LessThan    Result = -1
	Equal       Result = 0
	GreaterThan Result = 1
)

// String returns the name of the result.
func (r Result) String() string {
	switch r {
	case LessThan:
		return "LessThan"
	case Equal:
		return "Equal"
	case GreaterThan:
		return "GreaterThan"
	default:
		return "Result<?>"
	}
}

// Compare returns a lexicographic ordering of two expressions based purely on
// their syntax. Expressions are ordered first by kind, then by operator, then
// by their children from left to right.
func Compare(a, b Expr) Result {
	if a == nil && b != nil {
		return LessThan
	} else if a != nil && b == nil {
		return GreaterThan
	} else if a == nil && b == nil {
		return Equal
	}

	if ak, bk := exprKind(a), exprKind(b); ak < bk {
		return LessThan
	} else if ak > bk {
		return GreaterThan
	}

	switch a := a.(type) {
	case *DeclRefExpr:
		return CompareDecl(a.Decl, b.(*DeclRefExpr).Decl)
	case *IntegerLiteral:
		return compareIntegerLiteral(a, b.(*IntegerLiteral))
	case *CharacterLiteral:
		return compareInt64(int64(a.Value), int64(b.(*CharacterLiteral).Value))
	case *StringLiteral:
		return compareString(a.Value, b.(*StringLiteral).Value)
	case *ParenExpr:
		return Compare(a.X, b.(*ParenExpr).X)
	case *UnaryOperator:
		return compareUnaryOperator(a, b.(*UnaryOperator))
	case *BinaryOperator:
		return compareBinaryOperator(a, b.(*BinaryOperator))
	case *ArraySubscriptExpr:
		return compareArraySubscriptExpr(a, b.(*ArraySubscriptExpr))
	case *MemberExpr:
		return compareMemberExpr(a, b.(*MemberExpr))
	case *ImplicitCastExpr:
		b := b.(*ImplicitCastExpr)
		return compareCast(a.Kind, a.Type, a.X, b.Kind, b.Type, b.X)
	case *CStyleCastExpr:
		b := b.(*CStyleCastExpr)
		return compareCast(a.Kind, a.Type, a.X, b.Kind, b.Type, b.X)
	case *CallExpr:
		return compareCallExpr(a, b.(*CallExpr))
	default:
		panic("unreachable")
	}
}

// CompareDecl orders variables by name and then by ID.
func CompareDecl(a, b *VarDecl) Result {
	if a == b {
		return Equal
	} else if a == nil {
		return LessThan
	} else if b == nil {
		return GreaterThan
	}
	if cmp := compareString(a.Name, b.Name); cmp != Equal {
		return cmp
	}
	return compareInt64(int64(a.ID), int64(b.ID))
}

// CompareField orders struct members by name and then by type.
func CompareField(a, b *FieldDecl) Result {
	if a == b {
		return Equal
	} else if a == nil {
		return LessThan
	} else if b == nil {
		return GreaterThan
	}
	if cmp := compareString(a.Name, b.Name); cmp != Equal {
		return cmp
	}
	return CompareType(a.Type, b.Type)
}

// CompareType orders types by kind, signedness and element type.
func CompareType(a, b *Type) Result {
	if a == b {
		return Equal
	} else if a == nil {
		return LessThan
	} else if b == nil {
		return GreaterThan
	}

	if cmp := compareInt64(int64(a.Kind), int64(b.Kind)); cmp != Equal {
		return cmp
	}
	if a.Unsigned != b.Unsigned {
		if !a.Unsigned {
			return LessThan
		}
		return GreaterThan
	}
	if cmp := compareInt64(int64(a.Len), int64(b.Len)); cmp != Equal {
		return cmp
	}
	if cmp := compareString(a.Name, b.Name); cmp != Equal {
		return cmp
	}
	return CompareType(a.Elem, b.Elem)
}

func compareIntegerLiteral(a, b *IntegerLiteral) Result {
	if cmp := CompareType(literalType(a), literalType(b)); cmp != Equal {
		return cmp
	}
	if a.Value < b.Value {
		return LessThan
	} else if a.Value > b.Value {
		return GreaterThan
	}
	return Equal
}

// literalType returns the type of lit, defaulting to int.
func literalType(lit *IntegerLiteral) *Type {
	if lit.Type == nil {
		return IntType
	}
	return lit.Type
}

func compareUnaryOperator(a, b *UnaryOperator) Result {
	if cmp := compareInt64(int64(a.Op), int64(b.Op)); cmp != Equal {
		return cmp
	}
	return Compare(a.X, b.X)
}

func compareBinaryOperator(a, b *BinaryOperator) Result {
	if cmp := compareInt64(int64(a.Op), int64(b.Op)); cmp != Equal {
		return cmp
	}
	if cmp := Compare(a.LHS, b.LHS); cmp != Equal {
		return cmp
	}
	return Compare(a.RHS, b.RHS)
}

func compareArraySubscriptExpr(a, b *ArraySubscriptExpr) Result {
	if cmp := Compare(a.Base, b.Base); cmp != Equal {
		return cmp
	}
	return Compare(a.Index, b.Index)
}

func compareMemberExpr(a, b *MemberExpr) Result {
	if a.IsArrow != b.IsArrow {
		if !a.IsArrow {
			return LessThan
		}
		return GreaterThan
	}
	if cmp := CompareField(a.Field, b.Field); cmp != Equal {
		return cmp
	}
	return Compare(a.Base, b.Base)
}

func compareCast(ak CastKind, at *Type, ax Expr, bk CastKind, bt *Type, bx Expr) Result {
	if cmp := compareInt64(int64(ak), int64(bk)); cmp != Equal {
		return cmp
	}
	if cmp := CompareType(at, bt); cmp != Equal {
		return cmp
	}
	return Compare(ax, bx)
}

func compareCallExpr(a, b *CallExpr) Result {
	if cmp := Compare(a.Fn, b.Fn); cmp != Equal {
		return cmp
	}
	if cmp := compareInt64(int64(len(a.Args)), int64(len(b.Args))); cmp != Equal {
		return cmp
	}
	for i := range a.Args {
		if cmp := Compare(a.Args[i], b.Args[i]); cmp != Equal {
			return cmp
		}
	}
	return Equal
}

func compareInt64(a, b int64) Result {
	if a < b {
		return LessThan
	} else if a > b {
		return GreaterThan
	}
	return Equal
}

func compareString(a, b string) Result {
	if a < b {
		return LessThan
	} else if a > b {
		return GreaterThan
	}
	return Equal
}

// exprKind returns a numeric value for the type of expression.
// Only used internally for equality checks and sorting.
func exprKind(e Expr) int {
	switch e.(type) {
	case *DeclRefExpr:
		return 1
	case *IntegerLiteral:
		return 2
	case *CharacterLiteral:
		return 3
	case *StringLiteral:
		return 4
	case *ParenExpr:
		return 5
	case *UnaryOperator:
		return 6
	case *BinaryOperator:
		return 7
	case *ArraySubscriptExpr:
		return 8
	case *MemberExpr:
		return 9
	case *ImplicitCastExpr:
		return 10
	case *CStyleCastExpr:
		return 11
	case *CallExpr:
		return 12
	default:
		panic("unreachable")
	}
}
