package ast

// IgnoreParens strips any enclosing parentheses from e.
func IgnoreParens(e Expr) Expr {
	for {
		paren, ok := e.(*ParenExpr)
		if !ok {
			return e
		}
		e = paren.X
	}
}

// IgnoreImpCasts strips enclosing implicit casts from e.
func IgnoreImpCasts(e Expr) Expr {
	for {
		cast, ok := e.(*ImplicitCastExpr)
		if !ok {
			return e
		}
		e = cast.X
	}
}

// IgnoreCasts strips enclosing parentheses and casts of any kind from e.
func IgnoreCasts(e Expr) Expr {
	for {
		switch x := e.(type) {
		case *ParenExpr:
			e = x.X
		case *ImplicitCastExpr:
			e = x.X
		case *CStyleCastExpr:
			e = x.X
		default:
			return e
		}
	}
}

// IgnoreValuePreservingOperations strips enclosing parentheses and casts that
// never change the value of their operand.
func IgnoreValuePreservingOperations(e Expr) Expr {
	for {
		switch x := e.(type) {
		case *ParenExpr:
			e = x.X
		case *ImplicitCastExpr:
			if !x.Kind.IsValuePreserving() {
				return e
			}
			e = x.X
		case *CStyleCastExpr:
			if !x.Kind.IsValuePreserving() {
				return e
			}
			e = x.X
		default:
			return e
		}
	}
}

// ReadsMemoryViaPointer returns true if evaluating e reads memory through a
// pointer. Dot member accesses only count if includeAllMembers is set or
// their base reads memory via a pointer.
func ReadsMemoryViaPointer(e Expr, includeAllMembers bool) bool {
	if e == nil {
		return false
	}

	switch e := IgnoreParens(e).(type) {
	case *UnaryOperator:
		return e.Op == DEREF
	case *ArraySubscriptExpr:
		return true
	case *MemberExpr:
		if includeAllMembers || e.IsArrow {
			return true
		}
		return ReadsMemoryViaPointer(e.Base, includeAllMembers)
	default:
		return false
	}
}

// IsLValue returns true if e designates an object.
func IsLValue(e Expr) bool {
	switch e := IgnoreParens(e).(type) {
	case *DeclRefExpr, *ArraySubscriptExpr, *StringLiteral:
		return true
	case *UnaryOperator:
		return e.Op == DEREF
	case *MemberExpr:
		return e.IsArrow || IsLValue(e.Base)
	default:
		return false
	}
}

// GetLValueVariable returns the variable that e denotes as an lvalue, after
// stripping parens and value-preserving casts. Returns nil if e does not
// denote a variable. *&x denotes x.
func GetLValueVariable(e Expr) *DeclRefExpr {
	switch e := IgnoreValuePreservingOperations(e).(type) {
	case *DeclRefExpr:
		return e
	case *UnaryOperator:
		if e.Op != DEREF {
			return nil
		}
		if addr, ok := IgnoreValuePreservingOperations(e.X).(*UnaryOperator); ok && addr.Op == ADDROF {
			return GetLValueVariable(addr.X)
		}
		return nil
	default:
		return nil
	}
}

// GetRValueVariable returns the variable whose value e reads, if e is an
// lvalue-to-rvalue or array decay cast of a variable. Returns nil otherwise.
func GetRValueVariable(e Expr) *DeclRefExpr {
	if e == nil {
		return nil
	}
	cast, ok := IgnoreValuePreservingOperations(e).(*ImplicitCastExpr)
	if !ok {
		return nil
	}
	switch cast.Kind {
	case LValueToRValue, ArrayToPointerDecay:
		return GetLValueVariable(cast.X)
	default:
		return nil
	}
}

// IsRValueCastOfVariable returns true if e reads the value of v.
func IsRValueCastOfVariable(e Expr, v *VarDecl) bool {
	ref := GetRValueVariable(e)
	return ref != nil && ref.Decl == v
}

// VariableOccurrenceCount returns the number of uses of v within e.
func VariableOccurrenceCount(v *VarDecl, e Expr) int {
	var n int
	Inspect(e, func(e Expr) bool {
		if ref, ok := e.(*DeclRefExpr); ok && ref.Decl == v {
			n++
		}
		return true
	})
	return n
}

// LValueOccurrenceCount returns the number of occurrences within e of an
// lvalue expression equivalent to lv.
func LValueOccurrenceCount(lv, e Expr) int {
	if ref := GetLValueVariable(lv); ref != nil {
		return VariableOccurrenceCount(ref.Decl, e)
	}

	target := IgnoreParens(lv)
	var n int
	Inspect(e, func(e Expr) bool {
		if _, ok := e.(*ParenExpr); ok {
			return true
		}
		if IsLValue(e) && Compare(IgnoreParens(e), target) == Equal {
			n++
			return false
		}
		return true
	})
	return n
}

// ModifiedVars returns the variables that evaluating e may write: targets of
// assignments, operands of increment and decrement, and variables whose
// address is taken.
func ModifiedVars(e Expr) []*VarDecl {
	var vars []*VarDecl
	seen := make(map[*VarDecl]struct{})
	add := func(lv Expr) {
		if ref := GetLValueVariable(lv); ref != nil {
			if _, ok := seen[ref.Decl]; !ok {
				seen[ref.Decl] = struct{}{}
				vars = append(vars, ref.Decl)
			}
		}
	}

	Inspect(e, func(e Expr) bool {
		switch e := e.(type) {
		case *BinaryOperator:
			if e.Op.IsAssign() {
				add(e.LHS)
			}
		case *UnaryOperator:
			if e.Op.IsIncDec() || e.Op == ADDROF {
				add(e.X)
			}
		}
		return true
	})
	return vars
}

// CreateVarUse returns a reference to v.
func CreateVarUse(v *VarDecl) *DeclRefExpr {
	return &DeclRefExpr{Decl: v}
}

// CreateBinaryOperator returns lhs op rhs with both operands converted to
// rvalues. Compound assignment operators are replaced with their underlying
// arithmetic operator.
func CreateBinaryOperator(lhs, rhs Expr, op BinaryOp) *BinaryOperator {
	return &BinaryOperator{
		Op:  op.Underlying(),
		LHS: EnsureRValue(lhs),
		RHS: EnsureRValue(rhs),
	}
}

// CreateUnaryOperator returns op applied to e.
func CreateUnaryOperator(e Expr, op UnaryOp) *UnaryOperator {
	switch op {
	case DEREF, ADDROF:
	default:
		e = EnsureRValue(e)
	}
	return &UnaryOperator{Op: op, X: e}
}

// CreateImplicitCast returns an implicit cast of e to t.
func CreateImplicitCast(e Expr, kind CastKind, t *Type) *ImplicitCastExpr {
	return &ImplicitCastExpr{Kind: kind, X: e, Type: t}
}

// CreateMemberExpr returns base.field or base->field.
func CreateMemberExpr(base Expr, field *FieldDecl, isArrow bool) *MemberExpr {
	if isArrow {
		base = EnsureRValue(base)
	}
	return &MemberExpr{Base: base, Field: field, IsArrow: isArrow}
}

// CreateUnsignedInt returns an unsigned int literal for v.
func CreateUnsignedInt(ctx *Context, v uint64) *IntegerLiteral {
	return &IntegerLiteral{Value: v & bitmask(ctx.Width(UnsignedIntType)), Type: UnsignedIntType}
}

// CreateIntegerLiteral returns a literal of type t for v. Returns nil if v
// does not fit in t.
func CreateIntegerLiteral(ctx *Context, v Int, t *Type) *IntegerLiteral {
	bits, ok := Fits(ctx, t, v)
	if !ok {
		return nil
	}
	return &IntegerLiteral{Value: bits.Value, Type: t}
}

// Fits returns the bit pattern of v in integer type t, and whether the value
// of v is representable in t.
func Fits(ctx *Context, t *Type, v Int) (Int, bool) {
	if !t.IsInteger() {
		return Int{}, false
	}

	width := ctx.Width(t)
	r := Int{Width: width, Unsigned: t.Unsigned}
	lo, hi := r.bounds()
	if b := v.Big(); b.Cmp(lo) < 0 || b.Cmp(hi) > 0 {
		return Int{}, false
	}
	return v.Convert(width, t.Unsigned), true
}

// EnsureRValue wraps e in an lvalue-to-rvalue conversion if e is an lvalue.
// Array-typed variables decay to pointers instead.
func EnsureRValue(e Expr) Expr {
	if !IsLValue(e) {
		return e
	}
	if ref, ok := IgnoreParens(e).(*DeclRefExpr); ok && ref.Decl != nil && ref.Decl.Type != nil && ref.Decl.Type.Kind == Array {
		return CreateImplicitCast(e, ArrayToPointerDecay, PointerTo(ref.Decl.Type.Elem))
	}
	if _, ok := IgnoreParens(e).(*StringLiteral); ok {
		return CreateImplicitCast(e, ArrayToPointerDecay, PointerTo(CharType))
	}
	return CreateImplicitCast(e, LValueToRValue, typeOf(e))
}

// typeOf returns the type of simple expressions, or nil if unknown.
func typeOf(e Expr) *Type {
	switch e := IgnoreParens(e).(type) {
	case *DeclRefExpr:
		if e.Decl != nil {
			return e.Decl.Type
		}
	case *MemberExpr:
		if e.Field != nil {
			return e.Field.Type
		}
	case *IntegerLiteral:
		return literalType(e)
	case *ImplicitCastExpr:
		return e.Type
	case *CStyleCastExpr:
		return e.Type
	}
	return nil
}
