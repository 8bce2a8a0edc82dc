package ast

// Context holds target information used when evaluating and creating expressions.
type Context struct {
	IntWidth     uint
	LongWidth    uint
	PointerWidth uint
}

// NewContext returns a context for a typical 64-bit target.
func NewContext() *Context {
	return &Context{
		IntWidth:     Width32,
		LongWidth:    Width64,
		PointerWidth: Width64,
	}
}

// Width returns the width of t in bits. Returns zero for void and struct types.
func (c *Context) Width(t *Type) uint {
	if t == nil {
		return c.IntWidth
	}
	switch t.Kind {
	case Char:
		return Width8
	case Short:
		return Width16
	case IntKind:
		return c.IntWidth
	case Long:
		return c.LongWidth
	case LongLong:
		return Width64
	case Pointer, ArrayPtr, NtArrayPtr, Array:
		return c.PointerWidth
	default:
		return 0
	}
}

// NewInt returns a signed value at the target int width.
func (c *Context) NewInt(v int64) Int { return NewSignedInt(v, c.IntWidth) }

// LiteralValue returns the value of an integer literal.
func (c *Context) LiteralValue(lit *IntegerLiteral) Int {
	t := lit.Type
	if t == nil {
		t = IntType
	}
	return Int{Value: lit.Value & bitmask(c.Width(t)), Width: c.Width(t), Unsigned: t.Unsigned}
}

// IsIntegerConstantExpr returns true if e evaluates to an integer constant.
func (c *Context) IsIntegerConstantExpr(e Expr) bool {
	_, ok := c.EvaluateInt(e)
	return ok
}

// EvaluateInt evaluates e as an integer constant expression. Returns false if
// e is not constant. Arithmetic wraps on overflow.
func (c *Context) EvaluateInt(e Expr) (Int, bool) {
	v, _, ok := c.EvaluateIntOverflow(e)
	return v, ok
}

// EvaluateIntOverflow evaluates e as an integer constant expression and also
// reports whether any signed operation overflowed along the way.
func (c *Context) EvaluateIntOverflow(e Expr) (v Int, overflow, ok bool) {
	ev := &evaluator{ctx: c}
	v, ok = ev.eval(e)
	return v, ev.overflow, ok
}

type evaluator struct {
	ctx      *Context
	overflow bool
}

func (ev *evaluator) eval(e Expr) (Int, bool) {
	switch e := e.(type) {
	case *IntegerLiteral:
		return ev.ctx.LiteralValue(e), true
	case *CharacterLiteral:
		return NewSignedInt(int64(e.Value), ev.ctx.IntWidth), true
	case *ParenExpr:
		return ev.eval(e.X)
	case *ImplicitCastExpr:
		return ev.evalCast(e.Kind, e.X, e.Type)
	case *CStyleCastExpr:
		return ev.evalCast(e.Kind, e.X, e.Type)
	case *UnaryOperator:
		return ev.evalUnary(e)
	case *BinaryOperator:
		return ev.evalBinary(e)
	default:
		return Int{}, false
	}
}

func (ev *evaluator) evalCast(kind CastKind, x Expr, t *Type) (Int, bool) {
	v, ok := ev.eval(x)
	if !ok {
		return Int{}, false
	}
	switch kind {
	case NoOp, BitCast, LValueBitCast, IntegralCast:
		if !t.IsInteger() {
			return v, true
		}
		return v.Convert(ev.ctx.Width(t), t.Unsigned), true
	case IntegralToBoolean:
		return ev.bool(!v.IsZero()), true
	default:
		return Int{}, false
	}
}

func (ev *evaluator) evalUnary(e *UnaryOperator) (Int, bool) {
	v, ok := ev.eval(e.X)
	if !ok {
		return Int{}, false
	}
	v = ev.promote(v)

	switch e.Op {
	case PLUS:
		return v, true
	case MINUS:
		if v.Unsigned {
			return v.Neg(), true
		}
		r, overflow := v.NegOv()
		ev.overflow = ev.overflow || overflow
		return r, true
	case NOT:
		return v.Not(), true
	case LNOT:
		return ev.bool(v.IsZero()), true
	default:
		return Int{}, false
	}
}

func (ev *evaluator) evalBinary(e *BinaryOperator) (Int, bool) {
	if e.Op.IsAssign() || e.Op == COMMA {
		return Int{}, false
	}

	x, ok := ev.eval(e.LHS)
	if !ok {
		return Int{}, false
	}
	y, ok := ev.eval(e.RHS)
	if !ok {
		return Int{}, false
	}

	// Shifts take the type of the promoted left operand.
	if e.Op == SHL || e.Op == SHR {
		x = ev.promote(x)
		if y.IsNegative() {
			return Int{}, false
		}
		if e.Op == SHL {
			return x.Shl(uint(y.Uint64())), true
		}
		return x.Shr(uint(y.Uint64())), true
	}

	x, y = ev.convert(x, y)

	var overflow bool
	var r Int
	switch e.Op {
	case ADD:
		r, overflow = x.AddOv(y)
	case SUB:
		r, overflow = x.SubOv(y)
	case MUL:
		r, overflow = x.MulOv(y)
	case DIV:
		if r, ok = x.Div(y); !ok {
			return Int{}, false
		}
	case REM:
		if r, ok = x.Rem(y); !ok {
			return Int{}, false
		}
	case AND:
		r = x.And(y)
	case OR:
		r = x.Or(y)
	case XOR:
		r = x.Xor(y)
	case LT:
		return ev.bool(x.Cmp(y) < 0), true
	case GT:
		return ev.bool(x.Cmp(y) > 0), true
	case LE:
		return ev.bool(x.Cmp(y) <= 0), true
	case GE:
		return ev.bool(x.Cmp(y) >= 0), true
	case EQ:
		return ev.bool(x.Cmp(y) == 0), true
	case NE:
		return ev.bool(x.Cmp(y) != 0), true
	case LAND:
		return ev.bool(!x.IsZero() && !y.IsZero()), true
	case LOR:
		return ev.bool(!x.IsZero() || !y.IsZero()), true
	default:
		return Int{}, false
	}

	// Unsigned arithmetic wraps by definition.
	if overflow && !r.Unsigned {
		ev.overflow = true
	}
	return r, true
}

// promote applies the integer promotions.
func (ev *evaluator) promote(v Int) Int {
	if v.Width < ev.ctx.IntWidth {
		return v.Convert(ev.ctx.IntWidth, false)
	}
	return v
}

// convert applies the usual arithmetic conversions to a pair of operands.
func (ev *evaluator) convert(x, y Int) (Int, Int) {
	x, y = ev.promote(x), ev.promote(y)

	width := x.Width
	if y.Width > width {
		width = y.Width
	}
	unsigned := (x.Unsigned && x.Width == width) || (y.Unsigned && y.Width == width)
	return x.Convert(width, unsigned), y.Convert(width, unsigned)
}

func (ev *evaluator) bool(b bool) Int {
	if b {
		return NewInt(1, ev.ctx.IntWidth)
	}
	return NewInt(0, ev.ctx.IntWidth)
}
