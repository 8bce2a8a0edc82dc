// Package ast implements a syntax tree for the subset of Checked C used by
// bounds widening along with the expression utilities that operate on it.
package ast

import (
	"fmt"
)

// Node represents any node in the syntax tree.
type Node interface {
	node()
}

// Stmt represents a statement. Expressions are also statements.
type Stmt interface {
	Node
	stmt()
}

// Expr represents an expression.
type Expr interface {
	Stmt
	expr()
}

func (*DeclRefExpr) node()        {}
func (*IntegerLiteral) node()     {}
func (*CharacterLiteral) node()   {}
func (*StringLiteral) node()      {}
func (*ParenExpr) node()          {}
func (*UnaryOperator) node()      {}
func (*BinaryOperator) node()     {}
func (*ArraySubscriptExpr) node() {}
func (*MemberExpr) node()         {}
func (*ImplicitCastExpr) node()   {}
func (*CStyleCastExpr) node()     {}
func (*CallExpr) node()           {}

func (*DeclStmt) node()     {}
func (*NullStmt) node()     {}
func (*CompoundStmt) node() {}
func (*IfStmt) node()       {}
func (*WhileStmt) node()    {}
func (*DoStmt) node()       {}
func (*ForStmt) node()      {}
func (*SwitchStmt) node()   {}
func (*CaseStmt) node()     {}
func (*DefaultStmt) node()  {}
func (*BreakStmt) node()    {}
func (*ContinueStmt) node() {}
func (*ReturnStmt) node()   {}

func (*RangeBoundsExpr) node() {}
func (*CountBoundsExpr) node() {}

func (*DeclRefExpr) stmt()        {}
func (*IntegerLiteral) stmt()     {}
func (*CharacterLiteral) stmt()   {}
func (*StringLiteral) stmt()      {}
func (*ParenExpr) stmt()          {}
func (*UnaryOperator) stmt()      {}
func (*BinaryOperator) stmt()     {}
func (*ArraySubscriptExpr) stmt() {}
func (*MemberExpr) stmt()         {}
func (*ImplicitCastExpr) stmt()   {}
func (*CStyleCastExpr) stmt()     {}
func (*CallExpr) stmt()           {}

func (*DeclStmt) stmt()     {}
func (*NullStmt) stmt()     {}
func (*CompoundStmt) stmt() {}
func (*IfStmt) stmt()       {}
func (*WhileStmt) stmt()    {}
func (*DoStmt) stmt()       {}
func (*ForStmt) stmt()      {}
func (*SwitchStmt) stmt()   {}
func (*CaseStmt) stmt()     {}
func (*DefaultStmt) stmt()  {}
func (*BreakStmt) stmt()    {}
func (*ContinueStmt) stmt() {}
func (*ReturnStmt) stmt()   {}

func (*DeclRefExpr) expr()        {}
func (*IntegerLiteral) expr()     {}
func (*CharacterLiteral) expr()   {}
func (*StringLiteral) expr()      {}
func (*ParenExpr) expr()          {}
func (*UnaryOperator) expr()      {}
func (*BinaryOperator) expr()     {}
func (*ArraySubscriptExpr) expr() {}
func (*MemberExpr) expr()         {}
func (*ImplicitCastExpr) expr()   {}
func (*CStyleCastExpr) expr()     {}
func (*CallExpr) expr()           {}

// BinaryOp represents a binary operator. Operators are ordered the same way
// clang orders them so comparisons between operator codes are stable.
type BinaryOp int

// BinaryOperator operations.
const (
	arithmetic_op_begin = BinaryOp(iota)
	MUL
	DIV
	REM
	ADD
	SUB
	SHL
	SHR
	arithmetic_op_end

	compare_op_begin
	LT
	GT
	LE
	GE
	EQ
	NE
	compare_op_end

	AND
	XOR
	OR
	LAND
	LOR

	assign_op_begin
	ASSIGN
	MUL_ASSIGN
	DIV_ASSIGN
	REM_ASSIGN
	ADD_ASSIGN
	SUB_ASSIGN
	SHL_ASSIGN
	SHR_ASSIGN
	AND_ASSIGN
	XOR_ASSIGN
	OR_ASSIGN
	assign_op_end

	COMMA
)

var binaryOps = [...]string{
	MUL:        "*",
	DIV:        "/",
	REM:        "%",
	ADD:        "+",
	SUB:        "-",
	SHL:        "<<",
	SHR:        ">>",
	LT:         "<",
	GT:         ">",
	LE:         "<=",
	GE:         ">=",
	EQ:         "==",
	NE:         "!=",
	AND:        "&",
	XOR:        "^",
	OR:         "|",
	LAND:       "&&",
	LOR:        "||",
	ASSIGN:     "=",
	MUL_ASSIGN: "*=",
	DIV_ASSIGN: "/=",
	REM_ASSIGN: "%=",
	ADD_ASSIGN: "+=",
	SUB_ASSIGN: "-=",
	SHL_ASSIGN: "<<=",
	SHR_ASSIGN: ">>=",
	AND_ASSIGN: "&=",
	XOR_ASSIGN: "^=",
	OR_ASSIGN:  "|=",
	COMMA:      ",",
}

// String returns the C spelling of the operator.
func (op BinaryOp) String() string {
	if op >= 0 && op < BinaryOp(len(binaryOps)) && binaryOps[op] != "" {
		return binaryOps[op]
	}
	return fmt.Sprintf("BinaryOp<%d>", op)
}

// IsArithmetic returns true if op is an arithmetic operator.
func (op BinaryOp) IsArithmetic() bool {
	return op > arithmetic_op_begin && op < arithmetic_op_end
}

// IsCompare returns true if op is a comparison operator.
func (op BinaryOp) IsCompare() bool {
	return op > compare_op_begin && op < compare_op_end
}

// IsLogical returns true for && and ||.
func (op BinaryOp) IsLogical() bool {
	return op == LAND || op == LOR
}

// IsAssign returns true for simple and compound assignment.
func (op BinaryOp) IsAssign() bool {
	return op > assign_op_begin && op < assign_op_end
}

// IsCompoundAssign returns true for compound assignment operators such as +=.
func (op BinaryOp) IsCompoundAssign() bool {
	return op.IsAssign() && op != ASSIGN
}

// IsCommutativeAndAssociative returns true if operands may be freely
// reordered and regrouped. Only + and * qualify for integer arithmetic.
func (op BinaryOp) IsCommutativeAndAssociative() bool {
	return op == ADD || op == MUL
}

// Underlying returns the arithmetic operator of a compound assignment.
// Other operators are returned unchanged.
func (op BinaryOp) Underlying() BinaryOp {
	switch op {
	case MUL_ASSIGN:
		return MUL
	case DIV_ASSIGN:
		return DIV
	case REM_ASSIGN:
		return REM
	case ADD_ASSIGN:
		return ADD
	case SUB_ASSIGN:
		return SUB
	case SHL_ASSIGN:
		return SHL
	case SHR_ASSIGN:
		return SHR
	case AND_ASSIGN:
		return AND
	case XOR_ASSIGN:
		return XOR
	case OR_ASSIGN:
		return OR
	default:
		return op
	}
}

// UnaryOp represents a unary operator.
type UnaryOp int

// UnaryOperator operations.
const (
	POSTINC = UnaryOp(iota + 1)
	POSTDEC
	PREINC
	PREDEC
	ADDROF
	DEREF
	PLUS
	MINUS
	NOT
	LNOT
)

var unaryOps = [...]string{
	POSTINC: "++",
	POSTDEC: "--",
	PREINC:  "++",
	PREDEC:  "--",
	ADDROF:  "&",
	DEREF:   "*",
	PLUS:    "+",
	MINUS:   "-",
	NOT:     "~",
	LNOT:    "!",
}

// String returns the C spelling of the operator.
func (op UnaryOp) String() string {
	if op >= 0 && op < UnaryOp(len(unaryOps)) && unaryOps[op] != "" {
		return unaryOps[op]
	}
	return fmt.Sprintf("UnaryOp<%d>", op)
}

// IsPostfix returns true for x++ and x--.
func (op UnaryOp) IsPostfix() bool { return op == POSTINC || op == POSTDEC }

// IsIncDec returns true for the increment and decrement operators.
func (op UnaryOp) IsIncDec() bool { return op >= POSTINC && op <= PREDEC }

// CastKind represents the conversion performed by a cast.
type CastKind int

// Cast kinds.
const (
	LValueToRValue = CastKind(iota + 1)
	NoOp
	BitCast
	LValueBitCast
	IntegralCast
	ArrayToPointerDecay
	FunctionToPointerDecay
	IntegralToPointer
	PointerToIntegral
	NullToPointer
	IntegralToBoolean
	PointerToBoolean
)

var castKinds = [...]string{
	LValueToRValue:         "LValueToRValue",
	NoOp:                   "NoOp",
	BitCast:                "BitCast",
	LValueBitCast:          "LValueBitCast",
	IntegralCast:           "IntegralCast",
	ArrayToPointerDecay:    "ArrayToPointerDecay",
	FunctionToPointerDecay: "FunctionToPointerDecay",
	IntegralToPointer:      "IntegralToPointer",
	PointerToIntegral:      "PointerToIntegral",
	NullToPointer:          "NullToPointer",
	IntegralToBoolean:      "IntegralToBoolean",
	PointerToBoolean:       "PointerToBoolean",
}

// String returns the clang name of the cast kind.
func (k CastKind) String() string {
	if k >= 0 && k < CastKind(len(castKinds)) && castKinds[k] != "" {
		return castKinds[k]
	}
	return fmt.Sprintf("CastKind<%d>", k)
}

// IsValuePreserving returns true if the cast never changes the value of its operand.
func (k CastKind) IsValuePreserving() bool {
	switch k {
	case NoOp, BitCast, LValueBitCast:
		return true
	default:
		return false
	}
}

// DeclRefExpr represents a use of a variable.
type DeclRefExpr struct {
	Decl *VarDecl
}

// IntegerLiteral represents an integer constant. Value holds the bit pattern
// at the width of Type.
type IntegerLiteral struct {
	Value uint64
	Type  *Type
}

// CharacterLiteral represents a character constant such as 'a' or '\0'.
type CharacterLiteral struct {
	Value rune
}

// StringLiteral represents a string constant.
type StringLiteral struct {
	Value string
}

// ParenExpr represents a parenthesized expression.
type ParenExpr struct {
	X Expr
}

// UnaryOperator represents a prefix or postfix operator applied to an expression.
type UnaryOperator struct {
	Op UnaryOp
	X  Expr
}

// BinaryOperator represents a binary operation, including assignments.
type BinaryOperator struct {
	Op  BinaryOp
	LHS Expr
	RHS Expr
}

// ArraySubscriptExpr represents base[index].
type ArraySubscriptExpr struct {
	Base  Expr
	Index Expr
}

// MemberExpr represents base.field or base->field.
type MemberExpr struct {
	Base    Expr
	Field   *FieldDecl
	IsArrow bool
}

// ImplicitCastExpr represents a conversion inserted by the compiler.
type ImplicitCastExpr struct {
	Kind CastKind
	X    Expr
	Type *Type
}

// CStyleCastExpr represents an explicit (T)x conversion.
type CStyleCastExpr struct {
	Kind CastKind
	X    Expr
	Type *Type
}

// CallExpr represents a function call.
type CallExpr struct {
	Fn   Expr
	Args []Expr
}

// VarDecl represents a variable or parameter declaration. ID uniquely
// identifies the variable within its function.
type VarDecl struct {
	ID      int
	Name    string
	Type    *Type
	Bounds  BoundsExpr
	Init    Expr
	IsParam bool
}

// FieldDecl represents a struct member.
type FieldDecl struct {
	Name string
	Type *Type
}

// BoundsExpr represents a declared bounds annotation.
type BoundsExpr interface {
	Node
	boundsExpr()
}

func (*RangeBoundsExpr) boundsExpr() {}
func (*CountBoundsExpr) boundsExpr() {}

// RangeBoundsExpr represents bounds(lower, upper).
type RangeBoundsExpr struct {
	Lower Expr
	Upper Expr
}

// CountBoundsExpr represents count(n).
type CountBoundsExpr struct {
	Count Expr
}

// WhereClause represents a _Where clause attached to a declaration or a null statement.
type WhereClause struct {
	Facts []*BoundsFact
}

// BoundsFact is a single "v : bounds(...)" fact within a where clause.
type BoundsFact struct {
	Var    *VarDecl
	Bounds BoundsExpr
}

// DeclStmt declares one or more variables.
type DeclStmt struct {
	Decls []*VarDecl
	Where *WhereClause
}

// NullStmt represents an empty statement, optionally carrying a where clause.
type NullStmt struct {
	Where *WhereClause
}

// CompoundStmt represents a braced list of statements.
type CompoundStmt struct {
	List []Stmt
}

// IfStmt represents an if statement. Else may be nil.
type IfStmt struct {
	Cond Expr
	Then Stmt
	Else Stmt
}

// WhileStmt represents a while loop.
type WhileStmt struct {
	Cond Expr
	Body Stmt
}

// DoStmt represents a do/while loop.
type DoStmt struct {
	Body Stmt
	Cond Expr
}

// ForStmt represents a for loop. Any of Init, Cond and Inc may be nil.
type ForStmt struct {
	Init Stmt
	Cond Expr
	Inc  Expr
	Body Stmt
}

// SwitchStmt represents a switch statement.
type SwitchStmt struct {
	Cond Expr
	Body Stmt
}

// CaseStmt represents "case LHS:" or the GNU range "case LHS ... RHS:".
type CaseStmt struct {
	LHS Expr
	RHS Expr
	Sub Stmt
}

// DefaultStmt represents "default:".
type DefaultStmt struct {
	Sub Stmt
}

// BreakStmt represents a break statement.
type BreakStmt struct{}

// ContinueStmt represents a continue statement.
type ContinueStmt struct{}

// ReturnStmt represents a return statement. Result may be nil.
type ReturnStmt struct {
	Result Expr
}

// Function represents a function definition.
type Function struct {
	Name       string
	ReturnType *Type
	Params     []*VarDecl
	Body       *CompoundStmt
}

// Vars returns every variable declared by the function: parameters first,
// followed by locals in source order.
func (fn *Function) Vars() []*VarDecl {
	a := make([]*VarDecl, 0, len(fn.Params))
	a = append(a, fn.Params...)
	if fn.Body != nil {
		walkStmt(fn.Body, func(s Stmt) {
			if s, ok := s.(*DeclStmt); ok {
				a = append(a, s.Decls...)
			}
		})
	}
	return a
}

// walkStmt calls fn for s and every statement nested within it.
func walkStmt(s Stmt, fn func(Stmt)) {
	if s == nil {
		return
	}
	fn(s)

	switch s := s.(type) {
	case *CompoundStmt:
		for _, child := range s.List {
			walkStmt(child, fn)
		}
	case *IfStmt:
		walkStmt(s.Then, fn)
		walkStmt(s.Else, fn)
	case *WhileStmt:
		walkStmt(s.Body, fn)
	case *DoStmt:
		walkStmt(s.Body, fn)
	case *ForStmt:
		walkStmt(s.Init, fn)
		walkStmt(s.Body, fn)
	case *SwitchStmt:
		walkStmt(s.Body, fn)
	case *CaseStmt:
		walkStmt(s.Sub, fn)
	case *DefaultStmt:
		walkStmt(s.Sub, fn)
	}
}
