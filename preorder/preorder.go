// Package preorder canonicalizes pointer arithmetic expressions so that
// expressions which are equal under commutativity and associativity of + and
// * and under constant folding have identical trees.
//
// A tree is built with New, normalized with Normalize and then compared with
// Compare or GetDerefOffset. The root of every tree is an n-ary + node: an
// expression e is represented as e + 0.
package preorder

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/benbjohnson/ntbounds/ast"
)

var (
	// ErrOverflow is set on a tree when constant folding overflows.
	ErrOverflow = errors.New("preorder: constant folding overflow")

	// ErrMalformed is set on a tree whose structure is invalid.
	ErrMalformed = errors.New("preorder: malformed tree")
)

const debugging = false

func debugf(format string, args ...interface{}) {
	if debugging {
		log.Printf(format, args...)
	}
}

// Node represents a node in a canonical tree.
type Node interface {
	node()
}

func (*BinaryOperatorNode) node() {}
func (*UnaryOperatorNode) node()  {}
func (*MemberNode) node()         {}
func (*ImplicitCastNode) node()   {}
func (*LeafExprNode) node()       {}

// BinaryOperatorNode represents a binary operator. Nodes for + and * may hold
// any number of children once coalesced.
type BinaryOperatorNode struct {
	Op       ast.BinaryOp
	Children []Node
}

// UnaryOperatorNode represents a unary operator.
type UnaryOperatorNode struct {
	Op    ast.UnaryOp
	Child Node
}

// MemberNode represents a member access. Accesses that go through a pointer
// are all represented as base->field with an additive base.
type MemberNode struct {
	Field   *ast.FieldDecl
	IsArrow bool
	Base    Node
}

// ImplicitCastNode represents an implicit conversion.
type ImplicitCastNode struct {
	Kind  ast.CastKind
	Child Node
}

// LeafExprNode holds an expression that is not decomposed further.
type LeafExprNode struct {
	Expr ast.Expr
}

// AST represents the canonical tree of a single expression.
type AST struct {
	ctx  *ast.Context
	root Node
	err  error
}

// New returns the tree for e. The tree must be normalized before it is compared.
func New(ctx *ast.Context, e ast.Expr) *AST {
	a := &AST{ctx: ctx}
	if e == nil {
		a.err = ErrMalformed
		return a
	}
	a.root = a.addZero(e)
	return a
}

// Canonicalize returns the normalized tree for e.
func Canonicalize(ctx *ast.Context, e ast.Expr) (*AST, error) {
	a := New(ctx, e)
	a.Normalize()
	if err := a.Err(); err != nil {
		return nil, err
	}
	return a, nil
}

// Root returns the root node of the tree.
func (a *AST) Root() Node { return a.root }

// Err returns the error that invalidated the tree, if any.
func (a *AST) Err() error { return a.err }

// addZero returns e + 0.
func (a *AST) addZero(e ast.Expr) Node {
	return &BinaryOperatorNode{
		Op:       ast.ADD,
		Children: []Node{a.create(e), &LeafExprNode{Expr: a.zero()}},
	}
}

func (a *AST) zero() ast.Expr {
	return &ast.IntegerLiteral{Value: 0, Type: ast.IntType}
}

// create returns the node for e.
func (a *AST) create(e ast.Expr) Node {
	e = ast.IgnoreValuePreservingOperations(e)

	switch e := e.(type) {
	case *ast.BinaryOperator:
		op, rhs := e.Op, e.RHS

		// e1 - c is rewritten as e1 + -c unless the negation overflows.
		if op == ast.SUB {
			if neg := a.negate(rhs); neg != nil {
				op, rhs = ast.ADD, neg
			}
		}
		return &BinaryOperatorNode{
			Op:       op,
			Children: []Node{a.create(e.LHS), a.create(rhs)},
		}

	case *ast.MemberExpr:
		base := ast.IgnoreValuePreservingOperations(e.Base)

		// a->f, (*a).f and a[0].f are all represented as (a + 0)->f.
		var arrowBase ast.Expr
		if e.IsArrow {
			arrowBase = base
		} else if u, ok := base.(*ast.UnaryOperator); ok && u.Op == ast.DEREF {
			arrowBase = u.X
		} else if sub, ok := base.(*ast.ArraySubscriptExpr); ok {
			arrowBase = &ast.BinaryOperator{Op: ast.ADD, LHS: sub.Base, RHS: sub.Index}
		}

		if arrowBase != nil {
			return &MemberNode{Field: e.Field, IsArrow: true, Base: a.addZero(arrowBase)}
		}
		return &MemberNode{Field: e.Field, IsArrow: false, Base: a.create(base)}

	case *ast.UnaryOperator:
		switch e.Op {
		case ast.DEREF:
			return &UnaryOperatorNode{Op: e.Op, Child: a.addZero(e.X)}
		case ast.PLUS, ast.MINUS:
			// Signed constants are leaves so they fold with their siblings.
			if a.ctx.IsIntegerConstantExpr(e.X) {
				return &LeafExprNode{Expr: e}
			}
		}
		return &UnaryOperatorNode{Op: e.Op, Child: a.create(e.X)}

	case *ast.ArraySubscriptExpr:
		// e1[e2] is *((e1 + e2) + 0).
		sum := &ast.BinaryOperator{Op: ast.ADD, LHS: e.Base, RHS: e.Index}
		return &UnaryOperatorNode{Op: ast.DEREF, Child: a.addZero(sum)}

	case *ast.ImplicitCastExpr:
		return &ImplicitCastNode{Kind: e.Kind, Child: a.create(e.X)}

	default:
		return &LeafExprNode{Expr: e}
	}
}

// negate returns -e if e is a signed integer constant whose negation does not
// overflow. Returns nil otherwise.
func (a *AST) negate(e ast.Expr) ast.Expr {
	v, overflow, ok := a.ctx.EvaluateIntOverflow(e)
	if !ok || overflow || v.Unsigned {
		return nil
	}
	if v.Width < a.ctx.IntWidth {
		v = v.Convert(a.ctx.IntWidth, false)
	}
	if _, overflow := v.NegOv(); overflow {
		return nil
	}
	return &ast.UnaryOperator{Op: ast.MINUS, X: e}
}

// Normalize coalesces, sorts and constant folds the tree until it stops
// changing. On error the tree is left in an unspecified state and Err()
// returns the cause.
func (a *AST) Normalize() {
	if a.err != nil {
		return
	}
	if root, ok := a.root.(*BinaryOperatorNode); !ok || root.Op != ast.ADD {
		a.err = ErrMalformed
		return
	}

	for i := 0; ; i++ {
		changed := a.coalesce(a.root)
		if a.err != nil {
			return
		}
		a.sort(a.root)
		if a.constantFold(a.root) {
			changed = true
		}
		if a.err != nil {
			return
		}

		debugf("[preorder] pass %d: changed=%v", i, changed)
		if !changed {
			return
		}
	}
}

// coalesce flattens nested + and * nodes into their parent and removes
// single-child binary nodes. Returns true if the tree changed.
func (a *AST) coalesce(n Node) bool {
	switch n := n.(type) {
	case *BinaryOperatorNode:
		if len(n.Children) == 0 {
			a.err = ErrMalformed
			return false
		}

		var changed bool
		children := make([]Node, 0, len(n.Children))
		for _, child := range n.Children {
			if a.coalesce(child) {
				changed = true
			}
			if b, ok := child.(*BinaryOperatorNode); ok && canCoalesce(b, n) {
				children = append(children, b.Children...)
				changed = true
				continue
			}
			children = append(children, child)
		}
		n.Children = children
		return changed

	case *UnaryOperatorNode:
		return a.coalesce(n.Child)
	case *MemberNode:
		return a.coalesce(n.Base)
	case *ImplicitCastNode:
		return a.coalesce(n.Child)
	case *LeafExprNode:
		return false
	default:
		a.err = ErrMalformed
		return false
	}
}

// canCoalesce returns true if child can be merged into parent. That is the
// case when child has a single child or when both share the same commutative
// and associative operator.
func canCoalesce(child, parent *BinaryOperatorNode) bool {
	if len(child.Children) == 1 {
		return true
	}
	return child.Op == parent.Op && child.Op.IsCommutativeAndAssociative()
}

// sort orders the children of commutative nodes.
func (a *AST) sort(n Node) {
	switch n := n.(type) {
	case *BinaryOperatorNode:
		for _, child := range n.Children {
			a.sort(child)
		}
		if n.Op.IsCommutativeAndAssociative() {
			sort.SliceStable(n.Children, func(i, j int) bool {
				return Compare(n.Children[i], n.Children[j]) == ast.LessThan
			})
		}
	case *UnaryOperatorNode:
		a.sort(n.Child)
	case *MemberNode:
		a.sort(n.Base)
	case *ImplicitCastNode:
		a.sort(n.Child)
	}
}

// constantFold folds the integer constant leaves of + and * nodes into a
// single leaf. Returns true if the tree changed.
func (a *AST) constantFold(n Node) bool {
	switch n := n.(type) {
	case *BinaryOperatorNode:
		var changed bool
		for _, child := range n.Children {
			if a.constantFold(child) {
				changed = true
			}
			if a.err != nil {
				return changed
			}
		}
		if !n.Op.IsCommutativeAndAssociative() {
			return changed
		}

		var acc ast.Int
		var nconst int
		others := make([]Node, 0, len(n.Children))
		for _, child := range n.Children {
			v, ok := a.constantValue(child)
			if a.err != nil {
				return changed
			} else if !ok {
				others = append(others, child)
				continue
			}

			if nconst == 0 {
				acc = v
			} else {
				var overflow bool
				if n.Op == ast.ADD {
					acc, overflow = acc.AddOv(v)
				} else {
					acc, overflow = acc.MulOv(v)
				}
				if overflow {
					a.err = ErrOverflow
					return changed
				}
			}
			nconst++
		}
		if nconst <= 1 {
			return changed
		}

		lit := &ast.IntegerLiteral{Value: acc.Value, Type: ast.IntType}
		n.Children = append(others, &LeafExprNode{Expr: lit})
		debugf("[preorder] fold %d constants (%s) -> %s", nconst, n.Op, acc)
		return true

	case *UnaryOperatorNode:
		return a.constantFold(n.Child)
	case *MemberNode:
		return a.constantFold(n.Base)
	case *ImplicitCastNode:
		return a.constantFold(n.Child)
	default:
		return false
	}
}

// constantValue returns the value of n if it is an integer constant leaf,
// converted to the target int width.
func (a *AST) constantValue(n Node) (ast.Int, bool) {
	leaf, ok := n.(*LeafExprNode)
	if !ok {
		return ast.Int{}, false
	}

	v, overflow, ok := a.ctx.EvaluateIntOverflow(leaf.Expr)
	if !ok {
		return ast.Int{}, false
	} else if overflow {
		a.err = ErrOverflow
		return ast.Int{}, false
	}

	bits, ok := ast.Fits(a.ctx, ast.IntType, v)
	if !ok {
		a.err = ErrOverflow
		return ast.Int{}, false
	}
	return bits, true
}

// Compare returns the ordering of two trees. Trees with errors sort before
// valid trees and never compare equal to anything.
func (a *AST) Compare(other *AST) ast.Result {
	if a.err != nil || other.err != nil {
		if a.err == nil {
			return ast.GreaterThan
		}
		return ast.LessThan
	}
	return Compare(a.root, other.root)
}

// Equal returns true if both trees are valid and structurally equal.
func (a *AST) Equal(other *AST) bool {
	return a.err == nil && other.err == nil && Compare(a.root, other.root) == ast.Equal
}

// Compare returns a lexicographic ordering of two nodes: by kind, then
// operator, then number of children, then children in order.
func Compare(a, b Node) ast.Result {
	if ak, bk := nodeKind(a), nodeKind(b); ak < bk {
		return ast.LessThan
	} else if ak > bk {
		return ast.GreaterThan
	}

	switch a := a.(type) {
	case *BinaryOperatorNode:
		return compareBinaryOperatorNode(a, b.(*BinaryOperatorNode))
	case *UnaryOperatorNode:
		return compareUnaryOperatorNode(a, b.(*UnaryOperatorNode))
	case *MemberNode:
		return compareMemberNode(a, b.(*MemberNode))
	case *ImplicitCastNode:
		return compareImplicitCastNode(a, b.(*ImplicitCastNode))
	case *LeafExprNode:
		return ast.Compare(a.Expr, b.(*LeafExprNode).Expr)
	default:
		return ast.Equal
	}
}

func compareBinaryOperatorNode(a, b *BinaryOperatorNode) ast.Result {
	if cmp := compareInt(int(a.Op), int(b.Op)); cmp != ast.Equal {
		return cmp
	}
	if cmp := compareInt(len(a.Children), len(b.Children)); cmp != ast.Equal {
		return cmp
	}
	for i := range a.Children {
		if cmp := Compare(a.Children[i], b.Children[i]); cmp != ast.Equal {
			return cmp
		}
	}
	return ast.Equal
}

func compareUnaryOperatorNode(a, b *UnaryOperatorNode) ast.Result {
	if cmp := compareInt(int(a.Op), int(b.Op)); cmp != ast.Equal {
		return cmp
	}
	return Compare(a.Child, b.Child)
}

func compareMemberNode(a, b *MemberNode) ast.Result {
	if a.IsArrow != b.IsArrow {
		if !a.IsArrow {
			return ast.LessThan
		}
		return ast.GreaterThan
	}
	if cmp := ast.CompareField(a.Field, b.Field); cmp != ast.Equal {
		return cmp
	}
	return Compare(a.Base, b.Base)
}

func compareImplicitCastNode(a, b *ImplicitCastNode) ast.Result {
	if cmp := compareInt(int(a.Kind), int(b.Kind)); cmp != ast.Equal {
		return cmp
	}
	return Compare(a.Child, b.Child)
}

func compareInt(a, b int) ast.Result {
	if a < b {
		return ast.LessThan
	} else if a > b {
		return ast.GreaterThan
	}
	return ast.Equal
}

// nodeKind returns a numeric rank for the type of node.
func nodeKind(n Node) int {
	switch n.(type) {
	case *BinaryOperatorNode:
		return 1
	case *UnaryOperatorNode:
		return 2
	case *MemberNode:
		return 3
	case *ImplicitCastNode:
		return 4
	case *LeafExprNode:
		return 5
	default:
		return 0
	}
}

// GetDerefOffset returns deref - upper when the two normalized trees differ
// only in the integer constants of their root + node. Returns false if no
// such offset exists, if either tree has an error, or on overflow.
func GetDerefOffset(upper, deref *AST) (int64, bool) {
	if upper.err != nil || deref.err != nil {
		return 0, false
	}

	u, ok := upper.root.(*BinaryOperatorNode)
	if !ok {
		return 0, false
	}
	d, ok := deref.root.(*BinaryOperatorNode)
	if !ok {
		return 0, false
	}
	if u.Op != d.Op || len(u.Children) != len(d.Children) {
		return 0, false
	}

	offset := upper.ctx.NewInt(0)
	for i := range u.Children {
		if Compare(u.Children[i], d.Children[i]) == ast.Equal {
			continue
		}

		// Only the constant terms of a sum may differ.
		if u.Op != ast.ADD {
			return 0, false
		}
		uv, ok := upper.constantValue(u.Children[i])
		if !ok || upper.err != nil {
			return 0, false
		}
		dv, ok := deref.constantValue(d.Children[i])
		if !ok || deref.err != nil {
			return 0, false
		}

		diff, overflow := dv.SubOv(uv)
		if overflow {
			return 0, false
		}
		if offset, overflow = offset.AddOv(diff); overflow {
			return 0, false
		}
	}
	return offset.Int64(), true
}

// PrettyPrint writes an indented representation of the tree to w.
func (a *AST) PrettyPrint(w io.Writer) error {
	if a.err != nil {
		_, err := fmt.Fprintf(w, "<error: %s>\n", a.err)
		return err
	}
	return prettyPrint(w, a.root, 0)
}

func prettyPrint(w io.Writer, n Node, depth int) error {
	indent := strings.Repeat("  ", depth)

	switch n := n.(type) {
	case *BinaryOperatorNode:
		if _, err := fmt.Fprintf(w, "%sBinaryOperator %s\n", indent, n.Op); err != nil {
			return err
		}
		for _, child := range n.Children {
			if err := prettyPrint(w, child, depth+1); err != nil {
				return err
			}
		}
		return nil

	case *UnaryOperatorNode:
		if _, err := fmt.Fprintf(w, "%sUnaryOperator %s\n", indent, n.Op); err != nil {
			return err
		}
		return prettyPrint(w, n.Child, depth+1)

	case *MemberNode:
		op := "."
		if n.IsArrow {
			op = "->"
		}
		var name string
		if n.Field != nil {
			name = n.Field.Name
		}
		if _, err := fmt.Fprintf(w, "%sMember %s%s\n", indent, op, name); err != nil {
			return err
		}
		return prettyPrint(w, n.Base, depth+1)

	case *ImplicitCastNode:
		if _, err := fmt.Fprintf(w, "%sImplicitCast %s\n", indent, n.Kind); err != nil {
			return err
		}
		return prettyPrint(w, n.Child, depth+1)

	case *LeafExprNode:
		_, err := fmt.Fprintf(w, "%sLeaf %s\n", indent, ast.String(n.Expr))
		return err

	default:
		return fmt.Errorf("preorder: unexpected node type: %T", n)
	}
}
