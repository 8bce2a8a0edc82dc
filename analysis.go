package ntbounds

import (
	"log"

	"github.com/benbjohnson/ntbounds/ast"
	"github.com/benbjohnson/ntbounds/cfg"
	"github.com/benbjohnson/ntbounds/preorder"
	"github.com/willf/bitset"
)

// Analysis widens the bounds of the null-terminated array pointers of a
// single function.
type Analysis struct {
	ctx *ast.Context
	fn  *ast.Function
	g   *cfg.CFG

	states    []*blockState // indexed by block ID
	reachable *bitset.BitSet

	// Every null-terminated pointer in the function and its declared bounds.
	allNtPtrs *VarSet
	declared  map[*ast.VarDecl]*Range

	// Variables whose declared bounds mention a given variable, keyed by the
	// mentioned variable. A pointer always mentions itself.
	boundsVars map[*ast.VarDecl]*VarSet

	// Canonical forms of expressions, computed once.
	canon map[ast.Expr]*preorder.AST

	// Invoked every time the Out set of a block is recomputed with the
	// previous and the new value.
	OnOut func(b *cfg.Block, prev, next BoundsMap)
}

// NewAnalysis returns a new analysis of fn over its control flow graph g.
func NewAnalysis(ctx *ast.Context, fn *ast.Function, g *cfg.CFG) *Analysis {
	a := &Analysis{
		ctx:        ctx,
		fn:         fn,
		g:          g,
		states:     make([]*blockState, len(g.Blocks)),
		reachable:  g.Reachable(),
		allNtPtrs:  NewVarSet(),
		declared:   make(map[*ast.VarDecl]*Range),
		boundsVars: make(map[*ast.VarDecl]*VarSet),
		canon:      make(map[ast.Expr]*preorder.AST),
	}
	for _, b := range g.Blocks {
		a.states[b.ID] = newBlockState(b)
	}
	return a
}

// WidenBounds builds an analysis for fn, runs it and returns it.
func WidenBounds(ctx *ast.Context, fn *ast.Function, g *cfg.CFG) *Analysis {
	a := NewAnalysis(ctx, fn, g)
	a.WidenBounds()
	return a
}

// Function returns the analysed function.
func (a *Analysis) Function() *ast.Function { return a.fn }

// CFG returns the control flow graph of the analysed function.
func (a *Analysis) CFG() *cfg.CFG { return a.g }

// NtPtrs returns every null-terminated pointer in the function.
func (a *Analysis) NtPtrs() []*ast.VarDecl { return a.allNtPtrs.Vars() }

// DeclaredBounds returns the declared bounds of v, with count bounds
// expanded to a range. Returns nil if v is not a null-terminated pointer.
func (a *Analysis) DeclaredBounds(v *ast.VarDecl) *Range { return a.declared[v] }

// WidenBounds runs the dataflow analysis until a fixed point is reached.
func (a *Analysis) WidenBounds() {
	log.Printf("[widen] begin: %s", a.fn.Name)
	defer log.Printf("[widen] end: %s", a.fn.Name)

	a.initNtPtrs()
	a.computeGenKillSets()
	a.initInOutSets()

	q := newQueueSet()
	for _, b := range a.g.ReversePostOrder() {
		if !a.skipBlock(b) {
			q.Push(b)
		}
	}

	for q.Len() > 0 {
		b := q.Pop()
		st := a.states[b.ID]
		log.Printf("[block] %s", b)

		prevIn := st.in
		if b != a.g.Entry {
			st.in = a.computeInSet(st)
		}
		out := a.computeOutSet(st)
		log.Printf("[in] %s: %s", b, st.in)
		log.Printf("[out] %s: %s", b, out)

		if a.OnOut != nil {
			a.OnOut(b, st.out, out)
		}

		// Successors also depend on In through the pruning of widened bounds.
		changed := !out.Equal(st.out) || !prevIn.Equal(st.in)
		st.out = out
		if !changed {
			continue
		}
		for _, succ := range b.Succs {
			if !a.skipBlock(succ) {
				q.Push(succ)
			}
		}
	}
}

// skipBlock returns true if b does not take part in the analysis.
func (a *Analysis) skipBlock(b *cfg.Block) bool {
	return b == nil || b == a.g.Exit || !a.reachable.Test(uint(b.ID))
}

// initNtPtrs collects every null-terminated pointer declared in the function
// along with its declared bounds.
func (a *Analysis) initNtPtrs() {
	for _, v := range a.fn.Params {
		a.addNtPtr(v)
	}
	for _, b := range a.g.Blocks {
		for _, s := range b.Stmts {
			if s, ok := s.(*ast.DeclStmt); ok {
				for _, v := range s.Decls {
					a.addNtPtr(v)
				}
			}
		}
	}
}

func (a *Analysis) addNtPtr(v *ast.VarDecl) {
	if !v.Type.IsNtArrayPtr() || a.allNtPtrs.Has(v) {
		return
	}
	a.allNtPtrs.Add(v)

	r := a.rangeOf(v, v.Bounds)
	a.declared[v] = r

	a.addBoundsVar(v, v)
	for _, w := range ast.Vars(r.Lower, r.Upper) {
		a.addBoundsVar(w, v)
	}
}

func (a *Analysis) addBoundsVar(w, v *ast.VarDecl) {
	set := a.boundsVars[w]
	if set == nil {
		set = NewVarSet()
		a.boundsVars[w] = set
	}
	set.Add(v)
}

// updateNtPtrs adds any variable with generated bounds to the set of
// null-terminated pointers.
func (a *Analysis) updateNtPtrs(gen BoundsMap) {
	for _, v := range gen.Vars() {
		a.allNtPtrs.Add(v)
	}
}

// rangeOf returns b as a range over v. Count bounds are expanded to
// bounds(v, v + n) and missing bounds default to count(0).
func (a *Analysis) rangeOf(v *ast.VarDecl, b ast.BoundsExpr) *Range {
	switch b := b.(type) {
	case *ast.RangeBoundsExpr:
		return &Range{Lower: b.Lower, Upper: b.Upper}
	case *ast.CountBoundsExpr:
		return &Range{
			Lower: ast.EnsureRValue(ast.CreateVarUse(v)),
			Upper: ast.CreateBinaryOperator(ast.CreateVarUse(v), b.Count, ast.ADD),
		}
	default:
		zero := ast.CreateIntegerLiteral(a.ctx, a.ctx.NewInt(0), ast.IntType)
		return &Range{
			Lower: ast.EnsureRValue(ast.CreateVarUse(v)),
			Upper: ast.CreateBinaryOperator(ast.CreateVarUse(v), zero, ast.ADD),
		}
	}
}

// initInOutSets seeds the entry In with the declared bounds of parameters
// and every other set with Top.
func (a *Analysis) initInOutSets() {
	top := NewBoundsMap()
	for _, v := range a.allNtPtrs.Vars() {
		top = top.Set(v, Top{})
	}

	for _, st := range a.states {
		st.in, st.out = top, top
	}

	in := NewBoundsMap()
	for _, v := range a.fn.Params {
		if r := a.declared[v]; r != nil {
			in = in.Set(v, r)
		}
	}
	a.states[a.g.Entry.ID].in = in
}

// computeInSet returns the intersection of the Out sets of the predecessors
// of a block, pruned along each edge.
func (a *Analysis) computeInSet(st *blockState) BoundsMap {
	var in BoundsMap
	var seen bool
	for _, pred := range st.block.Preds {
		if a.skipBlock(pred) {
			continue
		}

		out := a.pruneOutSet(a.states[pred.ID], st)
		if !seen {
			in, seen = out, true
			continue
		}
		in = a.Intersect(in, out)
	}

	if !seen {
		return st.in
	}
	return in
}

// computeOutSet returns (In - Kill) ∪ Gen restricted to null-terminated pointers.
func (a *Analysis) computeOutSet(st *blockState) BoundsMap {
	return st.in.Difference(st.kill).Union(st.gen).Restrict(a.allNtPtrs)
}

// Intersect returns the bounds that hold in both m1 and m2. Top is the
// identity and of two ranges the narrower one is kept. Variables missing
// from either side or with incomparable ranges are dropped.
func (a *Analysis) Intersect(m1, m2 BoundsMap) BoundsMap {
	result := NewBoundsMap()
	m1.Each(func(v *ast.VarDecl, b1 Bounds) {
		b2, ok := m2.Get(v)
		if !ok {
			return
		}

		if a.IsSubRange(b1, b2) {
			result = result.Set(v, b2)
		} else if a.IsSubRange(b2, b1) {
			result = result.Set(v, b1)
		}
	})
	return result
}

// IsSubRange returns true if b2 is contained in b1. Ranges are compared by
// their canonical forms: the lower bounds must be equal and the upper bound
// of b2 must not exceed the upper bound of b1 by a constant.
func (a *Analysis) IsSubRange(b1, b2 Bounds) bool {
	if IsTop(b1) {
		return true
	} else if IsTop(b2) {
		return false
	}

	r1, r2 := b1.(*Range), b2.(*Range)
	if !a.equal(r1.Lower, r2.Lower) {
		return false
	}
	offset, ok := a.offset(r1.Upper, r2.Upper)
	return ok && offset <= 0
}

// canonical returns the normalized tree of e, or nil if e cannot be
// canonicalized.
func (a *Analysis) canonical(e ast.Expr) *preorder.AST {
	if c, ok := a.canon[e]; ok {
		return c
	}
	c, err := preorder.Canonicalize(a.ctx, e)
	if err != nil {
		log.Printf("[widen] cannot canonicalize %s: %s", ast.String(e), err)
		c = nil
	}
	a.canon[e] = c
	return c
}

// equal returns true if x and y have the same canonical form.
func (a *Analysis) equal(x, y ast.Expr) bool {
	cx, cy := a.canonical(x), a.canonical(y)
	return cx != nil && cy != nil && cx.Equal(cy)
}

// offset returns the constant k such that deref is upper + k.
func (a *Analysis) offset(upper, deref ast.Expr) (int64, bool) {
	cu, cd := a.canonical(upper), a.canonical(deref)
	if cu == nil || cd == nil {
		return 0, false
	}
	return preorder.GetDerefOffset(cu, cd)
}

// StmtIn returns the bounds that hold before s executes in block b.
func (a *Analysis) StmtIn(b *cfg.Block, s ast.Stmt) BoundsMap {
	st := a.states[b.ID]
	i := st.indexOf(s)
	assert(i >= 0, "statement not in block %s", b)
	return st.stmtIn(i).Restrict(a.allNtPtrs)
}

// StmtOut returns the bounds that hold after s executes in block b.
func (a *Analysis) StmtOut(b *cfg.Block, s ast.Stmt) BoundsMap {
	st := a.states[b.ID]
	i := st.indexOf(s)
	assert(i >= 0, "statement not in block %s", b)
	return st.stmtOut(i).Restrict(a.allNtPtrs)
}

// In returns the bounds that hold on entry to b.
func (a *Analysis) In(b *cfg.Block) BoundsMap { return a.states[b.ID].in }

// Out returns the bounds that hold on exit from b, before pruning.
func (a *Analysis) Out(b *cfg.Block) BoundsMap { return a.states[b.ID].out }

// orderedBlocks returns the blocks in descending ID order.
func (a *Analysis) orderedBlocks() []*cfg.Block {
	blocks := make([]*cfg.Block, 0, len(a.g.Blocks))
	for i := len(a.g.Blocks) - 1; i >= 0; i-- {
		blocks = append(blocks, a.g.Blocks[i])
	}
	return blocks
}
