package ntbounds

import (
	"github.com/benbjohnson/ntbounds/ast"
)

// computeGenKillSets computes the statement, union and block Gen and Kill
// sets of every analysed block.
func (a *Analysis) computeGenKillSets() {
	for _, st := range a.states {
		if a.skipBlock(st.block) {
			continue
		}

		st.termDeref = a.derefExpr(a.terminatorCondition(st))
		for i, s := range st.block.Stmts {
			a.computeStmtGenKillSets(st, i, s)
			a.computeUnionGenKillSets(st, i)
		}
		a.computeBlockGenKillSets(st)
	}
}

// computeStmtGenKillSets computes the bounds generated and the variables
// killed by statement i. Later rules take precedence over earlier ones: the
// terminator dereference, then modified variables, then declarations and
// finally where clauses.
func (a *Analysis) computeStmtGenKillSets(st *blockState, i int, s ast.Stmt) {
	gen, kill := NewBoundsMap(), NewVarSet()

	var candidates []candidate
	if i == st.lastIndex() && st.termDeref != nil {
		candidates = a.varsToWiden(st.termDeref)
		for _, c := range candidates {
			gen = gen.Set(c.v, c.bounds)
		}
	}

	// A write to any variable in the declared bounds of V resets V.
	for _, w := range modifiedVars(s) {
		for _, v := range a.boundsVars[w].Vars() {
			kill.Add(v)
			gen = gen.Set(v, a.declared[v])
		}
	}

	if s, ok := s.(*ast.DeclStmt); ok {
		for _, v := range s.Decls {
			if r := a.declared[v]; r != nil {
				kill.Add(v)
				gen = gen.Set(v, r)
			}
		}
	}

	if where := whereClause(s); where != nil {
		for _, fact := range where.Facts {
			if !fact.Var.Type.IsNtArrayPtr() {
				continue
			}
			kill.Add(fact.Var)
			gen = gen.Set(fact.Var, a.rangeOf(fact.Var, fact.Bounds))
		}
	}

	// Candidates overridden by this statement are no longer widened.
	for _, c := range candidates {
		if !kill.Has(c.v) {
			st.candidates = append(st.candidates, c)
		}
	}

	st.stmtGen[i], st.stmtKill[i] = gen, kill
	a.updateNtPtrs(gen)
}

// computeUnionGenKillSets accumulates the statement sets from the start of
// the block through statement i.
func (a *Analysis) computeUnionGenKillSets(st *blockState, i int) {
	if i == 0 {
		st.unionGen[i] = st.stmtGen[i]
		st.unionKill[i] = st.stmtKill[i]
		return
	}
	st.unionGen[i] = st.unionGen[i-1].Difference(st.stmtKill[i]).Union(st.stmtGen[i])
	st.unionKill[i] = st.unionKill[i-1].Union(st.stmtKill[i])
}

// computeBlockGenKillSets sets the block sets to the union sets of the last
// statement.
func (a *Analysis) computeBlockGenKillSets(st *blockState) {
	last := st.lastIndex()
	if last < 0 {
		st.gen, st.kill = NewBoundsMap(), NewVarSet()
		return
	}
	st.gen, st.kill = st.unionGen[last], st.unionKill[last]
}

// modifiedVars returns the variables written by s. Declared variables count
// as written.
func modifiedVars(s ast.Stmt) []*ast.VarDecl {
	switch s := s.(type) {
	case ast.Expr:
		return ast.ModifiedVars(s)
	case *ast.DeclStmt:
		var vars []*ast.VarDecl
		for _, v := range s.Decls {
			if v.Init != nil {
				vars = append(vars, ast.ModifiedVars(v.Init)...)
			}
			vars = append(vars, v)
		}
		return vars
	case *ast.ReturnStmt:
		if s.Result != nil {
			return ast.ModifiedVars(s.Result)
		}
	}
	return nil
}

// whereClause returns the where clause attached to s, if any.
func whereClause(s ast.Stmt) *ast.WhereClause {
	switch s := s.(type) {
	case *ast.DeclStmt:
		return s.Where
	case *ast.NullStmt:
		return s.Where
	default:
		return nil
	}
}

// terminatorCondition returns the condition tested at the end of the block.
// For && and || the right operand is used since it is the operand evaluated
// last in the block.
func (a *Analysis) terminatorCondition(st *blockState) ast.Expr {
	cond := st.block.TerminatorCondition()
	for cond != nil {
		e, ok := ast.IgnoreParens(cond).(*ast.BinaryOperator)
		if !ok || (e.Op != ast.LAND && e.Op != ast.LOR) {
			break
		}
		cond = e.RHS
	}
	return cond
}

// derefExpr returns the dereference tested by cond. Accepted forms are *e,
// e1[e2], *e != 0 and 0 != *e. Returns nil otherwise.
func (a *Analysis) derefExpr(cond ast.Expr) ast.Expr {
	if cond == nil {
		return nil
	}

	switch e := ast.IgnoreCasts(cond).(type) {
	case *ast.UnaryOperator:
		if e.Op == ast.DEREF {
			return e
		}
	case *ast.ArraySubscriptExpr:
		return e
	case *ast.BinaryOperator:
		if e.Op != ast.NE {
			return nil
		}
		if a.isZero(e.RHS) {
			return a.plainDeref(e.LHS)
		} else if a.isZero(e.LHS) {
			return a.plainDeref(e.RHS)
		}
	}
	return nil
}

// plainDeref returns e if it is a dereference or subscript after stripping
// parens and casts.
func (a *Analysis) plainDeref(e ast.Expr) ast.Expr {
	switch e := ast.IgnoreCasts(e).(type) {
	case *ast.UnaryOperator:
		if e.Op == ast.DEREF {
			return e
		}
	case *ast.ArraySubscriptExpr:
		return e
	}
	return nil
}

func (a *Analysis) isZero(e ast.Expr) bool {
	v, ok := a.ctx.EvaluateInt(e)
	return ok && v.IsZero()
}

// derefPointer returns the pointer read by a dereference or subscript.
func derefPointer(deref ast.Expr) ast.Expr {
	switch e := deref.(type) {
	case *ast.UnaryOperator:
		return e.X
	case *ast.ArraySubscriptExpr:
		return &ast.BinaryOperator{Op: ast.ADD, LHS: e.Base, RHS: e.Index}
	default:
		return nil
	}
}

// varsToWiden returns the widened bounds implied by a non-null deref for
// every null-terminated pointer occurring in it. A pointer qualifies when
// deref reads at its declared upper bound plus a non-negative constant k;
// its bounds are then widened to the declared upper bound plus k+1.
func (a *Analysis) varsToWiden(deref ast.Expr) []candidate {
	ptr := derefPointer(deref)
	if ptr == nil {
		return nil
	}

	var candidates []candidate
	for _, v := range ast.Vars(deref) {
		decl := a.declared[v]
		if decl == nil {
			continue
		}

		k, ok := a.offset(decl.Upper, ptr)
		if !ok || k < 0 {
			continue
		}
		r := a.widenedExpr(decl, k+1)
		if r == nil {
			continue
		}
		candidates = append(candidates, candidate{v: v, offset: k, bounds: r})
	}
	return candidates
}

// widenedExpr returns the declared range with n added to its upper bound.
// Returns nil if n does not fit in an int.
func (a *Analysis) widenedExpr(decl *Range, n int64) *Range {
	lit := ast.CreateIntegerLiteral(a.ctx, ast.NewSignedInt(n, ast.Width64), ast.IntType)
	if lit == nil {
		return nil
	}
	return &Range{
		Lower: decl.Lower,
		Upper: ast.CreateBinaryOperator(decl.Upper, lit, ast.ADD),
	}
}
