package ntbounds

import (
	"github.com/benbjohnson/ntbounds/ast"
	"github.com/benbjohnson/ntbounds/cfg"
)

// pruneOutSet returns the Out set of pred as seen along the edge to curr.
// Bounds widened by the terminator dereference of pred only hold on edges
// where the dereferenced element is known to be non-null. Elsewhere they are
// restored to the bounds that held before the terminator condition.
func (a *Analysis) pruneOutSet(pred, curr *blockState) BoundsMap {
	out := pred.out
	if pred.termDeref == nil || len(pred.candidates) == 0 {
		return out
	}

	stmtIn := pred.stmtIn(pred.lastIndex())

	var keep func(c candidate) bool
	if sw, ok := pred.block.Terminator.(*ast.SwitchStmt); ok {
		widen := a.switchEdgeWidens(sw, pred.block, curr.block)
		keep = func(c candidate) bool { return widen && a.canWiden(stmtIn, c) }
	} else {
		isTrue := isTrueEdge(pred.block, curr.block)
		keep = func(c candidate) bool { return isTrue && a.canWiden(stmtIn, c) }
	}

	for _, c := range pred.candidates {
		if keep(c) {
			continue
		}
		if b, ok := stmtIn.Get(c.v); ok {
			out = out.Set(c.v, b)
		} else {
			out = out.Delete(c.v)
		}
	}
	return out
}

// canWiden returns true if the bounds of c.v before the terminator allow the
// dereference to widen them: either they are unconstrained or they already
// extend exactly to the dereferenced element.
func (a *Analysis) canWiden(stmtIn BoundsMap, c candidate) bool {
	b, ok := stmtIn.Get(c.v)
	if !ok {
		return false
	} else if IsTop(b) {
		return true
	}

	r, decl := b.(*Range), a.declared[c.v]
	if !a.equal(r.Lower, decl.Lower) {
		return false
	}
	offset, ok := a.offset(decl.Upper, r.Upper)
	return ok && offset == c.offset
}

// switchEdgeWidens returns true if the edge from a switch block to curr
// implies that the switch condition is non-null.
func (a *Analysis) switchEdgeWidens(sw *ast.SwitchStmt, pred, curr *cfg.Block) bool {
	if c, ok := curr.Label.(*ast.CaseStmt); ok && isSwitchCaseBlock(pred, curr) {
		return !a.caseLabelTestsForNull(c)
	}

	// The default label or the implicit edge past a switch without one is
	// only non-null if null is handled by a case.
	return a.existsNullCaseLabel(pred)
}

// isTrueEdge returns true if curr is the true successor of pred.
func isTrueEdge(pred, curr *cfg.Block) bool {
	return len(pred.Succs) > 1 && pred.Succs[0] == curr
}

// isSwitchCaseBlock returns true if curr is labelled by a case or default
// of the switch terminating pred.
func isSwitchCaseBlock(pred, curr *cfg.Block) bool {
	if _, ok := pred.Terminator.(*ast.SwitchStmt); !ok || curr.Label == nil {
		return false
	}
	for _, succ := range pred.Succs {
		if succ == curr {
			return true
		}
	}
	return false
}

// caseLabelTestsForNull returns true if the case label matches zero. Labels
// that cannot be evaluated are assumed to match zero.
func (a *Analysis) caseLabelTestsForNull(c *ast.CaseStmt) bool {
	lo, ok := a.ctx.EvaluateInt(c.LHS)
	if !ok {
		return true
	}
	if c.RHS == nil {
		return lo.IsZero()
	}

	hi, ok := a.ctx.EvaluateInt(c.RHS)
	if !ok {
		return true
	}
	return lo.Int64() <= 0 && hi.Int64() >= 0
}

// existsNullCaseLabel returns true if any case of the switch terminating b
// matches zero.
func (a *Analysis) existsNullCaseLabel(b *cfg.Block) bool {
	for _, succ := range b.Succs {
		if c, ok := succ.Label.(*ast.CaseStmt); ok && a.caseLabelTestsForNull(c) {
			return true
		}
	}
	return false
}
