package ntbounds

import (
	"github.com/benbjohnson/ntbounds/ast"
	"github.com/benbjohnson/ntbounds/cfg"
)

// blockState holds the dataflow sets of a single block.
type blockState struct {
	block *cfg.Block

	in   BoundsMap
	out  BoundsMap
	gen  BoundsMap
	kill *VarSet

	// Per-statement sets indexed by position in the block. The union sets
	// accumulate the statement sets from the start of the block.
	stmtGen   []BoundsMap
	stmtKill  []*VarSet
	unionGen  []BoundsMap
	unionKill []*VarSet

	// Dereference tested by the terminator condition, if any, and the
	// bounds it implies on the true edge.
	termDeref  ast.Expr
	candidates []candidate
}

// candidate is the widened bounds of a variable implied by a terminator
// dereference at the given offset from its declared upper bound.
type candidate struct {
	v      *ast.VarDecl
	offset int64
	bounds *Range
}

func newBlockState(b *cfg.Block) *blockState {
	n := len(b.Stmts)
	return &blockState{
		block:     b,
		kill:      NewVarSet(),
		stmtGen:   make([]BoundsMap, n),
		stmtKill:  make([]*VarSet, n),
		unionGen:  make([]BoundsMap, n),
		unionKill: make([]*VarSet, n),
	}
}

// lastIndex returns the index of the last statement or -1 if empty.
func (st *blockState) lastIndex() int {
	return len(st.block.Stmts) - 1
}

// stmtIn returns the bounds that hold before statement i executes.
func (st *blockState) stmtIn(i int) BoundsMap {
	assert(i >= 0 && i <= len(st.block.Stmts), "statement index out of range: %d", i)
	if i == 0 {
		return st.in
	}
	return st.in.Difference(st.unionKill[i-1]).Union(st.unionGen[i-1])
}

// stmtOut returns the bounds that hold after statement i executes.
func (st *blockState) stmtOut(i int) BoundsMap {
	return st.stmtIn(i + 1)
}

// indexOf returns the position of s within the block or -1.
func (st *blockState) indexOf(s ast.Stmt) int {
	for i, other := range st.block.Stmts {
		if other == s {
			return i
		}
	}
	return -1
}
