package ntbounds

import (
	"fmt"
	"io"

	"github.com/benbjohnson/ntbounds/ast"
)

// BlockResult represents the widened bounds of a single block.
type BlockResult struct {
	Block int             `yaml:"block"`
	In    []WidenedBounds `yaml:"in,omitempty"`
	Stmts []StmtResult    `yaml:"stmts,omitempty"`
}

// StmtResult represents the widened bounds that hold before a statement.
type StmtResult struct {
	Index   int             `yaml:"index"`
	Stmt    string          `yaml:"stmt"`
	Widened []WidenedBounds `yaml:"widened,omitempty"`
}

// WidenedBounds represents the bounds of a pointer that differ from its
// declared bounds. Offset is set when the upper bound is the declared upper
// bound plus a constant. Otherwise Bounds holds the full range.
type WidenedBounds struct {
	Var    string `yaml:"var"`
	Offset int64  `yaml:"offset,omitempty"`
	Bounds string `yaml:"bounds,omitempty"`
}

// String returns "upper_bound(p) = N" or "bounds(p) = bounds(lo, hi)".
func (w WidenedBounds) String() string {
	if w.Bounds != "" {
		return fmt.Sprintf("bounds(%s) = %s", w.Var, w.Bounds)
	}
	return fmt.Sprintf("upper_bound(%s) = %d", w.Var, w.Offset)
}

// Widened returns the widened bounds of every analysed block in descending
// block ID order.
func (a *Analysis) Widened() []BlockResult {
	var results []BlockResult
	for _, b := range a.orderedBlocks() {
		if a.skipBlock(b) {
			continue
		}
		st := a.states[b.ID]

		result := BlockResult{Block: b.ID, In: a.widenedBounds(st.in)}
		for i, s := range b.Stmts {
			result.Stmts = append(result.Stmts, StmtResult{
				Index:   i + 1,
				Stmt:    ast.String(s),
				Widened: a.widenedBounds(st.stmtIn(i).Restrict(a.allNtPtrs)),
			})
		}
		results = append(results, result)
	}
	return results
}

// widenedBounds returns the entries of m that differ from the declared bounds.
func (a *Analysis) widenedBounds(m BoundsMap) []WidenedBounds {
	var widened []WidenedBounds
	m.Each(func(v *ast.VarDecl, b Bounds) {
		r, ok := b.(*Range)
		if !ok {
			return
		}
		decl := a.declared[v]
		if decl == nil {
			return
		}

		if a.equal(decl.Lower, r.Lower) {
			if offset, ok := a.offset(decl.Upper, r.Upper); ok {
				if offset > 0 {
					widened = append(widened, WidenedBounds{Var: v.Name, Offset: offset})
				}
				return
			}
		}
		widened = append(widened, WidenedBounds{Var: v.Name, Bounds: r.String()})
	})
	return widened
}

// DumpWidenedBounds writes the widened bounds of every block to w.
func (a *Analysis) DumpWidenedBounds(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "In function: %s\n", a.fn.Name); err != nil {
		return err
	}

	for _, result := range a.Widened() {
		if _, err := fmt.Fprintf(w, "\nBlock: B%d\n", result.Block); err != nil {
			return err
		}
		if err := dumpWidened(w, "  In:", result.In); err != nil {
			return err
		}
		for _, s := range result.Stmts {
			if err := dumpWidened(w, fmt.Sprintf("  %d: %s", s.Index, s.Stmt), s.Widened); err != nil {
				return err
			}
		}
	}
	return nil
}

func dumpWidened(w io.Writer, header string, a []WidenedBounds) error {
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	if len(a) == 0 {
		_, err := fmt.Fprintln(w, "    <no widening>")
		return err
	}
	for _, wb := range a {
		if _, err := fmt.Fprintf(w, "    %s\n", wb); err != nil {
			return err
		}
	}
	return nil
}
