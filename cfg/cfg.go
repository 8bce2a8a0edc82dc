// Package cfg builds control flow graphs for function bodies.
//
// The graph follows the same conventions as the clang CFG: the entry block
// holds no statements and has the highest ID, the exit block has ID 0, the
// condition of a branch is the last statement of its block and the
// successors of a conditional block are ordered [true, false]. Short-circuit
// operators are split so that each operand is evaluated in its own block.
package cfg

import (
	"errors"
	"fmt"
	"io"

	"github.com/benbjohnson/ntbounds/ast"
	"github.com/willf/bitset"
)

var (
	// ErrNotInLoop is returned when a break or continue has no target.
	ErrNotInLoop = errors.New("cfg: statement not within loop or switch")

	// ErrNotInSwitch is returned when a case or default label is not within a switch.
	ErrNotInSwitch = errors.New("cfg: label not within switch")
)

// Block represents a basic block.
type Block struct {
	ID int

	// Statements and expressions evaluated in order. The condition of a
	// conditional terminator is the last element.
	Stmts []ast.Stmt

	Preds []*Block
	Succs []*Block

	// Statement that transfers control out of the block. One of IfStmt,
	// WhileStmt, DoStmt, ForStmt, SwitchStmt or a && or || BinaryOperator.
	Terminator ast.Stmt

	// Case or default label that starts the block, if any.
	Label ast.Stmt
}

// String returns the block's name.
func (b *Block) String() string {
	return fmt.Sprintf("B%d", b.ID)
}

// LastStmt returns the last statement of the block, or nil if empty.
func (b *Block) LastStmt() ast.Stmt {
	if len(b.Stmts) == 0 {
		return nil
	}
	return b.Stmts[len(b.Stmts)-1]
}

// TerminatorCondition returns the condition tested by the terminator. For &&
// and || terminators this is the left operand. Returns nil if the block does
// not end in a conditional branch.
func (b *Block) TerminatorCondition() ast.Expr {
	switch t := b.Terminator.(type) {
	case *ast.IfStmt:
		return t.Cond
	case *ast.WhileStmt:
		return t.Cond
	case *ast.DoStmt:
		return t.Cond
	case *ast.ForStmt:
		return t.Cond
	case *ast.SwitchStmt:
		return t.Cond
	case *ast.BinaryOperator:
		if t.Op == ast.LAND || t.Op == ast.LOR {
			return t.LHS
		}
	}
	return nil
}

func link(from, to *Block) {
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}

// CFG represents the control flow graph of a single function.
type CFG struct {
	Entry *Block
	Exit  *Block

	// Blocks indexed by ID.
	Blocks []*Block
}

// Reachable returns the set of block IDs reachable from the entry block.
func (g *CFG) Reachable() *bitset.BitSet {
	seen := bitset.New(uint(len(g.Blocks)))
	stack := []*Block{g.Entry}
	seen.Set(uint(g.Entry.ID))
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, succ := range b.Succs {
			if !seen.Test(uint(succ.ID)) {
				seen.Set(uint(succ.ID))
				stack = append(stack, succ)
			}
		}
	}
	return seen
}

// ReversePostOrder returns the blocks reachable from the entry in reverse
// post-order.
func (g *CFG) ReversePostOrder() []*Block {
	seen := bitset.New(uint(len(g.Blocks)))
	var post []*Block

	var visit func(b *Block)
	visit = func(b *Block) {
		seen.Set(uint(b.ID))
		for _, succ := range b.Succs {
			if !seen.Test(uint(succ.ID)) {
				visit(succ)
			}
		}
		post = append(post, b)
	}
	visit(g.Entry)

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// Dump writes a textual representation of the graph to w, highest ID first.
func (g *CFG) Dump(w io.Writer) error {
	for i := len(g.Blocks) - 1; i >= 0; i-- {
		b := g.Blocks[i]

		name := b.String()
		if b == g.Entry {
			name += " (ENTRY)"
		} else if b == g.Exit {
			name += " (EXIT)"
		}
		if _, err := fmt.Fprintln(w, name); err != nil {
			return err
		}

		if b.Label != nil {
			if _, err := fmt.Fprintf(w, "  %s\n", ast.String(b.Label)); err != nil {
				return err
			}
		}
		for j, s := range b.Stmts {
			if _, err := fmt.Fprintf(w, "  %d: %s\n", j+1, ast.String(s)); err != nil {
				return err
			}
		}
		if b.Terminator != nil {
			if _, err := fmt.Fprintf(w, "  T: %s\n", ast.String(b.Terminator)); err != nil {
				return err
			}
		}
		if len(b.Preds) > 0 {
			if _, err := fmt.Fprintf(w, "  Preds: %s\n", blockList(b.Preds)); err != nil {
				return err
			}
		}
		if len(b.Succs) > 0 {
			if _, err := fmt.Fprintf(w, "  Succs: %s\n", blockList(b.Succs)); err != nil {
				return err
			}
		}
	}
	return nil
}

func blockList(a []*Block) string {
	var s string
	for i, b := range a {
		if i > 0 {
			s += " "
		}
		s += b.String()
	}
	return s
}

// Build returns the control flow graph for the body of fn.
func Build(fn *ast.Function) (*CFG, error) {
	b := &builder{entered: make(map[*Block]bool)}

	entry := b.newBlock()
	b.enter(entry)
	b.exit = b.newBlock()

	body := b.newBlock()
	b.jump(body)
	b.enter(body)
	if fn.Body != nil {
		b.stmt(fn.Body)
	}
	b.jump(b.exit)

	if b.err != nil {
		return nil, b.err
	}
	return b.finish(entry), nil
}

type builder struct {
	blocks  []*Block // creation order
	order   []*Block // order in which blocks became current
	entered map[*Block]bool

	cur  *Block
	exit *Block

	breaks    []*Block
	continues []*Block
	switches  []*switchState

	err error
}

type switchState struct {
	block      *Block
	hasDefault bool
}

func (b *builder) newBlock() *Block {
	blk := &Block{}
	b.blocks = append(b.blocks, blk)
	return blk
}

// enter makes blk the current block.
func (b *builder) enter(blk *Block) {
	if !b.entered[blk] {
		b.entered[blk] = true
		b.order = append(b.order, blk)
	}
	b.cur = blk
}

// current returns the current block. Statements following a jump are placed
// in a new block without predecessors.
func (b *builder) current() *Block {
	if b.cur == nil {
		b.enter(b.newBlock())
	}
	return b.cur
}

// jump links the current block to target and clears the current block.
func (b *builder) jump(target *Block) {
	if b.cur != nil {
		link(b.cur, target)
	}
	b.cur = nil
}

// finish assigns IDs in reverse order of entry with the exit block last.
func (b *builder) finish(entry *Block) *CFG {
	order := make([]*Block, 0, len(b.blocks))
	for _, blk := range b.order {
		if blk != b.exit {
			order = append(order, blk)
		}
	}
	for _, blk := range b.blocks {
		if !b.entered[blk] && blk != b.exit {
			order = append(order, blk)
		}
	}
	order = append(order, b.exit)

	g := &CFG{Entry: entry, Exit: b.exit, Blocks: make([]*Block, len(order))}
	for i, blk := range order {
		blk.ID = len(order) - 1 - i
		g.Blocks[blk.ID] = blk
	}
	return g
}

func (b *builder) stmt(s ast.Stmt) {
	if b.err != nil {
		return
	}

	switch s := s.(type) {
	case nil:
	case *ast.CompoundStmt:
		for _, child := range s.List {
			b.stmt(child)
		}

	case *ast.NullStmt:
		if s.Where != nil {
			blk := b.current()
			blk.Stmts = append(blk.Stmts, s)
		}

	case *ast.IfStmt:
		then, after := b.newBlock(), b.newBlock()
		els := after
		if s.Else != nil {
			els = b.newBlock()
		}
		b.branch(s.Cond, s, then, els)

		b.enter(then)
		b.stmt(s.Then)
		b.jump(after)

		if s.Else != nil {
			b.enter(els)
			b.stmt(s.Else)
			b.jump(after)
		}
		b.enter(after)

	case *ast.WhileStmt:
		head, body, after := b.newBlock(), b.newBlock(), b.newBlock()
		b.jump(head)
		b.enter(head)
		b.branch(s.Cond, s, body, after)

		b.enter(body)
		b.loop(after, head, s.Body)
		b.jump(head)
		b.enter(after)

	case *ast.DoStmt:
		body, cond, after := b.newBlock(), b.newBlock(), b.newBlock()
		b.jump(body)
		b.enter(body)
		b.loop(after, cond, s.Body)
		b.jump(cond)

		b.enter(cond)
		b.branch(s.Cond, s, body, after)
		b.enter(after)

	case *ast.ForStmt:
		if s.Init != nil {
			b.stmt(s.Init)
		}

		head, body, after := b.newBlock(), b.newBlock(), b.newBlock()
		cont := head
		if s.Inc != nil {
			cont = b.newBlock()
		}

		b.jump(head)
		b.enter(head)
		if s.Cond != nil {
			b.branch(s.Cond, s, body, after)
		} else {
			b.jump(body)
		}

		b.enter(body)
		b.loop(after, cont, s.Body)

		if s.Inc != nil {
			b.jump(cont)
			b.enter(cont)
			cont.Stmts = append(cont.Stmts, s.Inc)
		}
		b.jump(head)
		b.enter(after)

	case *ast.SwitchStmt:
		sw := b.current()
		sw.Stmts = append(sw.Stmts, s.Cond)
		sw.Terminator = s
		b.cur = nil

		after := b.newBlock()
		state := &switchState{block: sw}
		b.switches = append(b.switches, state)
		b.breaks = append(b.breaks, after)

		b.stmt(s.Body)
		b.jump(after)

		b.switches = b.switches[:len(b.switches)-1]
		b.breaks = b.breaks[:len(b.breaks)-1]

		if !state.hasDefault {
			link(sw, after)
		}
		b.enter(after)

	case *ast.CaseStmt:
		b.label(s, false)
		b.stmt(s.Sub)

	case *ast.DefaultStmt:
		b.label(s, true)
		b.stmt(s.Sub)

	case *ast.BreakStmt:
		if len(b.breaks) == 0 {
			b.err = fmt.Errorf("%w: break", ErrNotInLoop)
			return
		}
		b.current()
		b.jump(b.breaks[len(b.breaks)-1])

	case *ast.ContinueStmt:
		if len(b.continues) == 0 {
			b.err = fmt.Errorf("%w: continue", ErrNotInLoop)
			return
		}
		b.current()
		b.jump(b.continues[len(b.continues)-1])

	case *ast.ReturnStmt:
		blk := b.current()
		blk.Stmts = append(blk.Stmts, s)
		b.jump(b.exit)

	default:
		blk := b.current()
		blk.Stmts = append(blk.Stmts, s)
	}
}

// loop builds body with the given break and continue targets.
func (b *builder) loop(brk, cont *Block, body ast.Stmt) {
	b.breaks = append(b.breaks, brk)
	b.continues = append(b.continues, cont)
	b.stmt(body)
	b.breaks = b.breaks[:len(b.breaks)-1]
	b.continues = b.continues[:len(b.continues)-1]
}

// label starts a new block for a case or default label of the innermost
// switch. The previous block falls through into it.
func (b *builder) label(s ast.Stmt, isDefault bool) {
	if len(b.switches) == 0 {
		b.err = fmt.Errorf("%w: %s", ErrNotInSwitch, ast.String(s))
		return
	}
	state := b.switches[len(b.switches)-1]

	blk := b.newBlock()
	blk.Label = s
	b.jump(blk)
	link(state.block, blk)
	b.enter(blk)

	if isDefault {
		state.hasDefault = true
	}
}

// branch evaluates cond and transfers control to t if it is true and f
// otherwise. Short-circuit operators are split across blocks with the
// operator itself as the terminator of the block evaluating its left operand.
func (b *builder) branch(cond ast.Expr, term ast.Stmt, t, f *Block) {
	if e, ok := ast.IgnoreParens(cond).(*ast.BinaryOperator); ok {
		switch e.Op {
		case ast.LAND:
			mid := b.newBlock()
			b.branch(e.LHS, e, mid, f)
			b.enter(mid)
			b.branch(e.RHS, term, t, f)
			return
		case ast.LOR:
			mid := b.newBlock()
			b.branch(e.LHS, e, t, mid)
			b.enter(mid)
			b.branch(e.RHS, term, t, f)
			return
		}
	}

	blk := b.current()
	blk.Stmts = append(blk.Stmts, cond)
	blk.Terminator = term
	link(blk, t)
	link(blk, f)
	b.cur = nil
}
