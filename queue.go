package ntbounds

import (
	"github.com/benbjohnson/ntbounds/cfg"
	"golang.org/x/tools/container/intsets"
)

// queueSet represents a first-in, first-out worklist of blocks. A block is
// held at most once.
type queueSet struct {
	blocks []*cfg.Block
	queued intsets.Sparse
}

// newQueueSet returns a new instance of queueSet.
func newQueueSet() *queueSet {
	return &queueSet{}
}

// Push adds b to the end of the queue unless it is already queued.
func (q *queueSet) Push(b *cfg.Block) {
	if q.queued.Insert(b.ID) {
		q.blocks = append(q.blocks, b)
	}
}

// Pop removes and returns the block at the front of the queue.
// Returns nil if the queue is empty.
func (q *queueSet) Pop() *cfg.Block {
	if len(q.blocks) == 0 {
		return nil
	}
	b := q.blocks[0]
	q.blocks = q.blocks[1:]
	q.queued.Remove(b.ID)
	return b
}

// Len returns the number of queued blocks.
func (q *queueSet) Len() int {
	return len(q.blocks)
}
