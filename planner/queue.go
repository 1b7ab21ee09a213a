package planner

import (
	"container/heap"

	"github.com/viam-modules/viam-localnav/grid"
)

// node is one open-set entry. Entries are never updated in place; a cheaper route to a
// cell pushes a new entry and the stale one is skipped when popped.
type node struct {
	cell grid.Cell
	g    float64
	f    float64
	seq  int
}

// nodeQueue is a min-heap on f. Ties fall back to insertion order.
type nodeQueue struct {
	nodes []*node
	next  int
}

func (q nodeQueue) Len() int { return len(q.nodes) }

func (q nodeQueue) Less(i, j int) bool {
	if q.nodes[i].f != q.nodes[j].f {
		return q.nodes[i].f < q.nodes[j].f
	}
	return q.nodes[i].seq < q.nodes[j].seq
}

func (q nodeQueue) Swap(i, j int) { q.nodes[i], q.nodes[j] = q.nodes[j], q.nodes[i] }

func (q *nodeQueue) Push(x interface{}) {
	q.nodes = append(q.nodes, x.(*node))
}

func (q *nodeQueue) Pop() interface{} {
	old := q.nodes
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	q.nodes = old[:n-1]
	return x
}

func (q *nodeQueue) push(cell grid.Cell, g, f float64) {
	q.next++
	heap.Push(q, &node{cell: cell, g: g, f: f, seq: q.next})
}

func (q *nodeQueue) pop() *node {
	return heap.Pop(q).(*node)
}
