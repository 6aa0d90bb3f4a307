package hnsw

import "container/heap"

// candidate pairs a node id with its distance to the current query point.
type candidate struct {
	id   uint32
	dist float64
}

// candidateHeap implements heap.Interface over candidates. The max flag
// flips the ordering: min-heaps drive the search frontier, a max-heap
// bounds the result set at ef entries.
type candidateHeap struct {
	items []candidate
	max   bool
}

func (h *candidateHeap) Len() int { return len(h.items) }

func (h *candidateHeap) Less(a, b int) bool {
	if h.max {
		return h.items[a].dist > h.items[b].dist
	}
	return h.items[a].dist < h.items[b].dist
}

func (h *candidateHeap) Swap(a, b int) { h.items[a], h.items[b] = h.items[b], h.items[a] }

func (h *candidateHeap) Push(x any) { h.items = append(h.items, x.(candidate)) }

func (h *candidateHeap) Pop() any {
	last := len(h.items) - 1
	c := h.items[last]
	h.items = h.items[:last]
	return c
}

// queue is a thin wrapper hiding heap.Interface mechanics from the search code.
type queue struct {
	h *candidateHeap
}

func newMinQueue() *queue { return &queue{h: &candidateHeap{}} }
func newMaxQueue() *queue { return &queue{h: &candidateHeap{max: true}} }

func (q *queue) len() int { return q.h.Len() }

func (q *queue) push(c candidate) { heap.Push(q.h, c) }

func (q *queue) pop() candidate { return heap.Pop(q.h).(candidate) }

func (q *queue) peek() candidate { return q.h.items[0] }

func (q *queue) drain() []candidate { return q.h.items }
