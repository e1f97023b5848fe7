package dag

import (
	"container/heap"

	"github.com/vk/runbookgo/internal/diagnostics"
)

// DetectCycles checks the graph for any cycles. It returns a
// *diagnostics.CycleError naming every node participating in the first
// cycle found, or nil if the graph is acyclic.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Classic depth-first search with a recursion stack. When a back-edge
	// closes a cycle, the stack slice from the repeated node onward is the
	// full cycle membership.
	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	var stack []string

	var visit func(n *node) *diagnostics.CycleError
	visit = func(n *node) *diagnostics.CycleError {
		visiting[n.id] = true
		stack = append(stack, n.id)

		for _, dep := range g.sortedByInsertion(n.dependents) {
			if visiting[dep.id] {
				// Slice the stack back to the first occurrence of dep.
				for i, id := range stack {
					if id == dep.id {
						members := make([]string, len(stack)-i)
						copy(members, stack[i:])
						return &diagnostics.CycleError{Members: members}
					}
				}
				return &diagnostics.CycleError{Members: []string{dep.id}}
			}
			if !visited[dep.id] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		delete(visiting, n.id)
		visited[n.id] = true
		return nil
	}

	for _, id := range g.order {
		if !visited[id] {
			if err := visit(g.nodes[id]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Sorted returns a stable topological ordering of all nodes: among nodes
// whose dependencies are all satisfied, the one inserted earliest comes
// first, so execution order mirrors declaration order wherever the graph
// permits. An error is returned if the graph contains a cycle.
func (g *Graph) Sorted() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	position := make(map[string]int, len(g.order))
	for i, id := range g.order {
		position[id] = i
	}

	inDegree := make(map[string]int, len(g.nodes))
	ready := &nodeHeap{}
	heap.Init(ready)
	for _, id := range g.order {
		n := g.nodes[id]
		inDegree[id] = len(n.deps)
		if len(n.deps) == 0 {
			heap.Push(ready, heapEntry{position: position[id], id: id})
		}
	}

	sorted := make([]string, 0, len(g.nodes))
	for ready.Len() > 0 {
		entry := heap.Pop(ready).(heapEntry)
		sorted = append(sorted, entry.id)

		for _, dep := range g.sortedByInsertion(g.nodes[entry.id].dependents) {
			inDegree[dep.id]--
			if inDegree[dep.id] == 0 {
				heap.Push(ready, heapEntry{position: position[dep.id], id: dep.id})
			}
		}
	}

	if len(sorted) != len(g.nodes) {
		var members []string
		for _, id := range g.order {
			if inDegree[id] > 0 {
				members = append(members, id)
			}
		}
		return nil, &diagnostics.CycleError{Members: members}
	}
	return sorted, nil
}

type heapEntry struct {
	position int
	id       string
}

// nodeHeap is a min-heap over insertion position, Kahn's algorithm's ready
// queue.
type nodeHeap []heapEntry

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].position < h[j].position }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)         { *h = append(*h, x.(heapEntry)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
