// Package dag implements the string-keyed directed acyclic graph backing
// both the package and construct dependency graphs. Identity (content-hash
// dids) stays with the caller; the graph only deals in opaque node IDs.
package dag

import (
	"fmt"

	"github.com/vk/runbookgo/internal/diagnostics"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.order = append(g.order, id)
}

// HasNode reports whether a node with the given ID exists.
func (g *Graph) HasNode(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Len returns the node count.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// Nodes returns every node id in insertion order.
func (g *Graph) Nodes() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. Adding an
// existing edge is a no-op. An error is returned if either node does not
// exist or if the edge would create a self-reference.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return &diagnostics.CycleError{Members: []string{fromID}}
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode

	return nil
}

// RemoveEdge deletes the edge from `fromID` to `toID` if it exists. The
// graph builder uses this to detach a construct from the synthetic root
// once a real dependency edge is attached.
func (g *Graph) RemoveEdge(fromID, toID string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if fromNode, ok := g.nodes[fromID]; ok {
		delete(fromNode.dependents, toID)
	}
	if toNode, ok := g.nodes[toID]; ok {
		delete(toNode.deps, fromID)
	}
}

// HasEdge reports whether an edge from `fromID` to `toID` exists.
func (g *Graph) HasEdge(fromID, toID string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return false
	}
	_, ok = fromNode.dependents[toID]
	return ok
}

// Dependencies returns a slice of node IDs that the given node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}

	deps := make([]string, 0, len(n.deps))
	for depID := range n.deps {
		deps = append(deps, depID)
	}
	return deps, nil
}

// Dependents returns a slice of node IDs that depend on the given node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}

	dependents := make([]string, 0, len(n.dependents))
	for depID := range n.dependents {
		dependents = append(dependents, depID)
	}
	return dependents, nil
}

// Descendants returns every node reachable downstream of the given node.
// With recursive=false only direct dependents are returned. The result is
// ordered by discovery (breadth-first).
func (g *Graph) Descendants(id string, recursive bool) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	start, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}

	var out []string
	seen := make(map[string]bool)
	queue := []*node{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, dep := range g.sortedByInsertion(n.dependents) {
			if seen[dep.id] {
				continue
			}
			seen[dep.id] = true
			out = append(out, dep.id)
			if recursive {
				queue = append(queue, dep)
			}
		}
	}
	return out, nil
}

// Ancestors returns every node reachable upstream of the given node,
// ordered by discovery (breadth-first).
func (g *Graph) Ancestors(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	start, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}

	var out []string
	seen := make(map[string]bool)
	queue := []*node{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, dep := range g.sortedByInsertion(n.deps) {
			if seen[dep.id] {
				continue
			}
			seen[dep.id] = true
			out = append(out, dep.id)
			queue = append(queue, dep)
		}
	}
	return out, nil
}

// sortedByInsertion orders a node set by graph insertion order. Callers must
// hold at least a read lock.
func (g *Graph) sortedByInsertion(set map[string]*node) []*node {
	out := make([]*node, 0, len(set))
	for _, id := range g.order {
		if n, ok := set[id]; ok {
			out = append(out, n)
		}
	}
	return out
}
