// SPDX-License-Identifier: MPL-2.0

// Package dag orders the files of a workload so that every module comes
// before the files that import it, and reports import cycles.
//
// Python tolerates import cycles, but a module in a cycle may observe a
// partially initialized peer. The closure command surfaces them as
// diagnostics; they never fail a build.
package dag

import (
	"fmt"
	"strings"

	"github.com/qubernetes/q8s/pkg/fspath"
	"github.com/qubernetes/q8s/pkg/workload"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle lists the nodes left unordered: every node on a cycle and
		// every node that depends on one, in insertion order.
		Cycle []string
	}

	// Graph is a directed graph for topological sorting. An edge from A to
	// B means A must load before B.
	Graph struct {
		adjacency map[string][]string
		// nodes tracks all nodes in insertion order for deterministic output.
		nodes   []string
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("import cycle among: %s", strings.Join(e.Cycle, ", "))
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// ImportGraph returns the load-order graph of w keyed by relative path.
// Nodes are added in file order; self-imports are dropped.
func ImportGraph(w *workload.Workload) (*Graph, error) {
	g := New()
	for _, f := range w.Files() {
		g.AddNode(f.RelPath())
	}
	for _, e := range w.Edges() {
		if e.From == e.To {
			continue
		}
		from, err := fspath.SlashRel(w.Root(), e.From)
		if err != nil {
			return nil, err
		}
		to, err := fspath.SlashRel(w.Root(), e.To)
		if err != nil {
			return nil, err
		}
		g.AddEdge(to, from)
	}
	return g, nil
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to, meaning "from" must load before "to".
// Both nodes are implicitly added if they don't exist.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.adjacency[from] = append(g.adjacency[from], to)
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// TopologicalSort returns a load order using Kahn's algorithm.
// Returns CycleError if the graph contains a cycle.
// The returned order is deterministic: nodes at the same topological level
// appear in the order they were first added to the graph.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = 0
	}
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	// Seed the queue with nodes that have no incoming edges, in insertion order.
	queue := make([]string, 0)
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycleNodes []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycleNodes = append(cycleNodes, node)
			}
		}
		return nil, &CycleError{Cycle: cycleNodes}
	}

	return result, nil
}
