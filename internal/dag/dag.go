// SPDX-License-Identifier: MPL-2.0

// Package dag orders pipeline modules by their declared prerequisites. It is
// used by the module registry to reject prerequisite cycles before any module
// directory is touched, and to compute the order a configuration would need.
package dag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is the sentinel error wrapped by CycleError.
var ErrCycle = errors.New("prerequisite cycle")

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle contains the modules left unordered once every acyclic module
		// has been emitted. It always includes the modules forming the cycle.
		Cycle []string
	}

	// Graph is a directed graph of module prerequisites.
	// An edge from A to B means module A must be complete before module B starts.
	Graph struct {
		// dependents maps each module to the modules that require it.
		dependents map[string][]string
		// prerequisites maps each module to the modules it requires.
		prerequisites map[string][]string
		// nodes tracks all modules in insertion order for deterministic output.
		nodes []string
		// nodeSet provides O(1) lookup for node existence.
		nodeSet map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("prerequisite cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycle for errors.Is() compatibility.
func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		dependents:    make(map[string][]string),
		prerequisites: make(map[string][]string),
		nodeSet:       make(map[string]bool),
	}
}

// AddModule adds a module to the graph. Adding an existing module is a no-op.
func (g *Graph) AddModule(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddPrerequisite records that prereq must complete before module starts.
// Both modules are implicitly added. Duplicate edges are ignored.
func (g *Graph) AddPrerequisite(prereq, module string) {
	g.AddModule(prereq)
	g.AddModule(module)
	for _, existing := range g.prerequisites[module] {
		if existing == prereq {
			return
		}
	}
	g.dependents[prereq] = append(g.dependents[prereq], module)
	g.prerequisites[module] = append(g.prerequisites[module], prereq)
}

// Prerequisites returns the direct prerequisites of module in the order they were added.
func (g *Graph) Prerequisites(module string) []string {
	out := make([]string, len(g.prerequisites[module]))
	copy(out, g.prerequisites[module])
	return out
}

// Has reports whether module has been added to the graph.
func (g *Graph) Has(module string) bool {
	return g.nodeSet[module]
}

// Order returns a valid execution order using Kahn's algorithm.
// Returns a *CycleError if the graph contains a cycle.
// The returned order is deterministic: modules at the same topological level
// appear in the order they were first added to the graph.
func (g *Graph) Order() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(g.nodes))
	for _, node := range g.nodes {
		inDegree[node] = len(g.prerequisites[node])
	}

	queue := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, dependent := range g.dependents[node] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) != len(g.nodes) {
		var cycle []string
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycle = append(cycle, node)
			}
		}
		return nil, &CycleError{Cycle: cycle}
	}

	return order, nil
}
