package metadata

import (
	"fmt"
	"strings"
)

// color represents the state of a node during DFS cycle detection.
type color int

const (
	white color = iota // unvisited
	gray               // in current DFS path (cycle if revisited)
	black              // fully processed
)

// DetectReferenceCycles checks the snapshot's foreign keys for cross-entity
// reference cycles. Edges point from the referencing entity to the entity it
// references; a cycle means no insertion order can satisfy every foreign key
// without deferred constraints.
//
// Self-referencing entities (an employees.manager_id pointing back at
// employees) are hierarchies, not cycles, and are allowed.
func DetectReferenceCycles(s *Snapshot) error {
	graph := make(map[string][]string)
	for _, fk := range s.ForeignKeys() {
		if fk.ReferencingEntity == fk.ReferencedEntity {
			continue // hierarchical self-reference
		}
		graph[fk.ReferencingEntity] = append(graph[fk.ReferencingEntity], fk.ReferencedEntity)
	}

	if cycle := detectCycleInGraph(graph); cycle != nil {
		return fmt.Errorf("%w: %s", ErrCyclicReferences, formatCycle(cycle))
	}
	return nil
}

// detectCycleInGraph uses DFS with three-color marking to detect cycles.
// Returns the cycle path if found, nil otherwise.
func detectCycleInGraph(graph map[string][]string) []string {
	colors := make(map[string]color)
	parent := make(map[string]string)

	var dfs func(n string) []string
	dfs = func(n string) []string {
		colors[n] = gray

		for _, neighbor := range graph[n] {
			switch colors[neighbor] {
			case gray:
				return reconstructCycle(n, neighbor, parent)
			case white:
				parent[neighbor] = n
				if cycle := dfs(neighbor); cycle != nil {
					return cycle
				}
			}
		}

		colors[n] = black
		return nil
	}

	for n := range graph {
		if colors[n] == white {
			if cycle := dfs(n); cycle != nil {
				return cycle
			}
		}
	}

	return nil
}

// reconstructCycle builds the cycle path from parent pointers.
// from is the node where the back-edge was found, to is the node it returns to.
func reconstructCycle(from, to string, parent map[string]string) []string {
	cycle := []string{to}
	for n := from; n != to; n = parent[n] {
		cycle = append([]string{n}, cycle...)
	}
	cycle = append([]string{to}, cycle...)
	return cycle
}

// formatCycle converts a cycle path to a human-readable string.
// Example: "Review -> Book -> Review"
func formatCycle(cycle []string) string {
	return strings.Join(cycle, " -> ")
}
