// Package mutation resolves nested-insert value trees into
// dependency-ordered
// entity graphs.
//
// A client-supplied nested mutation like
//
//	{ "title": "Dune", "publisher": { "name": "Chilton" } }
//
// mixes scalar columns with relationship objects. Before the (external)
// query builder can run the inserts, every node must be proven to have
// exactly one source for every required column: an explicit value, an
// auto-generated default, or a value derived from a neighboring insert
// through a foreign key. The Resolver walks the tree once, carrying
// per-level state in explicit call arguments so concurrent validation of
// independent requests is trivially safe, and either returns a resolved
// Node graph ready for ordered insertion or a typed rejection.
package mutation

import "github.com/tern-api/tern/metadata"

// ObjectValue is one object node of a nested-insert value tree: field name
// to scalar value, nested ObjectValue, or ListValue. Trees are request-local
// and discarded after validation.
type ObjectValue map[string]any

// ListValue is an ordered sequence of object nodes, as produced by a
// to-many relationship field.
type ListValue []ObjectValue

// EdgeDirection classifies a relationship edge of a resolved node by which
// side holds the foreign key, which fixes the insert order across the edge.
type EdgeDirection int

const (
	// EdgeChildFirst: the node references its nested target, so the target
	// rows are inserted first and the node's foreign-key columns take their
	// generated values.
	EdgeChildFirst EdgeDirection = iota

	// EdgeParentFirst: the nested target references the node, so the node's
	// row is inserted first and each target row derives its foreign-key
	// columns from it.
	EdgeParentFirst

	// EdgeUnlinked: a many-to-many edge through a junction table. No columns
	// propagate in either direction; both sides stand alone.
	EdgeUnlinked
)

// Edge is one resolved relationship of a Node.
type Edge struct {
	// Name is the relationship field name from the input.
	Name string

	// Direction fixes the insert order across this edge.
	Direction EdgeDirection

	// ForeignKey is the resolved key for the edge; nil for EdgeUnlinked.
	ForeignKey *metadata.ForeignKeyDefinition

	// Nodes are the resolved target nodes: one for an object field, several
	// for a list field, in input order.
	Nodes []*Node
}

// Node is one entity node of a resolved mutation tree.
type Node struct {
	// Entity is the entity this node inserts into.
	Entity string

	// Level is the node's nesting depth, zero at the root.
	Level int

	// Columns are the node's explicitly supplied scalar fields.
	Columns map[string]any

	// Derived is every column of this node with a resolved source: explicit
	// input, an ancestor insert, or a nested insert across an edge.
	Derived map[string]struct{}

	// Edges are the node's resolved relationships, in sorted field order.
	Edges []*Edge
}

// InsertionOrder flattens the resolved tree into the order the inserts must
// run: targets the node references come first, then the node, then targets
// that reference it, then unlinked (many-to-many) targets.
func (n *Node) InsertionOrder() []*Node {
	var order []*Node
	n.appendOrdered(&order)
	return order
}

func (n *Node) appendOrdered(order *[]*Node) {
	for _, e := range n.Edges {
		if e.Direction == EdgeChildFirst {
			for _, child := range e.Nodes {
				child.appendOrdered(order)
			}
		}
	}
	*order = append(*order, n)
	for _, e := range n.Edges {
		if e.Direction == EdgeParentFirst || e.Direction == EdgeUnlinked {
			for _, child := range e.Nodes {
				child.appendOrdered(order)
			}
		}
	}
}
