package mutation

import (
	"fmt"
	"sort"

	"github.com/tern-api/tern/metadata"
)

// RelationshipLookup resolves an entity's named relationship edges, as
// declared in gateway configuration.
type RelationshipLookup interface {
	Relationship(entity, name string) (metadata.RelationshipDefinition, bool)
}

// Resolver validates nested-insert value trees against the schema snapshot
// and relationship configuration. It is stateless and safe for concurrent
// use; all per-walk state lives in call arguments.
type Resolver struct {
	metadata      metadata.Provider
	relationships RelationshipLookup
}

// NewResolver returns a dependency resolver over the given snapshot and
// relationship configuration.
func NewResolver(md metadata.Provider, rels RelationshipLookup) *Resolver {
	return &Resolver{metadata: md, relationships: rels}
}

// Resolve walks the value tree rooted at entity and decides whether it
// contains sufficient, non-conflicting data for a dependency-ordered
// multi-entity insert. The input fields are expected to have passed column
// authorization already.
//
// On success every node of the returned graph has a single resolved source
// for each required column. Resolution is pure: re-running it on the same
// tree yields the same derived sets and the same verdict.
func (r *Resolver) Resolve(entity string, input ObjectValue) (*Node, error) {
	return r.resolve(entity, input, nil, nil, 0, "")
}

// resolve handles one node. derivedFromParent are columns the parent insert
// has committed to supply to this node; toBeDerived are columns an ancestor
// still needs this node to supply. Recursion depth is bounded by the depth
// of the client tree, which is finite by construction of JSON/GraphQL input.
func (r *Resolver) resolve(
	entity string,
	input ObjectValue,
	derivedFromParent map[string]struct{},
	toBeDerived map[string]struct{},
	level int,
	parentEntity string,
) (*Node, error) {
	source, ok := r.metadata.GetSourceDefinition(entity)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, entity)
	}

	scalars := make(map[string]any)
	var relationshipFields []string
	for _, field := range sortedKeys(input) {
		value := input[field]
		if _, isObject := asObject(value); isObject {
			relationshipFields = append(relationshipFields, field)
			continue
		}
		if _, isList := asList(value); isList {
			relationshipFields = append(relationshipFields, field)
			continue
		}
		scalars[field] = value
	}

	// Columns explicitly supplied at this node.
	derivable := make(map[string]struct{}, len(scalars))
	for field := range scalars {
		derivable[field] = struct{}{}
	}

	// A column the parent insert supplies must not also carry an explicit
	// value: two sources of truth.
	for _, column := range sortedSet(derivedFromParent) {
		if _, dual := scalars[column]; dual {
			return nil, fmt.Errorf("%w: field %q on entity %q is supplied by the parent %q insert",
				ErrConflictingSource, r.exposedName(entity, column), entity, parentEntity)
		}
		derivable[column] = struct{}{}
	}

	// Settle what this node owes its ancestors. Auto-generated columns and
	// explicit non-null values resolve the obligation; an explicit null
	// cannot, since the ancestor needs a real value.
	obligations := copySet(toBeDerived)
	for _, column := range sortedSet(obligations) {
		if def, ok := source.Columns[column]; ok && def.IsAutoGenerated {
			delete(obligations, column)
			continue
		}
		value, present := scalars[column]
		if !present {
			continue
		}
		if value == nil {
			return nil, fmt.Errorf("%w: entity %q column %q is null but must supply a value to a related insert",
				ErrInsufficientData, entity, r.exposedName(entity, column))
		}
		delete(obligations, column)
	}

	node := &Node{
		Entity:  entity,
		Level:   level,
		Columns: scalars,
	}

	// Classify each relationship edge and work out which columns cross it.
	type pendingEdge struct {
		edge        *Edge
		target      string
		values      ListValue
		childParent map[string]struct{}
		childOwed   map[string]struct{}
	}
	var pending []pendingEdge

	for _, field := range relationshipFields {
		rel, ok := r.relationships.Relationship(entity, field)
		if !ok {
			return nil, fmt.Errorf("%w: %q on entity %q", ErrUnknownRelationship, field, entity)
		}

		// A grandparent entity reappearing as a grandchild is a logically
		// invalid round trip. Only the immediate grandparent is inspected;
		// a reintroduction deeper than two levels is not caught here.
		if rel.TargetEntity == parentEntity {
			return nil, fmt.Errorf("%w: relationship %q on %q reintroduces ancestor entity %q",
				ErrInvalidTopology, field, entity, rel.TargetEntity)
		}

		values, err := edgeValues(input[field])
		if err != nil {
			return nil, fmt.Errorf("relationship %q on %q: %w", field, entity, err)
		}

		if rel.ManyToMany() {
			// Junction-table edges never propagate columns in either
			// direction; both sides must stand on their own data.
			pending = append(pending, pendingEdge{
				edge:   &Edge{Name: field, Direction: EdgeUnlinked},
				target: rel.TargetEntity,
				values: values,
			})
			continue
		}

		fk, referencing, ok := r.lookupForeignKey(entity, rel.TargetEntity)
		if !ok {
			return nil, fmt.Errorf("%w: %q between %q and %q", ErrMissingForeignKey, field, entity, rel.TargetEntity)
		}

		if referencing {
			// This node holds the foreign key: its columns come from the
			// nested target's insert, and any obligation on those columns is
			// reassigned across the edge.
			childOwed := make(map[string]struct{}, len(fk.ReferencedColumns))
			for i, refingCol := range fk.ReferencingColumns {
				if _, dual := derivable[refingCol]; dual {
					return nil, fmt.Errorf("%w: field %q on entity %q is also derived from relationship %q",
						ErrConflictingSource, r.exposedName(entity, refingCol), entity, field)
				}
				delete(obligations, refingCol)
				derivable[refingCol] = struct{}{}
				childOwed[fk.ReferencedColumns[i]] = struct{}{}
			}
			pending = append(pending, pendingEdge{
				edge:      &Edge{Name: field, Direction: EdgeChildFirst, ForeignKey: fk},
				target:    rel.TargetEntity,
				values:    values,
				childOwed: childOwed,
			})
			continue
		}

		// The nested target holds the foreign key: this node's insert
		// supplies the target's referencing columns.
		childParent := make(map[string]struct{}, len(fk.ReferencingColumns))
		for _, col := range fk.ReferencingColumns {
			childParent[col] = struct{}{}
		}
		pending = append(pending, pendingEdge{
			edge:        &Edge{Name: field, Direction: EdgeParentFirst, ForeignKey: fk},
			target:      rel.TargetEntity,
			values:      values,
			childParent: childParent,
		})
	}

	// Whatever an ancestor still needs from this node has no resolution
	// path left.
	if len(obligations) > 0 {
		column := sortedSet(obligations)[0]
		return nil, fmt.Errorf("%w: entity %q cannot supply column %q required by a related insert",
			ErrInsufficientData, entity, r.exposedName(entity, column))
	}

	// Every required column must have exactly one source by now.
	for _, column := range source.ColumnNames() {
		if !source.RequiredColumn(column) {
			continue
		}
		if _, ok := derivable[column]; !ok {
			return nil, fmt.Errorf("%w: entity %q is missing required column %q",
				ErrInsufficientData, entity, r.exposedName(entity, column))
		}
	}
	node.Derived = derivable

	for _, p := range pending {
		for _, value := range p.values {
			child, err := r.resolve(p.target, value, copySet(p.childParent), copySet(p.childOwed), level+1, entity)
			if err != nil {
				return nil, err
			}
			p.edge.Nodes = append(p.edge.Nodes, child)
		}
		node.Edges = append(node.Edges, p.edge)
	}

	return node, nil
}

// lookupForeignKey resolves the foreign key between entity and target and
// reports whether entity is the referencing side.
func (r *Resolver) lookupForeignKey(entity, target string) (*metadata.ForeignKeyDefinition, bool, bool) {
	if fk, ok := r.metadata.GetForeignKeyDefinition(entity, target, target, entity); ok {
		return fk, true, true
	}
	if fk, ok := r.metadata.GetForeignKeyDefinition(entity, target, entity, target); ok {
		return fk, false, true
	}
	return nil, false, false
}

// exposedName maps a backing column to its client-facing alias for error
// messages, falling back to the backing name.
func (r *Resolver) exposedName(entity, column string) string {
	if exposed, ok := r.metadata.TryGetExposedColumnName(entity, column); ok {
		return exposed
	}
	return column
}

// edgeValues normalizes a relationship field value to a list of object
// nodes: one element for an object field, the elements themselves for a
// list field.
func edgeValues(value any) (ListValue, error) {
	if obj, ok := asObject(value); ok {
		return ListValue{obj}, nil
	}
	if list, ok := asList(value); ok {
		return list, nil
	}
	return nil, fmt.Errorf("value is neither an object nor a list of objects")
}

// asObject normalizes object-shaped values. JSON decoding yields
// map[string]any rather than ObjectValue, so both spellings are accepted.
func asObject(value any) (ObjectValue, bool) {
	switch v := value.(type) {
	case ObjectValue:
		return v, true
	case map[string]any:
		return ObjectValue(v), true
	}
	return nil, false
}

// asList normalizes list-shaped values whose elements are all objects.
func asList(value any) (ListValue, bool) {
	switch v := value.(type) {
	case ListValue:
		return v, true
	case []ObjectValue:
		return ListValue(v), true
	case []any:
		list := make(ListValue, 0, len(v))
		for _, item := range v {
			obj, ok := asObject(item)
			if !ok {
				return nil, false
			}
			list = append(list, obj)
		}
		if len(list) == 0 {
			return nil, false
		}
		return list, true
	}
	return nil, false
}

func copySet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

func sortedSet(s map[string]struct{}) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeys(m ObjectValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
