package mutation_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/tern-api/tern/metadata"
	"github.com/tern-api/tern/mutation"
)

// relMap is a map-backed RelationshipLookup for tests.
type relMap map[string]map[string]metadata.RelationshipDefinition

func (m relMap) Relationship(entity, name string) (metadata.RelationshipDefinition, bool) {
	rel, ok := m[entity][name]
	return rel, ok
}

// librarySnapshot builds the test schema:
//
//	Publisher(id auto pk, name req)
//	Book(id auto pk, title req, publisher_id req -> Publisher.id,
//	     tag_code nullable -> Tag.code)
//	Review(id auto pk, book_id req -> Book.id, rating req,
//	       publisher_id nullable -> Publisher.id)
//	Author(id auto pk, name req)            linked to Book via book_authors
//	Tag(code req pk, label nullable, category code -> Category.code)
//	Category(code req pk)
func librarySnapshot() *metadata.Snapshot {
	snap := metadata.NewSnapshot()

	auto := metadata.ColumnDefinition{IsAutoGenerated: true, HasDefault: true}
	required := metadata.ColumnDefinition{}
	nullable := metadata.ColumnDefinition{IsNullable: true}

	snap.AddSource("Publisher", &metadata.SourceDefinition{
		Columns:    map[string]metadata.ColumnDefinition{"id": auto, "name": required},
		PrimaryKey: []string{"id"},
	})
	snap.AddSource("Book", &metadata.SourceDefinition{
		Columns: map[string]metadata.ColumnDefinition{
			"id": auto, "title": required, "publisher_id": required, "tag_code": nullable,
		},
		PrimaryKey: []string{"id"},
	})
	snap.AddSource("Review", &metadata.SourceDefinition{
		Columns: map[string]metadata.ColumnDefinition{
			"id": auto, "book_id": required, "rating": required, "publisher_id": nullable,
		},
		PrimaryKey: []string{"id"},
	})
	snap.AddSource("Author", &metadata.SourceDefinition{
		Columns:    map[string]metadata.ColumnDefinition{"id": auto, "name": required},
		PrimaryKey: []string{"id"},
	})
	snap.AddSource("Tag", &metadata.SourceDefinition{
		Columns:    map[string]metadata.ColumnDefinition{"code": required, "label": nullable},
		PrimaryKey: []string{"code"},
	})
	snap.AddSource("Category", &metadata.SourceDefinition{
		Columns:    map[string]metadata.ColumnDefinition{"code": required},
		PrimaryKey: []string{"code"},
	})

	snap.AddForeignKey(&metadata.ForeignKeyDefinition{
		ReferencingEntity: "Book", ReferencedEntity: "Publisher",
		ReferencingColumns: []string{"publisher_id"}, ReferencedColumns: []string{"id"},
	})
	snap.AddForeignKey(&metadata.ForeignKeyDefinition{
		ReferencingEntity: "Review", ReferencedEntity: "Book",
		ReferencingColumns: []string{"book_id"}, ReferencedColumns: []string{"id"},
	})
	snap.AddForeignKey(&metadata.ForeignKeyDefinition{
		ReferencingEntity: "Review", ReferencedEntity: "Publisher",
		ReferencingColumns: []string{"publisher_id"}, ReferencedColumns: []string{"id"},
	})
	snap.AddForeignKey(&metadata.ForeignKeyDefinition{
		ReferencingEntity: "Book", ReferencedEntity: "Tag",
		ReferencingColumns: []string{"tag_code"}, ReferencedColumns: []string{"code"},
	})
	snap.AddForeignKey(&metadata.ForeignKeyDefinition{
		ReferencingEntity: "Tag", ReferencedEntity: "Category",
		ReferencingColumns: []string{"code"}, ReferencedColumns: []string{"code"},
	})

	return snap
}

func libraryRelationships() relMap {
	return relMap{
		"Book": {
			"publisher": {TargetEntity: "Publisher"},
			"reviews":   {TargetEntity: "Review"},
			"authors":   {TargetEntity: "Author", LinkingObject: "book_authors"},
			"tag":       {TargetEntity: "Tag"},
		},
		"Review": {
			"book":      {TargetEntity: "Book"},
			"publisher": {TargetEntity: "Publisher"},
		},
		"Publisher": {
			"books": {TargetEntity: "Book"},
		},
		"Tag": {
			"category": {TargetEntity: "Category"},
		},
	}
}

func newResolver() *mutation.Resolver {
	return mutation.NewResolver(librarySnapshot(), libraryRelationships())
}

func TestResolveFlatInsert(t *testing.T) {
	r := newResolver()

	node, err := r.Resolve("Book", mutation.ObjectValue{
		"title":        "Dune",
		"publisher_id": int64(1),
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if node.Entity != "Book" || node.Level != 0 {
		t.Errorf("root = %s level %d, want Book level 0", node.Entity, node.Level)
	}
	if len(node.Edges) != 0 {
		t.Errorf("flat insert resolved %d edges, want 0", len(node.Edges))
	}
	for _, col := range []string{"title", "publisher_id"} {
		if _, ok := node.Derived[col]; !ok {
			t.Errorf("Derived missing %q", col)
		}
	}
}

func TestResolveMissingRequiredColumn(t *testing.T) {
	r := newResolver()

	_, err := r.Resolve("Book", mutation.ObjectValue{"title": "Dune"})
	if !mutation.IsInsufficientDataErr(err) {
		t.Fatalf("Resolve() = %v, want ErrInsufficientData", err)
	}
	if !strings.Contains(err.Error(), "publisher_id") {
		t.Errorf("error should name the missing column: %v", err)
	}
}

func TestResolveNestedReferencedEntity(t *testing.T) {
	r := newResolver()

	// Book references Publisher: the nested publisher insert supplies
	// publisher_id, so the book needs no explicit value for it.
	node, err := r.Resolve("Book", mutation.ObjectValue{
		"title":     "Dune",
		"publisher": mutation.ObjectValue{"name": "Chilton"},
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if len(node.Edges) != 1 {
		t.Fatalf("resolved %d edges, want 1", len(node.Edges))
	}
	edge := node.Edges[0]
	if edge.Direction != mutation.EdgeChildFirst {
		t.Errorf("edge direction = %v, want EdgeChildFirst", edge.Direction)
	}
	if edge.ForeignKey == nil {
		t.Fatal("edge has no resolved foreign key")
	}
	if _, ok := node.Derived["publisher_id"]; !ok {
		t.Error("publisher_id should be derived across the edge")
	}
	if len(edge.Nodes) != 1 || edge.Nodes[0].Entity != "Publisher" || edge.Nodes[0].Level != 1 {
		t.Errorf("nested node = %+v, want Publisher at level 1", edge.Nodes[0])
	}
}

func TestResolveNestedReferencingEntities(t *testing.T) {
	r := newResolver()

	// Reviews reference Book: the book insert supplies each review's book_id.
	node, err := r.Resolve("Book", mutation.ObjectValue{
		"title":        "Dune",
		"publisher_id": int64(1),
		"reviews": mutation.ListValue{
			{"rating": int64(5)},
			{"rating": int64(3)},
		},
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if len(node.Edges) != 1 {
		t.Fatalf("resolved %d edges, want 1", len(node.Edges))
	}
	edge := node.Edges[0]
	if edge.Direction != mutation.EdgeParentFirst {
		t.Errorf("edge direction = %v, want EdgeParentFirst", edge.Direction)
	}
	if len(edge.Nodes) != 2 {
		t.Fatalf("resolved %d review nodes, want 2", len(edge.Nodes))
	}
	for _, review := range edge.Nodes {
		if _, ok := review.Derived["book_id"]; !ok {
			t.Error("book_id should be derived from the parent insert")
		}
	}
}

func TestResolveConflictingSources(t *testing.T) {
	r := newResolver()

	t.Run("explicit value plus relationship derivation", func(t *testing.T) {
		_, err := r.Resolve("Book", mutation.ObjectValue{
			"title":        "Dune",
			"publisher_id": int64(1),
			"publisher":    mutation.ObjectValue{"name": "Chilton"},
		})
		if !mutation.IsConflictingSourceErr(err) {
			t.Errorf("Resolve() = %v, want ErrConflictingSource", err)
		}
	})

	t.Run("parent-supplied column also explicit on the child", func(t *testing.T) {
		_, err := r.Resolve("Book", mutation.ObjectValue{
			"title":        "Dune",
			"publisher_id": int64(1),
			"reviews": mutation.ListValue{
				{"rating": int64(5), "book_id": int64(7)},
			},
		})
		if !mutation.IsConflictingSourceErr(err) {
			t.Errorf("Resolve() = %v, want ErrConflictingSource", err)
		}
	})
}

func TestResolveManyToMany(t *testing.T) {
	r := newResolver()

	t.Run("junction edge propagates nothing and both sides stand alone", func(t *testing.T) {
		node, err := r.Resolve("Book", mutation.ObjectValue{
			"title":        "Dune",
			"publisher_id": int64(1),
			"authors":      mutation.ListValue{{"name": "Herbert"}},
		})
		if err != nil {
			t.Fatalf("Resolve() error: %v", err)
		}
		if len(node.Edges) != 1 || node.Edges[0].Direction != mutation.EdgeUnlinked {
			t.Fatalf("expected a single EdgeUnlinked edge, got %+v", node.Edges)
		}
		if node.Edges[0].ForeignKey != nil {
			t.Error("junction edges carry no foreign key")
		}
	})

	t.Run("a side missing its own required data fails", func(t *testing.T) {
		_, err := r.Resolve("Book", mutation.ObjectValue{
			"title":        "Dune",
			"publisher_id": int64(1),
			"authors":      mutation.ListValue{{}},
		})
		if !mutation.IsInsufficientDataErr(err) {
			t.Errorf("Resolve() = %v, want ErrInsufficientData", err)
		}
		if err != nil && !strings.Contains(err.Error(), "name") {
			t.Errorf("error should name the missing column: %v", err)
		}
	})
}

func TestResolveObligations(t *testing.T) {
	r := newResolver()

	// Book references Tag by tag_code -> Tag.code; code is not auto-generated,
	// so the nested tag must actually supply it.
	t.Run("explicit value resolves the obligation", func(t *testing.T) {
		_, err := r.Resolve("Book", mutation.ObjectValue{
			"title":        "Dune",
			"publisher_id": int64(1),
			"tag":          mutation.ObjectValue{"code": "scifi"},
		})
		if err != nil {
			t.Errorf("Resolve() error: %v", err)
		}
	})

	t.Run("explicit null cannot satisfy an obligation", func(t *testing.T) {
		_, err := r.Resolve("Book", mutation.ObjectValue{
			"title":        "Dune",
			"publisher_id": int64(1),
			"tag":          mutation.ObjectValue{"code": nil},
		})
		if !mutation.IsInsufficientDataErr(err) {
			t.Errorf("Resolve() = %v, want ErrInsufficientData", err)
		}
	})

	t.Run("unresolvable obligation is rejected", func(t *testing.T) {
		_, err := r.Resolve("Book", mutation.ObjectValue{
			"title":        "Dune",
			"publisher_id": int64(1),
			"tag":          mutation.ObjectValue{"label": "Science Fiction"},
		})
		if !mutation.IsInsufficientDataErr(err) {
			t.Errorf("Resolve() = %v, want ErrInsufficientData", err)
		}
		if err != nil && !strings.Contains(err.Error(), "code") {
			t.Errorf("error should name the owed column: %v", err)
		}
	})

	t.Run("obligation reassigns across a further edge", func(t *testing.T) {
		// Tag owes code to the book insert; its own edge to Category derives
		// code from the nested category, which carries the obligation onward.
		_, err := r.Resolve("Book", mutation.ObjectValue{
			"title":        "Dune",
			"publisher_id": int64(1),
			"tag": mutation.ObjectValue{
				"category": mutation.ObjectValue{"code": "fiction"},
			},
		})
		if err != nil {
			t.Errorf("Resolve() error: %v", err)
		}
	})
}

func TestResolveTopology(t *testing.T) {
	r := newResolver()

	t.Run("grandparent reintroduced one level down is rejected", func(t *testing.T) {
		_, err := r.Resolve("Book", mutation.ObjectValue{
			"title":        "Dune",
			"publisher_id": int64(1),
			"reviews": mutation.ListValue{
				{"rating": int64(5), "book": mutation.ObjectValue{"title": "Dune II"}},
			},
		})
		if !mutation.IsInvalidTopologyErr(err) {
			t.Errorf("Resolve() = %v, want ErrInvalidTopology", err)
		}
	})

	t.Run("reintroduction below the grandparent is not caught", func(t *testing.T) {
		// Publisher -> Book -> Review -> publisher reintroduces Publisher
		// three levels up. Only the immediate grandparent is checked, so this
		// resolves; the round trip surfaces later as a database-level issue.
		_, err := r.Resolve("Publisher", mutation.ObjectValue{
			"name": "Chilton",
			"books": mutation.ListValue{
				{
					"title": "Dune",
					"reviews": mutation.ListValue{
						{"rating": int64(5), "publisher": mutation.ObjectValue{"name": "Ace"}},
					},
				},
			},
		})
		if err != nil {
			t.Errorf("Resolve() error: %v; depth-3 reintroduction is out of scope for the topology check", err)
		}
	})
}

func TestResolveUnknowns(t *testing.T) {
	r := newResolver()

	t.Run("unknown entity", func(t *testing.T) {
		_, err := r.Resolve("Magazine", mutation.ObjectValue{"title": "Wired"})
		if err == nil || !strings.Contains(err.Error(), "unknown entity") {
			t.Errorf("Resolve() = %v, want unknown entity error", err)
		}
	})

	t.Run("unknown relationship field", func(t *testing.T) {
		_, err := r.Resolve("Book", mutation.ObjectValue{
			"title":        "Dune",
			"publisher_id": int64(1),
			"translator":   mutation.ObjectValue{"name": "X"},
		})
		if err == nil || !strings.Contains(err.Error(), "unknown relationship") {
			t.Errorf("Resolve() = %v, want unknown relationship error", err)
		}
	})
}

func TestResolveAcceptsJSONShapes(t *testing.T) {
	r := newResolver()

	// JSON decoding yields map[string]any and []any, not the package types.
	node, err := r.Resolve("Book", map[string]any{
		"title":     "Dune",
		"publisher": map[string]any{"name": "Chilton"},
		"reviews": []any{
			map[string]any{"rating": float64(5)},
		},
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(node.Edges) != 2 {
		t.Errorf("resolved %d edges, want 2", len(node.Edges))
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	r := newResolver()
	input := mutation.ObjectValue{
		"title":     "Dune",
		"publisher": mutation.ObjectValue{"name": "Chilton"},
		"reviews":   mutation.ListValue{{"rating": int64(5)}},
	}

	first, err := r.Resolve("Book", input)
	if err != nil {
		t.Fatalf("first Resolve() error: %v", err)
	}
	second, err := r.Resolve("Book", input)
	if err != nil {
		t.Fatalf("second Resolve() error: %v", err)
	}

	if !reflect.DeepEqual(first.Derived, second.Derived) {
		t.Errorf("derived sets differ between runs: %v vs %v", first.Derived, second.Derived)
	}
	if !reflect.DeepEqual(entityOrder(first), entityOrder(second)) {
		t.Errorf("insertion orders differ between runs")
	}
}

func TestInsertionOrder(t *testing.T) {
	r := newResolver()

	node, err := r.Resolve("Book", mutation.ObjectValue{
		"title":     "Dune",
		"publisher": mutation.ObjectValue{"name": "Chilton"},
		"reviews":   mutation.ListValue{{"rating": int64(5)}, {"rating": int64(3)}},
		"authors":   mutation.ListValue{{"name": "Herbert"}},
	})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	// The referenced publisher must precede the book; the referencing reviews
	// and the unlinked authors come after it.
	want := []string{"Publisher", "Book", "Author", "Review", "Review"}
	got := entityOrder(node)
	if len(got) != len(want) {
		t.Fatalf("InsertionOrder() = %v, want %v", got, want)
	}
	if got[0] != "Publisher" || got[1] != "Book" {
		t.Errorf("InsertionOrder() = %v; Publisher must precede Book", got)
	}
	counts := map[string]int{}
	for _, e := range got[2:] {
		counts[e]++
	}
	if counts["Review"] != 2 || counts["Author"] != 1 {
		t.Errorf("InsertionOrder() tail = %v, want two Reviews and one Author after Book", got[2:])
	}
}

func entityOrder(n *mutation.Node) []string {
	order := n.InsertionOrder()
	entities := make([]string, len(order))
	for i, node := range order {
		entities[i] = node.Entity
	}
	return entities
}
