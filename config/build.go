package config

import (
	"fmt"

	"github.com/tern-api/tern"
	"github.com/tern-api/tern/authorization"
	"github.com/tern-api/tern/metadata"
)

// PermissionModel converts the configured permissions into the immutable
// model the authorization resolver reads. Conversion fails on action strings
// the Operation enum does not know.
func (rt *Runtime) PermissionModel() (*authorization.PermissionModel, error) {
	model := authorization.NewPermissionModel()
	for entityName, entity := range rt.Entities {
		for _, perm := range entity.Permissions {
			for _, action := range perm.Actions {
				op, err := tern.ParseOperation(action.Action)
				if err != nil {
					return nil, fmt.Errorf("%w: entity %q role %q: %v",
						ErrInvalidConfig, entityName, perm.Role, err)
				}
				model.Grant(entityName, perm.Role, op, authorization.ActionPermission{
					Columns: action.columnSet(),
					Policy:  action.Policy,
				})
			}
		}
	}
	return model, nil
}

// columnSet resolves an action's Fields clause to a ColumnSet. No clause,
// an empty include, or an include of "*" all mean the wildcard, unless an
// exclude list exists, which has to be resolved against the schema at
// request time and is therefore rejected during Validate when combined with
// a wildcard include.
func (a Action) columnSet() authorization.ColumnSet {
	if a.Fields == nil {
		return authorization.WildcardColumns()
	}
	if a.Fields.wildcardInclude() && len(a.Fields.Exclude) == 0 {
		return authorization.WildcardColumns()
	}

	excluded := make(map[string]struct{}, len(a.Fields.Exclude))
	for _, c := range a.Fields.Exclude {
		excluded[c] = struct{}{}
	}
	var columns []string
	for _, c := range a.Fields.Include {
		if c == "*" {
			continue
		}
		if _, ok := excluded[c]; ok {
			continue
		}
		columns = append(columns, c)
	}
	return authorization.NewColumnSet(columns...)
}

func (f *Fields) wildcardInclude() bool {
	if len(f.Include) == 0 {
		return true
	}
	for _, c := range f.Include {
		if c == "*" {
			return true
		}
	}
	return false
}

// EntityRelationships adapts the configured relationships to the lookup
// interface the mutation resolver consumes.
type EntityRelationships struct {
	entities map[string]Entity
}

// Relationships returns a lookup over the configured relationship edges,
// suitable for mutation.NewResolver.
func (rt *Runtime) Relationships() *EntityRelationships {
	return &EntityRelationships{entities: rt.Entities}
}

// Relationship resolves one named edge of an entity.
func (l *EntityRelationships) Relationship(entity, name string) (metadata.RelationshipDefinition, bool) {
	e, ok := l.entities[entity]
	if !ok {
		return metadata.RelationshipDefinition{}, false
	}
	rel, ok := e.Relationships[name]
	if !ok {
		return metadata.RelationshipDefinition{}, false
	}
	return metadata.RelationshipDefinition{
		TargetEntity:  rel.Target,
		LinkingObject: rel.LinkingObject,
	}, true
}

// ApplyMappings registers the configured column aliases on a snapshot.
func (rt *Runtime) ApplyMappings(snap *metadata.Snapshot) {
	for entityName, entity := range rt.Entities {
		for backing, exposed := range entity.Mappings {
			snap.AddExposedName(entityName, backing, exposed)
		}
	}
}
