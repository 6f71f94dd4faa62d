package config

import (
	"fmt"
	"sort"

	"github.com/tern-api/tern"
)

// Validate performs the structural checks that need no database: action
// names parse, relationship targets are configured entities, roles are not
// granted twice on one entity, and column clauses are resolvable. Errors are
// collected so one run reports every problem.
func (rt *Runtime) Validate() []error {
	var errs []error

	for _, entityName := range sortedEntityNames(rt.Entities) {
		entity := rt.Entities[entityName]

		if entity.Source.Table == "" {
			errs = append(errs, fmt.Errorf("%w: entity %q has no source table", ErrInvalidConfig, entityName))
		}

		for _, relName := range sortedRelationshipNames(entity.Relationships) {
			rel := entity.Relationships[relName]
			if rel.Target == "" {
				errs = append(errs, fmt.Errorf("%w: entity %q relationship %q has no target",
					ErrInvalidConfig, entityName, relName))
				continue
			}
			if _, ok := rt.Entities[rel.Target]; !ok {
				errs = append(errs, fmt.Errorf("%w: entity %q relationship %q targets unknown entity %q",
					ErrInvalidConfig, entityName, relName, rel.Target))
			}
		}

		seenRoles := make(map[string]bool)
		for _, perm := range entity.Permissions {
			if perm.Role == "" {
				errs = append(errs, fmt.Errorf("%w: entity %q has a permission with no role", ErrInvalidConfig, entityName))
				continue
			}
			if seenRoles[perm.Role] {
				errs = append(errs, fmt.Errorf("%w: entity %q grants role %q more than once",
					ErrInvalidConfig, entityName, perm.Role))
			}
			seenRoles[perm.Role] = true

			for _, action := range perm.Actions {
				op, err := tern.ParseOperation(action.Action)
				if err != nil {
					errs = append(errs, fmt.Errorf("%w: entity %q role %q: %v",
						ErrInvalidConfig, entityName, perm.Role, err))
					continue
				}
				if op == tern.OperationAll && action.Policy != "" {
					errs = append(errs, fmt.Errorf("%w: entity %q role %q: a policy on the wildcard action is never evaluated",
						ErrInvalidConfig, entityName, perm.Role))
				}
				if action.Fields != nil && action.Fields.wildcardInclude() && len(action.Fields.Exclude) > 0 {
					errs = append(errs, fmt.Errorf("%w: entity %q role %q action %q: exclude requires an explicit include list",
						ErrInvalidConfig, entityName, perm.Role, action.Action))
				}
			}
		}
	}

	return errs
}

func sortedEntityNames(entities map[string]Entity) []string {
	names := make([]string, 0, len(entities))
	for name := range entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedRelationshipNames(rels map[string]Relationship) []string {
	names := make([]string, 0, len(rels))
	for name := range rels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
