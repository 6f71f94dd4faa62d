package authorization

import (
	"github.com/tern-api/tern"
	"github.com/tern-api/tern/metadata"
)

// Resolver answers the individual authorization questions the requirement
// pipeline composes. Every method is a pure read over the immutable
// PermissionModel and schema snapshot.
type Resolver struct {
	model    *PermissionModel
	metadata metadata.Provider
}

// NewResolver returns a resolver over the given model and schema snapshot.
// The snapshot is consulted only to expand wildcard column sets into
// concrete read projections.
func NewResolver(model *PermissionModel, md metadata.Provider) *Resolver {
	return &Resolver{model: model, metadata: md}
}

// IsValidRoleContext reports whether the request's asserted role matches a
// role the authenticated identity actually holds. Fails closed: a missing
// assertion or a role the identity does not carry is false.
func (r *Resolver) IsValidRoleContext(rc tern.RoleContext) bool {
	if rc.AssertedRole == "" {
		return false
	}
	return rc.HasRole(rc.AssertedRole)
}

// AreRoleAndActionDefinedForEntity reports whether the model grants role the
// operation (or the wildcard action) on entity.
func (r *Resolver) AreRoleAndActionDefinedForEntity(entity, role string, op tern.Operation) bool {
	_, ok := r.model.permission(entity, role, op)
	return ok
}

// AreColumnsAllowedForAction reports whether every column in columns is in
// the allow-list for (entity, role, op). The wildcard allow-list permits
// everything; an empty columns slice is vacuously true.
func (r *Resolver) AreColumnsAllowedForAction(entity, role string, op tern.Operation, columns []string) bool {
	perm, ok := r.model.permission(entity, role, op)
	if !ok {
		return false
	}
	for _, col := range columns {
		if !perm.Columns.Contains(col) {
			return false
		}
	}
	return true
}

// GetAllowedColumns returns the allow-list for (entity, role, op) as exposed
// column names, sorted. A wildcard allow-list expands to every column of the
// entity's schema.
func (r *Resolver) GetAllowedColumns(entity, role string, op tern.Operation) []string {
	perm, ok := r.model.permission(entity, role, op)
	if !ok {
		return nil
	}
	if !perm.Columns.IsWildcard() {
		return perm.Columns.Names()
	}

	def, ok := r.metadata.GetSourceDefinition(entity)
	if !ok {
		return nil
	}
	columns := make([]string, 0, len(def.Columns))
	for _, backing := range def.ColumnNames() {
		if exposed, ok := r.metadata.TryGetExposedColumnName(entity, backing); ok {
			columns = append(columns, exposed)
		}
	}
	return columns
}

// TryProcessDBPolicy returns the row-level policy predicate for
// (entity, role, op) with @claims tokens substituted from the caller's
// claims, to be ANDed into the downstream query. It returns an empty string
// when the role holds the wildcard action or no policy is configured; the
// wildcard short-circuits before any per-action lookup happens.
func (r *Resolver) TryProcessDBPolicy(entity, role string, op tern.Operation, rc tern.RoleContext) (string, error) {
	if r.model.hasWildcardAction(entity, role) {
		return "", nil
	}
	perm, ok := r.model.permission(entity, role, op)
	if !ok || perm.Policy == "" {
		return "", nil
	}
	return processClaims(perm.Policy, rc.Claims)
}
