// Package authorization implements the permission resolver and the
// requirement pipeline of the admission engine.
//
// The PermissionModel is loaded once at process start from gateway
// configuration and never mutated afterwards; the Resolver's operations are
// pure reads over it, so any number of requests can be authorized
// concurrently without synchronization.
//
// # Wildcards
//
// Two wildcards exist and are deliberately kept apart:
//
//   - The wildcard action (tern.OperationAll) grants a role every operation
//     on an entity and bypasses per-action lookups entirely. No map in the
//     model is ever keyed by it.
//   - The wildcard column set allows every column for one (entity, role,
//     action) triple; it expands through the schema snapshot only when a
//     read projection has to be materialized.
package authorization

import (
	"sort"
	"strings"

	"github.com/tern-api/tern"
)

// ColumnSet is the allow-list of columns for one (entity, role, action)
// triple: either an explicit set of exposed column names or the wildcard.
type ColumnSet struct {
	wildcard bool
	names    map[string]struct{}
}

// NewColumnSet returns an explicit column set.
func NewColumnSet(columns ...string) ColumnSet {
	names := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		names[c] = struct{}{}
	}
	return ColumnSet{names: names}
}

// WildcardColumns returns the wildcard column set.
func WildcardColumns() ColumnSet {
	return ColumnSet{wildcard: true}
}

// IsWildcard reports whether the set allows every column.
func (cs ColumnSet) IsWildcard() bool {
	return cs.wildcard
}

// Contains reports whether the set allows the named column.
func (cs ColumnSet) Contains(column string) bool {
	if cs.wildcard {
		return true
	}
	_, ok := cs.names[column]
	return ok
}

// Names returns the explicit column names in sorted order; nil for the
// wildcard set.
func (cs ColumnSet) Names() []string {
	if cs.wildcard {
		return nil
	}
	names := make([]string, 0, len(cs.names))
	for name := range cs.names {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ActionPermission is what a role is granted for one action on an entity:
// the column allow-list and an optional row-level policy expression.
type ActionPermission struct {
	Columns ColumnSet
	Policy  string
}

// rolePermissions holds one role's grants on one entity. When the role was
// configured with the wildcard action, all is set and actions stays empty;
// the split keeps wildcard grants out of the per-action map entirely.
type rolePermissions struct {
	all     *ActionPermission
	actions map[tern.Operation]ActionPermission
}

// PermissionModel is the immutable entity/role/action permission table.
// Build it with Grant during startup; after that it is only read.
type PermissionModel struct {
	entities map[string]map[string]rolePermissions
}

// NewPermissionModel returns an empty model.
func NewPermissionModel() *PermissionModel {
	return &PermissionModel{entities: make(map[string]map[string]rolePermissions)}
}

// Grant records a permission for (entity, role, op). Granting
// tern.OperationAll replaces any per-action grants for the role with the
// wildcard. Roles are case-insensitive.
func (m *PermissionModel) Grant(entity, role string, op tern.Operation, perm ActionPermission) {
	roles, ok := m.entities[entity]
	if !ok {
		roles = make(map[string]rolePermissions)
		m.entities[entity] = roles
	}

	key := strings.ToLower(role)
	rp, ok := roles[key]
	if !ok {
		rp = rolePermissions{actions: make(map[tern.Operation]ActionPermission)}
	}

	if op == tern.OperationAll {
		p := perm
		rp.all = &p
	} else {
		rp.actions[op] = perm
	}
	roles[key] = rp
}

// permission resolves the effective ActionPermission for (entity, role, op).
// A wildcard grant short-circuits before the per-action map is touched.
func (m *PermissionModel) permission(entity, role string, op tern.Operation) (ActionPermission, bool) {
	roles, ok := m.entities[entity]
	if !ok {
		return ActionPermission{}, false
	}
	rp, ok := roles[strings.ToLower(role)]
	if !ok {
		return ActionPermission{}, false
	}
	if rp.all != nil {
		return *rp.all, true
	}
	perm, ok := rp.actions[op]
	return perm, ok
}

// hasWildcardAction reports whether the role holds the wildcard action grant.
func (m *PermissionModel) hasWildcardAction(entity, role string) bool {
	roles, ok := m.entities[entity]
	if !ok {
		return false
	}
	rp, ok := roles[strings.ToLower(role)]
	return ok && rp.all != nil
}
