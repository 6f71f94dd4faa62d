// Package tern provides the request admission engine for a
// configuration-driven data gateway that exposes REST and GraphQL endpoints
// over a relational schema.
//
// Before any query reaches the database, every inbound request is proven:
//
//  1. Authorized for the caller's role (authorization package)
//  2. Structurally valid against the schema (rest package)
//  3. For nested object-graph mutations, resolvable into a dependency order
//     that satisfies every non-nullable column (mutation package)
//
// # Module Structure
//
// The root package holds the shared vocabulary: the Operation enum, the
// HTTP-verb mapping, and the RoleContext produced by the (external)
// authentication layer. The subsystems live in their own packages:
//
//   - metadata: immutable schema snapshots and the Provider interface
//   - authorization: permission resolver and the requirement pipeline
//   - mutation: nested-insert dependency resolution
//   - rest: request-shape validation for flat REST requests
//   - graphql: GraphQL AST input conversion
//   - middleware: gin transport adapter
//   - config: gateway runtime configuration
//
// # Concurrency
//
// All admission checks are pure CPU work over an immutable snapshot of the
// schema and permission model. Any number of requests can be validated
// concurrently with no synchronization; hot reload happens through atomic
// snapshot replacement (see metadata.Store).
//
// # Basic Usage
//
//	snap := metadata.NewSnapshot()
//	// ... populate snap, or introspect it from PostgreSQL ...
//	resolver := authorization.NewResolver(model, snap)
//	pipeline := authorization.NewPipeline(resolver)
//	err := pipeline.Authorize(ctx, req)
package tern

import (
	"fmt"
	"net/http"
	"strings"
)

// Operation is one of the entity-level actions a role can be granted.
// All is the wildcard: it expands to every concrete operation and bypasses
// per-action column and policy lookups.
type Operation int

const (
	// OperationCreate inserts new rows.
	OperationCreate Operation = iota

	// OperationRead selects rows.
	OperationRead

	// OperationUpdate modifies existing rows.
	OperationUpdate

	// OperationDelete removes rows.
	OperationDelete

	// OperationAll is the wildcard action. It is only valid in permission
	// configuration, never as a resolved request operation.
	OperationAll
)

// String returns the configuration spelling of the operation.
func (op Operation) String() string {
	switch op {
	case OperationCreate:
		return "create"
	case OperationRead:
		return "read"
	case OperationUpdate:
		return "update"
	case OperationDelete:
		return "delete"
	case OperationAll:
		return "*"
	}
	return fmt.Sprintf("operation(%d)", int(op))
}

// ParseOperation converts a configuration action string to an Operation.
// Both "*" and "all" spell the wildcard.
func ParseOperation(s string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "create":
		return OperationCreate, nil
	case "read":
		return OperationRead, nil
	case "update":
		return OperationUpdate, nil
	case "delete":
		return OperationDelete, nil
	case "*", "all":
		return OperationAll, nil
	}
	return 0, fmt.Errorf("tern: unknown operation %q", s)
}

// OperationsForVerb maps an HTTP method to the operations it must be
// authorized for. Upsert-style verbs (PUT, PATCH) map to both Create and
// Update; authorization requires every mapped operation to be individually
// granted.
func OperationsForVerb(method string) ([]Operation, error) {
	switch strings.ToUpper(method) {
	case http.MethodGet:
		return []Operation{OperationRead}, nil
	case http.MethodPost:
		return []Operation{OperationCreate}, nil
	case http.MethodPut, http.MethodPatch:
		return []Operation{OperationCreate, OperationUpdate}, nil
	case http.MethodDelete:
		return []Operation{OperationDelete}, nil
	}
	return nil, fmt.Errorf("tern: unsupported HTTP method %q", method)
}

// RoleContext carries the caller's identity as asserted by the (external)
// authentication layer: the role the request claims to act under, the set of
// roles the authenticated identity actually holds, and the identity's claims
// for row-level policy substitution.
//
// RoleContext is a value type scoped to a single request; admission never
// mutates it.
type RoleContext struct {
	// AssertedRole is the role the request asks to be evaluated under,
	// typically from the X-Tern-Role header.
	AssertedRole string

	// AuthenticatedRoles are the roles the identity provider attached to the
	// caller. The asserted role must be one of these.
	AuthenticatedRoles []string

	// Claims are identity claims available to @claims.<name> tokens in
	// database policy expressions.
	Claims map[string]string
}

// HasRole reports whether the authenticated identity holds the given role.
// Role comparison is case-insensitive throughout the engine.
func (rc RoleContext) HasRole(role string) bool {
	for _, r := range rc.AuthenticatedRoles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}
