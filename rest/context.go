// Package rest validates the shape of flat (non-nested) REST requests
// against the schema snapshot: requested fields, body keys, and primary-key
// completeness. It runs after the authorization pipeline and before the
// (external) query builder.
package rest

import (
	"sort"

	"github.com/tern-api/tern"
)

// RequestContext is the working state of one REST request during admission.
// It is request-local and mutable only by validation: authorization narrows
// FieldsToBeReturned, shape validation trims unknown body keys. Nothing else
// touches it.
type RequestContext struct {
	// EntityName is the target entity from the route.
	EntityName string

	// Operation is the resolved operation for the request.
	Operation tern.Operation

	// FieldsToBeReturned is the ordered projection the response will carry.
	// Authorization may replace it with the allowed-column set for reads
	// without an explicit filter.
	FieldsToBeReturned []string

	// FieldValuePairsInBody is the decoded request body. Keys not present in
	// the schema are dropped during validation.
	FieldValuePairsInBody map[string]any

	// PrimaryKeyValuePairs are the key/value pairs parsed from the route.
	PrimaryKeyValuePairs map[string]string

	// CumulativeColumns is the union of every column the request references:
	// path, query string, and body.
	CumulativeColumns map[string]struct{}
}

// NewRequestContext returns a context for the given entity and operation.
func NewRequestContext(entityName string, op tern.Operation) *RequestContext {
	return &RequestContext{
		EntityName:        entityName,
		Operation:         op,
		CumulativeColumns: make(map[string]struct{}),
	}
}

// AddCumulativeColumns records columns referenced by the request.
func (rc *RequestContext) AddCumulativeColumns(columns ...string) {
	if rc.CumulativeColumns == nil {
		rc.CumulativeColumns = make(map[string]struct{}, len(columns))
	}
	for _, c := range columns {
		rc.CumulativeColumns[c] = struct{}{}
	}
}

// CumulativeColumnNames returns the cumulative column set in sorted order.
func (rc *RequestContext) CumulativeColumnNames() []string {
	names := make([]string, 0, len(rc.CumulativeColumns))
	for name := range rc.CumulativeColumns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
