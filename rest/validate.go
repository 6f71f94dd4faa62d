package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tern-api/tern/metadata"
)

// Validator checks REST request shapes against the schema snapshot.
// Stateless and safe for concurrent use.
type Validator struct {
	metadata metadata.Provider
}

// NewValidator returns a shape validator over the given snapshot.
func NewValidator(md metadata.Provider) *Validator {
	return &Validator{metadata: md}
}

// ValidateRequestContext checks the request's return fields and trims its
// body. Every entry of FieldsToBeReturned must name a column of the entity;
// body keys that are not schema columns are silently dropped rather than
// failing the request.
func (v *Validator) ValidateRequestContext(rc *RequestContext) error {
	source, ok := v.metadata.GetSourceDefinition(rc.EntityName)
	if !ok {
		return badRequest(KindUnknownEntity, fmt.Sprintf("entity %q not found", rc.EntityName))
	}

	for _, field := range rc.FieldsToBeReturned {
		if !source.HasColumn(field) {
			return badRequest(KindUnknownField,
				fmt.Sprintf("invalid field to be returned: %q is not a column of %q", field, rc.EntityName))
		}
	}

	for key := range rc.FieldValuePairsInBody {
		if !source.HasColumn(key) {
			delete(rc.FieldValuePairsInBody, key)
		}
	}

	return nil
}

// ValidatePrimaryKey checks that the request supplies exactly the schema's
// primary-key columns: same count, and every supplied name recognized. All
// unrecognized names are reported together, not just the first.
func (v *Validator) ValidatePrimaryKey(rc *RequestContext) error {
	source, ok := v.metadata.GetSourceDefinition(rc.EntityName)
	if !ok {
		return badRequest(KindUnknownEntity, fmt.Sprintf("entity %q not found", rc.EntityName))
	}

	if len(rc.PrimaryKeyValuePairs) != len(source.PrimaryKey) {
		return badRequest(KindPrimaryKeyMismatch,
			fmt.Sprintf("primary key of %q has %d column(s), request supplied %d",
				rc.EntityName, len(source.PrimaryKey), len(rc.PrimaryKeyValuePairs)))
	}

	var unrecognized []string
	for key := range rc.PrimaryKeyValuePairs {
		if !source.IsPrimaryKey(key) {
			unrecognized = append(unrecognized, key)
		}
	}
	if len(unrecognized) > 0 {
		sort.Strings(unrecognized)
		return badRequest(KindPrimaryKeyMismatch,
			fmt.Sprintf("primary key column(s) not found in entity %q: %s",
				rc.EntityName, strings.Join(unrecognized, ", ")))
	}

	return nil
}

// ValidateInsertRequest checks an insert's transport shape and decodes its
// body. A query string is always rejected. An empty body is valid; whether
// the entity's columns can all be defaulted is decided downstream. A JSON
// array body (bulk insert) is rejected distinctly from malformed JSON.
func (v *Validator) ValidateInsertRequest(queryString string, body []byte) (map[string]any, error) {
	if queryString != "" {
		return nil, badRequest(KindQueryStringNotAllowed, "query string is not allowed on an insert request")
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return map[string]any{}, nil
	}

	if trimmed[0] == '[' {
		return nil, badRequest(KindBulkInsertUnsupported, "bulk insert with a JSON array body is not supported")
	}

	var fields map[string]any
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, badRequest(KindMalformedBody, fmt.Sprintf("request body is not valid JSON: %v", err))
	}

	return fields, nil
}
