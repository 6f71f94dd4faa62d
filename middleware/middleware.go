// Package middleware adapts the admission engine to a gin transport.
// The Authorize middleware builds the pipeline input from the incoming
// request and enforces the decision; the authentication middleware that
// populates roles and claims on the context is the application's concern.
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tern-api/tern"
	"github.com/tern-api/tern/authorization"
)

// Transport header and context keys.
const (
	// RoleHeader carries the role the request asks to be evaluated under.
	RoleHeader = "X-Tern-Role"

	// RequestIDHeader carries the request correlation ID.
	RequestIDHeader = "X-Request-ID"

	// RolesKey is the gin context key under which the authentication
	// middleware stores the caller's []string of authenticated roles.
	RolesKey = "ternRoles"

	// ClaimsKey is the gin context key under which the authentication
	// middleware stores the caller's map[string]string of claims.
	ClaimsKey = "ternClaims"

	// FieldsKey is the gin context key under which Authorize stores the
	// resolved read projection for downstream handlers.
	FieldsKey = "ternFields"
)

// RequestID attaches a correlation ID to every request, generating one when
// the caller did not send one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// Authorize runs the requirement pipeline for the request. The target entity
// comes from the :entity route parameter, the operations from the HTTP verb,
// the field filter from the $select query parameter, and body columns from
// the JSON body keys.
//
// A denied request gets a uniform 403 with no detail about which check
// failed. A requirement handed a malformed resource is a server defect and
// returns 500. On success the resolved projection is stored under FieldsKey.
func Authorize(pipeline *authorization.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		entity := c.Param("entity")
		if entity == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "missing entity"})
			return
		}

		operations, err := tern.OperationsForVerb(c.Request.Method)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{"message": "unsupported method"})
			return
		}

		fields := splitFields(c.Query("$select"))
		explicit := len(fields) > 0

		columns := append([]string(nil), fields...)
		columns = append(columns, bodyColumns(c)...)

		req := &authorization.Request{
			RoleContext:        roleContext(c),
			Resource:           entity,
			Operations:         operations,
			Columns:            columns,
			ExplicitFields:     explicit,
			FieldsToBeReturned: &fields,
		}

		if err := pipeline.Authorize(c.Request.Context(), req); err != nil {
			if authorization.IsMalformedResourceErr(err) {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
				return
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Forbidden"})
			return
		}

		c.Set(FieldsKey, fields)
		c.Next()
	}
}

// roleContext assembles the caller's identity from the role header and the
// roles/claims the authentication middleware attached.
func roleContext(c *gin.Context) tern.RoleContext {
	rc := tern.RoleContext{AssertedRole: c.GetHeader(RoleHeader)}
	if roles, ok := c.Get(RolesKey); ok {
		if list, ok := roles.([]string); ok {
			rc.AuthenticatedRoles = list
		}
	}
	if claims, ok := c.Get(ClaimsKey); ok {
		if m, ok := claims.(map[string]string); ok {
			rc.Claims = m
		}
	}
	return rc
}

func splitFields(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			fields = append(fields, trimmed)
		}
	}
	return fields
}

// bodyColumns extracts the top-level keys of a JSON object body without
// consuming it. Malformed or non-object bodies contribute no columns here;
// the shape validator rejects them later with a proper error.
func bodyColumns(c *gin.Context) []string {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	columns := make([]string, 0, len(body))
	for key := range body {
		columns = append(columns, key)
	}
	return columns
}
