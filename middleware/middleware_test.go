package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tern-api/tern"
	"github.com/tern-api/tern/authorization"
	"github.com/tern-api/tern/metadata"
	"github.com/tern-api/tern/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testPipeline() *authorization.Pipeline {
	snap := metadata.NewSnapshot()
	snap.AddSource("Book", &metadata.SourceDefinition{
		Columns: map[string]metadata.ColumnDefinition{
			"id":    {IsAutoGenerated: true, HasDefault: true},
			"title": {},
			"price": {IsNullable: true},
		},
		PrimaryKey: []string{"id"},
	})

	model := authorization.NewPermissionModel()
	model.Grant("Book", "reader", tern.OperationRead, authorization.ActionPermission{
		Columns: authorization.NewColumnSet("id", "title"),
	})
	model.Grant("Book", "editor", tern.OperationCreate, authorization.ActionPermission{
		Columns: authorization.NewColumnSet("title", "price"),
	})
	model.Grant("Book", "editor", tern.OperationUpdate, authorization.ActionPermission{
		Columns: authorization.NewColumnSet("title", "price"),
	})

	return authorization.NewPipeline(authorization.NewResolver(model, snap))
}

// newRouter wires a stand-in authentication middleware that attaches the
// given roles, then the Authorize middleware, then a handler echoing the
// resolved projection.
func newRouter(roles []string) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.RolesKey, roles)
		c.Next()
	})
	group := r.Group("/api/:entity", middleware.Authorize(testPipeline()))
	handler := func(c *gin.Context) {
		fields, _ := c.Get(middleware.FieldsKey)
		c.JSON(http.StatusOK, gin.H{"fields": fields})
	}
	group.GET("", handler)
	group.POST("", handler)
	group.PUT("", handler)
	return r
}

func TestAuthorizeGrantedRead(t *testing.T) {
	r := newRouter([]string{"reader"})

	req := httptest.NewRequest(http.MethodGet, "/api/Book", nil)
	req.Header.Set(middleware.RoleHeader, "reader")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	// No explicit $select: projection narrowed to the allowed columns.
	assert.Contains(t, w.Body.String(), `"id"`)
	assert.Contains(t, w.Body.String(), `"title"`)
	assert.NotContains(t, w.Body.String(), `"price"`)
}

func TestAuthorizeExplicitSelect(t *testing.T) {
	r := newRouter([]string{"reader"})

	req := httptest.NewRequest(http.MethodGet, "/api/Book?$select=title", nil)
	req.Header.Set(middleware.RoleHeader, "reader")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title"`)
	assert.NotContains(t, w.Body.String(), `"id"`)
}

func TestAuthorizeDenialsAreUniform(t *testing.T) {
	cases := []struct {
		name   string
		roles  []string
		role   string
		method string
		target string
		body   string
	}{
		{
			name: "role not held", roles: []string{"reader"}, role: "editor",
			method: http.MethodGet, target: "/api/Book",
		},
		{
			name: "operation not granted", roles: []string{"reader"}, role: "reader",
			method: http.MethodPost, target: "/api/Book",
		},
		{
			name: "column outside allow-list", roles: []string{"reader"}, role: "reader",
			method: http.MethodGet, target: "/api/Book?$select=price",
		},
		{
			name: "body column outside allow-list", roles: []string{"editor"}, role: "editor",
			method: http.MethodPost, target: "/api/Book", body: `{"title":"Dune","id":7}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(tc.roles)
			var body *strings.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tc.method, tc.target, body)
			req.Header.Set(middleware.RoleHeader, tc.role)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusForbidden, w.Code)
			// The body must not say which check failed.
			assert.JSONEq(t, `{"message":"Forbidden"}`, w.Body.String())
		})
	}
}

func TestAuthorizeUpsertNeedsBothOperations(t *testing.T) {
	// editor holds create and update, so PUT passes.
	r := newRouter([]string{"editor"})
	req := httptest.NewRequest(http.MethodPut, "/api/Book", strings.NewReader(`{"title":"Dune"}`))
	req.Header.Set(middleware.RoleHeader, "editor")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// reader holds neither, so PUT is denied.
	r = newRouter([]string{"reader"})
	req = httptest.NewRequest(http.MethodPut, "/api/Book", strings.NewReader(`{"title":"Dune"}`))
	req.Header.Set(middleware.RoleHeader, "reader")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthorizeBodySurvivesColumnExtraction(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.RolesKey, []string{"editor"})
		c.Next()
	})
	var seen string
	r.POST("/api/:entity", middleware.Authorize(testPipeline()), func(c *gin.Context) {
		raw, err := c.GetRawData()
		require.NoError(t, err)
		seen = string(raw)
		c.Status(http.StatusOK)
	})

	body := `{"title":"Dune"}`
	req := httptest.NewRequest(http.MethodPost, "/api/Book", strings.NewReader(body))
	req.Header.Set(middleware.RoleHeader, "editor")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, seen, "the middleware must restore the body for downstream handlers")
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("generates an ID when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	})

	t.Run("preserves a caller-supplied ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "req-123", w.Header().Get(middleware.RequestIDHeader))
	})
}
