package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"parlour/internal/apperr"
	"parlour/internal/model"
)

type stubAuth map[string]*model.Identity

func (s stubAuth) Authenticate(_ context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, apperr.Unauthorized("Not authorized, token missing")
	}
	u, ok := s[token]
	if !ok {
		return nil, apperr.Unauthorized("Not authorized, invalid token")
	}
	return u, nil
}

func gateRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authn := stubAuth{
		"super": {ID: "1", Role: model.RoleSuperAdmin},
		"admin": {ID: "2", Role: model.RoleAdmin},
	}
	r.DELETE("/employees/:id", RequireAuth(authn), RequireCapability(ManageEmployees), func(c *gin.Context) {
		u, _ := CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{"success": true, "by": u.ID})
	})
	return r
}

func TestGate(t *testing.T) {
	r := gateRouter()
	cases := []struct {
		name   string
		header string
		status int
		msg    string
	}{
		{"missing", "", http.StatusUnauthorized, "Not authorized, token missing"},
		{"wrong scheme", "Basic super", http.StatusUnauthorized, "Not authorized, token missing"},
		{"invalid", "Bearer nope", http.StatusUnauthorized, "Not authorized, invalid token"},
		{"admin forbidden", "Bearer admin", http.StatusForbidden, "User role admin is not authorized to access this route"},
		{"superadmin allowed", "bearer super", http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/employees/x", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, tc.status, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tc.msg != "" {
				require.Equal(t, false, body["success"])
				require.Equal(t, tc.msg, body["message"])
			}
		})
	}
}

func TestCapabilityWithoutIdentityIsForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/tasks", RequireCapability(ReadDirectory), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.JSONEq(t, `{"success":false,"message":"User not authenticated"}`, w.Body.String())
}
