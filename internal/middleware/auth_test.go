package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/authz"
	"taskhub/internal/utils"
)

var secret = []byte("test-secret")

func init() { gin.SetMode(gin.TestMode) }

func newRouter(extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	chain := append([]gin.HandlerFunc{AuthMiddleware(secret)}, extra...)
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user": c.GetInt64(CtxUserID),
			"role": c.GetInt(CtxRoleID),
			"name": c.GetString(CtxUserName),
		})
	})
	r.GET("/me", chain...)
	return r
}

func token(t *testing.T, role int, ttl time.Duration) string {
	t.Helper()
	tok, _, err := utils.SignAccessToken(secret, 2, role, "Alice", ttl, time.Now())
	require.NoError(t, err)
	return tok
}

func TestAuthMiddleware(t *testing.T) {
	valid := token(t, authz.RoleUser, time.Hour)
	expired := token(t, authz.RoleUser, -time.Hour)

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer header", "Bearer " + valid, "", http.StatusOK},
		{"lowercase scheme", "bearer " + valid, "", http.StatusOK},
		{"query token", "", "?token=" + valid, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, "", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newRouter().ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestAuthMiddleware_SetsClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, authz.RoleAdmin, time.Hour))
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":2,"role":50,"name":"Alice"}`, w.Body.String())
}

func TestRequireRoles(t *testing.T) {
	r := newRouter(RequireRoles(authz.RoleAdmin))

	for role, want := range map[int]int{
		authz.RoleAdmin: http.StatusOK,
		authz.RoleUser:  http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token(t, role, time.Hour))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, "role %d", role)
	}
}

func TestRequireRoles_NoAuth(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireRoles(authz.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
