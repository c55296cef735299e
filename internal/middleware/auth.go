package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskhub/internal/utils"
)

// Context keys set by AuthMiddleware.
const (
	CtxUserID   = "user_id"
	CtxRoleID   = "role_id"
	CtxUserName = "user_name"
)

// AuthMiddleware validates the access token from the Authorization header.
// The ?token= query parameter is accepted as well because browsers cannot
// set headers on a websocket upgrade.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		tokenStr := bearerToken(c.GetHeader("Authorization"))
		if tokenStr == "" {
			tokenStr = strings.TrimSpace(c.Query("token"))
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		claims, err := utils.ParseAccessToken(secret, tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRoleID, claims.RoleID)
		c.Set(CtxUserName, claims.Name)
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
