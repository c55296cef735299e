package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskhub/internal/authz"
	"taskhub/internal/middleware"
	"taskhub/internal/services"
)

// tolerant of the numeric type the value was stored with
func getInt64FromCtx(c *gin.Context, key string) (int64, bool) {
	v, ok := c.Get(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), true
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func actorFrom(c *gin.Context) authz.Actor {
	var a authz.Actor
	a.ID, _ = getInt64FromCtx(c, middleware.CtxUserID)
	if role, ok := getInt64FromCtx(c, middleware.CtxRoleID); ok {
		a.RoleID = int(role)
	}
	a.Name = c.GetString(middleware.CtxUserName)
	return a
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondError logs err under tag and writes {"error": reason}.
func respondError(c *gin.Context, tag string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		log.Printf("%s[err] %v", tag, err)
	} else {
		log.Printf("%s[%d] %v", tag, code, err)
	}
	c.JSON(code, gin.H{"error": services.Reason(err)})
}
