package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskhub/internal/models"
	"taskhub/internal/services"
)

type UserHandler struct {
	service services.UserService
}

func NewUserHandler(service services.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// @Summary      Current user
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.User
// @Router       /api/users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.service.Me(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, "[user][me]", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// @Summary      List users
// @Tags         Users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.User
// @Failure      403  {object}  map[string]string
// @Router       /api/users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.service.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, "[user][list]", err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, users)
}
