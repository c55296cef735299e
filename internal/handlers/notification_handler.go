package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskhub/internal/services"
)

type NotificationHandler struct {
	service services.NotificationService
}

func NewNotificationHandler(service services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// @Summary      My notifications
// @Description  The 50 newest notifications of the caller and the unread count.
// @Tags         Notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  services.Inbox
// @Router       /api/notifications [get]
func (h *NotificationHandler) ListOwn(c *gin.Context) {
	inbox, err := h.service.ListOwn(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, "[notify][list]", err)
		return
	}
	c.JSON(http.StatusOK, inbox)
}

// @Summary      All notifications
// @Tags         Notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Notification
// @Failure      403  {object}  map[string]string
// @Router       /api/notifications/all [get]
func (h *NotificationHandler) ListAll(c *gin.Context) {
	items, err := h.service.ListAll(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, "[notify][all]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

// @Summary      Unread count
// @Tags         Notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]int
// @Router       /api/notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.service.UnreadCount(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, "[notify][count]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// @Summary      Mark notification read
// @Tags         Notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Notification ID"
// @Success      200  {object}  models.Notification
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	n, err := h.service.MarkRead(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, "[notify][read]", err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// @Summary      Mark all my notifications read
// @Tags         Notifications
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Router       /api/notifications/mark-all-read [patch]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.service.MarkAllRead(c.Request.Context(), actorFrom(c)); err != nil {
		respondError(c, "[notify][read-all]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

// @Summary      Delete notification
// @Tags         Notifications
// @Security     BearerAuth
// @Param        id   path      int  true  "Notification ID"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, "[notify][delete]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}
