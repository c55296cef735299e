package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"taskhub/internal/services"
)

type IntegrationsHandler struct {
	TG    *services.TelegramService
	Users services.UserService
}

func NewIntegrationsHandler(tg *services.TelegramService, users services.UserService) *IntegrationsHandler {
	return &IntegrationsHandler{TG: tg, Users: users}
}

// Webhook always answers 200 so Telegram does not redeliver the update.
func (h *IntegrationsHandler) Webhook(c *gin.Context) {
	if h.TG == nil {
		log.Printf("[tg][webhook] telegram disabled")
		c.Status(http.StatusOK)
		return
	}
	var up tgbotapi.Update
	if err := c.ShouldBindJSON(&up); err != nil {
		log.Printf("[tg][webhook] bind json error: %v", err)
		c.Status(http.StatusOK)
		return
	}
	h.TG.HandleUpdate(c.Request.Context(), up)
	c.Status(http.StatusOK)
}

// @Summary      Request Telegram link code
// @Description  Send the returned code to the bot as /link CODE within 30 minutes.
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]string
// @Router       /api/integrations/telegram/link [post]
func (h *IntegrationsHandler) RequestTelegramLink(c *gin.Context) {
	if h.TG == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "telegram is not configured"})
		return
	}
	actor := actorFrom(c)
	link, err := h.TG.RequestLink(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, "[tg][link]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":       link.Code,
		"expires_at": link.ExpiresAt,
		"hint":       "Open the bot chat and send: /link " + link.Code,
	})
}

// @Summary      Unlink Telegram
// @Tags         Integrations
// @Security     BearerAuth
// @Success      204
// @Router       /api/integrations/telegram/link [delete]
func (h *IntegrationsHandler) UnlinkTelegram(c *gin.Context) {
	if err := h.Users.UnlinkTelegram(c.Request.Context(), actorFrom(c)); err != nil {
		respondError(c, "[tg][unlink]", err)
		return
	}
	c.Status(http.StatusNoContent)
}
