package handlers

import (
	"log"

	"github.com/gin-gonic/gin"

	"taskhub/internal/realtime"
)

type RealtimeHandler struct {
	server *realtime.Server
}

func NewRealtimeHandler(server *realtime.Server) *RealtimeHandler {
	return &RealtimeHandler{server: server}
}

// @Summary      Realtime events
// @Description  Websocket. Send {"type":"joinUser|joinTask|leaveTask","id":N}; receive {"event":...,"payload":...}.
// @Tags         Realtime
// @Param        token  query  string  false  "Access token"
// @Router       /api/ws [get]
func (h *RealtimeHandler) Connect(c *gin.Context) {
	actor := actorFrom(c)
	if err := h.server.Serve(c.Writer, c.Request, actor); err != nil {
		log.Printf("[ws][connect][err] user=%d: %v", actor.ID, err)
	}
}
