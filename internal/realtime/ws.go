package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"taskhub/internal/authz"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client control messages.
const (
	MsgJoinUser  = "joinUser"
	MsgJoinTask  = "joinTask"
	MsgLeaveTask = "leaveTask"
)

// ControlMessage is the client-to-server frame.
type ControlMessage struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

// TaskViewer reports whether actor may subscribe to a task's room.
type TaskViewer func(ctx context.Context, actor authz.Actor, taskID int64) bool

type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	canView  TaskViewer
}

// NewServer accepts any origin when allowedOrigin is empty.
func NewServer(hub *Hub, allowedOrigin string, canView TaskViewer) *Server {
	return &Server{
		hub:     hub,
		canView: canView,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
	}
}

// Serve upgrades the request and blocks until the connection is closed.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, actor authz.Actor) error {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	sess, err := s.hub.Register(actor)
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		writePump(conn, sess)
	}()
	s.readPump(r.Context(), conn, sess)
	s.hub.Unregister(sess)
	<-done
	return nil
}

func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, sess *Session) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws][read][err] session=%s: %v", sess.ID, err)
			}
			return
		}
		var msg ControlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.reject(sess, "", "malformed message")
			continue
		}
		s.handle(ctx, sess, msg)
	}
}

func (s *Server) handle(ctx context.Context, sess *Session, msg ControlMessage) {
	switch msg.Type {
	case MsgJoinUser:
		if !authz.Can(sess.Actor, authz.ActionJoinUserRoom, authz.UserResource(msg.ID)) {
			s.reject(sess, msg.Type, "not allowed to join this user room")
			return
		}
		if err := s.hub.JoinUserRoom(sess, msg.ID); err != nil {
			s.reject(sess, msg.Type, err.Error())
		}
	case MsgJoinTask:
		if s.canView == nil || !s.canView(ctx, sess.Actor, msg.ID) {
			s.reject(sess, msg.Type, "not allowed to join this task room")
			return
		}
		if err := s.hub.JoinTaskRoom(sess, msg.ID); err != nil {
			s.reject(sess, msg.Type, err.Error())
		}
	case MsgLeaveTask:
		s.hub.LeaveTaskRoom(sess, msg.ID)
	default:
		s.reject(sess, msg.Type, "unknown message type")
	}
}

func (s *Server) reject(sess *Session, typ, reason string) {
	s.hub.SendTo(sess, "error", map[string]string{"type": typ, "message": reason})
}

// writePump is the only writer on conn.
func writePump(conn *websocket.Conn, sess *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case data, ok := <-sess.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
