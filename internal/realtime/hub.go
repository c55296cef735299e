package realtime

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"taskhub/internal/authz"
	"taskhub/internal/metrics"
)

const AdminRoom = "admin"

var (
	ErrHubClosed     = errors.New("realtime hub closed")
	ErrNotRegistered = errors.New("session not registered")
)

func UserRoom(userID int64) string { return "user:" + strconv.FormatInt(userID, 10) }
func TaskRoom(taskID int64) string { return "task:" + strconv.FormatInt(taskID, 10) }

// Event is the server-to-client frame.
type Event struct {
	Name    string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Session is one live connection. Its send buffer is drained by the
// connection's writer; when the buffer is full, new events are dropped.
type Session struct {
	ID    string
	Actor authz.Actor

	send  chan []byte
	rooms map[string]struct{}
}

// Send is closed when the session is unregistered or the hub closes.
func (s *Session) Send() <-chan []byte { return s.send }

// Hub keeps the session registry and room membership. Publish calls take
// the read lock; connect, disconnect, join and leave take the write lock.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	rooms    map[string]map[*Session]struct{}
	buffer   int
	closed   bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[*Session]struct{}),
		buffer:   buffer,
	}
}

// Register adds a session for actor. Admin sessions join the admin room.
func (h *Hub) Register(actor authz.Actor) (*Session, error) {
	s := &Session{
		ID:    uuid.NewString(),
		Actor: actor,
		send:  make(chan []byte, h.buffer),
		rooms: make(map[string]struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	h.sessions[s.ID] = s
	if actor.IsAdmin() {
		h.joinLocked(s, AdminRoom)
	}
	metrics.RealtimeSessions.Inc()
	log.Printf("[ws][register] session=%s user=%d", s.ID, actor.ID)
	return s, nil
}

// Unregister removes s from every room and closes its send channel.
// Calling it twice is harmless.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[s.ID]; !ok {
		return
	}
	for room := range s.rooms {
		h.leaveLocked(s, room)
	}
	delete(h.sessions, s.ID)
	close(s.send)
	metrics.RealtimeSessions.Dec()
	log.Printf("[ws][unregister] session=%s user=%d", s.ID, s.Actor.ID)
}

func (h *Hub) JoinUserRoom(s *Session, userID int64) error { return h.join(s, UserRoom(userID)) }
func (h *Hub) JoinTaskRoom(s *Session, taskID int64) error { return h.join(s, TaskRoom(taskID)) }

// LeaveTaskRoom is idempotent.
func (h *Hub) LeaveTaskRoom(s *Session, taskID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(s, TaskRoom(taskID))
}

func (h *Hub) join(s *Session, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}
	if _, ok := h.sessions[s.ID]; !ok {
		return ErrNotRegistered
	}
	h.joinLocked(s, room)
	return nil
}

func (h *Hub) joinLocked(s *Session, room string) {
	members := h.rooms[room]
	if members == nil {
		members = make(map[*Session]struct{})
		h.rooms[room] = members
	}
	members[s] = struct{}{}
	s.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(s *Session, room string) {
	delete(s.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) PublishToUser(userID int64, event string, payload interface{}) {
	h.publish(UserRoom(userID), event, payload)
}

func (h *Hub) PublishToTask(taskID int64, event string, payload interface{}) {
	h.publish(TaskRoom(taskID), event, payload)
}

func (h *Hub) BroadcastAdmin(event string, payload interface{}) {
	h.publish(AdminRoom, event, payload)
}

// publish delivers at most once to every session currently in room.
func (h *Hub) publish(room, event string, payload interface{}) {
	data, err := json.Marshal(Event{Name: event, Payload: payload})
	if err != nil {
		log.Printf("[ws][publish][err] room=%s event=%s: %v", room, event, err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.rooms[room] {
		h.offer(s, data)
	}
}

// SendTo delivers one event to a single session.
func (h *Hub) SendTo(s *Session, event string, payload interface{}) {
	data, err := json.Marshal(Event{Name: event, Payload: payload})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.sessions[s.ID]; ok {
		h.offer(s, data)
	}
}

// offer must be called with the read lock held, which keeps s.send open.
func (h *Hub) offer(s *Session, data []byte) {
	select {
	case s.send <- data:
		metrics.RealtimeEvents.WithLabelValues("sent").Inc()
	default:
		metrics.RealtimeEvents.WithLabelValues("dropped").Inc()
		log.Printf("[ws][drop] session=%s buffer full", s.ID)
	}
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Close drops every session; later Register and join calls fail.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, s := range h.sessions {
		close(s.send)
		metrics.RealtimeSessions.Dec()
	}
	h.sessions = make(map[string]*Session)
	h.rooms = make(map[string]map[*Session]struct{})
	log.Printf("[ws][hub] closed")
}
