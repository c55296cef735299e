package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/authz"
)

var (
	adminActor = authz.Actor{ID: 1, RoleID: authz.RoleAdmin}
	userActor  = authz.Actor{ID: 2, RoleID: authz.RoleUser}
)

func decode(t *testing.T, data []byte) Event {
	t.Helper()
	var ev struct {
		Name    string          `json:"event"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &ev))
	return Event{Name: ev.Name, Payload: string(ev.Payload)}
}

func drain(s *Session) [][]byte {
	var out [][]byte
	for {
		select {
		case data, ok := <-s.Send():
			if !ok {
				return out
			}
			out = append(out, data)
		default:
			return out
		}
	}
}

func TestHub_PublishReachesRoomMembersOnly(t *testing.T) {
	h := NewHub(8)
	alice, err := h.Register(userActor)
	require.NoError(t, err)
	other, err := h.Register(authz.Actor{ID: 3, RoleID: authz.RoleUser})
	require.NoError(t, err)

	require.NoError(t, h.JoinUserRoom(alice, 2))
	require.NoError(t, h.JoinTaskRoom(alice, 50))
	require.NoError(t, h.JoinUserRoom(other, 3))

	h.PublishToUser(2, "taskAssigned", map[string]int{"id": 50})
	h.PublishToTask(50, "taskUpdated", map[string]int{"id": 50})
	h.PublishToTask(51, "taskUpdated", map[string]int{"id": 51})

	got := drain(alice)
	require.Len(t, got, 2)
	assert.Equal(t, Event{Name: "taskAssigned", Payload: `{"id":50}`}, decode(t, got[0]))
	assert.Equal(t, "taskUpdated", decode(t, got[1]).Name)
	assert.Empty(t, drain(other))
}

func TestHub_AdminSessionsJoinAdminRoom(t *testing.T) {
	h := NewHub(8)
	adm, err := h.Register(adminActor)
	require.NoError(t, err)
	usr, err := h.Register(userActor)
	require.NoError(t, err)

	assert.Equal(t, 1, h.RoomSize(AdminRoom))
	h.BroadcastAdmin("adminNotification", "hi")

	assert.Len(t, drain(adm), 1)
	assert.Empty(t, drain(usr))
}

func TestHub_LeaveIsIdempotent(t *testing.T) {
	h := NewHub(8)
	s, err := h.Register(userActor)
	require.NoError(t, err)
	require.NoError(t, h.JoinTaskRoom(s, 7))

	h.LeaveTaskRoom(s, 7)
	h.LeaveTaskRoom(s, 7)
	h.LeaveTaskRoom(s, 99)

	assert.Zero(t, h.RoomSize(TaskRoom(7)))
	h.PublishToTask(7, "taskUpdated", nil)
	assert.Empty(t, drain(s))
}

func TestHub_PublishToEmptyRoomIsNoop(t *testing.T) {
	h := NewHub(8)
	assert.NotPanics(t, func() { h.PublishToUser(42, "x", nil) })
}

func TestHub_FullBufferDrops(t *testing.T) {
	h := NewHub(2)
	s, err := h.Register(userActor)
	require.NoError(t, err)
	require.NoError(t, h.JoinUserRoom(s, 2))

	for i := 0; i < 5; i++ {
		h.PublishToUser(2, "n", i)
	}
	assert.Len(t, drain(s), 2)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	h := NewHub(8)
	s, err := h.Register(userActor)
	require.NoError(t, err)
	require.NoError(t, h.JoinUserRoom(s, 2))

	h.Unregister(s)
	h.Unregister(s)

	_, open := <-s.Send()
	assert.False(t, open)
	assert.Zero(t, h.SessionCount())
	assert.Zero(t, h.RoomSize(UserRoom(2)))
	assert.ErrorIs(t, h.JoinTaskRoom(s, 1), ErrNotRegistered)

	h.SendTo(s, "late", nil)
	h.PublishToUser(2, "late", nil)
}

func TestHub_CloseDropsSessions(t *testing.T) {
	h := NewHub(8)
	s, err := h.Register(userActor)
	require.NoError(t, err)

	h.Close()
	h.Close()

	_, open := <-s.Send()
	assert.False(t, open)
	_, err = h.Register(userActor)
	assert.ErrorIs(t, err, ErrHubClosed)
	assert.ErrorIs(t, h.JoinUserRoom(s, 2), ErrHubClosed)
	h.Unregister(s)
}

func TestHub_ConcurrentPublishAndChurn(t *testing.T) {
	h := NewHub(16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s, err := h.Register(userActor)
				if err != nil {
					return
				}
				_ = h.JoinUserRoom(s, 2)
				_ = h.JoinTaskRoom(s, int64(j))
				h.LeaveTaskRoom(s, int64(j))
				h.Unregister(s)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				h.PublishToUser(2, "tick", j)
				h.PublishToTask(int64(j%50), "tick", j)
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, h.SessionCount())
}
