package relay

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chhotu321/draw2gather/internal/app"
	"github.com/Chhotu321/draw2gather/internal/core"
	"github.com/Chhotu321/draw2gather/internal/domain"
)

type mockConn struct {
	mu      sync.Mutex
	frames  []core.Frame
	sendErr error
	closed  bool
}

func (m *mockConn) TrySend(f core.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.frames = append(m.frames, f)
	return nil
}

func (m *mockConn) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

// events decodes every captured frame into a generic map.
func (m *mockConn) events(t *testing.T) []map[string]any {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]any, 0, len(m.frames))
	for _, f := range m.frames {
		var ev map[string]any
		require.NoError(t, json.Unmarshal(f, &ev))
		out = append(out, ev)
	}
	return out
}

func (m *mockConn) eventsOfType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, ev := range m.events(t) {
		if ev["type"] == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (m *mockConn) lastEvent(t *testing.T) map[string]any {
	t.Helper()
	evs := m.events(t)
	require.NotEmpty(t, evs)
	return evs[len(evs)-1]
}

func newEngine() (*Engine, *app.RoomStoreImpl, *app.Registry) {
	store := app.NewRoomStore()
	reg := app.NewRegistry()
	return NewEngine(store, reg, app.SimplePolicy{}), store, reg
}

// createRoom drives a create and returns the allocated room code.
func createRoom(t *testing.T, e *Engine, id core.ConnID, conn *mockConn, username string) domain.RoomID {
	t.Helper()
	e.CreateRoom(id, conn, username)
	ev := conn.lastEvent(t)
	require.Equal(t, EventRoomCreated, ev["type"])
	return domain.RoomID(ev["roomId"].(string))
}

func usernames(t *testing.T, ev map[string]any) []string {
	t.Helper()
	raw, ok := ev["members"].([]any)
	require.True(t, ok)
	out := make([]string, 0, len(raw))
	for _, m := range raw {
		out = append(out, m.(map[string]any)["username"].(string))
	}
	return out
}

func TestEngine_CreateRoom(t *testing.T) {
	e, store, reg := newEngine()
	conn := &mockConn{}

	roomID := createRoom(t, e, "c1", conn, "  Alice  ")

	ev := conn.lastEvent(t)
	assert.Equal(t, "Alice", ev["username"], "username must be trimmed")
	assert.Regexp(t, `^[A-Z0-9]{6}$`, string(roomID))

	room, ok := store.Get(roomID)
	require.True(t, ok)
	assert.Equal(t, 1, room.MemberCount())

	b, ok := reg.Lookup("c1")
	require.True(t, ok)
	assert.Equal(t, roomID, b.RoomID)
	assert.Equal(t, "Alice", b.Username)
}

func TestEngine_CreateRoom_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		username string
		setup    func(e *Engine, conn *mockConn)
		wantMsg  string
	}{
		{
			name:     "empty username",
			username: "   ",
			wantMsg:  MsgUsernameMissing,
		},
		{
			name:     "already in a room",
			username: "Alice",
			setup: func(e *Engine, conn *mockConn) {
				createRoom(t, e, "c1", conn, "Alice")
			},
			wantMsg: MsgAlreadyInRoom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, store, _ := newEngine()
			conn := &mockConn{}
			if tt.setup != nil {
				tt.setup(e, conn)
			}
			before := len(store.List())

			e.CreateRoom("c1", conn, tt.username)

			ev := conn.lastEvent(t)
			assert.Equal(t, EventJoinError, ev["type"])
			assert.Equal(t, tt.wantMsg, ev["message"])
			assert.Len(t, store.List(), before, "failed create must not leave a room behind")
		})
	}
}

func TestEngine_JoinRoom_Errors(t *testing.T) {
	tests := []struct {
		name     string
		roomID   func(real domain.RoomID) string
		username string
		prefill  int // members already in the room besides the creator
		wantMsg  string
	}{
		{
			name:     "room not found",
			roomID:   func(domain.RoomID) string { return "ZZZZZZ" },
			username: "Bob",
			wantMsg:  MsgRoomNotFound,
		},
		{
			name:     "empty room id",
			roomID:   func(domain.RoomID) string { return "   " },
			username: "Bob",
			wantMsg:  MsgRoomIDMissing,
		},
		{
			name:     "empty username",
			roomID:   func(real domain.RoomID) string { return string(real) },
			username: "",
			wantMsg:  MsgUsernameMissing,
		},
		{
			name:     "room full",
			roomID:   func(real domain.RoomID) string { return string(real) },
			username: "Carol",
			prefill:  1,
			wantMsg:  MsgRoomFull,
		},
		{
			name:     "username taken",
			roomID:   func(real domain.RoomID) string { return string(real) },
			username: "Alice",
			wantMsg:  MsgUsernameTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, store, reg := newEngine()
			creator := &mockConn{}
			roomID := createRoom(t, e, "c1", creator, "Alice")
			if tt.prefill > 0 {
				e.JoinRoom("c2", &mockConn{}, string(roomID), "Bob")
			}
			room, _ := store.Get(roomID)
			before := room.MemberCount()

			conn := &mockConn{}
			e.JoinRoom("cX", conn, tt.roomID(roomID), tt.username)

			ev := conn.lastEvent(t)
			assert.Equal(t, EventJoinError, ev["type"])
			assert.Equal(t, tt.wantMsg, ev["message"])
			assert.Equal(t, before, room.MemberCount(), "failed join must not mutate membership")
			_, bound := reg.Lookup("cX")
			assert.False(t, bound)
		})
	}
}

func TestEngine_JoinRoom_CaseInsensitiveCode(t *testing.T) {
	e, _, _ := newEngine()
	creator := &mockConn{}
	roomID := createRoom(t, e, "c1", creator, "Alice")

	joiner := &mockConn{}
	e.JoinRoom("c2", joiner, "  "+lower(string(roomID))+" ", "Bob")

	require.NotEmpty(t, joiner.eventsOfType(t, EventLoadDrawing))
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func TestEngine_Draw_UnboundIsSilent(t *testing.T) {
	e, store, _ := newEngine()

	e.Draw("ghost", domain.Stroke{Tool: domain.ToolPencil})
	e.ClearCanvas("ghost")
	e.Disconnect("ghost")

	assert.Empty(t, store.List())
}

func TestEngine_Draw_UnknownToolDropped(t *testing.T) {
	e, store, _ := newEngine()
	conn := &mockConn{}
	roomID := createRoom(t, e, "c1", conn, "Alice")

	e.Draw("c1", domain.Stroke{Tool: "spraycan"})

	room, _ := store.Get(roomID)
	assert.Empty(t, room.Strokes())
}

func TestEngine_Draw_NoCrossRoomLeak(t *testing.T) {
	e, _, _ := newEngine()
	alice := &mockConn{}
	mallory := &mockConn{}
	createRoom(t, e, "c1", alice, "Alice")
	createRoom(t, e, "c2", mallory, "Mallory")

	e.Draw("c1", domain.Stroke{X1: 5, Y1: 5, Tool: domain.ToolPencil})

	assert.Empty(t, mallory.eventsOfType(t, EventDraw))
}

func TestEngine_BackpressureKicksSlowMember(t *testing.T) {
	e, _, _ := newEngine()
	alice := &mockConn{}
	bob := &mockConn{}
	roomID := createRoom(t, e, "c1", alice, "Alice")
	e.JoinRoom("c2", bob, string(roomID), "Bob")

	bob.mu.Lock()
	bob.sendErr = errors.New("buffer full")
	bob.mu.Unlock()

	e.Draw("c1", domain.Stroke{X1: 1, Y1: 1, Tool: domain.ToolPencil})

	bob.mu.Lock()
	defer bob.mu.Unlock()
	assert.True(t, bob.closed, "slow member must be kicked")
}

// TestEngine_PairSession walks the full two-user session: create, join with
// history replay, one relayed stroke, clear, and both disconnects.
func TestEngine_PairSession(t *testing.T) {
	e, store, _ := newEngine()
	alice := &mockConn{}
	bob := &mockConn{}

	roomID := createRoom(t, e, "c1", alice, "Alice")

	e.JoinRoom("c2", bob, string(roomID), "Bob")

	load := bob.eventsOfType(t, EventLoadDrawing)
	require.Len(t, load, 1)
	assert.Empty(t, load[0]["strokes"], "nothing drawn yet")

	aliceJoined := alice.eventsOfType(t, EventUserJoined)
	bobJoined := bob.eventsOfType(t, EventUserJoined)
	require.Len(t, aliceJoined, 1)
	require.Len(t, bobJoined, 1)
	assert.Equal(t, []string{"Alice", "Bob"}, usernames(t, aliceJoined[0]))
	assert.Equal(t, []string{"Alice", "Bob"}, usernames(t, bobJoined[0]))
	assert.Equal(t, "Bob joined the room", bobJoined[0]["message"])

	stroke := domain.Stroke{X0: 0, Y0: 0, X1: 10, Y1: 10, Color: "#000000", LineWidth: 3, Tool: domain.ToolPencil}
	e.Draw("c1", stroke)

	assert.Empty(t, alice.eventsOfType(t, EventDraw), "sender must not get an echo")
	drawn := bob.eventsOfType(t, EventDraw)
	require.Len(t, drawn, 1)
	assert.Equal(t, float64(10), drawn[0]["x1"])
	assert.Equal(t, "#000000", drawn[0]["color"])
	assert.Equal(t, "pencil", drawn[0]["tool"])

	room, ok := store.Get(roomID)
	require.True(t, ok)
	require.Len(t, room.Strokes(), 1)
	assert.Equal(t, stroke, room.Strokes()[0])

	e.ClearCanvas("c2")
	assert.Len(t, alice.eventsOfType(t, EventClearCanvas), 1)
	assert.Len(t, bob.eventsOfType(t, EventClearCanvas), 1, "clear goes to the sender too")
	assert.Empty(t, room.Strokes())

	e.Disconnect("c2")
	left := alice.eventsOfType(t, EventUserLeft)
	require.Len(t, left, 1)
	assert.Equal(t, []string{"Alice"}, usernames(t, left[0]))
	assert.Equal(t, "Bob left the room", left[0]["message"])
	assert.Equal(t, 1, room.MemberCount(), "room survives with one member")

	e.Disconnect("c1")
	_, ok = store.Get(roomID)
	assert.False(t, ok, "last member leaving deletes the room")
}
