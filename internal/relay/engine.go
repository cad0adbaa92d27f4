// Package relay validates room-mutating events against the room store and
// fans resulting events out to the right audience: sender only, whole room,
// or room minus sender. It knows nothing about the wire transport; adapters
// hand it decoded payloads and a SignalConnection to answer on.
package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Chhotu321/draw2gather/internal/app"
	"github.com/Chhotu321/draw2gather/internal/core"
	"github.com/Chhotu321/draw2gather/internal/domain"
)

// Join rejection reasons surfaced to clients verbatim.
const (
	MsgRoomNotFound    = "Room not found"
	MsgRoomFull        = "Room is full (max 2 users)"
	MsgUsernameTaken   = "Username already taken in this room"
	MsgUsernameMissing = "Username is required"
	MsgRoomIDMissing   = "Room ID is required"
	MsgAlreadyInRoom   = "Already in a room"
)

type Engine struct {
	Store    core.RoomStore
	Registry *app.Registry
	Policy   app.Policy
}

func NewEngine(store core.RoomStore, reg *app.Registry, pol app.Policy) *Engine {
	return &Engine{Store: store, Registry: reg, Policy: pol}
}

// CreateRoom allocates a fresh room, makes the caller its first member and
// answers with room-created. Only the sender hears about it.
func (e *Engine) CreateRoom(id core.ConnID, conn core.SignalConnection, username string) {
	if _, bound := e.Registry.Lookup(id); bound {
		e.send(conn, JoinError{Type: EventJoinError, Message: MsgAlreadyInRoom})
		return
	}
	meta, err := domain.NewMember(strings.TrimSpace(username))
	if err != nil {
		e.send(conn, JoinError{Type: EventJoinError, Message: validationMessage(err)})
		return
	}
	room, err := e.Store.Create()
	if err != nil {
		// Allocation failure is internal; drop the event, keep the connection.
		log.Error().Err(err).Str("module", "relay").Str("conn", string(id)).Msg("room allocation failed")
		return
	}
	sess := core.NewMemberSession(meta, conn)
	if err := room.AddMember(id, sess); err != nil {
		log.Error().Err(err).Str("module", "relay").Str("room", string(room.Room().ID)).Msg("first member rejected by fresh room")
		e.Store.Delete(room.Room().ID)
		return
	}
	e.Registry.Bind(id, room.Room().ID, meta.Username, sess)
	e.send(conn, RoomCreated{Type: EventRoomCreated, RoomID: room.Room().ID, Username: meta.Username})
	log.Info().Str("module", "relay").Str("room", string(room.Room().ID)).Str("user", meta.Username).Msg("room created")
}

// JoinRoom admits the caller into an existing room. On failure nothing is
// mutated and the caller gets a join-error; on success the joiner receives
// the accumulated strokes and everyone, joiner included, hears user-joined.
func (e *Engine) JoinRoom(id core.ConnID, conn core.SignalConnection, roomID, username string) {
	if _, bound := e.Registry.Lookup(id); bound {
		e.send(conn, JoinError{Type: EventJoinError, Message: MsgAlreadyInRoom})
		return
	}
	normalized := domain.NormalizeRoomID(roomID)
	if normalized == "" {
		e.send(conn, JoinError{Type: EventJoinError, Message: MsgRoomIDMissing})
		return
	}
	meta, err := domain.NewMember(strings.TrimSpace(username))
	if err != nil {
		e.send(conn, JoinError{Type: EventJoinError, Message: validationMessage(err)})
		return
	}
	room, ok := e.Store.Get(normalized)
	if !ok {
		e.send(conn, JoinError{Type: EventJoinError, Message: MsgRoomNotFound})
		return
	}
	sess := core.NewMemberSession(meta, conn)
	if err := room.AddMember(id, sess); err != nil {
		e.send(conn, JoinError{Type: EventJoinError, Message: joinMessage(err)})
		return
	}
	e.Registry.Bind(id, normalized, meta.Username, sess)

	e.send(conn, LoadDrawing{Type: EventLoadDrawing, Strokes: room.Strokes()})
	joined := mustMarshal(Presence{
		Type:    EventUserJoined,
		Members: room.Members(),
		Message: fmt.Sprintf("%s joined the room", meta.Username),
	})
	e.applyBackpressure(room, room.BroadcastAll(joined))
	log.Info().Str("module", "relay").Str("room", string(normalized)).Str("user", meta.Username).Msg("user joined")
}

// Draw appends the stroke to the room history and relays it to every other
// member. An unbound sender is ignored: the event raced a leave or clear,
// not worth surfacing.
func (e *Engine) Draw(id core.ConnID, stroke domain.Stroke) {
	b, ok := e.Registry.Lookup(id)
	if !ok {
		return
	}
	if !stroke.Tool.Valid() {
		log.Warn().Str("module", "relay").Str("conn", string(id)).Str("tool", string(stroke.Tool)).Msg("dropping stroke with unknown tool")
		return
	}
	room, ok := e.Store.Get(b.RoomID)
	if !ok {
		return
	}
	room.AppendStroke(stroke)
	frame := mustMarshal(DrawEvent{Type: EventDraw, Stroke: stroke})
	e.applyBackpressure(room, room.Broadcast(id, frame))
}

// ClearCanvas truncates the room's stroke history and tells everyone,
// sender included, so all canvases converge on empty.
func (e *Engine) ClearCanvas(id core.ConnID) {
	b, ok := e.Registry.Lookup(id)
	if !ok {
		return
	}
	room, ok := e.Store.Get(b.RoomID)
	if !ok {
		return
	}
	room.ClearStrokes()
	frame := mustMarshal(ClearCanvas{Type: EventClearCanvas})
	e.applyBackpressure(room, room.BroadcastAll(frame))
	log.Info().Str("module", "relay").Str("room", string(b.RoomID)).Str("user", b.Username).Msg("canvas cleared")
}

// Disconnect releases the caller's room slot. The last member leaving
// deletes the room and its history on the spot; otherwise the remaining
// member hears user-left.
func (e *Engine) Disconnect(id core.ConnID) {
	b, ok := e.Registry.Lookup(id)
	if !ok {
		return
	}
	e.Registry.Unbind(id)
	room, ok := e.Store.Get(b.RoomID)
	if !ok {
		return
	}
	remaining := room.RemoveMember(id)
	if remaining == 0 {
		e.Store.Delete(b.RoomID)
		return
	}
	left := mustMarshal(Presence{
		Type:    EventUserLeft,
		Members: room.Members(),
		Message: fmt.Sprintf("%s left the room", b.Username),
	})
	e.applyBackpressure(room, room.BroadcastAll(left))
	log.Info().Str("module", "relay").Str("room", string(b.RoomID)).Str("user", b.Username).Msg("user left")
}

// applyBackpressure consults the policy for every member whose send buffer
// overflowed. Kicked members get their transport closed; the adapter's read
// loop then unwinds into Disconnect.
func (e *Engine) applyBackpressure(room core.RoomService, res core.PublishResult) {
	if e.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch e.Policy.OnBackpressure(room, slow) {
		case app.KickMember:
			if b, ok := e.Registry.Lookup(slow); ok {
				log.Warn().Str("module", "relay").Str("conn", string(slow)).Msg("kicking slow member")
				b.Session.Signal().Close()
			}
		case app.DropFrame, app.NoAction:
		}
	}
}

func (e *Engine) send(conn core.SignalConnection, v any) {
	if err := conn.TrySend(mustMarshal(v)); err != nil {
		log.Warn().Err(err).Str("module", "relay").Msg("direct send failed")
	}
}

func mustMarshal(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		// Event structs are plain data; this cannot fail at runtime.
		log.Error().Err(err).Str("module", "relay").Msg("event marshal failed")
		return nil
	}
	return b
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrUsernameEmpty):
		return MsgUsernameMissing
	case errors.Is(err, domain.ErrUsernameTooLong):
		return "Username is too long"
	default:
		return "Invalid request"
	}
}

func joinMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrRoomFull):
		return MsgRoomFull
	case errors.Is(err, core.ErrUsernameTaken):
		return MsgUsernameTaken
	default:
		return "Could not join room"
	}
}
