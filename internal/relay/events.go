package relay

import (
	"github.com/Chhotu321/draw2gather/internal/core"
	"github.com/Chhotu321/draw2gather/internal/domain"
)

// Inbound event types, dispatched on the envelope's "type" field.
const (
	EventCreateRoom  = "create-room"
	EventJoinRoom    = "join-room"
	EventDraw        = "draw"
	EventClearCanvas = "clear-canvas"
)

// Outbound event types.
const (
	EventRoomCreated = "room-created"
	EventJoinError   = "join-error"
	EventLoadDrawing = "load-drawing"
	EventUserJoined  = "user-joined"
	EventUserLeft    = "user-left"
)

type RoomCreated struct {
	Type     string        `json:"type"`
	RoomID   domain.RoomID `json:"roomId"`
	Username string        `json:"username"`
}

type JoinError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type LoadDrawing struct {
	Type    string          `json:"type"`
	Strokes []domain.Stroke `json:"strokes"`
}

type DrawEvent struct {
	Type string `json:"type"`
	domain.Stroke
}

type ClearCanvas struct {
	Type string `json:"type"`
}

// Presence carries the room's member list (in join order) plus a
// human-readable message, for both user-joined and user-left.
type Presence struct {
	Type    string           `json:"type"`
	Members []core.MemberDTO `json:"members"`
	Message string           `json:"message"`
}
