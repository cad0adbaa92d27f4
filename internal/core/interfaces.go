package core

import (
	"errors"
	"time"

	"github.com/Chhotu321/draw2gather/internal/domain"
)

// Frame is a raw outbound payload, already encoded.
type Frame []byte

// ConnID identifies one live client connection.
type ConnID string

var (
	ErrRoomFull      = errors.New("room full")
	ErrUsernameTaken = errors.New("username taken")
)

// SignalConnection abstracts the messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// MemberSession binds domain.Member and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to the relay engine.
type PublishResult struct {
	SentTo  int
	Dropped []ConnID
}

// MemberDTO is a read-only view for wire payloads (no transport fields).
type MemberDTO struct {
	Username string `json:"username"`
}

// RoomService is the core-facing API of a room. It owns the membership
// set and the stroke history but never touches transport resources.
// Members keep join order; strokes keep arrival order.
type RoomService interface {
	Room() *domain.Room
	MemberCount() int
	Members() []MemberDTO

	AddMember(id ConnID, ms MemberSession) error
	// RemoveMember reports the member count left after removal.
	RemoveMember(id ConnID) int

	AppendStroke(s domain.Stroke)
	Strokes() []domain.Stroke
	ClearStrokes()

	// Broadcast sends to every member except from.
	Broadcast(from ConnID, f Frame) PublishResult
	// BroadcastAll sends to every member, sender included.
	BroadcastAll(f Frame) PublishResult
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}

// RoomStore is the registry of live rooms.
type RoomStore interface {
	Create() (RoomService, error)
	Get(id domain.RoomID) (RoomService, bool)
	Delete(id domain.RoomID)
	List() []RoomInfo
	// SweepIdle removes rooms that are empty and older than olderThan,
	// returning how many were removed.
	SweepIdle(olderThan time.Duration) int
}
