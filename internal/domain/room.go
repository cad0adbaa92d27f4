package domain

import (
	"strings"
	"time"
)

// RoomID is a short shareable room code, always stored upper-case.
type RoomID string

// NormalizeRoomID maps user input to the canonical form used as a map key.
// Clients may type codes in any case; lookups must not depend on it.
func NormalizeRoomID(raw string) RoomID {
	return RoomID(strings.ToUpper(strings.TrimSpace(raw)))
}

type Room struct {
	ID        RoomID
	CreatedAt time.Time
}

func NewRoom(id RoomID) *Room {
	return &Room{ID: id, CreatedAt: time.Now()}
}
