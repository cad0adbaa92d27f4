package app

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Chhotu321/draw2gather/internal/core"
	"github.com/Chhotu321/draw2gather/internal/domain"
)

var ErrRoomNotFound = errors.New("room not found")

const (
	roomCodeLen     = 6
	roomCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// With a 36^6 space a collision is effectively impossible, but the
	// store still retries rather than silently reusing a live room.
	maxCodeAttempts = 16
)

// RoomStoreImpl is the process-wide registry of live rooms.
type RoomStoreImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
}

func NewRoomStore() *RoomStoreImpl {
	return &RoomStoreImpl{rooms: make(map[domain.RoomID]core.RoomService)}
}

func newRoomCode() domain.RoomID {
	b := make([]byte, roomCodeLen)
	for i := range b {
		b[i] = roomCodeCharset[rand.IntN(len(roomCodeCharset))]
	}
	return domain.RoomID(b)
}

func (s *RoomStoreImpl) Create() (core.RoomService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for range maxCodeAttempts {
		id := newRoomCode()
		if _, taken := s.rooms[id]; taken {
			continue
		}
		room := core.NewRoomService(domain.NewRoom(id))
		s.rooms[id] = room
		log.Info().Str("module", "app.store").Str("room", string(id)).Msg("room created")
		return room, nil
	}
	return nil, errors.New("could not allocate a free room code")
}

func (s *RoomStoreImpl) Get(id domain.RoomID) (core.RoomService, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	return room, ok
}

func (s *RoomStoreImpl) Delete(id domain.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
	log.Info().Str("module", "app.store").Str("room", string(id)).Msg("room deleted")
}

func (s *RoomStoreImpl) List() []core.RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(s.rooms))
	for id, r := range s.rooms {
		out = append(out, core.RoomInfo{ID: id, MemberCount: r.MemberCount()})
	}
	return out
}

// SweepIdle drops rooms that are empty and older than olderThan. Rooms are
// already deleted the moment their last member leaves, so this is a safety
// net for anything that slipped through.
func (s *RoomStoreImpl) SweepIdle(olderThan time.Duration) int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	swept := 0
	for id, r := range s.rooms {
		if r.MemberCount() == 0 && now.Sub(r.Room().CreatedAt) > olderThan {
			delete(s.rooms, id)
			swept++
			log.Info().Str("module", "app.store").Str("room", string(id)).Msg("swept idle room")
		}
	}
	return swept
}
