package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Chhotu321/draw2gather/internal/domain"
)

// MaxRoomMembers caps one room at a drawing pair.
const MaxRoomMembers = 2

type memberEntry struct {
	id      ConnID
	session MemberSession
}

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
// The members slice keeps join order; the strokes slice keeps arrival order.
type roomImpl struct {
	room    *domain.Room
	mu      sync.RWMutex
	members []memberEntry
	strokes []domain.Stroke
}

func NewRoomService(room *domain.Room) RoomService {
	return &roomImpl{room: room}
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *roomImpl) Members() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, MemberDTO{Username: m.session.Meta().Username})
	}
	return out
}

func (r *roomImpl) AddMember(id ConnID, ms MemberSession) error {
	name := ms.Meta().Username
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) >= MaxRoomMembers {
		return ErrRoomFull
	}
	for _, m := range r.members {
		if m.session.Meta().Username == name {
			return ErrUsernameTaken
		}
	}
	r.members = append(r.members, memberEntry{id: id, session: ms})
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("conn", string(id)).Str("user", name).Msg("member added")
	return nil
}

func (r *roomImpl) RemoveMember(id ConnID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.members {
		if m.id == id {
			r.members = append(r.members[:i], r.members[i+1:]...)
			log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("conn", string(id)).Msg("member removed")
			break
		}
	}
	return len(r.members)
}

func (r *roomImpl) AppendStroke(s domain.Stroke) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strokes = append(r.strokes, s)
}

func (r *roomImpl) Strokes() []domain.Stroke {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Stroke, len(r.strokes))
	copy(out, r.strokes)
	return out
}

func (r *roomImpl) ClearStrokes() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strokes = nil
}

func (r *roomImpl) Broadcast(from ConnID, f Frame) PublishResult {
	return r.publish(&from, f)
}

func (r *roomImpl) BroadcastAll(f Frame) PublishResult {
	return r.publish(nil, f)
}

func (r *roomImpl) publish(skip *ConnID, f Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for _, m := range r.members {
		if skip != nil && m.id == *skip {
			continue
		}
		if err := m.session.Signal().TrySend(f); err != nil {
			res.Dropped = append(res.Dropped, m.id)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.room.ID)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
