package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Chhotu321/draw2gather/internal/core"
	"github.com/Chhotu321/draw2gather/internal/domain"
)

// Binding is the per-connection session state: which room the connection
// is in and under which name. It exists only between a successful
// create/join and the connection closing.
type Binding struct {
	RoomID   domain.RoomID
	Username string
	Session  core.MemberSession
}

// Registry maps live connections to their room binding.
type Registry struct {
	mu       sync.RWMutex
	bindings map[core.ConnID]*Binding
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[core.ConnID]*Binding)}
}

func (r *Registry) Bind(id core.ConnID, roomID domain.RoomID, username string, sess core.MemberSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[id] = &Binding{RoomID: roomID, Username: username, Session: sess}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("room", string(roomID)).Str("user", username).Msg("bound session")
}

func (r *Registry) Lookup(id core.ConnID) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.bindings[id]; ok {
		return *b, true
	}
	return Binding{}, false
}

func (r *Registry) Unbind(id core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unbound session")
}
