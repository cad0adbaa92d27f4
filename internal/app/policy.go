package app

import "github.com/Chhotu321/draw2gather/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what to do with a member whose send buffer overflowed.
type Policy interface {
	OnBackpressure(room core.RoomService, id core.ConnID) BackpressureAction
}

// SimplePolicy kicks slow consumers; a stalled peer would otherwise miss
// strokes silently and diverge from the shared canvas.
type SimplePolicy struct{}

func (SimplePolicy) OnBackpressure(room core.RoomService, id core.ConnID) BackpressureAction {
	return KickMember
}
