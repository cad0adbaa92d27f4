package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Chhotu321/draw2gather/internal/core"
)

// Reaper periodically evicts empty rooms past their age threshold.
type Reaper struct {
	store    core.RoomStore
	ttl      time.Duration
	interval time.Duration
}

func NewReaper(store core.RoomStore, ttl, interval time.Duration) *Reaper {
	return &Reaper{store: store, ttl: ttl, interval: interval}
}

// Run blocks until ctx is done, sweeping on every tick.
func (r *Reaper) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.reaper").Msg("reaper stopped")
			return
		case <-t.C:
			if n := r.store.SweepIdle(r.ttl); n > 0 {
				log.Info().Str("module", "app.reaper").Int("swept", n).Msg("swept idle rooms")
			}
		}
	}
}
