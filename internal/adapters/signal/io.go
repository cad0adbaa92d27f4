package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Chhotu321/draw2gather/internal/core"
	"github.com/Chhotu321/draw2gather/internal/domain"
	"github.com/Chhotu321/draw2gather/internal/relay"
)

const writeWait = 5 * time.Second

func (ctl *WSController) writePump(ctx context.Context, c *WsConn) {
	ping := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ping.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *WSController) readPump(ctx context.Context, id core.ConnID, c *WsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(id)).Msg("readPump closing")
		ctl.Engine.Disconnect(id)
		ctl.limiter.Forget(id)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("readPump read error")
				}
				return
			}
			ctl.dispatch(id, c, data)
		}
	}
}

func (ctl *WSController) dispatch(id core.ConnID, c *WsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case relay.EventCreateRoom:
		ctl.handleCreateRoom(id, c, data)
	case relay.EventJoinRoom:
		ctl.handleJoinRoom(id, c, data)
	case relay.EventDraw:
		ctl.handleDraw(id, data)
	case relay.EventClearCanvas:
		ctl.Engine.ClearCanvas(id)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
	}
}

func (ctl *WSController) handleCreateRoom(id core.ConnID, c *WsConn, data []byte) {
	if !ctl.allowAttempt(id, c) {
		return
	}
	var p struct {
		Type     string `json:"type"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad create-room payload")
		ctl.sendJSON(c, relay.JoinError{Type: relay.EventJoinError, Message: "Bad payload"})
		return
	}
	ctl.Engine.CreateRoom(id, c, p.Username)
}

func (ctl *WSController) handleJoinRoom(id core.ConnID, c *WsConn, data []byte) {
	if !ctl.allowAttempt(id, c) {
		return
	}
	var p struct {
		Type     string `json:"type"`
		RoomID   string `json:"roomId"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join-room payload")
		ctl.sendJSON(c, relay.JoinError{Type: relay.EventJoinError, Message: "Bad payload"})
		return
	}
	ctl.Engine.JoinRoom(id, c, p.RoomID, p.Username)
}

func (ctl *WSController) handleDraw(id core.ConnID, data []byte) {
	var stroke domain.Stroke
	if err := json.Unmarshal(data, &stroke); err != nil {
		// Same treatment as an out-of-sequence draw: drop it.
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad draw payload")
		return
	}
	ctl.Engine.Draw(id, stroke)
}

func (ctl *WSController) allowAttempt(id core.ConnID, c *WsConn) bool {
	if ctl.limiter.Allow(id) {
		return true
	}
	log.Warn().Str("module", "signal").Str("conn", string(id)).Msg("join attempts rate limited")
	ctl.sendJSON(c, relay.JoinError{Type: relay.EventJoinError, Message: "Too many attempts, try again later"})
	return false
}

func (ctl *WSController) sendJSON(c *WsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
