package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Chhotu321/draw2gather/internal/config"
	"github.com/Chhotu321/draw2gather/internal/core"
	"github.com/Chhotu321/draw2gather/internal/relay"
)

var ErrBackpressure = errors.New("backpressure")

// WSController upgrades HTTP requests and feeds decoded events into the
// relay engine. One instance serves all connections.
type WSController struct {
	Engine  *relay.Engine
	Cfg     *config.Config
	limiter *RoomRateLimiter
}

func NewWSController(eng *relay.Engine, cfg *config.Config) *WSController {
	return &WSController{
		Engine:  eng,
		Cfg:     cfg,
		limiter: NewRoomRateLimiter(joinAttemptLimit, joinAttemptWindow),
	}
}

// WsConn wraps a websocket with a buffered outbound channel so broadcasts
// never block on a slow peer.
type WsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and runs the connection's pump pair.
// Each socket gets its own connection identity; the client token cookie is
// only a per-browser identity and two tabs must not share a room slot.
func (ctl *WSController) HandleWS(ctx context.Context, c *gin.Context) {
	id := core.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("conn", string(id)).Str("client", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.Cfg.ReadLimit)

	conn := &WsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Cfg.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go func() {
		defer cancel()
		ctl.readPump(ctx, id, conn)
	}()
}
