package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Prajwal-k-tech/Battle-CP/internal/auth"
	"github.com/Prajwal-k-tech/Battle-CP/internal/logger"
	"github.com/Prajwal-k-tech/Battle-CP/internal/middleware"
	"github.com/Prajwal-k-tech/Battle-CP/internal/protocol"
	"github.com/Prajwal-k-tech/Battle-CP/internal/service"
	"github.com/Prajwal-k-tech/Battle-CP/pkg/battle"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	maxMsgSize  = 4096
	sendBufSize = 256
)

// WSHandler handles WebSocket connections.
type WSHandler struct {
	hub      *Hub
	svc      *service.MatchService
	jwtMgr   *auth.JWTManager
	upgrader websocket.Upgrader
}

// NewWSHandler creates a WSHandler admitting browser origins in allowedOrigins.
func NewWSHandler(hub *Hub, svc *service.MatchService, jwtMgr *auth.JWTManager, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:    hub,
		svc:    svc,
		jwtMgr: jwtMgr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// ServeWS handles GET /api/v1/ws/{matchID}, upgrading to a WebSocket bound to
// the token's seat. Auth via ?token= query parameter (WebSocket can't send headers).
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	claims, err := h.jwtMgr.ValidateForMatch(r.URL.Query().Get("token"), matchID)
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		writeError(w, http.StatusUnauthorized, "missing token parameter")
		return
	case errors.Is(err, auth.ErrWrongMatch):
		writeError(w, http.StatusForbidden, "token is for a different match")
		return
	case err != nil:
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	if !h.svc.Exists(matchID) {
		writeError(w, http.StatusNotFound, battle.ErrMatchNotFound.Msg)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("matchId", matchID).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSConn{
		conn:     conn,
		matchID:  matchID,
		playerID: claims.PlayerID,
		send:     make(chan []byte, sendBufSize),
	}
	h.hub.Register(client)
	h.svc.SyncConnection(matchID, client.playerID)

	go h.writePump(client)
	go h.readPump(client)

	log.Info().Str("matchId", matchID).Str("playerId", client.playerID).
		Int("total", h.hub.ConnectionCount()).Msg("WebSocket client connected")
}

// readPump applies inbound commands in arrival order. Rejections go back to
// this connection only.
func (h *WSHandler) readPump(c *WSConn) {
	clog := logger.ForConn(c.matchID, c.playerID)
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
		h.svc.SyncConnection(c.matchID, c.playerID)
		clog.Info().Msg("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				clog.Warn().Err(err).Msg("WebSocket unexpected close")
			}
			return
		}

		msg, err := protocol.Decode(raw)
		if err == nil {
			err = h.svc.HandleMessage(context.Background(), c.matchID, c.playerID, msg)
		}
		if err == nil {
			continue
		}
		clog.Debug().Err(err).Str("type", msg.Type).Msg("Command rejected")
		h.hub.Send(c, protocol.ErrorMessage(c.matchID, err))
		if battle.KindOf(err) == battle.KindNotFound {
			return
		}
	}
}

// writePump writes queued messages one per frame and keeps the socket alive
// with pings.
func (h *WSHandler) writePump(c *WSConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
