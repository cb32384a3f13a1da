package handler

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Prajwal-k-tech/Battle-CP/internal/protocol"
)

// WSConn is one client socket bound to a match seat.
type WSConn struct {
	conn     *websocket.Conn
	matchID  string
	playerID string
	send     chan []byte
}

// Hub tracks connections per match and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	matches map[string]map[*WSConn]bool // matchID -> connections
	total   int
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{matches: make(map[string]map[*WSConn]bool)}
}

// Register subscribes a connection to its match.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.matches[c.matchID] == nil {
		h.matches[c.matchID] = make(map[*WSConn]bool)
	}
	h.matches[c.matchID][c] = true
	h.total++
}

// Unregister removes a connection and closes its send queue. Calling it twice
// is a no-op.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.matches[c.matchID]
	if !ok || !conns[c] {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.matches, c.matchID)
	}
	h.total--
	close(c.send)
}

// Publish sends msg to every connection on matchID.
func (h *Hub) Publish(matchID string, msg protocol.ServerMessage) {
	data, ok := encode(matchID, msg)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.matches[matchID] {
		enqueue(c, data)
	}
}

// PublishTo sends msg to playerID's connections on matchID.
func (h *Hub) PublishTo(matchID, playerID string, msg protocol.ServerMessage) {
	data, ok := encode(matchID, msg)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.matches[matchID] {
		if c.playerID == playerID {
			enqueue(c, data)
		}
	}
}

// Send queues msg on a single connection if it is still registered.
func (h *Hub) Send(c *WSConn, msg protocol.ServerMessage) {
	data, ok := encode(c.matchID, msg)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.matches[c.matchID][c] {
		enqueue(c, data)
	}
}

func encode(matchID string, msg protocol.ServerMessage) ([]byte, bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("matchId", matchID).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return nil, false
	}
	return data, true
}

// enqueue never blocks. A full queue loses its oldest message so a slow
// client converges on recent state.
func enqueue(c *WSConn, data []byte) {
	for range 2 {
		select {
		case c.send <- data:
			return
		default:
		}
		select {
		case <-c.send:
			log.Warn().Str("matchId", c.matchID).Str("playerId", c.playerID).Msg("Dropping oldest WebSocket message, buffer full")
		default:
		}
	}
}

// PlayerConnectionCount returns how many sockets playerID has open on matchID.
func (h *Hub) PlayerConnectionCount(matchID, playerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.matches[matchID] {
		if c.playerID == playerID {
			n++
		}
	}
	return n
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// MatchSubscriberCount returns the number of connections on a match.
func (h *Hub) MatchSubscriberCount(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.matches[matchID])
}
