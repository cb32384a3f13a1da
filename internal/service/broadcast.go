package service

import "github.com/Prajwal-k-tech/Battle-CP/internal/protocol"

// Broadcaster sends real-time messages to a match's connected clients.
// Implemented by the WebSocket hub. Implementations must not block: they are
// called while the match is held.
type Broadcaster interface {
	Publish(matchID string, msg protocol.ServerMessage)
	PublishTo(matchID, playerID string, msg protocol.ServerMessage)
}

// NoopBroadcaster is a no-op implementation for testing or when WS is disabled.
type NoopBroadcaster struct{}

func (NoopBroadcaster) Publish(string, protocol.ServerMessage)           {}
func (NoopBroadcaster) PublishTo(string, string, protocol.ServerMessage) {}

// Presence counts a player's live connections to a match. A Broadcaster that
// also implements it becomes the source of truth for connection state.
type Presence interface {
	PlayerConnectionCount(matchID, playerID string) int
}
