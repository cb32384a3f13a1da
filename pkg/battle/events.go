package battle

import "time"

// EventType names a state change produced by a match command or tick.
type EventType string

const (
	EventPlayerJoined    EventType = "player_joined"
	EventShipsConfirmed  EventType = "ships_confirmed"
	EventGameStarted     EventType = "game_started"
	EventShot            EventType = "shot"
	EventWeaponsLocked   EventType = "weapons_locked"
	EventWeaponsUnlocked EventType = "weapons_unlocked"
	EventVetoStarted     EventType = "veto_started"
	EventSuddenDeath     EventType = "sudden_death"
	EventGameOver        EventType = "game_over"
)

// Event is a domain event. Player is always the player the event is about:
// the shooter for shots, the affected side for lock changes.
type Event struct {
	Type   EventType
	Player string

	X, Y   int
	Hit    bool
	Sunk   bool
	Unlock UnlockReason

	Winner   string
	Reason   EndReason
	Duration time.Duration
}
