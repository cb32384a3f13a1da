// Package protocol defines the JSON messages exchanged with match clients and
// maps engine events and errors onto them.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Prajwal-k-tech/Battle-CP/pkg/battle"
)

// Inbound message types.
const (
	TypeJoinGame   = "JoinGame"
	TypePlaceShips = "PlaceShips"
	TypeFire       = "Fire"
	TypeSolveCP    = "SolveCP"
	TypeVeto       = "Veto"
)

// Outbound message types.
const (
	TypeGameJoined      = "GameJoined"
	TypePlayerJoined    = "PlayerJoined"
	TypeShipsConfirmed  = "ShipsConfirmed"
	TypeYourShips       = "YourShips"
	TypeGameStart       = "GameStart"
	TypeGameUpdate      = "GameUpdate"
	TypeGridSync        = "GridSync"
	TypeShotResult      = "ShotResult"
	TypeWeaponsLocked   = "WeaponsLocked"
	TypeWeaponsUnlocked = "WeaponsUnlocked"
	TypeVetoStarted     = "VetoStarted"
	TypeSuddenDeath     = "SuddenDeath"
	TypeGameOver        = "GameOver"
	TypeError           = "Error"
)

// ClientMessage is any inbound message. Only the fields for Type are used.
type ClientMessage struct {
	Type         string             `json:"type"`
	PlayerID     string             `json:"player_id,omitempty"`
	Handle       string             `json:"cf_handle,omitempty"`
	Ships        []battle.Placement `json:"ships,omitempty"`
	X            *int               `json:"x,omitempty"`
	Y            *int               `json:"y,omitempty"`
	ContestID    int                `json:"contest_id,omitempty"`
	ProblemIndex string             `json:"problem_index,omitempty"`
}

// Decode parses and validates an inbound frame.
func Decode(raw []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", battle.ErrInvalidCommand, err)
	}
	if err := msg.Validate(); err != nil {
		return msg, err
	}
	return msg, nil
}

// Validate checks that the fields required by the message type are present.
func (m *ClientMessage) Validate() error {
	switch m.Type {
	case TypeJoinGame:
		m.Handle = strings.TrimSpace(m.Handle)
		if m.Handle == "" {
			return invalid("cf_handle is required")
		}
	case TypePlaceShips:
		if len(m.Ships) == 0 {
			return invalid("ships are required")
		}
	case TypeFire:
		if m.X == nil || m.Y == nil {
			return invalid("x and y are required")
		}
	case TypeSolveCP:
		m.ProblemIndex = strings.ToUpper(strings.TrimSpace(m.ProblemIndex))
		if m.ContestID <= 0 || m.ProblemIndex == "" {
			return invalid("contest_id and problem_index are required")
		}
	case TypeVeto:
	case "":
		return invalid("type is required")
	default:
		return invalid("unknown message type " + m.Type)
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", battle.ErrInvalidCommand, msg)
}

// ServerMessage is the outbound envelope.
type ServerMessage struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// GameJoinedData echoes the match rules to a player that (re)joined.
type GameJoinedData struct {
	PlayerID      string `json:"player_id"`
	Difficulty    int    `json:"difficulty"`
	HeatThreshold int    `json:"heat_threshold"`
	MaxVetoes     int    `json:"max_vetoes"`
	DurationSecs  int64  `json:"duration_secs"`
}

type PlayerJoinedData struct {
	PlayerID string `json:"player_id"`
	Handle   string `json:"cf_handle"`
}

type ShipsConfirmedData struct {
	PlayerID string `json:"player_id"`
}

type YourShipsData struct {
	Ships []battle.Ship `json:"ships"`
}

type GameStartData struct {
	DurationSecs int64 `json:"duration_secs"`
}

// GameUpdateData is the per-player snapshot pushed every tick.
type GameUpdateData struct {
	Status                string `json:"status"`
	Heat                  int    `json:"heat"`
	IsLocked              bool   `json:"is_locked"`
	TimeRemainingSecs     int64  `json:"time_remaining_secs"`
	VetoesRemaining       int    `json:"vetoes_remaining"`
	VetoTimeRemainingSecs *int64 `json:"veto_time_remaining_secs,omitempty"`
	OpponentHeat          int    `json:"opponent_heat"`
	OpponentLocked        bool   `json:"opponent_locked"`
}

// GridSyncData carries both boards. EnemyGrid hides unhit ships.
type GridSyncData struct {
	YourGrid  [][]string `json:"your_grid"`
	EnemyGrid [][]string `json:"enemy_grid"`
}

type ShotResultData struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Hit       bool   `json:"hit"`
	Sunk      bool   `json:"sunk"`
	ShooterID string `json:"shooter_id"`
}

type WeaponsLockedData struct {
	PlayerID string `json:"player_id"`
}

type WeaponsUnlockedData struct {
	PlayerID string `json:"player_id"`
	Reason   string `json:"reason"`
}

type VetoStartedData struct {
	PlayerID    string `json:"player_id"`
	PenaltySecs int64  `json:"penalty_secs"`
	VetoesLeft  int    `json:"vetoes_remaining"`
}

type SuddenDeathData struct {
	LimitSecs int64 `json:"limit_secs"`
}

// PlayerReport is one side's final standing.
type PlayerReport struct {
	PlayerID       string       `json:"player_id"`
	Handle         string       `json:"cf_handle"`
	ShipsRemaining int          `json:"ships_remaining"`
	Stats          battle.Stats `json:"stats"`
}

type GameOverData struct {
	WinnerID string         `json:"winner_id,omitempty"`
	Reason   string         `json:"reason"`
	Players  []PlayerReport `json:"players"`
}

// ErrorData is sent only to the connection that caused the error. Code is
// one of validation, conflict, not_found, external or internal.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
