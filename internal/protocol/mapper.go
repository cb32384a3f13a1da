package protocol

import (
	"time"

	"github.com/Prajwal-k-tech/Battle-CP/pkg/battle"
)

// Outbound is a message plus its audience. An empty To means every
// subscriber of the match.
type Outbound struct {
	To  string
	Msg ServerMessage
}

func secs(d time.Duration) int64 { return int64(d / time.Second) }

func msg(m *battle.Match, typ string, data any) ServerMessage {
	return ServerMessage{Type: typ, MatchID: m.ID, Data: data}
}

// FromEvents maps engine events to outbound messages. It reads m, so call
// it while still holding the match.
func FromEvents(m *battle.Match, events []battle.Event) []Outbound {
	var out []Outbound
	all := func(typ string, data any) {
		out = append(out, Outbound{Msg: msg(m, typ, data)})
	}
	for _, e := range events {
		switch e.Type {
		case battle.EventPlayerJoined:
			handle := ""
			if p := m.Player(e.Player); p != nil {
				handle = p.Handle
			}
			all(TypePlayerJoined, PlayerJoinedData{PlayerID: e.Player, Handle: handle})
		case battle.EventShipsConfirmed:
			all(TypeShipsConfirmed, ShipsConfirmedData{PlayerID: e.Player})
			if p := m.Player(e.Player); p != nil {
				out = append(out, Outbound{To: p.ID, Msg: YourShips(m, p)})
			}
		case battle.EventGameStarted:
			all(TypeGameStart, GameStartData{DurationSecs: secs(e.Duration)})
		case battle.EventShot:
			all(TypeShotResult, ShotResultData{X: e.X, Y: e.Y, Hit: e.Hit, Sunk: e.Sunk, ShooterID: e.Player})
		case battle.EventWeaponsLocked:
			all(TypeWeaponsLocked, WeaponsLockedData{PlayerID: e.Player})
		case battle.EventWeaponsUnlocked:
			all(TypeWeaponsUnlocked, WeaponsUnlockedData{PlayerID: e.Player, Reason: string(e.Unlock)})
		case battle.EventVetoStarted:
			left := 0
			if p := m.Player(e.Player); p != nil {
				left = p.VetoesRemaining(m.Config)
			}
			all(TypeVetoStarted, VetoStartedData{PlayerID: e.Player, PenaltySecs: secs(e.Duration), VetoesLeft: left})
		case battle.EventSuddenDeath:
			all(TypeSuddenDeath, SuddenDeathData{LimitSecs: secs(e.Duration)})
		case battle.EventGameOver:
			out = append(out, Outbound{Msg: GameOver(m)})
		}
	}
	return out
}

// GameJoined echoes the match rules to playerID.
func GameJoined(m *battle.Match, playerID string) ServerMessage {
	return msg(m, TypeGameJoined, GameJoinedData{
		PlayerID:      playerID,
		Difficulty:    m.Config.Difficulty,
		HeatThreshold: m.Config.HeatThreshold,
		MaxVetoes:     m.Config.MaxVetoes,
		DurationSecs:  secs(m.Config.Duration),
	})
}

// YourShips returns p's full fleet with damage.
func YourShips(m *battle.Match, p *battle.Player) ServerMessage {
	ships := make([]battle.Ship, len(p.Ships))
	copy(ships, p.Ships)
	return msg(m, TypeYourShips, YourShipsData{Ships: ships})
}

// GridSync returns both boards from p's point of view.
func GridSync(m *battle.Match, p *battle.Player) ServerMessage {
	data := GridSyncData{YourGrid: p.Grid.Rows(true)}
	if opp := m.Opponent(p.ID); opp != nil {
		data.EnemyGrid = opp.Grid.Rows(false)
	} else {
		var empty battle.Grid
		data.EnemyGrid = empty.Rows(false)
	}
	return msg(m, TypeGridSync, data)
}

// GameUpdateFor is the periodic snapshot for one player.
func GameUpdateFor(m *battle.Match, playerID string, now time.Time) (ServerMessage, bool) {
	p := m.Player(playerID)
	if p == nil {
		return ServerMessage{}, false
	}
	data := GameUpdateData{
		Status:            string(m.Status),
		Heat:              p.Heat,
		IsLocked:          p.Locked || p.InPenalty(),
		TimeRemainingSecs: secs(m.TimeRemaining(now)),
		VetoesRemaining:   p.VetoesRemaining(m.Config),
	}
	if p.InPenalty() {
		v := secs(p.VetoRemaining(now))
		data.VetoTimeRemainingSecs = &v
	}
	if opp := m.Opponent(playerID); opp != nil {
		data.OpponentHeat = opp.Heat
		data.OpponentLocked = opp.Locked || opp.InPenalty()
	}
	return msg(m, TypeGameUpdate, data), true
}

// GameOver reports the result and both players' stats.
func GameOver(m *battle.Match) ServerMessage {
	data := GameOverData{WinnerID: m.Winner, Reason: string(m.Reason)}
	for _, p := range m.Players {
		if p == nil {
			continue
		}
		data.Players = append(data.Players, PlayerReport{
			PlayerID:       p.ID,
			Handle:         p.Handle,
			ShipsRemaining: p.ShipsRemaining(),
			Stats:          p.Stats,
		})
	}
	return msg(m, TypeGameOver, data)
}

// Reconfirm answers a player who resends a fleet that is already placed:
// the confirmation, their ships and their current state.
func Reconfirm(m *battle.Match, playerID string, now time.Time) []ServerMessage {
	p := m.Player(playerID)
	if p == nil || !p.ShipsPlaced {
		return nil
	}
	out := []ServerMessage{msg(m, TypeShipsConfirmed, ShipsConfirmedData{PlayerID: p.ID}), YourShips(m, p)}
	if u, ok := GameUpdateFor(m, playerID, now); ok {
		out = append(out, u)
	}
	return out
}

// Resync is the bundle sent when playerID (re)joins, enough for a client
// with no local state to rebuild the match.
func Resync(m *battle.Match, playerID string, now time.Time) []ServerMessage {
	p := m.Player(playerID)
	if p == nil {
		return nil
	}
	out := []ServerMessage{GameJoined(m, playerID)}
	if opp := m.Opponent(playerID); opp != nil {
		out = append(out, msg(m, TypePlayerJoined, PlayerJoinedData{PlayerID: opp.ID, Handle: opp.Handle}))
	}
	if u, ok := GameUpdateFor(m, playerID, now); ok {
		out = append(out, u)
	}
	if p.ShipsPlaced {
		out = append(out, msg(m, TypeShipsConfirmed, ShipsConfirmedData{PlayerID: p.ID}), YourShips(m, p))
	}
	if !m.StartedAt.IsZero() {
		out = append(out,
			msg(m, TypeGameStart, GameStartData{DurationSecs: secs(m.Config.Duration)}),
			GridSync(m, p))
	}
	if m.Status == battle.StatusFinished {
		out = append(out, GameOver(m))
	}
	return out
}

// ErrorMessage maps err to an Error message. Unclassified errors are reported
// as internal without their text.
func ErrorMessage(matchID string, err error) ServerMessage {
	kind := battle.KindOf(err)
	text := err.Error()
	if kind == battle.KindInternal {
		text = battle.ErrInternal.Msg
	}
	return ServerMessage{Type: TypeError, MatchID: matchID, Data: ErrorData{Code: kind.String(), Message: text}}
}
