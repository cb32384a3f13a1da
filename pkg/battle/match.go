package battle

import (
	"strings"
	"time"
)

// Status is the phase of a match. Phases only move forward.
type Status string

const (
	StatusWaiting      Status = "waiting"
	StatusPlacingShips Status = "placing_ships"
	StatusPlaying      Status = "playing"
	StatusSuddenDeath  Status = "sudden_death"
	StatusFinished     Status = "finished"
)

// InCombat reports whether shots are allowed.
func (s Status) InCombat() bool { return s == StatusPlaying || s == StatusSuddenDeath }

// EndReason records how a match finished.
type EndReason string

const (
	ReasonAllShipsSunk EndReason = "all_ships_sunk"
	ReasonTimeout      EndReason = "timeout"
	ReasonSuddenDeath  EndReason = "sudden_death"
	ReasonDisconnect   EndReason = "disconnect"
)

// Match is the state machine for one game between two players. It is not
// safe for concurrent use; callers serialize access.
type Match struct {
	ID     string
	Config MatchConfig
	Status Status

	CreatedAt     time.Time
	StartedAt     time.Time
	Deadline      time.Time
	SuddenDeathAt time.Time
	FinishedAt    time.Time

	// Players[0] created the match, Players[1] joined it.
	Players [2]*Player

	// Winner is empty for a draw.
	Winner string
	Reason EndReason
}

// NewMatch creates a match in Waiting with the creator in the first slot.
func NewMatch(id string, cfg MatchConfig, creator *Player, now time.Time) *Match {
	return &Match{
		ID:        id,
		Config:    cfg,
		Status:    StatusWaiting,
		CreatedAt: now,
		Players:   [2]*Player{creator, nil},
	}
}

// Player returns the participant with the given id, or nil.
func (m *Match) Player(id string) *Player {
	for _, p := range m.Players {
		if p != nil && p.ID == id {
			return p
		}
	}
	return nil
}

// Opponent returns the other participant, or nil if there is none yet.
func (m *Match) Opponent(id string) *Player {
	switch {
	case m.Players[0] != nil && m.Players[0].ID == id:
		return m.Players[1]
	case m.Players[1] != nil && m.Players[1].ID == id:
		return m.Players[0]
	}
	return nil
}

// IsParticipant reports whether id holds one of the two slots.
func (m *Match) IsParticipant(id string) bool { return m.Player(id) != nil }

// Join attaches the second player. Re-attaching an existing participant is a
// no-op so reconnects never re-run the transition.
func (m *Match) Join(id, handle string) ([]Event, error) {
	if m.IsParticipant(id) {
		return nil, nil
	}
	if m.Status == StatusFinished {
		return nil, ErrMatchFinished
	}
	creator := m.Players[0]
	if creator != nil && strings.EqualFold(creator.Handle, handle) {
		return nil, ErrSelfJoin
	}
	if m.Players[1] != nil || m.Status != StatusWaiting {
		return nil, ErrMatchFull
	}
	m.Players[1] = NewPlayer(id, handle)
	m.Status = StatusPlacingShips
	return []Event{{Type: EventPlayerJoined, Player: id}}, nil
}

func (m *Match) combatant(id string) (*Player, *Player, error) {
	p := m.Player(id)
	if p == nil {
		return nil, nil, ErrNotParticipant
	}
	if m.Status == StatusFinished {
		return nil, nil, ErrMatchFinished
	}
	if !m.Status.InCombat() {
		return nil, nil, ErrWrongPhase
	}
	return p, m.Opponent(id), nil
}

// ConfirmPlacement places a player's full fleet. Combat starts once both
// fleets are in.
func (m *Match) ConfirmPlacement(id string, ps []Placement, now time.Time) ([]Event, error) {
	p := m.Player(id)
	if p == nil {
		return nil, ErrNotParticipant
	}
	if m.Status == StatusFinished {
		return nil, ErrMatchFinished
	}
	if m.Status != StatusPlacingShips {
		return nil, ErrWrongPhase
	}
	if err := p.PlaceFleet(ps); err != nil {
		return nil, err
	}
	events := []Event{{Type: EventShipsConfirmed, Player: id}}
	if m.Players[0].ShipsPlaced && m.Players[1].ShipsPlaced {
		m.Status = StatusPlaying
		m.StartedAt = now
		m.Deadline = now.Add(m.Config.Duration)
		events = append(events, Event{Type: EventGameStarted, Duration: m.Config.Duration})
	}
	return events, nil
}

// Fire resolves a shot from id at the opponent's board. Shots that resolve no
// cell are rejected with ErrAlreadyFired or ErrOutOfBounds.
func (m *Match) Fire(id string, x, y int, now time.Time) ([]Event, error) {
	p, opp, err := m.combatant(id)
	if err != nil {
		return nil, err
	}
	out, err := p.Fire(opp, x, y, m.Config.HeatThreshold)
	if err != nil {
		return nil, err
	}
	switch out.Result {
	case ShotAlreadyFired:
		return nil, ErrAlreadyFired
	case ShotOutOfBounds:
		return nil, ErrOutOfBounds
	}

	hit := out.Result == ShotHit
	events := []Event{{Type: EventShot, Player: id, X: x, Y: y, Hit: hit, Sunk: out.Sunk}}
	if out.LockedNow {
		events = append(events, Event{Type: EventWeaponsLocked, Player: id})
	}
	switch {
	case opp.AllSunk():
		events = append(events, m.finish(id, ReasonAllShipsSunk, now))
	case m.Status == StatusSuddenDeath && hit:
		events = append(events, m.finish(id, ReasonSuddenDeath, now))
	}
	return events, nil
}

// BeginSolve checks that id may attempt verification now and records the
// attempt. It returns the handle to verify. The verification itself happens
// outside the match, and CompleteSolve applies a successful result.
func (m *Match) BeginSolve(id string, now time.Time) (string, error) {
	p, _, err := m.combatant(id)
	if err != nil {
		return "", err
	}
	if p.InPenalty() {
		return "", ErrPenaltyActive
	}
	if !p.Locked {
		return "", ErrNotLocked
	}
	if !p.LastVerifyAttempt.IsZero() && now.Sub(p.LastVerifyAttempt) < m.Config.SolveCooldown {
		return "", ErrRateLimited
	}
	p.LastVerifyAttempt = now
	return p.Handle, nil
}

// CompleteSolve unlocks id after an accepted submission. The lock state is
// checked again since it may have changed while verification ran.
func (m *Match) CompleteSolve(id string) ([]Event, error) {
	p, _, err := m.combatant(id)
	if err != nil {
		return nil, err
	}
	if p.InPenalty() {
		return nil, ErrPenaltyActive
	}
	if !p.Locked {
		return nil, ErrNotLocked
	}
	p.Unlock(UnlockSolved)
	return []Event{{Type: EventWeaponsUnlocked, Player: id, Unlock: UnlockSolved}}, nil
}

// Veto spends one of id's vetoes and starts the penalty countdown.
func (m *Match) Veto(id string, now time.Time) ([]Event, error) {
	p, _, err := m.combatant(id)
	if err != nil {
		return nil, err
	}
	d, err := p.ApplyVeto(m.Config, now)
	if err != nil {
		return nil, err
	}
	return []Event{{Type: EventVetoStarted, Player: id, Duration: d}}, nil
}

// SetConnected records whether a participant currently has a live
// connection. Unknown ids are ignored.
func (m *Match) SetConnected(id string, connected bool, now time.Time) {
	p := m.Player(id)
	if p == nil {
		return
	}
	p.Connected = connected
	if connected {
		p.DisconnectedAt = time.Time{}
	} else {
		p.DisconnectedAt = now
	}
}

// Tick advances timers: veto expiry, disconnect forfeits, the match
// deadline and the sudden death cap.
func (m *Match) Tick(now time.Time) []Event {
	if !m.Status.InCombat() {
		return nil
	}
	var events []Event
	for _, p := range m.Players {
		if p.VetoExpired(now) {
			p.Unlock(UnlockVetoExpired)
			events = append(events, Event{Type: EventWeaponsUnlocked, Player: p.ID, Unlock: UnlockVetoExpired})
		}
	}

	if winner := m.disconnectWinner(now); winner != "" {
		return append(events, m.finish(winner, ReasonDisconnect, now))
	}

	switch m.Status {
	case StatusPlaying:
		if now.Before(m.Deadline) {
			break
		}
		if winner := m.DetermineWinner(); winner != "" {
			events = append(events, m.finish(winner, ReasonTimeout, now))
			break
		}
		events = append(events, m.enterSuddenDeath(now)...)
	case StatusSuddenDeath:
		if m.Config.SuddenDeathLimit > 0 && now.Sub(m.SuddenDeathAt) >= m.Config.SuddenDeathLimit {
			events = append(events, m.finish("", ReasonSuddenDeath, now))
		}
	}
	return events
}

func (m *Match) disconnectWinner(now time.Time) string {
	a, b := m.Players[0], m.Players[1]
	if m.Config.DisconnectGrace <= 0 || a == nil || b == nil {
		return ""
	}
	gone := func(p *Player) bool {
		return !p.Connected && !p.DisconnectedAt.IsZero() && now.Sub(p.DisconnectedAt) >= m.Config.DisconnectGrace
	}
	switch {
	case gone(a) && b.Connected:
		return b.ID
	case gone(b) && a.Connected:
		return a.ID
	}
	return ""
}

func (m *Match) enterSuddenDeath(now time.Time) []Event {
	m.Status = StatusSuddenDeath
	m.SuddenDeathAt = now
	events := []Event{{Type: EventSuddenDeath, Duration: m.Config.SuddenDeathLimit}}
	for _, p := range m.Players {
		if p.Locked || p.InPenalty() {
			p.Unlock(UnlockSuddenDeath)
			events = append(events, Event{Type: EventWeaponsUnlocked, Player: p.ID, Unlock: UnlockSuddenDeath})
		}
	}
	return events
}

func (m *Match) finish(winner string, reason EndReason, now time.Time) Event {
	m.Status = StatusFinished
	m.Winner = winner
	m.Reason = reason
	m.FinishedAt = now
	return Event{Type: EventGameOver, Winner: winner, Reason: reason}
}

// DetermineWinner ranks the players by ships remaining, then cells hit, then
// problems solved. It returns "" when every criterion is tied.
func (m *Match) DetermineWinner() string {
	a, b := m.Players[0], m.Players[1]
	if a == nil || b == nil {
		return ""
	}
	criteria := [][2]int{
		{a.ShipsRemaining(), b.ShipsRemaining()},
		{a.Stats.CellsHit, b.Stats.CellsHit},
		{a.Stats.ProblemsSolved, b.Stats.ProblemsSolved},
	}
	for _, c := range criteria {
		switch {
		case c[0] > c[1]:
			return a.ID
		case c[1] > c[0]:
			return b.ID
		}
	}
	return ""
}

// TimeRemaining is the time left on the current clock: the match deadline in
// Playing, the sudden death cap in SuddenDeath, the full duration before
// combat and zero once finished.
func (m *Match) TimeRemaining(now time.Time) time.Duration {
	switch m.Status {
	case StatusPlaying:
		return max(m.Deadline.Sub(now), 0)
	case StatusSuddenDeath:
		if m.Config.SuddenDeathLimit <= 0 {
			return 0
		}
		return max(m.SuddenDeathAt.Add(m.Config.SuddenDeathLimit).Sub(now), 0)
	case StatusFinished:
		return 0
	default:
		return m.Config.Duration
	}
}

// Evictable reports whether the match can be dropped: finishedTTL after it
// ended, or staleTTL after creation if combat never started.
func (m *Match) Evictable(now time.Time, finishedTTL, staleTTL time.Duration) bool {
	switch m.Status {
	case StatusFinished:
		return now.Sub(m.FinishedAt) >= finishedTTL
	case StatusWaiting, StatusPlacingShips:
		return now.Sub(m.CreatedAt) >= staleTTL
	}
	return false
}
