package battle

import "time"

// UnlockReason records why a player's weapons came back online.
type UnlockReason string

const (
	UnlockSolved      UnlockReason = "solved"
	UnlockVetoExpired UnlockReason = "veto_expired"
	UnlockSuddenDeath UnlockReason = "sudden_death"
)

// Stats are the per-player counters used for tiebreaks and the final report.
type Stats struct {
	CellsHit       int `json:"cells_hit"`
	CellsMissed    int `json:"cells_missed"`
	ShipsSunk      int `json:"ships_sunk"`
	ProblemsSolved int `json:"problems_solved"`
	VetoesUsed     int `json:"vetoes_used"`
}

// Player is one side of a match. The opponent fires into Grid.
type Player struct {
	ID     string
	Handle string

	Grid        Grid
	Ships       []Ship
	ShipsPlaced bool

	Heat       int
	Locked     bool
	VetoesUsed int
	// PenaltyDeadline is non-zero while a veto penalty is counting down.
	PenaltyDeadline   time.Time
	LastVerifyAttempt time.Time

	Connected      bool
	DisconnectedAt time.Time

	Stats Stats
}

// NewPlayer returns a player with an empty board.
func NewPlayer(id, handle string) *Player {
	return &Player{ID: id, Handle: handle}
}

// FireOutcome is what happened when a player fired.
type FireOutcome struct {
	Result ShotResult
	Sunk   bool
	// LockedNow is set on the shot that pushed heat to the threshold.
	LockedNow bool
}

// InPenalty reports whether a veto penalty is counting down.
func (p *Player) InPenalty() bool { return !p.PenaltyDeadline.IsZero() }

// Fire shoots at (x, y) on the opponent's board. Only shots that land on a
// fresh cell add heat.
func (p *Player) Fire(opp *Player, x, y, threshold int) (FireOutcome, error) {
	if p.Locked || p.InPenalty() {
		return FireOutcome{}, ErrLocked
	}
	res := opp.Grid.ReceiveShot(x, y)
	out := FireOutcome{Result: res}
	if !res.Resolved() {
		return out, nil
	}

	if res == ShotHit {
		p.Stats.CellsHit++
		if s := opp.shipAt(x, y); s != nil {
			s.Hits++
			if s.Sunk() {
				out.Sunk = true
				p.Stats.ShipsSunk++
			}
		}
	} else {
		p.Stats.CellsMissed++
	}

	p.Heat++
	if p.Heat >= threshold {
		p.Heat = threshold
		p.Locked = true
		out.LockedNow = true
	}
	return out, nil
}

func (p *Player) shipAt(x, y int) *Ship {
	for i := range p.Ships {
		if p.Ships[i].Covers(x, y) {
			return &p.Ships[i]
		}
	}
	return nil
}

// PlaceFleet validates and places a complete fleet. On any error the
// player's board is left as it was.
func (p *Player) PlaceFleet(ps []Placement) error {
	if p.ShipsPlaced {
		return ErrFleetConfirmed
	}
	if err := ValidateFleet(ps); err != nil {
		return err
	}
	var g Grid
	ships := make([]Ship, 0, len(ps))
	for _, pl := range ps {
		if err := g.Place(pl); err != nil {
			return err
		}
		ships = append(ships, Ship{Placement: pl})
	}
	p.Grid = g
	p.Ships = ships
	p.ShipsPlaced = true
	return nil
}

// ApplyVeto spends a veto and starts its penalty countdown. The player stays
// locked until the penalty expires; heat is not touched.
func (p *Player) ApplyVeto(cfg MatchConfig, now time.Time) (time.Duration, error) {
	if p.VetoesUsed >= cfg.MaxVetoes {
		return 0, ErrNoVetoesRemaining
	}
	if p.InPenalty() {
		return 0, ErrAlreadyPenalized
	}
	if !p.Locked {
		return 0, ErrNotLocked
	}
	d := cfg.penaltyFor(p.VetoesUsed)
	p.PenaltyDeadline = now.Add(d)
	p.VetoesUsed++
	p.Stats.VetoesUsed = p.VetoesUsed
	return d, nil
}

// Unlock clears the lock, heat and any penalty.
func (p *Player) Unlock(reason UnlockReason) {
	p.Locked = false
	p.Heat = 0
	p.PenaltyDeadline = time.Time{}
	if reason == UnlockSolved {
		p.Stats.ProblemsSolved++
	}
}

// VetoExpired reports whether an active penalty has run out at now.
func (p *Player) VetoExpired(now time.Time) bool {
	return p.InPenalty() && !now.Before(p.PenaltyDeadline)
}

// VetoRemaining returns the time left on the active penalty, or zero.
func (p *Player) VetoRemaining(now time.Time) time.Duration {
	if !p.InPenalty() {
		return 0
	}
	return max(p.PenaltyDeadline.Sub(now), 0)
}

// VetoesRemaining returns how many vetoes are left under cfg.
func (p *Player) VetoesRemaining(cfg MatchConfig) int {
	return max(cfg.MaxVetoes-p.VetoesUsed, 0)
}

// ShipsRemaining counts ships that are still afloat.
func (p *Player) ShipsRemaining() int {
	n := 0
	for i := range p.Ships {
		if !p.Ships[i].Sunk() {
			n++
		}
	}
	return n
}

// AllSunk reports whether a placed fleet has been wiped out.
func (p *Player) AllSunk() bool {
	return p.ShipsPlaced && p.ShipsRemaining() == 0
}
