package service

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Prajwal-k-tech/Battle-CP/internal/model"
	"github.com/Prajwal-k-tech/Battle-CP/pkg/battle"
)

// Session guards one match. Every read or write of the match goes through Do.
type Session struct {
	id string

	mu       sync.Mutex
	match    *battle.Match
	removed  bool
	recorded bool
}

// NewSession wraps m.
func NewSession(m *battle.Match) *Session {
	return &Session{id: m.ID, match: m}
}

// ID returns the match id.
func (s *Session) ID() string { return s.id }

// Do runs fn with exclusive access to the match. It returns
// battle.ErrMatchNotFound once the session has been removed from its
// registry. A panic in fn is logged and reported as battle.ErrInternal.
func (s *Session) Do(fn func(m *battle.Match) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return battle.ErrMatchNotFound
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("matchId", s.id).Interface("panic", r).
				Bytes("stack", debug.Stack()).Msg("Match command panicked")
			err = fmt.Errorf("%w: %v", battle.ErrInternal, r)
		}
	}()
	return fn(s.match)
}

// markRemoved makes later Do calls fail. Caller holds mu.
func (s *Session) markRemoved() { s.removed = true }

func (s *Session) close() {
	s.mu.Lock()
	s.removed = true
	s.mu.Unlock()
}

// takeResult returns the match result the first time it is called after the
// match finished, and nil otherwise. Caller holds mu.
func (s *Session) takeResult() *model.MatchResult {
	if s.recorded || s.match.Status != battle.StatusFinished {
		return nil
	}
	s.recorded = true
	return resultOf(s.match)
}

func resultOf(m *battle.Match) *model.MatchResult {
	r := &model.MatchResult{
		MatchID:    m.ID,
		Reason:     string(m.Reason),
		Difficulty: m.Config.Difficulty,
		FinishedAt: m.FinishedAt,
	}
	if !m.StartedAt.IsZero() {
		started := m.StartedAt
		r.StartedAt = &started
	}
	for _, p := range m.Players {
		if p == nil {
			continue
		}
		if p.ID == m.Winner {
			r.Winner = p.Handle
		}
		r.Players = append(r.Players, model.PlayerResult{
			PlayerID:       p.ID,
			Handle:         p.Handle,
			ShipsRemaining: p.ShipsRemaining(),
			CellsHit:       p.Stats.CellsHit,
			CellsMissed:    p.Stats.CellsMissed,
			ShipsSunk:      p.Stats.ShipsSunk,
			ProblemsSolved: p.Stats.ProblemsSolved,
			VetoesUsed:     p.Stats.VetoesUsed,
		})
	}
	return r
}
