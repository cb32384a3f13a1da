package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Prajwal-k-tech/Battle-CP/internal/model"
	"github.com/Prajwal-k-tech/Battle-CP/internal/protocol"
	"github.com/Prajwal-k-tech/Battle-CP/pkg/battle"
)

// Settings are the service-wide timing knobs.
type Settings struct {
	VerifyTimeout time.Duration
	FinishedTTL   time.Duration
	StaleTTL      time.Duration
	RecordTimeout time.Duration
}

// DefaultSettings returns the production timings.
func DefaultSettings() Settings {
	return Settings{
		VerifyTimeout: 12 * time.Second,
		FinishedTTL:   5 * time.Minute,
		StaleTTL:      30 * time.Minute,
		RecordTimeout: 5 * time.Second,
	}
}

// MatchService is the command surface transports use to drive matches.
type MatchService struct {
	registry *Registry
	bc       Broadcaster
	presence Presence
	verifier Verifier
	recorder ResultRecorder
	clock    clock.Clock
	settings Settings

	wg sync.WaitGroup
}

// NewMatchService creates a MatchService. recorder may be nil.
func NewMatchService(registry *Registry, bc Broadcaster, verifier Verifier, recorder ResultRecorder, clk clock.Clock, settings Settings) *MatchService {
	if bc == nil {
		bc = NoopBroadcaster{}
	}
	if clk == nil {
		clk = clock.New()
	}
	presence, _ := bc.(Presence)
	return &MatchService{
		registry: registry,
		bc:       bc,
		presence: presence,
		verifier: verifier,
		recorder: recorder,
		clock:    clk,
		settings: settings,
	}
}

// CreateMatchRequest holds the creator's handle and rule choices.
type CreateMatchRequest struct {
	Handle          string `json:"cf_handle"`
	Difficulty      int    `json:"difficulty"`
	HeatThreshold   int    `json:"heat_threshold"`
	DurationMinutes int    `json:"duration_minutes"`
	VetoStrictness  string `json:"veto_strictness"`
}

// CreatedMatch identifies a new match and its creator.
type CreatedMatch struct {
	MatchID  string
	PlayerID string
	Config   battle.MatchConfig
}

// CreateMatch verifies the creator's handle and registers a Waiting match.
func (s *MatchService) CreateMatch(ctx context.Context, req CreateMatchRequest) (*CreatedMatch, error) {
	handle := strings.TrimSpace(req.Handle)
	if handle == "" {
		return nil, fmt.Errorf("%w: cf_handle is required", battle.ErrInvalidCommand)
	}
	if err := s.verifyHandle(ctx, handle); err != nil {
		return nil, err
	}

	cfg := battle.NewConfig(battle.ConfigOptions{
		Difficulty:      req.Difficulty,
		HeatThreshold:   req.HeatThreshold,
		DurationMinutes: req.DurationMinutes,
		Strictness:      battle.Strictness(req.VetoStrictness),
	})
	matchID := uuid.NewString()
	playerID := uuid.NewString()
	m := battle.NewMatch(matchID, cfg, battle.NewPlayer(playerID, handle), s.clock.Now())
	if err := s.registry.Insert(NewSession(m)); err != nil {
		return nil, fmt.Errorf("register match: %w", err)
	}

	log.Info().Str("matchId", matchID).Str("playerId", playerID).Str("handle", handle).
		Int("difficulty", cfg.Difficulty).Msg("Match created")
	return &CreatedMatch{MatchID: matchID, PlayerID: playerID, Config: cfg}, nil
}

// NewGuest mints an identity for the second seat. It fails once the seat is
// taken.
func (s *MatchService) NewGuest(matchID string) (string, error) {
	sess, ok := s.registry.Get(matchID)
	if !ok {
		return "", battle.ErrMatchNotFound
	}
	err := sess.Do(func(m *battle.Match) error {
		switch {
		case m.Status == battle.StatusFinished:
			return battle.ErrMatchFinished
		case m.Players[1] != nil:
			return battle.ErrMatchFull
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return uuid.NewString(), nil
}

// MatchSummary is a participant's read-only view of a match.
type MatchSummary struct {
	MatchID           string                  `json:"match_id"`
	Status            string                  `json:"status"`
	Config            battle.MatchConfig      `json:"config"`
	CreatedAt         time.Time               `json:"created_at"`
	TimeRemainingSecs int64                   `json:"time_remaining_secs"`
	Players           []protocol.PlayerReport `json:"players"`
	WinnerID          string                  `json:"winner_id,omitempty"`
	Reason            string                  `json:"reason,omitempty"`
}

// Summary returns the match as seen by playerID, who must be a participant.
func (s *MatchService) Summary(matchID, playerID string) (*MatchSummary, error) {
	sess, ok := s.registry.Get(matchID)
	if !ok {
		return nil, battle.ErrMatchNotFound
	}
	var out *MatchSummary
	err := sess.Do(func(m *battle.Match) error {
		if !m.IsParticipant(playerID) {
			return battle.ErrNotParticipant
		}
		over := protocol.GameOver(m).Data.(protocol.GameOverData)
		out = &MatchSummary{
			MatchID:           m.ID,
			Status:            string(m.Status),
			Config:            m.Config,
			CreatedAt:         m.CreatedAt,
			TimeRemainingSecs: int64(m.TimeRemaining(s.clock.Now()) / time.Second),
			Players:           over.Players,
			WinnerID:          m.Winner,
			Reason:            string(m.Reason),
		}
		return nil
	})
	return out, err
}

// Problems lists a contest's problems through the verifier.
func (s *MatchService) Problems(ctx context.Context, contestID int) ([]model.Problem, error) {
	if contestID <= 0 {
		return nil, fmt.Errorf("%w: contest id must be positive", battle.ErrInvalidCommand)
	}
	ctx, cancel := context.WithTimeout(ctx, s.settings.VerifyTimeout)
	defer cancel()
	problems, err := s.verifier.FetchProblemsByContest(ctx, contestID)
	if err != nil {
		log.Warn().Err(err).Int("contestId", contestID).Msg("Fetch problems failed")
		return nil, fmt.Errorf("%w: %w", battle.ErrVerifierUnavailable, err)
	}
	return problems, nil
}

// HandleMessage applies one inbound message from playerID. Events go out
// through the broadcaster; the returned error is for the sender only.
func (s *MatchService) HandleMessage(ctx context.Context, matchID, playerID string, msg protocol.ClientMessage) error {
	if msg.PlayerID != "" && msg.PlayerID != playerID {
		return battle.ErrIdentityMismatch
	}
	switch msg.Type {
	case protocol.TypeJoinGame:
		return s.join(ctx, matchID, playerID, msg.Handle)
	case protocol.TypePlaceShips:
		return s.apply(matchID, func(m *battle.Match, now time.Time) ([]battle.Event, error) {
			// A repeat during placement is answered, not rejected.
			if p := m.Player(playerID); p != nil && p.ShipsPlaced && m.Status == battle.StatusPlacingShips {
				for _, out := range protocol.Reconfirm(m, playerID, now) {
					s.bc.PublishTo(m.ID, playerID, out)
				}
				return nil, nil
			}
			return m.ConfirmPlacement(playerID, msg.Ships, now)
		})
	case protocol.TypeFire:
		if msg.X == nil || msg.Y == nil {
			return battle.ErrInvalidCommand
		}
		return s.apply(matchID, func(m *battle.Match, now time.Time) ([]battle.Event, error) {
			return m.Fire(playerID, *msg.X, *msg.Y, now)
		})
	case protocol.TypeSolveCP:
		return s.solve(ctx, matchID, playerID, msg.ContestID, msg.ProblemIndex)
	case protocol.TypeVeto:
		return s.apply(matchID, func(m *battle.Match, now time.Time) ([]battle.Event, error) {
			return m.Veto(playerID, now)
		})
	}
	return fmt.Errorf("%w: unknown message type %q", battle.ErrInvalidCommand, msg.Type)
}

// SetConnected records whether playerID has any live connection to matchID.
func (s *MatchService) SetConnected(matchID, playerID string, connected bool) {
	_ = s.apply(matchID, func(m *battle.Match, now time.Time) ([]battle.Event, error) {
		m.SetConnected(playerID, connected, now)
		return nil, nil
	})
}

// SyncConnection re-reads playerID's connection count from the broadcaster
// under the match lock. Calls racing after connects and disconnects all see
// the hub's current count, so the last write is never stale. Without a
// Presence it does nothing.
func (s *MatchService) SyncConnection(matchID, playerID string) {
	if s.presence == nil {
		return
	}
	_ = s.apply(matchID, func(m *battle.Match, now time.Time) ([]battle.Event, error) {
		m.SetConnected(playerID, s.presence.PlayerConnectionCount(matchID, playerID) > 0, now)
		return nil, nil
	})
}

// apply runs cmd under the match lock, publishes its events and a fresh
// GameUpdate for each player before unlocking, and archives the match if the
// command finished it.
func (s *MatchService) apply(matchID string, cmd func(m *battle.Match, now time.Time) ([]battle.Event, error)) error {
	sess, ok := s.registry.Get(matchID)
	if !ok {
		return battle.ErrMatchNotFound
	}
	var result *model.MatchResult
	err := sess.Do(func(m *battle.Match) error {
		now := s.clock.Now()
		events, err := cmd(m, now)
		if err != nil {
			return err
		}
		if len(events) > 0 {
			s.publish(m, events)
			s.pushUpdates(m, now)
		}
		result = sess.takeResult()
		return nil
	})
	if result != nil {
		s.record(result)
	}
	return err
}

func (s *MatchService) join(ctx context.Context, matchID, playerID, handle string) error {
	sess, ok := s.registry.Get(matchID)
	if !ok {
		return battle.ErrMatchNotFound
	}

	// Participants get their state back without touching the match.
	rejoined := false
	err := sess.Do(func(m *battle.Match) error {
		if !m.IsParticipant(playerID) {
			switch {
			case m.Status == battle.StatusFinished:
				return battle.ErrMatchFinished
			case m.Players[1] != nil:
				return battle.ErrMatchFull
			}
			return nil
		}
		rejoined = true
		m.SetConnected(playerID, true, s.clock.Now())
		s.resync(m, playerID)
		return nil
	})
	if err != nil || rejoined {
		return err
	}

	if err := s.verifyHandle(ctx, handle); err != nil {
		return err
	}

	return s.apply(matchID, func(m *battle.Match, now time.Time) ([]battle.Event, error) {
		events, err := m.Join(playerID, handle)
		if err != nil {
			return nil, err
		}
		m.SetConnected(playerID, true, now)
		log.Info().Str("matchId", m.ID).Str("playerId", playerID).Str("handle", handle).Msg("Player joined match")
		s.resync(m, playerID)
		return events, nil
	})
}

func (s *MatchService) resync(m *battle.Match, playerID string) {
	for _, msg := range protocol.Resync(m, playerID, s.clock.Now()) {
		s.bc.PublishTo(m.ID, playerID, msg)
	}
}

// solve runs verification between two short lock acquisitions so the match
// is never held across the judge round trip.
func (s *MatchService) solve(ctx context.Context, matchID, playerID string, contestID int, index string) error {
	var handle string
	var window int
	err := s.apply(matchID, func(m *battle.Match, now time.Time) ([]battle.Event, error) {
		h, err := m.BeginSolve(playerID, now)
		handle, window = h, m.Config.SubmissionWindow
		return nil, err
	})
	if err != nil {
		return err
	}

	vctx, cancel := context.WithTimeout(ctx, s.settings.VerifyTimeout)
	defer cancel()
	ok, err := s.verifier.HasAcceptedSubmission(vctx, handle, contestID, index, window)
	if err != nil {
		log.Warn().Err(err).Str("matchId", matchID).Str("playerId", playerID).Msg("Submission check failed")
		return fmt.Errorf("%w: %w", battle.ErrVerifierUnavailable, err)
	}
	if !ok {
		return battle.ErrNotVerified
	}

	log.Info().Str("matchId", matchID).Str("playerId", playerID).
		Int("contestId", contestID).Str("index", index).Msg("Submission verified")
	return s.apply(matchID, func(m *battle.Match, _ time.Time) ([]battle.Event, error) {
		return m.CompleteSolve(playerID)
	})
}

func (s *MatchService) verifyHandle(ctx context.Context, handle string) error {
	ctx, cancel := context.WithTimeout(ctx, s.settings.VerifyTimeout)
	defer cancel()
	ok, err := s.verifier.HandleExists(ctx, handle)
	if err != nil {
		log.Warn().Err(err).Str("handle", handle).Msg("Handle check failed")
		return fmt.Errorf("%w: %w", battle.ErrVerifierUnavailable, err)
	}
	if !ok {
		return battle.ErrHandleNotFound
	}
	return nil
}

// publish sends events to subscribers. Caller holds the match.
func (s *MatchService) publish(m *battle.Match, events []battle.Event) {
	for _, out := range protocol.FromEvents(m, events) {
		if out.To == "" {
			s.bc.Publish(m.ID, out.Msg)
		} else {
			s.bc.PublishTo(m.ID, out.To, out.Msg)
		}
	}
	for _, e := range events {
		if e.Type == battle.EventGameOver {
			log.Info().Str("matchId", m.ID).Str("winner", e.Winner).Str("reason", string(e.Reason)).Msg("Match finished")
		}
	}
}

// pushUpdates sends each player their GameUpdate. Caller holds the match.
func (s *MatchService) pushUpdates(m *battle.Match, now time.Time) {
	for _, p := range m.Players {
		if p == nil {
			continue
		}
		if u, ok := protocol.GameUpdateFor(m, p.ID, now); ok {
			s.bc.PublishTo(m.ID, p.ID, u)
		}
	}
}

func (s *MatchService) record(r *model.MatchResult) {
	if s.recorder == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.settings.RecordTimeout)
		defer cancel()
		if err := s.recorder.Record(ctx, r); err != nil {
			log.Error().Err(err).Str("matchId", r.MatchID).Msg("Failed to record match result")
		}
	}()
}

// Sweep is one ticker pass over every match: timers advance, every player
// gets a GameUpdate, and expired matches are evicted.
func (s *MatchService) Sweep() {
	now := s.clock.Now()
	var evicted []string
	s.registry.Range(func(sess *Session) bool {
		var result *model.MatchResult
		_ = sess.Do(func(m *battle.Match) error {
			s.publish(m, m.Tick(now))
			if m.Status != battle.StatusFinished || m.FinishedAt.Equal(now) {
				s.pushUpdates(m, now)
			}
			result = sess.takeResult()
			if m.Evictable(now, s.settings.FinishedTTL, s.settings.StaleTTL) {
				sess.markRemoved()
				evicted = append(evicted, m.ID)
			}
			return nil
		})
		if result != nil {
			s.record(result)
		}
		return true
	})
	for _, id := range evicted {
		s.registry.Remove(id)
		log.Info().Str("matchId", id).Msg("Match evicted")
	}
}

// Wait blocks until pending result recordings are done.
func (s *MatchService) Wait() { s.wg.Wait() }

// Registry exposes the match registry.
func (s *MatchService) Registry() *Registry { return s.registry }

// Exists reports whether matchID is live.
func (s *MatchService) Exists(matchID string) bool {
	_, ok := s.registry.Get(matchID)
	return ok
}
