package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Prajwal-k-tech/Battle-CP/internal/model"
	"github.com/Prajwal-k-tech/Battle-CP/internal/repository"
	"github.com/Prajwal-k-tech/Battle-CP/pkg/battle"
)

var ErrArchiveDisabled = errors.New("match archive is not configured")

const (
	maxHistory   = 50
	recentOnCard = 10
)

// ArchiveService stores finished matches and answers history queries. Either
// store may be nil when its backend is not configured.
type ArchiveService struct {
	results repository.ResultRepository
	stats   repository.StatsCache
}

// NewArchiveService creates an ArchiveService.
func NewArchiveService(results repository.ResultRepository, stats repository.StatsCache) *ArchiveService {
	return &ArchiveService{results: results, stats: stats}
}

// Record implements ResultRecorder.
func (s *ArchiveService) Record(ctx context.Context, r *model.MatchResult) error {
	var errs []error
	if s.results != nil {
		if err := s.results.Save(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("save result: %w", err))
		}
	}
	if s.stats != nil {
		if err := s.stats.RecordResult(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("update stats: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Find returns the archived result of matchID for one of its players.
func (s *ArchiveService) Find(ctx context.Context, matchID, playerID string) (*model.MatchResult, error) {
	if s.results == nil {
		return nil, ErrArchiveDisabled
	}
	res, err := s.results.FindByMatchID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, battle.ErrMatchNotFound
	}
	for _, p := range res.Players {
		if p.PlayerID == playerID {
			return res, nil
		}
	}
	return nil, battle.ErrNotParticipant
}

// History returns the most recent archived matches for handle.
func (s *ArchiveService) History(ctx context.Context, handle string, limit int) ([]model.MatchResult, error) {
	if s.results == nil {
		return nil, ErrArchiveDisabled
	}
	if limit <= 0 || limit > maxHistory {
		limit = maxHistory
	}
	return s.results.ListByHandle(ctx, normalizeHandle(handle), limit)
}

// Stats returns the win/loss record for handle with its latest match ids.
func (s *ArchiveService) Stats(ctx context.Context, handle string) (*model.PlayerStats, error) {
	if s.stats == nil {
		return nil, ErrArchiveDisabled
	}
	handle = normalizeHandle(handle)
	st, err := s.stats.GetStats(ctx, handle)
	if err != nil {
		return nil, err
	}
	recent, err := s.stats.RecentMatches(ctx, handle, recentOnCard)
	if err != nil {
		return nil, err
	}
	st.RecentMatches = recent
	if st.RecentMatches == nil {
		st.RecentMatches = []string{}
	}
	return st, nil
}

func normalizeHandle(h string) string { return strings.ToLower(strings.TrimSpace(h)) }
