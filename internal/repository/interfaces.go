package repository

import (
	"context"

	"github.com/Prajwal-k-tech/Battle-CP/internal/model"
)

// ResultRepository archives finished matches (Postgres).
type ResultRepository interface {
	Save(ctx context.Context, r *model.MatchResult) error
	FindByMatchID(ctx context.Context, matchID string) (*model.MatchResult, error)
	ListByHandle(ctx context.Context, handle string, limit int) ([]model.MatchResult, error)
}

// StatsCache keeps per-handle win/loss counters and recent match ids (Redis).
type StatsCache interface {
	RecordResult(ctx context.Context, r *model.MatchResult) error
	GetStats(ctx context.Context, handle string) (*model.PlayerStats, error)
	RecentMatches(ctx context.Context, handle string, limit int) ([]string, error)
}
