package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/Prajwal-k-tech/Battle-CP/internal/model"
)

// ResultRepo archives finished matches in match_results.
type ResultRepo struct {
	db *sql.DB
}

// NewResultRepo creates a ResultRepo.
func NewResultRepo(db *sql.DB) *ResultRepo {
	return &ResultRepo{db: db}
}

const resultColumns = `match_id, winner, reason, difficulty, started_at, finished_at, players`

// Save inserts r. Saving the same match twice keeps the first row.
func (r *ResultRepo) Save(ctx context.Context, res *model.MatchResult) error {
	players, err := json.Marshal(res.Players)
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}
	handles := make([]string, 0, len(res.Players))
	for _, p := range res.Players {
		handles = append(handles, strings.ToLower(p.Handle))
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO match_results (match_id, winner, reason, difficulty, started_at, finished_at, players, handles)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (match_id) DO NOTHING`,
		res.MatchID, nullString(res.Winner), res.Reason, res.Difficulty, res.StartedAt, res.FinishedAt, string(players), pq.Array(handles),
	)
	if err != nil {
		return fmt.Errorf("save match result: %w", err)
	}
	return nil
}

// FindByMatchID returns the archived match, or nil if there is none.
func (r *ResultRepo) FindByMatchID(ctx context.Context, matchID string) (*model.MatchResult, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM match_results WHERE match_id = $1`, matchID)
	res, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find match result: %w", err)
	}
	return res, nil
}

// ListByHandle returns handle's most recent matches, newest first. handle
// must already be lowercase.
func (r *ResultRepo) ListByHandle(ctx context.Context, handle string, limit int) ([]model.MatchResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM match_results
		 WHERE $1 = ANY(handles)
		 ORDER BY finished_at DESC LIMIT $2`, handle, limit)
	if err != nil {
		return nil, fmt.Errorf("list match results: %w", err)
	}
	defer rows.Close()

	var out []model.MatchResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match result: %w", err)
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(s scanner) (*model.MatchResult, error) {
	var res model.MatchResult
	var winner sql.NullString
	var startedAt sql.NullTime
	var players []byte
	if err := s.Scan(&res.MatchID, &winner, &res.Reason, &res.Difficulty, &startedAt, &res.FinishedAt, &players); err != nil {
		return nil, err
	}
	res.Winner = winner.String
	if startedAt.Valid {
		t := startedAt.Time.UTC()
		res.StartedAt = &t
	}
	res.FinishedAt = res.FinishedAt.UTC()
	if err := json.Unmarshal(players, &res.Players); err != nil {
		return nil, fmt.Errorf("unmarshal players: %w", err)
	}
	return &res, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
