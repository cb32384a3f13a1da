//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/Prajwal-k-tech/Battle-CP/internal/model"
	"github.com/Prajwal-k-tech/Battle-CP/internal/testutil"
)

func setup(t *testing.T) *sql.DB {
	t.Helper()
	db := testutil.SetupDB(t)
	testutil.CleanupDB(t, db)
	return db
}

func result(id, winner string, finished time.Time, handles ...string) *model.MatchResult {
	r := &model.MatchResult{
		MatchID:    id,
		Winner:     winner,
		Reason:     "all_ships_sunk",
		Difficulty: 1200,
		FinishedAt: finished,
	}
	for i, h := range handles {
		r.Players = append(r.Players, model.PlayerResult{PlayerID: id + "-p" + string(rune('a'+i)), Handle: h, CellsHit: 17 - i})
	}
	return r
}

func TestResultSaveAndFind(t *testing.T) {
	repo := NewResultRepo(setup(t))
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := result("m1", "Alice", started.Add(20*time.Minute), "Alice", "bob")
	r.StartedAt = &started

	if err := repo.Save(ctx, r); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.FindByMatchID(ctx, "m1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil {
		t.Fatal("expected archived match")
	}
	if got.Winner != "Alice" || got.Reason != "all_ships_sunk" || got.Difficulty != 1200 {
		t.Errorf("unexpected result: %+v", got)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", got.StartedAt, started)
	}
	if len(got.Players) != 2 || got.Players[0].CellsHit != 17 {
		t.Errorf("players did not round-trip: %+v", got.Players)
	}
}

func TestResultFindMissing(t *testing.T) {
	repo := NewResultRepo(setup(t))
	got, err := repo.FindByMatchID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for unknown match, got %+v", got)
	}
}

func TestResultSaveIsIdempotent(t *testing.T) {
	repo := NewResultRepo(setup(t))
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Save(ctx, result("m1", "alice", now, "alice", "bob")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.Save(ctx, result("m1", "bob", now, "alice", "bob")); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, _ := repo.FindByMatchID(ctx, "m1")
	if got.Winner != "alice" {
		t.Errorf("second save should be ignored, winner = %s", got.Winner)
	}
}

func TestResultListByHandle(t *testing.T) {
	repo := NewResultRepo(setup(t))
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for _, r := range []*model.MatchResult{
		result("m1", "Alice", base, "Alice", "bob"),
		result("m2", "", base.Add(time.Minute), "carol", "ALICE"),
		result("m3", "bob", base.Add(2*time.Minute), "bob", "carol"),
	} {
		if err := repo.Save(ctx, r); err != nil {
			t.Fatalf("save %s: %v", r.MatchID, err)
		}
	}

	got, err := repo.ListByHandle(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].MatchID != "m2" || got[1].MatchID != "m1" {
		t.Fatalf("expected [m2 m1], got %+v", got)
	}
	if got[0].Winner != "" {
		t.Errorf("draw should have empty winner, got %q", got[0].Winner)
	}

	limited, _ := repo.ListByHandle(ctx, "carol", 1)
	if len(limited) != 1 || limited[0].MatchID != "m3" {
		t.Errorf("expected only m3, got %+v", limited)
	}
}
