package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Prajwal-k-tech/Battle-CP/internal/model"
	"github.com/Prajwal-k-tech/Battle-CP/internal/protocol"
	"github.com/Prajwal-k-tech/Battle-CP/pkg/battle"
)

type memResults struct {
	saved []model.MatchResult
	err   error
}

func (m *memResults) Save(_ context.Context, r *model.MatchResult) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, *r)
	return nil
}

func (m *memResults) FindByMatchID(_ context.Context, id string) (*model.MatchResult, error) {
	for i := range m.saved {
		if m.saved[i].MatchID == id {
			return &m.saved[i], nil
		}
	}
	return nil, nil
}

func (m *memResults) ListByHandle(_ context.Context, handle string, limit int) ([]model.MatchResult, error) {
	var out []model.MatchResult
	for _, r := range m.saved {
		for _, p := range r.Players {
			if normalizeHandle(p.Handle) == handle && len(out) < limit {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

type memStats struct {
	recorded int
}

func (m *memStats) RecordResult(context.Context, *model.MatchResult) error {
	m.recorded++
	return nil
}

func (m *memStats) GetStats(_ context.Context, handle string) (*model.PlayerStats, error) {
	return &model.PlayerStats{Handle: handle, Wins: int64(m.recorded)}, nil
}

func (m *memStats) RecentMatches(context.Context, string, int) ([]string, error) {
	if m.recorded == 0 {
		return nil, nil
	}
	return []string{"m1"}, nil
}

func sampleResult() *model.MatchResult {
	return &model.MatchResult{
		MatchID: "m1",
		Winner:  "Alice",
		Reason:  "timeout",
		Players: []model.PlayerResult{{PlayerID: "p1", Handle: "Alice"}, {PlayerID: "p2", Handle: "bob"}},
	}
}

func TestArchiveRecord(t *testing.T) {
	results, stats := &memResults{}, &memStats{}
	a := NewArchiveService(results, stats)
	require.NoError(t, a.Record(context.Background(), sampleResult()))
	assert.Len(t, results.saved, 1)
	assert.Equal(t, 1, stats.recorded)

	history, err := a.History(context.Background(), " ALICE ", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	st, err := a.Stats(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", st.Handle)
	assert.Equal(t, []string{"m1"}, st.RecentMatches)
}

func TestArchiveFind(t *testing.T) {
	ctx := context.Background()
	a := NewArchiveService(&memResults{saved: []model.MatchResult{*sampleResult()}}, nil)

	res, err := a.Find(ctx, "m1", "p2")
	require.NoError(t, err)
	assert.Equal(t, "Alice", res.Winner)

	_, err = a.Find(ctx, "m1", "p3")
	assert.ErrorIs(t, err, battle.ErrNotParticipant)
	_, err = a.Find(ctx, "m2", "p1")
	assert.ErrorIs(t, err, battle.ErrMatchNotFound)
}

func TestArchiveRecordJoinsErrors(t *testing.T) {
	dbErr := errors.New("db down")
	results, stats := &memResults{err: dbErr}, &memStats{}
	a := NewArchiveService(results, stats)
	err := a.Record(context.Background(), sampleResult())
	assert.ErrorIs(t, err, dbErr)
	assert.Equal(t, 1, stats.recorded, "stats still updated when the archive fails")
}

func TestArchiveDisabled(t *testing.T) {
	a := NewArchiveService(nil, nil)
	assert.NoError(t, a.Record(context.Background(), sampleResult()))
	_, err := a.History(context.Background(), "alice", 10)
	assert.ErrorIs(t, err, ErrArchiveDisabled)
	_, err = a.Stats(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrArchiveDisabled)
	_, err = a.Find(context.Background(), "m1", "p1")
	assert.ErrorIs(t, err, ErrArchiveDisabled)
}

type countingBroadcaster struct {
	updates atomic.Int64
}

func (c *countingBroadcaster) Publish(string, protocol.ServerMessage) {}

func (c *countingBroadcaster) PublishTo(_, _ string, msg protocol.ServerMessage) {
	if msg.Type == protocol.TypeGameUpdate {
		c.updates.Add(1)
	}
}

func TestTickerSweeps(t *testing.T) {
	bc := &countingBroadcaster{}
	svc := NewMatchService(NewRegistry(1), bc, newFakeVerifier("alice"), nil, clock.New(), DefaultSettings())
	_, err := svc.CreateMatch(context.Background(), CreateMatchRequest{Handle: "alice"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewTicker(svc, clock.New(), 10*time.Millisecond).Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return bc.updates.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
