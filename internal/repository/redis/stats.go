package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Prajwal-k-tech/Battle-CP/internal/model"
)

// recentLimit caps the per-handle recent-match list.
const recentLimit = 50

// Key patterns for Redis player stats. Handles are lowercased.
func statsKey(handle string) string  { return "player:" + handle + ":stats" }
func recentKey(handle string) string { return "player:" + handle + ":recent" }

// RecordResult bumps each participant's win/loss/draw counter and pushes the
// match onto their recent list in one transaction.
func (c *Client) RecordResult(ctx context.Context, r *model.MatchResult) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range r.Players {
			handle := strings.ToLower(p.Handle)
			field := outcomeField(r.Outcome(p.Handle))
			pipe.HIncrBy(ctx, statsKey(handle), field, 1)
			pipe.LPush(ctx, recentKey(handle), r.MatchID)
			pipe.LTrim(ctx, recentKey(handle), 0, recentLimit-1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record stats: %w", err)
	}
	return nil
}

// GetStats returns handle's counters. Unknown handles have all zeroes.
func (c *Client) GetStats(ctx context.Context, handle string) (*model.PlayerStats, error) {
	vals, err := c.rdb.HGetAll(ctx, statsKey(handle)).Result()
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &model.PlayerStats{
		Handle: handle,
		Wins:   parseCount(vals["wins"]),
		Losses: parseCount(vals["losses"]),
		Draws:  parseCount(vals["draws"]),
	}, nil
}

// RecentMatches returns up to limit match ids for handle, newest first.
func (c *Client) RecentMatches(ctx context.Context, handle string, limit int) ([]string, error) {
	if limit <= 0 || limit > recentLimit {
		limit = recentLimit
	}
	ids, err := c.rdb.LRange(ctx, recentKey(handle), 0, int64(limit-1)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("recent matches: %w", err)
	}
	return ids, nil
}

func outcomeField(outcome string) string {
	switch outcome {
	case "win":
		return "wins"
	case "loss":
		return "losses"
	}
	return "draws"
}

func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
