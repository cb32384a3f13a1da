package model

import "time"

// MatchResult is the archived outcome of a finished match.
type MatchResult struct {
	MatchID    string         `json:"match_id"`
	Winner     string         `json:"winner,omitempty"` // handle; empty for a draw
	Reason     string         `json:"reason"`           // all_ships_sunk, timeout, sudden_death, disconnect
	Difficulty int            `json:"difficulty"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt time.Time      `json:"finished_at"`
	Players    []PlayerResult `json:"players"`
}

// PlayerResult is one side's final line in a MatchResult.
type PlayerResult struct {
	PlayerID       string `json:"player_id"`
	Handle         string `json:"handle"`
	ShipsRemaining int    `json:"ships_remaining"`
	CellsHit       int    `json:"cells_hit"`
	CellsMissed    int    `json:"cells_missed"`
	ShipsSunk      int    `json:"ships_sunk"`
	ProblemsSolved int    `json:"problems_solved"`
	VetoesUsed     int    `json:"vetoes_used"`
}

// Outcome returns "win", "loss" or "draw" for handle.
func (r *MatchResult) Outcome(handle string) string {
	switch r.Winner {
	case "":
		return "draw"
	case handle:
		return "win"
	default:
		return "loss"
	}
}

// PlayerStats is the running record for one handle.
type PlayerStats struct {
	Handle string `json:"handle"`
	Wins   int64  `json:"wins"`
	Losses int64  `json:"losses"`
	Draws  int64  `json:"draws"`

	RecentMatches []string `json:"recent_matches"` // newest first
}

// Problem is a competitive-programming problem offered during a match.
type Problem struct {
	ContestID int      `json:"contest_id"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    int      `json:"rating,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}
