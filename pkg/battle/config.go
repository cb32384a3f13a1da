package battle

import (
	"strings"
	"time"
)

// Strictness selects a veto penalty schedule.
type Strictness string

const (
	StrictnessLow    Strictness = "low"
	StrictnessMedium Strictness = "medium"
	StrictnessHigh   Strictness = "high"
)

const (
	MinDifficulty = 800
	MaxDifficulty = 3500
	MinHeat       = 3
	MaxHeat       = 20
	MinDuration   = 5 * time.Minute
	MaxDuration   = 120 * time.Minute

	DefaultDifficulty       = 800
	DefaultHeatThreshold    = 7
	DefaultDuration         = 45 * time.Minute
	DefaultMaxVetoes        = 3
	DefaultSolveCooldown    = 10 * time.Second
	DefaultSubmissionWindow = 10
	DefaultDisconnectGrace  = 2 * time.Minute
	DefaultSuddenDeathLimit = 10 * time.Minute
)

// VetoSchedule returns the progressive penalty durations for a strictness
// level. Unknown values fall back to medium.
func VetoSchedule(s Strictness) []time.Duration {
	switch Strictness(strings.ToLower(string(s))) {
	case StrictnessLow:
		return []time.Duration{5 * time.Minute, 7 * time.Minute, 10 * time.Minute}
	case StrictnessHigh:
		return []time.Duration{10 * time.Minute, 15 * time.Minute, 20 * time.Minute}
	default:
		return []time.Duration{7 * time.Minute, 10 * time.Minute, 15 * time.Minute}
	}
}

// MatchConfig holds the rules a match was created with. It is not modified
// after the match exists.
type MatchConfig struct {
	Difficulty       int             `json:"difficulty"`
	HeatThreshold    int             `json:"heat_threshold"`
	Duration         time.Duration   `json:"duration"`
	VetoPenalties    []time.Duration `json:"veto_penalties"`
	MaxVetoes        int             `json:"max_vetoes"`
	SolveCooldown    time.Duration   `json:"solve_cooldown"`
	SubmissionWindow int             `json:"submission_window"`
	DisconnectGrace  time.Duration   `json:"disconnect_grace"`
	SuddenDeathLimit time.Duration   `json:"sudden_death_limit"`
}

// DefaultConfig returns the standard ranked-match rules.
func DefaultConfig() MatchConfig {
	return MatchConfig{
		Difficulty:       DefaultDifficulty,
		HeatThreshold:    DefaultHeatThreshold,
		Duration:         DefaultDuration,
		VetoPenalties:    VetoSchedule(StrictnessMedium),
		MaxVetoes:        DefaultMaxVetoes,
		SolveCooldown:    DefaultSolveCooldown,
		SubmissionWindow: DefaultSubmissionWindow,
		DisconnectGrace:  DefaultDisconnectGrace,
		SuddenDeathLimit: DefaultSuddenDeathLimit,
	}
}

// ConfigOptions are the creator-tunable settings. Zero values mean default.
type ConfigOptions struct {
	Difficulty      int
	HeatThreshold   int
	DurationMinutes int
	Strictness      Strictness
}

// NewConfig builds a MatchConfig from creator options, clamping each value
// into its allowed range.
func NewConfig(opts ConfigOptions) MatchConfig {
	cfg := DefaultConfig()
	if opts.Difficulty != 0 {
		cfg.Difficulty = clamp(opts.Difficulty, MinDifficulty, MaxDifficulty)
	}
	if opts.HeatThreshold != 0 {
		cfg.HeatThreshold = clamp(opts.HeatThreshold, MinHeat, MaxHeat)
	}
	if opts.DurationMinutes != 0 {
		d := time.Duration(opts.DurationMinutes) * time.Minute
		cfg.Duration = clamp(d, MinDuration, MaxDuration)
	}
	if opts.Strictness != "" {
		cfg.VetoPenalties = VetoSchedule(opts.Strictness)
	}
	return cfg
}

func clamp[T int | time.Duration](v, lo, hi T) T {
	return min(max(v, lo), hi)
}

// penaltyFor returns the penalty for the n-th veto (0-based). Past the end of
// the schedule the last entry repeats.
func (c MatchConfig) penaltyFor(n int) time.Duration {
	if len(c.VetoPenalties) == 0 {
		return 0
	}
	if n >= len(c.VetoPenalties) {
		n = len(c.VetoPenalties) - 1
	}
	return c.VetoPenalties[n]
}
