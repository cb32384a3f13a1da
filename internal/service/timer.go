package service

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

// Ticker drives MatchService.Sweep on a fixed interval.
type Ticker struct {
	svc      *MatchService
	clock    clock.Clock
	interval time.Duration
}

// NewTicker creates a Ticker. A non-positive interval means one second.
func NewTicker(svc *MatchService, clk clock.Clock, interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Ticker{svc: svc, clock: clk, interval: interval}
}

// Start runs sweeps until ctx is cancelled.
func (t *Ticker) Start(ctx context.Context) {
	ticker := t.clock.Ticker(t.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", t.interval).Msg("Match ticker started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Match ticker stopped")
			return
		case <-ticker.C:
			t.svc.Sweep()
		}
	}
}
