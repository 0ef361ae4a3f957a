package antirepeat

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweepable is a backend whose expired entries must be reclaimed explicitly.
type Sweepable interface {
	Sweep() int
}

// Sweeper periodically reclaims expired in-memory state.
// Redis evicts by TTL and never needs one.
type Sweeper struct {
	target   Sweepable
	interval time.Duration
	logger   zerolog.Logger
}

func NewSweeper(target Sweepable, interval time.Duration, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		target:   target,
		interval: interval,
		logger:   logger.With().Str("component", "antirepeat_sweeper").Logger(),
	}
}

// Run blocks until context cancellation.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.target == nil {
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if removed := s.target.Sweep(); removed > 0 {
				s.logger.Debug().Int("removed", removed).Msg("expired anti-repeat entries swept")
			}
		}
	}
}
