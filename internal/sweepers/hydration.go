package sweepers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seaward/offer-service/internal/itinerary"
)

// Hydrator is the part of the itinerary cache the sweeper drives
type Hydrator interface {
	HydrateIfNeeded(ctx context.Context, keys []string) (itinerary.HydrationReport, error)
}

// HydrationSweeper periodically refreshes stale itinerary cache entries
type HydrationSweeper struct {
	hydrator Hydrator
	logger   *zerolog.Logger
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewHydrationSweeper creates a sweeper that hydrates every stale entry once per interval
func NewHydrationSweeper(hydrator Hydrator, logger *zerolog.Logger, interval time.Duration) *HydrationSweeper {
	return &HydrationSweeper{
		hydrator: hydrator,
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called
func (s *HydrationSweeper) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Msg("Starting hydration sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Hydration sweeper stopping (context cancelled)")
			return
		case <-s.stopChan:
			s.logger.Info().Msg("Hydration sweeper stopping (stop signal)")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Failed to hydrate stale entries")
			}
		}
	}
}

// Stop signals the sweeper to stop. Safe to call more than once.
func (s *HydrationSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// Sweep runs one staleness-driven hydration over the whole cache
func (s *HydrationSweeper) Sweep(ctx context.Context) (itinerary.HydrationReport, error) {
	s.logger.Debug().Msg("Running hydration sweep")

	report, err := s.hydrator.HydrateIfNeeded(ctx, nil)
	if err != nil {
		return report, err
	}

	if report.Skipped {
		s.logger.Debug().Msg("Hydration already running, sweep skipped")
	} else if report.Updated > 0 || report.Touched > 0 || len(report.FailedShips) > 0 {
		s.logger.Info().
			Str("run_id", report.RunID).
			Int("updated", report.Updated).
			Int("touched", report.Touched).
			Int("failed_ships", len(report.FailedShips)).
			Msg("Hydration sweep completed")
	}

	return report, nil
}
