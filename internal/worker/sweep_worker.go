package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper finalizes expired attempts in bulk.
type Sweeper interface {
	RunSweep(ctx context.Context) (int, error)
}

// SweepWorker periodically scans active sessions and finalizes the ones whose
// time limit has passed, covering students who disconnected mid-attempt.
type SweepWorker struct {
	sweeper      Sweeper
	interval     time.Duration
	initialDelay time.Duration
	log          zerolog.Logger
}

// NewSweepWorker creates a new SweepWorker.
func NewSweepWorker(sweeper Sweeper, interval, initialDelay time.Duration, log zerolog.Logger) *SweepWorker {
	return &SweepWorker{
		sweeper:      sweeper,
		interval:     interval,
		initialDelay: initialDelay,
		log:          log.With().Str("component", "sweep_worker").Logger(),
	}
}

// Start begins the periodic sweep loop. Call in a goroutine.
func (w *SweepWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	// Let the server finish startup before the first scan.
	select {
	case <-ctx.Done():
		w.log.Info().Msg("Worker stopped")
		return
	case <-time.After(w.initialDelay):
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
		}
	}
}

func (w *SweepWorker) runOnce(ctx context.Context) {
	n, err := w.sweeper.RunSweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Sweep failed")
		}
		return
	}
	if n > 0 {
		w.log.Info().Int("finalized", n).Msg("Sweep pass complete")
	}
}
