package application

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"sensegrid-cloud/internal/observability/metrics"
)

// Scheduler drives periodic evaluation cycles. One tick begins only after the
// previous cycle has returned, so cycles never overlap. Cancelling the context
// exits the loop without starting a new cycle.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	logger   zerolog.Logger
}

// NewScheduler constructs a Scheduler.
func NewScheduler(engine *Engine, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Scheduler{engine: engine, interval: interval, logger: logger}
}

// Start runs the evaluation loop until the context is cancelled. The first
// cycle runs immediately, then once per interval. A failed cycle is logged
// and retried on the next tick; the loop itself never terminates on faults.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.engine == nil {
		return
	}
	s.logger.Info().Dur("interval", s.interval).Msg("rules scheduler started")

	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("rules scheduler stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	err := s.engine.RunCycle(ctx)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveEvalCycle(result, time.Since(start))
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error().Err(err).Msg("evaluation cycle failed, retrying next tick")
	}
}
