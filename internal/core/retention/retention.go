// Package retention prunes alert history on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/solatis/alertkeeper/internal/metrics"
)

// Store deletes history older than a cutoff. *db.AlertStore implements it.
type Store interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pruner removes history entries older than the retention window.
type Pruner struct {
	store     Store
	retention time.Duration
	now       func() time.Time
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewPruner returns a pruner keeping entries younger than retention.
// m may be nil.
func NewPruner(store Store, retention time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Pruner {
	return &Pruner{
		store:     store,
		retention: retention,
		now:       time.Now,
		metrics:   m,
		logger:    logger,
	}
}

// Prune deletes expired entries and returns how many were removed.
// A non-positive retention keeps everything.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	if p.retention <= 0 {
		return 0, nil
	}
	cutoff := p.now().Add(-p.retention)
	n, err := p.store.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if p.metrics != nil {
		p.metrics.HistoryPruned.Add(float64(n))
	}
	return n, nil
}

// Scheduler runs a Pruner on a standard five-field cron schedule.
type Scheduler struct {
	pruner   *Pruner
	schedule string
	logger   zerolog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewScheduler(pruner *Pruner, schedule string) *Scheduler {
	return &Scheduler{
		pruner:   pruner,
		schedule: schedule,
		logger:   pruner.logger,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start schedules pruning and returns immediately. An empty schedule does
// nothing. The scheduler stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info().Msg("prune schedule not configured, history is kept")
		return nil
	}
	if s.running {
		return fmt.Errorf("retention scheduler already running")
	}

	if _, err := s.cron.AddFunc(s.schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", s.schedule).
		Dur("retention", s.pruner.retention).
		Msg("retention scheduler started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	n, err := s.pruner.Prune(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled history pruning failed")
		return
	}
	s.logger.Info().Int64("deleted", n).Msg("history pruned")
}

// Stop halts the schedule and waits for a running prune to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info().Msg("retention scheduler stopped")
}

// NextRun returns the next scheduled prune, or the zero time when not running.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.cron.Entries()
	if !s.running || len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
