// Package jobs runs the background schedule: the daily rollover and the
// sweep of finished sessions.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/p-n-ai/pai-academy/internal/academy"
)

// Defaults used when Config leaves a spec empty.
const (
	DefaultRolloverSpec = "0 0 * * *"
	DefaultSweepSpec    = "@every 5m"
)

// Roller rolls the daily counters over.
type Roller interface {
	Rollover(ctx context.Context) (academy.Outcome, error)
}

// Sweeper drops finished sessions and aborts idle ones.
type Sweeper interface {
	Sweep() int
}

// Config holds the cron specs and the zone they run in.
type Config struct {
	RolloverSpec string
	SweepSpec    string
	Location     *time.Location
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron    *cron.Cron
	roller  Roller
	sweeper Sweeper
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler registers the jobs. sweeper may be nil.
func NewScheduler(cfg Config, roller Roller, sweeper Sweeper) (*Scheduler, error) {
	if roller == nil {
		return nil, fmt.Errorf("roller is required")
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	rolloverSpec := cfg.RolloverSpec
	if rolloverSpec == "" {
		rolloverSpec = DefaultRolloverSpec
	}
	sweepSpec := cfg.SweepSpec
	if sweepSpec == "" {
		sweepSpec = DefaultSweepSpec
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		roller:  roller,
		sweeper: sweeper,
		ctx:     ctx,
		cancel:  cancel,
	}

	if _, err := s.cron.AddFunc(rolloverSpec, func() { s.RunRollover(s.ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("rollover spec %q: %w", rolloverSpec, err)
	}
	if sweeper != nil {
		if _, err := s.cron.AddFunc(sweepSpec, s.RunSweep); err != nil {
			cancel()
			return nil, fmt.Errorf("sweep spec %q: %w", sweepSpec, err)
		}
	}
	return s, nil
}

// RunRollover performs one rollover now.
func (s *Scheduler) RunRollover(ctx context.Context) {
	out, err := s.roller.Rollover(ctx)
	if err != nil {
		slog.Error("daily rollover failed", "error", err)
		return
	}
	slog.Info("daily rollover", "hearts_refilled", out.HeartsRefilled, "streak", out.Streak)
}

// RunSweep drops finished sessions now.
func (s *Scheduler) RunSweep() {
	if s.sweeper == nil {
		return
	}
	if n := s.sweeper.Sweep(); n > 0 {
		slog.Debug("swept sessions", "count", n)
	}
}

// Entries is the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start runs the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "jobs", s.Entries())
}

// Stop halts the schedule and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}
