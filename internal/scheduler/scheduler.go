// Package scheduler runs the overdue sweep on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultTimeout bounds one scheduled sweep.
const DefaultTimeout = 4 * time.Minute

// Sweeper is the operation the scheduler runs.
type Sweeper interface {
	SweepOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// Scheduler triggers the overdue sweep. A run that is still going when the
// next one is due causes that next run to be skipped.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	schedule string
	timeout  time.Duration
	now      func() time.Time
}

// New creates a Scheduler for a standard cron spec such as "0 1 * * *" or "@daily".
func New(sweeper Sweeper, schedule string) (*Scheduler, error) {
	logger := slogLogger{}
	s := &Scheduler{
		cron:     cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger))),
		sweeper:  sweeper,
		schedule: schedule,
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("failed to schedule overdue sweep %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("Overdue sweep scheduled", "schedule", s.schedule, "next_run", s.NextRun())
}

// Stop halts the schedule. The returned context is done once a running sweep finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// NextRun returns when the sweep fires next, or the zero time before Start.
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunOnce performs one sweep as of now. Failures are logged; the next
// scheduled run retries.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.sweeper.SweepOverdue(ctx, s.now())
	if err != nil {
		slog.Error("Scheduled overdue sweep failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	slog.Debug("Scheduled overdue sweep done", "updated", n, "duration_ms", time.Since(start).Milliseconds())
}

// slogLogger adapts slog to cron.Logger.
type slogLogger struct{}

func (slogLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (slogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
