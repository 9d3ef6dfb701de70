package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeSweeper struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
}

func (f *fakeSweeper) SweepOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep must run with a deadline")
	}
	f.calls = append(f.calls, asOf)
	return 2, f.err
}

func TestNewRejectsBadSchedule(t *testing.T) {
	if _, err := New(&fakeSweeper{}, "every morning"); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestRunOnce(t *testing.T) {
	sweeper := &fakeSweeper{}
	s, err := New(sweeper, "@daily")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	fixed := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.RunOnce(context.Background())
	sweeper.err = errors.New("database is locked")
	s.RunOnce(context.Background())

	if len(sweeper.calls) != 2 {
		t.Fatalf("expected 2 sweeps, got %d", len(sweeper.calls))
	}
	if !sweeper.calls[0].Equal(fixed) {
		t.Errorf("asOf = %v, want %v", sweeper.calls[0], fixed)
	}
}

func TestStartStop(t *testing.T) {
	s, err := New(&fakeSweeper{}, "0 1 * * *")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.Start()
	next := s.NextRun()
	if next.IsZero() {
		t.Fatal("expected next run to be scheduled")
	}
	if next.Hour() != 1 || next.Minute() != 0 {
		t.Errorf("next run = %v, want 01:00", next)
	}

	select {
	case <-s.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
