// Package service implements the fee ledger: arrears, batch challan
// generation, payment allocation and the overdue sweep.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mmynk/feeledger/internal/calculator"
	"github.com/mmynk/feeledger/internal/metrics"
	"github.com/mmynk/feeledger/internal/models"
	"github.com/mmynk/feeledger/internal/storage"
)

const (
	defaultWorkers           = 8
	defaultAllocationRetries = 3
)

// CacheInvalidator receives a signal after the ledger changes a student's challans.
// With no student IDs every cached entry is stale.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, studentIDs ...string) error
}

// Ledger is the fee ledger engine.
type Ledger struct {
	store    storage.Store
	cache    CacheInvalidator
	metrics  *metrics.Metrics
	validate *validator.Validate
	now      func() time.Time

	workers           int
	allocationRetries int
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithCacheInvalidator sets the collaborator signalled after changes.
func WithCacheInvalidator(c CacheInvalidator) Option {
	return func(l *Ledger) { l.cache = c }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithWorkers bounds how many students a batch generates concurrently.
func WithWorkers(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithAllocationRetries bounds allocation attempts after version conflicts.
func WithAllocationRetries(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.allocationRetries = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a Ledger on top of the given storage backend.
func NewLedger(store storage.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:             store,
		validate:          newValidator(),
		now:               time.Now,
		workers:           defaultWorkers,
		allocationRetries: defaultAllocationRetries,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// signal notifies the cache. Failures are logged and never returned.
func (l *Ledger) signal(ctx context.Context, studentIDs ...string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Invalidate(ctx, studentIDs...); err != nil {
		slog.Warn("Cache invalidation failed", "student_ids", studentIDs, "error", err)
	}
}

// Statement returns all of a student's challans with the unsettled total.
func (l *Ledger) Statement(ctx context.Context, studentID string) (*models.Statement, error) {
	if studentID == "" {
		return nil, fmt.Errorf("%w: student_id required", ErrValidation)
	}
	challans, err := l.store.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	calculator.SortFIFO(challans)

	outstanding := decimal.Zero
	for _, c := range challans {
		if c.Status.Unsettled() {
			outstanding = calculator.Round(outstanding.Add(c.RemainingBalance))
		}
	}
	return &models.Statement{StudentID: studentID, Challans: challans, Outstanding: outstanding}, nil
}

// DeleteChallan removes a challan unconditionally.
func (l *Ledger) DeleteChallan(ctx context.Context, challanID string) error {
	found, err := l.store.FindByIDs(ctx, []string{challanID})
	if err != nil {
		return mapStorageError(err)
	}
	if len(found) == 0 {
		return fmt.Errorf("%w: challan %s", ErrNotFound, challanID)
	}
	if err := l.store.Delete(ctx, challanID); err != nil {
		return mapStorageError(err)
	}
	slog.Info("Challan deleted", "challan_id", challanID, "student_id", found[0].StudentID,
		"month", found[0].Month, "year", found[0].Year)
	l.signal(ctx, found[0].StudentID)
	return nil
}

// MarkChallanSent records that the challan notice went out. Money fields and
// Version are left alone.
func (l *Ledger) MarkChallanSent(ctx context.Context, challanID string) error {
	if err := l.store.MarkSent(ctx, challanID); err != nil {
		return mapStorageError(err)
	}
	found, err := l.store.FindByIDs(ctx, []string{challanID})
	if err != nil || len(found) == 0 {
		l.signal(ctx)
		return nil
	}
	l.signal(ctx, found[0].StudentID)
	return nil
}

// UpsertStudent registers or updates a directory record.
func (l *Ledger) UpsertStudent(ctx context.Context, student *models.Student) error {
	if student == nil || student.ID == "" {
		return fmt.Errorf("%w: student id required", ErrValidation)
	}
	if student.Discount.IsNegative() {
		return fmt.Errorf("%w: discount must not be negative", ErrValidation)
	}
	student.Discount = calculator.Round(student.Discount)
	if err := l.store.UpsertStudent(ctx, student); err != nil {
		return mapStorageError(err)
	}
	return nil
}
