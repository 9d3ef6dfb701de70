package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/feeledger/internal/calculator"
)

// SweepOverdue marks every pending challan whose due date is before the
// calendar day of asOf as overdue and returns how many changed.
// Paid challans are never touched, so running it again without payments in
// between changes nothing.
func (l *Ledger) SweepOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	day := calculator.DateOnly(asOf)
	n, err := l.store.MarkOverdue(ctx, day)
	if err != nil {
		slog.Error("Overdue sweep failed", "as_of", day.Format("2006-01-02"), "error", err)
		return 0, mapStorageError(err)
	}

	l.metrics.MarkedOverdue(n)
	if n > 0 {
		l.signal(ctx)
	}
	slog.Info("Overdue sweep finished", "as_of", day.Format("2006-01-02"), "updated", n)
	return n, nil
}
