package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/feeledger/internal/calculator"
)

// ComputeArrears sums the stored totals of the student's pending and overdue
// challans from periods strictly before month/year.
//
// Lookup failures are logged for manual review and count as zero so that
// generation is never blocked by them.
func (l *Ledger) ComputeArrears(ctx context.Context, studentID, month string, year int) decimal.Decimal {
	period, ok := calculator.NewPeriod(month, year)
	if !ok {
		slog.Warn("Arrears skipped for unknown month", "student_id", studentID, "month", month, "year", year)
		return decimal.Zero
	}

	challans, err := l.store.FindUnsettledBeforePeriod(ctx, studentID, period.Year, period.Month)
	if err != nil {
		slog.Warn("Arrears lookup failed, treating as zero",
			"student_id", studentID, "month", month, "year", year, "error", err)
		return decimal.Zero
	}

	total := decimal.Zero
	for _, c := range challans {
		total = calculator.Round(total.Add(c.TotalAmount))
	}
	return calculator.ClampZero(total)
}
