package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/mmynk/feeledger/internal/calculator"
	"github.com/mmynk/feeledger/internal/models"
	"github.com/mmynk/feeledger/internal/storage"
)

// AllocationRequest is one payment from a student against selected challans.
type AllocationRequest struct {
	StudentID  string
	ChallanIDs []string
	Amount     decimal.Decimal

	// LateFees maps a challan ID to the late fee charged on it with this payment.
	LateFees map[string]decimal.Decimal
}

// AllocationResult reports how a payment was spread.
type AllocationResult struct {
	StudentID   string
	Allocations []calculator.AllocationLine

	// TotalOutstandingBefore is Σ(remaining balance + late fee) over the eligible challans.
	TotalOutstandingBefore decimal.Decimal

	// RemainingUnapplied is always zero on success since overpayment is rejected.
	RemainingUnapplied decimal.Decimal

	// Attempts is how many plan/commit rounds the allocation needed.
	Attempts int
}

// Allocate applies a payment to the student's selected challans, oldest
// period first.
//
// Nothing is written unless the whole plan commits. If another writer changes
// one of the challans in between, the challans are re-read and the payment is
// re-planned, up to the configured number of attempts.
func (l *Ledger) Allocate(ctx context.Context, req AllocationRequest) (*AllocationResult, error) {
	amount := calculator.Round(req.Amount)
	if !amount.IsPositive() {
		l.metrics.AllocationRejected("invalid_amount")
		return nil, ErrInvalidAmount
	}
	if req.StudentID == "" {
		l.metrics.AllocationRejected("validation")
		return nil, fmt.Errorf("%w: student_id required", ErrValidation)
	}
	for id, fee := range req.LateFees {
		if fee.IsNegative() {
			l.metrics.AllocationRejected("validation")
			return nil, fmt.Errorf("%w: late fee for challan %s is negative", ErrValidation, id)
		}
	}

	for attempt := 1; attempt <= l.allocationRetries; attempt++ {
		challans, err := l.eligibleChallans(ctx, req.StudentID, req.ChallanIDs)
		if err != nil {
			return nil, err
		}
		if len(challans) == 0 {
			l.metrics.AllocationRejected("no_eligible_challans")
			return nil, ErrNoEligibleChallans
		}

		outstanding := calculator.Outstanding(challans, req.LateFees)
		if amount.GreaterThan(outstanding) {
			l.metrics.AllocationRejected("overpayment")
			return nil, &OverpaymentError{Amount: amount, TotalOutstanding: outstanding}
		}

		plan, err := calculator.PlanAllocation(challans, amount, req.LateFees, l.now().UTC())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}

		err = l.store.UpdateConditional(ctx, plan.Updates...)
		if errors.Is(err, storage.ErrVersionConflict) {
			l.metrics.AllocationConflict()
			slog.Warn("Allocation lost a race, replanning",
				"student_id", req.StudentID, "attempt", attempt, "error", err)
			continue
		}
		if err != nil {
			return nil, mapStorageError(err)
		}

		l.metrics.PaymentAllocated(amount.InexactFloat64())
		l.signal(ctx, req.StudentID)
		slog.Info("Payment allocated",
			"student_id", req.StudentID,
			"amount", amount.StringFixed(2),
			"outstanding_before", plan.TotalOutstanding.StringFixed(2),
			"challans", len(plan.Lines),
			"attempt", attempt,
		)
		return &AllocationResult{
			StudentID:              req.StudentID,
			Allocations:            plan.Lines,
			TotalOutstandingBefore: plan.TotalOutstanding,
			RemainingUnapplied:     plan.Unapplied,
			Attempts:               attempt,
		}, nil
	}

	l.metrics.AllocationRejected("conflict")
	return nil, fmt.Errorf("%w: challans of student %s kept changing after %d attempts",
		ErrConflict, req.StudentID, l.allocationRetries)
}

// eligibleChallans resolves ids to the student's unsettled challans.
// Unknown, foreign and settled challans are dropped.
func (l *Ledger) eligibleChallans(ctx context.Context, studentID string, ids []string) ([]*models.FeeChallan, error) {
	seen := make(map[string]bool, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, nil
	}

	found, err := l.store.FindByIDs(ctx, unique)
	if err != nil {
		return nil, mapStorageError(err)
	}

	eligible := found[:0]
	for _, c := range found {
		if c.StudentID != studentID || !c.Status.Unsettled() {
			slog.Debug("Challan skipped for allocation",
				"challan_id", c.ID, "student_id", studentID, "owner_id", c.StudentID, "status", c.Status)
			continue
		}
		eligible = append(eligible, c)
	}
	return eligible, nil
}
