package calculator

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/feeledger/internal/models"
)

// AllocationLine is the outcome of a payment on one challan.
type AllocationLine struct {
	ChallanID string
	Month     string
	Year      int

	// BalanceBefore is the challan's remaining balance before the payment.
	BalanceBefore decimal.Decimal

	// LateFee is the late fee charged on this challan in this allocation.
	LateFee decimal.Decimal

	// Due is BalanceBefore + LateFee.
	Due decimal.Decimal

	// Applied is the part of the payment settled against this challan.
	Applied decimal.Decimal

	BalanceAfter decimal.Decimal
	Status       models.ChallanStatus
}

// AllocationPlan is a fully computed allocation, ready to be committed.
type AllocationPlan struct {
	Lines            []AllocationLine
	Updates          []models.ConditionalUpdate
	TotalOutstanding decimal.Decimal
	Unapplied        decimal.Decimal
}

// Outstanding returns Σ(remaining balance + late fee) over challans, rounded.
func Outstanding(challans []*models.FeeChallan, lateFees map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, c := range challans {
		total = Round(total.Add(due(c, lateFees)))
	}
	return total
}

func due(c *models.FeeChallan, lateFees map[string]decimal.Decimal) decimal.Decimal {
	return Round(Round(c.RemainingBalance).Add(Round(lateFees[c.ID])))
}

// PlanAllocation settles amount against challans oldest first.
//
// challans are sorted in place with SortFIFO. amount must be positive and not
// exceed Outstanding(challans, lateFees). Challans the payment does not reach
// are left out of the plan entirely.
func PlanAllocation(challans []*models.FeeChallan, amount decimal.Decimal, lateFees map[string]decimal.Decimal, now time.Time) (*AllocationPlan, error) {
	amount = Round(amount)
	if !amount.IsPositive() {
		return nil, fmt.Errorf("payment amount must be positive, got %s", amount.StringFixed(2))
	}

	SortFIFO(challans)

	plan := &AllocationPlan{TotalOutstanding: Outstanding(challans, lateFees)}
	if amount.GreaterThan(plan.TotalOutstanding) {
		return nil, fmt.Errorf("payment %s exceeds outstanding %s",
			amount.StringFixed(2), plan.TotalOutstanding.StringFixed(2))
	}

	remaining := amount
	for _, c := range challans {
		if !remaining.IsPositive() {
			break
		}

		lateFee := Round(lateFees[c.ID])
		owed := due(c, lateFees)
		applied := decimal.Min(remaining, owed)
		newBalance := ClampZero(Round(owed.Sub(applied)))

		patch := models.ChallanPatch{
			MiscFee:     c.MiscFee,
			TotalAmount: c.TotalAmount,
		}
		if lateFee.IsPositive() {
			patch.MiscFee = Round(c.MiscFee.Add(lateFee))
			patch.TotalAmount = ChallanTotal(c.TuitionFee, c.ExamFee, patch.MiscFee, c.Arrears, c.Discount)
			// Rows whose stored total drifted from their components must still
			// satisfy remaining <= total.
			if patch.TotalAmount.LessThan(newBalance) {
				patch.TotalAmount = newBalance
			}
		}

		if newBalance.IsZero() {
			paid := now
			patch.Status = models.StatusPaid
			patch.PaidDate = &paid
			patch.RemainingBalance = decimal.Zero
		} else {
			patch.Status = models.StatusPending
			patch.RemainingBalance = newBalance
		}

		remaining = Round(remaining.Sub(applied))

		plan.Lines = append(plan.Lines, AllocationLine{
			ChallanID:     c.ID,
			Month:         c.Month,
			Year:          c.Year,
			BalanceBefore: Round(c.RemainingBalance),
			LateFee:       lateFee,
			Due:           owed,
			Applied:       applied,
			BalanceAfter:  patch.RemainingBalance,
			Status:        patch.Status,
		})
		plan.Updates = append(plan.Updates, models.ConditionalUpdate{
			ChallanID:       c.ID,
			ExpectedVersion: c.Version,
			Patch:           patch,
		})
	}

	plan.Unapplied = ClampZero(remaining)
	return plan, nil
}
