package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ChallanStatus is the settlement state of a fee challan.
type ChallanStatus string

const (
	StatusPending ChallanStatus = "pending"
	StatusOverdue ChallanStatus = "overdue"
	StatusPaid    ChallanStatus = "paid"
)

// Valid reports whether s is one of the known statuses.
func (s ChallanStatus) Valid() bool {
	switch s {
	case StatusPending, StatusOverdue, StatusPaid:
		return true
	}
	return false
}

// Unsettled reports whether a challan in this status still carries a balance.
func (s ChallanStatus) Unsettled() bool {
	return s == StatusPending || s == StatusOverdue
}

// DateLayout is the storage and wire layout of date-only fields.
const DateLayout = "2006-01-02"

// FeeChallan is a periodic fee obligation issued to a student for one month of one year.
type FeeChallan struct {
	// ID is the unique identifier for the challan (UUID format).
	ID string

	// StudentID references the student in the directory.
	StudentID string

	// Month is the English month name ("January" ... "December").
	Month string

	// Year is the calendar year of the period.
	Year int

	TuitionFee decimal.Decimal
	ExamFee    decimal.Decimal

	// MiscFee also absorbs late fees charged during payment allocation.
	MiscFee decimal.Decimal

	// Arrears is the unsettled total of earlier periods at generation time.
	Arrears decimal.Decimal

	// Discount is the student's discount, netted out of TotalAmount.
	Discount decimal.Decimal

	// TotalAmount is TuitionFee + ExamFee + MiscFee + Arrears - Discount.
	// It is computed on creation and on late-fee adjustment only.
	TotalAmount decimal.Decimal

	// RemainingBalance is the unpaid part of TotalAmount.
	RemainingBalance decimal.Decimal

	Status ChallanStatus

	// DueDate is date-only (time zeroed, UTC).
	DueDate time.Time

	GeneratedDate time.Time

	// PaidDate is set only on the transition to paid.
	PaidDate *time.Time

	// SentToWhatsApp records that the challan notice went out. It has no financial meaning.
	SentToWhatsApp bool

	// CreatedAt is the creation timestamp, used as the final FIFO tie-break.
	CreatedAt time.Time

	// Version increments on every financial mutation and guards conditional updates.
	Version int64
}

// CheckInvariants returns an error describing the first broken invariant, or nil.
func (c *FeeChallan) CheckInvariants() error {
	for name, v := range map[string]decimal.Decimal{
		"tuition_fee": c.TuitionFee,
		"exam_fee":    c.ExamFee,
		"misc_fee":    c.MiscFee,
		"arrears":     c.Arrears,
		"discount":    c.Discount,
		"total":       c.TotalAmount,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%s is negative: %s", name, v.StringFixed(2))
		}
	}
	if !c.Status.Valid() {
		return fmt.Errorf("unknown status %q", c.Status)
	}
	if c.RemainingBalance.IsNegative() {
		return fmt.Errorf("remaining balance is negative: %s", c.RemainingBalance.StringFixed(2))
	}
	if c.RemainingBalance.GreaterThan(c.TotalAmount) {
		return fmt.Errorf("remaining balance %s exceeds total %s",
			c.RemainingBalance.StringFixed(2), c.TotalAmount.StringFixed(2))
	}
	if (c.Status == StatusPaid) != c.RemainingBalance.IsZero() {
		return fmt.Errorf("status %s inconsistent with remaining balance %s",
			c.Status, c.RemainingBalance.StringFixed(2))
	}
	return nil
}

// Clone returns a deep copy of the challan.
func (c *FeeChallan) Clone() *FeeChallan {
	out := *c
	if c.PaidDate != nil {
		paid := *c.PaidDate
		out.PaidDate = &paid
	}
	return &out
}

// ChallanPatch carries the financial fields a payment allocation rewrites.
type ChallanPatch struct {
	MiscFee          decimal.Decimal
	TotalAmount      decimal.Decimal
	RemainingBalance decimal.Decimal
	Status           ChallanStatus
	PaidDate         *time.Time
}

// Apply returns a copy of c with the patch applied and Version incremented.
func (p ChallanPatch) Apply(c *FeeChallan) *FeeChallan {
	out := c.Clone()
	out.MiscFee = p.MiscFee
	out.TotalAmount = p.TotalAmount
	out.RemainingBalance = p.RemainingBalance
	out.Status = p.Status
	out.PaidDate = p.PaidDate
	out.Version++
	return out
}

// ConditionalUpdate is a patch that only applies while the stored challan
// still has ExpectedVersion.
type ConditionalUpdate struct {
	ChallanID       string
	ExpectedVersion int64
	Patch           ChallanPatch
}
