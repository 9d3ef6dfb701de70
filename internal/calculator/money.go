package calculator

import (
	"time"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places every stored amount keeps.
const Places = 2

// Round rounds an amount to Places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// ClampZero returns d, or zero when d is negative.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ChallanTotal computes tuition + exam + misc + arrears - discount, rounded and
// clamped at zero.
func ChallanTotal(tuition, exam, misc, arrears, discount decimal.Decimal) decimal.Decimal {
	total := Round(tuition).
		Add(Round(exam)).
		Add(Round(misc)).
		Add(Round(arrears)).
		Sub(Round(discount))
	return ClampZero(Round(total))
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
