package models

import "github.com/shopspring/decimal"

// Student is the directory record challans refer to.
// The ledger only reads it; enrolment is owned by the back office.
type Student struct {
	// ID is the student identifier used by the back office.
	ID string

	Class   string
	Section string

	// Discount is a fixed amount taken off every challan of the student.
	Discount decimal.Decimal
}
