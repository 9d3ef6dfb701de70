package models

import "github.com/shopspring/decimal"

// Statement is a student's ledger view: every challan plus the unsettled total.
type Statement struct {
	StudentID string

	// Challans are in FIFO order (oldest period first).
	Challans []*FeeChallan

	// Outstanding is the sum of remaining balances of unsettled challans.
	Outstanding decimal.Decimal
}
