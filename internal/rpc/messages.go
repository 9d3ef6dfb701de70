package rpc

import (
	"time"

	"github.com/shopspring/decimal"
)

// Amounts travel as decimal strings ("1250.50"); dates as YYYY-MM-DD.

type Challan struct {
	ID               string          `json:"id"`
	StudentID        string          `json:"student_id"`
	Month            string          `json:"month"`
	Year             int             `json:"year"`
	TuitionFee       decimal.Decimal `json:"tuition_fee"`
	ExamFee          decimal.Decimal `json:"exam_fee"`
	MiscFee          decimal.Decimal `json:"misc_fee"`
	Arrears          decimal.Decimal `json:"arrears"`
	Discount         decimal.Decimal `json:"discount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Status           string          `json:"status"`
	DueDate          string          `json:"due_date"`
	GeneratedDate    time.Time       `json:"generated_date"`
	PaidDate         *time.Time      `json:"paid_date,omitempty"`
	SentToWhatsApp   bool            `json:"sent_to_whatsapp"`
	CreatedAt        time.Time       `json:"created_at"`
	Version          int64           `json:"version"`
}

type ChallanRequest struct {
	StudentID  string          `json:"student_id"`
	Month      string          `json:"month"`
	Year       int             `json:"year"`
	TuitionFee decimal.Decimal `json:"tuition_fee"`
	ExamFee    decimal.Decimal `json:"exam_fee"`
	MiscFee    decimal.Decimal `json:"misc_fee"`
	DueDate    string          `json:"due_date"`
	// Status is optional: pending (default) or overdue.
	Status string `json:"status,omitempty"`
}

type GenerateChallansRequest struct {
	Items []*ChallanRequest `json:"items"`
}

// BatchError describes one batch item that was not created.
type BatchError struct {
	Index     int    `json:"index"`
	StudentID string `json:"student_id"`
	Month     string `json:"month"`
	Year      int    `json:"year"`
	// Code is the connect code name of the failure, e.g. "aborted" for a duplicate period.
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type GenerateChallansResponse struct {
	Created []*Challan    `json:"created"`
	Errors  []*BatchError `json:"errors"`
}

type AllocatePaymentRequest struct {
	StudentID  string                     `json:"student_id"`
	ChallanIDs []string                   `json:"challan_ids"`
	Amount     decimal.Decimal            `json:"amount"`
	LateFees   map[string]decimal.Decimal `json:"late_fees,omitempty"`
}

type Allocation struct {
	ChallanID     string          `json:"challan_id"`
	Month         string          `json:"month"`
	Year          int             `json:"year"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	LateFee       decimal.Decimal `json:"late_fee"`
	Due           decimal.Decimal `json:"due"`
	Applied       decimal.Decimal `json:"applied"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Status        string          `json:"status"`
}

type AllocatePaymentResponse struct {
	StudentID              string          `json:"student_id"`
	Allocations            []*Allocation   `json:"allocations"`
	TotalOutstandingBefore decimal.Decimal `json:"total_outstanding_before"`
	RemainingUnapplied     decimal.Decimal `json:"remaining_unapplied"`
	Attempts               int             `json:"attempts"`
}

type SweepOverdueRequest struct {
	// AsOf defaults to today.
	AsOf string `json:"as_of,omitempty"`
}

type SweepOverdueResponse struct {
	AsOf    string `json:"as_of"`
	Updated int64  `json:"updated"`
}

type GetStatementRequest struct {
	StudentID string `json:"student_id"`
}

type GetStatementResponse struct {
	StudentID   string          `json:"student_id"`
	Challans    []*Challan      `json:"challans"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type DeleteChallanRequest struct {
	ChallanID string `json:"challan_id"`
}

type DeleteChallanResponse struct{}

type MarkChallanSentRequest struct {
	ChallanID string `json:"challan_id"`
}

type MarkChallanSentResponse struct{}

type Student struct {
	ID       string          `json:"id"`
	Class    string          `json:"class"`
	Section  string          `json:"section"`
	Discount decimal.Decimal `json:"discount"`
}

type UpsertStudentRequest struct {
	Student *Student `json:"student"`
}

type UpsertStudentResponse struct {
	Student *Student `json:"student"`
}
