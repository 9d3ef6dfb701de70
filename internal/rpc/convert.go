package rpc

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/feeledger/internal/calculator"
	"github.com/mmynk/feeledger/internal/models"
	"github.com/mmynk/feeledger/internal/service"
)

func toChallan(c *models.FeeChallan) *Challan {
	return &Challan{
		ID:               c.ID,
		StudentID:        c.StudentID,
		Month:            c.Month,
		Year:             c.Year,
		TuitionFee:       c.TuitionFee,
		ExamFee:          c.ExamFee,
		MiscFee:          c.MiscFee,
		Arrears:          c.Arrears,
		Discount:         c.Discount,
		TotalAmount:      c.TotalAmount,
		RemainingBalance: c.RemainingBalance,
		Status:           string(c.Status),
		DueDate:          c.DueDate.Format(models.DateLayout),
		GeneratedDate:    c.GeneratedDate,
		PaidDate:         c.PaidDate,
		SentToWhatsApp:   c.SentToWhatsApp,
		CreatedAt:        c.CreatedAt,
		Version:          c.Version,
	}
}

func toChallans(challans []*models.FeeChallan) []*Challan {
	out := make([]*Challan, len(challans))
	for i, c := range challans {
		out[i] = toChallan(c)
	}
	return out
}

func toAllocations(lines []calculator.AllocationLine) []*Allocation {
	out := make([]*Allocation, len(lines))
	for i, l := range lines {
		out[i] = &Allocation{
			ChallanID:     l.ChallanID,
			Month:         l.Month,
			Year:          l.Year,
			BalanceBefore: l.BalanceBefore,
			LateFee:       l.LateFee,
			Due:           l.Due,
			Applied:       l.Applied,
			BalanceAfter:  l.BalanceAfter,
			Status:        string(l.Status),
		}
	}
	return out
}

// parseDate parses a YYYY-MM-DD wire date.
func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD, got %q", service.ErrValidation, field, value)
	}
	return t, nil
}

func toGenerateRequests(items []*ChallanRequest) ([]service.GenerateRequest, error) {
	reqs := make([]service.GenerateRequest, len(items))
	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("%w: items[%d] is empty", service.ErrValidation, i)
		}
		due, err := parseDate(fmt.Sprintf("items[%d].due_date", i), item.DueDate)
		if err != nil {
			return nil, err
		}
		reqs[i] = service.GenerateRequest{
			StudentID:  item.StudentID,
			Month:      item.Month,
			Year:       item.Year,
			TuitionFee: item.TuitionFee,
			ExamFee:    item.ExamFee,
			MiscFee:    item.MiscFee,
			DueDate:    due,
			Status:     models.ChallanStatus(strings.ToLower(item.Status)),
		}
	}
	return reqs, nil
}

func toStudent(s *models.Student) *Student {
	return &Student{ID: s.ID, Class: s.Class, Section: s.Section, Discount: s.Discount}
}
