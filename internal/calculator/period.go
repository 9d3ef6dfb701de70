// Package calculator holds the pure arithmetic of the fee ledger: period
// ordering, money rounding, challan totals and payment allocation plans.
// Nothing here touches storage.
package calculator

import (
	"sort"
	"strings"

	"github.com/mmynk/feeledger/internal/models"
)

var monthIndex = map[string]int{
	"january":   1,
	"february":  2,
	"march":     3,
	"april":     4,
	"may":       5,
	"june":      6,
	"july":      7,
	"august":    8,
	"september": 9,
	"october":   10,
	"november":  11,
	"december":  12,
}

// MonthIndex maps an English month name to 1..12. Matching ignores case and
// surrounding spaces.
func MonthIndex(name string) (int, bool) {
	idx, ok := monthIndex[strings.ToLower(strings.TrimSpace(name))]
	return idx, ok
}

// Period is a (year, month) pair ordered year first.
type Period struct {
	Year  int
	Month int
}

// NewPeriod builds a Period from a month name and year.
func NewPeriod(month string, year int) (Period, bool) {
	idx, ok := MonthIndex(month)
	if !ok {
		return Period{}, false
	}
	return Period{Year: year, Month: idx}, true
}

// ChallanPeriod returns the period of c. Unknown month names sort as month 0.
func ChallanPeriod(c *models.FeeChallan) Period {
	idx, _ := MonthIndex(c.Month)
	return Period{Year: c.Year, Month: idx}
}

// Before reports whether p is strictly earlier than other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// SortFIFO orders challans oldest first: year, month index, then creation time.
func SortFIFO(challans []*models.FeeChallan) {
	sort.SliceStable(challans, func(i, j int) bool {
		pi, pj := ChallanPeriod(challans[i]), ChallanPeriod(challans[j])
		if pi != pj {
			return pi.Before(pj)
		}
		return challans[i].CreatedAt.Before(challans[j].CreatedAt)
	})
}
