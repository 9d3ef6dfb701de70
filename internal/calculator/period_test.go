package calculator

import (
	"testing"
	"time"

	"github.com/mmynk/feeledger/internal/models"
)

func TestMonthIndex(t *testing.T) {
	tests := []struct {
		name   string
		want   int
		wantOK bool
	}{
		{"January", 1, true},
		{"march", 3, true},
		{"  December ", 12, true},
		{"Sept", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MonthIndex(tt.name)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("MonthIndex(%q) = %d, %v; want %d, %v", tt.name, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPeriodBefore(t *testing.T) {
	tests := []struct {
		name string
		a, b Period
		want bool
	}{
		{"earlier month same year", Period{2024, 1}, Period{2024, 3}, true},
		{"later month same year", Period{2024, 3}, Period{2024, 1}, false},
		{"same period", Period{2024, 3}, Period{2024, 3}, false},
		{"december before next january", Period{2023, 12}, Period{2024, 1}, true},
		{"january after previous december", Period{2024, 1}, Period{2023, 12}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Before(tt.b); got != tt.want {
				t.Errorf("%v.Before(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSortFIFO(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	challans := []*models.FeeChallan{
		{ID: "mar-2024", Month: "March", Year: 2024, CreatedAt: base},
		{ID: "dec-2023", Month: "December", Year: 2023, CreatedAt: base.Add(time.Hour)},
		{ID: "jan-2024-late", Month: "January", Year: 2024, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "jan-2024-early", Month: "January", Year: 2024, CreatedAt: base.Add(time.Minute)},
	}

	SortFIFO(challans)

	want := []string{"dec-2023", "jan-2024-early", "jan-2024-late", "mar-2024"}
	for i, id := range want {
		if challans[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, challans[i].ID, id)
		}
	}
}
