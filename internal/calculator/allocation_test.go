package calculator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/feeledger/internal/models"
)

func challan(id, month string, year int, balance string) *models.FeeChallan {
	b := dec(balance)
	return &models.FeeChallan{
		ID:               id,
		Month:            month,
		Year:             year,
		TuitionFee:       b,
		MiscFee:          decimal.Zero,
		TotalAmount:      b,
		RemainingBalance: b,
		Status:           models.StatusPending,
		Version:          1,
	}
}

func TestPlanAllocation(t *testing.T) {
	now := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		challans     []*models.FeeChallan
		amount       string
		lateFees     map[string]decimal.Decimal
		wantErr      bool
		validateFunc func(t *testing.T, plan *AllocationPlan)
	}{
		{
			name: "oldest challan settled first",
			challans: []*models.FeeChallan{
				challan("mar", "March", 2024, "500"),
				challan("jan", "January", 2024, "1000"),
			},
			amount: "1200",
			validateFunc: func(t *testing.T, plan *AllocationPlan) {
				if len(plan.Lines) != 2 {
					t.Fatalf("expected 2 lines, got %d", len(plan.Lines))
				}
				jan, mar := plan.Lines[0], plan.Lines[1]
				if jan.ChallanID != "jan" || mar.ChallanID != "mar" {
					t.Fatalf("wrong order: %s, %s", jan.ChallanID, mar.ChallanID)
				}
				if !jan.Applied.Equal(dec("1000")) || jan.Status != models.StatusPaid {
					t.Errorf("jan: applied %s status %s, want 1000 paid", jan.Applied, jan.Status)
				}
				if !mar.Applied.Equal(dec("200")) || !mar.BalanceAfter.Equal(dec("300")) || mar.Status != models.StatusPending {
					t.Errorf("mar: applied %s balance %s status %s, want 200/300/pending", mar.Applied, mar.BalanceAfter, mar.Status)
				}
				if !plan.TotalOutstanding.Equal(dec("1500")) {
					t.Errorf("outstanding = %s, want 1500", plan.TotalOutstanding)
				}
				if !plan.Unapplied.IsZero() {
					t.Errorf("unapplied = %s, want 0", plan.Unapplied)
				}
				if plan.Updates[0].Patch.PaidDate == nil || !plan.Updates[0].Patch.PaidDate.Equal(now) {
					t.Errorf("jan paid date not set to now")
				}
			},
		},
		{
			name: "payment stops before reaching later challans",
			challans: []*models.FeeChallan{
				challan("jan", "January", 2024, "1000"),
				challan("feb", "February", 2024, "1000"),
			},
			amount: "400",
			validateFunc: func(t *testing.T, plan *AllocationPlan) {
				if len(plan.Lines) != 1 {
					t.Fatalf("expected only the oldest challan to be touched, got %d lines", len(plan.Lines))
				}
				if !plan.Lines[0].BalanceAfter.Equal(dec("600")) {
					t.Errorf("balance after = %s, want 600", plan.Lines[0].BalanceAfter)
				}
			},
		},
		{
			name:     "late fee folds into misc fee and total under partial payment",
			challans: []*models.FeeChallan{challan("jan", "January", 2024, "1000")},
			amount:   "100",
			lateFees: map[string]decimal.Decimal{"jan": dec("50")},
			validateFunc: func(t *testing.T, plan *AllocationPlan) {
				patch := plan.Updates[0].Patch
				if !patch.MiscFee.Equal(dec("50")) {
					t.Errorf("misc fee = %s, want 50", patch.MiscFee)
				}
				if !patch.TotalAmount.Equal(dec("1050")) {
					t.Errorf("total = %s, want 1050", patch.TotalAmount)
				}
				if !patch.RemainingBalance.Equal(dec("950")) {
					t.Errorf("remaining = %s, want 950", patch.RemainingBalance)
				}
				if !plan.TotalOutstanding.Equal(dec("1050")) {
					t.Errorf("outstanding = %s, want 1050", plan.TotalOutstanding)
				}
			},
		},
		{
			name: "overdue challan partially paid reverts to pending",
			challans: func() []*models.FeeChallan {
				c := challan("jan", "January", 2024, "1000")
				c.Status = models.StatusOverdue
				return []*models.FeeChallan{c}
			}(),
			amount: "10",
			validateFunc: func(t *testing.T, plan *AllocationPlan) {
				if plan.Lines[0].Status != models.StatusPending {
					t.Errorf("status = %s, want pending", plan.Lines[0].Status)
				}
			},
		},
		{
			name:     "payment above outstanding is refused",
			challans: []*models.FeeChallan{challan("jan", "January", 2024, "1500")},
			amount:   "1501",
			wantErr:  true,
		},
		{
			name:     "zero payment is refused",
			challans: []*models.FeeChallan{challan("jan", "January", 2024, "1500")},
			amount:   "0",
			wantErr:  true,
		},
		{
			name: "fractional amounts stay at two places",
			challans: []*models.FeeChallan{
				challan("jan", "January", 2024, "333.33"),
				challan("feb", "February", 2024, "333.33"),
			},
			amount: "500.005",
			validateFunc: func(t *testing.T, plan *AllocationPlan) {
				sum := decimal.Zero
				for _, l := range plan.Lines {
					sum = sum.Add(l.Applied)
				}
				if !sum.Equal(dec("500.01")) {
					t.Errorf("applied sum = %s, want 500.01", sum)
				}
				if !plan.Lines[1].BalanceAfter.Equal(dec("166.65")) {
					t.Errorf("feb balance = %s, want 166.65", plan.Lines[1].BalanceAfter)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanAllocation(tt.challans, dec(tt.amount), tt.lateFees, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PlanAllocation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.validateFunc != nil {
				tt.validateFunc(t, plan)
			}
		})
	}
}

func TestPlanAllocationKeepsInvariants(t *testing.T) {
	challans := []*models.FeeChallan{
		challan("jan", "January", 2024, "1000"),
		challan("feb", "February", 2024, "750.50"),
		challan("mar", "March", 2024, "20"),
	}
	lateFees := map[string]decimal.Decimal{"feb": dec("25"), "mar": dec("5")}

	for _, amount := range []string{"0.01", "999.99", "1000", "1775.50", "1800.50"} {
		plan, err := PlanAllocation(append([]*models.FeeChallan(nil), challans...), dec(amount), lateFees, time.Now())
		if err != nil {
			t.Fatalf("amount %s: %v", amount, err)
		}
		for _, u := range plan.Updates {
			var orig *models.FeeChallan
			for _, c := range challans {
				if c.ID == u.ChallanID {
					orig = c
				}
			}
			after := u.Patch.Apply(orig)
			if err := after.CheckInvariants(); err != nil {
				t.Errorf("amount %s, challan %s: %v", amount, u.ChallanID, err)
			}
		}
	}
}

func TestPlanAllocationLateFeeKeepsArrearsInTotal(t *testing.T) {
	c := challan("mar", "March", 2024, "1000")
	c.Arrears = dec("800")
	c.Discount = dec("100")
	c.TotalAmount = dec("1700")
	c.RemainingBalance = dec("1700")

	plan, err := PlanAllocation([]*models.FeeChallan{c}, dec("500"), map[string]decimal.Decimal{"mar": dec("50")}, time.Now())
	if err != nil {
		t.Fatalf("PlanAllocation failed: %v", err)
	}
	if len(plan.Updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(plan.Updates))
	}

	patch := plan.Updates[0].Patch
	if !patch.MiscFee.Equal(dec("50")) {
		t.Errorf("misc fee = %s, want 50", patch.MiscFee)
	}
	// tuition 1000 + misc 50 + arrears 800 - discount 100
	if !patch.TotalAmount.Equal(dec("1750")) {
		t.Errorf("total = %s, want 1750", patch.TotalAmount)
	}
	if !patch.RemainingBalance.Equal(dec("1250")) || patch.Status != models.StatusPending {
		t.Errorf("remaining %s status %s, want 1250 pending", patch.RemainingBalance, patch.Status)
	}
	if err := patch.Apply(c).CheckInvariants(); err != nil {
		t.Errorf("invariants: %v", err)
	}
}
