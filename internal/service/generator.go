package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/feeledger/internal/calculator"
	"github.com/mmynk/feeledger/internal/models"
	"github.com/mmynk/feeledger/internal/storage"
)

// GenerateRequest asks for one challan of one student for one month.
type GenerateRequest struct {
	StudentID  string          `validate:"required"`
	Month      string          `validate:"required,month"`
	Year       int             `validate:"min=2000,max=2100"`
	TuitionFee decimal.Decimal `validate:"gte=0"`
	ExamFee    decimal.Decimal `validate:"gte=0"`
	MiscFee    decimal.Decimal `validate:"gte=0"`
	DueDate    time.Time       `validate:"required"`

	// Status is the initial status; empty means pending.
	Status models.ChallanStatus `validate:"omitempty,oneof=pending overdue"`
}

// ItemError is a batch item that was not created.
type ItemError struct {
	// Index is the item's position in the request batch.
	Index     int
	StudentID string
	Month     string
	Year      int
	Reason    string
	Err       error
}

// BatchResult is the outcome of Generate. Both slices follow request order.
type BatchResult struct {
	Created []*models.FeeChallan
	Errors  []ItemError
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("month", func(fl validator.FieldLevel) bool {
		_, ok := calculator.MonthIndex(fl.Field().String())
		return ok
	})
	return v
}

func validationReason(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// errorLabel is the metrics label for a failed item.
func errorLabel(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	}
	return "internal"
}

// groupByStudent returns request indexes per student, each group in period
// order, groups in order of first appearance.
func groupByStudent(batch []GenerateRequest) [][]int {
	pos := make(map[string]int)
	var groups [][]int
	for i, req := range batch {
		g, ok := pos[req.StudentID]
		if !ok {
			g = len(groups)
			pos[req.StudentID] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	for _, idxs := range groups {
		sort.SliceStable(idxs, func(a, b int) bool {
			pa, _ := calculator.NewPeriod(batch[idxs[a]].Month, batch[idxs[a]].Year)
			pb, _ := calculator.NewPeriod(batch[idxs[b]].Month, batch[idxs[b]].Year)
			return pa.Before(pb)
		})
	}
	return groups
}

// Generate creates challans for a batch of requests.
//
// Every item succeeds or fails on its own; failures are collected in the
// result and never abort the batch. Different students are processed
// concurrently. A student's own requests run one after another, oldest
// period first, so later periods see the arrears of earlier ones.
func (l *Ledger) Generate(ctx context.Context, batch []GenerateRequest) *BatchResult {
	created := make([]*models.FeeChallan, len(batch))
	failures := make([]error, len(batch))

	var g errgroup.Group
	g.SetLimit(l.workers)
	for _, idxs := range groupByStudent(batch) {
		idxs := idxs
		g.Go(func() error {
			for _, i := range idxs {
				created[i], failures[i] = l.generateOne(ctx, batch[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchResult{}
	var touched []string
	seen := make(map[string]bool)
	for i, req := range batch {
		if err := failures[i]; err != nil {
			l.metrics.GenerationError(errorLabel(err))
			result.Errors = append(result.Errors, ItemError{
				Index:     i,
				StudentID: req.StudentID,
				Month:     req.Month,
				Year:      req.Year,
				Reason:    err.Error(),
				Err:       err,
			})
			continue
		}
		l.metrics.ChallanGenerated()
		result.Created = append(result.Created, created[i])
		if !seen[req.StudentID] {
			seen[req.StudentID] = true
			touched = append(touched, req.StudentID)
		}
	}

	if len(touched) > 0 {
		l.signal(ctx, touched...)
	}
	slog.Info("Challan batch generated",
		"requested", len(batch),
		"created", len(result.Created),
		"failed", len(result.Errors),
	)
	return result
}

func (l *Ledger) generateOne(ctx context.Context, req GenerateRequest) (*models.FeeChallan, error) {
	if err := l.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, validationReason(err))
	}
	monthIdx, _ := calculator.MonthIndex(req.Month)
	month := time.Month(monthIdx).String()

	exists, err := l.store.StudentExists(ctx, req.StudentID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: student %s", ErrNotFound, req.StudentID)
	}

	// The unique index is the real guard; this only gives a clearer error.
	_, err = l.store.FindByStudentAndPeriod(ctx, req.StudentID, month, req.Year)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: challan for %s %d already exists", ErrConflict, month, req.Year)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, mapStorageError(err)
	}

	arrears := l.ComputeArrears(ctx, req.StudentID, month, req.Year)

	discount, err := l.store.GetDiscount(ctx, req.StudentID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	discount = calculator.ClampZero(calculator.Round(discount))

	c := &models.FeeChallan{
		StudentID:  req.StudentID,
		Month:      month,
		Year:       req.Year,
		TuitionFee: calculator.Round(req.TuitionFee),
		ExamFee:    calculator.Round(req.ExamFee),
		MiscFee:    calculator.Round(req.MiscFee),
		Arrears:    arrears,
		Discount:   discount,
		DueDate:    calculator.DateOnly(req.DueDate),
	}
	c.TotalAmount = calculator.ChallanTotal(c.TuitionFee, c.ExamFee, c.MiscFee, c.Arrears, c.Discount)
	c.RemainingBalance = c.TotalAmount

	now := l.now().UTC()
	c.GeneratedDate = now
	c.CreatedAt = now
	c.Status = models.StatusPending
	if req.Status != "" {
		c.Status = req.Status
	}
	if c.TotalAmount.IsZero() {
		// Nothing is owed, so the challan is settled from the start.
		c.Status = models.StatusPaid
		c.PaidDate = &now
	}

	if err := l.store.Insert(ctx, c); err != nil {
		return nil, mapStorageError(err)
	}

	slog.Debug("Challan created",
		"challan_id", c.ID,
		"student_id", c.StudentID,
		"month", c.Month,
		"year", c.Year,
		"arrears", c.Arrears.StringFixed(2),
		"total", c.TotalAmount.StringFixed(2),
	)
	return c, nil
}
