package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mmynk/feeledger/internal/calculator"
	"github.com/mmynk/feeledger/internal/models"
	"github.com/mmynk/feeledger/internal/storage"
)

const challanColumns = `id, student_id, month, year, tuition_fee, exam_fee, misc_fee, arrears, discount,
	total_amount, remaining_balance, status, due_date, generated_date, paid_date, sent_to_whatsapp,
	created_at, version`

const fifoOrder = `ORDER BY year, month_index, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChallan(row rowScanner) (*models.FeeChallan, error) {
	c := &models.FeeChallan{}
	var (
		status   string
		paidDate sql.NullTime
	)
	err := row.Scan(&c.ID, &c.StudentID, &c.Month, &c.Year, &c.TuitionFee, &c.ExamFee, &c.MiscFee,
		&c.Arrears, &c.Discount, &c.TotalAmount, &c.RemainingBalance, &status, &c.DueDate,
		&c.GeneratedDate, &paidDate, &c.SentToWhatsApp, &c.CreatedAt, &c.Version)
	if err != nil {
		return nil, err
	}
	c.Status = models.ChallanStatus(status)
	c.DueDate = calculator.DateOnly(c.DueDate)
	c.GeneratedDate = c.GeneratedDate.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	if paidDate.Valid {
		paid := paidDate.Time.UTC()
		c.PaidDate = &paid
	}
	return c, nil
}

func (s *Store) queryChallans(ctx context.Context, query string, args ...any) ([]*models.FeeChallan, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query challans: %w", classify(err))
	}
	defer rows.Close()

	var challans []*models.FeeChallan
	for rows.Next() {
		c, err := scanChallan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challan: %w", err)
		}
		challans = append(challans, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate challans: %w", classify(err))
	}
	return challans, nil
}

// FindByStudentAndPeriod retrieves the student's challan for a month and year.
func (s *Store) FindByStudentAndPeriod(ctx context.Context, studentID, month string, year int) (*models.FeeChallan, error) {
	idx, ok := calculator.MonthIndex(month)
	if !ok {
		return nil, fmt.Errorf("%w: unknown month %q", storage.ErrNotFound, month)
	}

	query := `
		SELECT ` + challanColumns + `
		FROM fee_challans
		WHERE student_id = $1 AND year = $2 AND month_index = $3`
	c, err := scanChallan(s.db.QueryRowContext(ctx, query, studentID, year, idx))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: challan for %s %s %d", storage.ErrNotFound, studentID, month, year)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challan: %w", classify(err))
	}
	return c, nil
}

// FindUnsettledBeforePeriod retrieves pending and overdue challans strictly before the period.
func (s *Store) FindUnsettledBeforePeriod(ctx context.Context, studentID string, year, monthIndex int) ([]*models.FeeChallan, error) {
	query := `
		SELECT ` + challanColumns + `
		FROM fee_challans
		WHERE student_id = $1 AND status IN ('pending', 'overdue')
		  AND (year, month_index) < ($2, $3)
		` + fifoOrder
	return s.queryChallans(ctx, query, studentID, year, monthIndex)
}

// FindByIDs retrieves the challans with the given IDs.
func (s *Store) FindByIDs(ctx context.Context, ids []string) ([]*models.FeeChallan, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `
		SELECT ` + challanColumns + `
		FROM fee_challans
		WHERE id = ANY($1)
		` + fifoOrder
	return s.queryChallans(ctx, query, pq.Array(ids))
}

// ListByStudent retrieves all of a student's challans, oldest period first.
func (s *Store) ListByStudent(ctx context.Context, studentID string) ([]*models.FeeChallan, error) {
	query := `
		SELECT ` + challanColumns + `
		FROM fee_challans
		WHERE student_id = $1
		` + fifoOrder
	return s.queryChallans(ctx, query, studentID)
}

// Insert persists a new challan.
func (s *Store) Insert(ctx context.Context, c *models.FeeChallan) error {
	idx, ok := calculator.MonthIndex(c.Month)
	if !ok {
		return fmt.Errorf("%w: unknown month %q", storage.ErrInvariant, c.Month)
	}
	if err := c.CheckInvariants(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvariant, err)
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.GeneratedDate.IsZero() {
		c.GeneratedDate = now
	}
	c.Version = 1

	query := `
		INSERT INTO fee_challans (id, student_id, month, month_index, year, tuition_fee, exam_fee, misc_fee,
			arrears, discount, total_amount, remaining_balance, status, due_date, generated_date, paid_date,
			sent_to_whatsapp, created_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.StudentID, c.Month, idx, c.Year, c.TuitionFee, c.ExamFee, c.MiscFee,
		c.Arrears, c.Discount, c.TotalAmount, c.RemainingBalance, string(c.Status),
		c.DueDate.Format(models.DateLayout), c.GeneratedDate, c.PaidDate,
		c.SentToWhatsApp, c.CreatedAt, c.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert challan: %w", classify(err))
	}
	return nil
}

// UpdateConditional applies every update in one transaction, or none of them.
// Rows are locked with SELECT ... FOR UPDATE before their versions are compared.
func (s *Store) UpdateConditional(ctx context.Context, updates ...models.ConditionalUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer tx.Rollback()

	for _, u := range updates {
		row := tx.QueryRowContext(ctx,
			`SELECT `+challanColumns+` FROM fee_challans WHERE id = $1 FOR UPDATE`, u.ChallanID)
		current, err := scanChallan(row)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: challan %s", storage.ErrNotFound, u.ChallanID)
		}
		if err != nil {
			return fmt.Errorf("failed to read challan: %w", classify(err))
		}
		if current.Version != u.ExpectedVersion {
			return fmt.Errorf("%w: challan %s at version %d, expected %d",
				storage.ErrVersionConflict, u.ChallanID, current.Version, u.ExpectedVersion)
		}

		next := u.Patch.Apply(current)
		if err := next.CheckInvariants(); err != nil {
			return fmt.Errorf("%w: challan %s: %v", storage.ErrInvariant, u.ChallanID, err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE fee_challans
			SET misc_fee = $1, total_amount = $2, remaining_balance = $3, status = $4, paid_date = $5, version = $6
			WHERE id = $7 AND version = $8`,
			next.MiscFee, next.TotalAmount, next.RemainingBalance, string(next.Status), next.PaidDate,
			next.Version, u.ChallanID, u.ExpectedVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to update challan: %w", classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}
	return nil
}

// MarkOverdue flips pending challans due before asOf to overdue.
func (s *Store) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE fee_challans SET status = 'overdue', version = version + 1
		WHERE status = 'pending' AND due_date < $1`,
		asOf.UTC().Format(models.DateLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue challans: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue challans: %w", classify(err))
	}
	return n, nil
}

// MarkSent records that the challan notice was sent.
func (s *Store) MarkSent(ctx context.Context, challanID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE fee_challans SET sent_to_whatsapp = TRUE WHERE id = $1`, challanID)
	if err != nil {
		return fmt.Errorf("failed to mark challan sent: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: challan %s", storage.ErrNotFound, challanID)
	}
	return nil
}

// Delete removes a challan by ID.
func (s *Store) Delete(ctx context.Context, challanID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM fee_challans WHERE id = $1`, challanID)
	if err != nil {
		return fmt.Errorf("failed to delete challan: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: challan %s", storage.ErrNotFound, challanID)
	}
	return nil
}
