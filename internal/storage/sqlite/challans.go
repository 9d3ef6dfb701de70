package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

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
		status        string
		dueDate       string
		generatedDate int64
		paidDate      sql.NullInt64
		sent          bool
		createdAt     int64
	)
	err := row.Scan(&c.ID, &c.StudentID, &c.Month, &c.Year, &c.TuitionFee, &c.ExamFee, &c.MiscFee,
		&c.Arrears, &c.Discount, &c.TotalAmount, &c.RemainingBalance, &status, &dueDate,
		&generatedDate, &paidDate, &sent, &createdAt, &c.Version)
	if err != nil {
		return nil, err
	}

	c.Status = models.ChallanStatus(status)
	c.DueDate, err = time.Parse(models.DateLayout, dueDate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse due date %q: %w", dueDate, err)
	}
	c.GeneratedDate = time.Unix(0, generatedDate).UTC()
	if paidDate.Valid {
		paid := time.Unix(0, paidDate.Int64).UTC()
		c.PaidDate = &paid
	}
	c.SentToWhatsApp = sent
	c.CreatedAt = time.Unix(0, createdAt).UTC()
	return c, nil
}

func (s *SQLiteStore) queryChallans(ctx context.Context, query string, args ...any) ([]*models.FeeChallan, error) {
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
func (s *SQLiteStore) FindByStudentAndPeriod(ctx context.Context, studentID, month string, year int) (*models.FeeChallan, error) {
	idx, ok := calculator.MonthIndex(month)
	if !ok {
		return nil, fmt.Errorf("%w: unknown month %q", storage.ErrNotFound, month)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+challanColumns+" FROM fee_challans WHERE student_id = ? AND year = ? AND month_index = ?",
		studentID, year, idx,
	)
	c, err := scanChallan(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: challan for %s %s %d", storage.ErrNotFound, studentID, month, year)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challan: %w", classify(err))
	}
	return c, nil
}

// FindUnsettledBeforePeriod retrieves pending and overdue challans strictly before the period.
func (s *SQLiteStore) FindUnsettledBeforePeriod(ctx context.Context, studentID string, year, monthIndex int) ([]*models.FeeChallan, error) {
	return s.queryChallans(ctx,
		"SELECT "+challanColumns+` FROM fee_challans
		 WHERE student_id = ? AND status IN ('pending', 'overdue')
		   AND (year < ? OR (year = ? AND month_index < ?)) `+fifoOrder,
		studentID, year, year, monthIndex,
	)
}

// FindByIDs retrieves the challans with the given IDs.
func (s *SQLiteStore) FindByIDs(ctx context.Context, ids []string) ([]*models.FeeChallan, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.queryChallans(ctx,
		"SELECT "+challanColumns+" FROM fee_challans WHERE id IN ("+placeholders(len(ids))+") "+fifoOrder,
		args...,
	)
}

// ListByStudent retrieves all of a student's challans, oldest period first.
func (s *SQLiteStore) ListByStudent(ctx context.Context, studentID string) ([]*models.FeeChallan, error) {
	return s.queryChallans(ctx,
		"SELECT "+challanColumns+" FROM fee_challans WHERE student_id = ? "+fifoOrder,
		studentID,
	)
}

// Insert persists a new challan.
func (s *SQLiteStore) Insert(ctx context.Context, c *models.FeeChallan) error {
	idx, ok := calculator.MonthIndex(c.Month)
	if !ok {
		return fmt.Errorf("%w: unknown month %q", storage.ErrInvariant, c.Month)
	}
	if err := c.CheckInvariants(); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrInvariant, err)
	}

	// Generate IDs if not set
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

	var paidDate any
	if c.PaidDate != nil {
		paidDate = c.PaidDate.UnixNano()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fee_challans (id, student_id, month, month_index, year, tuition_fee, exam_fee, misc_fee,
			arrears, discount, total_amount, remaining_balance, status, due_date, generated_date, paid_date,
			sent_to_whatsapp, created_at, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.StudentID, c.Month, idx, c.Year, c.TuitionFee, c.ExamFee, c.MiscFee,
		c.Arrears, c.Discount, c.TotalAmount, c.RemainingBalance, string(c.Status),
		c.DueDate.Format(models.DateLayout), c.GeneratedDate.UnixNano(), paidDate,
		c.SentToWhatsApp, c.CreatedAt.UnixNano(), c.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to insert challan: %w", classify(err))
	}
	return nil
}

// UpdateConditional applies every update in one transaction, or none of them.
func (s *SQLiteStore) UpdateConditional(ctx context.Context, updates ...models.ConditionalUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer tx.Rollback()

	for _, u := range updates {
		row := tx.QueryRowContext(ctx, "SELECT "+challanColumns+" FROM fee_challans WHERE id = ?", u.ChallanID)
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

		var paidDate any
		if next.PaidDate != nil {
			paidDate = next.PaidDate.UnixNano()
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE fee_challans
			 SET misc_fee = ?, total_amount = ?, remaining_balance = ?, status = ?, paid_date = ?, version = ?
			 WHERE id = ? AND version = ?`,
			next.MiscFee, next.TotalAmount, next.RemainingBalance, string(next.Status), paidDate, next.Version,
			u.ChallanID, u.ExpectedVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to update challan: %w", classify(err))
		}
		if n, err := res.RowsAffected(); err != nil || n != 1 {
			return fmt.Errorf("%w: challan %s changed during update", storage.ErrVersionConflict, u.ChallanID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}
	return nil
}

// MarkOverdue flips pending challans due before asOf to overdue.
func (s *SQLiteStore) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE fee_challans SET status = 'overdue', version = version + 1
		 WHERE status = 'pending' AND due_date < ?`,
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
func (s *SQLiteStore) MarkSent(ctx context.Context, challanID string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE fee_challans SET sent_to_whatsapp = 1 WHERE id = ?", challanID)
	if err != nil {
		return fmt.Errorf("failed to mark challan sent: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: challan %s", storage.ErrNotFound, challanID)
	}
	return nil
}

// Delete removes a challan by ID.
func (s *SQLiteStore) Delete(ctx context.Context, challanID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM fee_challans WHERE id = ?", challanID)
	if err != nil {
		return fmt.Errorf("failed to delete challan: %w", classify(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: challan %s", storage.ErrNotFound, challanID)
	}
	return nil
}
