package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/feeledger/internal/models"
)

// GetDiscount returns the student's discount, or zero when the student has none.
func (s *SQLiteStore) GetDiscount(ctx context.Context, studentID string) (decimal.Decimal, error) {
	var discount decimal.Decimal
	err := s.db.QueryRowContext(ctx, "SELECT discount FROM students WHERE id = ?", studentID).Scan(&discount)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get discount: %w", classify(err))
	}
	return discount, nil
}

// StudentExists reports whether the student is in the directory.
func (s *SQLiteStore) StudentExists(ctx context.Context, studentID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM students WHERE id = ?", studentID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check student existence: %w", classify(err))
	}
	return true, nil
}

// UpsertStudent creates or replaces a directory record.
func (s *SQLiteStore) UpsertStudent(ctx context.Context, student *models.Student) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO students (id, class, section, discount) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET class = excluded.class, section = excluded.section, discount = excluded.discount`,
		student.ID, student.Class, student.Section, student.Discount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert student: %w", classify(err))
	}
	return nil
}
