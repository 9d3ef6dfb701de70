// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/feeledger/internal/models"
)

// Errors every Store implementation reports, wrapped with context.
var (
	// ErrNotFound means the referenced challan or student does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrDuplicatePeriod means a challan for the same (student, month, year) exists.
	// Stores raise it from their unique index, not from a prior lookup.
	ErrDuplicatePeriod = errors.New("storage: challan already exists for period")

	// ErrVersionConflict means a conditional update observed a different version.
	ErrVersionConflict = errors.New("storage: version conflict")

	// ErrInvariant means a write would leave a challan inconsistent.
	ErrInvariant = errors.New("storage: challan invariant violated")

	// ErrUnavailable is a transient I/O failure; the operation may be retried.
	ErrUnavailable = errors.New("storage: unavailable")
)

// ChallanStore defines the storage operations on fee challans.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the ledger logic.
type ChallanStore interface {
	// FindByStudentAndPeriod returns the student's challan for month/year.
	// Returns ErrNotFound if there is none.
	FindByStudentAndPeriod(ctx context.Context, studentID, month string, year int) (*models.FeeChallan, error)

	// FindUnsettledBeforePeriod returns the student's pending and overdue challans
	// whose period is strictly before (year, monthIndex).
	FindUnsettledBeforePeriod(ctx context.Context, studentID string, year, monthIndex int) ([]*models.FeeChallan, error)

	// FindByIDs returns the challans with the given IDs. Unknown IDs are skipped.
	FindByIDs(ctx context.Context, ids []string) ([]*models.FeeChallan, error)

	// ListByStudent returns every challan of the student.
	ListByStudent(ctx context.Context, studentID string) ([]*models.FeeChallan, error)

	// Insert persists a new challan. The ID, CreatedAt and Version fields are
	// populated by the store. Returns ErrDuplicatePeriod on a (student, month, year) clash.
	Insert(ctx context.Context, challan *models.FeeChallan) error

	// UpdateConditional applies all updates in one transaction. If any challan's
	// stored version differs from ExpectedVersion nothing is written and
	// ErrVersionConflict is returned.
	UpdateConditional(ctx context.Context, updates ...models.ConditionalUpdate) error

	// MarkOverdue moves pending challans due strictly before asOf to overdue and
	// returns how many changed.
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)

	// MarkSent flags a challan's notice as sent.
	MarkSent(ctx context.Context, challanID string) error

	// Delete removes a challan unconditionally.
	Delete(ctx context.Context, challanID string) error
}

// Directory is the read side of the student directory the ledger consults.
type Directory interface {
	// GetDiscount returns the student's discount, or zero if none is recorded.
	GetDiscount(ctx context.Context, studentID string) (decimal.Decimal, error)

	// StudentExists reports whether the student is known.
	StudentExists(ctx context.Context, studentID string) (bool, error)

	// UpsertStudent creates or replaces a directory record.
	UpsertStudent(ctx context.Context, student *models.Student) error
}

// Store is everything a backend provides.
type Store interface {
	ChallanStore
	Directory

	// Close releases any resources held by the store.
	Close() error
}
