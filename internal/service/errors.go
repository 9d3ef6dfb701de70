package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/feeledger/internal/storage"
)

// Error taxonomy of the ledger. Callers match with errors.Is.
var (
	// ErrValidation is malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is an unknown student or challan reference.
	ErrNotFound = errors.New("not found")

	// ErrConflict is a uniqueness violation or a lost update.
	ErrConflict = errors.New("conflict")

	// ErrOverpaymentRejected is a payment larger than what the selected challans owe.
	ErrOverpaymentRejected = errors.New("payment exceeds outstanding balance")

	// ErrStorageUnavailable is transient; the operation may be retried.
	ErrStorageUnavailable = errors.New("storage unavailable")

	ErrInvalidAmount      = fmt.Errorf("%w: payment amount must be positive", ErrValidation)
	ErrNoEligibleChallans = fmt.Errorf("%w: no eligible challans", ErrNotFound)
)

// OverpaymentError reports the outstanding total a rejected payment exceeded.
type OverpaymentError struct {
	Amount           decimal.Decimal
	TotalOutstanding decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment %s exceeds outstanding balance %s",
		e.Amount.StringFixed(2), e.TotalOutstanding.StringFixed(2))
}

// Is makes errors.Is(err, ErrOverpaymentRejected) match.
func (e *OverpaymentError) Is(target error) bool {
	return target == ErrOverpaymentRejected
}

// mapStorageError translates storage sentinels into the ledger taxonomy,
// keeping the original error in the chain.
func mapStorageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, storage.ErrDuplicatePeriod), errors.Is(err, storage.ErrVersionConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, storage.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return err
}
