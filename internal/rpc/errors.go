package rpc

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/feeledger/internal/service"
)

// TotalOutstandingHeader carries the outstanding balance a rejected payment exceeded.
const TotalOutstandingHeader = "Fee-Total-Outstanding"

// connectError maps a ledger error onto a connect status code.
func connectError(err error) *connect.Error {
	var overpayment *service.OverpaymentError
	switch {
	case errors.As(err, &overpayment):
		cerr := connect.NewError(connect.CodeFailedPrecondition, err)
		cerr.Meta().Set(TotalOutstandingHeader, overpayment.TotalOutstanding.StringFixed(2))
		return cerr
	case errors.Is(err, service.ErrValidation):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, service.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, service.ErrConflict):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, service.ErrStorageUnavailable):
		return connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

var (
	errChallanIDRequired = errors.New("challan_id is required")
	errStudentRequired   = errors.New("student is required")
)
