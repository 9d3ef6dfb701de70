// Package rpc exposes the fee ledger as a Connect service with JSON bodies.
package rpc

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/feeledger/internal/cache"
	"github.com/mmynk/feeledger/internal/models"
	"github.com/mmynk/feeledger/internal/service"
)

// FeeServiceName is the fully-qualified name of the fee service.
const FeeServiceName = "feeledger.v1.FeeService"

// Procedure paths of the fee service.
const (
	GenerateChallansProcedure = "/" + FeeServiceName + "/GenerateChallans"
	AllocatePaymentProcedure  = "/" + FeeServiceName + "/AllocatePayment"
	SweepOverdueProcedure     = "/" + FeeServiceName + "/SweepOverdue"
	GetStatementProcedure     = "/" + FeeServiceName + "/GetStatement"
	DeleteChallanProcedure    = "/" + FeeServiceName + "/DeleteChallan"
	MarkChallanSentProcedure  = "/" + FeeServiceName + "/MarkChallanSent"
	UpsertStudentProcedure    = "/" + FeeServiceName + "/UpsertStudent"
)

// FeeService implements the fee service handlers on top of a Ledger.
type FeeService struct {
	ledger     *service.Ledger
	statements *cache.StatementCache
	now        func() time.Time
}

// NewFeeService creates a FeeService. statements may be nil, in which case
// every statement is read from storage.
func NewFeeService(ledger *service.Ledger, statements *cache.StatementCache) *FeeService {
	return &FeeService{ledger: ledger, statements: statements, now: time.Now}
}

// NewFeeServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewFeeServiceHandler(svc *FeeService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	handlers := map[string]http.Handler{
		GenerateChallansProcedure: connect.NewUnaryHandler(GenerateChallansProcedure, svc.GenerateChallans, opts...),
		AllocatePaymentProcedure:  connect.NewUnaryHandler(AllocatePaymentProcedure, svc.AllocatePayment, opts...),
		SweepOverdueProcedure:     connect.NewUnaryHandler(SweepOverdueProcedure, svc.SweepOverdue, opts...),
		GetStatementProcedure:     connect.NewUnaryHandler(GetStatementProcedure, svc.GetStatement, opts...),
		DeleteChallanProcedure:    connect.NewUnaryHandler(DeleteChallanProcedure, svc.DeleteChallan, opts...),
		MarkChallanSentProcedure:  connect.NewUnaryHandler(MarkChallanSentProcedure, svc.MarkChallanSent, opts...),
		UpsertStudentProcedure:    connect.NewUnaryHandler(UpsertStudentProcedure, svc.UpsertStudent, opts...),
	}
	return "/" + FeeServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// GenerateChallans creates a batch of challans. Per-item failures are reported
// in the response, not as an RPC error.
func (s *FeeService) GenerateChallans(ctx context.Context, req *connect.Request[GenerateChallansRequest]) (*connect.Response[GenerateChallansResponse], error) {
	reqs, err := toGenerateRequests(req.Msg.Items)
	if err != nil {
		return nil, connectError(err)
	}

	result := s.ledger.Generate(ctx, reqs)

	resp := &GenerateChallansResponse{
		Created: toChallans(result.Created),
		Errors:  make([]*BatchError, len(result.Errors)),
	}
	for i, e := range result.Errors {
		resp.Errors[i] = &BatchError{
			Index:     e.Index,
			StudentID: e.StudentID,
			Month:     e.Month,
			Year:      e.Year,
			Code:      connectError(e.Err).Code().String(),
			Reason:    e.Reason,
		}
	}
	return connect.NewResponse(resp), nil
}

// AllocatePayment settles a payment against the student's challans, oldest first.
func (s *FeeService) AllocatePayment(ctx context.Context, req *connect.Request[AllocatePaymentRequest]) (*connect.Response[AllocatePaymentResponse], error) {
	result, err := s.ledger.Allocate(ctx, service.AllocationRequest{
		StudentID:  req.Msg.StudentID,
		ChallanIDs: req.Msg.ChallanIDs,
		Amount:     req.Msg.Amount,
		LateFees:   req.Msg.LateFees,
	})
	if err != nil {
		slog.Debug("AllocatePayment rejected", "student_id", req.Msg.StudentID, "error", err)
		return nil, connectError(err)
	}

	return connect.NewResponse(&AllocatePaymentResponse{
		StudentID:              result.StudentID,
		Allocations:            toAllocations(result.Allocations),
		TotalOutstandingBefore: result.TotalOutstandingBefore,
		RemainingUnapplied:     result.RemainingUnapplied,
		Attempts:               result.Attempts,
	}), nil
}

// SweepOverdue runs the overdue sweep on demand.
func (s *FeeService) SweepOverdue(ctx context.Context, req *connect.Request[SweepOverdueRequest]) (*connect.Response[SweepOverdueResponse], error) {
	asOf := s.now().UTC()
	if strings.TrimSpace(req.Msg.AsOf) != "" {
		t, err := parseDate("as_of", req.Msg.AsOf)
		if err != nil {
			return nil, connectError(err)
		}
		asOf = t
	}

	n, err := s.ledger.SweepOverdue(ctx, asOf)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&SweepOverdueResponse{
		AsOf:    asOf.Format(models.DateLayout),
		Updated: n,
	}), nil
}

// GetStatement returns a student's challans and outstanding total.
func (s *FeeService) GetStatement(ctx context.Context, req *connect.Request[GetStatementRequest]) (*connect.Response[GetStatementResponse], error) {
	var (
		stmt *models.Statement
		err  error
	)
	if s.statements != nil && req.Msg.StudentID != "" {
		stmt, err = s.statements.Get(ctx, req.Msg.StudentID, s.ledger.Statement)
	} else {
		stmt, err = s.ledger.Statement(ctx, req.Msg.StudentID)
	}
	if err != nil {
		return nil, connectError(err)
	}

	return connect.NewResponse(&GetStatementResponse{
		StudentID:   stmt.StudentID,
		Challans:    toChallans(stmt.Challans),
		Outstanding: stmt.Outstanding,
	}), nil
}

// DeleteChallan removes a challan.
func (s *FeeService) DeleteChallan(ctx context.Context, req *connect.Request[DeleteChallanRequest]) (*connect.Response[DeleteChallanResponse], error) {
	if req.Msg.ChallanID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errChallanIDRequired)
	}
	if err := s.ledger.DeleteChallan(ctx, req.Msg.ChallanID); err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&DeleteChallanResponse{}), nil
}

// MarkChallanSent records that the challan notice went out.
func (s *FeeService) MarkChallanSent(ctx context.Context, req *connect.Request[MarkChallanSentRequest]) (*connect.Response[MarkChallanSentResponse], error) {
	if req.Msg.ChallanID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errChallanIDRequired)
	}
	if err := s.ledger.MarkChallanSent(ctx, req.Msg.ChallanID); err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&MarkChallanSentResponse{}), nil
}

// UpsertStudent registers or updates a student's directory record.
func (s *FeeService) UpsertStudent(ctx context.Context, req *connect.Request[UpsertStudentRequest]) (*connect.Response[UpsertStudentResponse], error) {
	if req.Msg.Student == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, errStudentRequired)
	}
	student := &models.Student{
		ID:       req.Msg.Student.ID,
		Class:    req.Msg.Student.Class,
		Section:  req.Msg.Student.Section,
		Discount: req.Msg.Student.Discount,
	}
	if err := s.ledger.UpsertStudent(ctx, student); err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&UpsertStudentResponse{Student: toStudent(student)}), nil
}
