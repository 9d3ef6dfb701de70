package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/feeledger/internal/cache"
	"github.com/mmynk/feeledger/internal/middleware"
	"github.com/mmynk/feeledger/internal/service"
	"github.com/mmynk/feeledger/internal/storage/sqlite"
)

// setupTestServer creates a test server backed by a temp SQLite database.
func setupTestServer(t *testing.T) (*FeeServiceClient, *cache.StatementCache) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "feeledger-rpc-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	statements, err := cache.NewStatementCache(16)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	ledger := service.NewLedger(store, service.WithCacheInvalidator(statements))

	path, handler := NewFeeServiceHandler(NewFeeService(ledger, statements),
		connect.WithInterceptors(middleware.LoggingInterceptor()))
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return NewFeeServiceClient(http.DefaultClient, server.URL), statements
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func upsertStudent(t *testing.T, client *FeeServiceClient, id, discount string) {
	t.Helper()
	_, err := client.UpsertStudent(context.Background(), connect.NewRequest(&UpsertStudentRequest{
		Student: &Student{ID: id, Class: "7", Section: "B", Discount: dec(discount)},
	}))
	if err != nil {
		t.Fatalf("UpsertStudent failed: %v", err)
	}
}

func challanRequest(studentID, month string, year int, tuition string) *ChallanRequest {
	return &ChallanRequest{
		StudentID:  studentID,
		Month:      month,
		Year:       year,
		TuitionFee: dec(tuition),
		DueDate:    fmt.Sprintf("%d-01-10", year),
	}
}

func generate(t *testing.T, client *FeeServiceClient, items ...*ChallanRequest) *GenerateChallansResponse {
	t.Helper()
	resp, err := client.GenerateChallans(context.Background(), connect.NewRequest(&GenerateChallansRequest{Items: items}))
	if err != nil {
		t.Fatalf("GenerateChallans failed: %v", err)
	}
	return resp.Msg
}

func TestGenerateChallans(t *testing.T) {
	client, _ := setupTestServer(t)
	upsertStudent(t, client, "stu-1", "50")

	resp := generate(t, client,
		challanRequest("stu-1", "January", 2024, "1000"),
		challanRequest("stu-1", "January", 2024, "1000"),
		challanRequest("ghost", "January", 2024, "1000"),
	)

	if len(resp.Created) != 1 {
		t.Fatalf("expected 1 created challan, got %d", len(resp.Created))
	}
	c := resp.Created[0]
	if !c.TotalAmount.Equal(dec("950")) {
		t.Errorf("total = %s, want 950", c.TotalAmount)
	}
	if c.Status != "pending" {
		t.Errorf("status = %q, want pending", c.Status)
	}
	if c.DueDate != "2024-01-10" {
		t.Errorf("due date = %q, want 2024-01-10", c.DueDate)
	}

	if len(resp.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(resp.Errors))
	}
	if resp.Errors[0].Index != 1 || resp.Errors[0].Code != "aborted" {
		t.Errorf("duplicate error = %+v, want index 1 code aborted", resp.Errors[0])
	}
	if resp.Errors[1].Index != 2 || resp.Errors[1].Code != "not_found" {
		t.Errorf("unknown student error = %+v, want index 2 code not_found", resp.Errors[1])
	}
}

func TestGenerateChallans_BadDueDate(t *testing.T) {
	client, _ := setupTestServer(t)

	item := challanRequest("stu-1", "January", 2024, "1000")
	item.DueDate = "10/01/2024"

	_, err := client.GenerateChallans(context.Background(), connect.NewRequest(&GenerateChallansRequest{
		Items: []*ChallanRequest{item},
	}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestAllocatePayment(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()
	upsertStudent(t, client, "stu-1", "0")

	created := generate(t, client, challanRequest("stu-1", "January", 2024, "1000")).Created
	jan := created[0]

	resp, err := client.AllocatePayment(ctx, connect.NewRequest(&AllocatePaymentRequest{
		StudentID:  "stu-1",
		ChallanIDs: []string{jan.ID},
		Amount:     dec("600"),
		LateFees:   map[string]decimal.Decimal{jan.ID: dec("50")},
	}))
	if err != nil {
		t.Fatalf("AllocatePayment failed: %v", err)
	}

	if !resp.Msg.TotalOutstandingBefore.Equal(dec("1050")) {
		t.Errorf("outstanding before = %s, want 1050", resp.Msg.TotalOutstandingBefore)
	}
	if len(resp.Msg.Allocations) != 1 {
		t.Fatalf("expected 1 allocation, got %d", len(resp.Msg.Allocations))
	}
	a := resp.Msg.Allocations[0]
	if !a.Applied.Equal(dec("600")) || !a.BalanceAfter.Equal(dec("450")) || a.Status != "pending" {
		t.Errorf("allocation = %+v", a)
	}
	if !resp.Msg.RemainingUnapplied.IsZero() {
		t.Errorf("remaining unapplied = %s, want 0", resp.Msg.RemainingUnapplied)
	}
}

func TestAllocatePayment_Errors(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()
	upsertStudent(t, client, "stu-1", "0")
	jan := generate(t, client, challanRequest("stu-1", "January", 2024, "1500")).Created[0]

	t.Run("Overpayment", func(t *testing.T) {
		_, err := client.AllocatePayment(ctx, connect.NewRequest(&AllocatePaymentRequest{
			StudentID:  "stu-1",
			ChallanIDs: []string{jan.ID},
			Amount:     dec("1501"),
		}))
		var connectErr *connect.Error
		if !errors.As(err, &connectErr) {
			t.Fatalf("expected connect error, got %v", err)
		}
		if connectErr.Code() != connect.CodeFailedPrecondition {
			t.Errorf("code = %v, want FailedPrecondition", connectErr.Code())
		}
		if got := connectErr.Meta().Get(TotalOutstandingHeader); got != "1500.00" {
			t.Errorf("%s = %q, want 1500.00", TotalOutstandingHeader, got)
		}
	})

	tests := []struct {
		name string
		req  *AllocatePaymentRequest
		want connect.Code
	}{
		{
			name: "Zero amount",
			req:  &AllocatePaymentRequest{StudentID: "stu-1", ChallanIDs: []string{jan.ID}},
			want: connect.CodeInvalidArgument,
		},
		{
			name: "Unknown challan",
			req:  &AllocatePaymentRequest{StudentID: "stu-1", ChallanIDs: []string{"missing"}, Amount: dec("10")},
			want: connect.CodeNotFound,
		},
		{
			name: "Another student's challan",
			req:  &AllocatePaymentRequest{StudentID: "stu-2", ChallanIDs: []string{jan.ID}, Amount: dec("10")},
			want: connect.CodeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.AllocatePayment(ctx, connect.NewRequest(tt.req))
			if connect.CodeOf(err) != tt.want {
				t.Errorf("code = %v, want %v (err: %v)", connect.CodeOf(err), tt.want, err)
			}
		})
	}
}

func TestGetStatement_InvalidatedAfterPayment(t *testing.T) {
	client, statements := setupTestServer(t)
	ctx := context.Background()
	upsertStudent(t, client, "stu-1", "0")
	jan := generate(t, client, challanRequest("stu-1", "January", 2024, "1000")).Created[0]

	get := func() *GetStatementResponse {
		t.Helper()
		resp, err := client.GetStatement(ctx, connect.NewRequest(&GetStatementRequest{StudentID: "stu-1"}))
		if err != nil {
			t.Fatalf("GetStatement failed: %v", err)
		}
		return resp.Msg
	}

	if got := get().Outstanding; !got.Equal(dec("1000")) {
		t.Errorf("outstanding = %s, want 1000", got)
	}
	if statements.Len() != 1 {
		t.Errorf("expected statement to be cached, cache holds %d", statements.Len())
	}

	_, err := client.AllocatePayment(ctx, connect.NewRequest(&AllocatePaymentRequest{
		StudentID:  "stu-1",
		ChallanIDs: []string{jan.ID},
		Amount:     dec("1000"),
	}))
	if err != nil {
		t.Fatalf("AllocatePayment failed: %v", err)
	}
	if statements.Len() != 0 {
		t.Errorf("expected payment to invalidate the statement, cache holds %d", statements.Len())
	}

	stmt := get()
	if !stmt.Outstanding.IsZero() {
		t.Errorf("outstanding = %s, want 0", stmt.Outstanding)
	}
	if len(stmt.Challans) != 1 || stmt.Challans[0].Status != "paid" || stmt.Challans[0].PaidDate == nil {
		t.Errorf("challans = %+v, want one paid challan", stmt.Challans)
	}
}

func TestSweepOverdue(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()
	upsertStudent(t, client, "stu-1", "0")
	generate(t, client, challanRequest("stu-1", "January", 2024, "1000"))

	for i, want := range []int64{1, 0} {
		resp, err := client.SweepOverdue(ctx, connect.NewRequest(&SweepOverdueRequest{AsOf: "2024-02-01"}))
		if err != nil {
			t.Fatalf("SweepOverdue failed: %v", err)
		}
		if resp.Msg.Updated != want {
			t.Errorf("run %d: updated = %d, want %d", i+1, resp.Msg.Updated, want)
		}
		if resp.Msg.AsOf != "2024-02-01" {
			t.Errorf("as_of = %q", resp.Msg.AsOf)
		}
	}

	_, err := client.SweepOverdue(ctx, connect.NewRequest(&SweepOverdueRequest{AsOf: "yesterday"}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestDeleteAndMarkSent(t *testing.T) {
	client, _ := setupTestServer(t)
	ctx := context.Background()
	upsertStudent(t, client, "stu-1", "0")
	jan := generate(t, client, challanRequest("stu-1", "January", 2024, "1000")).Created[0]

	if _, err := client.MarkChallanSent(ctx, connect.NewRequest(&MarkChallanSentRequest{ChallanID: jan.ID})); err != nil {
		t.Fatalf("MarkChallanSent failed: %v", err)
	}
	stmt, err := client.GetStatement(ctx, connect.NewRequest(&GetStatementRequest{StudentID: "stu-1"}))
	if err != nil {
		t.Fatalf("GetStatement failed: %v", err)
	}
	if !stmt.Msg.Challans[0].SentToWhatsApp {
		t.Error("expected challan to be marked sent")
	}

	if _, err := client.DeleteChallan(ctx, connect.NewRequest(&DeleteChallanRequest{ChallanID: jan.ID})); err != nil {
		t.Fatalf("DeleteChallan failed: %v", err)
	}
	_, err = client.DeleteChallan(ctx, connect.NewRequest(&DeleteChallanRequest{ChallanID: jan.ID}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("expected NotFound on second delete, got %v", err)
	}
	_, err = client.MarkChallanSent(ctx, connect.NewRequest(&MarkChallanSentRequest{}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected InvalidArgument for empty id, got %v", err)
	}

	stmt, err = client.GetStatement(ctx, connect.NewRequest(&GetStatementRequest{StudentID: "stu-1"}))
	if err != nil {
		t.Fatalf("GetStatement failed: %v", err)
	}
	if len(stmt.Msg.Challans) != 0 {
		t.Errorf("expected empty statement after delete, got %d challans", len(stmt.Msg.Challans))
	}
}

func TestUpsertStudent_Validation(t *testing.T) {
	client, _ := setupTestServer(t)

	_, err := client.UpsertStudent(context.Background(), connect.NewRequest(&UpsertStudentRequest{
		Student: &Student{ID: "stu-1", Discount: dec("-5")},
	}))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want connect.Code
	}{
		{"Validation", service.ErrInvalidAmount, connect.CodeInvalidArgument},
		{"Not found", service.ErrNoEligibleChallans, connect.CodeNotFound},
		{"Conflict", fmt.Errorf("insert: %w", service.ErrConflict), connect.CodeAborted},
		{"Overpayment", &service.OverpaymentError{Amount: dec("2"), TotalOutstanding: dec("1")}, connect.CodeFailedPrecondition},
		{"Unavailable", service.ErrStorageUnavailable, connect.CodeUnavailable},
		{"Unknown", errors.New("boom"), connect.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := connectError(tt.err).Code(); got != tt.want {
				t.Errorf("code = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodecEmptyBody(t *testing.T) {
	var req SweepOverdueRequest
	if err := (Codec{}).Unmarshal(nil, &req); err != nil {
		t.Fatalf("Unmarshal of empty body failed: %v", err)
	}
	data, err := (Codec{}).Marshal(&SweepOverdueResponse{AsOf: "2024-02-01", Updated: 3})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if got, want := string(data), `{"as_of":"2024-02-01","updated":3}`; got != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}
}
