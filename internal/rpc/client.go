package rpc

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// FeeServiceClient is a client for the fee service.
type FeeServiceClient struct {
	generateChallans *connect.Client[GenerateChallansRequest, GenerateChallansResponse]
	allocatePayment  *connect.Client[AllocatePaymentRequest, AllocatePaymentResponse]
	sweepOverdue     *connect.Client[SweepOverdueRequest, SweepOverdueResponse]
	getStatement     *connect.Client[GetStatementRequest, GetStatementResponse]
	deleteChallan    *connect.Client[DeleteChallanRequest, DeleteChallanResponse]
	markChallanSent  *connect.Client[MarkChallanSentRequest, MarkChallanSentResponse]
	upsertStudent    *connect.Client[UpsertStudentRequest, UpsertStudentResponse]
}

// NewFeeServiceClient constructs a client for the fee service at baseURL
// (for example, http://localhost:8080).
func NewFeeServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *FeeServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &FeeServiceClient{
		generateChallans: connect.NewClient[GenerateChallansRequest, GenerateChallansResponse](
			httpClient, baseURL+GenerateChallansProcedure, opts...),
		allocatePayment: connect.NewClient[AllocatePaymentRequest, AllocatePaymentResponse](
			httpClient, baseURL+AllocatePaymentProcedure, opts...),
		sweepOverdue: connect.NewClient[SweepOverdueRequest, SweepOverdueResponse](
			httpClient, baseURL+SweepOverdueProcedure, opts...),
		getStatement: connect.NewClient[GetStatementRequest, GetStatementResponse](
			httpClient, baseURL+GetStatementProcedure, opts...),
		deleteChallan: connect.NewClient[DeleteChallanRequest, DeleteChallanResponse](
			httpClient, baseURL+DeleteChallanProcedure, opts...),
		markChallanSent: connect.NewClient[MarkChallanSentRequest, MarkChallanSentResponse](
			httpClient, baseURL+MarkChallanSentProcedure, opts...),
		upsertStudent: connect.NewClient[UpsertStudentRequest, UpsertStudentResponse](
			httpClient, baseURL+UpsertStudentProcedure, opts...),
	}
}

func (c *FeeServiceClient) GenerateChallans(ctx context.Context, req *connect.Request[GenerateChallansRequest]) (*connect.Response[GenerateChallansResponse], error) {
	return c.generateChallans.CallUnary(ctx, req)
}

func (c *FeeServiceClient) AllocatePayment(ctx context.Context, req *connect.Request[AllocatePaymentRequest]) (*connect.Response[AllocatePaymentResponse], error) {
	return c.allocatePayment.CallUnary(ctx, req)
}

func (c *FeeServiceClient) SweepOverdue(ctx context.Context, req *connect.Request[SweepOverdueRequest]) (*connect.Response[SweepOverdueResponse], error) {
	return c.sweepOverdue.CallUnary(ctx, req)
}

func (c *FeeServiceClient) GetStatement(ctx context.Context, req *connect.Request[GetStatementRequest]) (*connect.Response[GetStatementResponse], error) {
	return c.getStatement.CallUnary(ctx, req)
}

func (c *FeeServiceClient) DeleteChallan(ctx context.Context, req *connect.Request[DeleteChallanRequest]) (*connect.Response[DeleteChallanResponse], error) {
	return c.deleteChallan.CallUnary(ctx, req)
}

func (c *FeeServiceClient) MarkChallanSent(ctx context.Context, req *connect.Request[MarkChallanSentRequest]) (*connect.Response[MarkChallanSentResponse], error) {
	return c.markChallanSent.CallUnary(ctx, req)
}

func (c *FeeServiceClient) UpsertStudent(ctx context.Context, req *connect.Request[UpsertStudentRequest]) (*connect.Response[UpsertStudentResponse], error) {
	return c.upsertStudent.CallUnary(ctx, req)
}
