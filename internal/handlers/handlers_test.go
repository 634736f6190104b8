package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/dto"
	"github.com/SscSPs/fulfillment_coordinator/internal/handlers"
	"github.com/SscSPs/fulfillment_coordinator/internal/middleware"
	"github.com/SscSPs/fulfillment_coordinator/internal/platform/config"
	"github.com/SscSPs/fulfillment_coordinator/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const (
	testSecret = "test-secret-key-that-is-long-enough"
	testIssuer = "fulfillment-test"
)

type HandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	coordinator *MockCoordinator
}

func (suite *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.coordinator = new(MockCoordinator)

	cfg := &config.Config{
		JWTSecret:          testSecret,
		JWTIssuer:          testIssuer,
		IsProduction:       true,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}
	services := &portssvc.ServiceContainer{Coordinator: suite.coordinator}
	err := handlers.RegisterRoutes(suite.router, cfg, services, &utils.PosthogClientWrapper{})
	suite.Require().NoError(err)
}

func (suite *HandlerTestSuite) token(actor domain.Actor) string {
	tok, err := middleware.IssueToken(testSecret, testIssuer, actor.UserID, actor.Role, time.Hour)
	suite.Require().NoError(err)
	return tok
}

func (suite *HandlerTestSuite) do(method, path string, actor *domain.Actor, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		req.Header.Set("Authorization", "Bearer "+suite.token(*actor))
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlerTestSuite) errorBody(w *httptest.ResponseRecorder) string {
	var body map[string]string
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func sampleOrder(buyerID string) *domain.Order {
	now := time.Now().UTC()
	return &domain.Order{
		OrderID:       uuid.NewString(),
		BuyerID:       buyerID,
		ShopID:        "shop-1",
		ZoneID:        "zone-1",
		Kind:          domain.KindProduct,
		Status:        domain.OrderPlaced,
		PaymentStatus: domain.PaymentPending,
		Breakdown: domain.Breakdown{
			Subtotal:    decimal.RequireFromString("100.00"),
			DeliveryFee: decimal.RequireFromString("20.00"),
			RiderShare:  decimal.RequireFromString("15.00"),
			PlatformFee: decimal.RequireFromString("5.00"),
			Total:       decimal.RequireFromString("120.00"),
		},
		AuditFields: domain.AuditFields{CreatedAt: now, LastUpdatedAt: now},
	}
}

// --- Test Cases ---

func (suite *HandlerTestSuite) TestHealthAndHome() {
	w := suite.do(http.MethodGet, "/health", nil, nil)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/", nil, nil)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *HandlerTestSuite) TestAuth_MissingAndInvalidToken() {
	w := suite.do(http.MethodGet, "/api/v1/accounts/me", nil, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusUnauthorized, w.Code)

	suite.coordinator.AssertNotCalled(suite.T(), "GetAccount", mock.Anything, mock.Anything)
}

func (suite *HandlerTestSuite) TestAuth_WrongIssuer() {
	tok, err := middleware.IssueToken(testSecret, "someone-else", "u1", domain.RoleBuyer, time.Hour)
	suite.Require().NoError(err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlerTestSuite) TestPlaceOrder_Success() {
	buyer := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleBuyer}
	order := sampleOrder(buyer.UserID)
	req := dto.PlaceOrderRequest{
		ShopID: "shop-1",
		ZoneID: "zone-1",
		Kind:   domain.KindProduct,
		Items:  []dto.PlaceOrderItem{{ProductID: "p1", Quantity: 2}},
	}

	suite.coordinator.On("PlaceOrder", mock.Anything, buyer, req).Return(order, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/orders", &buyer, req)
	suite.Equal(http.StatusCreated, w.Code)

	var res dto.OrderResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &res))
	suite.Equal(order.OrderID, res.OrderID)
	suite.True(order.Total.Equal(res.Total))
	suite.coordinator.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestPlaceOrder_RejectsInvalidBody() {
	buyer := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleBuyer}
	w := suite.do(http.MethodPost, "/api/v1/orders", &buyer, map[string]any{
		"shopID": "shop-1",
		"zoneID": "zone-1",
		"kind":   "subscription",
	})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPost, "/api/v1/orders", &buyer, map[string]any{
		"shopID": "shop-1",
		"zoneID": "zone-1",
		"kind":   "product",
		"items":  []map[string]any{{"productID": "p1", "quantity": 0}},
	})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.coordinator.AssertNotCalled(suite.T(), "PlaceOrder", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *HandlerTestSuite) TestErrorMapping() {
	buyer := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleBuyer}
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", fmt.Errorf("order o1: %w", apperrors.ErrNotFound), http.StatusNotFound},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden},
		{"conflict", fmt.Errorf("%w: order is paused", apperrors.ErrConflict), http.StatusConflict},
		{"duplicate", apperrors.ErrDuplicate, http.StatusConflict},
		{"validation", apperrors.ErrValidation, http.StatusBadRequest},
		{"insufficient funds", apperrors.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{"storage", apperrors.NewAppError(500, "failed to lock order", fmt.Errorf("connection reset")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		suite.Run(tc.name, func() {
			orderID := uuid.NewString()
			suite.coordinator.On("GetOrder", mock.Anything, buyer, orderID).Return(nil, tc.err).Once()

			w := suite.do(http.MethodGet, "/api/v1/orders/"+orderID, &buyer, nil)
			suite.Equal(tc.status, w.Code)
			if tc.status == http.StatusInternalServerError {
				suite.Equal("Failed to get order", suite.errorBody(w))
			}
		})
	}
}

func (suite *HandlerTestSuite) TestConfirmPayment_RequiresSystemOrAdmin() {
	buyer := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleBuyer}
	body := dto.PaymentConfirmationRequest{ExternalReference: "pay-1", Amount: decimal.RequireFromString("120.00")}

	w := suite.do(http.MethodPost, "/api/v1/orders/o1/payment-confirmations", &buyer, body)
	suite.Equal(http.StatusForbidden, w.Code)
	suite.coordinator.AssertNotCalled(suite.T(), "ConfirmPayment", mock.Anything, mock.Anything, mock.Anything)

	order := sampleOrder(buyer.UserID)
	order.Status = domain.OrderPaid
	order.PaymentStatus = domain.PaymentPaid
	suite.coordinator.On("ConfirmPayment", mock.Anything, order.OrderID, mock.MatchedBy(func(r dto.PaymentConfirmationRequest) bool {
		return r.ExternalReference == "pay-1" && r.Amount.Equal(decimal.RequireFromString("120.00"))
	})).Return(order, nil).Once()

	system := domain.SystemActor
	w = suite.do(http.MethodPost, "/api/v1/orders/"+order.OrderID+"/payment-confirmations", &system, body)
	suite.Equal(http.StatusOK, w.Code)
	suite.coordinator.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestConfirmPayment_RejectsNonPositiveAmount() {
	system := domain.SystemActor
	for _, amount := range []string{"0", "-5.00"} {
		w := suite.do(http.MethodPost, "/api/v1/orders/o1/payment-confirmations", &system,
			map[string]any{"externalReference": "pay-1", "amount": amount})
		suite.Equal(http.StatusBadRequest, w.Code, amount)
	}
	suite.coordinator.AssertNotCalled(suite.T(), "ConfirmPayment", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *HandlerTestSuite) TestCancelOrder() {
	seller := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleSeller}
	order := sampleOrder(uuid.NewString())
	order.Status = domain.OrderCancelled
	order.PaymentStatus = domain.PaymentRefunded

	suite.coordinator.On("Cancel", mock.Anything, seller, order.OrderID, "out of stock").Return(order, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/orders/"+order.OrderID+"/cancel", &seller, dto.CancelOrderRequest{Reason: "out of stock"})
	suite.Equal(http.StatusOK, w.Code)

	var res dto.OrderResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &res))
	suite.Equal(domain.OrderCancelled, res.Status)
	suite.Equal(domain.PaymentRefunded, res.PaymentStatus)

	w = suite.do(http.MethodPost, "/api/v1/orders/"+order.OrderID+"/cancel", &seller, map[string]any{})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.coordinator.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestPauseOrder_AdminOnly() {
	seller := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleSeller}
	w := suite.do(http.MethodPost, "/api/v1/orders/o1/pause", &seller, dto.PauseOrderRequest{Paused: true})
	suite.Equal(http.StatusForbidden, w.Code)

	admin := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleAdmin}
	order := sampleOrder(uuid.NewString())
	suite.coordinator.On("SetAdminPause", mock.Anything, admin, order.OrderID, true, "fraud check").Return(order, nil).Once()
	w = suite.do(http.MethodPost, "/api/v1/orders/"+order.OrderID+"/pause", &admin, dto.PauseOrderRequest{Paused: true, Reason: "fraud check"})
	suite.Equal(http.StatusOK, w.Code)
	suite.coordinator.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestWorkflowStart_OptionalBody() {
	seller := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleSeller}
	order := sampleOrder(uuid.NewString())
	order.Kind = domain.KindService

	suite.coordinator.On("StartWorkflow", mock.Anything, seller, order.OrderID, domain.ETA{}).Return(order, nil).Once()
	w := suite.do(http.MethodPost, "/api/v1/orders/"+order.OrderID+"/workflow/start", &seller, nil)
	suite.Equal(http.StatusOK, w.Code)

	suite.coordinator.On("StartWorkflow", mock.Anything, seller, order.OrderID, mock.MatchedBy(func(eta domain.ETA) bool {
		return eta.MinMinutes != nil && *eta.MinMinutes == 30 && eta.MaxMinutes != nil && *eta.MaxMinutes == 45
	})).Return(order, nil).Once()
	w = suite.do(http.MethodPost, "/api/v1/orders/"+order.OrderID+"/workflow/start", &seller,
		map[string]int{"etaMinMinutes": 30, "etaMaxMinutes": 45})
	suite.Equal(http.StatusOK, w.Code)
	suite.coordinator.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestAdvanceWorkflow_InvalidTransition() {
	seller := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleSeller}
	suite.coordinator.On("AdvanceWorkflow", mock.Anything, seller, "o1", "completed", domain.ETA{}).
		Return(nil, fmt.Errorf("%w: no transition from received to completed", apperrors.ErrValidation)).Once()

	w := suite.do(http.MethodPost, "/api/v1/orders/o1/workflow/advance", &seller, dto.AdvanceWorkflowRequest{ToStepKey: "completed"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Contains(suite.errorBody(w), "no transition")
	suite.coordinator.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestNextSteps() {
	seller := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleSeller}
	steps := []domain.WorkflowStep{
		{StepID: "s2", Key: "diagnosing", Name: "Diagnosing", Sequence: 2},
		{StepID: "s6", Key: "completed", Name: "Completed", Sequence: 6, IsTerminal: true},
	}
	suite.coordinator.On("NextSteps", mock.Anything, seller, "o1").Return(steps, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/orders/o1/workflow/next-steps", &seller, nil)
	suite.Equal(http.StatusOK, w.Code)

	var res []dto.StepResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &res))
	suite.Len(res, 2)
	suite.Equal("diagnosing", res[0].Key)
	suite.True(res[1].IsTerminal)
}

func (suite *HandlerTestSuite) TestSendQuote() {
	seller := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleSeller}
	w := suite.do(http.MethodPost, "/api/v1/orders/o1/quote", &seller, map[string]any{"amount": "0.00"})
	suite.Equal(http.StatusBadRequest, w.Code)

	order := sampleOrder(uuid.NewString())
	amount := decimal.RequireFromString("450.00")
	order.QuoteAmount = &amount
	order.QuoteStatus = domain.QuotePending
	suite.coordinator.On("SendQuote", mock.Anything, seller, order.OrderID, mock.MatchedBy(amount.Equal), "new screen").
		Return(order, nil).Once()

	w = suite.do(http.MethodPost, "/api/v1/orders/"+order.OrderID+"/quote", &seller,
		map[string]any{"amount": "450.00", "note": "new screen"})
	suite.Equal(http.StatusOK, w.Code)
	suite.coordinator.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestApproveQuote_InsufficientFunds() {
	buyer := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleBuyer}
	suite.coordinator.On("ApproveQuote", mock.Anything, buyer, "o1").Return(nil, apperrors.ErrInsufficientFunds).Once()

	w := suite.do(http.MethodPost, "/api/v1/orders/o1/quote/approve", &buyer, nil)
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.coordinator.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestDispatchOrder_DefaultsToDelivery() {
	seller := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleSeller}
	job := &domain.DispatchJob{JobID: "j1", OrderID: "o1", Purpose: domain.PurposeDelivery, Status: domain.JobPending}
	suite.coordinator.On("DispatchOrder", mock.Anything, seller, "o1", domain.PurposeDelivery).Return(job, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/orders/o1/dispatch", &seller, nil)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodPost, "/api/v1/orders/o1/dispatch", &seller, map[string]string{"purpose": "teleport"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.coordinator.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestAcceptOffer_AlreadyAssigned() {
	rider := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleRider}
	suite.coordinator.On("AcceptOffer", mock.Anything, rider, "offer-1").
		Return(nil, fmt.Errorf("%w: job already assigned", apperrors.ErrConflict)).Once()

	w := suite.do(http.MethodPost, "/api/v1/offers/offer-1/accept", &rider, nil)
	suite.Equal(http.StatusConflict, w.Code)
	suite.coordinator.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestUploadProof_PickupAndDelivery() {
	rider := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleRider}
	body := dto.ProofRequest{PhotoURL: "https://cdn.example.com/p.jpg"}

	suite.coordinator.On("UploadProof", mock.Anything, rider, "o1", domain.ProofPickup, body).
		Return(&domain.DeliveryProof{ProofID: "pr1", OrderID: "o1", Kind: domain.ProofPickup}, nil).Once()
	suite.coordinator.On("UploadProof", mock.Anything, rider, "o1", domain.ProofDelivery, body).
		Return(&domain.DeliveryProof{ProofID: "pr2", OrderID: "o1", Kind: domain.ProofDelivery}, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/orders/o1/pickup-proof", &rider, body)
	suite.Equal(http.StatusCreated, w.Code)
	w = suite.do(http.MethodPost, "/api/v1/orders/o1/delivery-proof", &rider, body)
	suite.Equal(http.StatusCreated, w.Code)

	w = suite.do(http.MethodPost, "/api/v1/orders/o1/delivery-proof", &rider, dto.ProofRequest{PhotoURL: "not a url"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.coordinator.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestMarkDelivered_PassesOTP() {
	rider := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleRider}
	order := sampleOrder(uuid.NewString())
	order.Status = domain.OrderDelivered

	suite.coordinator.On("MarkDelivered", mock.Anything, rider, order.OrderID, "").Return(order, nil).Once()
	suite.coordinator.On("MarkDelivered", mock.Anything, rider, order.OrderID, "123456").Return(order, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/orders/"+order.OrderID+"/delivered", &rider, nil)
	suite.Equal(http.StatusOK, w.Code)
	w = suite.do(http.MethodPost, "/api/v1/orders/"+order.OrderID+"/delivered", &rider, dto.MarkDeliveredRequest{OTP: "123456"})
	suite.Equal(http.StatusOK, w.Code)
	suite.coordinator.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestDisputes() {
	buyer := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleBuyer}
	dispute := &domain.Dispute{DisputeID: "d1", OrderID: "o1", RaisedBy: buyer.UserID, Reason: "damaged", Status: domain.DisputeOpen}
	suite.coordinator.On("RaiseDispute", mock.Anything, buyer, "o1", "damaged").Return(dispute, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/orders/o1/disputes", &buyer, dto.RaiseDisputeRequest{Reason: "damaged"})
	suite.Equal(http.StatusCreated, w.Code)

	w = suite.do(http.MethodPost, "/api/v1/disputes/d1/resolve", &buyer,
		dto.ResolveDisputeRequest{Resolution: domain.ResolutionRefundBuyer})
	suite.Equal(http.StatusForbidden, w.Code)

	admin := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleAdmin}
	w = suite.do(http.MethodPost, "/api/v1/disputes/d1/resolve", &admin, map[string]string{"resolution": "split_the_difference"})
	suite.Equal(http.StatusBadRequest, w.Code)

	resolved := *dispute
	resolved.Status = domain.DisputeResolved
	suite.coordinator.On("ResolveDispute", mock.Anything, admin, "d1", mock.MatchedBy(func(r dto.ResolveDisputeRequest) bool {
		return r.Resolution == domain.ResolutionRefundBuyer
	})).Return(&resolved, nil).Once()
	w = suite.do(http.MethodPost, "/api/v1/disputes/d1/resolve", &admin,
		dto.ResolveDisputeRequest{Resolution: domain.ResolutionRefundBuyer})
	suite.Equal(http.StatusOK, w.Code)
	suite.coordinator.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestAccounts() {
	rider := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleRider}
	acc := &domain.Account{AccountID: "a1", UserID: rider.UserID, Balance: decimal.RequireFromString("15.00"), CurrencyCode: "INR", Status: domain.AccountActive}
	suite.coordinator.On("GetAccount", mock.Anything, rider.UserID).Return(acc, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts/me", &rider, nil)
	suite.Equal(http.StatusOK, w.Code)
	var res dto.AccountResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &res))
	suite.True(res.Balance.Equal(acc.Balance))

	suite.coordinator.On("ListEntries", mock.Anything, rider.UserID, dto.ListEntriesParams{Limit: 20}).
		Return(&dto.ListEntriesResponse{Entries: []domain.LedgerEntry{}}, nil).Once()
	w = suite.do(http.MethodGet, "/api/v1/accounts/me/entries", &rider, nil)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/api/v1/accounts/me/entries?limit=500", &rider, nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.coordinator.AssertExpectations(suite.T())
}

func (suite *HandlerTestSuite) TestTopUp_RequiresSystemOrAdmin() {
	buyer := domain.Actor{UserID: uuid.NewString(), Role: domain.RoleBuyer}
	body := dto.TopUpRequest{ExternalReference: "topup-1", Amount: decimal.RequireFromString("500.00")}

	w := suite.do(http.MethodPost, "/api/v1/accounts/"+buyer.UserID+"/topups", &buyer, body)
	suite.Equal(http.StatusForbidden, w.Code)

	entry := &domain.LedgerEntry{EntryID: "e1", Amount: body.Amount, Reference: "topup:topup-1"}
	suite.coordinator.On("TopUp", mock.Anything, buyer.UserID, mock.MatchedBy(func(r dto.TopUpRequest) bool {
		return r.ExternalReference == "topup-1" && r.Amount.Equal(body.Amount)
	})).Return(entry, nil).Once()

	system := domain.SystemActor
	w = suite.do(http.MethodPost, "/api/v1/accounts/"+buyer.UserID+"/topups", &system, body)
	suite.Equal(http.StatusOK, w.Code)
	suite.coordinator.AssertExpectations(suite.T())
}

// --- Run Test Suite ---
func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (suite *HandlerTestSuite) TestActorRateLimit_PerUserBuckets() {
	router := gin.New()
	cfg := &config.Config{JWTSecret: testSecret, JWTIssuer: testIssuer, IsProduction: true, ActorRateLimit: "2-M"}
	services := &portssvc.ServiceContainer{Coordinator: suite.coordinator}
	suite.Require().NoError(handlers.RegisterRoutes(router, cfg, services, &utils.PosthogClientWrapper{}))

	first := domain.Actor{UserID: "rate-user-1", Role: domain.RoleBuyer}
	second := domain.Actor{UserID: "rate-user-2", Role: domain.RoleBuyer}
	suite.coordinator.On("GetAccount", mock.Anything, mock.Anything).Return(&domain.Account{AccountID: "a1"}, nil)

	call := func(actor domain.Actor) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/me", nil)
		req.Header.Set("Authorization", "Bearer "+suite.token(actor))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	suite.Equal(http.StatusOK, call(first).Code)
	w := call(first)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("0", w.Header().Get("X-RateLimit-Remaining"))
	suite.Equal(http.StatusTooManyRequests, call(first).Code)
	suite.Equal(http.StatusOK, call(second).Code)
}
