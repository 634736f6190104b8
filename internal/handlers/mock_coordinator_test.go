package handlers_test

import (
	"context"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock Coordinator ---
type MockCoordinator struct {
	mock.Mock
}

func (m *MockCoordinator) order(args mock.Arguments) (*domain.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockCoordinator) PlaceOrder(ctx context.Context, actor domain.Actor, req dto.PlaceOrderRequest) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, req))
}
func (m *MockCoordinator) ConfirmPayment(ctx context.Context, orderID string, req dto.PaymentConfirmationRequest) (*domain.Order, error) {
	return m.order(m.Called(ctx, orderID, req))
}
func (m *MockCoordinator) AcceptOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID))
}
func (m *MockCoordinator) ConfirmDelivery(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID))
}
func (m *MockCoordinator) SetAdminPause(ctx context.Context, actor domain.Actor, orderID string, paused bool, reason string) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID, paused, reason))
}
func (m *MockCoordinator) GetOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID))
}
func (m *MockCoordinator) GetTimeline(ctx context.Context, actor domain.Actor, orderID string) (*dto.TimelineResponse, error) {
	args := m.Called(ctx, actor, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TimelineResponse), args.Error(1)
}

func (m *MockCoordinator) StartWorkflow(ctx context.Context, actor domain.Actor, orderID string, eta domain.ETA) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID, eta))
}
func (m *MockCoordinator) AdvanceWorkflow(ctx context.Context, actor domain.Actor, orderID string, toStepKey string, eta domain.ETA) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID, toStepKey, eta))
}
func (m *MockCoordinator) NextSteps(ctx context.Context, actor domain.Actor, orderID string) ([]domain.WorkflowStep, error) {
	args := m.Called(ctx, actor, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WorkflowStep), args.Error(1)
}

func (m *MockCoordinator) SendQuote(ctx context.Context, actor domain.Actor, orderID string, amount decimal.Decimal, note string) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID, amount, note))
}
func (m *MockCoordinator) ApproveQuote(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID))
}
func (m *MockCoordinator) RejectQuote(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID))
}

func (m *MockCoordinator) DispatchOrder(ctx context.Context, actor domain.Actor, orderID string, purpose domain.DispatchPurpose) (*domain.DispatchJob, error) {
	args := m.Called(ctx, actor, orderID, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DispatchJob), args.Error(1)
}
func (m *MockCoordinator) AcceptOffer(ctx context.Context, actor domain.Actor, offerID string) (*domain.DispatchJob, error) {
	args := m.Called(ctx, actor, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DispatchJob), args.Error(1)
}
func (m *MockCoordinator) DeclineOffer(ctx context.Context, actor domain.Actor, offerID string) (*domain.DispatchOffer, error) {
	args := m.Called(ctx, actor, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DispatchOffer), args.Error(1)
}
func (m *MockCoordinator) UploadProof(ctx context.Context, actor domain.Actor, orderID string, kind domain.ProofKind, req dto.ProofRequest) (*domain.DeliveryProof, error) {
	args := m.Called(ctx, actor, orderID, kind, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeliveryProof), args.Error(1)
}
func (m *MockCoordinator) MarkPickedUp(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID))
}
func (m *MockCoordinator) MarkDelivered(ctx context.Context, actor domain.Actor, orderID string, otp string) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID, otp))
}

func (m *MockCoordinator) Cancel(ctx context.Context, actor domain.Actor, orderID string, reason string) (*domain.Order, error) {
	return m.order(m.Called(ctx, actor, orderID, reason))
}
func (m *MockCoordinator) RaiseDispute(ctx context.Context, actor domain.Actor, orderID string, reason string) (*domain.Dispute, error) {
	args := m.Called(ctx, actor, orderID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dispute), args.Error(1)
}
func (m *MockCoordinator) ResolveDispute(ctx context.Context, actor domain.Actor, disputeID string, req dto.ResolveDisputeRequest) (*domain.Dispute, error) {
	args := m.Called(ctx, actor, disputeID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dispute), args.Error(1)
}

func (m *MockCoordinator) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}
func (m *MockCoordinator) ListEntries(ctx context.Context, userID string, req dto.ListEntriesParams) (*dto.ListEntriesResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListEntriesResponse), args.Error(1)
}
func (m *MockCoordinator) TopUp(ctx context.Context, userID string, req dto.TopUpRequest) (*domain.LedgerEntry, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LedgerEntry), args.Error(1)
}

// Ensure mock implements the interface
var _ portssvc.CoordinatorSvc = (*MockCoordinator)(nil)
