package services

import (
	"context"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	"github.com/SscSPs/fulfillment_coordinator/internal/dto"
	"github.com/shopspring/decimal"
)

// CoordinatorSvc is the transactional entry point used by request handlers and
// task workers. Every method runs in exactly one transaction and reports only
// apperrors taxonomy outcomes or opaque storage failures.
type CoordinatorSvc interface {
	PlaceOrder(ctx context.Context, actor domain.Actor, req dto.PlaceOrderRequest) (*domain.Order, error)
	ConfirmPayment(ctx context.Context, orderID string, req dto.PaymentConfirmationRequest) (*domain.Order, error)
	AcceptOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error)
	ConfirmDelivery(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error)
	SetAdminPause(ctx context.Context, actor domain.Actor, orderID string, paused bool, reason string) (*domain.Order, error)
	GetOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error)
	GetTimeline(ctx context.Context, actor domain.Actor, orderID string) (*dto.TimelineResponse, error)

	StartWorkflow(ctx context.Context, actor domain.Actor, orderID string, eta domain.ETA) (*domain.Order, error)
	AdvanceWorkflow(ctx context.Context, actor domain.Actor, orderID string, toStepKey string, eta domain.ETA) (*domain.Order, error)
	NextSteps(ctx context.Context, actor domain.Actor, orderID string) ([]domain.WorkflowStep, error)

	SendQuote(ctx context.Context, actor domain.Actor, orderID string, amount decimal.Decimal, note string) (*domain.Order, error)
	ApproveQuote(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error)
	RejectQuote(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error)

	DispatchOrder(ctx context.Context, actor domain.Actor, orderID string, purpose domain.DispatchPurpose) (*domain.DispatchJob, error)
	AcceptOffer(ctx context.Context, actor domain.Actor, offerID string) (*domain.DispatchJob, error)
	DeclineOffer(ctx context.Context, actor domain.Actor, offerID string) (*domain.DispatchOffer, error)
	UploadProof(ctx context.Context, actor domain.Actor, orderID string, kind domain.ProofKind, req dto.ProofRequest) (*domain.DeliveryProof, error)
	MarkPickedUp(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error)
	MarkDelivered(ctx context.Context, actor domain.Actor, orderID string, otp string) (*domain.Order, error)

	Cancel(ctx context.Context, actor domain.Actor, orderID string, reason string) (*domain.Order, error)
	RaiseDispute(ctx context.Context, actor domain.Actor, orderID string, reason string) (*domain.Dispute, error)
	ResolveDispute(ctx context.Context, actor domain.Actor, disputeID string, req dto.ResolveDisputeRequest) (*domain.Dispute, error)

	GetAccount(ctx context.Context, userID string) (*domain.Account, error)
	ListEntries(ctx context.Context, userID string, req dto.ListEntriesParams) (*dto.ListEntriesResponse, error)
	TopUp(ctx context.Context, userID string, req dto.TopUpRequest) (*domain.LedgerEntry, error)
}

// ServiceContainer holds the application services used by handlers and workers.
type ServiceContainer struct {
	Coordinator CoordinatorSvc
	Tasks       TaskHandler
}
