package services

import (
	"context"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	"github.com/SscSPs/fulfillment_coordinator/internal/dto"
	"github.com/shopspring/decimal"
)

// LedgerSvc is the only component allowed to mutate balances.
type LedgerSvc interface {
	// Record appends an entry once per reference. Replays return the original entry
	// without re-applying the balance effect.
	Record(ctx context.Context, uow portsrepo.UnitOfWork, entry domain.RecordEntry) (*domain.LedgerEntry, error)
}

// EscrowSvc holds, splits and refunds buyer funds. The caller must hold the order lock.
type EscrowSvc interface {
	CreateHold(ctx context.Context, uow portsrepo.UnitOfWork, order *domain.Order, amount decimal.Decimal, actorID string) (*domain.EscrowHold, error)
	Freeze(ctx context.Context, uow portsrepo.UnitOfWork, orderID string, actorID string) (*domain.EscrowHold, error)
	Unfreeze(ctx context.Context, uow portsrepo.UnitOfWork, orderID string, actorID string) (*domain.EscrowHold, error)
	Release(ctx context.Context, uow portsrepo.UnitOfWork, order *domain.Order, actorID string) (*domain.EscrowHold, error)
	ReleaseWithBreakdown(ctx context.Context, uow portsrepo.UnitOfWork, order *domain.Order, breakdown domain.ReleaseBreakdown, actorID string) (*domain.EscrowHold, error)
	Refund(ctx context.Context, uow portsrepo.UnitOfWork, orderID string, actorID string) (*domain.EscrowHold, error)

	// SetReleaseDeadline sets the auto-release instant once. It reports false when
	// the hold already had a deadline or is no longer held.
	SetReleaseDeadline(ctx context.Context, uow portsrepo.UnitOfWork, orderID string, at time.Time) (*domain.EscrowHold, bool, error)
}

// WorkflowSvc moves service orders through their shop category's step graph.
type WorkflowSvc interface {
	Start(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, eta domain.ETA) (*domain.Order, error)
	Advance(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, toStepKey string, eta domain.ETA) (*domain.Order, error)
	NextSteps(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string) ([]domain.WorkflowStep, error)
}

// QuoteSvc negotiates the price of repair orders.
type QuoteSvc interface {
	SendQuote(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, amount decimal.Decimal, note string) (*domain.Order, error)
	ApproveQuote(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string) (*domain.Order, error)
	RejectQuote(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string) (*domain.Order, error)
}

// DispatchSvc runs the broadcast and acceptance protocol.
type DispatchSvc interface {
	DispatchOrder(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, purpose domain.DispatchPurpose) (*domain.DispatchJob, error)
	BroadcastOffers(ctx context.Context, uow portsrepo.UnitOfWork, jobID string, mode domain.BroadcastMode) ([]domain.DispatchOffer, error)
	AcceptOffer(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, offerID string) (*domain.DispatchJob, error)
	DeclineOffer(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, offerID string) (*domain.DispatchOffer, error)
	UploadProof(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, kind domain.ProofKind, req dto.ProofRequest) (*domain.DeliveryProof, error)
	MarkPickedUp(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string) (*domain.Order, error)
	MarkDelivered(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, otp string) (*domain.Order, error)

	// CancelOrderJobs cancels every open job of an order and expires its pending offers.
	CancelOrderJobs(ctx context.Context, uow portsrepo.UnitOfWork, orderID string) error
	// ResumeBroadcasts re-schedules broadcasts of an open delivery job, used after an admin un-pause.
	ResumeBroadcasts(ctx context.Context, uow portsrepo.UnitOfWork, orderID string) error
}

// CancellationSvc applies actor-specific cancellation rules.
type CancellationSvc interface {
	Cancel(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, reason string) (*domain.Order, error)
}

// DisputeSvc raises and resolves post-delivery disputes.
type DisputeSvc interface {
	RaiseDispute(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, reason string) (*domain.Dispute, error)
	ResolveDispute(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, disputeID string, req dto.ResolveDisputeRequest) (*domain.Dispute, error)
}

// OrderSvc covers the order lifecycle outside workflow and dispatch.
type OrderSvc interface {
	PlaceOrder(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, req dto.PlaceOrderRequest) (*domain.Order, error)
	ConfirmPayment(ctx context.Context, uow portsrepo.UnitOfWork, orderID string, req dto.PaymentConfirmationRequest) (*domain.Order, error)
	AcceptOrder(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string) (*domain.Order, error)
	ConfirmDelivery(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string) (*domain.Order, error)
	AutoRelease(ctx context.Context, uow portsrepo.UnitOfWork, orderID string) (*domain.Order, error)
	SetAdminPause(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, paused bool, reason string) (*domain.Order, error)
	GetOrder(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string) (*domain.Order, error)
	GetTimeline(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string) (*dto.TimelineResponse, error)
}

// AccountSvc answers balance queries.
type AccountSvc interface {
	GetAccount(ctx context.Context, uow portsrepo.UnitOfWork, userID string) (*domain.Account, error)
	ListEntries(ctx context.Context, uow portsrepo.UnitOfWork, userID string, req dto.ListEntriesParams) (*dto.ListEntriesResponse, error)
	// TopUp credits an externally captured amount to a wallet, once per external reference.
	TopUp(ctx context.Context, uow portsrepo.UnitOfWork, userID string, req dto.TopUpRequest) (*domain.LedgerEntry, error)
}
