package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/dto"
	"github.com/SscSPs/fulfillment_coordinator/internal/utils/otp"
	"github.com/google/uuid"
)

// dispatchService runs the private-pool then zone-fallback broadcast and
// resolves the first acceptance to an assignment.
type dispatchService struct {
	BaseService
	escrow   portssvc.EscrowSvc
	settings Settings
}

// NewDispatchService creates a new DispatchSvc.
func NewDispatchService(base BaseService, escrow portssvc.EscrowSvc, settings Settings) portssvc.DispatchSvc {
	return &dispatchService{BaseService: base, escrow: escrow, settings: settings}
}

var _ portssvc.DispatchSvc = (*dispatchService)(nil)

func (s *dispatchService) DispatchOrder(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, purpose domain.DispatchPurpose) (*domain.DispatchJob, error) {
	if purpose == "" {
		purpose = domain.PurposeDelivery
	}
	order, err := uow.Orders().LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleSystem {
		if _, err := requireSeller(ctx, uow, actor, order); err != nil {
			return nil, err
		}
	}
	if order.IsPaused() {
		return nil, domain.ErrOrderPaused
	}

	existing, err := uow.Dispatch().FindJob(ctx, orderID, purpose)
	if err == nil {
		return existing, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	switch purpose {
	case domain.PurposeDelivery:
		if order.PaymentStatus != domain.PaymentPaid {
			return nil, domain.ErrPaymentNotCaptured
		}
		if order.Status != domain.OrderPaid && order.Status != domain.OrderAcceptedBySeller {
			return nil, domain.ErrInvalidTransition
		}
	case domain.PurposeReturn:
		if order.Status != domain.OrderDelivered && order.Status != domain.OrderDisputed {
			return nil, domain.ErrInvalidTransition
		}
	default:
		return nil, domain.ErrInvalidTransition
	}

	now := s.Now()
	windowEnd := now.Add(s.settings.PrivatePoolWindow)
	job := domain.DispatchJob{
		JobID:               uuid.NewString(),
		OrderID:             orderID,
		Purpose:             purpose,
		Status:              domain.JobPending,
		PrivatePoolUntil:    windowEnd,
		FallbackBroadcastAt: windowEnd,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	inserted, err := uow.Dispatch().InsertJobIfAbsent(ctx, job)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return uow.Dispatch().FindJob(ctx, orderID, purpose)
	}

	if purpose == domain.PurposeDelivery {
		if err := s.TransitionOrder(ctx, uow, order, domain.OrderDispatching, actor.UserID, "dispatch started"); err != nil {
			return nil, err
		}
		if err := uow.Orders().UpdateOrder(ctx, *order); err != nil {
			return nil, err
		}
	}

	s.scheduleBroadcasts(uow, &job, now)
	s.LogInfo(ctx, "Dispatch job created",
		slog.String("order_id", orderID),
		slog.String("job_id", job.JobID),
		slog.String("purpose", string(purpose)),
		slog.Time("fallback_at", job.FallbackBroadcastAt))
	return &job, nil
}

// scheduleBroadcasts enqueues the immediate private broadcast and the fallback
// broadcast at the end of the private window.
func (s *dispatchService) scheduleBroadcasts(uow portsrepo.UnitOfWork, job *domain.DispatchJob, now time.Time) {
	s.ScheduleAfterCommit(uow, domain.ScheduledTask{
		Kind:    domain.TaskBroadcastOffers,
		JobID:   job.JobID,
		OrderID: job.OrderID,
		Mode:    domain.BroadcastPrivate,
		RunAt:   now,
	})
	s.ScheduleAfterCommit(uow, domain.ScheduledTask{
		Kind:    domain.TaskBroadcastOffers,
		JobID:   job.JobID,
		OrderID: job.OrderID,
		Mode:    domain.BroadcastFallback,
		RunAt:   job.FallbackBroadcastAt,
	})
}

func (s *dispatchService) BroadcastOffers(ctx context.Context, uow portsrepo.UnitOfWork, jobID string, mode domain.BroadcastMode) ([]domain.DispatchOffer, error) {
	peek, err := uow.Dispatch().FindJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	order, err := uow.Orders().LockOrder(ctx, peek.OrderID)
	if err != nil {
		return nil, err
	}
	job, err := uow.Dispatch().LockJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.IsOpen() {
		s.LogDebug(ctx, "Broadcast skipped, job closed", slog.String("job_id", jobID), slog.String("status", string(job.Status)))
		return []domain.DispatchOffer{}, nil
	}
	if order.IsPaused() {
		// Un-pausing re-schedules broadcasts.
		s.LogInfo(ctx, "Broadcast skipped, order paused", slog.String("job_id", jobID))
		return []domain.DispatchOffer{}, nil
	}

	var candidates []domain.Rider
	switch mode {
	case domain.BroadcastPrivate:
		candidates, err = uow.Riders().ListPrivatePoolRiders(ctx, order.ShopID)
	case domain.BroadcastFallback:
		candidates, err = uow.Riders().ListActiveRidersInZone(ctx, order.ZoneID)
	default:
		return nil, domain.ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	now := s.Now()
	created := []domain.DispatchOffer{}
	for _, rider := range candidates {
		if !rider.IsActive || rider.Status != domain.RiderAvailable {
			continue
		}
		offer := domain.DispatchOffer{
			OfferID: uuid.NewString(),
			JobID:   job.JobID,
			RiderID: rider.RiderID,
			Status:  domain.OfferSent,
			SentAt:  now,
		}
		inserted, err := uow.Dispatch().InsertOfferIfAbsent(ctx, offer)
		if err != nil {
			return nil, err
		}
		if !inserted {
			continue
		}
		created = append(created, offer)
		s.Notify(uow, domain.Notification{
			UserID:  rider.UserID,
			Title:   "New delivery offer",
			Body:    "A delivery is available near you",
			OrderID: order.OrderID,
			Data:    map[string]string{"offer_id": offer.OfferID, "job_id": job.JobID},
		})
	}

	if len(created) > 0 && job.Status == domain.JobPending {
		job.Status = domain.JobBroadcasting
		job.UpdatedAt = now
		if err := uow.Dispatch().UpdateJob(ctx, *job); err != nil {
			return nil, err
		}
	}
	if len(created) > 0 {
		s.Publish(uow, domain.Event{
			Type:     domain.EventOfferSent,
			OrderID:  order.OrderID,
			Channels: []domain.Channel{domain.ChannelSeller, domain.ChannelAdmin},
			Payload:  map[string]string{"job_id": job.JobID, "mode": string(mode)},
		})
	}

	s.LogInfo(ctx, "Offers broadcast",
		slog.String("job_id", jobID),
		slog.String("mode", string(mode)),
		slog.Int("candidates", len(candidates)),
		slog.Int("offers", len(created)))
	return created, nil
}

// AcceptOffer locks Order, Job then Offer so that concurrent acceptances of
// different offers on one job serialize on the order row.
func (s *dispatchService) AcceptOffer(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, offerID string) (*domain.DispatchJob, error) {
	rider, err := requireRider(ctx, uow, actor)
	if err != nil {
		return nil, err
	}
	peekOffer, err := uow.Dispatch().FindOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	peekJob, err := uow.Dispatch().FindJobByID(ctx, peekOffer.JobID)
	if err != nil {
		return nil, err
	}
	order, err := uow.Orders().LockOrder(ctx, peekJob.OrderID)
	if err != nil {
		return nil, err
	}
	job, err := uow.Dispatch().LockJob(ctx, peekJob.JobID)
	if err != nil {
		return nil, err
	}
	offer, err := uow.Dispatch().LockOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	if offer.RiderID != rider.RiderID {
		return nil, domain.ErrNotOwner
	}
	if offer.Status == domain.OfferAccepted && job.IsAssignedTo(rider.RiderID) {
		return job, nil
	}
	if !offer.Status.IsPending() {
		return nil, domain.ErrOfferNotPending
	}
	if job.Status == domain.JobAssigned {
		return nil, domain.ErrJobAlreadyAssigned
	}
	if !job.Status.IsOpen() {
		return nil, domain.ErrJobClosed
	}
	if order.IsPaused() {
		return nil, domain.ErrOrderPaused
	}

	now := s.Now()
	job.Status = domain.JobAssigned
	job.AssignedRiderID = domain.StringPtr(rider.RiderID)
	job.AssignedAt = domain.TimePtr(now)
	job.UpdatedAt = now
	if err := uow.Dispatch().UpdateJob(ctx, *job); err != nil {
		return nil, err
	}

	offer.Status = domain.OfferAccepted
	offer.RespondedAt = domain.TimePtr(now)
	if err := uow.Dispatch().UpdateOffer(ctx, *offer); err != nil {
		return nil, err
	}
	others, err := uow.Dispatch().ListOffersByJob(ctx, job.JobID)
	if err != nil {
		return nil, err
	}
	for _, other := range others {
		if other.OfferID == offer.OfferID || !other.Status.IsPending() {
			continue
		}
		other.Status = domain.OfferExpired
		other.RespondedAt = domain.TimePtr(now)
		if err := uow.Dispatch().UpdateOffer(ctx, other); err != nil {
			return nil, err
		}
	}

	if job.Purpose == domain.PurposeDelivery {
		order.RiderID = domain.StringPtr(rider.RiderID)
		if err := s.TransitionOrder(ctx, uow, order, domain.OrderAssignedToRider, actor.UserID, "rider accepted offer"); err != nil {
			return nil, err
		}
		if err := uow.Orders().UpdateOrder(ctx, *order); err != nil {
			return nil, err
		}
	}
	if err := uow.Riders().SetRiderStatus(ctx, rider.RiderID, domain.RiderBusy); err != nil {
		return nil, err
	}

	s.Publish(uow, domain.Event{
		Type:     domain.EventRiderAssigned,
		OrderID:  order.OrderID,
		Channels: []domain.Channel{domain.ChannelBuyer, domain.ChannelSeller, domain.ChannelRider},
		Payload:  map[string]string{"job_id": job.JobID, "rider_id": rider.RiderID},
	})
	s.Notify(uow, domain.Notification{UserID: order.BuyerID, Title: "Rider assigned", Body: "A rider is on the way", OrderID: order.OrderID})
	if shop, err := uow.Shops().FindShopByID(ctx, order.ShopID); err == nil {
		s.Notify(uow, domain.Notification{UserID: shop.SellerID, Title: "Rider assigned", Body: "A rider will pick up the order", OrderID: order.OrderID})
	}

	s.LogInfo(ctx, "Offer accepted",
		slog.String("order_id", order.OrderID),
		slog.String("job_id", job.JobID),
		slog.String("rider_id", rider.RiderID))
	return job, nil
}

func (s *dispatchService) DeclineOffer(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, offerID string) (*domain.DispatchOffer, error) {
	rider, err := requireRider(ctx, uow, actor)
	if err != nil {
		return nil, err
	}
	offer, err := uow.Dispatch().LockOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.RiderID != rider.RiderID {
		return nil, domain.ErrNotOwner
	}
	if !offer.Status.IsPending() {
		return offer, nil
	}
	offer.Status = domain.OfferDeclined
	offer.RespondedAt = domain.TimePtr(s.Now())
	if err := uow.Dispatch().UpdateOffer(ctx, *offer); err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Offer declined", slog.String("offer_id", offerID), slog.String("rider_id", rider.RiderID))
	return offer, nil
}

// assignedJob returns the delivery job of orderID when actor is its rider.
func (s *dispatchService) assignedJob(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, lock bool) (*domain.Rider, *domain.DispatchJob, error) {
	rider, err := requireRider(ctx, uow, actor)
	if err != nil {
		return nil, nil, err
	}
	job, err := uow.Dispatch().FindJob(ctx, orderID, domain.PurposeDelivery)
	if err != nil {
		return nil, nil, err
	}
	if lock {
		if job, err = uow.Dispatch().LockJob(ctx, job.JobID); err != nil {
			return nil, nil, err
		}
	}
	if !job.IsAssignedTo(rider.RiderID) {
		return nil, nil, domain.ErrNotAssigned
	}
	return rider, job, nil
}

func (s *dispatchService) UploadProof(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, kind domain.ProofKind, req dto.ProofRequest) (*domain.DeliveryProof, error) {
	order, err := uow.Orders().FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	_, job, err := s.assignedJob(ctx, uow, actor, orderID, false)
	if err != nil {
		return nil, err
	}
	switch kind {
	case domain.ProofPickup:
		if order.Status != domain.OrderAssignedToRider && order.Status != domain.OrderPickedUp {
			return nil, domain.ErrInvalidTransition
		}
	case domain.ProofDelivery:
		if order.Status != domain.OrderPickedUp && order.Status != domain.OrderDelivered {
			return nil, domain.ErrInvalidTransition
		}
	default:
		return nil, domain.ErrMissingProof
	}
	if req.PhotoURL == "" {
		return nil, domain.ErrMissingProof
	}

	proof := domain.DeliveryProof{
		ProofID:   uuid.NewString(),
		JobID:     job.JobID,
		OrderID:   orderID,
		Kind:      kind,
		PhotoURL:  req.PhotoURL,
		Note:      req.Note,
		CreatedBy: actor.UserID,
		CreatedAt: s.Now(),
	}
	if err := uow.Dispatch().InsertProof(ctx, proof); err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Proof uploaded", slog.String("order_id", orderID), slog.String("kind", string(kind)))
	return &proof, nil
}

func (s *dispatchService) MarkPickedUp(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string) (*domain.Order, error) {
	order, err := uow.Orders().LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	_, job, err := s.assignedJob(ctx, uow, actor, orderID, true)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderCancelled && order.Status.HasReached(domain.OrderPickedUp) {
		return order, nil
	}
	if order.IsPaused() {
		return nil, domain.ErrOrderPaused
	}
	if order.Status != domain.OrderAssignedToRider {
		return nil, domain.ErrInvalidTransition
	}
	if _, err := uow.Dispatch().FindLatestProof(ctx, job.JobID, domain.ProofPickup); err != nil {
		if isNotFound(err) {
			return nil, domain.ErrMissingProof
		}
		return nil, err
	}

	now := s.Now()
	if order.RequiresDeliveryOTP {
		code, hash, err := otp.Generate(otp.DefaultLength)
		if err != nil {
			return nil, err
		}
		expires := now.Add(s.settings.DeliveryOTPTTL)
		order.DeliveryOTPHash = hash
		order.DeliveryOTPExpires = domain.TimePtr(expires)
		buyerID := order.BuyerID
		if s.Notifier != nil {
			uow.AfterCommit(func(ctx context.Context) {
				if err := s.Notifier.SendOTP(ctx, buyerID, orderID, code, expires); err != nil {
					s.LogError(ctx, err, "Failed to send delivery OTP", slog.String("order_id", orderID))
				}
			})
		}
	}

	if err := s.TransitionOrder(ctx, uow, order, domain.OrderPickedUp, actor.UserID, "picked up"); err != nil {
		return nil, err
	}
	if err := uow.Orders().UpdateOrder(ctx, *order); err != nil {
		return nil, err
	}
	s.publishShipment(uow, order, "picked_up")
	return order, nil
}

func (s *dispatchService) MarkDelivered(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, orderID string, code string) (*domain.Order, error) {
	order, err := uow.Orders().LockOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	rider, _, err := s.assignedJob(ctx, uow, actor, orderID, true)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderCancelled && order.Status.HasReached(domain.OrderDelivered) {
		return order, nil
	}
	if order.IsPaused() {
		return nil, domain.ErrOrderPaused
	}
	if order.Status != domain.OrderPickedUp {
		return nil, domain.ErrInvalidTransition
	}

	now := s.Now()
	if order.RequiresDeliveryOTP {
		if order.DeliveryOTPExpires == nil || now.After(*order.DeliveryOTPExpires) || !otp.Verify(code, order.DeliveryOTPHash) {
			return nil, domain.ErrInvalidOTP
		}
		order.DeliveryOTPHash = ""
		order.DeliveryOTPExpires = nil
	}

	order.DeliveredAt = domain.TimePtr(now)
	if err := s.TransitionOrder(ctx, uow, order, domain.OrderDelivered, actor.UserID, "delivered"); err != nil {
		return nil, err
	}
	if err := uow.Orders().UpdateOrder(ctx, *order); err != nil {
		return nil, err
	}
	if err := uow.Riders().SetRiderStatus(ctx, rider.RiderID, domain.RiderAvailable); err != nil {
		return nil, err
	}

	releaseAt := now.Add(s.settings.AutoReleaseAfter)
	hold, set, err := s.escrow.SetReleaseDeadline(ctx, uow, orderID, releaseAt)
	switch {
	case isNotFound(err):
		s.LogWarn(ctx, "Delivered order has no escrow hold", slog.String("order_id", orderID))
	case err != nil:
		return nil, err
	case set:
		s.ScheduleAfterCommit(uow, domain.ScheduledTask{
			Kind:    domain.TaskEscrowAutoRelease,
			OrderID: orderID,
			RunAt:   *hold.ExpiresAt,
		})
	}

	s.publishShipment(uow, order, "delivered")
	s.Notify(uow, domain.Notification{UserID: order.BuyerID, Title: "Order delivered", Body: "Confirm delivery or raise a dispute", OrderID: orderID})
	return order, nil
}

func (s *dispatchService) CancelOrderJobs(ctx context.Context, uow portsrepo.UnitOfWork, orderID string) error {
	now := s.Now()
	for _, purpose := range []domain.DispatchPurpose{domain.PurposeDelivery, domain.PurposeReturn} {
		peek, err := uow.Dispatch().FindJob(ctx, orderID, purpose)
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return err
		}
		job, err := uow.Dispatch().LockJob(ctx, peek.JobID)
		if err != nil {
			return err
		}
		if job.Status == domain.JobCancelled || job.Status == domain.JobExpired {
			continue
		}
		if job.AssignedRiderID != nil {
			if err := uow.Riders().SetRiderStatus(ctx, *job.AssignedRiderID, domain.RiderAvailable); err != nil {
				return err
			}
		}
		job.Status = domain.JobCancelled
		job.UpdatedAt = now
		if err := uow.Dispatch().UpdateJob(ctx, *job); err != nil {
			return err
		}
		offers, err := uow.Dispatch().ListOffersByJob(ctx, job.JobID)
		if err != nil {
			return err
		}
		for _, offer := range offers {
			if !offer.Status.IsPending() {
				continue
			}
			offer.Status = domain.OfferExpired
			offer.RespondedAt = domain.TimePtr(now)
			if err := uow.Dispatch().UpdateOffer(ctx, offer); err != nil {
				return err
			}
		}
		s.LogInfo(ctx, "Dispatch job cancelled", slog.String("order_id", orderID), slog.String("job_id", job.JobID))
	}
	return nil
}

func (s *dispatchService) ResumeBroadcasts(ctx context.Context, uow portsrepo.UnitOfWork, orderID string) error {
	job, err := uow.Dispatch().FindJob(ctx, orderID, domain.PurposeDelivery)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !job.Status.IsOpen() {
		return nil
	}
	now := s.Now()
	fallback := job.FallbackBroadcastAt
	if fallback.Before(now) {
		fallback = now
	}
	s.ScheduleAfterCommit(uow, domain.ScheduledTask{Kind: domain.TaskBroadcastOffers, JobID: job.JobID, OrderID: orderID, Mode: domain.BroadcastPrivate, RunAt: now})
	s.ScheduleAfterCommit(uow, domain.ScheduledTask{Kind: domain.TaskBroadcastOffers, JobID: job.JobID, OrderID: orderID, Mode: domain.BroadcastFallback, RunAt: fallback})
	return nil
}

func (s *dispatchService) publishShipment(uow portsrepo.UnitOfWork, order *domain.Order, stage string) {
	s.Publish(uow, domain.Event{
		Type:     domain.EventShipmentUpdated,
		OrderID:  order.OrderID,
		Channels: []domain.Channel{domain.ChannelBuyer, domain.ChannelSeller, domain.ChannelRider},
		Payload:  map[string]string{"stage": stage},
	})
}
