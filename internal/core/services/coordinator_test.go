package services_test

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/fulfillment_coordinator/internal/adapters/events"
	"github.com/SscSPs/fulfillment_coordinator/internal/adapters/scheduler"
	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/dto"
	"github.com/SscSPs/fulfillment_coordinator/internal/platform/clock"
	"github.com/SscSPs/fulfillment_coordinator/internal/platform/workflowseed"
	"github.com/SscSPs/fulfillment_coordinator/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const (
	zoneID       = "zone-central"
	groceryShop  = "shop-grocery"
	repairShop   = "shop-repair"
	productID    = "prod-widget"
	sellerUserID = "seller-1"
	repairUserID = "seller-2"
	buyerUserID  = "buyer-1"
	platformUser = "platform"
	rider1       = "rider-a"
	rider2       = "rider-b"
	riderUser1   = "rider-user-a"
	riderUser2   = "rider-user-b"

	// The north zone pays out more in fees than it charges for delivery and
	// its bakery has no private riders.
	northZone  = "zone-north"
	bakeryShop = "shop-bakery"
	loafID     = "prod-loaf"
	bakerID    = "seller-3"
	rider3     = "rider-c"
	rider4     = "rider-d"
	riderUser3 = "rider-user-c"
)

var (
	buyer       = domain.Actor{UserID: buyerUserID, Role: domain.RoleBuyer}
	otherBuyer  = domain.Actor{UserID: "buyer-2", Role: domain.RoleBuyer}
	seller      = domain.Actor{UserID: sellerUserID, Role: domain.RoleSeller}
	repairer    = domain.Actor{UserID: repairUserID, Role: domain.RoleSeller}
	riderActor1 = domain.Actor{UserID: riderUser1, Role: domain.RoleRider}
	riderActor2 = domain.Actor{UserID: riderUser2, Role: domain.RoleRider}
	admin       = domain.Actor{UserID: "admin-1", Role: domain.RoleAdmin}
	baker       = domain.Actor{UserID: bakerID, Role: domain.RoleSeller}
	riderActor3 = domain.Actor{UserID: riderUser3, Role: domain.RoleRider}
)

func money(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

type CoordinatorTestSuite struct {
	suite.Suite
	ctx       context.Context
	store     *memory.Store
	clk       *clock.Fixed
	sched     *scheduler.MemoryScheduler
	recorder  *events.Recorder
	container *portssvc.ServiceContainer
	svc       portssvc.CoordinatorSvc
}

func (s *CoordinatorTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.clk = clock.NewFixed(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	s.sched = scheduler.NewMemoryScheduler()
	s.recorder = &events.Recorder{}

	settings := services.DefaultSettings()
	settings.PlatformUserID = platformUser
	s.container = services.NewServiceContainer(s.store, services.Collaborators{
		Clock:     s.clk,
		Publisher: s.recorder,
		Notifier:  s.recorder,
		Scheduler: s.sched,
	}, settings)
	s.svc = s.container.Coordinator

	s.seedCatalog()
}

func (s *CoordinatorTestSuite) seedCatalog() {
	_, file, _, ok := runtime.Caller(0)
	s.Require().True(ok)
	workflows, err := workflowseed.LoadFile(filepath.Join(filepath.Dir(file), "..", "..", "..", "config", "workflows.yaml"))
	s.Require().NoError(err)
	s.Require().NoError(workflowseed.Seed(s.ctx, s.store, workflows))

	s.withinTx(func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		s.Require().NoError(uow.Zones().SaveZoneFee(ctx, domain.ZoneFee{
			ZoneID:      zoneID,
			DeliveryFee: money(50),
			RiderShare:  money(40),
			PlatformFee: money(10),
		}))
		s.Require().NoError(uow.Shops().SaveShop(ctx, domain.Shop{ShopID: groceryShop, SellerID: sellerUserID, Name: "Corner Grocery", Category: "grocery", ZoneID: zoneID}))
		s.Require().NoError(uow.Shops().SaveShop(ctx, domain.Shop{ShopID: repairShop, SellerID: repairUserID, Name: "Fix It", Category: domain.CategoryRepair, ZoneID: zoneID}))
		s.Require().NoError(uow.Inventory().SaveProduct(ctx, domain.Product{ProductID: productID, ShopID: groceryShop, Name: "Widget", Price: money(100), Stock: 10}))
		for _, r := range []domain.Rider{
			{RiderID: rider1, UserID: riderUser1, ZoneID: zoneID, Status: domain.RiderAvailable, IsActive: true},
			{RiderID: rider2, UserID: riderUser2, ZoneID: zoneID, Status: domain.RiderAvailable, IsActive: true},
		} {
			s.Require().NoError(uow.Riders().SaveRider(ctx, r))
			s.Require().NoError(uow.Riders().AddToPrivatePool(ctx, groceryShop, r.RiderID))
			s.Require().NoError(uow.Riders().AddToPrivatePool(ctx, repairShop, r.RiderID))
		}

		s.Require().NoError(uow.Zones().SaveZoneFee(ctx, domain.ZoneFee{
			ZoneID:      northZone,
			DeliveryFee: money(50),
			RiderShare:  money(40),
			PlatformFee: money(30),
		}))
		s.Require().NoError(uow.Shops().SaveShop(ctx, domain.Shop{ShopID: bakeryShop, SellerID: bakerID, Name: "North Bakery", Category: "grocery", ZoneID: northZone}))
		s.Require().NoError(uow.Inventory().SaveProduct(ctx, domain.Product{ProductID: loafID, ShopID: bakeryShop, Name: "Loaf", Price: money(100), Stock: 5}))
		for _, r := range []domain.Rider{
			{RiderID: rider3, UserID: riderUser3, ZoneID: northZone, Status: domain.RiderAvailable, IsActive: true},
			{RiderID: rider4, UserID: "rider-user-d", ZoneID: northZone, Status: domain.RiderAvailable, IsActive: true},
			{RiderID: "rider-e", UserID: "rider-user-e", ZoneID: northZone, Status: domain.RiderBusy, IsActive: true},
		} {
			s.Require().NoError(uow.Riders().SaveRider(ctx, r))
		}
		return nil
	})
}

func (s *CoordinatorTestSuite) withinTx(fn func(ctx context.Context, uow portsrepo.UnitOfWork) error) {
	s.Require().NoError(s.store.WithinTx(s.ctx, fn))
}

func (s *CoordinatorTestSuite) runDue() int {
	ran, err := s.sched.RunDue(s.ctx, s.clk.Now(), s.container.Tasks)
	s.Require().NoError(err)
	return ran
}

func (s *CoordinatorTestSuite) balance(userID string) decimal.Decimal {
	acc, err := s.svc.GetAccount(s.ctx, userID)
	if err != nil {
		s.Require().ErrorIs(err, apperrors.ErrNotFound)
		return decimal.Zero
	}
	return acc.Balance
}

func (s *CoordinatorTestSuite) assertBalance(userID string, want int64) {
	got := s.balance(userID)
	s.True(got.Equal(money(want)), "balance of %s: want %d, got %s", userID, want, got)
}

func (s *CoordinatorTestSuite) productStock() int {
	var stock int
	s.withinTx(func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		p, err := uow.Inventory().FindProductByID(ctx, productID)
		s.Require().NoError(err)
		stock = p.Stock
		return nil
	})
	return stock
}

func (s *CoordinatorTestSuite) hold(orderID string) domain.EscrowHold {
	var hold domain.EscrowHold
	s.withinTx(func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		h, err := uow.Escrow().FindHoldByOrderID(ctx, orderID)
		s.Require().NoError(err)
		hold = *h
		return nil
	})
	return hold
}

func (s *CoordinatorTestSuite) job(orderID string) (domain.DispatchJob, []domain.DispatchOffer) {
	var job domain.DispatchJob
	var offers []domain.DispatchOffer
	s.withinTx(func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		j, err := uow.Dispatch().FindJob(ctx, orderID, domain.PurposeDelivery)
		s.Require().NoError(err)
		job = *j
		offers, err = uow.Dispatch().ListOffersByJob(ctx, j.JobID)
		s.Require().NoError(err)
		return nil
	})
	return job, offers
}

func (s *CoordinatorTestSuite) offerFor(orderID, riderID string) domain.DispatchOffer {
	_, offers := s.job(orderID)
	for _, o := range offers {
		if o.RiderID == riderID {
			return o
		}
	}
	s.FailNow("no offer for rider", riderID)
	return domain.DispatchOffer{}
}

func (s *CoordinatorTestSuite) order(orderID string) *domain.Order {
	order, err := s.svc.GetOrder(s.ctx, admin, orderID)
	s.Require().NoError(err)
	return order
}

// placePaidOrder places two widgets (subtotal 200, total 250) and captures payment.
func (s *CoordinatorTestSuite) placePaidOrder(requireOTP bool) string {
	order, err := s.svc.PlaceOrder(s.ctx, buyer, dto.PlaceOrderRequest{
		ShopID:              groceryShop,
		ZoneID:              zoneID,
		Kind:                domain.KindProduct,
		Items:               []dto.PlaceOrderItem{{ProductID: productID, Quantity: 2}},
		RequiresDeliveryOTP: requireOTP,
	})
	s.Require().NoError(err)
	_, err = s.svc.ConfirmPayment(s.ctx, order.OrderID, dto.PaymentConfirmationRequest{ExternalReference: "psp-" + order.OrderID, Amount: money(250)})
	s.Require().NoError(err)
	return order.OrderID
}

// assignToRider1 dispatches the order, broadcasts and lets rider 1 accept.
func (s *CoordinatorTestSuite) assignToRider1(orderID string) {
	_, err := s.svc.DispatchOrder(s.ctx, seller, orderID, domain.PurposeDelivery)
	s.Require().NoError(err)
	s.runDue()
	_, err = s.svc.AcceptOffer(s.ctx, riderActor1, s.offerFor(orderID, rider1).OfferID)
	s.Require().NoError(err)
}

func (s *CoordinatorTestSuite) pickUp(orderID string) {
	_, err := s.svc.UploadProof(s.ctx, riderActor1, orderID, domain.ProofPickup, dto.ProofRequest{PhotoURL: "https://cdn.example.com/pickup.jpg"})
	s.Require().NoError(err)
	_, err = s.svc.MarkPickedUp(s.ctx, riderActor1, orderID)
	s.Require().NoError(err)
}

func (s *CoordinatorTestSuite) deliveredOrder() string {
	orderID := s.placePaidOrder(false)
	s.assignToRider1(orderID)
	s.pickUp(orderID)
	_, err := s.svc.MarkDelivered(s.ctx, riderActor1, orderID, "")
	s.Require().NoError(err)
	return orderID
}

func (s *CoordinatorTestSuite) TestPlaceOrder_FreezesBreakdownAndReservesStock() {
	order, err := s.svc.PlaceOrder(s.ctx, buyer, dto.PlaceOrderRequest{
		ShopID: groceryShop,
		ZoneID: zoneID,
		Kind:   domain.KindProduct,
		Items:  []dto.PlaceOrderItem{{ProductID: productID, Quantity: 3}},
	})
	s.Require().NoError(err)

	s.Equal(domain.OrderPlaced, order.Status)
	s.Equal(domain.PaymentPending, order.PaymentStatus)
	s.True(order.Subtotal.Equal(money(300)))
	s.True(order.Total.Equal(money(350)))
	s.True(order.RiderShare.Equal(money(40)))
	s.Equal(7, s.productStock())
	s.Len(s.recorder.Notifications(sellerUserID), 1)
}

func (s *CoordinatorTestSuite) TestPlaceOrder_Rejections() {
	_, err := s.svc.PlaceOrder(s.ctx, seller, dto.PlaceOrderRequest{ShopID: groceryShop, ZoneID: zoneID, Kind: domain.KindProduct, Items: []dto.PlaceOrderItem{{ProductID: productID, Quantity: 1}}})
	s.ErrorIs(err, apperrors.ErrForbidden)

	_, err = s.svc.PlaceOrder(s.ctx, buyer, dto.PlaceOrderRequest{ShopID: groceryShop, ZoneID: zoneID, Kind: domain.KindProduct})
	s.ErrorIs(err, domain.ErrEmptyOrder)

	_, err = s.svc.PlaceOrder(s.ctx, buyer, dto.PlaceOrderRequest{ShopID: groceryShop, ZoneID: zoneID, Kind: domain.KindProduct, Items: []dto.PlaceOrderItem{{ProductID: productID, Quantity: 11}}})
	s.ErrorIs(err, domain.ErrOutOfStock)
	s.Equal(10, s.productStock())

	_, err = s.svc.PlaceOrder(s.ctx, buyer, dto.PlaceOrderRequest{ShopID: repairShop, ZoneID: zoneID, Kind: domain.KindProduct, Items: []dto.PlaceOrderItem{{ProductID: productID, Quantity: 1}}})
	s.ErrorIs(err, domain.ErrForeignProduct)

	_, err = s.svc.PlaceOrder(s.ctx, buyer, dto.PlaceOrderRequest{ShopID: groceryShop, ZoneID: "zone-unknown", Kind: domain.KindProduct, Items: []dto.PlaceOrderItem{{ProductID: productID, Quantity: 1}}})
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *CoordinatorTestSuite) TestConfirmPayment_HoldsTotalAndIsIdempotent() {
	order, err := s.svc.PlaceOrder(s.ctx, buyer, dto.PlaceOrderRequest{ShopID: groceryShop, ZoneID: zoneID, Kind: domain.KindProduct, Items: []dto.PlaceOrderItem{{ProductID: productID, Quantity: 2}}})
	s.Require().NoError(err)

	_, err = s.svc.ConfirmPayment(s.ctx, order.OrderID, dto.PaymentConfirmationRequest{ExternalReference: "psp-1", Amount: money(10)})
	s.ErrorIs(err, domain.ErrAmountMismatch)

	req := dto.PaymentConfirmationRequest{ExternalReference: "psp-1", Amount: money(250)}
	paid, err := s.svc.ConfirmPayment(s.ctx, order.OrderID, req)
	s.Require().NoError(err)
	s.Equal(domain.OrderPaid, paid.Status)
	s.Equal(domain.PaymentPaid, paid.PaymentStatus)

	again, err := s.svc.ConfirmPayment(s.ctx, order.OrderID, req)
	s.Require().NoError(err)
	s.Equal(domain.OrderPaid, again.Status)

	hold := s.hold(order.OrderID)
	s.Equal(domain.HoldHeld, hold.Status)
	s.True(hold.Amount.Equal(money(250)))
	s.Equal(sellerUserID, hold.SellerID)
	s.assertBalance(buyerUserID, 0)

	page, err := s.svc.ListEntries(s.ctx, buyerUserID, dto.ListEntriesParams{Limit: 10})
	s.Require().NoError(err)
	s.Len(page.Entries, 2)
	s.Len(s.recorder.Events(domain.EventPaymentCaptured), 1)
}

func (s *CoordinatorTestSuite) TestProductFlow_ReleasesSplitsOnConfirmation() {
	orderID := s.deliveredOrder()

	order := s.order(orderID)
	s.Equal(domain.OrderDelivered, order.Status)
	s.Require().NotNil(order.DeliveredAt)
	s.Require().NotNil(order.RiderID)
	s.Equal(rider1, *order.RiderID)

	hold := s.hold(orderID)
	s.Require().NotNil(hold.ExpiresAt)
	s.Equal(s.clk.Now().Add(48*time.Hour), *hold.ExpiresAt)

	_, err := s.svc.ConfirmDelivery(s.ctx, otherBuyer, orderID)
	s.ErrorIs(err, apperrors.ErrForbidden)

	confirmed, err := s.svc.ConfirmDelivery(s.ctx, buyer, orderID)
	s.Require().NoError(err)
	s.Equal(domain.OrderConfirmed, confirmed.Status)

	s.assertBalance(riderUser1, 40)
	s.assertBalance(platformUser, 10)
	s.assertBalance(sellerUserID, 200)
	s.assertBalance(buyerUserID, 0)
	s.Equal(domain.HoldReleased, s.hold(orderID).Status)

	s.withinTx(func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		payout, err := uow.Escrow().FindPayoutByOrderID(ctx, orderID)
		s.Require().NoError(err)
		s.True(payout.Amount.Equal(money(200)))
		s.Equal(sellerUserID, payout.SellerID)

		rider, err := uow.Riders().FindRiderByID(ctx, rider1)
		s.Require().NoError(err)
		s.Equal(domain.RiderAvailable, rider.Status)
		return nil
	})

	// Confirming twice converges on the released hold.
	_, err = s.svc.ConfirmDelivery(s.ctx, buyer, orderID)
	s.Require().NoError(err)
	s.assertBalance(sellerUserID, 200)

	timeline, err := s.svc.GetTimeline(s.ctx, buyer, orderID)
	s.Require().NoError(err)
	s.Len(timeline.StatusHistory, 7)
}

func (s *CoordinatorTestSuite) TestDispatch_RequiresCapturedPayment() {
	order, err := s.svc.PlaceOrder(s.ctx, buyer, dto.PlaceOrderRequest{ShopID: groceryShop, ZoneID: zoneID, Kind: domain.KindProduct, Items: []dto.PlaceOrderItem{{ProductID: productID, Quantity: 1}}})
	s.Require().NoError(err)

	_, err = s.svc.DispatchOrder(s.ctx, seller, order.OrderID, domain.PurposeDelivery)
	s.ErrorIs(err, domain.ErrPaymentNotCaptured)

	_, err = s.svc.DispatchOrder(s.ctx, repairer, order.OrderID, domain.PurposeDelivery)
	s.ErrorIs(err, domain.ErrNotOwner)
}

func (s *CoordinatorTestSuite) TestDispatch_PrivatePoolThenFallback() {
	orderID := s.placePaidOrder(false)
	_, err := s.svc.AcceptOrder(s.ctx, seller, orderID)
	s.Require().NoError(err)

	job, err := s.svc.DispatchOrder(s.ctx, seller, orderID, "")
	s.Require().NoError(err)
	s.Equal(domain.PurposeDelivery, job.Purpose)
	s.Equal(domain.JobPending, job.Status)
	s.Equal(domain.OrderDispatching, s.order(orderID).Status)

	again, err := s.svc.DispatchOrder(s.ctx, seller, orderID, domain.PurposeDelivery)
	s.Require().NoError(err)
	s.Equal(job.JobID, again.JobID)

	s.Equal(1, s.runDue())
	stored, offers := s.job(orderID)
	s.Equal(domain.JobBroadcasting, stored.Status)
	s.Len(offers, 2)

	// The fallback finds the same riders and does not duplicate offers.
	s.clk.Advance(11 * time.Minute)
	s.GreaterOrEqual(s.runDue(), 1)
	_, offers = s.job(orderID)
	s.Len(offers, 2)
}

// placeBakeryOrder places two loaves (subtotal 200, total 250), captures
// payment and dispatches.
func (s *CoordinatorTestSuite) placeBakeryOrder() string {
	order, err := s.svc.PlaceOrder(s.ctx, buyer, dto.PlaceOrderRequest{
		ShopID: bakeryShop,
		ZoneID: northZone,
		Kind:   domain.KindProduct,
		Items:  []dto.PlaceOrderItem{{ProductID: loafID, Quantity: 2}},
	})
	s.Require().NoError(err)
	_, err = s.svc.ConfirmPayment(s.ctx, order.OrderID, dto.PaymentConfirmationRequest{ExternalReference: "psp-" + order.OrderID, Amount: money(250)})
	s.Require().NoError(err)
	_, err = s.svc.DispatchOrder(s.ctx, baker, order.OrderID, domain.PurposeDelivery)
	s.Require().NoError(err)
	return order.OrderID
}

func (s *CoordinatorTestSuite) TestDispatch_EmptyPrivatePoolFallsBackToZone() {
	orderID := s.placeBakeryOrder()

	s.Equal(1, s.runDue())
	job, offers := s.job(orderID)
	s.Empty(offers)
	s.Equal(domain.JobPending, job.Status)

	s.clk.Advance(10 * time.Minute)
	s.Equal(1, s.runDue())
	job, offers = s.job(orderID)
	s.Equal(domain.JobBroadcasting, job.Status)
	s.Require().Len(offers, 2)
	riders := []string{offers[0].RiderID, offers[1].RiderID}
	s.ElementsMatch([]string{rider3, rider4}, riders)
	for _, o := range offers {
		s.Equal(domain.OfferSent, o.Status)
	}
}

func (s *CoordinatorTestSuite) TestRelease_ClampsSellerWhenFeesExceedDeliveryFee() {
	orderID := s.placeBakeryOrder()
	s.clk.Advance(10 * time.Minute)
	s.runDue()

	_, err := s.svc.AcceptOffer(s.ctx, riderActor3, s.offerFor(orderID, rider3).OfferID)
	s.Require().NoError(err)
	_, err = s.svc.UploadProof(s.ctx, riderActor3, orderID, domain.ProofPickup, dto.ProofRequest{PhotoURL: "https://cdn.example.com/loaf.jpg"})
	s.Require().NoError(err)
	_, err = s.svc.MarkPickedUp(s.ctx, riderActor3, orderID)
	s.Require().NoError(err)
	_, err = s.svc.MarkDelivered(s.ctx, riderActor3, orderID, "")
	s.Require().NoError(err)

	_, err = s.svc.ConfirmDelivery(s.ctx, buyer, orderID)
	s.Require().NoError(err)

	// 250 held: rider 40 and platform 30 come first, the seller absorbs the gap.
	s.assertBalance(riderUser3, 40)
	s.assertBalance(platformUser, 30)
	s.assertBalance(bakerID, 180)
	s.assertBalance(buyerUserID, 0)
	s.withinTx(func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		payout, err := uow.Escrow().FindPayoutByOrderID(ctx, orderID)
		s.Require().NoError(err)
		s.True(payout.Amount.Equal(money(180)))
		return nil
	})
}

func (s *CoordinatorTestSuite) TestAcceptOffer_ConcurrentRidersOnlyOneWins() {
	orderID := s.placePaidOrder(false)
	_, err := s.svc.DispatchOrder(s.ctx, seller, orderID, domain.PurposeDelivery)
	s.Require().NoError(err)
	s.runDue()

	offer1 := s.offerFor(orderID, rider1)
	offer2 := s.offerFor(orderID, rider2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, attempt := range []struct {
		actor   domain.Actor
		offerID string
	}{{riderActor1, offer1.OfferID}, {riderActor2, offer2.OfferID}} {
		i, attempt := i, attempt
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.svc.AcceptOffer(s.ctx, attempt.actor, attempt.offerID)
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		s.ErrorIs(err, apperrors.ErrConflict)
	}
	s.Equal(1, wins)

	job, offers := s.job(orderID)
	s.Equal(domain.JobAssigned, job.Status)
	accepted := 0
	for _, o := range offers {
		if o.Status == domain.OfferAccepted {
			accepted++
			s.Equal(*job.AssignedRiderID, o.RiderID)
		}
	}
	s.Equal(1, accepted)
	s.Equal(domain.OrderAssignedToRider, s.order(orderID).Status)
}

func (s *CoordinatorTestSuite) TestAcceptOffer_WrongRiderIsForbidden() {
	orderID := s.placePaidOrder(false)
	_, err := s.svc.DispatchOrder(s.ctx, seller, orderID, domain.PurposeDelivery)
	s.Require().NoError(err)
	s.runDue()

	_, err = s.svc.AcceptOffer(s.ctx, riderActor2, s.offerFor(orderID, rider1).OfferID)
	s.ErrorIs(err, domain.ErrNotOwner)

	declined, err := s.svc.DeclineOffer(s.ctx, riderActor2, s.offerFor(orderID, rider2).OfferID)
	s.Require().NoError(err)
	s.Equal(domain.OfferDeclined, declined.Status)

	_, err = s.svc.AcceptOffer(s.ctx, riderActor2, declined.OfferID)
	s.ErrorIs(err, domain.ErrOfferNotPending)
}

func (s *CoordinatorTestSuite) TestMarkPickedUp_RequiresPickupProof() {
	orderID := s.placePaidOrder(false)
	s.assignToRider1(orderID)

	_, err := s.svc.MarkPickedUp(s.ctx, riderActor1, orderID)
	s.ErrorIs(err, domain.ErrMissingProof)

	_, err = s.svc.MarkPickedUp(s.ctx, riderActor2, orderID)
	s.ErrorIs(err, domain.ErrNotAssigned)

	_, err = s.svc.UploadProof(s.ctx, riderActor1, orderID, domain.ProofDelivery, dto.ProofRequest{PhotoURL: "https://cdn.example.com/early.jpg"})
	s.ErrorIs(err, domain.ErrInvalidTransition)

	s.pickUp(orderID)
	s.Equal(domain.OrderPickedUp, s.order(orderID).Status)
}

func (s *CoordinatorTestSuite) TestMarkDelivered_ChecksOTP() {
	orderID := s.placePaidOrder(true)
	s.assignToRider1(orderID)
	s.pickUp(orderID)

	sent, ok := s.recorder.LastOTP(orderID)
	s.Require().True(ok)
	s.Equal(buyerUserID, sent.UserID)
	s.NotEmpty(sent.Code)

	_, err := s.svc.MarkDelivered(s.ctx, riderActor1, orderID, "not-the-code")
	s.ErrorIs(err, domain.ErrInvalidOTP)

	delivered, err := s.svc.MarkDelivered(s.ctx, riderActor1, orderID, sent.Code)
	s.Require().NoError(err)
	s.Equal(domain.OrderDelivered, delivered.Status)
	s.Empty(delivered.DeliveryOTPHash)
}

func (s *CoordinatorTestSuite) TestMarkDelivered_ExpiredOTP() {
	orderID := s.placePaidOrder(true)
	s.assignToRider1(orderID)
	s.pickUp(orderID)
	sent, ok := s.recorder.LastOTP(orderID)
	s.Require().True(ok)

	s.clk.Advance(3 * time.Hour)
	_, err := s.svc.MarkDelivered(s.ctx, riderActor1, orderID, sent.Code)
	s.ErrorIs(err, domain.ErrInvalidOTP)
}

func (s *CoordinatorTestSuite) TestAutoRelease_RunsAfterDeadline() {
	orderID := s.deliveredOrder()

	// Early delivery of the task reschedules it.
	s.Require().NoError(s.container.Tasks.HandleTask(s.ctx, domain.ScheduledTask{Kind: domain.TaskEscrowAutoRelease, OrderID: orderID, RunAt: s.clk.Now()}))
	s.Equal(domain.OrderDelivered, s.order(orderID).Status)

	s.clk.Advance(time.Hour)
	s.runDue()
	s.Equal(domain.OrderDelivered, s.order(orderID).Status)

	s.clk.Advance(48 * time.Hour)
	s.GreaterOrEqual(s.runDue(), 1)
	s.Equal(domain.OrderConfirmed, s.order(orderID).Status)
	s.assertBalance(sellerUserID, 200)
	s.Empty(s.sched.Pending())
}

func (s *CoordinatorTestSuite) TestAdminPause_BlocksBroadcastUntilResumed() {
	orderID := s.placePaidOrder(false)
	_, err := s.svc.DispatchOrder(s.ctx, seller, orderID, domain.PurposeDelivery)
	s.Require().NoError(err)

	_, err = s.svc.SetAdminPause(s.ctx, seller, orderID, true, "fraud check")
	s.ErrorIs(err, apperrors.ErrForbidden)
	paused, err := s.svc.SetAdminPause(s.ctx, admin, orderID, true, "fraud check")
	s.Require().NoError(err)
	s.True(paused.IsPaused())

	s.runDue()
	job, offers := s.job(orderID)
	s.Equal(domain.JobPending, job.Status)
	s.Empty(offers)

	_, err = s.svc.SetAdminPause(s.ctx, admin, orderID, false, "")
	s.Require().NoError(err)
	s.runDue()
	_, offers = s.job(orderID)
	s.Len(offers, 2)
}

func (s *CoordinatorTestSuite) TestAdminPause_HaltsRiderProgress() {
	orderID := s.placePaidOrder(false)
	s.assignToRider1(orderID)
	_, err := s.svc.UploadProof(s.ctx, riderActor1, orderID, domain.ProofPickup, dto.ProofRequest{PhotoURL: "https://cdn.example.com/pickup.jpg"})
	s.Require().NoError(err)

	_, err = s.svc.SetAdminPause(s.ctx, admin, orderID, true, "address check")
	s.Require().NoError(err)

	_, err = s.svc.MarkPickedUp(s.ctx, riderActor1, orderID)
	s.ErrorIs(err, domain.ErrOrderPaused)
	_, err = s.svc.Cancel(s.ctx, riderActor1, orderID, "flat tyre")
	s.ErrorIs(err, domain.ErrOrderPaused)
	s.Equal(domain.OrderAssignedToRider, s.order(orderID).Status)

	_, err = s.svc.SetAdminPause(s.ctx, admin, orderID, false, "")
	s.Require().NoError(err)
	s.pickUp(orderID)

	_, err = s.svc.SetAdminPause(s.ctx, admin, orderID, true, "address check")
	s.Require().NoError(err)
	_, err = s.svc.MarkDelivered(s.ctx, riderActor1, orderID, "")
	s.ErrorIs(err, domain.ErrOrderPaused)
	s.Equal(domain.OrderPickedUp, s.order(orderID).Status)
}

func (s *CoordinatorTestSuite) TestCancel_BuyerRefundsAndRestocks() {
	orderID := s.placePaidOrder(false)
	s.Equal(8, s.productStock())

	cancelled, err := s.svc.Cancel(s.ctx, buyer, orderID, "changed my mind")
	s.Require().NoError(err)
	s.Equal(domain.OrderCancelled, cancelled.Status)
	s.Equal(domain.PaymentRefunded, cancelled.PaymentStatus)
	s.Equal(domain.HoldRefunded, s.hold(orderID).Status)
	s.assertBalance(buyerUserID, 250)
	s.Equal(10, s.productStock())
	s.Len(s.recorder.Notifications(sellerUserID), 2)

	again, err := s.svc.Cancel(s.ctx, buyer, orderID, "changed my mind")
	s.Require().NoError(err)
	s.Equal(domain.OrderCancelled, again.Status)
	s.Equal(10, s.productStock())

	// A cancelled order is not handed to callers outside it.
	for _, stranger := range []domain.Actor{otherBuyer, repairer, riderActor1, admin} {
		got, err := s.svc.Cancel(s.ctx, stranger, orderID, "replay")
		s.ErrorIs(err, apperrors.ErrForbidden, "actor %s", stranger.UserID)
		s.Nil(got)
	}
	fromSeller, err := s.svc.Cancel(s.ctx, seller, orderID, "replay")
	s.Require().NoError(err)
	s.Equal(domain.OrderCancelled, fromSeller.Status)
}

func (s *CoordinatorTestSuite) TestCancel_UnpaidOrderBySeller() {
	order, err := s.svc.PlaceOrder(s.ctx, buyer, dto.PlaceOrderRequest{ShopID: groceryShop, ZoneID: zoneID, Kind: domain.KindProduct, Items: []dto.PlaceOrderItem{{ProductID: productID, Quantity: 1}}})
	s.Require().NoError(err)

	_, err = s.svc.Cancel(s.ctx, repairer, order.OrderID, "not mine")
	s.ErrorIs(err, domain.ErrNotOwner)

	cancelled, err := s.svc.Cancel(s.ctx, seller, order.OrderID, "out of widgets")
	s.Require().NoError(err)
	s.Equal(domain.OrderCancelled, cancelled.Status)
	s.Equal(10, s.productStock())
	s.Len(s.recorder.Notifications(buyerUserID), 1)
}

func (s *CoordinatorTestSuite) TestCancel_BuyerRejectedOnceDispatching() {
	orderID := s.placePaidOrder(false)
	_, err := s.svc.DispatchOrder(s.ctx, seller, orderID, domain.PurposeDelivery)
	s.Require().NoError(err)

	_, err = s.svc.Cancel(s.ctx, buyer, orderID, "too slow")
	s.ErrorIs(err, domain.ErrInvalidTransition)
	s.Equal(domain.HoldHeld, s.hold(orderID).Status)
}

func (s *CoordinatorTestSuite) TestCancel_RiderReopensOffersAndPaysPenalty() {
	_, err := s.svc.TopUp(s.ctx, riderUser1, dto.TopUpRequest{ExternalReference: "bank-1", Amount: money(20)})
	s.Require().NoError(err)

	orderID := s.placePaidOrder(false)
	s.assignToRider1(orderID)

	_, err = s.svc.Cancel(s.ctx, riderActor2, orderID, "not mine")
	s.ErrorIs(err, domain.ErrNotAssigned)

	order, err := s.svc.Cancel(s.ctx, riderActor1, orderID, "flat tyre")
	s.Require().NoError(err)
	s.Equal(domain.OrderDispatching, order.Status)
	s.Nil(order.RiderID)
	s.assertBalance(riderUser1, 15)

	job, offers := s.job(orderID)
	s.Equal(domain.JobBroadcasting, job.Status)
	s.Nil(job.AssignedRiderID)
	for _, o := range offers {
		switch o.RiderID {
		case rider1:
			s.Equal(domain.OfferExpired, o.Status)
		case rider2:
			s.Equal(domain.OfferSent, o.Status)
		}
	}

	s.withinTx(func(ctx context.Context, uow portsrepo.UnitOfWork) error {
		count, err := uow.Cancellations().CountRiderCancellations(ctx, orderID, rider1)
		s.Require().NoError(err)
		s.Equal(1, count)
		return nil
	})

	_, err = s.svc.AcceptOffer(s.ctx, riderActor2, s.offerFor(orderID, rider2).OfferID)
	s.Require().NoError(err)
	s.Equal(domain.OrderAssignedToRider, s.order(orderID).Status)
}

func (s *CoordinatorTestSuite) TestCancel_RiderWithoutFundsRecordsZeroPenalty() {
	orderID := s.placePaidOrder(false)
	s.assignToRider1(orderID)

	_, err := s.svc.Cancel(s.ctx, riderActor1, orderID, "flat tyre")
	s.Require().NoError(err)
	s.assertBalance(riderUser1, 0)
}

func (s *CoordinatorTestSuite) TestDispute_RaiseFreezesHold() {
	orderID := s.deliveredOrder()

	_, err := s.svc.RaiseDispute(s.ctx, otherBuyer, orderID, "broken")
	s.ErrorIs(err, apperrors.ErrForbidden)

	dispute, err := s.svc.RaiseDispute(s.ctx, buyer, orderID, "broken")
	s.Require().NoError(err)
	s.Equal(domain.DisputeOpen, dispute.Status)
	s.Equal(domain.OrderDisputed, s.order(orderID).Status)
	s.Equal(domain.HoldFrozen, s.hold(orderID).Status)

	_, err = s.svc.RaiseDispute(s.ctx, buyer, orderID, "still broken")
	s.ErrorIs(err, domain.ErrDisputeAlreadyRaised)

	// A frozen hold is not released by the scheduler.
	s.clk.Advance(49 * time.Hour)
	s.runDue()
	s.Equal(domain.OrderDisputed, s.order(orderID).Status)
	s.assertBalance(sellerUserID, 0)
}

func (s *CoordinatorTestSuite) TestDispute_WindowClosed() {
	orderID := s.deliveredOrder()
	s.clk.Advance(48 * time.Hour)

	_, err := s.svc.RaiseDispute(s.ctx, buyer, orderID, "late")
	s.ErrorIs(err, domain.ErrDisputeWindowClosed)
}

func (s *CoordinatorTestSuite) TestResolveDispute_PaySeller() {
	orderID := s.deliveredOrder()
	dispute, err := s.svc.RaiseDispute(s.ctx, buyer, orderID, "broken")
	s.Require().NoError(err)

	_, err = s.svc.ResolveDispute(s.ctx, seller, dispute.DisputeID, dto.ResolveDisputeRequest{Resolution: domain.ResolutionPaySeller})
	s.ErrorIs(err, apperrors.ErrForbidden)

	resolved, err := s.svc.ResolveDispute(s.ctx, admin, dispute.DisputeID, dto.ResolveDisputeRequest{Resolution: domain.ResolutionPaySeller, Note: "photos show intact item"})
	s.Require().NoError(err)
	s.Equal(domain.DisputeResolved, resolved.Status)
	s.Require().NotNil(resolved.Resolution)
	s.Equal(domain.ResolutionPaySeller, *resolved.Resolution)
	s.Equal(domain.OrderConfirmed, s.order(orderID).Status)
	s.assertBalance(sellerUserID, 200)
	s.assertBalance(riderUser1, 40)

	again, err := s.svc.ResolveDispute(s.ctx, admin, dispute.DisputeID, dto.ResolveDisputeRequest{Resolution: domain.ResolutionRefundBuyer})
	s.Require().NoError(err)
	s.Equal(domain.ResolutionPaySeller, *again.Resolution)
	s.assertBalance(buyerUserID, 0)
}

func (s *CoordinatorTestSuite) TestResolveDispute_RefundPenalizesSeller() {
	_, err := s.svc.TopUp(s.ctx, sellerUserID, dto.TopUpRequest{ExternalReference: "bank-s", Amount: money(30)})
	s.Require().NoError(err)
	orderID := s.deliveredOrder()
	dispute, err := s.svc.RaiseDispute(s.ctx, buyer, orderID, "wrong item")
	s.Require().NoError(err)

	_, err = s.svc.ResolveDispute(s.ctx, admin, dispute.DisputeID, dto.ResolveDisputeRequest{Resolution: domain.ResolutionRefundBuyerPenalizeSell})
	s.Require().NoError(err)

	order := s.order(orderID)
	s.Equal(domain.OrderCancelled, order.Status)
	s.Equal(domain.PaymentRefunded, order.PaymentStatus)
	s.Equal(domain.HoldRefunded, s.hold(orderID).Status)
	s.assertBalance(buyerUserID, 250)
	s.assertBalance(sellerUserID, 20)
	s.assertBalance(riderUser1, 0)
	s.Equal(10, s.productStock())
}

func (s *CoordinatorTestSuite) TestResolveDispute_PartialRefund() {
	orderID := s.deliveredOrder()
	dispute, err := s.svc.RaiseDispute(s.ctx, buyer, orderID, "one widget broken")
	s.Require().NoError(err)

	tooMuch := money(300)
	_, err = s.svc.ResolveDispute(s.ctx, admin, dispute.DisputeID, dto.ResolveDisputeRequest{Resolution: domain.ResolutionPartialRefund, RefundAmount: &tooMuch})
	s.ErrorIs(err, domain.ErrInvalidRefund)

	_, err = s.svc.ResolveDispute(s.ctx, admin, dispute.DisputeID, dto.ResolveDisputeRequest{Resolution: domain.ResolutionPartialRefund})
	s.ErrorIs(err, domain.ErrInvalidRefund)

	amount := money(100)
	resolved, err := s.svc.ResolveDispute(s.ctx, admin, dispute.DisputeID, dto.ResolveDisputeRequest{Resolution: domain.ResolutionPartialRefund, RefundAmount: &amount})
	s.Require().NoError(err)
	s.Require().NotNil(resolved.RefundAmount)
	s.True(resolved.RefundAmount.Equal(amount))

	s.Equal(domain.OrderConfirmed, s.order(orderID).Status)
	s.assertBalance(buyerUserID, 100)
	s.assertBalance(riderUser1, 40)
	s.assertBalance(platformUser, 10)
	s.assertBalance(sellerUserID, 100)
}

func (s *CoordinatorTestSuite) placeRepairOrder() string {
	order, err := s.svc.PlaceOrder(s.ctx, buyer, dto.PlaceOrderRequest{ShopID: repairShop, ZoneID: zoneID, Kind: domain.KindService})
	s.Require().NoError(err)
	s.True(order.Total.Equal(money(50)))

	started, err := s.svc.StartWorkflow(s.ctx, repairer, order.OrderID, domain.ETA{})
	s.Require().NoError(err)
	s.Equal(domain.WorkflowInProgress, started.WorkflowState)
	for _, key := range []string{"diagnosing", domain.StepKeyQuoteApproval} {
		_, err = s.svc.AdvanceWorkflow(s.ctx, repairer, order.OrderID, key, domain.ETA{})
		s.Require().NoError(err)
	}
	return order.OrderID
}

func (s *CoordinatorTestSuite) TestRepairFlow_QuoteGatesRepairAndDispatch() {
	orderID := s.placeRepairOrder()
	s.Equal(domain.WorkflowBlocked, s.order(orderID).WorkflowState)

	_, err := s.svc.AdvanceWorkflow(s.ctx, repairer, orderID, domain.StepKeyRepairing, domain.ETA{})
	s.ErrorIs(err, domain.ErrQuoteNotApproved)

	_, err = s.svc.AdvanceWorkflow(s.ctx, repairer, orderID, "completed", domain.ETA{})
	s.ErrorIs(err, domain.ErrStepNotAllowed)

	_, err = s.svc.SendQuote(s.ctx, seller, orderID, money(300), "screen")
	s.ErrorIs(err, domain.ErrNotOwner)

	quoted, err := s.svc.SendQuote(s.ctx, repairer, orderID, money(300), "new screen")
	s.Require().NoError(err)
	s.Equal(domain.QuotePending, quoted.QuoteStatus)

	// Approval moves the quoted total into escrow, so the wallet must cover it.
	_, err = s.svc.ApproveQuote(s.ctx, buyer, orderID)
	s.ErrorIs(err, apperrors.ErrInsufficientFunds)
	s.Equal(domain.QuotePending, s.order(orderID).QuoteStatus)

	_, err = s.svc.TopUp(s.ctx, buyerUserID, dto.TopUpRequest{ExternalReference: "card-1", Amount: money(350)})
	s.Require().NoError(err)
	approved, err := s.svc.ApproveQuote(s.ctx, buyer, orderID)
	s.Require().NoError(err)
	s.Equal(domain.QuoteApproved, approved.QuoteStatus)
	s.Equal(domain.OrderPaid, approved.Status)
	s.Equal(domain.WorkflowInProgress, approved.WorkflowState)
	s.True(approved.Total.Equal(money(350)))
	s.True(s.hold(orderID).Amount.Equal(money(350)))
	s.assertBalance(buyerUserID, 0)

	eta := 30
	_, err = s.svc.AdvanceWorkflow(s.ctx, repairer, orderID, domain.StepKeyRepairing, domain.ETA{MinMinutes: &eta})
	s.Require().NoError(err)
	ready, err := s.svc.AdvanceWorkflow(s.ctx, repairer, orderID, "ready_for_delivery", domain.ETA{})
	s.Require().NoError(err)
	s.Equal(domain.WorkflowReady, ready.WorkflowState)
	s.Equal(domain.OrderDispatching, ready.Status)
	s.Require().NotNil(ready.EtaMinMinutes)
	s.Equal(30, *ready.EtaMinMinutes)

	_, err = s.svc.Cancel(s.ctx, buyer, orderID, "too slow")
	s.ErrorIs(err, domain.ErrPastDispatchTrigger)

	next, err := s.svc.NextSteps(s.ctx, repairer, orderID)
	s.Require().NoError(err)
	s.Require().Len(next, 1)
	s.Equal("completed", next[0].Key)

	timeline, err := s.svc.GetTimeline(s.ctx, repairer, orderID)
	s.Require().NoError(err)
	s.Len(timeline.WorkflowEvents, 5)
}

func (s *CoordinatorTestSuite) TestRepairFlow_RejectedQuoteStaysBlocked() {
	orderID := s.placeRepairOrder()
	_, err := s.svc.SendQuote(s.ctx, repairer, orderID, money(300), "new screen")
	s.Require().NoError(err)

	rejected, err := s.svc.RejectQuote(s.ctx, buyer, orderID)
	s.Require().NoError(err)
	s.Equal(domain.QuoteRejected, rejected.QuoteStatus)
	s.Equal(domain.WorkflowBlocked, rejected.WorkflowState)

	_, err = s.svc.ApproveQuote(s.ctx, buyer, orderID)
	s.ErrorIs(err, domain.ErrQuoteNotPending)

	cancelled, err := s.svc.Cancel(s.ctx, buyer, orderID, "too expensive")
	s.Require().NoError(err)
	s.Equal(domain.OrderCancelled, cancelled.Status)
}

func (s *CoordinatorTestSuite) TestSendQuote_OnlyForRepairServices() {
	orderID := s.placePaidOrder(false)
	_, err := s.svc.SendQuote(s.ctx, seller, orderID, money(10), "")
	s.ErrorIs(err, domain.ErrQuoteNotSupported)
}

func (s *CoordinatorTestSuite) TestWorkflow_AdvanceBeforeStart() {
	order, err := s.svc.PlaceOrder(s.ctx, buyer, dto.PlaceOrderRequest{ShopID: repairShop, ZoneID: zoneID, Kind: domain.KindService})
	s.Require().NoError(err)

	_, err = s.svc.AdvanceWorkflow(s.ctx, repairer, order.OrderID, "diagnosing", domain.ETA{})
	s.ErrorIs(err, domain.ErrWorkflowNotStarted)

	steps, err := s.svc.NextSteps(s.ctx, repairer, order.OrderID)
	s.Require().NoError(err)
	s.Empty(steps)
}

func (s *CoordinatorTestSuite) TestTopUp_IdempotentByReference() {
	_, err := s.svc.GetAccount(s.ctx, buyerUserID)
	s.ErrorIs(err, apperrors.ErrNotFound)

	first, err := s.svc.TopUp(s.ctx, buyerUserID, dto.TopUpRequest{ExternalReference: "card-9", Amount: money(100)})
	s.Require().NoError(err)
	second, err := s.svc.TopUp(s.ctx, buyerUserID, dto.TopUpRequest{ExternalReference: "card-9", Amount: money(100)})
	s.Require().NoError(err)

	s.Equal(first.EntryID, second.EntryID)
	s.assertBalance(buyerUserID, 100)
}

func (s *CoordinatorTestSuite) TestListEntries_PagesNewestFirst() {
	for i, ref := range []string{"r1", "r2", "r3", "r4", "r5"} {
		_, err := s.svc.TopUp(s.ctx, buyerUserID, dto.TopUpRequest{ExternalReference: ref, Amount: money(int64(i + 1))})
		s.Require().NoError(err)
		s.clk.Advance(time.Minute)
	}

	seen := []int64{}
	token := ""
	pages := 0
	for {
		page, err := s.svc.ListEntries(s.ctx, buyerUserID, dto.ListEntriesParams{Limit: 2, NextToken: token})
		s.Require().NoError(err)
		pages++
		for _, e := range page.Entries {
			seen = append(seen, e.Amount.IntPart())
		}
		if page.NextToken == nil {
			break
		}
		token = *page.NextToken
	}
	s.Equal(3, pages)
	s.Equal([]int64{5, 4, 3, 2, 1}, seen)

	_, err := s.svc.ListEntries(s.ctx, buyerUserID, dto.ListEntriesParams{Limit: 2, NextToken: "%%%"})
	s.ErrorIs(err, apperrors.ErrValidation)
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorTestSuite))
}
