package services

import (
	"context"
	"errors"

	"github.com/SscSPs/fulfillment_coordinator/internal/apperrors"
	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portsrepo "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/repositories"
)

func requireBuyer(actor domain.Actor, order *domain.Order) error {
	if actor.Role != domain.RoleBuyer {
		return domain.ErrRoleNotAllowed
	}
	if order.BuyerID != actor.UserID {
		return domain.ErrNotOwner
	}
	return nil
}

// requireSeller returns the order's shop when actor owns it.
func requireSeller(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, order *domain.Order) (*domain.Shop, error) {
	if actor.Role != domain.RoleSeller {
		return nil, domain.ErrRoleNotAllowed
	}
	shop, err := uow.Shops().FindShopByID(ctx, order.ShopID)
	if err != nil {
		return nil, err
	}
	if shop.SellerID != actor.UserID {
		return nil, domain.ErrNotOwner
	}
	return shop, nil
}

func requireRider(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor) (*domain.Rider, error) {
	if actor.Role != domain.RoleRider {
		return nil, domain.ErrRoleNotAllowed
	}
	rider, err := uow.Riders().FindRiderByUserID(ctx, actor.UserID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, domain.ErrNotOwner
	}
	return rider, err
}

func requireAdmin(actor domain.Actor) error {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleSystem {
		return domain.ErrRoleNotAllowed
	}
	return nil
}

// canView reports whether actor is a party to the order.
func canView(ctx context.Context, uow portsrepo.UnitOfWork, actor domain.Actor, order *domain.Order) error {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSystem:
		return nil
	case domain.RoleBuyer:
		return requireBuyer(actor, order)
	case domain.RoleSeller:
		_, err := requireSeller(ctx, uow, actor, order)
		return err
	case domain.RoleRider:
		rider, err := requireRider(ctx, uow, actor)
		if err != nil {
			return err
		}
		if !order.HasRider() || *order.RiderID != rider.RiderID {
			return domain.ErrNotAssigned
		}
		return nil
	default:
		return domain.ErrRoleNotAllowed
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
