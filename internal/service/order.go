package service

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/inkpress/inkpress/internal/api/dto"
	"github.com/inkpress/inkpress/internal/domain/order"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/integration/stripe"
	"github.com/inkpress/inkpress/internal/types"
)

// OrderService settles orders. Fulfillment and refund both run their
// mutations in one transaction: status, inventory and entitlements move
// together or not at all.
type OrderService interface {
	GetOrder(ctx context.Context, id string) (*dto.OrderResponse, error)
	ListOrders(ctx context.Context, filter *order.Filter) (*dto.ListOrdersResponse, error)
	// FulfillOrder completes a paid order: pending -> completed, inventory
	// decremented, purchase entitlements granted. A replay against an
	// already completed order returns an invalid-operation error the caller
	// treats as "nothing to do".
	FulfillOrder(ctx context.Context, orderID, paymentIntentID, customerEmail string) error
	FailOrder(ctx context.Context, orderID string) error
	// RefundOrder refunds a completed order at the provider, restores its
	// inventory and revokes its purchase entitlements.
	RefundOrder(ctx context.Context, orderID string, req *dto.RefundOrderRequest) (*dto.OrderResponse, error)
}

type orderService struct {
	ServiceParams
	inventory   InventoryService
	entitlement EntitlementService
}

func NewOrderService(params ServiceParams) OrderService {
	return &orderService{
		ServiceParams: params,
		inventory:     NewInventoryService(params),
		entitlement:   NewEntitlementService(params),
	}
}

func (s *orderService) GetOrder(ctx context.Context, id string) (*dto.OrderResponse, error) {
	o, err := s.OrderRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewOrderResponse(o), nil
}

func (s *orderService) ListOrders(ctx context.Context, filter *order.Filter) (*dto.ListOrdersResponse, error) {
	if filter == nil {
		filter = order.NewFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	orders, err := s.OrderRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(orders, func(o *order.Order, _ int) *dto.OrderResponse {
		return dto.NewOrderResponse(o)
	})
	resp := dto.ListOrdersResponse{Items: items}
	resp.Pagination.Limit = filter.GetLimit()
	resp.Pagination.Offset = filter.GetOffset()
	resp.Pagination.Total = len(items)
	return &resp, nil
}

func (s *orderService) FulfillOrder(ctx context.Context, orderID, paymentIntentID, customerEmail string) error {
	return s.DB.WithTx(ctx, func(ctx context.Context) error {
		// Serialize settlement per order: a concurrent duplicate delivery
		// blocks here and then reads the already-completed row.
		if err := s.DB.LockKey(ctx, types.LockRequest{Scope: types.LockScopeOrder, ID: orderID}); err != nil {
			return err
		}
		o, err := s.OrderRepo.Get(ctx, orderID)
		if err != nil {
			return err
		}

		// The status machine rejects completed -> completed, which is what
		// makes a replayed webhook a no-op.
		if err := o.TransitionTo(types.OrderStatusCompleted); err != nil {
			return err
		}

		for _, li := range o.LineItems {
			if _, err := s.inventory.Adjust(ctx, li.PriceID, -int64(li.Quantity), types.MovementReasonOrderFulfillment, o.ID); err != nil {
				return err
			}
		}

		if paymentIntentID != "" {
			o.ProviderPaymentIntentID = paymentIntentID
		}
		if o.CustomerEmail == "" && customerEmail != "" {
			o.CustomerEmail = customerEmail
		}
		if err := s.OrderRepo.Update(ctx, o); err != nil {
			return err
		}

		return s.grantPurchaseEntitlements(ctx, o)
	})
}

func (s *orderService) grantPurchaseEntitlements(ctx context.Context, o *order.Order) error {
	if o.UserID == "" {
		// Guest purchases have no account to attach grants to; access is
		// delivered out of band (download link on the receipt).
		s.Logger.Infow("guest order completed without entitlements", "order_id", o.ID)
		return nil
	}
	for _, li := range o.LineItems {
		p, err := s.PriceRepo.Get(ctx, li.PriceID)
		if err != nil {
			return err
		}
		// Recurring lines are entitled through their subscription, not the
		// order that started it.
		if p.IsRecurring() {
			continue
		}
		prod, err := s.ProductRepo.Get(ctx, li.ProductID)
		if err != nil {
			return err
		}
		workIDs, err := s.entitlement.WorksForProduct(ctx, prod)
		if err != nil {
			return err
		}
		for _, workID := range workIDs {
			if _, err := s.entitlement.Grant(ctx, o.UserID, workID, types.EntitlementSourcePurchase, o.ID, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *orderService) FailOrder(ctx context.Context, orderID string) error {
	o, err := s.OrderRepo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if err := o.TransitionTo(types.OrderStatusFailed); err != nil {
		return err
	}
	return s.OrderRepo.Update(ctx, o)
}

func (s *orderService) RefundOrder(ctx context.Context, orderID string, req *dto.RefundOrderRequest) (*dto.OrderResponse, error) {
	o, err := s.OrderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.OrderStatus != types.OrderStatusCompleted {
		return nil, ierr.NewErrorf("order %s cannot be refunded from status %s", o.ID, o.OrderStatus).
			WithHint("Only completed orders can be refunded").
			Mark(ierr.ErrInvalidOperation)
	}
	if o.ProviderPaymentIntentID == "" {
		return nil, ierr.NewErrorf("order %s has no provider payment to refund", o.ID).
			WithHint("Order has no refundable payment").
			Mark(ierr.ErrInvalidOperation)
	}

	reason := ""
	if req != nil {
		reason = req.Reason
	}

	// The provider call happens outside the transaction. If the local
	// mutations fail afterwards the refund stands and a retry finds the
	// order already refundable-but-refunded at the provider; the
	// idempotency key makes the second provider call a no-op.
	if _, err := s.Gateway.Refund(ctx, &stripe.RefundRequest{
		PaymentIntentID: o.ProviderPaymentIntentID,
		Currency:        o.Currency,
		Reason:          reason,
		IdempotencyKey:  fmt.Sprintf("refund-%s", o.ID),
	}); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.DB.LockKey(ctx, types.LockRequest{Scope: types.LockScopeOrder, ID: o.ID}); err != nil {
			return err
		}
		if err := o.TransitionTo(types.OrderStatusRefunded); err != nil {
			return err
		}
		if err := s.OrderRepo.Update(ctx, o); err != nil {
			return err
		}
		if err := s.inventory.RestoreForOrder(ctx, o.ID); err != nil {
			return err
		}
		return s.entitlement.RevokeBySource(ctx, types.EntitlementSourcePurchase, o.ID)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("refunded order", "order_id", o.ID, "total", o.Total)
	return dto.NewOrderResponse(o), nil
}
