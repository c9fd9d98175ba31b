package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/inkpress/inkpress/internal/api/dto"
	"github.com/inkpress/inkpress/internal/config"
	"github.com/inkpress/inkpress/internal/domain/order"
	"github.com/inkpress/inkpress/internal/domain/price"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/integration/stripe"
	"github.com/inkpress/inkpress/internal/types"
)

// CheckoutService turns a validated cart into a provider checkout session.
// The local order is created pending before the provider call, so a
// completed webhook always finds an order to settle; what happens to the
// pending order when the provider call fails is configurable.
type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, req *dto.CreateCheckoutSessionRequest) (*dto.CheckoutSessionResponse, error)
}

type checkoutService struct {
	ServiceParams
	inventory InventoryService
	price     PriceService
}

func NewCheckoutService(params ServiceParams) CheckoutService {
	return &checkoutService{
		ServiceParams: params,
		inventory:     NewInventoryService(params),
		price:         NewPriceService(params),
	}
}

// cartLine is one resolved cart line with its price loaded.
type cartLine struct {
	price    *price.Price
	quantity int
}

func (s *checkoutService) CreateCheckoutSession(ctx context.Context, req *dto.CreateCheckoutSessionRequest) (*dto.CheckoutSessionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lines, subscriptionMode, err := s.resolveCart(ctx, req)
	if err != nil {
		return nil, err
	}
	if subscriptionMode && req.UserID == "" {
		return nil, ierr.NewError("subscription checkout requires a signed-in user").
			WithHint("Sign in to subscribe").
			Mark(ierr.ErrValidation)
	}
	if subscriptionMode {
		if err := s.checkNoEntitlingSubscription(ctx, req.UserID, lines[0].price.ProductID); err != nil {
			return nil, err
		}
	}

	// Fail fast on stock before touching the provider. The authoritative
	// check still happens at fulfillment, under the variant lock.
	for _, l := range lines {
		if l.price.InventoryPolicy != types.InventoryPolicyDeny {
			continue
		}
		ok, err := s.inventory.CheckAvailable(ctx, l.price.ID, int64(l.quantity))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ierr.NewErrorf("insufficient stock for price %s", l.price.ID).
				WithHint("Not enough stock available").
				WithReportableDetails(map[string]any{"price_id": l.price.ID}).
				Mark(ierr.ErrOutOfStock)
		}
	}

	// Provider prices are synced lazily on first checkout.
	providerLines := make([]stripe.CheckoutLineItem, 0, len(lines))
	for _, l := range lines {
		if l.price.ProviderPriceID == "" {
			resp, err := s.price.SyncPriceToProvider(ctx, l.price.ID)
			if err != nil {
				return nil, err
			}
			l.price.ProviderPriceID = resp.ProviderPriceID
		}
		providerLines = append(providerLines, stripe.CheckoutLineItem{
			ProviderPriceID: l.price.ProviderPriceID,
			Quantity:        int64(l.quantity),
		})
	}

	o := s.buildPendingOrder(ctx, req, lines)
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if err := s.OrderRepo.Create(ctx, o); err != nil {
		return nil, err
	}

	successURL := req.SuccessURL
	if successURL == "" {
		successURL = s.Config.Stripe.SuccessURL
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = s.Config.Stripe.CancelURL
	}

	session, err := s.Gateway.CreateCheckoutSession(ctx, &stripe.CreateCheckoutSessionRequest{
		CustomerEmail:  req.CustomerEmail,
		LineItems:      providerLines,
		Subscription:   subscriptionMode,
		SuccessURL:     successURL,
		CancelURL:      cancelURL,
		OrderID:        o.ID,
		IdempotencyKey: fmt.Sprintf("checkout-%s", o.ID),
	})
	if err != nil {
		s.handleSessionFailure(ctx, o, err)
		return nil, err
	}

	o.ProviderSessionID = session.ID
	o.ProviderPaymentIntentID = session.PaymentIntentID
	if err := s.OrderRepo.Update(ctx, o); err != nil {
		return nil, err
	}

	s.Logger.Infow("created checkout session",
		"order_id", o.ID,
		"session_id", session.ID,
		"subscription", subscriptionMode,
		"total", o.Total,
	)
	return &dto.CheckoutSessionResponse{
		OrderID:    o.ID,
		SessionID:  session.ID,
		SessionURL: session.URL,
	}, nil
}

func (s *checkoutService) resolveCart(ctx context.Context, req *dto.CreateCheckoutSessionRequest) ([]*cartLine, bool, error) {
	lines := make([]*cartLine, 0, len(req.LineItems))
	currency := ""
	recurring := 0

	for _, li := range req.LineItems {
		p, err := s.PriceRepo.Get(ctx, li.PriceID)
		if err != nil {
			return nil, false, err
		}
		if !p.IsActive() {
			return nil, false, ierr.NewErrorf("price %s is not purchasable", p.ID).
				WithHint("This item is no longer for sale").
				Mark(ierr.ErrInvalidOperation)
		}
		prod, err := s.ProductRepo.Get(ctx, p.ProductID)
		if err != nil {
			return nil, false, err
		}
		if !prod.IsActive() {
			return nil, false, ierr.NewErrorf("product %s is not purchasable", prod.ID).
				WithHint("This item is no longer for sale").
				Mark(ierr.ErrInvalidOperation)
		}

		if currency == "" {
			currency = p.Currency
		} else if currency != p.Currency {
			return nil, false, ierr.NewError("cart mixes currencies").
				WithHint("All cart items must share one currency").
				Mark(ierr.ErrValidation)
		}
		if p.IsRecurring() {
			recurring++
		}
		lines = append(lines, &cartLine{price: p, quantity: li.Quantity})
	}

	if recurring > 0 {
		// Provider checkout runs in a single mode; subscriptions check out
		// alone, one period at quantity 1.
		if len(lines) > 1 {
			return nil, false, ierr.NewError("a subscription must be checked out alone").
				WithHint("Subscriptions cannot share a cart with other items").
				Mark(ierr.ErrValidation)
		}
		if lines[0].quantity != 1 {
			return nil, false, ierr.NewError("subscription quantity must be 1").
				WithHint("Subscriptions are purchased one at a time").
				Mark(ierr.ErrValidation)
		}
	}
	return lines, recurring > 0, nil
}

// checkNoEntitlingSubscription enforces at most one access-granting
// subscription per (user, product).
func (s *checkoutService) checkNoEntitlingSubscription(ctx context.Context, userID, productID string) error {
	existing, err := s.SubRepo.ListEntitlingByUserProduct(ctx, userID, productID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return ierr.NewErrorf("user %s already has an active subscription for product %s", userID, productID).
			WithHint("You already have an active subscription for this product").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *checkoutService) buildPendingOrder(ctx context.Context, req *dto.CreateCheckoutSessionRequest, lines []*cartLine) *order.Order {
	o := &order.Order{
		ID:            types.GenerateUUIDWithPrefix(types.UUIDPrefixOrder),
		UserID:        req.UserID,
		CustomerEmail: req.CustomerEmail,
		Provider:      types.PaymentProviderStripe,
		OrderStatus:   types.OrderStatusPending,
		Currency:      lines[0].price.Currency,
		Total:         decimal.Zero,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	for _, l := range lines {
		o.LineItems = append(o.LineItems, &order.LineItem{
			ID:        types.GenerateUUIDWithPrefix(types.UUIDPrefixOrderLineItem),
			OrderID:   o.ID,
			PriceID:   l.price.ID,
			ProductID: l.price.ProductID,
			Quantity:  l.quantity,
			Amount:    l.price.Amount,
		})
		o.Total = o.Total.Add(l.price.Amount.Mul(decimal.NewFromInt(int64(l.quantity))))
	}
	return o
}

// handleSessionFailure applies the configured pending-order policy. Cleanup
// failures are logged, not returned: the provider error is what the caller
// needs to see.
func (s *checkoutService) handleSessionFailure(ctx context.Context, o *order.Order, cause error) {
	s.Logger.Errorw("provider session creation failed",
		"order_id", o.ID,
		"error", cause,
	)
	switch s.Config.Checkout.PendingOrderPolicy {
	case config.PendingOrderPolicyDelete:
		if err := s.OrderRepo.Delete(ctx, o.ID); err != nil {
			s.Logger.Errorw("failed to delete pending order", "order_id", o.ID, "error", err)
		}
	default:
		if err := o.TransitionTo(types.OrderStatusFailed); err != nil {
			s.Logger.Errorw("failed to transition pending order", "order_id", o.ID, "error", err)
			return
		}
		if err := s.OrderRepo.Update(ctx, o); err != nil {
			s.Logger.Errorw("failed to mark pending order failed", "order_id", o.ID, "error", err)
		}
	}
}
