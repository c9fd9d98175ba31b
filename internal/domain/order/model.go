package order

import (
	"github.com/shopspring/decimal"

	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// Order is a purchase attempt. It is created pending before the provider
// session exists, completed or failed by webhook, and refunded only from
// completed.
type Order struct {
	ID string `json:"id"`
	// UserID is empty for guest checkouts.
	UserID        string                `json:"user_id,omitempty"`
	CustomerEmail string                `json:"customer_email,omitempty"`
	Provider      types.PaymentProvider `json:"provider"`
	// ProviderSessionID is the provider checkout session id. Webhooks look
	// orders up by it, so it is unique per provider.
	ProviderSessionID       string          `json:"provider_session_id,omitempty"`
	ProviderPaymentIntentID string          `json:"provider_payment_intent_id,omitempty"`
	OrderStatus             types.OrderStatus `json:"order_status"`
	Currency                string          `json:"currency"`
	Total                   decimal.Decimal `json:"total"`
	LineItems               []*LineItem     `json:"line_items"`
	Metadata                types.Metadata  `json:"metadata,omitempty"`
	types.BaseModel
}

// LineItem is one priced position of an order.
type LineItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	PriceID   string          `json:"price_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	// Amount is the unit amount at purchase time. Orders keep their own copy
	// so later price edits do not rewrite history.
	Amount decimal.Decimal `json:"amount"`
}

func (o *Order) Validate() error {
	if len(o.LineItems) == 0 {
		return ierr.NewError("order requires at least one line item").
			WithHint("Cart must not be empty").
			Mark(ierr.ErrValidation)
	}
	for _, li := range o.LineItems {
		if li.Quantity <= 0 {
			return ierr.NewError("line item quantity must be positive").
				WithHint("Quantities must be positive").
				Mark(ierr.ErrValidation)
		}
		if li.PriceID == "" {
			return ierr.NewError("line item price_id is required").
				WithHint("Each cart line needs a price").
				Mark(ierr.ErrValidation)
		}
	}
	if o.Currency == "" {
		return ierr.NewError("order currency is required").
			WithHint("Order currency is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TransitionTo moves the order to target, rejecting anything outside the
// monotonic lifecycle. A transition to the current status is rejected too,
// which is what makes webhook replays no-ops at the caller.
func (o *Order) TransitionTo(target types.OrderStatus) error {
	if !o.OrderStatus.CanTransitionTo(target) {
		return ierr.NewErrorf("cannot transition order from %s to %s", o.OrderStatus, target).
			WithHint("Order status transition not allowed").
			WithReportableDetails(map[string]any{
				"order_id": o.ID,
				"from":     o.OrderStatus,
				"to":       target,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	o.OrderStatus = target
	return nil
}
