package subscription

import (
	"time"

	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// Subscription mirrors the provider's subscription for one user and price.
// The provider is authoritative; webhook reconciliation keeps this row in
// agreement with it.
type Subscription struct {
	ID        string                `json:"id"`
	UserID    string                `json:"user_id"`
	ProductID string                `json:"product_id"`
	PriceID   string                `json:"price_id"`
	Provider  types.PaymentProvider `json:"provider"`
	// ProviderSubscriptionID is the provider's id, unique per provider.
	ProviderSubscriptionID string                   `json:"provider_subscription_id"`
	ProviderCustomerID     string                   `json:"provider_customer_id,omitempty"`
	SubscriptionStatus     types.SubscriptionStatus `json:"subscription_status"`
	CurrentPeriodStart     time.Time                `json:"current_period_start"`
	CurrentPeriodEnd       time.Time                `json:"current_period_end"`
	CancelAtPeriodEnd      bool                     `json:"cancel_at_period_end"`
	Metadata               types.Metadata           `json:"metadata,omitempty"`
	types.BaseModel
}

func (s *Subscription) Validate() error {
	if s.UserID == "" {
		return ierr.NewError("user_id is required").
			WithHint("Subscription must belong to a user").
			Mark(ierr.ErrValidation)
	}
	if s.ProviderSubscriptionID == "" {
		return ierr.NewError("provider_subscription_id is required").
			WithHint("Subscription must reference a provider subscription").
			Mark(ierr.ErrValidation)
	}
	if s.PriceID == "" {
		return ierr.NewError("price_id is required").
			WithHint("Subscription must reference a price").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsEntitling reports whether the subscription currently grants access.
func (s *Subscription) IsEntitling() bool {
	return s.SubscriptionStatus.IsEntitling()
}

// ShouldApplyUpdate decides whether an inbound provider snapshot may
// overwrite this row. Webhooks arrive out of order, so arrival order is
// never trusted: the snapshot with the later current_period_end wins, and on
// equal periods a canceled state wins over a live one (cancellation is the
// terminal provider state and must not be undone by a stale update).
func (s *Subscription) ShouldApplyUpdate(incomingStatus types.SubscriptionStatus, incomingPeriodEnd time.Time) bool {
	if incomingPeriodEnd.After(s.CurrentPeriodEnd) {
		return true
	}
	if incomingPeriodEnd.Before(s.CurrentPeriodEnd) {
		return false
	}
	if s.SubscriptionStatus == types.SubscriptionStatusCanceled {
		return false
	}
	return true
}
