package price

import (
	"github.com/shopspring/decimal"

	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// Price is a purchasable variant of a product: a currency, an amount and a
// recurrence. A product usually carries one default variant; at most one
// default per product is enforced when prices are written.
type Price struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Currency  string          `json:"currency"`
	Amount    decimal.Decimal `json:"amount"`
	Type      types.PriceType `json:"type"`
	// BillingPeriod and BillingPeriodCount describe the recurrence of a
	// recurring price, e.g. monthly x 1 or monthly x 3.
	BillingPeriod      types.BillingPeriod `json:"billing_period,omitempty"`
	BillingPeriodCount int                 `json:"billing_period_count,omitempty"`
	TrialDays          int                 `json:"trial_days,omitempty"`
	IsDefault          bool                `json:"is_default"`
	// InventoryPolicy controls oversell behavior for this variant. Variants
	// without tracked stock use InventoryPolicyAllow.
	InventoryPolicy types.InventoryPolicy `json:"inventory_policy"`
	// ProviderPriceID is the payment provider's id for this price, when the
	// price has been synced out.
	ProviderPriceID string         `json:"provider_price_id,omitempty"`
	Metadata        types.Metadata `json:"metadata,omitempty"`
	types.BaseModel
}

func (p *Price) Validate() error {
	if p.ProductID == "" {
		return ierr.NewError("product_id is required").
			WithHint("Price must belong to a product").
			Mark(ierr.ErrValidation)
	}
	if p.Currency == "" {
		return ierr.NewError("currency is required").
			WithHint("Price currency is required").
			Mark(ierr.ErrValidation)
	}
	if p.Amount.IsNegative() {
		return ierr.NewError("amount must not be negative").
			WithHint("Price amount must not be negative").
			Mark(ierr.ErrValidation)
	}
	switch p.Type {
	case types.PriceTypeOneTime:
	case types.PriceTypeRecurring:
		if p.BillingPeriod == "" {
			return ierr.NewError("billing_period is required for recurring prices").
				WithHint("Set a billing period for recurring prices").
				Mark(ierr.ErrValidation)
		}
		if p.BillingPeriodCount <= 0 {
			return ierr.NewError("billing_period_count must be positive for recurring prices").
				WithHint("Set a billing period count for recurring prices").
				Mark(ierr.ErrValidation)
		}
	default:
		return ierr.NewErrorf("invalid price type: %s", p.Type).
			WithHint("Unknown price type").
			Mark(ierr.ErrValidation)
	}
	if p.TrialDays < 0 {
		return ierr.NewError("trial_days must not be negative").
			WithHint("Trial length must not be negative").
			Mark(ierr.ErrValidation)
	}
	switch p.InventoryPolicy {
	case types.InventoryPolicyDeny, types.InventoryPolicyAllow:
	default:
		return ierr.NewErrorf("invalid inventory policy: %s", p.InventoryPolicy).
			WithHint("Unknown inventory policy").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsActive reports whether the price can be put in a cart.
func (p *Price) IsActive() bool {
	return p.Status == types.StatusPublished
}

// IsRecurring reports whether the price starts a subscription.
func (p *Price) IsRecurring() bool {
	return p.Type == types.PriceTypeRecurring
}
