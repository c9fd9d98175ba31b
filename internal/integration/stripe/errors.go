package stripe

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	stripesdk "github.com/stripe/stripe-go/v82"

	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// classifyProviderError maps provider failures onto the error taxonomy.
// Invalid-request errors are the caller's bug and are not retried; anything
// else, timeouts included, is a provider error the caller may retry with an
// idempotency key.
func classifyProviderError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		// Unknown outcome. The webhook is the source of truth.
		return ierr.ErrPaymentProvider
	}

	var stripeErr *stripesdk.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Type {
		case stripesdk.ErrorTypeInvalidRequest:
			return ierr.ErrValidation
		case stripesdk.ErrorTypeCard:
			return ierr.ErrInvalidOperation
		default:
			return ierr.ErrPaymentProvider
		}
	}
	return ierr.ErrPaymentProvider
}

// mapProviderError strips SDK internals down to the provider's own message.
func mapProviderError(err error) error {
	var stripeErr *stripesdk.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return errors.New(stripeErr.Msg)
	}
	return err
}

// toMinorUnits converts a major-unit decimal amount to the provider's
// integer minor units (cents).
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func providerInterval(period types.BillingPeriod) string {
	switch period {
	case types.BillingPeriodWeekly:
		return "week"
	case types.BillingPeriodYearly:
		return "year"
	default:
		return "month"
	}
}

func fromProviderSubscription(sub *stripesdk.Subscription) *ProviderSubscription {
	out := &ProviderSubscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil {
			out.PriceID = item.Price.ID
		}
		out.CurrentPeriodStart = time.Unix(item.CurrentPeriodStart, 0).UTC()
		out.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
	}
	return out
}
