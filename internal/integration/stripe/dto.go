package stripe

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkpress/inkpress/internal/types"
)

// CreateCustomerRequest creates a provider customer for a platform user.
type CreateCustomerRequest struct {
	Email    string
	Name     string
	UserID   string
	Metadata types.Metadata
}

type Customer struct {
	ID    string
	Email string
}

// CreatePriceRequest syncs a local price out to the provider.
type CreatePriceRequest struct {
	ProductName string
	Currency    string
	// Amount is in major units; the client converts to the provider's
	// minor-unit integer representation.
	Amount         decimal.Decimal
	Recurring      bool
	Interval       types.BillingPeriod
	IntervalCount  int
	TrialDays      int
	LocalPriceID   string
	IdempotencyKey string
}

type ProviderPrice struct {
	ID        string
	ProductID string
}

// CheckoutLineItem is one provider-priced cart line.
type CheckoutLineItem struct {
	ProviderPriceID string
	Quantity        int64
}

// CreateCheckoutSessionRequest opens a hosted checkout session.
type CreateCheckoutSessionRequest struct {
	CustomerEmail string
	LineItems     []CheckoutLineItem
	// Subscription selects subscription mode instead of one-time payment.
	Subscription bool
	SuccessURL   string
	CancelURL    string
	// OrderID rides along as metadata so webhooks can resolve the local
	// order even if the session id lookup fails.
	OrderID        string
	IdempotencyKey string
}

type CheckoutSession struct {
	ID              string
	URL             string
	PaymentIntentID string
}

// CreateSubscriptionRequest starts a provider subscription directly, for
// flows that already hold a provider customer and payment method.
type CreateSubscriptionRequest struct {
	CustomerID      string
	ProviderPriceID string
	TrialDays       int
	Metadata        types.Metadata
	IdempotencyKey  string
}

type ProviderSubscription struct {
	ID                 string
	Status             string
	CustomerID         string
	PriceID            string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
}

// RefundRequest refunds a captured payment. A zero Amount refunds in full.
type RefundRequest struct {
	PaymentIntentID string
	Amount          decimal.Decimal
	Currency        string
	Reason          string
	IdempotencyKey  string
}

type Refund struct {
	ID     string
	Status string
}

type ProviderProduct struct {
	ID     string
	Name   string
	Active bool
}

// Event is one verified, parsed inbound provider event. Exactly one of the
// data fields is set, matching Type.
type Event struct {
	ID        string
	Type      types.WebhookEventType
	CreatedAt time.Time
	Raw       json.RawMessage

	CheckoutSession *CheckoutSessionEventData
	Subscription    *SubscriptionEventData
	Invoice         *InvoiceEventData
}

// CheckoutSessionEventData is the session snapshot inside
// checkout.session.completed.
type CheckoutSessionEventData struct {
	ID              string
	PaymentIntentID string
	SubscriptionID  string
	CustomerEmail   string
	Metadata        map[string]string
}

// SubscriptionEventData is the subscription snapshot inside
// customer.subscription.* events.
type SubscriptionEventData struct {
	ID                 string
	Status             string
	CustomerID         string
	PriceID            string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	Metadata           map[string]string
}

// InvoiceEventData is the invoice snapshot inside invoice.payment_* events.
type InvoiceEventData struct {
	ID             string
	SubscriptionID string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	AmountDue      decimal.Decimal
	Currency       string
}
