package types

import (
	ierr "github.com/inkpress/inkpress/internal/errors"
)

// PaymentProvider identifies the external payment provider.
type PaymentProvider string

const (
	PaymentProviderStripe PaymentProvider = "stripe"
)

// ProductType classifies what a catalog product unlocks.
type ProductType string

const (
	ProductTypeSingleIssue      ProductType = "single_issue"
	ProductTypeBundle           ProductType = "bundle"
	ProductTypeChapterPass      ProductType = "chapter_pass"
	ProductTypeArcPass          ProductType = "arc_pass"
	ProductTypeSubscriptionTier ProductType = "subscription_tier"
)

func (t ProductType) Validate() error {
	switch t {
	case ProductTypeSingleIssue, ProductTypeBundle, ProductTypeChapterPass,
		ProductTypeArcPass, ProductTypeSubscriptionTier:
		return nil
	default:
		return ierr.NewErrorf("invalid product type: %s", t).
			WithHint("Unknown product type").
			Mark(ierr.ErrValidation)
	}
}

// GrantScope says how a product's content grant resolves to works.
type GrantScope string

const (
	// GrantScopeListedWorks grants exactly the works listed on the descriptor.
	GrantScopeListedWorks GrantScope = "listed_works"
	// GrantScopeAllPublished grants every published work of the descriptor's
	// work type, resolved through the catalog at grant time.
	GrantScopeAllPublished GrantScope = "all_published"
)

// OrderStatus is the lifecycle state of a purchase attempt.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// CanTransitionTo enforces the monotonic order lifecycle:
// pending -> completed | failed, completed -> refunded. Everything else,
// including re-entering the current status, is rejected so webhook handlers
// stay no-ops on replay.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusCompleted || target == OrderStatusFailed
	case OrderStatusCompleted:
		return target == OrderStatusRefunded
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFailed || s == OrderStatusRefunded
}

// SubscriptionStatus mirrors the provider's subscription state machine.
type SubscriptionStatus string

const (
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid     SubscriptionStatus = "unpaid"
	SubscriptionStatusPaused     SubscriptionStatus = "paused"
)

// IsEntitling reports whether the status keeps content entitlements in place.
// past_due is included: a failed invoice keeps access during the grace period
// and only cancellation (or unpaid/paused) revokes.
func (s SubscriptionStatus) IsEntitling() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusPastDue:
		return true
	default:
		return false
	}
}

// EntitlementSource says where an entitlement came from.
type EntitlementSource string

const (
	EntitlementSourceSubscription EntitlementSource = "subscription"
	EntitlementSourcePurchase     EntitlementSource = "purchase"
)

// InventoryPolicy controls what happens when stock would go negative.
type InventoryPolicy string

const (
	// InventoryPolicyDeny rejects adjustments that would take stock below zero.
	InventoryPolicyDeny InventoryPolicy = "deny"
	// InventoryPolicyAllow permits negative balances (backorders).
	InventoryPolicyAllow InventoryPolicy = "allow"
)

// MovementReason classifies an inventory movement.
type MovementReason string

const (
	MovementReasonOrderFulfillment MovementReason = "order_fulfillment"
	MovementReasonOrderRestore     MovementReason = "order_restore"
	MovementReasonRestock          MovementReason = "restock"
	MovementReasonManualAdjustment MovementReason = "manual_adjustment"
)

// BillingPeriod is the recurrence interval of a recurring price.
type BillingPeriod string

const (
	BillingPeriodMonthly BillingPeriod = "monthly"
	BillingPeriodYearly  BillingPeriod = "yearly"
	BillingPeriodWeekly  BillingPeriod = "weekly"
)

// PriceType distinguishes one-time and recurring prices.
type PriceType string

const (
	PriceTypeOneTime   PriceType = "one_time"
	PriceTypeRecurring PriceType = "recurring"
)
