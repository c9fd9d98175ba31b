package service

import (
	"context"
	"fmt"

	"github.com/inkpress/inkpress/internal/domain/subscription"
	"github.com/inkpress/inkpress/internal/domain/webhookevent"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/integration/stripe"
	"github.com/inkpress/inkpress/internal/types"
)

// WebhookService reconciles inbound provider events against local state.
//
// Every event is persisted before any processing, so a crash mid-handling
// leaves a received row the reprocessor can pick up. Deduplication rides on
// the unique (provider, provider_event_id) pair, and each handler's
// mutations commit in one transaction together with the processed flag.
// Arrival order is never trusted: handlers compare provider state, not
// delivery sequence.
type WebhookService interface {
	// ProcessWebhook verifies, persists and processes one raw webhook
	// delivery. A nil return acknowledges the delivery; an error asks the
	// provider to redeliver.
	ProcessWebhook(ctx context.Context, payload []byte, signature string) error
	// ReprocessEvent re-runs a stored event that never finished.
	ReprocessEvent(ctx context.Context, eventID string) error
}

type webhookService struct {
	ServiceParams
	orders       OrderService
	entitlements EntitlementService
}

func NewWebhookService(params ServiceParams) WebhookService {
	return &webhookService{
		ServiceParams: params,
		orders:        NewOrderService(params),
		entitlements:  NewEntitlementService(params),
	}
}

func (s *webhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) error {
	if err := s.Gateway.VerifyWebhookSignature(payload, signature); err != nil {
		return err
	}
	event, err := s.Gateway.ParseEvent(payload)
	if err != nil {
		return err
	}

	row := &webhookevent.WebhookEvent{
		ID:                types.GenerateUUIDWithPrefix(types.UUIDPrefixWebhookEvent),
		Provider:          types.PaymentProviderStripe,
		ProviderEventID:   event.ID,
		EventType:         event.Type,
		Payload:           event.Raw,
		EventStatus:       types.WebhookEventStatusReceived,
		ProviderCreatedAt: event.CreatedAt,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
	if err := row.Validate(); err != nil {
		return err
	}

	// Persist before processing. A duplicate delivery hits the unique
	// constraint; what happens next depends on how far the first delivery
	// got.
	if err := s.WebhookEventRepo.Create(ctx, row); err != nil {
		if !ierr.IsAlreadyExists(err) {
			return ierr.WithError(err).
				WithHint("Failed to record webhook event").
				Mark(ierr.ErrRetryable)
		}
		existing, err := s.WebhookEventRepo.GetByProviderEventID(ctx, types.PaymentProviderStripe, event.ID)
		if err != nil {
			return err
		}
		switch existing.EventStatus {
		case types.WebhookEventStatusProcessed, types.WebhookEventStatusSkipped:
			// Seen and settled: acknowledge without reprocessing.
			s.Logger.Debugw("duplicate webhook delivery ignored",
				"provider_event_id", event.ID,
				"event_type", event.Type,
			)
			return nil
		default:
			// First delivery never finished; this redelivery drives the
			// retry against the stored row.
			row = existing
		}
	}

	return s.process(ctx, row, event)
}

func (s *webhookService) ReprocessEvent(ctx context.Context, eventID string) error {
	row, err := s.WebhookEventRepo.Get(ctx, eventID)
	if err != nil {
		return err
	}
	switch row.EventStatus {
	case types.WebhookEventStatusProcessed, types.WebhookEventStatusSkipped:
		return nil
	}
	event, err := s.Gateway.ParseEvent(row.Payload)
	if err != nil {
		return err
	}
	return s.process(ctx, row, event)
}

// process dispatches one persisted event. The handler's mutations and the
// processed flag commit atomically; a failure marks the row failed and
// returns a retryable error so the provider redelivers.
func (s *webhookService) process(ctx context.Context, row *webhookevent.WebhookEvent, event *stripe.Event) error {
	handler, ok := s.handlerFor(event.Type)
	if !ok {
		if err := s.WebhookEventRepo.UpdateStatus(ctx, row.ID, types.WebhookEventStatusSkipped, ""); err != nil {
			return err
		}
		s.Logger.Infow("skipped unhandled webhook event type",
			"provider_event_id", event.ID,
			"event_type", event.Type,
		)
		return nil
	}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := handler(ctx, event); err != nil {
			return err
		}
		return s.WebhookEventRepo.UpdateStatus(ctx, row.ID, types.WebhookEventStatusProcessed, "")
	})
	if err != nil {
		if markErr := s.WebhookEventRepo.UpdateStatus(ctx, row.ID, types.WebhookEventStatusFailed, err.Error()); markErr != nil {
			s.Logger.Errorw("failed to mark webhook event failed",
				"event_id", row.ID,
				"error", markErr,
			)
		}
		s.Logger.Errorw("webhook event processing failed",
			"event_id", row.ID,
			"provider_event_id", event.ID,
			"event_type", event.Type,
			"error", err,
		)
		return err
	}

	s.Logger.Infow("processed webhook event",
		"event_id", row.ID,
		"provider_event_id", event.ID,
		"event_type", event.Type,
	)
	return nil
}

type eventHandler func(ctx context.Context, event *stripe.Event) error

func (s *webhookService) handlerFor(t types.WebhookEventType) (eventHandler, bool) {
	switch t {
	case types.WebhookEventCheckoutSessionCompleted:
		return s.handleCheckoutSessionCompleted, true
	case types.WebhookEventSubscriptionCreated, types.WebhookEventSubscriptionUpdated:
		return s.handleSubscriptionUpserted, true
	case types.WebhookEventSubscriptionDeleted:
		return s.handleSubscriptionDeleted, true
	case types.WebhookEventInvoicePaymentSucceeded:
		return s.handleInvoicePaymentSucceeded, true
	case types.WebhookEventInvoicePaymentFailed:
		return s.handleInvoicePaymentFailed, true
	default:
		return nil, false
	}
}

func (s *webhookService) handleCheckoutSessionCompleted(ctx context.Context, event *stripe.Event) error {
	data := event.CheckoutSession
	if data == nil {
		return ierr.NewError("checkout.session.completed event carries no session").
			WithHint("Malformed provider event").
			Mark(ierr.ErrValidation)
	}

	o, err := s.resolveOrder(ctx, data)
	if err != nil {
		if ierr.IsNotFound(err) {
			// Sessions this system never opened (another environment
			// sharing the provider account) are not ours to settle.
			s.Logger.Warnw("no local order for checkout session, skipping",
				"session_id", data.ID,
				"provider_event_id", event.ID,
			)
			return nil
		}
		return err
	}

	if data.SubscriptionID != "" {
		if err := s.ensureSubscriptionShell(ctx, o.ID, data.SubscriptionID); err != nil {
			return err
		}
	}

	err = s.orders.FulfillOrder(ctx, o.ID, data.PaymentIntentID, data.CustomerEmail)
	if err == nil {
		return nil
	}
	if ierr.IsInvalidOperation(err) {
		// Already settled; a replay changes nothing.
		s.Logger.Infow("order already settled, ignoring replayed completion",
			"order_id", o.ID,
			"status", o.OrderStatus,
		)
		return nil
	}
	if ierr.IsOutOfStock(err) {
		// Payment captured but stock ran out between checkout and
		// fulfillment: refund and fail the order instead of overselling.
		return s.compensateOversoldOrder(ctx, o.ID, data.PaymentIntentID)
	}
	return err
}

func (s *webhookService) resolveOrder(ctx context.Context, data *stripe.CheckoutSessionEventData) (orderRef, error) {
	if orderID := data.Metadata["order_id"]; orderID != "" {
		o, err := s.OrderRepo.Get(ctx, orderID)
		if err == nil {
			return orderRef{ID: o.ID, OrderStatus: o.OrderStatus}, nil
		}
		if !ierr.IsNotFound(err) {
			return orderRef{}, err
		}
	}
	o, err := s.OrderRepo.GetByProviderSessionID(ctx, types.PaymentProviderStripe, data.ID)
	if err != nil {
		return orderRef{}, err
	}
	return orderRef{ID: o.ID, OrderStatus: o.OrderStatus}, nil
}

type orderRef struct {
	ID          string
	OrderStatus types.OrderStatus
}

// lockSubscription serializes webhook handlers touching the same provider
// subscription. Handlers run inside the process transaction, so the lock
// holds until the handler's mutations commit.
func (s *webhookService) lockSubscription(ctx context.Context, providerSubID string) error {
	return s.DB.LockKey(ctx, types.LockRequest{
		Scope: types.LockScopeSubscription,
		ID:    providerSubID,
	})
}

// ensureSubscriptionShell creates the local subscription row for a
// subscription-mode checkout when the customer.subscription.* events have
// not arrived yet. The shell starts incomplete with a zero period, so any
// real provider snapshot wins the ordering comparison.
func (s *webhookService) ensureSubscriptionShell(ctx context.Context, orderID, providerSubID string) error {
	if err := s.lockSubscription(ctx, providerSubID); err != nil {
		return err
	}
	_, err := s.SubRepo.GetByProviderSubscriptionID(ctx, types.PaymentProviderStripe, providerSubID)
	if err == nil {
		return nil
	}
	if !ierr.IsNotFound(err) {
		return err
	}

	o, err := s.OrderRepo.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if len(o.LineItems) == 0 {
		return ierr.NewErrorf("order %s has no line items for subscription", orderID).
			WithHint("Order is missing its cart lines").
			Mark(ierr.ErrInternal)
	}

	sub := &subscription.Subscription{
		ID:                     types.GenerateUUIDWithPrefix(types.UUIDPrefixSubscription),
		UserID:                 o.UserID,
		ProductID:              o.LineItems[0].ProductID,
		PriceID:                o.LineItems[0].PriceID,
		Provider:               types.PaymentProviderStripe,
		ProviderSubscriptionID: providerSubID,
		SubscriptionStatus:     types.SubscriptionStatusIncomplete,
		BaseModel:              types.GetDefaultBaseModel(ctx),
	}
	if err := sub.Validate(); err != nil {
		return err
	}
	if err := s.SubRepo.Create(ctx, sub); err != nil {
		// A concurrent subscription event may have created it first.
		if ierr.IsAlreadyExists(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *webhookService) compensateOversoldOrder(ctx context.Context, orderID, paymentIntentID string) error {
	s.Logger.Warnw("order oversold after payment, refunding",
		"order_id", orderID,
	)
	if paymentIntentID != "" {
		if _, err := s.Gateway.Refund(ctx, &stripe.RefundRequest{
			PaymentIntentID: paymentIntentID,
			Reason:          "out_of_stock",
			IdempotencyKey:  fmt.Sprintf("oversell-refund-%s", orderID),
		}); err != nil {
			return err
		}
	}
	return s.orders.FailOrder(ctx, orderID)
}

func (s *webhookService) handleSubscriptionUpserted(ctx context.Context, event *stripe.Event) error {
	data := event.Subscription
	if data == nil {
		return ierr.NewError("subscription event carries no subscription").
			WithHint("Malformed provider event").
			Mark(ierr.ErrValidation)
	}

	// Lock before reading: the staleness comparison below is only sound
	// against the row as of this transaction.
	if err := s.lockSubscription(ctx, data.ID); err != nil {
		return err
	}
	sub, err := s.SubRepo.GetByProviderSubscriptionID(ctx, types.PaymentProviderStripe, data.ID)
	if err != nil {
		if ierr.IsNotFound(err) {
			// The checkout completion that maps this subscription to a
			// local user has not landed yet. Fail retryable so the
			// provider's redelivery finds the mapping.
			return ierr.NewErrorf("no local subscription for provider subscription %s", data.ID).
				WithHint("Subscription mapping not established yet").
				Mark(ierr.ErrRetryable)
		}
		return err
	}

	incoming := subscriptionStatusFromProvider(data.Status)
	if !sub.ShouldApplyUpdate(incoming, data.CurrentPeriodEnd) {
		s.Logger.Infow("stale subscription snapshot ignored",
			"subscription_id", sub.ID,
			"incoming_status", incoming,
			"incoming_period_end", data.CurrentPeriodEnd,
			"current_period_end", sub.CurrentPeriodEnd,
		)
		return nil
	}

	sub.SubscriptionStatus = incoming
	sub.CurrentPeriodStart = data.CurrentPeriodStart
	sub.CurrentPeriodEnd = data.CurrentPeriodEnd
	sub.CancelAtPeriodEnd = data.CancelAtPeriodEnd
	if data.CustomerID != "" {
		sub.ProviderCustomerID = data.CustomerID
	}
	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return err
	}
	return s.entitlements.SyncSubscription(ctx, sub)
}

func (s *webhookService) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	data := event.Subscription
	if data == nil {
		return ierr.NewError("subscription event carries no subscription").
			WithHint("Malformed provider event").
			Mark(ierr.ErrValidation)
	}

	if err := s.lockSubscription(ctx, data.ID); err != nil {
		return err
	}
	sub, err := s.SubRepo.GetByProviderSubscriptionID(ctx, types.PaymentProviderStripe, data.ID)
	if err != nil {
		if ierr.IsNotFound(err) {
			// Nothing to revoke; deletion of a subscription never mapped
			// locally is a no-op.
			s.Logger.Warnw("deletion for unknown provider subscription, skipping",
				"provider_subscription_id", data.ID,
			)
			return nil
		}
		return err
	}

	// Deletion is the provider's terminal state and applies regardless of
	// how the period comparison falls.
	sub.SubscriptionStatus = types.SubscriptionStatusCanceled
	sub.CancelAtPeriodEnd = false
	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return err
	}
	return s.entitlements.SyncSubscription(ctx, sub)
}

func (s *webhookService) handleInvoicePaymentSucceeded(ctx context.Context, event *stripe.Event) error {
	return s.applyInvoiceOutcome(ctx, event, types.SubscriptionStatusActive)
}

// handleInvoicePaymentFailed moves the subscription to past_due, which
// keeps entitlements in place: the grace period ends only when the
// provider cancels.
func (s *webhookService) handleInvoicePaymentFailed(ctx context.Context, event *stripe.Event) error {
	return s.applyInvoiceOutcome(ctx, event, types.SubscriptionStatusPastDue)
}

func (s *webhookService) applyInvoiceOutcome(ctx context.Context, event *stripe.Event, status types.SubscriptionStatus) error {
	data := event.Invoice
	if data == nil {
		return ierr.NewError("invoice event carries no invoice").
			WithHint("Malformed provider event").
			Mark(ierr.ErrValidation)
	}
	if data.SubscriptionID == "" {
		// One-off invoices have no subscription to reconcile.
		return nil
	}

	if err := s.lockSubscription(ctx, data.SubscriptionID); err != nil {
		return err
	}
	sub, err := s.SubRepo.GetByProviderSubscriptionID(ctx, types.PaymentProviderStripe, data.SubscriptionID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return ierr.NewErrorf("no local subscription for provider subscription %s", data.SubscriptionID).
				WithHint("Subscription mapping not established yet").
				Mark(ierr.ErrRetryable)
		}
		return err
	}

	incomingPeriodEnd := data.PeriodEnd
	if incomingPeriodEnd.IsZero() {
		incomingPeriodEnd = sub.CurrentPeriodEnd
	}
	if !sub.ShouldApplyUpdate(status, incomingPeriodEnd) {
		s.Logger.Infow("stale invoice snapshot ignored",
			"subscription_id", sub.ID,
			"incoming_status", status,
			"incoming_period_end", incomingPeriodEnd,
			"current_period_end", sub.CurrentPeriodEnd,
		)
		return nil
	}

	sub.SubscriptionStatus = status
	if !data.PeriodStart.IsZero() {
		sub.CurrentPeriodStart = data.PeriodStart
	}
	sub.CurrentPeriodEnd = incomingPeriodEnd
	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return err
	}
	return s.entitlements.SyncSubscription(ctx, sub)
}

func subscriptionStatusFromProvider(status string) types.SubscriptionStatus {
	switch types.SubscriptionStatus(status) {
	case types.SubscriptionStatusIncomplete,
		types.SubscriptionStatusTrialing,
		types.SubscriptionStatusActive,
		types.SubscriptionStatusPastDue,
		types.SubscriptionStatusCanceled,
		types.SubscriptionStatusUnpaid,
		types.SubscriptionStatusPaused:
		return types.SubscriptionStatus(status)
	case "incomplete_expired":
		return types.SubscriptionStatusCanceled
	default:
		// Unknown statuses never grant access.
		return types.SubscriptionStatusUnpaid
	}
}
