package types

// WebhookEventType is the provider-assigned event type string.
type WebhookEventType string

const (
	WebhookEventCheckoutSessionCompleted WebhookEventType = "checkout.session.completed"
	WebhookEventSubscriptionCreated      WebhookEventType = "customer.subscription.created"
	WebhookEventSubscriptionUpdated      WebhookEventType = "customer.subscription.updated"
	WebhookEventSubscriptionDeleted      WebhookEventType = "customer.subscription.deleted"
	WebhookEventInvoicePaymentSucceeded  WebhookEventType = "invoice.payment_succeeded"
	WebhookEventInvoicePaymentFailed     WebhookEventType = "invoice.payment_failed"
)

// WebhookEventStatus is the processing state of an inbound event row.
type WebhookEventStatus string

const (
	// WebhookEventStatusReceived is the persisted-before-processing state.
	// A crash mid-processing leaves the row here for the reprocessor.
	WebhookEventStatusReceived WebhookEventStatus = "received"
	WebhookEventStatusProcessed WebhookEventStatus = "processed"
	// WebhookEventStatusFailed records a processing error; the provider's
	// redelivery (or the reprocessor) drives recovery.
	WebhookEventStatusFailed WebhookEventStatus = "failed"
	// WebhookEventStatusSkipped marks event types this system does not handle.
	WebhookEventStatusSkipped WebhookEventStatus = "skipped"
)
