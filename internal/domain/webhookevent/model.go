package webhookevent

import (
	"encoding/json"
	"time"

	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// WebhookEvent is the durable record of one inbound provider event. The
// (provider, provider_event_id) pair is unique and serves as the idempotency
// key: a redelivered event hits the constraint and is acknowledged without
// reprocessing.
type WebhookEvent struct {
	ID              string                   `json:"id"`
	Provider        types.PaymentProvider    `json:"provider"`
	ProviderEventID string                   `json:"provider_event_id"`
	EventType       types.WebhookEventType   `json:"event_type"`
	Payload         json.RawMessage          `json:"payload"`
	EventStatus     types.WebhookEventStatus `json:"event_status"`
	// ProviderCreatedAt is the provider's event timestamp, used as the
	// tie-break when events for the same entity race - never arrival order.
	ProviderCreatedAt time.Time `json:"provider_created_at"`
	ProcessedAt       *time.Time `json:"processed_at,omitempty"`
	// ErrorDetail records why processing failed; operator-visible only.
	ErrorDetail string `json:"error_detail,omitempty"`
	types.BaseModel
}

func (e *WebhookEvent) Validate() error {
	if e.Provider == "" {
		return ierr.NewError("provider is required").
			WithHint("Webhook event must name its provider").
			Mark(ierr.ErrValidation)
	}
	if e.ProviderEventID == "" {
		return ierr.NewError("provider_event_id is required").
			WithHint("Webhook event must carry the provider event id").
			Mark(ierr.ErrValidation)
	}
	if e.EventType == "" {
		return ierr.NewError("event_type is required").
			WithHint("Webhook event must carry an event type").
			Mark(ierr.ErrValidation)
	}
	return nil
}
