package webhookevent

import (
	"context"
	"time"

	"github.com/inkpress/inkpress/internal/types"
)

// Repository defines the interface for webhook event persistence.
type Repository interface {
	// Create inserts the event row in received state. A duplicate
	// (provider, provider_event_id) returns an already-exists error, which
	// the reconciler treats as "seen before".
	Create(ctx context.Context, e *WebhookEvent) error
	Get(ctx context.Context, id string) (*WebhookEvent, error)
	GetByProviderEventID(ctx context.Context, provider types.PaymentProvider, providerEventID string) (*WebhookEvent, error)
	// UpdateStatus sets the processing outcome: processed with a timestamp,
	// failed with the error detail, or skipped.
	UpdateStatus(ctx context.Context, id string, status types.WebhookEventStatus, errorDetail string) error
	// ListStuck returns events still in received or failed state created
	// between maxAge ago and olderThan ago, oldest first. Input to the
	// reprocessor.
	ListStuck(ctx context.Context, olderThan, maxAge time.Duration, limit int) ([]*WebhookEvent, error)
}
