package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/inkpress/inkpress/internal/domain/webhookevent"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// InMemoryWebhookEventStore implements webhookevent.Repository, including
// the (provider, provider_event_id) uniqueness the reconciler dedupes on.
type InMemoryWebhookEventStore struct {
	*InMemoryStore[*webhookevent.WebhookEvent]
	// createMu makes the uniqueness check and the insert one step, like the
	// unique index does in postgres. Racing deliveries hit this path.
	createMu sync.Mutex
}

func NewInMemoryWebhookEventStore() *InMemoryWebhookEventStore {
	return &InMemoryWebhookEventStore{InMemoryStore: NewInMemoryStore[*webhookevent.WebhookEvent]()}
}

func copyWebhookEvent(e *webhookevent.WebhookEvent) *webhookevent.WebhookEvent {
	if e == nil {
		return nil
	}
	copied := *e
	copied.Payload = append([]byte(nil), e.Payload...)
	if e.ProcessedAt != nil {
		t := *e.ProcessedAt
		copied.ProcessedAt = &t
	}
	return &copied
}

func (s *InMemoryWebhookEventStore) Create(ctx context.Context, e *webhookevent.WebhookEvent) error {
	s.createMu.Lock()
	defer s.createMu.Unlock()
	if _, err := s.GetByProviderEventID(ctx, e.Provider, e.ProviderEventID); err == nil {
		return ierr.NewErrorf("webhook event %s already recorded", e.ProviderEventID).
			WithHint("Event already recorded").
			Mark(ierr.ErrAlreadyExists)
	}
	if err := s.InMemoryStore.Create(ctx, e.ID, copyWebhookEvent(e)); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record webhook event").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryWebhookEventStore) Get(ctx context.Context, id string) (*webhookevent.WebhookEvent, error) {
	e, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewErrorf("webhook event %s not found", id).
			WithHint("Webhook event not found").
			Mark(ierr.ErrNotFound)
	}
	return copyWebhookEvent(e), nil
}

func (s *InMemoryWebhookEventStore) GetByProviderEventID(ctx context.Context, provider types.PaymentProvider, providerEventID string) (*webhookevent.WebhookEvent, error) {
	matches := s.InMemoryStore.List(ctx, func(e *webhookevent.WebhookEvent) bool {
		return e.Provider == provider && e.ProviderEventID == providerEventID
	}, nil)
	if len(matches) == 0 {
		return nil, ierr.NewErrorf("no webhook event %s for provider %s", providerEventID, provider).
			WithHint("Webhook event not found").
			Mark(ierr.ErrNotFound)
	}
	return copyWebhookEvent(matches[0]), nil
}

func (s *InMemoryWebhookEventStore) UpdateStatus(ctx context.Context, id string, status types.WebhookEventStatus, errorDetail string) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	e.EventStatus = status
	e.ErrorDetail = errorDetail
	if status == types.WebhookEventStatusProcessed {
		now := time.Now().UTC()
		e.ProcessedAt = &now
	}
	return s.InMemoryStore.Update(ctx, id, e)
}

func (s *InMemoryWebhookEventStore) ListStuck(ctx context.Context, olderThan, maxAge time.Duration, limit int) ([]*webhookevent.WebhookEvent, error) {
	now := time.Now().UTC()
	items := s.InMemoryStore.List(ctx, func(e *webhookevent.WebhookEvent) bool {
		if e.EventStatus != types.WebhookEventStatusReceived && e.EventStatus != types.WebhookEventStatusFailed {
			return false
		}
		age := now.Sub(e.CreatedAt)
		return age >= olderThan && age <= maxAge
	}, func(a, b *webhookevent.WebhookEvent) bool {
		return a.CreatedAt.Before(b.CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return lo.Map(items, func(e *webhookevent.WebhookEvent, _ int) *webhookevent.WebhookEvent {
		return copyWebhookEvent(e)
	}), nil
}
