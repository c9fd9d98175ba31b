package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/inkpress/inkpress/internal/domain/subscription"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{InMemoryStore: NewInMemoryStore[*subscription.Subscription]()}
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub == nil {
		return nil
	}
	copied := *sub
	copied.Metadata = lo.Assign(types.Metadata{}, sub.Metadata)
	return &copied
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if _, err := s.GetByProviderSubscriptionID(ctx, sub.Provider, sub.ProviderSubscriptionID); err == nil {
		return ierr.NewErrorf("subscription for provider subscription %s already exists", sub.ProviderSubscriptionID).
			WithHint("Subscription already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	if err := s.InMemoryStore.Create(ctx, sub.ID, copySubscription(sub)); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewErrorf("subscription %s not found", id).
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) GetByProviderSubscriptionID(ctx context.Context, provider types.PaymentProvider, providerSubscriptionID string) (*subscription.Subscription, error) {
	matches := s.InMemoryStore.List(ctx, func(sub *subscription.Subscription) bool {
		return sub.Provider == provider && sub.ProviderSubscriptionID == providerSubscriptionID
	}, nil)
	if len(matches) == 0 {
		return nil, ierr.NewErrorf("no subscription for provider subscription %s", providerSubscriptionID).
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(matches[0]), nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if err := s.InMemoryStore.Update(ctx, sub.ID, copySubscription(sub)); err != nil {
		return ierr.NewErrorf("subscription %s not found", sub.ID).
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemorySubscriptionStore) List(ctx context.Context, filter *subscription.Filter) ([]*subscription.Subscription, error) {
	items := s.InMemoryStore.List(ctx, func(sub *subscription.Subscription) bool {
		if filter == nil {
			return true
		}
		if len(filter.SubscriptionIDs) > 0 && !lo.Contains(filter.SubscriptionIDs, sub.ID) {
			return false
		}
		if filter.UserID != "" && sub.UserID != filter.UserID {
			return false
		}
		if filter.ProductID != "" && sub.ProductID != filter.ProductID {
			return false
		}
		if filter.SubscriptionStatus != "" && sub.SubscriptionStatus != filter.SubscriptionStatus {
			return false
		}
		return true
	}, nil)
	return lo.Map(items, func(sub *subscription.Subscription, _ int) *subscription.Subscription {
		return copySubscription(sub)
	}), nil
}

func (s *InMemorySubscriptionStore) ListEntitlingByUserProduct(ctx context.Context, userID, productID string) ([]*subscription.Subscription, error) {
	items := s.InMemoryStore.List(ctx, func(sub *subscription.Subscription) bool {
		return sub.UserID == userID && sub.ProductID == productID && sub.IsEntitling()
	}, nil)
	return lo.Map(items, func(sub *subscription.Subscription, _ int) *subscription.Subscription {
		return copySubscription(sub)
	}), nil
}
