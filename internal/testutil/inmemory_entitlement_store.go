package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/inkpress/inkpress/internal/domain/entitlement"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// InMemoryEntitlementStore implements entitlement.Repository. Rows are
// keyed by (user, work), matching the unique index of the real table.
type InMemoryEntitlementStore struct {
	*InMemoryStore[*entitlement.Entitlement]
}

func NewInMemoryEntitlementStore() *InMemoryEntitlementStore {
	return &InMemoryEntitlementStore{InMemoryStore: NewInMemoryStore[*entitlement.Entitlement]()}
}

func entitlementKey(userID, workID string) string {
	return userID + "/" + workID
}

func copyEntitlement(e *entitlement.Entitlement) *entitlement.Entitlement {
	if e == nil {
		return nil
	}
	copied := *e
	if e.ExpiresAt != nil {
		t := *e.ExpiresAt
		copied.ExpiresAt = &t
	}
	return &copied
}

func (s *InMemoryEntitlementStore) Upsert(ctx context.Context, e *entitlement.Entitlement) error {
	key := entitlementKey(e.UserID, e.WorkID)
	if _, err := s.InMemoryStore.Get(ctx, key); err == nil {
		return s.InMemoryStore.Update(ctx, key, copyEntitlement(e))
	}
	return s.InMemoryStore.Create(ctx, key, copyEntitlement(e))
}

func (s *InMemoryEntitlementStore) GetByUserWork(ctx context.Context, userID, workID string) (*entitlement.Entitlement, error) {
	e, err := s.InMemoryStore.Get(ctx, entitlementKey(userID, workID))
	if err != nil {
		return nil, ierr.NewErrorf("no entitlement for user %s work %s", userID, workID).
			WithHint("Entitlement not found").
			Mark(ierr.ErrNotFound)
	}
	return copyEntitlement(e), nil
}

func (s *InMemoryEntitlementStore) ListByUser(ctx context.Context, userID string) ([]*entitlement.Entitlement, error) {
	items := s.InMemoryStore.List(ctx, func(e *entitlement.Entitlement) bool {
		return e.UserID == userID
	}, nil)
	return lo.Map(items, func(e *entitlement.Entitlement, _ int) *entitlement.Entitlement {
		return copyEntitlement(e)
	}), nil
}

func (s *InMemoryEntitlementStore) ListBySource(ctx context.Context, sourceType types.EntitlementSource, sourceID string) ([]*entitlement.Entitlement, error) {
	items := s.InMemoryStore.List(ctx, func(e *entitlement.Entitlement) bool {
		return e.SourceType == sourceType && e.SourceID == sourceID
	}, nil)
	return lo.Map(items, func(e *entitlement.Entitlement, _ int) *entitlement.Entitlement {
		return copyEntitlement(e)
	}), nil
}

func (s *InMemoryEntitlementStore) DeleteByUserWork(ctx context.Context, userID, workID string) error {
	// Deleting an absent row is a no-op: revocation is idempotent.
	_ = s.InMemoryStore.Delete(ctx, entitlementKey(userID, workID))
	return nil
}
