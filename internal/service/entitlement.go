package service

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/inkpress/inkpress/internal/domain/catalog"
	"github.com/inkpress/inkpress/internal/domain/entitlement"
	"github.com/inkpress/inkpress/internal/domain/product"
	"github.com/inkpress/inkpress/internal/domain/subscription"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// EntitlementService computes and mutates which works a user may read.
// Grants and revocations are idempotent and source-scoped: revoking a lapsed
// subscription never touches a purchase-sourced grant for the same work.
//
// Storage failures propagate out so the enclosing webhook transaction
// aborts; silent entitlement loss or gain is the worst failure mode this
// system has.
type EntitlementService interface {
	Grant(ctx context.Context, userID, workID string, sourceType types.EntitlementSource, sourceID string, expiresAt *time.Time) (*entitlement.Entitlement, error)
	Revoke(ctx context.Context, userID, workID string) error
	// RevokeBySource removes exactly the entitlements granted by one source.
	RevokeBySource(ctx context.Context, sourceType types.EntitlementSource, sourceID string) error
	Check(ctx context.Context, userID, workID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*entitlement.Entitlement, error)
	// SyncSubscription re-derives the grants of one subscription from its
	// current status: entitling statuses grant the product's works, all
	// other statuses revoke the subscription's own grants.
	SyncSubscription(ctx context.Context, sub *subscription.Subscription) error
	// WorksForProduct resolves the product's grant descriptor to work ids.
	WorksForProduct(ctx context.Context, p *product.Product) ([]string, error)
}

type entitlementService struct {
	ServiceParams
}

func NewEntitlementService(params ServiceParams) EntitlementService {
	return &entitlementService{ServiceParams: params}
}

func (s *entitlementService) Grant(ctx context.Context, userID, workID string, sourceType types.EntitlementSource, sourceID string, expiresAt *time.Time) (*entitlement.Entitlement, error) {
	e := &entitlement.Entitlement{
		ID:         types.GenerateUUIDWithPrefix(types.UUIDPrefixEntitlement),
		UserID:     userID,
		WorkID:     workID,
		SourceType: sourceType,
		SourceID:   sourceID,
		ExpiresAt:  expiresAt,
		BaseModel:  types.GetDefaultBaseModel(ctx),
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if err := s.validateSource(ctx, sourceType, sourceID); err != nil {
		return nil, err
	}

	// One row per (user, work). Re-granting from the same source is a
	// no-op; a different source takes the row over only when the existing
	// grant has lapsed, or when a purchase displaces a subscription grant.
	// Purchases are permanent, so a later subscription covering the same
	// work must not capture the row: revoking that subscription would
	// otherwise destroy paid-for access.
	existing, err := s.EntitlementRepo.GetByUserWork(ctx, userID, workID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		sameSource := existing.SourceType == sourceType && existing.SourceID == sourceID
		if sameSource && equalExpiry(existing.ExpiresAt, expiresAt) {
			return existing, nil
		}
		if !sameSource && existing.IsValidAt(time.Now().UTC()) && !displaces(sourceType, existing.SourceType) {
			return existing, nil
		}
	}

	if err := s.EntitlementRepo.Upsert(ctx, e); err != nil {
		return nil, err
	}

	s.Logger.Infow("granted entitlement",
		"user_id", userID,
		"work_id", workID,
		"source_type", sourceType,
		"source_id", sourceID,
	)
	return e, nil
}

// validateSource refuses grants from sources that no longer confer access,
// e.g. a stale subscription.updated racing a cancellation.
func (s *entitlementService) validateSource(ctx context.Context, sourceType types.EntitlementSource, sourceID string) error {
	switch sourceType {
	case types.EntitlementSourceSubscription:
		sub, err := s.SubRepo.Get(ctx, sourceID)
		if err != nil {
			return err
		}
		if !sub.IsEntitling() {
			return ierr.NewErrorf("subscription %s does not grant access in status %s", sourceID, sub.SubscriptionStatus).
				WithHint("Subscription no longer grants access").
				Mark(ierr.ErrInvalidOperation)
		}
	case types.EntitlementSourcePurchase:
		o, err := s.OrderRepo.Get(ctx, sourceID)
		if err != nil {
			return err
		}
		if o.OrderStatus != types.OrderStatusCompleted {
			return ierr.NewErrorf("order %s is not completed", sourceID).
				WithHint("Order must be completed before granting access").
				Mark(ierr.ErrInvalidOperation)
		}
	}
	return nil
}

func (s *entitlementService) Revoke(ctx context.Context, userID, workID string) error {
	return s.EntitlementRepo.DeleteByUserWork(ctx, userID, workID)
}

func (s *entitlementService) RevokeBySource(ctx context.Context, sourceType types.EntitlementSource, sourceID string) error {
	grants, err := s.EntitlementRepo.ListBySource(ctx, sourceType, sourceID)
	if err != nil {
		return err
	}
	for _, g := range grants {
		if err := s.EntitlementRepo.DeleteByUserWork(ctx, g.UserID, g.WorkID); err != nil {
			return err
		}
	}
	if len(grants) > 0 {
		s.Logger.Infow("revoked entitlements by source",
			"source_type", sourceType,
			"source_id", sourceID,
			"count", len(grants),
		)
	}
	return nil
}

func (s *entitlementService) Check(ctx context.Context, userID, workID string) (bool, error) {
	e, err := s.EntitlementRepo.GetByUserWork(ctx, userID, workID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return e.IsValidAt(time.Now().UTC()), nil
}

func (s *entitlementService) ListByUser(ctx context.Context, userID string) ([]*entitlement.Entitlement, error) {
	return s.EntitlementRepo.ListByUser(ctx, userID)
}

func (s *entitlementService) SyncSubscription(ctx context.Context, sub *subscription.Subscription) error {
	if !sub.IsEntitling() {
		return s.RevokeBySource(ctx, types.EntitlementSourceSubscription, sub.ID)
	}

	prod, err := s.ProductRepo.Get(ctx, sub.ProductID)
	if err != nil {
		return err
	}
	workIDs, err := s.WorksForProduct(ctx, prod)
	if err != nil {
		return err
	}

	for _, workID := range workIDs {
		if _, err := s.Grant(ctx, sub.UserID, workID, types.EntitlementSourceSubscription, sub.ID, nil); err != nil {
			return err
		}
	}

	// Drop grants for works the product no longer covers, e.g. after the
	// grant descriptor was edited between periods.
	current, err := s.EntitlementRepo.ListBySource(ctx, types.EntitlementSourceSubscription, sub.ID)
	if err != nil {
		return err
	}
	for _, g := range current {
		if !lo.Contains(workIDs, g.WorkID) {
			if err := s.EntitlementRepo.DeleteByUserWork(ctx, g.UserID, g.WorkID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *entitlementService) WorksForProduct(ctx context.Context, p *product.Product) ([]string, error) {
	if p.Grant == nil {
		// Products selling exactly one work need no descriptor.
		if p.WorkID != "" {
			return []string{p.WorkID}, nil
		}
		// The product -> works mapping is explicit data; nothing is guessed
		// for products configured without one.
		s.Logger.Warnw("product has no grant descriptor, granting nothing",
			"product_id", p.ID,
			"product_type", p.Type,
		)
		return nil, nil
	}

	switch p.Grant.Scope {
	case types.GrantScopeListedWorks:
		return p.Grant.WorkIDs, nil
	case types.GrantScopeAllPublished:
		works, err := s.CatalogRepo.ListPublishedByType(ctx, p.Grant.WorkType)
		if err != nil {
			return nil, err
		}
		return lo.Map(works, func(w *catalog.Work, _ int) string { return w.ID }), nil
	default:
		return nil, ierr.NewErrorf("invalid grant scope: %s", p.Grant.Scope).
			WithHint("Unknown grant scope").
			Mark(ierr.ErrValidation)
	}
}

// displaces reports whether a grant from incoming may overwrite a live
// grant from existing. Only a purchase displaces a subscription.
func displaces(incoming, existing types.EntitlementSource) bool {
	return incoming == types.EntitlementSourcePurchase && existing == types.EntitlementSourceSubscription
}

func equalExpiry(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
