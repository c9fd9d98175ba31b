package catalog

import (
	"context"
	"time"

	"github.com/inkpress/inkpress/internal/cache"
)

const cacheTTL = 2 * time.Minute

// CachedRepository decorates a catalog Repository with a short-lived cache.
// Entitlement derivation hits the catalog once per granted work, so the
// same lookups repeat heavily under webhook bursts.
type CachedRepository struct {
	inner Repository
	cache cache.Cache
}

func NewCachedRepository(inner Repository, c cache.Cache) *CachedRepository {
	return &CachedRepository{inner: inner, cache: c}
}

func (r *CachedRepository) GetWork(ctx context.Context, id string) (*Work, error) {
	key := cache.Key("catalog", "work", id)
	if v, ok := r.cache.Get(ctx, key); ok {
		if w, ok := v.(*Work); ok {
			return w, nil
		}
	}

	w, err := r.inner.GetWork(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, key, w, cacheTTL)
	return w, nil
}

func (r *CachedRepository) ListPublishedByType(ctx context.Context, workType string) ([]*Work, error) {
	key := cache.Key("catalog", "published", workType)
	if v, ok := r.cache.Get(ctx, key); ok {
		if works, ok := v.([]*Work); ok {
			return works, nil
		}
	}

	works, err := r.inner.ListPublishedByType(ctx, workType)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, key, works, cacheTTL)
	return works, nil
}
