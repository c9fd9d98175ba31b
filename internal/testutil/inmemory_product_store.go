package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/inkpress/inkpress/internal/domain/product"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// InMemoryProductStore implements product.Repository
type InMemoryProductStore struct {
	*InMemoryStore[*product.Product]
}

func NewInMemoryProductStore() *InMemoryProductStore {
	return &InMemoryProductStore{InMemoryStore: NewInMemoryStore[*product.Product]()}
}

func copyProduct(p *product.Product) *product.Product {
	if p == nil {
		return nil
	}
	copied := *p
	copied.Metadata = lo.Assign(types.Metadata{}, p.Metadata)
	if p.Grant != nil {
		g := *p.Grant
		g.WorkIDs = append([]string(nil), p.Grant.WorkIDs...)
		copied.Grant = &g
	}
	return &copied
}

func (s *InMemoryProductStore) Create(ctx context.Context, p *product.Product) error {
	if err := s.InMemoryStore.Create(ctx, p.ID, copyProduct(p)); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create product").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryProductStore) Get(ctx context.Context, id string) (*product.Product, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewErrorf("product %s not found", id).
			WithHint("Product not found").
			Mark(ierr.ErrNotFound)
	}
	return copyProduct(p), nil
}

func (s *InMemoryProductStore) Update(ctx context.Context, p *product.Product) error {
	if err := s.InMemoryStore.Update(ctx, p.ID, copyProduct(p)); err != nil {
		return ierr.NewErrorf("product %s not found", p.ID).
			WithHint("Product not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryProductStore) Delete(ctx context.Context, id string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	p.Status = types.StatusArchived
	return s.Update(ctx, p)
}

func (s *InMemoryProductStore) List(ctx context.Context, filter *product.Filter) ([]*product.Product, error) {
	items := s.InMemoryStore.List(ctx, func(p *product.Product) bool {
		if filter == nil {
			return true
		}
		if filter.GetStatus() != "" && string(p.Status) != filter.GetStatus() {
			return false
		}
		if len(filter.ProductIDs) > 0 && !lo.Contains(filter.ProductIDs, p.ID) {
			return false
		}
		if filter.Type != "" && p.Type != filter.Type {
			return false
		}
		if filter.WorkID != "" && p.WorkID != filter.WorkID {
			return false
		}
		return true
	}, nil)
	return lo.Map(items, func(p *product.Product, _ int) *product.Product { return copyProduct(p) }), nil
}
