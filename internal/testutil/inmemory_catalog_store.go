package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/inkpress/inkpress/internal/domain/catalog"
	ierr "github.com/inkpress/inkpress/internal/errors"
)

// InMemoryCatalogStore implements catalog.Repository
type InMemoryCatalogStore struct {
	*InMemoryStore[*catalog.Work]
}

func NewInMemoryCatalogStore() *InMemoryCatalogStore {
	return &InMemoryCatalogStore{InMemoryStore: NewInMemoryStore[*catalog.Work]()}
}

// AddWork seeds a work into the catalog.
func (s *InMemoryCatalogStore) AddWork(w *catalog.Work) {
	c := *w
	_ = s.InMemoryStore.Create(context.Background(), w.ID, &c)
}

func (s *InMemoryCatalogStore) GetWork(ctx context.Context, id string) (*catalog.Work, error) {
	w, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewErrorf("work %s not found", id).
			WithHint("Work not found").
			Mark(ierr.ErrNotFound)
	}
	c := *w
	return &c, nil
}

func (s *InMemoryCatalogStore) ListPublishedByType(ctx context.Context, workType string) ([]*catalog.Work, error) {
	items := s.InMemoryStore.List(ctx, func(w *catalog.Work) bool {
		return w.Published && w.Type == workType
	}, nil)
	return lo.Map(items, func(w *catalog.Work, _ int) *catalog.Work {
		c := *w
		return &c
	}), nil
}
