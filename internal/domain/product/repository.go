package product

import (
	"context"

	"github.com/inkpress/inkpress/internal/types"
)

// Repository defines the interface for product persistence operations
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	Update(ctx context.Context, p *Product) error
	// Delete archives the product; the row is retained for historical orders.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter *Filter) ([]*Product, error)
}

// Filter defines query parameters for listing products
type Filter struct {
	QueryFilter *types.QueryFilter
	ProductIDs  []string
	Type        types.ProductType
	WorkID      string
}

func NewFilter() *Filter {
	return &Filter{QueryFilter: types.NewDefaultQueryFilter()}
}

func (f *Filter) GetLimit() int {
	if f == nil || f.QueryFilter == nil {
		return types.NewDefaultQueryFilter().GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

func (f *Filter) GetOffset() int {
	if f == nil || f.QueryFilter == nil {
		return 0
	}
	return f.QueryFilter.GetOffset()
}

func (f *Filter) GetStatus() string {
	if f == nil || f.QueryFilter == nil {
		return string(types.StatusPublished)
	}
	return f.QueryFilter.GetStatus()
}

func (f *Filter) GetSort() string {
	if f == nil || f.QueryFilter == nil {
		return types.FilterDefaultSort
	}
	return f.QueryFilter.GetSort()
}

func (f *Filter) GetOrder() string {
	if f == nil || f.QueryFilter == nil {
		return types.FilterDefaultOrder
	}
	return f.QueryFilter.GetOrder()
}

func (f *Filter) Validate() error {
	if f == nil || f.QueryFilter == nil {
		return nil
	}
	return f.QueryFilter.Validate()
}
