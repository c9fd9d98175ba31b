package price

import (
	"context"

	"github.com/inkpress/inkpress/internal/types"
)

// Repository defines the interface for price persistence operations
type Repository interface {
	Create(ctx context.Context, p *Price) error
	Get(ctx context.Context, id string) (*Price, error)
	GetByProviderPriceID(ctx context.Context, providerPriceID string) (*Price, error)
	Update(ctx context.Context, p *Price) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter *Filter) ([]*Price, error)
	// GetDefaultByProduct returns the default price of a product, or a
	// not-found error when the product has none.
	GetDefaultByProduct(ctx context.Context, productID string) (*Price, error)
	// ClearDefaultForProduct unsets is_default on every price of the product.
	// Called before promoting another price, keeping at most one default.
	ClearDefaultForProduct(ctx context.Context, productID string) error
}

// Filter defines query parameters for listing prices
type Filter struct {
	QueryFilter *types.QueryFilter
	PriceIDs    []string
	ProductIDs  []string
	Type        types.PriceType
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
