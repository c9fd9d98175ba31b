package order

import (
	"context"

	"github.com/inkpress/inkpress/internal/types"
)

// Repository defines the interface for order persistence operations
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// GetByProviderSessionID resolves the order a webhook refers to.
	GetByProviderSessionID(ctx context.Context, provider types.PaymentProvider, sessionID string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	// Delete removes a pending order that never reached the provider. Used
	// only under the delete pending-order policy.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter *Filter) ([]*Order, error)
}

// Filter defines query parameters for listing orders
type Filter struct {
	QueryFilter *types.QueryFilter
	OrderIDs    []string
	UserID      string
	OrderStatus types.OrderStatus
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
