package subscription

import (
	"context"

	"github.com/inkpress/inkpress/internal/types"
)

// Repository defines the interface for subscription persistence operations
type Repository interface {
	Create(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	GetByProviderSubscriptionID(ctx context.Context, provider types.PaymentProvider, providerSubscriptionID string) (*Subscription, error)
	Update(ctx context.Context, s *Subscription) error
	List(ctx context.Context, filter *Filter) ([]*Subscription, error)
	// ListEntitlingByUserProduct returns the subscriptions of a user for a
	// product whose status still grants access. Used to enforce at most one
	// entitling subscription per (user, product).
	ListEntitlingByUserProduct(ctx context.Context, userID, productID string) ([]*Subscription, error)
}

// Filter defines query parameters for listing subscriptions
type Filter struct {
	QueryFilter        *types.QueryFilter
	SubscriptionIDs    []string
	UserID             string
	ProductID          string
	SubscriptionStatus types.SubscriptionStatus
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
