package service

import (
	"context"

	"github.com/samber/lo"

	"github.com/inkpress/inkpress/internal/api/dto"
	"github.com/inkpress/inkpress/internal/domain/subscription"
)

// SubscriptionService is the read surface over reconciled subscriptions.
// Writes happen only through webhook reconciliation; the provider is
// authoritative and local state follows it.
type SubscriptionService interface {
	GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error)
	ListSubscriptions(ctx context.Context, filter *subscription.Filter) (*dto.ListSubscriptionsResponse, error)
}

type subscriptionService struct {
	ServiceParams
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{ServiceParams: params}
}

func (s *subscriptionService) GetSubscription(ctx context.Context, id string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewSubscriptionResponse(sub), nil
}

func (s *subscriptionService) ListSubscriptions(ctx context.Context, filter *subscription.Filter) (*dto.ListSubscriptionsResponse, error) {
	if filter == nil {
		filter = subscription.NewFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	subs, err := s.SubRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(subs, func(sub *subscription.Subscription, _ int) *dto.SubscriptionResponse {
		return dto.NewSubscriptionResponse(sub)
	})
	resp := dto.ListSubscriptionsResponse{Items: items}
	resp.Pagination.Limit = filter.GetLimit()
	resp.Pagination.Offset = filter.GetOffset()
	resp.Pagination.Total = len(items)
	return &resp, nil
}
