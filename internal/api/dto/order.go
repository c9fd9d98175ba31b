package dto

import (
	"github.com/inkpress/inkpress/internal/domain/order"
	"github.com/inkpress/inkpress/internal/domain/subscription"
	"github.com/inkpress/inkpress/internal/types"
)

type OrderResponse struct {
	*order.Order
}

func NewOrderResponse(o *order.Order) *OrderResponse {
	return &OrderResponse{Order: o}
}

type ListOrdersResponse = types.ListResponse[*OrderResponse]

type RefundOrderRequest struct {
	// Reason is forwarded to the payment provider.
	Reason string `json:"reason,omitempty"`
}

type SubscriptionResponse struct {
	*subscription.Subscription
}

func NewSubscriptionResponse(s *subscription.Subscription) *SubscriptionResponse {
	return &SubscriptionResponse{Subscription: s}
}

type ListSubscriptionsResponse = types.ListResponse[*SubscriptionResponse]
