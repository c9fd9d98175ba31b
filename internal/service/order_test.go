package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/inkpress/inkpress/internal/api/dto"
	"github.com/inkpress/inkpress/internal/domain/order"
	"github.com/inkpress/inkpress/internal/domain/price"
	"github.com/inkpress/inkpress/internal/domain/product"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/testutil"
	"github.com/inkpress/inkpress/internal/types"
)

type OrderServiceSuite struct {
	testutil.BaseServiceTestSuite
	service   OrderService
	inventory InventoryService
}

func TestOrderService(t *testing.T) {
	suite.Run(t, new(OrderServiceSuite))
}

func (s *OrderServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := s.params()
	s.service = NewOrderService(params)
	s.inventory = NewInventoryService(params)
}

func (s *OrderServiceSuite) params() ServiceParams {
	return ServiceParams{
		Logger:           s.Log,
		Config:           s.Cfg,
		DB:               s.DB,
		ProductRepo:      s.ProductStore,
		PriceRepo:        s.PriceStore,
		OrderRepo:        s.OrderStore,
		SubRepo:          s.SubStore,
		EntitlementRepo:  s.EntitlementStore,
		InventoryRepo:    s.InventoryStore,
		WebhookEventRepo: s.WebhookEventStore,
		CatalogRepo:      s.CatalogStore,
		Gateway:          s.Gateway,
	}
}

type orderFixture struct {
	order *order.Order
	price *price.Price
}

func (s *OrderServiceSuite) seedOrder(userID string, priceType types.PriceType, quantity int, stock int64) orderFixture {
	prod := &product.Product{
		ID:        types.GenerateUUIDWithPrefix(types.UUIDPrefixProduct),
		Name:      "Chapter Pass",
		Type:      types.ProductTypeChapterPass,
		WorkID:    "work_1",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.ProductStore.Create(s.GetContext(), prod))

	p := &price.Price{
		ID:              types.GenerateUUIDWithPrefix(types.UUIDPrefixPrice),
		ProductID:       prod.ID,
		Currency:        "usd",
		Amount:          decimal.NewFromInt(7),
		Type:            priceType,
		InventoryPolicy: types.InventoryPolicyDeny,
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	if priceType == types.PriceTypeRecurring {
		p.BillingPeriod = types.BillingPeriodMonthly
	}
	s.Require().NoError(s.PriceStore.Create(s.GetContext(), p))
	if stock != 0 {
		_, err := s.inventory.Adjust(s.GetContext(), p.ID, stock, types.MovementReasonRestock, "po-1")
		s.Require().NoError(err)
	}

	o := &order.Order{
		ID:                types.GenerateUUIDWithPrefix(types.UUIDPrefixOrder),
		UserID:            userID,
		Provider:          types.PaymentProviderStripe,
		ProviderSessionID: "cs_" + types.GenerateUUID(),
		OrderStatus:       types.OrderStatusPending,
		Currency:          "usd",
		Total:             decimal.NewFromInt(7).Mul(decimal.NewFromInt(int64(quantity))),
		LineItems: []*order.LineItem{
			{
				ID:        types.GenerateUUIDWithPrefix(types.UUIDPrefixOrderLineItem),
				PriceID:   p.ID,
				ProductID: prod.ID,
				Quantity:  quantity,
				Amount:    decimal.NewFromInt(7),
			},
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	o.LineItems[0].OrderID = o.ID
	s.Require().NoError(s.OrderStore.Create(s.GetContext(), o))
	return orderFixture{order: o, price: p}
}

func (s *OrderServiceSuite) TestFulfillOrderSettlesEverything() {
	fix := s.seedOrder("user_1", types.PriceTypeOneTime, 2, 5)

	s.NoError(s.service.FulfillOrder(s.GetContext(), fix.order.ID, "pi_1", "reader@example.com"))

	o, err := s.OrderStore.Get(s.GetContext(), fix.order.ID)
	s.NoError(err)
	s.Equal(types.OrderStatusCompleted, o.OrderStatus)
	s.Equal("pi_1", o.ProviderPaymentIntentID)
	s.Equal("reader@example.com", o.CustomerEmail)

	balance, err := s.InventoryStore.Balance(s.GetContext(), fix.price.ID)
	s.NoError(err)
	s.Equal(int64(3), balance)

	grant, err := s.EntitlementStore.GetByUserWork(s.GetContext(), "user_1", "work_1")
	s.NoError(err)
	s.Equal(types.EntitlementSourcePurchase, grant.SourceType)
	s.Equal(fix.order.ID, grant.SourceID)
}

func (s *OrderServiceSuite) TestFulfillOrderReplayRejected() {
	fix := s.seedOrder("user_1", types.PriceTypeOneTime, 1, 5)

	s.NoError(s.service.FulfillOrder(s.GetContext(), fix.order.ID, "pi_1", ""))

	err := s.service.FulfillOrder(s.GetContext(), fix.order.ID, "pi_1", "")
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	// The replay must not decrement again.
	balance, err := s.InventoryStore.Balance(s.GetContext(), fix.price.ID)
	s.NoError(err)
	s.Equal(int64(4), balance)
}

func (s *OrderServiceSuite) TestFulfillOrderOutOfStock() {
	fix := s.seedOrder("user_1", types.PriceTypeOneTime, 3, 2)

	err := s.service.FulfillOrder(s.GetContext(), fix.order.ID, "pi_1", "")
	s.Error(err)
	s.True(ierr.IsOutOfStock(err))

	// The order stays pending so the caller can compensate.
	o, getErr := s.OrderStore.Get(s.GetContext(), fix.order.ID)
	s.NoError(getErr)
	s.Equal(types.OrderStatusPending, o.OrderStatus)
}

func (s *OrderServiceSuite) TestGuestOrderFulfilledWithoutEntitlements() {
	fix := s.seedOrder("", types.PriceTypeOneTime, 1, 5)

	s.NoError(s.service.FulfillOrder(s.GetContext(), fix.order.ID, "pi_1", "guest@example.com"))

	o, err := s.OrderStore.Get(s.GetContext(), fix.order.ID)
	s.NoError(err)
	s.Equal(types.OrderStatusCompleted, o.OrderStatus)
	s.Equal(0, s.EntitlementStore.Count())
}

func (s *OrderServiceSuite) TestRecurringLineNotEntitledThroughOrder() {
	fix := s.seedOrder("user_1", types.PriceTypeRecurring, 1, 5)

	s.NoError(s.service.FulfillOrder(s.GetContext(), fix.order.ID, "pi_1", ""))

	// Access arrives via the subscription lifecycle, not the order.
	s.Equal(0, s.EntitlementStore.Count())
}

func (s *OrderServiceSuite) TestRefundOrderRestoresAndRevokes() {
	fix := s.seedOrder("user_1", types.PriceTypeOneTime, 2, 5)
	s.Require().NoError(s.service.FulfillOrder(s.GetContext(), fix.order.ID, "pi_1", ""))

	resp, err := s.service.RefundOrder(s.GetContext(), fix.order.ID, &dto.RefundOrderRequest{Reason: "requested_by_customer"})
	s.NoError(err)
	s.Equal(types.OrderStatusRefunded, resp.OrderStatus)
	s.Equal(1, s.Gateway.RefundCount())

	balance, err := s.InventoryStore.Balance(s.GetContext(), fix.price.ID)
	s.NoError(err)
	s.Equal(int64(5), balance)

	_, err = s.EntitlementStore.GetByUserWork(s.GetContext(), "user_1", "work_1")
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *OrderServiceSuite) TestRefundPendingOrderRejected() {
	fix := s.seedOrder("user_1", types.PriceTypeOneTime, 1, 5)

	_, err := s.service.RefundOrder(s.GetContext(), fix.order.ID, nil)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.Equal(0, s.Gateway.RefundCount())
}

func (s *OrderServiceSuite) TestRefundWithoutPaymentIntentRejected() {
	fix := s.seedOrder("user_1", types.PriceTypeOneTime, 1, 5)
	s.Require().NoError(s.service.FulfillOrder(s.GetContext(), fix.order.ID, "", ""))

	_, err := s.service.RefundOrder(s.GetContext(), fix.order.ID, nil)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *OrderServiceSuite) TestRefundDoesNotCrossOrders() {
	first := s.seedOrder("user_1", types.PriceTypeOneTime, 1, 5)
	s.Require().NoError(s.service.FulfillOrder(s.GetContext(), first.order.ID, "pi_1", ""))

	second := s.seedOrder("user_2", types.PriceTypeOneTime, 1, 5)
	s.Require().NoError(s.service.FulfillOrder(s.GetContext(), second.order.ID, "pi_2", ""))

	_, err := s.service.RefundOrder(s.GetContext(), first.order.ID, nil)
	s.NoError(err)

	// The other user's grant from their own order survives.
	grant, err := s.EntitlementStore.GetByUserWork(s.GetContext(), "user_2", "work_1")
	s.NoError(err)
	s.Equal(second.order.ID, grant.SourceID)
}

func (s *OrderServiceSuite) TestFailOrderFromPending() {
	fix := s.seedOrder("user_1", types.PriceTypeOneTime, 1, 5)

	s.NoError(s.service.FailOrder(s.GetContext(), fix.order.ID))

	o, err := s.OrderStore.Get(s.GetContext(), fix.order.ID)
	s.NoError(err)
	s.Equal(types.OrderStatusFailed, o.OrderStatus)
}
