package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/inkpress/inkpress/internal/api/dto"
	"github.com/inkpress/inkpress/internal/config"
	"github.com/inkpress/inkpress/internal/domain/order"
	"github.com/inkpress/inkpress/internal/domain/price"
	"github.com/inkpress/inkpress/internal/domain/product"
	"github.com/inkpress/inkpress/internal/domain/subscription"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/testutil"
	"github.com/inkpress/inkpress/internal/types"
)

type CheckoutServiceSuite struct {
	testutil.BaseServiceTestSuite
	service CheckoutService
}

func TestCheckoutService(t *testing.T) {
	suite.Run(t, new(CheckoutServiceSuite))
}

func (s *CheckoutServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewCheckoutService(s.params())
}

func (s *CheckoutServiceSuite) params() ServiceParams {
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

func (s *CheckoutServiceSuite) seedProductWithPrice(priceType types.PriceType, policy types.InventoryPolicy) *price.Price {
	prod := &product.Product{
		ID:        types.GenerateUUIDWithPrefix(types.UUIDPrefixProduct),
		Name:      "Issue #1",
		Type:      types.ProductTypeSingleIssue,
		WorkID:    "work_1",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.ProductStore.Create(s.GetContext(), prod))

	p := &price.Price{
		ID:              types.GenerateUUIDWithPrefix(types.UUIDPrefixPrice),
		ProductID:       prod.ID,
		Currency:        "usd",
		Amount:          decimal.NewFromInt(5),
		Type:            priceType,
		InventoryPolicy: policy,
		ProviderPriceID: "price_provider_1",
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	if priceType == types.PriceTypeRecurring {
		p.BillingPeriod = types.BillingPeriodMonthly
		p.BillingPeriodCount = 1
	}
	s.Require().NoError(s.PriceStore.Create(s.GetContext(), p))
	return p
}

func (s *CheckoutServiceSuite) TestCreateSessionHappyPath() {
	p := s.seedProductWithPrice(types.PriceTypeOneTime, types.InventoryPolicyAllow)

	resp, err := s.service.CreateCheckoutSession(s.GetContext(), &dto.CreateCheckoutSessionRequest{
		UserID:    "user_1",
		LineItems: []dto.CheckoutLineItem{{PriceID: p.ID, Quantity: 2}},
	})
	s.NoError(err)
	s.NotEmpty(resp.SessionURL)

	o, err := s.OrderStore.Get(s.GetContext(), resp.OrderID)
	s.NoError(err)
	s.Equal(types.OrderStatusPending, o.OrderStatus)
	s.Equal(resp.SessionID, o.ProviderSessionID)
	s.True(o.Total.Equal(decimal.NewFromInt(10)))
}

func (s *CheckoutServiceSuite) TestEmptyCartRejected() {
	_, err := s.service.CreateCheckoutSession(s.GetContext(), &dto.CreateCheckoutSessionRequest{
		UserID:    "user_1",
		LineItems: []dto.CheckoutLineItem{},
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *CheckoutServiceSuite) TestArchivedPriceRejected() {
	p := s.seedProductWithPrice(types.PriceTypeOneTime, types.InventoryPolicyAllow)
	s.Require().NoError(s.PriceStore.Delete(s.GetContext(), p.ID))

	_, err := s.service.CreateCheckoutSession(s.GetContext(), &dto.CreateCheckoutSessionRequest{
		UserID:    "user_1",
		LineItems: []dto.CheckoutLineItem{{PriceID: p.ID, Quantity: 1}},
	})
	s.Error(err)
}

func (s *CheckoutServiceSuite) TestInsufficientStockFailsFast() {
	p := s.seedProductWithPrice(types.PriceTypeOneTime, types.InventoryPolicyDeny)
	inv := NewInventoryService(s.params())
	_, err := inv.Adjust(s.GetContext(), p.ID, 1, types.MovementReasonRestock, "po-1")
	s.Require().NoError(err)

	_, err = s.service.CreateCheckoutSession(s.GetContext(), &dto.CreateCheckoutSessionRequest{
		UserID:    "user_1",
		LineItems: []dto.CheckoutLineItem{{PriceID: p.ID, Quantity: 2}},
	})
	s.Error(err)
	s.True(ierr.IsOutOfStock(err))
	// Nothing was created: no pending order, no provider session.
	s.Equal(0, s.OrderStore.Count())
	s.Empty(s.Gateway.CheckoutSessions)
}

func (s *CheckoutServiceSuite) TestSubscriptionMustCheckOutAlone() {
	rec := s.seedProductWithPrice(types.PriceTypeRecurring, types.InventoryPolicyAllow)
	one := s.seedProductWithPrice(types.PriceTypeOneTime, types.InventoryPolicyAllow)

	_, err := s.service.CreateCheckoutSession(s.GetContext(), &dto.CreateCheckoutSessionRequest{
		UserID: "user_1",
		LineItems: []dto.CheckoutLineItem{
			{PriceID: rec.ID, Quantity: 1},
			{PriceID: one.ID, Quantity: 1},
		},
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *CheckoutServiceSuite) TestSubscriptionRequiresUser() {
	rec := s.seedProductWithPrice(types.PriceTypeRecurring, types.InventoryPolicyAllow)

	_, err := s.service.CreateCheckoutSession(s.GetContext(), &dto.CreateCheckoutSessionRequest{
		LineItems: []dto.CheckoutLineItem{{PriceID: rec.ID, Quantity: 1}},
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *CheckoutServiceSuite) TestDuplicateEntitlingSubscriptionRejected() {
	rec := s.seedProductWithPrice(types.PriceTypeRecurring, types.InventoryPolicyAllow)

	existing := &subscription.Subscription{
		ID:                     "sub_1",
		UserID:                 "user_1",
		ProductID:              rec.ProductID,
		PriceID:                rec.ID,
		Provider:               types.PaymentProviderStripe,
		ProviderSubscriptionID: "sub_provider_1",
		SubscriptionStatus:     types.SubscriptionStatusActive,
		BaseModel:              types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.SubStore.Create(s.GetContext(), existing))

	_, err := s.service.CreateCheckoutSession(s.GetContext(), &dto.CreateCheckoutSessionRequest{
		UserID:    "user_1",
		LineItems: []dto.CheckoutLineItem{{PriceID: rec.ID, Quantity: 1}},
	})
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *CheckoutServiceSuite) TestProviderFailureMarksOrderFailed() {
	p := s.seedProductWithPrice(types.PriceTypeOneTime, types.InventoryPolicyAllow)
	s.Gateway.CheckoutSessionErr = ierr.NewError("provider down").
		WithHint("Payment provider is unavailable").
		Mark(ierr.ErrPaymentProvider)

	_, err := s.service.CreateCheckoutSession(s.GetContext(), &dto.CreateCheckoutSessionRequest{
		UserID:    "user_1",
		LineItems: []dto.CheckoutLineItem{{PriceID: p.ID, Quantity: 1}},
	})
	s.Error(err)
	s.True(ierr.IsPaymentProvider(err))

	orders, listErr := s.OrderStore.List(s.GetContext(), order.NewFilter())
	s.NoError(listErr)
	s.Require().Len(orders, 1)
	s.Equal(types.OrderStatusFailed, orders[0].OrderStatus)
}

func (s *CheckoutServiceSuite) TestProviderFailureDeletesOrderUnderDeletePolicy() {
	s.Cfg.Checkout.PendingOrderPolicy = config.PendingOrderPolicyDelete
	s.service = NewCheckoutService(s.params())

	p := s.seedProductWithPrice(types.PriceTypeOneTime, types.InventoryPolicyAllow)
	s.Gateway.CheckoutSessionErr = ierr.NewError("provider down").
		WithHint("Payment provider is unavailable").
		Mark(ierr.ErrPaymentProvider)

	_, err := s.service.CreateCheckoutSession(s.GetContext(), &dto.CreateCheckoutSessionRequest{
		UserID:    "user_1",
		LineItems: []dto.CheckoutLineItem{{PriceID: p.ID, Quantity: 1}},
	})
	s.Error(err)
	s.Equal(0, s.OrderStore.Count())
}

func (s *CheckoutServiceSuite) TestUnsyncedPriceIsSyncedLazily() {
	p := s.seedProductWithPrice(types.PriceTypeOneTime, types.InventoryPolicyAllow)
	p.ProviderPriceID = ""
	s.Require().NoError(s.PriceStore.Update(s.GetContext(), p))

	resp, err := s.service.CreateCheckoutSession(s.GetContext(), &dto.CreateCheckoutSessionRequest{
		UserID:    "user_1",
		LineItems: []dto.CheckoutLineItem{{PriceID: p.ID, Quantity: 1}},
	})
	s.NoError(err)
	s.NotEmpty(resp.SessionID)
	s.Len(s.Gateway.CreatedPrices, 1)

	updated, err := s.PriceStore.Get(s.GetContext(), p.ID)
	s.NoError(err)
	s.NotEmpty(updated.ProviderPriceID)
}
