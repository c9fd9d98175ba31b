package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"

	"github.com/inkpress/inkpress/internal/domain/catalog"
	"github.com/inkpress/inkpress/internal/domain/entitlement"
	"github.com/inkpress/inkpress/internal/domain/order"
	"github.com/inkpress/inkpress/internal/domain/product"
	"github.com/inkpress/inkpress/internal/domain/subscription"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/testutil"
	"github.com/inkpress/inkpress/internal/types"
)

type EntitlementServiceSuite struct {
	testutil.BaseServiceTestSuite
	service EntitlementService
}

func TestEntitlementService(t *testing.T) {
	suite.Run(t, new(EntitlementServiceSuite))
}

func (s *EntitlementServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewEntitlementService(s.params())
}

func (s *EntitlementServiceSuite) params() ServiceParams {
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

func (s *EntitlementServiceSuite) seedCompletedOrder(id, userID string) {
	o := &order.Order{
		ID:          id,
		UserID:      userID,
		Provider:    types.PaymentProviderStripe,
		OrderStatus: types.OrderStatusCompleted,
		Currency:    "usd",
		LineItems: []*order.LineItem{
			{ID: "oli_1", OrderID: id, PriceID: "price_1", ProductID: "prod_1", Quantity: 1},
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.OrderStore.Create(s.GetContext(), o))
}

func (s *EntitlementServiceSuite) seedSubscription(id, userID, productID string, status types.SubscriptionStatus) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:                     id,
		UserID:                 userID,
		ProductID:              productID,
		PriceID:                "price_1",
		Provider:               types.PaymentProviderStripe,
		ProviderSubscriptionID: "sub_provider_" + id,
		SubscriptionStatus:     status,
		CurrentPeriodEnd:       time.Now().Add(30 * 24 * time.Hour),
		BaseModel:              types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.SubStore.Create(s.GetContext(), sub))
	return sub
}

func (s *EntitlementServiceSuite) TestGrantAndCheck() {
	s.seedCompletedOrder("ord_1", "user_1")

	_, err := s.service.Grant(s.GetContext(), "user_1", "work_1", types.EntitlementSourcePurchase, "ord_1", nil)
	s.NoError(err)

	allowed, err := s.service.Check(s.GetContext(), "user_1", "work_1")
	s.NoError(err)
	s.True(allowed)

	allowed, err = s.service.Check(s.GetContext(), "user_1", "work_other")
	s.NoError(err)
	s.False(allowed)
}

func (s *EntitlementServiceSuite) TestGrantIsIdempotent() {
	s.seedCompletedOrder("ord_1", "user_1")

	_, err := s.service.Grant(s.GetContext(), "user_1", "work_1", types.EntitlementSourcePurchase, "ord_1", nil)
	s.NoError(err)
	_, err = s.service.Grant(s.GetContext(), "user_1", "work_1", types.EntitlementSourcePurchase, "ord_1", nil)
	s.NoError(err)

	grants, err := s.service.ListByUser(s.GetContext(), "user_1")
	s.NoError(err)
	s.Len(grants, 1)
}

func (s *EntitlementServiceSuite) TestGrantFromPendingOrderRejected() {
	o := &order.Order{
		ID:          "ord_pending",
		UserID:      "user_1",
		Provider:    types.PaymentProviderStripe,
		OrderStatus: types.OrderStatusPending,
		Currency:    "usd",
		LineItems: []*order.LineItem{
			{ID: "oli_1", OrderID: "ord_pending", PriceID: "price_1", ProductID: "prod_1", Quantity: 1},
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.OrderStore.Create(s.GetContext(), o))

	_, err := s.service.Grant(s.GetContext(), "user_1", "work_1", types.EntitlementSourcePurchase, "ord_pending", nil)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *EntitlementServiceSuite) TestRevokeIsIdempotent() {
	s.seedCompletedOrder("ord_1", "user_1")
	_, err := s.service.Grant(s.GetContext(), "user_1", "work_1", types.EntitlementSourcePurchase, "ord_1", nil)
	s.NoError(err)

	s.NoError(s.service.Revoke(s.GetContext(), "user_1", "work_1"))
	s.NoError(s.service.Revoke(s.GetContext(), "user_1", "work_1"))

	allowed, err := s.service.Check(s.GetContext(), "user_1", "work_1")
	s.NoError(err)
	s.False(allowed)
}

func (s *EntitlementServiceSuite) TestRevokeBySourceLeavesOtherSourcesAlone() {
	s.seedCompletedOrder("ord_1", "user_1")
	sub := s.seedSubscription("sub_1", "user_1", "prod_1", types.SubscriptionStatusActive)

	// Purchase grants work_1; the subscription grants work_2.
	_, err := s.service.Grant(s.GetContext(), "user_1", "work_1", types.EntitlementSourcePurchase, "ord_1", nil)
	s.NoError(err)
	_, err = s.service.Grant(s.GetContext(), "user_1", "work_2", types.EntitlementSourceSubscription, sub.ID, nil)
	s.NoError(err)

	s.NoError(s.service.RevokeBySource(s.GetContext(), types.EntitlementSourceSubscription, sub.ID))

	allowed, err := s.service.Check(s.GetContext(), "user_1", "work_1")
	s.NoError(err)
	s.True(allowed, "purchase grant must survive subscription revocation")

	allowed, err = s.service.Check(s.GetContext(), "user_1", "work_2")
	s.NoError(err)
	s.False(allowed)
}

func (s *EntitlementServiceSuite) TestSubscriptionGrantDoesNotCapturePurchasedWork() {
	s.seedCompletedOrder("ord_1", "user_1")
	sub := s.seedSubscription("sub_1", "user_1", "prod_1", types.SubscriptionStatusActive)

	_, err := s.service.Grant(s.GetContext(), "user_1", "work_1", types.EntitlementSourcePurchase, "ord_1", nil)
	s.NoError(err)
	// The subscription also covers work_1 but must not take the row over.
	_, err = s.service.Grant(s.GetContext(), "user_1", "work_1", types.EntitlementSourceSubscription, sub.ID, nil)
	s.NoError(err)

	s.NoError(s.service.RevokeBySource(s.GetContext(), types.EntitlementSourceSubscription, sub.ID))

	allowed, err := s.service.Check(s.GetContext(), "user_1", "work_1")
	s.NoError(err)
	s.True(allowed)
}

func (s *EntitlementServiceSuite) TestGrantFromLapsedSubscriptionRejected() {
	sub := s.seedSubscription("sub_1", "user_1", "prod_1", types.SubscriptionStatusCanceled)

	_, err := s.service.Grant(s.GetContext(), "user_1", "work_1", types.EntitlementSourceSubscription, sub.ID, nil)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *EntitlementServiceSuite) TestSyncSubscriptionGrantsListedWorks() {
	prod := &product.Product{
		ID:   "prod_1",
		Name: "Season Pass",
		Type: types.ProductTypeSubscriptionTier,
		Grant: &product.GrantDescriptor{
			Scope:   types.GrantScopeListedWorks,
			WorkIDs: []string{"work_1", "work_2"},
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.ProductStore.Create(s.GetContext(), prod))
	sub := s.seedSubscription("sub_1", "user_1", "prod_1", types.SubscriptionStatusActive)

	s.NoError(s.service.SyncSubscription(s.GetContext(), sub))

	grants, err := s.service.ListByUser(s.GetContext(), "user_1")
	s.NoError(err)
	workIDs := lo.Map(grants, func(e *entitlement.Entitlement, _ int) string { return e.WorkID })
	s.ElementsMatch([]string{"work_1", "work_2"}, workIDs)
}

func (s *EntitlementServiceSuite) TestSyncSubscriptionAllPublishedResolvesCatalog() {
	s.CatalogStore.AddWork(&catalog.Work{ID: "work_1", Title: "Issue 1", Type: "issue", Published: true})
	s.CatalogStore.AddWork(&catalog.Work{ID: "work_2", Title: "Issue 2", Type: "issue", Published: true})
	s.CatalogStore.AddWork(&catalog.Work{ID: "work_draft", Title: "Draft", Type: "issue", Published: false})
	s.CatalogStore.AddWork(&catalog.Work{ID: "work_novel", Title: "Novel", Type: "novel", Published: true})

	prod := &product.Product{
		ID:   "prod_1",
		Name: "All Issues Pass",
		Type: types.ProductTypeArcPass,
		Grant: &product.GrantDescriptor{
			Scope:    types.GrantScopeAllPublished,
			WorkType: "issue",
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.ProductStore.Create(s.GetContext(), prod))
	sub := s.seedSubscription("sub_1", "user_1", "prod_1", types.SubscriptionStatusActive)

	s.NoError(s.service.SyncSubscription(s.GetContext(), sub))

	grants, err := s.service.ListByUser(s.GetContext(), "user_1")
	s.NoError(err)
	workIDs := lo.Map(grants, func(e *entitlement.Entitlement, _ int) string { return e.WorkID })
	s.ElementsMatch([]string{"work_1", "work_2"}, workIDs)
}

func (s *EntitlementServiceSuite) TestSyncLapsedSubscriptionRevokes() {
	prod := &product.Product{
		ID:   "prod_1",
		Name: "Season Pass",
		Type: types.ProductTypeSubscriptionTier,
		Grant: &product.GrantDescriptor{
			Scope:   types.GrantScopeListedWorks,
			WorkIDs: []string{"work_1"},
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.ProductStore.Create(s.GetContext(), prod))
	sub := s.seedSubscription("sub_1", "user_1", "prod_1", types.SubscriptionStatusActive)

	s.NoError(s.service.SyncSubscription(s.GetContext(), sub))
	allowed, _ := s.service.Check(s.GetContext(), "user_1", "work_1")
	s.True(allowed)

	sub.SubscriptionStatus = types.SubscriptionStatusCanceled
	s.Require().NoError(s.SubStore.Update(s.GetContext(), sub))
	s.NoError(s.service.SyncSubscription(s.GetContext(), sub))

	allowed, _ = s.service.Check(s.GetContext(), "user_1", "work_1")
	s.False(allowed)
}

func (s *EntitlementServiceSuite) TestExpiredEntitlementDeniesAccess() {
	s.seedCompletedOrder("ord_1", "user_1")
	expired := time.Now().Add(-time.Hour)

	_, err := s.service.Grant(s.GetContext(), "user_1", "work_1", types.EntitlementSourcePurchase, "ord_1", &expired)
	s.NoError(err)

	allowed, err := s.service.Check(s.GetContext(), "user_1", "work_1")
	s.NoError(err)
	s.False(allowed)
}
