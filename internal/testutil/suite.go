package testutil

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/inkpress/inkpress/internal/config"
	"github.com/inkpress/inkpress/internal/logger"
)

// BaseServiceTestSuite wires fresh in-memory stores and fakes for every
// test. Service suites embed it and build their ServiceParams from the
// exposed stores.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx context.Context

	Cfg     *config.Configuration
	Log     *logger.Logger
	DB      *FakeClient
	Gateway *FakeGateway

	ProductStore      *InMemoryProductStore
	PriceStore        *InMemoryPriceStore
	OrderStore        *InMemoryOrderStore
	SubStore          *InMemorySubscriptionStore
	EntitlementStore  *InMemoryEntitlementStore
	InventoryStore    *InMemoryInventoryStore
	WebhookEventStore *InMemoryWebhookEventStore
	CatalogStore      *InMemoryCatalogStore
}

func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.Cfg = config.GetDefaultConfig()
	s.Log = logger.NewNopLogger()
	s.DB = NewFakeClient()
	s.Gateway = NewFakeGateway()

	s.ProductStore = NewInMemoryProductStore()
	s.PriceStore = NewInMemoryPriceStore()
	s.OrderStore = NewInMemoryOrderStore()
	s.SubStore = NewInMemorySubscriptionStore()
	s.EntitlementStore = NewInMemoryEntitlementStore()
	s.InventoryStore = NewInMemoryInventoryStore()
	s.WebhookEventStore = NewInMemoryWebhookEventStore()
	s.CatalogStore = NewInMemoryCatalogStore()
}

// GetContext returns the test context.
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}
