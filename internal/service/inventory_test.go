package service

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/inkpress/inkpress/internal/domain/price"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/testutil"
	"github.com/inkpress/inkpress/internal/types"
)

type InventoryServiceSuite struct {
	testutil.BaseServiceTestSuite
	service InventoryService
}

func TestInventoryService(t *testing.T) {
	suite.Run(t, new(InventoryServiceSuite))
}

func (s *InventoryServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewInventoryService(s.params())
}

func (s *InventoryServiceSuite) params() ServiceParams {
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

func (s *InventoryServiceSuite) seedPrice(policy types.InventoryPolicy) *price.Price {
	p := &price.Price{
		ID:              types.GenerateUUIDWithPrefix(types.UUIDPrefixPrice),
		ProductID:       "prod_test",
		Currency:        "usd",
		Amount:          decimal.NewFromInt(10),
		Type:            types.PriceTypeOneTime,
		InventoryPolicy: policy,
		BaseModel:       types.GetDefaultBaseModel(s.GetContext()),
	}
	s.Require().NoError(s.PriceStore.Create(s.GetContext(), p))
	return p
}

func (s *InventoryServiceSuite) TestAdjustAppendsLedgerEntries() {
	p := s.seedPrice(types.InventoryPolicyDeny)

	m, err := s.service.Adjust(s.GetContext(), p.ID, 10, types.MovementReasonRestock, "po-1")
	s.NoError(err)
	s.Equal(int64(0), m.BeforeQty)
	s.Equal(int64(10), m.AfterQty)

	m, err = s.service.Adjust(s.GetContext(), p.ID, -3, types.MovementReasonOrderFulfillment, "ord_1")
	s.NoError(err)
	s.Equal(int64(10), m.BeforeQty)
	s.Equal(int64(7), m.AfterQty)

	balance, err := s.service.Balance(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(int64(7), balance)
}

func (s *InventoryServiceSuite) TestDenyPolicyRejectsOversell() {
	p := s.seedPrice(types.InventoryPolicyDeny)
	_, err := s.service.Adjust(s.GetContext(), p.ID, 2, types.MovementReasonRestock, "po-1")
	s.NoError(err)

	_, err = s.service.Adjust(s.GetContext(), p.ID, -3, types.MovementReasonOrderFulfillment, "ord_1")
	s.Error(err)
	s.True(ierr.IsOutOfStock(err))

	// No partial write on rejection.
	balance, err := s.service.Balance(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(int64(2), balance)
	movements, err := s.service.ListMovements(s.GetContext(), p.ID)
	s.NoError(err)
	s.Len(movements, 1)
}

func (s *InventoryServiceSuite) TestAllowPolicyPermitsNegativeBalance() {
	p := s.seedPrice(types.InventoryPolicyAllow)

	m, err := s.service.Adjust(s.GetContext(), p.ID, -5, types.MovementReasonOrderFulfillment, "ord_1")
	s.NoError(err)
	s.Equal(int64(-5), m.AfterQty)
}

func (s *InventoryServiceSuite) TestZeroDeltaRejected() {
	p := s.seedPrice(types.InventoryPolicyAllow)
	_, err := s.service.Adjust(s.GetContext(), p.ID, 0, types.MovementReasonRestock, "")
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *InventoryServiceSuite) TestConcurrentAdjustmentsNeverOversell() {
	p := s.seedPrice(types.InventoryPolicyDeny)
	_, err := s.service.Adjust(s.GetContext(), p.ID, 5, types.MovementReasonRestock, "po-1")
	s.Require().NoError(err)

	const buyers = 20
	var wg sync.WaitGroup
	results := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Adjust(s.GetContext(), p.ID, -1, types.MovementReasonOrderFulfillment, "ord_rush")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			s.True(ierr.IsOutOfStock(err))
		}
	}
	s.Equal(5, succeeded)

	balance, err := s.service.Balance(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(int64(0), balance)
}

func (s *InventoryServiceSuite) TestRestoreForOrderMirrorsFulfillment() {
	p := s.seedPrice(types.InventoryPolicyDeny)
	_, err := s.service.Adjust(s.GetContext(), p.ID, 10, types.MovementReasonRestock, "po-1")
	s.Require().NoError(err)
	_, err = s.service.Adjust(s.GetContext(), p.ID, -4, types.MovementReasonOrderFulfillment, "ord_1")
	s.Require().NoError(err)

	s.NoError(s.service.RestoreForOrder(s.GetContext(), "ord_1"))

	balance, err := s.service.Balance(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(int64(10), balance)
}

func (s *InventoryServiceSuite) TestRestoreForOrderIsIdempotent() {
	p := s.seedPrice(types.InventoryPolicyDeny)
	_, err := s.service.Adjust(s.GetContext(), p.ID, 10, types.MovementReasonRestock, "po-1")
	s.Require().NoError(err)
	_, err = s.service.Adjust(s.GetContext(), p.ID, -4, types.MovementReasonOrderFulfillment, "ord_1")
	s.Require().NoError(err)

	s.NoError(s.service.RestoreForOrder(s.GetContext(), "ord_1"))
	s.NoError(s.service.RestoreForOrder(s.GetContext(), "ord_1"))

	balance, err := s.service.Balance(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(int64(10), balance)

	restores, err := s.InventoryStore.ListByReference(s.GetContext(), types.MovementReasonOrderRestore, "ord_1")
	s.NoError(err)
	s.Len(restores, 1)
}
