package service

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/inkpress/inkpress/internal/api/dto"
	"github.com/inkpress/inkpress/internal/domain/catalog"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/testutil"
	"github.com/inkpress/inkpress/internal/types"
)

type ProductServiceSuite struct {
	testutil.BaseServiceTestSuite
	service ProductService
}

func TestProductService(t *testing.T) {
	suite.Run(t, new(ProductServiceSuite))
}

func (s *ProductServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewProductService(ServiceParams{
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
	})
}

func (s *ProductServiceSuite) TestCreateProductValidatesWorkAgainstCatalog() {
	s.CatalogStore.AddWork(&catalog.Work{ID: "work_1", Title: "Ashfall", Type: "serial", Published: true})

	resp, err := s.service.CreateProduct(s.GetContext(), &dto.CreateProductRequest{
		Name:   "Ashfall #1",
		Type:   types.ProductTypeSingleIssue,
		WorkID: "work_1",
	})
	s.NoError(err)
	s.Equal("work_1", resp.WorkID)

	stored, err := s.ProductStore.Get(s.GetContext(), resp.ID)
	s.NoError(err)
	s.Equal("Ashfall #1", stored.Name)
}

func (s *ProductServiceSuite) TestCreateProductRejectsUnknownWork() {
	_, err := s.service.CreateProduct(s.GetContext(), &dto.CreateProductRequest{
		Name:   "Ghost Issue",
		Type:   types.ProductTypeSingleIssue,
		WorkID: "work_missing",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
	s.Equal(0, s.ProductStore.Count())
}

func (s *ProductServiceSuite) TestCreateProductRejectsUnknownGrantedWork() {
	s.CatalogStore.AddWork(&catalog.Work{ID: "work_1", Title: "Ashfall", Type: "serial", Published: true})

	_, err := s.service.CreateProduct(s.GetContext(), &dto.CreateProductRequest{
		Name: "Season Pass",
		Type: types.ProductTypeBundle,
		Grant: &dto.GrantDescriptor{
			Scope:   types.GrantScopeListedWorks,
			WorkIDs: []string{"work_1", "work_missing"},
		},
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *ProductServiceSuite) TestUpdateProductRejectsUnknownGrantedWork() {
	s.CatalogStore.AddWork(&catalog.Work{ID: "work_1", Title: "Ashfall", Type: "serial", Published: true})
	created, err := s.service.CreateProduct(s.GetContext(), &dto.CreateProductRequest{
		Name:   "Ashfall #1",
		Type:   types.ProductTypeSingleIssue,
		WorkID: "work_1",
	})
	s.Require().NoError(err)

	_, err = s.service.UpdateProduct(s.GetContext(), created.ID, &dto.UpdateProductRequest{
		Grant: &dto.GrantDescriptor{
			Scope:   types.GrantScopeListedWorks,
			WorkIDs: []string{"work_missing"},
		},
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
