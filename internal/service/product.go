package service

import (
	"context"

	"github.com/samber/lo"

	"github.com/inkpress/inkpress/internal/api/dto"
	"github.com/inkpress/inkpress/internal/domain/product"
	ierr "github.com/inkpress/inkpress/internal/errors"
)

type ProductService interface {
	CreateProduct(ctx context.Context, req *dto.CreateProductRequest) (*dto.ProductResponse, error)
	GetProduct(ctx context.Context, id string) (*dto.ProductResponse, error)
	ListProducts(ctx context.Context, filter *product.Filter) (*dto.ListProductsResponse, error)
	UpdateProduct(ctx context.Context, id string, req *dto.UpdateProductRequest) (*dto.ProductResponse, error)
	DeleteProduct(ctx context.Context, id string) error
}

type productService struct {
	ServiceParams
}

func NewProductService(params ServiceParams) ProductService {
	return &productService{ServiceParams: params}
}

func (s *productService) CreateProduct(ctx context.Context, req *dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := req.ToProduct(ctx)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateWorkReferences(ctx, p); err != nil {
		return nil, err
	}
	if err := s.ProductRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("created product", "product_id", p.ID, "type", p.Type)
	return dto.NewProductResponse(p), nil
}

func (s *productService) GetProduct(ctx context.Context, id string) (*dto.ProductResponse, error) {
	p, err := s.ProductRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewProductResponse(p), nil
}

func (s *productService) ListProducts(ctx context.Context, filter *product.Filter) (*dto.ListProductsResponse, error) {
	if filter == nil {
		filter = product.NewFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	products, err := s.ProductRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(products, func(p *product.Product, _ int) *dto.ProductResponse {
		return dto.NewProductResponse(p)
	})
	resp := dto.ListProductsResponse{Items: items}
	resp.Pagination.Limit = filter.GetLimit()
	resp.Pagination.Offset = filter.GetOffset()
	resp.Pagination.Total = len(items)
	return &resp, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id string, req *dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.ProductRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Grant != nil {
		p.Grant = req.Grant.ToDomain()
	}
	if req.Metadata != nil {
		p.Metadata = req.Metadata
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateWorkReferences(ctx, p); err != nil {
		return nil, err
	}
	if err := s.ProductRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	return dto.NewProductResponse(p), nil
}

// validateWorkReferences checks every work the product points at against the
// catalog. Dangling references would otherwise surface at fulfillment, after
// the payment is already captured.
func (s *productService) validateWorkReferences(ctx context.Context, p *product.Product) error {
	ids := make([]string, 0, 1)
	if p.WorkID != "" {
		ids = append(ids, p.WorkID)
	}
	if p.Grant != nil {
		ids = append(ids, p.Grant.WorkIDs...)
	}
	for _, id := range lo.Uniq(ids) {
		if _, err := s.CatalogRepo.GetWork(ctx, id); err != nil {
			if ierr.IsNotFound(err) {
				return ierr.NewErrorf("work %s does not exist in the catalog", id).
					WithHint("Product references an unknown work").
					WithReportableDetails(map[string]any{"work_id": id}).
					Mark(ierr.ErrValidation)
			}
			return err
		}
	}
	return nil
}

func (s *productService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.ProductRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.Logger.Infow("archived product", "product_id", id)
	return nil
}
