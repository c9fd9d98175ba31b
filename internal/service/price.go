package service

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/inkpress/inkpress/internal/api/dto"
	"github.com/inkpress/inkpress/internal/domain/price"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/integration/stripe"
	"github.com/inkpress/inkpress/internal/types"
)

type PriceService interface {
	CreatePrice(ctx context.Context, req *dto.CreatePriceRequest) (*dto.PriceResponse, error)
	GetPrice(ctx context.Context, id string) (*dto.PriceResponse, error)
	ListPrices(ctx context.Context, filter *price.Filter) (*dto.ListPricesResponse, error)
	UpdatePrice(ctx context.Context, id string, req *dto.UpdatePriceRequest) (*dto.PriceResponse, error)
	DeletePrice(ctx context.Context, id string) error
	// SyncPriceToProvider creates the provider-side price for a local one
	// and records the provider id. Idempotent: an already synced price is
	// returned as-is.
	SyncPriceToProvider(ctx context.Context, id string) (*dto.PriceResponse, error)
}

type priceService struct {
	ServiceParams
	inventory InventoryService
}

func NewPriceService(params ServiceParams) PriceService {
	return &priceService{
		ServiceParams: params,
		inventory:     NewInventoryService(params),
	}
}

func (s *priceService) CreatePrice(ctx context.Context, req *dto.CreatePriceRequest) (*dto.PriceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	prod, err := s.ProductRepo.Get(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !prod.IsActive() {
		return nil, ierr.NewErrorf("product %s is not active", prod.ID).
			WithHint("Cannot add prices to an archived product").
			Mark(ierr.ErrInvalidOperation)
	}

	p := req.ToPrice(ctx)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		// Promoting a new default demotes the previous one in the same
		// transaction, keeping at most one default per product.
		if p.IsDefault {
			if err := s.PriceRepo.ClearDefaultForProduct(ctx, p.ProductID); err != nil {
				return err
			}
		}
		if err := s.PriceRepo.Create(ctx, p); err != nil {
			return err
		}
		if req.InitialStock != nil && *req.InitialStock > 0 {
			if _, err := s.inventory.Adjust(ctx, p.ID, *req.InitialStock, types.MovementReasonRestock, "initial_stock"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("created price",
		"price_id", p.ID,
		"product_id", p.ProductID,
		"type", p.Type,
		"is_default", p.IsDefault,
	)
	return dto.NewPriceResponse(p), nil
}

func (s *priceService) GetPrice(ctx context.Context, id string) (*dto.PriceResponse, error) {
	p, err := s.PriceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := dto.NewPriceResponse(p)
	if p.InventoryPolicy == types.InventoryPolicyDeny {
		balance, err := s.InventoryRepo.Balance(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		resp = resp.WithStock(balance)
	}
	return resp, nil
}

func (s *priceService) ListPrices(ctx context.Context, filter *price.Filter) (*dto.ListPricesResponse, error) {
	if filter == nil {
		filter = price.NewFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	prices, err := s.PriceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := lo.Map(prices, func(p *price.Price, _ int) *dto.PriceResponse {
		return dto.NewPriceResponse(p)
	})
	resp := dto.ListPricesResponse{Items: items}
	resp.Pagination.Limit = filter.GetLimit()
	resp.Pagination.Offset = filter.GetOffset()
	resp.Pagination.Total = len(items)
	return &resp, nil
}

func (s *priceService) UpdatePrice(ctx context.Context, id string, req *dto.UpdatePriceRequest) (*dto.PriceResponse, error) {
	p, err := s.PriceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if req.IsDefault != nil && *req.IsDefault && !p.IsDefault {
			if err := s.PriceRepo.ClearDefaultForProduct(ctx, p.ProductID); err != nil {
				return err
			}
			p.IsDefault = true
		}
		if req.IsDefault != nil && !*req.IsDefault {
			p.IsDefault = false
		}
		if req.Metadata != nil {
			p.Metadata = req.Metadata
		}
		return s.PriceRepo.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return dto.NewPriceResponse(p), nil
}

func (s *priceService) DeletePrice(ctx context.Context, id string) error {
	if err := s.PriceRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.Logger.Infow("archived price", "price_id", id)
	return nil
}

func (s *priceService) SyncPriceToProvider(ctx context.Context, id string) (*dto.PriceResponse, error) {
	p, err := s.PriceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.ProviderPriceID != "" {
		return dto.NewPriceResponse(p), nil
	}

	prod, err := s.ProductRepo.Get(ctx, p.ProductID)
	if err != nil {
		return nil, err
	}

	pp, err := s.Gateway.CreatePrice(ctx, &stripe.CreatePriceRequest{
		ProductName:    prod.Name,
		Currency:       p.Currency,
		Amount:         p.Amount,
		Recurring:      p.IsRecurring(),
		Interval:       p.BillingPeriod,
		IntervalCount:  p.BillingPeriodCount,
		TrialDays:      p.TrialDays,
		LocalPriceID:   p.ID,
		IdempotencyKey: fmt.Sprintf("price-sync-%s", p.ID),
	})
	if err != nil {
		return nil, err
	}

	p.ProviderPriceID = pp.ID
	if err := s.PriceRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("synced price to provider",
		"price_id", p.ID,
		"provider_price_id", pp.ID,
	)
	return dto.NewPriceResponse(p), nil
}
