package dto

import (
	"context"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/inkpress/inkpress/internal/domain/price"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

type CreatePriceRequest struct {
	ProductID string          `json:"product_id" binding:"required"`
	Currency  string          `json:"currency" binding:"required,len=3"`
	Amount    decimal.Decimal `json:"amount"`
	Type      types.PriceType `json:"type" binding:"required"`

	BillingPeriod      types.BillingPeriod `json:"billing_period,omitempty"`
	BillingPeriodCount int                 `json:"billing_period_count,omitempty"`
	TrialDays          int                 `json:"trial_days,omitempty"`

	IsDefault       bool                  `json:"is_default"`
	InventoryPolicy types.InventoryPolicy `json:"inventory_policy,omitempty"`
	// InitialStock seeds the variant's ledger with a restock movement.
	InitialStock *int64         `json:"initial_stock,omitempty"`
	Metadata     types.Metadata `json:"metadata,omitempty"`
}

func (r *CreatePriceRequest) ToPrice(ctx context.Context) *price.Price {
	p := &price.Price{
		ID:                 types.GenerateUUIDWithPrefix(types.UUIDPrefixPrice),
		ProductID:          r.ProductID,
		Currency:           r.Currency,
		Amount:             r.Amount,
		Type:               r.Type,
		BillingPeriod:      r.BillingPeriod,
		BillingPeriodCount: r.BillingPeriodCount,
		TrialDays:          r.TrialDays,
		IsDefault:          r.IsDefault,
		InventoryPolicy:    r.InventoryPolicy,
		Metadata:           r.Metadata,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
	if p.InventoryPolicy == "" {
		p.InventoryPolicy = types.InventoryPolicyAllow
	}
	return p
}

func (r *CreatePriceRequest) Validate() error {
	if r.InitialStock != nil && *r.InitialStock < 0 {
		return ierr.NewError("initial_stock must not be negative").
			WithHint("Initial stock must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

type UpdatePriceRequest struct {
	IsDefault *bool          `json:"is_default,omitempty"`
	Metadata  types.Metadata `json:"metadata,omitempty"`
}

type PriceResponse struct {
	*price.Price
	// Stock is the ledger balance, only populated for deny-policy variants.
	Stock *int64 `json:"stock,omitempty"`
}

func NewPriceResponse(p *price.Price) *PriceResponse {
	return &PriceResponse{Price: p}
}

func (r *PriceResponse) WithStock(balance int64) *PriceResponse {
	r.Stock = lo.ToPtr(balance)
	return r
}

type ListPricesResponse = types.ListResponse[*PriceResponse]
