// Package dto holds the request and response shapes of the HTTP API.
// Requests validate themselves before any service runs; responses are
// built from domain models, never exposed raw.
package dto

import (
	"context"

	"github.com/inkpress/inkpress/internal/domain/product"
	"github.com/inkpress/inkpress/internal/types"
)

type CreateProductRequest struct {
	Name        string            `json:"name" binding:"required"`
	Description string            `json:"description"`
	Type        types.ProductType `json:"type" binding:"required"`
	WorkID      string            `json:"work_id"`
	Grant       *GrantDescriptor  `json:"grant"`
	Metadata    types.Metadata    `json:"metadata"`
}

type GrantDescriptor struct {
	Scope    types.GrantScope `json:"scope" binding:"required"`
	WorkIDs  []string         `json:"work_ids"`
	WorkType string           `json:"work_type"`
}

func (g *GrantDescriptor) ToDomain() *product.GrantDescriptor {
	if g == nil {
		return nil
	}
	return &product.GrantDescriptor{
		Scope:    g.Scope,
		WorkIDs:  g.WorkIDs,
		WorkType: g.WorkType,
	}
}

func (r *CreateProductRequest) ToProduct(ctx context.Context) *product.Product {
	return &product.Product{
		ID:          types.GenerateUUIDWithPrefix(types.UUIDPrefixProduct),
		Name:        r.Name,
		Description: r.Description,
		Type:        r.Type,
		WorkID:      r.WorkID,
		Grant:       r.Grant.ToDomain(),
		Metadata:    r.Metadata,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
}

func (r *CreateProductRequest) Validate() error {
	if err := r.Type.Validate(); err != nil {
		return err
	}
	if r.Grant != nil {
		if err := r.Grant.ToDomain().Validate(); err != nil {
			return err
		}
	}
	return nil
}

type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Grant       *GrantDescriptor `json:"grant"`
	Metadata    types.Metadata   `json:"metadata"`
}

func (r *UpdateProductRequest) Validate() error {
	if r.Grant != nil {
		return r.Grant.ToDomain().Validate()
	}
	return nil
}

type ProductResponse struct {
	*product.Product
}

func NewProductResponse(p *product.Product) *ProductResponse {
	return &ProductResponse{Product: p}
}

type ListProductsResponse = types.ListResponse[*ProductResponse]
