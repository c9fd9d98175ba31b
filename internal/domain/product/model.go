package product

import (
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// Product is a sellable catalog entry: a single issue, a bundle, a reading
// pass or a subscription tier. Products are soft deleted (archived) so
// historical orders keep resolving their name and pricing.
type Product struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Type        types.ProductType `json:"type"`
	// WorkID links the product to a single content work, when the product
	// sells exactly one work.
	WorkID   string           `json:"work_id,omitempty"`
	Grant    *GrantDescriptor `json:"grant,omitempty"`
	Metadata types.Metadata   `json:"metadata,omitempty"`
	types.BaseModel
}

// GrantDescriptor is the structured content grant of a product: which works
// an owning user may read. It replaces free-form grant blobs with data
// validated at write time.
type GrantDescriptor struct {
	Scope types.GrantScope `json:"scope"`
	// WorkIDs lists the granted works for GrantScopeListedWorks.
	WorkIDs []string `json:"work_ids,omitempty"`
	// WorkType selects the work type for GrantScopeAllPublished, resolved
	// through the catalog when the grant is derived.
	WorkType string `json:"work_type,omitempty"`
}

func (g *GrantDescriptor) Validate() error {
	switch g.Scope {
	case types.GrantScopeListedWorks:
		if len(g.WorkIDs) == 0 {
			return ierr.NewError("grant with listed_works scope requires work_ids").
				WithHint("List the works this product unlocks").
				Mark(ierr.ErrValidation)
		}
	case types.GrantScopeAllPublished:
		if g.WorkType == "" {
			return ierr.NewError("grant with all_published scope requires work_type").
				WithHint("Set the work type this product unlocks").
				Mark(ierr.ErrValidation)
		}
	default:
		return ierr.NewErrorf("invalid grant scope: %s", g.Scope).
			WithHint("Unknown grant scope").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (p *Product) Validate() error {
	if p.Name == "" {
		return ierr.NewError("product name is required").
			WithHint("Product name is required").
			Mark(ierr.ErrValidation)
	}
	if err := p.Type.Validate(); err != nil {
		return err
	}
	if p.Grant != nil {
		if err := p.Grant.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsActive reports whether the product is still sellable.
func (p *Product) IsActive() bool {
	return p.Status == types.StatusPublished
}
