package entitlement

import (
	"time"

	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// Entitlement grants one user access to one work. Rows are unique per
// (user, work); re-granting from the same source is a no-op rather than a
// duplicate.
type Entitlement struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	WorkID string `json:"work_id"`
	// SourceType and SourceID record where the grant came from, so revoking
	// a lapsed subscription never touches a purchase-sourced grant for the
	// same work.
	SourceType types.EntitlementSource `json:"source_type"`
	SourceID   string                  `json:"source_id"`
	// ExpiresAt is nil for grants that last until revoked.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	types.BaseModel
}

func (e *Entitlement) Validate() error {
	if e.UserID == "" {
		return ierr.NewError("user_id is required").
			WithHint("Entitlement must belong to a user").
			Mark(ierr.ErrValidation)
	}
	if e.WorkID == "" {
		return ierr.NewError("work_id is required").
			WithHint("Entitlement must reference a work").
			Mark(ierr.ErrValidation)
	}
	switch e.SourceType {
	case types.EntitlementSourceSubscription, types.EntitlementSourcePurchase:
	default:
		return ierr.NewErrorf("invalid entitlement source type: %s", e.SourceType).
			WithHint("Unknown entitlement source").
			Mark(ierr.ErrValidation)
	}
	if e.SourceID == "" {
		return ierr.NewError("source_id is required").
			WithHint("Entitlement must reference its source").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsValidAt reports whether the grant is in force at t.
func (e *Entitlement) IsValidAt(t time.Time) bool {
	return e.ExpiresAt == nil || e.ExpiresAt.After(t)
}
