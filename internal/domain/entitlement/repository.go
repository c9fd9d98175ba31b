package entitlement

import (
	"context"

	"github.com/inkpress/inkpress/internal/types"
)

// Repository defines the interface for entitlement persistence operations.
// (user_id, work_id) carries a unique constraint; Upsert is the only write
// path for grants.
type Repository interface {
	// Upsert inserts the entitlement or updates source and expiry of the
	// existing (user, work) row.
	Upsert(ctx context.Context, e *Entitlement) error
	GetByUserWork(ctx context.Context, userID, workID string) (*Entitlement, error)
	ListByUser(ctx context.Context, userID string) ([]*Entitlement, error)
	// ListBySource returns the entitlements granted by one source, e.g. all
	// grants of a subscription about to be revoked.
	ListBySource(ctx context.Context, sourceType types.EntitlementSource, sourceID string) ([]*Entitlement, error)
	// DeleteByUserWork removes the (user, work) row. A missing row is not an
	// error; revocation is idempotent.
	DeleteByUserWork(ctx context.Context, userID, workID string) error
}
