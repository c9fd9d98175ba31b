package inventory

import (
	"context"

	"github.com/inkpress/inkpress/internal/types"
)

// Repository defines the interface for the inventory movement ledger.
// Movements are append-only; there is no update or delete.
//
// Balance reads and CreateMovement for the same variant must be serialized
// by the caller (row-level or advisory lock inside a transaction), otherwise
// concurrent adjustments can read the same before-quantity and oversell.
type Repository interface {
	CreateMovement(ctx context.Context, m *Movement) error
	// Balance returns the current stock of a variant as the sum of its
	// movement deltas. A variant with no movements has balance 0.
	Balance(ctx context.Context, priceID string) (int64, error)
	// ListByReference returns the movements tied to a reference, oldest
	// first, e.g. every movement an order caused.
	ListByReference(ctx context.Context, reason types.MovementReason, referenceID string) ([]*Movement, error)
	ListByPrice(ctx context.Context, priceID string) ([]*Movement, error)
}
