package service

import (
	"context"

	"github.com/inkpress/inkpress/internal/domain/inventory"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// InventoryService owns the append-only stock ledger of price variants.
// Every adjustment for one variant runs inside a transaction holding the
// variant's advisory lock, so concurrent read-modify-write cycles serialize
// instead of overselling.
type InventoryService interface {
	// Adjust appends one movement for the variant. Under a deny policy a
	// delta that would take the balance negative is rejected with
	// ErrOutOfStock and nothing is written.
	Adjust(ctx context.Context, priceID string, delta int64, reason types.MovementReason, referenceID string) (*inventory.Movement, error)
	Balance(ctx context.Context, priceID string) (int64, error)
	// CheckAvailable reports whether qty units can be taken right now.
	// Advisory only: the authoritative check re-runs inside Adjust.
	CheckAvailable(ctx context.Context, priceID string, qty int64) (bool, error)
	// RestoreForOrder puts back the stock an order's fulfillment consumed.
	// Idempotent: an order that already has restore movements is a no-op.
	RestoreForOrder(ctx context.Context, orderID string) error
	ListMovements(ctx context.Context, priceID string) ([]*inventory.Movement, error)
}

type inventoryService struct {
	ServiceParams
}

func NewInventoryService(params ServiceParams) InventoryService {
	return &inventoryService{ServiceParams: params}
}

func (s *inventoryService) Adjust(ctx context.Context, priceID string, delta int64, reason types.MovementReason, referenceID string) (*inventory.Movement, error) {
	if delta == 0 {
		return nil, ierr.NewError("delta must not be zero").
			WithHint("Movement delta must not be zero").
			Mark(ierr.ErrValidation)
	}

	pr, err := s.PriceRepo.Get(ctx, priceID)
	if err != nil {
		return nil, err
	}

	var m *inventory.Movement
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.DB.LockKey(ctx, types.LockRequest{
			Scope: types.LockScopeInventory,
			ID:    priceID,
		}); err != nil {
			return err
		}

		before, err := s.InventoryRepo.Balance(ctx, priceID)
		if err != nil {
			return err
		}
		after := before + delta

		if after < 0 && pr.InventoryPolicy == types.InventoryPolicyDeny {
			return ierr.NewErrorf("insufficient stock for price %s: have %d, need %d", priceID, before, -delta).
				WithHint("Not enough stock available").
				WithReportableDetails(map[string]any{
					"price_id":  priceID,
					"available": before,
					"requested": -delta,
				}).
				Mark(ierr.ErrOutOfStock)
		}

		m = &inventory.Movement{
			ID:          types.GenerateUUIDWithPrefix(types.UUIDPrefixInventoryMovement),
			PriceID:     priceID,
			BeforeQty:   before,
			Delta:       delta,
			AfterQty:    after,
			Reason:      reason,
			ReferenceID: referenceID,
			BaseModel:   types.GetDefaultBaseModel(ctx),
		}
		if err := m.Validate(); err != nil {
			return err
		}
		return s.InventoryRepo.CreateMovement(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("adjusted inventory",
		"price_id", priceID,
		"delta", delta,
		"balance", m.AfterQty,
		"reason", reason,
		"reference_id", referenceID,
	)
	return m, nil
}

func (s *inventoryService) Balance(ctx context.Context, priceID string) (int64, error) {
	return s.InventoryRepo.Balance(ctx, priceID)
}

func (s *inventoryService) CheckAvailable(ctx context.Context, priceID string, qty int64) (bool, error) {
	pr, err := s.PriceRepo.Get(ctx, priceID)
	if err != nil {
		return false, err
	}
	if pr.InventoryPolicy == types.InventoryPolicyAllow {
		return true, nil
	}
	balance, err := s.InventoryRepo.Balance(ctx, priceID)
	if err != nil {
		return false, err
	}
	return balance >= qty, nil
}

func (s *inventoryService) RestoreForOrder(ctx context.Context, orderID string) error {
	restored, err := s.InventoryRepo.ListByReference(ctx, types.MovementReasonOrderRestore, orderID)
	if err != nil {
		return err
	}
	if len(restored) > 0 {
		s.Logger.Infow("inventory already restored for order", "order_id", orderID)
		return nil
	}

	consumed, err := s.InventoryRepo.ListByReference(ctx, types.MovementReasonOrderFulfillment, orderID)
	if err != nil {
		return err
	}
	for _, fm := range consumed {
		// Fulfillment deltas are negative; the restore mirrors them back.
		if _, err := s.Adjust(ctx, fm.PriceID, -fm.Delta, types.MovementReasonOrderRestore, orderID); err != nil {
			return err
		}
	}
	return nil
}

func (s *inventoryService) ListMovements(ctx context.Context, priceID string) ([]*inventory.Movement, error) {
	return s.InventoryRepo.ListByPrice(ctx, priceID)
}
