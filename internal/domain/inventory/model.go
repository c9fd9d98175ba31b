package inventory

import (
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// Movement is one immutable entry in the append-only stock ledger of a
// price variant. The current balance of a variant is the sum of its deltas;
// any cached counter is reconciled against this ledger, never trusted alone.
type Movement struct {
	ID      string `json:"id"`
	PriceID string `json:"price_id"`
	// BeforeQty and AfterQty snapshot the balance around the delta so the
	// ledger is auditable row by row: after = before + delta.
	BeforeQty int64                `json:"before_qty"`
	Delta     int64                `json:"delta"`
	AfterQty  int64                `json:"after_qty"`
	Reason    types.MovementReason `json:"reason"`
	// ReferenceID ties the movement to what caused it: an order id for
	// fulfillment and restore movements, free-form for manual adjustments.
	ReferenceID string `json:"reference_id,omitempty"`
	types.BaseModel
}

func (m *Movement) Validate() error {
	if m.PriceID == "" {
		return ierr.NewError("price_id is required").
			WithHint("Movement must reference a price variant").
			Mark(ierr.ErrValidation)
	}
	if m.Delta == 0 {
		return ierr.NewError("delta must not be zero").
			WithHint("Movement delta must not be zero").
			Mark(ierr.ErrValidation)
	}
	if m.AfterQty != m.BeforeQty+m.Delta {
		return ierr.NewError("after_qty must equal before_qty + delta").
			WithHint("Inconsistent inventory movement").
			Mark(ierr.ErrValidation)
	}
	switch m.Reason {
	case types.MovementReasonOrderFulfillment, types.MovementReasonOrderRestore,
		types.MovementReasonRestock, types.MovementReasonManualAdjustment:
	default:
		return ierr.NewErrorf("invalid movement reason: %s", m.Reason).
			WithHint("Unknown movement reason").
			Mark(ierr.ErrValidation)
	}
	return nil
}
