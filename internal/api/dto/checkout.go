package dto

import (
	ierr "github.com/inkpress/inkpress/internal/errors"
)

// CheckoutLineItem is one cart line in a checkout request.
type CheckoutLineItem struct {
	PriceID  string `json:"price_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

type CreateCheckoutSessionRequest struct {
	// UserID is empty for guest checkouts; the completed webhook carries the
	// provider customer email for receipt delivery either way.
	UserID        string             `json:"user_id,omitempty"`
	CustomerEmail string             `json:"customer_email,omitempty" binding:"omitempty,email"`
	LineItems     []CheckoutLineItem `json:"line_items" binding:"required,min=1,dive"`
	SuccessURL    string             `json:"success_url,omitempty" binding:"omitempty,url"`
	CancelURL     string             `json:"cancel_url,omitempty" binding:"omitempty,url"`
}

func (r *CreateCheckoutSessionRequest) Validate() error {
	if len(r.LineItems) == 0 {
		return ierr.NewError("line_items must not be empty").
			WithHint("Cart must not be empty").
			Mark(ierr.ErrValidation)
	}
	seen := make(map[string]struct{}, len(r.LineItems))
	for _, li := range r.LineItems {
		if _, ok := seen[li.PriceID]; ok {
			return ierr.NewErrorf("duplicate price %s in cart", li.PriceID).
				WithHint("Each price may appear once per cart").
				Mark(ierr.ErrValidation)
		}
		seen[li.PriceID] = struct{}{}
	}
	return nil
}

type CheckoutSessionResponse struct {
	OrderID    string `json:"order_id"`
	SessionID  string `json:"session_id"`
	SessionURL string `json:"session_url"`
}
