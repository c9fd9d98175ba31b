package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkpress/inkpress/internal/api/dto"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/logger"
	"github.com/inkpress/inkpress/internal/service"
	"github.com/inkpress/inkpress/internal/types"
)

type CheckoutHandler struct {
	service service.CheckoutService
	log     *logger.Logger
}

func NewCheckoutHandler(service service.CheckoutService, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: service, log: log}
}

// @Summary Create a checkout session
// @Description Validate the cart and open a hosted checkout session at the payment provider
// @Tags Checkout
// @Accept json
// @Produce json
// @Param checkout body dto.CreateCheckoutSessionRequest true "Cart"
// @Success 201 {object} dto.CheckoutSessionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Failure 502 {object} ierr.ErrorResponse
// @Router /checkout/sessions [post]
func (h *CheckoutHandler) CreateCheckoutSession(c *gin.Context) {
	var req dto.CreateCheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	// A signed-in caller checks out as themselves, whatever the body says.
	if userID := types.GetUserID(c.Request.Context()); userID != "" {
		req.UserID = userID
	}

	resp, err := h.service.CreateCheckoutSession(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
