package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/logger"
	"github.com/inkpress/inkpress/internal/service"
)

// maxWebhookBodyBytes caps inbound webhook payloads.
const maxWebhookBodyBytes = 1 << 20

type WebhookHandler struct {
	service service.WebhookService
	log     *logger.Logger
}

func NewWebhookHandler(service service.WebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, log: log}
}

// @Summary Receive a payment provider webhook
// @Description Verify, persist and process one provider event. Non-2xx asks the provider to redeliver.
// @Tags Webhooks
// @Accept json
// @Success 200
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /webhooks/stripe [post]
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read webhook body").
			Mark(ierr.ErrValidation))
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if err := h.service.ProcessWebhook(c.Request.Context(), payload, signature); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusOK)
}
