package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkpress/inkpress/internal/api/dto"
	"github.com/inkpress/inkpress/internal/domain/order"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/logger"
	"github.com/inkpress/inkpress/internal/service"
	"github.com/inkpress/inkpress/internal/types"
)

type OrderHandler struct {
	service service.OrderService
	log     *logger.Logger
}

func NewOrderHandler(service service.OrderService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{service: service, log: log}
}

// @Summary Get an order by ID
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} dto.OrderResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	resp, err := h.service.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List orders
// @Tags Orders
// @Produce json
// @Param user_id query string false "Filter by user"
// @Param order_status query string false "Filter by status"
// @Success 200 {object} dto.ListOrdersResponse
// @Router /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	filter := order.NewFilter()
	if err := c.ShouldBindQuery(filter.QueryFilter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return
	}
	filter.UserID = c.Query("user_id")
	if status := c.Query("order_status"); status != "" {
		filter.OrderStatus = types.OrderStatus(status)
	}

	resp, err := h.service.ListOrders(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Refund a completed order
// @Description Refund the payment, restore inventory and revoke purchase entitlements
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param refund body dto.RefundOrderRequest false "Refund reason"
// @Success 200 {object} dto.OrderResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Failure 502 {object} ierr.ErrorResponse
// @Router /orders/{id}/refund [post]
func (h *OrderHandler) RefundOrder(c *gin.Context) {
	var req dto.RefundOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid request format").
				Mark(ierr.ErrValidation))
			return
		}
	}

	resp, err := h.service.RefundOrder(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
