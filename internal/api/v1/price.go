package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkpress/inkpress/internal/api/dto"
	"github.com/inkpress/inkpress/internal/domain/price"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/logger"
	"github.com/inkpress/inkpress/internal/service"
)

type PriceHandler struct {
	service service.PriceService
	log     *logger.Logger
}

func NewPriceHandler(service service.PriceService, log *logger.Logger) *PriceHandler {
	return &PriceHandler{service: service, log: log}
}

// @Summary Create a price
// @Description Create a purchasable variant of a product
// @Tags Prices
// @Accept json
// @Produce json
// @Param price body dto.CreatePriceRequest true "Price configuration"
// @Success 201 {object} dto.PriceResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /prices [post]
func (h *PriceHandler) CreatePrice(c *gin.Context) {
	var req dto.CreatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreatePrice(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Get a price by ID
// @Tags Prices
// @Produce json
// @Param id path string true "Price ID"
// @Success 200 {object} dto.PriceResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /prices/{id} [get]
func (h *PriceHandler) GetPrice(c *gin.Context) {
	resp, err := h.service.GetPrice(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List prices
// @Tags Prices
// @Produce json
// @Param product_id query string false "Filter by product"
// @Success 200 {object} dto.ListPricesResponse
// @Router /prices [get]
func (h *PriceHandler) ListPrices(c *gin.Context) {
	filter := price.NewFilter()
	if err := c.ShouldBindQuery(filter.QueryFilter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return
	}
	if productID := c.Query("product_id"); productID != "" {
		filter.ProductIDs = []string{productID}
	}

	resp, err := h.service.ListPrices(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Update a price
// @Tags Prices
// @Accept json
// @Produce json
// @Param id path string true "Price ID"
// @Param price body dto.UpdatePriceRequest true "Fields to update"
// @Success 200 {object} dto.PriceResponse
// @Router /prices/{id} [put]
func (h *PriceHandler) UpdatePrice(c *gin.Context) {
	var req dto.UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.UpdatePrice(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Archive a price
// @Tags Prices
// @Param id path string true "Price ID"
// @Success 204
// @Router /prices/{id} [delete]
func (h *PriceHandler) DeletePrice(c *gin.Context) {
	if err := h.service.DeletePrice(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Sync a price to the payment provider
// @Tags Prices
// @Produce json
// @Param id path string true "Price ID"
// @Success 200 {object} dto.PriceResponse
// @Failure 502 {object} ierr.ErrorResponse
// @Router /prices/{id}/sync [post]
func (h *PriceHandler) SyncPrice(c *gin.Context) {
	resp, err := h.service.SyncPriceToProvider(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
