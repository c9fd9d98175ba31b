package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/inkpress/inkpress/internal/api/dto"
	"github.com/inkpress/inkpress/internal/domain/entitlement"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/logger"
	"github.com/inkpress/inkpress/internal/service"
)

type EntitlementHandler struct {
	service service.EntitlementService
	log     *logger.Logger
}

func NewEntitlementHandler(service service.EntitlementService, log *logger.Logger) *EntitlementHandler {
	return &EntitlementHandler{service: service, log: log}
}

// @Summary Check work access
// @Description Report whether a user may read a work right now
// @Tags Entitlements
// @Produce json
// @Param user_id path string true "User ID"
// @Param work_id path string true "Work ID"
// @Success 200 {object} dto.AccessCheckResponse
// @Router /users/{user_id}/access/{work_id} [get]
func (h *EntitlementHandler) CheckAccess(c *gin.Context) {
	userID := c.Param("user_id")
	workID := c.Param("work_id")
	if userID == "" || workID == "" {
		c.Error(ierr.NewError("user_id and work_id are required").
			WithHint("User ID and work ID are required").
			Mark(ierr.ErrValidation))
		return
	}

	allowed, err := h.service.Check(c.Request.Context(), userID, workID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, &dto.AccessCheckResponse{
		UserID:  userID,
		WorkID:  workID,
		Allowed: allowed,
	})
}

// @Summary List a user's entitlements
// @Tags Entitlements
// @Produce json
// @Param user_id path string true "User ID"
// @Success 200 {object} dto.ListEntitlementsResponse
// @Router /users/{user_id}/entitlements [get]
func (h *EntitlementHandler) ListUserEntitlements(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		c.Error(ierr.NewError("user_id is required").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	grants, err := h.service.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, &dto.ListEntitlementsResponse{
		Items: lo.Map(grants, func(e *entitlement.Entitlement, _ int) *dto.EntitlementResponse {
			return dto.NewEntitlementResponse(e)
		}),
	})
}
