package dto

import (
	"github.com/inkpress/inkpress/internal/domain/entitlement"
)

type EntitlementResponse struct {
	*entitlement.Entitlement
}

func NewEntitlementResponse(e *entitlement.Entitlement) *EntitlementResponse {
	return &EntitlementResponse{Entitlement: e}
}

type ListEntitlementsResponse struct {
	Items []*EntitlementResponse `json:"items"`
}

// AccessCheckResponse answers "may this user read this work".
type AccessCheckResponse struct {
	UserID  string `json:"user_id"`
	WorkID  string `json:"work_id"`
	Allowed bool   `json:"allowed"`
}
