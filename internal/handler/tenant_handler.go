package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/docport/docport/internal/pkg/response"
	"github.com/docport/docport/internal/service"
)

type TenantHandler struct {
	tenants *service.TenantService
}

func NewTenantHandler(tenants *service.TenantService) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

func (h *TenantHandler) List(c *gin.Context) {
	items, err := h.tenants.ListForUser(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}
