package handler

import (
	"net/http"

	"github.com/JaroldEnderez/Vanity/internal/service"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct{ svc service.CatalogService }

func NewCatalogHandler(svc service.CatalogService) *CatalogHandler { return &CatalogHandler{svc: svc} }

// ListServices godoc
// @Summary  Services the branch can sell, with their material recipe
// @Tags     catalog
// @Produce  json
// @Security BearerAuth
// @Success  200 {array} dto.ServiceResponse
// @Router   /v1/services [get]
func (h *CatalogHandler) ListServices(c *gin.Context) {
	branchID, ok := callerBranch(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListServices(c.Request.Context(), branchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListStaff godoc
// @Summary  Staff of the caller's branch
// @Tags     catalog
// @Produce  json
// @Security BearerAuth
// @Success  200 {array} dto.StaffResponse
// @Router   /v1/staff [get]
func (h *CatalogHandler) ListStaff(c *gin.Context) {
	branchID, ok := callerBranch(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListStaff(c.Request.Context(), branchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
