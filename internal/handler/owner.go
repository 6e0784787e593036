package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/JaroldEnderez/Vanity/internal/dto"
	"github.com/JaroldEnderez/Vanity/internal/service"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type OwnerHandler struct{ svc service.OwnerService }

func NewOwnerHandler(svc service.OwnerService) *OwnerHandler { return &OwnerHandler{svc: svc} }

// Summary godoc
// @Summary  Revenue and transaction counts across all branches
// @Tags     owner
// @Produce  json
// @Security BearerAuth
// @Success  200 {object} dto.OwnerSummaryResponse
// @Failure  403 {object} apierror.APIError
// @Router   /v1/owner/summary [get]
func (h *OwnerHandler) Summary(c *gin.Context) {
	resp, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Branches godoc
// @Summary  Per-branch status
// @Tags     owner
// @Produce  json
// @Security BearerAuth
// @Success  200 {array} dto.BranchStatusResponse
// @Router   /v1/owner/branches [get]
func (h *OwnerHandler) Branches(c *gin.Context) {
	resp, err := h.svc.Branches(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// BranchDetail godoc
// @Summary  Status and today/week/month totals of one branch
// @Tags     owner
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "Branch UUID"
// @Success  200 {object} dto.BranchDetailResponse
// @Failure  404 {object} apierror.APIError
// @Router   /v1/owner/branches/{id} [get]
func (h *OwnerHandler) BranchDetail(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.BranchDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// BranchSales godoc
// @Summary  Completed sales of one branch
// @Tags     owner
// @Produce  json
// @Security BearerAuth
// @Param    id    path  string true  "Branch UUID"
// @Param    from  query string false "YYYY-MM-DD"
// @Param    to    query string false "YYYY-MM-DD, inclusive"
// @Param    page  query int    false "Page"
// @Param    limit query int    false "Page size"
// @Success  200 {object} dto.SaleListResponse
// @Failure  404 {object} apierror.APIError
// @Router   /v1/owner/branches/{id}/sales [get]
func (h *OwnerHandler) BranchSales(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var filter dto.SaleFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.BranchSales(c.Request.Context(), id, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExportBranchSales godoc
// @Summary  Completed sales of one branch as an Excel workbook
// @Tags     owner
// @Produce  application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param    id   path  string true  "Branch UUID"
// @Param    from query string false "YYYY-MM-DD"
// @Param    to   query string false "YYYY-MM-DD, inclusive"
// @Success  200 {file} file
// @Failure  404 {object} apierror.APIError
// @Router   /v1/owner/branches/{id}/sales/export [get]
func (h *OwnerHandler) ExportBranchSales(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var filter dto.SaleFilter
	if !bindQuery(c, &filter) {
		return
	}
	// Rendered into a buffer first so that a failure can still become a JSON error.
	var buf bytes.Buffer
	if err := h.svc.ExportBranchSales(c.Request.Context(), id, filter, &buf); err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("sales-%s-%s.xlsx", id.String()[:8], time.Now().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// BranchInventory godoc
// @Summary  Materials used by a branch's services, with current stock
// @Tags     owner
// @Produce  json
// @Security BearerAuth
// @Param    id path string true "Branch UUID"
// @Success  200 {array} dto.MaterialResponse
// @Failure  404 {object} apierror.APIError
// @Router   /v1/owner/branches/{id}/inventory [get]
func (h *OwnerHandler) BranchInventory(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.BranchInventory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
