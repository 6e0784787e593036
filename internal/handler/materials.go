package handler

import (
	"net/http"

	"github.com/JaroldEnderez/Vanity/internal/apierror"
	"github.com/JaroldEnderez/Vanity/internal/dto"
	"github.com/JaroldEnderez/Vanity/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type MaterialsHandler struct{ svc service.InventoryService }

func NewMaterialsHandler(svc service.InventoryService) *MaterialsHandler {
	return &MaterialsHandler{svc: svc}
}

// List godoc
// @Summary  List materials with current stock
// @Tags     materials
// @Produce  json
// @Security BearerAuth
// @Success  200 {array} dto.MaterialResponse
// @Router   /v1/materials [get]
func (h *MaterialsHandler) List(c *gin.Context) {
	resp, err := h.svc.ListMaterials(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LowStock godoc
// @Summary  Materials at or below a stock threshold
// @Tags     materials
// @Produce  json
// @Security BearerAuth
// @Param    threshold query number false "Defaults to LOW_STOCK_THRESHOLD"
// @Success  200 {array} dto.MaterialResponse
// @Router   /v1/materials/low-stock [get]
func (h *MaterialsHandler) LowStock(c *gin.Context) {
	var threshold *decimal.Decimal
	if raw := c.Query("threshold"); raw != "" {
		t, err := decimal.NewFromString(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid threshold"))
			return
		}
		threshold = &t
	}
	resp, err := h.svc.LowStock(c.Request.Context(), threshold)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Adjust godoc
// @Summary      Manual stock adjustment
// @Description  IN adds, OUT subtracts, ADJUSTMENT applies a signed delta. Writes one movement.
// @Tags         materials
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                 true "Material UUID"
// @Param        body body     dto.AdjustStockRequest true "Adjustment"
// @Success      200  {object} dto.MaterialResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/materials/{id}/adjust [post]
func (h *MaterialsHandler) Adjust(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Adjust(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Movements godoc
// @Summary  Movement history of a material
// @Tags     materials
// @Produce  json
// @Security BearerAuth
// @Param    id    path  string true  "Material UUID"
// @Param    type  query string false "IN, OUT or ADJUSTMENT"
// @Param    page  query int    false "Page"
// @Param    limit query int    false "Page size"
// @Success  200 {object} dto.MovementListResponse
// @Router   /v1/materials/{id}/movements [get]
func (h *MaterialsHandler) Movements(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var filter dto.MovementFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Movements(c.Request.Context(), id, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
