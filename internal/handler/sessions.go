package handler

import (
	"net/http"

	"github.com/JaroldEnderez/Vanity/internal/dto"
	"github.com/JaroldEnderez/Vanity/internal/service"

	"github.com/gin-gonic/gin"
)

type SessionsHandler struct{ svc service.SessionService }

func NewSessionsHandler(svc service.SessionService) *SessionsHandler {
	return &SessionsHandler{svc: svc}
}

// Create godoc
// @Summary      Open a session
// @Description  Creates an empty DRAFT session (a new tab) for the caller's branch.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.CreateSessionRequest true "Staff and optional name/customer"
// @Success      201  {object} dto.SessionResponse
// @Failure      400  {object} apierror.APIError
// @Failure      401  {object} apierror.APIError
// @Router       /v1/sessions [post]
func (h *SessionsHandler) Create(c *gin.Context) {
	branchID, ok := callerBranch(c)
	if !ok {
		return
	}
	var req dto.CreateSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), branchID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListDrafts godoc
// @Summary      List open sessions
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  dto.SessionResponse
// @Router       /v1/sessions [get]
func (h *SessionsHandler) ListDrafts(c *gin.Context) {
	branchID, ok := callerBranch(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListDrafts(c.Request.Context(), branchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary      Get a session
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "Session UUID"
// @Success      200  {object} dto.SessionResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/sessions/{id} [get]
func (h *SessionsHandler) Get(c *gin.Context) {
	branchID, ok := callerBranch(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), branchID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateMeta godoc
// @Summary      Rename a session or change its customer/staff
// @Description  Only fields present in the body are changed. An empty customer_id clears the customer.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                   true "Session UUID"
// @Param        body body     dto.UpdateSessionRequest true "Fields to change"
// @Success      200  {object} dto.SessionResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/sessions/{id} [patch]
func (h *SessionsHandler) UpdateMeta(c *gin.Context) {
	branchID, ok := callerBranch(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateMeta(c.Request.Context(), branchID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary      Discard a draft session
// @Tags         sessions
// @Security     BearerAuth
// @Param        id   path     string true "Session UUID"
// @Success      204
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/sessions/{id} [delete]
func (h *SessionsHandler) Delete(c *gin.Context) {
	branchID, ok := callerBranch(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), branchID, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddItem godoc
// @Summary      Add a service line item
// @Description  Stores the given price as a snapshot and the material usages linked to the new item.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string             true "Session UUID"
// @Param        body body     dto.AddItemRequest true "Service, qty, price and materials"
// @Success      200  {object} dto.SessionResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/sessions/{id}/items [post]
func (h *SessionsHandler) AddItem(c *gin.Context) {
	branchID, ok := callerBranch(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AddItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddLineItem(c.Request.Context(), branchID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RemoveItem godoc
// @Summary      Remove a line item and its material usages
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id     path     string true "Session UUID"
// @Param        itemId path     string true "Line item UUID"
// @Success      200    {object} dto.SessionResponse
// @Failure      404    {object} apierror.APIError
// @Router       /v1/sessions/{id}/items/{itemId} [delete]
func (h *SessionsHandler) RemoveItem(c *gin.Context) {
	branchID, ok := callerBranch(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathUUID(c, "itemId")
	if !ok {
		return
	}
	resp, err := h.svc.RemoveLineItem(c.Request.Context(), branchID, id, itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateMaterial godoc
// @Summary      Edit a material quantity
// @Description  Quantities below 1 are stored as 1. A material the session does not use is ignored.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id         path     string                    true "Session UUID"
// @Param        materialId path     string                    true "Material UUID"
// @Param        body       body     dto.UpdateMaterialRequest true "New quantity"
// @Success      200        {object} dto.SessionResponse
// @Failure      400        {object} apierror.APIError
// @Router       /v1/sessions/{id}/materials/{materialId} [patch]
func (h *SessionsHandler) UpdateMaterial(c *gin.Context) {
	branchID, ok := callerBranch(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	materialID, ok := pathUUID(c, "materialId")
	if !ok {
		return
	}
	var req dto.UpdateMaterialRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateMaterialQuantity(c.Request.Context(), branchID, id, materialID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Checkout godoc
// @Summary      Check out a session
// @Description  Completes the sale and deducts inventory in one transaction.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string              true  "Session UUID"
// @Param        body body     dto.CheckoutRequest false "Cash received"
// @Success      200  {object} dto.SessionResponse
// @Failure      400  {object} apierror.APIError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/sessions/{id}/checkout [post]
func (h *SessionsHandler) Checkout(c *gin.Context) {
	branchID, ok := callerBranch(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CheckoutRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Checkout(c.Request.Context(), branchID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary      Cancel a session
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string true "Session UUID"
// @Success      200  {object} dto.SessionResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/sessions/{id}/cancel [post]
func (h *SessionsHandler) Cancel(c *gin.Context) {
	branchID, ok := callerBranch(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Cancel(c.Request.Context(), branchID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListSales godoc
// @Summary      Sales history of the branch
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        status query    string false "COMPLETED (default), CANCELLED or all"
// @Param        from   query    string false "YYYY-MM-DD"
// @Param        to     query    string false "YYYY-MM-DD, inclusive"
// @Param        page   query    int    false "Page"
// @Param        limit  query    int    false "Page size"
// @Success      200    {object} dto.SaleListResponse
// @Router       /v1/sales [get]
func (h *SessionsHandler) ListSales(c *gin.Context) {
	branchID, ok := callerBranch(c)
	if !ok {
		return
	}
	var filter dto.SaleFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListSales(c.Request.Context(), branchID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
