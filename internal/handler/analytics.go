package handler

import (
	"net/http"

	"github.com/JaroldEnderez/Vanity/internal/dto"
	"github.com/JaroldEnderez/Vanity/internal/service"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct{ svc service.AnalyticsService }

func NewAnalyticsHandler(svc service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

// Sales godoc
// @Summary      Revenue of the branch bucketed by hour, day, week or month
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        interval  query    string true  "hour, day, week or month"
// @Param        startDate query    string false "YYYY-MM-DD; required unless interval=hour"
// @Param        endDate   query    string false "YYYY-MM-DD, inclusive; required unless interval=hour"
// @Success      200       {object} dto.AnalyticsResponse
// @Failure      400       {object} apierror.APIError
// @Router       /v1/sales/analytics [get]
func (h *AnalyticsHandler) Sales(c *gin.Context) {
	branchID, ok := callerBranch(c)
	if !ok {
		return
	}
	var q dto.AnalyticsQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.svc.Sales(c.Request.Context(), branchID, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
