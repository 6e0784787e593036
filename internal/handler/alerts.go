package handler

import (
	"net/http"
	"strconv"

	"github.com/JaroldEnderez/Vanity/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// FailedAlerts lists the dead-lettered stock alert jobs. rdb may be nil, in
// which case nothing is ever queued and the list is empty.
//
// @Summary  Stock alert jobs that exhausted their retries, newest first
// @Tags     owner
// @Produce  json
// @Security BearerAuth
// @Param    limit query int false "Max entries, default 20, at most 100"
// @Success  200 {object} map[string]interface{}
// @Router   /v1/owner/alerts/failed [get]
func FailedAlerts(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
		if err != nil || limit < 1 || limit > 100 {
			limit = 20
		}
		if rdb == nil {
			c.JSON(http.StatusOK, gin.H{"total": 0, "entries": []worker.DLQEntry{}})
			return
		}

		ctx := c.Request.Context()
		total, err := worker.DLQLength(ctx, rdb, worker.QueueStockAlert)
		if err != nil {
			_ = c.Error(err)
			return
		}
		entries, err := worker.PeekDLQ(ctx, rdb, worker.QueueStockAlert, limit)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"total": total, "entries": entries})
	}
}
