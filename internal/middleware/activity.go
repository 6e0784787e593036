package middleware

import (
	"time"

	"github.com/JaroldEnderez/Vanity/internal/cache"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// TrackBranchActivity records the time of every authenticated branch request.
// Owner requests are ignored. A failing store never fails the request.
func TrackBranchActivity(activity cache.BranchActivity) gin.HandlerFunc {
	return func(c *gin.Context) {
		if branchID, ok := BranchID(c); ok && activity != nil {
			if err := activity.Touch(c.Request.Context(), branchID, time.Now()); err != nil {
				log.Warn().Err(err).Str("branch_id", branchID.String()).Msg("branch activity not recorded")
			}
		}
		c.Next()
	}
}
