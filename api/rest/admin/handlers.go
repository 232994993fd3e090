package admin

import (
	stderrors "errors"
	"net/http"

	"codeberg.org/healthconsultant/server/healthconsultant/usage"
	"codeberg.org/healthconsultant/server/internal/errors"
	"github.com/gin-gonic/gin"
)

// GetUsageStats godoc
// @Summary Get global usage statistics
// @Description Admin-only totals and per-day chart data over an optional inclusive date range
// @Tags admin
// @Produce json
// @Param startDate query string false "First day (YYYY-MM-DD)"
// @Param endDate query string false "Last day (YYYY-MM-DD)"
// @Success 200 {object} UsageStatsResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/admin/usage [get]
// @Security BearerAuth
func GetUsageStats(ledger *usage.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, records, err := ledger.GlobalStats(c.Request.Context(), c.Query("startDate"), c.Query("endDate"))
		if stderrors.Is(err, usage.ErrInvalidDate) || stderrors.Is(err, usage.ErrInvalidDateRange) {
			errors.BadRequest(c, "invalid date range", err)
			return
		}

		if err != nil {
			errors.InternalError(c, "failed to load usage statistics", err)
			return
		}

		c.JSON(http.StatusOK, UsageStatsResponse{
			Stats:   stats,
			Records: records,
		})
	}
}
