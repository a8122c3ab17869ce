package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/packledger/internal/app/service/checkin"
	"github.com/fatflowers/packledger/internal/app/service/statistics"
	"github.com/fatflowers/packledger/pkg/response"
)

// StatisticsProvider is satisfied by *statistics.Service.
type StatisticsProvider interface {
	GetStatistic(ctx context.Context, req *statistics.StatisticRequest) (*statistics.StatisticResponse, error)
}

// @Summary      Void a check-in (Admin)
// @Description  Voids a recorded check-in and restores its session. A check-in can be voided once.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id path string true "Check-in ID"
// @Param        X-Operator-ID header string false "Default for performed_by"
// @Param        request body checkin.VoidCheckInRequest true "Void request"
// @Success      200  {object}  handlers.RespVoidCheckIn
// @Router       /api/v1/admin/check_ins/{id}/void [post]
func ApiVoidCheckIn(mgr checkin.CheckInManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkin.VoidCheckInRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
		req.CheckInID = c.Param("id")
		res, err := mgr.VoidCheckIn(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Statistics (Admin)
// @Description  Retrieves check-in and assignment aggregates.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.StatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespStatistic
// @Router       /api/v1/admin/get_statistic [post]
func ApiGetStatistic(svc StatisticsProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.StatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
		res, err := svc.GetStatistic(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterAdminRoutes(r gin.IRouter, mgr checkin.CheckInManager, stats StatisticsProvider) {
	r.POST("/check_ins/:id/void", ApiVoidCheckIn(mgr))
	r.POST("/get_statistic", ApiGetStatistic(stats))
}
