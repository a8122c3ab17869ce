package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/packledger/internal/app/service/assignment"
	"github.com/fatflowers/packledger/internal/app/service/checkin"
	"github.com/fatflowers/packledger/internal/app/service/report"
	"github.com/fatflowers/packledger/pkg/response"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	xlsxContentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// @Summary      Record a check-in
// @Description  Debits one session. Retries with the same idempotency key return the original check-in with replayed=true.
// @Tags         CheckIn
// @Accept       json
// @Produce      json
// @Param        id path string true "Assignment ID"
// @Param        Idempotency-Key header string false "Idempotency key, alternative to the body field"
// @Param        X-Operator-ID header string false "Default for performed_by"
// @Param        request body checkin.RecordCheckInRequest false "Check-in"
// @Success      200  {object}  handlers.RespRecordCheckIn
// @Router       /api/v1/assignments/{id}/check_ins [post]
func ApiRecordCheckIn(mgr checkin.CheckInManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkin.RecordCheckInRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			writeBindError(c, err)
			return
		}
		if key := c.GetHeader(HeaderIdempotencyKey); key != "" {
			if req.IdempotencyKey != "" && req.IdempotencyKey != key {
				c.JSON(http.StatusOK, response.ErrorMsg(response.APIResponseCodeBadRequest,
					"idempotency_key: header and body disagree"))
				return
			}
			req.IdempotencyKey = key
		}
		req.AssignmentID = c.Param("id")
		res, err := mgr.RecordCheckIn(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List check-ins
// @Description  Pages through an assignment's check-in history, oldest first.
// @Tags         CheckIn
// @Produce      json
// @Param        id     path  string true  "Assignment ID"
// @Param        cursor query string false "Opaque cursor from the previous page"
// @Param        size   query int    false "Page size, max 500"
// @Success      200  {object}  handlers.RespListCheckIns
// @Router       /api/v1/assignments/{id}/check_ins [get]
func ApiListCheckIns(mgr checkin.CheckInManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkin.ListCheckInsRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			writeBindError(c, err)
			return
		}
		req.AssignmentID = c.Param("id")
		res, err := mgr.ListCheckIns(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Export check-ins
// @Description  Downloads the assignment summary and full check-in history as an xlsx workbook.
// @Tags         CheckIn
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id path string true "Assignment ID"
// @Success      200  {file}  file
// @Router       /api/v1/assignments/{id}/check_ins/export [get]
func ApiExportCheckIns(assignments assignment.AssignmentManager, mgr checkin.CheckInManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.Param("id")
		a, err := assignments.GetAssignment(ctx, id)
		if err != nil {
			writeError(c, err)
			return
		}
		items, err := report.CollectCheckIns(ctx, mgr, id)
		if err != nil {
			writeError(c, err)
			return
		}
		var buf bytes.Buffer
		if err := report.WriteCheckInsXLSX(&buf, a, items); err != nil {
			writeError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="check_ins_%s.xlsx"`, id))
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	}
}

func RegisterCheckInRoutes(r gin.IRouter, assignments assignment.AssignmentManager, mgr checkin.CheckInManager) {
	r.POST("/:id/check_ins", ApiRecordCheckIn(mgr))
	r.GET("/:id/check_ins", ApiListCheckIns(mgr))
	r.GET("/:id/check_ins/export", ApiExportCheckIns(assignments, mgr))
}
