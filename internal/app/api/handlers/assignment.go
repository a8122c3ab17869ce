package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/packledger/internal/app/service/assignment"
	"github.com/fatflowers/packledger/pkg/response"
	types "github.com/fatflowers/packledger/pkg/types"
)

type SetStatusRequest struct {
	// Status is paused or active.
	Status types.AssignmentStatus `json:"status"`
}

// @Summary      Create pack assignment
// @Description  Sells a pack template to a member, snapshotting the template terms.
// @Tags         Assignment
// @Accept       json
// @Produce      json
// @Param        X-Operator-ID header string false "Operator performing the sale"
// @Param        request body assignment.CreateAssignmentRequest true "Assignment"
// @Success      200  {object}  handlers.RespAssignment
// @Router       /api/v1/assignments [post]
func ApiCreateAssignment(mgr assignment.AssignmentManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req assignment.CreateAssignmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
		a, err := mgr.CreateAssignment(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(a))
	}
}

// @Summary      List pack assignments
// @Description  Lists assignments filtered by derived status, member and a name/code query.
// @Tags         Assignment
// @Produce      json
// @Param        status    query string false "active, paused, exhausted, expired or all"
// @Param        query     query string false "Member display name or code"
// @Param        member_id query string false "Member ID"
// @Param        from      query int    false "Offset"
// @Param        size      query int    false "Page size, max 200"
// @Success      200  {object}  handlers.RespListAssignments
// @Router       /api/v1/assignments [get]
func ApiListAssignments(mgr assignment.AssignmentManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req assignment.ListAssignmentsRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			writeBindError(c, err)
			return
		}
		res, err := mgr.ListAssignments(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get pack assignment
// @Tags         Assignment
// @Produce      json
// @Param        id path string true "Assignment ID"
// @Success      200  {object}  handlers.RespAssignment
// @Router       /api/v1/assignments/{id} [get]
func ApiGetAssignment(mgr assignment.AssignmentManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := mgr.GetAssignment(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(a))
	}
}

// @Summary      Pause or resume a pack assignment
// @Description  Only active<->paused is allowed; exhausted and expired are derived.
// @Tags         Assignment
// @Accept       json
// @Produce      json
// @Param        id path string true "Assignment ID"
// @Param        X-Operator-ID header string false "Operator"
// @Param        request body handlers.SetStatusRequest true "Target status"
// @Success      200  {object}  handlers.RespAssignment
// @Router       /api/v1/assignments/{id}/status [post]
func ApiSetAssignmentStatus(mgr assignment.AssignmentManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
		a, err := mgr.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(a))
	}
}

// @Summary      Update payment fields
// @Description  Mirrors the external payment ledger. Payment status never gates check-ins.
// @Tags         Assignment
// @Accept       json
// @Produce      json
// @Param        id path string true "Assignment ID"
// @Param        request body assignment.UpdatePaymentRequest true "Payment"
// @Success      200  {object}  handlers.RespAssignment
// @Router       /api/v1/assignments/{id}/payment [post]
func ApiUpdatePayment(mgr assignment.AssignmentManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req assignment.UpdatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
		req.AssignmentID = c.Param("id")
		a, err := mgr.UpdatePayment(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(a))
	}
}

func RegisterAssignmentRoutes(r gin.IRouter, mgr assignment.AssignmentManager) {
	r.POST("", ApiCreateAssignment(mgr))
	r.GET("", ApiListAssignments(mgr))
	r.GET("/:id", ApiGetAssignment(mgr))
	r.POST("/:id/status", ApiSetAssignmentStatus(mgr))
	r.POST("/:id/payment", ApiUpdatePayment(mgr))
}
