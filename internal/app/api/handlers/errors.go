package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/packledger/internal/app/service/packerr"
	"github.com/fatflowers/packledger/pkg/logctx"
	"github.com/fatflowers/packledger/pkg/response"
)

// IneligibleData is the data payload of an ineligible check-in response.
type IneligibleData struct {
	AssignmentID string `json:"assignment_id"`
	Reason       string `json:"reason"`
}

// writeError maps the ledger error taxonomy onto envelope codes. The HTTP
// status is always 200; clients branch on code.
func writeError(c *gin.Context, err error) {
	var (
		inel *packerr.IneligibleError
		cont *packerr.ContentionError
	)
	switch {
	case errors.As(err, &inel):
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeIneligible, IneligibleData{
			AssignmentID: inel.AssignmentID,
			Reason:       string(inel.Reason),
		}))
	case errors.As(err, &cont):
		c.JSON(http.StatusOK, response.ErrorMsg(response.APIResponseCodeContention, err.Error()))
	case errors.Is(err, packerr.ErrValidation):
		c.JSON(http.StatusOK, response.ErrorMsg(response.APIResponseCodeBadRequest, err.Error()))
	case errors.Is(err, packerr.ErrNotFound):
		c.JSON(http.StatusOK, response.ErrorMsg(response.APIResponseCodeNotFound, err.Error()))
	case errors.Is(err, packerr.ErrInvalidTransition):
		c.JSON(http.StatusOK, response.ErrorMsg(response.APIResponseCodeInvalidTransition, err.Error()))
	default:
		logctx.FromGin(c, nil).Errorw("request_failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, nil))
	}
}

func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusOK, response.ErrorMsg(response.APIResponseCodeBadRequest, err.Error()))
}
