package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gyaneshwarpardhi/activityfeed/internal/ingest"
	"github.com/gyaneshwarpardhi/activityfeed/internal/query"
)

const internalErrorMessage = "internal server error"

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg})
}

// writeErr maps known error kinds onto status codes. Anything unrecognised
// is logged by the caller and answered with a generic 500.
func writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, query.ErrValidation):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ingest.ErrBusy):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, ingest.ErrStopped):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, internalErrorMessage)
	}
}
