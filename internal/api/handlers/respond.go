package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wms-core/server/internal/apperr"
	"github.com/wms-core/server/pkg/logger"
)

// parseID reads an int64 path parameter, returning a descriptive error
// for binding against the request's bad-request response.
func parseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// respondErr maps an apperr.Kind to its HTTP status and writes the JSON
// error body. This is the single place in the request path that turns a
// domain error into a status code, generalizing the teacher's one-status
// errorResponse helper in api.go.
func respondErr(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		logger.Log.Error().Err(err).Msg("unhandled internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	status := statusForKind(appErr.Kind)
	if status >= http.StatusInternalServerError {
		logger.Log.Error().Err(appErr).Str("code", appErr.Code).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": appErr.Message, "code": appErr.Code})
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation:
		return http.StatusUnprocessableEntity
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict, apperr.SerializationRetry, apperr.InvalidTransition, apperr.InsufficientStock, apperr.NotUndoable:
		return http.StatusConflict
	case apperr.External:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
