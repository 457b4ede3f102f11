package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/donhauser001/dongui/internal/apperr"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is returned by operations without a resource to echo.
type MessageResponse struct {
	Message string `json:"message"`
}

// handleError maps core error kinds to HTTP status codes.
func handleError(c *gin.Context, err error) {
	var status int
	switch apperr.KindOf(err) {
	case apperr.KindBadRequest, apperr.KindMisconfigured:
		status = http.StatusBadRequest
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	default:
		slog.Error("unhandled service error", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}

	var e *apperr.Error
	errors.As(err, &e)
	c.JSON(status, ErrorResponse{Error: e.Message})
}

// bindError reports a request body or query that failed validation.
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
}

// parseID reads the :id path parameter. It writes a 400 and returns false
// when the parameter is not a UUID.
func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid ID"})
		return uuid.Nil, false
	}
	return id, true
}
