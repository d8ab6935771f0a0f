package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/friendgraph/internal/httputil"
	"github.com/persistorai/friendgraph/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeSeedUnreachable = "seed_unreachable"
	ErrCodeEmptyGraph      = "empty_graph"
	ErrCodeUnavailable     = "unavailable"
	ErrCodeInternalError   = "internal_error"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeRateLimited     = "rate_limited"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	httputil.RespondError(c, status, code, message)
}

// respondServiceError maps a service error onto a status and error code.
// Unrecognised errors are logged under action and reported as internal.
func respondServiceError(c *gin.Context, log *logrus.Logger, err error, action string) {
	switch {
	case errors.Is(err, models.ErrInvalidRequest):
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, models.ErrRunNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "crawl run not found")
	case errors.Is(err, models.ErrSeedUnreachable):
		respondError(c, http.StatusUnprocessableEntity, ErrCodeSeedUnreachable, err.Error())
	case errors.Is(err, models.ErrEmptyGraph):
		respondError(c, http.StatusUnprocessableEntity, ErrCodeEmptyGraph, "graph has no nodes")
	case errors.Is(err, models.ErrQueueFull):
		respondError(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "crawl queue is full, retry later")
	default:
		log.WithError(err).Error(action)
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
