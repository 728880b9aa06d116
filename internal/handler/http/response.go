// Package http exposes the service over gin.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/promoflow/auth-service/internal/domain/errors"
)

// ErrorBody is the uniform error envelope.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondError maps a service error onto an HTTP response. Authentication
// failures collapse into one generic 401 so callers cannot probe for the
// cause; unexpected errors collapse into a generic 500 with the detail
// kept in the logs.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	_ = c.Error(err)

	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode, ErrorBody{Error: appErr.Message, Code: appErr.Code})
		return
	}

	switch {
	case domainErrors.IsUnauthorized(err):
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, ErrorBody{Error: "authentication failed", Code: "UNAUTHORIZED"})
	case errors.Is(err, domainErrors.ErrOAuthProviderNotFound):
		c.JSON(http.StatusNotImplemented, ErrorBody{Error: "provider not configured", Code: "PROVIDER_NOT_CONFIGURED"})
	case domainErrors.IsConflict(err):
		c.JSON(http.StatusConflict, ErrorBody{Error: err.Error(), Code: "CONFLICT"})
	case domainErrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorBody{Error: "resource not found", Code: "NOT_FOUND"})
	case errors.Is(err, domainErrors.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorBody{Error: "access denied", Code: "FORBIDDEN"})
	case errors.Is(err, domainErrors.ErrInvalidRequest):
		c.JSON(http.StatusUnprocessableEntity, ErrorBody{Error: err.Error(), Code: "VALIDATION_ERROR"})
	default:
		logger.Error("unhandled error",
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorBody{Error: "internal server error", Code: "INTERNAL"})
	}
}

// respondValidationError answers a request body or parameter that failed
// binding.
func respondValidationError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusUnprocessableEntity, ErrorBody{
		Error: "invalid request: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}
