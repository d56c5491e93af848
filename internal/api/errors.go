package api

import (
	"errors"
	"net/http"

	"bookshop-pos/internal/errs"
	"bookshop-pos/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrStockViolation):
		return http.StatusConflict
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrLockTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error body and aborts the chain
func respondError(c *gin.Context, summary string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		util.GetLogger().Error(summary,
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":   summary,
		"details": err.Error(),
	})
}
