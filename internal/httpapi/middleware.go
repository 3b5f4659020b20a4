package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oggyb/rotrade-sync/internal/api"
	apperr "github.com/oggyb/rotrade-sync/internal/errors"
)

const (
	// RequestIDHeader is echoed back, or generated when the caller sent none.
	RequestIDHeader = "X-Request-Id"
	// RequestIDContextKey stores the request id in the gin context.
	RequestIDContextKey = "requestID"
)

// RequestLogger logs every request with its latency and request id.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Set(RequestIDContextKey, requestID)

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"action", c.Query("action"),
			"ip", c.ClientIP(),
			"latency", time.Since(start),
			"request_id", requestID,
		}
		for _, e := range c.Errors.ByType(gin.ErrorTypePrivate) {
			attrs = append(attrs, "err", e.Err)
		}

		switch {
		case status >= 500:
			log.Error("server error", attrs...)
		case status >= 400:
			log.Warn("client error", attrs...)
		default:
			log.Info("request handled", attrs...)
		}
	}
}

// Maintenance answers every action with 402, the endpoint's "service
// unavailable" signal.
func Maintenance(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusPaymentRequired, api.ErrorBody{Error: apperr.ErrServiceUnavailable.Error()})
	}
}
