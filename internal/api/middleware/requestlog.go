package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PortableShelf/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PortableShelf/internal/shared/id"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestLogger tags each request with an ID (reusing the caller's header
// when present) and logs it once it completes.
func RequestLogger(logger *logging.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logging.NewNop()
	}
	log := logger.Named("http")
	return func(c *gin.Context) {
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = id.NewRequestID().String()
		}
		c.Set(requestIDKey, reqID)
		c.Header(RequestIDHeader, reqID)

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", reqID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("Request", fields...)
		case status >= 400:
			log.Warn("Request", fields...)
		default:
			log.Debug("Request", fields...)
		}
	}
}

// RequestID returns the ID assigned by RequestLogger, or "".
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
