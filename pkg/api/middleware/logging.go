package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggingMiddleware logs one line per local API request, tagged with the
// request's correlation ID. Server-side failures log at error level so
// they stand out from routine traffic.
func LoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("correlation_id", GetCorrelationID(c)),
		}

		if status >= 500 {
			logger.Error("HTTP request failed", fields...)
			return
		}
		logger.Info("HTTP request", fields...)
	}
}
