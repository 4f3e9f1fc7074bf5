package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// CorrelationIDHeader is the HTTP header carrying the correlation ID
	CorrelationIDHeader = "X-Correlation-ID"
	// CorrelationIDKey is the Gin context key for the correlation ID
	CorrelationIDKey = "correlation_id"
	// LoggerKey is the Gin context key for the correlation-aware logger
	LoggerKey = "logger"
)

// CorrelationIDMiddleware tags every request with a correlation ID. A
// caller-supplied X-Correlation-ID header is honored; otherwise a fresh
// UUID is minted. The ID is echoed in the response header and a logger
// carrying it is stashed in the context for handlers to pick up.
func CorrelationIDMiddleware(baseLogger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Set(CorrelationIDKey, correlationID)
		c.Set(LoggerKey, baseLogger.With(zap.String("correlation_id", correlationID)))
		c.Header(CorrelationIDHeader, correlationID)

		c.Next()
	}
}

// GetLogger returns the correlation-aware logger for the request, or the
// fallback when the middleware did not run.
func GetLogger(c *gin.Context, fallback *zap.Logger) *zap.Logger {
	if logger, exists := c.Get(LoggerKey); exists {
		if l, ok := logger.(*zap.Logger); ok {
			return l
		}
	}
	return fallback
}

// GetCorrelationID returns the request's correlation ID, or empty when
// the middleware did not run.
func GetCorrelationID(c *gin.Context) string {
	if correlationID, exists := c.Get(CorrelationIDKey); exists {
		if id, ok := correlationID.(string); ok {
			return id
		}
	}
	return ""
}
