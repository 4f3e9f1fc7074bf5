package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wso2/task-platform/sync-agent/pkg/api"
	"github.com/wso2/task-platform/sync-agent/pkg/metrics"
	"go.uber.org/zap"
)

// ErrorHandlingMiddleware recovers from handler panics and turns them
// into a 500 response instead of tearing down the agent.
func ErrorHandlingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				// Get correlation-aware logger from context
				log := GetLogger(c, logger)

				log.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				metrics.PanicRecoveriesTotal.WithLabelValues("local_api").Inc()

				c.JSON(http.StatusInternalServerError, api.ErrorResponse{
					Status:  "error",
					Message: "Internal server error",
				})

				c.Abort()
			}
		}()

		c.Next()
	}
}
