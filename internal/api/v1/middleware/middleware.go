package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// Logging adds request logging with timing information
func Logging(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		logger.Debug("request handled",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(startTime))
	}
}

// Recovery converts handler panics into 500 responses
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic in request handler",
			"path", c.Request.URL.Path,
			"panic", recovered)
		c.AbortWithStatusJSON(500, gin.H{"error": "internal server error"})
	})
}
