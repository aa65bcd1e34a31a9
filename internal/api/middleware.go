package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/toot-warehouse/internal/logger"
)

// LoggerMiddleware logs every request once, with method, path, status,
// duration and client IP.
func LoggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		fields := []logger.Field{
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("duration", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
		}

		if query := c.Request.URL.RawQuery; query != "" {
			fields = append(fields, logger.String("query", query))
		}

		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
			log.Error("HTTP request with errors", fields...)
			return
		}

		// Health probes are noisy; keep them out of the info log
		if strings.HasPrefix(path, "/health") {
			log.Debug("HTTP request", fields...)
			return
		}

		log.Info("HTTP request", fields...)
	}
}

// RecoveryMiddleware converts panics into 500 responses and logs them.
func RecoveryMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Error("panic recovered",
					logger.String("path", c.Request.URL.Path),
					logger.Any("panic", recovered))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()

		c.Next()
	}
}
