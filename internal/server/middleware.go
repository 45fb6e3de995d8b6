package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ShayCichocki/agentsmith/internal/logging"
)

const (
	ownerHeader  = "X-User-ID"
	defaultOwner = "anonymous"
	ownerKey     = "owner"
)

// ownerMiddleware takes the caller identity from a trusted header.
func ownerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := c.GetHeader(ownerHeader)
		if owner == "" {
			owner = defaultOwner
		}
		c.Set(ownerKey, owner)
		c.Next()
	}
}

func owner(c *gin.Context) string {
	return c.GetString(ownerKey)
}

func requestLogger(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
		}
		switch {
		case status >= 500:
			log.ErrorContext(c.Request.Context(), "request", args...)
		case status >= 400:
			log.WarnContext(c.Request.Context(), "request", args...)
		default:
			log.Debug("request", args...)
		}
	}
}
