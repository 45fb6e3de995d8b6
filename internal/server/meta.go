package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ShayCichocki/agentsmith/internal/catalog"
)

const healthTimeout = 2 * time.Second

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "AI Agent Creator API",
		"name":    "agentsmith",
		"version": s.cfg.Version,
		"status":  "running",
	})
}

// handleHealth pings the store and the cache.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if err := s.deps.Store.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}
	if err := s.deps.Mirror.Cache().Ping(ctx); err != nil {
		checks["cache"] = err.Error()
		healthy = false
	} else {
		checks["cache"] = "ok"
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) listTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, catalog.All())
}
