package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck pings a dependency.
type HealthCheck func(ctx context.Context) error

// SetupRootRoute registers / and /health.
func SetupRootRoute(router *gin.Engine, checks map[string]HealthCheck) {
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "MediCare API")
	})

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				report[name] = err.Error()
				continue
			}
			report[name] = "ok"
		}
		report["status"] = http.StatusText(status)
		c.JSON(status, report)
	})
}
