package middleware

import (
	"context"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// Profiling tags CPU samples taken while serving a request with its route,
// method and tenant, so Pyroscope can split ledger endpoints apart.
// Unmatched routes run unlabeled.
func Profiling() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}

		labels := map[string]string{
			telemetry.ProfilingLabelRoute:  route,
			telemetry.ProfilingLabelMethod: c.Request.Method,
		}
		if tenantID := GetJWTTenantID(c); tenantID != "" {
			labels[telemetry.ProfilingLabelTenantID] = tenantID
		}

		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
