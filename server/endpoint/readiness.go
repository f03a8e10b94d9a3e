package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/endpoints/component"
)

// Readiness answers load balancer probes: ready unless a component is
// unhealthy. A draining dispatch loop reports degraded, which still counts
// as not ready so no new work is routed to it.
func Readiness(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "ready"
		httpStatus := http.StatusOK
		if checker != nil && component.Overall(checker(c.Request.Context())) != component.StatusHealthy {
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		}
		c.JSON(httpStatus, gin.H{
			"status":    status,
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
