package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sentra-sec/sentra/backend/internal/metrics"
	"github.com/sentra-sec/sentra/backend/internal/services"
)

// exemptPrefixes are paths a blocked client may still reach. Auth and the
// administrative surface stay open so an operator whose own IP got caught in a
// block can always log in and unblock it; health and metrics stay open for
// probes and scrapes.
var exemptPrefixes = []string{
	"/api/v1/health",
	"/auth/",
	"/unblock-ip",
	"/metrics",
}

// Blocklist rejects requests from currently-blocked client IPs before they
// reach any handler. Block state is read per request; expired entries stop
// blocking without any row being removed.
func Blocklist(detection *services.DetectionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range exemptPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		clientIP := c.ClientIP()
		blocked, err := detection.IsBlocked(clientIP)
		if err != nil {
			GetRequestLogger(c).WithError(err).Error("blocklist check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "service failure"})
			return
		}

		if blocked {
			metrics.IncRejected()
			GetRequestLogger(c).WithField("client", clientIP).Warn("rejected blocked IP")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"detail": fmt.Sprintf("IP %s is blocked", clientIP),
			})
			return
		}

		c.Next()
	}
}
