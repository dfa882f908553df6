package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sentra-sec/sentra/backend/internal/api/middleware"
	"github.com/sentra-sec/sentra/backend/internal/services"
)

type AnalyticsHandler struct {
	traffic *services.TrafficService
	alerts  *services.AlertService
}

func NewAnalyticsHandler(traffic *services.TrafficService, alerts *services.AlertService) *AnalyticsHandler {
	return &AnalyticsHandler{traffic: traffic, alerts: alerts}
}

// Summary returns aggregated traffic metrics plus the most recent alerts,
// optionally filtered by source IP and/or HTTP method.
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	summary, err := h.traffic.Summarize(c.Query("ip"), c.Query("method"))
	if err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("traffic summary failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "service failure"})
		return
	}

	alerts, err := h.alerts.ListRecent(5)
	if err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("recent alerts lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "service failure"})
		return
	}

	recent := make([]gin.H, 0, len(alerts))
	for _, alert := range alerts {
		recent = append(recent, gin.H{
			"timestamp":   alert.Timestamp,
			"type":        alert.AlertType,
			"description": alert.Description,
			"source_ip":   alert.SourceIP,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"total_requests":          summary.TotalRequests,
		"top_ips":                 summary.TopIPs,
		"methods":                 summary.Methods,
		"response_codes":          summary.ResponseCodes,
		"traffic_trend_last_hour": summary.TrendLastHour,
		"recent_alerts":           recent,
	})
}
