package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sentra-sec/sentra/backend/internal/api/middleware"
	"github.com/sentra-sec/sentra/backend/internal/models"
	"github.com/sentra-sec/sentra/backend/internal/services"
)

type TrafficHandler struct {
	detection *services.DetectionService
}

func NewTrafficHandler(detection *services.DetectionService) *TrafficHandler {
	return &TrafficHandler{detection: detection}
}

// trafficEntry is the ingestion payload. Field shapes are validated here at the
// boundary; the engine assumes validated input.
type trafficEntry struct {
	Timestamp      *time.Time `json:"timestamp"`
	SourceIP       string     `json:"source_ip" binding:"required"`
	Method         string     `json:"method" binding:"required"`
	URL            string     `json:"url" binding:"required"`
	Headers        string     `json:"headers"`
	UserAgent      string     `json:"user_agent"`
	RequestSize    int        `json:"request_size" binding:"min=0"`
	ResponseCode   int        `json:"response_code"`
	ResponseTimeMs int        `json:"response_time_ms" binding:"min=0"`
}

// Log ingests one traffic observation and returns any alerts it triggered.
func (h *TrafficHandler) Log(c *gin.Context) {
	var entry trafficEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid traffic entry: " + err.Error()})
		return
	}

	event := &models.TrafficEvent{
		SourceIP:       entry.SourceIP,
		Method:         entry.Method,
		URL:            entry.URL,
		Headers:        entry.Headers,
		UserAgent:      entry.UserAgent,
		RequestSize:    entry.RequestSize,
		ResponseCode:   entry.ResponseCode,
		ResponseTimeMs: entry.ResponseTimeMs,
	}
	if entry.Timestamp != nil {
		event.Timestamp = entry.Timestamp.UTC()
	}

	persisted, alerts, err := h.detection.Process(event)
	if err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("traffic processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "service failure"})
		return
	}

	descriptions := make([]string, 0, len(alerts))
	for _, alert := range alerts {
		descriptions = append(descriptions, alert.Description)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "Traffic logged",
		"record_id":        persisted.ID,
		"alerts_triggered": descriptions,
	})
}
