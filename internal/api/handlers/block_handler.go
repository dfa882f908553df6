package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sentra-sec/sentra/backend/internal/api/middleware"
	"github.com/sentra-sec/sentra/backend/internal/services"
)

type BlockHandler struct {
	detection *services.DetectionService
}

func NewBlockHandler(detection *services.DetectionService) *BlockHandler {
	return &BlockHandler{detection: detection}
}

// ListBlocked returns every stored block entry. Lazily-expired rows are
// included; compatibility with the previous backend requires the raw listing.
func (h *BlockHandler) ListBlocked(c *gin.Context) {
	entries, err := h.detection.Blocks().ListBlocked()
	if err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("blocked-ip listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "service failure"})
		return
	}

	out := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		out = append(out, gin.H{
			"ip_address":    entry.IPAddress,
			"blocked_until": entry.BlockedUntil,
		})
	}
	c.JSON(http.StatusOK, out)
}

type unblockRequest struct {
	IP string `json:"ip" binding:"required"`
}

// Unblock removes the block entry for an IP. Idempotent and always audited.
func (h *BlockHandler) Unblock(c *gin.Context) {
	var req unblockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ip is required"})
		return
	}

	if err := h.detection.Unblock(req.IP); err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("unblock failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "service failure"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("IP %s unblocked", req.IP)})
}

// ActionLog returns the audit trail of block/unblock actions, newest first.
func (h *BlockHandler) ActionLog(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	entries, err := h.detection.Blocks().ListActions(limit)
	if err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("action log listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "service failure"})
		return
	}

	c.JSON(http.StatusOK, entries)
}
