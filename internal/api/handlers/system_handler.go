package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// allowedServices are the names the status endpoint recognises.
var allowedServices = map[string]bool{"db": true, "api": true, "all": true}

// SystemStatus reports a basic ok/not-found per service name, mirroring the
// previous backend's contract: an unknown service name is a 404.
func SystemStatus(c *gin.Context) {
	service := c.DefaultQuery("service", "all")
	if !allowedServices[service] {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Service '" + service + "' Not Found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": service})
}
