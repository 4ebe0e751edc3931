package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ConnectionCounter reports how many real-time clients are connected.
type ConnectionCounter interface {
	Len() int
}

// RegisterHealthRoutes registers the liveness endpoint.
func RegisterHealthRoutes(r gin.IRoutes, counter ConnectionCounter) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": counter.Len()})
	})
}
