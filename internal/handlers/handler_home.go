package handlers

import (
	"net/http"

	"github.com/SscSPs/fulfillment_coordinator/internal/platform/config"
	"github.com/gin-gonic/gin"
)

// getHealth godoc
// @Summary Liveness probe
// @Tags root
// @Produce plain
// @Success 200 {string} string "OK"
// @Router /health [get]
func getHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// homeHandler godoc
// @Summary Service banner
// @Description Reports the API version and the storage driver the coordinator runs on.
// @Tags root
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func homeHandler(cfg *config.Config) gin.HandlerFunc {
	body := gin.H{"service": "fulfillment-coordinator", "api": "v1", "storage": cfg.StorageDriver}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, body)
	}
}
