package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fabura/gonka-tools/internal/common"
	"github.com/fabura/gonka-tools/internal/features/monitor/domain"
)

// StatusHandler handles API requests for fleet and node status
type StatusHandler struct {
	monitorService domain.Provider
	logger         *slog.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(monitorService domain.Provider, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		monitorService: monitorService,
		logger:         logger,
	}
}

// SetupRoutes configures the routes for this handler
func (h *StatusHandler) SetupRoutes(router *gin.Engine) {
	statusGroup := router.Group("/api/v1/status")
	{
		statusGroup.GET("", h.getFleetStatus)
		statusGroup.GET("/nodes/:nodeName", h.getNodeStatus)
	}

	router.POST("/api/v1/report", h.sendFleetReport)
}

// getFleetStatus returns the latest observed status of every node
func (h *StatusHandler) getFleetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitorService.FleetStatus())
}

// getNodeStatus retrieves the current status of a node
func (h *StatusHandler) getNodeStatus(c *gin.Context) {
	nodeName := c.Param("nodeName")
	if nodeName == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "node name is required",
		})
		return
	}

	status, err := h.monitorService.NodeStatus(nodeName)
	if err != nil {
		if common.IsNodeNotFoundError(err) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": fmt.Sprintf("unknown node: %s", nodeName),
			})
			return
		}

		h.logger.Error("failed to retrieve node status", "node", nodeName, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": fmt.Sprintf("failed to retrieve status: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, status)
}

// sendFleetReport pushes the fleet summary through the configured
// channel. The budget covers a fresh collection pass plus delivery.
func (h *StatusHandler) sendFleetReport(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	if err := h.monitorService.SendFleetReport(ctx); err != nil {
		if common.IsUnavailable(err) {
			c.JSON(http.StatusConflict, gin.H{
				"error": err.Error(),
			})
			return
		}

		h.logger.Error("failed to send fleet report", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": fmt.Sprintf("failed to send fleet report: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "fleet report sent",
	})
}
