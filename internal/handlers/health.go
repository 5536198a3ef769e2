package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/padoru233/trans-progress/internal/models"
	"github.com/padoru233/trans-progress/internal/services"
)

// HealthHandler provides health check endpoints.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	// Database check
	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	// Queue mode
	taskQueue := services.GetTaskQueue()
	queueMode := "sync"
	if taskQueue != nil && taskQueue.IsAsync() {
		queueMode = "async (Redis)"
	}

	// Active episode count
	var activeCount int64
	models.GetDB().Model(&models.Episode{}).
		Where("status BETWEEN ? AND ?", models.StatusTranslating, models.StatusSupervising).
		Count(&activeCount)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "trans-progress",
		"components": gin.H{
			"database":        dbStatus,
			"queue_mode":      queueMode,
			"active_episodes": activeCount,
		},
	})
}
