package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stockyard-ci/stockyard/internal/cache"
	"github.com/stockyard-ci/stockyard/internal/services"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db    *gorm.DB
	queue services.TaskQueue
	store cache.Store
}

func NewHealthHandler(db *gorm.DB, queue services.TaskQueue, store cache.Store) *HealthHandler {
	return &HealthHandler{db: db, queue: queue, store: store}
}

// CheckHealth reports database reachability and the queue and cache modes.
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	code := http.StatusOK

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	queueMode := services.QueueModeSync
	if h.queue != nil {
		queueMode = h.queue.Mode()
	}

	c.JSON(code, gin.H{
		"status":  overall,
		"service": "stockyard",
		"components": gin.H{
			"database":   dbStatus,
			"queue_mode": queueMode,
			"cache_mode": h.store.Mode(),
		},
	})
}
