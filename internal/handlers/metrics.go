package handlers

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stockyard-ci/stockyard/internal/cache"
	"github.com/stockyard-ci/stockyard/internal/models"
	"github.com/stockyard-ci/stockyard/internal/services"
	"gorm.io/gorm"
)

var startTime = time.Now()

// reportGauges maps each report table to its gauge name.
var reportGauges = []struct {
	model interface{}
	name  string
}{
	{&models.LinesOfCode{}, "linesofcode"},
	{&models.CodeCoverage{}, "codecoverage"},
	{&models.UnitTest{}, "unittest"},
	{&models.ImageCapture{}, "imagecapture"},
	{&models.ImageCaptureDiff{}, "imagecapturediff"},
}

type MetricsHandler struct {
	db    *gorm.DB
	queue services.TaskQueue
	store cache.Store
}

func NewMetricsHandler(db *gorm.DB, queue services.TaskQueue, store cache.Store) *MetricsHandler {
	return &MetricsHandler{db: db, queue: queue, store: store}
}

// Metrics returns Prometheus text format metrics.
// GET /metrics
func (h *MetricsHandler) Metrics(c *gin.Context) {
	var b strings.Builder
	ctx := c.Request.Context()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	writeGauge(&b, "stockyard_uptime_seconds", "Time since server start in seconds", time.Since(startTime).Seconds())
	writeGauge(&b, "stockyard_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "stockyard_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))

	if sqlDB, err := h.db.DB(); err == nil {
		stats := sqlDB.Stats()
		writeGauge(&b, "stockyard_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
		writeGauge(&b, "stockyard_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
	}

	queueAsync := 0.0
	if h.queue != nil && h.queue.Mode() == services.QueueModeAsync {
		queueAsync = 1
	}
	writeGauge(&b, "stockyard_queue_async_enabled", "Whether the Redis queue is in use (1=yes, 0=no)", queueAsync)

	if owners, err := h.store.Members(ctx, cache.OwnersKey); err == nil {
		writeGauge(&b, "stockyard_owners", "Number of known owners", float64(len(owners)))
	}

	var repos, branches int64
	h.db.WithContext(ctx).Model(&models.Repository{}).Count(&repos)
	h.db.WithContext(ctx).Model(&models.Branch{}).Count(&branches)
	writeGauge(&b, "stockyard_repositories", "Number of registered repositories", float64(repos))
	writeGauge(&b, "stockyard_branches", "Number of registered branches", float64(branches))

	for _, g := range reportGauges {
		var n int64
		h.db.WithContext(ctx).Model(g.model).Count(&n)
		writeGauge(&b, "stockyard_reports_"+g.name, "Stored "+g.name+" reports", float64(n))
	}

	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}
