package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"

	"github.com/seongjae-dev/optionpulse/internal/database"
)

type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Services  HealthServices `json:"services"`
	System    SystemStats    `json:"system"`
}

type HealthServices struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

type SystemStats struct {
	MemoryUsedPct float64 `json:"memory_used_pct"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryTotalMB uint64  `json:"memory_total_mb"`
	StreamClients int     `json:"stream_clients"`
}

// StreamCounter reports the number of live stream connections.
type StreamCounter interface {
	Len() int
}

type HealthHandler struct {
	db     *database.PostgresDB
	redis  *database.RedisClient
	hub    StreamCounter
	logger *logrus.Logger
}

func NewHealthHandler(db *database.PostgresDB, redis *database.RedisClient, hub StreamCounter, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, hub: hub, logger: logger}
}

func (h *HealthHandler) Check(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
		Services: HealthServices{
			Database: "ok",
			Redis:    "ok",
		},
	}

	ctx := c.Request.Context()

	if err := h.db.HealthCheck(ctx); err != nil {
		h.logger.WithError(err).Warn("Database health check failed")
		response.Services.Database = "error"
		response.Status = "degraded"
	}
	if err := h.redis.HealthCheck(ctx); err != nil {
		h.logger.WithError(err).Warn("Redis health check failed")
		response.Services.Redis = "error"
		response.Status = "degraded"
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		response.System.MemoryUsedPct = vm.UsedPercent
		response.System.MemoryUsedMB = vm.Used / 1024 / 1024
		response.System.MemoryTotalMB = vm.Total / 1024 / 1024
	}
	if h.hub != nil {
		response.System.StreamClients = h.hub.Len()
	}

	statusCode := http.StatusOK
	if response.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}
