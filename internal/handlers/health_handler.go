package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"queuedesk/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// HealthHandler reports liveness and readiness of the service.
type HealthHandler struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewHealthHandler(db *gorm.DB, logger *logrus.Logger) *HealthHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &HealthHandler{db: db, logger: logger}
}

type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Services  map[string]ServiceInfo `json:"services"`
	System    SystemInfo             `json:"system"`
}

type ServiceInfo struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SystemInfo struct {
	Uptime    string `json:"uptime"`
	GoVersion string `json:"go_version"`
}

var startTime = time.Now()

// Health checks the database and reports overall status. A degraded
// database still returns 200 so load balancers keep routing reads.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Version:   "1.0.0",
		Timestamp: time.Now(),
		Services:  make(map[string]ServiceInfo),
		System: SystemInfo{
			Uptime:    time.Since(startTime).String(),
			GoVersion: runtime.Version(),
		},
	}

	start := time.Now()
	if err := h.pingDatabase(ctx); err != nil {
		response.Status = "degraded"
		response.Services["database"] = ServiceInfo{Status: "unhealthy", Error: err.Error()}
	} else {
		response.Services["database"] = ServiceInfo{Status: "healthy", Latency: time.Since(start).String()}
	}

	c.JSON(http.StatusOK, response)
}

// Ready reports readiness. Unlike Health it fails hard when the
// database is unreachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.pingDatabase(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true})
}

func (h *HealthHandler) pingDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Metrics exposes the in-process counters as JSON.
func (h *HealthHandler) Metrics(c *gin.Context) {
	runTotal, runByStatus := metrics.AutomationRunSnapshot()
	rlTotal, rlByPrefix := metrics.RateLimitSnapshot()
	c.JSON(http.StatusOK, gin.H{
		"automation_runs": gin.H{
			"total":     runTotal,
			"by_status": runByStatus,
		},
		"rate_limit_drops": gin.H{
			"total":     rlTotal,
			"by_prefix": rlByPrefix,
		},
		"uptime": time.Since(startTime).String(),
	})
}
