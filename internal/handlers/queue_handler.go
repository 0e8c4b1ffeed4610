package handlers

import (
	"net/http"
	"strings"

	"queuedesk/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// QueueHandler exposes queue management and resolver lookup.
type QueueHandler struct {
	queueService *services.QueueService
	logger       *logrus.Logger
}

func NewQueueHandler(queueService *services.QueueService, logger *logrus.Logger) *QueueHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &QueueHandler{queueService: queueService, logger: logger}
}

func (h *QueueHandler) ListQueues(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	queues, err := h.queueService.ListQueues(c.Request.Context(), activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list queues", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, queues)
}

func (h *QueueHandler) GetQueue(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	queue, err := h.queueService.GetQueue(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Queue not found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, queue)
}

func (h *QueueHandler) CreateQueue(c *gin.Context) {
	var req services.QueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}
	queue, err := h.queueService.CreateQueue(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to create queue", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, queue)
}

func (h *QueueHandler) UpdateQueue(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req services.QueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}
	queue, err := h.queueService.UpdateQueue(c.Request.Context(), id, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to update queue", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, queue)
}

func (h *QueueHandler) DeleteQueue(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.queueService.DeleteQueue(c.Request.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Queue not found", Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to delete queue", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *QueueHandler) ListResolvers(c *gin.Context) {
	resolvers, err := h.queueService.ListResolvers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list resolvers", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, resolvers)
}

func (h *QueueHandler) QueueStats(c *gin.Context) {
	stats, err := h.queueService.GetQueueStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to compute queue stats", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// RegisterQueueRoutes registers the queue routes.
func RegisterQueueRoutes(r *gin.RouterGroup, handler *QueueHandler) {
	queues := r.Group("/queues")
	{
		queues.GET("", handler.ListQueues)
		queues.POST("", handler.CreateQueue)
		queues.GET("/stats", handler.QueueStats)
		queues.GET("/:id", handler.GetQueue)
		queues.PUT("/:id", handler.UpdateQueue)
		queues.DELETE("/:id", handler.DeleteQueue)
	}
	r.GET("/resolvers", handler.ListResolvers)
}
