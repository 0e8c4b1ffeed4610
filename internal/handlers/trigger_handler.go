package handlers

import (
	"net/http"
	"strconv"

	"queuedesk/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TriggerHandler manages automation triggers. The event scope is never part
// of the payload; it is derived from the conditions on every save.
type TriggerHandler struct {
	service *services.AutomationService
	logger  *logrus.Logger
}

func NewTriggerHandler(service *services.AutomationService, logger *logrus.Logger) *TriggerHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &TriggerHandler{service: service, logger: logger}
}

// ListTriggers returns all triggers.
func (h *TriggerHandler) ListTriggers(c *gin.Context) {
	triggers, err := h.service.ListTriggers(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to list triggers: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list triggers", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, triggers)
}

// GetTrigger returns one trigger by id.
func (h *TriggerHandler) GetTrigger(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	trigger, err := h.service.GetTrigger(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Trigger not found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, trigger)
}

// CreateTrigger creates a trigger.
func (h *TriggerHandler) CreateTrigger(c *gin.Context) {
	var req services.TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	trigger, err := h.service.CreateTrigger(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to create trigger", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, trigger)
}

// UpdateTrigger replaces a trigger document.
func (h *TriggerHandler) UpdateTrigger(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req services.TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	trigger, err := h.service.UpdateTrigger(c.Request.Context(), id, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to update trigger", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, trigger)
}

// DeleteTrigger deletes a trigger by id.
func (h *TriggerHandler) DeleteTrigger(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.service.DeleteTrigger(c.Request.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if err.Error() == "trigger not found" {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to delete trigger", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

// ListRuns pages through the execution audit log.
func (h *TriggerHandler) ListRuns(c *gin.Context) {
	var req services.AutomationRunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query", Message: err.Error()})
		return
	}
	runs, total, err := h.service.ListRuns(c.Request.Context(), &req)
	if err != nil {
		h.logger.Errorf("Failed to list automation runs: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list runs", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:     runs,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Pages:    pageCount(total, req.PageSize),
	})
}

func parseIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return 0, false
	}
	return uint(id), true
}

// RegisterTriggerRoutes registers the automation trigger routes.
func RegisterTriggerRoutes(r *gin.RouterGroup, handler *TriggerHandler) {
	triggers := r.Group("/triggers")
	{
		triggers.GET("", handler.ListTriggers)
		triggers.POST("", handler.CreateTrigger)
		triggers.GET("/runs", handler.ListRuns)
		triggers.GET("/:id", handler.GetTrigger)
		triggers.PUT("/:id", handler.UpdateTrigger)
		triggers.DELETE("/:id", handler.DeleteTrigger)
	}
}
