package handlers

import (
	"net/http"
	"strings"

	"queuedesk/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// FormHandler exposes form definitions, visibility evaluation and submission.
type FormHandler struct {
	formService *services.FormService
	logger      *logrus.Logger
}

func NewFormHandler(formService *services.FormService, logger *logrus.Logger) *FormHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &FormHandler{formService: formService, logger: logger}
}

// ListForms lists forms. ?active=true restricts to active ones.
func (h *FormHandler) ListForms(c *gin.Context) {
	activeOnly := c.Query("active") == "true"
	forms, err := h.formService.ListForms(c.Request.Context(), activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list forms", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, forms)
}

// GetForm returns one form with its ordered fields.
func (h *FormHandler) GetForm(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	form, err := h.formService.GetForm(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Form not found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, form)
}

// CreateForm creates a form with its fields.
func (h *FormHandler) CreateForm(c *gin.Context) {
	var req services.FormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}
	form, err := h.formService.CreateForm(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to create form", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, form)
}

// UpdateForm replaces a form definition wholesale.
func (h *FormHandler) UpdateForm(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req services.FormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}
	form, err := h.formService.UpdateForm(c.Request.Context(), id, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to update form", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, form)
}

// DeleteForm removes a form.
func (h *FormHandler) DeleteForm(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if err := h.formService.DeleteForm(c.Request.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Form not found", Message: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to delete form", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

type visibilityRequest struct {
	Values map[string]interface{} `json:"values"`
}

type visibilityResponse struct {
	VisibleFields []string `json:"visible_fields"`
}

// EvaluateVisibility returns the keys of the fields visible for the given
// in-progress answers. Clients call this as answers change; hidden fields
// keep their values client-side and are only dropped on submit.
func (h *FormHandler) EvaluateVisibility(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}
	visible, err := h.formService.VisibleFields(c.Request.Context(), id, req.Values)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Form not found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, visibilityResponse{VisibleFields: visible})
}

// SubmitForm turns a submission into a ticket. Hidden field values are
// dropped server-side regardless of what the client sends.
func (h *FormHandler) SubmitForm(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req services.FormSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}
	ticket, err := h.formService.Submit(c.Request.Context(), id, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to submit form", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

// RegisterFormRoutes registers the form routes.
func RegisterFormRoutes(r *gin.RouterGroup, handler *FormHandler) {
	forms := r.Group("/forms")
	{
		forms.GET("", handler.ListForms)
		forms.POST("", handler.CreateForm)
		forms.GET("/:id", handler.GetForm)
		forms.PUT("/:id", handler.UpdateForm)
		forms.DELETE("/:id", handler.DeleteForm)
		forms.POST("/:id/visibility", handler.EvaluateVisibility)
		forms.POST("/:id/submit", handler.SubmitForm)
	}
}
