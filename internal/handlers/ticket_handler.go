package handlers

import (
	"net/http"

	"queuedesk/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TicketHandler exposes the ticket lifecycle endpoints.
type TicketHandler struct {
	ticketService *services.TicketService
	logger        *logrus.Logger
}

func NewTicketHandler(ticketService *services.TicketService, logger *logrus.Logger) *TicketHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &TicketHandler{ticketService: ticketService, logger: logger}
}

// CreateTicket creates a ticket. Automation runs after the write commits;
// its failures never turn into an error response here.
func (h *TicketHandler) CreateTicket(c *gin.Context) {
	var req services.TicketCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}
	ticket, err := h.ticketService.CreateTicket(c.Request.Context(), &req)
	if err != nil {
		h.logger.Errorf("Failed to create ticket: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create ticket", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

// GetTicket returns one ticket with its associations.
func (h *TicketHandler) GetTicket(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	ticket, err := h.ticketService.GetTicketByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Ticket not found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// UpdateTicket updates a ticket.
func (h *TicketHandler) UpdateTicket(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req services.TicketUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}
	ticket, err := h.ticketService.UpdateTicket(c.Request.Context(), id, &req, currentUserID(c))
	if err != nil {
		h.logger.Errorf("Failed to update ticket %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to update ticket", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// ListTickets pages through tickets.
func (h *TicketHandler) ListTickets(c *gin.Context) {
	var req services.TicketListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid query", Message: err.Error()})
		return
	}
	tickets, total, err := h.ticketService.ListTickets(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list tickets", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:     tickets,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Pages:    pageCount(total, req.PageSize),
	})
}

type assignRequest struct {
	ResolverID uint `json:"resolver_id" binding:"required"`
}

// AssignTicket assigns a ticket to a resolver.
func (h *TicketHandler) AssignTicket(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}
	if err := h.ticketService.AssignTicket(c.Request.Context(), id, req.ResolverID, currentUserID(c)); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to assign ticket", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "assigned"})
}

type unassignRequest struct {
	Reason string `json:"reason"`
}

// UnassignTicket clears the assignee.
func (h *TicketHandler) UnassignTicket(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req unassignRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.ticketService.UnassignTicket(c.Request.Context(), id, currentUserID(c), req.Reason); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to unassign ticket", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "unassigned"})
}

type closeRequest struct {
	Reason string `json:"reason"`
}

// CloseTicket closes a ticket.
func (h *TicketHandler) CloseTicket(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req closeRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.ticketService.CloseTicket(c.Request.Context(), id, currentUserID(c), req.Reason); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to close ticket", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "closed"})
}

type commentRequest struct {
	Content string `json:"content" binding:"required"`
	Type    string `json:"type"`
}

// AddComment appends a comment to a ticket.
func (h *TicketHandler) AddComment(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Message: err.Error()})
		return
	}
	comment, err := h.ticketService.AddComment(c.Request.Context(), id, currentUserID(c), req.Content, req.Type)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to add comment", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// currentUserID pulls the authenticated user id injected by the auth
// middleware; zero means system/unauthenticated (e.g. tests without auth).
func currentUserID(c *gin.Context) uint {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// RegisterTicketRoutes registers the ticket routes.
func RegisterTicketRoutes(r *gin.RouterGroup, handler *TicketHandler) {
	tickets := r.Group("/tickets")
	{
		tickets.GET("", handler.ListTickets)
		tickets.POST("", handler.CreateTicket)
		tickets.GET("/:id", handler.GetTicket)
		tickets.PUT("/:id", handler.UpdateTicket)
		tickets.POST("/:id/assign", handler.AssignTicket)
		tickets.POST("/:id/unassign", handler.UnassignTicket)
		tickets.POST("/:id/close", handler.CloseTicket)
		tickets.POST("/:id/comments", handler.AddComment)
	}
}
