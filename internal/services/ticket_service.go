package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"queuedesk/internal/models"
	"queuedesk/internal/rules"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TicketService owns the ticket lifecycle. Create and update raise the
// automation events; the automation pass runs only after the primary write
// commits, so a requester never sees automation failures.
type TicketService struct {
	db         *gorm.DB
	logger     *logrus.Logger
	automation *AutomationService
}

func NewTicketService(db *gorm.DB, logger *logrus.Logger) *TicketService {
	if logger == nil {
		logger = logrus.New()
	}
	return &TicketService{db: db, logger: logger}
}

// SetAutomationService injects the trigger executor. Optional; without it
// tickets simply skip automation.
func (s *TicketService) SetAutomationService(automation *AutomationService) {
	s.automation = automation
}

// TicketCreateRequest creates a ticket, either directly or via a form
// submission (FormID + FieldValues set by the form service).
type TicketCreateRequest struct {
	Title       string                 `json:"title" binding:"required"`
	Description string                 `json:"description"`
	RequesterID uint                   `json:"requester_id" binding:"required"`
	Priority    string                 `json:"priority"`
	QueueID     *uint                  `json:"queue_id"`
	FormID      *uint                  `json:"form_id"`
	FieldValues map[string]interface{} `json:"field_values"`
}

type TicketUpdateRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Priority     *string `json:"priority"`
	Status       *string `json:"status"`
	QueueID      *uint   `json:"queue_id"`
	AssignedToID *uint   `json:"assigned_to_id"`
}

type TicketListRequest struct {
	Page        int      `form:"page,default=1"`
	PageSize    int      `form:"page_size,default=20"`
	Status      []string `form:"status"`
	Priority    []string `form:"priority"`
	QueueID     *uint    `form:"queue_id"`
	AssignedTo  *uint    `form:"assigned_to"`
	RequesterID *uint    `form:"requester_id"`
	Search      string   `form:"search"`
	SortBy      string   `form:"sort_by,default=created_at"`
	SortOrder   string   `form:"sort_order,default=desc"`
}

// CreateTicket persists the ticket and its submitted field values, then runs
// the ticket.created automation pass against the committed record.
func (s *TicketService) CreateTicket(ctx context.Context, req *TicketCreateRequest) (*models.Ticket, error) {
	var requester models.User
	if err := s.db.WithContext(ctx).First(&requester, req.RequesterID).Error; err != nil {
		return nil, fmt.Errorf("requester not found: %w", err)
	}

	if req.Priority == "" {
		req.Priority = "medium"
	}

	ticket := &models.Ticket{
		Reference:   uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		RequesterID: req.RequesterID,
		Priority:    req.Priority,
		Status:      "open",
		QueueID:     req.QueueID,
		FormID:      req.FormID,
	}
	if err := s.db.WithContext(ctx).Create(ticket).Error; err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	if err := s.saveFieldValues(ctx, ticket.ID, req.FieldValues); err != nil {
		// Answers are secondary to the ticket itself; keep the ticket.
		s.logger.Warnf("Failed to save field values for ticket %d: %v", ticket.ID, err)
	}

	s.recordStatusChange(ctx, ticket.ID, 0, "", "open", "ticket created")
	s.logger.Infof("Created ticket %d for requester %d", ticket.ID, req.RequesterID)

	s.fireAutomation(ctx, rules.EventTicketCreated, ticket.ID)

	return s.GetTicketByID(ctx, ticket.ID)
}

// GetTicketByID loads a ticket with its associations.
func (s *TicketService) GetTicketByID(ctx context.Context, ticketID uint) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).
		Preload("Requester").
		Preload("AssignedTo").
		Preload("Queue").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Preload("User")
		}).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("FieldValues").
		First(&ticket, ticketID).Error
	if err != nil {
		return nil, fmt.Errorf("ticket not found: %w", err)
	}
	return &ticket, nil
}

// UpdateTicket applies the requested changes, then runs the ticket.updated
// automation pass against the refreshed record.
func (s *TicketService) UpdateTicket(ctx context.Context, ticketID uint, req *TicketUpdateRequest, userID uint) (*models.Ticket, error) {
	oldTicket, err := s.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.QueueID != nil {
		updates["queue_id"] = *req.QueueID
	}
	if req.AssignedToID != nil {
		updates["assigned_to_id"] = *req.AssignedToID
	}
	if req.Status != nil && *req.Status != oldTicket.Status {
		updates["status"] = *req.Status
		switch *req.Status {
		case "resolved":
			now := time.Now()
			updates["resolved_at"] = &now
		case "closed":
			now := time.Now()
			updates["closed_at"] = &now
		}
		s.recordStatusChange(ctx, ticketID, userID, oldTicket.Status, *req.Status, "status updated")
	}
	if len(updates) == 0 {
		return oldTicket, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Ticket{}).Where("id = ?", ticketID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update ticket: %w", err)
	}
	s.logger.Infof("Updated ticket %d by user %d", ticketID, userID)

	s.fireAutomation(ctx, rules.EventTicketUpdated, ticketID)

	return s.GetTicketByID(ctx, ticketID)
}

// ListTickets pages through tickets with filters and ILIKE search.
func (s *TicketService) ListTickets(ctx context.Context, req *TicketListRequest) ([]models.Ticket, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Ticket{}).
		Preload("Requester").
		Preload("AssignedTo").
		Preload("Queue")

	if len(req.Status) > 0 {
		query = query.Where("status IN ?", req.Status)
	}
	if len(req.Priority) > 0 {
		query = query.Where("priority IN ?", req.Priority)
	}
	if req.QueueID != nil {
		query = query.Where("queue_id = ?", *req.QueueID)
	}
	if req.AssignedTo != nil {
		query = query.Where("assigned_to_id = ?", *req.AssignedTo)
	}
	if req.RequesterID != nil {
		query = query.Where("requester_id = ?", *req.RequesterID)
	}
	if req.Search != "" {
		searchTerm := "%" + req.Search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tickets: %w", err)
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}
	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	sortOrder := req.SortOrder
	if sortOrder != "asc" {
		sortOrder = "desc"
	}

	var tickets []models.Ticket
	if err := query.Order(fmt.Sprintf("%s %s", sortBy, sortOrder)).
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&tickets).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, total, nil
}

// AssignTicket is the manual assign/transfer flow. The status moves to
// in_progress together with the assignee, which is also what the
// assign_resolver automation action mirrors.
func (s *TicketService) AssignTicket(ctx context.Context, ticketID, resolverID, assignerID uint) error {
	var ticket models.Ticket
	if err := s.db.WithContext(ctx).Select("id", "status", "assigned_to_id").First(&ticket, ticketID).Error; err != nil {
		return fmt.Errorf("ticket not found: %w", err)
	}
	if ticket.AssignedToID != nil && *ticket.AssignedToID == resolverID {
		return nil
	}

	var resolver models.User
	if err := s.db.WithContext(ctx).
		Where("id = ? AND role IN ? AND active = ?", resolverID, []string{"resolver", "admin"}, true).
		First(&resolver).Error; err != nil {
		return fmt.Errorf("resolver not available: %w", err)
	}

	fromStatus := ticket.Status
	toStatus := rules.StatusInProgress
	updates := map[string]interface{}{
		"assigned_to_id": resolverID,
		"status":         toStatus,
	}
	if err := s.db.WithContext(ctx).Model(&models.Ticket{}).Where("id = ?", ticketID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to assign ticket: %w", err)
	}
	s.recordStatusChange(ctx, ticketID, assignerID, fromStatus, toStatus, fmt.Sprintf("assigned to resolver %d", resolverID))
	s.logger.Infof("Assigned ticket %d to resolver %d", ticketID, resolverID)
	return nil
}

// UnassignTicket clears the assignee and reopens the ticket if it was in
// progress.
func (s *TicketService) UnassignTicket(ctx context.Context, ticketID, operatorID uint, reason string) error {
	var ticket models.Ticket
	if err := s.db.WithContext(ctx).Select("id", "status", "assigned_to_id").First(&ticket, ticketID).Error; err != nil {
		return fmt.Errorf("ticket not found: %w", err)
	}
	if ticket.AssignedToID == nil {
		return nil
	}
	if reason == "" {
		reason = "unassigned"
	}

	fromStatus := ticket.Status
	toStatus := fromStatus
	if fromStatus == rules.StatusInProgress || fromStatus == "" {
		toStatus = "open"
	}
	updates := map[string]interface{}{
		"assigned_to_id": nil,
	}
	if toStatus != fromStatus {
		updates["status"] = toStatus
	}
	if err := s.db.WithContext(ctx).Model(&models.Ticket{}).Where("id = ?", ticketID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to unassign ticket: %w", err)
	}
	s.recordStatusChange(ctx, ticketID, operatorID, fromStatus, toStatus, reason)
	return nil
}

// CloseTicket closes the ticket with a system comment.
func (s *TicketService) CloseTicket(ctx context.Context, ticketID, userID uint, reason string) error {
	ticket, err := s.GetTicketByID(ctx, ticketID)
	if err != nil {
		return err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":    "closed",
		"closed_at": &now,
	}
	if err := s.db.WithContext(ctx).Model(&models.Ticket{}).Where("id = ?", ticketID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to close ticket: %w", err)
	}

	s.recordStatusChange(ctx, ticketID, userID, ticket.Status, "closed", reason)
	if _, err := s.AddComment(ctx, ticketID, userID, fmt.Sprintf("Ticket closed. Reason: %s", reason), "system"); err != nil {
		s.logger.Warnf("Failed to add closing comment to ticket %d: %v", ticketID, err)
	}
	s.logger.Infof("Closed ticket %d by user %d", ticketID, userID)
	return nil
}

// AddComment appends a comment or internal note.
func (s *TicketService) AddComment(ctx context.Context, ticketID, userID uint, content, commentType string) (*models.TicketComment, error) {
	if commentType == "" {
		commentType = "comment"
	}
	comment := &models.TicketComment{
		TicketID: ticketID,
		UserID:   userID,
		Content:  content,
		Type:     commentType,
	}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	s.db.WithContext(ctx).Preload("User").First(comment, comment.ID)
	return comment, nil
}

// fireAutomation reloads the committed record and hands it to the executor.
// Best-effort by contract: errors never propagate to the caller.
func (s *TicketService) fireAutomation(ctx context.Context, event rules.Event, ticketID uint) {
	if s.automation == nil {
		return
	}
	var ticket models.Ticket
	if err := s.db.WithContext(ctx).First(&ticket, ticketID).Error; err != nil {
		s.logger.Warnf("Failed to load ticket %d for automation: %v", ticketID, err)
		return
	}
	s.automation.HandleTicketEvent(ctx, event, &ticket)
}

// saveFieldValues persists submitted form answers. Multi-valued answers are
// stored as a JSON string array with the Multi flag set.
func (s *TicketService) saveFieldValues(ctx context.Context, ticketID uint, values map[string]interface{}) error {
	for key, raw := range values {
		fv := models.TicketFieldValue{TicketID: ticketID, FieldKey: key}
		switch v := raw.(type) {
		case nil:
			continue
		case string:
			fv.Value = v
		case []string:
			encoded, err := json.Marshal(v)
			if err != nil {
				return err
			}
			fv.Value = string(encoded)
			fv.Multi = true
		case []interface{}:
			many := make([]string, 0, len(v))
			for _, e := range v {
				many = append(many, fmt.Sprintf("%v", e))
			}
			encoded, err := json.Marshal(many)
			if err != nil {
				return err
			}
			fv.Value = string(encoded)
			fv.Multi = true
		default:
			fv.Value = fmt.Sprintf("%v", v)
		}
		if err := s.db.WithContext(ctx).Create(&fv).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *TicketService) recordStatusChange(ctx context.Context, ticketID, userID uint, fromStatus, toStatus, reason string) {
	statusChange := &models.TicketStatus{
		TicketID:   ticketID,
		UserID:     userID,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		Reason:     reason,
	}
	if err := s.db.WithContext(ctx).Create(statusChange).Error; err != nil {
		s.logger.Errorf("Failed to record status change for ticket %d: %v", ticketID, err)
	}
}
