package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"queuedesk/internal/metrics"
	"queuedesk/internal/models"
	"queuedesk/internal/rules"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AutomationService owns trigger storage and trigger execution. Execution is
// strictly best-effort: the ticket write that raised the event has already
// committed, and nothing that happens here may surface to the requester.
type AutomationService struct {
	db          *gorm.DB
	logger      *logrus.Logger
	evalTimeout time.Duration
	maxTriggers int
}

func NewAutomationService(db *gorm.DB, logger *logrus.Logger) *AutomationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &AutomationService{
		db:          db,
		logger:      logger,
		evalTimeout: 5 * time.Second,
		maxTriggers: 500,
	}
}

// SetLimits overrides the evaluation timeout and trigger cap from config.
func (s *AutomationService) SetLimits(evalTimeout time.Duration, maxTriggers int) {
	if evalTimeout > 0 {
		s.evalTimeout = evalTimeout
	}
	if maxTriggers > 0 {
		s.maxTriggers = maxTriggers
	}
}

// TriggerRequest is the create/update payload. Event is absent on purpose:
// it is always derived from the conditions at save time.
type TriggerRequest struct {
	Name        string         `json:"name" binding:"required"`
	Description string         `json:"description"`
	Conditions  rules.Group    `json:"conditions"`
	Actions     []rules.Action `json:"actions"`
	Active      *bool          `json:"active"`
}

// HandleTicketEvent runs every matching active trigger against the ticket
// and commits the folded action patch in a single update. Call only after
// the primary ticket write has durably committed.
func (s *AutomationService) HandleTicketEvent(ctx context.Context, event rules.Event, ticket *models.Ticket) {
	if s.db == nil || ticket == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.evalTimeout)
	defer cancel()

	var triggers []models.Trigger
	if err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Limit(s.maxTriggers).
		Find(&triggers).Error; err != nil {
		s.logger.Warnf("automation: load triggers failed: %v", err)
		return
	}
	if len(triggers) == 0 {
		return
	}

	evalCtx := s.buildContext(ctx, event, ticket)

	var patch rules.Patch
	var matched []models.Trigger
	for _, trig := range triggers {
		if !rules.Event(trig.Event).Matches(event) {
			continue
		}
		group, err := rules.DecodeGroup([]byte(trig.Conditions))
		if err != nil {
			s.logger.Warnf("automation: trigger %q has invalid conditions, skipping: %v", trig.Name, err)
			s.recordRun(ctx, trig.ID, ticket.ID, event, "failed", "invalid conditions: "+err.Error())
			continue
		}
		if !group.Evaluate(evalCtx) {
			continue
		}
		actions, err := rules.DecodeActions([]byte(trig.Actions))
		if err != nil {
			s.logger.Warnf("automation: trigger %q has invalid actions, skipping: %v", trig.Name, err)
			s.recordRun(ctx, trig.ID, ticket.ID, event, "failed", "invalid actions: "+err.Error())
			continue
		}
		for _, applyErr := range patch.Apply(actions) {
			s.logger.Warnf("automation: trigger %q action skipped: %v", trig.Name, applyErr)
		}
		matched = append(matched, trig)
	}
	if len(matched) == 0 {
		return
	}

	if patch.Zero() {
		for _, trig := range matched {
			s.recordRun(ctx, trig.ID, ticket.ID, event, "success", "no effect")
		}
		return
	}

	if err := s.commitPatch(ctx, ticket.ID, patch); err != nil {
		s.logger.Warnf("automation: apply actions to ticket %d failed: %v", ticket.ID, err)
		for _, trig := range matched {
			s.recordRun(ctx, trig.ID, ticket.ID, event, "failed", err.Error())
		}
		metrics.IncAutomationRun("failed")
		return
	}
	for _, trig := range matched {
		s.logger.Infof("automation: trigger %q applied to ticket %d on %s", trig.Name, ticket.ID, event)
		s.recordRun(ctx, trig.ID, ticket.ID, event, "success", "")
	}
	metrics.IncAutomationRun("success")
}

// buildContext snapshots the ticket's current field values plus the
// synthetic ticket_event key. The full record is used rather than a
// changed-fields delta, so update triggers see the post-write state.
func (s *AutomationService) buildContext(ctx context.Context, event rules.Event, ticket *models.Ticket) rules.Context {
	evalCtx := rules.Context{}

	// Custom field values first. Base keys are written afterwards so the
	// ticket's own status/priority/queue/form can never be shadowed by a
	// field that happens to share a base key name.
	var values []models.TicketFieldValue
	if err := s.db.WithContext(ctx).Where("ticket_id = ?", ticket.ID).Find(&values).Error; err != nil {
		s.logger.Warnf("automation: load field values for ticket %d failed: %v", ticket.ID, err)
	} else {
		for _, fv := range values {
			if fv.Multi {
				var many []string
				if err := json.Unmarshal([]byte(fv.Value), &many); err != nil {
					s.logger.Warnf("automation: malformed multi value for field %q on ticket %d", fv.FieldKey, ticket.ID)
					continue
				}
				evalCtx[fv.FieldKey] = rules.Strings(many)
				continue
			}
			evalCtx[fv.FieldKey] = rules.String(fv.Value)
		}
	}

	evalCtx[rules.FieldTicketEvent] = rules.String(event.ContextValue())
	evalCtx["status"] = rules.String(ticket.Status)
	evalCtx["priority"] = rules.String(ticket.Priority)
	if ticket.QueueID != nil {
		evalCtx["queue"] = rules.String(strconv.FormatUint(uint64(*ticket.QueueID), 10))
	}
	if ticket.FormID != nil {
		evalCtx["form"] = rules.String(strconv.FormatUint(uint64(*ticket.FormID), 10))
	}
	return evalCtx
}

// commitPatch validates the patch targets and writes all changed columns in
// one update, so partially-applied action sets are never visible. A stale
// target (e.g. a queue deleted after the trigger was built) fails the whole
// patch; the caller logs and records it.
func (s *AutomationService) commitPatch(ctx context.Context, ticketID uint, patch rules.Patch) error {
	updates := map[string]interface{}{}
	if patch.QueueID != nil {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Queue{}).Where("id = ?", *patch.QueueID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("queue %d not found", *patch.QueueID)
		}
		updates["queue_id"] = *patch.QueueID
	}
	if patch.AssignedToID != nil {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", *patch.AssignedToID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("resolver %d not found", *patch.AssignedToID)
		}
		updates["assigned_to_id"] = *patch.AssignedToID
	}
	if patch.Priority != nil {
		updates["priority"] = *patch.Priority
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	return s.db.WithContext(ctx).Model(&models.Ticket{}).Where("id = ?", ticketID).Updates(updates).Error
}

func (s *AutomationService) recordRun(ctx context.Context, triggerID, ticketID uint, event rules.Event, status, message string) {
	run := &models.AutomationRun{
		TriggerID: triggerID,
		TicketID:  ticketID,
		Event:     string(event),
		Status:    status,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		s.logger.Warnf("automation: record run failed: %v", err)
	}
}

// ListTriggers returns all triggers, newest first.
func (s *AutomationService) ListTriggers(ctx context.Context) ([]models.Trigger, error) {
	var triggers []models.Trigger
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&triggers).Error; err != nil {
		return nil, err
	}
	return triggers, nil
}

func (s *AutomationService) GetTrigger(ctx context.Context, id uint) (*models.Trigger, error) {
	var trigger models.Trigger
	if err := s.db.WithContext(ctx).First(&trigger, id).Error; err != nil {
		return nil, err
	}
	return &trigger, nil
}

// CreateTrigger validates and persists a new trigger. The event column is
// derived from the conditions, never taken from the caller.
func (s *AutomationService) CreateTrigger(ctx context.Context, req *TriggerRequest) (*models.Trigger, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	condJSON, actJSON, event, err := encodeTrigger(req)
	if err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now()
	trigger := &models.Trigger{
		Name:        req.Name,
		Description: req.Description,
		Event:       string(event),
		Conditions:  string(condJSON),
		Actions:     string(actJSON),
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(trigger).Error; err != nil {
		return nil, err
	}
	return trigger, nil
}

// UpdateTrigger replaces the whole trigger document and re-derives the event
// column. There is no partial update; the builder always submits the full
// rule.
func (s *AutomationService) UpdateTrigger(ctx context.Context, id uint, req *TriggerRequest) (*models.Trigger, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	var trigger models.Trigger
	if err := s.db.WithContext(ctx).First(&trigger, id).Error; err != nil {
		return nil, err
	}
	condJSON, actJSON, event, err := encodeTrigger(req)
	if err != nil {
		return nil, err
	}

	trigger.Name = req.Name
	trigger.Description = req.Description
	trigger.Event = string(event)
	trigger.Conditions = string(condJSON)
	trigger.Actions = string(actJSON)
	if req.Active != nil {
		trigger.Active = *req.Active
	}
	trigger.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(&trigger).Error; err != nil {
		return nil, err
	}
	return &trigger, nil
}

func (s *AutomationService) DeleteTrigger(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Trigger{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("trigger not found")
	}
	return nil
}

// encodeTrigger validates a request and returns the serialized columns plus
// the derived event.
func encodeTrigger(req *TriggerRequest) (condJSON, actJSON []byte, event rules.Event, err error) {
	group := req.Conditions.Normalize()
	if group.Empty() {
		return nil, nil, "", errors.New("at least one condition is required")
	}
	for _, a := range req.Actions {
		if !rules.KnownActionKind(a.Type) {
			return nil, nil, "", fmt.Errorf("unknown action type: %s", a.Type)
		}
		if a.Value == "" {
			return nil, nil, "", fmt.Errorf("action %s requires a value", a.Type)
		}
	}

	condJSON, err = rules.EncodeGroup(group)
	if err != nil {
		return nil, nil, "", fmt.Errorf("invalid conditions: %w", err)
	}
	actJSON, err = rules.EncodeActions(req.Actions)
	if err != nil {
		return nil, nil, "", fmt.Errorf("invalid actions: %w", err)
	}
	return condJSON, actJSON, rules.InferEvent(group.All, group.Any), nil
}

// AutomationRunListRequest filters the execution audit log.
type AutomationRunListRequest struct {
	Page      int    `form:"page,default=1"`
	PageSize  int    `form:"page_size,default=20"`
	TriggerID uint   `form:"trigger_id"`
	TicketID  uint   `form:"ticket_id"`
	Status    string `form:"status"`
}

// ListRuns pages through the execution audit log, newest first.
func (s *AutomationService) ListRuns(ctx context.Context, req *AutomationRunListRequest) ([]models.AutomationRun, int64, error) {
	if req == nil {
		return nil, 0, errors.New("request required")
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.AutomationRun{})
	if req.TriggerID != 0 {
		query = query.Where("trigger_id = ?", req.TriggerID)
	}
	if req.TicketID != 0 {
		query = query.Where("ticket_id = ?", req.TicketID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var runs []models.AutomationRun
	if err := query.Order("id DESC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&runs).Error; err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}
