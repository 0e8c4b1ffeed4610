package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"queuedesk/internal/models"
	"queuedesk/internal/rules"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// FormService manages intake forms and evaluates field visibility. The
// evaluator itself lives in the rules package; this service feeds it
// materialized fields and answers.
type FormService struct {
	db      *gorm.DB
	logger  *logrus.Logger
	tickets *TicketService
}

func NewFormService(db *gorm.DB, logger *logrus.Logger, tickets *TicketService) *FormService {
	if logger == nil {
		logger = logrus.New()
	}
	return &FormService{db: db, logger: logger, tickets: tickets}
}

var fieldKeyRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// reservedFieldKeys are the base trigger context keys. A custom field with one
// of these names would collide with the ticket's own value during automation
// evaluation.
var reservedFieldKeys = map[string]bool{
	"status":               true,
	"priority":             true,
	"queue":                true,
	"form":                 true,
	rules.FieldTicketEvent: true,
}

type FormFieldRequest struct {
	Key        string            `json:"key" binding:"required"`
	Label      string            `json:"label" binding:"required"`
	Type       string            `json:"type" binding:"required"`
	Required   bool              `json:"required"`
	Options    []string          `json:"options"`
	Visibility []rules.FieldRule `json:"visibility"`
}

type FormRequest struct {
	Name        string             `json:"name" binding:"required"`
	Description string             `json:"description"`
	Active      *bool              `json:"active"`
	Fields      []FormFieldRequest `json:"fields" binding:"required,min=1"`
}

// FormSubmitRequest carries one user submission. Values maps field key to a
// string or string list answer.
type FormSubmitRequest struct {
	RequesterID uint                   `json:"requester_id" binding:"required"`
	Title       string                 `json:"title" binding:"required"`
	Description string                 `json:"description"`
	Values      map[string]interface{} `json:"values"`
}

func isAllowedFieldType(typ string) bool {
	switch typ {
	case "text", "textarea", "select", "multiselect", "checkbox", "date":
		return true
	default:
		return false
	}
}

// CreateForm validates and persists a form with its ordered fields.
func (s *FormService) CreateForm(ctx context.Context, req *FormRequest) (*models.Form, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	fields, err := buildFields(req.Fields)
	if err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	now := time.Now()
	form := &models.Form{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Active:      active,
		Fields:      fields,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if form.Name == "" {
		return nil, errors.New("name required")
	}
	if err := s.db.WithContext(ctx).Create(form).Error; err != nil {
		return nil, err
	}
	return s.GetForm(ctx, form.ID)
}

// UpdateForm replaces the whole form document, fields included. The builder
// UI always submits the full layout.
func (s *FormService) UpdateForm(ctx context.Context, id uint, req *FormRequest) (*models.Form, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	var form models.Form
	if err := s.db.WithContext(ctx).First(&form, id).Error; err != nil {
		return nil, err
	}
	fields, err := buildFields(req.Fields)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("form_id = ?", id).Delete(&models.FormField{}).Error; err != nil {
			return err
		}
		form.Name = strings.TrimSpace(req.Name)
		form.Description = req.Description
		if req.Active != nil {
			form.Active = *req.Active
		}
		form.UpdatedAt = time.Now()
		if err := tx.Save(&form).Error; err != nil {
			return err
		}
		for i := range fields {
			fields[i].FormID = id
			if err := tx.Create(&fields[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetForm(ctx, id)
}

func (s *FormService) GetForm(ctx context.Context, id uint) (*models.Form, error) {
	var form models.Form
	err := s.db.WithContext(ctx).
		Preload("Fields", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&form, id).Error
	if err != nil {
		return nil, err
	}
	return &form, nil
}

func (s *FormService) ListForms(ctx context.Context, activeOnly bool) ([]models.Form, error) {
	query := s.db.WithContext(ctx).Model(&models.Form{}).Order("id ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var forms []models.Form
	if err := query.Find(&forms).Error; err != nil {
		return nil, err
	}
	return forms, nil
}

func (s *FormService) DeleteForm(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Form{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("form not found")
	}
	return nil
}

// VisibleFields evaluates every field of the form against the given answers
// and returns the visible field keys. Shared by the preview endpoint and the
// submission path so clients and server agree on one engine.
func (s *FormService) VisibleFields(ctx context.Context, formID uint, values map[string]interface{}) ([]string, error) {
	form, err := s.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	views, err := fieldViews(form.Fields)
	if err != nil {
		return nil, err
	}
	visible := rules.VisibleFields(views, contextFromValues(values))

	// Preserve form order in the response.
	keys := make([]string, 0, len(visible))
	for _, f := range form.Fields {
		if visible[f.Key] {
			keys = append(keys, f.Key)
		}
	}
	return keys, nil
}

// Submit validates a submission and creates the ticket. Hidden fields'
// answers are dropped here, at submit time: the client keeps them in memory
// so they reappear if visibility toggles back, but they never persist.
func (s *FormService) Submit(ctx context.Context, formID uint, req *FormSubmitRequest) (*models.Ticket, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	form, err := s.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	if !form.Active {
		return nil, errors.New("form is not active")
	}
	views, err := fieldViews(form.Fields)
	if err != nil {
		return nil, err
	}
	visible := rules.VisibleFields(views, contextFromValues(req.Values))

	submitted := make(map[string]interface{}, len(req.Values))
	for _, f := range form.Fields {
		raw, ok := req.Values[f.Key]
		if !visible[f.Key] {
			continue
		}
		if f.Required && (!ok || isEmptyAnswer(raw)) {
			return nil, fmt.Errorf("field %q is required", f.Key)
		}
		if ok && !isEmptyAnswer(raw) {
			submitted[f.Key] = raw
		}
	}

	return s.tickets.CreateTicket(ctx, &TicketCreateRequest{
		Title:       req.Title,
		Description: req.Description,
		RequesterID: req.RequesterID,
		FormID:      &form.ID,
		FieldValues: submitted,
	})
}

func buildFields(reqs []FormFieldRequest) ([]models.FormField, error) {
	if len(reqs) == 0 {
		return nil, errors.New("at least one field is required")
	}
	keys := make(map[string]bool, len(reqs))
	for _, fr := range reqs {
		keys[strings.ToLower(strings.TrimSpace(fr.Key))] = true
	}

	fields := make([]models.FormField, 0, len(reqs))
	now := time.Now()
	for i, fr := range reqs {
		key := strings.ToLower(strings.TrimSpace(fr.Key))
		if !fieldKeyRe.MatchString(key) {
			return nil, fmt.Errorf("invalid field key: %s (must match %s)", key, fieldKeyRe.String())
		}
		if reservedFieldKeys[key] {
			return nil, fmt.Errorf("field key %q is reserved", key)
		}
		if !isAllowedFieldType(fr.Type) {
			return nil, fmt.Errorf("invalid field type: %s", fr.Type)
		}
		for _, rule := range fr.Visibility {
			if rule.SourceFieldID != "" && !keys[rule.SourceFieldID] {
				return nil, fmt.Errorf("field %q visibility references unknown field %q", key, rule.SourceFieldID)
			}
		}

		field := models.FormField{
			Key:       key,
			Label:     strings.TrimSpace(fr.Label),
			Type:      fr.Type,
			Required:  fr.Required,
			Position:  i,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if len(fr.Options) > 0 {
			encoded, err := json.Marshal(fr.Options)
			if err != nil {
				return nil, fmt.Errorf("invalid options for field %q: %w", key, err)
			}
			field.OptionsJSON = string(encoded)
		}
		if len(fr.Visibility) > 0 {
			encoded, err := json.Marshal(fr.Visibility)
			if err != nil {
				return nil, fmt.Errorf("invalid visibility rules for field %q: %w", key, err)
			}
			field.VisibilityJSON = string(encoded)
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func fieldViews(fields []models.FormField) ([]rules.FieldView, error) {
	views := make([]rules.FieldView, 0, len(fields))
	for _, f := range fields {
		fieldRules, err := rules.DecodeFieldRules([]byte(f.VisibilityJSON))
		if err != nil {
			return nil, fmt.Errorf("field %q has invalid visibility rules: %w", f.Key, err)
		}
		views = append(views, rules.FieldView{ID: f.Key, Rules: fieldRules})
	}
	return views, nil
}

// contextFromValues converts live form answers into the evaluator's context.
// Lists become multi values, everything else is stringified.
func contextFromValues(values map[string]interface{}) rules.Context {
	evalCtx := make(rules.Context, len(values))
	for key, raw := range values {
		switch v := raw.(type) {
		case nil:
			continue
		case string:
			evalCtx[key] = rules.String(v)
		case []string:
			evalCtx[key] = rules.Strings(v)
		case []interface{}:
			many := make([]string, 0, len(v))
			for _, e := range v {
				many = append(many, fmt.Sprintf("%v", e))
			}
			evalCtx[key] = rules.Strings(many)
		default:
			evalCtx[key] = rules.String(fmt.Sprintf("%v", v))
		}
	}
	return evalCtx
}

func isEmptyAnswer(raw interface{}) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []interface{}:
		return len(v) == 0
	default:
		return false
	}
}
