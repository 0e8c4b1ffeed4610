package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a requester, resolver or admin account. Authentication itself is
// handled by the JWT middleware; this table only backs assignment and
// ownership.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"unique;not null" json:"username"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Name      string         `json:"name"`
	Role      string         `gorm:"default:'requester'" json:"role"` // requester, resolver, admin
	Active    bool           `json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Tickets []Ticket `gorm:"foreignKey:RequesterID" json:"tickets,omitempty"`
}

// Queue is a shared worklist tickets get routed into, manually or by
// automation triggers.
type Queue struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"unique;not null" json:"name"`
	Description string         `json:"description"`
	Active      bool           `json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Tickets []Ticket `gorm:"foreignKey:QueueID" json:"tickets,omitempty"`
}

// Form is an admin-built intake form. Submitting one creates a ticket.
type Form struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"unique;not null" json:"name"`
	Description string         `json:"description"`
	Active      bool           `json:"active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Fields []FormField `gorm:"foreignKey:FormID" json:"fields,omitempty"`
}

// FormField is one field of a form. VisibilityJSON holds the show/hide rules
// ([{sourceFieldId,operator,value}]); OptionsJSON holds choices for
// select-like types.
type FormField struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	FormID         uint      `gorm:"index" json:"form_id"`
	Key            string    `gorm:"not null" json:"key"`
	Label          string    `gorm:"not null" json:"label"`
	Type           string    `gorm:"not null" json:"type"` // text, textarea, select, multiselect, checkbox, date
	Required       bool      `json:"required"`
	Position       int       `json:"position"`
	OptionsJSON    string    `gorm:"type:text" json:"options_json,omitempty"`
	VisibilityJSON string    `gorm:"type:text" json:"visibility_json,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Ticket is the central record. QueueID/AssignedToID/Priority/Status are the
// fields automation actions may patch after the primary write commits.
type Ticket struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Reference    string         `gorm:"uniqueIndex" json:"reference"`
	Title        string         `gorm:"not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	RequesterID  uint           `gorm:"index" json:"requester_id"`
	AssignedToID *uint          `gorm:"index" json:"assigned_to_id"`
	QueueID      *uint          `gorm:"index" json:"queue_id"`
	FormID       *uint          `gorm:"index" json:"form_id"`
	Priority     string         `gorm:"default:'medium'" json:"priority"` // low, medium, high, urgent
	Status       string         `gorm:"default:'open'" json:"status"`     // open, in_progress, resolved, closed
	ResolvedAt   *time.Time     `json:"resolved_at"`
	ClosedAt     *time.Time     `json:"closed_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Requester     User               `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	AssignedTo    *User              `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	Queue         *Queue             `gorm:"foreignKey:QueueID" json:"queue,omitempty"`
	Form          *Form              `gorm:"foreignKey:FormID" json:"form,omitempty"`
	Comments      []TicketComment    `gorm:"foreignKey:TicketID" json:"comments,omitempty"`
	StatusHistory []TicketStatus     `gorm:"foreignKey:TicketID" json:"status_history,omitempty"`
	FieldValues   []TicketFieldValue `gorm:"foreignKey:TicketID" json:"field_values,omitempty"`
}

// TicketComment is a reply or internal note on a ticket.
type TicketComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TicketID  uint      `gorm:"index" json:"ticket_id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Type      string    `gorm:"default:'comment'" json:"type"` // comment, internal_note, system
	CreatedAt time.Time `json:"created_at"`

	Ticket Ticket `gorm:"foreignKey:TicketID" json:"ticket,omitempty"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TicketStatus records one status transition for the audit trail.
type TicketStatus struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TicketID   uint      `gorm:"index" json:"ticket_id"`
	UserID     uint      `gorm:"index" json:"user_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`

	Ticket Ticket `gorm:"foreignKey:TicketID" json:"ticket,omitempty"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TicketFieldValue is one submitted form answer attached to a ticket. Multi
// marks a multi-valued answer; Value then holds a JSON string array.
type TicketFieldValue struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TicketID  uint      `gorm:"index" json:"ticket_id"`
	FieldKey  string    `gorm:"index;not null" json:"field_key"`
	Value     string    `gorm:"type:text" json:"value"`
	Multi     bool      `json:"multi"`
	CreatedAt time.Time `json:"created_at"`
}
