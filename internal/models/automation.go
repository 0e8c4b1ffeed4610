package models

import "time"

// Trigger is a persisted automation rule. Conditions and Actions are stored
// as JSON text and decoded on every evaluation pass; a whole-document
// replace on edit keeps the columns free of partial updates. Event is a
// cached projection of the conditions (see rules.InferEvent), recomputed on
// every save and never written directly.
type Trigger struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"unique;not null" json:"name"`
	Description string    `json:"description"`
	Event       string    `gorm:"not null;index" json:"event"`  // ticket.created, ticket.updated, ticket.any
	Conditions  string    `gorm:"type:text" json:"conditions"`  // JSON: {"all":[...],"any":[...]}; legacy bare array accepted on read
	Actions     string    `gorm:"type:text" json:"actions"`     // JSON: [{"type":"assign_queue","value":"8"}]
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AutomationRun is the audit record for one trigger execution against one
// ticket.
type AutomationRun struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TriggerID uint      `gorm:"index" json:"trigger_id"`
	TicketID  uint      `gorm:"index" json:"ticket_id"`
	Event     string    `json:"event"`
	Status    string    `gorm:"index" json:"status"` // success, failed
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `json:"created_at"`

	Trigger Trigger `gorm:"foreignKey:TriggerID" json:"trigger,omitempty"`
}
