package models

import "time"

// Conversation roles.
const (
	RoleBuyer     = "buyer"
	RoleAssistant = "assistant"
)

// Message is one utterance in a lead's conversation. Sequence is the turn
// order and is unique per lead; messages are never updated or deleted.
type Message struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	LeadID    string    `gorm:"size:36;not null;uniqueIndex:idx_lead_sequence" json:"-"`
	Sequence  int       `gorm:"not null;uniqueIndex:idx_lead_sequence" json:"-"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Text      string    `gorm:"column:message;type:text;not null" json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
