package models

import "time"

// SummaryEmail is the outbound summary written when a lead's conversation is
// sealed. At most one exists per lead and it is never modified.
type SummaryEmail struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	LeadID    string    `gorm:"size:36;not null;uniqueIndex" json:"lead_id"`
	LeadName  string    `gorm:"size:128" json:"lead_name"`
	Recipient string    `gorm:"size:256;not null" json:"recipient"`
	Subject   string    `gorm:"size:256" json:"subject"`
	Body      string    `gorm:"type:text" json:"body"`
	SentAt    time.Time `gorm:"index" json:"sent_at"`
}
