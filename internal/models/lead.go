package models

import "time"

// Lead statuses. Cold, Warm and Hot are advisory grades; SummarySent marks a
// sealed conversation.
const (
	StatusCold        = "Cold"
	StatusWarm        = "Warm"
	StatusHot         = "Hot"
	StatusSummarySent = "Summary Sent"
)

// Lead is a prospective buyer and their qualification state. JSON names match
// column names so a column mapping can be applied to either representation.
type Lead struct {
	ID    string `gorm:"primaryKey;size:36" json:"id"`
	Name  string `gorm:"size:128;not null" json:"name"`
	Email string `gorm:"size:256;not null;uniqueIndex" json:"email"`
	Phone string `gorm:"size:32" json:"phone"`

	Budget         *float64 `json:"budget"`
	Location       *string  `gorm:"size:128" json:"location"`
	PropertyType   *string  `gorm:"size:64" json:"property_type"`
	TimelineMonths *float64 `json:"timeline_months"`

	RecommendedAction  *string    `gorm:"size:64;index" json:"recommended_action"`
	DecisionReason     *string    `gorm:"type:text" json:"decision_reason"`
	DecisionConfidence *float64   `json:"decision_confidence"`
	ExtraDetails       []string   `gorm:"serializer:json" json:"extra_details"`
	LeadScore          int        `gorm:"default:0" json:"lead_score"`
	Status             string     `gorm:"size:16;default:Cold;index" json:"status"`
	MeetingTime        *time.Time `json:"meeting_time"`

	ChatCompleted bool       `gorm:"default:false;index" json:"chat_completed"`
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Conversation []Message `gorm:"foreignKey:LeadID" json:"conversation"`
}

// Qualification returns a copy of the four extracted fields.
func (l *Lead) Qualification() Qualification {
	return Qualification{
		Budget:         l.Budget,
		Location:       l.Location,
		PropertyType:   l.PropertyType,
		TimelineMonths: l.TimelineMonths,
	}
}

// Qualification holds the fields the conversation engine extracts. A nil
// pointer means the value is unset.
type Qualification struct {
	Budget         *float64 `json:"budget,omitempty"`
	Location       *string  `json:"location,omitempty"`
	PropertyType   *string  `json:"property_type,omitempty"`
	TimelineMonths *float64 `json:"timeline_months,omitempty"`
}
