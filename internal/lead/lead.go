// Package lead is the lead record store: registration, lookup, append-only
// conversation history, field updates and summary records.
package lead

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/zulandar/leadyard/internal/models"
)

var (
	// ErrNotFound is returned when no lead matches the given id or email.
	ErrNotFound = errors.New("lead: not found")
	// ErrDuplicateEmail is returned by Register when the email is taken.
	ErrDuplicateEmail = errors.New("lead: email already registered")
	// ErrSummaryExists is returned when a lead already has a summary record.
	ErrSummaryExists = errors.New("lead: summary already exists")
	// ErrAlreadySealed is returned by Seal when the conversation is complete.
	ErrAlreadySealed = errors.New("lead: conversation already completed")
)

// ValidationError reports unusable registration input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "lead: " + e.Msg }

// Sort orders for List.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
)

// DefaultSummaryLimit is used by ListSummaries when limit <= 0.
const DefaultSummaryLimit = 50

// RegisterOpts holds parameters for registering a new lead.
type RegisterOpts struct {
	Name  string
	Email string
	Phone string
}

// ListOpts holds optional parameters for listing leads.
type ListOpts struct {
	Sort  string // SortNewest (default) or SortOldest, by creation time
	Limit int    // <= 0 means no limit
}

// SealOpts describes the completion transition of a conversation.
type SealOpts struct {
	CompletedAt time.Time
	Closing     models.Message
}

// Repository is the set of record operations the rest of Leadyard uses.
// Reads return snapshots; callers never hold a live reference to a record.
type Repository interface {
	Register(ctx context.Context, opts RegisterOpts) (*models.Lead, error)
	Get(ctx context.Context, id string) (*models.Lead, error)
	FindByEmail(ctx context.Context, email string) (*models.Lead, error)
	List(ctx context.Context, opts ListOpts) ([]models.Lead, error)

	AppendMessage(ctx context.Context, id string, msg models.Message) error
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
	Seal(ctx context.Context, id string, opts SealOpts) error

	InsertSummary(ctx context.Context, email *models.SummaryEmail) error
	ListSummaries(ctx context.Context, limit int) ([]models.SummaryEmail, error)
}

// updatableColumns are the lead columns UpdateFields may write.
var updatableColumns = map[string]bool{
	"budget":              true,
	"location":            true,
	"property_type":       true,
	"timeline_months":     true,
	"recommended_action":  true,
	"decision_reason":     true,
	"decision_confidence": true,
	"lead_score":          true,
	"status":              true,
	"meeting_time":        true,
}

// checkColumns rejects any column outside updatableColumns.
func checkColumns(fields map[string]any) error {
	for k := range fields {
		if !updatableColumns[k] {
			return fmt.Errorf("lead: field %q is not updatable", k)
		}
	}
	return nil
}

// normalizeRegister trims input and validates required fields.
func normalizeRegister(opts RegisterOpts) (RegisterOpts, error) {
	opts.Name = strings.TrimSpace(opts.Name)
	opts.Email = normalizeEmail(opts.Email)
	opts.Phone = strings.TrimSpace(opts.Phone)

	if opts.Name == "" {
		return opts, &ValidationError{Msg: "name is required"}
	}
	if opts.Email == "" {
		return opts, &ValidationError{Msg: "email is required"}
	}
	if _, err := mail.ParseAddress(opts.Email); err != nil {
		return opts, &ValidationError{Msg: fmt.Sprintf("invalid email %q", opts.Email)}
	}
	return opts, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// checkMessage validates a message before it is appended.
func checkMessage(msg models.Message) error {
	switch msg.Role {
	case models.RoleBuyer, models.RoleAssistant:
	default:
		return fmt.Errorf("lead: invalid message role %q", msg.Role)
	}
	return nil
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}

func newLead(id string, opts RegisterOpts, now time.Time) *models.Lead {
	return &models.Lead{
		ID:           id,
		Name:         opts.Name,
		Email:        opts.Email,
		Phone:        opts.Phone,
		ExtraDetails: []string{},
		LeadScore:    0,
		Status:       models.StatusCold,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

var (
	_ Repository = (*GormStore)(nil)
	_ Repository = (*MemoryStore)(nil)
)
