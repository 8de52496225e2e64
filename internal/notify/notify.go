// Package notify alerts sales agents when a lead's conversation is sealed and
// its summary has been written, and posts scheduled pipeline digests.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zulandar/leadyard/internal/config"
	"github.com/zulandar/leadyard/internal/models"
)

// Alert is the agent-facing description of a sealed lead.
type Alert struct {
	LeadID   string
	LeadName string
	Email    string
	Phone    string
	Summary  string // bullet lines, possibly empty
}

// Field is a labelled value rendered by chat platforms as a table cell.
type Field struct {
	Name  string
	Value string
}

// NewAlert builds an Alert from a lead and its rendered bullet summary.
func NewAlert(l *models.Lead, summary string) Alert {
	return Alert{
		LeadID:   l.ID,
		LeadName: l.Name,
		Email:    l.Email,
		Phone:    l.Phone,
		Summary:  summary,
	}
}

// Title is the one-line headline for the alert.
func (a Alert) Title() string {
	return fmt.Sprintf("Lead ready for follow-up: %s", a.LeadName)
}

// Text renders the alert as a single paragraph.
func (a Alert) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s", a.LeadName, a.Email)
	if a.Phone != "" {
		fmt.Fprintf(&sb, ", %s", a.Phone)
	}
	sb.WriteString(") finished qualification and was sent a summary.")
	if a.Summary != "" {
		sb.WriteString(" ")
		sb.WriteString(strings.Join(summaryParts(a.Summary), "; "))
		sb.WriteString(".")
	}
	return sb.String()
}

// Fields returns the contact details plus one field per summary bullet.
func (a Alert) Fields() []Field {
	fields := []Field{
		{Name: "Lead", Value: a.LeadID},
		{Name: "Email", Value: a.Email},
	}
	if a.Phone != "" {
		fields = append(fields, Field{Name: "Phone", Value: a.Phone})
	}
	for _, part := range summaryParts(a.Summary) {
		name, value, ok := strings.Cut(part, ": ")
		if !ok {
			continue
		}
		fields = append(fields, Field{Name: name, Value: value})
	}
	return fields
}

func summaryParts(summary string) []string {
	var parts []string
	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "•"))
		if line != "" {
			parts = append(parts, line)
		}
	}
	return parts
}

// Message is anything a chat channel can render: lead alerts and pipeline
// digests.
type Message interface {
	Title() string
	Text() string
	Fields() []Field
}

// Notifier delivers a Message to agents.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds the notifiers enabled in cfg. It returns nil when no
// channel is configured.
func FromConfig(cfg config.NotifyConfig) (Notifier, error) {
	var m Multi
	if cfg.SlackWebhookURL != "" {
		m = append(m, NewSlackWebhook(cfg.SlackWebhookURL))
	}
	if cfg.DiscordWebhookID != "" {
		d, err := NewDiscordWebhook(cfg.DiscordWebhookID, cfg.DiscordWebhookToken)
		if err != nil {
			return nil, err
		}
		m = append(m, d)
	}
	switch len(m) {
	case 0:
		return nil, nil
	case 1:
		return m[0], nil
	default:
		return m, nil
	}
}
