package qualify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/logging"
	"github.com/zulandar/leadyard/internal/models"
	"github.com/zulandar/leadyard/internal/notify"
	"go.uber.org/zap"
)

// Summary defaults.
const (
	DefaultSubject  = "Your Property Inquiry Summary – AI Estate"
	DefaultTeamName = "AI Estate Team"
)

const bodyTemplate = `Hi {{ .Name }},

Thank you for discussing your property requirements with us.

Here’s a summary:

{{ .Summary }}

An agent will contact you shortly.

{{ .TeamName }}`

var summaryBody = template.Must(template.New("summary").Parse(bodyTemplate))

// BuildSummary renders one bullet line per set field. Unset, blank and zero
// fields produce no line.
func BuildSummary(q models.Qualification) string {
	var lines []string
	if q.Location != nil && *q.Location != "" {
		lines = append(lines, "• Preferred Location: "+*q.Location)
	}
	if q.Budget != nil && *q.Budget != 0 {
		lines = append(lines, "• Budget: "+formatNumber(q.Budget))
	}
	if q.PropertyType != nil && *q.PropertyType != "" {
		lines = append(lines, "• Property Type: "+*q.PropertyType)
	}
	if q.TimelineMonths != nil && *q.TimelineMonths != 0 {
		lines = append(lines, fmt.Sprintf("• Expected Timeline: %s month(s)", formatNumber(q.TimelineMonths)))
	}
	return strings.Join(lines, "\n")
}

// RenderBody fills the summary email template.
func RenderBody(name, summary, teamName string) (string, error) {
	var buf bytes.Buffer
	err := summaryBody.Execute(&buf, struct {
		Name, Summary, TeamName string
	}{name, summary, teamName})
	if err != nil {
		return "", fmt.Errorf("qualify: render summary body: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// DispatcherOpts configures a Dispatcher.
type DispatcherOpts struct {
	Store    lead.Repository
	Notifier notify.Notifier // optional
	Subject  string
	TeamName string
	Logger   *zap.Logger
	Now      func() time.Time
}

// Dispatcher writes the one-time summary record for a completed lead and
// alerts agents.
type Dispatcher struct {
	store    lead.Repository
	notifier notify.Notifier
	subject  string
	teamName string
	log      *zap.Logger
	now      func() time.Time
}

// NewDispatcher returns a Dispatcher with defaults applied.
func NewDispatcher(opts DispatcherOpts) *Dispatcher {
	d := &Dispatcher{
		store:    opts.Store,
		notifier: opts.Notifier,
		subject:  opts.Subject,
		teamName: opts.TeamName,
		log:      logging.OrNop(opts.Logger),
		now:      opts.Now,
	}
	if d.subject == "" {
		d.subject = DefaultSubject
	}
	if d.teamName == "" {
		d.teamName = DefaultTeamName
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Dispatch builds and stores the summary and then notifies agents. It never
// fails the caller: every error, and any panic from a collaborator, is
// logged and dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, l *models.Lead) {
	log := d.log.With(zap.String("lead_id", l.ID), zap.String("stage", "dispatch"))
	defer func() {
		if r := recover(); r != nil {
			log.Error("summary dispatch panicked", zap.Any("panic", r))
		}
	}()

	summary := BuildSummary(l.Qualification())
	body, err := RenderBody(l.Name, summary, d.teamName)
	if err != nil {
		log.Error("summary dispatch failed", zap.Error(err))
		return
	}

	email := &models.SummaryEmail{
		LeadID:    l.ID,
		LeadName:  l.Name,
		Recipient: l.Email,
		Subject:   d.subject,
		Body:      body,
		SentAt:    d.now().UTC(),
	}
	if err := d.store.InsertSummary(ctx, email); err != nil {
		if errors.Is(err, lead.ErrSummaryExists) {
			log.Warn("summary already recorded", zap.Error(err))
		} else {
			log.Error("summary dispatch failed", zap.Error(err))
		}
		return
	}
	log.Info("summary recorded", zap.String("recipient", email.Recipient))

	if d.notifier == nil {
		return
	}
	if err := d.notifier.Notify(ctx, notify.NewAlert(l, summary)); err != nil {
		log.Error("agent notification failed", zap.Error(err))
	}
}
