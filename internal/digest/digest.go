// Package digest builds and schedules the periodic pipeline digest posted to
// agent channels.
package digest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zulandar/leadyard/internal/models"
	"github.com/zulandar/leadyard/internal/notify"
)

// Report holds lead activity for one digest period.
type Report struct {
	PeriodStart time.Time
	PeriodEnd   time.Time

	NewLeads  int
	Completed int
	Hot       int // open leads currently rated Hot
	Open      int // leads still in conversation

	// CompletedNames lists leads sealed in the period, in registration order.
	CompletedNames []string
}

// Build computes the report for [since, until). It returns nil when nothing
// happened in the period.
func Build(leads []models.Lead, since, until time.Time) *Report {
	r := &Report{PeriodStart: since, PeriodEnd: until}
	for _, l := range leads {
		if inPeriod(l.CreatedAt, since, until) {
			r.NewLeads++
		}
		if l.CompletedAt != nil && inPeriod(*l.CompletedAt, since, until) {
			r.Completed++
			r.CompletedNames = append(r.CompletedNames, l.Name)
		}
		if !l.ChatCompleted {
			r.Open++
			if l.Status == models.StatusHot {
				r.Hot++
			}
		}
	}
	if r.NewLeads == 0 && r.Completed == 0 {
		return nil
	}
	return r
}

func inPeriod(t, since, until time.Time) bool {
	return !t.Before(since) && t.Before(until)
}

// Title implements notify.Message.
func (r *Report) Title() string {
	return fmt.Sprintf("Lead digest: %d new, %d ready for follow-up", r.NewLeads, r.Completed)
}

// Text implements notify.Message.
func (r *Report) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s to %s.", r.PeriodStart.Format("Jan 2 15:04"), r.PeriodEnd.Format("Jan 2 15:04"))
	if len(r.CompletedNames) > 0 {
		fmt.Fprintf(&sb, " Ready for follow-up: %s.", strings.Join(r.CompletedNames, ", "))
	}
	return sb.String()
}

// Fields implements notify.Message.
func (r *Report) Fields() []notify.Field {
	return []notify.Field{
		{Name: "New leads", Value: strconv.Itoa(r.NewLeads)},
		{Name: "Completed", Value: strconv.Itoa(r.Completed)},
		{Name: "In conversation", Value: strconv.Itoa(r.Open)},
		{Name: "Hot", Value: strconv.Itoa(r.Hot)},
	}
}
