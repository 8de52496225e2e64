// Package analytics aggregates the lead set into the counts shown on the
// agent analytics page.
package analytics

import (
	"context"
	"fmt"

	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/models"
)

// Bucket labels, in display order.
const (
	BudgetUnder500K = "<500k"
	Budget500KTo1M  = "500k-1M"
	BudgetOver1M    = ">1M"

	TimelineUpTo1 = "≤1 Month"
	Timeline2To3  = "2-3 Months"
	Timeline4To6  = "4-6 Months"
	TimelineOver6 = ">6 Months"
)

// Bucket is a labelled count.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Report is the aggregate view over every lead.
type Report struct {
	Total int `json:"total"`
	Hot   int `json:"hot"`
	Warm  int `json:"warm"`
	Cold  int `json:"cold"`

	Budget      []Bucket       `json:"budget"`
	Timeline    []Bucket       `json:"timeline"`
	Actions     map[string]int `json:"actions"`
	Preferences map[string]int `json:"preferences"`
}

// Compute builds a Report. Leads whose status is neither Hot nor Warm count
// as Cold. Unset or zero budgets and timelines are left out of their
// buckets.
func Compute(leads []models.Lead) Report {
	r := Report{
		Total:       len(leads),
		Budget:      []Bucket{{Label: BudgetUnder500K}, {Label: Budget500KTo1M}, {Label: BudgetOver1M}},
		Timeline:    []Bucket{{Label: TimelineUpTo1}, {Label: Timeline2To3}, {Label: Timeline4To6}, {Label: TimelineOver6}},
		Actions:     make(map[string]int),
		Preferences: make(map[string]int),
	}

	for _, l := range leads {
		switch l.Status {
		case models.StatusHot:
			r.Hot++
		case models.StatusWarm:
			r.Warm++
		default:
			r.Cold++
		}

		if l.Budget != nil && *l.Budget != 0 {
			r.Budget[budgetIndex(*l.Budget)].Count++
		}
		if l.TimelineMonths != nil && *l.TimelineMonths != 0 {
			r.Timeline[timelineIndex(*l.TimelineMonths)].Count++
		}
		if l.RecommendedAction != nil && *l.RecommendedAction != "" {
			r.Actions[*l.RecommendedAction]++
		}
		for _, pref := range l.ExtraDetails {
			r.Preferences[pref]++
		}
	}
	return r
}

func budgetIndex(b float64) int {
	switch {
	case b < 500_000:
		return 0
	case b <= 1_000_000:
		return 1
	default:
		return 2
	}
}

func timelineIndex(months float64) int {
	switch {
	case months <= 1:
		return 0
	case months <= 3:
		return 1
	case months <= 6:
		return 2
	default:
		return 3
	}
}

// Load reads every lead from store and computes the Report.
func Load(ctx context.Context, store lead.Repository) (Report, error) {
	leads, err := store.List(ctx, lead.ListOpts{})
	if err != nil {
		return Report{}, fmt.Errorf("analytics: %w", err)
	}
	return Compute(leads), nil
}
