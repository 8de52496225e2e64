package qualify

import (
	"context"
	"errors"
	"strings"

	"github.com/zulandar/leadyard/internal/generation"
	"github.com/zulandar/leadyard/internal/models"
)

// FieldUpdate is a partial update to a lead's qualification fields. A nil
// pointer means the field was not mentioned and must be left untouched.
type FieldUpdate struct {
	Budget         *float64 `json:"budget"`
	Location       *string  `json:"location"`
	PropertyType   *string  `json:"property_type"`
	TimelineMonths *float64 `json:"timeline_months"`
}

// Empty reports whether the update sets no field.
func (u FieldUpdate) Empty() bool {
	return len(u.Columns()) == 0
}

// Columns maps the set fields to lead column names. Blank strings count as
// not mentioned.
func (u FieldUpdate) Columns() map[string]any {
	cols := make(map[string]any, 4)
	if u.Budget != nil {
		cols["budget"] = *u.Budget
	}
	if u.Location != nil && strings.TrimSpace(*u.Location) != "" {
		cols["location"] = strings.TrimSpace(*u.Location)
	}
	if u.PropertyType != nil && strings.TrimSpace(*u.PropertyType) != "" {
		cols["property_type"] = strings.TrimSpace(*u.PropertyType)
	}
	if u.TimelineMonths != nil {
		cols["timeline_months"] = *u.TimelineMonths
	}
	return cols
}

// Extractor derives qualification fields from a lead's conversation.
type Extractor struct {
	client generation.Client
}

// NewExtractor returns an Extractor backed by client.
func NewExtractor(client generation.Client) *Extractor {
	return &Extractor{client: client}
}

// Extract asks the model for the four qualification fields at temperature 0.
// Any failure is returned as a *Failure; the update is then zero.
func (e *Extractor) Extract(ctx context.Context, l *models.Lead) (FieldUpdate, error) {
	prompt, err := render(extractPrompt, l)
	if err != nil {
		return FieldUpdate{}, malformed(StageExtract, err)
	}
	raw, err := e.client.Generate(ctx, generation.Request{Prompt: prompt, Temperature: 0})
	if err != nil {
		return FieldUpdate{}, upstream(StageExtract, err)
	}

	var upd FieldUpdate
	if err := DecodeObject(raw, &upd); err != nil {
		return FieldUpdate{}, malformed(StageExtract, err)
	}
	if upd.Budget != nil && *upd.Budget < 0 {
		return FieldUpdate{}, malformed(StageExtract, errors.New("negative budget"))
	}
	if upd.TimelineMonths != nil && *upd.TimelineMonths < 0 {
		return FieldUpdate{}, malformed(StageExtract, errors.New("negative timeline"))
	}
	return upd, nil
}
