package analytics

import (
	"context"
	"testing"

	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/models"
)

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

func TestCompute_Empty(t *testing.T) {
	r := Compute(nil)
	if r.Total != 0 || r.Hot != 0 || r.Warm != 0 || r.Cold != 0 {
		t.Errorf("counts = %+v, want zero", r)
	}
	if len(r.Budget) != 3 || len(r.Timeline) != 4 {
		t.Errorf("buckets = %d/%d, want 3/4", len(r.Budget), len(r.Timeline))
	}
	if r.Actions == nil || r.Preferences == nil {
		t.Error("maps should be non-nil")
	}
}

func TestCompute_Status(t *testing.T) {
	leads := []models.Lead{
		{Status: models.StatusHot},
		{Status: models.StatusHot},
		{Status: models.StatusWarm},
		{Status: models.StatusCold},
		{Status: models.StatusSummarySent},
		{Status: ""},
	}
	r := Compute(leads)
	if r.Total != 6 || r.Hot != 2 || r.Warm != 1 || r.Cold != 3 {
		t.Errorf("total/hot/warm/cold = %d/%d/%d/%d, want 6/2/1/3", r.Total, r.Hot, r.Warm, r.Cold)
	}
}

func TestCompute_BudgetBuckets(t *testing.T) {
	tests := []struct {
		budget *float64
		want   string
	}{
		{f(120_000), BudgetUnder500K},
		{f(499_999), BudgetUnder500K},
		{f(500_000), Budget500KTo1M},
		{f(1_000_000), Budget500KTo1M},
		{f(1_000_001), BudgetOver1M},
	}
	for _, tt := range tests {
		r := Compute([]models.Lead{{Budget: tt.budget}})
		for _, b := range r.Budget {
			want := 0
			if b.Label == tt.want {
				want = 1
			}
			if b.Count != want {
				t.Errorf("budget %v: bucket %s = %d, want %d", *tt.budget, b.Label, b.Count, want)
			}
		}
	}
}

func TestCompute_SkipsUnsetAndZero(t *testing.T) {
	r := Compute([]models.Lead{{}, {Budget: f(0), TimelineMonths: f(0)}})
	for _, b := range append(r.Budget, r.Timeline...) {
		if b.Count != 0 {
			t.Errorf("bucket %s = %d, want 0", b.Label, b.Count)
		}
	}
}

func TestCompute_TimelineBuckets(t *testing.T) {
	leads := []models.Lead{
		{TimelineMonths: f(0.5)},
		{TimelineMonths: f(1)},
		{TimelineMonths: f(2)},
		{TimelineMonths: f(3)},
		{TimelineMonths: f(6)},
		{TimelineMonths: f(12)},
	}
	r := Compute(leads)
	want := map[string]int{TimelineUpTo1: 2, Timeline2To3: 2, Timeline4To6: 1, TimelineOver6: 1}
	for i, label := range []string{TimelineUpTo1, Timeline2To3, Timeline4To6, TimelineOver6} {
		if r.Timeline[i].Label != label {
			t.Errorf("Timeline[%d].Label = %q, want %q", i, r.Timeline[i].Label, label)
		}
		if r.Timeline[i].Count != want[label] {
			t.Errorf("%s = %d, want %d", label, r.Timeline[i].Count, want[label])
		}
	}
}

func TestCompute_ActionsAndPreferences(t *testing.T) {
	leads := []models.Lead{
		{RecommendedAction: s("schedule_call"), ExtraDetails: []string{"pool", "garage"}},
		{RecommendedAction: s("schedule_call"), ExtraDetails: []string{"pool"}},
		{RecommendedAction: s("nurture")},
		{RecommendedAction: s("")},
	}
	r := Compute(leads)
	if r.Actions["schedule_call"] != 2 || r.Actions["nurture"] != 1 || len(r.Actions) != 2 {
		t.Errorf("Actions = %v", r.Actions)
	}
	if r.Preferences["pool"] != 2 || r.Preferences["garage"] != 1 {
		t.Errorf("Preferences = %v", r.Preferences)
	}
}

func TestLoad(t *testing.T) {
	store := lead.NewMemoryStore()
	ctx := context.Background()
	for _, email := range []string{"a@x.io", "b@x.io"} {
		l, err := store.Register(ctx, lead.RegisterOpts{Name: "L", Email: email})
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		if err := store.UpdateFields(ctx, l.ID, map[string]any{"budget": 750000.0, "status": models.StatusWarm}); err != nil {
			t.Fatalf("UpdateFields: %v", err)
		}
	}
	r, err := Load(ctx, store)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Total != 2 || r.Warm != 2 || r.Budget[1].Count != 2 {
		t.Errorf("report = %+v", r)
	}
}
