package qualify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zulandar/leadyard/internal/generation"
	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var errUnavailable = errors.New("connection refused")

type stubCall struct {
	stage Stage
	req   generation.Request
}

// stubModel answers each prompt kind with a scripted function and records
// every call.
type stubModel struct {
	mu      sync.Mutex
	calls   []stubCall
	extract func(prompt string) (string, error)
	reply   func(prompt string) (string, error)
	judge   func(prompt string) (string, error)
}

func newStubModel() *stubModel {
	return &stubModel{
		extract: func(string) (string, error) { return `{}`, nil },
		reply:   func(string) (string, error) { return "What budget do you have in mind?", nil },
		judge:   func(string) (string, error) { return `{"chat_completed": false}`, nil },
	}
}

// failingModel fails every call.
func failingModel() *stubModel {
	fail := func(string) (string, error) { return "", errUnavailable }
	return &stubModel{extract: fail, reply: fail, judge: fail}
}

func (s *stubModel) Generate(ctx context.Context, req generation.Request) (string, error) {
	var (
		stage Stage
		fn    func(string) (string, error)
	)
	switch {
	case strings.HasPrefix(req.Prompt, "Extract structured"):
		stage, fn = StageExtract, s.extract
	case strings.HasPrefix(req.Prompt, "Decide if"):
		stage, fn = StageJudge, s.judge
	default:
		stage, fn = StageReply, s.reply
	}
	s.mu.Lock()
	s.calls = append(s.calls, stubCall{stage: stage, req: req})
	s.mu.Unlock()
	return fn(req.Prompt)
}

func (s *stubModel) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubModel) callsFor(stage Stage) []stubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []stubCall
	for _, c := range s.calls {
		if c.stage == stage {
			out = append(out, c)
		}
	}
	return out
}

func reply(text string) func(string) (string, error) {
	return func(string) (string, error) { return text, nil }
}

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func registerLead(t *testing.T, store lead.Repository) *models.Lead {
	t.Helper()
	l, err := store.Register(context.Background(), lead.RegisterOpts{
		Name:  "Ada Buyer",
		Email: "ada@example.com",
		Phone: "555-0100",
	})
	require.NoError(t, err)
	return l
}

func newTestController(t *testing.T, store lead.Repository, model generation.Client, opts ...func(*ControllerOpts)) *Controller {
	t.Helper()
	o := ControllerOpts{Store: store, Client: model}
	for _, fn := range opts {
		fn(&o)
	}
	c, err := NewController(o)
	require.NoError(t, err)
	return c
}

func leadWith(budget float64, location, propertyType string, timeline float64) *models.Lead {
	return &models.Lead{
		ID:             "lead-1",
		Name:           "Ada Buyer",
		Email:          "ada@example.com",
		Budget:         &budget,
		Location:       &location,
		PropertyType:   &propertyType,
		TimelineMonths: &timeline,
	}
}

// failingSummaryStore rejects summary inserts.
type failingSummaryStore struct {
	lead.Repository
	err error
}

func (f *failingSummaryStore) InsertSummary(ctx context.Context, email *models.SummaryEmail) error {
	return f.err
}
