package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/leadyard/internal/generation"
	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/models"
	"github.com/zulandar/leadyard/internal/qualify"
)

// scriptedModel completes the conversation once the buyer says "that's all".
func scriptedModel() generation.Client {
	return generation.Func(func(ctx context.Context, req generation.Request) (string, error) {
		switch {
		case strings.HasPrefix(req.Prompt, "Extract structured"):
			if strings.Contains(req.Prompt, "600000") {
				return `{"budget": 600000, "location": "Austin", "property_type": "Villa", "timeline_months": 3}`, nil
			}
			return `{}`, nil
		case strings.HasPrefix(req.Prompt, "Decide if"):
			if strings.Contains(req.Prompt, "that's all") {
				return `{"chat_completed": true}`, nil
			}
			return `{"chat_completed": false}`, nil
		default:
			return "Thanks! Anything else?", nil
		}
	})
}

type testServer struct {
	router http.Handler
	store  *lead.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := lead.NewMemoryStore()
	engine, err := qualify.NewController(qualify.ControllerOpts{Store: store, Client: scriptedModel()})
	require.NoError(t, err)
	router, err := NewRouter(StartOpts{Store: store, Engine: engine})
	require.NoError(t, err)
	return &testServer{router: router, store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	}
	return w, out
}

func (s *testServer) register(t *testing.T, name, email string) string {
	t.Helper()
	w, out := s.do(t, http.MethodPost, "/api/buyers/register",
		fmt.Sprintf(`{"name":%q,"email":%q,"phone":"555-0100"}`, name, email))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return out["id"].(string)
}

// --- Construction ---

func TestNewRouter_RequiresCollaborators(t *testing.T) {
	_, err := NewRouter(StartOpts{})
	assert.ErrorContains(t, err, "store is required")
	_, err = NewRouter(StartOpts{Store: lead.NewMemoryStore()})
	assert.ErrorContains(t, err, "engine is required")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, out := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", out["status"])
}

// --- Buyers ---

func TestRegister(t *testing.T) {
	s := newTestServer(t)
	w, out := s.do(t, http.MethodPost, "/api/buyers/register", `{"name":"Ada","email":"ada@example.com"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Ada", out["name"])
	assert.Equal(t, models.StatusCold, out["status"])
	assert.Equal(t, false, out["chat_completed"])
	assert.Equal(t, 0.0, out["lead_score"])
	assert.Nil(t, out["budget"])
}

func TestRegister_Duplicate(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "Ada", "ada@example.com")
	w, out := s.do(t, http.MethodPost, "/api/buyers/register", `{"name":"Ada","email":"ada@example.com"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, out["error"], "already registered")
}

func TestRegister_BadInput(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodPost, "/api/buyers/register", `{"name":"Ada"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out := s.do(t, http.MethodPost, "/api/buyers/register", `{"name":"Ada","email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, out["error"], "invalid email")
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	id := s.register(t, "Ada", "ada@example.com")

	w, out := s.do(t, http.MethodPost, "/api/buyers/login", `{"email":"ada@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, out["lead_id"])
	assert.Equal(t, false, out["chat_completed"])

	w, out = s.do(t, http.MethodPost, "/api/buyers/login", `{"email":"nobody@example.com"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Account not found", out["error"])
}

// --- Chat ---

func TestPostMessage_FullConversation(t *testing.T) {
	s := newTestServer(t)
	id := s.register(t, "Ada", "ada@example.com")

	w, out := s.do(t, http.MethodPost, "/api/leads/"+id+"/messages", `{"message":"My budget is 600000, a Villa in Austin in 3 months"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, out["completed"])
	l := out["lead"].(map[string]any)
	assert.Equal(t, 600000.0, l["budget"])
	assert.Len(t, l["conversation"], 2)

	w, out = s.do(t, http.MethodPost, "/api/leads/"+id+"/messages", `{"message":"No more questions, that's all"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, out["completed"])
	l = out["lead"].(map[string]any)
	assert.Equal(t, models.StatusSummarySent, l["status"])
	conv := l["conversation"].([]any)
	require.Len(t, conv, 5)
	last := conv[4].(map[string]any)
	assert.Equal(t, "assistant", last["role"])
	assert.Equal(t, qualify.DefaultClosingMessage, last["message"])

	// Further messages are a no-op.
	w, out = s.do(t, http.MethodPost, "/api/leads/"+id+"/messages", `{"message":"hello?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, out["lead"].(map[string]any)["conversation"], 5)

	w, out = s.do(t, http.MethodGet, "/_debug/emails", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, out["count"])
	email := out["emails"].([]any)[0].(map[string]any)
	assert.Equal(t, "ada@example.com", email["recipient"])
	assert.Contains(t, email["body"], "• Budget: 600000")
}

func TestPostMessage_Errors(t *testing.T) {
	s := newTestServer(t)
	id := s.register(t, "Ada", "ada@example.com")

	w, _ := s.do(t, http.MethodPost, "/api/leads/"+id+"/messages", `{"message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/leads/"+id+"/messages", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, out := s.do(t, http.MethodPost, "/api/leads/missing/messages", `{"message":"hi"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Lead not found", out["error"])
}

// --- Leads ---

func TestGetLead(t *testing.T) {
	s := newTestServer(t)
	id := s.register(t, "Ada", "ada@example.com")

	w, out := s.do(t, http.MethodGet, "/api/leads/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, out["id"])

	w, _ = s.do(t, http.MethodGet, "/api/leads/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListLeads(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "A", "a@x.io")
	time.Sleep(2 * time.Millisecond)
	s.register(t, "B", "b@x.io")

	w, out := s.do(t, http.MethodGet, "/api/leads", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, out["count"])
	leads := out["leads"].([]any)
	assert.Equal(t, "B", leads[0].(map[string]any)["name"])

	w, out = s.do(t, http.MethodGet, "/api/leads?sort=oldest&limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, out["count"])
	assert.Equal(t, "A", out["leads"].([]any)[0].(map[string]any)["name"])

	w, _ = s.do(t, http.MethodGet, "/api/leads?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/leads?sort=sideways", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalytics(t *testing.T) {
	s := newTestServer(t)
	id := s.register(t, "Ada", "ada@example.com")
	require.NoError(t, s.store.UpdateFields(context.Background(), id, map[string]any{
		"budget": 750000.0, "status": models.StatusHot,
	}))

	w, out := s.do(t, http.MethodGet, "/api/analytics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, out["total"])
	assert.Equal(t, 1.0, out["hot"])
	budget := out["budget"].([]any)
	assert.Equal(t, "500k-1M", budget[1].(map[string]any)["label"])
	assert.Equal(t, 1.0, budget[1].(map[string]any)["count"])
}

// --- Errors from the store ---

type brokenStore struct {
	*lead.MemoryStore
}

func (brokenStore) ListSummaries(ctx context.Context, limit int) ([]models.SummaryEmail, error) {
	return nil, errors.New("database is locked")
}

func TestInternalErrorIsHidden(t *testing.T) {
	store := brokenStore{lead.NewMemoryStore()}
	engine, err := qualify.NewController(qualify.ControllerOpts{Store: store, Client: scriptedModel()})
	require.NoError(t, err)
	router, err := NewRouter(StartOpts{Store: store, Engine: engine})
	require.NoError(t, err)
	s := &testServer{router: router}

	w, out := s.do(t, http.MethodGet, "/_debug/emails", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", out["error"])
}

// --- Serve ---

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- serve(ctx, ln, s.router) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
