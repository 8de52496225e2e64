package lead

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"
	"github.com/zulandar/leadyard/internal/models"
)

// MemoryStore is an in-process Repository for tests and the chat command.
// Field updates are applied to the lead's JSON document as an RFC 7386
// merge patch, so a nil value removes the field just as NULL clears a column.
type MemoryStore struct {
	mu        sync.RWMutex
	leads     map[string]*models.Lead
	byEmail   map[string]string
	summaries []models.SummaryEmail
	nextID    uint
	now       func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leads:   make(map[string]*models.Lead),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (m *MemoryStore) Register(_ context.Context, opts RegisterOpts) (*models.Lead, error) {
	opts, err := normalizeRegister(opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[opts.Email]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateEmail, opts.Email)
	}
	l := newLead(uuid.NewString(), opts, m.now())
	m.leads[l.ID] = l
	m.byEmail[l.Email] = l.ID
	return cloneLead(l), nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, notFound(id)
	}
	return cloneLead(l), nil
}

func (m *MemoryStore) FindByEmail(ctx context.Context, email string) (*models.Lead, error) {
	email = normalizeEmail(email)
	m.mu.RLock()
	id, ok := m.byEmail[email]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound(email)
	}
	return m.Get(ctx, id)
}

func (m *MemoryStore) List(_ context.Context, opts ListOpts) ([]models.Lead, error) {
	m.mu.RLock()
	out := make([]models.Lead, 0, len(m.leads))
	for _, l := range m.leads {
		c := cloneLead(l)
		c.Conversation = nil
		out = append(out, *c)
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if opts.Sort == SortOldest {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MemoryStore) AppendMessage(_ context.Context, id string, msg models.Message) error {
	if err := checkMessage(msg); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return notFound(id)
	}
	m.appendLocked(l, msg)
	return nil
}

func (m *MemoryStore) appendLocked(l *models.Lead, msg models.Message) {
	m.nextID++
	msg.ID = m.nextID
	msg.LeadID = l.ID
	msg.Sequence = len(l.Conversation) + 1
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now()
	}
	l.Conversation = append(l.Conversation, msg)
}

func (m *MemoryStore) UpdateFields(_ context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := checkColumns(fields); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return notFound(id)
	}

	conversation := l.Conversation
	doc := *l
	doc.Conversation = nil
	original, err := sonic.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("lead: encode %s: %w", id, err)
	}
	patch, err := sonic.Marshal(fields)
	if err != nil {
		return fmt.Errorf("lead: encode update for %s: %w", id, err)
	}
	merged, err := jsonpatch.MergePatch(original, patch)
	if err != nil {
		return fmt.Errorf("lead: merge update for %s: %w", id, err)
	}

	var updated models.Lead
	if err := sonic.Unmarshal(merged, &updated); err != nil {
		return fmt.Errorf("lead: decode %s: %w", id, err)
	}
	updated.Conversation = conversation
	updated.UpdatedAt = m.now()
	m.leads[id] = &updated
	return nil
}

func (m *MemoryStore) Seal(_ context.Context, id string, opts SealOpts) error {
	if err := checkMessage(opts.Closing); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return notFound(id)
	}
	if l.ChatCompleted {
		return fmt.Errorf("%w: %s", ErrAlreadySealed, id)
	}

	at := opts.CompletedAt
	if at.IsZero() {
		at = m.now()
	}
	l.ChatCompleted = true
	l.CompletedAt = &at
	l.Status = models.StatusSummarySent
	l.UpdatedAt = m.now()
	m.appendLocked(l, opts.Closing)
	return nil
}

func (m *MemoryStore) InsertSummary(_ context.Context, email *models.SummaryEmail) error {
	if email == nil || email.LeadID == "" {
		return fmt.Errorf("lead: summary lead id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.summaries {
		if s.LeadID == email.LeadID {
			return fmt.Errorf("%w: %s", ErrSummaryExists, email.LeadID)
		}
	}
	if email.SentAt.IsZero() {
		email.SentAt = m.now()
	}
	m.nextID++
	email.ID = m.nextID
	m.summaries = append(m.summaries, *email)
	return nil
}

func (m *MemoryStore) ListSummaries(_ context.Context, limit int) ([]models.SummaryEmail, error) {
	if limit <= 0 {
		limit = DefaultSummaryLimit
	}
	m.mu.RLock()
	out := make([]models.SummaryEmail, len(m.summaries))
	copy(out, m.summaries)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].SentAt.After(out[j].SentAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// cloneLead copies l so callers cannot alias stored slices. Pointer fields
// are shared; stored values behind them are never mutated in place.
func cloneLead(l *models.Lead) *models.Lead {
	c := *l
	if l.ExtraDetails != nil {
		c.ExtraDetails = append([]string(nil), l.ExtraDetails...)
	}
	if l.Conversation != nil {
		c.Conversation = append([]models.Message(nil), l.Conversation...)
	}
	return &c
}
