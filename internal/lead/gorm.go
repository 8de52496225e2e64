package lead

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/leadyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is a Repository backed by a gorm database (sqlite or mysql).
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore returns a store over db. The schema must already be migrated.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("lead: db is required")
	}
	return &GormStore{db: db, now: time.Now}, nil
}

// Register creates a new lead with default qualification state.
func (s *GormStore) Register(ctx context.Context, opts RegisterOpts) (*models.Lead, error) {
	opts, err := normalizeRegister(opts)
	if err != nil {
		return nil, err
	}

	l := newLead(uuid.NewString(), opts, s.now())
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Lead{}).Where("email = ?", opts.Email).Count(&count).Error; err != nil {
			return fmt.Errorf("lead: check email: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateEmail, opts.Email)
		}
		if err := tx.Create(l).Error; err != nil {
			return fmt.Errorf("lead: create: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Get returns the lead with its conversation in sequence order.
func (s *GormStore) Get(ctx context.Context, id string) (*models.Lead, error) {
	var l models.Lead
	err := s.db.WithContext(ctx).
		Preload("Conversation", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence ASC")
		}).
		Where("id = ?", id).
		First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("lead: get %s: %w", id, err)
	}
	return &l, nil
}

// FindByEmail looks a lead up by its registration email.
func (s *GormStore) FindByEmail(ctx context.Context, email string) (*models.Lead, error) {
	email = normalizeEmail(email)
	var l models.Lead
	err := s.db.WithContext(ctx).Select("id").Where("email = ?", email).First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(email)
		}
		return nil, fmt.Errorf("lead: find %s: %w", email, err)
	}
	return s.Get(ctx, l.ID)
}

// List returns leads without their conversations, ordered by creation time.
func (s *GormStore) List(ctx context.Context, opts ListOpts) ([]models.Lead, error) {
	order := "created_at DESC"
	if opts.Sort == SortOldest {
		order = "created_at ASC"
	}
	q := s.db.WithContext(ctx).Order(order)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	var leads []models.Lead
	if err := q.Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("lead: list: %w", err)
	}
	return leads, nil
}

// AppendMessage adds msg to the end of the lead's conversation.
func (s *GormStore) AppendMessage(ctx context.Context, id string, msg models.Message) error {
	if err := checkMessage(msg); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, id); err != nil {
			return err
		}
		return s.appendTx(tx, id, msg)
	})
}

// appendTx assigns the next sequence number and inserts msg.
func (s *GormStore) appendTx(tx *gorm.DB, id string, msg models.Message) error {
	var last int
	err := tx.Model(&models.Message{}).
		Where("lead_id = ?", id).
		Select("COALESCE(MAX(sequence), 0)").
		Scan(&last).Error
	if err != nil {
		return fmt.Errorf("lead: next sequence for %s: %w", id, err)
	}

	msg.ID = 0
	msg.LeadID = id
	msg.Sequence = last + 1
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	if err := tx.Create(&msg).Error; err != nil {
		return fmt.Errorf("lead: append message to %s: %w", id, err)
	}
	return nil
}

// UpdateFields writes the given columns. Keys are column names; a nil value
// clears the column.
func (s *GormStore) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := checkColumns(fields); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, id); err != nil {
			return err
		}
		updates := make(map[string]any, len(fields)+1)
		for k, v := range fields {
			updates[k] = v
		}
		updates["updated_at"] = s.now()
		if err := tx.Model(&models.Lead{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("lead: update %s: %w", id, err)
		}
		return nil
	})
}

// Seal marks the conversation complete, sets the Summary Sent status and
// appends the closing message, all in one transaction.
func (s *GormStore) Seal(ctx context.Context, id string, opts SealOpts) error {
	if err := checkMessage(opts.Closing); err != nil {
		return err
	}
	at := opts.CompletedAt
	if at.IsZero() {
		at = s.now()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Lead{}).
			Where("id = ? AND chat_completed = ?", id, false).
			Updates(map[string]any{
				"chat_completed": true,
				"completed_at":   at,
				"status":         models.StatusSummarySent,
				"updated_at":     s.now(),
			})
		if res.Error != nil {
			return fmt.Errorf("lead: seal %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			if err := mustExist(tx, id); err != nil {
				return err
			}
			return fmt.Errorf("%w: %s", ErrAlreadySealed, id)
		}
		return s.appendTx(tx, id, opts.Closing)
	})
}

// InsertSummary records the summary for a lead. A lead has at most one.
func (s *GormStore) InsertSummary(ctx context.Context, email *models.SummaryEmail) error {
	if email == nil || email.LeadID == "" {
		return fmt.Errorf("lead: summary lead id is required")
	}
	if email.SentAt.IsZero() {
		email.SentAt = s.now()
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "lead_id"}}, DoNothing: true}).
		Create(email)
	if res.Error != nil {
		return fmt.Errorf("lead: insert summary for %s: %w", email.LeadID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrSummaryExists, email.LeadID)
	}
	return nil
}

// ListSummaries returns summaries newest first.
func (s *GormStore) ListSummaries(ctx context.Context, limit int) ([]models.SummaryEmail, error) {
	if limit <= 0 {
		limit = DefaultSummaryLimit
	}
	var out []models.SummaryEmail
	err := s.db.WithContext(ctx).Order("sent_at DESC").Order("id DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("lead: list summaries: %w", err)
	}
	return out, nil
}

func mustExist(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&models.Lead{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("lead: lookup %s: %w", id, err)
	}
	if count == 0 {
		return notFound(id)
	}
	return nil
}
