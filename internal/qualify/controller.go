package qualify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/leadyard/internal/generation"
	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/logging"
	"github.com/zulandar/leadyard/internal/models"
	"github.com/zulandar/leadyard/internal/notify"
	"go.uber.org/zap"
)

// DefaultClosingMessage is appended when a conversation is sealed.
const DefaultClosingMessage = "Thank you. We've emailed you a summary. An agent will contact you shortly."

// ControllerOpts configures a Controller. Store and Client are required.
type ControllerOpts struct {
	Store  lead.Repository
	Client generation.Client

	ReplyTemperature float64
	ClosingMessage   string
	Subject          string
	TeamName         string
	Notifier         notify.Notifier
	Logger           *zap.Logger
	Now              func() time.Time
}

// Controller runs buyer turns. Turns on the same lead are serialised; turns
// on different leads run independently.
type Controller struct {
	store      lead.Repository
	extractor  *Extractor
	replier    *ReplyGenerator
	judge      *Judge
	dispatcher *Dispatcher
	closing    string
	log        *zap.Logger
	now        func() time.Time
	locks      *keyedMutex
}

// NewController wires the engine components around opts.Client.
func NewController(opts ControllerOpts) (*Controller, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("qualify: store is required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("qualify: generation client is required")
	}
	c := &Controller{
		store:     opts.Store,
		extractor: NewExtractor(opts.Client),
		replier:   NewReplyGenerator(opts.Client, opts.ReplyTemperature),
		judge:     NewJudge(opts.Client),
		closing:   opts.ClosingMessage,
		log:       logging.OrNop(opts.Logger),
		now:       opts.Now,
		locks:     newKeyedMutex(),
	}
	if c.closing == "" {
		c.closing = DefaultClosingMessage
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.dispatcher = NewDispatcher(DispatcherOpts{
		Store:    opts.Store,
		Notifier: opts.Notifier,
		Subject:  opts.Subject,
		TeamName: opts.TeamName,
		Logger:   c.log,
		Now:      c.now,
	})
	return c, nil
}

// Get returns a snapshot of the lead.
func (c *Controller) Get(ctx context.Context, leadID string) (*models.Lead, error) {
	return c.store.Get(ctx, leadID)
}

// ProcessTurn appends the buyer's text, updates qualification fields, appends
// the assistant reply and, if the conversation is judged complete, records
// the summary and seals the lead. It returns the lead as stored afterwards.
//
// A lead that is already completed is returned unchanged without any model
// call, whatever the text. Model failures never fail the turn; store errors
// do. Once the buyer message is stored the turn runs to the end even if ctx
// is cancelled, so every buyer message gets its assistant reply.
func (c *Controller) ProcessTurn(ctx context.Context, leadID, text string) (*models.Lead, error) {
	unlock, err := c.locks.Lock(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("qualify: wait for lead %s: %w", leadID, err)
	}
	defer unlock()

	l, err := c.store.Get(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if l.ChatCompleted {
		return l, nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	log := c.log.With(zap.String("lead_id", leadID))

	// 1. Buyer message.
	if err := c.store.AppendMessage(ctx, leadID, c.message(models.RoleBuyer, text)); err != nil {
		return nil, err
	}
	// The rest of the turn ignores cancellation; each model call keeps its
	// own timeout.
	ctx = context.WithoutCancel(ctx)

	// 2. Extraction.
	if l, err = c.store.Get(ctx, leadID); err != nil {
		return nil, err
	}
	if upd := c.fieldsOrEmpty(ctx, log, l); !upd.Empty() {
		if err := c.store.UpdateFields(ctx, leadID, upd.Columns()); err != nil {
			return nil, err
		}
	}

	// 3. Reply.
	if l, err = c.store.Get(ctx, leadID); err != nil {
		return nil, err
	}
	reply := c.replyOrFallback(ctx, log, l)
	if err := c.store.AppendMessage(ctx, leadID, c.message(models.RoleAssistant, reply)); err != nil {
		return nil, err
	}

	// 4. Completion.
	if l, err = c.store.Get(ctx, leadID); err != nil {
		return nil, err
	}
	if c.completeOrFalse(ctx, log, l) {
		c.dispatcher.Dispatch(ctx, l)
		err := c.store.Seal(ctx, leadID, lead.SealOpts{
			CompletedAt: c.now().UTC(),
			Closing:     c.message(models.RoleAssistant, c.closing),
		})
		if err != nil && !errors.Is(err, lead.ErrAlreadySealed) {
			return nil, err
		}
		log.Info("conversation completed")
	}

	return c.store.Get(ctx, leadID)
}

func (c *Controller) message(role, text string) models.Message {
	return models.Message{Role: role, Text: text, Timestamp: c.now().UTC()}
}

// fieldsOrEmpty is the extraction degrade point.
func (c *Controller) fieldsOrEmpty(ctx context.Context, log *zap.Logger, l *models.Lead) FieldUpdate {
	upd, err := c.extractor.Extract(ctx, l)
	if err != nil {
		c.degraded(log, StageExtract, err)
		return FieldUpdate{}
	}
	return upd
}

// replyOrFallback is the reply degrade point.
func (c *Controller) replyOrFallback(ctx context.Context, log *zap.Logger, l *models.Lead) string {
	reply, err := c.replier.Reply(ctx, l)
	if err != nil {
		c.degraded(log, StageReply, err)
		return FallbackReply
	}
	return reply
}

// completeOrFalse is the completion degrade point.
func (c *Controller) completeOrFalse(ctx context.Context, log *zap.Logger, l *models.Lead) bool {
	done, err := c.judge.Complete(ctx, l)
	if err != nil {
		c.degraded(log, StageJudge, err)
		return false
	}
	return done
}

func (c *Controller) degraded(log *zap.Logger, stage Stage, err error) {
	log.Warn("model call degraded",
		zap.String("stage", string(stage)),
		zap.String("kind", string(KindOf(err))),
		zap.Error(err),
	)
}
