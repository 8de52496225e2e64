package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/leadyard/internal/config"
	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/logging"
	"github.com/zulandar/leadyard/internal/notify"
	"go.uber.org/zap"
)

// SchedulerOpts configures a Scheduler. Store, Notifier and Cron are required.
type SchedulerOpts struct {
	Store    lead.Repository
	Notifier notify.Notifier
	Cron     string
	Window   time.Duration // default 24h
	Logger   *zap.Logger
	Now      func() time.Time
}

// Scheduler posts a digest to the notifier on a cron schedule.
type Scheduler struct {
	store    lead.Repository
	notifier notify.Notifier
	schedule cron.Schedule
	window   time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewScheduler parses opts.Cron and returns a Scheduler.
func NewScheduler(opts SchedulerOpts) (*Scheduler, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("digest: store is required")
	}
	if opts.Notifier == nil {
		return nil, fmt.Errorf("digest: notifier is required")
	}
	sched, err := config.CronParser.Parse(opts.Cron)
	if err != nil {
		return nil, fmt.Errorf("digest: schedule %q: %w", opts.Cron, err)
	}
	s := &Scheduler{
		store:    opts.Store,
		notifier: opts.Notifier,
		schedule: sched,
		window:   opts.Window,
		log:      logging.OrNop(opts.Logger),
		now:      opts.Now,
	}
	if s.window <= 0 {
		s.window = 24 * time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Next returns the next fire time after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run fires the digest on schedule until ctx is cancelled. Failed digests
// are logged and the schedule continues.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(s.delay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			if _, err := s.Fire(ctx); err != nil {
				s.log.Error("digest failed", zap.Error(err))
			}
			timer.Reset(s.delay())
		}
	}
}

func (s *Scheduler) delay() time.Duration {
	now := s.now()
	if d := s.schedule.Next(now).Sub(now); d > 0 {
		return d
	}
	return time.Second
}

// Fire builds the digest for the window ending now and posts it. It returns
// nil with no error when there was no activity to report.
func (s *Scheduler) Fire(ctx context.Context) (*Report, error) {
	report, err := Load(ctx, s.store, s.now(), s.window)
	if err != nil {
		return nil, err
	}
	if report == nil {
		s.log.Debug("digest suppressed, no activity")
		return nil, nil
	}
	if err := s.notifier.Notify(ctx, report); err != nil {
		return report, fmt.Errorf("digest: notify: %w", err)
	}
	s.log.Info("digest posted",
		zap.Int("new_leads", report.NewLeads),
		zap.Int("completed", report.Completed))
	return report, nil
}

// Load builds the report for the window ending at until.
func Load(ctx context.Context, store lead.Repository, until time.Time, window time.Duration) (*Report, error) {
	leads, err := store.List(ctx, lead.ListOpts{Sort: lead.SortOldest})
	if err != nil {
		return nil, fmt.Errorf("digest: list leads: %w", err)
	}
	return Build(leads, until.Add(-window), until), nil
}
