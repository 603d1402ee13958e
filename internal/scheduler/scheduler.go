// Package scheduler runs the periodic reminder checks behind 'adotime watch'.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/christopherklint97/adotime/internal/model"
	"github.com/christopherklint97/adotime/internal/notify"
	"github.com/christopherklint97/adotime/internal/timelog"
)

// Parser accepts standard 5-field cron expressions (minute, hour, dom, month, dow).
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Source is what a check reads.
type Source interface {
	Organizations(ctx context.Context) ([]model.Organization, error)
	ListDay(ctx context.Context, day time.Time, f timelog.Filter) (timelog.Day, error)
}

type Options struct {
	Schedule       string
	ExpiryWindow   time.Duration
	RemindUnlogged bool
	Now            func() time.Time
	Logger         *slog.Logger
}

type Scheduler struct {
	src      Source
	notifier notify.Notifier
	sched    cron.Schedule
	opts     Options
	logger   *slog.Logger
}

func New(src Source, notifier notify.Notifier, opts Options) (*Scheduler, error) {
	sched, err := Parser.Parse(opts.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule %q: %w", opts.Schedule, err)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{src: src, notifier: notifier, sched: sched, opts: opts, logger: logger}, nil
}

// Next returns the next time the checks fire after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.sched.Next(t)
}

// Run fires Check on the schedule until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithParser(Parser))
	c.Schedule(s.sched, cron.FuncJob(func() {
		if err := s.Check(ctx); err != nil {
			s.logger.Warn("reminder check failed", "error", err)
		}
	}))

	s.logger.Info("scheduler started", "schedule", s.opts.Schedule, "next", s.Next(s.opts.Now()).Format(time.DateTime))
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// Check warns about expiring credentials and, when enabled, about a day
// with nothing logged yet. The unlogged reminder needs at least one
// complete organization.
func (s *Scheduler) Check(ctx context.Context) error {
	now := s.opts.Now()

	orgs, err := s.src.Organizations(ctx)
	if err != nil {
		return fmt.Errorf("loading organizations: %w", err)
	}
	if n, err := notify.WarnExpiring(s.notifier, orgs, now, s.opts.ExpiryWindow); err != nil {
		return err
	} else if n > 0 {
		s.logger.Info("credential expiry reminder sent", "count", n)
	}

	if !s.opts.RemindUnlogged || !slices.ContainsFunc(orgs, model.Organization.Complete) {
		return nil
	}
	day, err := s.src.ListDay(ctx, now, timelog.Filter{})
	if err != nil {
		return fmt.Errorf("checking today's logs: %w", err)
	}
	if day.TotalMinutes > 0 {
		return nil
	}
	if err := s.notifier.Notify("adotime", "Nothing logged for "+model.FormatDay(now)+" yet."); err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	s.logger.Info("unlogged day reminder sent", "day", model.FormatDay(now))
	return nil
}
