// Package scheduler runs the snapshot recorder on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/guttosm/nsepulse/internal/snapshot"
)

// Runner is the job the scheduler triggers.
type Runner interface {
	Run(ctx context.Context, symbols []string, force bool) (snapshot.Summary, error)
}

// Scheduler triggers a snapshot run on every tick of a cron spec that falls
// on an NSE trading day.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	symbols []string
	loc     *time.Location
	timeout time.Duration
	log     zerolog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// New registers spec (standard 5-field cron, evaluated in loc). timeout
// bounds a single run; zero means no bound.
func New(spec string, loc *time.Location, runner Runner, symbols []string, timeout time.Duration, log zerolog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = snapshot.IST
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		runner:  runner,
		symbols: symbols,
		loc:     loc,
		timeout: timeout,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.tick(time.Now()) }); err != nil {
		cancel()
		return nil, fmt.Errorf("register snapshot job %q: %w", spec, err)
	}
	return s, nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("symbols", len(s.symbols)).Str("tz", s.loc.String()).Msg("scheduler started")
}

// Stop stops scheduling and waits for a running job until ctx is done, at
// which point the job's context is cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		s.log.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// Next is the time of the next scheduled tick, zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// tick runs the recorder when now is a trading day in the exchange timezone.
// It reports whether a run was attempted.
func (s *Scheduler) tick(now time.Time) bool {
	day := now.In(s.loc)
	if !snapshot.IsTradingDay(day) {
		s.log.Info().Str("date", day.Format("2006-01-02")).Msg("not a trading day, skipping snapshot run")
		return false
	}

	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	sum, err := s.runner.Run(ctx, s.symbols, false)
	if err != nil {
		s.log.Error().Err(err).Int("failed", sum.Failed).Msg("scheduled snapshot run had failures")
		return true
	}
	s.log.Info().Int("recorded", sum.Recorded).Int("skipped", sum.Skipped).Msg("scheduled snapshot run done")
	return true
}
