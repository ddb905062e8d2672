// Package scheduler triggers match cycles on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is the unit of work run on each tick
type Job func(ctx context.Context) error

// Scheduler runs a single job every interval. Ticks that arrive while the
// previous run is still going are skipped.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// New registers job to run every interval. Call Start to begin ticking.
func New(interval time.Duration, job Job) (*Scheduler, error) {
	if interval < time.Second {
		return nil, fmt.Errorf("interval must be at least 1s, got %s", interval)
	}

	logger := slog.Default().With("component", "scheduler")
	cl := cronLogger{log: logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, ctx: ctx, cancel: cancel, logger: logger}

	if _, err := c.AddFunc(Spec(interval), s.wrap(job)); err != nil {
		cancel()
		return nil, fmt.Errorf("schedule job: %w", err)
	}
	return s, nil
}

// Spec converts an interval to a cron descriptor
func Spec(interval time.Duration) string {
	return fmt.Sprintf("@every %ds", int(interval/time.Second))
}

func (s *Scheduler) wrap(job Job) func() {
	return func() {
		if err := job(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("scheduled run failed", "err", err)
		}
	}
}

// Start begins ticking in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Next returns the time of the next tick, or zero before Start
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop cancels a running job and waits for it to return
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// cronLogger routes cron's own logging through slog
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append([]any{"err", err}, keysAndValues...)...)
}
