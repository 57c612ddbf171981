// Package scheduler runs recurring background jobs on cron schedules.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// jobTimeout bounds a single job run so a hung job cannot pile up behind
// itself across schedule ticks.
const jobTimeout = 10 * time.Minute

// JobFunc is one scheduled unit of work. The context is cancelled when the
// run exceeds its timeout or the scheduler shuts down.
type JobFunc func(ctx context.Context) error

// Scheduler wraps a seconds-granularity cron runner with logging and
// per-job panic recovery.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a stopped Scheduler. Schedules use the six-field cron format
// with a leading seconds field.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// AddJob registers a named job on a cron schedule. Job failures are logged,
// never fatal; the next tick runs regardless.
func (s *Scheduler) AddJob(name, spec string, job JobFunc) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		started := time.Now()
		s.log.Info().Str("job", name).Msg("job started")

		if err := job(ctx); err != nil {
			s.log.Error().Err(err).
				Str("job", name).
				Dur("elapsed", time.Since(started)).
				Msg("job failed")
			return
		}

		s.log.Info().
			Str("job", name).
			Dur("elapsed", time.Since(started)).
			Msg("job finished")
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("job", name).Str("schedule", spec).Msg("job registered")
	return nil
}

// Start launches the cron runner in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and returns a context that is done once any running
// jobs have completed.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
