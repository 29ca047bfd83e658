// Package jobs runs scheduled background maintenance for the storefront.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a named unit of background work triggered by the scheduler.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

const jobTimeout = 2 * time.Minute

// Scheduler wraps robfig/cron with structured logging, per-run timeouts,
// and graceful stop.
type Scheduler struct {
	cron *cron.Cron
	lg   *zap.Logger
}

// NewScheduler builds a scheduler accepting standard five-field cron specs
// and descriptors like "@every 5m".
func NewScheduler(lg *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		lg:   lg,
	}
}

// Register binds a cron spec to a job.
func (s *Scheduler) Register(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, s.wrap(job))
	if err != nil {
		return err
	}
	s.lg.Info("job registered", zap.String("job", job.Name()), zap.String("spec", spec))
	return nil
}

// Start launches the scheduler goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and returns a context that is done once running
// jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) wrap(job Job) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := job.Run(ctx); err != nil {
			s.lg.Error("job failed",
				zap.String("job", job.Name()),
				zap.Error(err),
				zap.Duration("elapsed", time.Since(start)),
			)
			return
		}
		s.lg.Debug("job completed",
			zap.String("job", job.Name()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
