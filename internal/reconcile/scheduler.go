package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs periodic maintenance jobs. Overlapping runs of the same job
// are skipped.
type Scheduler struct {
	cron    *cron.Cron
	log     zerolog.Logger
	timeout time.Duration
	ctx     context.Context
}

func NewScheduler(log zerolog.Logger, timeout time.Duration) *Scheduler {
	l := cronLogger{log: log}

	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l))),
		log:     log,
		timeout: timeout,
		ctx:     context.Background(),
	}
}

// Add registers job under a standard cron spec or a descriptor such as
// "@every 1h". Must be called before Run.
func (s *Scheduler) Add(name, spec string, job func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("scheduled job failed")
			return
		}

		s.log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("scheduled job done")
	})
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", name, err)
	}

	return nil
}

// Run starts the scheduler and blocks until ctx is done and running jobs
// have returned.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()
}

type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
