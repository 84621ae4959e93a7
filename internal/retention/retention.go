// Package retention purges cached postings that stopped showing up in searches
// and that no match references. Sessions and matches are never touched.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultSchedule = "@every 1h"

type Purger interface {
	PurgeStalePostings(ctx context.Context, before time.Time) (int64, error)
}

type Options struct {
	// MaxAge is how long a posting may go unseen. Zero disables the job.
	MaxAge   time.Duration `mapstructure:"max-age"`
	Schedule string        `mapstructure:"schedule"`
}

type Job struct {
	cron    *cron.Cron
	purger  Purger
	opts    Options
	logger  *zap.Logger
	now     func() time.Time
	started bool
}

func New(purger Purger, logger *zap.Logger, opts Options) *Job {
	if opts.Schedule == "" {
		opts.Schedule = DefaultSchedule
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		cron:   cron.New(),
		purger: purger,
		opts:   opts,
		logger: logger.With(zap.String("job", "retention")),
		now:    time.Now,
	}
}

// Start registers the purge and starts the scheduler.
func (j *Job) Start(ctx context.Context) error {
	if j.opts.MaxAge <= 0 {
		j.logger.Info("posting retention disabled")
		return nil
	}

	_, err := j.cron.AddFunc(j.opts.Schedule, func() {
		if _, err := j.RunOnce(ctx); err != nil {
			j.logger.Warn("posting purge failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	j.cron.Start()
	j.started = true
	j.logger.Info("posting retention started",
		zap.String("schedule", j.opts.Schedule),
		zap.Duration("max_age", j.opts.MaxAge),
	)
	return nil
}

func (j *Job) Stop() {
	if !j.started {
		return
	}
	<-j.cron.Stop().Done()
	j.logger.Info("posting retention stopped")
}

// RunOnce deletes unreferenced postings last seen before now minus MaxAge.
func (j *Job) RunOnce(ctx context.Context) (int64, error) {
	if j.opts.MaxAge <= 0 {
		return 0, nil
	}

	before := j.now().Add(-j.opts.MaxAge)
	purged, err := j.purger.PurgeStalePostings(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("purge stale postings: %w", err)
	}
	j.logger.Info("stale postings purged", zap.Int64("purged", purged), zap.Time("before", before))
	return purged, nil
}
