package scheduler

import (
	"context"
	"fmt"
	"time"

	"internmatch/internal/logging"
	"internmatch/internal/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type Janitor struct {
	cron    *cron.Cron
	purger  Purger
	spec    string
	timeout time.Duration
	logger  zerolog.Logger
}

func NewJanitor(purger Purger, spec string, logger zerolog.Logger) *Janitor {
	if spec == "" {
		spec = "@every 1h"
	}
	return &Janitor{
		cron:    cron.New(),
		purger:  purger,
		spec:    spec,
		timeout: time.Minute,
		logger:  logging.Component(logger, "janitor"),
	}
}

// Start registers the purge job. ctx bounds every run.
func (j *Janitor) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(j.spec, func() { j.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule janitor %q: %w", j.spec, err)
	}
	j.cron.Start()
	j.logger.Info().Str("spec", j.spec).Msg("janitor started")
	return nil
}

func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info().Msg("janitor stopped")
}

func (j *Janitor) RunOnce(ctx context.Context) int64 {
	runCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	n, err := j.purger.PurgeExpired(runCtx)
	if err != nil {
		j.logger.Warn().Err(err).Msg("purge expired embeddings failed")
		return 0
	}
	metrics.CachePurged.Add(float64(n))
	j.logger.Debug().Int64("rows", n).Msg("expired embeddings purged")
	return n
}
