package jobs

import (
	"context"
	"time"

	"adlink-platform/internal/models"

	"github.com/sirupsen/logrus"
)

type ConfigSource interface {
	Config(ctx context.Context) models.TargetingConfig
}

type SuggestionRefresher interface {
	RefreshAll(ctx context.Context, cfg models.TargetingConfig, limit int) (int, error)
}

// SuggestionJob periodically regenerates internal-link suggestions for every entity.
type SuggestionJob struct {
	settings  ConfigSource
	refresher SuggestionRefresher
	logger    *logrus.Logger
	interval  time.Duration
	limit     int
}

func NewSuggestionJob(settings ConfigSource, refresher SuggestionRefresher, logger *logrus.Logger, interval time.Duration, limit int) *SuggestionJob {
	return &SuggestionJob{
		settings:  settings,
		refresher: refresher,
		logger:    logger,
		interval:  interval,
		limit:     limit,
	}
}

// Start runs one pass immediately and then one per interval until ctx is done.
// A non-positive interval disables the job.
func (j *SuggestionJob) Start(ctx context.Context) {
	if j.interval <= 0 {
		j.logger.Info("Suggestion job disabled")
		return
	}
	j.logger.WithFields(logrus.Fields{
		"interval": j.interval.String(),
		"limit":    j.limit,
	}).Info("Suggestion job started")

	j.RunOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("Suggestion job stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce refreshes every source. Failures are logged and retried on the next tick.
func (j *SuggestionJob) RunOnce(ctx context.Context) int {
	processed, err := j.refresher.RefreshAll(ctx, j.settings.Config(ctx), j.limit)
	if err != nil && ctx.Err() == nil {
		j.logger.WithError(err).WithField("processed", processed).Error("Suggestion refresh failed")
	}
	return processed
}
