package cron

import (
	"context"
	"errors"
	"time"

	"github.com/mileusna/crontab"
	"menlo.ai/query-cache/app/domain/querycache"
	"menlo.ai/query-cache/app/utils/logger"
	"menlo.ai/query-cache/config/environment_variables"
)

// SweepLock keeps sweeps from overlapping, across processes when backed by Redis.
type SweepLock interface {
	TryLock(ctx context.Context) (func(), error)
}

type CronService struct {
	Sweeper  querycache.Sweeper
	Lock     SweepLock
	Schedule string
}

func NewService(sweeper querycache.Sweeper, lock SweepLock) *CronService {
	return &CronService{
		Sweeper:  sweeper,
		Lock:     lock,
		Schedule: environment_variables.EnvironmentVariables.QueryCacheSweepSchedule(),
	}
}

func (cs *CronService) Start(ctx context.Context, ctab *crontab.Crontab) error {
	if cs == nil || cs.Sweeper == nil {
		return nil
	}
	return ctab.AddJob(cs.Schedule, func() {
		if _, err := cs.Sweep(ctx); err != nil {
			logger.GetLogger().Warnf("cron service: tag sweep failed: %v", err)
		}
	})
}

// Sweep removes tag members whose entries are gone. It returns 0 without error
// when another sweep holds the lock; any other lock failure is returned.
func (cs *CronService) Sweep(ctx context.Context) (int, error) {
	if cs == nil || cs.Sweeper == nil {
		return 0, nil
	}
	if cs.Lock != nil {
		unlock, err := cs.Lock.TryLock(ctx)
		if errors.Is(err, querycache.ErrSweepLockHeld) {
			logger.GetLogger().WithError(err).Debug("cron service: sweep skipped, lock held")
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		defer unlock()
	}

	start := time.Now()
	removed, err := cs.Sweeper.Sweep(ctx)
	if err != nil {
		return removed, err
	}
	logger.GetLogger().WithField("removed", removed).
		WithField("duration", time.Since(start).String()).
		Info("cron service: tag sweep finished")
	return removed, nil
}
