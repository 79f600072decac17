package healthcheck

import (
	"context"
	"sync/atomic"

	"github.com/mileusna/crontab"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"menlo.ai/query-cache/app/utils/logger"
)

var storeUp = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "querycache",
	Name:      "store_up",
	Help:      "1 when the last cache store health check succeeded",
})

type StoreChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthcheckCrontabService struct {
	Store   StoreChecker
	healthy atomic.Bool
}

func NewService(store StoreChecker) *HealthcheckCrontabService {
	return &HealthcheckCrontabService{
		Store: store,
	}
}

func (hs *HealthcheckCrontabService) Start(ctx context.Context, ctab *crontab.Crontab) error {
	hs.CheckStore(ctx)
	return ctab.AddJob("* * * * *", func() {
		hs.CheckStore(ctx)
	})
}

// CheckStore records the store's health and logs only transitions.
func (hs *HealthcheckCrontabService) CheckStore(ctx context.Context) bool {
	err := hs.Store.HealthCheck(ctx)
	healthy := err == nil
	previous := hs.healthy.Swap(healthy)

	if healthy {
		storeUp.Set(1)
		if !previous {
			logger.GetLogger().Info("healthcheck: cache store is reachable")
		}
		return true
	}
	storeUp.Set(0)
	if previous {
		logger.GetLogger().WithError(err).Warn("healthcheck: cache store is unreachable, reads fall through to the database")
	}
	return false
}
