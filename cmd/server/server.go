package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mileusna/crontab"
	"go.uber.org/multierr"
	"gorm.io/gorm"
	"menlo.ai/query-cache/app/domain/cron"
	"menlo.ai/query-cache/app/domain/healthcheck"
	"menlo.ai/query-cache/app/infrastructure/cache"
	"menlo.ai/query-cache/app/interfaces/http"
	"menlo.ai/query-cache/app/utils/logger"
	"menlo.ai/query-cache/config/environment_variables"
)

// Application is the admin process: it serves invalidation, sweeps and metrics for
// a shared cache backend. DB is set only when a primary DSN is configured, in which
// case this process also owns a cache-aware connection.
type Application struct {
	HttpServer         *http.HttpServer
	CronService        *cron.CronService
	HealthcheckService *healthcheck.HealthcheckCrontabService
	Backend            *cache.Backend
	DB                 *gorm.DB
}

func (application *Application) Start(ctx context.Context, ctab *crontab.Crontab) error {
	if err := application.HealthcheckService.Start(ctx, ctab); err != nil {
		return err
	}
	if err := application.CronService.Start(ctx, ctab); err != nil {
		return err
	}

	errs := make(chan error, 1)
	go func() {
		errs <- application.HttpServer.Run()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		return nil
	}
}

func (application *Application) Close() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := application.HttpServer.Shutdown(shutdownCtx)
	if application.DB != nil {
		if sqlDB, dbErr := application.DB.DB(); dbErr == nil {
			err = multierr.Append(err, sqlDB.Close())
		}
	}
	return multierr.Append(err, application.Backend.Close())
}

func init() {
	environment_variables.EnvironmentVariables.LoadFromEnv()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := CreateApplication()
	if err != nil {
		panic(err)
	}

	ctab := crontab.New()
	defer ctab.Shutdown()

	startErr := application.Start(ctx, ctab)
	if err := multierr.Append(startErr, application.Close()); err != nil {
		logger.GetLogger().WithError(err).Error("server stopped with errors")
		os.Exit(1)
	}
}
