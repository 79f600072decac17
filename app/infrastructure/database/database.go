package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
	"menlo.ai/query-cache/app/domain/querycache"
	"menlo.ai/query-cache/app/infrastructure/database/querycacheplugin"
	"menlo.ai/query-cache/app/utils/logger"
	"menlo.ai/query-cache/config/environment_variables"
)

// NewDB opens the primary, routes reads to the replica when one is configured and
// installs the query cache. Without DB_POSTGRESQL_WRITE_DSN it returns a nil *gorm.DB:
// the server then runs as an admin sidecar next to the applications that embed the cache.
func NewDB(handler *querycache.QueryHandler) (*gorm.DB, error) {
	writeDSN := environment_variables.EnvironmentVariables.DB_POSTGRESQL_WRITE_DSN
	if writeDSN == "" {
		logger.GetLogger().Info("no primary database configured, running as a cache sidecar")
		return nil, nil
	}

	db, err := gorm.Open(postgres.Open(writeDSN), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		logger.GetLogger().
			WithField("error_code", "5c16fb53-d98c-4fc6-8bb4-9abd3c0b9e88").
			Errorf("unable to connect to database: %v", err)
		return nil, err
	}

	if readDSN := environment_variables.EnvironmentVariables.DB_POSTGRESQL_READ1_DSN; readDSN != "" {
		err = db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: []gorm.Dialector{postgres.Open(readDSN)},
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			logger.GetLogger().
				WithField("error_code", "9fab4b2e-1d70-4a4e-928a-5e81c7ee06de").
				Errorf("unable to connect to setup replica: %v", err)
			return nil, err
		}
	}

	if err := Install(db, handler); err != nil {
		return nil, err
	}
	return db, nil
}

// Install registers the query cache plugin on an already opened database.
func Install(db *gorm.DB, handler *querycache.QueryHandler) error {
	if err := db.Use(querycacheplugin.New(handler)); err != nil {
		logger.GetLogger().
			WithField("error_code", "75333e43-8157-4f0a-8e34-aa34e6e7c285").
			Errorf("unable to install query cache: %v", err)
		return err
	}
	return nil
}
