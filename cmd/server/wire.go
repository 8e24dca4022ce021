// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"catalog_hierarchy_backend/internal/app"
	"catalog_hierarchy_backend/internal/category"
	"catalog_hierarchy_backend/internal/config"
	"catalog_hierarchy_backend/internal/jobs"
	"catalog_hierarchy_backend/internal/platform/database"
	"catalog_hierarchy_backend/internal/platform/logger"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		database.NewGORM,
		provideCache,

		// Category module
		category.NewGORMRepository,
		category.NewCoherenceManager,
		category.NewService,
		category.NewHandler,

		// Jobs
		jobs.NewStatsReconcilerJob,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
