package main

import (
	"context"

	"means-server/src/config"
	"means-server/src/helpers"
	"means-server/src/interfaces"
	"means-server/src/logger"
	"means-server/src/models"
	"means-server/src/server"
	"means-server/src/storage"
)

// -----------------------------------------------------------------------------

// setupArchive builds and initializes the session archive named by storage.db_type
func setupArchive(ctx context.Context, config *models.MConfig, appLogger *logger.Logger) (interfaces.ISessionArchive, error) {
	archiveLogger := logger.NewLogger(config, "SessionArchive")

	archive, err := storage.NewSessionArchive(config, archiveLogger)
	if err != nil {
		return nil, err
	}
	if err := archive.Initialize(ctx); err != nil {
		return nil, err
	}

	appLogger.Info("Session archive ready (%s)", config.Storage.DBType)
	return archive, nil
}

// -----------------------------------------------------------------------------

// setupServer builds the TCP listener with every collaborator attached. It
// must run before Serve: sessions read Publisher and Archive without locking.
// The hub is nil when the admin API is disabled.
func setupServer(conf *config.Config, archive interfaces.ISessionArchive, errs *helpers.ErrorHandler) (*server.MeansServer, *server.Hub) {
	meansServer := server.NewMeansServer(conf.MConfig, logger.NewLogger(conf.MConfig, "MeansServer"))
	meansServer.Archive = archive
	if errs != nil {
		meansServer.Errors = errs
	}

	if conf.Admin.Port == 0 {
		return meansServer, nil
	}

	hub := server.NewHub(conf.Admin.EventBufferSize, logger.NewLogger(conf.MConfig, "EventHub"))
	meansServer.Publisher = hub
	return meansServer, hub
}
