package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"means-server/src/config"
	"means-server/src/helpers"
	"means-server/src/logger"
	"means-server/src/storage"

	"golang.org/x/sync/errgroup"
)

// -----------------------------------------------------------------------------

func main() {

	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config (YAML, then .env / MEANS_* overrides)
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf.MConfig, conf.Name)
	defer appLogger.Sync()

	// Lifecycle Management
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Session archive
	archive, err := setupArchive(ctx, conf.MConfig, appLogger)
	if err != nil {
		appLogger.Critical("Failed to init session archive: %v", err)
	}
	defer archive.Close()

	// 5. TCP listener, fully wired before it serves
	errs := helpers.NewErrorHandler(logger.NewLogger(conf.MConfig, "ArchiveErrors"))
	meansServer, hub := setupServer(conf, archive, errs)
	if err := meansServer.Listen(); err != nil {
		appLogger.Critical("Failed to start listener: %v", err)
	}

	// 6. Run everything until a signal arrives or one component fails
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return meansServer.Serve(gctx)
	})

	g.Go(func() error {
		storage.RunCleanup(gctx, archive, conf.MConfig, errs)
		return nil
	})

	startServers(gctx, g, conf, meansServer, hub, archive, appLogger)

	appLogger.Info("%s started", conf.Name)
	if err := g.Wait(); err != nil {
		appLogger.Error("Shutting down after error: %v", err)
		appLogger.Sync()
		os.Exit(1)
	}
	appLogger.Info("Shutdown complete.")
}
