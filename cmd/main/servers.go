package main

import (
	"context"
	"fmt"
	"net"

	"means-server/src/config"
	"means-server/src/grpc_control"
	"means-server/src/interfaces"
	"means-server/src/logger"
	"means-server/src/server"

	"golang.org/x/sync/errgroup"
)

// -----------------------------------------------------------------------------

// startServers adds the optional admin and gRPC surfaces to the group.
// A zero port disables the surface; hub is nil when the admin API is off.
func startServers(
	ctx context.Context,
	g *errgroup.Group,
	conf *config.Config,
	meansServer *server.MeansServer,
	hub *server.Hub,
	archive interfaces.ISessionArchive,
	appLogger *logger.Logger,
) {

	// 1. Admin API + WebSocket event feed
	if hub != nil {
		admin := server.NewAdminServer(conf.MConfig, logger.NewLogger(conf.MConfig, "AdminServer"), hub, meansServer, archive)
		g.Go(func() error {
			return admin.ListenAndServe(ctx)
		})
	} else {
		appLogger.Info("Admin API disabled")
	}

	// 2. gRPC Control Server
	if conf.GrpcPort != 0 {
		addr := fmt.Sprintf("%s:%d", conf.GrpcHost, conf.GrpcPort)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			appLogger.Critical("failed to listen for gRPC on %s: %v", addr, err)
		}

		grpcLogger := logger.NewLogger(conf.MConfig, "ControlService")
		grpcServer := grpc_control.NewGRPCServer(grpc_control.NewControlService(conf, meansServer, grpcLogger), grpcLogger)
		g.Go(func() error {
			return grpc_control.Serve(ctx, grpcServer, lis, grpcLogger)
		})
	} else {
		appLogger.Info("gRPC control disabled")
	}
}
