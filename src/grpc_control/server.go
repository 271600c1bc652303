package grpc_control

import (
	"context"
	"fmt"
	"net"
	"time"

	"means-server/src/logger"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

// NewGRPCServer builds a grpc.Server with the control service registered
func NewGRPCServer(svc *ControlService, log *logger.Logger) *grpc.Server {
	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(log)))
	RegisterControlServer(grpcServer, svc)
	return grpcServer
}

// -----------------------------------------------------------------------------

// Serve runs grpcServer on lis until ctx is cancelled, then stops gracefully
func Serve(ctx context.Context, grpcServer *grpc.Server, lis net.Listener, log *logger.Logger) error {
	stop := context.AfterFunc(ctx, grpcServer.GracefulStop)
	defer stop()

	log.Info("Starting gRPC Control Server on %s", lis.Addr())
	if err := grpcServer.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("serve gRPC: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func loggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			log.Warning("gRPC: %s failed after %s: %v", info.FullMethod, time.Since(start), err)
		} else {
			log.Debug("gRPC: %s took %s", info.FullMethod, time.Since(start))
		}
		return resp, err
	}
}
