package grpc_control

import (
	"context"
	"time"

	"means-server/src/config"
	"means-server/src/interfaces"
	"means-server/src/logger"
	"means-server/src/models"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ControlService implements the ControlServer interface
type ControlService struct {
	UnimplementedControlServer
	Config    *config.Config
	Status    interfaces.IStatusProvider
	Logger    *logger.Logger
	startedAt time.Time
}

// NewControlService creates a new instance of ControlService
func NewControlService(cfg *config.Config, st interfaces.IStatusProvider, log *logger.Logger) *ControlService {
	return &ControlService{
		Config:    cfg,
		Status:    st,
		Logger:    log,
		startedAt: time.Now(),
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	m := s.Status.Metrics()

	result, err := structpb.NewStruct(map[string]any{
		"name":              s.Config.Name,
		"listen_addr":       s.Config.ListenAddr(),
		"max_connections":   s.Config.MaxConnections,
		"overflow_policy":   s.Config.OverflowPolicy,
		"uptime_seconds":    int64(time.Since(s.startedAt).Seconds()),
		"active_sessions":   m.ActiveSessions,
		"sessions_total":    m.SessionsTotal,
		"sessions_rejected": m.SessionsRejected,
		"frames_total":      m.FramesTotal,
		"inserts_total":     m.InsertsTotal,
		"queries_total":     m.QueriesTotal,
		"errors_total":      m.ErrorsTotal,
		"bytes_in":          m.BytesIn,
		"bytes_out":         m.BytesOut,
		"archive_errors":    m.ArchiveErrors,
	})
	if err != nil {
		s.Logger.Error("gRPC: Failed to build status: %v", err)
		return nil, status.Errorf(codes.Internal, "build status: %v", err)
	}
	return result, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListSessions(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error) {
	active := s.Status.ActiveSessions()

	sessions := make([]any, 0, len(active))
	for _, summary := range active {
		sessions = append(sessions, sessionFields(summary))
	}

	result, err := structpb.NewStruct(map[string]any{"sessions": sessions})
	if err != nil {
		s.Logger.Error("gRPC: Failed to build session list: %v", err)
		return nil, status.Errorf(codes.Internal, "build session list: %v", err)
	}

	s.Logger.Debug("gRPC: ListSessions returned %d sessions", len(active))
	return result, nil
}

// -----------------------------------------------------------------------------

// sessionFields flattens a summary into values structpb accepts
func sessionFields(s models.MSessionSummary) map[string]any {
	return map[string]any{
		"id":               s.ID,
		"remote_addr":      s.RemoteAddr,
		"opened_at":        s.OpenedAt.UTC().Format(time.RFC3339),
		"duration_seconds": s.Duration().Seconds(),
		"inserts":          s.Inserts,
		"queries":          s.Queries,
		"errors":           s.Errors,
		"bytes_in":         s.BytesIn,
		"bytes_out":        s.BytesOut,
		"samples":          s.Samples,
	}
}
