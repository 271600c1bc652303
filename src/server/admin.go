package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"means-server/src/interfaces"
	"means-server/src/logger"
	"means-server/src/models"

	"github.com/gin-gonic/gin"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
	shutdownTimeout     = 5 * time.Second
)

// -----------------------------------------------------------------------------
// AdminServer
// -----------------------------------------------------------------------------

type AdminServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	Hub    *Hub

	status    interfaces.IStatusProvider
	archive   interfaces.ISessionArchive
	engine    *gin.Engine
	startedAt time.Time
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewAdminServer(cfg *models.MConfig, log *logger.Logger, hub *Hub, status interfaces.IStatusProvider, archive interfaces.ISessionArchive) *AdminServer {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &AdminServer{
		Config:    cfg,
		Logger:    log,
		Hub:       hub,
		status:    status,
		archive:   archive,
		engine:    gin.New(),
		startedAt: time.Now(),
	}
	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *AdminServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/metrics", s.getMetrics)
	api.GET("/config", s.getConfig)
	api.GET("/sessions", s.getSessions)
	api.GET("/sessions/history", s.getSessionHistory)

	// WebSocket endpoint
	if s.Hub != nil {
		s.engine.GET("/ws", s.Hub.handleWebSocket)
	}
}

// -----------------------------------------------------------------------------

// Handler exposes the router (tests use it with httptest)
func (s *AdminServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves on ln until ctx is cancelled; the hub runs alongside
func (s *AdminServer) Start(ctx context.Context, ln net.Listener) error {
	if s.Hub != nil {
		go s.Hub.Run(ctx)
	}

	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.Logger.Warning("Admin server shutdown: %v", err)
		}
	})
	defer stop()

	s.Logger.Info("Admin API listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// ListenAndServe binds admin.host:admin.port and serves until ctx is cancelled
func (s *AdminServer) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Config.Admin.Host, s.Config.Admin.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Start(ctx, ln)
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *AdminServer) getHealth(c *gin.Context) {
	metrics := s.status.Metrics()

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"connections":     metrics.ActiveSessions,
		"max_connections": s.Config.MaxConnections,
		"uptime_seconds":  int64(time.Since(s.startedAt).Seconds()),
	})
}

// -----------------------------------------------------------------------------

func (s *AdminServer) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.Metrics())
}

// -----------------------------------------------------------------------------

func (s *AdminServer) getConfig(c *gin.Context) {
	// Secrets (DSNs, passwords) are never returned
	c.JSON(http.StatusOK, gin.H{
		"name":            s.Config.Name,
		"host":            s.Config.Host,
		"port":            s.Config.Port,
		"max_connections": s.Config.MaxConnections,
		"overflow_policy": s.Config.OverflowPolicy,
		"session":         s.Config.Session,
		"storage":         s.Config.Storage.DBType,
	})
}

// -----------------------------------------------------------------------------

func (s *AdminServer) getSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sessions": s.status.ActiveSessions(),
	})
}

// -----------------------------------------------------------------------------

func (s *AdminServer) getSessionHistory(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusOK, gin.H{"sessions": []models.MSessionSummary{}})
		return
	}

	limit := parseLimit(c.Query("limit"), defaultHistoryLimit, maxHistoryLimit)
	sessions, err := s.archive.RecentSessions(c.Request.Context(), limit)
	if err != nil {
		s.Logger.Error("Failed to load session history: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session history unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}
