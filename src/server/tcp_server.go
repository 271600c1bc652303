package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"means-server/src/helpers"
	"means-server/src/interfaces"
	"means-server/src/logger"
	"means-server/src/models"

	"github.com/google/uuid"
	"golang.org/x/net/netutil"
)

const archiveTimeout = 5 * time.Second

// -----------------------------------------------------------------------------
// MeansServer
// -----------------------------------------------------------------------------

type MeansServer struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Registry *Registry

	// Optional collaborators (nil disables)
	Publisher interfaces.IEventPublisher
	Archive   interfaces.ISessionArchive

	// Counts archive failures; may be shared with the cleanup loop
	Errors *helpers.ErrorHandler

	listener net.Listener
	slots    chan struct{} // reject policy only
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewMeansServer(cfg *models.MConfig, log *logger.Logger) *MeansServer {
	return &MeansServer{
		Config:   cfg,
		Logger:   log,
		Registry: NewRegistry(),
		Errors:   helpers.NewErrorHandler(log),
	}
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Listen binds the TCP socket. It is separate from Serve so callers (and
// tests using port 0) can learn the bound address first.
func (s *MeansServer) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	maxConns := s.Config.MaxConnections
	if maxConns <= 0 {
		maxConns = 5
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Config.OverflowPolicy == "reject" {
		s.slots = make(chan struct{}, maxConns)
		s.listener = ln
	} else {
		// Excess dials wait in the accept backlog until a slot frees up
		s.listener = netutil.LimitListener(ln, maxConns)
	}

	s.Logger.Info("Listening on %s (max %d connections, overflow=%s)", ln.Addr(), maxConns, s.overflowPolicy())
	return nil
}

// -----------------------------------------------------------------------------

// Addr returns the bound address, or nil before Listen
func (s *MeansServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// -----------------------------------------------------------------------------

// ListenAndServe binds and serves until ctx is cancelled
func (s *MeansServer) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// -----------------------------------------------------------------------------

// Serve accepts connections until ctx is cancelled, then closes every live
// session and waits for them to finish. Accept failures are logged and
// retried with backoff; only a closed listener ends the loop.
func (s *MeansServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("server is not listening")
	}

	// Exit order: close the listener, cancel live sessions, wait for them
	ctx, cancel := context.WithCancel(ctx)
	defer s.wg.Wait()
	defer cancel()
	defer ln.Close()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.Logger.Info("Listener stopped")
				return nil
			}

			// Anything else (EMFILE, ENFILE, ECONNABORTED...) is retried
			tempDelay = nextAcceptDelay(tempDelay)
			s.Logger.Warning("Accept error: %v; retrying in %v", err, tempDelay)
			select {
			case <-time.After(tempDelay):
			case <-ctx.Done():
			}
			continue
		}
		tempDelay = 0

		if !s.acquireSlot() {
			s.reject(conn)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.releaseSlot()
			s.handleConnection(ctx, conn)
		}()
	}
}

// -----------------------------------------------------------------------------
// Connection Handling
// -----------------------------------------------------------------------------

func (s *MeansServer) handleConnection(ctx context.Context, conn net.Conn) {
	stats := NewSessionStats(uuid.NewString(), remoteAddr(conn))
	sessionLogger := s.Logger.Named("session")

	s.Registry.Open(stats)
	s.Logger.Info("Client connected: %s (session %s, active %d)", stats.RemoteAddr, stats.ID, s.Registry.Active())
	s.publish(models.MSessionEvent{
		Type:       models.EventSessionOpened,
		SessionID:  stats.ID,
		RemoteAddr: stats.RemoteAddr,
		Timestamp:  stats.OpenedAt.Unix(),
	})

	summary := NewSession(conn, stats, s.Config.Session, sessionLogger).Run(ctx)

	s.Registry.Close(stats.ID)
	s.Logger.Info("Client disconnected: %s (session %s, %s, %d inserts, %d queries, %d errors)",
		summary.RemoteAddr, summary.ID, summary.CloseReason, summary.Inserts, summary.Queries, summary.Errors)
	s.publish(models.MSessionEvent{
		Type:       models.EventSessionClosed,
		SessionID:  summary.ID,
		RemoteAddr: summary.RemoteAddr,
		Timestamp:  summary.ClosedAt.Unix(),
		Summary:    &summary,
	})

	s.archive(summary)
}

// -----------------------------------------------------------------------------

func (s *MeansServer) reject(conn net.Conn) {
	addr := remoteAddr(conn)
	conn.Close()

	s.Registry.Reject()
	s.Logger.Warning("Rejected %s: %d connections already active", addr, s.Registry.Active())
	s.publish(models.MSessionEvent{
		Type:       models.EventSessionRejected,
		RemoteAddr: addr,
		Timestamp:  time.Now().Unix(),
	})
}

// -----------------------------------------------------------------------------

func (s *MeansServer) archive(summary models.MSessionSummary) {
	if s.Archive == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	s.Errors.Handle(s.Archive.SaveSessionSummary(ctx, summary), fmt.Sprintf("archive session %s", summary.ID))
}

// -----------------------------------------------------------------------------

func (s *MeansServer) publish(event models.MSessionEvent) {
	if s.Publisher != nil {
		s.Publisher.Publish(event)
	}
}

// -----------------------------------------------------------------------------
// Status (interfaces.IStatusProvider)
// -----------------------------------------------------------------------------

func (s *MeansServer) Metrics() models.MServerMetrics {
	m := s.Registry.Metrics()
	m.ArchiveErrors = s.Errors.ErrorCount()
	return m
}

func (s *MeansServer) ActiveSessions() []models.MSessionSummary {
	return s.Registry.ActiveSessions()
}

// -----------------------------------------------------------------------------
// Slots (reject policy)
// -----------------------------------------------------------------------------

func (s *MeansServer) acquireSlot() bool {
	if s.slots == nil {
		return true
	}
	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *MeansServer) releaseSlot() {
	if s.slots != nil {
		<-s.slots
	}
}

func (s *MeansServer) overflowPolicy() string {
	if s.slots != nil {
		return "reject"
	}
	return "defer"
}
