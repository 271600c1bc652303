package server

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"means-server/src/codec"
	"means-server/src/helpers"
	"means-server/src/interfaces"
	"means-server/src/logger"
	"means-server/src/models"
	"means-server/src/network"
	"means-server/src/utils"
)

// Close reasons reported in session summaries
const (
	closeReasonEOF         = "eof"
	closeReasonShutdown    = "shutdown"
	closeReasonIdleTimeout = "idle_timeout"
	closeReasonReadError   = "read_error"
	closeReasonWriteError  = "write_error"
)

// Replies always carry a write deadline; 0 in config means this default
const defaultWriteTimeout = 10 * time.Second

// -----------------------------------------------------------------------------
// Session owns one connection: its price store, its frame buffer and the
// socket. Everything here is private to the session goroutine except Stats.
// -----------------------------------------------------------------------------

type Session struct {
	Stats *SessionStats

	conn   net.Conn
	store  interfaces.IPriceStore
	frames *network.FrameReader
	config models.MSessionConfig
	logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewSession binds a fresh, empty store to conn
func NewSession(conn net.Conn, stats *SessionStats, cfg models.MSessionConfig, log *logger.Logger) *Session {
	if cfg.ReadBufferSize < codec.FrameSize {
		cfg.ReadBufferSize = 4096
	}
	return &Session{
		Stats:  stats,
		conn:   conn,
		store:  utils.NewPriceTree(),
		frames: network.NewFrameReader(),
		config: cfg,
		logger: log,
	}
}

// -----------------------------------------------------------------------------

// Run processes frames until the peer closes, the socket fails or ctx is
// cancelled. The connection is closed and the store released on return.
func (s *Session) Run(ctx context.Context) models.MSessionSummary {
	// Cancellation unblocks a pending Read by closing the socket
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })

	reason := s.readLoop(ctx)

	stop()
	s.conn.Close()

	summary := s.Stats.Snapshot()
	summary.ClosedAt = time.Now().UTC()
	summary.CloseReason = reason

	// Release per-connection state; a trailing partial frame is dropped
	s.store = nil
	s.frames.Reset()

	return summary
}

// -----------------------------------------------------------------------------

func (s *Session) readLoop(ctx context.Context) string {
	buf := make([]byte, s.config.ReadBufferSize)
	idle := time.Duration(s.config.IdleTimeoutSeconds) * time.Second

	for {
		if idle > 0 {
			s.conn.SetReadDeadline(time.Now().Add(idle))
		}

		n, err := s.conn.Read(buf)
		if n > 0 {
			s.Stats.bytesIn.Add(int64(n))
			for frame := range s.frames.Feed(buf[:n]) {
				if werr := s.processFrame(frame); werr != nil {
					s.logger.Warning("Session %s (%s): %v", s.Stats.ID, s.Stats.RemoteAddr, werr)
					return closeReasonWriteError
				}
			}
		}

		if err != nil {
			return s.classifyReadError(ctx, err)
		}
	}
}

// -----------------------------------------------------------------------------

// processFrame handles one frame and writes its reply, if any. Frame-level
// failures become the error reply; only write failures are returned.
func (s *Session) processFrame(frame []byte) error {
	reply, err := s.HandleFrame(frame)
	if err != nil {
		s.Stats.errors.Add(1)
		s.logger.Warning("Session %s (%s): bad frame %x: %v", s.Stats.ID, s.Stats.RemoteAddr, frame, err)
		reply = codec.ErrorReply()
	}

	if reply == nil {
		return nil
	}
	return s.write(reply)
}

// -----------------------------------------------------------------------------

// HandleFrame decodes and applies one frame against the session's store.
// It returns the reply to send (nil for inserts) or a FormatError/RangeError.
func (s *Session) HandleFrame(frame []byte) ([]byte, error) {
	msg, err := codec.DecodeMessage(frame)
	if err != nil {
		return nil, err
	}

	switch msg.Type {
	case models.MessageInsert:
		s.store.Insert(msg.Val1, msg.Val2)
		s.Stats.inserts.Add(1)
		s.Stats.samples.Store(int64(s.store.Len()))
		return nil, nil

	case models.MessageQuery:
		reply, err := codec.EncodeInt32(s.store.RangeMean(msg.Val1, msg.Val2))
		if err != nil {
			return nil, err
		}
		s.Stats.queries.Add(1)
		return reply, nil
	}

	return nil, helpers.NewFormatError("invalid message type %q", msg.Type)
}

// -----------------------------------------------------------------------------

func (s *Session) write(reply []byte) error {
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout()))

	n, err := s.conn.Write(reply)
	s.Stats.bytesOut.Add(int64(n))
	if err != nil {
		return helpers.NewConnectionError("write reply", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *Session) writeTimeout() time.Duration {
	if s.config.WriteTimeoutSeconds <= 0 {
		return defaultWriteTimeout
	}
	return time.Duration(s.config.WriteTimeoutSeconds) * time.Second
}

// -----------------------------------------------------------------------------

func (s *Session) classifyReadError(ctx context.Context, err error) string {
	if ctx.Err() != nil {
		return closeReasonShutdown
	}
	if errors.Is(err, io.EOF) {
		return closeReasonEOF
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		s.logger.Info("Session %s (%s) idle for %ds, closing", s.Stats.ID, s.Stats.RemoteAddr, s.config.IdleTimeoutSeconds)
		return closeReasonIdleTimeout
	}

	s.logger.Warning("Session %s (%s): %v", s.Stats.ID, s.Stats.RemoteAddr, helpers.NewConnectionError("read", err))
	return closeReasonReadError
}
