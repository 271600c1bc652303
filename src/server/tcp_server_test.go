package server

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"means-server/src/codec"
	"means-server/src/logger"
	"means-server/src/models"
	"means-server/src/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.MSessionEvent
}

func (p *recordingPublisher) Publish(event models.MSessionEvent) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// startTestServer serves on an ephemeral loopback port until the test ends.
// setup runs before Serve so collaborators can be attached.
func startTestServer(t *testing.T, policy string, setup ...func(*MeansServer)) *MeansServer {
	t.Helper()

	cfg := &models.MConfig{
		Host:           "127.0.0.1",
		Port:           0,
		MaxConnections: 5,
		OverflowPolicy: policy,
		Session:        models.MSessionConfig{WriteTimeoutSeconds: 5, ReadBufferSize: 4096},
	}
	srv := NewMeansServer(cfg, logger.NewNopLogger())
	for _, fn := range setup {
		fn(srv)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Serve returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after cancel")
		}
	})
	return srv
}

func dial(t *testing.T, srv *MeansServer) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", srv.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn net.Conn, frames ...[]byte) {
	t.Helper()
	for _, f := range frames {
		if _, err := conn.Write(f); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// -----------------------------------------------------------------------------

func TestServer_InsertAndQuery(t *testing.T) {
	srv := startTestServer(t, "defer")
	conn := dial(t, srv)

	send(t, conn,
		codec.Insert(12345, 101),
		codec.Insert(12346, 102),
		codec.Insert(12347, 100),
		codec.Insert(40960, 5),
		codec.Query(12288, 16384),
	)
	if got := readReply(t, conn); got != 101 {
		t.Errorf("Mean = %d, want 101", got)
	}
}

func TestServer_ErrorReplies(t *testing.T) {
	srv := startTestServer(t, "defer")
	conn := dial(t, srv)

	send(t, conn, []byte{'X', 0, 0, 0, 0, 0, 0, 0, 0})
	if got := readReply(t, conn); got != codec.ErrorValue {
		t.Errorf("Reply = %d, want %d", got, codec.ErrorValue)
	}

	// Query before any insert, then an inverted range
	send(t, conn, codec.Query(0, 1000))
	if got := readReply(t, conn); got != 0 {
		t.Errorf("Empty query = %d, want 0", got)
	}
	send(t, conn, codec.Insert(500, 7), codec.Query(1000, 0))
	if got := readReply(t, conn); got != 0 {
		t.Errorf("Inverted query = %d, want 0", got)
	}
}

func TestServer_SessionsAreIsolated(t *testing.T) {
	srv := startTestServer(t, "defer")
	a := dial(t, srv)
	b := dial(t, srv)

	send(t, a, codec.Insert(100, 10))
	send(t, b, codec.Insert(100, 90))

	send(t, a, codec.Query(0, 200))
	send(t, b, codec.Query(0, 200))
	if got := readReply(t, a); got != 10 {
		t.Errorf("Session a mean = %d, want 10", got)
	}
	if got := readReply(t, b); got != 90 {
		t.Errorf("Session b mean = %d, want 90", got)
	}

	// A new connection starts with an empty store
	a.Close()
	c := dial(t, srv)
	send(t, c, codec.Query(0, 200))
	if got := readReply(t, c); got != 0 {
		t.Errorf("New session mean = %d, want 0", got)
	}
}

func TestServer_ConcurrentClients(t *testing.T) {
	srv := startTestServer(t, "defer")

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(price int32) {
			defer wg.Done()
			conn, err := net.DialTimeout("tcp", srv.Addr().String(), 2*time.Second)
			if err != nil {
				errs <- err
				return
			}
			defer conn.Close()

			for ts := int32(0); ts < 100; ts++ {
				if _, err := conn.Write(codec.Insert(ts, price)); err != nil {
					errs <- err
					return
				}
			}
			conn.Write(codec.Query(0, 99))

			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			buf := make([]byte, codec.IntSize)
			if _, err := io.ReadFull(conn, buf); err != nil {
				errs <- err
				return
			}
			if got, _ := codec.DecodeInt32(buf); got != price {
				errs <- errors.New("mean leaked across sessions")
			}
		}(int32(i * 1000))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	waitFor(t, "sessions to close", func() bool { return srv.Registry.Active() == 0 })
	m := srv.Metrics()
	if m.SessionsTotal != 5 || m.InsertsTotal != 500 || m.QueriesTotal != 5 {
		t.Errorf("Unexpected metrics: %+v", m)
	}
}

func TestServer_RejectPolicy(t *testing.T) {
	pub := &recordingPublisher{}
	srv := startTestServer(t, "reject", func(s *MeansServer) { s.Publisher = pub })

	conns := make([]net.Conn, 5)
	for i := range conns {
		conns[i] = dial(t, srv)
	}
	waitFor(t, "5 active sessions", func() bool { return srv.Registry.Active() == 5 })

	// The sixth is accepted and closed straight away
	extra := dial(t, srv)
	extra.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := extra.Read(make([]byte, 1)); err == nil {
		t.Error("Sixth connection should be closed by the server")
	}
	waitFor(t, "rejection to be counted", func() bool { return srv.Metrics().SessionsRejected == 1 })
	if pub.count(models.EventSessionRejected) != 1 {
		t.Error("Expected one rejected event")
	}

	// Freeing a slot admits the next client
	conns[0].Close()
	waitFor(t, "slot to free", func() bool { return len(srv.slots) == 4 })

	next := dial(t, srv)
	send(t, next, codec.Insert(1, 42), codec.Query(0, 2))
	if got := readReply(t, next); got != 42 {
		t.Errorf("Mean = %d, want 42", got)
	}
}

func TestServer_DeferPolicy(t *testing.T) {
	srv := startTestServer(t, "defer")

	conns := make([]net.Conn, 5)
	for i := range conns {
		conns[i] = dial(t, srv)
	}
	waitFor(t, "5 active sessions", func() bool { return srv.Registry.Active() == 5 })

	// The sixth waits in the backlog without being served
	waiting := dial(t, srv)
	send(t, waiting, codec.Query(0, 10))
	waiting.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var netErr net.Error
	if _, err := waiting.Read(make([]byte, codec.IntSize)); !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("Expected the sixth connection to wait, got %v", err)
	}

	conns[0].Close()
	if got := readReply(t, waiting); got != 0 {
		t.Errorf("Deferred query = %d, want 0", got)
	}
	if srv.Metrics().SessionsRejected != 0 {
		t.Error("Defer policy should not reject")
	}
}

func TestServer_ArchivesAndPublishes(t *testing.T) {
	archive := storage.NewMemoryArchive(10)
	pub := &recordingPublisher{}
	srv := startTestServer(t, "defer", func(s *MeansServer) {
		s.Archive = archive
		s.Publisher = pub
	})

	conn := dial(t, srv)
	send(t, conn, codec.Insert(1, 1), codec.Insert(2, 3), codec.Query(0, 5))
	readReply(t, conn)
	conn.Close()

	waitFor(t, "session archive", func() bool {
		recent, _ := archive.RecentSessions(context.Background(), 10)
		return len(recent) == 1
	})

	recent, _ := archive.RecentSessions(context.Background(), 10)
	s := recent[0]
	if s.Inserts != 2 || s.Queries != 1 || s.Samples != 2 || s.CloseReason != closeReasonEOF {
		t.Errorf("Unexpected archived summary: %+v", s)
	}
	if pub.count(models.EventSessionOpened) != 1 || pub.count(models.EventSessionClosed) != 1 {
		t.Error("Expected one opened and one closed event")
	}
}

func TestServer_ServeWithoutListen(t *testing.T) {
	srv := NewMeansServer(&models.MConfig{}, logger.NewNopLogger())
	if err := srv.Serve(context.Background()); err == nil {
		t.Error("Serve should fail before Listen")
	}
	if srv.Addr() != nil {
		t.Error("Addr should be nil before Listen")
	}
}

// flakyListener fails the first Accept with EMFILE
type flakyListener struct {
	net.Listener
	failed atomic.Bool
}

func (l *flakyListener) Accept() (net.Conn, error) {
	if l.failed.CompareAndSwap(false, true) {
		return nil, &net.OpError{Op: "accept", Net: "tcp", Err: os.NewSyscallError("accept", syscall.EMFILE)}
	}
	return l.Listener.Accept()
}

func TestServer_SurvivesTransientAcceptError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	flaky := &flakyListener{Listener: ln}

	srv := NewMeansServer(&models.MConfig{MaxConnections: 5}, logger.NewNopLogger())
	srv.listener = flaky

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	conn := dial(t, srv)
	send(t, conn, codec.Insert(7, 70), codec.Query(0, 10))
	if got := readReply(t, conn); got != 70 {
		t.Errorf("Mean = %d, want 70", got)
	}
	if !flaky.failed.Load() {
		t.Error("Accept error was never injected")
	}

	select {
	case err := <-done:
		t.Fatalf("Serve returned after a transient accept error: %v", err)
	default:
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServer_ClosedListenerStopsServe(t *testing.T) {
	srv := startTestServer(t, "defer")
	conn := dial(t, srv)
	send(t, conn, codec.Insert(1, 1))
	waitFor(t, "session to open", func() bool { return srv.Registry.Active() == 1 })

	srv.listener.Close()

	// Live sessions are closed once the accept loop ends
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Read(make([]byte, 1)); err == nil {
		t.Error("Session should be closed when the listener goes away")
	}
	waitFor(t, "sessions to drain", func() bool { return srv.Registry.Active() == 0 })
}

type failingArchive struct {
	storage.MemoryArchive
}

func (failingArchive) SaveSessionSummary(ctx context.Context, s models.MSessionSummary) error {
	return errors.New("disk full")
}

func TestServer_ArchiveFailuresAreCounted(t *testing.T) {
	srv := startTestServer(t, "defer", func(s *MeansServer) { s.Archive = &failingArchive{} })

	conn := dial(t, srv)
	send(t, conn, codec.Insert(1, 1))
	conn.Close()

	waitFor(t, "archive failure to be counted", func() bool { return srv.Metrics().ArchiveErrors == 1 })

	// The failure never reaches other clients
	next := dial(t, srv)
	send(t, next, codec.Query(0, 10))
	if got := readReply(t, next); got != 0 {
		t.Errorf("Mean = %d, want 0", got)
	}
}
