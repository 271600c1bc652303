package server

import (
	"testing"
	"time"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	a := NewSessionStats("a", "10.0.0.1:1")
	b := NewSessionStats("b", "10.0.0.2:1")
	b.OpenedAt = a.OpenedAt.Add(time.Second)

	r.Open(b)
	r.Open(a)
	a.inserts.Add(3)
	a.bytesIn.Add(27)
	b.queries.Add(1)
	b.errors.Add(1)
	b.bytesOut.Add(8)

	active := r.ActiveSessions()
	if len(active) != 2 || active[0].ID != "a" || active[1].ID != "b" {
		t.Fatalf("Expected sessions oldest first, got %+v", active)
	}

	m := r.Metrics()
	if m.ActiveSessions != 2 || m.SessionsTotal != 2 {
		t.Errorf("Unexpected session counts: %+v", m)
	}
	if m.FramesTotal != 5 || m.InsertsTotal != 3 || m.QueriesTotal != 1 || m.ErrorsTotal != 1 {
		t.Errorf("Unexpected frame counts: %+v", m)
	}

	// Closed sessions stay in the totals
	r.Close("a")
	r.Close("a")
	r.Reject()

	m = r.Metrics()
	if m.ActiveSessions != 1 || r.Active() != 1 {
		t.Errorf("ActiveSessions = %d, want 1", m.ActiveSessions)
	}
	if m.InsertsTotal != 3 || m.BytesIn != 27 || m.BytesOut != 8 || m.FramesTotal != 5 {
		t.Errorf("Totals lost after close: %+v", m)
	}
	if m.SessionsTotal != 2 || m.SessionsRejected != 1 {
		t.Errorf("Unexpected session totals: %+v", m)
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 50},
		{"10", 10},
		{"0", 50},
		{"-3", 50},
		{"abc", 50},
		{"5000", 1000},
	}
	for _, tt := range tests {
		if got := parseLimit(tt.raw, 50, 1000); got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestNextAcceptDelay(t *testing.T) {
	d := nextAcceptDelay(0)
	if d != 5*time.Millisecond {
		t.Errorf("First delay = %v, want 5ms", d)
	}
	for i := 0; i < 20; i++ {
		d = nextAcceptDelay(d)
	}
	if d != time.Second {
		t.Errorf("Delay should cap at 1s, got %v", d)
	}
}
