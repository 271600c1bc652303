package helpers

import (
	"context"
	"errors"
	"testing"
	"time"

	"means-server/src/logger"
)

func TestErrorHandler(t *testing.T) {
	h := NewErrorHandler(logger.NewNopLogger())

	if h.Handle(nil, "noop") {
		t.Error("nil error should not be handled")
	}
	if !h.Handle(errors.New("boom"), "work") {
		t.Error("error should be handled")
	}
	h.Handle(NewDatabaseError("save", errors.New("locked")), "archive")

	if got := h.ErrorCount(); got != 2 {
		t.Errorf("ErrorCount = %d, want 2", got)
	}
}

func TestErrorTypesUnwrap(t *testing.T) {
	cause := errors.New("reset by peer")
	err := error(NewConnectionError("write reply", cause))

	if !errors.Is(err, cause) {
		t.Error("ConnectionError should unwrap to its cause")
	}
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Errorf("errors.As failed for %T", err)
	}
	if err.Error() == "" {
		t.Error("Error message should not be empty")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), logger.NewNopLogger(), "flaky", 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RetryWithBackoff failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
