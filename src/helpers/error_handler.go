package helpers

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"means-server/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type MeansError struct {
	Message string
	Cause   error
}

func (e *MeansError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *MeansError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As
type FormatError struct{ MeansError }     // frame could not be decoded
type RangeError struct{ MeansError }      // value does not fit in 32 bits
type ConnectionError struct{ MeansError } // transport failure, fatal to one session
type ConfigurationError struct{ MeansError }
type DatabaseError struct{ MeansError }

func NewFormatError(format string, args ...interface{}) *FormatError {
	return &FormatError{MeansError{Message: fmt.Sprintf(format, args...)}}
}

func NewRangeError(format string, args ...interface{}) *RangeError {
	return &RangeError{MeansError{Message: fmt.Sprintf(format, args...)}}
}

func NewConnectionError(message string, cause error) *ConnectionError {
	return &ConnectionError{MeansError{Message: message, Cause: cause}}
}

func NewDatabaseError(message string, cause error) *DatabaseError {
	return &DatabaseError{MeansError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn up to maxRetries times, doubling baseDelay after each failure.
// Only used for startup I/O; frame errors are deterministic and never retried.
func RetryWithBackoff(ctx context.Context, log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		if log != nil {
			log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, maxRetries, lastErr)
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler logs errors for background work and keeps a running count
type ErrorHandler struct {
	Logger     *logger.Logger
	errorCount atomic.Int64
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{Logger: log}
}

// -----------------------------------------------------------------------------

// ErrorCount returns how many errors have been handled since start
func (e *ErrorHandler) ErrorCount() int64 {
	return e.errorCount.Load()
}

// -----------------------------------------------------------------------------

// Handle logs err (if any) and returns true when there was one
func (e *ErrorHandler) Handle(err error, context string) bool {
	if err == nil {
		return false
	}
	e.errorCount.Add(1)
	e.Logger.Error("Error in %s: %v", context, err)
	return true
}
