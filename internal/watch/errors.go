package watch

import (
	"errors"
	"fmt"
)

// Error represents a programmer error detected by the watch engine.
//
// Errors include:
//   - Not watchable: a watcher was requested for a non-aggregate value
//   - Unbalanced queue: more dequeue requests than queue requests
//   - Ref-count underflow: more StopWatching calls than Watch calls
//   - Listener panic: a listener panicked during delivery (see ListenerError)
//
// Sentinel values compare by Code, so errors.Is(err, ErrUnbalancedQueue)
// matches any *Error with that code regardless of WatcherID.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// WatcherID identifies the affected watcher, 0 if none.
	WatcherID int64
}

// ErrorCode categorizes watch errors.
type ErrorCode string

const (
	// ErrCodeNotWatchable indicates a watcher was requested for a scalar or nil.
	ErrCodeNotWatchable ErrorCode = "NOT_WATCHABLE"

	// ErrCodeUnbalancedQueue indicates RequestDequeueChanges without a matching RequestQueueChanges.
	ErrCodeUnbalancedQueue ErrorCode = "UNBALANCED_QUEUE"

	// ErrCodeRefCountUnderflow indicates StopWatching without a matching Watch.
	ErrCodeRefCountUnderflow ErrorCode = "REFCOUNT_UNDERFLOW"

	// ErrCodeListenerPanic indicates a listener panicked during delivery.
	ErrCodeListenerPanic ErrorCode = "LISTENER_PANIC"
)

var (
	ErrNotWatchable      = &Error{Code: ErrCodeNotWatchable, Message: "only objects and arrays can be watched"}
	ErrUnbalancedQueue   = &Error{Code: ErrCodeUnbalancedQueue, Message: "dequeue requested more times than queue"}
	ErrRefCountUnderflow = &Error{Code: ErrCodeRefCountUnderflow, Message: "stop watching requested more times than watch"}
	ErrListenerPanic     = &Error{Code: ErrCodeListenerPanic, Message: "listener panicked"}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.WatcherID != 0 {
		return fmt.Sprintf("%s: %s (watcher=%d)", e.Code, e.Message, e.WatcherID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func newWatcherError(sentinel *Error, watcherID int64) *Error {
	return &Error{Code: sentinel.Code, Message: sentinel.Message, WatcherID: watcherID}
}

// ListenerError reports a listener that panicked. Delivery to the remaining
// listeners continues; the error is logged and handed to the registry's
// listener error handler, never returned to the mutating caller.
type ListenerError struct {
	WatcherID int64
	EventType EventType
	Recursive bool
	Panic     any
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	kind := "listener"
	if e.Recursive {
		kind = "recursive listener"
	}
	return fmt.Sprintf("%s: %s panicked on %s event (watcher=%d): %v",
		ErrCodeListenerPanic, kind, e.EventType, e.WatcherID, e.Panic)
}

// Is matches ErrListenerPanic.
func (e *ListenerError) Is(target error) bool {
	var t *Error
	return errors.As(target, &t) && t.Code == ErrCodeListenerPanic
}

// Unwrap exposes the panic value when it was an error.
func (e *ListenerError) Unwrap() error {
	if err, ok := e.Panic.(error); ok {
		return err
	}
	return nil
}

// IsUnbalancedQueue returns true if the error is an unbalanced queue error.
// Uses errors.As to handle wrapped errors.
func IsUnbalancedQueue(err error) bool {
	return hasCode(err, ErrCodeUnbalancedQueue)
}

// IsRefCountUnderflow returns true if the error is a ref-count underflow.
func IsRefCountUnderflow(err error) bool {
	return hasCode(err, ErrCodeRefCountUnderflow)
}

// IsNotWatchable returns true if the error is a not-watchable error.
func IsNotWatchable(err error) bool {
	return hasCode(err, ErrCodeNotWatchable)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
