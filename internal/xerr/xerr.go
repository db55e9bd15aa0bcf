// Package xerr is the asynchronous, process-wide error dispatcher. The X
// server reports some errors out-of-band from the request that caused
// them; a pure-Go client surfaces those interleaved in the event stream
// rather than through a C-style XSetErrorHandler callback, so this
// package's Dispatch is the sink every xconn event-wait path routes
// through. It logs and returns; it never aborts the in-flight operation and
// it must never panic.
package xerr

import (
	"log/slog"
	"sync"
)

// ProtoError is the minimal shape of a server-reported protocol error. The
// generated per-extension error types in github.com/jezek/xgb satisfy it
// structurally; this package does not need to import xgb to consume them.
type ProtoError interface {
	SequenceId() uint16
	BadId() uint32
	Error() string
}

// ProtocolError is the in-band representation callers can match against with
// errors.As once an async error has invalidated an in-flight operation.
type ProtocolError struct {
	Sequence uint16
	BadID    uint32
	Message  string
}

func (e *ProtocolError) Error() string {
	return "x11 protocol error: " + e.Message
}

var mu sync.Mutex

// logger is the process-wide sink. Guarded by mu; Dispatch only ever logs,
// so no state beyond the logger is shared.
var logger = slog.Default()

// SetLogger overrides the logger Dispatch writes to. Intended for Session
// construction via internal/config, not for per-call use.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l != nil {
		logger = l
	}
}

// Dispatch records a server-reported protocol error out-of-band. It never
// returns an error and never panics: callers invoke it fire-and-forget from
// inside an event-wait loop.
func Dispatch(err ProtoError) {
	mu.Lock()
	l := logger
	mu.Unlock()

	l.Warn("x11 protocol error",
		slog.Uint64("sequence", uint64(err.SequenceId())),
		slog.Uint64("bad_id", uint64(err.BadId())),
		slog.String("detail", err.Error()),
	)
}

// AsProtocolError converts a dispatched ProtoError into the in-band
// *ProtocolError type used by the error taxonomy, for the rare case where a
// caller must correlate a specific async error to a later failure.
func AsProtocolError(err ProtoError) *ProtocolError {
	return &ProtocolError{
		Sequence: err.SequenceId(),
		BadID:    err.BadId(),
		Message:  err.Error(),
	}
}
