package xselect

import (
	"errors"
	"fmt"

	"github.com/example/xselect/internal/xerr"
	"github.com/example/xselect/internal/xprop"
)

// Error taxonomy. Kinds that carry no data are sentinel errors matched
// with errors.Is; kinds that carry data (a server error code, a format
// mismatch) are typed errors matched with errors.As.
var (
	// ErrDisplayUnavailable surfaces from Init when opening the display
	// returned null.
	ErrDisplayUnavailable = errors.New("x11 display unavailable")

	// ErrLibraryLoad is never returned by this backend: github.com/jezek/xgb
	// is a pure-Go client with no dynamic symbol binding step, so there is
	// no "FFI shim failed to load" failure mode to surface. Retained so
	// callers written against the full error taxonomy can still match on it.
	ErrLibraryLoad = errors.New("ffi shim failed to bind symbols")

	// ErrBadSelection surfaces when a SelectionNotify arrives that does not
	// correlate to the pending ConvertSelection request.
	ErrBadSelection = errors.New("selection notify did not match the pending request")

	// ErrSelectionLost surfaces when SelectionNotify.property == 0: the
	// owner refused or is absent.
	ErrSelectionLost = errors.New("selection owner refused or is absent")

	// ErrUnexpectedProperty surfaces when the result was placed into a
	// property other than the one we asked for.
	ErrUnexpectedProperty = errors.New("selection notify placed data in an unexpected property")

	// ErrIncrTimeout surfaces when an INCR stream stalls past the
	// configured receive deadline.
	ErrIncrTimeout = errors.New("incr transfer stalled past deadline")

	// ErrNotOwner surfaces when the server did not grant us selection
	// ownership after SetSelectionOwner.
	ErrNotOwner = errors.New("server refused selection ownership transfer")
)

// ErrEmpty surfaces when a property read returned a null buffer.
var ErrEmpty = xprop.ErrEmpty

// InvalidFormatError surfaces when decoding a property at a width other
// than its declared format.
type InvalidFormatError = xprop.InvalidFormatError

// FetchFailedError surfaces when GetWindowProperty returns a non-success
// status.
type FetchFailedError = xprop.FetchFailedError

// ProtocolError is the in-band form of an async, out-of-band server error
// reported through internal/xerr, for callers that must correlate a prior
// Dispatch to a later in-band failure.
type ProtocolError = xerr.ProtocolError

func wrapInit(stage string, err error) error {
	return fmt.Errorf("xselect: init %s: %w", stage, err)
}
