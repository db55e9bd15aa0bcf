package xselect

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/example/xselect/internal/atoms"
	"github.com/example/xselect/internal/config"
	"github.com/example/xselect/internal/xconn"
	"github.com/example/xselect/internal/xerr"
)

// Option configures a Session. See internal/config for the underlying
// tunables; these wrappers are re-exported here so callers never need to
// import an internal package.
type Option = config.Option

var (
	// WithIdleDeadline overrides how long SetSelection's owner loop waits
	// for a queued event before concluding "set and forget" succeeded.
	// Zero means block until SelectionClear (daemon variant).
	WithIdleDeadline = config.WithIdleDeadline

	// WithIncrChunkSize overrides the INCR write chunk size used when this
	// Session is the owner of an oversized payload.
	WithIncrChunkSize = config.WithIncrChunkSize

	// WithIncrReceiveTimeout overrides how long GetSelection waits for the
	// next INCR chunk before failing with ErrIncrTimeout.
	WithIncrReceiveTimeout = config.WithIncrReceiveTimeout

	// WithRequestMargin overrides the header-size safety margin subtracted
	// from the server's maximum request size.
	WithRequestMargin = config.WithRequestMargin

	// WithLogger overrides the structured logger used for diagnostics and
	// the process-wide protocol error sink.
	WithLogger = config.WithLogger
)

// Session holds the display connection, the hidden sink window used as
// both requestor and owner, the atom registry, and the negotiated maximum
// request size. Single-owner; operations are serialized on one logical
// actor and must not be called concurrently or reentrantly.
type Session struct {
	conn           xconn.Conn
	win            xconn.Window
	reg            *atoms.Registry
	cfg            *config.Config
	maxRequestSize uint32
	id             string
}

// Init acquires an FFI handle, installs the process-wide asynchronous error
// sink, opens the default display, creates the sink window, interns the
// well-known atoms, and queries the server's maximum request size. It fails
// with ErrDisplayUnavailable if the display cannot be opened.
func Init(opts ...Option) (*Session, error) {
	cfg := config.New(opts...)
	xerr.SetLogger(cfg.Logger)

	conn, err := xconn.Connect()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDisplayUnavailable, err)
	}

	win, err := conn.NewWindow(xconn.EventMaskPropertyChange)
	if err != nil {
		conn.Close()
		return nil, wrapInit("create sink window", err)
	}

	id := uuid.New().String()
	reg, err := atoms.New(conn, id)
	if err != nil {
		conn.Close()
		return nil, wrapInit("intern well-known atoms", err)
	}

	s := &Session{
		conn:           conn,
		win:            win,
		reg:            reg,
		cfg:            cfg,
		maxRequestSize: conn.MaxRequestSize(),
		id:             id,
	}
	cfg.Logger.Debug("xselect session initialized",
		slog.String("session_id", id),
		slog.Uint64("max_request_size", uint64(s.maxRequestSize)),
	)
	return s, nil
}

// Close tears down the session: closing the display implicitly destroys
// the sink window and releases any selection ownership it held.
func (s *Session) Close() error {
	s.conn.Close()
	return nil
}

// compliantTimestamp obtains a protocol-compliant server timestamp:
// append a zero-length change to the DUMMY property, then drain events
// until the resulting PropertyNotify arrives. ICCCM forbids citing
// CurrentTime in a SetSelectionOwner or ConvertSelection request.
func (s *Session) compliantTimestamp() (xconn.Timestamp, error) {
	if err := s.conn.ChangeProperty(s.win, s.reg.Dummy, s.reg.Dummy, 8, xconn.PropModeAppend, nil); err != nil {
		return 0, fmt.Errorf("dummy property append: %w", err)
	}
	s.conn.Flush()

	for {
		ev, err := s.conn.NextEvent()
		if err != nil {
			return 0, err
		}
		if pn, ok := ev.(xconn.PropertyNotifyEvent); ok && pn.Atom == s.reg.Dummy {
			return pn.Time, nil
		}
		// All other events encountered during the drain are either stale or
		// will be re-generated once we act on the timestamp.
	}
}

// convertAndAwait issues ConvertSelection for (selection, target) against
// our SCRATCH property and waits for the correlated SelectionNotify.
func (s *Session) convertAndAwait(selection, target xconn.Atom) (xconn.SelectionNotifyEvent, error) {
	timestamp, err := s.compliantTimestamp()
	if err != nil {
		return xconn.SelectionNotifyEvent{}, fmt.Errorf("compliant timestamp: %w", err)
	}

	if err := s.conn.ConvertSelection(s.win, selection, target, s.reg.Scratch, timestamp); err != nil {
		return xconn.SelectionNotifyEvent{}, fmt.Errorf("convert selection: %w", err)
	}
	s.conn.Flush()

	for {
		ev, err := s.conn.NextEvent()
		if err != nil {
			return xconn.SelectionNotifyEvent{}, err
		}
		sn, ok := ev.(xconn.SelectionNotifyEvent)
		if !ok {
			continue
		}
		if sn.Requestor != s.win || sn.Selection != selection || sn.Target != target {
			return xconn.SelectionNotifyEvent{}, fmt.Errorf("%w: got selection=%d target=%d property=%d",
				ErrBadSelection, sn.Selection, sn.Target, sn.Property)
		}

		selName, _ := s.reg.NameOf(sn.Selection)
		targetName, _ := s.reg.NameOf(sn.Target)
		propName, _ := s.reg.NameOf(sn.Property)
		s.cfg.Logger.Debug("selection notify",
			slog.Uint64("time", uint64(sn.Time)),
			slog.String("selection", selName),
			slog.String("target", targetName),
			slog.String("property", propName),
		)
		return sn, nil
	}
}
