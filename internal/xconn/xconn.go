// Package xconn is the narrow capability interface the rest of the core
// talks through instead of naming github.com/jezek/xgb directly. It plays
// the role of the FFI shim in the ICCCM protocol engine: open a display,
// intern atoms, create/destroy a window, change/get/delete a property,
// convert a selection, set/get a selection owner, send an event, and drain
// the event queue.
package xconn

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/example/xselect/internal/xerr"
)

// Atom is a 32-bit server-assigned name identifier. Zero is the "None" sentinel.
type Atom = xproto.Atom

// Window is a 32-bit opaque server resource.
type Window = xproto.Window

// Timestamp is a server-relative millisecond clock value. Zero is CurrentTime
// and must never be cited in a ConvertSelection or SetSelectionOwner request.
type Timestamp = xproto.Timestamp

// AtomNone is the X11 "no such atom" sentinel.
const AtomNone = xproto.AtomNone

// PropertyState distinguishes why a PropertyNotify fired.
type PropertyState byte

const (
	PropertyNewValue PropertyState = xproto.PropertyNewValue
	PropertyDelete   PropertyState = xproto.PropertyDelete
)

// Format is the per-item bit width of a property: 8, 16, or 32.
type Format = byte

// PropMode mirrors the ChangeProperty mode argument.
type PropMode = byte

const (
	PropModeReplace PropMode = xproto.PropModeReplace
	PropModeAppend  PropMode = xproto.PropModeAppend
)

// WindowClass mirrors the CreateWindow class argument.
type WindowClass = uint16

const (
	WindowClassInputOutput WindowClass = xproto.WindowClassInputOutput
)

// EventMaskPropertyChange is the event mask required to observe DUMMY
// timestamps and INCR chunk acknowledgements.
const EventMaskPropertyChange = xproto.EventMaskPropertyChange

// PropertyReply is the typed, decoded result of a property read.
type PropertyReply struct {
	Type       Atom
	Format     Format
	BytesAfter uint32
	Value      []byte
}

// PropertyNotifyEvent reports a property change on one of our windows.
type PropertyNotifyEvent struct {
	Window Window
	Atom   Atom
	Time   Timestamp
	State  PropertyState
}

// SelectionRequestEvent reports that a peer wants our selection data.
type SelectionRequestEvent struct {
	Time      Timestamp
	Owner     Window
	Requestor Window
	Selection Atom
	Target    Atom
	Property  Atom
}

// SelectionNotifyEvent reports the answer to a ConvertSelection request.
type SelectionNotifyEvent struct {
	Time      Timestamp
	Requestor Window
	Selection Atom
	Target    Atom
	Property  Atom
}

// SelectionClearEvent reports that our selection ownership was revoked.
type SelectionClearEvent struct {
	Time      Timestamp
	Owner     Window
	Selection Atom
}

// OtherEvent is any event the core does not dispatch on. Never inspected
// beyond its presence; all others are ignored.
type OtherEvent struct{}

// Conn is the capability surface the core (atoms, xprop, session) is built
// against. A fake implementing this interface is enough to unit test the
// protocol engine without a running X server.
type Conn interface {
	InternAtom(name string) (Atom, error)
	AtomName(atom Atom) (string, error)

	NewWindow(eventMask uint32) (Window, error)
	DestroyWindow(w Window) error
	SelectInput(w Window, eventMask uint32) error

	ChangeProperty(w Window, property, typ Atom, format Format, mode PropMode, data []byte) error
	GetProperty(w Window, property Atom, delete bool) (PropertyReply, error)
	DeleteProperty(w Window, property Atom) error

	ConvertSelection(requestor Window, selection, target, property Atom, time Timestamp) error
	SetSelectionOwner(owner Window, selection Atom, time Timestamp) error
	GetSelectionOwner(selection Atom) (Window, error)
	SendSelectionNotify(destination Window, ev SelectionNotifyEvent) error

	NextEvent() (any, error)
	PollEvent() (any, bool, error)
	Flush()
	Close()

	MaxRequestSize() uint32
}

// xgbConn is the production Conn backed by github.com/jezek/xgb.
type xgbConn struct {
	conn *xgb.Conn
	root Window
}

// Connect opens the default X display and resolves the root window, the way
// clipboard_unix_purego.go's initialize does via xgb.NewConn/xproto.Setup.
func Connect() (Conn, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("open display: %w", err)
	}
	setup := xproto.Setup(conn)
	if setup == nil {
		conn.Close()
		return nil, fmt.Errorf("xproto setup unavailable")
	}
	screen := setup.DefaultScreen(conn)
	if screen == nil {
		conn.Close()
		return nil, fmt.Errorf("xproto default screen unavailable")
	}
	return &xgbConn{conn: conn, root: screen.Root}, nil
}

func (c *xgbConn) InternAtom(name string) (Atom, error) {
	reply, err := xproto.InternAtom(c.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("intern atom %q: %w", name, err)
	}
	return reply.Atom, nil
}

func (c *xgbConn) AtomName(atom Atom) (string, error) {
	reply, err := xproto.GetAtomName(c.conn, atom).Reply()
	if err != nil {
		return "", fmt.Errorf("get atom name %d: %w", atom, err)
	}
	return string(reply.Name), nil
}

func (c *xgbConn) NewWindow(eventMask uint32) (Window, error) {
	win, err := xproto.NewWindowId(c.conn)
	if err != nil {
		return 0, fmt.Errorf("allocate window id: %w", err)
	}
	setup := xproto.Setup(c.conn)
	screen := setup.DefaultScreen(c.conn)
	err = xproto.CreateWindowChecked(
		c.conn, screen.RootDepth, win, c.root,
		0, 0, 1, 1, 0,
		WindowClassInputOutput, screen.RootVisual,
		xproto.CwEventMask, []uint32{eventMask},
	).Check()
	if err != nil {
		return 0, fmt.Errorf("create sink window: %w", err)
	}
	return win, nil
}

func (c *xgbConn) DestroyWindow(w Window) error {
	return xproto.DestroyWindowChecked(c.conn, w).Check()
}

func (c *xgbConn) SelectInput(w Window, eventMask uint32) error {
	return xproto.ChangeWindowAttributesChecked(c.conn, w, xproto.CwEventMask, []uint32{eventMask}).Check()
}

func (c *xgbConn) ChangeProperty(w Window, property, typ Atom, format Format, mode PropMode, data []byte) error {
	var length uint32
	switch format {
	case 8:
		length = uint32(len(data))
	case 16:
		length = uint32(len(data) / 2)
	case 32:
		length = uint32(len(data) / 4)
	default:
		return fmt.Errorf("unsupported property format %d", format)
	}
	return xproto.ChangePropertyChecked(c.conn, mode, w, property, typ, format, length, data).Check()
}

func (c *xgbConn) GetProperty(w Window, property Atom, delete bool) (PropertyReply, error) {
	reply, err := xproto.GetProperty(c.conn, delete, w, property, xproto.GetPropertyTypeAny, 0, (1<<31)-1).Reply()
	if err != nil {
		return PropertyReply{}, fmt.Errorf("get property: %w", err)
	}
	if reply == nil {
		return PropertyReply{}, fmt.Errorf("get property: empty reply")
	}
	value := make([]byte, len(reply.Value))
	copy(value, reply.Value)
	return PropertyReply{
		Type:       reply.Type,
		Format:     reply.Format,
		BytesAfter: reply.BytesAfter,
		Value:      value,
	}, nil
}

func (c *xgbConn) DeleteProperty(w Window, property Atom) error {
	return xproto.DeletePropertyChecked(c.conn, w, property).Check()
}

func (c *xgbConn) ConvertSelection(requestor Window, selection, target, property Atom, time Timestamp) error {
	return xproto.ConvertSelectionChecked(c.conn, requestor, selection, target, property, time).Check()
}

func (c *xgbConn) SetSelectionOwner(owner Window, selection Atom, time Timestamp) error {
	return xproto.SetSelectionOwnerChecked(c.conn, owner, selection, time).Check()
}

func (c *xgbConn) GetSelectionOwner(selection Atom) (Window, error) {
	reply, err := xproto.GetSelectionOwner(c.conn, selection).Reply()
	if err != nil {
		return 0, fmt.Errorf("get selection owner: %w", err)
	}
	return reply.Owner, nil
}

func (c *xgbConn) SendSelectionNotify(destination Window, ev SelectionNotifyEvent) error {
	notify := xproto.SelectionNotifyEvent{
		Time:      ev.Time,
		Requestor: ev.Requestor,
		Selection: ev.Selection,
		Target:    ev.Target,
		Property:  ev.Property,
	}
	return xproto.SendEventChecked(c.conn, false, destination, 0, string(notify.Bytes())).Check()
}

// NextEvent blocks for the next event, translating it into one of this
// package's neutral event structs. Protocol errors surfaced by xgb
// (asynchronous, out-of-band from the request that caused them) are routed
// to the process-wide error dispatcher and do not abort the wait; a
// connection-level error does.
func (c *xgbConn) NextEvent() (any, error) {
	for {
		ev, err := c.conn.WaitForEvent()
		if err != nil {
			if protoErr, ok := err.(xgb.Error); ok {
				xerr.Dispatch(protoErr)
				continue
			}
			return nil, fmt.Errorf("wait for event: %w", err)
		}
		if ev == nil {
			return nil, fmt.Errorf("connection closed")
		}
		return translate(ev), nil
	}
}

// PollEvent is the non-blocking counterpart used by the owner loop's idle
// detection and the INCR receive timeout.
func (c *xgbConn) PollEvent() (any, bool, error) {
	ev, err := c.conn.PollForEvent()
	if err != nil {
		if protoErr, ok := err.(xgb.Error); ok {
			xerr.Dispatch(protoErr)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("poll for event: %w", err)
	}
	if ev == nil {
		return nil, false, nil
	}
	return translate(ev), true, nil
}

func translate(ev xgb.Event) any {
	switch e := ev.(type) {
	case xproto.PropertyNotifyEvent:
		return PropertyNotifyEvent{Window: e.Window, Atom: e.Atom, Time: e.Time, State: PropertyState(e.State)}
	case xproto.SelectionRequestEvent:
		return SelectionRequestEvent{
			Time: e.Time, Owner: e.Owner, Requestor: e.Requestor,
			Selection: e.Selection, Target: e.Target, Property: e.Property,
		}
	case xproto.SelectionNotifyEvent:
		return SelectionNotifyEvent{
			Time: e.Time, Requestor: e.Requestor,
			Selection: e.Selection, Target: e.Target, Property: e.Property,
		}
	case xproto.SelectionClearEvent:
		return SelectionClearEvent{Time: e.Time, Owner: e.Owner, Selection: e.Selection}
	default:
		return OtherEvent{}
	}
}

func (c *xgbConn) Flush() {
	// xgb pipelines requests and replies internally; issuing a round-trip
	// request is the idiomatic way to force the write buffer out, matching
	// how the teacher's backend relies on GetInputFocus-style no-ops.
	xproto.GetInputFocus(c.conn).Reply()
}

func (c *xgbConn) Close() {
	c.conn.Close()
}

func (c *xgbConn) MaxRequestSize() uint32 {
	setup := xproto.Setup(c.conn)
	return uint32(setup.MaximumRequestLength) * 4
}
