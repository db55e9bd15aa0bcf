// Package xconntest provides an in-memory xconn.Conn for unit testing the
// protocol engine without a running X server. Tests drive it by preloading
// the exact event sequence the code under test is expected to consume, the
// way clipboard_unix_test.go stubs its environment rather than a live
// display.
package xconntest

import (
	"fmt"
	"sync"

	"github.com/example/xselect/internal/xconn"
)

// ChangePropertyCall records one ChangeProperty invocation for assertions.
type ChangePropertyCall struct {
	Window   xconn.Window
	Property xconn.Atom
	Type     xconn.Atom
	Format   byte
	Mode     byte
	Data     []byte
}

// SentNotify records one SendSelectionNotify invocation.
type SentNotify struct {
	Destination xconn.Window
	Event       xconn.SelectionNotifyEvent
}

// Fake is a single-connection, single-process stand-in for xconn.Conn.
// Events are never generated implicitly: tests Push exactly the sequence a
// real server would have produced, in order.
type Fake struct {
	mu sync.Mutex

	nextAtom   xconn.Atom
	atomByName map[string]xconn.Atom
	nameByAtom map[xconn.Atom]string

	nextWindow xconn.Window
	properties map[xconn.Window]map[xconn.Atom]xconn.PropertyReply
	owners     map[xconn.Atom]xconn.Window

	events []any

	ChangePropertyCalls []ChangePropertyCall
	DeletePropertyCalls []struct {
		Window   xconn.Window
		Property xconn.Atom
	}
	SentNotifies []SentNotify

	MaxReq uint32
	Closed bool
}

// New returns an empty Fake with a generous default MaxRequestSize.
func New() *Fake {
	return &Fake{
		atomByName: make(map[string]xconn.Atom),
		nameByAtom: make(map[xconn.Atom]string),
		properties: make(map[xconn.Window]map[xconn.Atom]xconn.PropertyReply),
		owners:     make(map[xconn.Atom]xconn.Window),
		nextAtom:   1,
		nextWindow: 1,
		MaxReq:     65536,
	}
}

// Push enqueues an event to be returned by a future NextEvent/PollEvent call.
func (f *Fake) Push(ev any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

// SetProperty preseeds a property value a subsequent GetProperty will see,
// the way a real peer owner would have written it before sending
// SelectionNotify.
func (f *Fake) SetProperty(w xconn.Window, property xconn.Atom, reply xconn.PropertyReply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wp, ok := f.properties[w]
	if !ok {
		wp = make(map[xconn.Atom]xconn.PropertyReply)
		f.properties[w] = wp
	}
	wp[property] = reply
}

func (f *Fake) InternAtom(name string) (xconn.Atom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.atomByName[name]; ok {
		return a, nil
	}
	a := f.nextAtom
	f.nextAtom++
	f.atomByName[name] = a
	f.nameByAtom[a] = name
	return a, nil
}

func (f *Fake) AtomName(atom xconn.Atom) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.nameByAtom[atom]; ok {
		return n, nil
	}
	return "", fmt.Errorf("xconntest: unknown atom %d", atom)
}

func (f *Fake) NewWindow(eventMask uint32) (xconn.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := f.nextWindow
	f.nextWindow++
	f.properties[w] = make(map[xconn.Atom]xconn.PropertyReply)
	return w, nil
}

func (f *Fake) DestroyWindow(w xconn.Window) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.properties, w)
	return nil
}

func (f *Fake) SelectInput(w xconn.Window, eventMask uint32) error {
	return nil
}

func (f *Fake) ChangeProperty(w xconn.Window, property, typ xconn.Atom, format xconn.Format, mode xconn.PropMode, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ChangePropertyCalls = append(f.ChangePropertyCalls, ChangePropertyCall{
		Window: w, Property: property, Type: typ, Format: format, Mode: mode,
		Data: append([]byte(nil), data...),
	})

	wp, ok := f.properties[w]
	if !ok {
		wp = make(map[xconn.Atom]xconn.PropertyReply)
		f.properties[w] = wp
	}
	value := append([]byte(nil), data...)
	if mode == xconn.PropModeAppend {
		if existing, had := wp[property]; had {
			value = append(append([]byte(nil), existing.Value...), data...)
		}
	}
	wp[property] = xconn.PropertyReply{Type: typ, Format: format, Value: value}
	return nil
}

func (f *Fake) GetProperty(w xconn.Window, property xconn.Atom, del bool) (xconn.PropertyReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wp, ok := f.properties[w]
	if !ok {
		return xconn.PropertyReply{}, fmt.Errorf("xconntest: no properties on window %d", w)
	}
	reply, ok := wp[property]
	if !ok {
		return xconn.PropertyReply{}, fmt.Errorf("xconntest: property %d not set on window %d", property, w)
	}
	if del {
		delete(wp, property)
	}
	// Mirror xgbConn.GetProperty: always a fresh, non-nil slice (even when
	// zero-length) so a real empty property is never mistaken for ErrEmpty.
	out := reply
	out.Value = make([]byte, len(reply.Value))
	copy(out.Value, reply.Value)
	return out, nil
}

func (f *Fake) DeleteProperty(w xconn.Window, property xconn.Atom) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeletePropertyCalls = append(f.DeletePropertyCalls, struct {
		Window   xconn.Window
		Property xconn.Atom
	}{w, property})
	if wp, ok := f.properties[w]; ok {
		delete(wp, property)
	}
	return nil
}

func (f *Fake) ConvertSelection(requestor xconn.Window, selection, target, property xconn.Atom, time xconn.Timestamp) error {
	return nil
}

func (f *Fake) SetSelectionOwner(owner xconn.Window, selection xconn.Atom, time xconn.Timestamp) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners[selection] = owner
	return nil
}

func (f *Fake) GetSelectionOwner(selection xconn.Atom) (xconn.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owners[selection], nil
}

func (f *Fake) SendSelectionNotify(destination xconn.Window, ev xconn.SelectionNotifyEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SentNotifies = append(f.SentNotifies, SentNotify{Destination: destination, Event: ev})
	return nil
}

func (f *Fake) NextEvent() (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil, fmt.Errorf("xconntest: no queued events")
	}
	ev := f.events[0]
	f.events = f.events[1:]
	return ev, nil
}

func (f *Fake) PollEvent() (any, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil, false, nil
	}
	ev := f.events[0]
	f.events = f.events[1:]
	return ev, true, nil
}

func (f *Fake) Flush() {}

func (f *Fake) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
}

func (f *Fake) MaxRequestSize() uint32 {
	return f.MaxReq
}

// SnapshotDeleteCount returns the number of DeleteProperty calls observed so
// far. Safe to call concurrently with the connection under test, for tests
// that drive the fake from a second goroutine acting as a peer.
func (f *Fake) SnapshotDeleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.DeletePropertyCalls)
}

// SnapshotChangePropertyCount returns the number of ChangeProperty calls
// observed so far. Safe to call concurrently with the connection under test.
func (f *Fake) SnapshotChangePropertyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ChangePropertyCalls)
}

var _ xconn.Conn = (*Fake)(nil)
