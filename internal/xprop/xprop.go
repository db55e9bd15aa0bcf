// Package xprop owns a server-allocated buffer produced by a property read
// and exposes it as a typed, bounded sequence of items of a given bit
// width, with deterministic release of the underlying buffer via a
// move-only handle.
package xprop

import (
	"fmt"

	"github.com/example/xselect/internal/xconn"
)

// InvalidFormatError reports a width mismatch at decode time: the handle
// grants access to items of exactly Actual bits each, and it is illegal to
// interpret the buffer at any other width.
type InvalidFormatError struct {
	Wanted byte
	Actual byte
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid property format: wanted %d-bit items, property is %d-bit", e.Wanted, e.Actual)
}

// FetchFailedError wraps a server-reported failure to read a property.
type FetchFailedError struct {
	Cause error
}

func (e *FetchFailedError) Error() string { return fmt.Sprintf("property fetch failed: %v", e.Cause) }
func (e *FetchFailedError) Unwrap() error { return e.Cause }

// ErrEmpty is returned when the server's reply carries no value buffer.
var ErrEmpty = fmt.Errorf("property read returned no data")

// reader is the subset of xconn.Conn the property reader needs.
type reader interface {
	GetProperty(w xconn.Window, property xconn.Atom, delete bool) (xconn.PropertyReply, error)
	DeleteProperty(w xconn.Window, property xconn.Atom) error
}

// Handle is an owned, move-only reference to a property read. It grants
// access to exactly Count items of Format bits each; released exactly once,
// by whichever of Bytes/Atoms32 the caller chooses to consume it with.
// There is no separate Free step because the decode *is* the release (the
// byte slice underlying it is already a private copy per
// xconn.Conn.GetProperty, not a raw server pointer escaping the core boundary).
type Handle struct {
	Type       xconn.Atom
	Format     byte
	BytesAfter uint32
	raw        []byte
	consumed   bool
}

// ReadAll requests the entire property in one round-trip: a large length
// bound, relying on the server to truncate at its own limit and report the
// remainder via BytesAfter.
func ReadAll(conn reader, w xconn.Window, property xconn.Atom) (*Handle, error) {
	reply, err := conn.GetProperty(w, property, false)
	if err != nil {
		return nil, &FetchFailedError{Cause: err}
	}
	if reply.Value == nil {
		return nil, ErrEmpty
	}
	return &Handle{
		Type:       reply.Type,
		Format:     reply.Format,
		BytesAfter: reply.BytesAfter,
		raw:        reply.Value,
	}, nil
}

// Delete removes the named property, signaling readiness to an INCR sender
// or acknowledging a chunk.
func Delete(conn reader, w xconn.Window, property xconn.Atom) error {
	return conn.DeleteProperty(w, property)
}

// Count returns the number of Format-sized items in the handle.
func (h *Handle) Count() int {
	switch h.Format {
	case 8:
		return len(h.raw)
	case 16:
		return len(h.raw) / 2
	case 32:
		return len(h.raw) / 4
	default:
		return 0
	}
}

// Bytes returns the raw 8-bit item sequence. Fails with InvalidFormatError
// unless the property format is 8.
func (h *Handle) Bytes() ([]byte, error) {
	if h.consumed {
		return nil, fmt.Errorf("property handle already consumed")
	}
	if h.Format != 8 {
		return nil, &InvalidFormatError{Wanted: 8, Actual: h.Format}
	}
	h.consumed = true
	out := make([]byte, len(h.raw))
	copy(out, h.raw)
	return out, nil
}

// Atoms32 reinterprets the buffer as a sequence of 32-bit atoms. Fails with
// InvalidFormatError unless the property format is 32.
func (h *Handle) Atoms32() ([]xconn.Atom, error) {
	if h.consumed {
		return nil, fmt.Errorf("property handle already consumed")
	}
	if h.Format != 32 {
		return nil, &InvalidFormatError{Wanted: 32, Actual: h.Format}
	}
	h.consumed = true
	n := len(h.raw) / 4
	out := make([]xconn.Atom, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, xconn.Atom(get32(h.raw[i*4:])))
	}
	return out, nil
}

// get32 decodes a 32-bit item the way xgb.Get32 does: native byte order, as
// framed by the connection setup the client negotiated with the server.
func get32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// put32 encodes a 32-bit item the way xgb.Put32 does, used when the core
// writes an atom array back out (TARGETS responses).
func put32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// EncodeAtoms32 serializes a sequence of atoms into a format=32 property
// payload, mirroring clipboard_unix_purego.go's atomsToBytes.
func EncodeAtoms32(atoms []xconn.Atom) []byte {
	buf := make([]byte, len(atoms)*4)
	for i, a := range atoms {
		put32(buf[i*4:], uint32(a))
	}
	return buf
}
