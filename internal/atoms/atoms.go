// Package atoms is the process-lifetime atom registry: a cache mapping
// well-known and ad-hoc names to their server-assigned atom identifiers.
// intern is idempotent for the life of the display; the well-known set is
// eagerly interned at session init, everything else lazily on first use.
package atoms

import (
	"fmt"
	"sync"

	"github.com/example/xselect/internal/xconn"
)

// Well-known selection names.
const (
	Primary   = "PRIMARY"
	Secondary = "SECONDARY"
	Clipboard = "CLIPBOARD"
)

// Well-known target / pseudo-target names.
const (
	Targets    = "TARGETS"
	AtomType   = "ATOM"
	StringType = "STRING"
	Utf8String = "UTF8_STRING"
	Incr       = "INCR"
)

// interner is the subset of xconn.Conn the registry needs.
type interner interface {
	InternAtom(name string) (xconn.Atom, error)
	AtomName(atom xconn.Atom) (string, error)
}

// Registry caches name -> Atom for the life of a display connection.
type Registry struct {
	conn interner

	mu    sync.RWMutex
	byName map[string]xconn.Atom
	byAtom map[xconn.Atom]string

	// Well-known atoms resolved eagerly at construction.
	Primary   xconn.Atom
	Secondary xconn.Atom
	Clipboard xconn.Atom
	Targets   xconn.Atom
	AtomType  xconn.Atom
	String    xconn.Atom
	Utf8      xconn.Atom
	Incr      xconn.Atom

	// Scratch is the rendezvous property for inbound selection data;
	// Dummy is the property whose zero-length append elicits a compliant
	// timestamp. Both are private, process-instance scoped names so two
	// Sessions in one process never collide.
	Scratch xconn.Atom
	Dummy   xconn.Atom
}

// New interns the well-known set plus the two private scratch atoms named
// with the given unique suffix (see session.go's use of uuid for this).
func New(conn interner, privateSuffix string) (*Registry, error) {
	r := &Registry{
		conn:   conn,
		byName: make(map[string]xconn.Atom),
		byAtom: make(map[xconn.Atom]string),
	}

	wellKnown := []struct {
		name string
		dst  *xconn.Atom
	}{
		{Primary, &r.Primary},
		{Secondary, &r.Secondary},
		{Clipboard, &r.Clipboard},
		{Targets, &r.Targets},
		{AtomType, &r.AtomType},
		{StringType, &r.String},
		{Utf8String, &r.Utf8},
		{Incr, &r.Incr},
		{"XSELECT_SCRATCH_" + privateSuffix, &r.Scratch},
		{"XSELECT_DUMMY_" + privateSuffix, &r.Dummy},
	}

	for _, wk := range wellKnown {
		atom, err := r.intern(wk.name)
		if err != nil {
			return nil, fmt.Errorf("intern well-known atom %q: %w", wk.name, err)
		}
		*wk.dst = atom
	}

	return r, nil
}

// Intern resolves name to its atom, caching the result. Safe to call
// concurrently, though the session is single-threaded by contract.
func (r *Registry) Intern(name string) (xconn.Atom, error) {
	return r.intern(name)
}

func (r *Registry) intern(name string) (xconn.Atom, error) {
	r.mu.RLock()
	if atom, ok := r.byName[name]; ok {
		r.mu.RUnlock()
		return atom, nil
	}
	r.mu.RUnlock()

	atom, err := r.conn.InternAtom(name)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.byName[name] = atom
	r.byAtom[atom] = name
	r.mu.Unlock()
	return atom, nil
}

// NameOf returns the cached name for atom if known, otherwise performs a
// round-trip GetAtomName. The returned string is a copy and safe to
// retain, not a view over a short-lived server buffer.
func (r *Registry) NameOf(atom xconn.Atom) (string, error) {
	r.mu.RLock()
	if name, ok := r.byAtom[atom]; ok {
		r.mu.RUnlock()
		return name, nil
	}
	r.mu.RUnlock()

	name, err := r.conn.AtomName(atom)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.byAtom[atom] = name
	r.byName[name] = atom
	r.mu.Unlock()
	return name, nil
}
