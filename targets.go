package xselect

import (
	"fmt"

	"github.com/example/xselect/internal/xprop"
)

// ListTargets enumerates the formats the current owner of selection
// advertises. The result contains no zero atoms.
func (s *Session) ListTargets(selection string) ([]Atom, error) {
	selAtom, err := s.reg.Intern(selection)
	if err != nil {
		return nil, fmt.Errorf("intern selection %q: %w", selection, err)
	}

	notify, err := s.convertAndAwait(selAtom, s.reg.Targets)
	if err != nil {
		return nil, err
	}
	if notify.Property == 0 {
		return nil, ErrSelectionLost
	}
	if notify.Property != s.reg.Scratch {
		return nil, ErrUnexpectedProperty
	}

	handle, err := xprop.ReadAll(s.conn, s.win, s.reg.Scratch)
	if err != nil {
		return nil, err
	}
	raw, err := handle.Atoms32()
	if err != nil {
		return nil, err
	}

	targets := make([]Atom, 0, len(raw))
	for _, a := range raw {
		if a != 0 {
			targets = append(targets, a)
		}
	}
	return targets, nil
}
