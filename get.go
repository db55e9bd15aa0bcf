package xselect

import (
	"fmt"
	"time"

	"github.com/example/xselect/internal/xconn"
	"github.com/example/xselect/internal/xprop"
)

// GetSelection requests target from selection's current owner and returns
// the raw bytes. target must not be the TargetsMeta pseudo-target; use
// ListTargets for that.
func (s *Session) GetSelection(selection, target string) ([]byte, error) {
	if target == TargetsMeta {
		return nil, fmt.Errorf("xselect: get_selection does not accept %q, use ListTargets", TargetsMeta)
	}

	selAtom, err := s.reg.Intern(selection)
	if err != nil {
		return nil, fmt.Errorf("intern selection %q: %w", selection, err)
	}
	targetAtom, err := s.reg.Intern(target)
	if err != nil {
		return nil, fmt.Errorf("intern target %q: %w", target, err)
	}

	notify, err := s.convertAndAwait(selAtom, targetAtom)
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

	if handle.Type != s.reg.Incr {
		return handle.Bytes()
	}
	return s.receiveIncr()
}

// receiveIncr implements the INCR receive state machine: delete SCRATCH
// to signal readiness, then loop awaiting NewValue
// PropertyNotify events on SCRATCH, reading and deleting on each chunk,
// until a zero-length chunk marks completion. A stalled stream surfaces
// ErrIncrTimeout rather than blocking forever.
func (s *Session) receiveIncr() ([]byte, error) {
	if err := xprop.Delete(s.conn, s.win, s.reg.Scratch); err != nil {
		return nil, fmt.Errorf("delete scratch (incr ready signal): %w", err)
	}

	var acc []byte
	for {
		if err := s.awaitPropertyNewValue(s.reg.Scratch, s.cfg.IncrReceiveTimeout); err != nil {
			return nil, err
		}

		handle, err := xprop.ReadAll(s.conn, s.win, s.reg.Scratch)
		if err != nil {
			return nil, err
		}
		if handle.Count() == 0 {
			return acc, nil
		}

		chunk, err := handle.Bytes()
		if err != nil {
			return nil, err
		}
		acc = append(acc, chunk...)

		if err := xprop.Delete(s.conn, s.win, s.reg.Scratch); err != nil {
			return nil, fmt.Errorf("delete scratch (incr chunk ack): %w", err)
		}
	}
}

// awaitPropertyNewValue polls (rather than blocks) for a NewValue
// PropertyNotify on atom, since an INCR stream that stalls must surface a
// timeout instead of hanging the caller forever.
func (s *Session) awaitPropertyNewValue(atom xconn.Atom, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		ev, ok, err := s.conn.PollEvent()
		if err != nil {
			return err
		}
		if ok {
			if pn, isPN := ev.(xconn.PropertyNotifyEvent); isPN {
				if pn.Atom == atom && pn.State == xconn.PropertyNewValue {
					return nil
				}
			}
			continue
		}
		if time.Now().After(deadline) {
			return ErrIncrTimeout
		}
		time.Sleep(s.cfg.PollInterval)
	}
}
