package xselect

import (
	"fmt"
	"time"

	"github.com/example/xselect/internal/xconn"
	"github.com/example/xselect/internal/xprop"
)

// SetSelection takes ownership of selection, advertises target as the sole
// data format we honor (plus TargetsMeta), and runs the owner event loop
// until another client preempts us (SelectionClear) or the loop observes a
// quiescent queue past the configured idle deadline.
func (s *Session) SetSelection(selection, target string, data []byte) error {
	selAtom, err := s.reg.Intern(selection)
	if err != nil {
		return fmt.Errorf("intern selection %q: %w", selection, err)
	}
	targetAtom, err := s.reg.Intern(target)
	if err != nil {
		return fmt.Errorf("intern target %q: %w", target, err)
	}

	timestamp, err := s.compliantTimestamp()
	if err != nil {
		return fmt.Errorf("compliant timestamp: %w", err)
	}
	if err := s.conn.SetSelectionOwner(s.win, selAtom, timestamp); err != nil {
		return fmt.Errorf("set selection owner: %w", err)
	}

	owner, err := s.conn.GetSelectionOwner(selAtom)
	if err != nil {
		return fmt.Errorf("get selection owner: %w", err)
	}
	if owner != s.win {
		return ErrNotOwner
	}

	return s.ownerLoop(selAtom, targetAtom, data)
}

// rpKey identifies one in-flight INCR send by the (requestor, property)
// pair the owner wrote to.
type rpKey struct {
	requestor xconn.Window
	property  xconn.Atom
}

// incrSendState is one in-flight INCR send: the payload, a cursor, and the
// chunk size negotiated for this transfer.
type incrSendState struct {
	requestor xconn.Window
	property  xconn.Atom
	target    xconn.Atom
	data      []byte
	cursor    int
	chunkSize int
}

// ownerLoop is the dispatch table: SelectionRequest answers peer
// conversion requests (direct, or begins an INCR transfer for oversized
// payloads); PropertyNotify/Delete paces INCR chunk delivery; SelectionClear
// ends the loop. All other events are ignored.
func (s *Session) ownerLoop(selection, target xconn.Atom, data []byte) error {
	incr := make(map[rpKey]*incrSendState)
	idleSince := time.Now()

	for {
		ev, ok, err := s.conn.PollEvent()
		if err != nil {
			return err
		}
		if !ok {
			// Never idle out mid-transfer: a paused requestor can leave the
			// queue quiescent for longer than IdleDeadline between chunk
			// acknowledgements on a large payload, and abandoning the loop
			// here would strand it.
			if s.cfg.IdleDeadline > 0 && len(incr) == 0 && time.Since(idleSince) > s.cfg.IdleDeadline {
				return nil
			}
			time.Sleep(s.cfg.PollInterval)
			continue
		}
		idleSince = time.Now()

		switch e := ev.(type) {
		case xconn.SelectionRequestEvent:
			if e.Owner != s.win || e.Selection != selection {
				continue
			}
			if err := s.handleSelectionRequest(e, selection, target, data, incr); err != nil {
				s.cfg.Logger.Warn("selection request handling failed", "error", err)
			}
		case xconn.PropertyNotifyEvent:
			if e.State != xconn.PropertyDelete {
				continue
			}
			if err := s.handleIncrAck(e, incr); err != nil {
				s.cfg.Logger.Warn("incr ack handling failed", "error", err)
			}
		case xconn.SelectionClearEvent:
			if e.Selection == selection {
				return nil
			}
		default:
			// ignored
		}
	}
}

// handleSelectionRequest answers one peer SelectionRequest.
func (s *Session) handleSelectionRequest(e xconn.SelectionRequestEvent, selection, target xconn.Atom, data []byte, incr map[rpKey]*incrSendState) error {
	property := e.Property
	if property == xconn.AtomNone {
		// Obsolete client: substitute property := target per ICCCM.
		property = e.Target
	}

	switch e.Target {
	case s.reg.Targets:
		payload := xprop.EncodeAtoms32([]xconn.Atom{s.reg.Targets, target})
		if err := s.conn.ChangeProperty(e.Requestor, property, s.reg.AtomType, 32, xconn.PropModeReplace, payload); err != nil {
			return fmt.Errorf("write targets property: %w", err)
		}
		return s.respond(e, property)

	case target:
		margin := int(s.maxRequestSize) - int(s.cfg.RequestMargin)
		if len(data) < margin {
			if err := s.conn.ChangeProperty(e.Requestor, property, target, 8, xconn.PropModeReplace, data); err != nil {
				return fmt.Errorf("write selection property: %w", err)
			}
			return s.respond(e, property)
		}
		return s.beginIncr(e, property, target, data, incr)

	default:
		return s.respond(e, xconn.AtomNone)
	}
}

// beginIncr starts an INCR transfer for a payload too large to write in one
// ChangeProperty call: enable PropertyChange on the requestor so we observe
// its property deletions, write a zero-byte ty=INCR property, and record
// send state keyed on (requestor, property).
func (s *Session) beginIncr(e xconn.SelectionRequestEvent, property, target xconn.Atom, data []byte, incr map[rpKey]*incrSendState) error {
	if err := s.conn.SelectInput(e.Requestor, xconn.EventMaskPropertyChange); err != nil {
		return fmt.Errorf("select input on requestor: %w", err)
	}
	if err := s.conn.ChangeProperty(e.Requestor, property, s.reg.Incr, 32, xconn.PropModeReplace, nil); err != nil {
		return fmt.Errorf("write incr marker property: %w", err)
	}
	incr[rpKey{e.Requestor, property}] = &incrSendState{
		requestor: e.Requestor,
		property:  property,
		target:    target,
		data:      data,
		chunkSize: s.cfg.EffectiveChunkSize(s.maxRequestSize),
	}
	return s.respond(e, property)
}

// handleIncrAck answers the requestor's property-deletion acknowledgement
// with the next chunk, or clears the send state once the empty-chunk
// terminator has been written.
func (s *Session) handleIncrAck(e xconn.PropertyNotifyEvent, incr map[rpKey]*incrSendState) error {
	key := rpKey{requestor: e.Window, property: e.Atom}
	st, ok := incr[key]
	if !ok {
		return nil
	}

	end := st.cursor + st.chunkSize
	if end > len(st.data) {
		end = len(st.data)
	}
	slice := st.data[st.cursor:end]

	if err := s.conn.ChangeProperty(st.requestor, st.property, st.target, 8, xconn.PropModeReplace, slice); err != nil {
		return fmt.Errorf("write incr chunk: %w", err)
	}
	st.cursor += len(slice)

	if len(slice) == 0 {
		delete(incr, key)
	}
	return nil
}

// respond answers a SelectionRequest with SelectionNotify, echoing the
// request's fields with the resolved property.
func (s *Session) respond(e xconn.SelectionRequestEvent, property xconn.Atom) error {
	err := s.conn.SendSelectionNotify(e.Requestor, xconn.SelectionNotifyEvent{
		Time:      e.Time,
		Requestor: e.Requestor,
		Selection: e.Selection,
		Target:    e.Target,
		Property:  property,
	})
	s.conn.Flush()
	if err != nil {
		return fmt.Errorf("send selection notify: %w", err)
	}
	return nil
}
