package xselect

import (
	"errors"
	"testing"

	"github.com/example/xselect/internal/xconn"
	"github.com/example/xselect/internal/xprop"
)

func TestListTargetsFiltersZeroAtoms(t *testing.T) {
	s, fake := newTestSession(t)

	fake.Push(xconn.PropertyNotifyEvent{Window: s.win, Atom: s.reg.Dummy, Time: 1, State: xconn.PropertyNewValue})
	fake.Push(xconn.SelectionNotifyEvent{
		Time: 1, Requestor: s.win,
		Selection: s.reg.Clipboard, Target: s.reg.Targets, Property: s.reg.Scratch,
	})
	fake.SetProperty(s.win, s.reg.Scratch, xconn.PropertyReply{
		Type:   s.reg.AtomType,
		Format: 32,
		Value:  xprop.EncodeAtoms32([]xconn.Atom{s.reg.Utf8, 0, s.reg.String}),
	})

	targets, err := s.ListTargets("CLIPBOARD")
	if err != nil {
		t.Fatalf("ListTargets: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("ListTargets returned %d targets, want 2 (zero atom filtered out): %v", len(targets), targets)
	}
	if targets[0] != s.reg.Utf8 || targets[1] != s.reg.String {
		t.Fatalf("ListTargets = %v, want [Utf8, String]", targets)
	}
}

func TestListTargetsSelectionLost(t *testing.T) {
	s, fake := newTestSession(t)

	fake.Push(xconn.PropertyNotifyEvent{Window: s.win, Atom: s.reg.Dummy, Time: 1, State: xconn.PropertyNewValue})
	fake.Push(xconn.SelectionNotifyEvent{
		Time: 1, Requestor: s.win,
		Selection: s.reg.Clipboard, Target: s.reg.Targets, Property: 0,
	})

	if _, err := s.ListTargets("CLIPBOARD"); !errors.Is(err, ErrSelectionLost) {
		t.Fatalf("ListTargets = %v, want ErrSelectionLost", err)
	}
}

func TestListTargetsUnexpectedProperty(t *testing.T) {
	s, fake := newTestSession(t)

	foreign, err := fake.InternAtom("SOME_OTHER_PROPERTY")
	if err != nil {
		t.Fatalf("InternAtom: %v", err)
	}

	fake.Push(xconn.PropertyNotifyEvent{Window: s.win, Atom: s.reg.Dummy, Time: 1, State: xconn.PropertyNewValue})
	fake.Push(xconn.SelectionNotifyEvent{
		Time: 1, Requestor: s.win,
		Selection: s.reg.Clipboard, Target: s.reg.Targets, Property: foreign,
	})

	if _, err := s.ListTargets("CLIPBOARD"); !errors.Is(err, ErrUnexpectedProperty) {
		t.Fatalf("ListTargets = %v, want ErrUnexpectedProperty", err)
	}
}
