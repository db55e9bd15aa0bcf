package xprop

import (
	"errors"
	"testing"

	"github.com/example/xselect/internal/xconn"
)

// fakeReader is a minimal reader stand-in backed by a single canned reply.
type fakeReader struct {
	reply        xconn.PropertyReply
	empty        bool
	fetchErr     error
	deletedAtoms []xconn.Atom
}

func (f *fakeReader) GetProperty(w xconn.Window, property xconn.Atom, delete bool) (xconn.PropertyReply, error) {
	if f.fetchErr != nil {
		return xconn.PropertyReply{}, f.fetchErr
	}
	if f.empty {
		return xconn.PropertyReply{}, nil
	}
	return f.reply, nil
}

func (f *fakeReader) DeleteProperty(w xconn.Window, property xconn.Atom) error {
	f.deletedAtoms = append(f.deletedAtoms, property)
	return nil
}

func TestReadAllEmptyReturnsErrEmpty(t *testing.T) {
	r := &fakeReader{empty: true}
	if _, err := ReadAll(r, 1, 2); !errors.Is(err, ErrEmpty) {
		t.Fatalf("ReadAll = %v, want ErrEmpty", err)
	}
}

func TestReadAllFetchFailure(t *testing.T) {
	cause := errors.New("boom")
	r := &fakeReader{fetchErr: cause}
	_, err := ReadAll(r, 1, 2)
	var ffe *FetchFailedError
	if !errors.As(err, &ffe) {
		t.Fatalf("ReadAll = %v, want *FetchFailedError", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("FetchFailedError does not unwrap to the underlying cause")
	}
}

func TestBytesWrongFormat(t *testing.T) {
	r := &fakeReader{reply: xconn.PropertyReply{Format: 32, Value: []byte{1, 2, 3, 4}}}
	h, err := ReadAll(r, 1, 2)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	_, err = h.Bytes()
	var ife *InvalidFormatError
	if !errors.As(err, &ife) {
		t.Fatalf("Bytes() on a 32-bit property = %v, want *InvalidFormatError", err)
	}
	if ife.Wanted != 8 || ife.Actual != 32 {
		t.Fatalf("InvalidFormatError = %+v, want Wanted=8 Actual=32", ife)
	}
}

func TestBytesDecodesEightBitProperty(t *testing.T) {
	want := []byte("hello, world")
	r := &fakeReader{reply: xconn.PropertyReply{Format: 8, Value: want}}
	h, err := ReadAll(r, 1, 2)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if h.Count() != len(want) {
		t.Fatalf("Count() = %d, want %d", h.Count(), len(want))
	}
	got, err := h.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("Bytes() = %q, want %q", got, want)
	}
}

func TestBytesConsumedOnce(t *testing.T) {
	r := &fakeReader{reply: xconn.PropertyReply{Format: 8, Value: []byte("x")}}
	h, err := ReadAll(r, 1, 2)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if _, err := h.Bytes(); err != nil {
		t.Fatalf("first Bytes(): %v", err)
	}
	if _, err := h.Bytes(); err == nil {
		t.Fatal("second Bytes() on the same handle must fail")
	}
}

func TestAtoms32RoundTrip(t *testing.T) {
	atoms := []xconn.Atom{7, 42, 1000, 0}
	payload := EncodeAtoms32(atoms)
	r := &fakeReader{reply: xconn.PropertyReply{Format: 32, Value: payload}}
	h, err := ReadAll(r, 1, 2)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if h.Count() != len(atoms) {
		t.Fatalf("Count() = %d, want %d", h.Count(), len(atoms))
	}
	got, err := h.Atoms32()
	if err != nil {
		t.Fatalf("Atoms32: %v", err)
	}
	if len(got) != len(atoms) {
		t.Fatalf("Atoms32() returned %d atoms, want %d", len(got), len(atoms))
	}
	for i, a := range atoms {
		if got[i] != a {
			t.Fatalf("Atoms32()[%d] = %d, want %d", i, got[i], a)
		}
	}
}

func TestAtoms32WrongFormat(t *testing.T) {
	r := &fakeReader{reply: xconn.PropertyReply{Format: 8, Value: []byte("x")}}
	h, err := ReadAll(r, 1, 2)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if _, err := h.Atoms32(); err == nil {
		t.Fatal("Atoms32() on an 8-bit property must fail")
	}
}

func TestDeleteDelegatesToConn(t *testing.T) {
	r := &fakeReader{}
	if err := Delete(r, 1, 9); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(r.deletedAtoms) != 1 || r.deletedAtoms[0] != 9 {
		t.Fatalf("deletedAtoms = %v, want [9]", r.deletedAtoms)
	}
}
