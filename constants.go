package xselect

import (
	"github.com/example/xselect/internal/atoms"
	"github.com/example/xselect/internal/xconn"
)

// Atom is a 32-bit server-assigned name identifier. Zero is the "None"
// sentinel.
type Atom = xconn.Atom

// Well-known selection names. Published as plain strings because that is
// the interning ABI: callers name a selection or target, the Session
// resolves it to an atom, interning on first use any name it did not
// already intern at construction.
const (
	SelectionPrimary   = atoms.Primary
	SelectionSecondary = atoms.Secondary
	SelectionClipboard = atoms.Clipboard
)

// Common target names. TargetsMeta is the pseudo-target that
// asks an owner to enumerate the formats it supports; use ListTargets for
// it rather than GetSelection.
const (
	TargetsMeta          = atoms.Targets
	TargetString         = atoms.StringType
	TargetUTF8String     = atoms.Utf8String
	TargetTextPlain      = "text/plain"
	TargetTextPlainUTF8  = "text/plain;charset=utf-8"
	TargetTextHTML       = "text/html"
	TargetImagePNG       = "image/png"
	TargetImageJPG       = "image/jpg"
	TargetImageJPEG      = "image/jpeg"
)
