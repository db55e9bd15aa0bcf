// Package xselect implements the core of the X11 inter-client selection
// transfer protocol (ICCCM §2): negotiating selection ownership, issuing
// ConvertSelection requests, answering SelectionRequest events as an owner,
// and streaming payloads too large for a single property write via the
// INCR side-protocol.
//
// A Session plays both the requestor role (pasting) and the owner role
// (copying) over one hidden sink window and one event queue. It is not
// safe to call Session methods concurrently, nor to call one from within
// a callback the Session itself is not running: there is no internal
// parallelism, the X server supplies the ordering.
//
// The FFI surface (github.com/jezek/xgb) and the X server it talks to are
// external collaborators; this package never names xgb/xproto types beyond
// the Atom alias exported for caller convenience.
package xselect
