package panel

import (
	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// Conn is the subset of the X11 protocol used by the panel.
//
// Requests come in two kinds. One-way requests are queued and return
// immediately; they are delivered to the server no later than the next call
// to Flush. Synchronous requests (InternAtom, SelectionOwner) block until the
// server replies.
//
// Asynchronous errors caused by one-way requests are reported through
// WaitForEvent, never by the request itself.
type Conn interface {
	// NewWindowID allocates an identifier for a window that is about to be
	// created.
	NewWindowID() (xproto.Window, error)

	// InternAtom resolves name to an atom, creating it if necessary.
	InternAtom(name string) (xproto.Atom, error)

	// SelectionOwner returns the current owner of selection, or
	// xproto.WindowNone.
	SelectionOwner(selection xproto.Atom) (xproto.Window, error)

	SetSelectionOwner(owner xproto.Window, selection xproto.Atom)
	SendClientMessage(dest xproto.Window, mask uint32, ev xproto.ClientMessageEvent)

	// CreateWindow creates an input-output child of parent with the given
	// geometry, background pixel and event mask.
	CreateWindow(win, parent xproto.Window, x, y int16, width, height uint16, background, events uint32)
	SelectInput(win xproto.Window, events uint32)
	AddToSaveSet(win xproto.Window)
	ReparentWindow(win, parent xproto.Window, x, y int16)
	MapWindow(win xproto.Window)
	UnmapWindow(win xproto.Window)
	DestroyWindow(win xproto.Window)
	MoveWindow(win xproto.Window, x, y int16)
	ResizeWindow(win xproto.Window, width uint16)

	// CopyArea copies a width×height rectangle at (srcX, 0) of src into dst
	// at (dstX, 0).
	CopyArea(src xproto.Drawable, dst xproto.Window, srcX, dstX int16, width, height uint16)

	// Flush sends all queued one-way requests.
	Flush()

	// WaitForEvent blocks until an event or an asynchronous error arrives.
	// Both return values are nil once the connection is closed.
	WaitForEvent() (xgb.Event, xgb.Error)
}
