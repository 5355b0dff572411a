package panel

import (
	"fmt"
	"unsafe"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/shm"
	"github.com/jezek/xgb/xproto"
)

// wmHintsStateHint marks the initial_state field of WM_HINTS as valid. The
// field itself is left at zero (WithdrawnState), which dock-capable window
// managers interpret as a dock application.
const wmHintsStateHint = 1 << 1

// XConn implements [Conn] on top of an X11 connection.
type XConn struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	gc     xproto.Gcontext
}

// Dial connects to display. Empty display means $DISPLAY.
func Dial(display string) (*XConn, error) {
	conn, err := xgb.NewConnDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("dial: failed to connect to display %q: %w", display, err)
	}

	return &XConn{
		conn:   conn,
		screen: xproto.Setup(conn).DefaultScreen(conn),
	}, nil
}

// Root returns the root window of the default screen.
func (x *XConn) Root() xproto.Window {
	return x.screen.Root
}

// ScreenIndex returns the number of the default screen.
func (x *XConn) ScreenIndex() int {
	return x.conn.DefaultScreen
}

// BlackPixel returns the black pixel value of the default screen.
func (x *XConn) BlackPixel() uint32 {
	return x.screen.BlackPixel
}

// Close closes the connection. Pending WaitForEvent calls return (nil, nil).
func (x *XConn) Close() {
	x.conn.Close()
}

// CreatePanel creates and maps the top-level panel window, height pixels
// square. The window is marked as a dock application and receives exposure
// events.
func (x *XConn) CreatePanel(height uint16) (xproto.Window, error) {
	win, err := xproto.NewWindowId(x.conn)
	if err != nil {
		return 0, fmt.Errorf("create panel: %w", err)
	}

	gc, err := xproto.NewGcontextId(x.conn)
	if err != nil {
		return 0, fmt.Errorf("create panel: %w", err)
	}

	err = xproto.CreateWindowChecked(
		x.conn,
		x.screen.RootDepth,
		win,
		x.screen.Root,
		0, 0, height, height,
		0,
		xproto.WindowClassInputOutput,
		x.screen.RootVisual,
		xproto.CwBackPixel|xproto.CwEventMask,
		[]uint32{x.screen.BlackPixel, xproto.EventMaskExposure},
	).Check()
	if err != nil {
		return 0, fmt.Errorf("create panel: failed to create window: %w", err)
	}

	hints := make([]byte, 9*4)
	xgb.Put32(hints, wmHintsStateHint)

	xproto.ChangeProperty(x.conn, xproto.PropModeReplace, win,
		xproto.AtomWmHints, xproto.AtomWmHints, 32, 9, hints)

	class := "dockapp\x00DockApp"
	xproto.ChangeProperty(x.conn, xproto.PropModeReplace, win,
		xproto.AtomWmClass, xproto.AtomString, 8, uint32(len(class)), []byte(class))

	xproto.CreateGC(x.conn, gc, xproto.Drawable(win), 0, nil)
	xproto.MapWindow(x.conn, win)

	x.gc = gc

	return win, nil
}

// NewSharedBuffer creates a width×height pixmap backed by a shared memory
// segment and returns the segment mapped as 32-bit pixels, row-major.
func (x *XConn) NewSharedBuffer(win xproto.Window, width, height uint16) ([]uint32, xproto.Pixmap, error) {
	if err := shm.Init(x.conn); err != nil {
		return nil, 0, fmt.Errorf("shared buffer: MIT-SHM unavailable: %w", err)
	}

	version, err := shm.QueryVersion(x.conn).Reply()
	if err != nil {
		return nil, 0, fmt.Errorf("shared buffer: failed to query MIT-SHM version: %w", err)
	}

	if !version.SharedPixmaps {
		return nil, 0, fmt.Errorf("shared buffer: server does not support shared pixmaps")
	}

	segment, err := newSegment(int(width) * int(height) * 4)
	if err != nil {
		return nil, 0, fmt.Errorf("shared buffer: %w", err)
	}
	defer segment.release()

	seg, err := shm.NewSegId(x.conn)
	if err != nil {
		return nil, 0, fmt.Errorf("shared buffer: %w", err)
	}

	if err := shm.AttachChecked(x.conn, seg, uint32(segment.id), false).Check(); err != nil {
		return nil, 0, fmt.Errorf("shared buffer: failed to attach segment: %w", err)
	}

	pix, err := xproto.NewPixmapId(x.conn)
	if err != nil {
		return nil, 0, fmt.Errorf("shared buffer: %w", err)
	}

	err = shm.CreatePixmapChecked(x.conn, pix, xproto.Drawable(win),
		width, height, x.screen.RootDepth, seg, 0).Check()
	if err != nil {
		return nil, 0, fmt.Errorf("shared buffer: failed to create pixmap: %w", err)
	}

	pixels := unsafe.Slice((*uint32)(unsafe.Pointer(&segment.data[0])), len(segment.data)/4)

	return pixels, pix, nil
}

func (x *XConn) NewWindowID() (xproto.Window, error) {
	return xproto.NewWindowId(x.conn)
}

func (x *XConn) InternAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(x.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("intern atom %s: %w", name, err)
	}
	return reply.Atom, nil
}

func (x *XConn) SelectionOwner(selection xproto.Atom) (xproto.Window, error) {
	reply, err := xproto.GetSelectionOwner(x.conn, selection).Reply()
	if err != nil {
		return 0, fmt.Errorf("get selection owner: %w", err)
	}
	return reply.Owner, nil
}

func (x *XConn) SetSelectionOwner(owner xproto.Window, selection xproto.Atom) {
	xproto.SetSelectionOwner(x.conn, owner, selection, xproto.TimeCurrentTime)
}

func (x *XConn) SendClientMessage(dest xproto.Window, mask uint32, ev xproto.ClientMessageEvent) {
	xproto.SendEvent(x.conn, false, dest, mask, string(ev.Bytes()))
}

func (x *XConn) CreateWindow(win, parent xproto.Window, px, py int16, width, height uint16, background, events uint32) {
	xproto.CreateWindow(
		x.conn,
		x.screen.RootDepth,
		win,
		parent,
		px, py, width, height,
		0,
		xproto.WindowClassInputOutput,
		x.screen.RootVisual,
		xproto.CwBackPixel|xproto.CwEventMask,
		[]uint32{background, events},
	)
}

func (x *XConn) SelectInput(win xproto.Window, events uint32) {
	xproto.ChangeWindowAttributes(x.conn, win, xproto.CwEventMask, []uint32{events})
}

func (x *XConn) AddToSaveSet(win xproto.Window) {
	xproto.ChangeSaveSet(x.conn, xproto.SetModeInsert, win)
}

func (x *XConn) ReparentWindow(win, parent xproto.Window, px, py int16) {
	xproto.ReparentWindow(x.conn, win, parent, px, py)
}

func (x *XConn) MapWindow(win xproto.Window) {
	xproto.MapWindow(x.conn, win)
}

func (x *XConn) UnmapWindow(win xproto.Window) {
	xproto.UnmapWindow(x.conn, win)
}

func (x *XConn) DestroyWindow(win xproto.Window) {
	xproto.DestroyWindow(x.conn, win)
}

func (x *XConn) MoveWindow(win xproto.Window, px, py int16) {
	xproto.ConfigureWindow(x.conn, win,
		xproto.ConfigWindowX|xproto.ConfigWindowY,
		[]uint32{uint32(int32(px)), uint32(int32(py))})
}

func (x *XConn) ResizeWindow(win xproto.Window, width uint16) {
	xproto.ConfigureWindow(x.conn, win, xproto.ConfigWindowWidth, []uint32{uint32(width)})
}

func (x *XConn) CopyArea(src xproto.Drawable, dst xproto.Window, srcX, dstX int16, width, height uint16) {
	xproto.CopyArea(x.conn, src, xproto.Drawable(dst), x.gc, srcX, 0, dstX, 0, width, height)
}

// Flush is a no-op: the connection writes each request as soon as it is
// issued, so queued requests never outlive the call that produced them.
func (x *XConn) Flush() {}

func (x *XConn) WaitForEvent() (xgb.Event, xgb.Error) {
	return x.conn.WaitForEvent()
}
