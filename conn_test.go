package panel

import (
	"fmt"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

// op is one request recorded by fakeConn.
type op struct {
	name string
	win  xproto.Window
	args []int
}

func (o op) String() string {
	return fmt.Sprintf("%s(0x%x %v)", o.name, o.win, o.args)
}

// fakeConn records one-way requests and answers synchronous ones from its
// fields.
type fakeConn struct {
	ops     []op
	flushes int
	nextID  xproto.Window

	atoms map[string]xproto.Atom

	// owner is the selection owner reported before SetSelectionOwner.
	owner xproto.Window

	// steal, when set, is reported as the owner after SetSelectionOwner.
	steal xproto.Window

	claimed  bool
	messages []xproto.ClientMessageEvent

	events chan fakeEvent
}

type fakeEvent struct {
	ev  xgb.Event
	err xgb.Error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		nextID: 0x100,
		atoms:  make(map[string]xproto.Atom),
		events: make(chan fakeEvent, 64),
	}
}

func (f *fakeConn) record(name string, win xproto.Window, args ...int) {
	f.ops = append(f.ops, op{name: name, win: win, args: args})
}

// count returns the number of recorded requests called name.
func (f *fakeConn) count(name string) int {
	n := 0
	for _, o := range f.ops {
		if o.name == name {
			n++
		}
	}
	return n
}

// named returns the recorded requests called name.
func (f *fakeConn) named(name string) []op {
	var ops []op
	for _, o := range f.ops {
		if o.name == name {
			ops = append(ops, o)
		}
	}
	return ops
}

func (f *fakeConn) reset() {
	f.ops = nil
	f.flushes = 0
}

func (f *fakeConn) NewWindowID() (xproto.Window, error) {
	f.nextID++
	return f.nextID, nil
}

func (f *fakeConn) InternAtom(name string) (xproto.Atom, error) {
	if atom, ok := f.atoms[name]; ok {
		return atom, nil
	}
	atom := xproto.Atom(len(f.atoms) + 300)
	f.atoms[name] = atom
	return atom, nil
}

func (f *fakeConn) SelectionOwner(selection xproto.Atom) (xproto.Window, error) {
	if f.claimed && f.steal != 0 {
		return f.steal, nil
	}
	return f.owner, nil
}

func (f *fakeConn) SetSelectionOwner(owner xproto.Window, selection xproto.Atom) {
	f.record("SetSelectionOwner", owner, int(selection))
	f.claimed = true
	f.owner = owner
}

func (f *fakeConn) SendClientMessage(dest xproto.Window, mask uint32, ev xproto.ClientMessageEvent) {
	f.record("SendClientMessage", dest, int(mask))
	f.messages = append(f.messages, ev)
}

func (f *fakeConn) CreateWindow(win, parent xproto.Window, x, y int16, width, height uint16, background, events uint32) {
	f.record("CreateWindow", win, int(parent), int(x), int(y), int(width), int(height))
}

func (f *fakeConn) SelectInput(win xproto.Window, events uint32) {
	f.record("SelectInput", win, int(events))
}

func (f *fakeConn) AddToSaveSet(win xproto.Window) {
	f.record("AddToSaveSet", win)
}

func (f *fakeConn) ReparentWindow(win, parent xproto.Window, x, y int16) {
	f.record("ReparentWindow", win, int(parent), int(x), int(y))
}

func (f *fakeConn) MapWindow(win xproto.Window) {
	f.record("MapWindow", win)
}

func (f *fakeConn) UnmapWindow(win xproto.Window) {
	f.record("UnmapWindow", win)
}

func (f *fakeConn) DestroyWindow(win xproto.Window) {
	f.record("DestroyWindow", win)
}

func (f *fakeConn) MoveWindow(win xproto.Window, x, y int16) {
	f.record("MoveWindow", win, int(x), int(y))
}

func (f *fakeConn) ResizeWindow(win xproto.Window, width uint16) {
	f.record("ResizeWindow", win, int(width))
}

func (f *fakeConn) CopyArea(src xproto.Drawable, dst xproto.Window, srcX, dstX int16, width, height uint16) {
	f.record("CopyArea", dst, int(srcX), int(dstX), int(width), int(height))
}

func (f *fakeConn) Flush() {
	f.flushes++
}

func (f *fakeConn) WaitForEvent() (xgb.Event, xgb.Error) {
	e, ok := <-f.events
	if !ok {
		return nil, nil
	}
	return e.ev, e.err
}
