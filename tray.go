package panel

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jezek/xgb/xproto"
)

// System tray opcodes. Only dock requests are handled; balloon messages are
// recognized and ignored.
const (
	opcodeRequestDock   = 0
	opcodeBeginMessage  = 1
	opcodeCancelMessage = 2
)

var (
	// ErrTrayOwned is returned by [Tray.Init] when another system tray owns
	// the selection.
	ErrTrayOwned = errors.New("another system tray is already running")

	// ErrOwnershipLost is returned by [Tray.Init] when the selection claim
	// did not take effect.
	ErrOwnershipLost = errors.New("cannot claim system tray ownership")
)

// Atoms are the identifiers of the system tray protocol.
type Atoms struct {
	TraySelection xproto.Atom
	TrayOpcode    xproto.Atom
	Manager       xproto.Atom
}

// TrayOptions configures a [Tray].
type TrayOptions struct {
	// Window is the panel window. It owns the tray selection and parents
	// the icon containers.
	Window xproto.Window

	// Root is the root window of the screen the tray is on.
	Root xproto.Window

	// Screen is the index of that screen.
	Screen int

	// IconSize is the width and height of an icon container.
	IconSize int

	// Background is the pixel value containers are filled with.
	Background uint32

	// Redraw is called after the icon area has changed size, with the new
	// width.
	Redraw func(iconWidth int)

	Logger *slog.Logger
}

// Tray is the system tray host. It owns the tray selection and embeds the
// icon windows of other clients into containers on the panel.
type Tray struct {
	conn     Conn
	opts     TrayOptions
	atoms    Atoms
	registry *Registry
	layout   *Layout
	logger   *slog.Logger
}

// NewTray returns a new [Tray]. [Tray.Init] must be called before any event
// is handled.
func NewTray(conn Conn, opts TrayOptions) *Tray {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Redraw == nil {
		opts.Redraw = func(int) {}
	}

	registry := &Registry{}

	return &Tray{
		conn:     conn,
		opts:     opts,
		registry: registry,
		layout:   NewLayout(conn, registry),
		logger:   opts.Logger,
	}
}

// Atoms returns the protocol atoms resolved by [Tray.Init].
func (t *Tray) Atoms() Atoms {
	return t.atoms
}

// IconWidth returns the width of the icon area.
func (t *Tray) IconWidth() int {
	return t.layout.Width()
}

// Icons returns the embedded icons in display order.
func (t *Tray) Icons() []Slot {
	return t.registry.Slots()
}

// Init resolves the protocol atoms, claims the tray selection for the panel
// window, verifies the claim, and announces the tray to clients.
func (t *Tray) Init() error {
	var err error

	names := []struct {
		name string
		atom *xproto.Atom
	}{
		{fmt.Sprintf("_NET_SYSTEM_TRAY_S%d", t.opts.Screen), &t.atoms.TraySelection},
		{"_NET_SYSTEM_TRAY_OPCODE", &t.atoms.TrayOpcode},
		{"MANAGER", &t.atoms.Manager},
	}

	for _, n := range names {
		if *n.atom, err = t.conn.InternAtom(n.name); err != nil {
			return fmt.Errorf("init tray: %w", err)
		}
	}

	owner, err := t.conn.SelectionOwner(t.atoms.TraySelection)
	if err != nil {
		return fmt.Errorf("init tray: %w", err)
	}

	if owner != xproto.WindowNone {
		return fmt.Errorf("init tray: %w (owner 0x%x)", ErrTrayOwned, owner)
	}

	t.conn.SetSelectionOwner(t.opts.Window, t.atoms.TraySelection)

	owner, err = t.conn.SelectionOwner(t.atoms.TraySelection)
	if err != nil {
		return fmt.Errorf("init tray: %w", err)
	}

	if owner != t.opts.Window {
		return fmt.Errorf("init tray: %w (owner 0x%x)", ErrOwnershipLost, owner)
	}

	t.announce()
	t.conn.Flush()

	t.logger.Info("tray: selection acquired", "window", t.opts.Window, "screen", t.opts.Screen)

	return nil
}

// announce tells interested clients that a tray manager is available.
func (t *Tray) announce() {
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: t.opts.Root,
		Type:   t.atoms.Manager,
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			uint32(xproto.TimeCurrentTime),
			uint32(t.atoms.TraySelection),
			uint32(t.opts.Window),
			0,
			0,
		}),
	}

	t.conn.SendClientMessage(t.opts.Root, xproto.EventMaskStructureNotify, ev)
}

// HandleClientMessage handles system tray opcode messages sent to the panel
// window. Anything else is ignored.
func (t *Tray) HandleClientMessage(ev xproto.ClientMessageEvent) {
	if ev.Window != t.opts.Window || ev.Type != t.atoms.TrayOpcode || ev.Format != 32 {
		return
	}

	data := ev.Data.Data32
	if len(data) < 3 {
		return
	}

	switch data[1] {
	case opcodeRequestDock:
		t.Dock(xproto.Window(data[2]))
	case opcodeBeginMessage, opcodeCancelMessage:
		t.logger.Debug("tray: balloon message ignored", "opcode", data[1])
	default:
		t.logger.Debug("tray: unknown opcode ignored", "opcode", data[1])
	}
}

// Dock embeds client into a new container at the end of the icon area.
//
// Docking a client that is already embedded does nothing. When the tray is
// full the request is dropped and the client is left where it is.
func (t *Tray) Dock(client xproto.Window) {
	if client == xproto.WindowNone {
		return
	}

	if t.registry.Find(client) >= 0 {
		return
	}

	idx := t.registry.Free()
	if idx < 0 {
		t.logger.Warn("tray: no free icon slot, dock request dropped", "client", client)
		return
	}

	container, err := t.conn.NewWindowID()
	if err != nil {
		t.logger.Error("tray: failed to allocate container", "client", client, "error", err)
		return
	}

	size := t.opts.IconSize
	offset := t.layout.Width()

	t.conn.CreateWindow(container, t.opts.Window,
		int16(offset), 0, uint16(size), uint16(size),
		t.opts.Background, 0)

	*t.registry.Slot(idx) = Slot{
		Client:    client,
		Container: container,
		Width:     size,
		Offset:    offset,
	}
	t.layout.Grow(size)

	t.conn.UnmapWindow(client)
	t.conn.SelectInput(container, xproto.EventMaskSubstructureNotify)
	t.conn.AddToSaveSet(client)
	t.conn.ReparentWindow(client, container, 0, 0)
	t.conn.MapWindow(container)
	t.conn.MapWindow(client)
	t.conn.Flush()

	t.logger.Debug("tray: icon docked", "client", client, "container", container, "offset", offset, "icons", t.registry.Len())

	t.layout.Recompute()
	t.opts.Redraw(t.layout.Width())
}

// HandleReparent removes an icon whose client was reparented out of its
// container.
//
// Any reparent away from the container counts, whether the client left on
// its own or another program took it.
func (t *Tray) HandleReparent(ev xproto.ReparentNotifyEvent) {
	if ev.Window == t.opts.Window {
		return
	}

	idx := t.registry.Find(ev.Window)
	if idx < 0 {
		return
	}

	if t.registry.Slot(idx).Container == ev.Parent {
		return
	}

	t.Remove(idx)
}

// HandleDestroy removes the icon of a destroyed client.
func (t *Tray) HandleDestroy(ev xproto.DestroyNotifyEvent) {
	idx := t.registry.Find(ev.Window)
	if idx < 0 {
		return
	}

	t.Remove(idx)
}

// Remove destroys the container of the icon in slot idx and closes the gap it
// leaves. Removing an empty slot does nothing.
func (t *Tray) Remove(idx int) {
	if idx < 0 || idx >= Capacity {
		return
	}

	slot := t.registry.Slot(idx)
	if slot.Empty() {
		return
	}

	client, container := slot.Client, slot.Container

	t.conn.DestroyWindow(container)
	t.registry.Clear(idx)

	t.logger.Debug("tray: icon removed", "client", client, "container", container, "icons", t.registry.Len())

	t.layout.Recompute()
	t.conn.Flush()

	t.opts.Redraw(t.layout.Width())
}
