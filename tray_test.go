package panel

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jezek/xgb/xproto"
)

const (
	testPanel = xproto.Window(0x10)
	testRoot  = xproto.Window(0x01)
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type trayFixture struct {
	conn    *fakeConn
	tray    *Tray
	redraws []int
}

func newTrayFixture(t *testing.T) *trayFixture {
	t.Helper()

	f := &trayFixture{conn: newFakeConn()}
	f.tray = NewTray(f.conn, TrayOptions{
		Window:   testPanel,
		Root:     testRoot,
		Screen:   0,
		IconSize: 20,
		Redraw:   func(w int) { f.redraws = append(f.redraws, w) },
		Logger:   discard,
	})

	if err := f.tray.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	f.conn.reset()

	return f
}

func (f *trayFixture) dockMessage(opcode uint32, client xproto.Window) xproto.ClientMessageEvent {
	return xproto.ClientMessageEvent{
		Format: 32,
		Window: testPanel,
		Type:   f.tray.Atoms().TrayOpcode,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{0, opcode, uint32(client), 0, 0}),
	}
}

func (f *trayFixture) offsets() map[xproto.Window]int {
	offsets := make(map[xproto.Window]int)
	for _, s := range f.tray.Icons() {
		offsets[s.Client] = s.Offset
	}
	return offsets
}

func TestTrayInit(t *testing.T) {
	conn := newFakeConn()
	tray := NewTray(conn, TrayOptions{Window: testPanel, Root: testRoot, Screen: 2, IconSize: 20, Logger: discard})

	if err := tray.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if _, ok := conn.atoms["_NET_SYSTEM_TRAY_S2"]; !ok {
		t.Errorf("selection atom for screen 2 was not interned")
	}

	if len(conn.messages) != 1 {
		t.Fatalf("sent %d messages, want 1", len(conn.messages))
	}

	msg := conn.messages[0]
	atoms := tray.Atoms()

	if msg.Window != testRoot || msg.Type != atoms.Manager || msg.Format != 32 {
		t.Errorf("announcement = window 0x%x type %d format %d", msg.Window, msg.Type, msg.Format)
	}

	want := []uint32{0, uint32(atoms.TraySelection), uint32(testPanel), 0, 0}
	for i, v := range want {
		if msg.Data.Data32[i] != v {
			t.Errorf("announcement data[%d] = %d, want %d", i, msg.Data.Data32[i], v)
		}
	}
}

func TestTrayInitOwnership(t *testing.T) {
	tests := []struct {
		name  string
		owner xproto.Window
		steal xproto.Window
		err   error
	}{
		{
			name:  "Already owned",
			owner: 0x999,
			err:   ErrTrayOwned,
		},
		{
			name:  "Stolen during claim",
			steal: 0x999,
			err:   ErrOwnershipLost,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := newFakeConn()
			conn.owner = tt.owner
			conn.steal = tt.steal

			tray := NewTray(conn, TrayOptions{Window: testPanel, Root: testRoot, IconSize: 20, Logger: discard})

			err := tray.Init()
			if !errors.Is(err, tt.err) {
				t.Fatalf("Init() error = %v, want %v", err, tt.err)
			}

			if len(conn.messages) != 0 {
				t.Errorf("tray was announced after failed claim")
			}
		})
	}
}

func TestTrayDock(t *testing.T) {
	f := newTrayFixture(t)

	f.tray.HandleClientMessage(f.dockMessage(opcodeRequestDock, 0x500))

	icons := f.tray.Icons()
	if len(icons) != 1 {
		t.Fatalf("got %d icons, want 1", len(icons))
	}

	icon := icons[0]
	if icon.Client != 0x500 || icon.Width != 20 || icon.Offset != 0 {
		t.Errorf("icon = %+v", icon)
	}

	create := f.conn.named("CreateWindow")
	if len(create) != 1 || create[0].win != icon.Container || create[0].args[0] != int(testPanel) {
		t.Errorf("CreateWindow = %v", create)
	}

	reparent := f.conn.named("ReparentWindow")
	if len(reparent) != 1 || reparent[0].win != 0x500 || reparent[0].args[0] != int(icon.Container) {
		t.Errorf("ReparentWindow = %v", reparent)
	}

	if f.conn.count("MapWindow") != 2 {
		t.Errorf("mapped %d windows, want 2", f.conn.count("MapWindow"))
	}

	if f.conn.flushes == 0 {
		t.Errorf("dock batch was not flushed")
	}

	if f.tray.IconWidth() != 20 {
		t.Errorf("IconWidth() = %d, want 20", f.tray.IconWidth())
	}

	if len(f.redraws) != 1 || f.redraws[0] != 20 {
		t.Errorf("redraws = %v, want [20]", f.redraws)
	}
}

func TestTrayDockTwice(t *testing.T) {
	f := newTrayFixture(t)

	f.tray.Dock(0x500)
	f.tray.Dock(0x501)
	before := f.offsets()
	f.conn.reset()

	f.tray.Dock(0x500)

	if len(f.conn.ops) != 0 {
		t.Errorf("repeated dock issued requests: %v", f.conn.ops)
	}

	after := f.offsets()
	if len(after) != len(before) {
		t.Fatalf("icon count changed from %d to %d", len(before), len(after))
	}

	for c, off := range before {
		if after[c] != off {
			t.Errorf("offset of 0x%x changed from %d to %d", c, off, after[c])
		}
	}
}

func TestTrayIgnoredMessages(t *testing.T) {
	f := newTrayFixture(t)

	wrongWindow := f.dockMessage(opcodeRequestDock, 0x500)
	wrongWindow.Window = 0x42

	wrongType := f.dockMessage(opcodeRequestDock, 0x500)
	wrongType.Type = f.tray.Atoms().Manager

	wrongFormat := f.dockMessage(opcodeRequestDock, 0x500)
	wrongFormat.Format = 8

	messages := map[string]xproto.ClientMessageEvent{
		"Wrong window":   wrongWindow,
		"Wrong type":     wrongType,
		"Wrong format":   wrongFormat,
		"Begin message":  f.dockMessage(opcodeBeginMessage, 0x500),
		"Cancel message": f.dockMessage(opcodeCancelMessage, 0x500),
		"Unknown opcode": f.dockMessage(42, 0x500),
		"Null window":    f.dockMessage(opcodeRequestDock, 0),
	}

	for name, msg := range messages {
		t.Run(name, func(t *testing.T) {
			f.tray.HandleClientMessage(msg)

			if len(f.tray.Icons()) != 0 {
				t.Errorf("message docked an icon")
			}

			if len(f.conn.ops) != 0 {
				t.Errorf("message issued requests: %v", f.conn.ops)
			}
		})
	}
}

func TestTrayCapacityScenario(t *testing.T) {
	f := newTrayFixture(t)

	for i := 1; i <= Capacity; i++ {
		f.tray.Dock(xproto.Window(0x500 + i))
	}

	offsets := f.offsets()
	for i := 1; i <= Capacity; i++ {
		if got, want := offsets[xproto.Window(0x500+i)], (i-1)*20; got != want {
			t.Errorf("offset of W%d = %d, want %d", i, got, want)
		}
	}

	if f.tray.IconWidth() != 200 {
		t.Fatalf("IconWidth() = %d, want 200", f.tray.IconWidth())
	}

	f.conn.reset()
	f.tray.Dock(0x50b)

	if f.conn.count("CreateWindow") != 0 {
		t.Errorf("dock beyond capacity created a container")
	}

	if f.tray.IconWidth() != 200 {
		t.Errorf("IconWidth() = %d after overflow, want 200", f.tray.IconWidth())
	}

	w3 := f.tray.registry.Find(0x503)
	containers := make(map[xproto.Window]xproto.Window)
	for _, s := range f.tray.Icons() {
		containers[s.Container] = s.Client
	}

	f.conn.reset()
	f.tray.HandleDestroy(xproto.DestroyNotifyEvent{Window: 0x503})

	if w3 < 0 || f.tray.registry.Find(0x503) >= 0 {
		t.Fatalf("W3 still tracked")
	}

	if f.tray.IconWidth() != 180 {
		t.Errorf("IconWidth() = %d, want 180", f.tray.IconWidth())
	}

	moves := f.conn.named("MoveWindow")
	if len(moves) != 7 {
		t.Errorf("issued %d moves, want 7", len(moves))
	}

	for _, m := range moves {
		client := containers[m.win]
		if client == 0x501 || client == 0x502 {
			t.Errorf("W%d was moved", client-0x500)
		}

		i := int(client - 0x500)
		if want := (i - 2) * 20; m.args[0] != want {
			t.Errorf("W%d moved to %d, want %d", i, m.args[0], want)
		}
	}

	if f.conn.count("DestroyWindow") != 1 {
		t.Errorf("destroyed %d containers, want 1", f.conn.count("DestroyWindow"))
	}
}

func TestTrayReparent(t *testing.T) {
	f := newTrayFixture(t)

	f.tray.Dock(0x500)
	container := f.tray.Icons()[0].Container

	t.Run("Into container", func(t *testing.T) {
		f.tray.HandleReparent(xproto.ReparentNotifyEvent{Window: 0x500, Parent: container})
		if len(f.tray.Icons()) != 1 {
			t.Errorf("icon removed after reparent into its container")
		}
	})

	t.Run("Panel window", func(t *testing.T) {
		f.tray.HandleReparent(xproto.ReparentNotifyEvent{Window: testPanel, Parent: 0x77})
		if len(f.tray.Icons()) != 1 {
			t.Errorf("icon removed after panel reparent")
		}
	})

	t.Run("Away from container", func(t *testing.T) {
		f.tray.HandleReparent(xproto.ReparentNotifyEvent{Window: 0x500, Parent: testRoot})

		if len(f.tray.Icons()) != 0 {
			t.Fatalf("icon not removed after reparent away")
		}

		f.tray.Dock(0x600)

		icons := f.tray.Icons()
		if len(icons) != 1 || icons[0].Client != 0x600 || icons[0].Offset != 0 {
			t.Errorf("icons after redock = %+v", icons)
		}
	})
}

func TestTrayRemoveUnknown(t *testing.T) {
	f := newTrayFixture(t)
	f.tray.Dock(0x500)
	f.conn.reset()
	f.redraws = nil

	f.tray.HandleDestroy(xproto.DestroyNotifyEvent{Window: 0x777})
	f.tray.HandleReparent(xproto.ReparentNotifyEvent{Window: 0x777, Parent: testRoot})
	f.tray.Remove(5)
	f.tray.Remove(-1)
	f.tray.Remove(Capacity)

	if len(f.conn.ops) != 0 || len(f.redraws) != 0 {
		t.Errorf("removing unknown icons issued requests %v, redraws %v", f.conn.ops, f.redraws)
	}

	if len(f.tray.Icons()) != 1 {
		t.Errorf("got %d icons, want 1", len(f.tray.Icons()))
	}
}

func TestTrayUniqueClients(t *testing.T) {
	f := newTrayFixture(t)

	sequence := []func(){
		func() { f.tray.Dock(1) },
		func() { f.tray.Dock(2) },
		func() { f.tray.Dock(1) },
		func() { f.tray.HandleDestroy(xproto.DestroyNotifyEvent{Window: 1}) },
		func() { f.tray.Dock(2) },
		func() { f.tray.Dock(1) },
		func() { f.tray.HandleReparent(xproto.ReparentNotifyEvent{Window: 2, Parent: testRoot}) },
		func() { f.tray.Dock(2) },
		func() { f.tray.Dock(1) },
		func() { f.tray.Dock(3) },
	}

	for i, step := range sequence {
		step()

		seen := make(map[xproto.Window]bool)
		for _, s := range f.tray.Icons() {
			if seen[s.Client] {
				t.Fatalf("step %d: client 0x%x tracked twice", i, s.Client)
			}
			seen[s.Client] = true
		}
	}

	if n := len(f.tray.Icons()); n != 3 {
		t.Errorf("got %d icons, want 3", n)
	}
}
