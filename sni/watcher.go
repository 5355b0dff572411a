package sni

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
)

const (
	StatusNotifierWatcherInterface = "org.kde.StatusNotifierWatcher"
	StatusNotifierWatcherPath      = "/StatusNotifierWatcher"
)

// Watcher implements [StatusNotifierWatcher] for sessions that do not run
// one already.
//
// [StatusNotifierWatcher]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/StatusNotifierWatcher/
type Watcher struct {
	closed  bool
	conn    *dbus.Conn
	mu      sync.Mutex
	signals chan *dbus.Signal
	hosts   []string
	items   []string
}

// NewWatcher returns a new [Watcher].
func NewWatcher(conn *dbus.Conn) *Watcher {
	return &Watcher{
		conn:    conn,
		signals: make(chan *dbus.Signal, 64),
	}
}

// Listen requests the watcher name on D-Bus and exports the watcher
// interface. It fails if another watcher is running.
func (w *Watcher) Listen() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("listen: watcher is closed")
	}

	reply, err := w.conn.RequestName(StatusNotifierWatcherInterface, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("listen: failed to request name %s: %w", StatusNotifierWatcherInterface, err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("listen: name %s already taken", StatusNotifierWatcherInterface)
	}

	if err := w.conn.Export(w, StatusNotifierWatcherPath, StatusNotifierWatcherInterface); err != nil {
		return fmt.Errorf("listen: failed to export %s: %w", StatusNotifierWatcherInterface, err)
	}

	w.exportProperties()
	w.subscribe()

	return nil
}

// Close releases the watcher name and stops tracking owners.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	if _, err := w.conn.ReleaseName(StatusNotifierWatcherInterface); err != nil {
		return err
	}

	for _, host := range w.hosts {
		w.unwatchOwner(host)
	}

	for _, item := range w.items {
		// Items are stored as <uniqueName>/<path> and owner changes are
		// matched against uniqueName.
		uniqueName, _, err := uniqueNameAndPathFromItemName(item)
		if err != nil {
			continue
		}
		w.unwatchOwner(uniqueName)
	}

	w.conn.RemoveSignal(w.signals)
	close(w.signals)

	w.closed = true

	return nil
}

// RegisterStatusNotifierItem is exported on D-Bus. name is either a bus
// name or an object path on the sender's connection.
func (w *Watcher) RegisterStatusNotifierItem(name string, sender dbus.Sender) *dbus.Error {
	w.mu.Lock()
	defer w.mu.Unlock()

	identifier := itemIdentifier(name, string(sender))

	if slices.Contains(w.items, identifier) {
		return nil
	}

	w.items = append(w.items, identifier)
	w.watchOwner(string(sender))

	w.conn.Emit(StatusNotifierWatcherPath, StatusNotifierWatcherInterface+".StatusNotifierItemRegistered", identifier)
	w.exportProperties()

	return nil
}

// RegisterStatusNotifierHost is exported on D-Bus.
func (w *Watcher) RegisterStatusNotifierHost(name string) *dbus.Error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if slices.Contains(w.hosts, name) {
		return nil
	}

	w.hosts = append(w.hosts, name)
	w.watchOwner(name)

	w.conn.Emit(StatusNotifierWatcherPath, StatusNotifierWatcherInterface+".StatusNotifierHostRegistered", name)
	w.exportProperties()

	return nil
}

// itemIdentifier returns the <uniqueName>/<path> form under which an item is
// announced.
func itemIdentifier(name, sender string) string {
	if strings.HasPrefix(name, "/") {
		return sender + name
	}
	return name + StatusNotifierItemPath
}

// watchOwner subscribes to NameOwnerChanged for name. When the name
// disappears, D-Bus sends the signal with an empty new owner.
func (w *Watcher) watchOwner(name string) {
	w.conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, name),
	)
}

func (w *Watcher) unwatchOwner(name string) {
	w.conn.RemoveMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchSender("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, name),
	)
}

func (w *Watcher) subscribe() {
	w.conn.Signal(w.signals)

	go func() {
		for signal := range w.signals {
			if signal.Name != "org.freedesktop.DBus.NameOwnerChanged" || len(signal.Body) < 3 {
				continue
			}

			name, ok := signal.Body[0].(string)
			if !ok {
				continue
			}

			newOwner, ok := signal.Body[2].(string)
			if !ok || newOwner != "" {
				continue
			}

			w.mu.Lock()
			w.unregisterHost(name)
			w.unregisterItems(name)
			w.mu.Unlock()
		}
	}()
}

// unregisterHost forgets host name. The caller must hold w.mu.
func (w *Watcher) unregisterHost(name string) {
	idx := slices.Index(w.hosts, name)
	if idx < 0 {
		return
	}

	w.unwatchOwner(name)
	w.hosts = slices.Delete(w.hosts, idx, idx+1)
	w.exportProperties()
}

// unregisterItems forgets every item owned by name. The caller must hold
// w.mu.
func (w *Watcher) unregisterItems(name string) {
	var gone []string

	w.items = slices.DeleteFunc(w.items, func(item string) bool {
		uniqueName, _, _ := strings.Cut(item, "/")
		if uniqueName != name {
			return false
		}
		gone = append(gone, item)
		return true
	})

	if len(gone) == 0 {
		return
	}

	w.unwatchOwner(name)

	for _, item := range gone {
		w.conn.Emit(StatusNotifierWatcherPath, StatusNotifierWatcherInterface+".StatusNotifierItemUnregistered", item)
	}

	w.exportProperties()
}

func (w *Watcher) exportProperties() {
	prop.Export(w.conn, StatusNotifierWatcherPath, prop.Map{
		StatusNotifierWatcherInterface: map[string]*prop.Prop{
			"RegisteredStatusNotifierItems": {
				Value:    slices.Clone(w.items),
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			"IsStatusNotifierHostRegistered": {
				Value:    len(w.hosts) > 0,
				Writable: false,
				Emit:     prop.EmitTrue,
			},
			"ProtocolVersion": {
				Value:    int32(0),
				Writable: false,
				Emit:     prop.EmitTrue,
			},
		},
	})
}
