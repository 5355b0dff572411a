package sni

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/godbus/dbus/v5"
)

// Host implements [StatusNotifierHost]. It keeps track of StatusNotifierItem
// instances via [StatusNotifierWatcher].
//
// [StatusNotifierHost]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/StatusNotifierHost/
// [StatusNotifierWatcher]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/StatusNotifierWatcher/
type Host struct {
	name    string
	closed  bool
	conn    *dbus.Conn
	items   map[string]*Item
	signals chan *dbus.Signal
	mu      sync.RWMutex

	// newItem resolves an item. It talks to the item over D-Bus and is
	// never called with mu held.
	newItem func(uniqueName, objectPath string) (*Item, error)
}

// NewHost returns a new [Host].
//
// Parameter id is used as a unique identifier for host name, such as PID.
func NewHost(conn *dbus.Conn, id any) *Host {
	return &Host{
		name:    fmt.Sprintf("org.kde.StatusNotifierHost-%v", id),
		conn:    conn,
		items:   make(map[string]*Item),
		signals: make(chan *dbus.Signal, 64),
		newItem: func(uniqueName, objectPath string) (*Item, error) {
			return NewItem(conn, uniqueName, objectPath)
		},
	}
}

// Name returns name of the host service.
func (h *Host) Name() string {
	return h.name
}

// Listen requests name of the host on D-Bus, registers it in the watcher,
// subscribes to signals, and loads items that are already registered.
//
// If Listen is called after [Host.Close], an error is returned.
func (h *Host) Listen() error {
	if err := h.listen(); err != nil {
		return err
	}

	h.getInitialItems()

	return nil
}

func (h *Host) listen() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return fmt.Errorf("listen: host is closed")
	}

	reply, err := h.conn.RequestName(h.name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("listen: failed to request name %s: %w", h.name, err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("listen: name %s already taken", h.name)
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	call := h.conn.Object(
		StatusNotifierWatcherInterface,
		StatusNotifierWatcherPath,
	).CallWithContext(ctx, StatusNotifierWatcherInterface+".RegisterStatusNotifierHost", 0, h.name)
	if call.Err != nil {
		return fmt.Errorf("listen: failed to register host: %w", call.Err)
	}

	if err := h.subscribe(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	return nil
}

// Close releases name of the host from D-Bus and unsubscribes from signals.
//
// Host cannot be reused after Close was called.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	if _, err := h.conn.ReleaseName(h.name); err != nil {
		return err
	}

	for _, member := range []string{"StatusNotifierItemRegistered", "StatusNotifierItemUnregistered"} {
		if err := h.conn.RemoveMatchSignal(
			dbus.WithMatchInterface(StatusNotifierWatcherInterface),
			dbus.WithMatchMember(member),
		); err != nil {
			return err
		}
	}

	h.conn.RemoveSignal(h.signals)
	close(h.signals)

	for _, item := range h.items {
		item.close()
	}

	h.items = nil
	h.closed = true

	return nil
}

// Items returns currently registered items ordered by bus name, so the
// order is stable between calls.
func (h *Host) Items() []*Item {
	h.mu.RLock()
	defer h.mu.RUnlock()

	items := make([]*Item, 0, len(h.items))
	for _, item := range h.items {
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].uniqueName < items[j].uniqueName
	})

	return items
}

// getInitialItems retrieves items that are already registered.
func (h *Host) getInitialItems() {
	watcherObj := h.conn.Object(StatusNotifierWatcherInterface, StatusNotifierWatcherPath)

	property, err := getProperty(watcherObj, StatusNotifierWatcherInterface+".RegisteredStatusNotifierItems")
	if err != nil {
		return
	}

	registeredItems, ok := property.Value().([]string)
	if !ok {
		return
	}

	for _, itemName := range registeredItems {
		h.register(itemName)
	}
}

// subscribe subscribes to signals
//   - org.kde.StatusNotifierWatcher.StatusNotifierItemRegistered
//   - org.kde.StatusNotifierWatcher.StatusNotifierItemUnregistered
func (h *Host) subscribe() error {
	for _, member := range []string{"StatusNotifierItemRegistered", "StatusNotifierItemUnregistered"} {
		if err := h.conn.AddMatchSignal(
			dbus.WithMatchInterface(StatusNotifierWatcherInterface),
			dbus.WithMatchMember(member),
		); err != nil {
			return err
		}
	}

	h.conn.Signal(h.signals)

	go func() {
		for signal := range h.signals {
			switch signal.Name {
			case StatusNotifierWatcherInterface + ".StatusNotifierItemRegistered":
				h.handleRegisteredSignal(signal)
			case StatusNotifierWatcherInterface + ".StatusNotifierItemUnregistered":
				h.handleUnregisteredSignal(signal)
			}
		}
	}()

	return nil
}

// register adds the item called itemName unless it is already known. The
// item is resolved without holding h.mu, so readers of [Host.Items] never
// wait on a slow item.
func (h *Host) register(itemName string) {
	uniqueName, objectPath, err := uniqueNameAndPathFromItemName(itemName)
	if err != nil {
		return
	}

	h.mu.RLock()
	_, exists := h.items[uniqueName]
	closed := h.closed
	h.mu.RUnlock()

	if exists || closed {
		return
	}

	item, err := h.newItem(uniqueName, objectPath)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.items[uniqueName]; exists || h.closed {
		item.close()
		return
	}

	h.items[uniqueName] = item
}

// handleRegisteredSignal handles the
// org.kde.StatusNotifierWatcher.StatusNotifierItemRegistered signal.
func (h *Host) handleRegisteredSignal(signal *dbus.Signal) {
	if len(signal.Body) < 1 {
		return
	}

	itemName, ok := signal.Body[0].(string)
	if !ok {
		return
	}

	h.register(itemName)
}

// handleUnregisteredSignal handles the
// org.kde.StatusNotifierWatcher.StatusNotifierItemUnregistered signal.
func (h *Host) handleUnregisteredSignal(signal *dbus.Signal) {
	uniqueName, _, err := uniqueNameAndPathFromDBusSignal(signal)
	if err != nil {
		return
	}

	h.mu.Lock()
	item, exists := h.items[uniqueName]
	delete(h.items, uniqueName)
	h.mu.Unlock()

	if exists {
		item.close()
	}
}
