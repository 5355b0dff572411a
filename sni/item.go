package sni

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	StatusNotifierItemInterface = "org.kde.StatusNotifierItem"
	StatusNotifierItemPath      = "/StatusNotifierItem"
)

type ItemStatus string

// StatusNotifierItem statuses.
const (
	// The item doesn't convey important information to the user. Panels
	// hide it.
	ItemStatusPassive ItemStatus = "Passive"

	// The item is active and is shown.
	ItemStatusActive ItemStatus = "Active"

	// The item carries important information for the user. Panels show its
	// attention icon when it has one.
	ItemStatusNeedsAttention ItemStatus = "NeedsAttention"
)

// Time allowed for one property read from an item or the watcher.
const callTimeout = 2 * time.Second

// signals emitted by an item when one of its properties changes.
var itemSignals = []string{"NewTitle", "NewStatus", "NewIcon", "NewAttentionIcon"}

// Item is a StatusNotifierItem registered on the session bus.
//
// Its properties are refreshed in the background when the item announces a
// change; use [Item.State] to read them.
type Item struct {
	conn       *dbus.Conn
	signals    chan *dbus.Signal
	object     dbus.BusObject
	uniqueName string

	mu    sync.RWMutex
	state ItemState
}

// ItemState is a snapshot of the properties of an [Item] that matter to a
// panel.
type ItemState struct {
	// Unique identifier for the application, such as the application name.
	ID string

	// Name that describes the application.
	Title string

	// Status of the item.
	Status ItemStatus

	// Icon pixmaps. Icons referenced only by theme name are not loaded.
	Icon          IconSet
	AttentionIcon IconSet
}

// Visible reports whether the item should be drawn.
func (s ItemState) Visible() bool {
	return s.Status != ItemStatusPassive && s.Pixmaps() != nil
}

// Pixmaps returns the icon to draw for the current status.
func (s ItemState) Pixmaps() IconSet {
	if s.Status == ItemStatusNeedsAttention && s.AttentionIcon != nil {
		return s.AttentionIcon
	}
	return s.Icon
}

// NewItem returns new [Item] from its unique D-Bus name and object path.
func NewItem(conn *dbus.Conn, uniqueName string, objectPath string) (*Item, error) {
	obj := conn.Object(uniqueName, dbus.ObjectPath(objectPath))

	item := &Item{
		conn:       conn,
		signals:    make(chan *dbus.Signal, 16),
		object:     obj,
		uniqueName: uniqueName,
	}

	// Check whether properties can be retrieved at all.
	id, err := getProperty(obj, StatusNotifierItemInterface+".Id")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve item %s%s: %w", uniqueName, objectPath, err)
	}
	id.Store(&item.state.ID)

	item.updateTitle()
	item.updateStatus()
	item.updateIcon()
	item.updateAttentionIcon()

	item.subscribe()

	return item, nil
}

// State returns the current properties of the item.
func (item *Item) State() ItemState {
	item.mu.RLock()
	defer item.mu.RUnlock()

	return item.state
}

// close removes signal handlers associated with this item.
//
// This method must be called when item is being unregistered.
func (item *Item) close() {
	for _, member := range itemSignals {
		item.conn.RemoveMatchSignal(
			dbus.WithMatchInterface(StatusNotifierItemInterface),
			dbus.WithMatchMember(member),
			dbus.WithMatchSender(item.uniqueName),
		)
	}

	item.conn.RemoveSignal(item.signals)
	close(item.signals)
}

func (item *Item) subscribe() {
	for _, member := range itemSignals {
		item.conn.AddMatchSignal(
			dbus.WithMatchInterface(StatusNotifierItemInterface),
			dbus.WithMatchMember(member),
			dbus.WithMatchSender(item.uniqueName),
		)
	}

	item.conn.Signal(item.signals)

	go func() {
		for signal := range item.signals {
			if signal.Sender != item.uniqueName {
				continue
			}

			item.handleSignal(signal)
		}
	}()
}

func (item *Item) handleSignal(signal *dbus.Signal) {
	switch signal.Name {
	case StatusNotifierItemInterface + ".NewTitle":
		item.updateTitle()
	case StatusNotifierItemInterface + ".NewStatus":
		item.updateStatus()
	case StatusNotifierItemInterface + ".NewIcon":
		item.updateIcon()
	case StatusNotifierItemInterface + ".NewAttentionIcon":
		item.updateAttentionIcon()
	}
}

// updateTitle initializes or updates Title of the item.
func (item *Item) updateTitle() {
	title, err := getProperty(item.object, StatusNotifierItemInterface+".Title")
	if err != nil {
		return
	}

	item.mu.Lock()
	defer item.mu.Unlock()

	title.Store(&item.state.Title)
}

// updateStatus initializes or updates Status of the item.
func (item *Item) updateStatus() {
	status, err := getProperty(item.object, StatusNotifierItemInterface+".Status")
	if err != nil {
		return
	}

	item.mu.Lock()
	defer item.mu.Unlock()

	item.state.Status = parseStatus(status.Value())
}

// updateIcon initializes or updates the icon pixmaps of the item.
func (item *Item) updateIcon() {
	item.updateIconSet(".IconPixmap", &item.state.Icon)
}

// updateAttentionIcon initializes or updates the attention icon pixmaps of
// the item.
func (item *Item) updateAttentionIcon() {
	item.updateIconSet(".AttentionIconPixmap", &item.state.AttentionIcon)
}

func (item *Item) updateIconSet(property string, dst *IconSet) {
	pixmap, err := getProperty(item.object, StatusNotifierItemInterface+property)
	if err != nil {
		return
	}

	set, err := NewIconSetFromDBusProperty(pixmap.Value())

	item.mu.Lock()
	defer item.mu.Unlock()

	if err != nil {
		*dst = nil
		return
	}
	*dst = set
}

// getProperty reads property p of obj, giving up after callTimeout.
func getProperty(obj dbus.BusObject, p string) (dbus.Variant, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	iface, name, ok := cutLast(p, ".")
	if !ok {
		return dbus.Variant{}, fmt.Errorf("invalid property name %q", p)
	}

	var v dbus.Variant
	err := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, iface, name).Store(&v)
	return v, err
}

func cutLast(s, sep string) (before, after string, found bool) {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}

func parseStatus(value any) ItemStatus {
	s, _ := value.(string)

	switch s {
	case "Passive":
		return ItemStatusPassive
	case "NeedsAttention":
		return ItemStatusNeedsAttention
	default:
		return ItemStatusActive
	}
}

// uniqueNameAndPathFromDBusSignal retrieves unique name and object path of
// the StatusNotifierItem service from D-Bus signal.
func uniqueNameAndPathFromDBusSignal(signal *dbus.Signal) (string, string, error) {
	if len(signal.Body) < 1 {
		return "", "", fmt.Errorf("signal body is empty")
	}

	itemName, ok := signal.Body[0].(string)
	if !ok {
		return "", "", fmt.Errorf("invalid format of signal body")
	}

	return uniqueNameAndPathFromItemName(itemName)
}

// uniqueNameAndPathFromItemName returns unique name and object path of the
// StatusNotifierItem service from its item name. The returned object path
// starts with /.
//
// Format of item name is "<uniqueName>/<objectPath>",
// e.g. ":1.185/StatusNotifierItem". A bare name uses the default path.
func uniqueNameAndPathFromItemName(itemName string) (string, string, error) {
	if itemName == "" {
		return "", "", fmt.Errorf("item name is empty")
	}

	uniqueName, objectPath, ok := strings.Cut(itemName, "/")
	if !ok {
		return uniqueName, StatusNotifierItemPath, nil
	}

	if uniqueName == "" {
		return "", "", fmt.Errorf("item name %q has no bus name", itemName)
	}

	return uniqueName, "/" + objectPath, nil
}
