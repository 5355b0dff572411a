// Package sni tracks [StatusNotifierItem] tray items on the session bus so
// that the panel can draw their icons next to the embedded tray.
//
// # Usage
//
// Status notifier support consists of a [Watcher], a [Host], and multiple
// [Item] instances:
//   - [Watcher] keeps track of tray items and hosts. One watcher must be
//     present on a D-Bus at a time; the panel starts its own only when none
//     is running.
//   - [Host] registers with the watcher and keeps the list of items.
//   - [Item] is one application in the tray. Its icon pixmaps and status are
//     refreshed when the application signals a change.
//
// Menus and activation are not supported: the panel does not take pointer
// input.
//
// [StatusNotifierItem]: https://www.freedesktop.org/wiki/Specifications/StatusNotifierItem/
package sni
