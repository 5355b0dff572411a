// Package panel implements a small X11 status panel that doubles as a system
// tray host.
//
// # Usage
//
// A panel consists of a [Surface], a [Tray], and a [Loop]:
//   - [Surface] is an off-screen pixel buffer shared with the X server. Status
//     widgets ([Producer]) draw into it once per tick, left to right, and the
//     result is copied onto the panel window.
//   - [Tray] owns the _NET_SYSTEM_TRAY_S<n> selection and embeds icon
//     windows of other clients into containers at the left edge of the
//     panel, following the [System Tray Protocol].
//   - [Loop] waits for timer ticks and display events and dispatches them to
//     the two above. It owns all panel state; nothing else needs locking.
//
// The display is reached through [Conn]. [XConn] implements it over an X11
// connection; tests substitute a recording fake.
//
// [System Tray Protocol]: https://specifications.freedesktop.org/systemtray-spec/latest/
package panel
