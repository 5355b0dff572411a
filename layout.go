package panel

// Layout packs the registry's icons left to right and keeps their container
// windows in place.
type Layout struct {
	conn     Conn
	registry *Registry
	width    int
}

// NewLayout returns a [Layout] over registry that moves containers through
// conn.
func NewLayout(conn Conn, registry *Registry) *Layout {
	return &Layout{conn: conn, registry: registry}
}

// Width returns the total width of the icon area.
func (l *Layout) Width() int {
	return l.width
}

// Grow adds width to the icon area for an icon placed at the end of it.
func (l *Layout) Grow(width int) {
	l.width += width
}

// Recompute compacts occupied slots toward the front of the table, assigns
// each one the running sum of the widths before it, and moves the containers
// whose offset changed. It returns the number of containers moved.
//
// Recompute is idempotent: without an intervening change to the registry a
// second call moves nothing.
func (l *Layout) Recompute() int {
	offset := 0
	placed := 0
	moved := 0

	for i := range l.registry.slots {
		slot := &l.registry.slots[i]
		if slot.Empty() {
			continue
		}

		if slot.Offset != offset {
			l.conn.MoveWindow(slot.Container, int16(offset), 0)
			slot.Offset = offset
			moved++
		}

		offset += slot.Width

		if placed < i {
			l.registry.slots[placed] = *slot
			l.registry.Clear(i)
		}
		placed++
	}

	l.width = offset

	return moved
}
