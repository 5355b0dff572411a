package panel

import "github.com/jezek/xgb/xproto"

// Capacity is the number of icons the tray can hold at once. Dock requests
// beyond it are dropped.
const Capacity = 10

// Slot is one embedded icon: a foreign client window wrapped in a container
// window owned by the panel.
//
// A slot is empty when Container is xproto.WindowNone.
type Slot struct {
	Client    xproto.Window
	Container xproto.Window
	Width     int
	Offset    int
}

// Empty reports whether the slot holds no icon.
func (s *Slot) Empty() bool {
	return s.Container == xproto.WindowNone
}

// Registry is a fixed-size table of icon slots.
type Registry struct {
	slots [Capacity]Slot
}

// Find returns the index of the occupied slot holding client, or -1.
func (r *Registry) Find(client xproto.Window) int {
	for i := range r.slots {
		if !r.slots[i].Empty() && r.slots[i].Client == client {
			return i
		}
	}
	return -1
}

// Free returns the index of the first empty slot, or -1 if the table is full.
func (r *Registry) Free() int {
	for i := range r.slots {
		if r.slots[i].Empty() {
			return i
		}
	}
	return -1
}

// Slot returns the slot at index i.
func (r *Registry) Slot(i int) *Slot {
	return &r.slots[i]
}

// Clear empties the slot at index i.
func (r *Registry) Clear(i int) {
	r.slots[i] = Slot{}
}

// Len returns the number of occupied slots.
func (r *Registry) Len() int {
	n := 0
	for i := range r.slots {
		if !r.slots[i].Empty() {
			n++
		}
	}
	return n
}

// Slots returns a copy of the occupied slots in table order.
func (r *Registry) Slots() []Slot {
	slots := make([]Slot, 0, Capacity)
	for _, s := range r.slots {
		if !s.Empty() {
			slots = append(slots, s)
		}
	}
	return slots
}
