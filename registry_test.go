package panel

import (
	"testing"

	"github.com/jezek/xgb/xproto"
)

func TestRegistry(t *testing.T) {
	r := &Registry{}

	if r.Len() != 0 || r.Free() != 0 {
		t.Fatalf("new registry: Len() = %d, Free() = %d", r.Len(), r.Free())
	}

	*r.Slot(0) = Slot{Client: 0x500, Container: 0x600, Width: 20}
	*r.Slot(2) = Slot{Client: 0x501, Container: 0x601, Width: 20}

	if got := r.Find(0x501); got != 2 {
		t.Errorf("Find(0x501) = %d, want 2", got)
	}

	if got := r.Find(0x999); got != -1 {
		t.Errorf("Find(0x999) = %d, want -1", got)
	}

	if got := r.Free(); got != 1 {
		t.Errorf("Free() = %d, want 1", got)
	}

	// An empty slot never matches, even for a zero client.
	if got := r.Find(0); got != -1 {
		t.Errorf("Find(0) = %d, want -1", got)
	}

	r.Clear(0)
	if r.Len() != 1 || !r.Slot(0).Empty() {
		t.Errorf("Clear(0) left %d slots, slot 0 = %+v", r.Len(), *r.Slot(0))
	}

	for i := range Capacity {
		*r.Slot(i) = Slot{Client: xproto.Window(0x700 + i), Container: xproto.Window(0x800 + i)}
	}

	if got := r.Free(); got != -1 {
		t.Errorf("Free() on full registry = %d, want -1", got)
	}

	if got := len(r.Slots()); got != Capacity {
		t.Errorf("len(Slots()) = %d, want %d", got, Capacity)
	}
}
